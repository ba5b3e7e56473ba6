package protocol

import (
	"testing"

	"github.com/dnorman/domcorder/pkg/vdom"
)

// FuzzChunkReaderNext tests that feeding arbitrary chunk bytes into a
// ChunkReader never panics, regardless of how the length prefix or type
// tag is corrupted.
func FuzzChunkReaderNext(f *testing.F) {
	f.Add(EncodeFrame(FrameHeartbeat, nil))
	f.Add(EncodeFrame(FrameRecordingMetadata, []byte("https://example.com")))
	f.Add([]byte{0, 0, 0, 1, 255}) // unknown type tag
	f.Add([]byte{0, 0, 0})         // truncated length prefix

	f.Fuzz(func(t *testing.T, data []byte) {
		cr := NewChunkReader()
		cr.Feed(data)
		for {
			_, err, ok := cr.Next()
			if err != nil || !ok {
				return
			}
		}
	})
}

func fuzzSeedDocument() *vdom.VDocument {
	return &vdom.VDocument{ID: 1, Children: []*vdom.VNode{
		{Kind: vdom.KindElement, ID: 2, Tag: "html", Children: []*vdom.VNode{
			{Kind: vdom.KindElement, ID: 3, Tag: "body"},
		}},
	}}
}

func fuzzSeedElement() *vdom.VNode {
	return &vdom.VNode{Kind: vdom.KindElement, ID: 1, Tag: "div", Attrs: map[string]string{"class": "x"}}
}

// FuzzDecodeKeyframe tests that decoding an arbitrary Keyframe payload
// never panics, including deeply nested or truncated VNode trees.
func FuzzDecodeKeyframe(f *testing.F) {
	f.Add(EncodeKeyframe(&KeyframePayload{Document: fuzzSeedDocument(), ViewportWidth: 1024, ViewportHeight: 768}))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeKeyframe(data)
	})
}

// FuzzDecodeVNode tests that decoding an arbitrary VNode record never
// panics; rejection of nesting beyond MaxVNodeDepth is asserted by
// TestDecodeVNodeRejectsExcessiveNesting.
func FuzzDecodeVNode(f *testing.F) {
	e := NewEncoder()
	EncodeVNode(e, fuzzSeedElement())
	f.Add(e.Bytes())

	f.Fuzz(func(t *testing.T, data []byte) {
		d := NewDecoder(data)
		_, _ = DecodeVNode(d)
	})
}

// FuzzDecodeDomNodeAdded tests the DomNodeAdded payload decoder, the
// other path (besides Keyframe) through which an attacker-controlled
// VNode tree can reach decodeVNode's recursion.
func FuzzDecodeDomNodeAdded(f *testing.F) {
	f.Add(EncodeDomNodeAdded(&DomNodeAddedPayload{ParentNodeID: 1, Index: 0, Node: fuzzSeedElement()}))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeDomNodeAdded(data)
	})
}

// FuzzDecodeCollectionCount tests that an arbitrary u32 count is either
// accepted or rejected without ever causing a huge allocation.
func FuzzDecodeCollectionCount(f *testing.F) {
	f.Add([]byte{0, 0, 0, 0})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		d := NewDecoder(data)
		_, _ = d.ReadCollectionCount()
	})
}
