package transport

import (
	"testing"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/player"
	"github.com/dnorman/domcorder/pkg/protocol"
	"github.com/dnorman/domcorder/pkg/vdom"
)

func newTestPlayer() *player.PagePlayer {
	return player.NewPagePlayer(domtree.NewDocument(), nodeid.New(), asset.New(), player.NewSheetStore(), nil)
}

func TestPlaybackClientTracksLastSeq(t *testing.T) {
	d := newFakeDuplex()
	c := NewPlaybackClient(d, newTestPlayer(), nil)

	d.inbound <- protocol.EncodeFrame(protocol.FrameHeartbeat, protocol.EncodeHeartbeat())
	d.inbound <- protocol.EncodeFrame(protocol.FrameHeartbeat, protocol.EncodeHeartbeat())
	d.Close()

	if err := c.ReadLoop(); err != errClosed {
		t.Fatalf("ReadLoop: got %v, want errClosed", err)
	}
	if got := c.LastSeq(); got != 2 {
		t.Fatalf("LastSeq = %d, want 2", got)
	}
}

func TestPlaybackClientRequestResyncSendsLastSeq(t *testing.T) {
	d := newFakeDuplex()
	c := NewPlaybackClient(d, newTestPlayer(), nil)

	d.inbound <- protocol.EncodeFrame(protocol.FrameHeartbeat, protocol.EncodeHeartbeat())
	d.Close()
	if err := c.ReadLoop(); err != errClosed {
		t.Fatalf("ReadLoop: got %v, want errClosed", err)
	}

	d2 := newFakeDuplex()
	c2 := &PlaybackClient{duplex: d2, player: c.player, log: c.log, lastSeq: c.LastSeq()}
	if err := c2.RequestResync(); err != nil {
		t.Fatalf("RequestResync: %v", err)
	}
	if len(d2.sent) != 1 {
		t.Fatalf("got %d sent messages, want 1", len(d2.sent))
	}

	reader := protocol.NewChunkReader()
	reader.Feed(d2.sent[0])
	frame, err, ok := reader.Next()
	if err != nil || !ok {
		t.Fatalf("decode resync request: err=%v ok=%v", err, ok)
	}
	if frame.Type != protocol.FrameResyncRequest {
		t.Fatalf("got frame type %v, want FrameResyncRequest", frame.Type)
	}
	req, err := protocol.DecodeResyncRequest(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeResyncRequest: %v", err)
	}
	if req.LastSeq != 1 {
		t.Fatalf("LastSeq = %d, want 1", req.LastSeq)
	}
}

func TestPlaybackClientAppliesResyncPatchesAndAdvancesSeq(t *testing.T) {
	d := newFakeDuplex()
	c := NewPlaybackClient(d, newTestPlayer(), nil)

	doc := &vdom.VDocument{ID: 1, Children: []*vdom.VNode{
		{Kind: vdom.KindElement, ID: 2, Tag: "html"},
	}}
	keyframe := protocol.EncodeFrame(protocol.FrameKeyframe, protocol.EncodeKeyframe(&protocol.KeyframePayload{
		Document: doc, ViewportWidth: 800, ViewportHeight: 600,
	}))
	resized := protocol.EncodeFrame(protocol.FrameViewportResized, protocol.EncodeViewportResized(&protocol.ViewportResizedPayload{
		Width: 1024, Height: 768,
	}))

	patches := protocol.EncodeFrame(protocol.FrameResyncPatches, protocol.EncodeResyncPatches(&protocol.ResyncPatchesPayload{
		FromSeq: 0,
		Frames:  [][]byte{keyframe, resized},
	}))
	d.inbound <- patches
	d.Close()

	if err := c.ReadLoop(); err != errClosed {
		t.Fatalf("ReadLoop: got %v, want errClosed", err)
	}
	if got := c.LastSeq(); got != 2 {
		t.Fatalf("LastSeq = %d, want 2", got)
	}
	w, h := c.player.Viewport()
	if w != 1024 || h != 768 {
		t.Fatalf("got viewport %dx%d, want 1024x768 (resized frame should have applied after keyframe)", w, h)
	}
}
