package transporttest

import (
	"testing"

	"github.com/dnorman/domcorder/pkg/protocol"
	"github.com/dnorman/domcorder/pkg/vdom"
)

func TestPairDeliversKeyframeToPlayer(t *testing.T) {
	p := NewPair().Build()
	defer p.Close()

	doc := &vdom.VDocument{ID: 1, Children: []*vdom.VNode{
		{Kind: vdom.KindElement, ID: 2, Tag: "html"},
	}}

	if err := p.Client.SendFrame(protocol.FrameKeyframe, protocol.EncodeKeyframe(&protocol.KeyframePayload{
		Document:       doc,
		ViewportWidth:  1024,
		ViewportHeight: 768,
	})); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}

	frame, err := p.DrainOne()
	if err != nil {
		t.Fatalf("DrainOne: %v", err)
	}
	if frame.Type != protocol.FrameKeyframe {
		t.Fatalf("got frame type %v, want FrameKeyframe", frame.Type)
	}

	w, h := p.Player.Viewport()
	if w != 1024 || h != 768 {
		t.Fatalf("got viewport %dx%d, want 1024x768", w, h)
	}
}

func TestPairRoutesResyncRequestToResyncPatches(t *testing.T) {
	p := NewPair().Build()
	defer p.Close()

	if err := p.Client.SendFrame(protocol.FrameHeartbeat, protocol.EncodeHeartbeat()); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	if _, err := p.DrainOne(); err != nil {
		t.Fatalf("DrainOne: %v", err)
	}

	go p.Client.ReadLoop()

	if err := p.playerEnd.WriteMessage(protocol.EncodeFrame(protocol.FrameResyncRequest, protocol.EncodeResyncRequest(&protocol.ResyncRequestPayload{LastSeq: 0}))); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	msg, err := p.playerEnd.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	reader := protocol.NewChunkReader()
	reader.Feed(msg)
	frame, err, ok := reader.Next()
	if err != nil || !ok {
		t.Fatalf("expected a decoded resync-patches frame, err=%v ok=%v", err, ok)
	}
	if frame.Type != protocol.FrameResyncPatches {
		t.Fatalf("got frame type %v, want FrameResyncPatches", frame.Type)
	}
}
