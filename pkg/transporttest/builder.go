package transporttest

import (
	"log/slog"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/player"
	"github.com/dnorman/domcorder/pkg/protocol"
	"github.com/dnorman/domcorder/pkg/transport"
)

// Pair is a connected RecordingClient and a PagePlayer reading from its
// other end, for exercising the wire protocol without a real socket.
//
// Example:
//
//	p := transporttest.NewPair().Build()
//	p.Client.SendFrame(protocol.FrameHeartbeat, protocol.EncodeHeartbeat())
//	frame, err := p.DrainOne()
type Pair struct {
	Client *transport.RecordingClient
	Player *player.PagePlayer

	clientEnd *Pipe
	playerEnd *Pipe
	reader    *protocol.ChunkReader
}

// PairBuilder fluently configures a Pair before Build.
type PairBuilder struct {
	logger *slog.Logger
}

// NewPair starts building a Pair.
func NewPair() *PairBuilder {
	return &PairBuilder{}
}

// WithLogger sets the logger both RecordingClient and PagePlayer use.
func (b *PairBuilder) WithLogger(logger *slog.Logger) *PairBuilder {
	b.logger = logger
	return b
}

// Build wires a RecordingClient over one end of an in-memory pipe and a
// PagePlayer-ready document/registry/ids set over the other.
func (b *PairBuilder) Build() *Pair {
	clientEnd, playerEnd := NewPipe()

	ids := nodeid.New()
	doc := domtree.NewDocument()
	registry := asset.New()
	sheets := player.NewSheetStore()

	return &Pair{
		Client:    transport.NewRecordingClient(clientEnd, nil, b.logger),
		Player:    player.NewPagePlayer(doc, ids, registry, sheets, b.logger),
		clientEnd: clientEnd,
		playerEnd: playerEnd,
		reader:    protocol.NewChunkReader(),
	}
}

// DrainOne reads one fully-reassembled frame sent by Client and hands it
// to Player.HandleFrame, returning the decoded frame for assertions.
func (p *Pair) DrainOne() (*protocol.Frame, error) {
	for {
		frame, err, ok := p.reader.Next()
		if err != nil {
			return nil, err
		}
		if ok {
			p.Player.HandleFrame(*frame)
			return frame, nil
		}
		msg, err := p.playerEnd.ReadMessage()
		if err != nil {
			return nil, err
		}
		p.reader.Feed(msg)
	}
}

// Close closes both ends of the underlying pipe.
func (p *Pair) Close() {
	p.clientEnd.Close()
	p.playerEnd.Close()
}
