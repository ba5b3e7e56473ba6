package transport

import (
	"log/slog"
	"sync"

	"github.com/dnorman/domcorder/pkg/metrics"
	"github.com/dnorman/domcorder/pkg/player"
	"github.com/dnorman/domcorder/pkg/protocol"
)

// PlaybackClient is the player-side counterpart to RecordingClient: it
// drives a PagePlayer off an inbound Duplex, tracking how many frames it
// has applied so a reconnect can ask the recorder to replay anything
// missed (spec.md §4.12's resync path) rather than starting over from a
// fresh keyframe.
//
// A recorder assigns a sequence number to every frame it puts on the wire
// (RecordingClient.sendRaw's seq++, including heartbeats and the
// ResyncPatches frame itself), so PlaybackClient mirrors that by
// incrementing its own counter once per top-level frame it reads off the
// wire, in the same order. ResyncPatches is the one exception: its
// contained frames are replayed history, not newly observed wire traffic,
// so applying them advances the counter to FromSeq+len(Frames) rather than
// by one, and a nested ResyncPatches (possible if an earlier resync was
// itself evicted into later history) is unwrapped the same way.
type PlaybackClient struct {
	duplex Duplex
	player *player.PagePlayer
	log    *slog.Logger

	mu      sync.Mutex
	lastSeq uint64

	// Metrics, if set, receives a counter bump per frame/byte read off the
	// wire. nil is a valid no-op.
	Metrics *metrics.Collector
}

// NewPlaybackClient creates a client that applies inbound frames to p.
func NewPlaybackClient(duplex Duplex, p *player.PagePlayer, logger *slog.Logger) *PlaybackClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybackClient{
		duplex: duplex,
		player: p,
		log:    logger.With("component", "playback_client"),
	}
}

// LastSeq returns the highest sequence number applied so far.
func (c *PlaybackClient) LastSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

// RequestResync sends a ResyncRequest for everything after the last
// applied sequence number. Call this after a reconnect, before ReadLoop.
func (c *PlaybackClient) RequestResync() error {
	req := protocol.EncodeResyncRequest(&protocol.ResyncRequestPayload{LastSeq: c.LastSeq()})
	return c.duplex.WriteMessage(protocol.EncodeFrame(protocol.FrameResyncRequest, req))
}

// ReadLoop blocks consuming inbound frames and applying each to the
// PagePlayer until the duplex closes or errors.
func (c *PlaybackClient) ReadLoop() error {
	reader := protocol.NewChunkReader()
	for {
		msg, err := c.duplex.ReadMessage()
		if err != nil {
			return err
		}
		if c.Metrics != nil {
			c.Metrics.BytesReceived.Add(float64(len(msg)))
		}
		reader.Feed(msg)
		for {
			frame, err, ok := reader.Next()
			if err != nil {
				c.log.Error("decode error, terminating read loop", "err", err)
				return err
			}
			if !ok {
				break
			}
			if c.Metrics != nil {
				c.Metrics.FramesReceived.WithLabelValues(frame.Type.String()).Inc()
			}
			c.applyTopLevel(frame)
		}
	}
}

// applyTopLevel handles one frame read directly off the wire, as opposed
// to one unwrapped from inside a ResyncPatches payload.
func (c *PlaybackClient) applyTopLevel(frame *protocol.Frame) {
	if frame.Type == protocol.FrameResyncPatches {
		c.applyResyncPatches(frame.Payload)
		return
	}
	c.player.HandleFrame(*frame)
	c.mu.Lock()
	c.lastSeq++
	c.mu.Unlock()
}

func (c *PlaybackClient) applyResyncPatches(payload []byte) {
	rp, err := protocol.DecodeResyncPatches(payload)
	if err != nil {
		c.log.Error("malformed resync patches", "err", err)
		return
	}

	reader := protocol.NewChunkReader()
	applied := rp.FromSeq
	for _, raw := range rp.Frames {
		reader.Feed(raw)
		frame, err, ok := reader.Next()
		if err != nil || !ok {
			c.log.Error("malformed frame inside resync patches", "err", err)
			continue
		}
		if frame.Type == protocol.FrameResyncPatches {
			c.applyResyncPatches(frame.Payload)
			continue
		}
		c.player.HandleFrame(*frame)
		applied++
	}

	c.mu.Lock()
	if applied > c.lastSeq {
		c.lastSeq = applied
	}
	c.mu.Unlock()
}
