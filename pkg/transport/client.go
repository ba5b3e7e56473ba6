package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/dnorman/domcorder/internal/clock"
	"github.com/dnorman/domcorder/pkg/metrics"
	"github.com/dnorman/domcorder/pkg/protocol"
	"github.com/dnorman/domcorder/pkg/session"
)

// DefaultHeartbeatIntervalSeconds is used when a caller does not specify
// one for RecordingMetadata.
const DefaultHeartbeatIntervalSeconds = 15

// RecordingClient is spec.md §4.10: it connects FrameChunkCodec to a
// duplex transport, emits connect-time metadata, maintains a heartbeat,
// and deduplicates outbound assets against a server-advertised cache
// manifest.
type RecordingClient struct {
	duplex Duplex
	clk    clock.Clock
	log    *slog.Logger

	heartbeatInterval uint32
	mu                sync.Mutex
	timer             clock.Timer
	closed            bool

	manifestMu sync.RWMutex
	manifest   map[string]string // sha256 hex -> url

	// RecordingID identifies this recording. It is not sent on the wire.
	RecordingID session.ID
	// Metrics, if set, receives per-frame counters. nil is a valid no-op.
	Metrics *metrics.Collector

	seqMu   sync.Mutex
	seq     uint64
	history *session.History
}

// NewRecordingClient creates a client over duplex. clk defaults to the
// real wall clock if nil.
func NewRecordingClient(duplex Duplex, clk clock.Clock, logger *slog.Logger) *RecordingClient {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingClient{
		duplex:            duplex,
		clk:               clk,
		log:               logger.With("component", "recording_client"),
		heartbeatInterval: DefaultHeartbeatIntervalSeconds,
		manifest:          make(map[string]string),
		RecordingID:       session.NewID(),
		history:           session.NewHistory(session.DefaultHistoryCapacity),
	}
}

// Start emits RecordingMetadata and arms the heartbeat timer. initialURL
// and heartbeatIntervalSeconds populate the metadata frame (spec.md §4.10).
func (c *RecordingClient) Start(initialURL string, heartbeatIntervalSeconds uint32) error {
	if heartbeatIntervalSeconds == 0 {
		heartbeatIntervalSeconds = DefaultHeartbeatIntervalSeconds
	}
	c.heartbeatInterval = heartbeatIntervalSeconds

	if err := c.sendRaw(protocol.FrameRecordingMetadata, protocol.EncodeRecordingMetadata(&protocol.RecordingMetadataPayload{
		InitialURL:               initialURL,
		HeartbeatIntervalSeconds: heartbeatIntervalSeconds,
	})); err != nil {
		return err
	}
	c.rearmHeartbeat()
	return nil
}

// SendFrame emits a frame and resets the heartbeat timer, per spec.md
// §4.10: "whenever any outgoing frame is emitted, reset a one-shot timer."
func (c *RecordingClient) SendFrame(t protocol.FrameType, payload []byte) error {
	if err := c.sendRaw(t, payload); err != nil {
		return err
	}
	c.rearmHeartbeat()
	return nil
}

// SendAsset emits an Asset frame, substituting an AssetReference when the
// payload's SHA-256 is already present in the server's cache manifest
// (spec.md §4.10).
func (c *RecordingClient) SendAsset(p *protocol.AssetPayload) error {
	if len(p.Bytes) == 0 {
		return c.SendFrame(protocol.FrameAsset, protocol.EncodeAsset(p))
	}
	sum := sha256.Sum256(p.Bytes)
	hash := hex.EncodeToString(sum[:])

	c.manifestMu.RLock()
	_, known := c.manifest[hash]
	c.manifestMu.RUnlock()

	if known {
		return c.SendFrame(protocol.FrameAssetReference, protocol.EncodeAssetReference(&protocol.AssetReferencePayload{
			AssetID: p.AssetID,
			URL:     p.URL,
			SHA256:  hash,
			MIME:    p.MIME,
		}))
	}
	return c.SendFrame(protocol.FrameAsset, protocol.EncodeAsset(p))
}

func (c *RecordingClient) sendRaw(t protocol.FrameType, payload []byte) error {
	encoded := protocol.EncodeFrame(t, payload)
	if err := c.duplex.WriteMessage(encoded); err != nil {
		return err
	}

	c.seqMu.Lock()
	c.seq++
	c.history.Add(c.seq, encoded)
	c.seqMu.Unlock()

	if c.Metrics != nil {
		c.Metrics.FramesSent.WithLabelValues(t.String()).Inc()
		c.Metrics.BytesSent.Add(float64(len(encoded)))
	}
	return nil
}

func (c *RecordingClient) rearmHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clk.AfterFunc(time.Duration(c.heartbeatInterval)*time.Second, func() {
		if err := c.sendRaw(protocol.FrameHeartbeat, protocol.EncodeHeartbeat()); err != nil {
			c.log.Warn("heartbeat send failed", "err", err)
			return
		}
		if c.Metrics != nil {
			c.Metrics.HeartbeatsSent.Inc()
		}
		c.rearmHeartbeat()
	})
}

// ReadLoop blocks consuming inbound messages until the duplex closes or
// errors. It decodes CacheManifest frames into the dedup table; every
// other inbound frame type is ignored here, per spec.md §4.10 (they belong
// to the player side of a shared transport, not the recorder).
func (c *RecordingClient) ReadLoop() error {
	reader := protocol.NewChunkReader()
	for {
		msg, err := c.duplex.ReadMessage()
		if err != nil {
			return err
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
			c.handleInbound(frame)
		}
	}
}

func (c *RecordingClient) handleInbound(frame *protocol.Frame) {
	switch frame.Type {
	case protocol.FrameCacheManifest:
		c.handleCacheManifest(frame)
	case protocol.FrameResyncRequest:
		c.handleResyncRequest(frame)
	}
}

func (c *RecordingClient) handleCacheManifest(frame *protocol.Frame) {
	manifest, err := protocol.DecodeCacheManifest(frame.Payload)
	if err != nil {
		c.log.Error("malformed cache manifest", "err", err)
		return
	}
	c.manifestMu.Lock()
	for _, e := range manifest.Entries {
		c.manifest[e.SHA256] = e.URL
	}
	c.manifestMu.Unlock()
}

// handleResyncRequest serves a player's request to replay everything sent
// since its last-applied sequence number, from the retained backlog
// (pkg/session.History). A request for a sequence already evicted from the
// backlog cannot be served here; the player falls back to requesting a
// fresh keyframe in that case (spec.md §4.12), so the backlog gap is left
// for the player to detect from the absence of a reply.
func (c *RecordingClient) handleResyncRequest(frame *protocol.Frame) {
	req, err := protocol.DecodeResyncRequest(frame.Payload)
	if err != nil {
		c.log.Error("malformed resync request", "err", err)
		return
	}

	frames := c.history.FramesSince(req.LastSeq)
	if frames == nil {
		c.log.Warn("resync request for evicted range, player must request a fresh keyframe", "last_seq", req.LastSeq)
		return
	}

	if err := c.sendRaw(protocol.FrameResyncPatches, protocol.EncodeResyncPatches(&protocol.ResyncPatchesPayload{
		FromSeq: req.LastSeq,
		Frames:  frames,
	})); err != nil {
		c.log.Warn("resync patches send failed", "err", err)
		return
	}
	if c.Metrics != nil {
		c.Metrics.Reconnects.Inc()
	}
}

// Close stops the heartbeat timer and closes the underlying duplex.
func (c *RecordingClient) Close() error {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	return c.duplex.Close()
}
