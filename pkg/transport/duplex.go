// Package transport connects FrameChunkCodec to a duplex byte transport
// and implements RecordingClient (spec.md §4.10).
//
// Duplex is a narrow message-send/receive interface the protocol layer
// can drive without depending on gorilla/websocket directly, adapted
// from an HTTP session handler's read/write deadline idiom.
package transport

import "io"

// Duplex is the minimal message-oriented transport RecordingClient and
// PagePlayer's inbound loop need. A gorilla/websocket connection satisfies
// it via WebsocketDuplex.
type Duplex interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// writerAdapter lets protocol.ChunkWriter, which targets an io.Writer,
// flush accumulated chunk bytes as discrete Duplex messages.
type writerAdapter struct {
	d Duplex
}

func (w *writerAdapter) Write(p []byte) (int, error) {
	if err := w.d.WriteMessage(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

var _ io.Writer = (*writerAdapter)(nil)
