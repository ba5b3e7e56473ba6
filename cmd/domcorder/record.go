package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/dnorman/domcorder/pkg/asset/cachestore"
	"github.com/dnorman/domcorder/pkg/protocol"
	"github.com/dnorman/domcorder/pkg/transport"
)

func recordCmd() *cobra.Command {
	var listen string
	var outPath string
	var cachePath string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Accept one recording connection and persist its frame stream to a file",
		Long: `record starts a WebSocket listener. Once a RecordingClient connects
and upgrades, a CacheManifest built from the on-disk cache store is sent
immediately so the client can skip re-sending assets already seen in a
prior recording. Every frame it then sends is reassembled by
FrameChunkCodec and appended verbatim to the output file, ready for
"domcorder play" or "domcorder inspect" later.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(listen, outPath, cachePath)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":9000", "address to accept the recording connection on")
	cmd.Flags().StringVarP(&outPath, "out", "o", "recording.dcr", "output file for the captured frame stream")
	cmd.Flags().StringVar(&cachePath, "cache", "recording.cache.json", "disk cache-manifest file shared across recordings")

	return cmd
}

func runRecord(listen, outPath, cachePath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	store, err := cachestore.NewDiskStore(cachePath)
	if err != nil {
		return err
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	frameCount := 0
	done := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/record", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			done <- err
			return
		}
		duplex := transport.NewWebsocketDuplex(conn)
		defer duplex.Close()

		info("recording connection established from %s", r.RemoteAddr)

		manifest := transport.BuildCacheManifest(store)
		if err := duplex.WriteMessage(protocol.EncodeFrame(protocol.FrameCacheManifest, protocol.EncodeCacheManifest(manifest))); err != nil {
			done <- err
			return
		}

		reader := protocol.NewChunkReader()
		for {
			msg, err := duplex.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			reader.Feed(msg)
			for {
				frame, err, ok := reader.Next()
				if err != nil {
					done <- err
					return
				}
				if !ok {
					break
				}
				if _, err := out.Write(protocol.EncodeFrame(frame.Type, frame.Payload)); err != nil {
					done <- err
					return
				}
				if frame.Type == protocol.FrameAsset {
					recordAssetInCache(store, frame.Payload)
				}
				frameCount++
			}
		}
	})

	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			done <- err
		}
	}()
	info("listening on %s, waiting for a recording connection on /record", listen)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil {
			errorMsg("recording session ended: %s", err)
		}
	case <-sig:
		info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	success("wrote %d frames to %s", frameCount, outPath)
	return nil
}

// recordAssetInCache indexes a fully-sent Asset frame's bytes by SHA-256 so
// the next recording's CacheManifest can offer it back as a dedup hit.
func recordAssetInCache(store *cachestore.DiskStore, payload []byte) {
	ap, err := protocol.DecodeAsset(payload)
	if err != nil || len(ap.Bytes) == 0 {
		return
	}
	sum := sha256.Sum256(ap.Bytes)
	mime := ""
	if ap.MIME != nil {
		mime = *ap.MIME
	}
	if err := store.Put(hex.EncodeToString(sum[:]), ap.URL, mime); err != nil {
		errorMsg("cache store write failed: %s", err)
	}
}
