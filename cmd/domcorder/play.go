package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/metrics"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/player"
	"github.com/dnorman/domcorder/pkg/protocol"
)

func playCmd() *cobra.Command {
	var inPath string
	var mode string
	var speed float64

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Replay a recorded frame stream headlessly and print a summary",
		Long: `play feeds a previously recorded frame stream through PlaybackQueue
into a PagePlayer backed by an in-memory document, then reports the
resulting viewport, tracked node count, and tracked asset count. There is
no visual output; this exercises the full decode/apply pipeline for
validation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(inPath, mode, speed)
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input frame stream file (required)")
	cmd.Flags().StringVar(&mode, "mode", "live", "playback mode: live or scheduled")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "scheduled-mode playback speed multiplier")
	cmd.MarkFlagRequired("in")

	return cmd
}

func runPlay(inPath, mode string, speed float64) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	frames, err := decodeFrameStream(data)
	if err != nil {
		return err
	}
	info("decoded %d frames from %s", len(frames), inPath)

	doc := domtree.NewDocument()
	ids := nodeid.New()
	registry := asset.New()
	sheets := player.NewSheetStore()
	pp := player.NewPagePlayer(doc, ids, registry, sheets, nil)
	pp.Metrics = metrics.Global()

	var applied int64
	handler := func(f protocol.Frame) {
		pp.HandleFrame(f)
		atomic.AddInt64(&applied, 1)
	}

	qMode := player.ModeLive
	if mode == "scheduled" {
		qMode = player.ModeScheduled
	}
	q := player.NewQueue(qMode, handler, nil, nil)
	if qMode == player.ModeScheduled {
		q.Start(time.Now(), speed)
	}

	for _, f := range frames {
		q.Enqueue(f)
	}

	deadline := time.Now().Add(30 * time.Second)
	for atomic.LoadInt64(&applied) < int64(len(frames)) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	q.Stop()

	got := atomic.LoadInt64(&applied)
	if got < int64(len(frames)) {
		errorMsg("only %d/%d frames applied before timing out", got, len(frames))
	} else {
		success("replayed %d frames", got)
	}

	w, h := pp.Viewport()
	info("viewport: %dx%d", w, h)
	info("tracked nodes: %d", ids.Len())
	info("tracked assets: %d", len(registry.Snapshot()))
	return nil
}

func decodeFrameStream(data []byte) ([]protocol.Frame, error) {
	reader := protocol.NewChunkReader()
	reader.Feed(data)
	var frames []protocol.Frame
	for {
		f, err, ok := reader.Next()
		if err != nil {
			return nil, fmt.Errorf("decode frame stream: %w", err)
		}
		if !ok {
			break
		}
		frames = append(frames, *f)
	}
	return frames, nil
}
