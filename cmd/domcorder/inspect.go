package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/inspect"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/player"
	"github.com/dnorman/domcorder/pkg/protocol"
)

func inspectCmd() *cobra.Command {
	var inPath string
	var addr string
	var speed float64

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Replay a recording while serving its live state over HTTP",
		Long: `inspect replays a recorded frame stream in scheduled mode, at the
given speed, while a chi-based HTTP server exposes the player's live
NodeIdMap/AssetRegistry state at /nodes and /assets. Useful for watching
a replay's asset resolution progress from a browser or curl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(inPath, addr, speed)
		},
	}

	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input frame stream file (required)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address for the debug HTTP server")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "scheduled playback speed multiplier")
	cmd.MarkFlagRequired("in")

	return cmd
}

func runInspect(inPath, addr string, speed float64) error {
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

	var applied int64
	handler := func(f protocol.Frame) {
		pp.HandleFrame(f)
		atomic.AddInt64(&applied, 1)
	}
	q := player.NewQueue(player.ModeScheduled, handler, nil, nil)
	q.Start(time.Now(), speed)

	srv := inspect.NewServer(addr, inspect.Source{IDs: ids, Registry: registry}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Run(ctx) }()
	info("inspect server listening on %s", addr)

	for _, f := range frames {
		q.Enqueue(f)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	pollDone := make(chan struct{})
	go func() {
		for atomic.LoadInt64(&applied) < int64(len(frames)) {
			time.Sleep(20 * time.Millisecond)
		}
		close(pollDone)
	}()

	select {
	case <-pollDone:
		success("replay complete: %d/%d frames applied", atomic.LoadInt64(&applied), len(frames))
		info("inspect server remains up on %s; press Ctrl+C to exit", addr)
		<-sig
	case <-sig:
		info("interrupted mid-replay")
	case err := <-serverErr:
		if err != nil {
			errorMsg("inspect server error: %s", err)
		}
	}

	q.Stop()
	cancel()
	return nil
}
