package recorder

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/metrics"
)

// AssetClass is the informational classification of spec.md §4.5; it does
// not affect on-wire framing.
type AssetClass uint8

const (
	AssetClassBinary AssetClass = iota
	AssetClassImage
	AssetClassFont
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".avif": true, ".svg": true,
}

// ClassifyAsset classifies a URL by extension, per spec.md §4.5.
func ClassifyAsset(url string) AssetClass {
	ext := strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0]))
	if ext == ".woff" || ext == ".woff2" {
		return AssetClassFont
	}
	if imageExts[ext] {
		return AssetClassImage
	}
	return AssetClassBinary
}

// Fetcher performs the bounded-concurrency cache-first HTTP fetch
// described in spec.md §4.5, delivering resolved bytes to an
// asset.Registry, via a bounded worker pool over a channel of jobs.
type Fetcher struct {
	client      *http.Client
	concurrency int
	registry    *asset.Registry
	log         *slog.Logger

	// Metrics, if set, receives fetch success/failure counters. nil is a
	// valid no-op.
	Metrics *metrics.Collector
}

// DefaultConcurrency is the fetcher's default worker pool size.
const DefaultConcurrency = 6

// NewFetcher creates a Fetcher delivering results into registry.
func NewFetcher(registry *asset.Registry, concurrency int, logger *slog.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:      &http.Client{},
		concurrency: concurrency,
		registry:    registry,
		log:         logger.With("component", "asset_fetcher"),
	}
}

// job pairs an asset id with the URL to fetch on its behalf.
type job struct {
	id  asset.ID
	url string
}

// FetchAll fetches every (id, url) pair with bounded concurrency and
// delivers successes to the registry via Receive. A fetch failure (http
// error, network error, or opaque response) is logged and the asset is
// simply omitted from the outgoing stream, per spec.md §7's
// asset-resolution-failure policy — there is no retry and no error
// returned to the caller.
func (f *Fetcher) FetchAll(ctx context.Context, pending map[asset.ID]string) {
	if len(pending) == 0 {
		return
	}
	jobs := make(chan job, len(pending))
	for id, url := range pending {
		jobs <- job{id: id, url: url}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < f.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				f.fetchOne(ctx, j)
			}
		}()
	}
	wg.Wait()
}

func (f *Fetcher) fetchOne(ctx context.Context, j job) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		f.log.Error("asset fetch build request failed", "url", j.url, "err", err)
		f.fail()
		return
	}
	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("asset fetch failed", "url", j.url, "err", err)
		f.fail()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		f.log.Warn("asset fetch http error", "url", j.url, "status", resp.StatusCode)
		f.fail()
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Warn("asset fetch body read failed", "url", j.url, "err", err)
		f.fail()
		return
	}

	f.registry.Receive(&asset.Asset{
		ID:        j.id,
		SourceURL: j.url,
		Bytes:     body,
		MIME:      resp.Header.Get("Content-Type"),
	})
	if f.Metrics != nil {
		f.Metrics.AssetsFetched.Inc()
	}
}

func (f *Fetcher) fail() {
	if f.Metrics != nil {
		f.Metrics.AssetFetchFails.Inc()
	}
}
