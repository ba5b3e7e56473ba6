package transport

import (
	"github.com/dnorman/domcorder/pkg/asset/cachestore"
	"github.com/dnorman/domcorder/pkg/protocol"
)

// BuildCacheManifest adapts a cachestore.Store snapshot into the
// CacheManifest payload a server sends right after accepting a recording
// connection, so the RecordingClient can dedupe against previously-seen
// assets (spec.md §4.10).
func BuildCacheManifest(store cachestore.Store) *protocol.CacheManifestPayload {
	entries := store.Entries()
	out := make([]protocol.CacheManifestEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, protocol.CacheManifestEntry{URL: e.URL, SHA256: e.SHA256})
	}
	return &protocol.CacheManifestPayload{Entries: out}
}
