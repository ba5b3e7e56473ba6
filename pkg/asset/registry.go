// Package asset implements AssetRegistry (spec.md §4.3): the table of
// asset ids to fetched bytes shared by the player's materializer/mutator,
// tracking reference counts so bound elements/stylesheets can release
// their hold on an asset when they leave the tree.
//
// It resolves a placeholder URL to fetched bytes as they arrive — a
// table keyed by a stable handle, resolved lazily, the runtime analogue
// of a build-time fingerprint manifest (source path -> hashed path) for
// static files.
package asset

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ID is the opaque, recording-stable asset identity (spec.md §3).
type ID int64

// Requestor is invoked once an asset's bytes are known. It is registered
// by a bind call and fired (then discarded) by Receive.
type Requestor func(a *Asset)

// Asset is the resolved payload for an ID.
type Asset struct {
	ID         ID
	SourceURL  string
	Bytes      []byte
	MIME       string
	ResolvedURL string
}

// Entry is the per-asset state described in spec.md §4.3.
type Entry struct {
	ID                ID
	SourceURL         string
	Blob              []byte
	ResolvedURL       string
	PendingPlaceholderURL string
	ReferenceCount    int
	resolved          bool

	requestors    []Requestor
	boundElements map[ElementHost]struct{}
	boundSheets   map[StyleSheetHost]struct{}
}

// ElementHost is the minimal surface AssetRegistry needs from a bound
// element to rewrite and later re-rewrite an attribute value.
type ElementHost interface {
	AssetAttr(name string) (string, bool)
	SetAssetAttr(name, value string)
}

// StyleSheetHost is the minimal surface needed to rewrite CSS text bound
// to a stylesheet or a <style> element's text content.
type StyleSheetHost interface {
	AssetCSSText() string
	SetAssetCSSText(css string)
}

var assetRefPattern = regexp.MustCompile(`asset:(\d+)`)

// Registry is the AssetRegistry of spec.md §4.3. The zero value is not
// usable; construct with New.
type Registry struct {
	mu       sync.Mutex
	entries  map[ID]*Entry
	nextPlaceholder int64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[ID]*Entry)}
}

// GetOrCreate returns the entry for id, creating one with a fresh,
// unique pending placeholder URL if absent (spec.md §4.3).
func (r *Registry) GetOrCreate(id ID) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(id)
}

func (r *Registry) getOrCreateLocked(id ID) *Entry {
	if e, ok := r.entries[id]; ok {
		return e
	}
	r.nextPlaceholder++
	e := &Entry{
		ID:                    id,
		PendingPlaceholderURL: fmt.Sprintf("blob:domcorder-pending-%d", r.nextPlaceholder),
		boundElements:         make(map[ElementHost]struct{}),
		boundSheets:           make(map[StyleSheetHost]struct{}),
	}
	r.entries[id] = e
	return e
}

// Receive supplies bytes for id. Idempotent: subsequent calls for the
// same id are no-ops (spec.md §4.3).
func (r *Registry) Receive(a *Asset) {
	r.mu.Lock()
	e := r.getOrCreateLocked(a.ID)
	if e.resolved {
		r.mu.Unlock()
		return
	}
	e.Blob = a.Bytes
	e.SourceURL = a.SourceURL
	if len(a.Bytes) == 0 {
		e.ResolvedURL = a.SourceURL
	} else if a.ResolvedURL != "" {
		e.ResolvedURL = a.ResolvedURL
	} else {
		e.ResolvedURL = fmt.Sprintf("blob:domcorder-resolved-%d", a.ID)
	}
	e.resolved = true
	requestors := e.requestors
	e.requestors = nil
	r.mu.Unlock()

	resolved := &Asset{ID: a.ID, SourceURL: e.SourceURL, Bytes: e.Blob, MIME: a.MIME, ResolvedURL: e.ResolvedURL}
	for _, req := range requestors {
		req(resolved)
	}
}

// IsResolved reports whether id has received bytes.
func (r *Registry) IsResolved(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return ok && e.resolved
}

// BindAssetToElementAttribute scans el's attribute attrName for
// occurrences of asset:<id>, rewrites them to the current pending
// placeholder, and registers a requestor to substitute the resolved URL
// once available (spec.md §4.3).
func (r *Registry) BindAssetToElementAttribute(el ElementHost, attrName string) {
	value, ok := el.AssetAttr(attrName)
	if !ok {
		return
	}

	switch attrName {
	case "srcset":
		r.bindSrcset(el, value)
	case "style":
		r.bindStyleAttr(el, value)
	default:
		r.bindSimpleAttr(el, attrName, value)
	}
}

func (r *Registry) bindSimpleAttr(el ElementHost, attrName, value string) {
	id, ok := parseWholeAssetRef(value)
	if !ok {
		return
	}
	r.bindOne(id, el, nil, func(resolvedURL string) {
		el.SetAssetAttr(attrName, resolvedURL)
	})
}

func (r *Registry) bindSrcset(el ElementHost, value string) {
	candidates := splitSrcset(value)
	ids := map[ID]struct{}{}
	for i, c := range candidates {
		id, ok := parseWholeAssetRef(c.url)
		if !ok {
			continue
		}
		ids[id] = struct{}{}
		idx := i
		r.bindOne(id, el, nil, func(resolvedURL string) {
			candidates[idx].url = resolvedURL
			el.SetAssetAttr("srcset", joinSrcset(candidates))
		})
	}
}

func (r *Registry) bindStyleAttr(el ElementHost, value string) {
	ids := assetIDsInCSS(value)
	for _, id := range ids {
		placeholder := r.GetOrCreate(id).PendingPlaceholderURL
		r.bindOne(id, el, nil, func(resolvedURL string) {
			current, ok := el.AssetAttr("style")
			if !ok {
				return
			}
			current = restoreCSSAssetRef(current, id, placeholder)
			el.SetAssetAttr("style", rewriteCSSAssetURL(current, id, resolvedURL))
		})
	}
}

// BindAssetsToStyleSheet processes cssText for url(asset:<id>) references,
// rewriting them to pending placeholders in sheet's live text and
// registering requestors that substitute the resolved URL on arrival
// (spec.md §4.3).
func (r *Registry) BindAssetsToStyleSheet(sheet StyleSheetHost, cssText string) {
	ids := assetIDsInCSS(cssText)
	for _, id := range ids {
		placeholder := r.GetOrCreate(id).PendingPlaceholderURL
		r.bindOne(id, nil, sheet, func(resolvedURL string) {
			current := restoreCSSAssetRef(sheet.AssetCSSText(), id, placeholder)
			sheet.SetAssetCSSText(rewriteCSSAssetURL(current, id, resolvedURL))
		})
	}
}

// restoreCSSAssetRef turns a url("placeholder") written by an earlier
// bind pass back into url(asset:<id>), so rewriteCSSAssetURL can find it
// again when the resolved URL arrives.
func restoreCSSAssetRef(css string, id ID, placeholder string) string {
	return strings.ReplaceAll(css, fmt.Sprintf(`url("%s")`, placeholder), fmt.Sprintf("url(asset:%d)", id))
}

// bindOne increments the reference count, records the bound host, and
// registers a requestor. If host is non-nil it is tracked in
// boundElements; if sheet is non-nil it is tracked in boundSheets.
func (r *Registry) bindOne(id ID, host ElementHost, sheet StyleSheetHost, onResolve func(resolvedURL string)) {
	r.mu.Lock()
	e := r.getOrCreateLocked(id)
	e.ReferenceCount++
	if host != nil {
		e.boundElements[host] = struct{}{}
	}
	if sheet != nil {
		e.boundSheets[sheet] = struct{}{}
	}
	placeholder := e.PendingPlaceholderURL
	alreadyResolved := e.resolved
	resolvedURL := e.ResolvedURL
	if !alreadyResolved {
		e.requestors = append(e.requestors, func(a *Asset) { onResolve(a.ResolvedURL) })
	}
	r.mu.Unlock()

	if alreadyResolved {
		onResolve(resolvedURL)
	} else {
		onResolve(placeholder)
	}
}

// ReleaseByElement decrements the reference count for every asset bound
// via host, releasing (and garbage-collecting) entries that reach zero.
func (r *Registry) ReleaseByElement(host ElementHost) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if _, ok := e.boundElements[host]; ok {
			delete(e.boundElements, host)
			r.decrefLocked(id, e)
		}
	}
}

// ReleaseBySheet decrements the reference count for every asset bound via
// sheet, releasing entries that reach zero.
func (r *Registry) ReleaseBySheet(sheet StyleSheetHost) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if _, ok := e.boundSheets[sheet]; ok {
			delete(e.boundSheets, sheet)
			r.decrefLocked(id, e)
		}
	}
}

func (r *Registry) decrefLocked(id ID, e *Entry) {
	if e.ReferenceCount > 0 {
		e.ReferenceCount--
	}
	if e.ReferenceCount == 0 && len(e.boundElements) == 0 && len(e.boundSheets) == 0 {
		delete(r.entries, id)
	}
}

// ReferenceCount returns the current reference count for id (0 if unknown).
func (r *Registry) ReferenceCount(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.ReferenceCount
	}
	return 0
}

// BoundHostCount returns len(boundElements ∪ boundSheets) for id, the
// quantity spec.md §8 property 7 asserts equals ReferenceCount.
func (r *Registry) BoundHostCount(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return 0
	}
	return len(e.boundElements) + len(e.boundSheets)
}

// Dispose drops all entries. Object URL revocation is a no-op in this
// headless implementation; a real browser binding would revoke here.
func (r *Registry) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[ID]*Entry)
}

// EntrySummary is a read-only snapshot of one Entry, for diagnostics.
type EntrySummary struct {
	ID             ID
	SourceURL      string
	ResolvedURL    string
	Resolved       bool
	ReferenceCount int
	Bytes          int
}

// Snapshot returns a point-in-time summary of every tracked asset,
// ordered by ID, for the debug inspection endpoint.
func (r *Registry) Snapshot() []EntrySummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EntrySummary, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, EntrySummary{
			ID:             id,
			SourceURL:      e.SourceURL,
			ResolvedURL:    e.ResolvedURL,
			Resolved:       e.resolved,
			ReferenceCount: e.ReferenceCount,
			Bytes:          len(e.Blob),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func parseWholeAssetRef(value string) (ID, bool) {
	m := assetRefPattern.FindStringSubmatch(value)
	if m == nil || m[0] != value {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ID(n), true
}
