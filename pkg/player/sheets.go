package player

import "sync"

// adoptedSheet is the backing store for one adopted CSSStyleSheet: unlike
// a non-adopted sheet, it has no owning DOM node, so its text lives here
// rather than in a domtree text node (spec.md §9's "global stylesheet id
// counter" design note).
type adoptedSheet struct {
	media string
	text  string
}

// SheetStore holds the adopted stylesheets bound to document/shadow roots,
// keyed by the wire StyleSheetId (spec.md §3).
type SheetStore struct {
	mu     sync.Mutex
	sheets map[int64]*adoptedSheet
}

// NewSheetStore creates an empty store.
func NewSheetStore() *SheetStore {
	return &SheetStore{sheets: make(map[int64]*adoptedSheet)}
}

// Put creates or replaces the sheet bound to id.
func (s *SheetStore) Put(id int64, media, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[id] = &adoptedSheet{media: media, text: text}
}

// Text returns the current CSS text for id.
func (s *SheetStore) Text(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok := s.sheets[id]; ok {
		return sh.text
	}
	return ""
}

// SetText rewrites the CSS text for id in place (used by AssetRegistry
// when resolving a url(asset:<n>) reference inside an adopted sheet).
func (s *SheetStore) SetText(id int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh, ok := s.sheets[id]; ok {
		sh.text = text
	}
}

// Remove drops id from the store.
func (s *SheetStore) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sheets, id)
}

// Host returns an asset.StyleSheetHost bound to id, for AssetRegistry
// binding.
func (s *SheetStore) Host(id int64) *SheetHost {
	return &SheetHost{store: s, id: id}
}

// SheetHost adapts one stored adopted sheet to asset.StyleSheetHost.
type SheetHost struct {
	store *SheetStore
	id    int64
}

func (h *SheetHost) AssetCSSText() string       { return h.store.Text(h.id) }
func (h *SheetHost) SetAssetCSSText(css string) { h.store.SetText(h.id, css) }
