package asset

import "testing"

type fakeElement struct {
	attrs map[string]string
}

func newFakeElement(attrs map[string]string) *fakeElement {
	return &fakeElement{attrs: attrs}
}

func (f *fakeElement) AssetAttr(name string) (string, bool) {
	v, ok := f.attrs[name]
	return v, ok
}

func (f *fakeElement) SetAssetAttr(name, value string) {
	f.attrs[name] = value
}

func TestBindSimpleAttrPlaceholderThenResolve(t *testing.T) {
	r := New()
	el := newFakeElement(map[string]string{"src": "asset:7"})

	r.BindAssetToElementAttribute(el, "src")
	if el.attrs["src"] == "asset:7" {
		t.Fatal("expected src to be rewritten to a placeholder")
	}
	placeholder := el.attrs["src"]
	if placeholder == "" {
		t.Fatal("expected non-empty placeholder")
	}

	r.Receive(&Asset{ID: 7, SourceURL: "https://example.com/a.png", Bytes: []byte{1, 2, 3}})
	if el.attrs["src"] == placeholder {
		t.Fatal("expected src to be rewritten to resolved URL after Receive")
	}
}

func TestReceiveIdempotent(t *testing.T) {
	r := New()
	var calls int
	r.GetOrCreate(1)
	r.bindOne(1, nil, nil, func(string) { calls++ })
	calls = 0 // discard the bind-time placeholder substitution
	r.Receive(&Asset{ID: 1, Bytes: []byte{1}})
	r.Receive(&Asset{ID: 1, Bytes: []byte{2}})
	if calls != 1 {
		t.Fatalf("expected exactly one requestor invocation, got %d", calls)
	}
}

func TestReferenceCountMatchesBoundHosts(t *testing.T) {
	r := New()
	el1 := newFakeElement(map[string]string{"src": "asset:5"})
	el2 := newFakeElement(map[string]string{"src": "asset:5"})

	r.BindAssetToElementAttribute(el1, "src")
	r.BindAssetToElementAttribute(el2, "src")
	if rc, bc := r.ReferenceCount(5), r.BoundHostCount(5); rc != bc || rc != 2 {
		t.Fatalf("expected refcount==boundhosts==2, got rc=%d bc=%d", rc, bc)
	}

	r.ReleaseByElement(el1)
	if rc, bc := r.ReferenceCount(5), r.BoundHostCount(5); rc != bc || rc != 1 {
		t.Fatalf("expected refcount==boundhosts==1 after one release, got rc=%d bc=%d", rc, bc)
	}

	r.ReleaseByElement(el2)
	if r.ReferenceCount(5) != 0 {
		t.Fatalf("expected entry garbage collected after last release")
	}
}

func TestIdenticalURLsShareID(t *testing.T) {
	// Two elements referencing the same asset id, as produced by the
	// recorder when two <img> point at the same URL (spec.md §8 scenario d).
	r := New()
	el1 := newFakeElement(map[string]string{"src": "asset:9"})
	el2 := newFakeElement(map[string]string{"src": "asset:9"})
	r.BindAssetToElementAttribute(el1, "src")
	r.BindAssetToElementAttribute(el2, "src")

	r.Receive(&Asset{ID: 9, Bytes: []byte{9}})
	if el1.attrs["src"] != el2.attrs["src"] {
		t.Fatalf("expected both elements resolved to the same URL, got %q and %q", el1.attrs["src"], el2.attrs["src"])
	}
}

func TestUnknownIDInReleaseIsIgnored(t *testing.T) {
	r := New()
	el := newFakeElement(map[string]string{})
	r.ReleaseByElement(el) // must not panic
}

func TestBindSrcsetRewritesOnlyAssetTokens(t *testing.T) {
	r := New()
	el := newFakeElement(map[string]string{"srcset": "asset:1 1x, https://cdn.example.com/b.png 2x"})
	r.BindAssetToElementAttribute(el, "srcset")

	r.Receive(&Asset{ID: 1, SourceURL: "https://example.com/a.png", Bytes: []byte{1}, ResolvedURL: "https://cdn.local/a.png"})
	got := el.attrs["srcset"]
	if got == "" {
		t.Fatal("expected srcset to remain set")
	}
	want := "https://cdn.local/a.png 1x, https://cdn.example.com/b.png 2x"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

type fakeSheet struct {
	css string
}

func (s *fakeSheet) AssetCSSText() string     { return s.css }
func (s *fakeSheet) SetAssetCSSText(css string) { s.css = css }

func TestBindAssetsToStyleSheet(t *testing.T) {
	r := New()
	sheet := &fakeSheet{css: `.bg { background: url(asset:3) no-repeat; }`}
	r.BindAssetsToStyleSheet(sheet, sheet.css)

	r.Receive(&Asset{ID: 3, Bytes: []byte{1}, ResolvedURL: "https://cdn.local/bg.png"})
	if sheet.css != `.bg { background: url("https://cdn.local/bg.png") no-repeat; }` {
		t.Fatalf("unexpected rewritten CSS: %q", sheet.css)
	}
}
