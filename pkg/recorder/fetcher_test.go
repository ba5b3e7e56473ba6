package recorder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dnorman/domcorder/pkg/asset"
)

func TestFetchAllDeliversBytesToRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("fake-png-bytes"))
	}))
	defer srv.Close()

	reg := asset.New()
	f := NewFetcher(reg, 2, nil)
	f.FetchAll(context.Background(), map[asset.ID]string{1: srv.URL})

	if !reg.IsResolved(1) {
		t.Fatal("expected asset 1 to be resolved after fetch")
	}
}

func TestFetchAllOmitsFailedAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	reg := asset.New()
	f := NewFetcher(reg, 2, nil)
	f.FetchAll(context.Background(), map[asset.ID]string{1: srv.URL})

	if reg.IsResolved(1) {
		t.Fatal("expected a 404 fetch to leave the asset unresolved")
	}
}

func TestClassifyAsset(t *testing.T) {
	cases := map[string]AssetClass{
		"https://a.com/x.png":   AssetClassImage,
		"https://a.com/x.woff2": AssetClassFont,
		"https://a.com/x.bin":   AssetClassBinary,
	}
	for url, want := range cases {
		if got := ClassifyAsset(url); got != want {
			t.Errorf("ClassifyAsset(%q) = %v, want %v", url, got, want)
		}
	}
}
