package inspect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/nodeid"
)

func TestHandleNodesReportsTrackedCount(t *testing.T) {
	ids := nodeid.New()
	ids.AssignIfAbsent(fakeNode{})
	s := NewServer(":0", Source{IDs: ids}, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	s.router().ServeHTTP(rr, req)

	var resp nodesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TrackedNodes != 1 {
		t.Fatalf("expected 1 tracked node, got %d", resp.TrackedNodes)
	}
}

func TestHandleAssetsReportsSnapshot(t *testing.T) {
	reg := asset.New()
	reg.Receive(&asset.Asset{ID: 1, SourceURL: "https://example.com/a.png", Bytes: []byte("x")})
	s := NewServer(":0", Source{Registry: reg}, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/assets", nil)
	s.router().ServeHTTP(rr, req)

	var entries []asset.EntrySummary
	if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != 1 || !entries[0].Resolved {
		t.Fatalf("unexpected snapshot: %+v", entries)
	}
}

func TestHandleHealthz(t *testing.T) {
	s := NewServer(":0", Source{}, nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

type fakeNode struct{}

func (fakeNode) ChildNodes() []nodeid.Node { return nil }
