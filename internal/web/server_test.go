package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sonoviz/sonoviz/internal/analyzer"
)

type stubProvider struct {
	features  analyzer.Features
	processed uint64
	skipped   uint64
}

func (s *stubProvider) Latest() analyzer.Features { return s.features }
func (s *stubProvider) Processed() uint64         { return s.processed }
func (s *stubProvider) Skipped() uint64           { return s.skipped }

func TestHandleStatus(t *testing.T) {
	provider := &stubProvider{
		features: analyzer.Features{
			Timestamp: time.Now(),
			Volume:    0.42,
			Bass:      0.9,
			Tempo:     120,
		},
		processed: 7,
		skipped:   1,
	}
	server := NewServer(provider, log.New(io.Discard, "", 0))

	rec := httptest.NewRecorder()
	server.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q want application/json", ct)
	}

	var got StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Features.Volume != 0.42 || got.Features.Bass != 0.9 || got.Features.Tempo != 120 {
		t.Fatalf("features=%+v do not match provider", got.Features)
	}
	if got.Processed != 7 || got.Skipped != 1 {
		t.Fatalf("counters=%d/%d want 7/1", got.Processed, got.Skipped)
	}
}

func TestStatusSnapshotsProvider(t *testing.T) {
	provider := &stubProvider{processed: 1}
	server := NewServer(provider, log.New(io.Discard, "", 0))

	first := server.status()
	provider.processed = 2
	second := server.status()

	if first.Processed != 1 || second.Processed != 2 {
		t.Fatalf("processed=%d,%d want 1,2", first.Processed, second.Processed)
	}
}
