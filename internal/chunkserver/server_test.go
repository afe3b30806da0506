package chunkserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/markaspall/svdagworld/internal/chunkcache"
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/worldgen"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	terrain := config.DefaultTerrainConfig()
	terrain.ErosionPasses = 1
	terrain.ErosionParticles = 50

	cacheCfg := config.CacheConfig{RootDir: t.TempDir()}
	gen := worldgen.New(terrain, nil)
	scStore := chunkcache.NewSuperChunkStore(cacheCfg, gen, nil)
	chunkStore := chunkcache.NewChunkStore(cacheCfg, terrain, scStore, nil)
	return New(chunkStore, scStore, terrain, nil)
}

func TestGetChunkReturns200(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/worlds/w1/chunks/0/0/0", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/octet-stream" {
		t.Fatalf("content-type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("X-Chunk-Size") != "32" {
		t.Fatalf("X-Chunk-Size = %q, want 32", rec.Header().Get("X-Chunk-Size"))
	}
	if rec.Body.Len() < 32 {
		t.Fatalf("expected at least a 32-byte chunk body, got %d", rec.Body.Len())
	}
}

func TestGetChunkSetsRequestIDHeader(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/worlds/w1/chunks/0/0/0", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	id := rec.Header().Get("X-Request-Id")
	if id == "" {
		t.Fatal("expected X-Request-Id header to be set")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("X-Request-Id = %q is not a valid UUID: %v", id, err)
	}
}

func TestGetChunkBadCoordinateReturns404(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/worlds/w1/chunks/abc/0/0", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body.Error != "InvalidCoordinate" {
		t.Fatalf("error kind = %q, want InvalidCoordinate", body.Error)
	}
}

func TestManifestReturnsSeedAndMaterials(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/worlds/w1/manifest", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body manifestBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if len(body.Materials) == 0 {
		t.Fatal("expected at least one material")
	}
	if body.ChunkSize != 32 {
		t.Fatalf("chunkSize = %d, want 32", body.ChunkSize)
	}
}

func TestInvalidateChunkReturns204(t *testing.T) {
	s := testServer(t)

	getReq := httptest.NewRequest(http.MethodGet, "/api/worlds/w1/chunks/1/0/1", nil)
	getRec := httptest.NewRecorder()
	s.Router().ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("priming get: status = %d", getRec.Code)
	}

	body, _ := json.Marshal(map[string]int32{"CX": 1, "CY": 0, "CZ": 1})
	req := httptest.NewRequest(http.MethodPost, "/api/worlds/w1/invalidate-chunk", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body: %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidateChunkMalformedBodyReturns400(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/worlds/w1/invalidate-chunk", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
