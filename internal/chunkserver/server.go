// Package chunkserver implements the chunk HTTP endpoint (component H):
// routing via gorilla/mux, since the teacher has no HTTP layer of its own
// to borrow from (its GUI/platform plumbing never crosses a network
// boundary) and gorilla/mux is the idiomatic Go router for path-parameter
// REST endpoints like this one.
package chunkserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/markaspall/svdagworld/internal/chunkcache"
	"github.com/markaspall/svdagworld/internal/chunkcodec"
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/logging"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// Server wires the chunk/invalidation/manifest handlers to a ChunkStore
// and SuperChunkStore.
type Server struct {
	chunks      *chunkcache.ChunkStore
	superChunks *chunkcache.SuperChunkStore
	terrain     config.TerrainConfig
	log         logging.Logger
}

func New(chunks *chunkcache.ChunkStore, superChunks *chunkcache.SuperChunkStore, terrain config.TerrainConfig, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{chunks: chunks, superChunks: superChunks, terrain: terrain, log: log}
}

// Router builds the mux.Router exposing every endpoint in spec §6.1.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.HandleFunc("/api/worlds/{worldId}/chunks/{cx}/{cy}/{cz}", s.handleGetChunk).Methods(http.MethodGet)
	r.HandleFunc("/api/worlds/{worldId}/invalidate-chunk", s.handleInvalidateChunk).Methods(http.MethodPost)
	r.HandleFunc("/api/worlds/{worldId}/invalidate-superchunk", s.handleInvalidateSuperChunk).Methods(http.MethodPost)
	r.HandleFunc("/api/worlds/{worldId}/manifest", s.handleManifest).Methods(http.MethodGet)
	return r
}

// requestIDMiddleware assigns every inbound request a UUID, echoes it
// back as X-Request-Id, and stamps it onto the request's context so a
// client can hand the operator one ID that ties a report to the exact
// log lines a failing handler produced.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

// requestID returns the UUID requestIDMiddleware attached to r's
// context, or "-" if the request somehow reached a handler without
// passing through it (e.g. a direct test call).
func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return "-"
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	worldID := vars["worldId"]

	coord, ok := parseChunkCoord(vars["cx"], vars["cy"], vars["cz"])
	if !ok {
		writeError(w, http.StatusNotFound, "InvalidCoordinate", "chunk coordinate must be three integers")
		return
	}

	data, err := s.chunks.Get(r.Context(), worldID, coord)
	if err != nil {
		s.log.Errorf("chunkserver[%s]: get chunk %s/%s: %v", requestID(r), worldID, coord, err)
		writeGenerationError(w, err)
		return
	}

	chunk, err := chunkcodec.Decode(data)
	if err != nil {
		// An unreadable cache file is a server-side fault, not a client
		// input error: the bytes chunkserver itself wrote failed to
		// round-trip.
		s.log.Errorf("chunkserver[%s]: decode cached chunk %s/%s: %v", requestID(r), worldID, coord, err)
		writeError(w, http.StatusInternalServerError, "GenerationFailed", "cached chunk failed to decode")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Chunk-Size", strconv.Itoa(voxel.GridSize))
	w.Header().Set("X-Material-Nodes", strconv.Itoa(int(chunk.Header.MatNodeCount)))
	w.Header().Set("X-Material-Leaves", strconv.Itoa(int(chunk.Header.MatLeafCount)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseChunkCoord(cxs, cys, czs string) (voxel.ChunkCoord, bool) {
	cx, err1 := strconv.ParseInt(cxs, 10, 32)
	cy, err2 := strconv.ParseInt(cys, 10, 32)
	cz, err3 := strconv.ParseInt(czs, 10, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return voxel.ChunkCoord{}, false
	}
	return voxel.ChunkCoord{X: int32(cx), Y: int32(cy), Z: int32(cz)}, true
}
