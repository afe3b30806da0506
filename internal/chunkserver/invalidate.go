package chunkserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/markaspall/svdagworld/internal/voxel"
)

type invalidateChunkBody struct {
	CX, CY, CZ int32
}

type invalidateSuperChunkBody struct {
	SX, SZ int32
}

func (s *Server) handleInvalidateChunk(w http.ResponseWriter, r *http.Request) {
	worldID := mux.Vars(r)["worldId"]

	var body invalidateChunkBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidCoordinate", "malformed request body")
		return
	}

	coord := voxel.ChunkCoord{X: body.CX, Y: body.CY, Z: body.CZ}
	if err := s.chunks.InvalidateChunk(worldID, coord); err != nil {
		s.log.Errorf("chunkserver[%s]: invalidate chunk %s/%s: %v", requestID(r), worldID, coord, err)
		writeError(w, http.StatusInternalServerError, "GenerationFailed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInvalidateSuperChunk(w http.ResponseWriter, r *http.Request) {
	worldID := mux.Vars(r)["worldId"]

	var body invalidateSuperChunkBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidCoordinate", "malformed request body")
		return
	}

	coord := voxel.SuperChunkCoord{SX: body.SX, SZ: body.SZ}
	if err := s.superChunks.InvalidateSuperChunk(worldID, coord); err != nil {
		s.log.Errorf("chunkserver[%s]: invalidate super-chunk %s/%s: %v", requestID(r), worldID, coord, err)
		writeError(w, http.StatusInternalServerError, "GenerationFailed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
