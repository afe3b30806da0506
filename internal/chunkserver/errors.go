package chunkserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/markaspall/svdagworld/internal/chunkcodec"
)

// errorBody is the JSON shape of every non-2xx response, per spec §6.3:
// {error: kind, message, ...context}.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: kind, Message: message})
}

// writeGenerationError maps a generation/IO failure to the JSON error
// taxonomy: a codec error surfaced during generation means the chunk a
// client is about to receive would itself fail to decode, so it is
// reported the same way a generation fault is (§6.3's "propagation
// policy": codec and builder errors propagate and turn into 500s on the
// server).
func writeGenerationError(w http.ResponseWriter, err error) {
	var codecErr *chunkcodec.CodecError
	if errors.As(err, &codecErr) {
		writeError(w, http.StatusInternalServerError, codecErr.Kind.String(), codecErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "GenerationFailed", err.Error())
}
