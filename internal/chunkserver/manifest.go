package chunkserver

import (
	"encoding/json"
	"net/http"

	"github.com/markaspall/svdagworld/internal/voxel"
	"github.com/markaspall/svdagworld/internal/worldgen"
)

type manifestBody struct {
	Seed      int64      `json:"seed"`
	ChunkSize int        `json:"chunkSize"`
	Materials []material `json:"materials"`
	Spawn     [3]float64 `json:"spawn"`
}

type material struct {
	ID          voxel.BlockID `json:"id"`
	Name        string        `json:"name"`
	Transparent bool          `json:"transparent"`
}

// materials lists every BlockID worldgen/voxelize can produce, in the
// order defined by the worldgen.Block* constants.
var materials = []material{
	{ID: worldgen.BlockWater, Name: "water", Transparent: true},
	{ID: worldgen.BlockSand, Name: "sand"},
	{ID: worldgen.BlockGrass, Name: "grass"},
	{ID: worldgen.BlockDirt, Name: "dirt"},
	{ID: worldgen.BlockStone, Name: "stone"},
	{ID: worldgen.BlockSnow, Name: "snow"},
	{ID: worldgen.BlockRiverbed, Name: "riverbed"},
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	body := manifestBody{
		Seed:      s.terrain.Seed,
		ChunkSize: voxel.GridSize,
		Materials: materials,
		Spawn:     [3]float64{0, s.terrain.Hmax, 0},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
