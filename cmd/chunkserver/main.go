// Command chunkserver serves stream chunks over HTTP: the §6.1 chunk
// endpoint plus invalidation and manifest routes, backed by the disk
// caches of components F/G.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/markaspall/svdagworld/internal/chunkcache"
	"github.com/markaspall/svdagworld/internal/chunkserver"
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/logging"
	"github.com/markaspall/svdagworld/internal/worldgen"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON server config file (defaults used if empty)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatalf("chunkserver: %v", err)
	}

	logger := logging.New("chunkserver", *debug)

	gen := worldgen.New(cfg.Terrain, logger)
	superChunks := chunkcache.NewSuperChunkStore(cfg.Cache, gen, logger)
	chunks := chunkcache.NewChunkStore(cfg.Cache, cfg.Terrain, superChunks, logger)

	srv := chunkserver.New(chunks, superChunks, cfg.Terrain, logger)

	logger.Infof("listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
		logger.Errorf("server exited: %v", err)
	}
}
