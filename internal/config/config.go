// Package config holds the tunable knobs for world generation, caching and
// client streaming, loaded from a JSON file on top of built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// TerrainConfig controls the super-chunk generator (component B).
type TerrainConfig struct {
	Seed             int64   `json:"seed"`
	ErosionPasses    int     `json:"erosionIterations"`
	ErosionParticles int     `json:"erosionParticlesPerPass"`
	Octaves          int     `json:"octaves"`
	Lacunarity       float64 `json:"lacunarity"`
	Persistence      float64 `json:"persistence"`
	BaseFrequency    float64 `json:"baseFrequency"`
	Hmax             float64 `json:"hmax"`
	SeaLevel         int32   `json:"seaLevel"`
	RiverThreshold   float64 `json:"riverThreshold"`
}

func DefaultTerrainConfig() TerrainConfig {
	return TerrainConfig{
		Seed:             1,
		ErosionPasses:    4,
		ErosionParticles: 50_000,
		Octaves:          4,
		Lacunarity:       2.0,
		Persistence:      0.5,
		BaseFrequency:    1.0 / 256.0,
		Hmax:             128,
		SeaLevel:         32,
		RiverThreshold:   0.92,
	}
}

// CacheConfig controls the on-disk super-chunk/stream-chunk caches
// (components F/G).
type CacheConfig struct {
	RootDir string `json:"rootDir"`
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{RootDir: "./data/worlds"}
}

// StreamingConfig controls the client chunk manager (component I).
type StreamingConfig struct {
	SoftCapChunks       int     `json:"softCapChunks"`
	MaxInFlightFetches  int     `json:"maxInFlightFetches"`
	MaxNewChunksPerTick int     `json:"maxNewChunksPerTick"`
	AncientAgeSeconds   float64 `json:"ancientAgeSeconds"`
	CooldownSeconds     float64 `json:"cooldownSeconds"`
}

func DefaultStreamingConfig() StreamingConfig {
	return StreamingConfig{
		SoftCapChunks:       4096,
		MaxInFlightFetches:  8,
		MaxNewChunksPerTick: 200,
		AncientAgeSeconds:   1200,
		CooldownSeconds:     2,
	}
}

// ServerConfig ties together the pieces the chunkserver binary needs.
type ServerConfig struct {
	ListenAddr string        `json:"listenAddr"`
	Terrain    TerrainConfig `json:"terrain"`
	Cache      CacheConfig   `json:"cache"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: ":8088",
		Terrain:    DefaultTerrainConfig(),
		Cache:      DefaultCacheConfig(),
	}
}

// LoadServerConfig starts from DefaultServerConfig and unmarshals the JSON
// file at path on top of it, so fields the file omits keep their defaults.
// An empty path returns the defaults unchanged.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// OverlayConfig controls the on-screen diagnostic HUD (loaded/pending
// chunk counts, FPS) the client rasterizes over the ray-marched frame.
type OverlayConfig struct {
	Enabled  bool    `json:"enabled"`
	FontPath string  `json:"fontPath"`
	FontSize float64 `json:"fontSize"`
}

func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{Enabled: false, FontSize: 16}
}

// ClientConfig ties together the pieces the voxelclient binary needs.
type ClientConfig struct {
	ServerBaseURL string          `json:"serverBaseUrl"`
	WorldID       string          `json:"worldId"`
	Streaming     StreamingConfig `json:"streaming"`
	Overlay       OverlayConfig   `json:"overlay"`
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerBaseURL: "http://127.0.0.1:8088",
		WorldID:       "default",
		Streaming:     DefaultStreamingConfig(),
		Overlay:       DefaultOverlayConfig(),
	}
}

func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
