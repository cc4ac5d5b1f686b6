// Package config loads the brickmap demo's TOML-backed settings,
// grounded on the teacher corpus's noisetorch config.go — the only
// config-loading convention present anywhere in the retrieval pack.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// StreamingSettings are the Streaming Controller's runtime-tunable
// thresholds (§6). The controller re-reads this struct once per frame,
// never caches it, so a hot-reloaded file or a future debug overlay can
// mutate it freely between frames.
type StreamingSettings struct {
	Paused      bool    `toml:"paused"`
	DivideRatio float32 `toml:"divide_ratio"`
	CullRatio   float32 `toml:"cull_ratio"`
}

// Config is the demo's full on-disk configuration: streaming thresholds
// plus the world loader and GPU arena parameters that size the engine.
type Config struct {
	Streaming StreamingSettings `toml:"streaming"`

	RegionDir    string `toml:"region_dir"`
	RegionRadius int    `toml:"region_radius"`
	WorldDepth   uint32 `toml:"world_depth"`
	PalettePath  string `toml:"palette_path"`

	NodeCapacity  uint32 `toml:"node_capacity"`
	BrickCapacity uint32 `toml:"brick_capacity"`
	ColorTexDim   uint32 `toml:"color_tex_dim"` // cube edge length in voxels
}

// Default returns sensible defaults for a first run: 65,536 node groups,
// 32,768 brick slots and a 640^3-voxel color texture.
func Default() Config {
	return Config{
		Streaming: StreamingSettings{
			Paused:      false,
			DivideRatio: 1.0,
			CullRatio:   1.0,
		},
		RegionDir:     "world/region",
		RegionRadius:  4,
		WorldDepth:    12,
		PalettePath:   "",
		NodeCapacity:  1 << 16,
		BrickCapacity: 1 << 15,
		ColorTexDim:   640,
	}
}

// Load reads a TOML config file at path. If the file does not exist,
// it returns Default() rather than failing, so a fresh checkout runs
// with no setup.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating or overwriting the file.
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(&cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
