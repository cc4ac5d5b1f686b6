// Command brickmap-demo opens a window, streams a Minecraft-derived
// voxel world from a directory of Anvil region files into a bounded
// GPU-resident brickmap, and ray marches it — the teacher's
// cmd/voxels entry point adapted from a static-chunk demo into the
// brickmap streaming engine's driver loop.
package main

import (
	"flag"
	"log"
	"runtime"

	"github.com/voxelsmith/brickmap/internal/config"
	"github.com/voxelsmith/brickmap/pkg/gpubrickmap"
	"github.com/voxelsmith/brickmap/pkg/palette"
	"github.com/voxelsmith/brickmap/pkg/render"
	"github.com/voxelsmith/brickmap/pkg/streaming"
	"github.com/voxelsmith/brickmap/pkg/worldloader"
)

func init() {
	// OpenGL calls must come from the same OS thread throughout.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "brickmap.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("brickmap-demo: load config: %v", err)
	}

	renderer, err := render.NewRenderer(1280, 720, "Brickmap Streaming Engine")
	if err != nil {
		log.Fatalf("brickmap-demo: create renderer: %v", err)
	}
	defer renderer.Cleanup()

	writer, err := render.NewGPUWriter(cfg.NodeCapacity, cfg.BrickCapacity, [3]uint32{cfg.ColorTexDim, cfg.ColorTexDim, cfg.ColorTexDim}, cfg.WorldDepth-4)
	if err != nil {
		log.Fatalf("brickmap-demo: create GPU writer: %v", err)
	}
	defer writer.Cleanup()

	gpu := gpubrickmap.New(cfg.NodeCapacity, cfg.BrickCapacity, [3]uint32{cfg.ColorTexDim, cfg.ColorTexDim, cfg.ColorTexDim}, cfg.WorldDepth-4, writer)

	pal := palette.DefaultPalette()
	if cfg.PalettePath != "" {
		loaded, err := palette.Load(cfg.PalettePath)
		if err != nil {
			log.Fatalf("brickmap-demo: load palette %s: %v", cfg.PalettePath, err)
		}
		pal = loaded
	}

	loadResults := worldloader.LoadAsync(worldloader.Config{
		RegionDir:    cfg.RegionDir,
		RegionRadius: cfg.RegionRadius,
		WorldDepth:   cfg.WorldDepth,
		Palette:      pal,
	})

	var controller *streaming.Controller

	for !renderer.ShouldClose() {
		renderer.BeginFrame()

		if loadResults != nil {
			select {
			case result, ok := <-loadResults:
				if ok {
					if result.Err != nil {
						log.Fatalf("brickmap-demo: world load %s failed: %v", result.JobID, result.Err)
					}
					log.Printf("brickmap-demo: world load %s complete", result.JobID)
					controller = streaming.NewController(result.Brickmap, gpu, cfg.WorldDepth-4)
				}
				loadResults = nil
			default:
			}
		}

		if controller != nil {
			streamingPos := renderer.Camera().StreamingPosition(cfg.WorldDepth - 4)
			report := controller.Advance([3]float32{streamingPos.X(), streamingPos.Y(), streamingPos.Z()}, streaming.Settings{
				Paused:      cfg.Streaming.Paused,
				DivideRatio: cfg.Streaming.DivideRatio,
				CullRatio:   cfg.Streaming.CullRatio,
			})
			if report.ExhaustedNodes > 0 || report.ExhaustedBricks > 0 {
				log.Printf("brickmap-demo: arena pressure: %d node, %d brick allocations deferred", report.ExhaustedNodes, report.ExhaustedBricks)
			}
		}

		renderer.DrawFrame()
	}
}
