// Command voxelclient is the GPU ray-march streaming renderer: it
// streams chunks from a chunkserver through internal/clientstream,
// uploads them through internal/gpu's buffers, and dispatches
// internal/raymarch's compute kernel once per frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/markaspall/svdagworld/internal/clientstream"
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/gpu"
	"github.com/markaspall/svdagworld/internal/logging"
	"github.com/markaspall/svdagworld/internal/overlay"
	"github.com/markaspall/svdagworld/internal/raymarch"
	"github.com/markaspall/svdagworld/internal/voxel"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "path to a JSON client config file (defaults used if empty)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		panic(err)
	}
	logger := logging.New("voxelclient", *debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "voxelclient", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	cam := newCamera()
	mouseCaptured := false

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			mouseCaptured = !mouseCaptured
			if mouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !mouseCaptured {
			return
		}
		width, height := w.GetSize()
		cx, cy := float64(width)/2, float64(height)/2
		cam.look(float32(xpos-cx), float32(ypos-cy))
		w.SetCursorPos(cx, cy)
	})

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		panic(err)
	}
	queue := device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	surfCfg := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageStorageBinding,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, surfCfg)

	pipeline, bgl, err := raymarch.NewPipeline(device, surfCfg.Format)
	if err != nil {
		panic(err)
	}

	buffers := gpu.NewBufferManager(device)
	buffers.EnsureRequestBuffer(uint32(gpu.RequestSlotCount))

	cameraBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "CameraUniform",
		Size:  64,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	paramsBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParamsUniform",
		Size:  48,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		surfCfg.Width, surfCfg.Height = uint32(width), uint32(height)
		surface.Configure(adapter, device, surfCfg)
	})

	manager := clientstream.New(cfg, logger)
	nodeCounts := map[voxel.ChunkCoord]uint32{}

	var overlayHUD *hud
	if cfg.Overlay.Enabled {
		overlayHUD, err = newHUD(device, queue, surfCfg.Format, cfg.Overlay.FontPath, cfg.Overlay.FontSize)
		if err != nil {
			logger.Warnf("HUD disabled: %v", err)
			overlayHUD = nil
		}
	}

	params := raymarch.DefaultParams()
	lastFrame := time.Now()

	for !window.ShouldClose() {
		glfw.PollEvents()
		now := time.Now()
		dt := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now
		cam.move(window, dt)

		cameraChunk := worldToChunkCoord(cam.Position)

		manager.Tick(context.Background(), now, func(coord voxel.ChunkCoord) (float64, bool) {
			return chunkCameraDistance(coord, cameraChunk), true
		})

		if manager.Dirty() {
			nodeCounts = rebuildGPUWorld(buffers, manager.Snapshot(), cfg.Streaming.SoftCapChunks)
		}
		metaGrid := gpu.BuildMetaGrid(nodeCounts, cameraChunk)
		buffers.UploadMetaGrid(metaGrid)

		writeUniforms(queue, cameraBuf, paramsBuf, cam, cameraChunk, surfCfg.Width, surfCfg.Height, params, cfg.Streaming.SoftCapChunks)

		frame, err := surface.GetCurrentTexture()
		if err != nil {
			logger.Warnf("GetCurrentTexture: %v", err)
			continue
		}
		view, err := frame.CreateView(nil)
		if err != nil {
			frame.Release()
			logger.Warnf("CreateView: %v", err)
			continue
		}

		bindGroup, err := raymarch.BindGroup(device, bgl, cameraBuf, paramsBuf, buffers, view)
		if err != nil {
			logger.Warnf("BindGroup: %v", err)
			view.Release()
			frame.Release()
			continue
		}

		encoder, err := device.CreateCommandEncoder(nil)
		if err != nil {
			logger.Warnf("CreateCommandEncoder: %v", err)
			view.Release()
			frame.Release()
			continue
		}

		if err := raymarch.Dispatch(encoder, pipeline, bindGroup, surfCfg.Width, surfCfg.Height); err != nil {
			logger.Warnf("Dispatch: %v", err)
		}
		buffers.DispatchRequestReadback(encoder)

		if overlayHUD != nil {
			stats := manager.Stats()
			fps := 0.0
			if dt > 0 {
				fps = 1.0 / float64(dt)
			}
			items := []overlay.Item{{
				Text:     hudText(fps, stats),
				Position: [2]float32{16, 16},
				Scale:    1,
				Color:    [4]float32{1, 1, 1, 1},
			}}
			if err := overlayHUD.Update(device, queue, items, int(surfCfg.Width), int(surfCfg.Height)); err != nil {
				logger.Warnf("HUD update: %v", err)
			} else {
				overlayHUD.Draw(encoder, view)
			}
		}

		cmd, err := encoder.Finish(nil)
		if err != nil {
			logger.Warnf("Finish: %v", err)
		} else {
			queue.Submit(cmd)
		}
		surface.Present()
		device.Poll(false, nil)
		view.Release()
		frame.Release()

		for _, coord := range gpu.DrainRequests(buffers.ReadbackRequests(), cameraChunk) {
			manager.Request(coord, chunkCameraDistance(coord, cameraChunk), now)
		}
	}
}

func worldToChunkCoord(pos mgl32.Vec3) voxel.ChunkCoord {
	return voxel.ChunkCoord{
		X: int32(math.Floor(float64(pos.X()) / voxel.GridSize)),
		Y: int32(math.Floor(float64(pos.Y()) / voxel.GridSize)),
		Z: int32(math.Floor(float64(pos.Z()) / voxel.GridSize)),
	}
}

func hudText(fps float64, stats clientstream.Stats) string {
	return fmt.Sprintf("fps %.0f\nloaded %d  loading %d  pending %d  pool %d",
		fps, stats.Loaded, stats.Loading, stats.Pending, stats.PoolSize)
}

func chunkCameraDistance(coord, cameraChunk voxel.ChunkCoord) float64 {
	dx := float64(coord.X - cameraChunk.X)
	dy := float64(coord.Y - cameraChunk.Y)
	dz := float64(coord.Z - cameraChunk.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func writeUniforms(queue *wgpu.Queue, cameraBuf, paramsBuf *wgpu.Buffer, cam *camera, cameraChunk voxel.ChunkCoord, width, height uint32, params raymarch.MarchParams, softCap int) {
	cu := raymarch.CameraUniform{
		Origin:  cam.Position,
		Forward: cam.forward(),
		Right:   cam.right(),
		Up:      cam.up(),
	}
	queue.WriteBuffer(cameraBuf, 0, cu.Bytes())

	aspect := float32(width) / float32(height)
	pu := raymarch.ParamsUniform{
		CameraChunk:          cameraChunk,
		MaxChunkSteps:        uint32(params.MaxChunkSteps),
		MaxDistance:          params.MaxDistance,
		TransparencyLayerCap: uint32(params.TransparencyLayerCap),
		RequestViewRadius:    uint32(gpu.RequestViewRadius),
		HashTableSize:        uint32(gpu.HashTableSize(softCap)),
		ViewportWidth:        width,
		ViewportHeight:       height,
		TanHalfFOV:           float32(math.Tan(float64(70) * math.Pi / 180 / 2)),
		Aspect:               aspect,
	}
	queue.WriteBuffer(paramsBuf, 0, pu.Bytes())
}
