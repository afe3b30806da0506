package main

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/markaspall/svdagworld/internal/overlay"
	"github.com/markaspall/svdagworld/internal/overlay/shaders"
)

// hud draws the diagnostic text overlay (FPS, loaded/pending chunk
// counts) directly onto the swapchain view after the ray-march compute
// pass, reusing the same texture since its usage already includes
// TextureUsageRenderAttachment alongside the storage binding the
// compute kernel writes through.
type hud struct {
	renderer    *overlay.Renderer
	pipeline    *wgpu.RenderPipeline
	bindGroup   *wgpu.BindGroup
	vertexBuf   *wgpu.Buffer
	vertexCount int
}

func newHUD(device *wgpu.Device, queue *wgpu.Queue, surfaceFormat wgpu.TextureFormat, fontPath string, fontSize float64) (*hud, error) {
	renderer, err := overlay.NewRenderer(fontPath, fontSize)
	if err != nil {
		return nil, err
	}

	w, h := renderer.Atlas.Bounds().Dx(), renderer.Atlas.Bounds().Dy()
	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "HUD Atlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	queue.WriteTexture(tex.AsImageCopy(), renderer.Atlas.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})
	atlasView, err := tex.CreateView(nil)
	if err != nil {
		return nil, err
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
	})
	if err != nil {
		return nil, err
	}

	shaderMod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "HUD Text Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TextWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "HUD Text Pipeline",
		Vertex: wgpu.VertexState{
			Module:     shaderMod,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(overlay.Vertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderMod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: surfaceFormat,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
					Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive:   wgpu.PrimitiveState{Topology: wgpu.PrimitiveTopologyTriangleList},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return nil, err
	}

	bindGroup, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: atlasView},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		return nil, err
	}

	return &hud{renderer: renderer, pipeline: pipeline, bindGroup: bindGroup}, nil
}

// Update rebuilds the vertex buffer for this frame's HUD items,
// growing the buffer only when the new vertex data no longer fits.
func (h *hud) Update(device *wgpu.Device, queue *wgpu.Queue, items []overlay.Item, screenW, screenH int) error {
	verts := h.renderer.BuildVertices(items, screenW, screenH)
	h.vertexCount = len(verts)
	if len(verts) == 0 {
		return nil
	}
	size := uint64(len(verts)) * uint64(unsafe.Sizeof(overlay.Vertex{}))
	if h.vertexBuf == nil || h.vertexBuf.GetSize() < size {
		if h.vertexBuf != nil {
			h.vertexBuf.Release()
		}
		buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "HUD Vertices",
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		h.vertexBuf = buf
	}
	queue.WriteBuffer(h.vertexBuf, 0, unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), size))
	return nil
}

// Draw records the HUD render pass onto view, loading (not clearing)
// whatever the ray-march compute pass already wrote there.
func (h *hud) Draw(encoder *wgpu.CommandEncoder, view *wgpu.TextureView) {
	if h.vertexCount == 0 || h.vertexBuf == nil {
		return
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(h.pipeline)
	pass.SetBindGroup(0, h.bindGroup, nil)
	pass.SetVertexBuffer(0, h.vertexBuf, 0, h.vertexBuf.GetSize())
	pass.Draw(uint32(h.vertexCount), 1, 0, 0)
	pass.End()
}
