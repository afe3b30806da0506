package raymarch

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/markaspall/svdagworld/internal/gpu"
	"github.com/markaspall/svdagworld/internal/raymarch/shaders"
)

// storageEntry is a shorthand for a read-only storage buffer binding,
// the shape every buffer in internal/gpu.BufferManager binds as here.
func storageEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type: wgpu.BufferBindingTypeReadOnlyStorage,
		},
	}
}

func uniformEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type: wgpu.BufferBindingTypeUniform,
		},
	}
}

// NewPipeline builds the ray-march compute pipeline and the bind group
// layout its nine bindings (camera, params, hash table, meta-grid, chunk
// metadata, nodes, leaves, request buffer, output texture) require,
// following voxelrt/rt/app.App.Init's shader-module-then-pipeline
// construction pattern.
func NewPipeline(device *wgpu.Device, outputFormat wgpu.TextureFormat) (*wgpu.ComputePipeline, *wgpu.BindGroupLayout, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "raymarch CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.RaymarchWGSL},
	})
	if err != nil {
		return nil, nil, err
	}

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "raymarch BGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			uniformEntry(0),
			uniformEntry(1),
			storageEntry(2),
			storageEntry(3),
			storageEntry(4),
			storageEntry(5),
			storageEntry(6),
			{
				Binding:    7,
				Visibility: wgpu.ShaderStageCompute,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeStorage,
				},
			},
			{
				Binding:    8,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        outputFormat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, nil, err
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "raymarch PL",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "raymarch pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return pipeline, layout, nil
}

// BindGroup assembles the per-frame bind group from the uploaded buffers
// and the current frame's output view; rebuilt every frame since the
// swapchain texture view changes each frame, the same way
// manager_hiz.go's DispatchHiZ rebuilds its bind group per mip level.
func BindGroup(device *wgpu.Device, layout *wgpu.BindGroupLayout, cameraBuf, paramsBuf *wgpu.Buffer, buffers *gpu.BufferManager, outputView *wgpu.TextureView) (*wgpu.BindGroup, error) {
	return device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "raymarch BG",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: cameraBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: paramsBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: buffers.HashTableBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: buffers.MetaGridBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: buffers.ChunkMetaBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: buffers.NodesBuf, Size: wgpu.WholeSize},
			{Binding: 6, Buffer: buffers.LeavesBuf, Size: wgpu.WholeSize},
			{Binding: 7, Buffer: buffers.RequestBuf, Size: wgpu.WholeSize},
			{Binding: 8, TextureView: outputView},
		},
	})
}

// Dispatch records the compute pass: bind group, pipeline, then one
// workgroup per 8x8 pixel tile, matching shaders/raymarch.wgsl's
// @workgroup_size(8, 8, 1).
func Dispatch(encoder *wgpu.CommandEncoder, pipeline *wgpu.ComputePipeline, bindGroup *wgpu.BindGroup, width, height uint32) error {
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups((width+7)/8, (height+7)/8, 1)
	return pass.End()
}
