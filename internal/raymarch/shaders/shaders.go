// Package shaders embeds the ray-march compute kernel's WGSL source, the
// same way voxelrt/rt/shaders embeds its .wgsl files.
package shaders

import (
	_ "embed"
)

//go:embed raymarch.wgsl
var RaymarchWGSL string
