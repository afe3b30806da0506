// Package shaders embeds the WGSL source for the HUD text pass.
package shaders

import _ "embed"

//go:embed text.wgsl
var TextWGSL string
