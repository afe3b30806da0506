// Package overlay rasterizes the client's on-screen diagnostic HUD
// (loaded/pending chunk counts, FPS) into a glyph atlas and a flat
// vertex list the voxelclient's text render pass uploads each frame.
package overlay

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Vertex is one corner of a glyph quad, matching the layout the
// voxelclient text pipeline declares for its vertex buffer: two
// float32x2 attributes and a float32x4 color.
type Vertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// Item is one block of HUD text to lay out ('\n' starts a new line).
// Position is in screen pixels from the top-left corner of the viewport.
type Item struct {
	Text     string
	Position [2]float32
	Scale    float32
	Color    [4]float32
}

type glyph struct {
	uvMin, uvMax [2]float32
	size, off    [2]float32
	advance      float32
}

// Renderer owns the rasterized glyph atlas for one font/size and turns
// Items into Vertex quads sampling that atlas.
type Renderer struct {
	Atlas  *image.Alpha
	glyphs map[rune]glyph
	face   font.Face
}

const atlasSize = 512

// NewRenderer rasterizes the printable ASCII range of the font at
// fontPath into a single atlas image, recording each glyph's atlas UVs
// so BuildVertices never touches the font rasterizer again.
func NewRenderer(fontPath string, fontSize float64) (*Renderer, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("overlay: read font %s: %w", fontPath, err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font %s: %w", fontPath, err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("overlay: create face: %w", err)
	}

	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]glyph)
	x, y, rowHeight := 2, 2, 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, _, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w, h := mask.Bounds().Dx(), mask.Bounds().Dy()
		if x+w >= atlasSize {
			x, y, rowHeight = 2, y+rowHeight+4, 0
		}
		if y+h >= atlasSize {
			break
		}
		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)
		glyphs[r] = glyph{
			uvMin:   [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			uvMax:   [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			size:    [2]float32{float32(w), float32(h)},
			off:     [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			advance: float32(adv) / 64.0,
		}
		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &Renderer{Atlas: atlas, glyphs: glyphs, face: face}, nil
}

// BuildVertices lays out items as screen-space quads, six vertices per
// glyph (two triangles), in normalized device coordinates for a
// screenW x screenH viewport.
func (r *Renderer) BuildVertices(items []Item, screenW, screenH int) []Vertex {
	verts := make([]Vertex, 0, len(items)*6)
	sw, sh := float32(screenW), float32(screenH)
	metrics := r.face.Metrics()
	ascent := float32(metrics.Ascent.Ceil())
	lineHeight := float32(metrics.Height.Ceil())

	for _, item := range items {
		startX := item.Position[0]
		posX := startX
		posY := item.Position[1] + ascent*item.Scale

		for _, ch := range item.Text {
			if ch == '\n' {
				posX = startX
				posY += lineHeight * item.Scale
				continue
			}
			g, ok := r.glyphs[ch]
			if !ok {
				continue
			}

			x0 := (posX+g.off[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (posY+g.off[1]*item.Scale)/sh*2.0
			x1 := (posX+(g.off[0]+g.size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (posY+(g.off[1]+g.size[1])*item.Scale)/sh*2.0

			verts = append(verts,
				Vertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.uvMin[0], g.uvMin[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.uvMax[0], g.uvMin[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.uvMax[0], g.uvMax[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.uvMin[0], g.uvMax[1]}, Color: item.Color},
			)
			posX += g.advance * item.Scale
		}
	}
	return verts
}
