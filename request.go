package trellis

import (
	"fmt"
	"math"
)

// DrawRequest describes one piece of 2D geometry submitted to a draw stage.
// The queue copies the vertex and index data on Add, so the caller may reuse
// its slices immediately afterwards.
type DrawRequest struct {
	Space    CoordinateSpace
	Fill     FillType
	Vertices []Vertex
	// Indices are 0-based into Vertices; the length must be a multiple of 3.
	Indices []uint32
	// Colour multiplies every vertex colour. Use ColorWhite to leave the
	// vertex colours untouched.
	Colour   Color
	Texture0 SurfaceHandle
	Texture1 SurfaceHandle
	Wrap0    WrapMode
	Wrap1    WrapMode
	// Depth orders requests within a layer: 0 is front, 1 is back.
	Depth float32
	// Layer is the outer draw-order key; lower layers draw first.
	Layer uint32
}

// Validate checks the request for the fail-fast submission errors.
func (r *DrawRequest) Validate() error {
	if len(r.Vertices) == 0 || len(r.Indices) == 0 {
		return ErrEmptyGeometry
	}
	if len(r.Indices)%3 != 0 {
		return fmt.Errorf("%w: got %d", ErrIndexCount, len(r.Indices))
	}
	nv := uint32(len(r.Vertices))
	for i, idx := range r.Indices {
		if idx >= nv {
			return fmt.Errorf("%w: index %d is %d, have %d vertices", ErrIndexRange, i, idx, nv)
		}
	}
	d := float64(r.Depth)
	if math.IsNaN(d) || d < 0 || d > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidDepth, r.Depth)
	}
	switch r.Fill {
	case FillColoured:
	case FillTextured:
		if r.Texture0 == NullSurface {
			return fmt.Errorf("%w: textured request has no texture0", ErrMissingTexture)
		}
	case FillDualTextured:
		if r.Texture0 == NullSurface || r.Texture1 == NullSurface {
			return fmt.Errorf("%w: dual-textured request needs texture0 and texture1", ErrMissingTexture)
		}
		if r.Texture0 == r.Texture1 {
			return fmt.Errorf("%w: handle %d", ErrDuplicateTexture, r.Texture0)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFill, r.Fill)
	}
	return nil
}

// NewQuadRequest returns a coloured or textured axis-aligned quad request
// covering (x, y, w, h) with texture coordinates spanning the full texture.
// Fill is FillTextured when tex is non-null, FillColoured otherwise. The
// vertices are white, so c alone decides the quad's colour.
func NewQuadRequest(space CoordinateSpace, x, y, w, h float32, tex SurfaceHandle, c Color, depth float32, layer uint32) DrawRequest {
	fill := FillColoured
	if tex != NullSurface {
		fill = FillTextured
	}
	return DrawRequest{
		Space: space,
		Fill:  fill,
		Vertices: []Vertex{
			{X: x, Y: y, U0: 0, V0: 0, U1: 0, V1: 0, R: 1, G: 1, B: 1, A: 1},
			{X: x + w, Y: y, U0: 1, V0: 0, U1: 1, V1: 0, R: 1, G: 1, B: 1, A: 1},
			{X: x, Y: y + h, U0: 0, V0: 1, U1: 0, V1: 1, R: 1, G: 1, B: 1, A: 1},
			{X: x + w, Y: y + h, U0: 1, V0: 1, U1: 1, V1: 1, R: 1, G: 1, B: 1, A: 1},
		},
		// Two triangles: TL-TR-BL, TR-BR-BL
		Indices:  []uint32{0, 1, 2, 1, 3, 2},
		Colour:   c,
		Texture0: tex,
		Depth:    depth,
		Layer:    layer,
	}
}
