package trellis

import "github.com/hajimehoshi/ebiten/v2"

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs when vertices are handed to the GPU.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// Vec2 is a 2D vector used for directions and offsets in stage parameters.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// SurfaceHandle references a surface (render target or sampleable texture).
// The zero value is the null sentinel.
type SurfaceHandle uint64

// CameraHandle references a 2D or 3D camera. The zero value is the null sentinel.
type CameraHandle uint64

// StageHandle is the numeric id the StageManager assigns to a stage model.
type StageHandle uint64

const (
	// NullSurface is the null sentinel. Optional texture slots holding it are
	// bound to a 1x1 white pixel at dispatch time.
	NullSurface SurfaceHandle = 0
	// MainSurface is the reserved handle of the window's back buffer.
	MainSurface SurfaceHandle = 1
)

// CoordinateSpace selects the per-vertex transform applied at draw time.
type CoordinateSpace uint8

const (
	SpaceScreen CoordinateSpace = iota // viewport-relative pixels
	SpaceWorld                         // camera-relative world units
)

// FillType selects how a draw request samples textures.
type FillType uint8

const (
	FillColoured     FillType = iota // vertex colour only
	FillTextured                     // texture0 * colour
	FillDualTextured                 // texture0 * texture1 * colour
)

// TextureBlend is the per-vertex texture combine mode derived from a FillType.
type TextureBlend uint8

const (
	TextureBlendNone     TextureBlend = iota // ignore textures
	TextureBlendSingle                       // sample texture0
	TextureBlendMultiply                     // texture0 * texture1
)

// textureBlend returns the texture combine mode for a fill type.
func (f FillType) textureBlend() TextureBlend {
	switch f {
	case FillTextured:
		return TextureBlendSingle
	case FillDualTextured:
		return TextureBlendMultiply
	default:
		return TextureBlendNone
	}
}

// WrapMode controls how texture coordinates outside [0, 1] are sampled.
type WrapMode uint8

const (
	WrapClamp       WrapMode = iota // coordinates clamped to [0, 1] at each vertex
	WrapRepeat                      // tile the texture
	WrapClampToZero                 // transparent outside the texture
)

// ebitenAddress maps a wrap mode onto Ebitengine's address mode. Ebitengine
// has no edge-clamp mode; WrapClamp clamps the vertex coordinates instead, so
// the sampler never sees a coordinate outside the texture.
func (w WrapMode) ebitenAddress() ebiten.Address {
	switch w {
	case WrapRepeat:
		return ebiten.AddressRepeat
	case WrapClampToZero:
		return ebiten.AddressClampToZero
	default:
		return ebiten.AddressUnsafe
	}
}

// Vertex is a single vertex of a draw request. Texture coordinates are
// normalised to [0, 1] over the bound texture. The colour is multiplied by the
// request colour, so a zero colour stays transparent.
type Vertex struct {
	X, Y       float32
	U0, V0     float32
	U1, V1     float32
	R, G, B, A float32
}

// StagedVertex is a vertex after blitting: tinted by its request's colour and
// tagged with the coordinate space and texture combine mode of its request, so
// a single batch can mix screen and world geometry.
type StagedVertex struct {
	X, Y       float32
	U0, V0     float32
	U1, V1     float32
	R, G, B, A float32
	Space      CoordinateSpace
	Blend      TextureBlend
}

// BlendMode selects a compositing operation. Each maps to a specific ebiten.Blend value.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive / lighter
	BlendMultiply                  // multiply (source * destination; only darkens)
	BlendScreen                    // screen (1 - (1-src)*(1-dst); only brightens)
	BlendErase                     // destination-out (punch transparent holes)
	BlendMask                      // clip destination to source alpha
	BlendBelow                     // destination-over (draw behind existing content)
	BlendNone                      // opaque copy (skip blending)
)

// EbitenBlend returns the ebiten.Blend value corresponding to this BlendMode.
func (b BlendMode) EbitenBlend() ebiten.Blend {
	switch b {
	case BlendNormal:
		return ebiten.BlendSourceOver
	case BlendAdd:
		return ebiten.BlendLighter
	case BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendScreen:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceColor,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendErase:
		return ebiten.BlendDestinationOut
	case BlendMask:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorZero,
			BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
			BlendFactorDestinationRGB:   ebiten.BlendFactorSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendBelow:
		return ebiten.BlendDestinationOver
	case BlendNone:
		return ebiten.BlendCopy
	default:
		return ebiten.BlendSourceOver
	}
}

// toRGBA converts a Color to a premultiplied colorRGBA for image.Fill.
func (c Color) toRGBA() colorRGBA {
	return colorRGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

// colorRGBA implements the color.Color interface for image.Fill.
type colorRGBA struct {
	R, G, B, A uint8
}

func (c colorRGBA) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	a = uint32(c.A) * 0x101
	return
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
