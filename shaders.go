package trellis

import "github.com/hajimehoshi/ebiten/v2"

// --- Kage shader sources ---
// All shaders use //kage:unit pixels as required by Ebitengine.
// Ebitengine uses premultiplied alpha; shaders un-premultiply before processing
// and re-premultiply output where needed.

const dualTextureShaderSrc = `//kage:unit pixels
package main

func Fragment(dst vec4, src vec2, color vec4, custom vec4) vec4 {
	c0 := imageSrc0At(src)
	// custom.z carries the per-vertex texture blend: 2 multiplies texture1 in.
	if custom.z < 1.5 {
		return c0 * color
	}
	c1 := imageSrc1At(custom.xy - imageSrc0Origin() + imageSrc1Origin())
	return c0 * c1 * color
}
`

const colorMatrixShaderSrc = `//kage:unit pixels
package main

var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	// Un-premultiply alpha.
	if c.a > 0 {
		c.rgb /= c.a
	}
	// Apply 4x5 color matrix (row-major, offset in elements 4,9,14,19).
	r := Matrix[0]*c.r + Matrix[1]*c.g + Matrix[2]*c.b + Matrix[3]*c.a + Matrix[4]
	g := Matrix[5]*c.r + Matrix[6]*c.g + Matrix[7]*c.b + Matrix[8]*c.a + Matrix[9]
	b := Matrix[10]*c.r + Matrix[11]*c.g + Matrix[12]*c.b + Matrix[13]*c.a + Matrix[14]
	a := Matrix[15]*c.r + Matrix[16]*c.g + Matrix[17]*c.b + Matrix[18]*c.a + Matrix[19]
	// Clamp and re-premultiply.
	r = clamp(r, 0, 1)
	g = clamp(g, 0, 1)
	b = clamp(b, 0, 1)
	a = clamp(a, 0, 1)
	return vec4(r*a, g*a, b*a, a)
}
`

const brightPassShaderSrc = `//kage:unit pixels
package main

var Threshold float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a == 0 {
		return vec4(0)
	}
	rgb := c.rgb / c.a
	lum := 0.299*rgb.r + 0.587*rgb.g + 0.114*rgb.b
	if lum < Threshold {
		return vec4(0)
	}
	return c
}
`

const blur1DShaderSrc = `//kage:unit pixels
package main

var Direction vec2
var Radius float
var Mix float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	orig := imageSrc0At(src)
	step := Direction * (Radius / 4.0)
	// 9-tap binomial kernel.
	sum := imageSrc0At(src) * 0.2734375
	sum += (imageSrc0At(src+step) + imageSrc0At(src-step)) * 0.21875
	sum += (imageSrc0At(src+step*2.0) + imageSrc0At(src-step*2.0)) * 0.109375
	sum += (imageSrc0At(src+step*3.0) + imageSrc0At(src-step*3.0)) * 0.03125
	sum += (imageSrc0At(src+step*4.0) + imageSrc0At(src-step*4.0)) * 0.00390625
	return mix(orig, sum, Mix)
}
`

const styleShaderSrc = `//kage:unit pixels
package main

var PixelSize float
var Scanlines float
var ScanlineSpacing float
var Vignette float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	origin := imageSrc0Origin()
	size := imageSrc0Size()
	local := src - origin
	// Sample the centre of the block the pixel falls in.
	block := floor(local/PixelSize)*PixelSize + PixelSize/2.0
	block = clamp(block, vec2(0), size-vec2(1))
	c := imageSrc0At(block + origin)

	if mod(floor(local.y), ScanlineSpacing) < 1.0 {
		c.rgb *= 1.0 - Scanlines
	}

	uv := local/size - 0.5
	v := 1.0 - Vignette*dot(uv, uv)*2.0
	c.rgb *= clamp(v, 0, 1)
	return c
}
`

const distortionShaderSrc = `//kage:unit pixels
package main

var Strength float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	// imageSrc1 is the height map; its gradient displaces the source lookup.
	hx := imageSrc1At(src+vec2(1, 0)).r - imageSrc1At(src-vec2(1, 0)).r
	hy := imageSrc1At(src+vec2(0, 1)).r - imageSrc1At(src-vec2(0, 1)).r
	return imageSrc0At(src + vec2(hx, hy)*Strength)
}
`

const mixShaderSrc = `//kage:unit pixels
package main

var Amount float
var Channel vec4
var HasMask float
var Solid float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := vec4(1)
	if Solid == 0 {
		c = imageSrc0At(src)
	}
	w := 1.0
	if HasMask > 0 {
		w = dot(imageSrc1At(src), Channel)
	}
	return c * Amount * w
}
`

// --- Lazy shader compilation (no sync.Once; all GPU work is on the game thread) ---

var (
	dualTextureShader *ebiten.Shader
	colorMatrixShader *ebiten.Shader
	brightPassShader  *ebiten.Shader
	blur1DShader      *ebiten.Shader
	styleShader       *ebiten.Shader
	distortionShader  *ebiten.Shader
	mixShader         *ebiten.Shader
)

// compileShader compiles built-in Kage source, panicking on failure since the
// source is part of the package.
func compileShader(name, src string) *ebiten.Shader {
	s, err := ebiten.NewShader([]byte(src))
	if err != nil {
		panic("trellis: failed to compile " + name + " shader: " + err.Error())
	}
	return s
}

func ensureDualTextureShader() *ebiten.Shader {
	if dualTextureShader == nil {
		dualTextureShader = compileShader("dual texture", dualTextureShaderSrc)
	}
	return dualTextureShader
}

func ensureColorMatrixShader() *ebiten.Shader {
	if colorMatrixShader == nil {
		colorMatrixShader = compileShader("color matrix", colorMatrixShaderSrc)
	}
	return colorMatrixShader
}

func ensureBrightPassShader() *ebiten.Shader {
	if brightPassShader == nil {
		brightPassShader = compileShader("bright pass", brightPassShaderSrc)
	}
	return brightPassShader
}

func ensureBlur1DShader() *ebiten.Shader {
	if blur1DShader == nil {
		blur1DShader = compileShader("directional blur", blur1DShaderSrc)
	}
	return blur1DShader
}

func ensureStyleShader() *ebiten.Shader {
	if styleShader == nil {
		styleShader = compileShader("style", styleShaderSrc)
	}
	return styleShader
}

func ensureDistortionShader() *ebiten.Shader {
	if distortionShader == nil {
		distortionShader = compileShader("distortion", distortionShaderSrc)
	}
	return distortionShader
}

func ensureMixShader() *ebiten.Shader {
	if mixShader == nil {
		mixShader = compileShader("mix", mixShaderSrc)
	}
	return mixShader
}
