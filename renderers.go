package trellis

// Renderer interfaces, one per stage kind. The visitor resolves every handle
// in a command before calling them, so renderers never see null surfaces:
// optional texture slots holding the null handle arrive as the white pixel.

type DrawRenderer interface {
	RenderDraw(s *DrawStage, target *Surface, cam *CameraBinding)
}

type DistortionRenderer interface {
	RenderDistortion(s *DistortionStage, target, source *Surface, cam *CameraBinding)
}

type BloomRenderer interface {
	RenderBloom(s *BloomStage, source, target *Surface)
}

type Blur2DRenderer interface {
	RenderBlur2D(s *Blur2DStage, source, target *Surface)
}

type Blur1DRenderer interface {
	RenderBlur1D(s *Blur1DStage, source, target *Surface)
}

type ColourEffectsRenderer interface {
	RenderColourEffects(s *ColourEffectsStage, source, target *Surface)
}

type StyleEffectsRenderer interface {
	RenderStyleEffects(s *StyleEffectsStage, source, target *Surface)
}

type MeshRenderer interface {
	RenderMesh(s *MeshRenderStage, target *Surface, cam *CameraBinding, texture *Surface)
}

type MixRenderer interface {
	RenderMix(s *MixStage, target, mix *Surface, sources [4]*Surface)
}

type CustomShaderRenderer interface {
	RenderCustomShader(s *CustomShaderStage, target *Surface, textures [4]*Surface)
}

type CustomNativeRenderer interface {
	RenderCustomNative(s *CustomNativeStage, target *Surface, textures [4]*Surface)
}

type SurfaceCopyRenderer interface {
	RenderSurfaceCopy(s *SurfaceCopyStage, source *Surface)
}

// Renderers is the per-kind renderer table the visitor dispatches to. A nil
// entry makes commands of that kind log a warning and skip.
type Renderers struct {
	Draw          DrawRenderer
	Distortion    DistortionRenderer
	Bloom         BloomRenderer
	Blur2D        Blur2DRenderer
	Blur1D        Blur1DRenderer
	ColourEffects ColourEffectsRenderer
	StyleEffects  StyleEffectsRenderer
	MeshRender    MeshRenderer
	Mix           MixRenderer
	CustomShader  CustomShaderRenderer
	CustomNative  CustomNativeRenderer
	SurfaceCopy   SurfaceCopyRenderer
}

// DefaultRenderers returns a table backed by a single EbitenRenderers.
func DefaultRenderers(surfaces SurfaceResolver) Renderers {
	return DefaultRenderersFrom(NewEbitenRenderers(surfaces))
}

// DefaultRenderersFrom fills every table entry with r.
func DefaultRenderersFrom(r *EbitenRenderers) Renderers {
	return Renderers{
		Draw:          r,
		Distortion:    r,
		Bloom:         r,
		Blur2D:        r,
		Blur1D:        r,
		ColourEffects: r,
		StyleEffects:  r,
		MeshRender:    r,
		Mix:           r,
		CustomShader:  r,
		CustomNative:  r,
		SurfaceCopy:   r,
	}
}
