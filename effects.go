package trellis

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// EbitenRenderers implements every renderer interface with Ebitengine draw
// calls. Intermediate targets come from a shared pool; per-stage scratch
// images live on the stages and are freed with them.
type EbitenRenderers struct {
	surfaces SurfaceResolver
	rec      *EbitenRecorder
	pool     renderTexturePool

	imgOp    ebiten.DrawImageOptions
	shaderOp ebiten.DrawRectShaderOptions
	uniforms map[string]any
	meshCam  CameraBinding

	draws int
}

// NewEbitenRenderers creates the default renderers. surfaces resolves the
// batch textures of draw and distortion stages.
func NewEbitenRenderers(surfaces SurfaceResolver) *EbitenRenderers {
	return &EbitenRenderers{
		surfaces: surfaces,
		rec:      NewEbitenRecorder(nil),
		uniforms: make(map[string]any, 4),
		meshCam:  CameraBinding{World: identityTransform, Screen: identityTransform},
	}
}

// DrawCalls returns the number of Ebitengine draw calls issued for geometry.
func (r *EbitenRenderers) DrawCalls() int { return r.rec.DrawCalls() }

// Draws returns the number of batch and mesh draws recorded.
func (r *EbitenRenderers) Draws() int { return r.draws }

// Release deallocates the pooled intermediates.
func (r *EbitenRenderers) Release(deviceLost bool) { r.pool.Drain(deviceLost) }

// RenderDraw implements DrawRenderer.
func (r *EbitenRenderers) RenderDraw(s *DrawStage, target *Surface, cam *CameraBinding) {
	r.rec.Reset(target.Image)
	r.draws += drawBatches(r.rec, r.surfaces, target.Handle, s.Batches(),
		s.vb.Buffer(), s.ib.Buffer(), s.cfg.Blend, cam)
}

// RenderDistortion implements DistortionRenderer. The queued geometry is
// drawn into a height map the size of the source, whose gradient then
// offsets the source lookup.
func (r *EbitenRenderers) RenderDistortion(s *DistortionStage, target, source *Surface, cam *CameraBinding) {
	w, h := source.Size()
	if w == 0 || h == 0 {
		return
	}
	hm := s.ensureHeightMap(w, h)
	r.rec.Reset(hm)
	r.draws += drawBatches(r.rec, r.surfaces, target.Handle, s.Batches(),
		s.vb.Buffer(), s.ib.Buffer(), BlendNormal, cam)

	r.uniforms["Strength"] = float32(s.cfg.Strength)
	r.shaderOp.Images[0] = source.Image
	r.shaderOp.Images[1] = hm
	r.drawRectShader(target.Image, w, h, ensureDistortionShader(), r.uniforms, ebiten.BlendCopy)
}

// RenderBloom implements BloomRenderer.
func (r *EbitenRenderers) RenderBloom(s *BloomStage, source, target *Surface) {
	w, h := source.Size()
	if w == 0 || h == 0 {
		return
	}
	s.bright = ensureImage(s.bright, w, h)
	r.uniforms["Threshold"] = float32(s.cfg.Threshold)
	r.shaderOp.Images[0] = source.Image
	r.drawRectShader(s.bright, w, h, ensureBrightPassShader(), r.uniforms, ebiten.BlendCopy)

	base, glow := r.pool.AcquireExact(w, h)
	s.blur.apply(s.bright, glow, int(math.Round(s.cfg.Radius)))

	r.copyTo(target.Image, source.Image, 1)
	r.resetImgOp(target.Image)
	r.imgOp.ColorScale.ScaleAlpha(float32(s.cfg.Intensity))
	r.imgOp.Blend = ebiten.BlendLighter
	target.Image.DrawImage(glow, &r.imgOp)
	r.pool.Release(base)
}

// RenderBlur2D implements Blur2DRenderer.
func (r *EbitenRenderers) RenderBlur2D(s *Blur2DStage, source, target *Surface) {
	w, h := source.Size()
	if w == 0 || h == 0 {
		return
	}
	s.blurred = ensureImage(s.blurred, w, h)
	s.blur.apply(source.Image, s.blurred, int(math.Round(s.cfg.Radius)))

	mix := float32(clamp01(s.cfg.Mix))
	r.copyTo(target.Image, source.Image, 1-mix)
	r.resetImgOp(target.Image)
	r.imgOp.ColorScale.ScaleAlpha(mix)
	r.imgOp.Blend = ebiten.BlendLighter
	target.Image.DrawImage(s.blurred, &r.imgOp)
}

// RenderBlur1D implements Blur1DRenderer.
func (r *EbitenRenderers) RenderBlur1D(s *Blur1DStage, source, target *Surface) {
	w, h := source.Size()
	if w == 0 || h == 0 {
		return
	}
	dx, dy := s.cfg.Direction.X, s.cfg.Direction.Y
	if l := math.Hypot(dx, dy); l > 0 {
		dx, dy = dx/l, dy/l
	} else {
		dx, dy = 1, 0
	}
	s.dir[0], s.dir[1] = float32(dx), float32(dy)
	s.uniforms["Radius"] = float32(s.cfg.Radius)
	s.uniforms["Mix"] = float32(clamp01(s.cfg.Mix))
	r.shaderOp.Images[0] = source.Image
	r.drawRectShader(target.Image, w, h, ensureBlur1DShader(), s.uniforms, ebiten.BlendCopy)
}

// RenderColourEffects implements ColourEffectsRenderer.
func (r *EbitenRenderers) RenderColourEffects(s *ColourEffectsStage, source, target *Surface) {
	w, h := source.Size()
	if w == 0 || h == 0 {
		return
	}
	r.shaderOp.Images[0] = source.Image
	r.drawRectShader(target.Image, w, h, ensureColorMatrixShader(), s.uniforms, ebiten.BlendCopy)
}

// RenderStyleEffects implements StyleEffectsRenderer.
func (r *EbitenRenderers) RenderStyleEffects(s *StyleEffectsStage, source, target *Surface) {
	w, h := source.Size()
	if w == 0 || h == 0 {
		return
	}
	r.shaderOp.Images[0] = source.Image
	r.drawRectShader(target.Image, w, h, ensureStyleShader(), s.uniforms, ebiten.BlendCopy)
}

// RenderMesh implements MeshRenderer.
func (r *EbitenRenderers) RenderMesh(s *MeshRenderStage, target *Surface, cam *CameraBinding, texture *Surface) {
	fill := FillTextured
	if texture == whitePixel() {
		fill = FillColoured
	}
	n := s.project(cam, fill)
	if n == 0 {
		return
	}
	r.rec.Reset(target.Image)
	r.rec.BindPipeline(Pipeline{Fill: fill, Blend: s.cfg.Blend})
	r.rec.BindVertexBuffer(s.projected.Buffer())
	r.rec.BindResourceSet(ResourceSetCamera, ResourceSet{Camera: &r.meshCam})
	r.rec.BindResourceSet(ResourceSetTextures, ResourceSet{
		Textures: [2]*Surface{texture},
		Wraps:    [2]WrapMode{s.cfg.Wrap},
	})
	r.rec.Draw(n)
	r.draws++
}

// RenderMix implements MixRenderer. Each present source is added in its own
// pass, weighted by its amount and the matching mix texture channel.
func (r *EbitenRenderers) RenderMix(s *MixStage, target, mix *Surface, sources [4]*Surface) {
	white := whitePixel()
	w, h := target.Size()
	switch {
	case mix != white:
		w, h = mix.Size()
	default:
		for _, src := range sources {
			if src != white {
				w, h = src.Size()
				break
			}
		}
	}
	if w == 0 || h == 0 {
		return
	}

	if mix != white {
		s.uniforms["HasMask"] = float32(1)
	} else {
		s.uniforms["HasMask"] = float32(0)
	}
	blend := ebiten.BlendCopy
	for i, src := range sources {
		solid := src == white
		if !solid {
			if sw, sh := src.Size(); sw != w || sh != h {
				Logger().Warn("trellis: mix source size differs from mix size", "slot", i, "handle", uint64(src.Handle))
				continue
			}
			r.shaderOp.Images[0] = src.Image
		}
		if mix != white {
			r.shaderOp.Images[1] = mix.Image
		}
		s.channel = [4]float32{}
		s.channel[i] = 1
		s.uniforms["Amount"] = s.amounts[i]
		if solid {
			s.uniforms["Solid"] = float32(1)
		} else {
			s.uniforms["Solid"] = float32(0)
		}
		r.drawRectShader(target.Image, w, h, ensureMixShader(), s.uniforms, blend)
		blend = ebiten.BlendLighter
	}
}

// RenderCustomShader implements CustomShaderRenderer. Textures must match the
// target size; the white pixel stands in for unused slots and is not bound.
func (r *EbitenRenderers) RenderCustomShader(s *CustomShaderStage, target *Surface, textures [4]*Surface) {
	if s.Shader == nil {
		Logger().Warn("trellis: custom shader stage has no shader", "stage", uint64(s.handle))
		return
	}
	w, h := target.Size()
	white := whitePixel()
	for i, t := range textures {
		s.op.Images[i] = nil
		if t == nil || t == white {
			continue
		}
		if tw, th := t.Size(); tw != w || th != h {
			Logger().Warn("trellis: custom shader texture size differs from target", "slot", i, "handle", uint64(t.Handle))
			continue
		}
		s.op.Images[i] = t.Image
	}
	s.op.Uniforms = s.Uniforms
	s.op.GeoM.Reset()
	origin := target.Image.Bounds().Min
	s.op.GeoM.Translate(float64(origin.X), float64(origin.Y))
	target.Image.DrawRectShader(w, h, s.Shader, &s.op)
}

// RenderCustomNative implements CustomNativeRenderer.
func (r *EbitenRenderers) RenderCustomNative(s *CustomNativeStage, target *Surface, textures [4]*Surface) {
	if s.Func == nil {
		return
	}
	var imgs [4]*ebiten.Image
	white := whitePixel()
	for i, t := range textures {
		if t != nil && t != white {
			imgs[i] = t.Image
		}
	}
	s.Func(target.Image, imgs)
}

// RenderSurfaceCopy implements SurfaceCopyRenderer.
func (r *EbitenRenderers) RenderSurfaceCopy(s *SurfaceCopyStage, source *Surface) {
	w, h := source.Size()
	if w == 0 || h == 0 || s.OnCopy == nil {
		return
	}
	buf := s.pixelBuffer(w, h)
	source.Image.ReadPixels(buf)
	s.OnCopy(w, h, buf)
}

// --- helpers ---

// drawRectShader runs shader over a (w, h) rect at dst's origin. Images must
// already be set in r.shaderOp; they are cleared afterwards.
func (r *EbitenRenderers) drawRectShader(dst *ebiten.Image, w, h int, shader *ebiten.Shader, uniforms map[string]any, blend ebiten.Blend) {
	op := &r.shaderOp
	op.GeoM.Reset()
	origin := dst.Bounds().Min
	op.GeoM.Translate(float64(origin.X), float64(origin.Y))
	op.Uniforms = uniforms
	op.Blend = blend
	dst.DrawRectShader(w, h, shader, op)
	op.Images = [4]*ebiten.Image{}
	op.Uniforms = nil
}

func (r *EbitenRenderers) resetImgOp(dst *ebiten.Image) {
	op := &r.imgOp
	op.GeoM.Reset()
	op.ColorScale.Reset()
	op.Blend = ebiten.BlendSourceOver
	op.Filter = ebiten.FilterNearest
	origin := dst.Bounds().Min
	op.GeoM.Translate(float64(origin.X), float64(origin.Y))
}

// copyTo replaces dst's content under src with src scaled by alpha.
func (r *EbitenRenderers) copyTo(dst, src *ebiten.Image, alpha float32) {
	r.resetImgOp(dst)
	r.imgOp.ColorScale.ScaleAlpha(alpha)
	r.imgOp.Blend = ebiten.BlendCopy
	dst.DrawImage(src, &r.imgOp)
}

// --- Kawase blur ---

// kawase applies an iterative blur using downscale/upscale passes. No Kage
// shader needed; bilinear filtering during DrawImage does the work.
type kawase struct {
	temps []*ebiten.Image
	imgOp ebiten.DrawImageOptions
}

// apply renders a Kawase blur from src into dst. A radius <= 0 copies.
func (k *kawase) apply(src, dst *ebiten.Image, radius int) {
	op := &k.imgOp
	if radius <= 0 {
		op.GeoM.Reset()
		op.ColorScale.Reset()
		op.Filter = ebiten.FilterNearest
		dst.DrawImage(src, op)
		return
	}

	// Number of iterations: log2(radius), minimum 1.
	passes := int(math.Ceil(math.Log2(float64(radius))))
	if passes < 1 {
		passes = 1
	}

	srcBounds := src.Bounds()
	w, h := srcBounds.Dx(), srcBounds.Dy()

	for len(k.temps) < passes {
		k.temps = append(k.temps, nil)
	}
	// Deallocate excess temp images from a previous larger radius.
	for i := passes; i < len(k.temps); i++ {
		if k.temps[i] != nil {
			k.temps[i].Deallocate()
			k.temps[i] = nil
		}
	}
	k.temps = k.temps[:passes]

	current := src
	for i := 0; i < passes; i++ {
		w = max(w/2, 1)
		h = max(h/2, 1)
		k.temps[i] = ensureImage(k.temps[i], w, h)
		k.scaleInto(k.temps[i], current)
		current = k.temps[i]
	}

	for i := passes - 2; i >= 0; i-- {
		k.temps[i].Clear()
		k.scaleInto(k.temps[i], current)
		current = k.temps[i]
	}

	k.scaleInto(dst, current)
}

// scaleInto draws src stretched over dst with linear filtering.
func (k *kawase) scaleInto(dst, src *ebiten.Image) {
	op := &k.imgOp
	op.GeoM.Reset()
	op.ColorScale.Reset()
	sb, db := src.Bounds(), dst.Bounds()
	op.GeoM.Scale(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	op.GeoM.Translate(float64(db.Min.X), float64(db.Min.Y))
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(src, op)
}

// release frees the temp chain.
func (k *kawase) release(deviceLost bool) {
	for i, img := range k.temps {
		k.temps[i] = releaseImage(img, deviceLost)
	}
	k.temps = nil
}
