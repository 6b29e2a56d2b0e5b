package trellis

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Pipeline is the fixed-function state bound before a draw.
type Pipeline struct {
	Fill  FillType
	Blend BlendMode
}

// Resource set slots.
const (
	ResourceSetCamera   = 0
	ResourceSetTextures = 1
)

// ResourceSet is a group of resources bound to one slot. The camera slot
// uses Camera; the texture slot uses Textures and Wraps.
type ResourceSet struct {
	Camera   *CameraBinding
	Textures [2]*Surface
	Wraps    [2]WrapMode
}

// CommandRecorder is a linear GPU command recorder. Bindings persist until
// rebound; draws use whatever is bound at the time.
type CommandRecorder interface {
	BindPipeline(p Pipeline)
	BindVertexBuffer(b Buffer[StagedVertex])
	BindIndexBuffer(b Buffer[uint32])
	BindResourceSet(slot int, set ResourceSet)
	// Draw draws the first n vertices of the bound vertex buffer as a
	// triangle list.
	Draw(n int)
	// DrawIndexed draws n indices of the bound index buffer starting at
	// first.
	DrawIndexed(n, first int)
}

// EbitenRecorder records into an Ebitengine image. Vertex and index buffers
// must be host-backed; Ebitengine uploads vertex data with every draw call.
type EbitenRecorder struct {
	target *ebiten.Image

	pipeline Pipeline
	vb       Buffer[StagedVertex]
	ib       Buffer[uint32]
	camera   *CameraBinding
	textures [2]*Surface
	wraps    [2]WrapMode

	verts    []ebiten.Vertex
	inds     []uint32
	triOp    ebiten.DrawTrianglesOptions
	shaderOp ebiten.DrawTrianglesShaderOptions

	conv      convState
	drawCalls int
}

// NewEbitenRecorder creates a recorder drawing into target.
func NewEbitenRecorder(target *ebiten.Image) *EbitenRecorder {
	r := &EbitenRecorder{}
	r.Reset(target)
	return r
}

// Reset retargets the recorder and drops every binding.
func (r *EbitenRecorder) Reset(target *ebiten.Image) {
	r.target = target
	r.pipeline = Pipeline{}
	r.vb = nil
	r.ib = nil
	r.camera = nil
	r.textures = [2]*Surface{}
	r.wraps = [2]WrapMode{}
}

// DrawCalls returns the number of Ebitengine draw calls issued since creation.
func (r *EbitenRecorder) DrawCalls() int { return r.drawCalls }

func (r *EbitenRecorder) BindPipeline(p Pipeline)                 { r.pipeline = p }
func (r *EbitenRecorder) BindVertexBuffer(b Buffer[StagedVertex]) { r.vb = b }
func (r *EbitenRecorder) BindIndexBuffer(b Buffer[uint32])        { r.ib = b }

func (r *EbitenRecorder) BindResourceSet(slot int, set ResourceSet) {
	switch slot {
	case ResourceSetCamera:
		r.camera = set.Camera
	case ResourceSetTextures:
		r.textures = set.Textures
		r.wraps = set.Wraps
	}
}

// Draw implements CommandRecorder.
func (r *EbitenRecorder) Draw(n int) {
	verts := hostSlice(r.vb)
	if n <= 0 || n > len(verts) {
		if n > 0 {
			Logger().Warn("trellis: draw exceeds bound vertex buffer", "count", n, "have", len(verts))
		}
		return
	}
	r.beginConvert()
	for i := range verts[:n] {
		r.appendVertex(&verts[i])
	}
	r.inds = r.inds[:0]
	for i := 0; i < n; i++ {
		r.inds = append(r.inds, uint32(i))
	}
	r.submit()
}

// DrawIndexed implements CommandRecorder. Only the vertex range referenced by
// the index range is converted.
func (r *EbitenRecorder) DrawIndexed(n, first int) {
	verts := hostSlice(r.vb)
	inds := hostSlice(r.ib)
	if n <= 0 {
		return
	}
	if first < 0 || first+n > len(inds) {
		Logger().Warn("trellis: indexed draw exceeds bound index buffer", "first", first, "count", n, "have", len(inds))
		return
	}
	inds = inds[first : first+n]
	lo, hi := inds[0], inds[0]
	for _, idx := range inds {
		lo = min(lo, idx)
		hi = max(hi, idx)
	}
	if int(hi) >= len(verts) {
		Logger().Warn("trellis: index references vertex outside bound buffer", "index", hi, "have", len(verts))
		return
	}

	r.beginConvert()
	for i := lo; i <= hi; i++ {
		r.appendVertex(&verts[i])
	}
	r.inds = r.inds[:0]
	for _, idx := range inds {
		r.inds = append(r.inds, idx-lo)
	}
	r.submit()
}

// --- Vertex conversion ---

// convState caches per-draw conversion parameters.
type convState struct {
	world, screen  [6]float64
	u0, v0, w0, h0 float32 // texture0 origin and size in texels
	u1, v1, w1, h1 float32 // texture1, expressed in texture0's texel space
	coloured       bool
	clamp0, clamp1 bool // WrapClamp on texture0, texture1
}

func (r *EbitenRecorder) beginConvert() {
	r.verts = r.verts[:0]
	r.conv.world = r.camera.transformFor(SpaceWorld)
	r.conv.screen = r.camera.transformFor(SpaceScreen)
	r.conv.coloured = r.pipeline.Fill == FillColoured
	r.conv.clamp0 = r.wraps[0] == WrapClamp
	r.conv.clamp1 = r.wraps[1] == WrapClamp

	t0 := r.texture(0)
	b0 := t0.Image.Bounds()
	r.conv.u0, r.conv.v0 = float32(b0.Min.X), float32(b0.Min.Y)
	r.conv.w0, r.conv.h0 = float32(b0.Dx()), float32(b0.Dy())
	r.conv.u1, r.conv.v1, r.conv.w1, r.conv.h1 = r.conv.u0, r.conv.v0, r.conv.w0, r.conv.h0
	if t1 := r.textures[1]; t1 != nil && t1.Image != nil {
		b1 := t1.Image.Bounds()
		r.conv.w1, r.conv.h1 = float32(b1.Dx()), float32(b1.Dy())
	}
}

// texture returns the bound texture in slot i, or the white pixel.
func (r *EbitenRecorder) texture(i int) *Surface {
	if r.pipeline.Fill == FillColoured && i == 0 {
		return whitePixel()
	}
	if t := r.textures[i]; t != nil && t.Image != nil {
		return t
	}
	return whitePixel()
}

func (r *EbitenRecorder) appendVertex(v *StagedVertex) {
	m := r.conv.screen
	if v.Space == SpaceWorld {
		m = r.conv.world
	}
	dx, dy := transformPoint(m, float64(v.X), float64(v.Y))

	u0, v0, u1, v1 := v.U0, v.V0, v.U1, v.V1
	if r.conv.clamp0 {
		u0, v0 = clampUnit(u0), clampUnit(v0)
	}
	if r.conv.clamp1 {
		u1, v1 = clampUnit(u1), clampUnit(v1)
	}

	var sx, sy float32
	if r.conv.coloured {
		sx, sy = r.conv.u0+0.5, r.conv.v0+0.5
	} else {
		sx, sy = r.conv.u0+u0*r.conv.w0, r.conv.v0+v0*r.conv.h0
	}

	r.verts = append(r.verts, ebiten.Vertex{
		DstX:    float32(dx),
		DstY:    float32(dy),
		SrcX:    sx,
		SrcY:    sy,
		ColorR:  v.R * v.A,
		ColorG:  v.G * v.A,
		ColorB:  v.B * v.A,
		ColorA:  v.A,
		Custom0: r.conv.u1 + u1*r.conv.w1,
		Custom1: r.conv.v1 + v1*r.conv.h1,
		Custom2: float32(v.Blend),
	})
}

func clampUnit(v float32) float32 { return min(max(v, 0), 1) }

// submit issues one Ebitengine draw call for the converted vertices.
func (r *EbitenRecorder) submit() {
	if r.target == nil || len(r.inds) == 0 {
		return
	}
	t0 := r.texture(0)

	if r.pipeline.Fill == FillDualTextured {
		t1 := r.textures[1]
		if t1 == nil || t1.Image == nil {
			Logger().Warn("trellis: dual-textured draw has no texture1 bound")
			return
		}
		if t0.Image.Bounds().Size() != t1.Image.Bounds().Size() {
			Logger().Warn("trellis: dual-textured draw with mismatched texture sizes",
				"texture0", uint64(t0.Handle), "texture1", uint64(t1.Handle))
			return
		}
		r.shaderOp.Blend = r.pipeline.Blend.EbitenBlend()
		r.shaderOp.Images[0] = t0.Image
		r.shaderOp.Images[1] = t1.Image
		r.target.DrawTrianglesShader32(r.verts, r.inds, ensureDualTextureShader(), &r.shaderOp)
		r.shaderOp.Images = [4]*ebiten.Image{}
		r.drawCalls++
		return
	}

	r.triOp.Blend = r.pipeline.Blend.EbitenBlend()
	r.triOp.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	r.triOp.Address = r.wraps[0].ebitenAddress()
	if r.pipeline.Fill == FillColoured {
		r.triOp.Address = ebiten.AddressUnsafe
	}
	r.target.DrawTriangles32(r.verts, r.inds, t0.Image, &r.triOp)
	r.drawCalls++
}

// hostSlice returns the host contents of a buffer, or nil when the buffer is
// not host-backed.
func hostSlice[T any](b Buffer[T]) []T {
	if b == nil {
		return nil
	}
	if h, ok := b.(hostData[T]); ok {
		return h.Data()
	}
	Logger().Warn("trellis: buffer is not host-backed; Ebitengine recorder cannot read it")
	return nil
}

// --- Batch submission ---

// drawBatches records one indexed draw per batch. Batch textures are resolved
// through surfaces; a null handle binds the white pixel. A batch whose texture
// cannot be resolved, or that samples the target it draws into, is skipped.
// It returns the number of draws recorded.
func drawBatches(rec CommandRecorder, surfaces SurfaceResolver, target SurfaceHandle, batches []Batch,
	vb Buffer[StagedVertex], ib Buffer[uint32], blend BlendMode, cam *CameraBinding) int {
	if len(batches) == 0 || vb == nil || ib == nil {
		return 0
	}
	rec.BindVertexBuffer(vb)
	rec.BindIndexBuffer(ib)
	rec.BindResourceSet(ResourceSetCamera, ResourceSet{Camera: cam})

	draws := 0
	bound := false
	var cur Pipeline
	for i := range batches {
		b := &batches[i]
		t0, ok0 := resolveTexture(surfaces, b.Texture0, target)
		t1, ok1 := resolveTexture(surfaces, b.Texture1, target)
		if !ok0 || !ok1 {
			continue
		}
		p := Pipeline{Fill: b.Fill, Blend: blend}
		if !bound || p != cur {
			rec.BindPipeline(p)
			cur = p
			bound = true
		}
		rec.BindResourceSet(ResourceSetTextures, ResourceSet{
			Textures: [2]*Surface{t0, t1},
			Wraps:    [2]WrapMode{b.Wrap0, b.Wrap1},
		})
		rec.DrawIndexed(b.IndexCount, b.FirstIndex)
		draws++
	}
	return draws
}

// resolveTexture resolves a sampled texture handle. Null binds the white
// pixel; sampling the draw target or the main surface is refused.
func resolveTexture(surfaces SurfaceResolver, h, target SurfaceHandle) (*Surface, bool) {
	if h == NullSurface {
		return whitePixel(), true
	}
	if h == target {
		Logger().Warn("trellis: surface used as both texture and target", "handle", uint64(h))
		return nil, false
	}
	s := surfaces.Resolve(h, SurfaceMain)
	return s, s != nil
}
