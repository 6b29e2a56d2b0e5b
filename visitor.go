package trellis

// DispatchEvent describes one rendered command.
type DispatchEvent struct {
	Kind  StageKind
	Stage StageHandle
	// Index is the command's position in the frame's command queue.
	Index int
}

// DispatchSink receives an event for every command the visitor rendered.
type DispatchSink interface {
	StageDispatched(ev DispatchEvent)
}

// DispatchSinkFunc adapts a function to DispatchSink.
type DispatchSinkFunc func(ev DispatchEvent)

// StageDispatched implements DispatchSink.
func (f DispatchSinkFunc) StageDispatched(ev DispatchEvent) { f(ev) }

// FrameReport summarizes one walk of the command queue.
type FrameReport struct {
	// Commands is the number of commands walked.
	Commands int
	// Rendered counts commands that reached their renderer.
	Rendered int
	// Skipped counts commands dropped by a resolution failure.
	Skipped int
	// Batches is the number of draw batches processed by draw and
	// distortion stages.
	Batches int

	last [stageKindCount]Model
}

// Last returns the stage of the given kind rendered last in the frame, or nil.
func (r *FrameReport) Last(kind StageKind) Model {
	if kind >= stageKindCount {
		return nil
	}
	return r.last[kind]
}

// frame is the mutable state of one walk.
type frame struct {
	index    int
	viewport Rect
	report   *FrameReport
}

// Visitor walks a command queue and routes each command to the renderer of
// its stage kind. It resolves every surface and camera handle first; a
// command whose references cannot be resolved is logged and skipped, and the
// walk continues.
type Visitor struct {
	surfaces  SurfaceResolver
	cameras   CameraResolver
	renderers Renderers
	sink      DispatchSink
	debug     bool

	// viewport-cropped views of resolved surfaces, reused every command
	views [6]Surface
}

// NewVisitor creates a visitor over the given resolvers and renderers.
func NewVisitor(surfaces SurfaceResolver, cameras CameraResolver, renderers Renderers) *Visitor {
	return &Visitor{surfaces: surfaces, cameras: cameras, renderers: renderers}
}

// SetRenderers replaces the renderer table.
func (v *Visitor) SetRenderers(r Renderers) { v.renderers = r }

// Renderers returns the current renderer table.
func (v *Visitor) Renderers() Renderers { return v.renderers }

// SetSink installs a dispatch sink. Nil removes it.
func (v *Visitor) SetSink(s DispatchSink) { v.sink = s }

// SetDebug enables batch count warnings on stderr.
func (v *Visitor) SetDebug(enabled bool) { v.debug = enabled }

// countBatches adds a processed stage's batches to the report.
func (v *Visitor) countBatches(f *frame, m Model, batches []Batch) {
	f.report.Batches += len(batches)
	if v.debug {
		debugCheckBatches(m, len(batches))
	}
}

// Walk dispatches every queued command in order.
func (v *Visitor) Walk(q *CommandQueue) FrameReport {
	var report FrameReport
	f := frame{report: &report}
	for i, cmd := range q.Commands() {
		f.index = i
		report.Commands++
		m := cmd.accept(v, &f)
		if m == nil {
			continue
		}
		report.last[m.Kind()] = m
		if v.sink != nil {
			v.sink.StageDispatched(DispatchEvent{Kind: m.Kind(), Stage: m.Handle(), Index: i})
		}
	}
	return report
}

// --- resolution helpers ---

// skip records a skipped command and returns nil for the dispatch result.
func (v *Visitor) skip(f *frame, kind StageKind, reason string, args ...any) Model {
	f.report.Skipped++
	Logger().Warn("trellis: skip "+kind.String()+" command: "+reason,
		append([]any{"index", f.index}, args...)...)
	return nil
}

// rendered records a rendered command.
func (v *Visitor) rendered(f *frame, m Model) Model {
	f.report.Rendered++
	return m
}

// live reports whether the stage can still render. Stages destroyed after
// their command was queued are skipped.
func (v *Visitor) live(f *frame, m Model) bool {
	if m.State() == StageDestroyed {
		v.skip(f, m.Kind(), "stage destroyed", "stage", uint64(m.Handle()))
		return false
	}
	return true
}

// target resolves a drawable surface cropped to the viewport.
func (v *Visitor) target(f *frame, slot int, h SurfaceHandle) *Surface {
	s := v.surfaces.Resolve(h, SurfaceTexture)
	return v.crop(f, slot, s)
}

// source resolves a sampled surface cropped to the viewport. The main
// surface cannot be sampled.
func (v *Visitor) source(f *frame, slot int, h SurfaceHandle) *Surface {
	s := v.surfaces.Resolve(h, SurfaceMain)
	return v.crop(f, slot, s)
}

// texture resolves an optional sampled texture. The null handle resolves to
// the white pixel. Textures are never cropped.
func (v *Visitor) texture(h SurfaceHandle) *Surface {
	if h == NullSurface {
		return whitePixel()
	}
	return v.surfaces.Resolve(h, SurfaceMain)
}

func (v *Visitor) crop(f *frame, slot int, s *Surface) *Surface {
	if s == nil || f.viewport.Empty() || s.Image == nil {
		return s
	}
	view := &v.views[slot]
	*view = Surface{Handle: s.Handle, Kind: s.Kind, Image: targetImage(s, f.viewport)}
	return view
}

// --- dispatch, one per stage kind ---

func (v *Visitor) dispatchDraw(c *DrawCommand, f *frame) Model {
	const kind = StageDraw
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.Draw == nil {
		return v.skip(f, kind, "no renderer")
	}
	target := v.target(f, 0, c.Target)
	if target == nil {
		return v.skip(f, kind, "target not resolved", "target", uint64(c.Target))
	}
	cam := v.cameras.Resolve2D(c.Camera)
	if cam == nil {
		return v.skip(f, kind, "camera not resolved", "camera", uint64(c.Camera))
	}
	c.Stage.Process()
	v.countBatches(f, c.Stage, c.Stage.Batches())
	v.renderers.Draw.RenderDraw(c.Stage, target, cam)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchDistortion(c *DistortionCommand, f *frame) Model {
	const kind = StageDistortion
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.Distortion == nil {
		return v.skip(f, kind, "no renderer")
	}
	if c.Source == c.Target {
		return v.skip(f, kind, "source is target", "surface", uint64(c.Source))
	}
	target := v.target(f, 0, c.Target)
	if target == nil {
		return v.skip(f, kind, "target not resolved", "target", uint64(c.Target))
	}
	source := v.source(f, 1, c.Source)
	if source == nil {
		return v.skip(f, kind, "source not resolved", "source", uint64(c.Source))
	}
	cam := v.cameras.Resolve2D(c.Camera)
	if cam == nil {
		return v.skip(f, kind, "camera not resolved", "camera", uint64(c.Camera))
	}
	c.Stage.Process()
	v.countBatches(f, c.Stage, c.Stage.Batches())
	v.renderers.Distortion.RenderDistortion(c.Stage, target, source, cam)
	return v.rendered(f, c.Stage)
}

// effectPair resolves the source and target of a full-screen effect.
func (v *Visitor) effectPair(f *frame, kind StageKind, src, dst SurfaceHandle) (source, target *Surface, ok bool) {
	if src == dst {
		v.skip(f, kind, "source is target", "surface", uint64(src))
		return nil, nil, false
	}
	if source = v.source(f, 0, src); source == nil {
		v.skip(f, kind, "source not resolved", "source", uint64(src))
		return nil, nil, false
	}
	if target = v.target(f, 1, dst); target == nil {
		v.skip(f, kind, "target not resolved", "target", uint64(dst))
		return nil, nil, false
	}
	return source, target, true
}

func (v *Visitor) dispatchBloom(c *BloomCommand, f *frame) Model {
	const kind = StageBloom
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.Bloom == nil {
		return v.skip(f, kind, "no renderer")
	}
	source, target, ok := v.effectPair(f, kind, c.Source, c.Target)
	if !ok {
		return nil
	}
	c.Stage.Process()
	v.renderers.Bloom.RenderBloom(c.Stage, source, target)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchBlur2D(c *BlurCommand, f *frame) Model {
	const kind = StageBlur2D
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.Blur2D == nil {
		return v.skip(f, kind, "no renderer")
	}
	source, target, ok := v.effectPair(f, kind, c.Source, c.Target)
	if !ok {
		return nil
	}
	c.Stage.Process()
	v.renderers.Blur2D.RenderBlur2D(c.Stage, source, target)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchBlur1D(c *Blur1DCommand, f *frame) Model {
	const kind = StageBlur1D
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.Blur1D == nil {
		return v.skip(f, kind, "no renderer")
	}
	source, target, ok := v.effectPair(f, kind, c.Source, c.Target)
	if !ok {
		return nil
	}
	c.Stage.Process()
	v.renderers.Blur1D.RenderBlur1D(c.Stage, source, target)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchColourEffects(c *ColourEffectsCommand, f *frame) Model {
	const kind = StageColourEffects
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.ColourEffects == nil {
		return v.skip(f, kind, "no renderer")
	}
	source, target, ok := v.effectPair(f, kind, c.Source, c.Target)
	if !ok {
		return nil
	}
	c.Stage.Process()
	v.renderers.ColourEffects.RenderColourEffects(c.Stage, source, target)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchStyleEffects(c *StyleEffectsCommand, f *frame) Model {
	const kind = StageStyleEffects
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.StyleEffects == nil {
		return v.skip(f, kind, "no renderer")
	}
	source, target, ok := v.effectPair(f, kind, c.Source, c.Target)
	if !ok {
		return nil
	}
	c.Stage.Process()
	v.renderers.StyleEffects.RenderStyleEffects(c.Stage, source, target)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchMeshRender(c *MeshRenderCommand, f *frame) Model {
	const kind = StageMeshRender
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.MeshRender == nil {
		return v.skip(f, kind, "no renderer")
	}
	if c.Texture != NullSurface && c.Texture == c.Target {
		return v.skip(f, kind, "texture is target", "surface", uint64(c.Texture))
	}
	target := v.target(f, 0, c.Target)
	if target == nil {
		return v.skip(f, kind, "target not resolved", "target", uint64(c.Target))
	}
	cam := v.cameras.Resolve3D(c.Camera)
	if cam == nil {
		return v.skip(f, kind, "camera not resolved", "camera", uint64(c.Camera))
	}
	texture := v.texture(c.Texture)
	if texture == nil {
		return v.skip(f, kind, "texture not resolved", "texture", uint64(c.Texture))
	}
	c.Stage.Process()
	v.renderers.MeshRender.RenderMesh(c.Stage, target, cam, texture)
	return v.rendered(f, c.Stage)
}

// textures resolves optional texture slots. A slot equal to the target, or
// one that does not resolve, fails the whole command.
func (v *Visitor) textures(f *frame, kind StageKind, target SurfaceHandle, hs [4]SurfaceHandle) ([4]*Surface, bool) {
	var out [4]*Surface
	for i, h := range hs {
		if h != NullSurface && h == target {
			v.skip(f, kind, "texture is target", "slot", i, "surface", uint64(h))
			return out, false
		}
		if out[i] = v.texture(h); out[i] == nil {
			v.skip(f, kind, "texture not resolved", "slot", i, "texture", uint64(h))
			return out, false
		}
	}
	return out, true
}

func (v *Visitor) dispatchMix(c *MixCommand, f *frame) Model {
	const kind = StageMix
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.Mix == nil {
		return v.skip(f, kind, "no renderer")
	}
	if c.Mix != NullSurface && c.Mix == c.Target {
		return v.skip(f, kind, "mix texture is target", "surface", uint64(c.Mix))
	}
	target := v.target(f, 0, c.Target)
	if target == nil {
		return v.skip(f, kind, "target not resolved", "target", uint64(c.Target))
	}
	mix := v.texture(c.Mix)
	if mix == nil {
		return v.skip(f, kind, "mix texture not resolved", "texture", uint64(c.Mix))
	}
	sources, ok := v.textures(f, kind, c.Target, c.Sources)
	if !ok {
		return nil
	}
	c.Stage.Process()
	v.renderers.Mix.RenderMix(c.Stage, target, mix, sources)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchCustomShader(c *CustomShaderCommand, f *frame) Model {
	const kind = StageCustomShader
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.CustomShader == nil {
		return v.skip(f, kind, "no renderer")
	}
	target := v.target(f, 0, c.Target)
	if target == nil {
		return v.skip(f, kind, "target not resolved", "target", uint64(c.Target))
	}
	textures, ok := v.textures(f, kind, c.Target, c.Textures)
	if !ok {
		return nil
	}
	c.Stage.Process()
	v.renderers.CustomShader.RenderCustomShader(c.Stage, target, textures)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchCustomNative(c *CustomNativeCommand, f *frame) Model {
	const kind = StageCustomNative
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.CustomNative == nil {
		return v.skip(f, kind, "no renderer")
	}
	target := v.target(f, 0, c.Target)
	if target == nil {
		return v.skip(f, kind, "target not resolved", "target", uint64(c.Target))
	}
	textures, ok := v.textures(f, kind, c.Target, c.Textures)
	if !ok {
		return nil
	}
	c.Stage.Process()
	v.renderers.CustomNative.RenderCustomNative(c.Stage, target, textures)
	return v.rendered(f, c.Stage)
}

func (v *Visitor) dispatchSurfaceCopy(c *CopySurfaceCommand, f *frame) Model {
	const kind = StageSurfaceCopy
	if !v.live(f, c.Stage) {
		return nil
	}
	if v.renderers.SurfaceCopy == nil {
		return v.skip(f, kind, "no renderer")
	}
	// Reading back the main surface is allowed.
	source := v.crop(f, 0, v.surfaces.Resolve(c.Source))
	if source == nil {
		return v.skip(f, kind, "source not resolved", "source", uint64(c.Source))
	}
	c.Stage.Process()
	v.renderers.SurfaceCopy.RenderSurfaceCopy(c.Stage, source)
	return v.rendered(f, c.Stage)
}

// dispatchClear fills the target within the current viewport. It renders no
// stage.
func (v *Visitor) dispatchClear(c *ClearCommand, f *frame) Model {
	target := v.target(f, 0, c.Target)
	if target == nil {
		f.report.Skipped++
		Logger().Warn("trellis: skip clear command: target not resolved", "index", f.index, "target", uint64(c.Target))
		return nil
	}
	if target.Image != nil {
		target.Image.Fill(c.Colour.toRGBA())
	}
	return nil
}

func (v *Visitor) dispatchViewport(c *ViewportCommand, f *frame) Model {
	if c.Reset {
		f.viewport = Rect{}
	} else {
		f.viewport = c.Viewport
	}
	return nil
}
