package trellis

import "fmt"

// Command is one ordered instruction in a frame's render graph. Each
// concrete command type routes itself to its own visitor method, so dispatch
// is a direct call chosen by the static command type.
type Command interface {
	// accept dispatches the command and returns the model it rendered, or
	// nil when the command rendered no stage or was skipped.
	accept(v *Visitor, f *frame) Model
}

// DrawCommand renders a draw stage's geometry into Target through Camera.
type DrawCommand struct {
	Stage  *DrawStage
	Target SurfaceHandle
	Camera CameraHandle
}

// DistortionCommand renders a distortion stage: Source displaced by the
// stage's geometry, drawn into Target.
type DistortionCommand struct {
	Stage  *DistortionStage
	Target SurfaceHandle
	Source SurfaceHandle
	Camera CameraHandle
}

// BloomCommand applies a bloom stage from Source into Target.
type BloomCommand struct {
	Stage  *BloomStage
	Source SurfaceHandle
	Target SurfaceHandle
}

// BlurCommand applies a 2D blur stage from Source into Target.
type BlurCommand struct {
	Stage  *Blur2DStage
	Source SurfaceHandle
	Target SurfaceHandle
}

// Blur1DCommand applies a directional blur stage from Source into Target.
type Blur1DCommand struct {
	Stage  *Blur1DStage
	Source SurfaceHandle
	Target SurfaceHandle
}

// ColourEffectsCommand applies a colour effects stage from Source into Target.
type ColourEffectsCommand struct {
	Stage  *ColourEffectsStage
	Source SurfaceHandle
	Target SurfaceHandle
}

// StyleEffectsCommand applies a style effects stage from Source into Target.
type StyleEffectsCommand struct {
	Stage  *StyleEffectsStage
	Source SurfaceHandle
	Target SurfaceHandle
}

// MeshRenderCommand renders a mesh stage through a 3D camera. Texture is
// optional.
type MeshRenderCommand struct {
	Stage   *MeshRenderStage
	Target  SurfaceHandle
	Camera  CameraHandle
	Texture SurfaceHandle
}

// MixCommand blends up to four optional sources into Target, weighted by
// the optional Mix texture.
type MixCommand struct {
	Stage   *MixStage
	Target  SurfaceHandle
	Mix     SurfaceHandle
	Sources [4]SurfaceHandle
}

// CustomShaderCommand runs a custom shader stage into Target.
type CustomShaderCommand struct {
	Stage    *CustomShaderStage
	Target   SurfaceHandle
	Textures [4]SurfaceHandle
}

// CustomNativeCommand runs a custom native stage into Target.
type CustomNativeCommand struct {
	Stage    *CustomNativeStage
	Target   SurfaceHandle
	Textures [4]SurfaceHandle
}

// CopySurfaceCommand reads Source back through a surface copy stage.
type CopySurfaceCommand struct {
	Stage  *SurfaceCopyStage
	Source SurfaceHandle
}

// ClearCommand fills Target (within the current viewport) with Colour.
type ClearCommand struct {
	Target SurfaceHandle
	Colour Color
}

// ViewportCommand restricts later commands to Viewport, or lifts the
// restriction when Reset is set.
type ViewportCommand struct {
	Viewport Rect
	Reset    bool
}

func (c *DrawCommand) accept(v *Visitor, f *frame) Model          { return v.dispatchDraw(c, f) }
func (c *DistortionCommand) accept(v *Visitor, f *frame) Model    { return v.dispatchDistortion(c, f) }
func (c *BloomCommand) accept(v *Visitor, f *frame) Model         { return v.dispatchBloom(c, f) }
func (c *BlurCommand) accept(v *Visitor, f *frame) Model          { return v.dispatchBlur2D(c, f) }
func (c *Blur1DCommand) accept(v *Visitor, f *frame) Model        { return v.dispatchBlur1D(c, f) }
func (c *ColourEffectsCommand) accept(v *Visitor, f *frame) Model { return v.dispatchColourEffects(c, f) }
func (c *StyleEffectsCommand) accept(v *Visitor, f *frame) Model  { return v.dispatchStyleEffects(c, f) }
func (c *MeshRenderCommand) accept(v *Visitor, f *frame) Model    { return v.dispatchMeshRender(c, f) }
func (c *MixCommand) accept(v *Visitor, f *frame) Model           { return v.dispatchMix(c, f) }
func (c *CustomShaderCommand) accept(v *Visitor, f *frame) Model  { return v.dispatchCustomShader(c, f) }
func (c *CustomNativeCommand) accept(v *Visitor, f *frame) Model  { return v.dispatchCustomNative(c, f) }
func (c *CopySurfaceCommand) accept(v *Visitor, f *frame) Model   { return v.dispatchSurfaceCopy(c, f) }
func (c *ClearCommand) accept(v *Visitor, f *frame) Model         { return v.dispatchClear(c, f) }
func (c *ViewportCommand) accept(v *Visitor, f *frame) Model      { return v.dispatchViewport(c, f) }

// CommandQueue is the append-only, frame-scoped list of render commands.
// Submission methods validate their references and append nothing on error.
type CommandQueue struct {
	commands []Command
}

// NewCommandQueue creates a queue with room for capacity commands.
func NewCommandQueue(capacity int) *CommandQueue {
	return &CommandQueue{commands: make([]Command, 0, capacity)}
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int { return len(q.commands) }

// Commands returns the queued commands in submission order. The slice is
// valid until Reset.
func (q *CommandQueue) Commands() []Command { return q.commands }

// Reset drops every command, keeping capacity.
func (q *CommandQueue) Reset() {
	clear(q.commands)
	q.commands = q.commands[:0]
}

// checkStage reports a nil or destroyed stage. stage must be a typed model
// pointer; isNil is passed separately because a nil *T in an interface is
// not == nil.
func checkStage(op string, isNil bool, stage Model) error {
	if isNil {
		return fmt.Errorf("trellis: %s: %w", op, ErrNilStage)
	}
	if stage.State() == StageDestroyed {
		return fmt.Errorf("trellis: %s: stage %d: %w", op, stage.Handle(), ErrStageDestroyed)
	}
	return nil
}

func checkSurface(op, field string, h SurfaceHandle, sentinel error) error {
	if h == NullSurface {
		return fmt.Errorf("trellis: %s: %s: %w", op, field, sentinel)
	}
	return nil
}

func checkCamera(op string, h CameraHandle) error {
	if h == 0 {
		return fmt.Errorf("trellis: %s: %w", op, ErrNilCamera)
	}
	return nil
}

// firstError returns the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Draw queues a draw stage render.
func (q *CommandQueue) Draw(stage *DrawStage, target SurfaceHandle, camera CameraHandle) error {
	const op = "draw"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := firstError(
		checkSurface(op, "target", target, ErrNilTarget),
		checkCamera(op, camera),
	); err != nil {
		return err
	}
	q.commands = append(q.commands, &DrawCommand{Stage: stage, Target: target, Camera: camera})
	return nil
}

// Distortion queues a distortion stage render.
func (q *CommandQueue) Distortion(stage *DistortionStage, target, source SurfaceHandle, camera CameraHandle) error {
	const op = "distortion"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := firstError(
		checkSurface(op, "target", target, ErrNilTarget),
		checkSurface(op, "source", source, ErrNilSource),
		checkCamera(op, camera),
	); err != nil {
		return err
	}
	q.commands = append(q.commands, &DistortionCommand{Stage: stage, Target: target, Source: source, Camera: camera})
	return nil
}

// checkEffect validates the shared source/target pair of effect commands.
func checkEffect(op string, source, target SurfaceHandle) error {
	return firstError(
		checkSurface(op, "source", source, ErrNilSource),
		checkSurface(op, "target", target, ErrNilTarget),
	)
}

// Bloom queues a bloom pass.
func (q *CommandQueue) Bloom(stage *BloomStage, source, target SurfaceHandle) error {
	const op = "bloom"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkEffect(op, source, target); err != nil {
		return err
	}
	q.commands = append(q.commands, &BloomCommand{Stage: stage, Source: source, Target: target})
	return nil
}

// Blur queues a 2D blur pass.
func (q *CommandQueue) Blur(stage *Blur2DStage, source, target SurfaceHandle) error {
	const op = "blur"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkEffect(op, source, target); err != nil {
		return err
	}
	q.commands = append(q.commands, &BlurCommand{Stage: stage, Source: source, Target: target})
	return nil
}

// Blur1D queues a directional blur pass.
func (q *CommandQueue) Blur1D(stage *Blur1DStage, source, target SurfaceHandle) error {
	const op = "blur 1d"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkEffect(op, source, target); err != nil {
		return err
	}
	q.commands = append(q.commands, &Blur1DCommand{Stage: stage, Source: source, Target: target})
	return nil
}

// ColourEffects queues a colour effects pass.
func (q *CommandQueue) ColourEffects(stage *ColourEffectsStage, source, target SurfaceHandle) error {
	const op = "colour effects"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkEffect(op, source, target); err != nil {
		return err
	}
	q.commands = append(q.commands, &ColourEffectsCommand{Stage: stage, Source: source, Target: target})
	return nil
}

// StyleEffects queues a style effects pass.
func (q *CommandQueue) StyleEffects(stage *StyleEffectsStage, source, target SurfaceHandle) error {
	const op = "style effects"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkEffect(op, source, target); err != nil {
		return err
	}
	q.commands = append(q.commands, &StyleEffectsCommand{Stage: stage, Source: source, Target: target})
	return nil
}

// MeshRender queues a mesh render. texture may be NullSurface.
func (q *CommandQueue) MeshRender(stage *MeshRenderStage, target SurfaceHandle, camera CameraHandle, texture SurfaceHandle) error {
	const op = "mesh render"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := firstError(
		checkSurface(op, "target", target, ErrNilTarget),
		checkCamera(op, camera),
	); err != nil {
		return err
	}
	q.commands = append(q.commands, &MeshRenderCommand{Stage: stage, Target: target, Camera: camera, Texture: texture})
	return nil
}

// Mix queues a mix pass. mix and every source may be NullSurface.
func (q *CommandQueue) Mix(stage *MixStage, target, mix SurfaceHandle, sources [4]SurfaceHandle) error {
	const op = "mix"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkSurface(op, "target", target, ErrNilTarget); err != nil {
		return err
	}
	q.commands = append(q.commands, &MixCommand{Stage: stage, Target: target, Mix: mix, Sources: sources})
	return nil
}

// CustomShader queues a custom shader pass. Textures may be NullSurface.
func (q *CommandQueue) CustomShader(stage *CustomShaderStage, target SurfaceHandle, textures [4]SurfaceHandle) error {
	const op = "custom shader"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkSurface(op, "target", target, ErrNilTarget); err != nil {
		return err
	}
	q.commands = append(q.commands, &CustomShaderCommand{Stage: stage, Target: target, Textures: textures})
	return nil
}

// CustomNative queues a custom native pass. Textures may be NullSurface.
func (q *CommandQueue) CustomNative(stage *CustomNativeStage, target SurfaceHandle, textures [4]SurfaceHandle) error {
	const op = "custom native"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkSurface(op, "target", target, ErrNilTarget); err != nil {
		return err
	}
	q.commands = append(q.commands, &CustomNativeCommand{Stage: stage, Target: target, Textures: textures})
	return nil
}

// CopySurface queues a read-back of source.
func (q *CommandQueue) CopySurface(stage *SurfaceCopyStage, source SurfaceHandle) error {
	const op = "copy surface"
	if err := checkStage(op, stage == nil, stage); err != nil {
		return err
	}
	if err := checkSurface(op, "source", source, ErrNilSource); err != nil {
		return err
	}
	q.commands = append(q.commands, &CopySurfaceCommand{Stage: stage, Source: source})
	return nil
}

// Clear queues a fill of target with colour.
func (q *CommandQueue) Clear(target SurfaceHandle, colour Color) error {
	if err := checkSurface("clear", "target", target, ErrNilTarget); err != nil {
		return err
	}
	q.commands = append(q.commands, &ClearCommand{Target: target, Colour: colour})
	return nil
}

// SetViewport restricts later commands in this frame to vp.
func (q *CommandQueue) SetViewport(vp Rect) error {
	if vp.Empty() {
		return fmt.Errorf("trellis: set viewport: %w: %v", ErrEmptyViewport, vp)
	}
	q.commands = append(q.commands, &ViewportCommand{Viewport: vp})
	return nil
}

// ClearViewport lifts the viewport restriction for later commands.
func (q *CommandQueue) ClearViewport() {
	q.commands = append(q.commands, &ViewportCommand{Reset: true})
}
