package trellis

import "github.com/hajimehoshi/ebiten/v2"

// --- Mix ---

// MixConfig weights up to four source textures. Each source is scaled by its
// amount and by the matching channel (R, G, B, A) of the mix texture.
type MixConfig struct {
	Amounts [4]float64
}

// MixStage blends up to four sources into the target under a mix texture.
type MixStage struct {
	stageBase
	transition
	cfg MixConfig

	uniforms map[string]any
	amounts  [4]float32
	channel  [4]float32
}

// NewMixStage builds a mix stage.
func NewMixStage(h StageHandle, cfg MixConfig) *MixStage {
	s := &MixStage{
		stageBase: newStageBase(h, StageMix),
		cfg:       cfg,
		uniforms:  make(map[string]any, 4),
	}
	s.uniforms["Channel"] = s.channel[:]
	return s
}

// Config returns the current, possibly mid-transition, configuration.
func (s *MixStage) Config() MixConfig { return s.cfg }

// SetConfig transitions every amount to cfg over seconds.
func (s *MixStage) SetConfig(cfg MixConfig, seconds float32) {
	s.start(seconds,
		tweenTarget{&s.cfg.Amounts[0], cfg.Amounts[0]},
		tweenTarget{&s.cfg.Amounts[1], cfg.Amounts[1]},
		tweenTarget{&s.cfg.Amounts[2], cfg.Amounts[2]},
		tweenTarget{&s.cfg.Amounts[3], cfg.Amounts[3]},
	)
}

func (s *MixStage) Update(dt float32) { s.update(dt) }

// Process snapshots the amounts for this frame's passes.
func (s *MixStage) Process() {
	for i, a := range s.cfg.Amounts {
		s.amounts[i] = float32(a)
	}
}

// Release marks the stage destroyed. It owns no GPU images.
func (s *MixStage) Release(bool) { s.markDestroyed() }

// --- Custom shader ---

// CustomShaderStage runs a user-provided Kage shader over the target with up
// to four textures bound as imageSrc0..3. Textures must match the target size.
type CustomShaderStage struct {
	stageBase
	Shader   *ebiten.Shader
	Uniforms map[string]any

	op ebiten.DrawRectShaderOptions
}

// NewCustomShaderStage builds a custom shader stage. The stage does not own
// the shader; releasing the stage leaves it allocated.
func NewCustomShaderStage(h StageHandle, shader *ebiten.Shader) *CustomShaderStage {
	return &CustomShaderStage{
		stageBase: newStageBase(h, StageCustomShader),
		Shader:    shader,
		Uniforms:  make(map[string]any),
	}
}

func (s *CustomShaderStage) Update(float32) {}
func (s *CustomShaderStage) Process()       {}

// Release marks the stage destroyed.
func (s *CustomShaderStage) Release(bool) {
	if s.markDestroyed() {
		s.op = ebiten.DrawRectShaderOptions{}
	}
}

// --- Custom native ---

// NativeFunc renders directly with Ebitengine. Unused texture slots are nil.
type NativeFunc func(target *ebiten.Image, textures [4]*ebiten.Image)

// CustomNativeStage hands the resolved target and textures to a callback.
type CustomNativeStage struct {
	stageBase
	Func NativeFunc
	// OnUpdate, when set, receives the frame delta from Update.
	OnUpdate func(dt float32)
}

// NewCustomNativeStage builds a custom native stage.
func NewCustomNativeStage(h StageHandle, fn NativeFunc) *CustomNativeStage {
	return &CustomNativeStage{stageBase: newStageBase(h, StageCustomNative), Func: fn}
}

func (s *CustomNativeStage) Update(dt float32) {
	if s.OnUpdate != nil {
		s.OnUpdate(dt)
	}
}

func (s *CustomNativeStage) Process() {}

// Release marks the stage destroyed and drops the callbacks.
func (s *CustomNativeStage) Release(bool) {
	if s.markDestroyed() {
		s.Func = nil
		s.OnUpdate = nil
	}
}

// --- Surface copy ---

// CopyFunc receives a copy of a surface's premultiplied RGBA pixels. The
// slice is reused by the next copy.
type CopyFunc func(w, h int, pixels []byte)

// SurfaceCopyStage reads a surface back to the CPU and hands the pixels to a
// callback.
type SurfaceCopyStage struct {
	stageBase
	OnCopy CopyFunc

	pixels []byte
}

// NewSurfaceCopyStage builds a surface copy stage.
func NewSurfaceCopyStage(h StageHandle, fn CopyFunc) *SurfaceCopyStage {
	return &SurfaceCopyStage{stageBase: newStageBase(h, StageSurfaceCopy), OnCopy: fn}
}

func (s *SurfaceCopyStage) Update(float32) {}
func (s *SurfaceCopyStage) Process()       {}

// Release marks the stage destroyed and drops the pixel buffer.
func (s *SurfaceCopyStage) Release(bool) {
	if s.markDestroyed() {
		s.pixels = nil
		s.OnCopy = nil
	}
}

// pixelBuffer returns the reusable read-back buffer sized for (w, h).
func (s *SurfaceCopyStage) pixelBuffer(w, h int) []byte {
	n := w * h * 4
	if cap(s.pixels) < n {
		s.pixels = make([]byte, n)
	}
	s.pixels = s.pixels[:n]
	return s.pixels
}
