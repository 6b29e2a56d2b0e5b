package trellis

import "github.com/hajimehoshi/ebiten/v2"

// --- Bloom ---

// BloomConfig parameterises a bloom pass.
type BloomConfig struct {
	// Threshold is the luminance above which pixels bloom, in [0, 1].
	Threshold float64
	// Intensity scales the blurred highlights added back over the source.
	Intensity float64
	// Radius is the blur radius of the highlights in pixels.
	Radius float64
}

// BloomStage extracts bright pixels from a source, blurs them and adds them
// over the source into the target.
type BloomStage struct {
	stageBase
	transition
	cfg BloomConfig

	bright *ebiten.Image
	blur   kawase
}

// NewBloomStage builds a bloom stage.
func NewBloomStage(h StageHandle, cfg BloomConfig) *BloomStage {
	return &BloomStage{stageBase: newStageBase(h, StageBloom), cfg: cfg}
}

// Config returns the current, possibly mid-transition, configuration.
func (s *BloomStage) Config() BloomConfig { return s.cfg }

// SetConfig transitions every parameter to cfg over seconds.
func (s *BloomStage) SetConfig(cfg BloomConfig, seconds float32) {
	s.start(seconds,
		tweenTarget{&s.cfg.Threshold, cfg.Threshold},
		tweenTarget{&s.cfg.Intensity, cfg.Intensity},
		tweenTarget{&s.cfg.Radius, cfg.Radius},
	)
}

func (s *BloomStage) Update(dt float32) { s.update(dt) }
func (s *BloomStage) Process()          {}

// Release frees the scratch images exactly once.
func (s *BloomStage) Release(resourcesInvalidated bool) {
	if !s.markDestroyed() {
		return
	}
	s.bright = releaseImage(s.bright, resourcesInvalidated)
	s.blur.release(resourcesInvalidated)
}

// --- Blur 2D ---

// BlurConfig parameterises a two-dimensional blur.
type BlurConfig struct {
	Radius float64
	// Mix blends between the source (0) and the fully blurred result (1).
	Mix float64
}

// Blur2DStage applies an iterative Kawase blur.
type Blur2DStage struct {
	stageBase
	transition
	cfg BlurConfig

	blurred *ebiten.Image
	blur    kawase
}

// NewBlur2DStage builds a 2D blur stage.
func NewBlur2DStage(h StageHandle, cfg BlurConfig) *Blur2DStage {
	return &Blur2DStage{stageBase: newStageBase(h, StageBlur2D), cfg: cfg}
}

// Config returns the current, possibly mid-transition, configuration.
func (s *Blur2DStage) Config() BlurConfig { return s.cfg }

// SetConfig transitions every parameter to cfg over seconds.
func (s *Blur2DStage) SetConfig(cfg BlurConfig, seconds float32) {
	s.start(seconds,
		tweenTarget{&s.cfg.Radius, cfg.Radius},
		tweenTarget{&s.cfg.Mix, cfg.Mix},
	)
}

func (s *Blur2DStage) Update(dt float32) { s.update(dt) }
func (s *Blur2DStage) Process()          {}

// Release frees the scratch images exactly once.
func (s *Blur2DStage) Release(resourcesInvalidated bool) {
	if !s.markDestroyed() {
		return
	}
	s.blurred = releaseImage(s.blurred, resourcesInvalidated)
	s.blur.release(resourcesInvalidated)
}

// --- Blur 1D ---

// Blur1DConfig parameterises a directional blur.
type Blur1DConfig struct {
	// Direction is the blur axis. It is normalised at render time; a zero
	// vector blurs horizontally.
	Direction Vec2
	Radius    float64
	Mix       float64
}

// Blur1DStage blurs along a single direction.
type Blur1DStage struct {
	stageBase
	transition
	cfg Blur1DConfig

	uniforms map[string]any
	dir      [2]float32
}

// NewBlur1DStage builds a directional blur stage.
func NewBlur1DStage(h StageHandle, cfg Blur1DConfig) *Blur1DStage {
	s := &Blur1DStage{
		stageBase: newStageBase(h, StageBlur1D),
		cfg:       cfg,
		uniforms:  make(map[string]any, 3),
	}
	s.uniforms["Direction"] = s.dir[:]
	return s
}

// Config returns the current, possibly mid-transition, configuration.
func (s *Blur1DStage) Config() Blur1DConfig { return s.cfg }

// SetConfig transitions every parameter to cfg over seconds.
func (s *Blur1DStage) SetConfig(cfg Blur1DConfig, seconds float32) {
	s.start(seconds,
		tweenTarget{&s.cfg.Direction.X, cfg.Direction.X},
		tweenTarget{&s.cfg.Direction.Y, cfg.Direction.Y},
		tweenTarget{&s.cfg.Radius, cfg.Radius},
		tweenTarget{&s.cfg.Mix, cfg.Mix},
	)
}

func (s *Blur1DStage) Update(dt float32) { s.update(dt) }
func (s *Blur1DStage) Process()          {}

// Release marks the stage destroyed. It owns no GPU images.
func (s *Blur1DStage) Release(bool) { s.markDestroyed() }

// --- Colour effects ---

// ColourEffectsConfig parameterises per-pixel colour grading.
type ColourEffectsConfig struct {
	// Brightness offsets every channel, in [-1, 1].
	Brightness float64
	// Contrast scales around mid grey; 1 is unchanged.
	Contrast float64
	// Saturation scales chroma; 1 is unchanged, 0 is grayscale.
	Saturation float64
	// Negative blends towards the inverted image, in [0, 1].
	Negative float64
	// Tint is blended over the result by TintAmount.
	Tint       Color
	TintAmount float64
	// Opacity scales the output alpha.
	Opacity float64
}

// DefaultColourEffectsConfig returns the identity grading.
func DefaultColourEffectsConfig() ColourEffectsConfig {
	return ColourEffectsConfig{Contrast: 1, Saturation: 1, Tint: ColorWhite, Opacity: 1}
}

// ColourEffectsStage applies a colour matrix built from its configuration.
type ColourEffectsStage struct {
	stageBase
	transition
	cfg ColourEffectsConfig

	uniforms    map[string]any
	matrixF32   [20]float32
	matrixSlice []float32
}

// NewColourEffectsStage builds a colour effects stage.
func NewColourEffectsStage(h StageHandle, cfg ColourEffectsConfig) *ColourEffectsStage {
	s := &ColourEffectsStage{
		stageBase: newStageBase(h, StageColourEffects),
		cfg:       cfg,
		uniforms:  make(map[string]any, 1),
	}
	s.matrixSlice = s.matrixF32[:]
	s.uniforms["Matrix"] = s.matrixSlice
	return s
}

// Config returns the current, possibly mid-transition, configuration.
func (s *ColourEffectsStage) Config() ColourEffectsConfig { return s.cfg }

// SetConfig transitions every parameter to cfg over seconds.
func (s *ColourEffectsStage) SetConfig(cfg ColourEffectsConfig, seconds float32) {
	s.start(seconds,
		tweenTarget{&s.cfg.Brightness, cfg.Brightness},
		tweenTarget{&s.cfg.Contrast, cfg.Contrast},
		tweenTarget{&s.cfg.Saturation, cfg.Saturation},
		tweenTarget{&s.cfg.Negative, cfg.Negative},
		tweenTarget{&s.cfg.Tint.R, cfg.Tint.R},
		tweenTarget{&s.cfg.Tint.G, cfg.Tint.G},
		tweenTarget{&s.cfg.Tint.B, cfg.Tint.B},
		tweenTarget{&s.cfg.Tint.A, cfg.Tint.A},
		tweenTarget{&s.cfg.TintAmount, cfg.TintAmount},
		tweenTarget{&s.cfg.Opacity, cfg.Opacity},
	)
}

func (s *ColourEffectsStage) Update(dt float32) { s.update(dt) }

// Process rebuilds the colour matrix uniform from the current parameters.
func (s *ColourEffectsStage) Process() {
	m := s.cfg.Matrix()
	for i, v := range m {
		s.matrixF32[i] = float32(v)
	}
}

// Release marks the stage destroyed. It owns no GPU images.
func (s *ColourEffectsStage) Release(bool) { s.markDestroyed() }

// Matrix composes the configuration into a row-major 4x5 colour matrix:
// saturation, then contrast, then brightness, then negative, then tint, with
// opacity applied to alpha last.
func (c ColourEffectsConfig) Matrix() [20]float64 {
	m := identityColourMatrix

	s := c.Saturation
	sr := (1 - s) * 0.299
	sg := (1 - s) * 0.587
	sb := (1 - s) * 0.114
	m = multiplyColourMatrix([20]float64{
		sr + s, sg, sb, 0, 0,
		sr, sg + s, sb, 0, 0,
		sr, sg, sb + s, 0, 0,
		0, 0, 0, 1, 0,
	}, m)

	k := c.Contrast
	t := (1.0 - k) / 2.0
	m = multiplyColourMatrix([20]float64{
		k, 0, 0, 0, t,
		0, k, 0, 0, t,
		0, 0, k, 0, t,
		0, 0, 0, 1, 0,
	}, m)

	b := c.Brightness
	m = multiplyColourMatrix([20]float64{
		1, 0, 0, 0, b,
		0, 1, 0, 0, b,
		0, 0, 1, 0, b,
		0, 0, 0, 1, 0,
	}, m)

	// out = (1-n)*x + n*(1-x) = (1-2n)*x + n
	n := c.Negative
	g := 1 - 2*n
	m = multiplyColourMatrix([20]float64{
		g, 0, 0, 0, n,
		0, g, 0, 0, n,
		0, 0, g, 0, n,
		0, 0, 0, 1, 0,
	}, m)

	// out = (1-a)*x + a*x*tint
	a := c.TintAmount * c.Tint.A
	m = multiplyColourMatrix([20]float64{
		1 - a + a*c.Tint.R, 0, 0, 0, 0,
		0, 1 - a + a*c.Tint.G, 0, 0, 0,
		0, 0, 1 - a + a*c.Tint.B, 0, 0,
		0, 0, 0, c.Opacity, 0,
	}, m)
	return m
}

var identityColourMatrix = [20]float64{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// multiplyColourMatrix returns a applied after b. Both are 4x5 row-major
// matrices with an implicit fifth row (0, 0, 0, 0, 1).
func multiplyColourMatrix(a, b [20]float64) [20]float64 {
	var r [20]float64
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			var v float64
			for k := 0; k < 4; k++ {
				v += a[row*5+k] * b[k*5+col]
			}
			if col == 4 {
				v += a[row*5+4]
			}
			r[row*5+col] = v
		}
	}
	return r
}

// --- Style effects ---

// StyleEffectsConfig parameterises stylised post effects. Zero values
// disable each effect.
type StyleEffectsConfig struct {
	// PixelSize quantises the image into blocks of this many pixels.
	PixelSize float64
	// Scanlines darkens every ScanlineSpacing-th row by this amount, in [0, 1].
	Scanlines       float64
	ScanlineSpacing float64
	// Vignette darkens the corners by this amount, in [0, 1].
	Vignette float64
}

// StyleEffectsStage applies pixellation, scanlines and a vignette.
type StyleEffectsStage struct {
	stageBase
	transition
	cfg StyleEffectsConfig

	uniforms map[string]any
}

// NewStyleEffectsStage builds a style effects stage.
func NewStyleEffectsStage(h StageHandle, cfg StyleEffectsConfig) *StyleEffectsStage {
	return &StyleEffectsStage{
		stageBase: newStageBase(h, StageStyleEffects),
		cfg:       cfg,
		uniforms:  make(map[string]any, 5),
	}
}

// Config returns the current, possibly mid-transition, configuration.
func (s *StyleEffectsStage) Config() StyleEffectsConfig { return s.cfg }

// SetConfig transitions every parameter to cfg over seconds.
func (s *StyleEffectsStage) SetConfig(cfg StyleEffectsConfig, seconds float32) {
	s.start(seconds,
		tweenTarget{&s.cfg.PixelSize, cfg.PixelSize},
		tweenTarget{&s.cfg.Scanlines, cfg.Scanlines},
		tweenTarget{&s.cfg.ScanlineSpacing, cfg.ScanlineSpacing},
		tweenTarget{&s.cfg.Vignette, cfg.Vignette},
	)
}

func (s *StyleEffectsStage) Update(dt float32) { s.update(dt) }

// Process refreshes the shader uniforms from the current parameters.
// Scalar float32 boxing is unavoidable with Ebitengine's uniform API.
func (s *StyleEffectsStage) Process() {
	s.uniforms["PixelSize"] = float32(max(s.cfg.PixelSize, 1))
	s.uniforms["Scanlines"] = float32(clamp01(s.cfg.Scanlines))
	s.uniforms["ScanlineSpacing"] = float32(max(s.cfg.ScanlineSpacing, 1))
	s.uniforms["Vignette"] = float32(clamp01(s.cfg.Vignette))
}

// Release marks the stage destroyed. It owns no GPU images.
func (s *StyleEffectsStage) Release(bool) { s.markDestroyed() }
