package trellis

import "github.com/hajimehoshi/ebiten/v2"

// DrawStageConfig configures a DrawStage.
type DrawStageConfig struct {
	// AutoClear empties the dynamic queue after every render pass.
	AutoClear bool
	// Blend is the compositing mode used when drawing into the target.
	Blend BlendMode
	// Capacity is the initial arena size of both queues.
	Capacity QueueCapacity
}

// DrawStage renders queued 2D geometry into a target surface through a
// camera. It owns a dynamic and a persistent queue.
type DrawStage struct {
	stageBase
	queueStage
	cfg DrawStageConfig
}

// NewDrawStage builds a draw stage. Stages are normally created through
// StageManager.CreateDraw, which assigns the handle.
func NewDrawStage(h StageHandle, cfg DrawStageConfig, device BufferDevice) *DrawStage {
	return &DrawStage{
		stageBase:  newStageBase(h, StageDraw),
		queueStage: newQueueStage(cfg.AutoClear, cfg.Capacity, device),
		cfg:        cfg,
	}
}

// Config returns the stage configuration.
func (s *DrawStage) Config() DrawStageConfig { return s.cfg }

// SetBlend changes the compositing mode.
func (s *DrawStage) SetBlend(b BlendMode) { s.cfg.Blend = b }

// Update is a no-op; draw stages have no timed parameters.
func (s *DrawStage) Update(float32) {}

// Process sorts, batches and blits the queued geometry.
func (s *DrawStage) Process() {
	if s.state == StageDestroyed {
		return
	}
	s.process()
}

// Release frees the stage buffers exactly once.
func (s *DrawStage) Release(resourcesInvalidated bool) {
	if !s.markDestroyed() {
		return
	}
	s.release(resourcesInvalidated)
}

// DistortionStageConfig configures a DistortionStage.
type DistortionStageConfig struct {
	AutoClear bool
	Capacity  QueueCapacity
	// Strength scales the displacement in pixels per unit of height slope.
	Strength float64
}

// DistortionStage renders queued geometry into an offscreen height map and
// then displaces the source surface by the height map's gradient.
type DistortionStage struct {
	stageBase
	queueStage
	transition
	cfg DistortionStageConfig

	heightMap *ebiten.Image
}

// NewDistortionStage builds a distortion stage.
func NewDistortionStage(h StageHandle, cfg DistortionStageConfig, device BufferDevice) *DistortionStage {
	return &DistortionStage{
		stageBase:  newStageBase(h, StageDistortion),
		queueStage: newQueueStage(cfg.AutoClear, cfg.Capacity, device),
		cfg:        cfg,
	}
}

// Config returns the current, possibly mid-transition, configuration.
func (s *DistortionStage) Config() DistortionStageConfig { return s.cfg }

// SetStrength transitions the displacement strength over seconds.
func (s *DistortionStage) SetStrength(strength float64, seconds float32) {
	s.start(seconds, tweenTarget{&s.cfg.Strength, strength})
}

// Update advances the strength transition.
func (s *DistortionStage) Update(dt float32) { s.update(dt) }

// Process sorts, batches and blits the queued geometry.
func (s *DistortionStage) Process() {
	if s.state == StageDestroyed {
		return
	}
	s.process()
}

// Release frees the stage buffers and height map exactly once.
func (s *DistortionStage) Release(resourcesInvalidated bool) {
	if !s.markDestroyed() {
		return
	}
	s.release(resourcesInvalidated)
	s.heightMap = releaseImage(s.heightMap, resourcesInvalidated)
}

// ensureHeightMap returns a cleared height map of exactly (w, h) pixels.
func (s *DistortionStage) ensureHeightMap(w, h int) *ebiten.Image {
	s.heightMap = ensureImage(s.heightMap, w, h)
	return s.heightMap
}

// ensureImage returns img cleared when it already has size (w, h), otherwise
// a fresh image of that size. The replaced image is deallocated.
func ensureImage(img *ebiten.Image, w, h int) *ebiten.Image {
	if img != nil {
		b := img.Bounds()
		if b.Dx() == w && b.Dy() == h {
			img.Clear()
			return img
		}
		img.Deallocate()
	}
	return ebiten.NewImage(w, h)
}

// releaseImage deallocates img unless the device was lost. It always returns
// nil so callers can clear their field in one statement.
func releaseImage(img *ebiten.Image, deviceLost bool) *ebiten.Image {
	if img != nil && !deviceLost {
		img.Deallocate()
	}
	return nil
}
