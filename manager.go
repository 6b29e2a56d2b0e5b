package trellis

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// StageFactory builds stage models for a StageManager. The manager assigns
// the handle; the factory decides how GPU-side resources are created.
type StageFactory interface {
	NewDraw(h StageHandle, cfg DrawStageConfig) *DrawStage
	NewDistortion(h StageHandle, cfg DistortionStageConfig) *DistortionStage
	NewBloom(h StageHandle, cfg BloomConfig) *BloomStage
	NewBlur2D(h StageHandle, cfg BlurConfig) *Blur2DStage
	NewBlur1D(h StageHandle, cfg Blur1DConfig) *Blur1DStage
	NewColourEffects(h StageHandle, cfg ColourEffectsConfig) *ColourEffectsStage
	NewStyleEffects(h StageHandle, cfg StyleEffectsConfig) *StyleEffectsStage
	NewMeshRender(h StageHandle, cfg MeshRenderConfig) *MeshRenderStage
	NewMix(h StageHandle, cfg MixConfig) *MixStage
	NewCustomShader(h StageHandle, shader *ebiten.Shader) *CustomShaderStage
	NewCustomNative(h StageHandle, fn NativeFunc) *CustomNativeStage
	NewSurfaceCopy(h StageHandle, fn CopyFunc) *SurfaceCopyStage
}

// DeviceFactory is the default StageFactory. Geometry stages allocate their
// buffers from Device; a nil Device uses host memory. Capacity is used for
// stage queues configured without one.
type DeviceFactory struct {
	Device   BufferDevice
	Capacity QueueCapacity
}

func (f DeviceFactory) NewDraw(h StageHandle, cfg DrawStageConfig) *DrawStage {
	if cfg.Capacity == (QueueCapacity{}) {
		cfg.Capacity = f.Capacity
	}
	return NewDrawStage(h, cfg, f.Device)
}

func (f DeviceFactory) NewDistortion(h StageHandle, cfg DistortionStageConfig) *DistortionStage {
	if cfg.Capacity == (QueueCapacity{}) {
		cfg.Capacity = f.Capacity
	}
	return NewDistortionStage(h, cfg, f.Device)
}

func (f DeviceFactory) NewBloom(h StageHandle, cfg BloomConfig) *BloomStage {
	return NewBloomStage(h, cfg)
}

func (f DeviceFactory) NewBlur2D(h StageHandle, cfg BlurConfig) *Blur2DStage {
	return NewBlur2DStage(h, cfg)
}

func (f DeviceFactory) NewBlur1D(h StageHandle, cfg Blur1DConfig) *Blur1DStage {
	return NewBlur1DStage(h, cfg)
}

func (f DeviceFactory) NewColourEffects(h StageHandle, cfg ColourEffectsConfig) *ColourEffectsStage {
	return NewColourEffectsStage(h, cfg)
}

func (f DeviceFactory) NewStyleEffects(h StageHandle, cfg StyleEffectsConfig) *StyleEffectsStage {
	return NewStyleEffectsStage(h, cfg)
}

func (f DeviceFactory) NewMeshRender(h StageHandle, cfg MeshRenderConfig) *MeshRenderStage {
	return NewMeshRenderStage(h, cfg, f.Device)
}

func (f DeviceFactory) NewMix(h StageHandle, cfg MixConfig) *MixStage {
	return NewMixStage(h, cfg)
}

func (f DeviceFactory) NewCustomShader(h StageHandle, shader *ebiten.Shader) *CustomShaderStage {
	return NewCustomShaderStage(h, shader)
}

func (f DeviceFactory) NewCustomNative(h StageHandle, fn NativeFunc) *CustomNativeStage {
	return NewCustomNativeStage(h, fn)
}

func (f DeviceFactory) NewSurfaceCopy(h StageHandle, fn CopyFunc) *SurfaceCopyStage {
	return NewSurfaceCopyStage(h, fn)
}

// StageManager is the handle registry and lifecycle authority for stage
// models. Handles start at 1 and are never reused, so a stale handle can
// not alias a newer stage.
type StageManager struct {
	factory StageFactory

	stages map[StageHandle]Model
	order  []Model // creation order, for deterministic Update
	// dynamic queues emptied after every frame
	autoClear map[StageHandle]*RequestQueue

	next   StageHandle
	closed bool
}

// NewStageManager creates a manager. A nil factory uses DeviceFactory with
// host buffers.
func NewStageManager(factory StageFactory) *StageManager {
	if factory == nil {
		factory = DeviceFactory{}
	}
	return &StageManager{
		factory:   factory,
		stages:    make(map[StageHandle]Model),
		autoClear: make(map[StageHandle]*RequestQueue),
		next:      1,
	}
}

// allocate reserves the next handle.
func (m *StageManager) allocate(op string) (StageHandle, error) {
	if m.closed {
		return 0, fmt.Errorf("trellis: %s: %w", op, ErrManagerClosed)
	}
	h := m.next
	m.next++
	return h, nil
}

// register activates and records a freshly built stage.
func (m *StageManager) register(s Model) {
	s.activate()
	m.stages[s.Handle()] = s
	m.order = append(m.order, s)
	Logger().Debug("trellis: stage created", "stage", uint64(s.Handle()), "kind", s.Kind().String())
}

// CreateDraw creates and registers a draw stage.
func (m *StageManager) CreateDraw(cfg DrawStageConfig) (*DrawStage, error) {
	h, err := m.allocate("create draw stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewDraw(h, cfg)
	m.register(s)
	if cfg.AutoClear {
		m.autoClear[h] = s.Dynamic()
	}
	return s, nil
}

// CreateDistortion creates and registers a distortion stage.
func (m *StageManager) CreateDistortion(cfg DistortionStageConfig) (*DistortionStage, error) {
	h, err := m.allocate("create distortion stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewDistortion(h, cfg)
	m.register(s)
	if cfg.AutoClear {
		m.autoClear[h] = s.Dynamic()
	}
	return s, nil
}

// CreateBloom creates and registers a bloom stage.
func (m *StageManager) CreateBloom(cfg BloomConfig) (*BloomStage, error) {
	h, err := m.allocate("create bloom stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewBloom(h, cfg)
	m.register(s)
	return s, nil
}

// CreateBlur2D creates and registers a 2D blur stage.
func (m *StageManager) CreateBlur2D(cfg BlurConfig) (*Blur2DStage, error) {
	h, err := m.allocate("create blur stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewBlur2D(h, cfg)
	m.register(s)
	return s, nil
}

// CreateBlur1D creates and registers a directional blur stage.
func (m *StageManager) CreateBlur1D(cfg Blur1DConfig) (*Blur1DStage, error) {
	h, err := m.allocate("create blur 1d stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewBlur1D(h, cfg)
	m.register(s)
	return s, nil
}

// CreateColourEffects creates and registers a colour effects stage.
func (m *StageManager) CreateColourEffects(cfg ColourEffectsConfig) (*ColourEffectsStage, error) {
	h, err := m.allocate("create colour effects stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewColourEffects(h, cfg)
	m.register(s)
	return s, nil
}

// CreateStyleEffects creates and registers a style effects stage.
func (m *StageManager) CreateStyleEffects(cfg StyleEffectsConfig) (*StyleEffectsStage, error) {
	h, err := m.allocate("create style effects stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewStyleEffects(h, cfg)
	m.register(s)
	return s, nil
}

// CreateMeshRender creates and registers a mesh render stage.
func (m *StageManager) CreateMeshRender(cfg MeshRenderConfig) (*MeshRenderStage, error) {
	h, err := m.allocate("create mesh render stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewMeshRender(h, cfg)
	m.register(s)
	return s, nil
}

// CreateMix creates and registers a mix stage.
func (m *StageManager) CreateMix(cfg MixConfig) (*MixStage, error) {
	h, err := m.allocate("create mix stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewMix(h, cfg)
	m.register(s)
	return s, nil
}

// CreateCustomShader creates and registers a custom shader stage.
func (m *StageManager) CreateCustomShader(shader *ebiten.Shader) (*CustomShaderStage, error) {
	h, err := m.allocate("create custom shader stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewCustomShader(h, shader)
	m.register(s)
	return s, nil
}

// CreateCustomNative creates and registers a custom native stage.
func (m *StageManager) CreateCustomNative(fn NativeFunc) (*CustomNativeStage, error) {
	h, err := m.allocate("create custom native stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewCustomNative(h, fn)
	m.register(s)
	return s, nil
}

// CreateSurfaceCopy creates and registers a surface copy stage.
func (m *StageManager) CreateSurfaceCopy(fn CopyFunc) (*SurfaceCopyStage, error) {
	h, err := m.allocate("create surface copy stage")
	if err != nil {
		return nil, err
	}
	s := m.factory.NewSurfaceCopy(h, fn)
	m.register(s)
	return s, nil
}

// Get returns the stage registered under h.
func (m *StageManager) Get(h StageHandle) (Model, bool) {
	s, ok := m.stages[h]
	return s, ok
}

// Len returns the number of registered stages.
func (m *StageManager) Len() int { return len(m.stages) }

// Destroy releases the stage's resources and unregisters it. Commands that
// still reference the stage are skipped at dispatch.
func (m *StageManager) Destroy(h StageHandle) error {
	if m.closed {
		return fmt.Errorf("trellis: destroy stage %d: %w", h, ErrManagerClosed)
	}
	s, ok := m.stages[h]
	if !ok {
		return fmt.Errorf("trellis: destroy stage %d: %w", h, ErrUnknownStage)
	}
	s.Release(false)
	delete(m.stages, h)
	delete(m.autoClear, h)
	for i, o := range m.order {
		if o == s {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	Logger().Debug("trellis: stage destroyed", "stage", uint64(h), "kind", s.Kind().String())
	return nil
}

// Update advances every stage's timed parameters in creation order.
func (m *StageManager) Update(dt float32) {
	for _, s := range m.order {
		s.Update(dt)
	}
}

// ClearAutoClearQueues empties the dynamic queue of every stage created
// with AutoClear. Called once per frame after the command walk.
func (m *StageManager) ClearAutoClearQueues() {
	for _, q := range m.autoClear {
		q.Clear()
	}
}

// Shutdown releases every stage and closes the manager. Later Create and
// Destroy calls fail with ErrManagerClosed. When resourcesInvalidated is set
// the GPU device was already lost and device objects are dropped.
func (m *StageManager) Shutdown(resourcesInvalidated bool) {
	if m.closed {
		return
	}
	m.releaseAll(resourcesInvalidated)
	m.closed = true
	Logger().Debug("trellis: stage manager shut down", "invalidated", resourcesInvalidated)
}

// ReInitialise releases every stage and leaves the manager open for new
// stages. Handles keep counting from where they were.
func (m *StageManager) ReInitialise(resourcesInvalidated bool) {
	m.releaseAll(resourcesInvalidated)
	m.closed = false
	Logger().Debug("trellis: stage manager reinitialised", "invalidated", resourcesInvalidated)
}

// Closed reports whether Shutdown has been called.
func (m *StageManager) Closed() bool { return m.closed }

func (m *StageManager) releaseAll(resourcesInvalidated bool) {
	for _, s := range m.order {
		s.Release(resourcesInvalidated)
	}
	clear(m.stages)
	clear(m.autoClear)
	clear(m.order)
	m.order = m.order[:0]
}
