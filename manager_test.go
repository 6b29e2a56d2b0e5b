package trellis

import (
	"errors"
	"testing"
)

func TestManagerHandlesUnique(t *testing.T) {
	m := NewStageManager(nil)
	a, _ := m.CreateDraw(DrawStageConfig{})
	b, _ := m.CreateBloom(BloomConfig{})
	c, _ := m.CreateMix(MixConfig{})
	if a.Handle() != 1 || b.Handle() != 2 || c.Handle() != 3 {
		t.Fatalf("handles = %d %d %d, want 1 2 3", a.Handle(), b.Handle(), c.Handle())
	}
	if err := m.Destroy(b.Handle()); err != nil {
		t.Fatal(err)
	}
	d, _ := m.CreateBlur2D(BlurConfig{})
	if d.Handle() != 4 {
		t.Errorf("handle after destroy = %d, want 4 (never reused)", d.Handle())
	}
	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}
}

func TestManagerCreateEveryKind(t *testing.T) {
	m := NewStageManager(nil)
	var models []Model
	add := func(s Model, err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		models = append(models, s)
	}
	add(m.CreateDraw(DrawStageConfig{}))
	add(m.CreateDistortion(DistortionStageConfig{}))
	add(m.CreateBloom(BloomConfig{}))
	add(m.CreateBlur2D(BlurConfig{}))
	add(m.CreateBlur1D(Blur1DConfig{}))
	add(m.CreateColourEffects(DefaultColourEffectsConfig()))
	add(m.CreateStyleEffects(StyleEffectsConfig{}))
	add(m.CreateMeshRender(MeshRenderConfig{}))
	add(m.CreateMix(MixConfig{}))
	add(m.CreateCustomShader(nil))
	add(m.CreateCustomNative(nil))
	add(m.CreateSurfaceCopy(nil))

	kinds := make(map[StageKind]bool)
	for _, s := range models {
		if s.State() != StageActive {
			t.Errorf("stage %d (%s) state = %s, want active", s.Handle(), s.Kind(), s.State())
		}
		got, ok := m.Get(s.Handle())
		if !ok || got != s {
			t.Errorf("Get(%d) = %v, %v", s.Handle(), got, ok)
		}
		kinds[s.Kind()] = true
	}
	if len(kinds) != int(stageKindCount) {
		t.Errorf("created %d distinct kinds, want %d", len(kinds), stageKindCount)
	}
}

// bloomCountingFactory overrides one constructor of the default factory.
type bloomCountingFactory struct {
	DeviceFactory
	blooms int
}

func (f *bloomCountingFactory) NewBloom(h StageHandle, cfg BloomConfig) *BloomStage {
	f.blooms++
	return f.DeviceFactory.NewBloom(h, cfg)
}

func TestManagerCustomFactory(t *testing.T) {
	f := &bloomCountingFactory{}
	m := NewStageManager(f)
	_, _ = m.CreateBloom(BloomConfig{})
	_, _ = m.CreateDraw(DrawStageConfig{})
	if f.blooms != 1 {
		t.Errorf("factory built %d bloom stages, want 1", f.blooms)
	}
}

func TestManagerFactoryCapacity(t *testing.T) {
	m := NewStageManager(DeviceFactory{Capacity: QueueCapacity{Requests: 8, Vertices: 32, Indices: 48}})
	s, _ := m.CreateDraw(DrawStageConfig{})
	if c := s.Dynamic().Capacity(); c.Requests != 8 || c.Vertices != 32 || c.Indices != 48 {
		t.Errorf("capacity = %+v", c)
	}
	own, _ := m.CreateDraw(DrawStageConfig{Capacity: QueueCapacity{Requests: 2}})
	if c := own.Dynamic().Capacity(); c.Requests != 2 || c.Vertices != defaultQueueVertices {
		t.Errorf("explicit capacity = %+v", c)
	}
}

func TestManagerDestroy(t *testing.T) {
	dev := &countingDevice{}
	m := NewStageManager(DeviceFactory{Device: dev})
	s, _ := m.CreateDraw(DrawStageConfig{})
	req := colouredQuad(0, 0)
	_ = s.Add(&req)
	s.Process()

	if err := m.Destroy(s.Handle()); err != nil {
		t.Fatal(err)
	}
	if !s.Destroyed() {
		t.Error("stage not destroyed")
	}
	if dev.releases != 2 {
		t.Errorf("releases = %d, want 2", dev.releases)
	}
	if _, ok := m.Get(s.Handle()); ok {
		t.Error("destroyed stage still registered")
	}

	err := m.Destroy(s.Handle())
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("second Destroy error = %v, want ErrUnknownStage", err)
	}
	if dev.releases != 2 {
		t.Errorf("releases after second Destroy = %d, want 2", dev.releases)
	}
	if err := m.Destroy(999); !errors.Is(err, ErrUnknownStage) {
		t.Errorf("Destroy(999) error = %v", err)
	}
}

func TestManagerUpdateOrder(t *testing.T) {
	m := NewStageManager(nil)
	var order []StageHandle
	for range 5 {
		s, _ := m.CreateCustomNative(nil)
		h := s.Handle()
		s.OnUpdate = func(float32) { order = append(order, h) }
	}
	_ = m.Destroy(3)
	m.Update(0.016)
	want := []StageHandle{1, 2, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("update order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("update order = %v, want %v", order, want)
		}
	}
}

func TestManagerAutoClear(t *testing.T) {
	m := NewStageManager(nil)
	auto, _ := m.CreateDraw(DrawStageConfig{AutoClear: true})
	keep, _ := m.CreateDraw(DrawStageConfig{})
	dist, _ := m.CreateDistortion(DistortionStageConfig{AutoClear: true})
	for _, q := range []*RequestQueue{auto.Dynamic(), keep.Dynamic(), dist.Dynamic(), auto.Persistent()} {
		mustAdd(t, q, colouredQuad(0, 0))
	}

	m.ClearAutoClearQueues()

	if auto.Dynamic().Len() != 0 || dist.Dynamic().Len() != 0 {
		t.Error("auto-clear dynamic queues not emptied")
	}
	if keep.Dynamic().Len() != 1 {
		t.Error("queue without AutoClear was emptied")
	}
	if auto.Persistent().Len() != 1 {
		t.Error("persistent queue was emptied")
	}

	_ = m.Destroy(auto.Handle())
	m.ClearAutoClearQueues()
}

func TestManagerShutdown(t *testing.T) {
	dev := &countingDevice{}
	m := NewStageManager(DeviceFactory{Device: dev})
	s, _ := m.CreateDraw(DrawStageConfig{})
	bloom, _ := m.CreateBloom(BloomConfig{})
	req := colouredQuad(0, 0)
	_ = s.Add(&req)
	s.Process()

	m.Shutdown(false)
	m.Shutdown(false)
	if !m.Closed() || m.Len() != 0 {
		t.Fatalf("closed = %v, len = %d", m.Closed(), m.Len())
	}
	if !s.Destroyed() || !bloom.Destroyed() {
		t.Error("Shutdown left stages alive")
	}
	if dev.releases != 2 {
		t.Errorf("releases = %d, want 2", dev.releases)
	}

	if _, err := m.CreateDraw(DrawStageConfig{}); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Create after Shutdown error = %v", err)
	}
	if err := m.Destroy(s.Handle()); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Destroy after Shutdown error = %v", err)
	}

	m.ReInitialise(false)
	if m.Closed() {
		t.Fatal("ReInitialise did not reopen the manager")
	}
	s2, err := m.CreateDraw(DrawStageConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if s2.Handle() != 3 {
		t.Errorf("handle after ReInitialise = %d, want 3", s2.Handle())
	}
}

func TestManagerShutdownDeviceLost(t *testing.T) {
	dev := &countingDevice{}
	m := NewStageManager(DeviceFactory{Device: dev})
	s, _ := m.CreateDraw(DrawStageConfig{})
	req := colouredQuad(0, 0)
	_ = s.Add(&req)
	s.Process()

	m.Shutdown(true)
	if dev.releases != 0 {
		t.Errorf("releases = %d after device loss, want 0", dev.releases)
	}
	if !s.Destroyed() {
		t.Error("stage not destroyed")
	}
}

func TestManagerReInitialiseReleasesStages(t *testing.T) {
	m := NewStageManager(nil)
	s, _ := m.CreateBlur1D(Blur1DConfig{})
	m.ReInitialise(false)
	if !s.Destroyed() || m.Len() != 0 {
		t.Errorf("destroyed = %v, len = %d", s.Destroyed(), m.Len())
	}
}
