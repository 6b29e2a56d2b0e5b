package trellis

import (
	"errors"
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween/ease"
)

func TestStageKindString(t *testing.T) {
	tests := []struct {
		kind StageKind
		want string
	}{
		{StageDraw, "draw"},
		{StageBlur1D, "blur-1d"},
		{StageColourEffects, "colour-effects"},
		{StageSurfaceCopy, "surface-copy"},
		{StageKind(200), "StageKind(200)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("StageKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestStageLifecycle(t *testing.T) {
	s := NewDrawStage(3, DrawStageConfig{}, nil)
	if s.State() != StageCreated {
		t.Fatalf("new stage state = %s", s.State())
	}
	s.activate()
	if s.State() != StageActive || s.Handle() != 3 || s.Kind() != StageDraw {
		t.Fatalf("after activate: state %s handle %d kind %s", s.State(), s.Handle(), s.Kind())
	}
	s.Release(false)
	if !s.Destroyed() {
		t.Fatal("stage not destroyed after Release")
	}
	s.activate()
	if s.State() != StageDestroyed {
		t.Error("activate revived a destroyed stage")
	}
}

func TestDrawStageReleaseOnce(t *testing.T) {
	dev := &countingDevice{}
	s := NewDrawStage(1, DrawStageConfig{}, dev)
	req := colouredQuad(0, 0)
	if err := s.Add(&req); err != nil {
		t.Fatal(err)
	}
	s.Process()
	if dev.allocs != 2 {
		t.Fatalf("allocs = %d, want 2", dev.allocs)
	}
	s.Release(false)
	s.Release(false)
	if dev.releases != 2 {
		t.Errorf("releases = %d, want 2 (one per buffer)", dev.releases)
	}
}

func TestDrawStageReleaseDeviceLost(t *testing.T) {
	dev := &countingDevice{}
	s := NewDrawStage(1, DrawStageConfig{}, dev)
	req := colouredQuad(0, 0)
	_ = s.Add(&req)
	s.Process()
	s.Release(true)
	if dev.releases != 0 {
		t.Errorf("releases = %d after device loss, want 0", dev.releases)
	}
}

func TestDrawStageProcessSkipsUnchanged(t *testing.T) {
	dev := &countingDevice{}
	s := NewDrawStage(1, DrawStageConfig{}, dev)
	req := colouredQuad(0, 0)
	_ = s.Add(&req)
	s.Process()
	n := len(dev.writes)
	s.Process()
	if len(dev.writes) != n {
		t.Errorf("second Process issued %d writes, want 0", len(dev.writes)-n)
	}
}

func TestDrawStagePersistentNotReblitted(t *testing.T) {
	dev := &countingDevice{}
	s := NewDrawStage(1, DrawStageConfig{}, dev)
	p := texturedQuad(2, 0, 0)
	if err := s.AddPersistent(&p); err != nil {
		t.Fatal(err)
	}
	s.Process()
	dev.writes = nil

	d := colouredQuad(0, 0)
	_ = s.Add(&d)
	s.Process()

	want := []writeRecord{{4, 4}, {6, 6}}
	if len(dev.writes) != len(want) {
		t.Fatalf("writes = %v, want %v", dev.writes, want)
	}
	for i := range want {
		if dev.writes[i] != want[i] {
			t.Errorf("write %d = %v, want %v", i, dev.writes[i], want[i])
		}
	}
}

func TestDrawStageBatchesPersistentFirst(t *testing.T) {
	s := NewDrawStage(1, DrawStageConfig{}, nil)
	// The persistent request sorts later by layer, but persistent geometry
	// always draws before dynamic geometry.
	p := texturedQuad(2, 9, 0)
	d := colouredQuad(0, 0)
	_ = s.AddPersistent(&p)
	_ = s.Add(&d)
	s.Process()

	b := s.Batches()
	if len(b) != 2 {
		t.Fatalf("batches = %d, want 2", len(b))
	}
	if b[0].Fill != FillTextured || b[0].FirstIndex != 0 {
		t.Errorf("batch 0 = %+v, want the persistent textured batch", b[0])
	}
	if b[1].Fill != FillColoured || b[1].FirstIndex != 6 || b[1].FirstVertex != 4 {
		t.Errorf("batch 1 = %+v, want the dynamic batch after persistent data", b[1])
	}
	if s.IndexBuffer().Used() != 12 || s.VertexBuffer().Used() != 8 {
		t.Errorf("buffers hold %d indices, %d vertices", s.IndexBuffer().Used(), s.VertexBuffer().Used())
	}
}

func TestDrawStageDynamicClearShrinks(t *testing.T) {
	s := NewDrawStage(1, DrawStageConfig{}, nil)
	p := colouredQuad(0, 0)
	d := colouredQuad(0, 0)
	_ = s.AddPersistent(&p)
	_ = s.Add(&d)
	s.Process()
	s.ClearDynamic()
	s.Process()
	if s.VertexBuffer().Used() != 4 || len(s.Batches()) != 1 {
		t.Errorf("after ClearDynamic: %d vertices, %d batches", s.VertexBuffer().Used(), len(s.Batches()))
	}
}

func TestDrawStageProcessAfterRelease(t *testing.T) {
	dev := &countingDevice{}
	s := NewDrawStage(1, DrawStageConfig{}, dev)
	s.Release(false)
	req := colouredQuad(0, 0)
	_ = s.Add(&req)
	s.Process()
	if dev.allocs != 0 {
		t.Errorf("destroyed stage allocated %d buffers", dev.allocs)
	}
}

// --- Transitions ---

func TestBloomSetConfigTransition(t *testing.T) {
	s := NewBloomStage(1, BloomConfig{Threshold: 0, Intensity: 1, Radius: 2})
	s.SetConfig(BloomConfig{Threshold: 1, Intensity: 1, Radius: 4}, 1)
	if !s.Transitioning() {
		t.Fatal("expected a transition in progress")
	}
	if s.group.Len() != 2 {
		t.Errorf("tweened fields = %d, want 2 (intensity is unchanged)", s.group.Len())
	}

	s.Update(0.5)
	if cfg := s.Config(); math.Abs(cfg.Threshold-0.5) > 1e-6 || math.Abs(cfg.Radius-3) > 1e-6 {
		t.Errorf("halfway config = %+v", cfg)
	}
	s.Update(0.5)
	if s.Transitioning() {
		t.Error("transition still running after its duration")
	}
	if cfg := s.Config(); cfg.Threshold != 1 || cfg.Radius != 4 {
		t.Errorf("final config = %+v", cfg)
	}
}

func TestSetConfigImmediate(t *testing.T) {
	s := NewBlur2DStage(1, BlurConfig{Radius: 1})
	s.SetConfig(BlurConfig{Radius: 8, Mix: 1}, 0)
	if s.Transitioning() {
		t.Error("zero-duration SetConfig left a transition running")
	}
	if cfg := s.Config(); cfg.Radius != 8 || cfg.Mix != 1 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestSetEase(t *testing.T) {
	s := NewBlur1DStage(1, Blur1DConfig{})
	s.SetEase(ease.InQuad)
	s.SetConfig(Blur1DConfig{Radius: 4}, 1)
	s.Update(0.5)
	if r := s.Config().Radius; math.Abs(r-1) > 1e-6 {
		t.Errorf("InQuad radius at half time = %f, want 1", r)
	}
}

func TestDistortionSetStrength(t *testing.T) {
	s := NewDistortionStage(1, DistortionStageConfig{Strength: 2}, nil)
	s.SetStrength(4, 0.5)
	s.Update(0.25)
	if got := s.Config().Strength; math.Abs(got-3) > 1e-6 {
		t.Errorf("strength = %f, want 3", got)
	}
}

func TestSetConfigRetargetsMidTransition(t *testing.T) {
	s := NewMixStage(1, MixConfig{})
	s.SetConfig(MixConfig{Amounts: [4]float64{1, 0, 0, 0}}, 1)
	s.Update(0.5)
	// A new SetConfig starts from the current, mid-transition value.
	s.SetConfig(MixConfig{Amounts: [4]float64{0, 0, 0, 0}}, 1)
	s.Update(0.5)
	if a := s.Config().Amounts[0]; math.Abs(a-0.25) > 1e-6 {
		t.Errorf("amount = %f, want 0.25", a)
	}
}

// --- Colour effects ---

func matricesNear(a, b [20]float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestColourEffectsMatrix(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ColourEffectsConfig)
		want   [20]float64
	}{
		{"identity", func(*ColourEffectsConfig) {}, identityColourMatrix},
		{"brightness", func(c *ColourEffectsConfig) { c.Brightness = 0.25 }, [20]float64{
			1, 0, 0, 0, 0.25,
			0, 1, 0, 0, 0.25,
			0, 0, 1, 0, 0.25,
			0, 0, 0, 1, 0,
		}},
		{"negative", func(c *ColourEffectsConfig) { c.Negative = 1 }, [20]float64{
			-1, 0, 0, 0, 1,
			0, -1, 0, 0, 1,
			0, 0, -1, 0, 1,
			0, 0, 0, 1, 0,
		}},
		{"grayscale", func(c *ColourEffectsConfig) { c.Saturation = 0 }, [20]float64{
			0.299, 0.587, 0.114, 0, 0,
			0.299, 0.587, 0.114, 0, 0,
			0.299, 0.587, 0.114, 0, 0,
			0, 0, 0, 1, 0,
		}},
		{"opacity", func(c *ColourEffectsConfig) { c.Opacity = 0.5 }, [20]float64{
			1, 0, 0, 0, 0,
			0, 1, 0, 0, 0,
			0, 0, 1, 0, 0,
			0, 0, 0, 0.5, 0,
		}},
		{"full red tint", func(c *ColourEffectsConfig) { c.Tint = Color{1, 0, 0, 1}; c.TintAmount = 1 }, [20]float64{
			1, 0, 0, 0, 0,
			0, 0, 0, 0, 0,
			0, 0, 0, 0, 0,
			0, 0, 0, 1, 0,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultColourEffectsConfig()
			tt.mutate(&cfg)
			if got := cfg.Matrix(); !matricesNear(got, tt.want) {
				t.Errorf("Matrix() = %v\nwant %v", got, tt.want)
			}
		})
	}
}

func TestMultiplyColourMatrixOffsets(t *testing.T) {
	shift := identityColourMatrix
	shift[4] = 0.5
	scale := identityColourMatrix
	scale[0] = 2
	// scale applied after shift: 2*(x + 0.5) = 2x + 1
	got := multiplyColourMatrix(scale, shift)
	if got[0] != 2 || got[4] != 1 {
		t.Errorf("row 0 = %v, want [2 0 0 0 1]", got[:5])
	}
}

func TestColourEffectsProcessFillsUniform(t *testing.T) {
	cfg := DefaultColourEffectsConfig()
	cfg.Brightness = 0.5
	s := NewColourEffectsStage(1, cfg)
	s.Process()
	m := s.uniforms["Matrix"].([]float32)
	if m[4] != 0.5 || m[0] != 1 {
		t.Errorf("Matrix uniform row 0 = %v", m[:5])
	}
}

func TestStyleEffectsProcessClamps(t *testing.T) {
	s := NewStyleEffectsStage(1, StyleEffectsConfig{PixelSize: 0, Scanlines: 3, Vignette: -1})
	s.Process()
	if s.uniforms["PixelSize"] != float32(1) {
		t.Errorf("PixelSize = %v, want 1", s.uniforms["PixelSize"])
	}
	if s.uniforms["Scanlines"] != float32(1) || s.uniforms["Vignette"] != float32(0) {
		t.Errorf("uniforms = %v", s.uniforms)
	}
}

func TestMixProcessSnapshotsAmounts(t *testing.T) {
	s := NewMixStage(1, MixConfig{Amounts: [4]float64{1, 0.5, 0, 0.25}})
	s.Process()
	if s.amounts != [4]float32{1, 0.5, 0, 0.25} {
		t.Errorf("amounts = %v", s.amounts)
	}
}

// --- Mesh ---

func TestMeshSetMeshValidation(t *testing.T) {
	tri := []MeshVertex{{}, {}, {}}
	tests := []struct {
		name    string
		verts   []MeshVertex
		indices []uint32
		want    error
	}{
		{"empty", nil, nil, ErrEmptyGeometry},
		{"bad count", tri, []uint32{0, 1}, ErrIndexCount},
		{"out of range", tri, []uint32{0, 1, 3}, ErrIndexRange},
		{"ok", tri, []uint32{0, 1, 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMeshRenderStage(1, MeshRenderConfig{}, nil)
			err := s.SetMesh(tt.verts, tt.indices)
			if !errors.Is(err, tt.want) {
				t.Errorf("SetMesh error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMeshProcessDeindexes(t *testing.T) {
	s := NewMeshRenderStage(1, MeshRenderConfig{}, nil)
	verts := []MeshVertex{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	if err := s.SetMesh(verts, []uint32{0, 1, 2, 2, 1, 3}); err != nil {
		t.Fatal(err)
	}
	s.Process()
	tris := s.Triangles()
	want := []float32{0, 1, 2, 2, 1, 3}
	if len(tris) != len(want) {
		t.Fatalf("triangles = %d vertices, want %d", len(tris), len(want))
	}
	for i := range want {
		if tris[i].X != want[i] {
			t.Errorf("vertex %d X = %v, want %v", i, tris[i].X, want[i])
		}
	}

	s.ClearMesh()
	s.Process()
	if len(s.Triangles()) != 0 {
		t.Error("ClearMesh left triangles after Process")
	}
}

func TestMeshProjectDropsBehindCamera(t *testing.T) {
	// w = -z: points with negative z are in front of the camera.
	vp := identityMat4
	vp[14], vp[15] = -1, 0
	cam := &CameraBinding{ViewProjection: vp, Viewport: Rect{0, 0, 100, 100}, Is3D: true}

	s := NewMeshRenderStage(1, MeshRenderConfig{}, nil)
	verts := []MeshVertex{
		{X: 0, Y: 0, Z: -1, R: 0.5, G: 0.25, A: 1}, {X: 0.5, Y: 0, Z: -1}, {X: 0, Y: 0.5, Z: -1},
		{X: 0, Y: 0, Z: 1}, {X: 0.5, Y: 0, Z: 1}, {X: 0, Y: 0.5, Z: 1},
	}
	_ = s.SetMesh(verts, []uint32{0, 1, 2, 3, 4, 5})
	s.Process()

	n := s.project(cam, FillColoured)
	if n != 3 {
		t.Fatalf("projected %d vertices, want 3", n)
	}
	got := s.projected.Contents()
	if got[0].X != 50 || got[0].Y != 50 {
		t.Errorf("origin projected to (%v, %v), want viewport centre", got[0].X, got[0].Y)
	}
	if got[0].R != 0.5 || got[0].G != 0.25 || got[0].B != 0 || got[0].A != 1 || got[0].Space != SpaceScreen {
		t.Errorf("projected vertex colour or space changed: %+v", got[0])
	}
	if got[1].A != 0 {
		t.Errorf("zero vertex colour projected with alpha %v, want 0", got[1].A)
	}
}

// --- Custom stages ---

func TestCustomNativeUpdateAndRelease(t *testing.T) {
	var total float32
	s := NewCustomNativeStage(1, func(*ebiten.Image, [4]*ebiten.Image) {})
	s.OnUpdate = func(dt float32) { total += dt }
	s.Update(0.25)
	s.Update(0.25)
	if total != 0.5 {
		t.Errorf("OnUpdate total = %v, want 0.5", total)
	}
	s.Release(false)
	if s.Func != nil || s.OnUpdate != nil {
		t.Error("Release kept the callbacks")
	}
	s.Update(1)
}

func TestSurfaceCopyPixelBufferReuse(t *testing.T) {
	s := NewSurfaceCopyStage(1, nil)
	a := s.pixelBuffer(4, 4)
	b := s.pixelBuffer(2, 2)
	if len(a) != 64 || len(b) != 16 {
		t.Fatalf("lengths = %d, %d", len(a), len(b))
	}
	if &a[0] != &b[0] {
		t.Error("smaller read-back reallocated the buffer")
	}
}
