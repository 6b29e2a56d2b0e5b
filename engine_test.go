package trellis

import (
	"errors"
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween/ease"
)

func newTestEngine(t *testing.T) (*Engine, *recordingRenderer) {
	t.Helper()
	e := NewEngine(Config{})
	rec := &recordingRenderer{}
	e.SetRenderers(rec.table())
	return e, rec
}

func TestEngineFlushClearsFrameState(t *testing.T) {
	e, rec := newTestEngine(t)
	cam := e.Cameras.Add(NewCamera(Rect{0, 0, 64, 64}))
	rt := e.Surfaces.CreateRenderTarget(64, 64)

	auto, _ := e.Stages.CreateDraw(DrawStageConfig{AutoClear: true})
	keep, _ := e.Stages.CreateDraw(DrawStageConfig{})
	for _, s := range []*DrawStage{auto, keep} {
		req := colouredQuad(0, 0)
		if err := s.Add(&req); err != nil {
			t.Fatal(err)
		}
		if err := e.Commands.Draw(s, rt, cam); err != nil {
			t.Fatal(err)
		}
	}

	report := e.Flush()
	if report.Rendered != 2 || len(rec.calls) != 2 {
		t.Fatalf("report = %+v", report)
	}
	if e.Commands.Len() != 0 {
		t.Errorf("command queue not reset: %d", e.Commands.Len())
	}
	if auto.Dynamic().Len() != 0 {
		t.Error("auto-clear queue survived the frame")
	}
	if keep.Dynamic().Len() != 1 {
		t.Error("manual queue was cleared")
	}
	if e.LastReport().Rendered != 2 {
		t.Errorf("LastReport = %+v", e.LastReport())
	}

	// An empty frame renders nothing.
	if r := e.Flush(); r.Commands != 0 || r.Rendered != 0 {
		t.Errorf("empty frame report = %+v", r)
	}
}

func TestEngineDrawAttachesMain(t *testing.T) {
	e, rec := newTestEngine(t)
	s, _ := e.Stages.CreateSurfaceCopy(nil)
	_ = e.Commands.CopySurface(s, MainSurface)
	e.SetClearColour(Color{0, 0, 0, 1})

	screen := ebiten.NewImage(32, 32)
	report := e.Draw(screen)
	if report.Rendered != 1 || rec.calls[0].source != MainSurface {
		t.Fatalf("report = %+v, calls = %+v", report, rec.calls)
	}
	if e.Surfaces.Get(MainSurface).Image != screen {
		t.Error("Draw did not attach the screen as the main surface")
	}
}

func TestEngineDispatchSink(t *testing.T) {
	e, _ := newTestEngine(t)
	var kinds []StageKind
	e.SetDispatchSink(DispatchSinkFunc(func(ev DispatchEvent) { kinds = append(kinds, ev.Kind) }))
	a := e.Surfaces.CreateRenderTarget(8, 8)
	b := e.Surfaces.CreateRenderTarget(8, 8)
	blur, _ := e.Stages.CreateBlur2D(BlurConfig{})
	fx, _ := e.Stages.CreateColourEffects(DefaultColourEffectsConfig())
	_ = e.Commands.Blur(blur, a, b)
	_ = e.Commands.ColourEffects(fx, b, a)
	e.Flush()
	if len(kinds) != 2 || kinds[0] != StageBlur2D || kinds[1] != StageColourEffects {
		t.Errorf("dispatched kinds = %v", kinds)
	}
}

func TestEngineUpdateAdvancesStagesAndCameras(t *testing.T) {
	e, _ := newTestEngine(t)
	bloom, _ := e.Stages.CreateBloom(BloomConfig{})
	bloom.SetConfig(BloomConfig{Intensity: 2}, 1)
	cam := NewCamera(Rect{0, 0, 100, 100})
	e.Cameras.Add(cam)
	cam.ScrollTo(10, 0, 1, ease.Linear)

	e.Update(0.5)
	if got := bloom.Config().Intensity; math.Abs(got-1) > 1e-6 {
		t.Errorf("intensity = %f, want 1", got)
	}
	if math.Abs(cam.X-5) > 1e-6 {
		t.Errorf("camera X = %f, want 5", cam.X)
	}
}

func TestEngineShutdown(t *testing.T) {
	e, _ := newTestEngine(t)
	s, _ := e.Stages.CreateDraw(DrawStageConfig{})
	e.Surfaces.CreateRenderTarget(8, 8)
	_ = e.Commands.Clear(MainSurface, ColorWhite)

	e.Shutdown(false)
	if !s.Destroyed() {
		t.Error("stage survived Shutdown")
	}
	if e.Commands.Len() != 0 {
		t.Error("commands survived Shutdown")
	}
	if e.Surfaces.Len() != 1 {
		t.Errorf("surfaces after Shutdown = %d, want only the main surface", e.Surfaces.Len())
	}
	if _, err := e.Stages.CreateDraw(DrawStageConfig{}); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Create after Shutdown error = %v", err)
	}
}

func TestEngineReInitialiseKeepsSurfaces(t *testing.T) {
	e, _ := newTestEngine(t)
	rt := e.Surfaces.CreateRenderTarget(8, 8)
	cam := e.Cameras.Add(NewCamera(Rect{0, 0, 8, 8}))
	s, _ := e.Stages.CreateDraw(DrawStageConfig{})

	e.ReInitialise(true)
	if !s.Destroyed() {
		t.Error("stage survived ReInitialise")
	}
	if e.Surfaces.Get(rt) == nil || e.Cameras.Camera(cam) == nil {
		t.Error("ReInitialise dropped surfaces or cameras")
	}
	if _, err := e.Stages.CreateDraw(DrawStageConfig{}); err != nil {
		t.Errorf("Create after ReInitialise: %v", err)
	}
}

func TestEngineConfigDefaults(t *testing.T) {
	e := NewEngine(Config{Queue: QueueCapacity{Requests: 4}})
	s, _ := e.Stages.CreateDraw(DrawStageConfig{})
	if c := s.Dynamic().Capacity(); c.Requests != 4 || c.Indices != defaultQueueIndices {
		t.Errorf("stage capacity = %+v", c)
	}
	if cap(e.Commands.commands) != DefaultConfig().Commands {
		t.Errorf("command capacity = %d", cap(e.Commands.commands))
	}
}
