package ecs

import (
	"errors"
	"testing"

	"github.com/phanxgames/trellis"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func newEntity(t *testing.T, world donburi.World, req trellis.DrawRequest) *donburi.Entry {
	t.Helper()
	e := world.Entry(world.Create(DrawRequest))
	DrawRequest.SetValue(e, req)
	return e
}

func TestSubmitSystem_AddsVisibleEntities(t *testing.T) {
	world := donburi.NewWorld()
	stage := trellis.NewDrawStage(1, trellis.DrawStageConfig{}, nil)
	sys := NewSubmitSystem(stage)

	newEntity(t, world, trellis.NewQuadRequest(trellis.SpaceWorld, 0, 0, 10, 10, trellis.NullSurface, trellis.ColorWhite, 0, 0))
	newEntity(t, world, trellis.NewQuadRequest(trellis.SpaceWorld, 5, 5, 10, 10, trellis.NullSurface, trellis.ColorWhite, 0.5, 1))
	hidden := newEntity(t, world, trellis.NewQuadRequest(trellis.SpaceScreen, 0, 0, 1, 1, trellis.NullSurface, trellis.ColorWhite, 0, 0))
	hidden.AddComponent(Hidden)

	if err := sys.Update(world); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sys.Submitted != 2 {
		t.Errorf("Submitted = %d, want 2", sys.Submitted)
	}
	if got := stage.Dynamic().Len(); got != 2 {
		t.Errorf("dynamic queue len = %d, want 2", got)
	}
	if got := stage.Dynamic().IndexCount(); got != 12 {
		t.Errorf("index count = %d, want 12", got)
	}
}

func TestSubmitSystem_InvalidRequest(t *testing.T) {
	world := donburi.NewWorld()
	stage := trellis.NewDrawStage(1, trellis.DrawStageConfig{}, nil)
	sys := NewSubmitSystem(stage)

	newEntity(t, world, trellis.DrawRequest{}) // no geometry
	newEntity(t, world, trellis.NewQuadRequest(trellis.SpaceWorld, 0, 0, 1, 1, trellis.NullSurface, trellis.ColorWhite, 0, 0))

	err := sys.Update(world)
	if !errors.Is(err, trellis.ErrEmptyGeometry) {
		t.Fatalf("err = %v, want ErrEmptyGeometry", err)
	}
	if sys.Submitted != 1 {
		t.Errorf("Submitted = %d, want 1", sys.Submitted)
	}
}

func TestDispatchSink_Publish(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDispatchSink(world)

	var received []trellis.DispatchEvent
	DispatchEventType.Subscribe(world, func(w donburi.World, e trellis.DispatchEvent) {
		received = append(received, e)
	})

	sink.StageDispatched(trellis.DispatchEvent{Kind: trellis.StageDraw, Stage: 3, Index: 0})
	sink.StageDispatched(trellis.DispatchEvent{Kind: trellis.StageBloom, Stage: 4, Index: 1})

	// Events are queued until processed.
	if len(received) != 0 {
		t.Fatalf("received %d events before processing", len(received))
	}
	DispatchEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if received[0].Kind != trellis.StageDraw || received[0].Stage != 3 {
		t.Errorf("event 0: %+v", received[0])
	}
	if received[1].Kind != trellis.StageBloom || received[1].Index != 1 {
		t.Errorf("event 1: %+v", received[1])
	}
}

func TestDispatchSink_MultipleSubscribers(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDispatchSink(world)

	var count1, count2 int
	DispatchEventType.Subscribe(world, func(w donburi.World, e trellis.DispatchEvent) {
		count1++
	})
	DispatchEventType.Subscribe(world, func(w donburi.World, e trellis.DispatchEvent) {
		count2++
	})

	sink.StageDispatched(trellis.DispatchEvent{Kind: trellis.StageMix})
	events.ProcessAllEvents(world)

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}
