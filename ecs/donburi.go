package ecs

import (
	"fmt"

	"github.com/phanxgames/trellis"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// DrawRequest is the component holding an entity's geometry.
var DrawRequest = donburi.NewComponentType[trellis.DrawRequest]()

// Hidden excludes an entity from submission without removing its request.
var Hidden = donburi.NewTag()

// DispatchEventType is the Donburi event type for stage dispatch events.
var DispatchEventType = events.NewEventType[trellis.DispatchEvent]()

// SubmitSystem adds every visible entity's DrawRequest to a draw stage.
type SubmitSystem struct {
	stage *trellis.DrawStage
	query *donburi.Query

	// Submitted is the number of requests added by the last Update.
	Submitted int
}

// NewSubmitSystem creates a system feeding stage's dynamic queue.
func NewSubmitSystem(stage *trellis.DrawStage) *SubmitSystem {
	return &SubmitSystem{
		stage: stage,
		query: donburi.NewQuery(filter.And(
			filter.Contains(DrawRequest),
			filter.Not(filter.Contains(Hidden)),
		)),
	}
}

// Update submits every matching entity. Invalid requests are skipped; the
// first error is returned after all entities were visited.
func (s *SubmitSystem) Update(world donburi.World) error {
	var first error
	s.Submitted = 0
	s.query.Each(world, func(e *donburi.Entry) {
		if err := s.stage.Add(DrawRequest.Get(e)); err != nil {
			if first == nil {
				first = fmt.Errorf("ecs: entity %v: %w", e.Entity(), err)
			}
			return
		}
		s.Submitted++
	})
	return first
}

type dispatchSink struct {
	world donburi.World
}

// NewDispatchSink creates a DispatchSink that publishes to
// DispatchEventType. Events are queued; consume them with
// events.Subscribe and ProcessEvents.
func NewDispatchSink(world donburi.World) trellis.DispatchSink {
	return &dispatchSink{world: world}
}

func (s *dispatchSink) StageDispatched(ev trellis.DispatchEvent) {
	DispatchEventType.Publish(s.world, ev)
}
