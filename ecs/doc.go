// Package ecs provides ECS adapters for trellis.
//
// [SubmitSystem] pushes the [DrawRequest] component of every matching entity
// into a draw stage each frame, and [NewDispatchSink] bridges the engine's
// dispatch notifications into a [Donburi] world as typed events. Subscribe
// to [DispatchEventType] in your ECS systems to receive them.
//
// Usage:
//
//	submit := ecs.NewSubmitSystem(stage)
//	engine.SetDispatchSink(ecs.NewDispatchSink(world))
//	// per tick:
//	submit.Update(world)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
