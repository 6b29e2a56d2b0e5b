// Package trellis is the draw-submission, batching and render-stage dispatch
// engine of a 2D renderer built on [Ebitengine].
//
// Applications push [DrawRequest]s into the queues of draw stages and append
// render commands to a [CommandQueue]. Each frame the [Visitor] walks the
// commands in order: every command makes its stage sort, batch and blit its
// geometry, then hands the stage to the renderer for its kind.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you:
//
//	engine := trellis.NewEngine(trellis.DefaultConfig())
//	cam := engine.Cameras.Add(trellis.NewCamera(trellis.Rect{Width: 640, Height: 480}))
//	stage, _ := engine.Stages.CreateDraw(trellis.DrawStageConfig{AutoClear: true})
//
//	trellis.Run(engine, trellis.DefaultConfig(), func(e *trellis.Engine, dt float32) error {
//		req := trellis.NewQuadRequest(trellis.SpaceWorld, 0, 0, 32, 32,
//			trellis.NullSurface, trellis.Color{R: 1, A: 1}, 0, 0)
//		if err := stage.Add(&req); err != nil {
//			return err
//		}
//		return e.Commands.Draw(stage, trellis.MainSurface, cam)
//	})
//
// For full control, implement [ebiten.Game] yourself and call
// [Engine.Update] and [Engine.Draw] directly.
//
// # Ordering
//
// Requests are ordered by layer, then depth (1 is back, 0 is front), then
// by their batch key, with submission order as the final tie-break. Adjacent
// requests sharing fill type, textures and wrap modes form one batch and one
// draw call, even when they mix screen and world coordinates.
//
// # Queues
//
// Every geometry stage owns a dynamic queue, optionally emptied after each
// frame, and a persistent queue that keeps its geometry until cleared.
// Persistent geometry is only re-uploaded when it changes.
//
// # Stages
//
// Besides draw stages there are distortion, bloom, blur, colour and style
// effects, 3D mesh, mix, custom shader, custom native and surface copy
// stages. Effect parameters can be tweened with SetConfig (via [gween]).
// The donburi adapter in trellis/ecs submits entities' requests and
// publishes dispatch events (via [Donburi]).
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package trellis
