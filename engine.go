package trellis

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Engine ties the stores, the stage manager and the command queue to one
// frame loop. Call Update once per tick and Draw once per frame, or use Run.
//
// A frame: the application pushes draw requests into stage queues and
// queues render commands; Draw walks the commands in order, clears every
// auto-clear dynamic queue and resets the command queue.
type Engine struct {
	Surfaces *SurfaceStore
	Cameras  *CameraStore
	Stages   *StageManager
	Commands *CommandQueue

	visitor  *Visitor
	defaults *EbitenRenderers
	clear    Color

	debug bool
	last  FrameReport
}

// NewEngine creates an engine with the default Ebitengine renderers and host
// buffer device.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	surfaces := NewSurfaceStore()
	cameras := NewCameraStore()
	defaults := NewEbitenRenderers(surfaces)
	e := &Engine{
		Surfaces: surfaces,
		Cameras:  cameras,
		Stages:   NewStageManager(DeviceFactory{Capacity: cfg.Queue}),
		Commands: NewCommandQueue(cfg.Commands),
		defaults: defaults,
		clear:    cfg.ClearColour,
		debug:    cfg.Debug,
	}
	e.visitor = NewVisitor(surfaces, cameras, DefaultRenderersFrom(defaults))
	e.visitor.SetDebug(cfg.Debug)
	return e
}

// SetRenderers replaces the renderer table. Entries left nil skip their
// commands with a warning.
func (e *Engine) SetRenderers(r Renderers) { e.visitor.SetRenderers(r) }

// SetDispatchSink installs a sink notified of every rendered command.
func (e *Engine) SetDispatchSink(s DispatchSink) { e.visitor.SetSink(s) }

// SetDebugMode enables per-frame stats on stderr.
func (e *Engine) SetDebugMode(enabled bool) {
	e.debug = enabled
	e.visitor.SetDebug(enabled)
}

// SetClearColour sets the colour the main surface is filled with before the
// command walk. The zero colour disables the fill.
func (e *Engine) SetClearColour(c Color) { e.clear = c }

// LastReport returns the report of the most recent Draw or Flush.
func (e *Engine) LastReport() FrameReport { return e.last }

// Update advances camera tweens and stage parameter transitions.
func (e *Engine) Update(dt float32) {
	e.Cameras.Update(dt)
	e.Stages.Update(dt)
}

// Draw attaches screen as the main surface and renders the queued commands.
func (e *Engine) Draw(screen *ebiten.Image) FrameReport {
	e.Surfaces.SetMain(screen)
	if e.clear != (Color{}) {
		e.Surfaces.Fill(MainSurface, e.clear)
	}
	return e.Flush()
}

// Flush walks the command queue, clears auto-clear queues and resets the
// command queue. Draw calls it; offscreen-only frames may call it directly.
func (e *Engine) Flush() FrameReport {
	var stats debugStats
	var t0 time.Time
	calls := e.defaults.DrawCalls()
	if e.debug {
		t0 = time.Now()
	}

	report := e.visitor.Walk(e.Commands)

	if e.debug {
		stats.walkTime = time.Since(t0)
		t0 = time.Now()
	}

	e.Stages.ClearAutoClearQueues()
	e.Commands.Reset()

	if e.debug {
		stats.clearTime = time.Since(t0)
		stats.report = report
		stats.drawCallCount = e.defaults.DrawCalls() - calls
		debugLog(stats)
	}
	e.last = report
	return report
}

// Shutdown releases every stage, pooled intermediate and render target.
// When resourcesInvalidated is set the device was lost and GPU objects are
// dropped instead of released.
func (e *Engine) Shutdown(resourcesInvalidated bool) {
	e.Commands.Reset()
	e.Stages.Shutdown(resourcesInvalidated)
	e.defaults.Release(resourcesInvalidated)
	if !resourcesInvalidated {
		e.Surfaces.DestroyAll()
	}
}

// ReInitialise releases every stage and pooled intermediate and leaves the
// engine ready for new stages. Surfaces and cameras are kept.
func (e *Engine) ReInitialise(resourcesInvalidated bool) {
	e.Commands.Reset()
	e.Stages.ReInitialise(resourcesInvalidated)
	e.defaults.Release(resourcesInvalidated)
}
