package trellis

import (
	"fmt"

	"github.com/tanema/gween/ease"
)

// StageKind enumerates the closed set of stage model kinds.
type StageKind uint8

const (
	StageDraw StageKind = iota
	StageBloom
	StageBlur1D
	StageBlur2D
	StageColourEffects
	StageDistortion
	StageMeshRender
	StageMix
	StageStyleEffects
	StageCustomShader
	StageCustomNative
	StageSurfaceCopy

	stageKindCount
)

var stageKindNames = [stageKindCount]string{
	StageDraw:          "draw",
	StageBloom:         "bloom",
	StageBlur1D:        "blur-1d",
	StageBlur2D:        "blur-2d",
	StageColourEffects: "colour-effects",
	StageDistortion:    "distortion",
	StageMeshRender:    "mesh-render",
	StageMix:           "mix",
	StageStyleEffects:  "style-effects",
	StageCustomShader:  "custom-shader",
	StageCustomNative:  "custom-native",
	StageSurfaceCopy:   "surface-copy",
}

func (k StageKind) String() string {
	if k < stageKindCount {
		return stageKindNames[k]
	}
	return fmt.Sprintf("StageKind(%d)", k)
}

// StageState is the lifecycle state of a stage model.
type StageState uint8

const (
	StageCreated   StageState = iota // built, not yet registered
	StageActive                      // registered; receives Update and Process
	StageDestroyed                   // terminal; resources released
)

func (s StageState) String() string {
	switch s {
	case StageCreated:
		return "created"
	case StageActive:
		return "active"
	case StageDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("StageState(%d)", s)
	}
}

// Model is the common surface of every stage model. Concrete stages are
// created by the StageManager through a StageFactory.
type Model interface {
	Handle() StageHandle
	Kind() StageKind
	State() StageState
	// Update advances time-based parameter transitions.
	Update(dt float32)
	// Process prepares the stage's GPU data for rendering. Stages without
	// geometry do nothing.
	Process()
	// Release frees GPU resources. When resourcesInvalidated is set the
	// device was already lost and device objects are dropped, not released.
	Release(resourcesInvalidated bool)

	activate()
}

// stageBase carries the identity and lifecycle state shared by all stages.
type stageBase struct {
	handle StageHandle
	kind   StageKind
	state  StageState
}

func newStageBase(h StageHandle, kind StageKind) stageBase {
	return stageBase{handle: h, kind: kind, state: StageCreated}
}

// Handle returns the manager-assigned id.
func (b *stageBase) Handle() StageHandle { return b.handle }

// Kind returns the stage kind.
func (b *stageBase) Kind() StageKind { return b.kind }

// State returns the lifecycle state.
func (b *stageBase) State() StageState { return b.state }

// Destroyed reports whether the stage has been released.
func (b *stageBase) Destroyed() bool { return b.state == StageDestroyed }

func (b *stageBase) activate() {
	if b.state == StageCreated {
		b.state = StageActive
	}
}

// markDestroyed moves the stage to its terminal state. It returns false when
// the stage was already destroyed, so resources are released exactly once.
func (b *stageBase) markDestroyed() bool {
	if b.state == StageDestroyed {
		return false
	}
	b.state = StageDestroyed
	return true
}

// --- Parameter transitions ---

// transition drives the tweened parameters of an effect stage.
type transition struct {
	ease  ease.TweenFunc
	group *TweenGroup
}

// SetEase selects the easing function used by later SetConfig calls.
// Nil restores linear easing.
func (t *transition) SetEase(fn ease.TweenFunc) {
	t.ease = fn
}

// Transitioning reports whether a parameter transition is in progress.
func (t *transition) Transitioning() bool {
	return t.group != nil && !t.group.Done
}

// start begins a transition. A non-positive duration applies the targets
// immediately.
func (t *transition) start(seconds float32, targets ...tweenTarget) {
	if seconds <= 0 {
		for _, tg := range targets {
			*tg.field = tg.to
		}
		t.group = nil
		return
	}
	t.group = newTweenGroup(seconds, t.ease, targets...)
}

func (t *transition) update(dt float32) {
	if t.group == nil {
		return
	}
	t.group.Update(dt)
	if t.group.Done {
		t.group = nil
	}
}

// --- Queue group ---

// queueStage owns the dynamic and persistent request queues of a geometry
// stage together with the buffers they are blitted into. Persistent geometry
// occupies the head of the buffers and is rewritten only when its queue
// changed; dynamic geometry is appended after it.
type queueStage struct {
	dynamic    *RequestQueue
	persistent *RequestQueue

	dynBatcher Batcher
	perBatcher Batcher
	blitter    Blitter

	vb *GrowableBuffer[StagedVertex]
	ib *GrowableBuffer[uint32]

	perBatches []Batch
	batches    []Batch

	perVertices int
	perIndices  int
	perVersion  uint64
	dynVersion  uint64
	primed      bool
}

func newQueueStage(autoClear bool, capacity QueueCapacity, device BufferDevice) queueStage {
	if device == nil {
		device = HostDevice{}
	}
	c := capacity.withDefaults()
	return queueStage{
		dynamic:    NewDynamicQueue(autoClear, capacity),
		persistent: NewPersistentQueue(capacity),
		vb:         newGrowableBuffer(device.NewVertexBuffer, c.Vertices),
		ib:         newGrowableBuffer(device.NewIndexBuffer, c.Indices),
	}
}

// Add queues a request on the dynamic queue.
func (s *queueStage) Add(req *DrawRequest) error {
	return s.dynamic.Add(req)
}

// AddPersistent queues a request on the persistent queue.
func (s *queueStage) AddPersistent(req *DrawRequest) error {
	return s.persistent.Add(req)
}

// ClearDynamic empties the dynamic queue.
func (s *queueStage) ClearDynamic() { s.dynamic.Clear() }

// ClearPersistent empties the persistent queue.
func (s *queueStage) ClearPersistent() { s.persistent.Clear() }

// Dynamic returns the dynamic queue.
func (s *queueStage) Dynamic() *RequestQueue { return s.dynamic }

// Persistent returns the persistent queue.
func (s *queueStage) Persistent() *RequestQueue { return s.persistent }

// Batches returns the batch list produced by the last Process: persistent
// batches first, then dynamic ones, with absolute buffer offsets.
func (s *queueStage) Batches() []Batch { return s.batches }

// VertexBuffer returns the stage's vertex buffer.
func (s *queueStage) VertexBuffer() *GrowableBuffer[StagedVertex] { return s.vb }

// IndexBuffer returns the stage's index buffer.
func (s *queueStage) IndexBuffer() *GrowableBuffer[uint32] { return s.ib }

// process sorts, batches and blits both queues. Nothing is done when neither
// queue changed since the previous call.
func (s *queueStage) process() {
	perChanged := !s.primed || s.persistent.Version() != s.perVersion
	dynChanged := !s.primed || s.dynamic.Version() != s.dynVersion
	if !perChanged && !dynChanged {
		return
	}

	if perChanged {
		order, batches := s.perBatcher.Run(s.persistent)
		batches = s.blitter.Blit(s.persistent, order, batches, s.vb, s.ib, BlitRewrite)
		s.perBatches = append(s.perBatches[:0], batches...)
		s.perVertices = s.vb.Used()
		s.perIndices = s.ib.Used()
	}

	s.vb.Truncate(s.perVertices)
	s.ib.Truncate(s.perIndices)
	order, batches := s.dynBatcher.Run(s.dynamic)
	batches = s.blitter.Blit(s.dynamic, order, batches, s.vb, s.ib, BlitAppend)

	s.batches = append(s.batches[:0], s.perBatches...)
	s.batches = append(s.batches, batches...)

	s.perVersion = s.persistent.Version()
	s.dynVersion = s.dynamic.Version()
	s.primed = true
}

// release frees both device buffers and drops the batch lists.
func (s *queueStage) release(deviceLost bool) {
	s.vb.Release(deviceLost)
	s.ib.Release(deviceLost)
	s.batches = nil
	s.perBatches = nil
	s.perVertices = 0
	s.perIndices = 0
	s.primed = false
}
