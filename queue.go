package trellis

import "fmt"

// QueueKind distinguishes the two request queue lifecycles.
type QueueKind uint8

const (
	QueueDynamic    QueueKind = iota // rebuilt every frame, optionally auto-cleared
	QueuePersistent                  // kept until explicitly cleared
)

func (k QueueKind) String() string {
	if k == QueuePersistent {
		return "persistent"
	}
	return "dynamic"
}

const (
	defaultQueueRequests = 64
	defaultQueueVertices = 1024
	defaultQueueIndices  = 1536
)

// QueueCapacity is the initial arena size of a request queue. Zero fields
// fall back to package defaults.
type QueueCapacity struct {
	Requests int
	Vertices int
	Indices  int
}

func (c QueueCapacity) withDefaults() QueueCapacity {
	if c.Requests <= 0 {
		c.Requests = defaultQueueRequests
	}
	if c.Vertices <= 0 {
		c.Vertices = defaultQueueVertices
	}
	if c.Indices <= 0 {
		c.Indices = defaultQueueIndices
	}
	return c
}

// requestMeta is the per-request bookkeeping stored alongside the pooled
// vertex and index arrays. Offsets index into the queue's arena.
type requestMeta struct {
	fill   FillType
	space  CoordinateSpace
	tex0   SurfaceHandle
	tex1   SurfaceHandle
	wrap0  WrapMode
	wrap1  WrapMode
	colour Color
	layer  uint32
	depth  float32

	firstVertex int
	vertexCount int
	firstIndex  int
	indexCount  int
	seq         int // insertion order, final sort tie-break
}

// RequestQueue is an append-only, growable store of draw requests for one
// stage. Vertices and indices of all requests live in two pooled arrays;
// requests refer to them by offset. Capacity only grows within the queue's
// lifetime: Clear resets the logical count and keeps the arrays.
type RequestQueue struct {
	kind      QueueKind
	autoClear bool

	requests []requestMeta
	vertices []Vertex
	indices  []uint32

	version uint64
}

// NewDynamicQueue creates a dynamic queue. When autoClear is set, the stage
// manager clears it after each completed render pass.
func NewDynamicQueue(autoClear bool, capacity QueueCapacity) *RequestQueue {
	return newRequestQueue(QueueDynamic, autoClear, capacity)
}

// NewPersistentQueue creates a queue that is only cleared on request.
func NewPersistentQueue(capacity QueueCapacity) *RequestQueue {
	return newRequestQueue(QueuePersistent, false, capacity)
}

func newRequestQueue(kind QueueKind, autoClear bool, capacity QueueCapacity) *RequestQueue {
	c := capacity.withDefaults()
	return &RequestQueue{
		kind:      kind,
		autoClear: autoClear,
		requests:  make([]requestMeta, 0, c.Requests),
		vertices:  make([]Vertex, 0, c.Vertices),
		indices:   make([]uint32, 0, c.Indices),
	}
}

// Kind returns whether the queue is dynamic or persistent.
func (q *RequestQueue) Kind() QueueKind { return q.kind }

// AutoClear reports whether the queue is cleared after every render pass.
func (q *RequestQueue) AutoClear() bool { return q.autoClear }

// Len returns the number of queued requests.
func (q *RequestQueue) Len() int { return len(q.requests) }

// VertexCount returns the total number of queued vertices.
func (q *RequestQueue) VertexCount() int { return len(q.vertices) }

// IndexCount returns the total number of queued indices.
func (q *RequestQueue) IndexCount() int { return len(q.indices) }

// Capacity returns the current arena capacity.
func (q *RequestQueue) Capacity() QueueCapacity {
	return QueueCapacity{
		Requests: cap(q.requests),
		Vertices: cap(q.vertices),
		Indices:  cap(q.indices),
	}
}

// Version changes on every mutation. Stages compare it against the version
// they last blitted to skip rewriting unchanged data.
func (q *RequestQueue) Version() uint64 { return q.version }

// Add validates req and copies it into the queue. No GPU work happens here.
func (q *RequestQueue) Add(req *DrawRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("trellis: add draw request: %w", err)
	}

	q.requests = growFor(q.requests, 1)
	q.vertices = growFor(q.vertices, len(req.Vertices))
	q.indices = growFor(q.indices, len(req.Indices))

	q.requests = append(q.requests, requestMeta{
		fill:        req.Fill,
		space:       req.Space,
		tex0:        req.Texture0,
		tex1:        req.Texture1,
		wrap0:       req.Wrap0,
		wrap1:       req.Wrap1,
		colour:      req.Colour,
		layer:       req.Layer,
		depth:       req.Depth,
		firstVertex: len(q.vertices),
		vertexCount: len(req.Vertices),
		firstIndex:  len(q.indices),
		indexCount:  len(req.Indices),
		seq:         len(q.requests),
	})
	q.vertices = append(q.vertices, req.Vertices...)
	q.indices = append(q.indices, req.Indices...)
	q.version++
	return nil
}

// Clear drops all queued requests without releasing capacity.
func (q *RequestQueue) Clear() {
	if len(q.requests) == 0 {
		return
	}
	q.requests = q.requests[:0]
	q.vertices = q.vertices[:0]
	q.indices = q.indices[:0]
	q.version++
}

// growFor ensures that at least n more values can be appended to s without
// reallocating, doubling the capacity until it fits.
func growFor[T any](s []T, n int) []T {
	need := len(s) + n
	if need <= cap(s) {
		return s
	}
	sz := 2 * cap(s)
	if sz == 0 {
		sz = 1
	}
	for sz < need {
		sz *= 2
	}
	grown := make([]T, len(s), sz)
	copy(grown, s)
	return grown
}
