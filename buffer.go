package trellis

// Buffer is a fixed-size GPU buffer of T with partial-write semantics.
// Offsets and lengths are in elements; the byte offset is offset*sizeof(T).
type Buffer[T any] interface {
	// Len returns the capacity of the buffer in elements.
	Len() int
	// Write copies data into the buffer starting at offset.
	Write(offset int, data []T)
	// Release frees the device allocation. Further writes are invalid.
	Release()
}

// BufferDevice allocates the vertex and index buffers stage models draw from.
type BufferDevice interface {
	NewVertexBuffer(n int) Buffer[StagedVertex]
	NewIndexBuffer(n int) Buffer[uint32]
}

// HostBuffer is a Buffer backed by host memory. Ebitengine uploads vertex
// data on every draw call, so host buffers are the natural device buffers for
// the Ebitengine backend.
type HostBuffer[T any] struct {
	data     []T
	released bool
}

// NewHostBuffer returns a host buffer with room for n elements.
func NewHostBuffer[T any](n int) *HostBuffer[T] {
	return &HostBuffer[T]{data: make([]T, n)}
}

// Len returns the capacity of the buffer in elements.
func (b *HostBuffer[T]) Len() int { return len(b.data) }

// Write copies data into the buffer at offset.
func (b *HostBuffer[T]) Write(offset int, data []T) {
	copy(b.data[offset:], data)
}

// Release drops the backing array.
func (b *HostBuffer[T]) Release() {
	b.data = nil
	b.released = true
}

// Data exposes the backing array for recorders that read host memory.
func (b *HostBuffer[T]) Data() []T { return b.data }

// HostDevice allocates HostBuffers.
type HostDevice struct{}

// NewVertexBuffer returns a host vertex buffer of n vertices.
func (HostDevice) NewVertexBuffer(n int) Buffer[StagedVertex] {
	return NewHostBuffer[StagedVertex](n)
}

// NewIndexBuffer returns a host index buffer of n indices.
func (HostDevice) NewIndexBuffer(n int) Buffer[uint32] {
	return NewHostBuffer[uint32](n)
}

// hostData is implemented by buffers whose contents live in host memory.
type hostData[T any] interface {
	Data() []T
}

// GrowableBuffer wraps a device Buffer with a used-element count and a
// capacity check that regrows the device buffer when a write would overflow
// it. Device buffers are write-only, so the contents are mirrored in a host
// shadow copy that lets a regrow preserve what was already written.
type GrowableBuffer[T any] struct {
	alloc   func(n int) Buffer[T]
	buf     Buffer[T]
	shadow  []T
	used    int
	initial int

	writes  int
	regrows int
}

// newGrowableBuffer returns an empty buffer. The device buffer is allocated
// lazily on the first write, so a stage that never draws never allocates.
func newGrowableBuffer[T any](alloc func(n int) Buffer[T], initial int) *GrowableBuffer[T] {
	if initial <= 0 {
		initial = 1
	}
	return &GrowableBuffer[T]{alloc: alloc, initial: initial}
}

// Buffer returns the current device buffer, or nil before the first write.
func (g *GrowableBuffer[T]) Buffer() Buffer[T] { return g.buf }

// Used returns the number of valid elements.
func (g *GrowableBuffer[T]) Used() int { return g.used }

// Capacity returns the device buffer capacity in elements.
func (g *GrowableBuffer[T]) Capacity() int {
	if g.buf == nil {
		return 0
	}
	return g.buf.Len()
}

// Writes returns how many partial updates have been issued to the device.
func (g *GrowableBuffer[T]) Writes() int { return g.writes }

// Regrows returns how many times the device buffer was reallocated.
func (g *GrowableBuffer[T]) Regrows() int { return g.regrows }

// Contents returns the valid prefix of the host shadow copy.
func (g *GrowableBuffer[T]) Contents() []T { return g.shadow[:g.used] }

// Rewrite replaces the whole contents with data. A regrow does not preserve
// previous contents.
func (g *GrowableBuffer[T]) Rewrite(data []T) {
	g.used = 0
	if len(data) == 0 {
		return
	}
	g.ensure(len(data), false)
	g.write(0, data)
	g.used = len(data)
}

// Append writes data after the used region and returns the offset it was
// written at. A regrow preserves the used region.
func (g *GrowableBuffer[T]) Append(data []T) int {
	offset := g.used
	if len(data) == 0 {
		return offset
	}
	g.ensure(offset+len(data), true)
	g.write(offset, data)
	g.used = offset + len(data)
	return offset
}

// Truncate shrinks the used region to n elements. Capacity is kept.
func (g *GrowableBuffer[T]) Truncate(n int) {
	if n < g.used {
		g.used = n
	}
}

// Release frees the device buffer. When the device was already lost the
// buffer is dropped without calling Release on it.
func (g *GrowableBuffer[T]) Release(deviceLost bool) {
	if g.buf != nil && !deviceLost {
		g.buf.Release()
	}
	g.buf = nil
	g.shadow = nil
	g.used = 0
}

// ensure grows the device buffer to hold need elements, doubling its
// capacity. When preserve is set the used region is copied to the new buffer.
func (g *GrowableBuffer[T]) ensure(need int, preserve bool) {
	if g.buf != nil && need <= g.buf.Len() {
		return
	}
	size := g.initial
	if g.buf != nil {
		size = 2 * g.buf.Len()
		g.regrows++
	}
	for size < need {
		size *= 2
	}

	old := g.buf
	g.buf = g.alloc(size)
	shadow := make([]T, size)
	if preserve && g.used > 0 {
		copy(shadow, g.shadow[:g.used])
		g.buf.Write(0, shadow[:g.used])
		g.writes++
	}
	g.shadow = shadow
	if old != nil {
		old.Release()
	}
}

// write issues one partial update covering exactly the touched range.
func (g *GrowableBuffer[T]) write(offset int, data []T) {
	copy(g.shadow[offset:], data)
	g.buf.Write(offset, data)
	g.writes++
}
