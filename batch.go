package trellis

// batchKey groups sorted requests that can be submitted in a single draw
// call. Layer, depth and coordinate space are deliberately absent: they are
// per-vertex concerns, so one batch may mix screen and world geometry.
type batchKey struct {
	fill  FillType
	tex0  SurfaceHandle
	tex1  SurfaceHandle
	wrap0 WrapMode
	wrap1 WrapMode
}

func requestBatchKey(m *requestMeta) batchKey {
	return batchKey{
		fill:  m.fill,
		tex0:  m.tex0,
		tex1:  m.tex1,
		wrap0: m.wrap0,
		wrap1: m.wrap1,
	}
}

// Batch is a contiguous run of sorted geometry sharing GPU binding state.
// Index and vertex offsets are relative to the stage buffers once blitted.
type Batch struct {
	Fill     FillType
	Texture0 SurfaceHandle
	Texture1 SurfaceHandle
	Wrap0    WrapMode
	Wrap1    WrapMode

	FirstIndex  int
	IndexCount  int
	FirstVertex int
	VertexCount int
}

// Batcher produces a stable sort ordering over a queue's requests and the
// run-length batch list for that ordering. Its buffers are reused between
// runs; after warmup Run does not allocate.
type Batcher struct {
	order   []int
	scratch []int
	batches []Batch
}

// Run sorts q and groups the result into batches. The returned slices are
// owned by the batcher and valid until the next call.
func (b *Batcher) Run(q *RequestQueue) (order []int, batches []Batch) {
	order = b.Sort(q)
	return order, b.group(q, order)
}

// Sort returns a permutation of q's request indices ordered by layer, depth
// (reversed: 0 is front, drawn last), fill type, coordinate space, texture
// handles, wrap modes and finally insertion order.
func (b *Batcher) Sort(q *RequestQueue) []int {
	n := len(q.requests)
	if cap(b.order) < n {
		b.order = make([]int, n)
	}
	b.order = b.order[:n]
	for i := range b.order {
		b.order[i] = i
	}
	b.mergeSort(q.requests)
	return b.order
}

// group walks the ordering once, starting a new batch wherever the batch key
// changes and accumulating vertex and index counts.
func (b *Batcher) group(q *RequestQueue, order []int) []Batch {
	b.batches = b.batches[:0]
	if len(order) == 0 {
		return b.batches
	}

	var cur batchKey
	indexPos, vertexPos := 0, 0
	for i, ri := range order {
		m := &q.requests[ri]
		key := requestBatchKey(m)
		if i == 0 || key != cur {
			b.batches = append(b.batches, Batch{
				Fill:        key.fill,
				Texture0:    key.tex0,
				Texture1:    key.tex1,
				Wrap0:       key.wrap0,
				Wrap1:       key.wrap1,
				FirstIndex:  indexPos,
				FirstVertex: vertexPos,
			})
			cur = key
		}
		last := &b.batches[len(b.batches)-1]
		last.IndexCount += m.indexCount
		last.VertexCount += m.vertexCount
		indexPos += m.indexCount
		vertexPos += m.vertexCount
	}
	return b.batches
}

// --- Merge sort ---

// requestLessOrEqual returns true if a should sort before or at the same
// position as b. Using <= for the insertion sequence ensures stability.
func requestLessOrEqual(a, b *requestMeta) bool {
	if a.layer != b.layer {
		return a.layer < b.layer
	}
	if a.depth != b.depth {
		// Reversed: back-most geometry first so front geometry blends over it.
		return a.depth > b.depth
	}
	if a.fill != b.fill {
		return a.fill < b.fill
	}
	if a.space != b.space {
		return a.space < b.space
	}
	if a.tex0 != b.tex0 {
		return a.tex0 < b.tex0
	}
	if a.tex1 != b.tex1 {
		return a.tex1 < b.tex1
	}
	if a.wrap0 != b.wrap0 {
		return a.wrap0 < b.wrap0
	}
	if a.wrap1 != b.wrap1 {
		return a.wrap1 < b.wrap1
	}
	return a.seq <= b.seq
}

// mergeSort sorts b.order in-place using b.scratch as scratch space.
// Bottom-up merge sort: zero allocations after the scratch buffer reaches
// its high-water mark.
func (b *Batcher) mergeSort(reqs []requestMeta) {
	n := len(b.order)
	if n <= 1 {
		return
	}
	if cap(b.scratch) < n {
		b.scratch = make([]int, n)
	}
	b.scratch = b.scratch[:n]

	src := b.order
	dst := b.scratch
	swapped := false

	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			lo := i
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			mergeRun(reqs, src, dst, lo, mid, hi)
		}
		src, dst = dst, src
		swapped = !swapped
	}

	if swapped {
		copy(b.order, b.scratch)
	}
}

// mergeRun merges two sorted runs [lo, mid) and [mid, hi) from src into dst.
func mergeRun(reqs []requestMeta, src, dst []int, lo, mid, hi int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if requestLessOrEqual(&reqs[src[i]], &reqs[src[j]]) {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}
