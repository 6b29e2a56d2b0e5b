package trellis

// BlitMode selects how the blitter places staged data in the stage buffers.
type BlitMode uint8

const (
	// BlitRewrite replaces the buffer contents from offset 0.
	BlitRewrite BlitMode = iota
	// BlitAppend writes after the data already in the buffer.
	BlitAppend
)

// Blitter copies queued requests into staging arrays in sorted order and
// transfers them to the stage's vertex and index buffers. The staging arrays
// are kept at their high-water mark between frames.
type Blitter struct {
	verts []StagedVertex
	inds  []uint32
}

// Blit stages the requests of q in the given order, rebases their indices,
// and writes the touched range of vb and ib. batches (as produced by the
// Batcher for the same ordering) are shifted in place to the absolute buffer
// offsets and returned. An empty ordering issues no buffer writes.
func (bl *Blitter) Blit(q *RequestQueue, order []int, batches []Batch, vb *GrowableBuffer[StagedVertex], ib *GrowableBuffer[uint32], mode BlitMode) []Batch {
	if len(order) == 0 {
		if mode == BlitRewrite {
			vb.Rewrite(nil)
			ib.Rewrite(nil)
		}
		return batches
	}

	var vertexBase, indexBase int
	if mode == BlitAppend {
		vertexBase = vb.Used()
		indexBase = ib.Used()
	}

	bl.verts = bl.verts[:0]
	bl.inds = bl.inds[:0]

	for _, ri := range order {
		m := &q.requests[ri]
		// Every local index of this request is offset by the number of
		// vertices already in the buffer ahead of it.
		base := uint32(vertexBase + len(bl.verts))

		cr, cg, cb, ca := float32(m.colour.R), float32(m.colour.G), float32(m.colour.B), float32(m.colour.A)
		texBlend := m.fill.textureBlend()

		for _, v := range q.vertices[m.firstVertex : m.firstVertex+m.vertexCount] {
			bl.verts = append(bl.verts, StagedVertex{
				X:     v.X,
				Y:     v.Y,
				U0:    v.U0,
				V0:    v.V0,
				U1:    v.U1,
				V1:    v.V1,
				R:     v.R * cr,
				G:     v.G * cg,
				B:     v.B * cb,
				A:     v.A * ca,
				Space: m.space,
				Blend: texBlend,
			})
		}
		for _, idx := range q.indices[m.firstIndex : m.firstIndex+m.indexCount] {
			bl.inds = append(bl.inds, idx+base)
		}
	}

	if mode == BlitRewrite {
		vb.Rewrite(bl.verts)
		ib.Rewrite(bl.inds)
	} else {
		vb.Append(bl.verts)
		ib.Append(bl.inds)
	}

	for i := range batches {
		batches[i].FirstIndex += indexBase
		batches[i].FirstVertex += vertexBase
	}
	return batches
}
