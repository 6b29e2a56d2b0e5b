package trellis

import "testing"

func newTestBuffers(dev BufferDevice) (*GrowableBuffer[StagedVertex], *GrowableBuffer[uint32]) {
	return newGrowableBuffer(dev.NewVertexBuffer, 4), newGrowableBuffer(dev.NewIndexBuffer, 6)
}

func blitAll(q *RequestQueue, vb *GrowableBuffer[StagedVertex], ib *GrowableBuffer[uint32], mode BlitMode) []Batch {
	var b Batcher
	var bl Blitter
	order, batches := b.Run(q)
	return bl.Blit(q, order, batches, vb, ib, mode)
}

func TestBlitRebasesIndices(t *testing.T) {
	q := NewDynamicQueue(false, QueueCapacity{})
	mustAdd(t, q, colouredQuad(0, 0.5))
	mustAdd(t, q, colouredQuad(0, 0.5))

	vb, ib := newTestBuffers(HostDevice{})
	blitAll(q, vb, ib, BlitRewrite)

	want := []uint32{0, 1, 2, 1, 3, 2, 4, 5, 6, 5, 7, 6}
	got := ib.Contents()
	if len(got) != len(want) {
		t.Fatalf("indices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices = %v, want %v", got, want)
		}
	}
	if vb.Used() != 8 {
		t.Errorf("vertices used = %d, want 8", vb.Used())
	}
}

func TestBlitIndicesStayInRange(t *testing.T) {
	q := NewDynamicQueue(false, QueueCapacity{})
	for i := range 20 {
		mustAdd(t, q, texturedQuad(SurfaceHandle(2+i%3), uint32(i%2), float32(i%5)/5))
	}
	vb, ib := newTestBuffers(HostDevice{})
	batches := blitAll(q, vb, ib, BlitRewrite)
	for _, b := range batches {
		for _, idx := range ib.Contents()[b.FirstIndex : b.FirstIndex+b.IndexCount] {
			if int(idx) < b.FirstVertex || int(idx) >= b.FirstVertex+b.VertexCount {
				t.Fatalf("index %d outside batch vertex range [%d,%d)", idx, b.FirstVertex, b.FirstVertex+b.VertexCount)
			}
		}
	}
}

func TestBlitTint(t *testing.T) {
	tests := []struct {
		name   string
		colour Color
		vertex [4]float32
		want   [4]float32
	}{
		{"white tint keeps vertex colour", ColorWhite, [4]float32{0.5, 0.25, 1, 1}, [4]float32{0.5, 0.25, 1, 1}},
		{"tint multiplies", Color{0.5, 1, 0, 1}, [4]float32{1, 0.5, 1, 0.5}, [4]float32{0.5, 0.5, 0, 0.5}},
		{"zero tint clears", Color{}, [4]float32{0.2, 0.4, 0.6, 0.8}, [4]float32{}},
		{"zero vertex colour stays zero", Color{0.5, 0.5, 0.5, 1}, [4]float32{}, [4]float32{}},
		{"zero times zero", Color{}, [4]float32{}, [4]float32{}},
		{"faded tint", Color{1, 1, 1, 0.25}, [4]float32{1, 1, 1, 1}, [4]float32{1, 1, 1, 0.25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := colouredQuad(0, 0)
			req.Colour = tt.colour
			for i := range req.Vertices {
				v := &req.Vertices[i]
				v.R, v.G, v.B, v.A = tt.vertex[0], tt.vertex[1], tt.vertex[2], tt.vertex[3]
			}
			q := NewDynamicQueue(false, QueueCapacity{})
			mustAdd(t, q, req)
			vb, ib := newTestBuffers(HostDevice{})
			blitAll(q, vb, ib, BlitRewrite)

			v := vb.Contents()[0]
			got := [4]float32{v.R, v.G, v.B, v.A}
			if got != tt.want {
				t.Errorf("staged colour = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlitTagsSpaceAndBlend(t *testing.T) {
	req := texturedQuad(2, 0, 0)
	req.Space = SpaceScreen
	q := NewDynamicQueue(false, QueueCapacity{})
	mustAdd(t, q, req)
	mustAdd(t, q, colouredQuad(0, 0))

	vb, ib := newTestBuffers(HostDevice{})
	blitAll(q, vb, ib, BlitRewrite)

	// Coloured sorts first.
	vs := vb.Contents()
	if vs[0].Space != SpaceWorld || vs[0].Blend != TextureBlendNone {
		t.Errorf("coloured vertex = space %d blend %d", vs[0].Space, vs[0].Blend)
	}
	if vs[4].Space != SpaceScreen || vs[4].Blend != TextureBlendSingle {
		t.Errorf("textured vertex = space %d blend %d", vs[4].Space, vs[4].Blend)
	}
}

func TestBlitEmptyIssuesNoWrites(t *testing.T) {
	dev := &countingDevice{}
	vb, ib := newTestBuffers(dev)
	q := NewDynamicQueue(false, QueueCapacity{})
	batches := blitAll(q, vb, ib, BlitRewrite)
	if len(batches) != 0 {
		t.Errorf("batches = %d, want 0", len(batches))
	}
	if len(dev.writes) != 0 || dev.allocs != 0 {
		t.Errorf("writes = %d, allocs = %d; want none", len(dev.writes), dev.allocs)
	}
}

func TestBlitOneWritePerBuffer(t *testing.T) {
	dev := &countingDevice{}
	vb, ib := newTestBuffers(dev)
	q := NewDynamicQueue(false, QueueCapacity{Requests: 8, Vertices: 64, Indices: 96})
	for range 3 {
		mustAdd(t, q, colouredQuad(0, 0))
	}
	// Presize so no regrow copies happen.
	vb.Rewrite(make([]StagedVertex, 32))
	ib.Rewrite(make([]uint32, 32))
	dev.writes = nil

	blitAll(q, vb, ib, BlitRewrite)
	if len(dev.writes) != 2 {
		t.Fatalf("writes = %v, want one vertex and one index write", dev.writes)
	}
	if dev.writes[0] != (writeRecord{0, 12}) || dev.writes[1] != (writeRecord{0, 18}) {
		t.Errorf("writes = %v", dev.writes)
	}
}

func TestBlitAppendOffsets(t *testing.T) {
	persistent := NewPersistentQueue(QueueCapacity{})
	mustAdd(t, persistent, texturedQuad(2, 0, 0))
	dynamic := NewDynamicQueue(false, QueueCapacity{})
	mustAdd(t, dynamic, colouredQuad(0, 0))

	vb, ib := newTestBuffers(HostDevice{})
	blitAll(persistent, vb, ib, BlitRewrite)
	batches := blitAll(dynamic, vb, ib, BlitAppend)

	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	if batches[0].FirstVertex != 4 || batches[0].FirstIndex != 6 {
		t.Errorf("appended batch offsets = %+v, want vertex 4 index 6", batches[0])
	}
	got := ib.Contents()[6:]
	want := []uint32{4, 5, 6, 5, 7, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("appended indices = %v, want %v", got, want)
		}
	}
}

func TestBlitRewriteStartsOver(t *testing.T) {
	dev := &countingDevice{}
	vb, ib := newTestBuffers(dev)

	first := NewDynamicQueue(false, QueueCapacity{})
	mustAdd(t, first, texturedQuad(2, 0, 0))
	blitAll(first, vb, ib, BlitAppend)

	second := NewDynamicQueue(false, QueueCapacity{})
	for range 3 {
		mustAdd(t, second, colouredQuad(0, 0))
	}
	dev.writes = nil
	batches := blitAll(second, vb, ib, BlitRewrite)

	// The regrow drops the old quad instead of copying it forward.
	if len(dev.writes) != 2 || dev.writes[0] != (writeRecord{0, 12}) || dev.writes[1] != (writeRecord{0, 18}) {
		t.Fatalf("writes = %v, want one full vertex and one full index write", dev.writes)
	}
	if vb.Used() != 12 || ib.Used() != 18 {
		t.Errorf("used = %d vertices, %d indices; want 12, 18", vb.Used(), ib.Used())
	}
	if len(batches) != 1 || batches[0].FirstVertex != 0 || batches[0].FirstIndex != 0 {
		t.Errorf("batches = %+v, want one batch at offset 0", batches)
	}
	if vb.Contents()[0].Blend != TextureBlendNone {
		t.Error("stale textured vertex survived the rewrite")
	}

	dev.writes = nil
	empty := NewDynamicQueue(false, QueueCapacity{})
	blitAll(empty, vb, ib, BlitRewrite)
	if vb.Used() != 0 || ib.Used() != 0 || len(dev.writes) != 0 {
		t.Errorf("empty rewrite: used %d/%d, writes %v; want 0/0 and none", vb.Used(), ib.Used(), dev.writes)
	}
}
