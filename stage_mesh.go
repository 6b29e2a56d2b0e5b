package trellis

import "fmt"

// MeshVertex is a vertex of a 3D mesh. UVs are normalised over the bound
// texture. The colour is used as given.
type MeshVertex struct {
	X, Y, Z    float32
	U, V       float32
	R, G, B, A float32
}

// MeshRenderConfig configures a MeshRenderStage.
type MeshRenderConfig struct {
	Blend BlendMode
	// Wrap is the sampling mode of the mesh texture.
	Wrap WrapMode
}

// MeshRenderStage projects an indexed 3D mesh through a 3D camera and draws
// it as a triangle list. Building the mesh is the caller's job.
type MeshRenderStage struct {
	stageBase
	cfg MeshRenderConfig

	vertices []MeshVertex
	indices  []uint32
	version  uint64

	// triangles is the de-indexed mesh rebuilt by Process.
	triangles []MeshVertex
	built     uint64
	primed    bool

	// projected is the screen-space triangle list the renderer draws from.
	projected *GrowableBuffer[StagedVertex]
	staging   []StagedVertex
}

// NewMeshRenderStage builds a mesh render stage.
func NewMeshRenderStage(h StageHandle, cfg MeshRenderConfig, device BufferDevice) *MeshRenderStage {
	if device == nil {
		device = HostDevice{}
	}
	return &MeshRenderStage{
		stageBase: newStageBase(h, StageMeshRender),
		cfg:       cfg,
		projected: newGrowableBuffer(device.NewVertexBuffer, 256),
	}
}

// Config returns the stage configuration.
func (s *MeshRenderStage) Config() MeshRenderConfig { return s.cfg }

// SetMesh replaces the mesh. Vertices and indices are copied.
func (s *MeshRenderStage) SetMesh(vertices []MeshVertex, indices []uint32) error {
	if len(vertices) == 0 || len(indices) == 0 {
		return fmt.Errorf("trellis: set mesh: %w", ErrEmptyGeometry)
	}
	if len(indices)%3 != 0 {
		return fmt.Errorf("trellis: set mesh: %w: got %d", ErrIndexCount, len(indices))
	}
	nv := uint32(len(vertices))
	for i, idx := range indices {
		if idx >= nv {
			return fmt.Errorf("trellis: set mesh: %w: index %d is %d, have %d vertices", ErrIndexRange, i, idx, nv)
		}
	}
	s.vertices = append(s.vertices[:0], vertices...)
	s.indices = append(s.indices[:0], indices...)
	s.version++
	return nil
}

// ClearMesh removes the mesh.
func (s *MeshRenderStage) ClearMesh() {
	s.vertices = s.vertices[:0]
	s.indices = s.indices[:0]
	s.version++
}

// Triangles returns the de-indexed triangle list built by the last Process.
func (s *MeshRenderStage) Triangles() []MeshVertex { return s.triangles }

// Update is a no-op; mesh stages have no timed parameters.
func (s *MeshRenderStage) Update(float32) {}

// Process expands the indexed mesh into a triangle list when it changed.
func (s *MeshRenderStage) Process() {
	if s.state == StageDestroyed || (s.primed && s.built == s.version) {
		return
	}
	s.triangles = s.triangles[:0]
	for _, idx := range s.indices {
		s.triangles = append(s.triangles, s.vertices[idx])
	}
	s.built = s.version
	s.primed = true
}

// Release frees the projected vertex buffer exactly once.
func (s *MeshRenderStage) Release(resourcesInvalidated bool) {
	if !s.markDestroyed() {
		return
	}
	s.projected.Release(resourcesInvalidated)
	s.triangles = nil
	s.staging = nil
}

// project transforms the triangle list through cam into screen-space staged
// vertices and uploads them. Triangles with a vertex behind the camera are
// dropped. It returns the number of vertices written.
func (s *MeshRenderStage) project(cam *CameraBinding, fill FillType) int {
	s.staging = s.staging[:0]
	blend := fill.textureBlend()
	for t := 0; t+2 < len(s.triangles); t += 3 {
		var tri [3]StagedVertex
		visible := true
		for i := 0; i < 3; i++ {
			v := &s.triangles[t+i]
			sx, sy, ok := projectPoint(cam.ViewProjection, float64(v.X), float64(v.Y), float64(v.Z), cam.Viewport)
			if !ok {
				visible = false
				break
			}
			tri[i] = StagedVertex{
				X: float32(sx), Y: float32(sy),
				U0: v.U, V0: v.V,
				R: v.R, G: v.G, B: v.B, A: v.A,
				Space: SpaceScreen,
				Blend: blend,
			}
		}
		if visible {
			s.staging = append(s.staging, tri[:]...)
		}
	}
	s.projected.Rewrite(s.staging)
	return len(s.staging)
}
