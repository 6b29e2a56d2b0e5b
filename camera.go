package trellis

import (
	"fmt"
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// CameraBinding is the resolved transform state a renderer draws with.
// World maps world units to target pixels, Screen maps viewport-relative
// pixels to target pixels. 3D bindings carry a row-major view-projection
// matrix instead.
type CameraBinding struct {
	World          [6]float64
	Screen         [6]float64
	ViewProjection [16]float64
	Viewport       Rect
	Is3D           bool
}

// transformFor returns the affine matrix for a coordinate space.
func (b *CameraBinding) transformFor(space CoordinateSpace) [6]float64 {
	if b == nil {
		return identityTransform
	}
	if space == SpaceWorld {
		return b.World
	}
	return b.Screen
}

// CameraResolver looks cameras up by handle. Implementations log a warning
// and return nil on a miss; callers skip the affected draw.
type CameraResolver interface {
	Resolve2D(h CameraHandle) *CameraBinding
	Resolve3D(h CameraHandle) *CameraBinding
}

// scrollAnim holds active scroll-to tweens for camera X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Camera is a 2D camera: position, zoom, rotation, and viewport.
type Camera struct {
	// X and Y are the world-space position the camera centers on.
	X, Y float64
	// Zoom is the scale factor (1.0 = no zoom, >1 = zoom in, <1 = zoom out).
	Zoom float64
	// Rotation is the camera rotation in radians (clockwise).
	Rotation float64
	// Viewport is the screen-space rectangle this camera renders into.
	Viewport Rect

	// BoundsEnabled clamps the camera position so the visible area stays
	// within Bounds.
	BoundsEnabled bool
	// Bounds is the world-space rectangle the camera is clamped to when
	// BoundsEnabled is true.
	Bounds Rect

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool

	scrollTween *scrollAnim
	zoomTween   *gween.Tween
}

// NewCamera creates a Camera with default values and the given viewport.
func NewCamera(viewport Rect) *Camera {
	return &Camera{
		Zoom:     1.0,
		Viewport: viewport,
		dirty:    true,
	}
}

// ScrollTo animates the camera to the given world position over duration seconds.
func (c *Camera) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	c.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(c.X), float32(x), duration, easeFn),
		tweenY: gween.New(float32(c.Y), float32(y), duration, easeFn),
	}
}

// ZoomTo animates the zoom factor over duration seconds.
func (c *Camera) ZoomTo(zoom float64, duration float32, easeFn ease.TweenFunc) {
	c.zoomTween = gween.New(float32(c.Zoom), float32(zoom), duration, easeFn)
}

// SetBounds enables camera bounds clamping.
func (c *Camera) SetBounds(bounds Rect) {
	c.BoundsEnabled = true
	c.Bounds = bounds
}

// ClearBounds disables camera bounds clamping.
func (c *Camera) ClearBounds() {
	c.BoundsEnabled = false
}

// update advances scroll, zoom, and bounds clamping. Called from CameraStore.Update.
func (c *Camera) update(dt float32) {
	prevX, prevY := c.X, c.Y
	prevZoom, prevRot := c.Zoom, c.Rotation

	if c.scrollTween != nil {
		if !c.scrollTween.doneX {
			val, done := c.scrollTween.tweenX.Update(dt)
			c.X = float64(val)
			c.scrollTween.doneX = done
		}
		if !c.scrollTween.doneY {
			val, done := c.scrollTween.tweenY.Update(dt)
			c.Y = float64(val)
			c.scrollTween.doneY = done
		}
		if c.scrollTween.doneX && c.scrollTween.doneY {
			c.scrollTween = nil
		}
	}

	if c.zoomTween != nil {
		val, done := c.zoomTween.Update(dt)
		c.Zoom = float64(val)
		if done {
			c.zoomTween = nil
		}
	}

	if c.BoundsEnabled {
		c.clampToBounds()
	}

	if c.X != prevX || c.Y != prevY || c.Zoom != prevZoom || c.Rotation != prevRot {
		c.dirty = true
	}
}

// clampToBounds restricts camera position so the visible area stays within Bounds.
func (c *Camera) clampToBounds() {
	halfW := c.Viewport.Width / (2 * c.Zoom)
	halfH := c.Viewport.Height / (2 * c.Zoom)

	minX := c.Bounds.X + halfW
	maxX := c.Bounds.X + c.Bounds.Width - halfW
	minY := c.Bounds.Y + halfH
	maxY := c.Bounds.Y + c.Bounds.Height - halfH

	// If bounds are smaller than visible area, center the camera.
	if minX > maxX {
		c.X = c.Bounds.X + c.Bounds.Width/2
	} else {
		c.X = math.Max(minX, math.Min(c.X, maxX))
	}
	if minY > maxY {
		c.Y = c.Bounds.Y + c.Bounds.Height/2
	} else {
		c.Y = math.Max(minY, math.Min(c.Y, maxY))
	}
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(cx, cy) * Scale(zoom) * Rotate(-rotation) * Translate(-X, -Y)
// where cx, cy = viewport center.
func (c *Camera) computeViewMatrix() [6]float64 {
	if !c.dirty {
		return c.viewMatrix
	}
	c.dirty = false

	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2

	sin, cos := math.Sincos(-c.Rotation)
	z := c.Zoom

	a := z * cos
	b := -z * sin
	cc := z * sin
	d := z * cos
	tx := cx + z*(-cos*c.X+sin*c.Y)
	ty := cy + z*(-sin*c.X-cos*c.Y)

	c.viewMatrix = [6]float64{a, cc, b, d, tx, ty}
	c.invViewMatrix = invertAffine(c.viewMatrix)
	return c.viewMatrix
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	return transformPoint(c.computeViewMatrix(), wx, wy)
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	c.computeViewMatrix()
	return transformPoint(c.invViewMatrix, sx, sy)
}

// VisibleBounds returns the axis-aligned bounding rect of the camera's visible
// area in world space.
func (c *Camera) VisibleBounds() Rect {
	c.computeViewMatrix()
	inv := c.invViewMatrix

	vx := c.Viewport.X
	vy := c.Viewport.Y
	vr := vx + c.Viewport.Width
	vb := vy + c.Viewport.Height

	x0, y0 := transformPoint(inv, vx, vy)
	x1, y1 := transformPoint(inv, vr, vy)
	x2, y2 := transformPoint(inv, vr, vb)
	x3, y3 := transformPoint(inv, vx, vb)

	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// MarkDirty forces a recomputation of the view matrix.
func (c *Camera) MarkDirty() {
	c.dirty = true
}

// binding fills b with the camera's current transforms.
func (c *Camera) binding(b *CameraBinding) {
	b.World = c.computeViewMatrix()
	b.Screen = translateAffine(c.Viewport.X, c.Viewport.Y)
	b.ViewProjection = identityMat4
	b.Viewport = c.Viewport
	b.Is3D = false
}

// Camera3D is an application-supplied 3D camera: a row-major view-projection
// matrix and the viewport its clip space maps into.
type Camera3D struct {
	ViewProjection [16]float64
	Viewport       Rect
}

// NewCamera3D combines a row-major projection and view matrix into a 3D
// camera, for example Perspective(...) and LookAt(...).
func NewCamera3D(projection, view [16]float64, viewport Rect) *Camera3D {
	return &Camera3D{ViewProjection: multiplyMat4(projection, view), Viewport: viewport}
}

// CameraStore is the default CameraResolver. It owns 2D cameras and 3D
// camera bindings and hands out stable handles for both.
type CameraStore struct {
	cameras2D map[CameraHandle]*Camera
	cameras3D map[CameraHandle]*Camera3D
	bindings  map[CameraHandle]*CameraBinding
	next      CameraHandle
}

// NewCameraStore creates an empty store. Handles start at 1.
func NewCameraStore() *CameraStore {
	return &CameraStore{
		cameras2D: make(map[CameraHandle]*Camera),
		cameras3D: make(map[CameraHandle]*Camera3D),
		bindings:  make(map[CameraHandle]*CameraBinding),
		next:      1,
	}
}

// Add registers a 2D camera and returns its handle.
func (s *CameraStore) Add(c *Camera) CameraHandle {
	h := s.next
	s.next++
	s.cameras2D[h] = c
	s.bindings[h] = &CameraBinding{}
	return h
}

// Add3D registers a 3D camera and returns its handle.
func (s *CameraStore) Add3D(c *Camera3D) CameraHandle {
	h := s.next
	s.next++
	s.cameras3D[h] = c
	s.bindings[h] = &CameraBinding{}
	return h
}

// Camera returns the 2D camera for h, or nil.
func (s *CameraStore) Camera(h CameraHandle) *Camera {
	return s.cameras2D[h]
}

// Camera3D returns the 3D camera for h, or nil.
func (s *CameraStore) Camera3D(h CameraHandle) *Camera3D {
	return s.cameras3D[h]
}

// Remove forgets the camera for h.
func (s *CameraStore) Remove(h CameraHandle) error {
	if _, ok := s.bindings[h]; !ok {
		return fmt.Errorf("trellis: remove camera %d: %w", h, ErrUnknownCamera)
	}
	delete(s.cameras2D, h)
	delete(s.cameras3D, h)
	delete(s.bindings, h)
	return nil
}

// Len returns the number of registered cameras.
func (s *CameraStore) Len() int {
	return len(s.bindings)
}

// Update advances every 2D camera's scroll and zoom tweens.
func (s *CameraStore) Update(dt float32) {
	for _, c := range s.cameras2D {
		c.update(dt)
	}
}

// Resolve2D implements CameraResolver.
func (s *CameraStore) Resolve2D(h CameraHandle) *CameraBinding {
	c, ok := s.cameras2D[h]
	if !ok {
		Logger().Warn("trellis: 2D camera not found", "handle", uint64(h))
		return nil
	}
	b := s.bindings[h]
	c.binding(b)
	return b
}

// Resolve3D implements CameraResolver.
func (s *CameraStore) Resolve3D(h CameraHandle) *CameraBinding {
	c, ok := s.cameras3D[h]
	if !ok {
		Logger().Warn("trellis: 3D camera not found", "handle", uint64(h))
		return nil
	}
	b := s.bindings[h]
	b.World = identityTransform
	b.Screen = translateAffine(c.Viewport.X, c.Viewport.Y)
	b.ViewProjection = c.ViewProjection
	b.Viewport = c.Viewport
	b.Is3D = true
	return b
}
