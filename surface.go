package trellis

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// SurfaceKind classifies a surface for resolution rules.
type SurfaceKind uint8

const (
	SurfaceMain         SurfaceKind = iota // the window back buffer
	SurfaceRenderTarget                    // offscreen, drawable and sampleable
	SurfaceTexture                         // loaded image, sample-only
)

func (k SurfaceKind) String() string {
	switch k {
	case SurfaceMain:
		return "main"
	case SurfaceRenderTarget:
		return "render-target"
	case SurfaceTexture:
		return "texture"
	default:
		return fmt.Sprintf("SurfaceKind(%d)", k)
	}
}

// Surface is a GPU render target or sampleable texture.
type Surface struct {
	Handle SurfaceHandle
	Kind   SurfaceKind
	Image  *ebiten.Image
}

// Size returns the pixel size of the surface, or (0, 0) when it has no image.
func (s *Surface) Size() (w, h int) {
	if s == nil || s.Image == nil {
		return 0, 0
	}
	b := s.Image.Bounds()
	return b.Dx(), b.Dy()
}

// SurfaceResolver looks surfaces up by handle. Implementations log a warning
// and return nil when the handle is unknown or its kind is disallowed;
// callers treat nil as "skip this draw".
type SurfaceResolver interface {
	Resolve(h SurfaceHandle, disallowed ...SurfaceKind) *Surface
}

// --- White pixel singleton (no sync.Once; all GPU work is on the game thread) ---

var whiteSurface *Surface

// whitePixel returns the lazily-initialized 1x1 white surface bound in place
// of null texture handles.
func whitePixel() *Surface {
	if whiteSurface == nil {
		img := ebiten.NewImage(1, 1)
		img.Fill(color.RGBA{R: 255, G: 255, B: 255, A: 255})
		whiteSurface = &Surface{Handle: NullSurface, Kind: SurfaceTexture, Image: img}
	}
	return whiteSurface
}

// SurfaceStore is the default SurfaceResolver: a registry of the main
// surface, render targets and textures.
type SurfaceStore struct {
	surfaces map[SurfaceHandle]*Surface
	next     SurfaceHandle
}

// NewSurfaceStore creates a store with the main surface registered under
// MainSurface. The main surface image is attached each frame with SetMain.
func NewSurfaceStore() *SurfaceStore {
	s := &SurfaceStore{
		surfaces: make(map[SurfaceHandle]*Surface),
		next:     MainSurface + 1,
	}
	s.surfaces[MainSurface] = &Surface{Handle: MainSurface, Kind: SurfaceMain}
	return s
}

// SetMain attaches the window back buffer for the current frame.
func (s *SurfaceStore) SetMain(img *ebiten.Image) {
	s.surfaces[MainSurface].Image = img
}

// CreateRenderTarget allocates an offscreen surface of the given size.
func (s *SurfaceStore) CreateRenderTarget(w, h int) SurfaceHandle {
	return s.add(SurfaceRenderTarget, ebiten.NewImage(w, h))
}

// AddTexture registers a loaded image as a sample-only texture.
func (s *SurfaceStore) AddTexture(img *ebiten.Image) SurfaceHandle {
	return s.add(SurfaceTexture, img)
}

func (s *SurfaceStore) add(kind SurfaceKind, img *ebiten.Image) SurfaceHandle {
	h := s.next
	s.next++
	s.surfaces[h] = &Surface{Handle: h, Kind: kind, Image: img}
	return h
}

// Get returns the surface for h without logging, or nil.
func (s *SurfaceStore) Get(h SurfaceHandle) *Surface {
	return s.surfaces[h]
}

// Len returns the number of registered surfaces, including the main surface.
func (s *SurfaceStore) Len() int {
	return len(s.surfaces)
}

// Resolve implements SurfaceResolver.
func (s *SurfaceStore) Resolve(h SurfaceHandle, disallowed ...SurfaceKind) *Surface {
	surf, ok := s.surfaces[h]
	if !ok {
		Logger().Warn("trellis: surface not found", "handle", uint64(h))
		return nil
	}
	for _, k := range disallowed {
		if surf.Kind == k {
			Logger().Warn("trellis: surface kind not allowed here", "handle", uint64(h), "kind", surf.Kind.String())
			return nil
		}
	}
	return surf
}

// Destroy deallocates the surface image and unregisters h. Textures are
// owned by the caller and are only unregistered.
func (s *SurfaceStore) Destroy(h SurfaceHandle) error {
	if h == MainSurface {
		return fmt.Errorf("trellis: destroy surface %d: %w", h, ErrReservedHandle)
	}
	surf, ok := s.surfaces[h]
	if !ok {
		return fmt.Errorf("trellis: destroy surface %d: %w", h, ErrUnknownSurface)
	}
	if surf.Kind == SurfaceRenderTarget && surf.Image != nil {
		surf.Image.Deallocate()
	}
	surf.Image = nil
	delete(s.surfaces, h)
	return nil
}

// Fill fills a surface with a colour. Unknown handles are ignored.
func (s *SurfaceStore) Fill(h SurfaceHandle, c Color) {
	if surf := s.surfaces[h]; surf != nil && surf.Image != nil {
		surf.Image.Fill(c.toRGBA())
	}
}

// DestroyAll releases every render target and forgets every surface except
// the main one. Used on engine shutdown.
func (s *SurfaceStore) DestroyAll() {
	for h, surf := range s.surfaces {
		if h == MainSurface {
			continue
		}
		if surf.Kind == SurfaceRenderTarget && surf.Image != nil {
			surf.Image.Deallocate()
		}
		delete(s.surfaces, h)
	}
}

// targetImage returns the drawable region of a surface for the current
// viewport. A zero viewport means the whole surface.
func targetImage(s *Surface, vp Rect) *ebiten.Image {
	if s == nil || s.Image == nil {
		return nil
	}
	if vp.Empty() {
		return s.Image
	}
	b := s.Image.Bounds()
	r := b.Intersect(rectToImage(vp).Add(b.Min))
	return s.Image.SubImage(r).(*ebiten.Image)
}
