package trellis

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PNGCapture writes surface read-backs as PNG files. Pass its Copy method to
// NewSurfaceCopyStage or StageManager.CreateSurfaceCopy.
type PNGCapture struct {
	// Dir is the output directory. It is created on first use.
	Dir string
	// Label is appended to the timestamp in each file name.
	Label string

	// Written is the path of the most recent file, or empty.
	Written string

	now func() time.Time
}

// NewPNGCapture creates a capture writing into dir.
func NewPNGCapture(dir, label string) *PNGCapture {
	return &PNGCapture{Dir: dir, Label: label, now: time.Now}
}

// Copy implements CopyFunc. Failures are logged and the frame continues.
func (c *PNGCapture) Copy(w, h int, pixels []byte) {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		Logger().Warn("trellis: capture: mkdir", "dir", c.Dir, "err", err)
		return
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	stamp := now().Format("20060102_150405")
	path := filepath.Join(c.Dir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(c.Label)))
	if err := writePNG(path, unpremultiply(w, h, pixels)); err != nil {
		Logger().Warn("trellis: capture", "err", err)
		return
	}
	c.Written = path
}

// unpremultiply converts premultiplied RGBA pixels to straight-alpha NRGBA.
func unpremultiply(w, h int, pixels []byte) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := min(len(pixels), len(img.Pix))
	for i := 0; i+3 < n; i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}

// writePNG encodes an image to a PNG file at the given path.
func writePNG(path string, img *image.NRGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
