package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strconv"
)

// Display resolution of the instrument's panel, matching the fixed
// layout the menu package's pages render against. There is no
// third-party image/framebuffer library anywhere in the retrieved
// pack, so the screenshot codec is built on the standard image/*
// packages (DESIGN.md).
const (
	fbWidth  = 128
	fbHeight = 64
)

// FramebufferReader reads the display's current 1-bit-per-pixel
// framebuffer, packed MSB-first row by row (fbWidth/8 bytes per row,
// fbHeight rows) — the raw shape the real driver mmaps from
// system.display_mmap.
type FramebufferReader interface {
	ReadFramebuffer(ctx context.Context) ([]byte, error)
}

func decodeFramebuffer(raw []byte) (*image.Gray, error) {
	rowBytes := fbWidth / 8
	if len(raw) < rowBytes*fbHeight {
		return nil, fmt.Errorf("framebuffer: want %d bytes, got %d", rowBytes*fbHeight, len(raw))
	}

	img := image.NewGray(image.Rect(0, 0, fbWidth, fbHeight))

	for y := 0; y < fbHeight; y++ {
		for x := 0; x < fbWidth; x++ {
			b := raw[y*rowBytes+x/8]
			bit := b & (0x80 >> uint(x%8))

			v := color.Gray{Y: 0}
			if bit != 0 {
				v = color.Gray{Y: 255}
			}

			img.SetGray(x, y, v)
		}
	}

	return img, nil
}

// scaleNearest scales img by an integer factor using nearest-neighbor
// sampling, matching the "scale=N" query parameter's pixel-art intent
// (a screenshot of a 1-bit panel should not be blurred by interpolation).
func scaleNearest(img *image.Gray, factor int) *image.Gray {
	if factor <= 1 {
		return img
	}

	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := img.GrayAt(b.Min.X+x, b.Min.Y+y)
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					out.SetGray(x*factor+dx, y*factor+dy, v)
				}
			}
		}
	}

	return out
}

func encodeScreenshot(w io.Writer, img image.Image, format string) (string, error) {
	switch format {
	case "", "png":
		return "image/png", png.Encode(w, img)
	case "jpg", "jpeg":
		return "image/jpeg", jpeg.Encode(w, img, nil)
	case "gif":
		return "image/gif", gif.Encode(w, img, nil)
	default:
		return "", fmt.Errorf("unsupported screenshot format %q", format)
	}
}

// getScreenshot implements GET /screenshot?format=png|gif|jpg&scale=N
// (spec.md §6).
func (s *Server) getScreenshot(w http.ResponseWriter, r *http.Request) {
	if s.fb == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no display framebuffer configured"})
		return
	}

	raw, err := s.fb.ReadFramebuffer(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	img, err := decodeFramebuffer(raw)
	if err != nil {
		s.writeError(w, err)
		return
	}

	scale := 1
	if raw := r.URL.Query().Get("scale"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 || n > 16 {
			writeValidationError(w, map[string]string{"scale": "must be an integer in [1,16]"})
			return
		}

		scale = n
	}

	scaled := scaleNearest(img, scale)

	format := r.URL.Query().Get("format")

	var buf bytes.Buffer

	contentType, err := encodeScreenshot(&buf, scaled, format)
	if err != nil {
		writeValidationError(w, map[string]string{"format": "must be one of png, gif, jpg"})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, &buf)
}
