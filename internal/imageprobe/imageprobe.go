// Package imageprobe reads image dimensions and renders preview thumbnails.
package imageprobe

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Default thumbnail box used by the inspection report.
const (
	DefaultThumbWidth  = 264
	DefaultThumbHeight = 200
)

// ErrEmpty is returned when there are no image bytes to work with.
var ErrEmpty = errors.New("empty image data")

// Probe returns the pixel dimensions of an encoded image. ok is false when the
// bytes are empty or not in a registered format.
func Probe(b []byte) (w, h int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// Fit scales (w, h) down or up to fit inside (maxW, maxH) keeping the aspect
// ratio. Both results are at least 1.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 1, 1
	}
	fw, fh := maxW, h*maxW/w
	if fh > maxH {
		fw, fh = w*maxH/h, maxH
	}
	if fw < 1 {
		fw = 1
	}
	if fh < 1 {
		fh = 1
	}
	return fw, fh
}

// Thumbnail decodes b and returns a PNG of exactly boxW x boxH with the image
// scaled to fit and centred on a transparent background.
func Thumbnail(b []byte, boxW, boxH int) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrEmpty
	}
	if boxW <= 0 {
		boxW = DefaultThumbWidth
	}
	if boxH <= 0 {
		boxH = DefaultThumbHeight
	}
	src, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	sb := src.Bounds()
	w, h := Fit(sb.Dx(), sb.Dy(), boxW, boxH)

	canvas := image.NewRGBA(image.Rect(0, 0, boxW, boxH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	x0, y0 := (boxW-w)/2, (boxH-h)/2
	draw.CatmullRom.Scale(canvas, image.Rect(x0, y0, x0+w, y0+h), src, sb, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return out.Bytes(), nil
}
