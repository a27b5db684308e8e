package tool

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultAspectRatio is used when no ratio is configured.
const DefaultAspectRatio = "1:1"

// ParseAspectRatio parses a "W:H" ratio.
func ParseAspectRatio(ratio string) (w, h int, err error) {
	if ratio == "" {
		ratio = DefaultAspectRatio
	}
	parts := strings.Split(ratio, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid aspect ratio %q", ratio)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid aspect ratio %q", ratio)
	}
	return w, h, nil
}

// NormalizeImage center-crops data to ratio and re-encodes it as PNG.
func NormalizeImage(data []byte, ratio string) ([]byte, error) {
	rw, rh, err := ParseAspectRatio(ratio)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width*rh != height*rw {
		if width*rh > height*rw {
			width = height * rw / rh
		} else {
			height = width * rh / rw
		}
		img = imaging.CropCenter(img, width, height)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("png encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
