// Package imaging normalises uploaded pokemon sprites.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxSpriteSize is the largest width or height a stored sprite may have.
const MaxSpriteSize = 256

// MaxUploadBytes bounds the size of an uploaded sprite.
const MaxUploadBytes = 2 << 20

// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
var ErrTooLarge = errors.New("sprite exceeds upload limit")

var accepted = map[string]bool{
	"image/png":  true,
	"image/gif":  true,
	"image/jpeg": true,
}

// Sprite is a normalised sprite, always PNG encoded.
type Sprite struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// NormaliseSprite sniffs the upload, decodes it and re-encodes it as PNG so
// transparency survives, shrinking it to fit MaxSpriteSize. Small sprites
// are kept at their native size.
func NormaliseSprite(r io.Reader) (*Sprite, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading sprite: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	detected := http.DetectContentType(data)
	if !accepted[detected] {
		return nil, fmt.Errorf("unsupported sprite format %s (PNG, GIF or JPEG expected)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding sprite: %w", err)
	}
	img = fit(img, MaxSpriteSize)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding sprite: %w", err)
	}

	b := img.Bounds()
	return &Sprite{Data: buf.Bytes(), MIME: "image/png", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down so its longer side is max, keeping the aspect ratio.
func fit(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	nw, nh := max, h*max/w
	if h > w {
		nw, nh = w*max/h, max
	}
	nw, nh = atLeastOne(nw), atLeastOne(nh)

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func init() {
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	image.RegisterFormat("gif", "GIF8?a", gif.Decode, gif.DecodeConfig)
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
}
