package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func decode(t *testing.T, s *Sprite) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(s.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if format != "png" || s.MIME != "image/png" {
		t.Fatalf("expected PNG output, got %s (%s)", format, s.MIME)
	}
	return img
}

func TestNormaliseKeepsTransparency(t *testing.T) {
	sprite, err := NormaliseSprite(bytes.NewReader(encodePNG(solid(96, 96, color.NRGBA{0, 0, 0, 0}))))
	if err != nil {
		t.Fatalf("NormaliseSprite: %v", err)
	}

	img := decode(t, sprite)
	if _, _, _, a := img.At(10, 10).RGBA(); a != 0 {
		t.Errorf("expected transparent pixel, got alpha %d", a)
	}
	if sprite.Width != 96 || sprite.Height != 96 {
		t.Errorf("expected native 96x96, got %dx%d", sprite.Width, sprite.Height)
	}
}

func TestNormaliseShrinksLargeSprites(t *testing.T) {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(1024, 512, color.NRGBA{255, 0, 0, 255}), nil)

	sprite, err := NormaliseSprite(&buf)
	if err != nil {
		t.Fatalf("NormaliseSprite: %v", err)
	}

	b := decode(t, sprite).Bounds()
	if b.Dx() != MaxSpriteSize || b.Dy() != MaxSpriteSize/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxSpriteSize, MaxSpriteSize/2, b.Dx(), b.Dy())
	}
}

func TestNormaliseTallSprite(t *testing.T) {
	sprite, err := NormaliseSprite(bytes.NewReader(encodePNG(solid(100, 1000, color.White))))
	if err != nil {
		t.Fatalf("NormaliseSprite: %v", err)
	}
	if sprite.Height != MaxSpriteSize || sprite.Width != 25 {
		t.Errorf("expected 25x%d, got %dx%d", MaxSpriteSize, sprite.Width, sprite.Height)
	}
}

func TestNormaliseGIF(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 40, 40), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, pal, nil); err != nil {
		t.Fatalf("encoding gif: %v", err)
	}

	sprite, err := NormaliseSprite(&buf)
	if err != nil {
		t.Fatalf("NormaliseSprite: %v", err)
	}
	decode(t, sprite)
}

func TestNormaliseRejectsNonImages(t *testing.T) {
	_, err := NormaliseSprite(bytes.NewReader([]byte("definitely not a sprite")))
	if err == nil {
		t.Error("expected error for text upload")
	}
}

func TestNormaliseRejectsOversizedUploads(t *testing.T) {
	data := make([]byte, MaxUploadBytes+10)
	copy(data, "\x89PNG\r\n\x1a\n")

	_, err := NormaliseSprite(bytes.NewReader(data))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
