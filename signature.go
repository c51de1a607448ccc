package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// ---------------------------------------------------------------------------
// Signatures
// ---------------------------------------------------------------------------

const (
	// Capture canvas size in the browser.
	signatureCaptureWidth  = 300
	signatureCaptureHeight = 150

	// Size pasted onto the template pages.
	signatureWidth  = 312
	signatureHeight = 104

	minInkCoverage = 0.05
)

// Signature is a processed freehand signature ready for compositing.
type Signature struct {
	Image    *image.NRGBA // signatureWidth x signatureHeight
	Coverage float64
	PNG      []byte // lossless copy of the capture
}

// inkCoverage returns the fraction of pixels with non-zero alpha.
func inkCoverage(img image.Image) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	inked := 0
	switch m := img.(type) {
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, y):m.PixOffset(b.Max.X, y)]
			for i := 3; i < len(row); i += 4 {
				if row[i] > 0 {
					inked++
				}
			}
		}
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, y):m.PixOffset(b.Max.X, y)]
			for i := 3; i < len(row); i += 4 {
				if row[i] > 0 {
					inked++
				}
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
					inked++
				}
			}
		}
	}

	return float64(inked) / float64(total)
}

// decodeCapture decodes a PNG canvas export. The header is checked before the
// pixels are allocated, so only captures of the canvas size are decoded.
func decodeCapture(raw []byte) (image.Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSignature, err)
	}
	if cfg.Width != signatureCaptureWidth || cfg.Height != signatureCaptureHeight {
		return nil, fmt.Errorf("%w: capture is %dx%d, want %dx%d", ErrUnreadableSignature,
			cfg.Width, cfg.Height, signatureCaptureWidth, signatureCaptureHeight)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSignature, err)
	}
	return img, nil
}

// processSignature rejects captures below minInkCoverage and stretches the
// rest to exactly signatureWidth x signatureHeight.
func processSignature(capture image.Image) (*Signature, error) {
	if capture == nil {
		return nil, fmt.Errorf("%w: no signature", ErrInsufficientInk)
	}
	if size := capture.Bounds().Size(); size != image.Pt(signatureCaptureWidth, signatureCaptureHeight) {
		return nil, fmt.Errorf("%w: capture is %dx%d", ErrUnreadableSignature, size.X, size.Y)
	}

	coverage := inkCoverage(capture)
	if coverage < minInkCoverage {
		return nil, fmt.Errorf("%w: coverage %.3f < %.2f", ErrInsufficientInk, coverage, minInkCoverage)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, capture); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	decoded, err := png.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, signatureWidth, signatureHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), decoded, decoded.Bounds(), draw.Src, nil)

	return &Signature{Image: dst, Coverage: coverage, PNG: buf.Bytes()}, nil
}
