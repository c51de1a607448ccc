package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/draw"
)

// ---------------------------------------------------------------------------
// PDF Assembly
// ---------------------------------------------------------------------------

const (
	pdfJPEGQuality = 70
	mmPerInch      = 25.4
)

// RenderedDocument is the assembled two-page confirmation.
type RenderedDocument struct {
	PDF            []byte
	Filename       string   // download name
	AttachmentName string   // ASCII name for the email attachment
	Pages          int      // number of pages in PDF
	Previews       [][]byte // JPEG of each page, in order
	Reference      string
	Notice         string // non-blocking remark shown with the preview
}

// flatten composites img over white, dropping the alpha channel.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// encodePage flattens a rendered page and encodes it as JPEG.
func encodePage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: pdfJPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// assembleDocument writes one PDF page per raster, in order, each page sized
// to the raster at the given resolution.
func assembleDocument(pages []image.Image, dpi float64) ([]byte, [][]byte, error) {
	if len(pages) == 0 {
		return nil, nil, fmt.Errorf("no pages to assemble")
	}
	if dpi <= 0 {
		return nil, nil, fmt.Errorf("invalid resolution %v dpi", dpi)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(formTypeLabel, true)

	encoded := make([][]byte, 0, len(pages))
	for i, page := range pages {
		data, err := encodePage(page)
		if err != nil {
			return nil, nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		encoded = append(encoded, data)

		b := page.Bounds()
		wd := float64(b.Dx()) / dpi * mmPerInch
		ht := float64(b.Dy()) / dpi * mmPerInch

		name := fmt.Sprintf("page%d", i+1)
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(data))
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: wd, Ht: ht})
		pdf.ImageOptions(name, 0, 0, wd, ht, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), encoded, nil
}

// newRenderedDocument assembles the consent and transfer pages, consent first.
func newRenderedDocument(consent, transfer image.Image, dpi float64, d FormData) (*RenderedDocument, error) {
	data, previews, err := assembleDocument([]image.Image{consent, transfer}, dpi)
	if err != nil {
		return nil, &RenderError{Step: "assemble", Err: err}
	}

	filename := documentFilename(d.SchoolName, d.NextGrade)
	return &RenderedDocument{
		PDF:            data,
		Filename:       filename,
		AttachmentName: attachmentFilename(filename),
		Pages:          len(previews),
		Previews:       previews,
	}, nil
}
