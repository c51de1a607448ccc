package main

import (
	"archive/zip"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"
)

// Size of an A4 page rasterized at 200 DPI.
const (
	testPageWidth  = 1654
	testPageHeight = 2339
)

var testLocation = time.FixedZone("KST", 9*60*60)

// testNow is a Monday.
func testNow() time.Time {
	return time.Date(2026, time.March, 2, 10, 0, 0, 0, testLocation)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := newRenderer(goregular.TTF)
	if err != nil {
		t.Fatalf("newRenderer() error = %v", err)
	}
	return r
}

// blankPage returns an opaque white page.
func blankPage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// inkedCapture returns a transparent capture canvas whose top rows are inked
// so that roughly the given fraction of pixels is opaque.
func inkedCapture(coverage float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, signatureCaptureWidth, signatureCaptureHeight))
	rows := int(coverage*float64(signatureCaptureHeight) + 0.5)
	draw.Draw(img, image.Rect(0, 0, signatureCaptureWidth, rows),
		image.NewUniform(color.NRGBA{A: 255}), image.Point{}, draw.Src)
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// validInput is a complete stage 3 input that passes every rule.
func validInput() FormInput {
	return FormInput{
		StudentName:   "김하늘",
		ParentName:    "김철수",
		Relationship:  "부",
		StudentSchool: "한빛초등학교 2학년",
		StudentPhone:  "01012345678",
		ParentPhone:   "010 9876 5432",
		BirthDate:     time.Date(2017, time.May, 1, 0, 0, 0, 0, testLocation),
		MoveDate:      time.Date(2026, time.March, 16, 0, 0, 0, 0, testLocation),
		SchoolName:    "새솔초등학교",
		Address:       "새솔택지 A-3블록 한빛아파트 101동 1203호",
		NextGrade:     "3학년",
	}
}

// writeXLSX writes a single-sheet workbook using inline string cells.
func writeXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
</Types>`,
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="학교" sheetId="1" r:id="rId1"/></sheets>
</workbook>`,
		"xl/worksheets/sheet1.xml": sheetXML(rows),
	}
	for _, name := range []string{"[Content_Types].xml", "xl/workbook.xml", "xl/worksheets/sheet1.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, files[name]); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func sheetXML(rows [][]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)
	for r, row := range rows {
		fmt.Fprintf(&b, `<row r="%d">`, r+1)
		for c, v := range row {
			if v == "" {
				continue
			}
			fmt.Fprintf(&b, `<c r="%c%d" t="inlineStr"><is><t>%s</t></is></c>`, 'A'+c, r+1, v)
		}
		b.WriteString(`</row>`)
	}
	b.WriteString(`</sheetData></worksheet>`)
	return b.String()
}

// testDirectoryRows is a small school directory with a header row.
var testDirectoryRows = [][]string{
	{"지역", "학교", "이메일"},
	{"새솔", "새솔초등학교", "saesol@example.com"},
	{"새솔", "한빛초등학교", "hanbit@example.com"},
	{"가온", "가온초등학교", "gaon@example.com"},
}

// fakeDirectory serves a fixed directory or a fixed error.
type fakeDirectory struct {
	dir *SchoolDirectory
	err error
}

func (f fakeDirectory) Load() (*SchoolDirectory, error) {
	return f.dir, f.err
}

func testDirectory(t *testing.T) *SchoolDirectory {
	t.Helper()
	d, err := buildDirectory(testDirectoryRows, DirectoryConfig{
		RegionColumn: "지역",
		SchoolColumn: "학교",
		EmailColumn:  "이메일",
	})
	if err != nil {
		t.Fatalf("buildDirectory() error = %v", err)
	}
	return d
}

// fakeMailer records sent documents.
type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentDocument
}

type sentDocument struct {
	to  string
	doc *RenderedDocument
}

func (f *fakeMailer) SendDocument(doc *RenderedDocument, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentDocument{to: to, doc: doc})
	return nil
}

// testWorkflow wires a workflow with blank 200 DPI template pages.
func testWorkflow(t *testing.T, dir DirectorySource, mailer documentMailer) *Workflow {
	t.Helper()
	validator, err := newValidator(defaultNamePattern, testNow)
	if err != nil {
		t.Fatal(err)
	}
	consent := Layout{Name: layoutConsent, Placements: consentPlacements}
	transfer := Layout{Name: layoutTransfer, Placements: transferPlacements(10)}
	return &Workflow{
		directory: dir,
		validator: validator,
		renderer:  testRenderer(t),
		consent:   consent,
		transfer:  transfer,
		pages: map[string]image.Image{
			layoutConsent:  blankPage(testPageWidth, testPageHeight),
			layoutTransfer: blankPage(testPageWidth, testPageHeight),
		},
		dpi:      200,
		calendar: newSchoolCalendar(),
		mailer:   mailer,
		now:      testNow,
		logger:   testLogger(),
	}
}

// testAssets writes template pages, a font and a directory into dir and
// returns a config pointing at them.
func testAssets(t *testing.T, dir string) *Config {
	t.Helper()
	consent := filepath.Join(dir, "consent.png")
	transfer := filepath.Join(dir, "transfer.png")
	font := filepath.Join(dir, "font.ttf")
	schools := filepath.Join(dir, "schools.xlsx")

	writePNG(t, consent, blankPage(testPageWidth, testPageHeight))
	writePNG(t, transfer, blankPage(testPageWidth, testPageHeight))
	if err := os.WriteFile(font, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	writeXLSX(t, schools, testDirectoryRows)

	cfg := &Config{
		Assets: AssetsConfig{
			ConsentTemplate:  consent,
			TransferTemplate: transfer,
			Font:             font,
		},
		Directory: DirectoryConfig{Path: schools},
	}
	cfg.applyDefaults()
	return cfg
}

// pdfPageCount counts page objects in an uncompressed PDF page tree.
func pdfPageCount(data []byte) int {
	return strings.Count(string(data), "<</Type /Page\n")
}
