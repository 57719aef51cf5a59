package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/imagegen"
)

func jpegDataURL(c color.Color) string {
	img := imagegen.Image{MIMEType: "image/jpeg", Data: imagegen.SolidJPEG(8, 8, c)}
	return img.DataURL()
}

func sampleDoc() *document.Document {
	return &document.Document{
		HTML: `<!DOCTYPE html><html><head><title>Bakery</title></head><body>` +
			`<img id="hero image" alt="warm bread"><img id="gallery-1"></body></html>`,
		CSS: "body { margin: 0; }",
		Images: []document.ImageAsset{
			{PlaceholderID: "hero image", RenderedURL: jpegDataURL(color.White), FinalPrompt: "warm bread"},
			{PlaceholderID: "gallery-1", RenderedURL: document.FailedImageURL, Failed: true},
		},
		Favicon: &document.FaviconAsset{RenderedURL: jpegDataURL(color.Black)},
		Meta:    document.Meta{Title: "Bakery", Description: "Fresh bread"},
	}
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, _ := f.Open()
		b, _ := io.ReadAll(rc)
		rc.Close()
		out[f.Name] = b
	}
	return out
}

func TestExportLayout(t *testing.T) {
	var buf bytes.Buffer
	a := NewAssembler(nil, zerolog.Nop())
	if err := a.Export(context.Background(), sampleDoc(), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	files := readZip(t, buf.Bytes())

	for _, name := range []string{"index.html", "images/hero_image.jpeg", "images/gallery-1.jpeg", "images/favicon.jpeg"} {
		if _, ok := files[name]; !ok {
			t.Errorf("archive missing %s (have %d files)", name, len(files))
		}
	}
	if len(files) != 4 {
		t.Errorf("archive has %d files, want 4", len(files))
	}

	index := string(files["index.html"])
	for _, want := range []string{
		`src="images/hero_image.jpeg"`,
		`src="images/gallery-1.jpeg"`,
		`href="images/favicon.jpeg"`,
		`<style>body { margin: 0; }</style>`,
	} {
		if !strings.Contains(index, want) {
			t.Errorf("index.html missing %q:\n%s", want, index)
		}
	}
	if strings.Contains(index, "data:image") {
		t.Error("index.html should not inline image data")
	}
	if a.Running() {
		t.Error("running flag should be cleared")
	}
}

func TestExportPreconditions(t *testing.T) {
	a := NewAssembler(nil, zerolog.Nop())
	var pre *apperr.ExportPreconditionError

	var buf bytes.Buffer
	if err := a.Export(context.Background(), nil, &buf); !errors.As(err, &pre) {
		t.Errorf("nil document: %v", err)
	}
	noImages := sampleDoc()
	noImages.Images = nil
	if err := a.Export(context.Background(), noImages, &buf); !errors.As(err, &pre) {
		t.Errorf("no images: %v", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written when preconditions fail")
	}
}

func TestExportFetchesRemoteImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(imagegen.SolidJPEG(4, 4, color.White))
	}))
	defer srv.Close()

	doc := sampleDoc()
	doc.Images[0].RenderedURL = srv.URL + "/hero.jpg"
	var buf bytes.Buffer
	if err := NewAssembler(srv.Client(), zerolog.Nop()).Export(context.Background(), doc, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(readZip(t, buf.Bytes())["images/hero_image.jpeg"]) == 0 {
		t.Error("remote image not fetched")
	}
}

func TestExportConcurrentRejected(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write(imagegen.SolidJPEG(4, 4, color.White))
	}))
	defer srv.Close()

	doc := sampleDoc()
	doc.Images[0].RenderedURL = srv.URL + "/slow.jpg"
	a := NewAssembler(srv.Client(), zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- a.Export(context.Background(), doc, io.Discard) }()

	deadline := time.Now().Add(2 * time.Second)
	for !a.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := a.Export(context.Background(), sampleDoc(), io.Discard); !errors.Is(err, ErrExportInProgress) {
		t.Errorf("second export: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
	if err := a.Export(context.Background(), sampleDoc(), io.Discard); err != nil {
		t.Errorf("export after completion: %v", err)
	}
}

func TestSanitizeID(t *testing.T) {
	tests := map[string]string{
		"hero-image": "hero-image",
		"hero image": "hero_image",
		"../../etc":  "etc",
		"":           "image",
		"a/b\\c":     "a_b_c",
		"photo.1":    "photo.1",
		"   ":        "image",
	}
	for in, want := range tests {
		if got := SanitizeID(in); got != want {
			t.Errorf("SanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewAssembler(nil, zerolog.Nop()).Export(context.Background(), sampleDoc(), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	doc, err := Import(buf.Bytes())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if doc.CSS != "body { margin: 0; }" {
		t.Errorf("css = %q", doc.CSS)
	}
	if len(doc.Images) != 2 || doc.Images[0].PlaceholderID != "hero image" || doc.Images[0].FinalPrompt != "warm bread" {
		t.Fatalf("images = %+v", doc.Images)
	}
	if !strings.HasPrefix(doc.Images[0].RenderedURL, "data:image/jpeg;base64,") {
		t.Error("image not re-attached as data URL")
	}
	if doc.Favicon == nil {
		t.Error("favicon not restored")
	}
	if doc.Meta.Title != "Bakery" || doc.Meta.Description != "Fresh bread" {
		t.Errorf("meta = %+v", doc.Meta)
	}
	if strings.Contains(doc.HTML, "images/") || strings.Contains(doc.HTML, "<style") {
		t.Errorf("html still references archive paths or styles:\n%s", doc.HTML)
	}
	if strings.Contains(doc.HTML, "data:") || strings.Contains(doc.HTML, `rel="icon"`) {
		t.Errorf("imported markup carries asset payloads:\n%s", doc.HTML)
	}
}

func TestExportDuplicateIDFirstWins(t *testing.T) {
	doc := sampleDoc()
	doc.Images = append(doc.Images, document.ImageAsset{PlaceholderID: "hero image", RenderedURL: jpegDataURL(color.Black)})

	var buf bytes.Buffer
	if err := NewAssembler(nil, zerolog.Nop()).Export(context.Background(), doc, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	files := readZip(t, buf.Bytes())
	if len(files) != 4 {
		t.Errorf("archive has %d files, want 4", len(files))
	}
	if _, ok := files["images/hero_image-2.jpeg"]; ok {
		t.Error("second asset for a repeated id was written")
	}
	img, err := jpeg.Decode(bytes.NewReader(files["images/hero_image.jpeg"]))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r < 0x8000 {
		t.Error("slot should hold the first (white) asset")
	}
}

func TestImportRejectsBadArchives(t *testing.T) {
	if _, err := Import([]byte("not a zip")); err == nil {
		t.Error("expected error for non-zip input")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("images/a.jpeg")
	f.Write([]byte{0xff, 0xd8})
	zw.Close()
	var perr *apperr.ParseError
	if _, err := Import(buf.Bytes()); !errors.As(err, &perr) {
		t.Errorf("expected ParseError for archive without index.html, got %v", err)
	}
}
