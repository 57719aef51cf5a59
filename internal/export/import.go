package export

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/markup"
)

// maxEntrySize bounds any single archive entry read during import.
const maxEntrySize = 32 << 20

// Import reads an archive produced by Export back into a Document. Images
// become data URL assets bound to the elements whose src points at them;
// those elements get their empty placeholder src back.
func Import(data []byte) (*document.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &apperr.ParseError{What: "archive", Err: err}
	}

	var page string
	files := make(map[string][]byte)
	for _, f := range zr.File {
		name := path.Clean(strings.TrimPrefix(f.Name, "./"))
		switch {
		case name == indexFile:
			b, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			page = string(b)
		case matchImage(name):
			b, err := readEntry(f)
			if err != nil {
				return nil, err
			}
			files[name] = b
		}
	}
	if strings.TrimSpace(page) == "" {
		return nil, &apperr.ParseError{What: "archive", Err: fmt.Errorf("%s is missing or empty", indexFile)}
	}

	tree, err := markup.Parse(page)
	if err != nil {
		return nil, &apperr.ParseError{What: indexFile, Err: err}
	}
	css := tree.ExtractStyle()
	doc := &document.Document{CSS: css, CreatedAt: time.Now().UTC()}

	for _, el := range tree.FindAll(func(n *html.Node) bool { return n.Data == "img" }) {
		id, _ := markup.GetAttr(el, "id")
		src, _ := markup.GetAttr(el, "src")
		b, ok := files[path.Clean(src)]
		if id == "" || !ok {
			continue
		}
		if _, dup := doc.Image(id); dup {
			continue
		}
		url := dataURL(b)
		markup.SetAttr(el, "src", "")
		alt, _ := markup.GetAttr(el, "alt")
		doc.Images = append(doc.Images, document.ImageAsset{PlaceholderID: id, RenderedURL: url, FinalPrompt: alt})
	}

	if b, ok := files[faviconFile]; ok {
		url := dataURL(b)
		doc.Favicon = &document.FaviconAsset{RenderedURL: url}
		for _, link := range tree.FindAll(func(n *html.Node) bool { return n.Data == "link" }) {
			if href, _ := markup.GetAttr(link, "href"); path.Clean(href) == faviconFile {
				markup.Remove(link)
			}
		}
	}

	doc.Meta = readMeta(tree)
	doc.HTML, err = tree.Render()
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func matchImage(name string) bool {
	ok, _ := doublestar.Match("images/**/*.{jpeg,jpg,png,webp,gif,svg}", name)
	return ok
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxEntrySize {
		return nil, &apperr.ParseError{What: f.Name, Err: fmt.Errorf("entry too large")}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &apperr.ParseError{What: f.Name, Err: err}
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, maxEntrySize))
	if err != nil {
		return nil, &apperr.ParseError{What: f.Name, Err: err}
	}
	return b, nil
}

func dataURL(b []byte) string {
	mime := "image/jpeg"
	switch {
	case bytes.HasPrefix(b, []byte("\x89PNG")):
		mime = "image/png"
	case bytes.HasPrefix(b, []byte("GIF8")):
		mime = "image/gif"
	case bytes.HasPrefix(b, []byte("<svg")), bytes.HasPrefix(b, []byte("<?xml")):
		mime = "image/svg+xml"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}

func readMeta(tree *markup.Tree) document.Meta {
	var meta document.Meta
	if title := tree.FirstElement("title"); title != nil {
		meta.Title = strings.TrimSpace(markup.Text(title))
	}
	for _, el := range tree.FindAll(func(n *html.Node) bool { return n.Data == "meta" }) {
		name, _ := markup.GetAttr(el, "name")
		content, _ := markup.GetAttr(el, "content")
		switch strings.ToLower(name) {
		case "description":
			meta.Description = content
		case "keywords":
			meta.Keywords = content
		}
	}
	return meta
}
