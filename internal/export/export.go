// Package export packages the current document as a static website zip and
// reads such archives back.
package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/imagegen"
	"github.com/ziadkadry99/sitesmith/internal/preview"
	"github.com/ziadkadry99/sitesmith/internal/resolver"
)

// ArchiveName is the suggested download name.
const ArchiveName = "website-export.zip"

const (
	indexFile   = "index.html"
	imageDir    = "images/"
	faviconFile = imageDir + "favicon.jpeg"
)

// ErrExportInProgress is returned when an export is requested while one is
// running.
var ErrExportInProgress = errors.New("an export is already in progress")

// Assembler builds export archives. Only one export runs at a time.
type Assembler struct {
	client  *http.Client
	logger  zerolog.Logger
	running atomic.Bool
}

// NewAssembler returns an Assembler. A nil client uses a client with a
// 30 second timeout for remote image references.
func NewAssembler(client *http.Client, logger zerolog.Logger) *Assembler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Assembler{client: client, logger: logger}
}

// Running reports whether an export is in flight.
func (a *Assembler) Running() bool { return a.running.Load() }

// CheckPreconditions reports whether doc can be exported.
func CheckPreconditions(doc *document.Document) error {
	if doc == nil || !doc.HasContent() {
		return &apperr.ExportPreconditionError{Reason: "no website has been generated"}
	}
	if len(doc.Images) == 0 {
		return &apperr.ExportPreconditionError{Reason: "the website has no images"}
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeID turns a placeholder id into a safe file name stem.
func SanitizeID(id string) string {
	s := strings.Trim(unsafeChars.ReplaceAllString(id, "_"), "._")
	if s == "" {
		s = "image"
	}
	return s
}

// Export writes the archive for doc to w. Preconditions are checked before
// any work. Images that cannot be fetched are omitted and logged; their
// markup keeps the relative path.
func (a *Assembler) Export(ctx context.Context, doc *document.Document, w io.Writer) error {
	if err := CheckPreconditions(doc); err != nil {
		return err
	}
	if !a.running.CompareAndSwap(false, true) {
		return ErrExportInProgress
	}
	defer a.running.Store(false)

	zw := zip.NewWriter(w)
	paths := make(map[string]string, len(doc.Images)+1)
	used := make(map[string]bool)

	for _, img := range doc.Images {
		// The first asset for an id owns its slot.
		if _, dup := paths[img.PlaceholderID]; dup {
			continue
		}
		name := uniqueName(imageDir+SanitizeID(img.PlaceholderID), used)
		paths[img.PlaceholderID] = name
		if err := a.addImage(ctx, zw, name, img.RenderedURL); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn().Err(err).Str("id", img.PlaceholderID).Msg("image omitted from export")
		}
	}

	if doc.Favicon != nil && doc.Favicon.RenderedURL != "" {
		used[faviconFile] = true
		paths[resolver.FaviconID] = faviconFile
		if err := a.addImage(ctx, zw, faviconFile, doc.Favicon.RenderedURL); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn().Err(err).Msg("favicon omitted from export")
		}
	}

	page, err := preview.Compose(doc, func(id, renderedURL string) string {
		if p, ok := paths[id]; ok {
			return p
		}
		return renderedURL
	})
	if err != nil {
		return fmt.Errorf("composing %s: %w", indexFile, err)
	}
	f, err := zw.Create(indexFile)
	if err != nil {
		return fmt.Errorf("adding %s: %w", indexFile, err)
	}
	if _, err := io.WriteString(f, page); err != nil {
		return fmt.Errorf("writing %s: %w", indexFile, err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	a.logger.Info().Int("images", len(doc.Images)).Msg("export complete")
	return nil
}

// uniqueName reserves stem+".jpeg", suffixing a counter on collisions.
func uniqueName(stem string, used map[string]bool) string {
	name := stem + ".jpeg"
	for i := 2; used[name] || name == faviconFile; i++ {
		name = fmt.Sprintf("%s-%d.jpeg", stem, i)
	}
	used[name] = true
	return name
}

func (a *Assembler) addImage(ctx context.Context, zw *zip.Writer, name, ref string) error {
	data, err := a.fetch(ctx, ref)
	if err != nil {
		return err
	}
	jpeg, err := imagegen.ToJPEG(data)
	if err != nil {
		// Undecodable payloads (e.g. SVG) are stored as-is.
		jpeg = data
	}
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := f.Write(jpeg); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// fetch resolves an image reference to bytes.
func (a *Assembler) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case ref == "":
		return nil, fmt.Errorf("empty image reference")
	case strings.HasPrefix(ref, "data:"):
		data, _, err := imagegen.DecodeDataURL(ref)
		return data, err
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := a.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching image: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return nil, fmt.Errorf("unsupported image reference %.32q", ref)
}
