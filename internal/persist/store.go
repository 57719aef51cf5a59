// Package persist mirrors the current document into the local state
// database and restores it on startup.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/sitesmith/internal/apperr"
	"github.com/ziadkadry99/sitesmith/internal/db"
	"github.com/ziadkadry99/sitesmith/internal/document"
)

// StateKey is the key of the single persisted record.
const StateKey = "generated-site"

// DefaultQuota mirrors the typical browser local-storage budget.
const DefaultQuota = 5 << 20

// record is the persisted shape.
type record struct {
	HTML    string                 `json:"html"`
	CSS     string                 `json:"css"`
	Images  []document.ImageAsset  `json:"images"`
	Favicon *document.FaviconAsset `json:"favicon,omitempty"`
	Meta    document.Meta          `json:"meta"`
	// Timestamp is Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Store reads and writes the persisted record.
type Store struct {
	db     *db.DB
	quota  int
	logger zerolog.Logger
}

// NewStore returns a store over d. quota <= 0 selects DefaultQuota.
func NewStore(d *db.DB, quota int, logger zerolog.Logger) *Store {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Store{db: d, quota: quota, logger: logger}
}

// Save writes doc. An oversize record or a failed write is retried once
// without image payloads; a second failure is logged and returned as a
// PersistenceWriteError for callers that care. A nil doc clears the store.
func (s *Store) Save(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return s.Clear(ctx)
	}

	rec := record{
		HTML:      doc.HTML,
		CSS:       doc.CSS,
		Images:    doc.Images,
		Favicon:   doc.Favicon,
		Meta:      doc.Meta,
		Timestamp: time.Now().UnixMilli(),
	}
	err := s.write(ctx, rec)
	if err == nil {
		return nil
	}
	s.logger.Warn().Err(err).Msg("saving full state failed, retrying without images")

	stripped := stripImages(rec)
	if err := s.write(ctx, stripped); err != nil {
		werr := &apperr.PersistenceWriteError{Stripped: true, Err: err}
		s.logger.Error().Err(werr).Msg("state not saved")
		return werr
	}
	return nil
}

func (s *Store) write(ctx context.Context, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if len(data) > s.quota {
		return fmt.Errorf("state is %d bytes, quota is %d", len(data), s.quota)
	}
	return s.db.Put(ctx, StateKey, data)
}

// stripImages drops image payloads, keeping placeholder ids so slots stay
// resolvable. The markup never carries payloads itself.
func stripImages(rec record) record {
	out := rec
	out.Images = make([]document.ImageAsset, len(rec.Images))
	for i, img := range rec.Images {
		img.RenderedURL = ""
		out.Images[i] = img
	}
	out.Favicon = nil
	return out
}

// Load returns the stored document, or nil when there is none or it cannot
// be used.
func (s *Store) Load(ctx context.Context) *document.Document {
	data, ok, err := s.db.Get(ctx, StateKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("reading saved state failed")
		return nil
	}
	if !ok {
		return nil
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn().Err(&apperr.ParseError{What: "saved state", Err: err}).Msg("ignoring saved state")
		return nil
	}
	if strings.TrimSpace(rec.HTML) == "" {
		return nil
	}
	return &document.Document{
		HTML:      rec.HTML,
		CSS:       rec.CSS,
		Images:    rec.Images,
		Favicon:   rec.Favicon,
		Meta:      rec.Meta,
		CreatedAt: time.UnixMilli(rec.Timestamp).UTC(),
	}
}

// Clear forgets the stored record.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.Delete(ctx, StateKey)
}
