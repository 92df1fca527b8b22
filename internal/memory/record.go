// Package memory persists generated listing content per product identifier so a resubmitted
// product reuses its earlier AI output instead of calling the model again.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"catalog-workers/internal/catalog"
)

const (
	KeyPrefix     = "product_memory:"
	DefaultTTL    = 90 * 24 * time.Hour
	RecordVersion = "1.0"
)

var ErrNotFound = errors.New("MEMORY_RECORD_NOT_FOUND")

type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
)

type Origin string

const (
	OriginPipeline    Origin = "pipeline"
	OriginSpreadsheet Origin = "spreadsheet"
	OriginManual      Origin = "manual"
)

// Record is one memoized product.
type Record struct {
	Identifier   string          `json:"product_identifier"`
	Product      catalog.Product `json:"product_data"`
	Content      *catalog.Bundle `json:"generated_content"`
	QualityScore int             `json:"data_quality_score"`
	Origin       Origin          `json:"origin"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ValidatedAt  *time.Time      `json:"validated_at,omitempty"`
	Version      string          `json:"version"`
}

// Store is implemented by every memory backend. Get returns ErrNotFound for absent or expired
// records. Put refuses to replace an existing record unless overwrite is set and reports
// whether it wrote.
type Store interface {
	Get(ctx context.Context, identifier string) (*Record, error)
	Put(ctx context.Context, rec *Record, overwrite bool) (bool, error)
	Delete(ctx context.Context, identifier string) (bool, error)
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*Stats, error)
	List(ctx context.Context, opts ListOptions) (*Page, error)
	Validate(ctx context.Context, identifier string) (bool, error)
}

// QualityScore rates a record from 0 to 100: 30 points for the source data, 70 for the
// generated copy.
func QualityScore(p catalog.Product, content *catalog.Bundle) int {
	score := 0
	if strings.TrimSpace(p.Title) != "" {
		score += 10
	}
	if strings.TrimSpace(string(p.Price)) != "" {
		score += 10
	}
	if strings.TrimSpace(p.NCM) != "" {
		score += 10
	}
	if content != nil && content.Main != nil {
		if content.Main.Title != "" {
			score += 20
		}
		if content.Main.Description != "" {
			score += 25
		}
		if len(content.Main.Bullets) > 0 {
			score += 25
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// prepare stamps a record before it is written. Creation metadata of the record it replaces is kept.
func prepare(rec *Record, existing *Record, now time.Time) *Record {
	out := *rec
	out.UpdatedAt = now
	out.QualityScore = QualityScore(rec.Product, rec.Content)
	out.Version = RecordVersion
	if out.Origin == "" {
		out.Origin = OriginPipeline
	}
	if out.Status == "" {
		out.Status = StatusPending
	}
	if existing != nil {
		out.CreatedAt = existing.CreatedAt
		out.Origin = existing.Origin
		out.Status = existing.Status
		out.ValidatedAt = existing.ValidatedAt
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	return &out
}

func markValidated(rec *Record, now time.Time) {
	rec.Status = StatusValidated
	rec.ValidatedAt = &now
	rec.UpdatedAt = now
}

// ListOptions filters and pages List. Empty values disable a filter.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Status Status
	Origin Origin
	From   time.Time
	To     time.Time
}

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// Summary is the listing view of a record.
type Summary struct {
	Identifier   string    `json:"identifier"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	Status       Status    `json:"status"`
	Origin       Origin    `json:"origin"`
	QualityScore int       `json:"qualityScore"`
	HasContent   bool      `json:"hasContent"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Page struct {
	Items      []Summary `json:"items"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
	Statistics *Stats    `json:"statistics,omitempty"`
}

// Stats summarizes a set of records.
type Stats struct {
	Backend        string         `json:"backend"`
	Products       int            `json:"products"`
	ByStatus       map[string]int `json:"byStatus"`
	ByOrigin       map[string]int `json:"byOrigin"`
	AverageQuality float64        `json:"averageQuality"`
}

func summarize(rec *Record) Summary {
	return Summary{
		Identifier:   rec.Identifier,
		Name:         rec.Product.Title,
		SKU:          rec.Product.SKU,
		Status:       rec.Status,
		Origin:       rec.Origin,
		QualityScore: rec.QualityScore,
		HasContent:   !rec.Content.Empty(),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func matches(rec *Record, opts ListOptions) bool {
	if q := strings.ToLower(strings.TrimSpace(opts.Search)); q != "" {
		if !strings.Contains(strings.ToLower(rec.Product.Title), q) &&
			!strings.Contains(strings.ToLower(rec.Product.SKU), q) {
			return false
		}
	}
	if opts.Status != "" && rec.Status != opts.Status {
		return false
	}
	if opts.Origin != "" && rec.Origin != opts.Origin {
		return false
	}
	if !opts.From.IsZero() && rec.CreatedAt.Before(opts.From) {
		return false
	}
	if !opts.To.IsZero() && rec.CreatedAt.After(opts.To) {
		return false
	}
	return true
}

// paginate filters, orders by most recent update and cuts one page out of records.
func paginate(records []*Record, opts ListOptions, backend string) *Page {
	page, limit := opts.Page, opts.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var filtered []*Record
	for _, r := range records {
		if matches(r, opts) {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].UpdatedAt.After(filtered[j].UpdatedAt)
	})

	out := &Page{
		Items:      []Summary{},
		Page:       page,
		Limit:      limit,
		Total:      len(filtered),
		TotalPages: int(math.Ceil(float64(len(filtered)) / float64(limit))),
		Statistics: computeStats(filtered, backend),
	}
	start := (page - 1) * limit
	if start >= len(filtered) {
		return out
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	for _, r := range filtered[start:end] {
		out.Items = append(out.Items, summarize(r))
	}
	return out
}

func computeStats(records []*Record, backend string) *Stats {
	s := &Stats{
		Backend:  backend,
		Products: len(records),
		ByStatus: map[string]int{},
		ByOrigin: map[string]int{},
	}
	if len(records) == 0 {
		return s
	}
	total := 0
	for _, r := range records {
		s.ByStatus[string(r.Status)]++
		s.ByOrigin[string(r.Origin)]++
		total += r.QualityScore
	}
	s.AverageQuality = math.Round(float64(total)/float64(len(records))*10) / 10
	return s
}
