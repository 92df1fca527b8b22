// Package writer fills the template sheet from aggregated results. AI values go in first and
// only into empty cells; business-rule values are applied last so they always own their cells.
package writer

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
	"catalog-workers/internal/template"
)

const filenameLayout = "2006-01-02_15-04"

// Filename is the download name of a generated workbook.
func Filename(t time.Time) string {
	return "PLANILHA_AMAZON_" + t.Format(filenameLayout) + ".xlsm"
}

// Input is everything written for one product.
type Input struct {
	Row     catalog.AggregatedRow
	Product catalog.Product
	Images  catalog.ImageSet
}

type Writer struct {
	schema *template.Schema
	rules  catalog.Rules
	logger logger.Logger

	headers        map[string]int
	bulletCols     []int
	keywordCols    []int
	extraImageCols []int

	ncm func() string
	now func() time.Time
}

func New(schema *template.Schema, rules catalog.Rules, log logger.Logger) *Writer {
	w := &Writer{
		schema:  schema,
		rules:   rules,
		logger:  log.With(map[string]interface{}{"component": "writer"}),
		headers: make(map[string]int, len(schema.Groups)),
		ncm:     RandomNCM,
		now:     time.Now,
	}
	for h, col := range schema.Groups {
		key := normalize(h)
		if prev, ok := w.headers[key]; !ok || col < prev {
			w.headers[key] = col
		}
	}
	for c := 1; c <= schema.MaxColumn; c++ {
		tech := schema.TechnicalAt(c)
		switch {
		case strings.HasPrefix(tech, catalog.TechBulletPrefix):
			w.bulletCols = append(w.bulletCols, c)
		case strings.HasPrefix(tech, catalog.TechKeywordPrefix):
			w.keywordCols = append(w.keywordCols, c)
		case strings.HasPrefix(tech, catalog.TechExtraImagePrefix):
			w.extraImageCols = append(w.extraImageCols, c)
		}
	}
	return w
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (w *Writer) column(header string) (int, bool) {
	col, ok := w.headers[normalize(header)]
	return col, ok
}

// WriteAll writes every product from the layout's data row down and returns the rows used.
func (w *Writer) WriteAll(f *excelize.File, inputs []Input) (int, error) {
	row := w.schema.Layout.DataRow
	total := 0
	for _, in := range inputs {
		n, err := w.WriteProduct(f, row, in)
		if err != nil {
			return total, err
		}
		row += n
		total += n
	}
	return total, nil
}

// WriteProduct writes one product at row and its variations below it. It returns 1 + V.
func (w *Writer) WriteProduct(f *excelize.File, row int, in Input) (int, error) {
	rw := &rowWriter{f: f, sheet: w.schema.Layout.Sheet, row: row, reserved: map[int]bool{}}
	fixed := w.fixedPlan(in.Product, in.Images)
	for _, cv := range fixed {
		if cv.reserved {
			rw.reserved[cv.col] = true
		}
	}

	w.mergeMain(rw, in.Row.Main)
	w.mergeChoices(rw, in.Row.Choices)
	for _, fill := range in.Row.Chunks {
		w.mergeChunk(rw, fill)
	}

	for _, cv := range fixed {
		if cv.reserved {
			rw.force(cv.col, cv.value)
		} else {
			rw.fillEmpty(cv.col, cv.value)
		}
	}

	consumed := 1 + len(in.Product.Variations)
	if len(in.Product.Variations) > 0 {
		w.writeVariations(rw, in.Product)
	}
	if rw.err != nil {
		return 0, errors.NewWorkbookWriteFailedError(rw.err)
	}

	metrics.RowsWritten.Add(float64(consumed))
	w.logger.Debug("product row written", map[string]interface{}{
		"row":        row,
		"sku":        in.Product.SKU,
		"cells":      rw.written,
		"variations": len(in.Product.Variations),
	})
	return consumed, nil
}

func (w *Writer) mergeMain(rw *rowWriter, m *catalog.MainContent) {
	if m.Empty() {
		return
	}
	if col, ok := w.column(catalog.HeaderItemName); ok {
		rw.fill(col, m.Title)
	}
	if col, ok := w.column(catalog.HeaderDescription); ok {
		rw.fill(col, m.Description)
	}
	for i, b := range m.Bullets {
		if i >= len(w.bulletCols) {
			break
		}
		rw.fill(w.bulletCols[i], b)
	}
	if len(w.keywordCols) > 0 {
		rw.fill(w.keywordCols[0], m.Keywords)
	}
}

// mergeChoices spreads each selection over the field's columns. "nan" is written as-is, except
// that denylisted unit fields accept nothing but "nan". Every extracted field is considered so
// selections for option-bearing chunk columns land too; writer-owned columns stay reserved.
func (w *Writer) mergeChoices(rw *rowWriter, choices map[string]catalog.Selection) {
	for _, field := range w.schema.Fields {
		sel, ok := choices[field.HeaderGroup]
		if !ok {
			continue
		}
		denylisted := w.rules.IsDenylistedUnit(field.HeaderGroup)
		values := dedupe(sel)
		for i, col := range field.Columns {
			if i >= len(values) {
				break
			}
			v := values[i]
			if denylisted && !strings.EqualFold(v, catalog.NotApplicable) {
				w.logger.Debug("dropping value for denylisted unit field", map[string]interface{}{
					"field": field.HeaderGroup,
					"value": v,
				})
				continue
			}
			rw.fill(col, v)
		}
	}
}

// mergeChunk writes free-text values by technical name. "nan" and denylisted unit columns are skipped.
func (w *Writer) mergeChunk(rw *rowWriter, fill *catalog.ChunkFill) {
	if fill == nil {
		return
	}
	for tech, v := range fill.Values {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, catalog.NotApplicable) {
			continue
		}
		col, ok := w.schema.Technical[tech]
		if !ok {
			continue
		}
		if w.rules.IsDenylistedUnit(w.schema.HeaderAt(col)) {
			continue
		}
		rw.fill(col, v)
	}
}

func (w *Writer) writeVariations(rw *rowWriter, p catalog.Product) {
	set := func(row int, header, value string) {
		if value == "" {
			return
		}
		if col, ok := w.column(header); ok {
			rw.setAt(col, row, value)
		}
	}

	set(rw.row, catalog.HeaderHierarchy, catalog.HierarchyParent)
	set(rw.row, catalog.HeaderRelationType, catalog.RelationVariant)
	set(rw.row, catalog.HeaderVariationTheme, p.VariationTheme)

	for i, v := range p.Variations {
		child := rw.row + i + 1
		for col := 1; col <= w.schema.MaxColumn; col++ {
			if rw.valueAt(col, child) != "" {
				continue
			}
			if parent := rw.valueAt(col, rw.row); parent != "" {
				rw.setAt(col, child, parent)
			}
		}
		set(child, catalog.HeaderSKU, v.SKU)
		set(child, catalog.HeaderHierarchy, catalog.HierarchyChild)
		set(child, catalog.HeaderParentSKU, p.SKU)
		set(child, catalog.HeaderVariationTheme, v.Theme())
		set(child, catalog.HeaderMainImage, v.Image)
	}
}

// Serialize writes the workbook to bytes and returns it with its download name.
func (w *Writer) Serialize(f *excelize.File) ([]byte, string, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", errors.NewWorkbookWriteFailedError(err)
	}
	return buf.Bytes(), Filename(w.now()), nil
}

// rowWriter tracks one parent row. The first cell error is kept and reported once.
type rowWriter struct {
	f        *excelize.File
	sheet    string
	row      int
	reserved map[int]bool
	written  int
	err      error
}

func (r *rowWriter) valueAt(col, row int) string {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	v, err := r.f.GetCellValue(r.sheet, ref)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func (r *rowWriter) setAt(col, row int, v interface{}) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err == nil {
		err = r.f.SetCellValue(r.sheet, ref, v)
	}
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("set %s row %d col %d: %w", r.sheet, row, col, err)
		}
		return
	}
	r.written++
}

// fill is the AI path: never into reserved cells, never over existing content.
func (r *rowWriter) fill(col int, v string) {
	if strings.TrimSpace(v) == "" || r.reserved[col] {
		return
	}
	r.fillEmpty(col, v)
}

func (r *rowWriter) fillEmpty(col int, v interface{}) {
	if r.valueAt(col, r.row) != "" {
		return
	}
	r.setAt(col, r.row, v)
}

func (r *rowWriter) force(col int, v interface{}) {
	r.setAt(col, r.row, v)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
