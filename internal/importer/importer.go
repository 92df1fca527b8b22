// Package importer loads already-filled spreadsheets into product memory so later generations
// reuse their content.
package importer

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/memory"
)

// Field names a column can be mapped to.
const (
	FieldSKU         = "sku"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldBrand       = "brand"
	FieldModel       = "model"
	FieldNCM         = "ncm"
	FieldWeight      = "weight"
	FieldDimensions  = "dimensions"
	FieldColor       = "color"
	FieldMaterial    = "material"
	FieldKeywords    = "keywords"
	FieldBullets     = "bullet_points"
)

type alias struct {
	field string
	names []string
}

// Aliases lists, per field, the header spellings recognized (case-insensitive). The first
// matching column wins.
var Aliases = []alias{
	{FieldSKU, []string{"sku", "codigo", "código", "product_id", "id_produto"}},
	{FieldTitle, []string{"titulo", "título", "title", "nome", "name", "produto", "product_name", "nome do item"}},
	{FieldDescription, []string{"descricao", "descrição", "description", "desc", "detalhes", "descrição do produto"}},
	{FieldPrice, []string{"preco", "preço", "price", "valor", "value"}},
	{FieldBrand, []string{"marca", "brand", "fabricante", "manufacturer", "nome da marca"}},
	{FieldModel, []string{"modelo", "model", "mod"}},
	{FieldNCM, []string{"ncm", "código ncm", "codigo ncm"}},
	{FieldWeight, []string{"peso", "weight", "massa"}},
	{FieldDimensions, []string{"dimensoes", "dimensões", "dimensions", "medidas"}},
	{FieldColor, []string{"cor", "color", "colour"}},
	{FieldMaterial, []string{"material", "materials", "materiais"}},
	{FieldKeywords, []string{"palavras_chave", "palavras-chave", "keywords", "tags", "etiquetas"}},
	{FieldBullets, []string{"pontos_principais", "bullet_points", "caracteristicas", "características", "marcadores"}},
}

// MapColumns returns field → column index for every recognized field.
func MapColumns(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	out := map[string]int{}
	for _, a := range Aliases {
		for _, n := range a.names {
			if i, ok := index[n]; ok {
				out[a.field] = i
				break
			}
		}
	}
	return out
}

// Row is one converted spreadsheet row.
type Row struct {
	Line       int             `json:"line"`
	Identifier string          `json:"identifier"`
	Product    catalog.Product `json:"product"`
	Content    *catalog.Bundle `json:"content"`
}

// Convert builds the product and its reusable content. ok is false when the row has neither a
// SKU nor a title.
func Convert(row []string, mapping map[string]int) (catalog.Product, *catalog.Bundle, bool) {
	get := func(field string) string {
		i, ok := mapping[field]
		if !ok || i >= len(row) {
			return ""
		}
		v := strings.TrimSpace(row[i])
		if strings.EqualFold(v, catalog.NotApplicable) {
			return ""
		}
		return v
	}

	p := catalog.Product{
		SKU:               get(FieldSKU),
		Title:             get(FieldTitle),
		Description:       get(FieldDescription),
		Price:             catalog.Text(cleanPrice(get(FieldPrice))),
		Model:             get(FieldModel),
		NCM:               get(FieldNCM),
		PackageWeight:     catalog.Text(get(FieldWeight)),
		PackageDimensions: get(FieldDimensions),
	}
	if p.SKU == "" && p.Title == "" {
		return p, nil, false
	}
	if brand := get(FieldBrand); brand != "" {
		p.BrandType = catalog.BrandTypeBrand
		p.BrandName = brand
	}

	content := &catalog.Bundle{}
	main := &catalog.MainContent{
		Title:       p.Title,
		Description: p.Description,
		Bullets:     splitList(get(FieldBullets), ";", ","),
		Keywords:    strings.Join(splitList(get(FieldKeywords), ";", ","), "; "),
	}
	if !main.Empty() {
		content.Main = main
	}
	choices := map[string]catalog.Selection{}
	if v := get(FieldColor); v != "" {
		choices["Cor"] = catalog.Selection{v}
	}
	if v := get(FieldMaterial); v != "" {
		choices["Material"] = catalog.Selection(splitList(v, ";", ","))
	}
	if len(choices) > 0 {
		content.Choices = choices
	}
	return p, content, true
}

// splitList splits on the first separator present.
func splitList(s string, seps ...string) []string {
	if s == "" {
		return nil
	}
	for _, sep := range seps {
		if strings.Contains(s, sep) {
			var out []string
			for _, part := range strings.Split(s, sep) {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out
		}
	}
	return []string{s}
}

func cleanPrice(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "R$", ""))
	return strings.ReplaceAll(s, ",", ".")
}

// Preview is a dry run over the first rows.
type Preview struct {
	TotalRows int            `json:"totalRows"`
	Sample    []Row          `json:"sample"`
	Skipped   []int          `json:"skippedLines,omitempty"`
	Mapping   map[string]int `json:"mapping"`
	Columns   []string       `json:"columns"`
	Sheet     string         `json:"sheet,omitempty"`
}

// Result summarizes an import.
type Result struct {
	TotalRows    int            `json:"totalRows"`
	Imported     int            `json:"imported"`
	Updated      int            `json:"updated"`
	Skipped      int            `json:"skipped"`
	Errors       int            `json:"errors"`
	ErrorDetails []string       `json:"errorDetails,omitempty"`
	Mapping      map[string]int `json:"mapping"`
	Duration     time.Duration  `json:"duration"`
}

type Importer struct {
	store  memory.Store
	logger logger.Logger
}

func New(store memory.Store, log logger.Logger) *Importer {
	return &Importer{store: store, logger: log.With(map[string]interface{}{"component": "importer"})}
}

// Preview converts up to sample rows without touching memory.
func (im *Importer) Preview(t *Table, sample int) *Preview {
	if sample <= 0 {
		sample = 5
	}
	mapping := MapColumns(t.Columns)
	pv := &Preview{TotalRows: len(t.Rows), Mapping: mapping, Columns: t.Columns, Sheet: t.Sheet}
	for i, raw := range t.Rows {
		if i >= sample {
			break
		}
		line := i + 2
		p, content, ok := Convert(raw, mapping)
		if !ok {
			pv.Skipped = append(pv.Skipped, line)
			continue
		}
		pv.Sample = append(pv.Sample, Row{Line: line, Identifier: memory.Identify(p, -1), Product: p, Content: content})
	}
	return pv
}

// Import writes every convertible row. Existing records are skipped unless force is set.
func (im *Importer) Import(ctx context.Context, t *Table, force bool) (*Result, error) {
	start := time.Now()
	mapping := MapColumns(t.Columns)
	if len(mapping) == 0 {
		return nil, errors.NewImportFailedError("no recognized columns in " + strings.Join(t.Columns, ", "))
	}

	res := &Result{TotalRows: len(t.Rows), Mapping: mapping}
	for i, raw := range t.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line := i + 2
		p, content, ok := Convert(raw, mapping)
		if !ok {
			res.Skipped++
			continue
		}
		id := memory.Identify(p, -1)

		_, err := im.store.Get(ctx, id)
		exists := err == nil
		if err != nil && !stderrors.Is(err, memory.ErrNotFound) {
			res.fail(line, id, err)
			continue
		}
		if exists && !force {
			res.Skipped++
			continue
		}

		stored, err := im.store.Put(ctx, &memory.Record{
			Identifier: id,
			Product:    p,
			Content:    content,
			Origin:     memory.OriginSpreadsheet,
		}, force)
		switch {
		case err != nil:
			res.fail(line, id, err)
		case !stored:
			res.Skipped++
		case exists:
			res.Updated++
		default:
			res.Imported++
		}
	}
	res.Duration = time.Since(start)

	im.logger.Info("Spreadsheet import finished", map[string]interface{}{
		"rows":     res.TotalRows,
		"imported": res.Imported,
		"updated":  res.Updated,
		"skipped":  res.Skipped,
		"errors":   res.Errors,
	})
	return res, nil
}

func (r *Result) fail(line int, id string, err error) {
	r.Errors++
	r.ErrorDetails = append(r.ErrorDetails, fmt.Sprintf("line %d (%s): %s", line, id, err.Error()))
}
