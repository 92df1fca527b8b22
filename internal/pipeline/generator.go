// Package pipeline runs the scatter-gather generation of a catalog spreadsheet: per-product
// preparation, bounded fan-out of resolution units, a barrier, then one write pass.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/xuri/excelize/v2"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/classify"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/memory"
	"catalog-workers/internal/resolve"
	"catalog-workers/internal/retrieval"
	"catalog-workers/internal/template"
	"catalog-workers/internal/writer"
)

// Prepared is a product after phase A: normalized, identified and with its memo and
// reference context attached.
type Prepared struct {
	Index      int             `json:"index"`
	Identifier string          `json:"identifier"`
	Product    catalog.Product `json:"product"`
	Reference  string          `json:"reference,omitempty"`
	Memo       *catalog.Bundle `json:"memo,omitempty"`
	// Forced means the memo lookup was skipped and stored content may be replaced.
	Forced bool `json:"forced,omitempty"`
	// Hollow means a record exists without generated content, as left by an import.
	Hollow bool `json:"hollow,omitempty"`
}

func (p Prepared) Input() resolve.Input {
	return resolve.Input{Index: p.Index, Product: p.Product, Reference: p.Reference, Memo: p.Memo, Fresh: p.Forced}
}

// Unit addresses one resolution call.
type Unit struct {
	Kind  catalog.UnitKind `json:"kind"`
	Index int              `json:"index"`
	Chunk string           `json:"chunk,omitempty"`
}

// Output is a finished workbook.
type Output struct {
	Workbook []byte
	Filename string
	Products int
	Rows     int
}

// Progress receives step changes. units is the fan-out size, 0 when not yet known.
type Progress func(step string, units int)

type Generator struct {
	resolver  *resolve.Resolver
	memory    memory.Store
	retriever retrieval.Retriever
	runner    Runner
	rules     catalog.Rules
	layout    template.Layout
	logger    logger.Logger
}

func NewGenerator(
	resolver *resolve.Resolver,
	mem memory.Store,
	retriever retrieval.Retriever,
	runner Runner,
	rules catalog.Rules,
	layout template.Layout,
	log logger.Logger,
) *Generator {
	if retriever == nil {
		retriever = retrieval.Nop{}
	}
	if runner == nil {
		runner = SequentialRunner{}
	}
	return &Generator{
		resolver:  resolver,
		memory:    mem,
		retriever: retriever,
		runner:    runner,
		rules:     rules,
		layout:    layout,
		logger:    log.With(map[string]interface{}{"component": "pipeline"}),
	}
}

// Generate runs the whole pipeline in process.
func (g *Generator) Generate(ctx context.Context, req *Request, progress Progress) (*Output, error) {
	if progress == nil {
		progress = func(string, int) {}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	progress("extract", 0)
	f, schema, plan, err := g.Schema(req.Template)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	progress("prepare", 0)
	prepared := g.Prepare(ctx, req.Products, req.ForceUpdate)

	units := Units(plan, len(prepared))
	progress("resolve", len(units))
	results := g.Resolve(ctx, plan, prepared, units)

	progress("write", len(units))
	out, err := g.write(ctx, f, schema, prepared, results, req.Images)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Spreadsheet generated", map[string]interface{}{
		"products":    out.Products,
		"rows":        out.Rows,
		"units":       len(units),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return out, nil
}

// Schema opens the template and classifies its columns. The caller closes the file.
func (g *Generator) Schema(tpl []byte) (*excelize.File, *template.Schema, *classify.Plan, error) {
	f, err := template.Open(tpl)
	if err != nil {
		return nil, nil, nil, err
	}
	schema, err := template.Extract(f, g.layout, g.logger)
	if err != nil {
		f.Close()
		return nil, nil, nil, err
	}
	return f, schema, classify.Classify(schema, g.rules), nil
}

// Prepare is phase A. Memo lookups are skipped when force is set; retrieval fails open.
func (g *Generator) Prepare(ctx context.Context, products []catalog.Product, force bool) []Prepared {
	out := make([]Prepared, len(products))
	tasks := make([]Task, len(products))
	for i := range products {
		i := i
		out[i] = Prepared{Index: i, Product: products[i], Forced: force}
		tasks[i] = func(ctx context.Context) {
			out[i] = g.prepareOne(ctx, i, products[i], force)
		}
	}
	if err := g.runner.Run(ctx, tasks); err != nil {
		g.logger.Error("Product preparation failed", map[string]interface{}{"error": err.Error()})
	}
	return out
}

func (g *Generator) prepareOne(ctx context.Context, index int, raw catalog.Product, force bool) Prepared {
	p := raw.Normalized()
	id := memory.Identify(p, index)
	prep := Prepared{Index: index, Identifier: id, Product: p, Forced: force}
	log := g.logger.WithFields(map[string]interface{}{"productIndex": index, "identifier": id})

	if !force && g.memory != nil {
		rec, err := g.memory.Get(ctx, id)
		switch {
		case err == nil && !rec.Content.Empty():
			prep.Memo = rec.Content
			log.Info("Product memory hit", nil)
		case err == nil:
			prep.Hollow = true
			log.Debug("Product memory record has no content", nil)
		case err != nil && !errors.Is(err, memory.ErrNotFound):
			log.Warn("Product memory lookup failed", map[string]interface{}{"error": err.Error()})
		}
	}

	docs, err := g.retriever.Retrieve(ctx, retrieval.QueryFor(p.Title))
	if err != nil {
		log.Warn("Reference retrieval failed, continuing without context", map[string]interface{}{"error": err.Error()})
	}
	prep.Reference = retrieval.FormatContext(docs)
	return prep
}

// Units lists the 1 + 1 + C units of every product.
func Units(plan *classify.Plan, products int) []Unit {
	units := make([]Unit, 0, products*plan.UnitCount())
	for i := 0; i < products; i++ {
		units = append(units,
			Unit{Kind: catalog.UnitMainContent, Index: i},
			Unit{Kind: catalog.UnitChoices, Index: i},
		)
		for _, c := range plan.Chunks {
			units = append(units, Unit{Kind: catalog.UnitChunk, Index: i, Chunk: c.Name})
		}
	}
	return units
}

// RunUnit executes one unit. It always returns a result of the unit's own type.
func (g *Generator) RunUnit(ctx context.Context, plan *classify.Plan, u Unit, in resolve.Input) catalog.Result {
	switch u.Kind {
	case catalog.UnitMainContent:
		return g.resolver.MainContent(ctx, in)
	case catalog.UnitChoices:
		return g.resolver.Choices(ctx, in, plan.Choice)
	case catalog.UnitChunk:
		cp, ok := plan.Chunk(u.Chunk)
		if !ok {
			g.logger.Warn("Unknown chunk requested", map[string]interface{}{"chunk": u.Chunk})
			return &catalog.ChunkFill{Index: in.Index, Chunk: u.Chunk, Values: map[string]string{}}
		}
		return g.resolver.Chunk(ctx, in, cp)
	}
	return nil
}

// Resolve is phase B. Each unit writes only its own slot; Run returning is the barrier.
func (g *Generator) Resolve(ctx context.Context, plan *classify.Plan, prepared []Prepared, units []Unit) []catalog.Result {
	results := make([]catalog.Result, len(units))
	tasks := make([]Task, len(units))
	for i, u := range units {
		i, u := i, u
		tasks[i] = func(ctx context.Context) {
			if u.Index < 0 || u.Index >= len(prepared) {
				return
			}
			results[i] = g.RunUnit(ctx, plan, u, prepared[u.Index].Input())
		}
	}
	if err := g.runner.Run(ctx, tasks); err != nil {
		g.logger.Error("Resolution unit failed", map[string]interface{}{"error": err.Error()})
	}
	return results
}

// Assemble is the fan-in for results produced elsewhere, such as by distributed workers.
func (g *Generator) Assemble(ctx context.Context, tpl []byte, prepared []Prepared, results []catalog.Result, images map[string]catalog.ImageSet) (*Output, error) {
	f, schema, _, err := g.Schema(tpl)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return g.write(ctx, f, schema, prepared, results, images)
}

func (g *Generator) write(ctx context.Context, f *excelize.File, schema *template.Schema, prepared []Prepared, results []catalog.Result, images map[string]catalog.ImageSet) (*Output, error) {
	rows := catalog.Aggregate(len(prepared), results)
	g.Remember(ctx, prepared, rows)

	inputs := make([]writer.Input, len(prepared))
	for i, p := range prepared {
		inputs[i] = writer.Input{
			Row:     rows[i],
			Product: p.Product,
			Images:  ImagesFor(images, p.Index, p.Product.SKU),
		}
	}

	w := writer.New(schema, g.rules, g.logger)
	written, err := w.WriteAll(f, inputs)
	if err != nil {
		return nil, err
	}
	data, name, err := w.Serialize(f)
	if err != nil {
		return nil, err
	}
	return &Output{Workbook: data, Filename: name, Products: len(prepared), Rows: written}, nil
}

// Remember writes new content through to product memory. Failures are logged only.
func (g *Generator) Remember(ctx context.Context, prepared []Prepared, rows []catalog.AggregatedRow) {
	if g.memory == nil {
		return
	}
	for i, p := range prepared {
		if i >= len(rows) {
			break
		}
		fresh := catalog.BundleFromRow(rows[i])
		if p.Identifier == "" || fresh.Empty() || (p.Memo != nil && !addsTo(fresh, p.Memo)) {
			continue
		}
		rec := &memory.Record{
			Identifier: p.Identifier,
			Product:    p.Product,
			Content:    fresh.Merge(p.Memo),
			Origin:     memory.OriginPipeline,
		}
		stored, err := g.memory.Put(ctx, rec, p.Forced || p.Memo != nil || p.Hollow)
		if err != nil {
			g.logger.Warn("Product memory write failed", map[string]interface{}{
				"identifier": p.Identifier,
				"error":      err.Error(),
			})
			continue
		}
		g.logger.Debug("Product memory updated", map[string]interface{}{
			"identifier": p.Identifier,
			"stored":     stored,
		})
	}
}

// addsTo reports whether fresh carries any part memo lacks.
func addsTo(fresh, memo *catalog.Bundle) bool {
	if memo.Main.Empty() && !fresh.Main.Empty() {
		return true
	}
	for k := range fresh.Choices {
		if _, ok := memo.Choices[k]; !ok {
			return true
		}
	}
	for name, fill := range fresh.Chunks {
		have := memo.Chunks[name]
		for k := range fill {
			if _, ok := have[k]; !ok {
				return true
			}
		}
	}
	return false
}

// UnitTask is one unit together with the product it resolves, as handed to a worker.
type UnitTask struct {
	Unit    Unit     `json:"unit"`
	Product Prepared `json:"product"`
}

// Tasks pairs every unit with its prepared product. Units pointing outside prepared are dropped.
func Tasks(units []Unit, prepared []Prepared) []UnitTask {
	out := make([]UnitTask, 0, len(units))
	for _, u := range units {
		if u.Index < 0 || u.Index >= len(prepared) {
			continue
		}
		out = append(out, UnitTask{Unit: u, Product: prepared[u.Index]})
	}
	return out
}
