// Package pipelinetest wires an in-memory pipeline for tests of the packages built on it.
package pipelinetest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/classify"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/jobs"
	"catalog-workers/internal/llm"
	"catalog-workers/internal/memory"
	"catalog-workers/internal/pipeline"
	"catalog-workers/internal/resolve"
	"catalog-workers/internal/template"
	tt "catalog-workers/internal/template/templatetest"
)

// Title is what LLM writes for every product.
var Title = "Garrafa Térmica " + strings.Repeat("t", 80)

// LLM answers every unit with usable content and counts the calls per unit.
type LLM struct {
	mu    sync.Mutex
	calls map[string]int
}

func NewLLM() *LLM { return &LLM{calls: map[string]int{}} }

func (f *LLM) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls[req.Unit]++
	f.mu.Unlock()

	switch req.Unit {
	case string(catalog.UnitMainContent):
		return listing(), nil
	case string(catalog.UnitChoices):
		names, _ := req.Context["field_names"].([]string)
		out := fill(names, catalog.NotApplicable)
		if _, ok := out["Cor"]; ok {
			out["Cor"] = "Azul"
		}
		return encode(out), nil
	case "chunk_fill":
		names, _ := req.Context["fields"].([]string)
		return encode(fill(names, "valor")), nil
	}
	return "", nil
}

func (f *LLM) Calls(unit string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[unit]
}

func fill(names []string, v string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = v
	}
	return out
}

func encode(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func listing() string {
	bullets := make([]map[string]string, 5)
	for i := range bullets {
		bullets[i] = map[string]string{"bullet_point": "TERMO EM CAIXA ALTA: " + strings.Repeat("b", 70)}
	}
	kws := make([]string, 12)
	for i := range kws {
		kws[i] = "palavra" + string(rune('a'+i))
	}
	return encode(map[string]interface{}{
		"titulo":            Title,
		"bullet_points":     bullets,
		"descricao_produto": "Parágrafo um.\n\nParágrafo dois.\n\nParágrafo três.",
		"palavras_chave":    strings.Join(kws, "; "),
	})
}

// Fixture is a pipeline backed entirely by in-memory stores.
type Fixture struct {
	LLM       *LLM
	Memory    *memory.InMemoryStore
	Statuses  *jobs.InMemoryStore
	Artifacts *jobs.InMemoryArtifactStore
	Tracker   *jobs.Tracker
	Generator *pipeline.Generator
	Executor  *pipeline.Executor
}

func New(t testing.TB) *Fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	rules := catalog.DefaultRules()

	f := &Fixture{
		LLM:       NewLLM(),
		Memory:    memory.NewInMemoryStore(0),
		Statuses:  jobs.NewInMemoryStore(),
		Artifacts: jobs.NewInMemoryArtifactStore(),
	}
	f.Tracker = jobs.NewTracker(f.Statuses, nil, nil, log)
	f.Generator = pipeline.NewGenerator(
		resolve.New(f.LLM, rules, log),
		f.Memory,
		nil,
		pipeline.NewParallelRunner(4),
		rules,
		template.DefaultLayout(),
		log,
	)
	f.Executor = pipeline.NewExecutor(f.Generator, f.Tracker, f.Artifacts, log)
	return f
}

// Products returns n distinct branded products.
func Products(n int) []catalog.Product {
	out := make([]catalog.Product, n)
	for i := range out {
		out[i] = catalog.Product{
			Title:     "Garrafa Térmica Inox 500ml",
			SKU:       "GT-500-" + string(rune('A'+i)),
			BrandType: catalog.BrandTypeBrand,
			BrandName: "Acme",
			Price:     "89.90",
		}
	}
	return out
}

// StartJob registers a pending job whose template is stored as an artifact.
func (f *Fixture) StartJob(t testing.TB, jobID string, products int) {
	t.Helper()
	ctx := context.Background()
	_, err := f.Tracker.Start(ctx, jobID, products)
	require.NoError(t, err)
	require.NoError(t, f.Artifacts.Put(ctx, jobID, tt.Bytes(t)))
}

// Status fetches the stored status of jobID.
func (f *Fixture) Status(t testing.TB, jobID string) *jobs.Status {
	t.Helper()
	st, err := f.Statuses.Get(context.Background(), jobID)
	require.NoError(t, err)
	return st
}

// Plan classifies the test template.
func (f *Fixture) Plan(t testing.TB) *classify.Plan {
	t.Helper()
	wb, _, plan, err := f.Generator.Schema(tt.Bytes(t))
	require.NoError(t, err)
	require.NoError(t, wb.Close())
	return plan
}

// Prepare runs preparation for n products without forcing.
func (f *Fixture) Prepare(t testing.TB, n int) []pipeline.Prepared {
	t.Helper()
	return f.Generator.Prepare(context.Background(), Products(n), false)
}
