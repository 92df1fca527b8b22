// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/app"
	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/jobs"
	"catalog-workers/internal/llm"
	"catalog-workers/internal/pipeline"
	"catalog-workers/internal/pipeline/pipelinetest"
	"catalog-workers/internal/template"
	tt "catalog-workers/internal/template/templatetest"

	asm "catalog-workers/internal/workers/catalog/assemble-spreadsheet"
	cos "catalog-workers/internal/workers/catalog/choose-options"
	ext "catalog-workers/internal/workers/catalog/extract-schema"
	gmc "catalog-workers/internal/workers/catalog/generate-main-content"
	prc "catalog-workers/internal/workers/catalog/process-chunk"
)

// ==========================
// Environment
// ==========================

// gateway serves the GenAI gateway API from the in-memory model used by the unit tests.
type gateway struct {
	server *httptest.Server
	model  *pipelinetest.LLM
}

func newGateway(t *testing.T) *gateway {
	g := &gateway{model: pipelinetest.NewLLM()}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/generate" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Prompt  string                 `json:"prompt"`
			Context map[string]interface{} `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, key := range []string{"field_names", "fields"} {
			if list, ok := body.Context[key].([]interface{}); ok {
				names := make([]string, 0, len(list))
				for _, v := range list {
					names = append(names, fmt.Sprint(v))
				}
				body.Context[key] = names
			}
		}
		unit, _ := body.Context["unit"].(string)
		text, _ := g.model.Generate(r.Context(), llm.Request{Prompt: body.Prompt, Context: body.Context, Unit: unit})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"text": text, "confidence": 1})
	}))
	t.Cleanup(g.server.Close)
	return g
}

type environment struct {
	redis   *miniredis.Miniredis
	client  *redis.Client
	gateway *gateway
	cfg     *config.Config
}

func createTestEnvironment(t *testing.T) *environment {
	t.Helper()
	mr := miniredis.RunT(t)
	gw := newGateway(t)

	yaml := fmt.Sprintf(`
app:
  name: catalog-e2e
database:
  redis:
    address: %s
apis:
  genai:
    base_url: %s
    timeout: 5000
llm:
  provider: gateway
  max_retries: 0
  cache:
    enabled: true
    ttl_days: 1
pipeline:
  mode: local
  concurrency: 4
  kickoff_timeout: 5000
memory:
  backend: redis
  ttl_days: 30
logging:
  level: error
`, mr.Addr(), gw.server.URL)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return &environment{redis: mr, client: rdb, gateway: gw, cfg: cfg}
}

func (e *environment) build(t *testing.T) *app.App {
	t.Helper()
	a, err := app.Build(context.Background(), e.cfg, app.Clients{Redis: e.client}, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	return a
}

// recordingLauncher stands in for the workflow engine: it keeps the job it was handed.
type recordingLauncher struct {
	mu   sync.Mutex
	jobs []pipeline.Job
}

func (l *recordingLauncher) Launch(_ context.Context, job pipeline.Job) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs = append(l.jobs, job)
	return nil
}

func createTestRequest(t *testing.T, products int) *pipeline.Request {
	return &pipeline.Request{
		Template: tt.Bytes(t),
		Products: pipelinetest.Products(products),
		Images: map[string]catalog.ImageSet{
			"GT-500-A": {Principal: "https://img.example.com/a.jpg"},
		},
	}
}

func workbook(t *testing.T, st *jobs.Status) func(col, row int) string {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(st.FileContent)
	require.NoError(t, err)
	f, err := template.Open(data)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return func(col, row int) string {
		v, err := f.GetCellValue(tt.Sheet, tt.Cell(col, row))
		require.NoError(t, err)
		return v
	}
}

// relay passes v through JSON the way process variables travel between activities.
func relay(t *testing.T, v interface{}, into interface{}) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, into))
}

// ==========================
// Local mode
// ==========================

func TestE2E_LocalSubmission(t *testing.T) {
	env := createTestEnvironment(t)
	a := env.build(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	launcher := a.LocalLauncher()
	svc := a.Service(launcher)

	jobID, err := svc.Submit(ctx, createTestRequest(t, 2))
	require.NoError(t, err)

	st, err := svc.Await(ctx, jobID, 10*time.Millisecond)
	require.NoError(t, err)
	launcher.Wait()
	require.Equal(t, jobs.StateSuccess, st.State, st.ErrorMessage)
	assert.Equal(t, 2, st.Products)

	cell := workbook(t, st)
	row := a.Layout.DataRow
	assert.Equal(t, "GT-500-A", cell(tt.ColSKU, row))
	assert.Equal(t, "GT-500-B", cell(tt.ColSKU, row+1))
	assert.Equal(t, pipelinetest.Title, cell(tt.ColItemName, row))
	assert.Equal(t, "Azul", cell(tt.ColColor, row))
	assert.Equal(t, "https://img.example.com/a.jpg", cell(tt.ColMainImage, row))

	stats, err := a.Memory.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Products)

	_, err = a.Artifacts.Get(ctx, jobID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeArtifactNotFound), "template is dropped once the job ends")
}

func TestE2E_SecondJobReusesMemory(t *testing.T) {
	env := createTestEnvironment(t)
	a := env.build(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	launcher := a.LocalLauncher()
	svc := a.Service(launcher)
	run := func() *jobs.Status {
		jobID, err := svc.Submit(ctx, createTestRequest(t, 1))
		require.NoError(t, err)
		st, err := svc.Await(ctx, jobID, 10*time.Millisecond)
		require.NoError(t, err)
		launcher.Wait()
		require.Equal(t, jobs.StateSuccess, st.State, st.ErrorMessage)
		return st
	}

	run()
	calls := env.gateway.model.Calls(string(catalog.UnitMainContent))
	require.Equal(t, 1, calls)

	st := run()
	assert.Equal(t, calls, env.gateway.model.Calls(string(catalog.UnitMainContent)))
	assert.Equal(t, pipelinetest.Title, workbook(t, st)(tt.ColItemName, a.Layout.DataRow))
}

func TestE2E_RejectedSubmission(t *testing.T) {
	env := createTestEnvironment(t)
	a := env.build(t)
	ctx := context.Background()

	svc := a.Service(a.LocalLauncher())
	req := createTestRequest(t, 1)
	req.Products = nil

	jobID, err := svc.Submit(ctx, req)
	require.Error(t, err)
	require.NotEmpty(t, jobID)

	st, err := svc.Poll(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateFailure, st.State)
	assert.Equal(t, string(errors.ErrCodeNoProducts), st.ErrorType)
}

// ==========================
// Distributed mode
// ==========================

func TestE2E_DistributedWorkers(t *testing.T) {
	env := createTestEnvironment(t)
	a := env.build(t)
	log := logger.NewTestLogger(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	engine := &recordingLauncher{}
	jobID, err := a.Service(engine).Submit(ctx, createTestRequest(t, 2))
	require.NoError(t, err)
	require.Len(t, engine.jobs, 1)
	job := engine.jobs[0]

	// extract
	var extractIn ext.Input
	relay(t, job, &extractIn)
	extracted, err := ext.NewHandler(&ext.Config{Timeout: time.Minute}, a.Executor, log).Execute(ctx, &extractIn)
	require.NoError(t, err)
	require.Len(t, extracted.Tasks, 2*extracted.Plan.UnitCount())

	// scatter
	mainContent := gmc.NewHandler(&gmc.Config{Timeout: time.Minute}, a.Generator, log)
	options := cos.NewHandler(&cos.Config{Timeout: time.Minute}, a.Generator, log)
	chunk := prc.NewHandler(&prc.Config{Timeout: time.Minute}, a.Generator, log)

	var results []catalog.Envelope
	for _, task := range extracted.Tasks {
		var out interface{}
		switch task.Unit.Kind {
		case catalog.UnitMainContent:
			var in gmc.Input
			relay(t, map[string]interface{}{"jobId": jobID, "task": task}, &in)
			out, err = mainContent.Execute(ctx, &in)
		case catalog.UnitChoices:
			var in cos.Input
			relay(t, map[string]interface{}{"jobId": jobID, "task": task, "plan": extracted.Plan}, &in)
			out, err = options.Execute(ctx, &in)
		case catalog.UnitChunk:
			var in prc.Input
			relay(t, map[string]interface{}{"jobId": jobID, "task": task, "plan": extracted.Plan}, &in)
			out, err = chunk.Execute(ctx, &in)
		default:
			t.Fatalf("unexpected unit %q", task.Unit.Kind)
		}
		require.NoError(t, err)

		var unit struct {
			Result catalog.Envelope `json:"result"`
		}
		relay(t, out, &unit)
		results = append(results, unit.Result)
	}

	// gather
	var assembleIn asm.Input
	relay(t, map[string]interface{}{
		"jobId":    jobID,
		"prepared": extracted.Prepared,
		"images":   job.Images,
		"results":  results,
	}, &assembleIn)
	assembled, err := asm.NewHandler(&asm.Config{Timeout: time.Minute}, a.Executor, log).Execute(ctx, &assembleIn)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateSuccess, assembled.State)
	assert.Equal(t, 2, assembled.Rows)

	// Another process sharing Redis sees the finished job.
	other := env.build(t)
	st, err := other.Service(engine).Poll(ctx, jobID)
	require.NoError(t, err)
	require.Equal(t, jobs.StateSuccess, st.State)

	cell := workbook(t, st)
	row := a.Layout.DataRow
	assert.Equal(t, pipelinetest.Title, cell(tt.ColItemName, row+1))
	assert.Equal(t, "Azul", cell(tt.ColColor, row+1))

	_, err = other.Artifacts.Get(ctx, jobID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeArtifactNotFound))
}

func TestE2E_DistributedUnreadableTemplate(t *testing.T) {
	env := createTestEnvironment(t)
	a := env.build(t)
	ctx := context.Background()

	engine := &recordingLauncher{}
	req := createTestRequest(t, 1)
	req.Template = []byte("not a workbook")
	jobID, err := a.Service(engine).Submit(ctx, req)
	require.NoError(t, err)

	_, err = ext.NewHandler(&ext.Config{Timeout: time.Minute}, a.Executor, logger.NewTestLogger(t)).
		Execute(ctx, &ext.Input{JobID: jobID, Products: engine.jobs[0].Products})
	require.Error(t, err)

	st, err := a.Service(engine).Poll(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateFailure, st.State)
	assert.Equal(t, string(errors.ErrCodeTemplateUnreadable), st.ErrorType)
	assert.Zero(t, env.gateway.model.Calls(string(catalog.UnitMainContent)))
}
