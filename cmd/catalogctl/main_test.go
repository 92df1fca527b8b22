package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/importer"
	"catalog-workers/internal/template/templatetest"
)

const testConfig = `
app:
  name: catalogctl-test
pipeline:
  mode: local
  concurrency: 2
memory:
  backend: memory
llm:
  provider: gateway
  cache:
    enabled: false
apis:
  genai:
    base_url: http://127.0.0.1:1
logging:
  level: error
`

// ==========================
// Helpers
// ==========================

func createTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// ==========================
// Extract
// ==========================

func TestExtractCmd(t *testing.T) {
	cfg := createTestConfig(t)
	tpl := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, os.WriteFile(tpl, templatetest.Bytes(t), 0o644))

	out, err := execute(t, "extract", tpl, "--config", cfg)
	require.NoError(t, err)

	var doc struct {
		Schema struct {
			MaxColumn int `json:"maxColumn"`
		} `json:"schema"`
		Plan struct {
			Chunks []json.RawMessage `json:"chunks"`
		} `json:"plan"`
		UnitCount int `json:"unitCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, templatetest.MaxColumn, doc.Schema.MaxColumn)
	assert.Len(t, doc.Plan.Chunks, 3)
	assert.Equal(t, 5, doc.UnitCount)
}

func TestExtractCmd_NotAWorkbook(t *testing.T) {
	cfg := createTestConfig(t)
	tpl := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, os.WriteFile(tpl, []byte("not a workbook"), 0o644))

	_, err := execute(t, "extract", tpl, "--config", cfg)
	assert.Error(t, err)
}

// ==========================
// Import
// ==========================

func createTestCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalogo.csv")
	csv := "sku,titulo,preco,cor\nGT-1,Garrafa Térmica,\"R$ 89,90\",Azul\nGT-2,Copo Térmico,49.90,Verde\n,,10.00,Azul\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	return path
}

func TestImportCmd_Preview(t *testing.T) {
	cfg := createTestConfig(t)

	out, err := execute(t, "import", createTestCSV(t), "--preview", "--config", cfg)
	require.NoError(t, err)

	var pv importer.Preview
	require.NoError(t, json.Unmarshal([]byte(out), &pv))
	assert.Equal(t, 3, pv.TotalRows)
	require.Len(t, pv.Sample, 2)
	assert.Equal(t, "GT-1", pv.Sample[0].Product.SKU)
	assert.Equal(t, []int{4}, pv.Skipped)
	assert.Contains(t, pv.Mapping, importer.FieldPrice)
}

func TestImportCmd_Import(t *testing.T) {
	cfg := createTestConfig(t)

	out, err := execute(t, "import", createTestCSV(t), "--config", cfg)
	require.NoError(t, err)

	var res importer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Errors)
}

// ==========================
// Memory and cache
// ==========================

func TestMemoryStatsCmd(t *testing.T) {
	cfg := createTestConfig(t)

	out, err := execute(t, "memory", "stats", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"products": 0`)
}

func TestMemoryClearCmd_RequiresConfirmation(t *testing.T) {
	cfg := createTestConfig(t)

	_, err := execute(t, "memory", "clear", "--config", cfg)
	assert.ErrorContains(t, err, "--yes")
}

func TestCacheStatsCmd_Disabled(t *testing.T) {
	cfg := createTestConfig(t)

	_, err := execute(t, "cache", "stats", "--config", cfg)
	assert.ErrorContains(t, err, "disabled")
}

// ==========================
// Activities
// ==========================

func TestActivitiesValidateCmd(t *testing.T) {
	out, err := execute(t, "activities", "validate", "--registry", filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Registry OK: 6 activities")
}

func TestActivitiesValidateCmd_MissingWorker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg := `{"activities": [{"id": "extract-schema", "taskType": "catalog-extract-schema", "timeout": "60s"}]}`
	require.NoError(t, os.WriteFile(path, []byte(reg), 0o644))

	_, err := execute(t, "activities", "validate", "--registry", path)
	assert.ErrorContains(t, err, "5 registry problems")
}

func TestActivitiesListCmd(t *testing.T) {
	out, err := execute(t, "activities", "list", "--registry", filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "catalog-assemble-spreadsheet")
}
