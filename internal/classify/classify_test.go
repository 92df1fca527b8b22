package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/template"
	tt "catalog-workers/internal/template/templatetest"
)

func classifyFixture(t *testing.T) *Plan {
	t.Helper()
	f := tt.New(t)
	t.Cleanup(func() { _ = f.Close() })

	s, err := template.Extract(f, template.DefaultLayout(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return Classify(s, catalog.DefaultRules())
}

func TestClassify_ChoiceFields(t *testing.T) {
	p := classifyFixture(t)

	byHeader := map[string]template.Field{}
	for _, f := range p.Choice {
		byHeader[f.HeaderGroup] = f
	}

	require.Contains(t, byHeader, "Cor")
	assert.True(t, byHeader["Cor"].Critical)
	assert.True(t, byHeader["Baterias são necessárias?"].Critical)
	assert.True(t, byHeader["Material"].MultiValue)
	assert.False(t, byHeader["Material"].Critical)

	// Denylisted unit fields stay in the choice batch; the prompt forces them to "nan".
	assert.Contains(t, byHeader, "Unidade de Peso do Pacote Principal")

	assert.NotContains(t, byHeader, "País de origem", "writer-owned fields never reach the model")
	assert.NotContains(t, byHeader, "Tipo de garantia", "sentinel-only options are not a choice")
}

func TestClassify_FixedColumns(t *testing.T) {
	p := classifyFixture(t)

	cols := map[int]bool{}
	for _, f := range p.Fixed {
		cols[f.Column] = true
	}
	for _, c := range []int{tt.ColSKU, tt.ColItemName, tt.ColBullet2, tt.ColKeywords, tt.ColPackageWeight,
		tt.ColCountry, tt.ColExtraImage2, tt.ColHierarchy, tt.ColNCM, tt.ColSampleImage} {
		assert.True(t, cols[c], "column %d should be writer-owned", c)
	}
	assert.False(t, cols[tt.ColColor])
	assert.False(t, cols[tt.ColSize])
}

func TestClassify_Chunks(t *testing.T) {
	p := classifyFixture(t)

	require.Len(t, p.Chunks, 3, "the all-fixed offer chunk is dropped")
	assert.Equal(t, 5, p.UnitCount())

	basics, ok := p.Chunk(tt.ChunkBasics)
	require.True(t, ok)
	assert.Equal(t, []string{"Tipo de produto"}, basics.HeaderGroups())

	details, ok := p.Chunk(tt.ChunkDetails)
	require.True(t, ok)
	assert.Equal(t, []string{"Tipo de garantia"}, details.HeaderGroups())
	assert.Empty(t, details.Critical)

	compliance, ok := p.Chunk(tt.ChunkCompliance)
	require.True(t, ok)
	assert.Equal(t, []string{"Tamanho", "Regulamentações de produtos perigosos", "Recursos especiais"}, compliance.HeaderGroups())
	assert.Equal(t, []string{"Regulamentações de produtos perigosos"}, compliance.Critical)
	assert.True(t, compliance.IsCritical("Regulamentações de produtos perigosos"))

	_, ok = p.Chunk(tt.ChunkOffer)
	assert.False(t, ok)
}

func TestUsableOptions(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, usableOptions([]string{" a ", "", "NaN", "b", "nan"}))
	assert.Empty(t, usableOptions([]string{"nan"}))
}
