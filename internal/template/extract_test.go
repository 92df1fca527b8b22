package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	tt "catalog-workers/internal/template/templatetest"
)

func extractFixture(t *testing.T) *Schema {
	t.Helper()
	f, err := Open(tt.Bytes(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	s, err := Extract(f, DefaultLayout(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return s
}

func TestExtract_FieldOptions(t *testing.T) {
	s := extractFixture(t)

	tests := []struct {
		header  string
		want    []string
		columns []int
		multi   bool
	}{
		{"Cor", tt.Colors, []int{tt.ColColor}, false},
		{"Material", tt.Materials, []int{tt.ColMaterial1, tt.ColMaterial2}, true},
		{"Baterias são necessárias?", tt.YesNo, []int{tt.ColBatteries}, false},
		{"Unidade de Peso do Pacote Principal", tt.WeightUnits, []int{tt.ColPackageUnitDenylisted}, false},
		{"Tipo de garantia", []string{Sentinel}, []int{tt.ColWarranty}, false},
		{"País de origem", []string{"Brasil", "China"}, []int{tt.ColCountry}, false},
	}
	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			f, ok := s.Field(tc.header)
			require.True(t, ok)
			assert.Equal(t, tc.want, f.Options)
			assert.Equal(t, tc.columns, f.Columns)
			assert.Equal(t, tc.multi, f.MultiValue)
			assert.NotEmpty(t, f.TechnicalName)
		})
	}

	for _, f := range s.Fields {
		assert.NotEmpty(t, f.Options, "options must never be empty for %s", f.HeaderGroup)
	}
	for i := 1; i < len(s.Fields); i++ {
		assert.Less(t, s.Fields[i-1].Column(), s.Fields[i].Column())
	}
}

func TestExtract_ChunksAndHeaders(t *testing.T) {
	s := extractFixture(t)

	require.Len(t, s.Chunks, 4)
	assert.Equal(t, tt.ChunkBasics, s.Chunks[0].Name)

	details, ok := s.Chunk(tt.ChunkDetails)
	require.True(t, ok)
	assert.Equal(t, tt.ColColor, details.StartColumn)
	assert.Equal(t, tt.ColWarranty, details.EndColumn)
	assert.Len(t, details.Fields, tt.ColWarranty-tt.ColColor+1)
	assert.Equal(t, []string{"Cor", "Material", "Baterias são necessárias?", "Unidade de Peso do Pacote Principal", "Tipo de garantia"},
		details.HeaderGroups())

	compliance, ok := s.Chunk(tt.ChunkCompliance)
	require.True(t, ok)
	under := compliance.FieldsUnder([]string{"Tamanho"})
	require.Len(t, under, 1)
	assert.Equal(t, "size#1.value", under[0].TechnicalName)

	assert.Equal(t, tt.ColSKU, s.Groups["SKU"])
	assert.Equal(t, tt.ColBullet3, s.Technical["bullet_point#3.value"])
	assert.Equal(t, "Marcadores", s.HeaderAt(tt.ColBullet1))
	assert.Equal(t, "", s.HeaderAt(tt.ColBullet2))
	assert.Equal(t, tt.MaxColumn, s.MaxColumn)
	assert.Equal(t, "", s.HeaderAt(0))
	assert.Equal(t, "", s.TechnicalAt(s.MaxColumn+1))
}

func TestExtract_DuplicateChunkNameKeepsLaterRange(t *testing.T) {
	f := tt.New(t)
	require.NoError(t, f.SetCellValue(tt.Sheet, tt.Cell(tt.ColNCM, 3), tt.ChunkDetails))

	s, err := Extract(f, DefaultLayout(), logger.NewTestLogger(t))
	require.NoError(t, err)

	require.Len(t, s.Chunks, 3)
	details, ok := s.Chunk(tt.ChunkDetails)
	require.True(t, ok)
	assert.Equal(t, tt.ColNCM, details.StartColumn)
	assert.Equal(t, tt.ColPrice, details.EndColumn)
	_, ok = s.Chunk(tt.ChunkOffer)
	assert.False(t, ok)
}

func TestExtract_MissingSheetIsFatal(t *testing.T) {
	f := tt.New(t)
	defer f.Close()

	layout := DefaultLayout()
	layout.Sheet = "Template"
	_, err := Extract(f, layout, logger.NewTestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSheetNotFound))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateMissing))

	_, err = Open([]byte("not a zip"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeTemplateUnreadable))
}

func TestMultiValueHeaders(t *testing.T) {
	s := &Schema{
		MaxColumn:      5,
		Headers:        []string{"", "Material", "", "Cor", "Tamanho", ""},
		TechnicalNames: []string{"", "material[pt_BR]#1.value", "material[pt_BR]#2.value", "color#1.value", "size#1.value", "size#2.value"},
	}
	got := multiValueHeaders(s)
	assert.Equal(t, map[string]bool{"Material": true, "Tamanho": true}, got)
}

func TestLayoutFromConfig(t *testing.T) {
	l := LayoutFromConfig(config.TemplateLayout{Sheet: "Template", DataRow: 8})
	assert.Equal(t, "Template", l.Sheet)
	assert.Equal(t, 8, l.DataRow)
	assert.Equal(t, 4, l.GroupRow)
}

func TestColumnsAtRow(t *testing.T) {
	log := logger.NewTestLogger(t)
	assert.Equal(t, []int{1, 2, 5}, columnsAtRow("A7:B200 E7 F1:F3", 7, log))
	assert.Empty(t, columnsAtRow("A1:A5", 7, log))

	_, _, err := excelize.CellNameToCoordinates("$A$7")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, columnsAtRow("$A$7:$A$9", 7, log))
	assert.Equal(t, []int{3, 4}, columnsAtRow("C:D", 7, log))
	assert.Equal(t, []int{2}, columnsAtRow("7:7 B7", 7, log), "unreadable parts are skipped")
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		ref            string
		c1, r1, c2, r2 int
		wantErr        bool
	}{
		{ref: "A1", c1: 1, r1: 1, c2: 1, r2: 1},
		{ref: "$B$9:$A$2", c1: 1, r1: 2, c2: 2, r2: 9},
		{ref: "C:C", c1: 3, r1: 1, c2: 3, r2: excelize.TotalRows},
		{ref: "$A:$B", c1: 1, r1: 1, c2: 2, r2: excelize.TotalRows},
		{ref: "A1:B", wantErr: true},
		{ref: "7:7", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.ref, func(t *testing.T) {
			c1, r1, c2, r2, err := parseRange(tc.ref)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int{tc.c1, tc.r1, tc.c2, tc.r2}, []int{c1, r1, c2, r2})
		})
	}
}

func TestWorkbookSource_WholeColumnRange(t *testing.T) {
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	for i, v := range []string{"Caixa", "", "Pacote"} {
		require.NoError(t, f.SetCellValue("Sheet1", tt.Cell(2, i+1), v))
	}

	src := newWorkbookSource(f, "Sheet1", "", logger.NewTestLogger(t))
	got, err := src.Range("Sheet1", "$B:$B")
	require.NoError(t, err)
	assert.Equal(t, []string{"Caixa", "Pacote"}, got)
}
