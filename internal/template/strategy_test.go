package template

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSource struct {
	names  map[string][]string
	ranges map[string][]string
	prefix string
}

func (m fakeSource) Named(name string) ([]string, bool) {
	v, ok := m.names[name]
	return v, ok
}

func (m fakeSource) Names() []string {
	out := make([]string, 0, len(m.names))
	for k := range m.names {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m fakeSource) Range(sheet, ref string) ([]string, error) {
	v, ok := m.ranges[sheet+"!"+strings.ReplaceAll(ref, "$", "")]
	if !ok {
		return nil, errSheetMissing
	}
	return v, nil
}

func (m fakeSource) TypePrefix() string { return m.prefix }

func createTestSource() fakeSource {
	return fakeSource{
		names: map[string][]string{
			"HOME_KITCHEN_material": {"Aço", "Vidro"},
			"TOY_material":          {"Pelúcia"},
			"SimNao":                {"Sim", "Não"},
			"cores.list":            {"Azul"},
		},
		ranges: map[string][]string{
			"Listas!C1:C2":   {"gramas", "quilogramas"},
			"Minha Lista!A1": {"único"},
			"!B1:B3":         {"x", "y"},
			"Listas!D:D":     {"caixa", "pacote"},
		},
		prefix: "HOME_KITCHEN",
	}
}

// ==========================
// Individual Strategies
// ==========================

func TestStrategies_InIsolation(t *testing.T) {
	src := createTestSource()

	tests := []struct {
		name     string
		strategy Strategy
		formula  string
		want     []string
	}{
		{"if indirect picks first resolvable branch", FromIfIndirect, `IF($C$7="",INDIRECT("nada"),INDIRECT($C$7&"_material"))`, []string{"Aço", "Vidro"}},
		{"if indirect ignores plain IF", FromIfIndirect, `IF(A1,"a","b")`, nil},
		{"quoted names", FromQuotedNames, `INDIRECT("SimNao")`, []string{"Sim", "Não"}},
		{"quoted names miss", FromQuotedNames, `"Nada"`, nil},
		{"direct name", FromDirectName, `=SimNao`, []string{"Sim", "Não"}},
		{"direct name with dots", FromDirectName, `cores.list`, []string{"Azul"}},
		{"indirect suffix exact", FromIndirectSuffix, `INDIRECT($C$7&"_material")`, []string{"Aço", "Vidro"}},
		{"indirect suffix strips vlookup", FromIndirectSuffix, `INDIRECT(VLOOKUP($C$7,Tabela,2,FALSE)&"_material")`, []string{"Aço", "Vidro"}},
		{"indirect not applicable", FromIndirectSuffix, `SimNao`, nil},
		{"literal quoted", FromLiteralList, `"Sim;Não, Talvez"`, []string{"Sim", "Não", "Talvez"}},
		{"literal braced", FromLiteralList, `{"a";"b"}`, []string{`"a"`, `"b"`}},
		{"literal not applicable", FromLiteralList, `SimNao`, nil},
		{"explicit unquoted sheet", FromExplicitRange, `Listas!$C$1:$C$2`, []string{"gramas", "quilogramas"}},
		{"explicit quoted sheet", FromExplicitRange, `'Minha Lista'!$A$1`, []string{"único"}},
		{"explicit bare range", FromExplicitRange, `$B$1:$B$3`, []string{"x", "y"}},
		{"explicit whole column", FromExplicitRange, `Listas!$D:$D`, []string{"caixa", "pacote"}},
		{"explicit missing sheet", FromExplicitRange, `Ausente!$A$1:$A$3`, nil},
		{"raw name", FromRawName, `=cores.list`, []string{"Azul"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy(src, tt.formula))
		})
	}
}

func TestFromIndirectSuffix_FallsBackToContainingName(t *testing.T) {
	src := createTestSource()
	src.prefix = "UNKNOWN"

	// HOME_KITCHEN_material sorts before TOY_material.
	assert.Equal(t, []string{"Aço", "Vidro"}, FromIndirectSuffix(src, `INDIRECT($C$7&"_material")`))
}

// ==========================
// Chain
// ==========================

func TestResolve_NeverEmpty(t *testing.T) {
	src := createTestSource()

	assert.Equal(t, []string{Sentinel}, Resolve(src, ""))
	assert.Equal(t, []string{Sentinel}, Resolve(src, "Ausente!$A$1"))
	assert.Equal(t, []string{Sentinel}, Resolve(src, `INDIRECT("nada")`))
	assert.Equal(t, []string{"Sim", "Não"}, Resolve(src, "SimNao"))
}

func TestChain_Order(t *testing.T) {
	// A quoted token naming a range wins over the literal-list reading of the same text.
	src := createTestSource()
	assert.Equal(t, []string{"Sim", "Não"}, Resolve(src, `"SimNao"`))
	assert.Len(t, Chain(), 7)
}
