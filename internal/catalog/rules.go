package catalog

import (
	"strings"

	"catalog-workers/internal/common/config"
)

// Header groups (template row 4) the writer fills from the product record.
const (
	HeaderSKU              = "SKU"
	HeaderModelName        = "Nome do Modelo"
	HeaderPrice            = "Preço sugerido com impostos"
	HeaderManufacturer     = "Fabricante"
	HeaderBrandName        = "Nome da marca"
	HeaderProductID        = "ID do produto"
	HeaderChannel          = "Código do canal de processamento (BR)"
	HeaderQuantity         = "Quantidade (BR)"
	HeaderNCM              = "Código NCM"
	HeaderPackageWeight    = "Peso do pacote"
	HeaderPackageWeightUOM = "Unidade de peso do pacote"
	HeaderCountryOfOrigin  = "País de origem"
	HeaderMainImage        = "URL da imagem principal"
	HeaderSampleImage      = "URL da imagem de amostra"
	HeaderHierarchy        = "Nível de hierarquia"
	HeaderRelationType     = "Tipo de relação com o secundário"
	HeaderVariationTheme   = "Nome do tema de variação"
	HeaderParentSKU        = "SKU do produto pai"
	HeaderItemName         = "Nome do item"
	HeaderDescription      = "Descrição do Produto"
)

// Technical-name prefixes (template row 5).
const (
	TechBulletPrefix     = "bullet_point"
	TechKeywordPrefix    = "generic_keyword"
	TechExtraImagePrefix = "other_product_image_locator"
)

var (
	PackageDimensionHeaders = [3]string{"Comprimento do pacote", "Largura do pacote", "Altura do pacote"}
	PackageDimensionUnits   = [3]string{"Unidade de comprimento do pacote", "Unidade de largura do pacote", "Unidade de altura do pacote"}
	ItemDimensionHeaders    = [3]string{"Comprimento do item", "Largura do item", "Altura do item"}
	ItemDimensionUnits      = [3]string{"Unidade de comprimento do item", "Unidade de largura do item", "Unidade de altura do item"}
)

const (
	HierarchyParent = "Produto Pai"
	HierarchyChild  = "Produto Filho"
	RelationVariant = "Variação"
	CountryBrazil   = "Brasil"
	ChannelFBA      = "AMAZON_NA"
	ChannelDefault  = "DEFAULT"

	// NotApplicable is the explicit "unknown / does not apply" marker used in option lists and model output.
	NotApplicable = "nan"
)

var defaultCriticalFields = []string{
	"Baterias são necessárias?",
	"Quantidade de itens",
	"Cor",
	"Contagem de unidades",
	"Tipo de ID do produto",
	"Caminhos de Navegação Recomendados",
	"País de Origem",
	"Regulamentações de produtos perigosos",
}

var defaultUnitDenylist = []string{
	"Unidade de altura",
	"Unidade de comprimento",
	"Unidade da largura",
	"Unidade de Altura do Pacote Principal",
	"Unidade de Comprimento do Pacote Principal",
	"Unidade de Largura do Pacote Principal",
	"Unidade de Peso do Pacote Principal",
	"Unidade da profundidade do artigo",
	"Unidade de altura do artigo",
	"Unidade de largura do artigo",
}

var defaultPersonas = map[string]string{
	"Oferta (BR) - (Vender na Amazon)": "Especialista em dados de OFERTA para marketplace: preço, condição, canal de envio e disponibilidade.",
	"Detalhes do produto":              "Especialista em especificações TÉCNICAS de produto: materiais, medidas, componentes e características físicas.",
	"Segurança e Conformidade":         "Especialista em CONFORMIDADE e segurança: baterias, produtos perigosos, certificações e país de origem.",
}

const defaultPersona = "Especialista em catalogação de produtos para a Amazon Brasil."

// Rules is the set of business tables consumed by the classifier, the resolution units and the writer.
// Lookups are case-insensitive and ignore surrounding whitespace.
type Rules struct {
	CriticalFields []string
	UnitDenylist   []string
	Personas       map[string]string
	DefaultPersona string
	WeightUnit     string
	DimensionUnit  string
	DefaultWeight  string

	critical nameSet
	denylist nameSet
	fixed    nameSet
	content  nameSet
}

// DefaultRules returns the built-in Amazon BR tables.
func DefaultRules() Rules {
	r := Rules{
		CriticalFields: append([]string(nil), defaultCriticalFields...),
		UnitDenylist:   append([]string(nil), defaultUnitDenylist...),
		Personas:       make(map[string]string, len(defaultPersonas)),
		DefaultPersona: defaultPersona,
		WeightUnit:     "grams",
		DimensionUnit:  "centimeters",
		DefaultWeight:  "100",
	}
	for k, v := range defaultPersonas {
		r.Personas[k] = v
	}
	return r.index()
}

// RulesFromConfig overlays non-empty configuration values on the defaults.
func RulesFromConfig(cfg config.RulesConfig) Rules {
	r := DefaultRules()
	if len(cfg.CriticalFields) > 0 {
		r.CriticalFields = append([]string(nil), cfg.CriticalFields...)
	}
	if len(cfg.UnitDenylist) > 0 {
		r.UnitDenylist = append([]string(nil), cfg.UnitDenylist...)
	}
	if len(cfg.Personas) > 0 {
		r.Personas = make(map[string]string, len(cfg.Personas))
		for _, p := range cfg.Personas {
			r.Personas[p.Chunk] = p.Persona
		}
	}
	if cfg.DefaultPersona != "" {
		r.DefaultPersona = cfg.DefaultPersona
	}
	if cfg.WeightUnit != "" {
		r.WeightUnit = cfg.WeightUnit
	}
	if cfg.DimensionUnit != "" {
		r.DimensionUnit = cfg.DimensionUnit
	}
	if cfg.DefaultWeight != "" {
		r.DefaultWeight = cfg.DefaultWeight
	}
	return r.index()
}

func (r Rules) index() Rules {
	r.critical = newNameSet(r.CriticalFields...)
	r.denylist = newNameSet(r.UnitDenylist...)

	fixed := []string{
		HeaderSKU, HeaderModelName, HeaderPrice, HeaderManufacturer, HeaderBrandName, HeaderProductID,
		HeaderChannel, HeaderQuantity, HeaderNCM, HeaderPackageWeight, HeaderPackageWeightUOM,
		HeaderCountryOfOrigin, HeaderMainImage, HeaderSampleImage, HeaderHierarchy, HeaderRelationType,
		HeaderVariationTheme, HeaderParentSKU,
	}
	fixed = append(fixed, PackageDimensionHeaders[:]...)
	fixed = append(fixed, PackageDimensionUnits[:]...)
	fixed = append(fixed, ItemDimensionHeaders[:]...)
	fixed = append(fixed, ItemDimensionUnits[:]...)
	r.fixed = newNameSet(fixed...)
	r.content = newNameSet(HeaderItemName, HeaderDescription)
	return r
}

// IsCritical reports whether a header group is on the critical allow-list.
func (r Rules) IsCritical(header string) bool { return r.lookup(r.critical, r.CriticalFields, header) }

// IsDenylistedUnit reports whether a header group is a unit field that must never be auto-filled.
func (r Rules) IsDenylistedUnit(header string) bool {
	return r.lookup(r.denylist, r.UnitDenylist, header)
}

// IsFixed reports whether the writer fills the header group from the product record.
func (r Rules) IsFixed(header string) bool {
	if r.fixed == nil {
		r = r.index()
	}
	return r.fixed.has(header)
}

// IsMainContent reports whether the header group or technical name is written from the main content unit.
func (r Rules) IsMainContent(header, technical string) bool {
	if r.content == nil {
		r = r.index()
	}
	if r.content.has(header) {
		return true
	}
	return strings.HasPrefix(technical, TechBulletPrefix) || strings.HasPrefix(technical, TechKeywordPrefix)
}

// IsReservedTechnical covers columns owned by the writer through their technical name alone.
func (r Rules) IsReservedTechnical(technical string) bool {
	return strings.HasPrefix(technical, TechExtraImagePrefix)
}

// PersonaFor returns the specialist persona for a chunk, falling back to DefaultPersona.
func (r Rules) PersonaFor(chunk string) string {
	if p, ok := r.Personas[chunk]; ok && p != "" {
		return p
	}
	for name, p := range r.Personas {
		if normalizeName(name) == normalizeName(chunk) && p != "" {
			return p
		}
	}
	return r.DefaultPersona
}

// HasPersona reports whether a dedicated persona exists for the chunk.
func (r Rules) HasPersona(chunk string) bool {
	for name := range r.Personas {
		if normalizeName(name) == normalizeName(chunk) {
			return true
		}
	}
	return false
}

func (r Rules) lookup(set nameSet, names []string, header string) bool {
	if set == nil {
		set = newNameSet(names...)
	}
	return set.has(header)
}

type nameSet map[string]struct{}

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[normalizeName(n)] = struct{}{}
	}
	return s
}

func (s nameSet) has(name string) bool {
	_, ok := s[normalizeName(name)]
	return ok
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
