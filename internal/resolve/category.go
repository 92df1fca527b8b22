package resolve

import "strings"

// Category is a coarse product family used to tailor the main-content prompt.
type Category string

const (
	CategoryElectronics Category = "eletronicos"
	CategoryHomeGarden  Category = "casa_jardim"
	CategoryApparel     Category = "roupas_acessorios"
	CategoryHealth      Category = "saude_beleza"
	CategorySports      Category = "esportes"
	CategoryToys        Category = "brinquedos"
	CategoryAutomotive  Category = "automotivo"
	CategoryBooks       Category = "livros"
	CategoryPet         Category = "pet"
	CategoryGeneral     Category = "geral"
)

// Evaluated in order; the first category with a matching keyword wins.
var categoryKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryElectronics, []string{"eletrônico", "bateria", "carregador", "cabo", "fone", "smartphone", "tablet", "computador", "tv", "som"}},
	{CategoryHomeGarden, []string{"casa", "jardim", "decoração", "móvel", "cozinha", "banheiro", "quarto", "sala", "plantas", "ferramentas"}},
	{CategoryApparel, []string{"roupa", "camisa", "calça", "vestido", "sapato", "bolsa", "relógio", "joia", "óculos", "chapéu"}},
	{CategoryHealth, []string{"saúde", "beleza", "cosmético", "perfume", "shampoo", "creme", "maquiagem", "suplemento", "vitamina"}},
	{CategorySports, []string{"esporte", "fitness", "academia", "corrida", "futebol", "tênis", "bicicleta", "natação", "yoga"}},
	{CategoryToys, []string{"brinquedo", "criança", "boneca", "carrinho", "jogo", "puzzle", "educativo", "infantil"}},
	{CategoryAutomotive, []string{"carro", "auto", "pneu", "óleo", "peça", "acessório automotivo", "motor", "freio"}},
	{CategoryBooks, []string{"livro", "literatura", "romance", "ficção", "biografia", "história", "ciência", "educação"}},
	{CategoryPet, []string{"pet", "cachorro", "gato", "ração", "brinquedo para pet", "coleira", "cama para pet"}},
}

var suggestedKeywords = map[Category][]string{
	CategoryElectronics: {"eletrônicos", "tecnologia", "digital", "portátil", "wireless", "bluetooth"},
	CategoryHomeGarden:  {"casa", "lar", "decoração", "organização", "prático", "funcional"},
	CategoryApparel:     {"moda", "estilo", "conforto", "elegante", "casual", "moderno"},
	CategoryHealth:      {"cuidados", "bem-estar", "natural", "hidratante", "proteção", "tratamento"},
	CategorySports:      {"fitness", "treino", "performance", "resistente", "durável", "atlético"},
	CategoryToys:        {"diversão", "educativo", "criativo", "seguro", "infantil", "desenvolvimento"},
	CategoryAutomotive:  {"veículo", "performance", "segurança", "manutenção", "qualidade", "resistente"},
	CategoryBooks:       {"conhecimento", "aprendizado", "cultura", "educação", "literatura", "informação"},
	CategoryPet:         {"animal", "cuidado", "conforto", "saúde animal", "bem-estar pet", "qualidade"},
	CategoryGeneral:     {"qualidade", "prático", "funcional", "durável", "útil", "eficiente"},
}

var categoryInstructions = map[Category][]string{
	CategoryElectronics: {
		"Enfatize especificações técnicas (voltagem, potência, conectividade)",
		"Mencione compatibilidade com dispositivos",
		"Destaque recursos de segurança e certificações",
		"Inclua informações sobre garantia quando relevante",
	},
	CategoryHomeGarden: {
		"Destaque praticidade e funcionalidade no dia a dia",
		"Mencione facilidade de instalação/uso",
		"Enfatize durabilidade e resistência",
		"Inclua informações sobre manutenção e limpeza",
	},
	CategoryApparel: {
		"Destaque conforto e qualidade dos materiais",
		"Mencione versatilidade de uso",
		"Enfatize design e estilo",
		"Inclua informações sobre cuidados e lavagem",
	},
	CategoryHealth: {
		"Enfatize benefícios para a pele/cabelo/saúde",
		"Mencione ingredientes naturais quando aplicável",
		"Destaque facilidade de aplicação",
		"Inclua informações sobre resultados esperados",
	},
	CategorySports: {
		"Destaque performance e resistência",
		"Mencione conforto durante atividades",
		"Enfatize durabilidade e qualidade dos materiais",
		"Inclua informações sobre modalidades de uso",
	},
}

// Title terms that earn the category bonus in the quality report.
var categoryTitleTerms = map[Category][]string{
	CategoryElectronics: {"eletrônico", "digital", "tecnologia"},
	CategoryHomeGarden:  {"casa", "jardim", "organização"},
	CategoryApparel:     {"moda", "estilo", "conforto"},
	CategoryHealth:      {"beleza", "cuidado", "bem-estar"},
	CategorySports:      {"fitness", "esporte", "treino"},
}

var categoryLabels = map[Category]string{
	CategoryElectronics: "ELETRÔNICOS",
	CategoryHomeGarden:  "CASA E JARDIM",
	CategoryApparel:     "ROUPAS E ACESSÓRIOS",
	CategoryHealth:      "SAÚDE E BELEZA",
	CategorySports:      "ESPORTES",
}

// DetectCategory picks a category from keywords found in the product context.
func DetectCategory(productContext string) Category {
	lower := strings.ToLower(productContext)
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				return c.category
			}
		}
	}
	return CategoryGeneral
}

// SuggestedKeywords returns the base keyword list for a category.
func SuggestedKeywords(c Category) []string {
	if kw, ok := suggestedKeywords[c]; ok {
		return kw
	}
	return suggestedKeywords[CategoryGeneral]
}

// CategoryInstructions returns the extra prompt block for a category, or "" when it has none.
func CategoryInstructions(c Category) string {
	lines, ok := categoryInstructions[c]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString("INSTRUÇÕES ESPECÍFICAS PARA " + categoryLabels[c] + ":\n")
	for _, l := range lines {
		b.WriteString("- " + l + "\n")
	}
	return b.String()
}
