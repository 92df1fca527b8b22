package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/validation"
	"catalog-workers/internal/llm"
)

const (
	minTextLen  = 80
	maxTextLen  = 120
	bulletCount = 5

	// MinKeywords and MaxKeywords bound the generic keyword string.
	MinKeywords = 10
	MaxKeywords = 15
)

var mainContentSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["titulo", "bullet_points", "descricao_produto", "palavras_chave"],
	"properties": {
		"titulo": {"type": "string", "minLength": 80, "maxLength": 120},
		"bullet_points": {
			"type": "array",
			"minItems": 5,
			"maxItems": 5,
			"items": {
				"type": "object",
				"required": ["bullet_point"],
				"properties": {
					"bullet_point": {"type": "string", "minLength": 80, "maxLength": 120, "pattern": "^[^:\\p{Ll}]*\\p{Lu}[^:\\p{Ll}]*:\\s*\\S"}
				}
			}
		},
		"descricao_produto": {"type": "string", "minLength": 1},
		"palavras_chave": {"type": "string", "minLength": 1}
	}
}`)

type listing struct {
	Title   string `json:"titulo"`
	Bullets []struct {
		BulletPoint string `json:"bullet_point"`
	} `json:"bullet_points"`
	Description string `json:"descricao_produto"`
	Keywords    string `json:"palavras_chave"`
}

// MainContent generates title, bullets, description and keywords. Invalid output is logged and
// dropped without an inline retry.
func (r *Resolver) MainContent(ctx context.Context, in Input) *catalog.MainContent {
	start := time.Now()
	log := r.unitLogger(catalog.UnitMainContent, in)
	out := &catalog.MainContent{Index: in.Index}

	if in.Memo != nil && !in.Memo.Main.Empty() {
		m := *in.Memo.Main
		m.Index = in.Index
		log.Info("Main content reused from memory", nil)
		observe(catalog.UnitMainContent, start, outcomeMemo)
		return &m
	}

	pc := ProductContext(in.Product)
	category := DetectCategory(pc)

	text, err := r.llm.Generate(ctx, llm.Request{
		Prompt: mainContentPrompt(pc, in.Reference, category),
		Context: map[string]interface{}{
			"unit":          string(catalog.UnitMainContent),
			"product_title": in.Product.Title,
		},
		JSON: true,
		Unit: string(catalog.UnitMainContent),
		Accept: func(text string) bool {
			_, err := ParseMainContent(text)
			return err == nil
		},
		Fresh: in.Fresh,
	})
	if err != nil {
		log.Warn("Main content generation failed", map[string]interface{}{"error": err.Error()})
		observe(catalog.UnitMainContent, start, outcomeEmpty)
		return out
	}

	m, err := ParseMainContent(text)
	if err != nil {
		log.Warn("Main content rejected", map[string]interface{}{"error": err.Error()})
		observe(catalog.UnitMainContent, start, outcomeEmpty)
		return out
	}
	m.Index = in.Index

	report := AssessContent(m, category)
	log.Info("Main content generated", map[string]interface{}{
		"category": string(category),
		"score":    report.Score,
		"quality":  report.Label,
	})
	observe(catalog.UnitMainContent, start, outcomeOK)
	return m
}

// ParseMainContent extracts and validates the listing JSON from a model response.
func ParseMainContent(text string) (*catalog.MainContent, error) {
	raw := llm.ExtractJSON(text)
	if raw == "" {
		return nil, errors.New("no JSON object in response")
	}

	if res := mainContentSchema.ValidateBytes([]byte(raw)); !res.Valid {
		return nil, fmt.Errorf("schema: %w", res.Error())
	}

	var l listing
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, err
	}
	if err := ValidateKeywords(l.Keywords); err != nil {
		return nil, err
	}

	m := &catalog.MainContent{
		Title:       strings.TrimSpace(l.Title),
		Description: strings.TrimSpace(l.Description),
		Keywords:    strings.TrimSpace(l.Keywords),
	}
	for _, b := range l.Bullets {
		m.Bullets = append(m.Bullets, strings.TrimSpace(b.BulletPoint))
	}
	return m, nil
}

// SplitKeywords splits a keyword string on semicolons, dropping blanks.
func SplitKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, ";") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// ValidateKeywords accepts MinKeywords..MaxKeywords entries separated by semicolons only.
func ValidateKeywords(s string) error {
	if strings.Contains(s, ",") {
		return errors.New("keywords must be separated by semicolons only")
	}
	n := len(SplitKeywords(s))
	if n < MinKeywords || n > MaxKeywords {
		return fmt.Errorf("expected %d-%d keywords, got %d", MinKeywords, MaxKeywords, n)
	}
	return nil
}

func mainContentPrompt(productContext, reference string, category Category) string {
	var b strings.Builder
	b.WriteString("Você é um especialista em criação de listings para Amazon com foco em QUALIDADE e RELEVÂNCIA.\n\n")
	fmt.Fprintf(&b, "CATEGORIA DETECTADA: %s\n", category)
	if instr := CategoryInstructions(category); instr != "" {
		b.WriteString(instr)
	}
	fmt.Fprintf(&b, "\nPALAVRAS-CHAVE SUGERIDAS PARA ESTA CATEGORIA: %s\n\n", strings.Join(SuggestedKeywords(category), ", "))

	b.WriteString(`Crie um listing de produto para a Amazon com base nas informações fornecidas.
Respeite as diretrizes da Amazon Seller Central: evite termos proibidos como "garantido", "perfeito", "melhor", "alta qualidade" ou "cura", qualquer promessa, símbolos como travessão, barra ou emojis, e declarações absolutas ou subjetivas.

TÍTULO
- Entre 80 e 120 caracteres, sem travessão ou barra
- Nome do produto + característica principal + benefício específico

BULLET POINTS
- Exatamente 5 bullets, cada um com 80 a 120 caracteres
- Formato: TERMO EM CAIXA ALTA: frase objetiva com benefício específico
- Cada bullet aborda um aspecto diferente (funcionalidade, material, uso, manutenção, diferencial)

DESCRIÇÃO DO PRODUTO
- Comece com o nome do produto e seu principal benefício
- 3 a 4 parágrafos separados por linha em branco: funcionalidade, benefícios práticos, qualidade e durabilidade
- Especificações técnicas quando disponíveis

PALAVRAS-CHAVE
`)
	fmt.Fprintf(&b, "- Entre %d e %d palavras-chave relevantes\n", MinKeywords, MaxKeywords)
	b.WriteString(`- Separe APENAS por ponto e vírgula (;), nunca por vírgula

Responda APENAS com um objeto JSON no formato:
{"titulo": "...", "bullet_points": [{"bullet_point": "..."}], "descricao_produto": "...", "palavras_chave": "a; b; c"}

Informações Completas do Produto para Análise:
`)
	b.WriteString(fullContext(productContext, reference))
	return b.String()
}
