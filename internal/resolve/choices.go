package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/llm"
	"catalog-workers/internal/template"
)

type choiceField struct {
	Name       string   `json:"field_name"`
	Options    []string `json:"options"`
	MultiValue bool     `json:"multi_value"`
	Critical   bool     `json:"is_critical"`
}

// Choices asks the model to pick options for every choice field in one call. Memoized selections
// are reused and only the remaining fields are sent.
func (r *Resolver) Choices(ctx context.Context, in Input, fields []template.Field) *catalog.ChoiceSelections {
	start := time.Now()
	log := r.unitLogger(catalog.UnitChoices, in)
	out := &catalog.ChoiceSelections{Index: in.Index, Values: map[string]catalog.Selection{}}

	pending := make([]template.Field, 0, len(fields))
	for _, f := range fields {
		if in.Memo != nil {
			if sel, ok := in.Memo.Choices[f.HeaderGroup]; ok && len(sel) > 0 {
				out.Values[f.HeaderGroup] = sel
				continue
			}
		}
		pending = append(pending, f)
	}
	if len(pending) == 0 {
		outcome := outcomeEmpty
		if len(out.Values) > 0 {
			outcome = outcomeMemo
			log.Info("Choices reused from memory", map[string]interface{}{"fields": len(out.Values)})
		}
		observe(catalog.UnitChoices, start, outcome)
		return out
	}

	prompt, err := r.choicesPrompt(in, pending)
	if err != nil {
		log.Error("Failed to build choices prompt", map[string]interface{}{"error": err.Error()})
		observe(catalog.UnitChoices, start, outcomeEmpty)
		return out
	}

	names := make([]string, len(pending))
	for i, f := range pending {
		names[i] = f.HeaderGroup
	}
	text, err := r.llm.Generate(ctx, llm.Request{
		Prompt: prompt,
		Context: map[string]interface{}{
			"unit":          string(catalog.UnitChoices),
			"product_title": in.Product.Title,
			"field_names":   names,
		},
		JSON: true,
		Unit: string(catalog.UnitChoices),
		Accept: func(text string) bool {
			return len(ParseChoices(text, pending)) > 0
		},
		Fresh: in.Fresh,
	})
	if err != nil {
		log.Warn("Choices generation failed", map[string]interface{}{"error": err.Error()})
		observe(catalog.UnitChoices, start, outcomeEmpty)
		return out
	}

	picked := ParseChoices(text, pending)
	for k, v := range picked {
		out.Values[k] = v
	}
	log.Info("Choices resolved", map[string]interface{}{
		"requested": len(pending),
		"answered":  len(picked),
	})

	outcome := outcomeOK
	if len(picked) == 0 {
		outcome = outcomeEmpty
	}
	observe(catalog.UnitChoices, start, outcome)
	return out
}

// ParseChoices reads the field → value|list object. Unknown keys are dropped and single-value
// fields keep only the first element. Malformed output yields an empty mapping.
func ParseChoices(text string, fields []template.Field) map[string]catalog.Selection {
	out := map[string]catalog.Selection{}
	raw := llm.ExtractJSON(text)
	if raw == "" {
		return out
	}
	var parsed map[string]catalog.Selection
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return out
	}

	for _, f := range fields {
		sel, ok := parsed[f.HeaderGroup]
		if !ok || len(sel) == 0 {
			continue
		}
		if !f.MultiValue && len(sel) > 1 {
			sel = sel[:1]
		}
		out[f.HeaderGroup] = sel
	}
	return out
}

func (r *Resolver) choicesPrompt(in Input, fields []template.Field) (string, error) {
	payload := make([]choiceField, len(fields))
	var multi, critical []string
	for i, f := range fields {
		payload[i] = choiceField{Name: f.HeaderGroup, Options: f.Options, MultiValue: f.MultiValue, Critical: f.Critical}
		if f.MultiValue {
			multi = append(multi, f.HeaderGroup)
		}
		if f.Critical {
			critical = append(critical, f.HeaderGroup)
		}
	}
	fieldsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Você é um especialista em catalogação de produtos para e-commerce, seguindo as diretrizes da Amazon.\n")
	b.WriteString("Sua tarefa é preencher vários campos para um produto com base nas opções disponíveis para cada um.\n")
	b.WriteString("Analise o título do produto e o CONTEXTO COMPLETO para tomar a decisão mais precisa para CADA campo.\n\n")
	b.WriteString("REGRAS IMPORTANTES:\n")
	if len(critical) > 0 {
		fmt.Fprintf(&b, "- ATENÇÃO MÁXIMA: Os seguintes campos são CRÍTICOS e devem ter um valor válido e preciso: **%s**. "+
			"É OBRIGATÓRIO escolher a melhor opção da lista para estes campos. NÃO use 'nan' para eles, a menos que seja absolutamente impossível determinar um valor.\n",
			strings.Join(critical, ", "))
	}
	b.WriteString("- Para a maioria dos campos, retorne uma única string como valor.\n")
	if len(multi) > 0 {
		fmt.Fprintf(&b, "- Para os seguintes campos, se aplicável, retorne uma LISTA JSON de strings com os valores relevantes: %s\n", strings.Join(multi, ", "))
	}
	b.WriteString(r.unitRule())
	b.WriteString("- Se nenhuma opção for adequada ou se a informação for desconhecida, use a string 'nan'.\n\n")

	fmt.Fprintf(&b, "--- DADOS DO PRODUTO E CONTEXTO ---\nProduto de Referência: '%s'\n\nContexto Completo:\n%s\n\n",
		in.Product.Title, fullContext(ProductContext(in.Product), in.Reference))
	fmt.Fprintf(&b, "--- CAMPOS PARA PREENCHER ---\n%s\n\n", fieldsJSON)
	b.WriteString("--- INSTRUÇÃO DE SAÍDA ---\n")
	b.WriteString("Responda APENAS com um único objeto JSON válido, mapeando cada 'field_name' para a sua escolha.\n")
	b.WriteString(`Exemplo de formato de saída: {"Material": ["Plástico", "Metal"], "Cor": "Azul"}` + "\n")
	b.WriteString("Não inclua NENHUM texto, explicação ou formatação de código antes ou depois do objeto JSON.")
	return b.String(), nil
}

// unitRule is the shared instruction that keeps denylisted unit fields at "nan".
func (r *Resolver) unitRule() string {
	quoted := make([]string, len(r.rules.UnitDenylist))
	for i, u := range r.rules.UnitDenylist {
		quoted[i] = "'" + u + "'"
	}
	return "- CAMPOS DE UNIDADE: NUNCA preencha automaticamente os seguintes campos de unidade: " +
		strings.Join(quoted, ", ") + ". Para estes campos, sempre use 'nan'. " +
		"Outros campos de unidade só devem ser preenchidos se explicitamente fornecidos no contexto.\n"
}
