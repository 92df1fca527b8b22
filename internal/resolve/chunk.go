package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/classify"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/llm"
	"catalog-workers/internal/template"
)

// ChunkState is a stage of chunk processing. States only move forward.
type ChunkState int

const (
	StateTriage ChunkState = iota
	StateVIPMerge
	StateFill
	StateDone
)

func (s ChunkState) String() string {
	switch s {
	case StateTriage:
		return "TRIAGE"
	case StateVIPMerge:
		return "VIP_MERGE"
	case StateFill:
		return "FILL"
	case StateDone:
		return "DONE"
	}
	return fmt.Sprintf("ChunkState(%d)", int(s))
}

// chunkRun carries one chunk of one product through the state machine.
type chunkRun struct {
	state    ChunkState
	plan     classify.ChunkPlan
	groups   []string
	relevant []string
	values   map[string]string
	trace    []ChunkState
	logger   logger.Logger
}

func (c *chunkRun) advance(next ChunkState) {
	if next <= c.state {
		panic(fmt.Sprintf("resolve: illegal chunk transition %s -> %s", c.state, next))
	}
	c.logger.Debug("Chunk state change", map[string]interface{}{"from": c.state.String(), "to": next.String()})
	c.state = next
	c.trace = append(c.trace, next)
}

// Chunk fills the free-text fields of one chunk: triage picks the relevant header groups, the VIP
// merge re-adds omitted critical groups, then a persona prompt fills the technical fields.
func (r *Resolver) Chunk(ctx context.Context, in Input, plan classify.ChunkPlan) *catalog.ChunkFill {
	fill, _ := r.runChunk(ctx, in, plan)
	return fill
}

func (r *Resolver) runChunk(ctx context.Context, in Input, plan classify.ChunkPlan) (*catalog.ChunkFill, []ChunkState) {
	start := time.Now()
	log := r.unitLogger(catalog.UnitChunk, in).WithFields(map[string]interface{}{"chunk": plan.Name})
	out := &catalog.ChunkFill{Index: in.Index, Chunk: plan.Name, Values: map[string]string{}}

	if vals, ok := in.Memo.Chunk(plan.Name); ok {
		for k, v := range vals {
			out.Values[k] = v
		}
		log.Info("Chunk reused from memory", map[string]interface{}{"fields": len(vals)})
		observe(catalog.UnitChunk, start, outcomeMemo)
		return out, nil
	}

	run := &chunkRun{
		state:  StateTriage,
		plan:   plan,
		groups: plan.HeaderGroups(),
		trace:  []ChunkState{StateTriage},
		logger: log,
	}
	if len(run.groups) == 0 {
		run.advance(StateDone)
	}

	for run.state != StateDone {
		switch run.state {
		case StateTriage:
			run.relevant = r.triage(ctx, in, run)
			run.advance(StateVIPMerge)

		case StateVIPMerge:
			run.relevant = VIPMerge(run.relevant, plan)
			if len(run.relevant) == 0 {
				log.Info("No relevant fields after triage", nil)
				run.advance(StateDone)
				continue
			}
			run.advance(StateFill)

		case StateFill:
			values, err := r.fill(ctx, in, run)
			if err != nil {
				log.Warn("Chunk fill failed", map[string]interface{}{"error": err.Error()})
			} else {
				run.values = values
			}
			run.advance(StateDone)
		}
	}

	for k, v := range run.values {
		out.Values[k] = v
	}
	outcome := outcomeOK
	if len(out.Values) == 0 {
		outcome = outcomeEmpty
	}
	log.Info("Chunk processed", map[string]interface{}{
		"relevantGroups": len(run.relevant),
		"filled":         len(out.Values),
	})
	observe(catalog.UnitChunk, start, outcome)
	return out, run.trace
}

// triage asks which header groups matter for the product. Any failure keeps every group.
func (r *Resolver) triage(ctx context.Context, in Input, run *chunkRun) []string {
	prompt := fmt.Sprintf(
		"Com base nas informações completas do produto:\n\n%s\n\n"+
			"Avalie a lista de grupos de atributos a seguir: %s. "+
			"Responda APENAS com um objeto JSON contendo uma única chave 'relevant_fields', "+
			"cujo valor é uma lista de strings com os nomes dos atributos da lista que são REALMENTE RELEVANTES. "+
			"Exemplo: para uma VELA, o atributo 'Voltagem' é irrelevante e não deve ser incluído na resposta.",
		ProductContext(in.Product), strings.Join(run.groups, ", "))

	text, err := r.llm.Generate(ctx, llm.Request{
		Prompt: prompt,
		Context: map[string]interface{}{
			"unit":          "chunk_triage",
			"chunk":         run.plan.Name,
			"product_title": in.Product.Title,
		},
		JSON: true,
		Unit: "chunk_triage",
		Accept: func(text string) bool {
			_, ok := ParseTriage(text, run.groups)
			return ok
		},
		Fresh: in.Fresh,
	})
	if err != nil {
		run.logger.Warn("Triage failed, keeping every group", map[string]interface{}{"error": err.Error()})
		return append([]string(nil), run.groups...)
	}

	relevant, ok := ParseTriage(text, run.groups)
	if !ok {
		run.logger.Warn("Triage response unreadable, keeping every group", nil)
		return append([]string(nil), run.groups...)
	}
	return relevant
}

// ParseTriage reads {"relevant_fields": [...]} (or the legacy "campos_relevantes" key) and keeps
// only names from groups, in the order the model gave them. ok is false when nothing parseable
// was found.
func ParseTriage(text string, groups []string) ([]string, bool) {
	raw := llm.ExtractJSON(text)
	if raw == "" {
		return nil, false
	}
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	list, found := parsed["relevant_fields"]
	if !found {
		list, found = parsed["campos_relevantes"]
	}
	if !found {
		return nil, false
	}
	var names []string
	if err := json.Unmarshal(list, &names); err != nil {
		return nil, false
	}

	known := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		known[g] = struct{}{}
	}
	seen := map[string]bool{}
	out := []string{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := known[n]; ok && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, true
}

// VIPMerge appends every critical group of the chunk that triage left out.
func VIPMerge(relevant []string, plan classify.ChunkPlan) []string {
	out := append([]string(nil), relevant...)
	present := make(map[string]bool, len(out))
	for _, g := range out {
		present[g] = true
	}
	for _, g := range plan.Critical {
		if !present[g] {
			present[g] = true
			out = append(out, g)
		}
	}
	return out
}

// selectFields returns the chunk fields under the relevant groups. A field without a header group
// belongs to the group of the field before it.
func selectFields(plan classify.ChunkPlan, relevant []string) []template.ChunkField {
	want := make(map[string]bool, len(relevant))
	for _, g := range relevant {
		want[g] = true
	}
	var (
		out   []template.ChunkField
		group string
	)
	for _, f := range plan.Fields {
		if f.HeaderGroup != "" {
			group = f.HeaderGroup
		}
		if f.TechnicalName == "" || !want[group] {
			continue
		}
		f.HeaderGroup = group
		out = append(out, f)
	}
	return out
}

func (r *Resolver) fill(ctx context.Context, in Input, run *chunkRun) (map[string]string, error) {
	fields := selectFields(run.plan, run.relevant)
	if len(fields) == 0 {
		return nil, nil
	}

	var critical []string
	lines := make([]string, len(fields))
	for i, f := range fields {
		lines[i] = fmt.Sprintf("- **%s** (do grupo '%s')", f.TechnicalName, f.HeaderGroup)
		if run.plan.IsCritical(f.HeaderGroup) {
			critical = append(critical, f.TechnicalName)
		}
	}
	criticalText := "Nenhum campo crítico neste grupo."
	if len(critical) > 0 {
		criticalText = fmt.Sprintf("ATENÇÃO MÁXIMA: Os seguintes campos deste grupo são CRÍTICOS e devem ter um valor válido: **%s**. Evite 'nan' para eles a todo custo.",
			strings.Join(critical, ", "))
	}

	var b strings.Builder
	b.WriteString(r.rules.PersonaFor(run.plan.Name))
	b.WriteString("\n\nSua missão é preencher DE FORMA PRECISA E COMPLETA **CADA CAMPO** da lista fornecida.\n\n")
	b.WriteString("### REGRAS DE OURO:\n")
	b.WriteString("1. **NÃO INVENTE INFORMAÇÕES:** Use apenas dados fornecidos no contexto do produto. Se não houver informação suficiente, use 'nan'.\n")
	b.WriteString("2. **SAÍDA EXCLUSIVAMENTE EM JSON:** Responda apenas com um objeto JSON válido, sem texto adicional.\n")
	b.WriteString("3. **CHAVES EXATAS:** Use exatamente os nomes dos campos fornecidos como chaves no JSON.\n")
	b.WriteString("4. **VALORES EM PORTUGUÊS BRASILEIRO.**\n")
	b.WriteString("5." + strings.TrimPrefix(r.unitRule(), "-"))
	fmt.Fprintf(&b, "6. **CAMPOS CRÍTICOS:** %s\n\n", criticalText)
	fmt.Fprintf(&b, "### DADOS PARA ANÁLISE\n**Produto de Referência:**\n`%s`\n\n**Contexto Completo:**\n%s\n\n",
		in.Product.Title, fullContext(ProductContext(in.Product), in.Reference))
	fmt.Fprintf(&b, "### CAMPOS PARA PREENCHER\n%s\n\n", strings.Join(lines, "\n"))
	b.WriteString("### INSTRUÇÃO DE SAÍDA FINAL\nGere o objeto JSON com uma entrada para CADA um dos campos listados acima. Não omita nenhum.")

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.TechnicalName
	}
	text, err := r.llm.Generate(ctx, llm.Request{
		Prompt: b.String(),
		Context: map[string]interface{}{
			"unit":          "chunk_fill",
			"chunk":         run.plan.Name,
			"product_title": in.Product.Title,
			"fields":        names,
		},
		JSON: true,
		Unit: "chunk_fill",
		Accept: func(text string) bool {
			_, err := ParseFill(text, fields)
			return err == nil
		},
		Fresh: in.Fresh,
	})
	if err != nil {
		return nil, err
	}
	return ParseFill(text, fields)
}

// ParseFill reads the technical-name → value object, keeping only requested names.
func ParseFill(text string, fields []template.ChunkField) (map[string]string, error) {
	raw := llm.ExtractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}

	out := map[string]string{}
	for _, f := range fields {
		v, ok := parsed[f.TechnicalName]
		if !ok {
			continue
		}
		if s := stringValue(v); s != "" {
			out[f.TechnicalName] = s
		}
	}
	return out, nil
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		return ""
	}
	return fmt.Sprint(v)
}
