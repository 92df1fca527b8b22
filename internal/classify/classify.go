// Package classify partitions an extracted template schema into the three resolution strategies:
// fixed (writer rules), constrained choice (one model call) and free-text chunks (triage then fill).
package classify

import (
	"strings"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/template"
)

// FixedColumn is a column the writer owns.
type FixedColumn struct {
	Column        int    `json:"column"`
	HeaderGroup   string `json:"headerGroup"`
	TechnicalName string `json:"technicalName"`
}

// ChunkPlan is the free-text part of one template chunk.
type ChunkPlan struct {
	Name     string                `json:"name"`
	Fields   []template.ChunkField `json:"fields"`
	Critical []string              `json:"critical"`
}

// HeaderGroups returns the distinct header groups of the plan in column order.
func (c ChunkPlan) HeaderGroups() []string {
	return template.Chunk{Fields: c.Fields}.HeaderGroups()
}

// IsCritical reports whether a header group of this chunk is critical.
func (c ChunkPlan) IsCritical(group string) bool {
	for _, g := range c.Critical {
		if g == group {
			return true
		}
	}
	return false
}

// Plan is the classification result for one template.
type Plan struct {
	Fixed  []FixedColumn    `json:"fixed"`
	Choice []template.Field `json:"choice"`
	Chunks []ChunkPlan      `json:"chunks"`
}

// UnitCount is the number of resolution units per product: main content, choices and one per chunk.
func (p *Plan) UnitCount() int {
	return 2 + len(p.Chunks)
}

// Chunk looks up a chunk plan by name.
func (p *Plan) Chunk(name string) (ChunkPlan, bool) {
	for _, c := range p.Chunks {
		if c.Name == name {
			return c, true
		}
	}
	return ChunkPlan{}, false
}

// Classify applies the partition rules. Criticality is copied onto choice fields and chunk plans
// and only ever influences prompting.
func Classify(s *template.Schema, rules catalog.Rules) *Plan {
	p := &Plan{}

	owned := func(col int) bool {
		h, t := s.HeaderAt(col), s.TechnicalAt(col)
		return rules.IsFixed(h) || rules.IsMainContent(h, t) || rules.IsReservedTechnical(t)
	}

	for c := 1; c <= s.MaxColumn; c++ {
		if owned(c) {
			p.Fixed = append(p.Fixed, FixedColumn{Column: c, HeaderGroup: s.HeaderAt(c), TechnicalName: s.TechnicalAt(c)})
		}
	}

	choiceHeaders := map[string]struct{}{}
	for _, f := range s.Fields {
		if owned(f.Column()) {
			continue
		}
		opts := usableOptions(f.Options)
		if len(opts) == 0 {
			continue
		}
		f.Options = opts
		f.Critical = rules.IsCritical(f.HeaderGroup)
		p.Choice = append(p.Choice, f)
		choiceHeaders[f.HeaderGroup] = struct{}{}
	}

	for _, ch := range s.Chunks {
		cp := ChunkPlan{Name: ch.Name}
		seenCritical := map[string]bool{}
		for _, cf := range ch.Fields {
			if owned(cf.Column) || (cf.HeaderGroup == "" && cf.TechnicalName == "") {
				continue
			}
			if _, isChoice := choiceHeaders[cf.HeaderGroup]; isChoice {
				continue
			}
			cp.Fields = append(cp.Fields, cf)
			if cf.HeaderGroup != "" && rules.IsCritical(cf.HeaderGroup) && !seenCritical[cf.HeaderGroup] {
				seenCritical[cf.HeaderGroup] = true
				cp.Critical = append(cp.Critical, cf.HeaderGroup)
			}
		}
		if len(cp.Fields) > 0 {
			p.Chunks = append(p.Chunks, cp)
		}
	}
	return p
}

func usableOptions(in []string) []string {
	var out []string
	for _, o := range in {
		o = strings.TrimSpace(o)
		if o == "" || strings.EqualFold(o, catalog.NotApplicable) {
			continue
		}
		out = append(out, o)
	}
	return out
}
