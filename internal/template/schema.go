// Package template reverse-engineers the implicit schema of an Amazon category template:
// per-column option lists from data-validation formulas, merged chunk groupings and
// multi-value fields.
package template

import (
	"catalog-workers/internal/common/config"
)

// Layout locates the schema rows inside the template sheet. Rows and columns are 1-based.
type Layout struct {
	Sheet        string `json:"sheet"`
	ChunkRow     int    `json:"chunkRow"`
	GroupRow     int    `json:"groupRow"`
	TechnicalRow int    `json:"technicalRow"`
	DataRow      int    `json:"dataRow"`
	TypeColumn   int    `json:"typeColumn"`
}

// DefaultLayout matches the Amazon BR flat-file templates.
func DefaultLayout() Layout {
	return Layout{Sheet: "Modelo", ChunkRow: 3, GroupRow: 4, TechnicalRow: 5, DataRow: 7, TypeColumn: 3}
}

// LayoutFromConfig fills zero values from DefaultLayout.
func LayoutFromConfig(c config.TemplateLayout) Layout {
	l := DefaultLayout()
	if c.Sheet != "" {
		l.Sheet = c.Sheet
	}
	if c.ChunkRow > 0 {
		l.ChunkRow = c.ChunkRow
	}
	if c.GroupRow > 0 {
		l.GroupRow = c.GroupRow
	}
	if c.TechnicalRow > 0 {
		l.TechnicalRow = c.TechnicalRow
	}
	if c.DataRow > 0 {
		l.DataRow = c.DataRow
	}
	if c.TypeColumn > 0 {
		l.TypeColumn = c.TypeColumn
	}
	return l
}

// Field is one header group with a list data validation. Options is never empty.
type Field struct {
	HeaderGroup   string   `json:"headerGroup"`
	TechnicalName string   `json:"technicalName"`
	Columns       []int    `json:"columns"`
	Options       []string `json:"options"`
	MultiValue    bool     `json:"multiValue"`
	Critical      bool     `json:"critical"`
}

// Column is the first column the field occupies.
func (f Field) Column() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0]
}

// ChunkField is one column inside a chunk.
type ChunkField struct {
	Column        int    `json:"column"`
	HeaderGroup   string `json:"headerGroup"`
	TechnicalName string `json:"technicalName"`
}

// Chunk is a contiguous column range under one merged chunk-row header.
type Chunk struct {
	Name        string       `json:"name"`
	StartColumn int          `json:"startColumn"`
	EndColumn   int          `json:"endColumn"`
	Fields      []ChunkField `json:"fields"`
}

// HeaderGroups returns the distinct non-empty header groups of the chunk in column order.
func (c Chunk) HeaderGroups() []string {
	seen := make(map[string]struct{}, len(c.Fields))
	var out []string
	for _, f := range c.Fields {
		if f.HeaderGroup == "" {
			continue
		}
		if _, ok := seen[f.HeaderGroup]; ok {
			continue
		}
		seen[f.HeaderGroup] = struct{}{}
		out = append(out, f.HeaderGroup)
	}
	return out
}

// FieldsUnder returns the chunk fields whose header group is in groups.
func (c Chunk) FieldsUnder(groups []string) []ChunkField {
	want := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		want[g] = struct{}{}
	}
	var out []ChunkField
	for _, f := range c.Fields {
		if _, ok := want[f.HeaderGroup]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Schema is everything extracted from one template sheet.
type Schema struct {
	Layout    Layout         `json:"layout"`
	Fields    []Field        `json:"fields"`
	Chunks    []Chunk        `json:"chunks"`
	Groups    map[string]int `json:"groups"`
	Technical map[string]int `json:"technical"`
	MaxColumn int            `json:"maxColumn"`

	// Headers and TechnicalNames are indexed by column; index 0 is unused.
	Headers        []string `json:"headers"`
	TechnicalNames []string `json:"technicalNames"`
}

// Field looks up a choice field by header group.
func (s *Schema) Field(header string) (Field, bool) {
	for _, f := range s.Fields {
		if f.HeaderGroup == header {
			return f, true
		}
	}
	return Field{}, false
}

// Chunk looks up a chunk by name.
func (s *Schema) Chunk(name string) (Chunk, bool) {
	for _, c := range s.Chunks {
		if c.Name == name {
			return c, true
		}
	}
	return Chunk{}, false
}

// HeaderAt returns the header group of a column, or "".
func (s *Schema) HeaderAt(col int) string {
	if col <= 0 || col >= len(s.Headers) {
		return ""
	}
	return s.Headers[col]
}

// TechnicalAt returns the technical name of a column, or "".
func (s *Schema) TechnicalAt(col int) string {
	if col <= 0 || col >= len(s.TechnicalNames) {
		return ""
	}
	return s.TechnicalNames[col]
}
