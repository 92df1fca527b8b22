package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UnitKind names the three resolution units.
type UnitKind string

const (
	UnitMainContent UnitKind = "main_content"
	UnitChoices     UnitKind = "options"
	UnitChunk       UnitKind = "chunk"
)

// Result is the closed set of values a resolution unit can produce.
// The unexported method keeps the set closed to this package.
type Result interface {
	ProductIndex() int
	Kind() UnitKind
	isResult()
}

// MainContent is the listing copy: title, five bullets, description and keyword string.
type MainContent struct {
	Index       int      `json:"productIndex"`
	Title       string   `json:"title"`
	Bullets     []string `json:"bullets"`
	Description string   `json:"description"`
	Keywords    string   `json:"keywords"`
}

func (m *MainContent) ProductIndex() int { return m.Index }
func (m *MainContent) Kind() UnitKind    { return UnitMainContent }
func (*MainContent) isResult()           {}

// Empty reports whether no field carries content.
func (m *MainContent) Empty() bool {
	if m == nil {
		return true
	}
	return m.Title == "" && m.Description == "" && m.Keywords == "" && len(m.Bullets) == 0
}

// Selection is the chosen option set for one choice field. Single-value fields hold one element.
type Selection []string

// UnmarshalJSON accepts either a bare string or a list of strings.
func (s *Selection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var raw []interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if str := scalarString(v); str != "" {
				out = append(out, str)
			}
		}
		*s = out
		return nil
	default:
		var raw interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if str := scalarString(raw); str != "" {
			*s = Selection{str}
		} else {
			*s = nil
		}
		return nil
	}
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

// ChoiceSelections maps header group to the options the model picked for one product.
type ChoiceSelections struct {
	Index  int                  `json:"productIndex"`
	Values map[string]Selection `json:"values"`
}

func (c *ChoiceSelections) ProductIndex() int { return c.Index }
func (c *ChoiceSelections) Kind() UnitKind    { return UnitChoices }
func (*ChoiceSelections) isResult()           {}

// ChunkFill maps technical field name to the free-text value for one chunk of one product.
type ChunkFill struct {
	Index  int               `json:"productIndex"`
	Chunk  string            `json:"chunk"`
	Values map[string]string `json:"values"`
}

func (c *ChunkFill) ProductIndex() int { return c.Index }
func (c *ChunkFill) Kind() UnitKind    { return UnitChunk }
func (*ChunkFill) isResult()           {}

// Envelope is the wire form of a Result, used when units run in separate workers.
type Envelope struct {
	Kind    UnitKind          `json:"kind"`
	Main    *MainContent      `json:"main,omitempty"`
	Choices *ChoiceSelections `json:"choices,omitempty"`
	Chunk   *ChunkFill        `json:"chunk,omitempty"`
}

// Wrap builds the envelope for r.
func Wrap(r Result) Envelope {
	switch v := r.(type) {
	case *MainContent:
		return Envelope{Kind: UnitMainContent, Main: v}
	case *ChoiceSelections:
		return Envelope{Kind: UnitChoices, Choices: v}
	case *ChunkFill:
		return Envelope{Kind: UnitChunk, Chunk: v}
	}
	panic(fmt.Sprintf("catalog: unknown result type %T", r))
}

// Decode returns the typed variant carried by the envelope.
func (e Envelope) Decode() (Result, error) {
	switch e.Kind {
	case UnitMainContent:
		if e.Main != nil {
			return e.Main, nil
		}
	case UnitChoices:
		if e.Choices != nil {
			return e.Choices, nil
		}
	case UnitChunk:
		if e.Chunk != nil {
			return e.Chunk, nil
		}
	default:
		return nil, fmt.Errorf("unknown result kind %q", e.Kind)
	}
	return nil, fmt.Errorf("envelope of kind %q carries no payload", e.Kind)
}
