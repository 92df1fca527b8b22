package catalog

// AggregatedRow collects every result destined for one product row before the write pass.
type AggregatedRow struct {
	Index   int
	Main    *MainContent
	Choices map[string]Selection
	Chunks  []*ChunkFill
}

// Aggregate routes results to their product rows. Results for indexes outside [0,n) are dropped.
// Within a row the first value seen for a field wins.
func Aggregate(n int, results []Result) []AggregatedRow {
	rows := make([]AggregatedRow, n)
	for i := range rows {
		rows[i] = AggregatedRow{Index: i, Choices: map[string]Selection{}}
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		idx := r.ProductIndex()
		if idx < 0 || idx >= n {
			continue
		}
		row := &rows[idx]
		switch v := r.(type) {
		case *MainContent:
			if row.Main.Empty() && !v.Empty() {
				row.Main = v
			}
		case *ChoiceSelections:
			for field, sel := range v.Values {
				if _, seen := row.Choices[field]; !seen {
					row.Choices[field] = sel
				}
			}
		case *ChunkFill:
			if len(v.Values) > 0 {
				row.Chunks = append(row.Chunks, v)
			}
		}
	}
	return rows
}

// Bundle is the memoized AI content for one product identifier.
type Bundle struct {
	Main    *MainContent                 `json:"main,omitempty"`
	Choices map[string]Selection         `json:"choices,omitempty"`
	Chunks  map[string]map[string]string `json:"chunks,omitempty"`
}

// Empty reports whether the bundle carries nothing reusable.
func (b *Bundle) Empty() bool {
	return b == nil || (b.Main.Empty() && len(b.Choices) == 0 && len(b.Chunks) == 0)
}

// Chunk returns the memoized fill of a chunk, if any.
func (b *Bundle) Chunk(name string) (map[string]string, bool) {
	if b == nil {
		return nil, false
	}
	v, ok := b.Chunks[name]
	return v, ok && len(v) > 0
}

// BundleFromRow captures the reusable parts of an aggregated row.
func BundleFromRow(row AggregatedRow) *Bundle {
	b := &Bundle{}
	if !row.Main.Empty() {
		m := *row.Main
		m.Index = 0
		b.Main = &m
	}
	if len(row.Choices) > 0 {
		b.Choices = make(map[string]Selection, len(row.Choices))
		for k, v := range row.Choices {
			b.Choices[k] = v
		}
	}
	for _, c := range row.Chunks {
		if b.Chunks == nil {
			b.Chunks = map[string]map[string]string{}
		}
		dst, ok := b.Chunks[c.Chunk]
		if !ok {
			dst = map[string]string{}
			b.Chunks[c.Chunk] = dst
		}
		for k, v := range c.Values {
			if _, seen := dst[k]; !seen {
				dst[k] = v
			}
		}
	}
	return b
}

// Merge returns a bundle holding b's values plus any parts of other that b lacks.
func (b *Bundle) Merge(other *Bundle) *Bundle {
	out := &Bundle{}
	if b != nil {
		out.Main = b.Main
		out.Choices = copySelections(b.Choices)
		out.Chunks = copyChunks(b.Chunks)
	}
	if other == nil {
		return out
	}
	if out.Main.Empty() {
		out.Main = other.Main
	}
	for k, v := range other.Choices {
		if out.Choices == nil {
			out.Choices = map[string]Selection{}
		}
		if _, seen := out.Choices[k]; !seen {
			out.Choices[k] = v
		}
	}
	for name, fill := range other.Chunks {
		if out.Chunks == nil {
			out.Chunks = map[string]map[string]string{}
		}
		dst, ok := out.Chunks[name]
		if !ok {
			dst = map[string]string{}
			out.Chunks[name] = dst
		}
		for k, v := range fill {
			if _, seen := dst[k]; !seen {
				dst[k] = v
			}
		}
	}
	return out
}

func copySelections(in map[string]Selection) map[string]Selection {
	if in == nil {
		return nil
	}
	out := make(map[string]Selection, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyChunks(in map[string]map[string]string) map[string]map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]map[string]string, len(in))
	for name, fill := range in {
		dst := make(map[string]string, len(fill))
		for k, v := range fill {
			dst[k] = v
		}
		out[name] = dst
	}
	return out
}
