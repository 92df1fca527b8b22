package template

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
)

var reMultiValue = regexp.MustCompile(`^(.*?)(?:\[.*?\])?#\d+\.value$`)

// Open parses template bytes. Empty input is a missing template.
func Open(data []byte) (*excelize.File, error) {
	if len(data) == 0 {
		return nil, errors.NewTemplateMissingError()
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewTemplateUnreadableError(err)
	}
	return f, nil
}

// Extract builds the schema of layout.Sheet. A missing sheet is fatal; unresolvable validations
// degrade to the sentinel option and unreadable ones are skipped.
func Extract(f *excelize.File, layout Layout, log logger.Logger) (*Schema, error) {
	log = log.WithFields(map[string]interface{}{"sheet": layout.Sheet})

	if idx, err := f.GetSheetIndex(layout.Sheet); err != nil || idx < 0 {
		return nil, errors.NewSheetNotFoundError(layout.Sheet)
	}

	rows, err := f.GetRows(layout.Sheet)
	if err != nil {
		return nil, errors.NewTemplateUnreadableError(err)
	}
	rowAt := func(n int) []string {
		if n-1 < len(rows) && n > 0 {
			return rows[n-1]
		}
		return nil
	}
	chunkRow, groupRow, techRow := rowAt(layout.ChunkRow), rowAt(layout.GroupRow), rowAt(layout.TechnicalRow)

	maxCol := len(groupRow)
	if len(techRow) > maxCol {
		maxCol = len(techRow)
	}
	if len(chunkRow) > maxCol {
		maxCol = len(chunkRow)
	}

	s := &Schema{
		Layout:         layout,
		Groups:         map[string]int{},
		Technical:      map[string]int{},
		MaxColumn:      maxCol,
		Headers:        make([]string, maxCol+1),
		TechnicalNames: make([]string, maxCol+1),
	}
	for c := 1; c <= maxCol; c++ {
		s.Headers[c] = cellAt(groupRow, c)
		s.TechnicalNames[c] = cellAt(techRow, c)
		if h := s.Headers[c]; h != "" {
			if _, ok := s.Groups[h]; !ok {
				s.Groups[h] = c
			}
		}
		if t := s.TechnicalNames[c]; t != "" {
			if _, ok := s.Technical[t]; !ok {
				s.Technical[t] = c
			}
		}
	}

	prefix := ""
	if cell, err := excelize.CoordinatesToCellName(layout.TypeColumn, layout.DataRow); err == nil {
		v, _ := f.GetCellValue(layout.Sheet, cell)
		prefix = strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(v))
	}
	src := newWorkbookSource(f, layout.Sheet, prefix, log)

	fields, err := collectFields(f, s, src, log)
	if err != nil {
		return nil, err
	}
	multi := multiValueHeaders(s)
	for i := range fields {
		fields[i].MultiValue = multi[fields[i].HeaderGroup]
	}
	s.Fields = fields

	chunks, err := collectChunks(f, s, log)
	if err != nil {
		return nil, err
	}
	s.Chunks = chunks

	log.Info("Template schema extracted", map[string]interface{}{
		"fields":     len(s.Fields),
		"chunks":     len(s.Chunks),
		"columns":    s.MaxColumn,
		"typePrefix": prefix,
	})
	return s, nil
}

func cellAt(row []string, col int) string {
	if col <= 0 || col > len(row) {
		return ""
	}
	return strings.TrimSpace(row[col-1])
}

// collectFields groups every list validation touching the data row under its row-4 header.
func collectFields(f *excelize.File, s *Schema, src Source, log logger.Logger) ([]Field, error) {
	dvs, err := f.GetDataValidations(s.Layout.Sheet)
	if err != nil {
		return nil, errors.NewTemplateUnreadableError(err)
	}

	byHeader := map[string]*Field{}
	var order []string
	for _, dv := range dvs {
		if dv == nil || !strings.EqualFold(dv.Type, "list") {
			continue
		}
		cols := columnsAtRow(dv.Sqref, s.Layout.DataRow, log)
		if len(cols) == 0 {
			continue
		}
		header := s.HeaderAt(cols[0])
		if header == "" {
			log.Debug("Validation column has no header group", map[string]interface{}{"sqref": dv.Sqref})
			continue
		}
		if existing, ok := byHeader[header]; ok {
			existing.Columns = append(existing.Columns, cols...)
			continue
		}
		byHeader[header] = &Field{
			HeaderGroup:   header,
			TechnicalName: s.TechnicalAt(cols[0]),
			Columns:       cols,
			Options:       Resolve(src, dv.Formula1),
		}
		order = append(order, header)
	}

	fields := make([]Field, 0, len(order))
	for _, h := range order {
		fld := *byHeader[h]
		fld.Columns = uniqueSorted(fld.Columns)
		fld.TechnicalName = s.TechnicalAt(fld.Columns[0])
		fields = append(fields, fld)
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Column() < fields[j].Column() })
	return fields, nil
}

// columnsAtRow expands a space-separated sqref into the columns whose range covers row.
// Unreadable parts are logged and skipped.
func columnsAtRow(sqref string, row int, log logger.Logger) []int {
	var cols []int
	for _, part := range strings.Fields(sqref) {
		c1, r1, c2, r2, err := parseRange(part)
		if err != nil {
			log.Debug("Skipping unreadable validation range", map[string]interface{}{
				"sqref": part,
				"error": err.Error(),
			})
			continue
		}
		if r1 > row || row > r2 {
			continue
		}
		for c := c1; c <= c2; c++ {
			cols = append(cols, c)
		}
	}
	return cols
}

func uniqueSorted(in []int) []int {
	sort.Ints(in)
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != in[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// multiValueHeaders finds row-5 names of the form base#N.value (optionally base[locale]#N.value)
// whose base repeats, and returns the nearest row-4 header at or left of the first occurrence.
func multiValueHeaders(s *Schema) map[string]bool {
	counts := map[string]int{}
	owner := map[string]string{}
	for c := 1; c <= s.MaxColumn; c++ {
		m := reMultiValue.FindStringSubmatch(s.TechnicalAt(c))
		if m == nil {
			continue
		}
		base := m[1]
		counts[base]++
		if _, ok := owner[base]; ok {
			continue
		}
		for back := c; back > 0; back-- {
			if h := s.HeaderAt(back); h != "" {
				owner[base] = h
				break
			}
		}
	}
	out := map[string]bool{}
	for base, n := range counts {
		if h, ok := owner[base]; ok && n > 1 {
			out[h] = true
		}
	}
	return out
}

// collectChunks reads merged ranges anchored on the chunk row.
func collectChunks(f *excelize.File, s *Schema, log logger.Logger) ([]Chunk, error) {
	merged, err := f.GetMergeCells(s.Layout.Sheet)
	if err != nil {
		return nil, errors.NewTemplateUnreadableError(err)
	}

	byName := map[string]int{}
	var chunks []Chunk
	for i := range merged {
		mc := merged[i]
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil || r1 != s.Layout.ChunkRow {
			continue
		}
		c2, _, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		name := strings.TrimSpace(mc.GetCellValue())
		if name == "" {
			continue
		}
		ch := Chunk{Name: name, StartColumn: c1, EndColumn: c2}
		for c := c1; c <= c2; c++ {
			h, t := s.HeaderAt(c), s.TechnicalAt(c)
			if h == "" && t == "" {
				continue
			}
			ch.Fields = append(ch.Fields, ChunkField{Column: c, HeaderGroup: h, TechnicalName: t})
		}
		// A later range with the same name replaces the earlier one.
		if idx, dup := byName[name]; dup {
			log.Warn("Duplicate chunk name, keeping the later range", map[string]interface{}{
				"chunk":    name,
				"previous": chunks[idx].StartColumn,
				"column":   c1,
			})
			chunks[idx] = ch
			continue
		}
		byName[name] = len(chunks)
		chunks = append(chunks, ch)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartColumn < chunks[j].StartColumn })
	return chunks, nil
}
