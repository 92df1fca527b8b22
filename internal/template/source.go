package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"catalog-workers/internal/common/logger"
)

var errSheetMissing = errors.New("referenced sheet not found")

type namedRange struct {
	sheet string
	ref   string
}

// workbookSource resolves defined names and ranges against an open workbook.
// Range reads are memoized since hundreds of validations share a handful of lists.
type workbookSource struct {
	f      *excelize.File
	sheet  string
	prefix string
	names  map[string]namedRange
	order  []string
	cache  map[string][]string
	log    logger.Logger
}

func newWorkbookSource(f *excelize.File, sheet, prefix string, log logger.Logger) *workbookSource {
	s := &workbookSource{
		f:      f,
		sheet:  sheet,
		prefix: prefix,
		names:  map[string]namedRange{},
		cache:  map[string][]string{},
		log:    log,
	}
	for _, dn := range f.GetDefinedName() {
		sheetName, ref, ok := parseRefersTo(dn.RefersTo)
		if !ok {
			continue
		}
		if _, dup := s.names[dn.Name]; dup {
			continue
		}
		if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
			log.Warn("Defined name points at a missing sheet", map[string]interface{}{
				"name":  dn.Name,
				"sheet": sheetName,
			})
			continue
		}
		s.names[dn.Name] = namedRange{sheet: sheetName, ref: ref}
		s.order = append(s.order, dn.Name)
	}
	sort.Strings(s.order)
	return s
}

// parseRefersTo splits "=Lists!$A$1:$A$9" or "'My Lists'!$A$1" into sheet and reference.
func parseRefersTo(refersTo string) (string, string, bool) {
	r := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(refersTo), "="))
	if r == "" || strings.ContainsAny(r, ",(") {
		return "", "", false
	}
	i := strings.LastIndex(r, "!")
	if i <= 0 || i == len(r)-1 {
		return "", "", false
	}
	sheet := r[:i]
	if strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") && len(sheet) >= 2 {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return sheet, strings.ReplaceAll(r[i+1:], "$", ""), true
}

func (s *workbookSource) Named(name string) ([]string, bool) {
	nr, ok := s.names[name]
	if !ok {
		return nil, false
	}
	opts, err := s.Range(nr.sheet, nr.ref)
	if err != nil {
		return nil, false
	}
	return opts, true
}

func (s *workbookSource) Names() []string { return s.order }

func (s *workbookSource) TypePrefix() string { return s.prefix }

func (s *workbookSource) Range(sheet, ref string) ([]string, error) {
	if sheet == "" {
		sheet = s.sheet
	}
	ref = strings.ReplaceAll(ref, "$", "")
	key := sheet + "!" + ref
	if v, ok := s.cache[key]; ok {
		return v, nil
	}
	if idx, err := s.f.GetSheetIndex(sheet); err != nil || idx < 0 {
		s.log.Warn("Validation references a missing sheet", map[string]interface{}{
			"sheet": sheet,
			"ref":   ref,
		})
		return nil, fmt.Errorf("%w: %s", errSheetMissing, sheet)
	}

	c1, r1, c2, r2, err := parseRange(ref)
	if err != nil {
		s.log.Debug("Unreadable range reference", map[string]interface{}{
			"sheet": sheet,
			"ref":   ref,
			"error": err.Error(),
		})
		return nil, err
	}
	if r2 == excelize.TotalRows {
		rows, err := s.f.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		r2 = len(rows)
	}

	var values []string
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			cell, _ := excelize.CoordinatesToCellName(c, r)
			v, err := s.f.GetCellValue(sheet, cell)
			if err != nil {
				return nil, err
			}
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	s.cache[key] = values
	return values, nil
}

// parseRange reads "A1", "A1:B9" or a whole-column range such as "A:C", returning ordered
// bounds. Whole columns span rows 1 to excelize.TotalRows.
func parseRange(ref string) (c1, r1, c2, r2 int, err error) {
	ref = strings.ReplaceAll(ref, "$", "")
	start, end := ref, ref
	if i := strings.Index(ref, ":"); i >= 0 {
		start, end = ref[:i], ref[i+1:]
	}

	if !strings.ContainsAny(start, "0123456789") && !strings.ContainsAny(end, "0123456789") {
		if c1, err = excelize.ColumnNameToNumber(start); err != nil {
			return 0, 0, 0, 0, err
		}
		if c2, err = excelize.ColumnNameToNumber(end); err != nil {
			return 0, 0, 0, 0, err
		}
		r1, r2 = 1, excelize.TotalRows
	} else {
		if c1, r1, err = excelize.CellNameToCoordinates(start); err != nil {
			return 0, 0, 0, 0, err
		}
		if c2, r2, err = excelize.CellNameToCoordinates(end); err != nil {
			return 0, 0, 0, 0, err
		}
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	return c1, r1, c2, r2, nil
}
