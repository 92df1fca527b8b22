package template

import (
	"regexp"
	"strings"
)

// Source gives the option strategies read access to the workbook.
type Source interface {
	// Named returns the non-empty cell values of a defined name.
	Named(name string) ([]string, bool)
	// Names lists every defined name in a stable order.
	Names() []string
	// Range returns the non-empty cell values of ref on sheet; an empty sheet means the template sheet.
	Range(sheet, ref string) ([]string, error)
	// TypePrefix is the product-type cell of the data row with '-' and ' ' replaced by '_'.
	TypePrefix() string
}

// Strategy turns a validation formula into options. nil or empty means "try the next one".
type Strategy func(src Source, formula string) []string

// Sentinel marks a field whose option list could not be resolved.
const Sentinel = "nan"

var (
	reInnerIndirect = regexp.MustCompile(`(?i)INDIRECT\((.*?)\)`)
	reQuotedName    = regexp.MustCompile(`"([A-Za-z0-9_.\[\]=#\-]+)"`)
	reDirectName    = regexp.MustCompile(`^=?\s*([A-Za-z0-9_.\-]+)\s*$`)
	reVlookup       = regexp.MustCompile(`(?i)VLOOKUP\([^)]*\)`)
	reIndirectTail  = regexp.MustCompile(`&\s*"([A-Za-z0-9_.]+)"`)
	reListSplit     = regexp.MustCompile(`[;,]`)
	reExplicitRange = regexp.MustCompile(`^(?:(?:'(?P<quoted>[^']+?)'|(?P<unquoted>[^'!]+?))!)?(?:(?P<start>\$?[A-Z]{1,3}\$?\d+)(?::(?P<end>\$?[A-Z]{1,3}\$?\d+))?|(?P<colstart>\$?[A-Z]{1,3}):(?P<colend>\$?[A-Z]{1,3}))$`)
)

// Chain is the ordered strategy list; the first non-empty result wins.
func Chain() []Strategy {
	return []Strategy{
		FromIfIndirect,
		FromQuotedNames,
		FromDirectName,
		FromIndirectSuffix,
		FromLiteralList,
		FromExplicitRange,
		FromRawName,
	}
}

// Resolve runs the chain. It never returns an empty slice: unresolved formulas yield the sentinel.
func Resolve(src Source, formula string) []string {
	if opts := resolve(src, formula); len(opts) > 0 {
		return opts
	}
	return []string{Sentinel}
}

func resolve(src Source, formula string) []string {
	for _, s := range Chain() {
		if opts := s(src, formula); len(opts) > 0 {
			return opts
		}
	}
	return nil
}

func clean(formula string) string {
	return strings.TrimSpace(strings.TrimLeft(formula, "="))
}

// FromIfIndirect handles IF(cond, INDIRECT(a), INDIRECT(b)) by resolving each INDIRECT in turn.
func FromIfIndirect(src Source, formula string) []string {
	f := strings.ToUpper(strings.TrimSpace(formula))
	f = strings.TrimLeft(f, "=")
	if !strings.HasPrefix(f, "IF(") || !strings.Contains(f, "INDIRECT") {
		return nil
	}
	for _, m := range reInnerIndirect.FindAllStringSubmatch(formula, -1) {
		if opts := resolve(src, "INDIRECT("+m[1]+")"); len(opts) > 0 {
			return opts
		}
	}
	return nil
}

// FromQuotedNames reads the first quoted token that names a defined range.
func FromQuotedNames(src Source, formula string) []string {
	for _, m := range reQuotedName.FindAllStringSubmatch(formula, -1) {
		if opts, ok := src.Named(m[1]); ok && len(opts) > 0 {
			return opts
		}
	}
	return nil
}

// FromDirectName reads a formula that is just a defined name.
func FromDirectName(src Source, formula string) []string {
	m := reDirectName.FindStringSubmatch(clean(formula))
	if m == nil {
		return nil
	}
	opts, _ := src.Named(m[1])
	return opts
}

// FromIndirectSuffix rebuilds the name an INDIRECT formula points at from the row's product-type
// prefix and the literal suffix concatenated in the formula. Names merely containing the suffix
// are the fallback.
func FromIndirectSuffix(src Source, formula string) []string {
	if !strings.HasPrefix(strings.ToUpper(clean(formula)), "INDIRECT") {
		return nil
	}
	m := reIndirectTail.FindStringSubmatch(reVlookup.ReplaceAllString(formula, ""))
	if m == nil {
		return nil
	}
	suffix := m[1]
	if opts, ok := src.Named(src.TypePrefix() + suffix); ok && len(opts) > 0 {
		return opts
	}
	for _, name := range src.Names() {
		if !strings.Contains(name, suffix) {
			continue
		}
		if opts, ok := src.Named(name); ok && len(opts) > 0 {
			return opts
		}
	}
	return nil
}

// FromLiteralList splits "a,b;c" or {a;b} literal lists.
func FromLiteralList(src Source, formula string) []string {
	f := clean(formula)
	var body string
	switch {
	case len(f) >= 2 && strings.HasPrefix(f, `"`) && strings.HasSuffix(f, `"`):
		body = strings.Trim(f, `"`)
	case len(f) >= 2 && strings.HasPrefix(f, "{") && strings.HasSuffix(f, "}"):
		body = strings.Trim(f, "{}")
	default:
		return nil
	}
	var out []string
	for _, part := range reListSplit.Split(body, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FromExplicitRange reads Sheet!A1:B2, 'My Sheet'!$A$1, whole columns such as Lists!A:A, or a
// bare range on the template sheet.
func FromExplicitRange(src Source, formula string) []string {
	f := clean(formula)
	m := reExplicitRange.FindStringSubmatch(f)
	if m == nil {
		return nil
	}
	group := func(name string) string { return m[reExplicitRange.SubexpIndex(name)] }
	sheet := group("quoted")
	if sheet == "" {
		sheet = strings.TrimSpace(group("unquoted"))
	}
	ref := group("start")
	if end := group("end"); end != "" {
		ref += ":" + end
	}
	if ref == "" {
		ref = group("colstart") + ":" + group("colend")
	}
	opts, err := src.Range(sheet, ref)
	if err != nil {
		return nil
	}
	return opts
}

// FromRawName treats the whole formula text as a defined-name key.
func FromRawName(src Source, formula string) []string {
	opts, _ := src.Named(clean(formula))
	return opts
}
