package writer

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"catalog-workers/internal/catalog"
)

// cellValue is one business-rule value. Reserved values always win their cell; the others
// only fill a cell nothing else wrote.
type cellValue struct {
	col      int
	value    interface{}
	reserved bool
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeNCM keeps the digits of an NCM code.
func NormalizeNCM(raw string) string {
	return nonDigits.ReplaceAllString(raw, "")
}

// RandomNCM returns an 8-digit code that is not all zeros.
func RandomNCM() string {
	for {
		if n := rand.Intn(100_000_000); n != 0 {
			return fmt.Sprintf("%08d", n)
		}
	}
}

// ParseDimensions splits "L x W x H". Unparseable parts are nil.
func ParseDimensions(raw string) []*float64 {
	raw = strings.ReplaceAll(raw, "X", "x")
	parts := strings.Split(raw, "x")
	out := make([]*float64, len(parts))
	for i, p := range parts {
		if v, ok := parseNumber(p); ok {
			out[i] = &v
		}
	}
	return out
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// fixedPlan computes every business-rule value for a parent row before anything is written.
func (w *Writer) fixedPlan(p catalog.Product, images catalog.ImageSet) []cellValue {
	var plan []cellValue
	add := func(header string, v interface{}, reserved bool) {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return
		}
		col, ok := w.column(header)
		if !ok {
			return
		}
		plan = append(plan, cellValue{col: col, value: v, reserved: reserved})
	}

	add(catalog.HeaderSKU, p.SKU, true)

	modelName := p.Title
	if p.BrandType == catalog.BrandTypeBrand {
		modelName = p.BrandName
	}
	add(catalog.HeaderModelName, modelName, true)
	add(catalog.HeaderPrice, string(p.Price), true)

	brand := p.BrandName
	if p.IsGeneric() {
		brand = catalog.BrandTypeGeneric
	}
	add(catalog.HeaderManufacturer, brand, true)
	add(catalog.HeaderBrandName, brand, true)
	if p.BrandType != catalog.BrandTypeGeneric {
		add(catalog.HeaderProductID, p.ProductID, true)
	}

	if p.IsFBA() {
		add(catalog.HeaderChannel, catalog.ChannelFBA, true)
		if qty, ok := p.Quantity(); ok {
			add(catalog.HeaderQuantity, qty, true)
		}
	} else {
		add(catalog.HeaderChannel, catalog.ChannelDefault, true)
	}

	ncm := NormalizeNCM(p.NCM)
	if ncm == "" {
		ncm = w.ncm()
	}
	add(catalog.HeaderNCM, ncm, true)

	plan = append(plan, w.dimensions(p.PackageDimensions, catalog.PackageDimensionHeaders, catalog.PackageDimensionUnits)...)

	weight, ok := parseNumber(string(p.PackageWeight))
	if !ok || weight == 0 {
		weight, _ = parseNumber(w.rules.DefaultWeight)
	}
	add(catalog.HeaderPackageWeight, weight, true)
	add(catalog.HeaderPackageWeightUOM, w.rules.WeightUnit, true)

	plan = append(plan, w.dimensions(p.ItemDimensions, catalog.ItemDimensionHeaders, catalog.ItemDimensionUnits)...)

	add(catalog.HeaderCountryOfOrigin, catalog.CountryBrazil, true)
	add(catalog.HeaderMainImage, images.Principal, true)
	add(catalog.HeaderSampleImage, images.Sample, true)
	for i, url := range images.Extra {
		if i >= len(w.extraImageCols) || strings.TrimSpace(url) == "" {
			continue
		}
		plan = append(plan, cellValue{col: w.extraImageCols[i], value: url, reserved: true})
	}

	add(catalog.HeaderItemName, p.Title, false)
	return plan
}

// dimensions writes the numeric parts and, when at least one is positive, the unit cells of
// package- and item-scoped unit headers only.
func (w *Writer) dimensions(raw string, values, units [3]string) []cellValue {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := ParseDimensions(raw)

	var out []cellValue
	positive := false
	for i, header := range values {
		if i >= len(parts) || parts[i] == nil {
			continue
		}
		if *parts[i] > 0 {
			positive = true
		}
		if col, ok := w.column(header); ok {
			out = append(out, cellValue{col: col, value: *parts[i], reserved: true})
		}
	}
	if !positive {
		return out
	}
	for i, header := range units {
		if i >= len(parts) || parts[i] == nil || !scopedUnit(header) || w.rules.IsDenylistedUnit(header) {
			continue
		}
		if col, ok := w.column(header); ok {
			out = append(out, cellValue{col: col, value: w.rules.DimensionUnit, reserved: true})
		}
	}
	return out
}

func scopedUnit(header string) bool {
	h := strings.ToLower(header)
	return strings.Contains(h, "pacote") || strings.Contains(h, "item")
}
