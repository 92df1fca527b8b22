package memory

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"catalog-workers/internal/catalog"
)

const titleIdentifierLen = 100

// Extractor derives an identifier from a product, or returns "" to pass to the next one.
// index is the product's position in the submission, -1 when unknown.
type Extractor func(p catalog.Product, index int) string

// Extractors is the identifier chain, tried in order. The first non-empty value wins.
var Extractors = []Extractor{
	bySKU,
	byTitle,
	byBrandModel,
	byContentHash,
	byIndex,
}

// Identify returns the caller-supplied identifier or the first match of the extractor chain.
// A product nothing can identify gets a time-based identifier that will never hit the memo.
func Identify(p catalog.Product, index int) string {
	if id := strings.TrimSpace(p.Identifier); id != "" {
		return id
	}
	for _, extract := range Extractors {
		if id := extract(p, index); id != "" {
			return id
		}
	}
	return fmt.Sprintf("unknown_%d", time.Now().Unix())
}

func bySKU(p catalog.Product, _ int) string {
	if sku := catalog.ParentSKU(p.SKU); sku != "" {
		return "sku_" + sku
	}
	return ""
}

func byTitle(p catalog.Product, _ int) string {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return ""
	}
	if r := []rune(title); len(r) > titleIdentifierLen {
		title = string(r[:titleIdentifierLen])
	}
	return "titulo_" + title
}

func byBrandModel(p catalog.Product, _ int) string {
	brand, model := strings.TrimSpace(p.BrandName), strings.TrimSpace(p.Model)
	if brand == "" || model == "" {
		return ""
	}
	return fmt.Sprintf("marca_modelo_%s_%s", brand, model)
}

func byContentHash(p catalog.Product, _ int) string {
	var b strings.Builder
	for _, v := range []string{p.Title, p.BrandName, p.Model, p.Description} {
		b.WriteString(strings.ToLower(strings.TrimSpace(v)))
	}
	if b.Len() == 0 {
		return ""
	}
	sum := md5.Sum([]byte(b.String()))
	return "hash_" + hex.EncodeToString(sum[:])[:16]
}

func byIndex(_ catalog.Product, index int) string {
	if index < 0 {
		return ""
	}
	return fmt.Sprintf("index_%d", index)
}

// Key is the storage key for an identifier. Identifiers are compared case-insensitively.
func Key(identifier string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(identifier))))
	return KeyPrefix + hex.EncodeToString(sum[:])
}
