// Package catalog holds the product model, the resolution result variants and the business tables
// shared by the template extractor, the resolution units and the spreadsheet writer.
package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text is a string that also accepts JSON numbers and null, since form exports send prices,
// weights and quantities either way.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// Variation is one child row of a parent product.
type Variation struct {
	SKU        string `json:"sku"`
	Type       string `json:"tipo"`
	Color      string `json:"cor,omitempty"`
	Dimensions string `json:"cla,omitempty"`
	Weight     Text   `json:"peso,omitempty"`
	Image      string `json:"imagem,omitempty"`
}

// IsColor reports whether the variation is themed by color rather than by size.
func (v Variation) IsColor() bool {
	return strings.EqualFold(strings.TrimSpace(v.Type), "cor")
}

// Theme is the value written into the variation-theme column of the child row.
func (v Variation) Theme() string {
	if v.IsColor() {
		return v.Color
	}
	return v.Dimensions + "cm / " + string(v.Weight) + "g"
}

// Product is one caller-supplied catalog row. JSON keys follow the upload form.
type Product struct {
	Identifier        string      `json:"identifier,omitempty"`
	Title             string      `json:"titulo"`
	SKU               string      `json:"sku"`
	BrandType         string      `json:"tipo_marca"`
	BrandName         string      `json:"nome_marca"`
	Model             string      `json:"modelo,omitempty"`
	Description       string      `json:"descricao,omitempty"`
	Price             Text        `json:"preco"`
	LogisticsChannel  string      `json:"fba_dba"`
	ProductID         string      `json:"id_produto"`
	ProductIDType     string      `json:"tipo_id_produto"`
	NCM               string      `json:"ncm"`
	StockQuantity     Text        `json:"quantidade"`
	PackageWeight     Text        `json:"peso_pacote"`
	PackageDimensions string      `json:"c_l_a_pacote"`
	ItemWeight        Text        `json:"peso_produto"`
	ItemDimensions    string      `json:"c_l_a_produto"`
	Adjustable        string      `json:"ajuste"`
	VariationTheme    string      `json:"tema_variacao_pai"`
	Variations        []Variation `json:"variacoes,omitempty"`
}

// ImageSet carries the hosted image URLs for one product.
type ImageSet struct {
	Principal string   `json:"principal"`
	Sample    string   `json:"amostra"`
	Extra     []string `json:"extra"`
}

const (
	BrandTypeBrand   = "Marca"
	BrandTypeGeneric = "Genérico"
)

// IsFBA reports whether the product ships through Amazon fulfilment.
func (p Product) IsFBA() bool {
	return strings.EqualFold(strings.TrimSpace(p.LogisticsChannel), "FBA")
}

// IsGeneric covers both an explicit generic brand and an unset brand type.
func (p Product) IsGeneric() bool {
	bt := strings.TrimSpace(p.BrandType)
	return bt == "" || bt == BrandTypeGeneric
}

// Normalized trims every text field, strips parent/variation markers from the SKU and
// derives a title when none was supplied.
func (p Product) Normalized() Product {
	p.SKU = ParentSKU(p.SKU)
	p.Title = strings.TrimSpace(p.Title)
	p.BrandType = strings.TrimSpace(p.BrandType)
	p.BrandName = strings.TrimSpace(p.BrandName)
	p.Model = strings.TrimSpace(p.Model)
	p.LogisticsChannel = strings.TrimSpace(p.LogisticsChannel)
	p.ProductID = strings.TrimSpace(p.ProductID)
	p.NCM = strings.TrimSpace(p.NCM)
	p.PackageDimensions = strings.TrimSpace(p.PackageDimensions)
	p.ItemDimensions = strings.TrimSpace(p.ItemDimensions)
	p.Price = Text(strings.TrimSpace(string(p.Price)))
	p.PackageWeight = Text(strings.TrimSpace(string(p.PackageWeight)))

	if p.Title == "" {
		base := p.BrandType
		if p.BrandType == BrandTypeBrand {
			base = p.BrandName
		}
		if base != "" {
			p.Title = strings.TrimSpace(base + " " + p.SKU)
		} else {
			p.Title = p.SKU
		}
	}
	return p
}

// ParentSKU removes the "Produto pai:" label and any trailing "Variações:" listing
// that spreadsheet exports glue onto the SKU cell.
func ParentSKU(raw string) string {
	s := strings.ReplaceAll(raw, "Produto pai:", "")
	if i := strings.Index(s, "Variações:"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Quantity parses the stock quantity. ok is false when the value is absent or not numeric.
func (p Product) Quantity() (int, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(string(p.StockQuantity)), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}
