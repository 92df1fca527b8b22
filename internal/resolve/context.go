package resolve

import (
	"fmt"
	"strings"

	"catalog-workers/internal/catalog"
)

type labeled struct {
	label string
	value func(p catalog.Product) string
}

var productLabels = []labeled{
	{"Título do Produto", func(p catalog.Product) string { return p.Title }},
	{"SKU", func(p catalog.Product) string { return p.SKU }},
	{"Tipo de Marca", func(p catalog.Product) string { return p.BrandType }},
	{"Nome da Marca", func(p catalog.Product) string { return p.BrandName }},
	{"Modelo", func(p catalog.Product) string { return p.Model }},
	{"Descrição", func(p catalog.Product) string { return p.Description }},
	{"Preço", func(p catalog.Product) string { return string(p.Price) }},
	{"Logística (FBA ou DBA)", func(p catalog.Product) string { return p.LogisticsChannel }},
	{"ID do Produto (EAN/GTIN/UPC)", func(p catalog.Product) string { return p.ProductID }},
	{"Tipo de ID do Produto", func(p catalog.Product) string { return p.ProductIDType }},
	{"NCM", func(p catalog.Product) string { return p.NCM }},
	{"Quantidade em Estoque", func(p catalog.Product) string { return string(p.StockQuantity) }},
	{"Peso do Pacote (g)", func(p catalog.Product) string { return string(p.PackageWeight) }},
	{"Dimensões do Pacote C x L x A", func(p catalog.Product) string { return p.PackageDimensions }},
	{"Peso do Produto (g)", func(p catalog.Product) string { return string(p.ItemWeight) }},
	{"Dimensões do Produto C x L x A", func(p catalog.Product) string { return p.ItemDimensions }},
	{"Produto Ajustável?", func(p catalog.Product) string { return p.Adjustable }},
	{"Tema de Variação Principal", func(p catalog.Product) string { return p.VariationTheme }},
}

var variationLabels = []struct {
	label string
	value func(v catalog.Variation) string
}{
	{"SKU da Variação", func(v catalog.Variation) string { return v.SKU }},
	{"Tipo de Variação", func(v catalog.Variation) string { return v.Type }},
	{"Nome da Cor", func(v catalog.Variation) string { return v.Color }},
	{"Dimensões (C x L x A)", func(v catalog.Variation) string { return v.Dimensions }},
	{"Peso (g)", func(v catalog.Variation) string { return string(v.Weight) }},
	{"URL da Imagem", func(v catalog.Variation) string { return v.Image }},
}

// ProductContext renders the known, non-empty attributes of a product as readable lines.
func ProductContext(p catalog.Product) string {
	var b strings.Builder
	for _, l := range productLabels {
		if v := strings.TrimSpace(l.value(p)); v != "" {
			fmt.Fprintf(&b, "- %s: %s\n", l.label, v)
		}
	}

	if len(p.Variations) > 0 {
		b.WriteString("\n- Variações do Produto:\n")
		for i, v := range p.Variations {
			fmt.Fprintf(&b, "  Variação %d:\n", i+1)
			for _, l := range variationLabels {
				if val := strings.TrimSpace(l.value(v)); val != "" {
					fmt.Fprintf(&b, "  - %s: %s\n", l.label, val)
				}
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// fullContext joins product data and reference documents the way every prompt expects them.
func fullContext(product, reference string) string {
	if strings.TrimSpace(reference) == "" {
		return "DADOS DO PRODUTO:\n" + product
	}
	return "DADOS DO PRODUTO:\n" + product + "\n\nINFORMAÇÕES ADICIONAIS DA BASE DE CONHECIMENTO:\n" + reference
}
