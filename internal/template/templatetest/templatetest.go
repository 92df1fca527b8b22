// Package templatetest builds a small Amazon-style category template for tests.
package templatetest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Columns of the "Modelo" sheet, 1-based.
const (
	ColSKU = iota + 1
	ColItemName
	ColProductType
	ColBrand
	ColColor
	ColMaterial1
	ColMaterial2
	ColBatteries
	ColPackageUnitDenylisted
	ColWarranty
	ColDescription
	ColBullet1
	ColBullet2
	ColBullet3
	ColBullet4
	ColBullet5
	ColKeywords
	ColPackageWeight
	ColPackageWeightUnit
	ColPackageLength
	ColPackageWidth
	ColPackageHeight
	ColPackageLengthUnit
	ColPackageWidthUnit
	ColPackageHeightUnit
	ColCountry
	ColMainImage
	ColExtraImage1
	ColExtraImage2
	ColHierarchy
	ColParentSKU
	ColVariationTheme
	ColRelation
	ColSize
	ColHazmat
	ColSpecialFeature
	ColNCM
	ColQuantity
	ColChannel
	ColPrice
	ColManufacturer
	ColModelName
	ColProductID
	ColSampleImage

	MaxColumn = ColSampleImage
)

const (
	Sheet     = "Modelo"
	ListSheet = "Listas"
	TypeValue = "HOME-KITCHEN"

	ChunkBasics     = "Informações básicas"
	ChunkDetails    = "Detalhes do produto"
	ChunkCompliance = "Segurança e Conformidade"
	ChunkOffer      = "Oferta (BR) - (Vender na Amazon)"
)

type column struct {
	header    string
	technical string
}

var columns = map[int]column{
	ColSKU:                   {"SKU", "contribution_sku#1.value"},
	ColItemName:              {"Nome do item", "item_name#1.value"},
	ColProductType:           {"Tipo de produto", "product_type#1.value"},
	ColBrand:                 {"Nome da marca", "brand#1.value"},
	ColColor:                 {"Cor", "color#1.value"},
	ColMaterial1:             {"Material", "material#1.value"},
	ColMaterial2:             {"Material", "material#2.value"},
	ColBatteries:             {"Baterias são necessárias?", "batteries_required#1.value"},
	ColPackageUnitDenylisted: {"Unidade de Peso do Pacote Principal", "item_package_weight_principal#1.unit"},
	ColWarranty:              {"Tipo de garantia", "warranty_type#1.value"},
	ColDescription:           {"Descrição do Produto", "product_description#1.value"},
	ColBullet1:               {"Marcadores", "bullet_point#1.value"},
	ColBullet2:               {"", "bullet_point#2.value"},
	ColBullet3:               {"", "bullet_point#3.value"},
	ColBullet4:               {"", "bullet_point#4.value"},
	ColBullet5:               {"", "bullet_point#5.value"},
	ColKeywords:              {"Palavras-chave genéricas", "generic_keyword#1.value"},
	ColPackageWeight:         {"Peso do pacote", "item_package_weight#1.value"},
	ColPackageWeightUnit:     {"Unidade de peso do pacote", "item_package_weight#1.unit"},
	ColPackageLength:         {"Comprimento do pacote", "item_package_dimensions#1.length.value"},
	ColPackageWidth:          {"Largura do pacote", "item_package_dimensions#1.width.value"},
	ColPackageHeight:         {"Altura do pacote", "item_package_dimensions#1.height.value"},
	ColPackageLengthUnit:     {"Unidade de comprimento do pacote", "item_package_dimensions#1.length.unit"},
	ColPackageWidthUnit:      {"Unidade de largura do pacote", "item_package_dimensions#1.width.unit"},
	ColPackageHeightUnit:     {"Unidade de altura do pacote", "item_package_dimensions#1.height.unit"},
	ColCountry:               {"País de origem", "country_of_origin#1.value"},
	ColMainImage:             {"URL da imagem principal", "main_product_image_locator#1.media_location"},
	ColExtraImage1:           {"Outras imagens", "other_product_image_locator_1#1.media_location"},
	ColExtraImage2:           {"", "other_product_image_locator_2#1.media_location"},
	ColHierarchy:             {"Nível de hierarquia", "parentage_level#1.value"},
	ColParentSKU:             {"SKU do produto pai", "child_parent_sku_relationship#1.parent_sku"},
	ColVariationTheme:        {"Nome do tema de variação", "variation_theme#1.name"},
	ColRelation:              {"Tipo de relação com o secundário", "child_parent_sku_relationship#1.child_relationship_type"},
	ColSize:                  {"Tamanho", "size#1.value"},
	ColHazmat:                {"Regulamentações de produtos perigosos", "supplier_declared_dg_hz_regulation#1.value"},
	ColSpecialFeature:        {"Recursos especiais", "special_feature#1.value"},
	ColNCM:                   {"Código NCM", "external_product_information#1.value"},
	ColQuantity:              {"Quantidade (BR)", "fulfillment_availability#1.quantity"},
	ColChannel:               {"Código do canal de processamento (BR)", "fulfillment_availability#1.fulfillment_channel_code"},
	ColPrice:                 {"Preço sugerido com impostos", "list_price#1.value_with_tax"},
	ColManufacturer:          {"Fabricante", "manufacturer#1.value"},
	ColModelName:             {"Nome do Modelo", "model_name#1.value"},
	ColProductID:             {"ID do produto", "amzn1.volt.ca.product_id_value"},
	ColSampleImage:           {"URL da imagem de amostra", "swatch_product_image_locator#1.media_location"},
}

type chunk struct {
	name       string
	start, end int
}

var chunks = []chunk{
	{ChunkBasics, ColSKU, ColBrand},
	{ChunkDetails, ColColor, ColWarranty},
	{ChunkCompliance, ColSize, ColSpecialFeature},
	{ChunkOffer, ColNCM, ColPrice},
}

// Options of the lists the validations resolve to.
var (
	Colors      = []string{"Azul", "Verde", "Vermelho"}
	Materials   = []string{"Aço", "Vidro", "Plástico"}
	YesNo       = []string{"Sim", "Não"}
	WeightUnits = []string{"gramas", "quilogramas"}
)

// Cell returns the A1 reference of col/row.
func Cell(col, row int) string {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		panic(err)
	}
	return ref
}

// Header returns the row-4 header and row-5 technical name of a column.
func Header(col int) (string, string) {
	c := columns[col]
	return c.header, c.technical
}

// New builds the workbook in memory.
func New(t testing.TB) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", Sheet))
	_, err := f.NewSheet(ListSheet)
	require.NoError(t, err)

	set := func(sheet string, col, row int, v interface{}) {
		require.NoError(t, f.SetCellValue(sheet, Cell(col, row), v))
	}

	set(Sheet, 1, 1, "Modelo de planilha de categoria")
	for col, c := range columns {
		if c.header != "" {
			set(Sheet, col, 4, c.header)
		}
		set(Sheet, col, 5, c.technical)
	}
	set(Sheet, ColProductType, 7, TypeValue)

	for _, ch := range chunks {
		set(Sheet, ch.start, 3, ch.name)
		require.NoError(t, f.MergeCell(Sheet, Cell(ch.start, 3), Cell(ch.end, 3)))
	}

	for i, v := range Materials {
		set(ListSheet, 1, i+1, v)
	}
	for i, v := range YesNo {
		set(ListSheet, 2, i+1, v)
	}
	for i, v := range WeightUnits {
		set(ListSheet, 3, i+1, v)
	}
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "HOME_KITCHEN_material", RefersTo: ListSheet + "!$A$1:$A$3"}))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "SimNao", RefersTo: ListSheet + "!$B$1:$B$2"}))

	addList := func(from, to int, formula string) {
		dv := excelize.NewDataValidation(true)
		dv.Sqref = Cell(from, 7) + ":" + Cell(to, 200)
		dv.SetSqrefDropList(formula)
		require.NoError(t, f.AddDataValidation(Sheet, dv))
	}

	colors := excelize.NewDataValidation(true)
	colors.Sqref = Cell(ColColor, 7) + ":" + Cell(ColColor, 200)
	require.NoError(t, colors.SetDropList(Colors))
	require.NoError(t, f.AddDataValidation(Sheet, colors))

	// Stored as inner XML, so the concatenation operator is escaped.
	addList(ColMaterial1, ColMaterial2, `INDIRECT($C$7&amp;"_material")`)
	addList(ColBatteries, ColBatteries, "SimNao")
	addList(ColPackageUnitDenylisted, ColPackageUnitDenylisted, ListSheet+"!$C$1:$C$2")
	addList(ColWarranty, ColWarranty, "Ausente!$A$1:$A$3")
	addList(ColCountry, ColCountry, `"Brasil,China"`)

	return f
}

// Bytes builds the workbook and serializes it.
func Bytes(t testing.TB) []byte {
	t.Helper()
	f := New(t)
	defer f.Close()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}
