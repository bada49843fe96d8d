package services

import (
	"fmt"

	"github.com/yeremiapane/restaurant-oms/models"
)

const (
	DefaultCigarettePacketSize = 20
	DefaultEggPlateSize        = 30
)

// CompoundQuantity is a stock level as entered or displayed: packets or
// plates plus loose units for compound products, a plain Quantity otherwise.
type CompoundQuantity struct {
	Packets  int `json:"packets"`
	Plates   int `json:"plates"`
	Units    int `json:"units"`
	Quantity int `json:"quantity"`
}

// EffectiveConversionFactor returns factor when it is set and positive,
// otherwise the default container size for the product type.
func EffectiveConversionFactor(productType models.ProductType, factor *int) int {
	if factor != nil && *factor > 0 {
		return *factor
	}
	switch productType {
	case models.ProductTypeCigarette:
		return DefaultCigarettePacketSize
	case models.ProductTypeEgg:
		return DefaultEggPlateSize
	}
	return 1
}

// ToFlatUnits converts a compound quantity into a flat unit count.
func ToFlatUnits(productType models.ProductType, qty CompoundQuantity, factor *int) int {
	f := EffectiveConversionFactor(productType, factor)
	switch productType {
	case models.ProductTypeCigarette:
		return qty.Packets*f + qty.Units
	case models.ProductTypeEgg:
		return qty.Plates*f + qty.Units
	}
	return qty.Quantity
}

// SplitFlatUnits is the inverse of ToFlatUnits. Quantity always carries the
// flat value so the result can be fed back into ToFlatUnits for any type.
func SplitFlatUnits(productType models.ProductType, flat int, factor *int) CompoundQuantity {
	result := CompoundQuantity{Quantity: flat}
	if flat < 0 {
		return result
	}
	f := EffectiveConversionFactor(productType, factor)
	switch productType {
	case models.ProductTypeCigarette:
		result.Packets = flat / f
		result.Units = flat % f
	case models.ProductTypeEgg:
		result.Plates = flat / f
		result.Units = flat % f
	}
	return result
}

type unitNames struct {
	container, containers string
	unit, units           string
}

var compoundUnitNames = map[models.ProductType]unitNames{
	models.ProductTypeCigarette: {"paquet", "paquets", "cigarette", "cigarettes"},
	models.ProductTypeEgg:       {"plateau", "plateaux", "œuf", "œufs"},
}

func pluralize(count int, singular, plural string) string {
	if count > 1 {
		return fmt.Sprintf("%d %s", count, plural)
	}
	return fmt.Sprintf("%d %s", count, singular)
}

// FormatStockQuantity renders a flat quantity for stock cards, e.g.
// "3 paquets (5 cigarettes)". Zero-valued components are omitted.
// stockUnit is appended as-is for simple products.
func FormatStockQuantity(productType models.ProductType, flat int, factor *int, stockUnit string) string {
	names, compound := compoundUnitNames[productType]
	if !compound {
		if stockUnit != "" {
			return fmt.Sprintf("%d %s", flat, stockUnit)
		}
		return pluralize(flat, "unité", "unités")
	}

	split := SplitFlatUnits(productType, flat, factor)
	containers := split.Packets
	if productType == models.ProductTypeEgg {
		containers = split.Plates
	}

	switch {
	case flat <= 0:
		return pluralize(flat, names.unit, names.units)
	case containers == 0:
		return pluralize(split.Units, names.unit, names.units)
	case split.Units == 0:
		return pluralize(containers, names.container, names.containers)
	}
	return fmt.Sprintf("%s (%s)",
		pluralize(containers, names.container, names.containers),
		pluralize(split.Units, names.unit, names.units))
}

// ApplyCompoundFields keeps the compound columns of a stock row in line
// with its flat Quantity.
func ApplyCompoundFields(stock *models.Stock, product models.Product) {
	stock.QuantityPackets, stock.QuantityPlates, stock.QuantityUnits = nil, nil, nil
	if !product.ProductType.IsCompound() {
		return
	}
	split := SplitFlatUnits(product.ProductType, stock.Quantity, product.ConversionFactor)
	units := split.Units
	stock.QuantityUnits = &units
	if product.ProductType == models.ProductTypeCigarette {
		packets := split.Packets
		stock.QuantityPackets = &packets
	} else {
		plates := split.Plates
		stock.QuantityPlates = &plates
	}
}
