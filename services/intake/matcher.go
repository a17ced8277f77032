package intake

import "strings"

// IsAllowed reports whether ref may be received against planned.
// An order without planned lines accepts anything. Storage, colour and grade are not compared.
func IsAllowed(ref CatalogReference, planned []PlannedLineItem) bool {
	if len(planned) == 0 {
		return true
	}
	return len(MatchingLines(ref, planned)) > 0
}

// MatchingLines returns the planned lines whose manufacturer and model equal ref, ignoring case.
func MatchingLines(ref CatalogReference, planned []PlannedLineItem) []PlannedLineItem {
	var out []PlannedLineItem
	for _, item := range planned {
		if strings.EqualFold(strings.TrimSpace(item.Manufacturer), strings.TrimSpace(ref.Manufacturer)) &&
			strings.EqualFold(strings.TrimSpace(item.ModelName), strings.TrimSpace(ref.ModelName)) {
			out = append(out, item)
		}
	}
	return out
}

// PlannedTotal sums the quantity of every planned line.
func PlannedTotal(planned []PlannedLineItem) int {
	total := 0
	for _, item := range planned {
		total += item.Quantity
	}
	return total
}
