package valuation

// Maintenance capex fallbacks used when the split is not reported.
const (
	DefaultMaintenanceShare = 0.5
	DefaultMaintenanceOfCFO = 0.30
)

// OwnerEarnings is CFO less maintenance capex. With a growth capex ratio the
// maintenance part is totalCapex*(1-ratio); with capex alone it is half of
// it; with neither it is estimated as 30% of CFO.
func OwnerEarnings(cfo, totalCapex float64, growthCapexRatio *float64) float64 {
	return cfo - MaintenanceCapex(cfo, totalCapex, growthCapexRatio)
}

// MaintenanceCapex returns the maintenance share of capital expenditure.
func MaintenanceCapex(cfo, totalCapex float64, growthCapexRatio *float64) float64 {
	switch {
	case totalCapex > 0 && growthCapexRatio != nil:
		return totalCapex * (1 - *growthCapexRatio)
	case totalCapex > 0:
		return totalCapex * DefaultMaintenanceShare
	default:
		return cfo * DefaultMaintenanceOfCFO
	}
}
