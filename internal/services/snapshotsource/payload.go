package snapshotsource

import (
	"strings"

	"Moatline/internal/domain/models"
	"Moatline/internal/services/valuation"
	"Moatline/pkg/validate"
)

// FromPayload validates a wire snapshot and builds the read-only view. When
// owner_earnings is absent but cfo is present it is derived from cfo and
// capex; maintenance_capex is filled the same way if missing.
func FromPayload(p models.SnapshotPayload) (models.Snapshot, error) {
	if vs := validate.Struct(p); len(vs) > 0 {
		return models.Snapshot{}, &models.InputError{Field: vs[0].Field, Reason: vs[0].Message}
	}

	metrics := make(map[string]float64, len(p.Metrics)+2)
	for k, v := range p.Metrics {
		metrics[k] = v
	}

	if cfo, ok := metrics[models.MetricCFO]; ok {
		var capex float64
		if p.TotalCapex != nil {
			capex = *p.TotalCapex
		}
		if _, ok := metrics[models.MetricOwnerEarnings]; !ok {
			metrics[models.MetricOwnerEarnings] = valuation.OwnerEarnings(cfo, capex, p.GrowthCapexRatio)
		}
		if _, ok := metrics[models.MetricMaintenanceCapex]; !ok && p.TotalCapex != nil {
			metrics[models.MetricMaintenanceCapex] = valuation.MaintenanceCapex(cfo, capex, p.GrowthCapexRatio)
		}
	}

	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))
	return models.NewSnapshot(ticker, p.Sector, metrics, p.Warnings), nil
}
