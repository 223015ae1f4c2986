package sizing

import (
	"sort"

	"Moatline/internal/domain/models"
)

// Monitor sets price and metric checkpoints for a position that is held.
// Rejected names get none.
func Monitor(verdict models.Verdict, v models.ValuationResult, args []models.CounterArgument, c models.PositionConstraints) *models.MonitoringTriggers {
	if verdict == models.VerdictReject {
		return nil
	}
	t := &models.MonitoringTriggers{QuarterlyReview: true}
	if iv := v.Base.IntrinsicValuePerShare; iv > 0 {
		t.BuyMorePrice = round(iv * (1 - c.FullConvictionMOS))
		t.InvalidationPrice = round(iv)
	}

	seen := map[string]struct{}{}
	for _, a := range args {
		for _, ev := range a.Evidence {
			if ev.Value == "missing" {
				continue
			}
			if _, ok := seen[ev.Metric]; ok {
				continue
			}
			seen[ev.Metric] = struct{}{}
			t.WatchMetrics = append(t.WatchMetrics, ev.Metric)
		}
	}
	sort.Strings(t.WatchMetrics)
	return t
}
