// Package sizing turns a verdict into a bounded capital allocation.
package sizing

import (
	"math"

	"github.com/creasty/defaults"
	"github.com/shopspring/decimal"

	"Moatline/internal/domain/models"
	"Moatline/pkg/validate"
)

// sizePrecision is the number of decimals kept on reported fractions.
const sizePrecision = 6

// DefaultConstraints returns the constraint defaults from the struct tags.
func DefaultConstraints() models.PositionConstraints {
	var c models.PositionConstraints
	if err := defaults.Set(&c); err != nil {
		panic(err) // static tags
	}
	return c
}

// CheckConstraints reports malformed constraints as a ConfigurationError.
func CheckConstraints(c models.PositionConstraints) error {
	if vs := validate.Struct(c); len(vs) > 0 {
		return &models.ConfigurationError{Field: "sizing." + vs[0].Field, Reason: vs[0].Message}
	}
	if w := c.MOSWeight + c.MoatWeight; w <= 0 || w > 1+1e-9 {
		return &models.ConfigurationError{Field: "sizing.mos_weight", Reason: "mos_weight + moat_weight must lie in (0, 1]"}
	}
	return nil
}

// Sizer is stateless; it exists so the pipeline can depend on an interface.
type Sizer struct{}

func New() *Sizer { return &Sizer{} }

// Size computes the allocation for verdict. REJECT is always zero; REDUCE is
// ReduceFraction of the capped PROCEED size and keeps the PROCEED binding
// constraint. Penalties count every counter-argument tier, A included.
func (*Sizer) Size(verdict models.Verdict, v models.ValuationResult, s models.Snapshot, args []models.CounterArgument, c models.PositionConstraints) (models.PositionSizingResult, error) {
	if err := CheckConstraints(c); err != nil {
		return models.PositionSizingResult{}, err
	}

	res := models.PositionSizingResult{Verdict: verdict}
	if verdict == models.VerdictReject {
		res.BindingConstraint = models.ConstraintVerdict
		return res, nil
	}

	moat, _ := s.Get(models.MetricMoatScore)
	score := c.MOSWeight*clamp01(v.Base.MarginOfSafety/c.FullConvictionMOS) + c.MoatWeight*clamp01(moat/100)
	counts := models.CountSeverities(args)
	penalty := math.Max(1-c.PenaltyA*float64(counts.A)-c.PenaltyB*float64(counts.B)-c.PenaltyC*float64(counts.C), c.MinMultiplier)

	res.ConvictionScore = round(score)
	res.RawSize = round(score * c.ConvictionScale)
	res.PenaltyMultiplier = round(penalty)

	adjusted := score * c.ConvictionScale * penalty
	res.PenalizedSize = round(adjusted)

	final, binding := applyCaps(adjusted, c)
	if verdict == models.VerdictReduce {
		final *= c.ReduceFraction
	}
	res.FinalSize = roundWithin(final, capLimit(c))
	res.BindingConstraint = binding
	return res, nil
}

// applyCaps returns the smallest of the size and the three caps, naming the
// cap that bound. Ties go to the earlier cap.
func applyCaps(size float64, c models.PositionConstraints) (float64, string) {
	final, binding := size, ""
	for _, cp := range caps(c) {
		if cp.limit < final {
			final, binding = cp.limit, cp.name
		}
	}
	return final, binding
}

type limit struct {
	name  string
	limit float64
}

func caps(c models.PositionConstraints) []limit {
	return []limit{
		{models.ConstraintMaxPosition, c.MaxPosition},
		{models.ConstraintSectorCap, math.Max(c.MaxSector-c.SectorAllocated, 0)},
		{models.ConstraintCashReserve, 1 - c.MinCashReserve},
	}
}

// capLimit is the tightest cap.
func capLimit(c models.PositionConstraints) float64 {
	m := math.Inf(1)
	for _, cp := range caps(c) {
		m = math.Min(m, cp.limit)
	}
	return m
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// round truncates float noise so reports serialize identically.
func round(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(sizePrecision).Float64()
	return f
}

// roundWithin rounds x but never above max; it rounds down when rounding
// to nearest would cross max.
func roundWithin(x, max float64) float64 {
	if f := round(x); f <= max {
		return f
	}
	f, _ := decimal.NewFromFloat(x).RoundFloor(sizePrecision).Float64()
	return math.Min(f, max)
}
