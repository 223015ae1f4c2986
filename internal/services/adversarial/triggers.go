package adversarial

import "Moatline/internal/domain/models"

// Tier is one threshold level of a finding. Expression uses the rule grammar.
type Tier struct {
	Severity   models.Severity `json:"severity" yaml:"severity"`
	Expression string          `json:"expression" yaml:"expression"`
	Claim      string          `json:"claim" yaml:"claim"`
	Impact     string          `json:"impact" yaml:"impact"`
}

// Trigger is one finding with tiers ordered from most to least severe.
type Trigger struct {
	Finding  string `json:"finding" yaml:"finding"`
	Category string `json:"category" yaml:"category"`
	Tiers    []Tier `json:"tiers" yaml:"tiers"`
}

// DefaultTriggers are the standard findings, checked in this order.
func DefaultTriggers() []Trigger {
	return []Trigger{
		{
			Finding:  "roic",
			Category: models.CategoryProfitability,
			Tiers: []Tier{
				{models.SeverityA, "roic < 0.08", "ROIC below 8% indicates capital is not earning its cost", "value is destroyed as the business reinvests"},
				{models.SeverityB, "roic < 0.12", "below-average ROIC indicates weak capital efficiency", "lower returns on capital reduce intrinsic value and hint at competitive disadvantage"},
			},
		},
		{
			Finding:  "roe",
			Category: models.CategoryProfitability,
			Tiers: []Tier{
				{models.SeverityA, "roe < 0.10", "ROE below 10% suggests shareholder equity is used poorly", "returns on equity do not cover a reasonable cost of equity"},
				{models.SeverityB, "roe < 0.15", "subpar ROE suggests inefficient use of shareholder equity", "mediocre returns may reflect structural business challenges"},
			},
		},
		{
			Finding:  "moat",
			Category: models.CategoryMoat,
			Tiers: []Tier{
				{models.SeverityA, "moat_score < 40", "no durable competitive advantage", "without a moat, above-average returns are unlikely to persist"},
				{models.SeverityB, "moat_score < 60", "weak competitive moat", "marginal advantages may erode under competitive pressure"},
			},
		},
		{
			Finding:  "margin_of_safety",
			Category: models.CategoryValuation,
			Tiers: []Tier{
				{models.SeverityA, "mos < 0.10", "minimal margin of safety provides no downside protection", "any disappointment in growth or margins erases the discount to value"},
				{models.SeverityB, "mos < 0.30", "thin margin of safety offers limited downside protection", "optimistic assumptions leave little room for error"},
			},
		},
		{
			Finding:  "cash_conversion",
			Category: models.CategoryCashQuality,
			Tiers: []Tier{
				{models.SeverityA, "cfo_ni_ratio < 0.5", "operating cash flow covers less than half of reported earnings", "reported profits may not be backed by cash"},
				{models.SeverityB, "cfo_ni_ratio < 0.8", "weak cash conversion raises earnings quality concerns", "working capital or accrual build-up may reverse"},
			},
		},
		{
			Finding:  "earnings_manipulation",
			Category: models.CategoryCashQuality,
			Tiers: []Tier{
				{models.SeverityA, "beneish_m_score > -1.78", "Beneish M-score signals likely earnings manipulation", "reported figures cannot be relied on"},
				{models.SeverityB, "beneish_m_score > -2.22", "Beneish M-score in the grey zone", "accounting choices deserve closer review"},
			},
		},
		{
			Finding:  "margin_stability",
			Category: models.CategoryStability,
			Tiers: []Tier{
				{models.SeverityA, "margin_stability > 0.15", "highly volatile margins indicate an unstable business", "future cash flows are unpredictable"},
				{models.SeverityB, "margin_stability > 0.10", "margin volatility above comfort level", "valuation uncertainty rises with margin swings"},
			},
		},
		{
			Finding:  "leverage",
			Category: models.CategoryStability,
			Tiers: []Tier{
				{models.SeverityB, "net_debt_to_ebitda > 3.0", "net debt above three times EBITDA", "leverage amplifies any downturn and limits flexibility"},
				{models.SeverityC, "net_debt_to_ebitda > 1.5", "moderate leverage", "debt service competes with reinvestment"},
			},
		},
	}
}
