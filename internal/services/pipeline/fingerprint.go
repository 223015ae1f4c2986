package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"

	"Moatline/internal/domain/models"
	"Moatline/internal/services/adversarial"
	"Moatline/internal/services/decision"
)

// reportNamespace scopes report IDs so they never collide with other
// name-based UUIDs.
var reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("moatline/analysis-report"))

type fingerprint struct {
	Ticker      string                      `json:"ticker"`
	Sector      string                      `json:"sector"`
	Metrics     map[string]float64          `json:"metrics"`
	Warnings    []models.DataWarning        `json:"warnings"`
	Assumptions models.ValuationAssumptions `json:"assumptions"`
	Constraints models.PositionConstraints  `json:"constraints"`
	Config      string                      `json:"config"`
}

// stageConfig is everything a pipeline was built with that changes a report
// for the same request.
type stageConfig struct {
	Rules        []models.VetoRule       `json:"rules"`
	Triggers     []adversarial.Trigger   `json:"triggers"`
	Scenarios    []models.StressScenario `json:"scenarios"`
	Floor        float64                 `json:"floor"`
	Sensitivity  bool                    `json:"sensitivity"`
	GrowthStep   float64                 `json:"growth_step"`
	DiscountStep float64                 `json:"discount_step"`
	MultipleStep float64                 `json:"multiple_step"`
	Transitions  []decision.Transition   `json:"transitions"`
}

// digest hashes the stage configuration into a short hex string.
func (c stageConfig) digest() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// ReportID is a name-based UUID over the request inputs and the pipeline
// configuration digest, so equal inputs on an equally configured pipeline
// always produce the same ID.
func ReportID(s models.Snapshot, a models.ValuationAssumptions, c models.PositionConstraints, config string) string {
	metrics := make(map[string]float64)
	for _, name := range s.Names() {
		if v, ok := s.Get(name); ok {
			metrics[name] = v
		}
	}
	b, err := json.Marshal(fingerprint{
		Ticker:      s.Ticker(),
		Sector:      s.Sector(),
		Metrics:     metrics,
		Warnings:    s.Warnings(),
		Assumptions: a,
		Constraints: c,
		Config:      config,
	})
	if err != nil {
		// only reachable with an invalid severity; fall back to the ticker
		b = []byte(s.Ticker() + config)
	}
	return uuid.NewSHA1(reportNamespace, b).String()
}
