package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"Moatline/internal/domain/models"
	domrepo "Moatline/internal/domain/repository"
	pkgkafka "Moatline/pkg/kafka"
	applogger "Moatline/pkg/logger"
)

// KafkaAnalysisHandler consumes AnalysisRequest messages and runs them
// through the analysis use case. Verdicts go out on the verdict topic.
type KafkaAnalysisHandler struct {
	topic    string
	analysis *AnalysisUseCase
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*KafkaAnalysisHandler)(nil)

func NewKafkaAnalysisHandler(topic string, uc *AnalysisUseCase, metrics domrepo.Metrics, l *applogger.Logger) *KafkaAnalysisHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaAnalysisHandler{topic: topic, analysis: uc, metrics: metrics, l: l}
}

func (h *KafkaAnalysisHandler) Topic() string { return h.topic }

// Handle returns a permanent error for anything a retry cannot fix
// (undecodable or invalid requests, domain failures).
func (h *KafkaAnalysisHandler) Handle(ctx context.Context, b []byte) error {
	var req models.AnalysisRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode analysis request: %w", err))
	}

	r, err := h.analysis.Analyze(ctx, req)
	if err != nil {
		if isDomainError(err) {
			return pkgkafka.Permanent(err)
		}
		return err
	}
	h.l.Debug("kafka analysis handled",
		applogger.String("ticker", r.Ticker),
		applogger.String("verdict", string(r.Verdict.Verdict)),
		applogger.String("trace_id", pkgkafka.TraceID(ctx)),
	)
	return nil
}

func isDomainError(err error) bool {
	var (
		ie *models.InputError
		ce *models.ConfigurationError
		pe *models.RuleParseError
		ve *models.ValuationError
	)
	return errors.As(err, &ie) || errors.As(err, &ce) || errors.As(err, &pe) || errors.As(err, &ve)
}
