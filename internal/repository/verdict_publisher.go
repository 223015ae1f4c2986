package repository

import (
	"context"
	"time"

	"Moatline/internal/domain/models"
	domrepo "Moatline/internal/domain/repository"
	pkgkafka "Moatline/pkg/kafka"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaVerdictPublisher publishes a compact VerdictMessage per report,
// keyed by ticker so one ticker's verdicts stay ordered.
type KafkaVerdictPublisher struct {
	producer batchProducer
	topic    string
	now      func() time.Time
}

var _ domrepo.VerdictPublisher = (*KafkaVerdictPublisher)(nil)

// NewKafkaVerdictPublisher creates Kafka publisher.
func NewKafkaVerdictPublisher(producer *pkgkafka.Producer, topic string) *KafkaVerdictPublisher {
	return newKafkaVerdictPublisher(producer, topic)
}

func newKafkaVerdictPublisher(p batchProducer, topic string) *KafkaVerdictPublisher {
	return &KafkaVerdictPublisher{producer: p, topic: topic, now: time.Now}
}

// NewVerdictMessage builds the event published for r.
func NewVerdictMessage(r *models.AnalysisReport, at time.Time) models.VerdictMessage {
	return models.VerdictMessage{
		ReportID:          r.ID,
		Ticker:            r.Ticker,
		Verdict:           r.Verdict.Verdict,
		Transition:        r.Verdict.Transition,
		MarginOfSafety:    r.Valuation.Base.MarginOfSafety,
		FinalSize:         r.Sizing.FinalSize,
		BindingConstraint: r.Sizing.BindingConstraint,
		Reasons:           r.Verdict.Reasons,
		Timestamp:         at.UnixMilli(),
	}
}

func (p *KafkaVerdictPublisher) Publish(ctx context.Context, r *models.AnalysisReport) error {
	return p.PublishBatch(ctx, []*models.AnalysisReport{r})
}

func (p *KafkaVerdictPublisher) PublishBatch(ctx context.Context, reports []*models.AnalysisReport) error {
	if len(reports) == 0 {
		return nil
	}
	now := p.now()
	msgs := make([]pkgkafka.Message, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:     []byte(r.Ticker),
			Value:   NewVerdictMessage(r, now),
			Headers: map[string]string{"verdict": string(r.Verdict.Verdict), "report_id": r.ID},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaVerdictPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopVerdictPublisher drops verdicts. Used when Kafka is disabled.
type NopVerdictPublisher struct{}

var _ domrepo.VerdictPublisher = NopVerdictPublisher{}

func (NopVerdictPublisher) Publish(context.Context, *models.AnalysisReport) error {
	return nil
}

func (NopVerdictPublisher) PublishBatch(context.Context, []*models.AnalysisReport) error {
	return nil
}

func (NopVerdictPublisher) Close() error { return nil }
