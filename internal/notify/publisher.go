// Package notify publishes change alerts to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// AlertEvent is the message body published for one category needing attention.
type AlertEvent struct {
	EventID      string          `json:"event_id"`
	RunID        string          `json:"run_id"`
	Week         int             `json:"week"`
	Date         string          `json:"date"`
	Category     string          `json:"category"`
	GapScore     float64         `json:"gap_score"`
	GapStatus    domain.Severity `json:"gap_status"`
	GapChangePct float64         `json:"gap_change_pct"`
	Alerts       []domain.Alert  `json:"alerts"`
	Priority     domain.Priority `json:"priority"`
	EmittedAt    time.Time       `json:"emitted_at"`
}

// AlertPublisher delivers High priority change records.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, runID string, records []domain.ChangeRecord) (int, error)
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per High priority record, keyed by category.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

type noopPublisher struct{}

// NewAlertPublisher returns a Kafka publisher, or a no-op when Kafka is disabled.
func NewAlertPublisher(cfg config.KafkaConfig) (AlertPublisher, error) {
	if !cfg.Enabled {
		return noopPublisher{}, nil
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka enabled but no brokers configured")
	}
	if cfg.AlertTopic == "" {
		return nil, fmt.Errorf("kafka enabled but no alert topic configured")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AlertTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(w, cfg.AlertTopic), nil
}

func newKafkaPublisher(w messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, now: time.Now}
}

// PublishAlerts sends every High priority record in one batch and returns how many were sent.
func (p *KafkaPublisher) PublishAlerts(ctx context.Context, runID string, records []domain.ChangeRecord) (int, error) {
	now := p.now().UTC()

	msgs := make([]kafka.Message, 0)
	for _, r := range records {
		if r.Priority != domain.PriorityHigh {
			continue
		}
		event := AlertEvent{
			EventID:      uuid.NewString(),
			RunID:        runID,
			Week:         r.Week,
			Date:         r.Date,
			Category:     r.Category,
			GapScore:     r.GapScore,
			GapStatus:    r.GapStatus,
			GapChangePct: r.GapChangePct,
			Alerts:       r.Alerts,
			Priority:     r.Priority,
			EmittedAt:    now,
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return 0, fmt.Errorf("encode alert for %s: %w", r.Category, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.Category),
			Value: payload,
			Time:  now,
		})
	}

	if len(msgs) == 0 {
		return 0, nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("kafka write to %s: %w", p.topic, err)
	}

	log.Info().Str("topic", p.topic).Int("alerts", len(msgs)).Msg("notify: alerts published")
	return len(msgs), nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (noopPublisher) PublishAlerts(context.Context, string, []domain.ChangeRecord) (int, error) {
	return 0, nil
}

func (noopPublisher) Close() error { return nil }
