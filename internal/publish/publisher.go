// Package publish streams simulation events to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/talgya/ivle-sim/internal/agents"
)

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 500

// Config holds the publishing options.
type Config struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	BatchSize int
}

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaWriteCloser interface {
	Close() error
}

var (
	errPublisherNilLogger = errors.New("publisher requires a logger")
	errPublisherNilWriter = errors.New("publisher requires a writer")
)

// Message is the JSON value written for each event.
type Message struct {
	RunID           string  `json:"run_id"`
	Seq             int     `json:"seq"`
	ActorID         uint64  `json:"actor_id"`
	Username        string  `json:"username"`
	EngagementLevel int     `json:"engagement_level"`
	Timestamp       string  `json:"timestamp"`
	ActivityType    string  `json:"activity_type"`
	Room            string  `json:"room"`
	Object          string  `json:"object,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	Details         string  `json:"details"`
}

// Publisher writes event batches to a Kafka topic. A disabled publisher
// accepts every call and writes nothing.
type Publisher struct {
	cfg     Config
	log     *slog.Logger
	writer  kafkaMessageWriter
	closer  kafkaWriteCloser
	enabled bool
}

// NewPublisher builds a Publisher backed by a kafka.Writer.
func NewPublisher(cfg Config, log *slog.Logger) (*Publisher, error) {
	if log == nil {
		return nil, errPublisherNilLogger
	}
	if !cfg.Enabled {
		log.Info("event_publisher_disabled")
		return &Publisher{cfg: cfg, log: log}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newPublisherWithWriter(cfg, log, w, w)
}

// newPublisherWithWriter wires the provided writer into the publisher. Tests
// use it to inject a recording writer.
func newPublisherWithWriter(cfg Config, log *slog.Logger, writer kafkaMessageWriter, closer kafkaWriteCloser) (*Publisher, error) {
	if log == nil {
		return nil, errPublisherNilLogger
	}
	if writer == nil {
		return nil, errPublisherNilWriter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Publisher{
		cfg:     cfg,
		log:     log.With(slog.String("component", "event_publisher")),
		writer:  writer,
		closer:  closer,
		enabled: true,
	}, nil
}

// Enabled reports whether the publisher writes to Kafka.
func (p *Publisher) Enabled() bool {
	return p != nil && p.enabled
}

// PublishEvents writes the events in log order, BatchSize messages per
// request. Each message is keyed by actor ID so one student's events share a
// partition and stay ordered.
func (p *Publisher) PublishEvents(ctx context.Context, runID string, events []agents.Event) error {
	if !p.Enabled() || len(events) == 0 {
		return nil
	}

	batch := make([]kafka.Message, 0, min(p.cfg.BatchSize, len(events)))
	sent := 0
	for i, e := range events {
		msg, err := encode(runID, i, e)
		if err != nil {
			return err
		}
		batch = append(batch, msg)

		if len(batch) == p.cfg.BatchSize || i == len(events)-1 {
			if err := p.writer.WriteMessages(ctx, batch...); err != nil {
				p.log.Error("event_publish_failed",
					slog.String("run_id", runID),
					slog.Int("sent", sent),
					slog.Any("err", err),
				)
				return fmt.Errorf("publishing events %d-%d: %w", sent, sent+len(batch)-1, err)
			}
			sent += len(batch)
			batch = batch[:0]
		}
	}

	p.log.Info("events_published",
		slog.String("run_id", runID),
		slog.String("topic", p.cfg.Topic),
		slog.Int("count", sent),
	)
	return nil
}

func encode(runID string, seq int, e agents.Event) (kafka.Message, error) {
	value, err := json.Marshal(Message{
		RunID:           runID,
		Seq:             seq,
		ActorID:         uint64(e.ActorID),
		Username:        e.ActorName,
		EngagementLevel: int(e.Level),
		Timestamp:       e.Timestamp.Format(time.RFC3339),
		ActivityType:    string(e.Activity),
		Room:            e.Location,
		Object:          e.Object,
		DurationSeconds: e.Duration.Seconds(),
		Details:         e.Detail,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event %d: %w", seq, err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(e.ActorID), 10)),
		Value: value,
		Time:  e.Timestamp,
	}, nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if !p.Enabled() || p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
