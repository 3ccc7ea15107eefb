package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Deposit lifecycle events consumed by the real-time notification layer.
const (
	EventDepositPending   = "deposit.pending"
	EventDepositSuccess   = "deposit.success"
	EventDepositFailed    = "deposit.failed"
	EventDepositCancelled = "deposit.cancelled"
)

// Event is one user-facing deposit notification.
type Event struct {
	Type    string          `json:"type"`
	UserID  uuid.UUID       `json:"user_id"`
	TxRef   string          `json:"tx_ref"`
	Method  string          `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
	SentAt  time.Time       `json:"sent_at"`
	Balance decimal.Decimal `json:"balance,omitempty"`
}

// Dispatcher delivers deposit events. Delivery is best effort: callers log
// failures and move on, they never roll back a committed credit.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
	Close() error
}

// KafkaDispatcher publishes events onto a durable topic, keyed by user so
// one user's notifications stay ordered within a partition.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

// NewKafkaDispatcher builds a dispatcher. Username and password are
// optional; when set the connection uses SASL/PLAIN over TLS.
func NewKafkaDispatcher(broker, topic, username, password string) *KafkaDispatcher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}

	if username != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: username, Password: password},
			TLS:  &tls.Config{},
		}
	}

	return &KafkaDispatcher{writer: writer}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, ev Event) error {
	if ev.SentAt.IsZero() {
		ev.SentAt = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.UserID.String()),
		Value: value,
		Time:  ev.SentAt,
	}); err != nil {
		return fmt.Errorf("publish notification %s/%s: %w", ev.Type, ev.TxRef, err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

// NopDispatcher drops events; used when no broker is configured.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(ctx context.Context, ev Event) error {
	zap.L().Debug("notification dropped (no dispatcher configured)",
		zap.String("type", ev.Type), zap.String("tx_ref", ev.TxRef))
	return nil
}

func (NopDispatcher) Close() error { return nil }
