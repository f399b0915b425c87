package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the registrar needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaRegistrar publishes pair registrations to a topic so that an external
// log transport can extend its filters.
type KafkaRegistrar struct {
	mq    MessageWriter
	topic string

	retries      int
	writeTimeout time.Duration
}

func NewKafkaRegistrar(mq MessageWriter, topic string) *KafkaRegistrar {
	return &KafkaRegistrar{mq: mq, topic: topic, retries: 3, writeTimeout: 2 * time.Second}
}

// NewKafkaWriter builds a synchronous writer, registrations must be
// acknowledged before the pair counts as announced.
func NewKafkaWriter(brokers string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  5,
		WriteTimeout: 2 * time.Second,
	}
}

func (r *KafkaRegistrar) RegisterContract(ctx context.Context, chainID uint64, address string) error {
	payload, err := sonic.Marshal(Registration{ChainID: chainID, Address: address, RegisteredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding registration: %w", err)
	}

	msg := kafka.Message{
		Topic: r.topic,
		Key:   []byte(fmt.Sprintf("%d-%s", chainID, address)),
		Value: payload,
	}

	for attempt := 0; attempt < r.retries; attempt++ {
		writeCtx, cancel := context.WithTimeout(ctx, r.writeTimeout)
		err = r.mq.WriteMessages(writeCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		zlog.Debug("retrying pair registration", zap.String("key", string(msg.Key)), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return fmt.Errorf("publishing registration of %s on chain %d: %w", address, chainID, err)
}

// MultiRegistrar registers with every registrar in order and stops at the
// first failure.
type MultiRegistrar []exchange.Registrar

func (m MultiRegistrar) RegisterContract(ctx context.Context, chainID uint64, address string) error {
	for _, registrar := range m {
		if err := registrar.RegisterContract(ctx, chainID, address); err != nil {
			return err
		}
	}
	return nil
}
