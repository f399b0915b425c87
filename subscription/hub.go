package subscription

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registration announces a pair whose events must now be delivered.
type Registration struct {
	ChainID      uint64    `json:"chainId"`
	Address      string    `json:"address"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type topicSubscriptions map[string][]*Subscriber

// Hub fans pair registrations out to in-process subscribers, one topic per
// chain. It implements exchange.Registrar.
type Hub struct {
	topicSubscriptions topicSubscriptions
	subscribersMutex   sync.Mutex // Locks `topicSubscriptions` reads and writes
}

func NewHub() *Hub {
	return &Hub{
		topicSubscriptions: topicSubscriptions{},
	}
}

func Topic(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

func (h *Hub) RegisterTopic(topic string) error {
	h.subscribersMutex.Lock()
	defer h.subscribersMutex.Unlock()

	if _, found := h.topicSubscriptions[topic]; found {
		return fmt.Errorf("topic [%s] already registered", topic)
	}

	h.topicSubscriptions[topic] = []*Subscriber{}
	return nil
}

// RegisterContract broadcasts the pair to the chain's subscribers. A chain
// without a topic is an error, nobody would ever see the pair.
func (h *Hub) RegisterContract(ctx context.Context, chainID uint64, address string) error {
	return h.Broadcast(ctx, Topic(chainID), Registration{ChainID: chainID, Address: address, RegisteredAt: time.Now()})
}

func (h *Hub) Broadcast(ctx context.Context, topic string, registration Registration) error {
	h.subscribersMutex.Lock()
	defer h.subscribersMutex.Unlock()

	subscriptions, found := h.topicSubscriptions[topic]
	if !found {
		return fmt.Errorf("topic [%s] not found", topic)
	}

	for _, subscription := range subscriptions {
		select {
		case subscription.input <- registration:
		case <-subscription.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	zlog.Debug("broadcast pair registration",
		zap.String("topic", topic),
		zap.String("address", registration.Address),
		zap.Int("subscribers", len(subscriptions)),
	)
	return nil
}

func (h *Hub) Subscribe(subscriber *Subscriber, topic string) error {
	h.subscribersMutex.Lock()
	defer h.subscribersMutex.Unlock()

	if subscriptions, found := h.topicSubscriptions[topic]; found {
		h.topicSubscriptions[topic] = append(subscriptions, subscriber)
		return nil
	}

	return fmt.Errorf("topic [%s] not found", topic)
}

func (h *Hub) Unsubscribe(removeSub *Subscriber) {
	// closed first so a broadcast blocked on this subscriber lets go of the lock
	removeSub.close()

	h.subscribersMutex.Lock()
	defer h.subscribersMutex.Unlock()

	for topic, subscriptions := range h.topicSubscriptions {
		kept := subscriptions[:0]
		for _, sub := range subscriptions {
			if sub != removeSub {
				kept = append(kept, sub)
			}
		}
		h.topicSubscriptions[topic] = kept
	}
}

// Topics lists the registered topics, sorted.
func (h *Hub) Topics() []string {
	h.subscribersMutex.Lock()
	defer h.subscribersMutex.Unlock()

	out := make([]string, 0, len(h.topicSubscriptions))
	for topic := range h.topicSubscriptions {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}
