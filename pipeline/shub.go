package pipeline

import (
	"context"
	"errors"

	"github.com/streamingfast/uniswap-v2-indexer/subscription"
	"go.uber.org/zap"
)

// SetupSubscriptionHub registers one topic per chain on hub.
func SetupSubscriptionHub(hub *subscription.Hub, chainIDs []uint64) error {
	for _, chainID := range chainIDs {
		if err := hub.RegisterTopic(subscription.Topic(chainID)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) watchRegistrations(ctx context.Context) {
	pairSubscriber := subscription.NewSubscriber()
	subscribed := 0
	for _, topic := range p.subscriptionHub.Topics() {
		if err := p.subscriptionHub.Subscribe(pairSubscriber, topic); err != nil {
			zlog.Warn("subscription hub subscribe", zap.String("topic", topic), zap.Error(err))
			continue
		}
		subscribed++
	}
	if subscribed == 0 {
		return
	}

	go func() {
		defer p.subscriptionHub.Unsubscribe(pairSubscriber)
		for {
			registration, err := pairSubscriber.Next(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					zlog.Warn("pair subscriber next", zap.Error(err))
				}
				return
			}
			zlog.Info("watching new pair",
				zap.Uint64("chain_id", registration.ChainID),
				zap.String("pair", registration.Address),
			)
		}
	}()
}
