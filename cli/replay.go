package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/streamingfast/uniswap-v2-indexer/chains"
	"github.com/streamingfast/uniswap-v2-indexer/codec"
	"github.com/streamingfast/uniswap-v2-indexer/exchange"
	"github.com/streamingfast/uniswap-v2-indexer/metrics"
	"github.com/streamingfast/uniswap-v2-indexer/pipeline"
	"github.com/streamingfast/uniswap-v2-indexer/subscription"
	"github.com/streamingfast/uniswap-v2-indexer/tokens"
	"go.uber.org/zap"
)

var replayCmd = &cobra.Command{
	Use:   "replay <logs.jsonl>...",
	Short: "Replay JSON-lines log files through the indexer",
	Long: `Replay JSON-lines log files through the indexer.

Each line is {"chainId": ..., "blockTimestamp": ..., "transactionFrom": ..., "log": <eth log>}.
Files are read in the given order, logs of a chain must be in (block, log index) order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	flags := replayCmd.Flags()
	flags.String("store", "memory", "Entity store: memory, leveldb://<path>, postgres://<dsn>, mysql://<dsn> or sqlite://<path>")
	flags.StringSlice("rpc-endpoints", nil, "Token metadata RPC endpoints as <chainID>=<url>, comma separated")
	flags.String("redis-addr", "", "Redis address for the shared token metadata cache, disabled when empty")
	flags.String("kafka-brokers", "", "Comma separated Kafka brokers new pairs are announced to, disabled when empty")
	flags.String("kafka-topic", "univ2-pairs", "Kafka topic new pairs are announced to")
	flags.String("metrics-listen-addr", "", "Prometheus metrics listen address, disabled when empty")
	flags.Duration("metadata-timeout", 20*time.Second, "Timeout of a single token metadata call")
	flags.Int("metadata-retries", 3, "Retries of a transient token metadata call failure")
	flags.Duration("metadata-backoff", 500*time.Millisecond, "Base linear backoff between token metadata retries")
	flags.Duration("metadata-fallback-ttl", 5*time.Minute, "How long token metadata with defaulted fields is cached before it is fetched again, 0 disables caching it")
	flags.Float64("metadata-rate", 0, "Token metadata calls per second per chain, unlimited when 0")
	flags.Int("metadata-burst", 10, "Token metadata call burst when rate limited")
	flags.Bool("strict-decimals", false, "Skip pairs whose token decimals cannot be fetched instead of assuming 18")
	flags.Int("buffer-size", 1000, "Per chain buffered logs")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	config, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	registry, err := loadRegistry(config)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(config.Store)
	if err != nil {
		return fmt.Errorf("opening store %q: %w", config.Store, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			zlog.Warn("closing store", zap.Error(err))
		}
	}()

	resolver, closeResolver, err := newResolver(ctx, config, registry)
	if err != nil {
		return err
	}
	defer closeResolver()

	hub := subscription.NewHub()
	if err := pipeline.SetupSubscriptionHub(hub, registry.SupportedChainIDs()); err != nil {
		return fmt.Errorf("setting up subscription hub: %w", err)
	}

	registrar := subscription.MultiRegistrar{hub}
	if config.KafkaBrokers != "" {
		writer := subscription.NewKafkaWriter(config.KafkaBrokers)
		defer writer.Close()
		registrar = append(registrar, subscription.NewKafkaRegistrar(writer, config.KafkaTopic))
	}

	if config.MetricsListenAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, config.MetricsListenAddr, zlog); err != nil {
				zlog.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	newHandler := func(chainID uint64) pipeline.Handler {
		return exchange.New(st,
			exchange.WithChains(registry),
			exchange.WithTokenResolver(resolver),
			exchange.WithRegistrar(registrar),
			exchange.WithLogger(zlog.With(zap.Uint64("chain_id", chainID))),
		)
	}

	pipe := pipeline.New(codec.NewDecoder(registry), newHandler,
		pipeline.WithSubscriptionHub(hub),
		pipeline.WithBufferSize(config.BufferSize),
	)

	start := time.Now()
	if err := pipe.Run(ctx, pipeline.FileSource(args...)); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	for chainID, stats := range pipe.Stats() {
		zlog.Info("chain replayed",
			zap.Uint64("chain_id", chainID),
			zap.Uint64("logs", stats.Logs),
			zap.Uint64("decoded", stats.Decoded),
			zap.Uint64("ignored", stats.Ignored),
			zap.Uint64("malformed", stats.Malformed),
			zap.Uint64("failed", stats.Failed),
			zap.Uint64("out_of_order", stats.OutOfOrder),
		)
	}
	zlog.Info("replay completed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func loadRegistry(config *Config) (*chains.Registry, error) {
	registry := chains.NewRegistry()
	if config.ChainConfig != "" {
		if err := registry.LoadFile(config.ChainConfig); err != nil {
			return nil, fmt.Errorf("loading chain config: %w", err)
		}
	}
	return registry, nil
}

func newResolver(ctx context.Context, config *Config, registry *chains.Registry) (*tokens.Resolver, func(), error) {
	endpoints, err := config.Endpoints()
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	opts := []tokens.Option{
		tokens.WithCallTimeout(config.MetadataTimeout),
		tokens.WithRetries(config.MetadataRetries, config.MetadataBackoff),
		tokens.WithFallbackTTL(config.MetadataFallbackTTL),
	}
	if config.StrictDecimals {
		opts = append(opts, tokens.WithStrictDecimals())
	}
	if config.MetadataRate > 0 {
		opts = append(opts, tokens.WithRateLimit(config.MetadataRate, config.MetadataBurst))
	}

	for chainID, endpoint := range endpoints {
		if _, found := registry.Get(chainID); !found {
			closeAll()
			return nil, nil, fmt.Errorf("rpc endpoint for chain %d: %w", chainID, chains.ErrUnsupportedChain)
		}

		caller, err := tokens.DialRPCCaller(ctx, endpoint)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("dialing chain %d rpc: %w", chainID, err)
		}
		closers = append(closers, caller.Close)
		opts = append(opts, tokens.WithCaller(chainID, caller))
	}

	if config.RedisAddr != "" {
		remote, err := tokens.NewRedisCacheFromAddr(ctx, config.RedisAddr)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		closers = append(closers, func() { _ = remote.Close() })
		opts = append(opts, tokens.WithRemoteCache(remote))
	}

	return tokens.NewResolver(registry, opts...), closeAll, nil
}
