package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "UNIV2"

// Config is the merged view of flags, environment and config file.
type Config struct {
	ConfigFile  string `mapstructure:"config"`
	ChainConfig string `mapstructure:"chain-config"`

	Store string `mapstructure:"store"`

	RPCEndpoints []string `mapstructure:"rpc-endpoints"`
	RedisAddr    string   `mapstructure:"redis-addr"`

	KafkaBrokers string `mapstructure:"kafka-brokers"`
	KafkaTopic   string `mapstructure:"kafka-topic"`

	MetricsListenAddr string `mapstructure:"metrics-listen-addr"`

	MetadataTimeout     time.Duration `mapstructure:"metadata-timeout"`
	MetadataRetries     int           `mapstructure:"metadata-retries"`
	MetadataBackoff     time.Duration `mapstructure:"metadata-backoff"`
	MetadataFallbackTTL time.Duration `mapstructure:"metadata-fallback-ttl"`
	MetadataRate        float64       `mapstructure:"metadata-rate"`
	MetadataBurst       int           `mapstructure:"metadata-burst"`
	StrictDecimals      bool          `mapstructure:"strict-decimals"`

	BufferSize int `mapstructure:"buffer-size"`
}

func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	return decodeConfig(v.AllSettings())
}

func decodeConfig(settings map[string]interface{}) (*Config, error) {
	config := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           config,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return config, nil
}

// Endpoints parses the `<chainID>=<url>` entries of --rpc-endpoints.
func (c *Config) Endpoints() (map[uint64]string, error) {
	out := map[uint64]string{}
	for _, entry := range c.RPCEndpoints {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		chain, url, found := strings.Cut(entry, "=")
		if !found || url == "" {
			return nil, fmt.Errorf("invalid rpc endpoint %q, expected <chainID>=<url>", entry)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(chain), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id in rpc endpoint %q: %w", entry, err)
		}
		out[chainID] = strings.TrimSpace(url)
	}
	return out, nil
}
