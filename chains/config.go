package chains

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedChain = errors.New("unsupported chain")

type TokenDefinition struct {
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals int64  `yaml:"decimals"`
}

// Config holds everything the pricing and reconciliation code needs to know
// about one chain deployment. Addresses are lowercase 0x hex.
type Config struct {
	ChainID        uint64
	Name           string
	FactoryAddress string
	ReferenceToken string

	StableTokenPairs []string
	// Whitelist order matters, FindEthPerToken returns on the first match.
	Whitelist   []string
	Stablecoins []string

	MinimumUSDThresholdNewPairs  decimal.Decimal
	MinimumLiquidityThresholdETH decimal.Decimal

	StaticTokenDefinitions map[string]TokenDefinition
	SkipTotalSupply        []string

	stablecoins map[string]bool
	whitelisted map[string]bool
	skipSupply  map[string]bool
}

func (c *Config) IsStablecoin(address string) bool {
	return c.stablecoins[strings.ToLower(address)]
}

func (c *Config) IsWhitelisted(address string) bool {
	return c.whitelisted[strings.ToLower(address)]
}

func (c *Config) SkipsTotalSupply(address string) bool {
	return c.skipSupply[strings.ToLower(address)]
}

func (c *Config) StaticDefinition(address string) (TokenDefinition, bool) {
	def, found := c.StaticTokenDefinitions[strings.ToLower(address)]
	return def, found
}

// FactoryID is the entity id of the chain's factory.
func (c *Config) FactoryID() string {
	return fmt.Sprintf("%d-%s", c.ChainID, c.FactoryAddress)
}

func (c *Config) normalize() {
	c.FactoryAddress = strings.ToLower(c.FactoryAddress)
	c.ReferenceToken = strings.ToLower(c.ReferenceToken)
	c.StableTokenPairs = lowerAll(c.StableTokenPairs)
	c.Whitelist = lowerAll(c.Whitelist)
	c.Stablecoins = lowerAll(c.Stablecoins)
	c.SkipTotalSupply = lowerAll(c.SkipTotalSupply)

	defs := make(map[string]TokenDefinition, len(c.StaticTokenDefinitions))
	for key, def := range c.StaticTokenDefinitions {
		if def.Address == "" {
			def.Address = key
		}
		def.Address = strings.ToLower(def.Address)
		defs[def.Address] = def
	}
	c.StaticTokenDefinitions = defs

	c.stablecoins = toSet(c.Stablecoins)
	c.whitelisted = toSet(c.Whitelist)
	c.skipSupply = toSet(c.SkipTotalSupply)
}

func (c *Config) validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("chain id is required")
	}
	if c.FactoryAddress == "" {
		return fmt.Errorf("chain %d: factory address is required", c.ChainID)
	}
	if c.ReferenceToken == "" {
		return fmt.Errorf("chain %d: reference token is required", c.ChainID)
	}
	return nil
}

// Registry resolves chain ids to their configuration. The zero value is not
// usable, use NewRegistry.
type Registry struct {
	lock    sync.RWMutex
	configs map[uint64]*Config
}

// NewRegistry returns a registry seeded with the built-in chain table.
func NewRegistry() *Registry {
	r := &Registry{configs: map[uint64]*Config{}}
	for _, cfg := range builtin() {
		cfg.normalize()
		r.configs[cfg.ChainID] = cfg
	}
	return r
}

func (r *Registry) Get(chainID uint64) (*Config, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	cfg, found := r.configs[chainID]
	return cfg, found
}

// MustGet is Get for callers that already checked the chain is supported.
func (r *Registry) MustGet(chainID uint64) *Config {
	cfg, found := r.Get(chainID)
	if !found {
		panic(fmt.Errorf("chain %d: %w", chainID, ErrUnsupportedChain))
	}
	return cfg
}

// Set adds or replaces a chain configuration.
func (r *Registry) Set(cfg *Config) error {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.configs[cfg.ChainID] = cfg
	return nil
}

func (r *Registry) SupportedChainIDs() []uint64 {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make([]uint64, 0, len(r.configs))
	for id := range r.configs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var defaultRegistry = NewRegistry()

// Get looks up the built-in table.
func Get(chainID uint64) (*Config, bool) {
	return defaultRegistry.Get(chainID)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func toSet(in []string) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, s := range in {
		out[s] = true
	}
	return out
}
