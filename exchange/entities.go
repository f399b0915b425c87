package exchange

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/streamingfast/uniswap-v2-indexer/entity"
)

// UniswapFactory
type UniswapFactory struct {
	entity.Base
	PairCount          int64           `json:"pairCount"`
	TotalVolumeUSD     decimal.Decimal `json:"totalVolumeUSD"`
	TotalVolumeETH     decimal.Decimal `json:"totalVolumeETH"`
	UntrackedVolumeUSD decimal.Decimal `json:"untrackedVolumeUSD"`
	TotalLiquidityUSD  decimal.Decimal `json:"totalLiquidityUSD"`
	TotalLiquidityETH  decimal.Decimal `json:"totalLiquidityETH"`
	TxCount            int64           `json:"txCount"`
}

func NewUniswapFactory(id string) *UniswapFactory {
	return &UniswapFactory{Base: entity.NewBase(id)}
}

// Bundle
type Bundle struct {
	entity.Base
	EthPrice decimal.Decimal `json:"ethPrice"`
}

func NewBundle(id string) *Bundle {
	return &Bundle{Base: entity.NewBase(id)}
}

// Token
type Token struct {
	entity.Base
	Symbol             string          `json:"symbol"`
	Name               string          `json:"name"`
	Decimals           int64           `json:"decimals"`
	TotalSupply        *big.Int        `json:"totalSupply"`
	DerivedETH         decimal.Decimal `json:"derivedETH"`
	TradeVolume        decimal.Decimal `json:"tradeVolume"`
	TradeVolumeUSD     decimal.Decimal `json:"tradeVolumeUSD"`
	UntrackedVolumeUSD decimal.Decimal `json:"untrackedVolumeUSD"`
	TotalLiquidity     decimal.Decimal `json:"totalLiquidity"`
	TxCount            int64           `json:"txCount"`
	HourArray          []int64         `json:"hourArray"`
	LastHourArchived   int64           `json:"lastHourArchived"`
	LastHourRecorded   int64           `json:"lastHourRecorded"`
}

func NewToken(id string) *Token {
	return &Token{
		Base:        entity.NewBase(id),
		TotalSupply: new(big.Int),
	}
}

// Pair
type Pair struct {
	entity.Base
	Token0                 string          `json:"token0"`
	Token1                 string          `json:"token1"`
	Reserve0               decimal.Decimal `json:"reserve0"`
	Reserve1               decimal.Decimal `json:"reserve1"`
	TotalSupply            decimal.Decimal `json:"totalSupply"`
	ReserveETH             decimal.Decimal `json:"reserveETH"`
	ReserveUSD             decimal.Decimal `json:"reserveUSD"`
	TrackedReserveETH      decimal.Decimal `json:"trackedReserveETH"`
	Token0Price            decimal.Decimal `json:"token0Price"`
	Token1Price            decimal.Decimal `json:"token1Price"`
	VolumeToken0           decimal.Decimal `json:"volumeToken0"`
	VolumeToken1           decimal.Decimal `json:"volumeToken1"`
	VolumeUSD              decimal.Decimal `json:"volumeUSD"`
	UntrackedVolumeUSD     decimal.Decimal `json:"untrackedVolumeUSD"`
	TxCount                int64           `json:"txCount"`
	CreatedAtTimestamp     uint64          `json:"createdAtTimestamp"`
	CreatedAtBlockNumber   uint64          `json:"createdAtBlockNumber"`
	LiquidityProviderCount int64           `json:"liquidityProviderCount"`
}

func NewPair(id string) *Pair {
	return &Pair{Base: entity.NewBase(id)}
}

// User
type User struct {
	entity.Base
}

func NewUser(id string) *User {
	return &User{Base: entity.NewBase(id)}
}

// LiquidityPosition tracks one user's LP token balance in a pair.
type LiquidityPosition struct {
	entity.Base
	Pair                  string          `json:"pair"`
	User                  string          `json:"user"`
	LiquidityTokenBalance decimal.Decimal `json:"liquidityTokenBalance"`
}

func NewLiquidityPosition(id string) *LiquidityPosition {
	return &LiquidityPosition{Base: entity.NewBase(id)}
}

func (p *LiquidityPosition) Indexes() map[string]string {
	return map[string]string{"pair": p.Pair}
}

// Transaction
type Transaction struct {
	entity.Base
	BlockNumber uint64 `json:"blockNumber"`
	Timestamp   uint64 `json:"timestamp"`
}

func NewTransaction(id string) *Transaction {
	return &Transaction{Base: entity.NewBase(id)}
}

// Mint is provisional until the pair's Mint event sets Sender.
type Mint struct {
	entity.Base
	Transaction  string           `json:"transaction"`
	Timestamp    uint64           `json:"timestamp"`
	Pair         string           `json:"pair"`
	To           string           `json:"to"`
	Liquidity    decimal.Decimal  `json:"liquidity"`
	Sender       *string          `json:"sender,omitempty"`
	Amount0      *decimal.Decimal `json:"amount0,omitempty"`
	Amount1      *decimal.Decimal `json:"amount1,omitempty"`
	LogIndex     uint64           `json:"logIndex"`
	AmountUSD    *decimal.Decimal `json:"amountUSD,omitempty"`
	FeeTo        *string          `json:"feeTo,omitempty"`
	FeeLiquidity *decimal.Decimal `json:"feeLiquidity,omitempty"`
}

func NewMint(id string) *Mint {
	return &Mint{Base: entity.NewBase(id)}
}

func (m *Mint) Indexes() map[string]string {
	return map[string]string{"transaction": m.Transaction}
}

func (m *Mint) Completed() bool {
	return m.Sender != nil
}

// Burn is provisional until the pair's Burn event sets the amounts.
type Burn struct {
	entity.Base
	Transaction   string           `json:"transaction"`
	Timestamp     uint64           `json:"timestamp"`
	Pair          string           `json:"pair"`
	Liquidity     decimal.Decimal  `json:"liquidity"`
	Sender        *string          `json:"sender,omitempty"`
	Amount0       *decimal.Decimal `json:"amount0,omitempty"`
	Amount1       *decimal.Decimal `json:"amount1,omitempty"`
	To            *string          `json:"to,omitempty"`
	LogIndex      uint64           `json:"logIndex"`
	AmountUSD     *decimal.Decimal `json:"amountUSD,omitempty"`
	NeedsComplete bool             `json:"needsComplete"`
	FeeTo         *string          `json:"feeTo,omitempty"`
	FeeLiquidity  *decimal.Decimal `json:"feeLiquidity,omitempty"`
}

func NewBurn(id string) *Burn {
	return &Burn{Base: entity.NewBase(id)}
}

func (b *Burn) Indexes() map[string]string {
	return map[string]string{"transaction": b.Transaction}
}

func (b *Burn) Completed() bool {
	return b.Amount0 != nil
}

// Swap
type Swap struct {
	entity.Base
	Transaction string          `json:"transaction"`
	Timestamp   uint64          `json:"timestamp"`
	Pair        string          `json:"pair"`
	Sender      string          `json:"sender"`
	From        string          `json:"from"`
	Amount0In   decimal.Decimal `json:"amount0In"`
	Amount1In   decimal.Decimal `json:"amount1In"`
	Amount0Out  decimal.Decimal `json:"amount0Out"`
	Amount1Out  decimal.Decimal `json:"amount1Out"`
	To          string          `json:"to"`
	LogIndex    uint64          `json:"logIndex"`
	AmountUSD   decimal.Decimal `json:"amountUSD"`
}

func NewSwap(id string) *Swap {
	return &Swap{Base: entity.NewBase(id)}
}

func (s *Swap) Indexes() map[string]string {
	return map[string]string{"transaction": s.Transaction}
}

// PairTokenLookup maps an ordered token pair to its pair id.
type PairTokenLookup struct {
	entity.Base
	Pair string `json:"pair"`
}

func NewPairTokenLookup(id string) *PairTokenLookup {
	return &PairTokenLookup{Base: entity.NewBase(id)}
}

// UniswapDayData
type UniswapDayData struct {
	entity.Base
	Date                 int64           `json:"date"`
	DailyVolumeUSD       decimal.Decimal `json:"dailyVolumeUSD"`
	DailyVolumeETH       decimal.Decimal `json:"dailyVolumeETH"`
	DailyVolumeUntracked decimal.Decimal `json:"dailyVolumeUntracked"`
	TotalVolumeUSD       decimal.Decimal `json:"totalVolumeUSD"`
	TotalVolumeETH       decimal.Decimal `json:"totalVolumeETH"`
	TotalLiquidityUSD    decimal.Decimal `json:"totalLiquidityUSD"`
	TotalLiquidityETH    decimal.Decimal `json:"totalLiquidityETH"`
	TxCount              int64           `json:"txCount"`
}

func NewUniswapDayData(id string) *UniswapDayData {
	return &UniswapDayData{Base: entity.NewBase(id)}
}

// PairDayData
type PairDayData struct {
	entity.Base
	Date              int64           `json:"date"`
	PairAddress       string          `json:"pairAddress"`
	Token0            string          `json:"token0"`
	Token1            string          `json:"token1"`
	Reserve0          decimal.Decimal `json:"reserve0"`
	Reserve1          decimal.Decimal `json:"reserve1"`
	TotalSupply       decimal.Decimal `json:"totalSupply"`
	ReserveUSD        decimal.Decimal `json:"reserveUSD"`
	DailyVolumeToken0 decimal.Decimal `json:"dailyVolumeToken0"`
	DailyVolumeToken1 decimal.Decimal `json:"dailyVolumeToken1"`
	DailyVolumeUSD    decimal.Decimal `json:"dailyVolumeUSD"`
	DailyTxns         int64           `json:"dailyTxns"`
}

func NewPairDayData(id string) *PairDayData {
	return &PairDayData{Base: entity.NewBase(id)}
}

// PairHourData
type PairHourData struct {
	entity.Base
	HourStartUnix      int64           `json:"hourStartUnix"`
	Pair               string          `json:"pair"`
	Reserve0           decimal.Decimal `json:"reserve0"`
	Reserve1           decimal.Decimal `json:"reserve1"`
	TotalSupply        decimal.Decimal `json:"totalSupply"`
	ReserveUSD         decimal.Decimal `json:"reserveUSD"`
	HourlyVolumeToken0 decimal.Decimal `json:"hourlyVolumeToken0"`
	HourlyVolumeToken1 decimal.Decimal `json:"hourlyVolumeToken1"`
	HourlyVolumeUSD    decimal.Decimal `json:"hourlyVolumeUSD"`
	HourlyTxns         int64           `json:"hourlyTxns"`
}

func NewPairHourData(id string) *PairHourData {
	return &PairHourData{Base: entity.NewBase(id)}
}

// TokenDayData
type TokenDayData struct {
	entity.Base
	Date                int64           `json:"date"`
	Token               string          `json:"token"`
	PriceUSD            decimal.Decimal `json:"priceUSD"`
	DailyVolumeToken    decimal.Decimal `json:"dailyVolumeToken"`
	DailyVolumeETH      decimal.Decimal `json:"dailyVolumeETH"`
	DailyVolumeUSD      decimal.Decimal `json:"dailyVolumeUSD"`
	DailyTxns           int64           `json:"dailyTxns"`
	TotalLiquidityToken decimal.Decimal `json:"totalLiquidityToken"`
	TotalLiquidityETH   decimal.Decimal `json:"totalLiquidityETH"`
	TotalLiquidityUSD   decimal.Decimal `json:"totalLiquidityUSD"`
}

func NewTokenDayData(id string) *TokenDayData {
	return &TokenDayData{Base: entity.NewBase(id)}
}

// TokenHourData
type TokenHourData struct {
	entity.Base
	PeriodStartUnix     int64           `json:"periodStartUnix"`
	Token               string          `json:"token"`
	OpenPrice           decimal.Decimal `json:"openPrice"`
	HighPrice           decimal.Decimal `json:"highPrice"`
	LowPrice            decimal.Decimal `json:"lowPrice"`
	ClosePrice          decimal.Decimal `json:"closePrice"`
	PriceUSD            decimal.Decimal `json:"priceUSD"`
	Volume              decimal.Decimal `json:"volume"`
	VolumeUSD           decimal.Decimal `json:"volumeUSD"`
	UntrackedVolumeUSD  decimal.Decimal `json:"untrackedVolumeUSD"`
	FeesUSD             decimal.Decimal `json:"feesUSD"`
	TotalValueLocked    decimal.Decimal `json:"totalValueLocked"`
	TotalValueLockedUSD decimal.Decimal `json:"totalValueLockedUSD"`
}

func NewTokenHourData(id string) *TokenHourData {
	return &TokenHourData{Base: entity.NewBase(id)}
}
