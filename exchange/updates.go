package exchange

import (
	"context"
	"fmt"
	"strconv"

	"github.com/streamingfast/uniswap-v2-indexer/entity"
	"go.uber.org/zap"
)

const (
	// hourRetentionWindow is how many hourly token buckets are kept, 32 days.
	hourRetentionWindow = 768
	maxArchivedPerCall  = 500
)

func (s *Subgraph) UpdateUniswapDayData(ctx context.Context, log *LogEvent) (*UniswapDayData, error) {
	cfg, found := s.chainConfig(log.ChainID)
	if !found {
		return nil, fmt.Errorf("chain %d not supported", log.ChainID)
	}

	factory := NewUniswapFactory(cfg.FactoryID())
	if err := s.Load(ctx, factory); err != nil {
		return nil, fmt.Errorf("loading factory: %w", err)
	}

	dayId := dayID(log.BlockTimestamp)
	dayData := NewUniswapDayData(entityID(log.ChainID, strconv.FormatInt(dayId, 10)))
	if err := s.Load(ctx, dayData); err != nil {
		return nil, fmt.Errorf("loading uniswap_day_data %s: %w", dayData.ID, err)
	}
	if !dayData.Exists() {
		dayData.Date = dayId * 86400
	}

	dayData.TotalLiquidityUSD = factory.TotalLiquidityUSD
	dayData.TotalLiquidityETH = factory.TotalLiquidityETH
	dayData.TotalVolumeUSD = factory.TotalVolumeUSD
	dayData.TotalVolumeETH = factory.TotalVolumeETH
	dayData.TxCount = factory.TxCount

	if err := s.Save(ctx, dayData); err != nil {
		return nil, fmt.Errorf("saving uniswap_day_data: %w", err)
	}
	return dayData, nil
}

func (s *Subgraph) UpdatePairDayData(ctx context.Context, pair *Pair, log *LogEvent) (*PairDayData, error) {
	dayId := dayID(log.BlockTimestamp)
	pairAddress := addressOf(pair.ID)

	pairDayData := NewPairDayData(entityID(log.ChainID, pairAddress, strconv.FormatInt(dayId, 10)))
	if err := s.Load(ctx, pairDayData); err != nil {
		return nil, fmt.Errorf("loading pair_day_data %s: %w", pairDayData.ID, err)
	}
	if !pairDayData.Exists() {
		pairDayData.Date = dayId * 86400
		pairDayData.Token0 = pair.Token0
		pairDayData.Token1 = pair.Token1
		pairDayData.PairAddress = pairAddress
	}

	pairDayData.TotalSupply = pair.TotalSupply
	pairDayData.Reserve0 = pair.Reserve0
	pairDayData.Reserve1 = pair.Reserve1
	pairDayData.ReserveUSD = pair.ReserveUSD
	pairDayData.DailyTxns++

	if err := s.Save(ctx, pairDayData); err != nil {
		return nil, fmt.Errorf("saving pair_day_data: %w", err)
	}
	return pairDayData, nil
}

func (s *Subgraph) UpdatePairHourData(ctx context.Context, pair *Pair, log *LogEvent) (*PairHourData, error) {
	hourId := hourID(log.BlockTimestamp)

	pairHourData := NewPairHourData(entityID(log.ChainID, addressOf(pair.ID), strconv.FormatInt(hourId, 10)))
	if err := s.Load(ctx, pairHourData); err != nil {
		return nil, fmt.Errorf("loading pair_hour_data %s: %w", pairHourData.ID, err)
	}
	if !pairHourData.Exists() {
		pairHourData.HourStartUnix = hourId * 3600
		pairHourData.Pair = pair.ID
	}

	pairHourData.TotalSupply = pair.TotalSupply
	pairHourData.Reserve0 = pair.Reserve0
	pairHourData.Reserve1 = pair.Reserve1
	pairHourData.ReserveUSD = pair.ReserveUSD
	pairHourData.HourlyTxns++

	if err := s.Save(ctx, pairHourData); err != nil {
		return nil, fmt.Errorf("saving pair_hour_data: %w", err)
	}
	return pairHourData, nil
}

func (s *Subgraph) UpdateTokenDayData(ctx context.Context, token *Token, bundle *Bundle, log *LogEvent) (*TokenDayData, error) {
	dayId := dayID(log.BlockTimestamp)

	tokenDayData := NewTokenDayData(entityID(log.ChainID, addressOf(token.ID), strconv.FormatInt(dayId, 10)))
	if err := s.Load(ctx, tokenDayData); err != nil {
		return nil, fmt.Errorf("loading token_day_data %s: %w", tokenDayData.ID, err)
	}
	if !tokenDayData.Exists() {
		tokenDayData.Date = dayId * 86400
		tokenDayData.Token = token.ID
	}

	tokenDayData.PriceUSD = token.DerivedETH.Mul(bundle.EthPrice)
	tokenDayData.TotalLiquidityToken = token.TotalLiquidity
	tokenDayData.TotalLiquidityETH = token.TotalLiquidity.Mul(token.DerivedETH)
	tokenDayData.TotalLiquidityUSD = tokenDayData.TotalLiquidityETH.Mul(bundle.EthPrice)
	tokenDayData.DailyTxns++

	if err := s.Save(ctx, tokenDayData); err != nil {
		return nil, fmt.Errorf("saving token_day_data: %w", err)
	}
	return tokenDayData, nil
}

// UpdateTokenHourData also maintains the token's hour index and archives
// buckets older than the retention window. The token is saved.
func (s *Subgraph) UpdateTokenHourData(ctx context.Context, token *Token, bundle *Bundle, log *LogEvent) (*TokenHourData, error) {
	hourId := hourID(log.BlockTimestamp)
	price := token.DerivedETH.Mul(bundle.EthPrice)

	tokenHourData := NewTokenHourData(tokenHourID(log.ChainID, token, hourId))
	if err := s.Load(ctx, tokenHourData); err != nil {
		return nil, fmt.Errorf("loading token_hour_data %s: %w", tokenHourData.ID, err)
	}

	isNew := !tokenHourData.Exists()
	if isNew {
		tokenHourData.PeriodStartUnix = hourId * 3600
		tokenHourData.Token = token.ID
		tokenHourData.OpenPrice = price
		tokenHourData.HighPrice = price
		tokenHourData.LowPrice = price

		token.HourArray = append(token.HourArray, hourId)
	}

	tokenHourData.HighPrice = entity.MaxBD(tokenHourData.HighPrice, price)
	tokenHourData.LowPrice = entity.MinBD(tokenHourData.LowPrice, price)
	tokenHourData.ClosePrice = price
	tokenHourData.PriceUSD = price
	tokenHourData.TotalValueLocked = token.TotalLiquidity
	tokenHourData.TotalValueLockedUSD = getTokenTrackedLiquidityUSD(bundle, token, token.TotalLiquidity, entity.ZeroBD, token)

	if err := s.Save(ctx, tokenHourData); err != nil {
		return nil, fmt.Errorf("saving token_hour_data: %w", err)
	}

	if token.LastHourArchived == 0 && token.LastHourRecorded == 0 {
		token.LastHourRecorded = hourId
		token.LastHourArchived = hourId - 1
	}

	if isNew {
		if stop := hourId - hourRetentionWindow; stop > token.LastHourArchived {
			if err := s.archiveHourData(ctx, token, stop); err != nil {
				return nil, err
			}
		}
		token.LastHourRecorded = hourId
	}

	if err := s.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("saving token %s: %w", token.ID, err)
	}
	return tokenHourData, nil
}

// archiveHourData drops tracked hours at or below stop, at most
// maxArchivedPerCall of them. When capped the watermark stops at the highest
// removed hour so the next bucket creation resumes from there.
func (s *Subgraph) archiveHourData(ctx context.Context, token *Token, stop int64) error {
	kept := make([]int64, 0, len(token.HourArray))
	removed := 0
	highest := token.LastHourArchived
	capped := false

	for _, hour := range token.HourArray {
		if hour > stop {
			kept = append(kept, hour)
			continue
		}
		if removed == maxArchivedPerCall {
			capped = true
			kept = append(kept, hour)
			continue
		}

		if err := s.Remove(ctx, NewTokenHourData(tokenHourID(addressChain(token), token, hour))); err != nil {
			return fmt.Errorf("removing archived token_hour_data: %w", err)
		}
		removed++
		if hour > highest {
			highest = hour
		}
	}

	token.HourArray = kept
	if capped {
		token.LastHourArchived = highest
	} else {
		token.LastHourArchived = stop
	}

	s.Log.Debug("archived token hour data",
		zap.String("token", token.ID),
		zap.Int("removed", removed),
		zap.Bool("capped", capped),
		zap.Int64("last_hour_archived", token.LastHourArchived),
	)
	return nil
}

func tokenHourID(chainID uint64, token *Token, hour int64) string {
	return entityID(chainID, addressOf(token.ID), strconv.FormatInt(hour, 10))
}

func addressChain(token *Token) uint64 {
	chainID, _ := splitID(token.ID)
	return chainID
}
