package holdings

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/pkarczewski/foliotrack/internal/holdings/engine"
	holdingErrors "github.com/pkarczewski/foliotrack/internal/holdings/errors"
	"github.com/pkarczewski/foliotrack/internal/holdings/models"
	transactions "github.com/pkarczewski/foliotrack/internal/holdings/transaction"
	"github.com/pkarczewski/foliotrack/internal/holdings/valuation"
)

type Filter struct {
	AssetClass models.AssetClass
	Symbol     string
}

type Service interface {
	ListHoldings(ctx context.Context, filter Filter) ([]models.Holding, []models.ReconciliationWarning, error)
	GetHolding(ctx context.Context, symbol string) (*models.Holding, error)
	RealizedGains(ctx context.Context, symbol string) ([]models.RealizedGain, error)
	WarningForSymbol(ctx context.Context, symbol string) (*models.ReconciliationWarning, error)
	Invalidate(symbol string)
	WarmQuotes(ctx context.Context)
}

// symbolState is the cached derived state of one symbol, valid for exactly
// one version of its transaction set. Valuation is never cached here: it
// is applied to a copy on every read so a price move does not require a
// ledger replay.
type symbolState struct {
	version uint64
	holding *models.Holding
	gains   []models.RealizedGain
	warning *models.ReconciliationWarning
}

type service struct {
	repo      transactions.Repository
	valuation *valuation.Service

	mu       sync.Mutex
	versions map[string]uint64
	cache    map[string]symbolState
	symLocks map[string]*sync.Mutex
}

func NewHoldingsService(repo transactions.Repository, valuationService *valuation.Service) Service {
	return &service{
		repo:      repo,
		valuation: valuationService,
		versions:  make(map[string]uint64),
		cache:     make(map[string]symbolState),
		symLocks:  make(map[string]*sync.Mutex),
	}
}

// Invalidate bumps the symbol's version counter. Writers never wait on
// readers: a reader holding an older version simply recomputes on its next
// cache check.
func (s *service) Invalidate(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[symbol]++
	delete(s.cache, symbol)
}

func (s *service) lockFor(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.symLocks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.symLocks[symbol] = lock
	}
	return lock
}

// replaySymbol returns the symbol's derived state, replaying the ledger
// when the cached state is stale. Replay of one symbol is strictly
// sequential: lot state is mutated in place, so exactly one goroutine
// folds a symbol at a time. The version observed before reading the
// ledger is the one stored, which keeps the cache snapshot-consistent per
// symbol.
func (s *service) replaySymbol(ctx context.Context, symbol string) (symbolState, error) {
	lock := s.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	version := s.versions[symbol]
	state, ok := s.cache[symbol]
	s.mu.Unlock()

	if ok && state.version == version {
		return state, nil
	}

	ledger, err := s.repo.ListBySymbol(ctx, symbol)
	if err != nil {
		return symbolState{}, err
	}
	if len(ledger) == 0 {
		return symbolState{}, holdingErrors.NewNotFoundError("symbol", symbol)
	}

	result := engine.Replay(symbol, ledger)
	state = symbolState{
		version: version,
		holding: engine.Aggregate(symbol, ledger[0].AssetClass, result.Lots),
		gains:   result.Gains,
		warning: result.Warning,
	}

	s.mu.Lock()
	s.cache[symbol] = state
	s.mu.Unlock()
	return state, nil
}

// valuedCopy prices a copy of the cached holding. A missing price or rate
// degrades to unset valuation fields, never to a zero market value.
func (s *service) valuedCopy(ctx context.Context, holding *models.Holding) models.Holding {
	copied := *holding
	if err := s.valuation.Value(ctx, &copied); err != nil {
		log.Printf("Valuation degraded for %s: %v", copied.Symbol, err)
	}
	return copied
}

const maxReplayWorkers = 10

// ListHoldings replays every ledger symbol. Symbols share no mutable
// state, so they are folded concurrently by a bounded worker pool; a
// symbol with an inconsistent history contributes a warning instead of
// failing the read. A repository failure is different: it fails the whole
// read, so a flaky ledger read never makes a holding silently vanish.
func (s *service) ListHoldings(ctx context.Context, filter Filter) ([]models.Holding, []models.ReconciliationWarning, error) {
	symbols, err := s.repo.ListSymbols(ctx)
	if err != nil {
		return nil, nil, err
	}

	var holdings []models.Holding
	var warnings []models.ReconciliationWarning
	var replayErr error
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxReplayWorkers)

	for _, info := range symbols {
		if filter.AssetClass != "" && info.AssetClass != filter.AssetClass {
			continue
		}
		if filter.Symbol != "" && info.Symbol != filter.Symbol {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(info transactions.SymbolInfo) {
			defer wg.Done()
			defer func() { <-sem }()

			state, err := s.replaySymbol(ctx, info.Symbol)
			if err != nil {
				// a symbol deleted between listing and replay is not a failure
				if holdingErrors.IsNotFoundError(err) {
					return
				}
				log.Printf("Replay failed for %s: %v", info.Symbol, err)
				mu.Lock()
				if replayErr == nil {
					replayErr = err
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if state.warning != nil {
				warnings = append(warnings, *state.warning)
			}
			if state.holding != nil {
				holdings = append(holdings, s.valuedCopy(ctx, state.holding))
			}
		}(info)
	}
	wg.Wait()

	if replayErr != nil {
		return nil, nil, replayErr
	}

	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Symbol < warnings[j].Symbol })
	return holdings, warnings, nil
}

func (s *service) GetHolding(ctx context.Context, symbol string) (*models.Holding, error) {
	state, err := s.replaySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if state.holding == nil {
		return nil, holdingErrors.NewNotFoundError("holding", symbol)
	}
	holding := s.valuedCopy(ctx, state.holding)
	return &holding, nil
}

func (s *service) RealizedGains(ctx context.Context, symbol string) ([]models.RealizedGain, error) {
	state, err := s.replaySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if state.gains == nil {
		return []models.RealizedGain{}, nil
	}
	return state.gains, nil
}

func (s *service) WarningForSymbol(ctx context.Context, symbol string) (*models.ReconciliationWarning, error) {
	state, err := s.replaySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return state.warning, nil
}

// WarmQuotes prefetches a current price for every ledger symbol so read
// valuations hit a warm market-data cache. Wired to the cron scheduler.
func (s *service) WarmQuotes(ctx context.Context) {
	symbols, err := s.repo.ListSymbols(ctx)
	if err != nil {
		log.Printf("Quote warmup could not list symbols: %v", err)
		return
	}
	names := make([]string, 0, len(symbols))
	for _, info := range symbols {
		names = append(names, info.Symbol)
	}
	s.valuation.Prefetch(ctx, names)
}
