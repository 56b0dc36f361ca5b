// Package gateway assembles the risk service from configuration and runs its
// periodic tasks and HTTP query surface.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/config"
	"github.com/rustyeddy/pretrade/internal/logging"
	"github.com/rustyeddy/pretrade/journal"
	"github.com/rustyeddy/pretrade/limits"
	"github.com/rustyeddy/pretrade/montecarlo"
	"github.com/rustyeddy/pretrade/portfolio"
	"github.com/rustyeddy/pretrade/risk"
)

const shutdownTimeout = 5 * time.Second

// Gateway owns every long-lived component of the service.
type Gateway struct {
	cfg *config.Config
	log zerolog.Logger

	Store      account.Store
	Journal    journal.Journal
	Marks      *portfolio.Marks
	Latest     *montecarlo.Latest
	Risk       *risk.Engine
	VaR        *montecarlo.Engine
	Controller *limits.Controller

	storeTimeout time.Duration
}

// New opens the store and journal, onboards the configured accounts and
// builds the engines. The caller must Close the gateway.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	g := &Gateway{
		cfg:          cfg,
		log:          logging.Component(log, "gateway"),
		storeTimeout: cfg.Store.TimeoutDuration(),
	}
	if g.storeTimeout <= 0 {
		g.storeTimeout = risk.DefaultTimeout
	}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	g.Store = store

	j, err := OpenJournal(cfg.Journal)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	g.Journal = j

	if err := g.seedAccounts(ctx); err != nil {
		_ = g.Close()
		return nil, err
	}

	g.Marks = portfolio.NewMarks()
	for _, m := range cfg.Portfolio.Marks {
		if err := g.Marks.Set(portfolio.Mark{Instrument: m.Instrument, Price: m.Price, Volatility: m.Volatility}); err != nil {
			_ = g.Close()
			return nil, fmt.Errorf("gateway: %w", err)
		}
	}

	var feed montecarlo.Feed
	switch cfg.Portfolio.Source {
	case "accounts":
		feed = portfolio.NewAccountFeed(g.Store, g.Marks)
	default:
		feed = portfolio.NewStatic(cfg.Portfolio.Positions)
	}

	var sampler montecarlo.Sampler
	if cfg.VaR.Seed != 0 {
		sampler = montecarlo.NewSampler(cfg.VaR.Seed)
	}

	g.Latest = montecarlo.NewLatest(cfg.VaR.History)

	g.Risk = risk.NewEngine(g.Store, risk.Config{
		PriceScale: cfg.Risk.PriceScale,
		Timeout:    cfg.Risk.TimeoutDuration(),
	}, log)
	g.Risk.SetJournal(g.Journal)

	g.VaR = montecarlo.NewEngine(feed, g.Latest, sampler, montecarlo.Config{
		Interval:    cfg.VaR.IntervalDuration(),
		FeedTimeout: cfg.VaR.FeedTimeoutDuration(),
		Params:      montecarlo.Params{Trials: cfg.VaR.Trials, Confidence: cfg.VaR.Confidence},
	}, log)
	g.VaR.SetJournal(g.Journal)

	g.Controller = limits.NewController(g.Store, g.Latest, limits.Config{
		Interval: cfg.Controller.IntervalDuration(),
		Timeout:  g.storeTimeout,
		Policy: limits.Policy{
			Threshold:     cfg.Controller.Threshold,
			TightenFactor: cfg.Controller.TightenFactor,
		},
	}, log)

	return g, nil
}

// OpenStore builds the configured account store backend.
func OpenStore(ctx context.Context, sc config.StoreConfig) (account.Store, error) {
	switch sc.Backend {
	case "redis":
		timeout := sc.TimeoutDuration()
		if timeout <= 0 {
			timeout = risk.DefaultTimeout
		}
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		client, err := account.DialRedis(dialCtx, sc.RedisAddr, sc.RedisPassword, sc.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
		return account.NewRedisStore(client, sc.MaxRetries), nil
	case "sqlite":
		s, err := account.NewSQLiteStore(sc.SQLitePath, sc.MaxRetries)
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
		return s, nil
	case "memory", "":
		return account.NewMemoryStore(sc.MaxRetries), nil
	default:
		return nil, fmt.Errorf("gateway: unknown store backend %q", sc.Backend)
	}
}

// OpenJournal builds the configured journal; "none" discards records.
func OpenJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		j, err := journal.NewCSV(jc.DecisionsFile, jc.VaRFile)
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
		return j, nil
	case "sqlite":
		j, err := journal.NewSQLite(jc.DBPath)
		if err != nil {
			return nil, fmt.Errorf("gateway: %w", err)
		}
		return j, nil
	case "", "none":
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("gateway: unknown journal type %q", jc.Type)
	}
}

// seedAccounts onboards configured accounts; existing records are left as is.
func (g *Gateway) seedAccounts(ctx context.Context) error {
	for _, a := range g.cfg.Accounts {
		st := account.New(a.ID, a.BaseMaxExposure, a.BaseMaxOrderSize)
		st.CurrentExposure = a.OpeningExposure

		cctx, cancel := context.WithTimeout(ctx, g.storeTimeout)
		err := g.Store.Create(cctx, st)
		cancel()

		switch {
		case err == nil:
			g.log.Info().
				Str("account_id", a.ID).
				Float64("base_max_exposure", a.BaseMaxExposure).
				Uint64("base_max_order_size", a.BaseMaxOrderSize).
				Float64("opening_exposure", a.OpeningExposure).
				Msg("account onboarded")
		case errors.Is(err, account.ErrExists):
			g.log.Debug().Str("account_id", a.ID).Msg("account already onboarded")
		default:
			return fmt.Errorf("gateway: seed %s: %w", a.ID, err)
		}
	}
	return nil
}

// Accounts returns the configured account ids.
func (g *Gateway) Accounts() []string {
	ids := make([]string, 0, len(g.cfg.Accounts))
	for _, a := range g.cfg.Accounts {
		ids = append(ids, a.ID)
	}
	return ids
}

// Run drives the VaR engine, the limit controller, the optional demo order
// loop and the HTTP server until ctx is canceled or the server fails. It
// returns after every task has finished its in-flight tick.
func (g *Gateway) Run(ctx context.Context, demo *Demo) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		g.VaR.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		g.Controller.Run(ctx)
	}()
	if demo != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			demo.Run(ctx)
		}()
	}

	var (
		srv    *http.Server
		srvErr = make(chan error, 1)
	)
	if addr := g.cfg.Service.HTTPAddr; addr != "" {
		srv = &http.Server{
			Addr:         addr,
			Handler:      g.Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			g.log.Info().Str("addr", addr).Msg("http server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				srvErr <- err
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-srvErr:
		g.log.Error().Err(err).Msg("http server failed")
		err = fmt.Errorf("gateway: http: %w", err)
	}
	cancel()

	if srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if serr := srv.Shutdown(sctx); serr != nil {
			g.log.Warn().Err(serr).Msg("http shutdown")
		}
		scancel()
	}
	wg.Wait()
	g.log.Info().Msg("gateway stopped")
	return err
}

// Close releases the journal and the store.
func (g *Gateway) Close() error {
	var errs []error
	if g.Journal != nil {
		errs = append(errs, g.Journal.Close())
	}
	if g.Store != nil {
		errs = append(errs, g.Store.Close())
	}
	return errors.Join(errs...)
}
