package gateway

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/pretrade/internal/logging"
	"github.com/rustyeddy/pretrade/pkg/id"
	"github.com/rustyeddy/pretrade/risk"
)

const (
	DemoInterval   = 2 * time.Second
	DemoPrice      = 60150
	DemoMaxSize    = 150
	DemoInstrument = "BTC"
)

// Demo submits a random buy for every account on each tick, sized
// uniformly in [1, MaxSize].
type Demo struct {
	engine     *risk.Engine
	accounts   []string
	interval   time.Duration
	instrument string
	price      int64
	maxSize    uint64
	log        zerolog.Logger
}

func NewDemo(engine *risk.Engine, accounts []string, interval time.Duration, log zerolog.Logger) *Demo {
	if interval <= 0 {
		interval = DemoInterval
	}
	return &Demo{
		engine:     engine,
		accounts:   accounts,
		interval:   interval,
		instrument: DemoInstrument,
		price:      DemoPrice,
		maxSize:    DemoMaxSize,
		log:        logging.Component(log, "demo"),
	}
}

// Order builds the next demo order for an account.
func (d *Demo) Order(accountID string) risk.OrderRequest {
	return risk.OrderRequest{
		OrderID:      id.NewOrderID(),
		AccountID:    accountID,
		InstrumentID: d.instrument,
		Price:        d.price,
		Size:         rand.Uint64N(d.maxSize) + 1,
		Side:         risk.Buy,
	}
}

func (d *Demo) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, acct := range d.accounts {
			dec := d.engine.CheckAndApply(ctx, d.Order(acct))
			d.log.Info().
				Str("order_id", dec.OrderID).
				Str("account_id", acct).
				Str("decision", dec.String()).
				Msg("demo order")
		}
	}
}
