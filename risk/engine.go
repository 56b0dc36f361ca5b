package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/pretrade/account"
	"github.com/rustyeddy/pretrade/journal"
	"github.com/rustyeddy/pretrade/metrics"
	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds the store work behind one decision.
const DefaultTimeout = 2 * time.Second

type Config struct {
	PriceScale int32
	Timeout    time.Duration
}

// Engine validates orders against the live account limits and books
// approved orders through the store's versioned update.
type Engine struct {
	store   account.Store
	cfg     Config
	log     zerolog.Logger
	journal journal.Journal
	now     func() time.Time
}

func NewEngine(store account.Store, cfg Config, log zerolog.Logger) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Engine{
		store:   store,
		cfg:     cfg,
		log:     log.With().Str("component", "risk").Logger(),
		journal: journal.Nop{},
		now:     time.Now,
	}
}

// SetJournal records every decision; journal failures are logged only.
func (e *Engine) SetJournal(j journal.Journal) {
	if j == nil {
		j = journal.Nop{}
	}
	e.journal = j
}

// CheckAndApply always returns a decision. Every failure that is not a clean
// validation result rejects the order.
func (e *Engine) CheckAndApply(ctx context.Context, order OrderRequest) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = reject(order, CodeInfrastructure, ReasonInfrastructure, fmt.Sprintf("panic: %v", r))
		}
		e.observe(order, d)
	}()

	if err := order.Validate(); err != nil {
		return reject(order, CodeInvalidOrder, ReasonInvalidOrder, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	notional := Notional(order.Price, order.Size, e.cfg.PriceScale)

	st, err := e.store.Get(ctx, order.AccountID)
	if err != nil {
		return e.storeFailure(order, err)
	}
	if rej := e.check(st, order, notional); rej != nil {
		return *rej
	}

	next, err := e.store.Update(ctx, order.AccountID, account.Mutation{
		Fields: account.BookFields,
		Apply: func(st *account.State) error {
			if rej := e.check(*st, order, notional); rej != nil {
				return &breach{d: *rej}
			}
			exposure := decimal.NewFromFloat(st.CurrentExposure).Add(notional)
			st.CurrentExposure = exposure.InexactFloat64()
			st.Positions[order.InstrumentID] += order.SignedQuantity()
			return nil
		},
	})
	if err != nil {
		var b *breach
		if errors.As(err, &b) {
			return b.d
		}
		return e.storeFailure(order, err)
	}

	return Decision{
		OrderID:   order.OrderID,
		AccountID: order.AccountID,
		Status:    Approved,
		Notional:  notional.InexactFloat64(),
		Exposure:  next.CurrentExposure,
		Version:   next.Version,
	}
}

// check runs the size and exposure limits against one snapshot.
func (e *Engine) check(st account.State, order OrderRequest, notional decimal.Decimal) *Decision {
	if order.Size > st.CurrentMaxOrderSize {
		d := reject(order, CodeOrderSize, ReasonOrderSize,
			fmt.Sprintf("size %d > limit %d", order.Size, st.CurrentMaxOrderSize))
		d.Notional = notional.InexactFloat64()
		d.Attempted = float64(order.Size)
		d.Limit = float64(st.CurrentMaxOrderSize)
		d.Exposure = st.CurrentExposure
		d.Version = st.Version
		return &d
	}

	// Gross exposure: notional accumulates regardless of side.
	potential := decimal.NewFromFloat(st.CurrentExposure).Add(notional)
	limit := decimal.NewFromFloat(st.CurrentMaxExposure)
	if potential.GreaterThan(limit) {
		d := reject(order, CodeExposure, ReasonExposure,
			fmt.Sprintf("attempted exposure %s > limit %s", potential.StringFixed(2), limit.StringFixed(2)))
		d.Notional = notional.InexactFloat64()
		d.Attempted = potential.InexactFloat64()
		d.Limit = limit.InexactFloat64()
		d.Exposure = st.CurrentExposure
		d.Version = st.Version
		return &d
	}
	return nil
}

func (e *Engine) storeFailure(order OrderRequest, err error) Decision {
	switch {
	case errors.Is(err, account.ErrNotFound):
		return reject(order, CodeAccountNotFound, ReasonAccountNotFound, err.Error())
	case errors.Is(err, account.ErrContention):
		return reject(order, CodeContention, ReasonContention, err.Error())
	default:
		return reject(order, CodeInfrastructure, ReasonInfrastructure, err.Error())
	}
}

func (e *Engine) observe(order OrderRequest, d Decision) {
	metrics.DecisionsTotal.WithLabelValues(string(d.Status), string(d.Code)).Inc()

	var ev *zerolog.Event
	switch {
	case d.Approved():
		ev = e.log.Debug()
	case d.Transient():
		ev = e.log.Warn()
	default:
		ev = e.log.Info()
	}
	ev.Str("order_id", order.OrderID).
		Str("account_id", order.AccountID).
		Str("instrument", order.InstrumentID).
		Str("side", string(order.Side)).
		Int64("price", order.Price).
		Uint64("size", order.Size).
		Str("status", string(d.Status)).
		Str("code", string(d.Code)).
		Str("detail", d.Detail).
		Float64("notional", d.Notional).
		Float64("attempted", d.Attempted).
		Float64("limit", d.Limit).
		Msg(d.String())

	err := e.journal.RecordDecision(journal.DecisionRecord{
		OrderID:    order.OrderID,
		AccountID:  order.AccountID,
		Instrument: order.InstrumentID,
		Side:       string(order.Side),
		Price:      order.Price,
		Size:       order.Size,
		Notional:   d.Notional,
		Status:     string(d.Status),
		Code:       string(d.Code),
		Reason:     d.Reason,
		Exposure:   d.Exposure,
		Version:    d.Version,
		Time:       e.now(),
	})
	if err != nil {
		e.log.Error().Err(err).Str("order_id", order.OrderID).Msg("journal decision")
	}
}
