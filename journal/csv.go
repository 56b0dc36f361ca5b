package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	decisionHeader = []string{"order_id", "account_id", "instrument", "side", "price", "size", "notional", "status", "code", "reason", "exposure", "version", "time"}
	varHeader      = []string{"time", "confidence", "var_amount", "portfolio_value", "trials", "positions"}
)

// CSVJournal appends decisions and VaR results to two files. Decisions arrive
// from concurrent order checks, so writes are serialized.
type CSVJournal struct {
	mu        sync.Mutex
	decisions *csv.Writer
	results   *csv.Writer
	df, vf    *os.File
}

func NewCSV(decisionsPath, varPath string) (*CSVJournal, error) {
	df, err := os.Create(decisionsPath)
	if err != nil {
		return nil, err
	}
	vf, err := os.Create(varPath)
	if err != nil {
		_ = df.Close()
		return nil, err
	}

	dw := csv.NewWriter(df)
	vw := csv.NewWriter(vf)

	if err := dw.Write(decisionHeader); err != nil {
		return nil, err
	}
	if err := vw.Write(varHeader); err != nil {
		return nil, err
	}

	dw.Flush()
	if err := dw.Error(); err != nil {
		return nil, err
	}
	vw.Flush()
	if err := vw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{decisions: dw, results: vw, df: df, vf: vf}, nil
}

func (j *CSVJournal) RecordDecision(d DecisionRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.decisions.Write([]string{
		d.OrderID,
		d.AccountID,
		d.Instrument,
		d.Side,
		strconv.FormatInt(d.Price, 10),
		strconv.FormatUint(d.Size, 10),
		f(d.Notional),
		d.Status,
		d.Code,
		d.Reason,
		f(d.Exposure),
		strconv.FormatUint(d.Version, 10),
		d.Time.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	j.decisions.Flush()
	return j.decisions.Error()
}

func (j *CSVJournal) RecordVaR(v VaRRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.results.Write([]string{
		v.Time.Format(time.RFC3339Nano),
		f(v.Confidence),
		f(v.VaRAmount),
		f(v.PortfolioValue),
		strconv.Itoa(v.Trials),
		strconv.Itoa(v.Positions),
	})
	if err != nil {
		return err
	}
	j.results.Flush()
	return j.results.Error()
}

func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.decisions.Flush()
	if err := j.decisions.Error(); err != nil {
		return err
	}
	j.results.Flush()
	if err := j.results.Error(); err != nil {
		return err
	}

	if err := j.df.Close(); err != nil {
		return err
	}
	return j.vf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
