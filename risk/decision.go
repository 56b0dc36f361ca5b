package risk

import "fmt"

type Status string

const (
	Approved Status = "approved"
	Rejected Status = "rejected"
)

// Code classifies a rejection for metrics and callers that want to retry.
type Code string

const (
	CodeNone            Code = ""
	CodeInvalidOrder    Code = "invalid_order"
	CodeAccountNotFound Code = "account_not_found"
	CodeOrderSize       Code = "order_size"
	CodeExposure        Code = "exposure"
	CodeContention      Code = "contention"
	CodeInfrastructure  Code = "infrastructure"
)

const (
	ReasonInvalidOrder    = "invalid order"
	ReasonAccountNotFound = "account not found"
	ReasonOrderSize       = "order size exceeds limit"
	ReasonExposure        = "exposure limit breach"
	ReasonContention      = "contention, retry"
	ReasonInfrastructure  = "risk store unavailable"
)

// Decision is produced exactly once per order and never mutated.
type Decision struct {
	OrderID   string
	AccountID string
	Status    Status
	Code      Code
	Reason    string
	Detail    string

	Notional float64
	// Attempted and Limit carry the values of the failed check.
	Attempted float64
	Limit     float64

	// Exposure and Version describe the committed state on approval.
	Exposure float64
	Version  uint64
}

func (d Decision) Approved() bool { return d.Status == Approved }

// Transient reports rejections the caller may retry unchanged.
func (d Decision) Transient() bool {
	return d.Code == CodeContention || d.Code == CodeInfrastructure
}

func (d Decision) String() string {
	if d.Approved() {
		return "Approved"
	}
	return fmt.Sprintf("Rejected(%s)", d.Reason)
}

func reject(o OrderRequest, code Code, reason, detail string) Decision {
	return Decision{
		OrderID:   o.OrderID,
		AccountID: o.AccountID,
		Status:    Rejected,
		Code:      code,
		Reason:    reason,
		Detail:    detail,
	}
}

// breach carries a limit rejection out of a store mutation.
type breach struct {
	d Decision
}

func (b *breach) Error() string { return b.d.Reason + ": " + b.d.Detail }
