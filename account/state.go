// Package account holds per-account risk state and the stores that keep it.
//
// A State has three groups of fields, each with a single writer: the base
// limits are set once at onboarding, the current limits belong to the limit
// controller, and exposure/positions belong to the decision engine. Stores
// only accept writes through Update, which re-reads the version on every
// attempt so the two writers never clobber each other.
package account

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// KeyPrefix scopes account records in key/value backends.
const KeyPrefix = "account:"

// Key returns the storage key for an account id.
func Key(id string) string { return KeyPrefix + id }

var ErrInvalidState = errors.New("invalid account state")

// State is the flat account record.
type State struct {
	AccountID string `json:"account_id"`

	BaseMaxExposure  float64 `json:"base_max_exposure"`
	BaseMaxOrderSize uint64  `json:"base_max_order_size"`

	CurrentMaxExposure  float64 `json:"current_max_exposure"`
	CurrentMaxOrderSize uint64  `json:"current_max_order_size"`

	CurrentExposure float64          `json:"current_exposure"`
	Positions       map[string]int64 `json:"positions"`

	Version uint64 `json:"version"`
}

// New returns the onboarding state: current limits at baseline, flat book.
func New(id string, baseMaxExposure float64, baseMaxOrderSize uint64) State {
	return State{
		AccountID:           id,
		BaseMaxExposure:     baseMaxExposure,
		BaseMaxOrderSize:    baseMaxOrderSize,
		CurrentMaxExposure:  baseMaxExposure,
		CurrentMaxOrderSize: baseMaxOrderSize,
		Positions:           make(map[string]int64),
	}
}

// Clone returns a deep copy so callers can never alias a store's map.
func (s State) Clone() State {
	out := s
	out.Positions = make(map[string]int64, len(s.Positions))
	for k, v := range s.Positions {
		out.Positions[k] = v
	}
	return out
}

// Position returns the signed quantity held in an instrument.
func (s State) Position(instrument string) int64 {
	return s.Positions[instrument]
}

// Validate checks the record invariants every stored state must hold.
func (s State) Validate() error {
	switch {
	case s.AccountID == "":
		return fmt.Errorf("%w: account_id is required", ErrInvalidState)
	case !(s.BaseMaxExposure > 0) || math.IsInf(s.BaseMaxExposure, 0):
		return fmt.Errorf("%w: base_max_exposure must be positive", ErrInvalidState)
	case s.BaseMaxOrderSize == 0:
		return fmt.Errorf("%w: base_max_order_size must be positive", ErrInvalidState)
	case !(s.CurrentMaxExposure > 0) || math.IsInf(s.CurrentMaxExposure, 0):
		return fmt.Errorf("%w: current_max_exposure must be positive", ErrInvalidState)
	case s.CurrentMaxOrderSize == 0:
		return fmt.Errorf("%w: current_max_order_size must be positive", ErrInvalidState)
	case math.IsNaN(s.CurrentExposure) || math.IsInf(s.CurrentExposure, 0):
		return fmt.Errorf("%w: current_exposure must be finite", ErrInvalidState)
	}
	return nil
}

// Field is a set of mutable fields a Mutation declares it will touch.
type Field uint8

const (
	FieldCurrentMaxExposure Field = 1 << iota
	FieldCurrentMaxOrderSize
	FieldCurrentExposure
	FieldPositions

	// fieldImmutable marks a change to the id, base limits or version.
	// No mutation can declare it.
	fieldImmutable Field = 1 << 7
)

// LimitFields are owned by the limit controller.
const LimitFields = FieldCurrentMaxExposure | FieldCurrentMaxOrderSize

// BookFields are owned by the decision engine.
const BookFields = FieldCurrentExposure | FieldPositions

func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, n := range []struct {
		f    Field
		name string
	}{
		{FieldCurrentMaxExposure, "current_max_exposure"},
		{FieldCurrentMaxOrderSize, "current_max_order_size"},
		{FieldCurrentExposure, "current_exposure"},
		{FieldPositions, "positions"},
		{fieldImmutable, "immutable"},
	} {
		if f&n.f != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// changed reports which fields differ between two states.
func changed(before, after State) Field {
	var f Field
	if before.AccountID != after.AccountID ||
		before.BaseMaxExposure != after.BaseMaxExposure ||
		before.BaseMaxOrderSize != after.BaseMaxOrderSize ||
		before.Version != after.Version {
		f |= fieldImmutable
	}
	if before.CurrentMaxExposure != after.CurrentMaxExposure {
		f |= FieldCurrentMaxExposure
	}
	if before.CurrentMaxOrderSize != after.CurrentMaxOrderSize {
		f |= FieldCurrentMaxOrderSize
	}
	if before.CurrentExposure != after.CurrentExposure {
		f |= FieldCurrentExposure
	}
	if !samePositions(before.Positions, after.Positions) {
		f |= FieldPositions
	}
	return f
}

// samePositions treats a missing instrument and a zero quantity as equal.
func samePositions(a, b map[string]int64) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}
