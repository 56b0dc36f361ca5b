// Package id generates time-sortable identifiers for orders and journal rows.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out monotonic ULIDs, optionally prefixed. Safe for
// concurrent use.
type Generator struct {
	mu     sync.Mutex
	prefix string
	mono   io.Reader
	now    func() time.Time
}

// NewGenerator seeds its entropy from crypto/rand. IDs generated within the
// same millisecond stay lexicographically increasing.
func NewGenerator(prefix string) *Generator {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		prefix: prefix,
		mono:   ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
		now:    time.Now,
	}
}

func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.mono)
	if err != nil {
		// Only on clock rollback past the monotonic window or entropy overflow.
		panic(err)
	}
	return g.prefix + id.String()
}

var (
	plain  = NewGenerator("")
	orders = NewGenerator("ord-")
)

// New returns a bare ULID string.
func New() string { return plain.Next() }

// NewOrderID returns an order id of the form ord-<ULID>.
func NewOrderID() string { return orders.Next() }

// Time extracts the generation time from an id made by any Generator.
func Time(s string, prefix string) (time.Time, error) {
	u, err := ulid.ParseStrict(s[min(len(prefix), len(s)):])
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
