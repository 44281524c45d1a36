// Package id generates time-sortable identifiers for users and trades.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// monotonic entropy keeps ids generated within one millisecond increasing
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string stamped with the current time.
func New() (string, error) {
	return NewAt(time.Now())
}

// NewAt returns a ULID string stamped with t.
// Ids from the same process are strictly increasing as long as t does not go backwards.
// It fails when t precedes the Unix epoch or when the monotonic entropy
// overflows within one millisecond.
func NewAt(t time.Time) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		return "", errors.Wrap(err, "generate ulid")
	}
	return id.String(), nil
}

// Valid reports whether s is a well-formed ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
