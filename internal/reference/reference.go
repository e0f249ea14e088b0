package reference

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind selects the prefix of a generated reference.
type Kind string

const (
	Transaction Kind = "TXN"
	Trade       Kind = "STK"
)

// SuffixLength is the number of ULID characters kept at the end of a reference.
const SuffixLength = 10

// Generator produces a unique, human-readable reference for a record created at the given time.
type Generator func(kind Kind, at time.Time) (string, error)

// New returns a Generator drawing monotonic ULID entropy from r.
// References have the form PREFIX-YYYYMMDD-XXXXXXXXXX.
func New(r io.Reader) Generator {
	var mu sync.Mutex
	mono := ulid.Monotonic(r, 0)

	return func(kind Kind, at time.Time) (string, error) {
		mu.Lock()
		id, err := ulid.New(ulid.Timestamp(at.UTC()), mono)
		mu.Unlock()
		if err != nil {
			return "", fmt.Errorf("generate %s reference: %w", kind, err)
		}

		s := id.String()
		return fmt.Sprintf("%s-%s-%s", kind, at.UTC().Format("20060102"), s[len(s)-SuffixLength:]), nil
	}
}

// NewDefault returns a Generator seeded from crypto/rand.
func NewDefault() Generator {
	return New(rand.New(rand.NewSource(seedFrom(cryptoRand.Reader, time.Now))))
}

// seedFrom reads a seed from r, falling back to the clock when r fails or yields zero.
func seedFrom(r io.Reader, now func() time.Time) int64 {
	var seed int64
	if err := binary.Read(r, binary.LittleEndian, &seed); err != nil {
		return now().UnixNano()
	}
	if seed == 0 {
		return now().UnixNano()
	}
	return seed
}
