package reference

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referencePattern = regexp.MustCompile(`^(TXN|STK)-\d{8}-[0-9A-HJKMNP-TV-Z]{10}$`)

func TestGeneratorFormat(t *testing.T) {
	gen := New(rand.New(rand.NewSource(1)))
	at := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)

	ref, err := gen(Transaction, at)
	require.NoError(t, err)
	assert.Regexp(t, referencePattern, ref)
	assert.Equal(t, "TXN-20240309-", ref[:13])

	ref, err = gen(Trade, at)
	require.NoError(t, err)
	assert.Equal(t, "STK-20240309-", ref[:13])
}

func TestGeneratorUniqueWithinSameInstant(t *testing.T) {
	gen := New(rand.New(rand.NewSource(42)))
	at := time.Now()

	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		ref, err := gen(Transaction, at)
		require.NoError(t, err)
		require.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestGeneratorDeterministicForSeed(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a, err := New(rand.New(rand.NewSource(7)))(Trade, at)
	require.NoError(t, err)
	b, err := New(rand.New(rand.NewSource(7)))(Trade, at)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDefaultGeneratorConcurrent(t *testing.T) {
	gen := NewDefault()
	refs := make(chan string, 400)

	for w := 0; w < 8; w++ {
		go func() {
			for i := 0; i < 50; i++ {
				ref, err := gen(Trade, time.Now())
				if err != nil {
					refs <- ""
					continue
				}
				refs <- ref
			}
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < 400; i++ {
		ref := <-refs
		require.NotEmpty(t, ref)
		require.False(t, seen[ref])
		seen[ref] = true
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestSeedFrom(t *testing.T) {
	clock := func() time.Time { return time.Unix(0, 42) }

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int64(7)))
	assert.Equal(t, int64(7), seedFrom(&buf, clock))

	assert.Equal(t, int64(42), seedFrom(failingReader{}, clock))
	assert.Equal(t, int64(42), seedFrom(bytes.NewReader([]byte{1, 2}), clock), "short read")
	assert.Equal(t, int64(42), seedFrom(bytes.NewReader(make([]byte, 8)), clock), "zero seed")
}
