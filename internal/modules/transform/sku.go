package transform

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"unicode/utf8"

	"github.com/georgemunganga/printa-catalog/internal/modules/catalog"
)

const skuAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RegenerateAllSkus replaces every non-empty variant SKU with a random
// string of the same character count drawn from [A-Z0-9]. Empty SKUs stay
// empty.
func RegenerateAllSkus(agg *catalog.Aggregate, rng *rand.Rand) *catalog.Aggregate {
	if agg == nil {
		return nil
	}
	out := agg.Clone()
	for i := range out.Variants {
		if n := utf8.RuneCountInString(out.Variants[i].SKU); n > 0 {
			out.Variants[i].SKU = GenerateSKU(rng, n)
		}
	}
	return out
}

// GenerateSKU returns n characters from the SKU alphabet.
func GenerateSKU(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = skuAlphabet[rng.IntN(len(skuAlphabet))]
	}
	return string(b)
}

// NewSKURand returns a reproducible source for tests and replays.
func NewSKURand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewCryptoRand returns a source backed by the operating system CSPRNG.
func NewCryptoRand() *rand.Rand {
	return rand.New(cryptoSource{})
}

type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("transform: crypto/rand unavailable: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}
