package markers

import "unicode/utf16"

// HashStringToSeed folds s into a non-zero 32-bit seed with the classic
// h = h*31 + c rolling hash over UTF-16 code units, wrapping at signed 32 bits.
// The magnitude of the final hash is returned; a zero hash yields 1.
func HashStringToSeed(s string) uint32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	if abs == 0 {
		return 1
	}
	return uint32(abs)
}

// Mulberry32 is a small counter-based PRNG. The same seed always yields the
// same sequence, on every platform.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 returns a generator seeded with seed.
func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Float64 returns the next draw in [0, 1).
func (m *Mulberry32) Float64() float64 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}
