package decoders

import (
	"encoding/binary"
	"math/bits"
)

// block128 is a 128-bit compressed block, least significant bit first
type block128 struct {
	lo, hi uint64
}

func loadBlock128(block []byte) block128 {
	return block128{
		lo: binary.LittleEndian.Uint64(block),
		hi: binary.LittleEndian.Uint64(block[8:]),
	}
}

func (b block128) store(out []byte) {
	binary.LittleEndian.PutUint64(out, b.lo)
	binary.LittleEndian.PutUint64(out[8:], b.hi)
}

// bits returns count (at most 64) bits starting at start
func (b block128) bits(start, count int) uint64 {
	if count == 0 || start >= 128 {
		return 0
	}

	var value uint64
	switch {
	case start >= 64:
		value = b.hi >> (start - 64)
	case start == 0:
		value = b.lo
	default:
		value = b.lo>>start | b.hi<<(64-start)
	}

	if count < 64 {
		value &= (1 << count) - 1
	}
	return value
}

func (b block128) reversed() block128 {
	return block128{lo: bits.Reverse64(b.hi), hi: bits.Reverse64(b.lo)}
}

type bitReader struct {
	block block128
	pos   int
	// end, when set, makes every bit at or past it read as zero
	end int
}

func (r *bitReader) read(count int) int {
	value := r.block.bits(r.pos, count)
	if r.end > 0 && r.pos+count > r.end {
		valid := max(r.end-r.pos, 0)
		value &= (1 << valid) - 1
	}
	r.pos += count
	return int(value)
}

type bitWriter struct {
	block block128
	pos   int
}

func (w *bitWriter) write(value, count int) {
	for i := 0; i < count; i++ {
		bit := uint64((value >> i) & 1)
		position := w.pos + i
		if position < 64 {
			w.block.lo |= bit << position
		} else {
			w.block.hi |= bit << (position - 64)
		}
	}
	w.pos += count
}
