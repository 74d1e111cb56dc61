package guestmem

import (
	"math"
	"strconv"
	"strings"
)

// InvalidAddress marks a sub-range that is not backed by guest memory
const InvalidAddress uint64 = math.MaxUint64

// Range is a contiguous span of guest physical memory
type Range struct {
	Address uint64
	Size    uint64
}

// EndAddress returns the first address past the end of the range
func (r Range) EndAddress() uint64 {
	return r.Address + r.Size
}

// OverlapsWith reports whether the two spans share any byte. Unmapped spans never overlap.
func (r Range) OverlapsWith(other Range) bool {
	if r.Address == InvalidAddress || other.Address == InvalidAddress {
		return false
	}
	return r.Address < other.EndAddress() && other.Address < r.EndAddress()
}

// Contains reports whether other lies entirely inside r
func (r Range) Contains(other Range) bool {
	if r.Address == InvalidAddress || other.Address == InvalidAddress {
		return false
	}
	return other.Address >= r.Address && other.EndAddress() <= r.EndAddress()
}

// MultiRange is an ordered list of guest memory spans that together back one resource
type MultiRange struct {
	ranges []Range
}

// NewMultiRange builds a MultiRange from the given spans, in order
func NewMultiRange(ranges ...Range) MultiRange {
	owned := make([]Range, len(ranges))
	copy(owned, ranges)
	return MultiRange{ranges: owned}
}

// SingleRange builds a MultiRange with one span
func SingleRange(address, size uint64) MultiRange {
	return MultiRange{ranges: []Range{{Address: address, Size: size}}}
}

func (m MultiRange) Count() int {
	return len(m.ranges)
}

func (m MultiRange) SubRange(index int) Range {
	return m.ranges[index]
}

// Size returns the total byte count across all spans
func (m MultiRange) Size() uint64 {
	var size uint64
	for _, r := range m.ranges {
		size += r.Size
	}
	return size
}

// MinAddress returns the lowest mapped address in the range, or InvalidAddress if nothing is mapped
func (m MultiRange) MinAddress() uint64 {
	result := InvalidAddress
	for _, r := range m.ranges {
		if r.Address != InvalidAddress && r.Address < result {
			result = r.Address
		}
	}
	return result
}

// MaxAddress returns the first address past the highest mapped span
func (m MultiRange) MaxAddress() uint64 {
	var result uint64
	for _, r := range m.ranges {
		if r.Address != InvalidAddress && r.EndAddress() > result {
			result = r.EndAddress()
		}
	}
	return result
}

// Slice returns the spans covering size bytes starting offset bytes into the range
func (m MultiRange) Slice(offset, size uint64) MultiRange {
	var result []Range

	for _, r := range m.ranges {
		if size == 0 {
			break
		}

		if offset >= r.Size {
			offset -= r.Size
			continue
		}

		take := min(r.Size-offset, size)
		address := r.Address
		if address != InvalidAddress {
			address += offset
		}

		result = append(result, Range{Address: address, Size: take})
		size -= take
		offset = 0
	}

	return MultiRange{ranges: result}
}

func (m MultiRange) Equals(other MultiRange) bool {
	if len(m.ranges) != len(other.ranges) {
		return false
	}
	for i := range m.ranges {
		if m.ranges[i] != other.ranges[i] {
			return false
		}
	}
	return true
}

// OverlapsWith reports whether any span of m shares a byte with any span of other
func (m MultiRange) OverlapsWith(other MultiRange) bool {
	for _, r := range m.ranges {
		for _, o := range other.ranges {
			if r.OverlapsWith(o) {
				return true
			}
		}
	}
	return false
}

// Contains reports whether every span of other lies inside some span of m
func (m MultiRange) Contains(other MultiRange) bool {
	for _, o := range other.ranges {
		found := false
		for _, r := range m.ranges {
			if r.Contains(o) {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}
	return len(other.ranges) > 0
}

// FindOffset returns the byte offset within m at which other begins, if other is laid out
// contiguously inside m from that point on. It returns -1 otherwise.
func (m MultiRange) FindOffset(other MultiRange) int {
	if len(other.ranges) == 0 {
		return -1
	}

	first := other.ranges[0]
	var offset uint64

	for _, r := range m.ranges {
		if r.Address != InvalidAddress && first.Address >= r.Address && first.Address < r.EndAddress() {
			start := offset + (first.Address - r.Address)
			if m.Slice(start, other.Size()).normalized().Equals(other.normalized()) {
				return int(start)
			}
			return -1
		}
		offset += r.Size
	}

	return -1
}

// normalized merges spans that continue exactly where the previous one ended
func (m MultiRange) normalized() MultiRange {
	result := make([]Range, 0, len(m.ranges))
	for _, r := range m.ranges {
		last := len(result) - 1
		if last >= 0 && r.Address != InvalidAddress && result[last].Address != InvalidAddress &&
			result[last].EndAddress() == r.Address {
			result[last].Size += r.Size
			continue
		}
		result = append(result, r)
	}
	return MultiRange{ranges: result}
}

// Unmap returns a copy of m where every byte that falls inside unmapped is marked with InvalidAddress
func (m MultiRange) Unmap(unmapped MultiRange) MultiRange {
	result := make([]Range, 0, len(m.ranges))

	for _, r := range m.ranges {
		pieces := []Range{r}
		for _, u := range unmapped.ranges {
			var next []Range
			for _, piece := range pieces {
				next = append(next, splitUnmapped(piece, u)...)
			}
			pieces = next
		}
		result = append(result, pieces...)
	}

	return MultiRange{ranges: result}
}

func splitUnmapped(r Range, unmapped Range) []Range {
	if !r.OverlapsWith(unmapped) {
		return []Range{r}
	}

	var pieces []Range
	start := max(r.Address, unmapped.Address)
	end := min(r.EndAddress(), unmapped.EndAddress())

	if start > r.Address {
		pieces = append(pieces, Range{Address: r.Address, Size: start - r.Address})
	}
	pieces = append(pieces, Range{Address: InvalidAddress, Size: end - start})
	if end < r.EndAddress() {
		pieces = append(pieces, Range{Address: end, Size: r.EndAddress() - end})
	}

	return pieces
}

func (m MultiRange) String() string {
	var builder strings.Builder
	builder.WriteByte('[')
	for i, r := range m.ranges {
		if i > 0 {
			builder.WriteString(", ")
		}
		if r.Address == InvalidAddress {
			builder.WriteString("unmapped")
		} else {
			builder.WriteString("0x")
			builder.WriteString(strconv.FormatUint(r.Address, 16))
		}
		builder.WriteByte('+')
		builder.WriteString(strconv.FormatUint(r.Size, 10))
	}
	builder.WriteByte(']')
	return builder.String()
}
