package decoders

import "encoding/binary"

const (
	fR0 = iota
	fG0
	fB0
	fR1
	fG1
	fB1
	fR2
	fG2
	fB2
	fR3
	fG3
	fB3
	fPartition
	fieldCount
)

// bc6Segment reads bits of one endpoint field, from bit first to bit last inclusive
type bc6Segment struct {
	field int
	first int
	last  int
}

// f describes field[high:low] in the usual notation: bits are stored starting from low
func f(field, high, low int) bc6Segment {
	return bc6Segment{field: field, first: low, last: high}
}

type bc6Mode struct {
	transformed  bool
	regions      int
	endpointBits int
	deltaBits    [3]int
	layout       []bc6Segment
}

var bc6TwoRegionTail = []bc6Segment{f(fPartition, 4, 0)}

var bc6Modes = [14]bc6Mode{
	{true, 2, 10, [3]int{5, 5, 5}, []bc6Segment{
		f(fG2, 4, 4), f(fB2, 4, 4), f(fB3, 4, 4), f(fR0, 9, 0), f(fG0, 9, 0), f(fB0, 9, 0),
		f(fR1, 4, 0), f(fG3, 4, 4), f(fG2, 3, 0), f(fG1, 4, 0), f(fB3, 0, 0), f(fG3, 3, 0),
		f(fB1, 4, 0), f(fB3, 1, 1), f(fB2, 3, 0), f(fR2, 4, 0), f(fB3, 2, 2), f(fR3, 4, 0), f(fB3, 3, 3),
	}},
	{true, 2, 7, [3]int{6, 6, 6}, []bc6Segment{
		f(fG2, 5, 5), f(fG3, 4, 4), f(fG3, 5, 5), f(fR0, 6, 0), f(fB3, 0, 0), f(fB3, 1, 1), f(fB2, 4, 4),
		f(fG0, 6, 0), f(fB2, 5, 5), f(fB3, 2, 2), f(fG2, 4, 4), f(fB0, 6, 0), f(fB3, 3, 3), f(fB3, 5, 5),
		f(fB3, 4, 4), f(fR1, 5, 0), f(fG2, 3, 0), f(fG1, 5, 0), f(fG3, 3, 0), f(fB1, 5, 0), f(fB2, 3, 0),
		f(fR2, 5, 0), f(fR3, 5, 0),
	}},
	{true, 2, 11, [3]int{5, 4, 4}, []bc6Segment{
		f(fR0, 9, 0), f(fG0, 9, 0), f(fB0, 9, 0), f(fR1, 4, 0), f(fR0, 10, 10), f(fG2, 3, 0), f(fG1, 3, 0),
		f(fG0, 10, 10), f(fB3, 0, 0), f(fG3, 3, 0), f(fB1, 3, 0), f(fB0, 10, 10), f(fB3, 1, 1), f(fB2, 3, 0),
		f(fR2, 4, 0), f(fB3, 2, 2), f(fR3, 4, 0), f(fB3, 3, 3),
	}},
	{true, 2, 11, [3]int{4, 5, 4}, []bc6Segment{
		f(fR0, 9, 0), f(fG0, 9, 0), f(fB0, 9, 0), f(fR1, 3, 0), f(fR0, 10, 10), f(fG3, 4, 4), f(fG2, 3, 0),
		f(fG1, 4, 0), f(fG0, 10, 10), f(fG3, 3, 0), f(fB1, 3, 0), f(fB0, 10, 10), f(fB3, 1, 1), f(fB2, 3, 0),
		f(fR2, 3, 0), f(fB3, 0, 0), f(fB3, 2, 2), f(fR3, 3, 0), f(fG2, 4, 4), f(fB3, 3, 3),
	}},
	{true, 2, 11, [3]int{4, 4, 5}, []bc6Segment{
		f(fR0, 9, 0), f(fG0, 9, 0), f(fB0, 9, 0), f(fR1, 3, 0), f(fR0, 10, 10), f(fB2, 4, 4), f(fG2, 3, 0),
		f(fG1, 3, 0), f(fG0, 10, 10), f(fB3, 0, 0), f(fG3, 3, 0), f(fB1, 4, 0), f(fB0, 10, 10), f(fB2, 3, 0),
		f(fR2, 3, 0), f(fB3, 1, 1), f(fB3, 2, 2), f(fR3, 3, 0), f(fB3, 4, 4), f(fB3, 3, 3),
	}},
	{true, 2, 9, [3]int{5, 5, 5}, []bc6Segment{
		f(fR0, 8, 0), f(fB2, 4, 4), f(fG0, 8, 0), f(fG2, 4, 4), f(fB0, 8, 0), f(fB3, 4, 4), f(fR1, 4, 0),
		f(fG3, 4, 4), f(fG2, 3, 0), f(fG1, 4, 0), f(fB3, 0, 0), f(fG3, 3, 0), f(fB1, 4, 0), f(fB3, 1, 1),
		f(fB2, 3, 0), f(fR2, 4, 0), f(fB3, 2, 2), f(fR3, 4, 0), f(fB3, 3, 3),
	}},
	{true, 2, 8, [3]int{6, 5, 5}, []bc6Segment{
		f(fR0, 7, 0), f(fG3, 4, 4), f(fB2, 4, 4), f(fG0, 7, 0), f(fB3, 2, 2), f(fG2, 4, 4), f(fB0, 7, 0),
		f(fB3, 3, 3), f(fB3, 4, 4), f(fR1, 5, 0), f(fG2, 3, 0), f(fG1, 4, 0), f(fB3, 0, 0), f(fG3, 3, 0),
		f(fB1, 4, 0), f(fB3, 1, 1), f(fB2, 3, 0), f(fR2, 5, 0), f(fR3, 5, 0),
	}},
	{true, 2, 8, [3]int{5, 6, 5}, []bc6Segment{
		f(fR0, 7, 0), f(fB3, 0, 0), f(fB2, 4, 4), f(fG0, 7, 0), f(fG2, 5, 5), f(fG2, 4, 4), f(fB0, 7, 0),
		f(fG3, 5, 5), f(fB3, 4, 4), f(fR1, 4, 0), f(fG3, 4, 4), f(fG2, 3, 0), f(fG1, 5, 0), f(fG3, 3, 0),
		f(fB1, 4, 0), f(fB3, 1, 1), f(fB2, 3, 0), f(fR2, 4, 0), f(fB3, 2, 2), f(fR3, 4, 0), f(fB3, 3, 3),
	}},
	{true, 2, 8, [3]int{5, 5, 6}, []bc6Segment{
		f(fR0, 7, 0), f(fB3, 1, 1), f(fB2, 4, 4), f(fG0, 7, 0), f(fB2, 5, 5), f(fG2, 4, 4), f(fB0, 7, 0),
		f(fB3, 5, 5), f(fB3, 4, 4), f(fR1, 4, 0), f(fG3, 4, 4), f(fG2, 3, 0), f(fG1, 4, 0), f(fB3, 0, 0),
		f(fG3, 3, 0), f(fB1, 5, 0), f(fB2, 3, 0), f(fR2, 4, 0), f(fB3, 2, 2), f(fR3, 4, 0), f(fB3, 3, 3),
	}},
	{false, 2, 6, [3]int{6, 6, 6}, []bc6Segment{
		f(fR0, 5, 0), f(fG3, 4, 4), f(fB3, 0, 0), f(fB3, 1, 1), f(fB2, 4, 4), f(fG0, 5, 0), f(fG2, 5, 5),
		f(fB2, 5, 5), f(fB3, 2, 2), f(fG2, 4, 4), f(fB0, 5, 0), f(fG3, 5, 5), f(fB3, 3, 3), f(fB3, 5, 5),
		f(fB3, 4, 4), f(fR1, 5, 0), f(fG2, 3, 0), f(fG1, 5, 0), f(fG3, 3, 0), f(fB1, 5, 0), f(fB2, 3, 0),
		f(fR2, 5, 0), f(fR3, 5, 0),
	}},
	{false, 1, 10, [3]int{10, 10, 10}, []bc6Segment{
		f(fR0, 9, 0), f(fG0, 9, 0), f(fB0, 9, 0), f(fR1, 9, 0), f(fG1, 9, 0), f(fB1, 9, 0),
	}},
	{true, 1, 11, [3]int{9, 9, 9}, []bc6Segment{
		f(fR0, 9, 0), f(fG0, 9, 0), f(fB0, 9, 0), f(fR1, 8, 0), f(fR0, 10, 10), f(fG1, 8, 0),
		f(fG0, 10, 10), f(fB1, 8, 0), f(fB0, 10, 10),
	}},
	{true, 1, 12, [3]int{8, 8, 8}, []bc6Segment{
		f(fR0, 9, 0), f(fG0, 9, 0), f(fB0, 9, 0), f(fR1, 7, 0), f(fR0, 10, 11), f(fG1, 7, 0),
		f(fG0, 10, 11), f(fB1, 7, 0), f(fB0, 10, 11),
	}},
	{true, 1, 16, [3]int{4, 4, 4}, []bc6Segment{
		f(fR0, 9, 0), f(fG0, 9, 0), f(fB0, 9, 0), f(fR1, 3, 0), f(fR0, 10, 15), f(fG1, 3, 0),
		f(fG0, 10, 15), f(fB1, 3, 0), f(fB0, 10, 15),
	}},
}

// bc6ModeIndex maps the five mode bits of the 5-bit modes to their table entry, -1 for reserved
var bc6ModeIndex = [32]int{
	0x02: 2, 0x06: 3, 0x0A: 4, 0x0E: 5, 0x12: 6, 0x16: 7, 0x1A: 8, 0x1E: 9,
	0x03: 10, 0x07: 11, 0x0B: 12, 0x0F: 13,
	0x13: -1, 0x17: -1, 0x1B: -1, 0x1F: -1,
}

func signExtend(value, bits int) int {
	shift := 64 - bits
	return int(int64(uint64(value)<<shift) >> shift)
}

func bc6Unquantize(value, bits int, signed bool) int {
	if !signed {
		switch {
		case bits >= 15:
			return value
		case value == 0:
			return 0
		case value == (1<<bits)-1:
			return 0xFFFF
		}
		return ((value << 16) + 0x8000) >> bits
	}

	if bits >= 16 {
		return value
	}

	negative := value < 0
	if negative {
		value = -value
	}

	var result int
	switch {
	case value == 0:
		result = 0
	case value >= (1<<(bits-1))-1:
		result = 0x7FFF
	default:
		result = ((value << 15) + 0x4000) >> (bits - 1)
	}

	if negative {
		return -result
	}
	return result
}

// bc6FinishUnquantize scales an interpolated value into half float bits
func bc6FinishUnquantize(value int, signed bool) uint16 {
	if !signed {
		return uint16((value * 31) >> 6)
	}
	if value < 0 {
		return 0x8000 | uint16(((-value)*31)>>5)
	}
	return uint16((value * 31) >> 5)
}

const halfOne = 0x3C00

func decodeBc6Block(block []byte, texels []byte, signed bool) error {
	b := loadBlock128(block)

	modeIndex := int(b.bits(0, 2))
	if modeIndex > 1 {
		modeIndex = bc6ModeIndex[b.bits(0, 5)]
		if modeIndex <= 0 {
			for i := 0; i < 16; i++ {
				binary.LittleEndian.PutUint64(texels[i*8:], uint64(halfOne)<<48)
			}
			return MalformedBlockError
		}
	}

	mode := &bc6Modes[modeIndex]
	r := bitReader{block: b, pos: 2}
	if modeIndex > 1 {
		r.pos = 5
	}

	var fields [fieldCount]int
	layout := mode.layout
	if mode.regions == 2 {
		layout = append(layout[:len(layout):len(layout)], bc6TwoRegionTail...)
	}
	for _, segment := range layout {
		step := 1
		if segment.last < segment.first {
			step = -1
		}
		for bit := segment.first; ; bit += step {
			fields[segment.field] |= r.read(1) << bit
			if bit == segment.last {
				break
			}
		}
	}

	endpointCount := mode.regions * 2
	var endpoints [4][3]int
	for e := 0; e < endpointCount; e++ {
		for c := 0; c < 3; c++ {
			endpoints[e][c] = fields[e*3+c]
		}
	}

	mask := (1 << mode.endpointBits) - 1
	for c := 0; c < 3; c++ {
		if signed {
			endpoints[0][c] = signExtend(endpoints[0][c], mode.endpointBits)
		}

		for e := 1; e < endpointCount; e++ {
			if mode.transformed {
				delta := signExtend(endpoints[e][c], mode.deltaBits[c])
				endpoints[e][c] = (endpoints[0][c] + delta) & mask
				if signed {
					endpoints[e][c] = signExtend(endpoints[e][c], mode.endpointBits)
				}
			} else if signed {
				endpoints[e][c] = signExtend(endpoints[e][c], mode.endpointBits)
			}
		}
	}

	for e := 0; e < endpointCount; e++ {
		for c := 0; c < 3; c++ {
			endpoints[e][c] = bc6Unquantize(endpoints[e][c], mode.endpointBits, signed)
		}
	}

	partition := fields[fPartition]
	indexBits := 4
	r.pos = 65
	if mode.regions == 2 {
		indexBits = 3
		r.pos = 82
	}
	weights := interpolationWeights(indexBits)

	for i := 0; i < 16; i++ {
		count := indexBits
		if isAnchor(mode.regions, partition, i) {
			count--
		}
		weight := weights[r.read(count)]
		subset := subsetOf(mode.regions, partition, i)

		e0, e1 := &endpoints[subset*2], &endpoints[subset*2+1]
		var pixel uint64
		for c := 0; c < 3; c++ {
			value := bc6FinishUnquantize(interpolate(e0[c], e1[c], weight), signed)
			pixel |= uint64(value) << (16 * c)
		}
		pixel |= uint64(halfOne) << 48
		binary.LittleEndian.PutUint64(texels[i*8:], pixel)
	}

	return nil
}

// DecodeBc6 decodes BC6H blocks to RGBA16F, with alpha fixed at 1.0
func DecodeBc6(data []byte, s Surface, signed bool) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 16, 8, func(block []byte, texels []byte) error {
		return decodeBc6Block(block, texels, signed)
	})
}
