package decoders

const (
	iseBits = iota
	iseTrits
	iseQuints
)

// iseEncoding describes how a value range is stored in an integer sequence
type iseEncoding struct {
	kind int
	bits int
}

// iseLevels lists every value range an integer sequence may use, smallest first
var iseLevels = [...]int{2, 3, 4, 5, 6, 8, 10, 12, 16, 20, 24, 32, 40, 48, 64, 80, 96, 128, 160, 192, 256}

func iseEncodingFor(levels int) iseEncoding {
	switch {
	case levels%3 == 0:
		return iseEncoding{kind: iseTrits, bits: log2(levels / 3)}
	case levels%5 == 0:
		return iseEncoding{kind: iseQuints, bits: log2(levels / 5)}
	default:
		return iseEncoding{kind: iseBits, bits: log2(levels)}
	}
}

func log2(value int) int {
	result := 0
	for value > 1 {
		value >>= 1
		result++
	}
	return result
}

func (e iseEncoding) bitCount(count int) int {
	total := count * e.bits
	switch e.kind {
	case iseTrits:
		total += (8*count + 4) / 5
	case iseQuints:
		total += (7*count + 2) / 3
	}
	return total
}

func decodeTrits(t int) [5]int {
	var c, t3, t4 int
	if (t>>2)&7 == 7 {
		c = (t>>5&7)<<2 | t&3
		t4, t3 = 2, 2
	} else {
		c = t & 0x1F
		if (t>>5)&3 == 3 {
			t4, t3 = 2, (t>>7)&1
		} else {
			t4, t3 = (t>>7)&1, (t>>5)&3
		}
	}

	var t0, t1, t2 int
	switch {
	case c&3 == 3:
		t2, t1 = 2, (c>>4)&1
		t0 = (c>>3&1)<<1 | (c>>2&1)&^(c>>3&1)
	case (c>>2)&3 == 3:
		t2, t1, t0 = 2, 2, c&3
	default:
		t2, t1 = (c>>4)&1, (c>>2)&3
		t0 = (c>>1&1)<<1 | (c&1)&^(c>>1&1)
	}

	return [5]int{t0, t1, t2, t3, t4}
}

func decodeQuints(q int) [3]int {
	if (q>>1)&3 == 3 && (q>>5)&3 == 0 {
		q2 := (q&1)<<2 | ((q>>4)&1&^(q&1))<<1 | (q>>3)&1&^(q&1)
		return [3]int{4, 4, q2}
	}

	var c, q2 int
	if (q>>1)&3 == 3 {
		q2 = 4
		c = (q>>3&3)<<3 | (^q>>5&3)<<1 | q&1
	} else {
		q2 = (q >> 5) & 3
		c = q & 0x1F
	}

	if c&7 == 5 {
		return [3]int{(c >> 3) & 3, 4, q2}
	}
	return [3]int{c & 7, (c >> 3) & 3, q2}
}

// decodeIse reads count values of an integer sequence starting at bit start. Bits past the
// encoded length read as zero.
func decodeIse(block block128, start, count int, encoding iseEncoding) []int {
	values := make([]int, count)
	r := bitReader{block: block, pos: start, end: start + encoding.bitCount(count)}
	bits := encoding.bits

	switch encoding.kind {
	case iseBits:
		for i := range values {
			values[i] = r.read(bits)
		}
	case iseTrits:
		for i := 0; i < count; i += 5 {
			var m [5]int
			m[0] = r.read(bits)
			t := r.read(2)
			m[1] = r.read(bits)
			t |= r.read(2) << 2
			m[2] = r.read(bits)
			t |= r.read(1) << 4
			m[3] = r.read(bits)
			t |= r.read(2) << 5
			m[4] = r.read(bits)
			t |= r.read(1) << 7

			trits := decodeTrits(t)
			for j := 0; j < 5 && i+j < count; j++ {
				values[i+j] = trits[j]<<bits | m[j]
			}
		}
	case iseQuints:
		for i := 0; i < count; i += 3 {
			var m [3]int
			m[0] = r.read(bits)
			q := r.read(3)
			m[1] = r.read(bits)
			q |= r.read(2) << 3
			m[2] = r.read(bits)
			q |= r.read(2) << 5

			quints := decodeQuints(q)
			for j := 0; j < 3 && i+j < count; j++ {
				values[i+j] = quints[j]<<bits | m[j]
			}
		}
	}

	return values
}

func replicate(value, from, to int) int {
	if from == 0 {
		return 0
	}
	result := 0
	for shift := to - from; shift > -from; shift -= from {
		if shift >= 0 {
			result |= value << shift
		} else {
			result |= value >> -shift
		}
	}
	return result & ((1 << to) - 1)
}

// unquantizeColor maps an integer sequence value to an 8-bit endpoint component
func unquantizeColor(value int, encoding iseEncoding) int {
	if encoding.kind == iseBits {
		return replicate(value, encoding.bits, 8)
	}

	low := value & ((1 << encoding.bits) - 1)
	d := value >> encoding.bits
	a := 0
	if low&1 != 0 {
		a = 0x1FF
	}
	h := low >> 1

	var b, c int
	if encoding.kind == iseTrits {
		switch encoding.bits {
		case 1:
			c = 204
		case 2:
			b, c = h<<8|h<<4|h<<2|h<<1, 93
		case 3:
			b, c = h<<7|h<<2|h, 44
		case 4:
			b, c = h<<6|h, 22
		case 5:
			b, c = h<<5|h>>2, 11
		case 6:
			b, c = h<<4|h>>4, 5
		}
	} else {
		switch encoding.bits {
		case 1:
			c = 113
		case 2:
			b, c = h<<8|h<<3|h<<2, 54
		case 3:
			b, c = h<<7|h<<1|h>>1, 26
		case 4:
			b, c = h<<6|h>>1, 13
		case 5:
			b, c = h<<5|h>>3, 6
		}
	}

	t := (d*c + b) ^ a
	return (a & 0x80) | t>>2
}

// unquantizeWeight maps an integer sequence value to a weight in [0, 64]
func unquantizeWeight(value int, encoding iseEncoding) int {
	if encoding.kind == iseBits {
		result := replicate(value, encoding.bits, 6)
		if result > 32 {
			result++
		}
		return result
	}

	if encoding.bits == 0 {
		if encoding.kind == iseTrits {
			return [3]int{0, 32, 64}[value]
		}
		return [5]int{0, 16, 32, 48, 64}[value]
	}

	low := value & ((1 << encoding.bits) - 1)
	d := value >> encoding.bits
	a := 0
	if low&1 != 0 {
		a = 0x7F
	}
	h := low >> 1

	var b, c int
	if encoding.kind == iseTrits {
		switch encoding.bits {
		case 1:
			c = 50
		case 2:
			b, c = h<<6|h<<2|h, 23
		case 3:
			b, c = h<<5|h, 11
		}
	} else {
		switch encoding.bits {
		case 1:
			c = 28
		case 2:
			b, c = h<<6|h<<1, 13
		}
	}

	t := (d*c + b) ^ a
	result := (a & 0x20) | t>>2
	if result > 32 {
		result++
	}
	return result
}

type astcBlockMode struct {
	weightWidth  int
	weightHeight int
	dualPlane    bool
	weightLevels int
}

var astcWeightLevels = [2][8]int{
	{0, 0, 2, 3, 4, 5, 6, 8},
	{0, 0, 10, 12, 16, 20, 24, 32},
}

func decodeAstcBlockMode(mode int) (astcBlockMode, bool) {
	highPrecision := (mode >> 9) & 1
	dualPlane := (mode>>10)&1 == 1
	a := (mode >> 5) & 3
	b := (mode >> 7) & 3

	var r, width, height int
	if mode&3 != 0 {
		r = (mode>>4)&1 | (mode&3)<<1
		switch (mode >> 2) & 3 {
		case 0:
			width, height = b+4, a+2
		case 1:
			width, height = b+8, a+2
		case 2:
			width, height = a+2, b+8
		case 3:
			if (mode>>8)&1 == 0 {
				width, height = a+2, (b&1)+6
			} else {
				width, height = (b&1)+2, a+2
			}
		}
	} else {
		r = (mode>>4)&1 | ((mode>>2)&3)<<1
		switch b {
		case 0:
			width, height = 12, a+2
		case 1:
			width, height = a+2, 12
		case 2:
			width, height = a+6, (mode>>9)&3+6
			highPrecision = 0
			dualPlane = false
		case 3:
			switch a {
			case 0:
				width, height = 6, 10
			case 1:
				width, height = 10, 6
			default:
				return astcBlockMode{}, false
			}
		}
	}

	if r < 2 {
		return astcBlockMode{}, false
	}

	return astcBlockMode{
		weightWidth:  width,
		weightHeight: height,
		dualPlane:    dualPlane,
		weightLevels: astcWeightLevels[highPrecision][r],
	}, true
}

func astcHash(seed uint32) uint32 {
	seed ^= seed >> 15
	seed -= seed << 17
	seed += seed << 7
	seed += seed << 4
	seed ^= seed >> 5
	seed += seed << 16
	seed ^= seed >> 7
	seed ^= seed >> 3
	seed ^= seed << 6
	seed ^= seed >> 17
	return seed
}

// astcPartition computes which partition a texel belongs to from the partition index seed
func astcPartition(seed, x, y, z, partitions int, smallBlock bool) int {
	if partitions == 1 {
		return 0
	}
	if smallBlock {
		x, y, z = x<<1, y<<1, z<<1
	}

	seed += (partitions - 1) * 1024
	rnum := astcHash(uint32(seed))

	var seeds [12]int
	for i := 0; i < 8; i++ {
		seeds[i] = int(rnum>>(4*i)) & 0xF
	}
	seeds[8] = int(rnum>>18) & 0xF
	seeds[9] = int(rnum>>22) & 0xF
	seeds[10] = int(rnum>>26) & 0xF
	seeds[11] = int(rnum>>30|rnum<<2) & 0xF
	for i := range seeds {
		seeds[i] *= seeds[i]
	}

	var sh1, sh2 int
	if seed&1 != 0 {
		sh1 = 5
		if seed&2 != 0 {
			sh1 = 4
		}
		sh2 = 5
		if partitions == 3 {
			sh2 = 6
		}
	} else {
		sh1 = 5
		if partitions == 3 {
			sh1 = 6
		}
		sh2 = 5
		if seed&2 != 0 {
			sh2 = 4
		}
	}
	sh3 := sh2
	if seed&0x10 != 0 {
		sh3 = sh1
	}

	for i := 0; i < 8; i += 2 {
		seeds[i] >>= sh1
		seeds[i+1] >>= sh2
	}
	for i := 8; i < 12; i++ {
		seeds[i] >>= sh3
	}

	pa := (seeds[0]*x + seeds[1]*y + seeds[10]*z + int(rnum>>14)) & 0x3F
	pb := (seeds[2]*x + seeds[3]*y + seeds[11]*z + int(rnum>>10)) & 0x3F
	pc := (seeds[4]*x + seeds[5]*y + seeds[8]*z + int(rnum>>6)) & 0x3F
	pd := (seeds[6]*x + seeds[7]*y + seeds[9]*z + int(rnum>>2)) & 0x3F

	if partitions <= 3 {
		pd = 0
	}
	if partitions <= 2 {
		pc = 0
	}

	switch {
	case pa >= pb && pa >= pc && pa >= pd:
		return 0
	case pb >= pc && pb >= pd:
		return 1
	case pc >= pd:
		return 2
	default:
		return 3
	}
}

func bitTransferSigned(a, b int) (int, int) {
	b >>= 1
	b |= a & 0x80
	a >>= 1
	a &= 0x3F
	if a&0x20 != 0 {
		a -= 0x40
	}
	return a, b
}

func blueContract(r, g, b, a int) [4]int {
	return [4]int{(r + b) >> 1, (g + b) >> 1, b, a}
}

func clampColor(color [4]int) [4]int {
	for i := range color {
		color[i] = clamp255(color[i])
	}
	return color
}

func isHdrEndpointMode(mode int) bool {
	switch mode {
	case 2, 3, 7, 11, 14, 15:
		return true
	}
	return false
}

// decodeEndpoints converts the unquantized values of one partition into its two LDR endpoints
func decodeEndpoints(mode int, v []int) ([4]int, [4]int) {
	switch mode {
	case 0:
		return [4]int{v[0], v[0], v[0], 255}, [4]int{v[1], v[1], v[1], 255}
	case 1:
		l0 := v[0]>>2 | v[1]&0xC0
		l1 := min(l0+v[1]&0x3F, 255)
		return [4]int{l0, l0, l0, 255}, [4]int{l1, l1, l1, 255}
	case 4:
		return [4]int{v[0], v[0], v[0], v[2]}, [4]int{v[1], v[1], v[1], v[3]}
	case 5:
		d1, b0 := bitTransferSigned(v[1], v[0])
		d3, b2 := bitTransferSigned(v[3], v[2])
		return [4]int{b0, b0, b0, b2}, clampColor([4]int{b0 + d1, b0 + d1, b0 + d1, b2 + d3})
	case 6:
		return [4]int{v[0] * v[3] >> 8, v[1] * v[3] >> 8, v[2] * v[3] >> 8, 255}, [4]int{v[0], v[1], v[2], 255}
	case 8:
		if v[1]+v[3]+v[5] >= v[0]+v[2]+v[4] {
			return [4]int{v[0], v[2], v[4], 255}, [4]int{v[1], v[3], v[5], 255}
		}
		return blueContract(v[1], v[3], v[5], 255), blueContract(v[0], v[2], v[4], 255)
	case 9:
		d1, b0 := bitTransferSigned(v[1], v[0])
		d3, b2 := bitTransferSigned(v[3], v[2])
		d5, b4 := bitTransferSigned(v[5], v[4])
		if d1+d3+d5 >= 0 {
			return [4]int{b0, b2, b4, 255}, clampColor([4]int{b0 + d1, b2 + d3, b4 + d5, 255})
		}
		return clampColor(blueContract(b0+d1, b2+d3, b4+d5, 255)), blueContract(b0, b2, b4, 255)
	case 10:
		return [4]int{v[0] * v[3] >> 8, v[1] * v[3] >> 8, v[2] * v[3] >> 8, v[4]}, [4]int{v[0], v[1], v[2], v[5]}
	case 12:
		if v[1]+v[3]+v[5] >= v[0]+v[2]+v[4] {
			return [4]int{v[0], v[2], v[4], v[6]}, [4]int{v[1], v[3], v[5], v[7]}
		}
		return blueContract(v[1], v[3], v[5], v[7]), blueContract(v[0], v[2], v[4], v[6])
	case 13:
		d1, b0 := bitTransferSigned(v[1], v[0])
		d3, b2 := bitTransferSigned(v[3], v[2])
		d5, b4 := bitTransferSigned(v[5], v[4])
		d7, b6 := bitTransferSigned(v[7], v[6])
		if d1+d3+d5 >= 0 {
			return [4]int{b0, b2, b4, b6}, clampColor([4]int{b0 + d1, b2 + d3, b4 + d5, b6 + d7})
		}
		return clampColor(blueContract(b0+d1, b2+d3, b4+d5, b6+d7)), blueContract(b0, b2, b4, b6)
	}

	return [4]int{}, [4]int{}
}

func infillWeights(weights []int, gridWidth, gridHeight, blockWidth, blockHeight, plane, planes int, out []int) {
	if gridWidth == blockWidth && gridHeight == blockHeight {
		for i := range out {
			out[i] = weights[i*planes+plane]
		}
		return
	}

	at := func(x, y int) int {
		if x >= gridWidth || y >= gridHeight {
			return 0
		}
		return weights[(y*gridWidth+x)*planes+plane]
	}

	ds := (1024 + blockWidth/2) / (blockWidth - 1)
	dt := (1024 + blockHeight/2) / (blockHeight - 1)

	for t := 0; t < blockHeight; t++ {
		for s := 0; s < blockWidth; s++ {
			gs := (ds*s*(gridWidth-1) + 32) >> 6
			gt := (dt*t*(gridHeight-1) + 32) >> 6
			js, fs := gs>>4, gs&0xF
			jt, ft := gt>>4, gt&0xF

			w11 := (fs*ft + 8) >> 4
			w10 := ft - w11
			w01 := fs - w11
			w00 := 16 - fs - ft + w11

			out[t*blockWidth+s] = (at(js, jt)*w00 + at(js+1, jt)*w01 + at(js, jt+1)*w10 + at(js+1, jt+1)*w11 + 8) >> 4
		}
	}
}

func fillAstcError(texels []byte) {
	fillColor(texels, 0xFF, 0, 0xFF, 0xFF)
}

func decodeAstcVoidExtent(b block128, texels []byte) error {
	if b.bits(9, 1) == 1 {
		fillAstcError(texels)
		return UnsupportedBlockError
	}

	fillColor(texels,
		byte(b.bits(64, 16)>>8),
		byte(b.bits(80, 16)>>8),
		byte(b.bits(96, 16)>>8),
		byte(b.bits(112, 16)>>8),
	)
	return nil
}

func expandAstcEndpoint(value int, srgb bool) int {
	if srgb {
		return value<<8 | 0x80
	}
	return value * 257
}

func decodeAstcBlock(block []byte, texels []byte, blockWidth, blockHeight int, srgb bool) error {
	b := loadBlock128(block)
	mode := int(b.bits(0, 11))
	if mode&0x1FF == 0x1FC {
		return decodeAstcVoidExtent(b, texels)
	}

	blockMode, ok := decodeAstcBlockMode(mode)
	if !ok {
		fillAstcError(texels)
		return MalformedBlockError
	}

	planes := 1
	if blockMode.dualPlane {
		planes = 2
	}
	partitions := int(b.bits(11, 2)) + 1
	weightCount := blockMode.weightWidth * blockMode.weightHeight * planes
	weightEncoding := iseEncodingFor(blockMode.weightLevels)
	weightBits := weightEncoding.bitCount(weightCount)

	if blockMode.weightWidth > blockWidth || blockMode.weightHeight > blockHeight || weightCount > 64 ||
		weightBits < 24 || weightBits > 96 || (blockMode.dualPlane && partitions == 4) {
		fillAstcError(texels)
		return MalformedBlockError
	}

	belowWeights := 128 - weightBits
	colorStart := 17
	partitionIndex := 0
	var endpointModes [4]int

	if partitions == 1 {
		endpointModes[0] = int(b.bits(13, 4))
	} else {
		colorStart = 29
		partitionIndex = int(b.bits(13, 10))
		field := int(b.bits(23, 6))

		if field&3 == 0 {
			for i := 0; i < partitions; i++ {
				endpointModes[i] = field >> 2
			}
		} else {
			extraBits := 3*partitions - 4
			belowWeights -= extraBits
			encoded := field | int(b.bits(belowWeights, extraBits))<<6
			baseClass := encoded&3 - 1
			for i := 0; i < partitions; i++ {
				class := baseClass + (encoded>>(2+i))&1
				endpointModes[i] = class<<2 | (encoded>>(2+partitions+2*i))&3
			}
		}
	}

	componentSelector := -1
	if blockMode.dualPlane {
		belowWeights -= 2
		componentSelector = int(b.bits(belowWeights, 2))
	}

	colorValueCount := 0
	for i := 0; i < partitions; i++ {
		if isHdrEndpointMode(endpointModes[i]) {
			fillAstcError(texels)
			return UnsupportedBlockError
		}
		colorValueCount += 2 * (endpointModes[i]>>2 + 1)
	}

	colorBits := belowWeights - colorStart
	if colorValueCount > 18 || colorBits <= 0 {
		fillAstcError(texels)
		return MalformedBlockError
	}

	colorLevels := 0
	for i := len(iseLevels) - 1; i >= 0; i-- {
		if iseEncodingFor(iseLevels[i]).bitCount(colorValueCount) <= colorBits {
			colorLevels = iseLevels[i]
			break
		}
	}
	if colorLevels < 6 {
		fillAstcError(texels)
		return MalformedBlockError
	}

	colorEncoding := iseEncodingFor(colorLevels)
	colorValues := decodeIse(b, colorStart, colorValueCount, colorEncoding)
	for i := range colorValues {
		colorValues[i] = unquantizeColor(colorValues[i], colorEncoding)
	}

	var endpoints [4][2][4]int
	offset := 0
	for i := 0; i < partitions; i++ {
		count := 2 * (endpointModes[i]>>2 + 1)
		e0, e1 := decodeEndpoints(endpointModes[i], colorValues[offset:offset+count])
		for c := 0; c < 4; c++ {
			endpoints[i][0][c] = expandAstcEndpoint(e0[c], srgb)
			endpoints[i][1][c] = expandAstcEndpoint(e1[c], srgb)
		}
		offset += count
	}

	rawWeights := decodeIse(b.reversed(), 0, weightCount, weightEncoding)
	for i := range rawWeights {
		rawWeights[i] = unquantizeWeight(rawWeights[i], weightEncoding)
	}

	texelCount := blockWidth * blockHeight
	var planeWeights [2][]int
	for plane := 0; plane < planes; plane++ {
		planeWeights[plane] = make([]int, texelCount)
		infillWeights(rawWeights, blockMode.weightWidth, blockMode.weightHeight, blockWidth, blockHeight, plane, planes, planeWeights[plane])
	}

	smallBlock := texelCount < 31
	for y := 0; y < blockHeight; y++ {
		for x := 0; x < blockWidth; x++ {
			i := y*blockWidth + x
			partition := astcPartition(partitionIndex, x, y, 0, partitions, smallBlock)
			endpoint := &endpoints[partition]

			for c := 0; c < 4; c++ {
				weight := planeWeights[0][i]
				if c == componentSelector {
					weight = planeWeights[1][i]
				}
				value := (endpoint[0][c]*(64-weight) + endpoint[1][c]*weight + 32) >> 6
				texels[i*4+c] = byte(value >> 8)
			}
		}
	}

	return nil
}

// DecodeAstc decodes LDR ASTC blocks of the given footprint to RGBA8. sRGB blocks keep their
// sRGB encoding in the output.
func DecodeAstc(data []byte, s Surface, blockWidth, blockHeight int, srgb bool) ([]byte, error) {
	return decodeSurface(data, s, blockWidth, blockHeight, 16, 4, func(block []byte, texels []byte) error {
		return decodeAstcBlock(block, texels, blockWidth, blockHeight, srgb)
	})
}
