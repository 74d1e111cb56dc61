package decoders

import "encoding/binary"

var etc1Modifiers = [8][2]int{
	{2, 8}, {5, 17}, {9, 29}, {13, 42},
	{18, 60}, {24, 80}, {33, 106}, {47, 183},
}

var etc2Distances = [8]int{3, 6, 11, 16, 23, 32, 41, 64}

var eacModifiers = [16][8]int{
	{-3, -6, -9, -15, 2, 5, 8, 14},
	{-3, -7, -10, -13, 2, 6, 9, 12},
	{-2, -5, -8, -13, 1, 4, 7, 12},
	{-2, -4, -6, -13, 1, 3, 5, 12},
	{-3, -6, -8, -12, 2, 5, 7, 11},
	{-3, -7, -9, -11, 2, 6, 8, 10},
	{-4, -7, -8, -11, 3, 6, 7, 10},
	{-3, -5, -8, -11, 2, 4, 7, 10},
	{-2, -6, -8, -10, 1, 5, 7, 9},
	{-2, -5, -8, -10, 1, 4, 7, 9},
	{-2, -4, -8, -10, 1, 3, 7, 9},
	{-2, -5, -7, -10, 1, 4, 6, 9},
	{-3, -4, -7, -10, 2, 3, 6, 9},
	{-1, -2, -3, -10, 0, 1, 2, 9},
	{-4, -6, -8, -9, 3, 5, 7, 8},
	{-3, -5, -7, -9, 2, 4, 6, 8},
}

func bitsAt(value uint64, high, count int) int {
	return int(value>>(high-count+1)) & ((1 << count) - 1)
}

func extend4(value int) int { return value<<4 | value }
func extend5(value int) int { return value<<3 | value>>2 }
func extend6(value int) int { return value<<2 | value>>4 }
func extend7(value int) int { return value<<1 | value>>6 }

// etc2Texel returns the texel offset in an RGBA8 4x4 footprint of the i-th pixel index, which
// ETC stores column by column
func etc2Texel(i int) int {
	x, y := i/4, i%4
	return (y*4 + x) * 4
}

func writeRgb(texels []byte, offset int, r, g, b int) {
	texels[offset] = byte(clamp255(r))
	texels[offset+1] = byte(clamp255(g))
	texels[offset+2] = byte(clamp255(b))
	texels[offset+3] = 255
}

// decodeEtc2Color decodes the 64-bit color part of an ETC2 block. With punchThrough set, bit 33
// is the opaque flag rather than the differential flag.
func decodeEtc2Color(block []byte, texels []byte, punchThrough bool) {
	value := binary.BigEndian.Uint64(block)
	flagBit := int(value>>33) & 1
	opaque := !punchThrough || flagBit == 1
	differential := punchThrough || flagBit == 1

	indices := uint32(value)
	pixelIndex := func(i int) int {
		return int((indices>>(16+i))&1)<<1 | int((indices>>i)&1)
	}

	if differential {
		r := bitsAt(value, 63, 5)
		g := bitsAt(value, 55, 5)
		b := bitsAt(value, 47, 5)
		dr := signExtend(bitsAt(value, 58, 3), 3)
		dg := signExtend(bitsAt(value, 50, 3), 3)
		db := signExtend(bitsAt(value, 42, 3), 3)

		switch {
		case r+dr < 0 || r+dr > 31:
			decodeEtc2T(value, texels, pixelIndex, opaque)
			return
		case g+dg < 0 || g+dg > 31:
			decodeEtc2H(value, texels, pixelIndex, opaque)
			return
		case b+db < 0 || b+db > 31:
			decodeEtc2Planar(value, texels)
			return
		}

		base := [2][3]int{
			{extend5(r), extend5(g), extend5(b)},
			{extend5(r + dr), extend5(g + dg), extend5(b + db)},
		}
		decodeEtc1Subblocks(value, texels, base, pixelIndex, opaque)
		return
	}

	base := [2][3]int{
		{extend4(bitsAt(value, 63, 4)), extend4(bitsAt(value, 55, 4)), extend4(bitsAt(value, 47, 4))},
		{extend4(bitsAt(value, 59, 4)), extend4(bitsAt(value, 51, 4)), extend4(bitsAt(value, 43, 4))},
	}
	decodeEtc1Subblocks(value, texels, base, pixelIndex, true)
}

func decodeEtc1Subblocks(value uint64, texels []byte, base [2][3]int, pixelIndex func(int) int, opaque bool) {
	tables := [2]int{bitsAt(value, 39, 3), bitsAt(value, 36, 3)}
	flip := value>>32&1 == 1

	for i := 0; i < 16; i++ {
		x, y := i/4, i%4
		subblock := 0
		if (!flip && x >= 2) || (flip && y >= 2) {
			subblock = 1
		}

		index := pixelIndex(i)
		modifiers := etc1Modifiers[tables[subblock]]

		var modifier int
		switch index {
		case 0:
			modifier = modifiers[0]
		case 1:
			modifier = modifiers[1]
		case 2:
			modifier = -modifiers[0]
		case 3:
			modifier = -modifiers[1]
		}

		offset := etc2Texel(i)
		if !opaque {
			if index == 2 {
				texels[offset], texels[offset+1], texels[offset+2], texels[offset+3] = 0, 0, 0, 0
				continue
			}
			if index == 0 {
				modifier = 0
			}
		}

		color := base[subblock]
		writeRgb(texels, offset, color[0]+modifier, color[1]+modifier, color[2]+modifier)
	}
}

func writePaint(texels []byte, paint [4][3]int, pixelIndex func(int) int, opaque bool) {
	for i := 0; i < 16; i++ {
		index := pixelIndex(i)
		offset := etc2Texel(i)
		if !opaque && index == 2 {
			texels[offset], texels[offset+1], texels[offset+2], texels[offset+3] = 0, 0, 0, 0
			continue
		}
		writeRgb(texels, offset, paint[index][0], paint[index][1], paint[index][2])
	}
}

func decodeEtc2T(value uint64, texels []byte, pixelIndex func(int) int, opaque bool) {
	r1 := extend4(bitsAt(value, 60, 2)<<2 | bitsAt(value, 57, 2))
	g1 := extend4(bitsAt(value, 55, 4))
	b1 := extend4(bitsAt(value, 51, 4))
	r2 := extend4(bitsAt(value, 47, 4))
	g2 := extend4(bitsAt(value, 43, 4))
	b2 := extend4(bitsAt(value, 39, 4))
	distance := etc2Distances[bitsAt(value, 35, 2)<<1|bitsAt(value, 32, 1)]

	paint := [4][3]int{
		{r1, g1, b1},
		{r2 + distance, g2 + distance, b2 + distance},
		{r2, g2, b2},
		{r2 - distance, g2 - distance, b2 - distance},
	}
	writePaint(texels, paint, pixelIndex, opaque)
}

func decodeEtc2H(value uint64, texels []byte, pixelIndex func(int) int, opaque bool) {
	r1 := bitsAt(value, 62, 4)
	g1 := bitsAt(value, 58, 3)<<1 | bitsAt(value, 52, 1)
	b1 := bitsAt(value, 51, 1)<<3 | bitsAt(value, 49, 3)
	r2 := bitsAt(value, 46, 4)
	g2 := bitsAt(value, 42, 4)
	b2 := bitsAt(value, 38, 4)

	distanceIndex := bitsAt(value, 34, 1)<<2 | bitsAt(value, 32, 1)<<1
	if r1<<8|g1<<4|b1 >= r2<<8|g2<<4|b2 {
		distanceIndex |= 1
	}
	distance := etc2Distances[distanceIndex]

	r1, g1, b1 = extend4(r1), extend4(g1), extend4(b1)
	r2, g2, b2 = extend4(r2), extend4(g2), extend4(b2)

	paint := [4][3]int{
		{r1 + distance, g1 + distance, b1 + distance},
		{r1 - distance, g1 - distance, b1 - distance},
		{r2 + distance, g2 + distance, b2 + distance},
		{r2 - distance, g2 - distance, b2 - distance},
	}
	writePaint(texels, paint, pixelIndex, opaque)
}

func decodeEtc2Planar(value uint64, texels []byte) {
	rO := extend6(bitsAt(value, 62, 6))
	gO := extend7(bitsAt(value, 56, 1)<<6 | bitsAt(value, 54, 6))
	bO := extend6(bitsAt(value, 48, 1)<<5 | bitsAt(value, 44, 2)<<3 | bitsAt(value, 41, 3))
	rh := extend6(bitsAt(value, 38, 5)<<1 | bitsAt(value, 32, 1))
	gh := extend7(bitsAt(value, 31, 7))
	bh := extend6(bitsAt(value, 24, 6))
	rv := extend6(bitsAt(value, 18, 6))
	gv := extend7(bitsAt(value, 12, 7))
	bv := extend6(bitsAt(value, 5, 6))

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			offset := (y*4 + x) * 4
			writeRgb(texels, offset,
				(x*(rh-rO)+y*(rv-rO)+4*rO+2)>>2,
				(x*(gh-gO)+y*(gv-gO)+4*gO+2)>>2,
				(x*(bh-bO)+y*(bv-bO)+4*bO+2)>>2,
			)
		}
	}
}

// decodeEacAlpha writes the 8-bit EAC channel to out[texel*stride]
func decodeEacAlpha(block []byte, out []byte, stride int) {
	value := binary.BigEndian.Uint64(block)
	base := bitsAt(value, 63, 8)
	multiplier := bitsAt(value, 55, 4)
	modifiers := eacModifiers[bitsAt(value, 51, 4)]

	for i := 0; i < 16; i++ {
		index := bitsAt(value, 47-3*i, 3)
		x, y := i/4, i%4
		out[(y*4+x)*stride] = byte(clamp255(base + modifiers[index]*multiplier))
	}
}

// DecodeEtc2Rgb decodes opaque ETC2 RGB blocks to RGBA8
func DecodeEtc2Rgb(data []byte, s Surface) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 8, 4, func(block []byte, texels []byte) error {
		decodeEtc2Color(block, texels, false)
		return nil
	})
}

// DecodeEtc2Pta decodes ETC2 RGB blocks with punch-through alpha to RGBA8
func DecodeEtc2Pta(data []byte, s Surface) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 8, 4, func(block []byte, texels []byte) error {
		decodeEtc2Color(block, texels, true)
		return nil
	})
}

// DecodeEtc2Rgba decodes ETC2 RGB blocks with an EAC alpha block to RGBA8
func DecodeEtc2Rgba(data []byte, s Surface) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 16, 4, func(block []byte, texels []byte) error {
		decodeEtc2Color(block[8:], texels, false)
		decodeEacAlpha(block, texels[3:], 4)
		return nil
	})
}
