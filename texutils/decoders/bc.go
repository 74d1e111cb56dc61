package decoders

import "encoding/binary"

func rgb565(value uint16) (int, int, int) {
	return int(expand5(value >> 11)), int(expand6((value >> 5) & 0x3F)), int(expand5(value & 0x1F))
}

// decodeBc1Colors writes the 16 RGBA texels of a BC1 color block. BC2 and BC3 always use
// the four color palette, so the punch-through mode applies only when standalone is set.
func decodeBc1Colors(block []byte, texels []byte, standalone bool) {
	c0 := binary.LittleEndian.Uint16(block[0:])
	c1 := binary.LittleEndian.Uint16(block[2:])
	indices := binary.LittleEndian.Uint32(block[4:])

	var palette [4][4]int
	r0, g0, b0 := rgb565(c0)
	r1, g1, b1 := rgb565(c1)
	palette[0] = [4]int{r0, g0, b0, 255}
	palette[1] = [4]int{r1, g1, b1, 255}

	if c0 > c1 || !standalone {
		palette[2] = [4]int{(2*r0 + r1) / 3, (2*g0 + g1) / 3, (2*b0 + b1) / 3, 255}
		palette[3] = [4]int{(r0 + 2*r1) / 3, (g0 + 2*g1) / 3, (b0 + 2*b1) / 3, 255}
	} else {
		palette[2] = [4]int{(r0 + r1) / 2, (g0 + g1) / 2, (b0 + b1) / 2, 255}
		palette[3] = [4]int{0, 0, 0, 0}
	}

	for i := 0; i < 16; i++ {
		color := palette[(indices>>(2*i))&3]
		texels[i*4] = byte(color[0])
		texels[i*4+1] = byte(color[1])
		texels[i*4+2] = byte(color[2])
		texels[i*4+3] = byte(color[3])
	}
}

// decodeAlphaBlock decodes the interpolated 8-bit channel shared by BC3 alpha, BC4 and BC5,
// writing each value at out[i*stride]
func decodeAlphaBlock(block []byte, out []byte, stride int, signed bool) {
	var palette [8]int

	if signed {
		a0, a1 := int(int8(block[0])), int(int8(block[1]))
		a0, a1 = max(a0, -127), max(a1, -127)
		palette[0], palette[1] = a0, a1
		if a0 > a1 {
			for i := 1; i < 7; i++ {
				palette[i+1] = ((7-i)*a0 + i*a1) / 7
			}
		} else {
			for i := 1; i < 5; i++ {
				palette[i+1] = ((5-i)*a0 + i*a1) / 5
			}
			palette[6], palette[7] = -127, 127
		}
		// signed channels are remapped into the unsigned range of the decoded format
		for i := range palette {
			palette[i] = ((palette[i]+127)*255 + 127) / 254
		}
	} else {
		a0, a1 := int(block[0]), int(block[1])
		palette[0], palette[1] = a0, a1
		if a0 > a1 {
			for i := 1; i < 7; i++ {
				palette[i+1] = ((7-i)*a0 + i*a1) / 7
			}
		} else {
			for i := 1; i < 5; i++ {
				palette[i+1] = ((5-i)*a0 + i*a1) / 5
			}
			palette[6], palette[7] = 0, 255
		}
	}

	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(block[2+i]) << (8 * i)
	}

	for i := 0; i < 16; i++ {
		out[i*stride] = byte(palette[(bits>>(3*i))&7])
	}
}

// DecodeBc1 decodes BC1 blocks to RGBA8
func DecodeBc1(data []byte, s Surface) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 8, 4, func(block []byte, texels []byte) error {
		decodeBc1Colors(block, texels, true)
		return nil
	})
}

// DecodeBc2 decodes BC2 blocks, with explicit 4-bit alpha, to RGBA8
func DecodeBc2(data []byte, s Surface) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 16, 4, func(block []byte, texels []byte) error {
		decodeBc1Colors(block[8:], texels, false)

		alpha := binary.LittleEndian.Uint64(block)
		for i := 0; i < 16; i++ {
			texels[i*4+3] = byte((alpha>>(4*i))&0xF) * 0x11
		}
		return nil
	})
}

// DecodeBc3 decodes BC3 blocks, with interpolated alpha, to RGBA8
func DecodeBc3(data []byte, s Surface) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 16, 4, func(block []byte, texels []byte) error {
		decodeBc1Colors(block[8:], texels, false)
		decodeAlphaBlock(block, texels[3:], 4, false)
		return nil
	})
}

// DecodeBc4 decodes single channel BC4 blocks to R8
func DecodeBc4(data []byte, s Surface, signed bool) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 8, 1, func(block []byte, texels []byte) error {
		decodeAlphaBlock(block, texels, 1, signed)
		return nil
	})
}

// DecodeBc5 decodes two channel BC5 blocks to RG8
func DecodeBc5(data []byte, s Surface, signed bool) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 16, 2, func(block []byte, texels []byte) error {
		decodeAlphaBlock(block, texels, 2, signed)
		decodeAlphaBlock(block[8:], texels[1:], 2, signed)
		return nil
	})
}
