package decoders

// ConvertR4G4ToR4G4B4A4 widens 8-bit R4G4 texels to R4G4B4A4 with zero blue and opaque alpha
func ConvertR4G4ToR4G4B4A4(data []byte) []byte {
	output := make([]byte, len(data)*2)
	for i, value := range data {
		packed := uint16(value)<<8 | 0x000F
		output[i*2] = byte(packed)
		output[i*2+1] = byte(packed >> 8)
	}
	return output
}

// ConvertR4G4B4A4ToR4G4 narrows R4G4B4A4 texels back to R4G4, dropping blue and alpha
func ConvertR4G4B4A4ToR4G4(data []byte) []byte {
	output := make([]byte, len(data)/2)
	for i := range output {
		output[i] = data[i*2+1]
	}
	return output
}

// PackedLayout names one of the 16-bit packed color layouts
type PackedLayout int

const (
	// PackedB5G6R5 stores blue in the top five bits and red in the bottom five
	PackedB5G6R5 PackedLayout = iota
	// PackedB5G5R5A1 stores alpha in bit 0
	PackedB5G5R5A1
	// PackedA1B5G5R5 stores alpha in bit 15
	PackedA1B5G5R5
)

func expand5(value uint16) byte {
	return byte(value<<3 | value>>2)
}

func expand6(value uint16) byte {
	return byte(value<<2 | value>>4)
}

func reduce(value byte, maximum int) uint16 {
	return uint16((int(value)*maximum + 127) / 255)
}

// ConvertPacked16ToRgba8 expands 16-bit packed texels to RGBA8
func ConvertPacked16ToRgba8(data []byte, layout PackedLayout) []byte {
	count := len(data) / 2
	output := make([]byte, count*4)

	for i := 0; i < count; i++ {
		value := uint16(data[i*2]) | uint16(data[i*2+1])<<8
		var r, g, b, a byte

		switch layout {
		case PackedB5G6R5:
			r = expand5(value & 0x1F)
			g = expand6((value >> 5) & 0x3F)
			b = expand5(value >> 11)
			a = 0xFF
		case PackedB5G5R5A1:
			r = expand5((value >> 1) & 0x1F)
			g = expand5((value >> 6) & 0x1F)
			b = expand5(value >> 11)
			a = byte(value&1) * 0xFF
		case PackedA1B5G5R5:
			r = expand5(value & 0x1F)
			g = expand5((value >> 5) & 0x1F)
			b = expand5((value >> 10) & 0x1F)
			a = byte(value>>15) * 0xFF
		}

		output[i*4] = r
		output[i*4+1] = g
		output[i*4+2] = b
		output[i*4+3] = a
	}

	return output
}

// ConvertRgba8ToPacked16 reduces RGBA8 texels to a 16-bit packed layout
func ConvertRgba8ToPacked16(data []byte, layout PackedLayout) []byte {
	count := len(data) / 4
	output := make([]byte, count*2)

	for i := 0; i < count; i++ {
		r, g, b, a := data[i*4], data[i*4+1], data[i*4+2], data[i*4+3]
		var value uint16

		switch layout {
		case PackedB5G6R5:
			value = reduce(r, 31) | reduce(g, 63)<<5 | reduce(b, 31)<<11
		case PackedB5G5R5A1:
			value = reduce(r, 31)<<1 | reduce(g, 31)<<6 | reduce(b, 31)<<11
			if a >= 0x80 {
				value |= 1
			}
		case PackedA1B5G5R5:
			value = reduce(r, 31) | reduce(g, 31)<<5 | reduce(b, 31)<<10
			if a >= 0x80 {
				value |= 1 << 15
			}
		}

		output[i*2] = byte(value)
		output[i*2+1] = byte(value >> 8)
	}

	return output
}
