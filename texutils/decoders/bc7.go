package decoders

import (
	"math/bits"

	"github.com/vkngwrapper/texcache/texutils"
)

type bc7Mode struct {
	subsets            int
	partitionBits      int
	rotationBits       int
	indexSelectionBits int
	colorBits          int
	alphaBits          int
	endpointPBits      int
	sharedPBits        int
	indexBits          int
	secondaryIndexBits int
}

var bc7Modes = [8]bc7Mode{
	{subsets: 3, partitionBits: 4, colorBits: 4, endpointPBits: 1, indexBits: 3},
	{subsets: 2, partitionBits: 6, colorBits: 6, sharedPBits: 1, indexBits: 3},
	{subsets: 3, partitionBits: 6, colorBits: 5, indexBits: 2},
	{subsets: 2, partitionBits: 6, colorBits: 7, endpointPBits: 1, indexBits: 2},
	{subsets: 1, rotationBits: 2, indexSelectionBits: 1, colorBits: 5, alphaBits: 6, indexBits: 2, secondaryIndexBits: 3},
	{subsets: 1, rotationBits: 2, colorBits: 7, alphaBits: 8, indexBits: 2, secondaryIndexBits: 2},
	{subsets: 1, colorBits: 7, alphaBits: 7, endpointPBits: 1, indexBits: 4},
	{subsets: 2, partitionBits: 6, colorBits: 5, alphaBits: 5, endpointPBits: 1, indexBits: 2},
}

func expandBits(value, count int) int {
	value <<= 8 - count
	return value | value>>count
}

func decodeBc7Block(block []byte, texels []byte) error {
	modeIndex := bits.TrailingZeros8(block[0])
	if modeIndex >= len(bc7Modes) {
		fillColor(texels, 0, 0, 0, 0)
		return MalformedBlockError
	}

	mode := &bc7Modes[modeIndex]
	r := bitReader{block: loadBlock128(block), pos: modeIndex + 1}

	partition := r.read(mode.partitionBits)
	rotation := r.read(mode.rotationBits)
	indexSelection := r.read(mode.indexSelectionBits)

	var endpoints [6][4]int
	endpointCount := mode.subsets * 2

	for c := 0; c < 3; c++ {
		for e := 0; e < endpointCount; e++ {
			endpoints[e][c] = r.read(mode.colorBits)
		}
	}
	if mode.alphaBits > 0 {
		for e := 0; e < endpointCount; e++ {
			endpoints[e][3] = r.read(mode.alphaBits)
		}
	}

	colorBits, alphaBits := mode.colorBits, mode.alphaBits
	if mode.endpointPBits > 0 || mode.sharedPBits > 0 {
		for e := 0; e < endpointCount; e++ {
			if mode.endpointPBits > 0 || e%2 == 0 {
				p := r.read(1)
				for c := 0; c < 4; c++ {
					endpoints[e][c] = endpoints[e][c]<<1 | p
					if mode.sharedPBits > 0 {
						endpoints[e+1][c] = endpoints[e+1][c]<<1 | p
					}
				}
			}
		}
		colorBits++
		if alphaBits > 0 {
			alphaBits++
		}
	}

	for e := 0; e < endpointCount; e++ {
		for c := 0; c < 3; c++ {
			endpoints[e][c] = expandBits(endpoints[e][c], colorBits)
		}
		if alphaBits > 0 {
			endpoints[e][3] = expandBits(endpoints[e][3], alphaBits)
		} else {
			endpoints[e][3] = 255
		}
	}

	var indices, secondary [16]int
	for i := 0; i < 16; i++ {
		count := mode.indexBits
		if isAnchor(mode.subsets, partition, i) {
			count--
		}
		indices[i] = r.read(count)
	}
	if mode.secondaryIndexBits > 0 {
		for i := 0; i < 16; i++ {
			count := mode.secondaryIndexBits
			if i == 0 {
				count--
			}
			secondary[i] = r.read(count)
		}
	}

	weights := interpolationWeights(mode.indexBits)
	secondaryWeights := interpolationWeights(mode.secondaryIndexBits)

	for i := 0; i < 16; i++ {
		subset := subsetOf(mode.subsets, partition, i)
		e0, e1 := &endpoints[subset*2], &endpoints[subset*2+1]

		colorWeight := weights[indices[i]]
		alphaWeight := colorWeight
		if mode.secondaryIndexBits > 0 {
			alphaWeight = secondaryWeights[secondary[i]]
			if indexSelection == 1 {
				colorWeight, alphaWeight = alphaWeight, colorWeight
			}
		}

		var color [4]int
		for c := 0; c < 3; c++ {
			color[c] = interpolate(e0[c], e1[c], colorWeight)
		}
		color[3] = interpolate(e0[3], e1[3], alphaWeight)

		if rotation > 0 {
			color[rotation-1], color[3] = color[3], color[rotation-1]
		}

		texels[i*4] = byte(color[0])
		texels[i*4+1] = byte(color[1])
		texels[i*4+2] = byte(color[2])
		texels[i*4+3] = byte(color[3])
	}

	return nil
}

// DecodeBc7 decodes BC7 blocks to RGBA8
func DecodeBc7(data []byte, s Surface) ([]byte, error) {
	return decodeSurface(data, s, 4, 4, 16, 4, decodeBc7Block)
}

type bc7Mode6Candidate struct {
	q0, q1   [4]int
	p0, p1   int
	indices  [16]int
	sumError int
}

func quantizeWithPBit(value, p int) int {
	return max(0, min(127, (value-p+1)>>1))
}

// fit picks the nearest interpolation index of every texel for the candidate's endpoints
func (c *bc7Mode6Candidate) fit(texels []byte) {
	var e0, e1 [4]int
	for ch := 0; ch < 4; ch++ {
		e0[ch] = c.q0[ch]<<1 | c.p0
		e1[ch] = c.q1[ch]<<1 | c.p1
	}

	axisLength := 0
	for ch := 0; ch < 4; ch++ {
		axisLength += (e1[ch] - e0[ch]) * (e1[ch] - e0[ch])
	}

	c.sumError = 0
	for i := 0; i < 16; i++ {
		guess := 0
		if axisLength > 0 {
			projection := 0
			for ch := 0; ch < 4; ch++ {
				projection += (int(texels[i*4+ch]) - e0[ch]) * (e1[ch] - e0[ch])
			}
			guess = max(0, min(15, (projection*30+axisLength)/(2*axisLength)))
		}

		best, bestError := guess, -1
		for candidate := max(0, guess-1); candidate <= min(15, guess+1); candidate++ {
			weight := interpolationWeights4[candidate]
			errorSum := 0
			for ch := 0; ch < 4; ch++ {
				delta := interpolate(e0[ch], e1[ch], weight) - int(texels[i*4+ch])
				errorSum += delta * delta
			}
			if bestError < 0 || errorSum < bestError {
				best, bestError = candidate, errorSum
			}
		}

		c.indices[i] = best
		c.sumError += bestError
	}
}

// encodeBc7Mode6 compresses 16 RGBA8 texels with a single subset, 7-bit endpoints with p-bits
// and 4-bit indices. Endpoints span the bounding box, oriented along the dominant channel.
func encodeBc7Mode6(texels []byte) block128 {
	var lo, hi, sum [4]int
	for ch := 0; ch < 4; ch++ {
		lo[ch], hi[ch] = 255, 0
	}
	for i := 0; i < 16; i++ {
		for ch := 0; ch < 4; ch++ {
			value := int(texels[i*4+ch])
			lo[ch] = min(lo[ch], value)
			hi[ch] = max(hi[ch], value)
			sum[ch] += value
		}
	}

	dominant := 0
	for ch := 1; ch < 4; ch++ {
		if hi[ch]-lo[ch] > hi[dominant]-lo[dominant] {
			dominant = ch
		}
	}

	start, end := lo, hi
	for ch := 0; ch < 4; ch++ {
		if ch == dominant {
			continue
		}
		covariance := 0
		for i := 0; i < 16; i++ {
			covariance += (16*int(texels[i*4+dominant]) - sum[dominant]) * (16*int(texels[i*4+ch]) - sum[ch])
		}
		if covariance < 0 {
			start[ch], end[ch] = hi[ch], lo[ch]
		}
	}

	var best bc7Mode6Candidate
	best.sumError = -1
	for p0 := 0; p0 < 2; p0++ {
		for p1 := 0; p1 < 2; p1++ {
			candidate := bc7Mode6Candidate{p0: p0, p1: p1}
			for ch := 0; ch < 4; ch++ {
				candidate.q0[ch] = quantizeWithPBit(start[ch], p0)
				candidate.q1[ch] = quantizeWithPBit(end[ch], p1)
			}
			candidate.fit(texels)

			if best.sumError < 0 || candidate.sumError < best.sumError {
				best = candidate
			}
		}
	}

	// the anchor texel index has an implicit zero high bit
	if best.indices[0] >= 8 {
		best.q0, best.q1 = best.q1, best.q0
		best.p0, best.p1 = best.p1, best.p0
		for i := range best.indices {
			best.indices[i] = 15 - best.indices[i]
		}
	}

	w := bitWriter{}
	w.write(1<<6, 7)
	for ch := 0; ch < 4; ch++ {
		w.write(best.q0[ch], 7)
		w.write(best.q1[ch], 7)
	}
	w.write(best.p0, 1)
	w.write(best.p1, 1)
	w.write(best.indices[0], 3)
	for i := 1; i < 16; i++ {
		w.write(best.indices[i], 4)
	}

	return w.block
}

// EncodeBc7 compresses an RGBA8 surface to BC7. Partial edge blocks replicate the last row and column.
func EncodeBc7(data []byte, s Surface) []byte {
	output := make([]byte, s.BlockCount(4, 4)*16)
	var texels [64]byte

	inOffset, outOffset := 0, 0
	for level := 0; level < s.levelCount(); level++ {
		width := texutils.LevelSize(s.Width, level)
		height := texutils.LevelSize(s.Height, level)
		slices := s.levelDepth(level) * s.layerCount()

		for slice := 0; slice < slices; slice++ {
			for by := 0; by < height; by += 4 {
				for bx := 0; bx < width; bx += 4 {
					for y := 0; y < 4; y++ {
						py := min(by+y, height-1)
						for x := 0; x < 4; x++ {
							px := min(bx+x, width-1)
							src := inOffset + (py*width+px)*4
							if src+4 <= len(data) {
								copy(texels[(y*4+x)*4:], data[src:src+4])
							}
						}
					}

					encodeBc7Mode6(texels[:]).store(output[outOffset:])
					outOffset += 16
				}
			}
			inOffset += width * height * 4
		}
	}

	return output
}
