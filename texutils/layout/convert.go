package layout

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/texcache/texutils"
)

// gobOffset returns the position of a byte within a GOB: 16-byte runs are arranged in a
// 2x4 pattern of 32-byte halves
func gobOffset(x, y int) int {
	return ((x&0x3f)>>5)<<8 |
		((y&7)>>1)<<6 |
		((x&0x1f)>>4)<<5 |
		(y&1)<<4 |
		(x & 0xf)
}

type blockLinearLayout struct {
	gobBlocksInY int
	gobBlocksInZ int
	gobsPerBlock int
	robSize      int
	sliceSize    int
}

func newBlockLinearLayout(widthInBlocks, heightInBlocks, bytesPerPixel, gobBlocksInY, gobBlocksInZ, gobBlocksInTileX int) blockLinearLayout {
	widthInGobs := alignedWidthInGobs(widthInBlocks, bytesPerPixel, gobBlocksInTileX)
	robSize := GobSize * gobBlocksInY * gobBlocksInZ * widthInGobs
	alignedHeight := texutils.AlignUp(heightInBlocks, uint(gobBlocksInY*GobHeight))

	return blockLinearLayout{
		gobBlocksInY: gobBlocksInY,
		gobBlocksInZ: gobBlocksInZ,
		gobsPerBlock: gobBlocksInY * gobBlocksInZ,
		robSize:      robSize,
		sliceSize:    robSize * (alignedHeight / (gobBlocksInY * GobHeight)),
	}
}

func (l *blockLinearLayout) offset(x, y, z int) int {
	offset := (z/l.gobBlocksInZ)*l.sliceSize + (y/(GobHeight*l.gobBlocksInY))*l.robSize
	offset += (x / GobStride) * GobSize * l.gobsPerBlock
	offset += ((y / GobHeight) % l.gobBlocksInY) * GobSize
	offset += (z % l.gobBlocksInZ) * GobSize * l.gobBlocksInY

	return offset + gobOffset(x, y)
}

func (p *Params) levelLayout(level int) blockLinearLayout {
	width, height, depth := p.LevelExtents(level)
	gobBlocksInY, gobBlocksInZ := MipGobBlocks(height, depth, p.GobBlocksInY, p.GobBlocksInZ)
	return newBlockLinearLayout(width, height, p.BytesPerPixel, gobBlocksInY, gobBlocksInZ, p.GobBlocksInTileX)
}

func (p *Params) validate() error {
	if p.BytesPerPixel <= 0 || p.BlockWidth <= 0 || p.BlockHeight <= 0 {
		return errors.Newf("invalid texel block %dx%d with %d bytes", p.BlockWidth, p.BlockHeight, p.BytesPerPixel)
	}
	if !p.IsLinear {
		if err := texutils.CheckPow2(p.GobBlocksInY, "gobBlocksInY"); err != nil {
			return err
		}
		if err := texutils.CheckPow2(p.GobBlocksInZ, "gobBlocksInZ"); err != nil {
			return err
		}
		if p.GobBlocksInY < 1 || p.GobBlocksInZ < 1 {
			return errors.Newf("gob block counts must be positive, got %dx%d", p.GobBlocksInY, p.GobBlocksInZ)
		}
	}
	return nil
}

// guestSubImageOffset is the offset of a (layer, level) sub-image relative to the start of firstLevel
// in layer 0
func guestSubImageOffset(sizeInfo *SizeInfo, firstLevel, layer, level int) int {
	return layer*sizeInfo.LayerSize + sizeInfo.GetMipOffset(level) - sizeInfo.GetMipOffset(firstLevel)
}

func padTo(data []byte, size int) []byte {
	if len(data) >= size {
		return data
	}
	padded := make([]byte, size)
	copy(padded, data)
	return padded
}

// ConvertBlockLinearToLinear detiles levels mip levels (starting at firstLevel) of layers layers from
// guest block linear data into a freshly allocated host linear buffer. The input is never modified.
// Data must begin at firstLevel of the first layer.
func ConvertBlockLinearToLinear(p Params, sizeInfo *SizeInfo, firstLevel, levels, layers int, data []byte) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	lastLevel := firstLevel + levels - 1
	required := guestSubImageOffset(sizeInfo, firstLevel, layers-1, lastLevel) + BlockLinearLevelSize(&p, lastLevel)
	data = padTo(data, required)

	output := make([]byte, p.HostSize(firstLevel, levels, layers))
	outOffset := 0
	bpp := p.BytesPerPixel

	for level := firstLevel; level <= lastLevel; level++ {
		width, height, depth := p.LevelExtents(level)
		levelLayout := p.levelLayout(level)
		rowSize := width * bpp

		for layer := 0; layer < layers; layer++ {
			inBase := guestSubImageOffset(sizeInfo, firstLevel, layer, level)

			for z := 0; z < depth; z++ {
				for y := 0; y < height; y++ {
					for x := 0; x < rowSize; x += bpp {
						inOffset := inBase + levelLayout.offset(x, y, z)
						copy(output[outOffset:outOffset+bpp], data[inOffset:inOffset+bpp])
						outOffset += bpp
					}
				}
			}
		}
	}

	return output, nil
}

// ConvertLinearToBlockLinear is the inverse of ConvertBlockLinearToLinear: it tiles host linear data
// back into output, which holds guest memory beginning at firstLevel of the first layer.
func ConvertLinearToBlockLinear(output []byte, p Params, sizeInfo *SizeInfo, firstLevel, levels, layers int, data []byte) error {
	if err := p.validate(); err != nil {
		return err
	}

	expected := p.HostSize(firstLevel, levels, layers)
	if len(data) < expected {
		return errors.Wrapf(texutils.LayoutMismatchError, "host data is %d bytes, layout requires %d", len(data), expected)
	}

	lastLevel := firstLevel + levels - 1
	required := guestSubImageOffset(sizeInfo, firstLevel, layers-1, lastLevel) + BlockLinearLevelSize(&p, lastLevel)
	if len(output) < required {
		return errors.Wrapf(texutils.LayoutMismatchError, "guest region is %d bytes, layout requires %d", len(output), required)
	}

	inOffset := 0
	bpp := p.BytesPerPixel

	for level := firstLevel; level <= lastLevel; level++ {
		width, height, depth := p.LevelExtents(level)
		levelLayout := p.levelLayout(level)
		rowSize := width * bpp

		for layer := 0; layer < layers; layer++ {
			outBase := guestSubImageOffset(sizeInfo, firstLevel, layer, level)

			for z := 0; z < depth; z++ {
				for y := 0; y < height; y++ {
					for x := 0; x < rowSize; x += bpp {
						outOffset := outBase + levelLayout.offset(x, y, z)
						copy(output[outOffset:outOffset+bpp], data[inOffset:inOffset+bpp])
						inOffset += bpp
					}
				}
			}
		}
	}

	return nil
}

// ConvertLinearStridedToLinear removes the row padding of a pitch linear texture
func ConvertLinearStridedToLinear(width, height, blockWidth, blockHeight, stride, bytesPerPixel int, data []byte) []byte {
	width = texutils.DivRoundUp(width, blockWidth)
	height = texutils.DivRoundUp(height, blockHeight)

	outStride := width * bytesPerPixel
	data = padTo(data, stride*(height-1)+outStride)
	output := make([]byte, outStride*height)

	for y := 0; y < height; y++ {
		copy(output[y*outStride:(y+1)*outStride], data[y*stride:y*stride+outStride])
	}

	return output
}

// ConvertLinearToLinearStrided writes tightly packed rows into a pitch linear guest region
func ConvertLinearToLinearStrided(output []byte, width, height, blockWidth, blockHeight, stride, bytesPerPixel int, data []byte) error {
	width = texutils.DivRoundUp(width, blockWidth)
	height = texutils.DivRoundUp(height, blockHeight)

	inStride := width * bytesPerPixel
	if len(data) < inStride*height {
		return errors.Wrapf(texutils.LayoutMismatchError, "host data is %d bytes, layout requires %d", len(data), inStride*height)
	}
	if len(output) < stride*(height-1)+inStride {
		return errors.Wrapf(texutils.LayoutMismatchError, "guest region is %d bytes, layout requires %d", len(output), stride*(height-1)+inStride)
	}

	for y := 0; y < height; y++ {
		copy(output[y*stride:y*stride+inStride], data[y*inStride:(y+1)*inStride])
	}

	return nil
}
