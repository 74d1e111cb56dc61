package decoders

import (
	"fmt"

	"github.com/vkngwrapper/texcache/texutils"
)

// Surface describes the mip chain being transcoded. Input data holds every level in turn, and each
// level holds Layers*depth slices of tightly packed block rows.
type Surface struct {
	Width  int
	Height int
	// Depth is the slice count of a 3D texture; 0 or 1 for everything else
	Depth  int
	Levels int
	Layers int
}

func (s Surface) levelDepth(level int) int {
	return texutils.LevelSize(max(s.Depth, 1), level)
}

func (s Surface) levelCount() int {
	return max(s.Levels, 1)
}

func (s Surface) layerCount() int {
	return max(s.Layers, 1)
}

// TexelCount returns the number of texels across all levels, layers and slices of the surface
func (s Surface) TexelCount() int {
	count := 0
	for level := 0; level < s.levelCount(); level++ {
		width := texutils.LevelSize(s.Width, level)
		height := texutils.LevelSize(s.Height, level)
		count += width * height * s.levelDepth(level) * s.layerCount()
	}
	return count
}

// BlockCount returns the number of compressed blocks of the given footprint the surface occupies
func (s Surface) BlockCount(blockWidth, blockHeight int) int {
	count := 0
	for level := 0; level < s.levelCount(); level++ {
		width := texutils.DivRoundUp(texutils.LevelSize(s.Width, level), blockWidth)
		height := texutils.DivRoundUp(texutils.LevelSize(s.Height, level), blockHeight)
		count += width * height * s.levelDepth(level) * s.layerCount()
	}
	return count
}

// BlockError reports that some blocks of a surface could not be decoded. The decoded output is still
// complete: failing blocks are filled with the format's error color.
type BlockError struct {
	Count int
	First error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%d block(s) failed to decode, first: %v", e.Count, e.First)
}

func (e *BlockError) Unwrap() error {
	return e.First
}

func (e *BlockError) add(err error) *BlockError {
	if e == nil {
		return &BlockError{Count: 1, First: err}
	}
	e.Count++
	return e
}

// result avoids returning a typed nil through the error interface
func (e *BlockError) result() error {
	if e == nil {
		return nil
	}
	return e
}

type blockDecoder func(block []byte, texels []byte) error

// decodeSurface walks every block of a surface, decodes it into a blockWidth x blockHeight texel
// footprint and copies the visible part into the output
func decodeSurface(data []byte, s Surface, blockWidth, blockHeight, blockBytes, outBpp int, decode blockDecoder) ([]byte, error) {
	output := make([]byte, s.TexelCount()*outBpp)
	texels := make([]byte, blockWidth*blockHeight*outBpp)
	empty := make([]byte, blockBytes)

	var blockErr *BlockError
	inOffset, outOffset := 0, 0
	blockStride := blockWidth * outBpp

	for level := 0; level < s.levelCount(); level++ {
		width := texutils.LevelSize(s.Width, level)
		height := texutils.LevelSize(s.Height, level)
		widthInBlocks := texutils.DivRoundUp(width, blockWidth)
		heightInBlocks := texutils.DivRoundUp(height, blockHeight)
		slices := s.levelDepth(level) * s.layerCount()

		for slice := 0; slice < slices; slice++ {
			for by := 0; by < heightInBlocks; by++ {
				for bx := 0; bx < widthInBlocks; bx++ {
					block := empty
					if inOffset+blockBytes <= len(data) {
						block = data[inOffset : inOffset+blockBytes]
					} else {
						blockErr = blockErr.add(TruncatedDataError)
					}
					inOffset += blockBytes

					if err := decode(block, texels); err != nil {
						blockErr = blockErr.add(err)
					}

					x0 := bx * blockWidth
					columns := min(blockWidth, width-x0)
					for y := 0; y < blockHeight; y++ {
						py := by*blockHeight + y
						if py >= height {
							break
						}
						dst := outOffset + (py*width+x0)*outBpp
						copy(output[dst:dst+columns*outBpp], texels[y*blockStride:y*blockStride+columns*outBpp])
					}
				}
			}
			outOffset += width * height * outBpp
		}
	}

	return output, blockErr.result()
}

func clamp255(value int) int {
	if value < 0 {
		return 0
	}
	if value > 255 {
		return 255
	}
	return value
}

func fillColor(texels []byte, r, g, b, a byte) {
	for i := 0; i+3 < len(texels); i += 4 {
		texels[i] = r
		texels[i+1] = g
		texels[i+2] = b
		texels[i+3] = a
	}
}
