package layout

import (
	"sort"

	"github.com/vkngwrapper/texcache/texutils"
)

const (
	// GobStride is the width in bytes of a group of bytes
	GobStride = 64
	// GobHeight is the number of rows in a group of bytes
	GobHeight = 8
	// GobSize is the number of bytes in a group of bytes
	GobSize = GobStride * GobHeight
)

// Params describes the guest memory organization of a texture
type Params struct {
	Width  int
	Height int
	// Depth is the number of slices of a 3D texture, ignored otherwise
	Depth  int
	Levels int
	Layers int

	BlockWidth    int
	BlockHeight   int
	BytesPerPixel int

	IsLinear bool
	// Stride is the row pitch in bytes of a linear texture
	Stride int

	GobBlocksInY     int
	GobBlocksInZ     int
	GobBlocksInTileX int

	Is3D bool
}

// LevelExtents returns the size in blocks of a mip level, along with the depth in slices
func (p *Params) LevelExtents(level int) (width, height, depth int) {
	width = texutils.DivRoundUp(texutils.LevelSize(p.Width, level), p.BlockWidth)
	height = texutils.DivRoundUp(texutils.LevelSize(p.Height, level), p.BlockHeight)
	depth = 1
	if p.Is3D {
		depth = texutils.LevelSize(p.Depth, level)
	}
	return width, height, depth
}

// HostLevelSize returns the number of bytes a single layer of a mip level occupies in host linear layout
func (p *Params) HostLevelSize(level int) int {
	width, height, depth := p.LevelExtents(level)
	return width * height * depth * p.BytesPerPixel
}

// HostSize returns the number of bytes of host linear data for levels mip levels starting at firstLevel,
// across layers layers
func (p *Params) HostSize(firstLevel, levels, layers int) int {
	size := 0
	for level := firstLevel; level < firstLevel+levels; level++ {
		size += p.HostLevelSize(level) * layers
	}
	return size
}

// MipGobBlocks reduces the block dimensions of a block linear texture for a mip level: blocks
// shrink while the level fits inside half of a block
func MipGobBlocks(heightInBlocks, depth, gobBlocksInY, gobBlocksInZ int) (int, int) {
	for gobBlocksInY > 1 && heightInBlocks <= (gobBlocksInY>>1)*GobHeight {
		gobBlocksInY >>= 1
	}

	for gobBlocksInZ > 1 && depth <= gobBlocksInZ>>1 {
		gobBlocksInZ >>= 1
	}

	return gobBlocksInY, gobBlocksInZ
}

// Region is a byte span within a texture's guest memory
type Region struct {
	Offset int
	Size   int
}

// SizeInfo maps each layer and level of a texture to its byte span in guest memory
type SizeInfo struct {
	mipOffsets []int
	levelSizes []int
	allOffsets []int

	levels int
	layers int

	LayerSize int
	TotalSize int
}

// NewSizeInfo builds the offset table for a texture layout
func NewSizeInfo(p Params) SizeInfo {
	if p.IsLinear {
		return newLinearSizeInfo(p)
	}

	return newBlockLinearSizeInfo(p)
}

func newLinearSizeInfo(p Params) SizeInfo {
	height := texutils.DivRoundUp(p.Height, p.BlockHeight)
	size := p.Stride * height

	return SizeInfo{
		mipOffsets: []int{0},
		levelSizes: []int{size},
		allOffsets: []int{0},
		levels:     1,
		layers:     1,
		LayerSize:  size,
		TotalSize:  size,
	}
}

func newBlockLinearSizeInfo(p Params) SizeInfo {
	levels := max(p.Levels, 1)
	layers := max(p.Layers, 1)
	if p.Is3D {
		layers = 1
	}

	info := SizeInfo{
		mipOffsets: make([]int, levels),
		levelSizes: make([]int, levels),
		allOffsets: make([]int, 0, levels*layers),
		levels:     levels,
		layers:     layers,
	}

	layerSize := 0
	for level := 0; level < levels; level++ {
		size := BlockLinearLevelSize(&p, level)

		info.mipOffsets[level] = layerSize
		info.levelSizes[level] = size
		layerSize += size
	}

	if layers > 1 {
		_, height, depth := p.LevelExtents(0)
		gobBlocksInY, gobBlocksInZ := MipGobBlocks(height, depth, p.GobBlocksInY, p.GobBlocksInZ)
		layerSize = texutils.AlignUp(layerSize, uint(GobSize*gobBlocksInY*gobBlocksInZ))
	}

	info.LayerSize = layerSize
	info.TotalSize = layerSize * layers

	for layer := 0; layer < layers; layer++ {
		for level := 0; level < levels; level++ {
			info.allOffsets = append(info.allOffsets, layer*layerSize+info.mipOffsets[level])
		}
	}

	return info
}

// BlockLinearLevelSize returns the size in bytes of a single layer of a block linear mip level
func BlockLinearLevelSize(p *Params, level int) int {
	width, height, depth := p.LevelExtents(level)
	gobBlocksInY, gobBlocksInZ := MipGobBlocks(height, depth, p.GobBlocksInY, p.GobBlocksInZ)

	widthInGobs := alignedWidthInGobs(width, p.BytesPerPixel, p.GobBlocksInTileX)
	alignedHeight := texutils.AlignUp(height, uint(gobBlocksInY*GobHeight))
	alignedDepth := texutils.AlignUp(depth, uint(gobBlocksInZ))

	return widthInGobs * GobStride * alignedHeight * alignedDepth
}

func alignedWidthInGobs(widthInBlocks, bytesPerPixel, gobBlocksInTileX int) int {
	widthInGobs := texutils.DivRoundUp(widthInBlocks*bytesPerPixel, GobStride)
	return texutils.AlignUp(widthInGobs, uint(max(gobBlocksInTileX, 1)))
}

func (s *SizeInfo) Levels() int { return s.levels }
func (s *SizeInfo) Layers() int { return s.layers }

// GetMipOffset returns the offset of a mip level from the start of its layer
func (s *SizeInfo) GetMipOffset(level int) int {
	if level >= len(s.mipOffsets) {
		return 0
	}
	return s.mipOffsets[level]
}

// GetLevelSize returns the size of a single layer of a mip level
func (s *SizeInfo) GetLevelSize(level int) int {
	if level >= len(s.levelSizes) {
		return 0
	}
	return s.levelSizes[level]
}

// GetOffset returns the offset of a (layer, level) sub-image from the start of the texture
func (s *SizeInfo) GetOffset(layer, level int) int {
	return layer*s.LayerSize + s.GetMipOffset(level)
}

// AllOffsets returns the sorted start offsets of every (layer, level) sub-image
func (s *SizeInfo) AllOffsets() []int {
	return s.allOffsets
}

// AllRegions returns the span of every (layer, level) sub-image
func (s *SizeInfo) AllRegions() []Region {
	regions := make([]Region, 0, len(s.allOffsets))
	for layer := 0; layer < s.layers; layer++ {
		for level := 0; level < s.levels; level++ {
			regions = append(regions, Region{
				Offset: s.GetOffset(layer, level),
				Size:   s.levelSizes[level],
			})
		}
	}
	return regions
}

// FindView locates the (layer, level) sub-image that starts exactly at offset
func (s *SizeInfo) FindView(offset int) (layer int, level int, ok bool) {
	index := sort.SearchInts(s.allOffsets, offset)
	if index >= len(s.allOffsets) || s.allOffsets[index] != offset {
		return 0, 0, false
	}

	return index / s.levels, index % s.levels, true
}
