package texcache

import (
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texutils"
	"github.com/vkngwrapper/texcache/texutils/layout"
)

// IsExactMatch reports whether the texture can be used as-is for a lookup of info. Format, tiling
// and size must always match. Sampler lookups must also match sampler parameters; other lookups
// get FormatAlias when those differ.
func (t *Texture) IsExactMatch(info *TextureInfo, flags TextureSearchFlags) TextureMatchQuality {
	if t.info.Format != info.Format {
		return NoMatch
	}

	if !layoutMatches(&t.info, info) {
		return NoMatch
	}

	if !sizeMatches(&t.info, info, flags&TextureSearchForCopy != 0) {
		return NoMatch
	}

	quality := Perfect
	if !samplerParamsMatch(&t.info, info) {
		if flags&TextureSearchForSampler != 0 {
			return NoMatch
		}
		quality = FormatAlias
	}

	if !targetAndSamplesCompatible(&t.info, info, flags) {
		return NoMatch
	}

	if t.info.LevelCount() != info.LevelCount() {
		return NoMatch
	}

	return quality
}

func layoutMatches(lhs, rhs *TextureInfo) bool {
	if lhs.IsLinear != rhs.IsLinear {
		return false
	}

	if lhs.IsLinear {
		return lhs.Stride == rhs.Stride
	}

	lhsParams, rhsParams := lhs.LayoutParams(), rhs.LayoutParams()
	return lhsParams.GobBlocksInY == rhsParams.GobBlocksInY &&
		lhsParams.GobBlocksInZ == rhsParams.GobBlocksInZ &&
		lhsParams.GobBlocksInTileX == rhsParams.GobBlocksInTileX
}

func sizeMatches(lhs, rhs *TextureInfo, forCopy bool) bool {
	width, height := lhs.Width, lhs.Height

	// A multisample texture holds its samples side by side when copied as a single sample texture
	if forCopy && lhs.Target.IsMultisample() && !rhs.Target.IsMultisample() {
		width *= max(lhs.SamplesInX, 1)
		height *= max(lhs.SamplesInY, 1)
	}

	return width == rhs.Width && height == rhs.Height && lhs.GetSlices() == rhs.GetSlices()
}

func samplerParamsMatch(lhs, rhs *TextureInfo) bool {
	return lhs.DepthStencilMode == rhs.DepthStencilMode && lhs.Swizzle == rhs.Swizzle
}

func targetAndSamplesCompatible(lhs, rhs *TextureInfo, flags TextureSearchFlags) bool {
	if lhs.Target == rhs.Target {
		return lhs.Samples() == rhs.Samples()
	}

	return flags&TextureSearchForCopy != 0 &&
		lhs.Target == backend.Texture2DMultisample &&
		rhs.Target == backend.Texture2D
}

// IsViewCompatible reports whether a texture described by info at textureRange can be created as a
// view of this texture, and at which layer and level of it. CopyOnly results must be emulated with
// a copy dependency, and LayoutIncompatible results alias memory that cannot be shared at all.
func (t *Texture) IsViewCompatible(info *TextureInfo, textureRange guestmem.MultiRange, exactSize bool, layerSize int, caps backend.CapabilityFlags, flags TextureSearchFlags) (TextureViewCompatibility, int, int) {
	result := viewFormatCompatible(&t.info, info, caps)
	result = propagateViewCompatibility(result, viewTargetCompatible(&t.info, info))

	if result == Incompatible || t.info.Samples() != info.Samples() {
		return Incompatible, 0, 0
	}

	offset := t.textureRange.FindOffset(textureRange)
	if offset < 0 {
		return Incompatible, 0, 0
	}

	firstLayer, firstLevel, ok := t.sizeInfo.FindView(offset)
	if !ok {
		return Incompatible, 0, 0
	}

	if !viewSubImagesInBounds(&t.info, info, firstLayer, firstLevel) {
		return Incompatible, 0, 0
	}

	result = propagateViewCompatibility(result, viewLayoutCompatible(&t.info, info, firstLevel))
	result = propagateViewCompatibility(result, viewSizeCompatible(&t.info, info, exactSize, firstLevel))

	if info.GetSlices() > 1 && !info.Target.Is3D() && layerSize != t.sizeInfo.LayerSize {
		result = propagateViewCompatibility(result, LayoutIncompatible)
	}

	if result == CopyOnly && flags&TextureSearchStrict != 0 {
		return Incompatible, 0, 0
	}

	return result, firstLayer, firstLevel
}

func viewFormatCompatible(lhs, rhs *TextureInfo, caps backend.CapabilityFlags) TextureViewCompatibility {
	if lhs.Format == rhs.Format {
		return Full
	}

	if lhs.Format.IsDepthOrStencil() || rhs.Format.IsDepthOrStencil() {
		// Depth and color data can share memory, but only a copy reinterprets it
		if lhs.Format.BytesPerPixel() == rhs.Format.BytesPerPixel() && !lhs.Format.IsCompressed() && !rhs.Format.IsCompressed() {
			return CopyOnly
		}
		return Incompatible
	}

	if lhs.Format.Class() == rhs.Format.Class() {
		if caps&backend.SupportsMismatchingViewFormat == 0 {
			return CopyOnly
		}
		return Full
	}

	// A compressed block can be copied to or from a texel of the same size
	if lhs.Format.IsCompressed() != rhs.Format.IsCompressed() && lhs.Format.BytesPerPixel() == rhs.Format.BytesPerPixel() {
		return CopyOnly
	}

	return Incompatible
}

func viewTargetCompatible(lhs, rhs *TextureInfo) TextureViewCompatibility {
	switch lhs.Target {
	case backend.Texture1D, backend.Texture1DArray:
		if rhs.Target == backend.Texture1D || rhs.Target == backend.Texture1DArray {
			return Full
		}
	case backend.Texture2D, backend.Texture2DArray, backend.Cubemap, backend.CubemapArray:
		switch rhs.Target {
		case backend.Texture2D, backend.Texture2DArray, backend.Cubemap, backend.CubemapArray:
			return Full
		case backend.Texture3D:
			return CopyOnly
		}
	case backend.Texture2DMultisample, backend.Texture2DMultisampleArray:
		switch rhs.Target {
		case backend.Texture2DMultisample, backend.Texture2DMultisampleArray:
			return Full
		case backend.Texture2D:
			return CopyOnly
		}
	case backend.Texture3D:
		switch rhs.Target {
		case backend.Texture3D:
			return Full
		case backend.Texture2D, backend.Texture2DArray:
			return CopyOnly
		}
	}

	return Incompatible
}

func viewSubImagesInBounds(lhs, rhs *TextureInfo, firstLayer, firstLevel int) bool {
	if firstLevel+rhs.LevelCount() > lhs.LevelCount() {
		return false
	}

	if lhs.Target.Is3D() {
		return rhs.GetSlices() <= texutils.LevelSize(lhs.GetDepth(), firstLevel)
	}

	return firstLayer+rhs.GetSlices() <= lhs.GetSlices()
}

func viewLayoutCompatible(lhs, rhs *TextureInfo, level int) TextureViewCompatibility {
	if lhs.IsLinear != rhs.IsLinear {
		return LayoutIncompatible
	}

	if lhs.IsLinear {
		if level != 0 || lhs.Stride != rhs.Stride {
			return LayoutIncompatible
		}
		return Full
	}

	lhsParams, rhsParams := lhs.LayoutParams(), rhs.LayoutParams()

	_, lhsHeight, lhsDepth := lhsParams.LevelExtents(level)
	lhsY, lhsZ := layout.MipGobBlocks(lhsHeight, lhsDepth, lhsParams.GobBlocksInY, lhsParams.GobBlocksInZ)

	_, rhsHeight, rhsDepth := rhsParams.LevelExtents(0)
	rhsY, rhsZ := layout.MipGobBlocks(rhsHeight, rhsDepth, rhsParams.GobBlocksInY, rhsParams.GobBlocksInZ)

	if lhsY != rhsY || lhsZ != rhsZ || lhsParams.GobBlocksInTileX != rhsParams.GobBlocksInTileX {
		return LayoutIncompatible
	}

	return Full
}

func viewSizeCompatible(lhs, rhs *TextureInfo, exactSize bool, level int) TextureViewCompatibility {
	lhsWidth := texutils.DivRoundUp(texutils.LevelSize(lhs.Width, level), lhs.Format.BlockWidth())
	lhsHeight := texutils.DivRoundUp(texutils.LevelSize(lhs.Height, level), lhs.Format.BlockHeight())
	rhsWidth := texutils.DivRoundUp(rhs.Width, rhs.Format.BlockWidth())
	rhsHeight := texutils.DivRoundUp(rhs.Height, rhs.Format.BlockHeight())

	if lhsWidth == rhsWidth && lhsHeight == rhsHeight {
		return Full
	}

	if !exactSize && rhsWidth <= lhsWidth && rhsHeight <= lhsHeight {
		return CopyOnly
	}

	return LayoutIncompatible
}

// DataOverlaps reports whether the texture shares guest data with other. Block linear 3D textures
// with the same multi-slice Z blocking interleave their slices, so their ranges can intersect
// without aliasing any texels.
func (t *Texture) DataOverlaps(other *Texture) bool {
	if !t.info.IsLinear && !other.info.IsLinear && t.info.Target.Is3D() && other.info.Target.Is3D() {
		lhsZ, rhsZ := t.info.LayoutParams().GobBlocksInZ, other.info.LayoutParams().GobBlocksInZ
		if lhsZ > 1 && lhsZ == rhsZ {
			return false
		}
	}

	return t.textureRange.OverlapsWith(other.textureRange)
}

// Overlaps reports whether the texture's guest memory intersects the given span
func (t *Texture) Overlaps(address, size uint64) bool {
	return t.textureRange.OverlapsWith(guestmem.SingleRange(address, size))
}

// FullyOverlaps reports whether textureRange covers all of the texture's guest memory
func (t *Texture) FullyOverlaps(textureRange guestmem.MultiRange) bool {
	return textureRange.Contains(t.textureRange)
}
