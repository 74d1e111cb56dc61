package texcache

import (
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texutils/format"
	"github.com/vkngwrapper/texcache/texutils/layout"
)

// TextureInfo describes a guest texture. It is immutable once a Texture has been created from it.
type TextureInfo struct {
	Format format.Format

	Width  int
	Height int
	// DepthOrLayers is the slice count of a 3D texture or the layer count of an array texture
	DepthOrLayers int
	Levels        int

	SamplesInX int
	SamplesInY int

	// Stride is the row pitch in bytes of a linear texture
	Stride   int
	IsLinear bool

	GobBlocksInY     int
	GobBlocksInZ     int
	GobBlocksInTileX int

	Target backend.Target

	DepthStencilMode DepthStencilMode
	Swizzle          backend.Swizzle
}

// GetDepth returns the depth of a 3D texture and 1 for every other target
func (i *TextureInfo) GetDepth() int {
	if i.Target.Is3D() {
		return max(i.DepthOrLayers, 1)
	}
	return 1
}

// GetLayers returns the layer count of an array texture and 1 for every other target
func (i *TextureInfo) GetLayers() int {
	if i.Target.IsArray() {
		return max(i.DepthOrLayers, 1)
	}
	return 1
}

// GetSlices returns the number of 2D slices the texture holds at level 0
func (i *TextureInfo) GetSlices() int {
	if i.Target.Is3D() || i.Target.IsArray() {
		return max(i.DepthOrLayers, 1)
	}
	return 1
}

func (i *TextureInfo) LevelCount() int {
	return max(i.Levels, 1)
}

func (i *TextureInfo) Samples() int {
	return max(i.SamplesInX, 1) * max(i.SamplesInY, 1)
}

// LayoutParams returns the guest memory organization of the texture
func (i *TextureInfo) LayoutParams() layout.Params {
	return layout.Params{
		Width:            i.Width,
		Height:           i.Height,
		Depth:            i.GetDepth(),
		Levels:           i.LevelCount(),
		Layers:           i.GetLayers(),
		BlockWidth:       i.Format.BlockWidth(),
		BlockHeight:      i.Format.BlockHeight(),
		BytesPerPixel:    i.Format.BytesPerPixel(),
		IsLinear:         i.IsLinear,
		Stride:           i.Stride,
		GobBlocksInY:     max(i.GobBlocksInY, 1),
		GobBlocksInZ:     max(i.GobBlocksInZ, 1),
		GobBlocksInTileX: max(i.GobBlocksInTileX, 1),
		Is3D:             i.Target.Is3D(),
	}
}

// CalculateSizeInfo builds the guest offset table for the texture
func (i *TextureInfo) CalculateSizeInfo() layout.SizeInfo {
	return layout.NewSizeInfo(i.LayoutParams())
}

func (i *TextureInfo) hostInfo(hostFormat format.Format) backend.HostTextureInfo {
	depth := 1
	if i.Target.Is3D() || i.Target.IsArray() {
		depth = max(i.DepthOrLayers, 1)
	}

	return backend.HostTextureInfo{
		Width:         i.Width,
		Height:        i.Height,
		Depth:         depth,
		Levels:        i.LevelCount(),
		Samples:       i.Samples(),
		BlockWidth:    hostFormat.BlockWidth(),
		BlockHeight:   hostFormat.BlockHeight(),
		BytesPerPixel: hostFormat.BytesPerPixel(),
		Format:        hostFormat,
		Target:        i.Target,
		Swizzle:       i.Swizzle,
	}
}

// HostFormat returns the format a texture of guestFormat is stored in on a host with the given
// capabilities
func HostFormat(guestFormat format.Format, caps backend.CapabilityFlags, recompress bool) format.Format {
	srgb := guestFormat.IsSrgb()
	rgba8 := format.R8G8B8A8Unorm
	bc7 := format.Bc7Unorm
	if srgb {
		rgba8 = rgba8.ToSrgb()
		bc7 = bc7.ToSrgb()
	}

	switch {
	case guestFormat.IsAstc() && caps&backend.SupportsAstcCompression == 0:
		if recompress {
			return bc7
		}
		return rgba8
	case guestFormat.IsEtc2() && caps&backend.SupportsEtc2Compression == 0:
		if recompress && (guestFormat == format.Etc2RgbaUnorm || guestFormat == format.Etc2RgbaSrgb) {
			return bc7
		}
		return rgba8
	case guestFormat == format.R4G4Unorm && caps&backend.SupportsR4G4Format == 0:
		return format.R4G4B4A4Unorm
	case guestFormat.IsPacked16() && caps&backend.Supports5BitComponentFormat == 0:
		return format.R8G8B8A8Unorm
	case guestFormat.IsBc123() && caps&backend.SupportsBc123Compression == 0:
		return rgba8
	case guestFormat.IsBc45() && caps&backend.SupportsBc45Compression == 0:
		if guestFormat == format.Bc4Unorm || guestFormat == format.Bc4Snorm {
			return format.R8Unorm
		}
		return format.R8G8Unorm
	case guestFormat.IsBc67() && caps&backend.SupportsBc67Compression == 0:
		if guestFormat == format.Bc6HSfloat || guestFormat == format.Bc6HUfloat {
			return format.R16G16B16A16Float
		}
		return rgba8
	}

	return guestFormat
}

// isDecodedOnHost reports whether guest data must be decompressed before it can be uploaded.
// Such textures cannot be flushed back to guest memory.
func isDecodedOnHost(guestFormat format.Format, caps backend.CapabilityFlags, recompress bool) bool {
	return guestFormat.IsCompressed() && HostFormat(guestFormat, caps, recompress) != guestFormat
}
