package backend

//go:generate mockgen -source backend.go -destination ./mocks/backend.go -package mock_backend

import (
	"github.com/chewxy/math32"
	"github.com/vkngwrapper/texcache/texutils/format"
)

// HostTextureInfo describes the storage a Renderer creates for a texture or view. Dimensions
// are unscaled; the renderer applies the scale factor it was given at creation.
type HostTextureInfo struct {
	Width         int
	Height        int
	Depth         int
	Levels        int
	Samples       int
	BlockWidth    int
	BlockHeight   int
	BytesPerPixel int
	Format        format.Format
	Target        Target
	Swizzle       Swizzle
}

// Layers returns the number of array layers for array targets and 1 otherwise
func (i HostTextureInfo) Layers() int {
	if i.Target.IsArray() {
		return i.Depth
	}
	return 1
}

// DepthOrLayers returns the third dimension regardless of whether it is depth or layers
func (i HostTextureInfo) DepthOrLayers() int {
	if i.Target == Texture3D || i.Target.IsArray() {
		return i.Depth
	}
	return 1
}

// Extents2D is a rectangle in texels, X2 and Y2 exclusive
type Extents2D struct {
	X1, Y1, X2, Y2 int
}

func (e Extents2D) Width() int { return e.X2 - e.X1 }
func (e Extents2D) Height() int { return e.Y2 - e.Y1 }

// Scale multiplies every corner of the rectangle by factor, rounding up the same way scaled host
// texture sizes are
func (e Extents2D) Scale(factor float32) Extents2D {
	return Extents2D{
		X1: ScaledSize(e.X1, factor),
		Y1: ScaledSize(e.Y1, factor),
		X2: ScaledSize(e.X2, factor),
		Y2: ScaledSize(e.Y2, factor),
	}
}

// ScaledSize returns the host size of a dimension at the given resolution scale
func ScaledSize(size int, factor float32) int {
	if factor == 1 {
		return size
	}
	return int(math32.Ceil(float32(size) * factor))
}

// HostTexture is renderer-owned storage for a texture or a view onto another HostTexture's
// storage. Data passed to and from a HostTexture is linear, tightly packed, level-major
// then layer-major, in the host format named by Info.
type HostTexture interface {
	Info() HostTextureInfo
	Width() int
	Height() int
	ScaleFactor() float32

	// CreateView returns a HostTexture sharing this texture's storage, starting at the given
	// layer and level.
	CreateView(info HostTextureInfo, firstLayer, firstLevel int) (HostTexture, error)

	CopyTo(destination HostTexture, firstLayer, firstLevel int) error
	CopyToSlice(destination HostTexture, srcLayer, dstLayer, srcLevel, dstLevel int) error
	// CopyToScaled blits srcRegion of every layer into dstRegion of the destination. Both regions
	// describe level 0; further levels common to both textures are blitted with the regions halved
	// per level.
	CopyToScaled(destination HostTexture, srcRegion, dstRegion Extents2D, linearFilter bool) error

	SetData(data []byte) error
	SetDataSlice(data []byte, layer, level int) error
	GetData() ([]byte, error)
	GetDataSlice(layer, level int) ([]byte, error)

	Release()
}

// Renderer creates HostTextures and reports which guest formats it can store directly
type Renderer interface {
	CreateTexture(info HostTextureInfo, scaleFactor float32) (HostTexture, error)
	Capabilities() CapabilityFlags
}
