package backend

import "github.com/vkngwrapper/core/v2/common"

// Target is the dimensionality and arrangement of a texture
type Target int32

const (
	Texture1D Target = iota
	Texture2D
	Texture3D
	Texture1DArray
	Texture2DArray
	Texture2DMultisample
	Texture2DMultisampleArray
	Cubemap
	CubemapArray
	TextureBuffer
)

var targetMapping = map[Target]string{
	Texture1D:                 "Texture1D",
	Texture2D:                 "Texture2D",
	Texture3D:                 "Texture3D",
	Texture1DArray:            "Texture1DArray",
	Texture2DArray:            "Texture2DArray",
	Texture2DMultisample:      "Texture2DMultisample",
	Texture2DMultisampleArray: "Texture2DMultisampleArray",
	Cubemap:                   "Cubemap",
	CubemapArray:              "CubemapArray",
	TextureBuffer:             "TextureBuffer",
}

func (t Target) String() string {
	return targetMapping[t]
}

// IsMultisample reports whether the target holds more than one sample per texel
func (t Target) IsMultisample() bool {
	return t == Texture2DMultisample || t == Texture2DMultisampleArray
}

// IsArray reports whether the target indexes layers
func (t Target) IsArray() bool {
	switch t {
	case Texture1DArray, Texture2DArray, Texture2DMultisampleArray, Cubemap, CubemapArray:
		return true
	}
	return false
}

// Is3D reports whether the target has a depth dimension rather than layers
func (t Target) Is3D() bool {
	return t == Texture3D
}

// SwizzleComponent selects the source of one channel of a texture view
type SwizzleComponent int32

const (
	SwizzleZero SwizzleComponent = iota
	SwizzleOne
	SwizzleRed
	SwizzleGreen
	SwizzleBlue
	SwizzleAlpha
)

var swizzleMapping = map[SwizzleComponent]string{
	SwizzleZero:  "Zero",
	SwizzleOne:   "One",
	SwizzleRed:   "Red",
	SwizzleGreen: "Green",
	SwizzleBlue:  "Blue",
	SwizzleAlpha: "Alpha",
}

func (s SwizzleComponent) String() string {
	return swizzleMapping[s]
}

// Swizzle is the channel mapping of a texture view
type Swizzle struct {
	R, G, B, A SwizzleComponent
}

// IdentitySwizzle maps every channel to itself
var IdentitySwizzle = Swizzle{R: SwizzleRed, G: SwizzleGreen, B: SwizzleBlue, A: SwizzleAlpha}

// CapabilityFlags are the host features that decide whether guest formats need transcoding
type CapabilityFlags int32

var capabilityFlagsMapping = common.NewFlagStringMapping[CapabilityFlags]()

func (f CapabilityFlags) Register(str string) {
	capabilityFlagsMapping.Register(f, str)
}

func (f CapabilityFlags) String() string {
	return capabilityFlagsMapping.FlagsToString(f)
}

const (
	SupportsAstcCompression CapabilityFlags = 1 << iota
	SupportsBc123Compression
	SupportsBc45Compression
	SupportsBc67Compression
	SupportsEtc2Compression
	SupportsR4G4Format
	Supports5BitComponentFormat
	// SupportsMismatchingViewFormat is set when views may reinterpret the storage format
	SupportsMismatchingViewFormat
)

func init() {
	SupportsAstcCompression.Register("SupportsAstcCompression")
	SupportsBc123Compression.Register("SupportsBc123Compression")
	SupportsBc45Compression.Register("SupportsBc45Compression")
	SupportsBc67Compression.Register("SupportsBc67Compression")
	SupportsEtc2Compression.Register("SupportsEtc2Compression")
	SupportsR4G4Format.Register("SupportsR4G4Format")
	Supports5BitComponentFormat.Register("Supports5BitComponentFormat")
	SupportsMismatchingViewFormat.Register("SupportsMismatchingViewFormat")
}

// AllCapabilities is a host that supports every guest format natively
const AllCapabilities = SupportsAstcCompression | SupportsBc123Compression | SupportsBc45Compression |
	SupportsBc67Compression | SupportsEtc2Compression | SupportsR4G4Format | Supports5BitComponentFormat |
	SupportsMismatchingViewFormat
