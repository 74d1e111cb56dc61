package format

// Format identifies the pixel format of a guest texture. The set is closed: every format the
// texture cache can handle is listed here, and every transcoding decision is a switch over it.
type Format uint16

const (
	Invalid Format = iota

	R8Unorm
	R8G8Unorm
	R4G4Unorm
	R16Unorm
	R32Float
	R8G8B8A8Unorm
	R8G8B8A8Srgb
	B8G8R8A8Unorm
	R16G16B16A16Float
	R32G32B32A32Float

	B5G6R5Unorm
	B5G5R5A1Unorm
	A1B5G5R5Unorm
	R4G4B4A4Unorm

	D16Unorm
	D24UnormS8Uint
	S8UintD24Unorm
	D32Float
	S8Uint

	Bc1RgbaUnorm
	Bc1RgbaSrgb
	Bc2Unorm
	Bc2Srgb
	Bc3Unorm
	Bc3Srgb
	Bc4Unorm
	Bc4Snorm
	Bc5Unorm
	Bc5Snorm
	Bc6HSfloat
	Bc6HUfloat
	Bc7Unorm
	Bc7Srgb

	Etc2RgbUnorm
	Etc2RgbSrgb
	Etc2RgbPtaUnorm
	Etc2RgbPtaSrgb
	Etc2RgbaUnorm
	Etc2RgbaSrgb

	Astc4x4Unorm
	Astc5x4Unorm
	Astc5x5Unorm
	Astc6x5Unorm
	Astc6x6Unorm
	Astc8x5Unorm
	Astc8x6Unorm
	Astc8x8Unorm
	Astc10x5Unorm
	Astc10x6Unorm
	Astc10x8Unorm
	Astc10x10Unorm
	Astc12x10Unorm
	Astc12x12Unorm
	Astc4x4Srgb
	Astc5x4Srgb
	Astc5x5Srgb
	Astc6x5Srgb
	Astc6x6Srgb
	Astc8x5Srgb
	Astc8x6Srgb
	Astc8x8Srgb
	Astc10x5Srgb
	Astc10x6Srgb
	Astc10x8Srgb
	Astc10x10Srgb
	Astc12x10Srgb
	Astc12x12Srgb

	formatCount
)

// Info describes the storage properties of a Format
type Info struct {
	Name          string
	BlockWidth    int
	BlockHeight   int
	BytesPerPixel int
	Components    int
}

var formatInfo = [formatCount]Info{
	Invalid: {"Invalid", 1, 1, 1, 1},

	R8Unorm:           {"R8Unorm", 1, 1, 1, 1},
	R8G8Unorm:         {"R8G8Unorm", 1, 1, 2, 2},
	R4G4Unorm:         {"R4G4Unorm", 1, 1, 1, 2},
	R16Unorm:          {"R16Unorm", 1, 1, 2, 1},
	R32Float:          {"R32Float", 1, 1, 4, 1},
	R8G8B8A8Unorm:     {"R8G8B8A8Unorm", 1, 1, 4, 4},
	R8G8B8A8Srgb:      {"R8G8B8A8Srgb", 1, 1, 4, 4},
	B8G8R8A8Unorm:     {"B8G8R8A8Unorm", 1, 1, 4, 4},
	R16G16B16A16Float: {"R16G16B16A16Float", 1, 1, 8, 4},
	R32G32B32A32Float: {"R32G32B32A32Float", 1, 1, 16, 4},

	B5G6R5Unorm:   {"B5G6R5Unorm", 1, 1, 2, 3},
	B5G5R5A1Unorm: {"B5G5R5A1Unorm", 1, 1, 2, 4},
	A1B5G5R5Unorm: {"A1B5G5R5Unorm", 1, 1, 2, 4},
	R4G4B4A4Unorm: {"R4G4B4A4Unorm", 1, 1, 2, 4},

	D16Unorm:       {"D16Unorm", 1, 1, 2, 1},
	D24UnormS8Uint: {"D24UnormS8Uint", 1, 1, 4, 2},
	S8UintD24Unorm: {"S8UintD24Unorm", 1, 1, 4, 2},
	D32Float:       {"D32Float", 1, 1, 4, 1},
	S8Uint:         {"S8Uint", 1, 1, 1, 1},

	Bc1RgbaUnorm: {"Bc1RgbaUnorm", 4, 4, 8, 4},
	Bc1RgbaSrgb:  {"Bc1RgbaSrgb", 4, 4, 8, 4},
	Bc2Unorm:     {"Bc2Unorm", 4, 4, 16, 4},
	Bc2Srgb:      {"Bc2Srgb", 4, 4, 16, 4},
	Bc3Unorm:     {"Bc3Unorm", 4, 4, 16, 4},
	Bc3Srgb:      {"Bc3Srgb", 4, 4, 16, 4},
	Bc4Unorm:     {"Bc4Unorm", 4, 4, 8, 1},
	Bc4Snorm:     {"Bc4Snorm", 4, 4, 8, 1},
	Bc5Unorm:     {"Bc5Unorm", 4, 4, 16, 2},
	Bc5Snorm:     {"Bc5Snorm", 4, 4, 16, 2},
	Bc6HSfloat:   {"Bc6HSfloat", 4, 4, 16, 4},
	Bc6HUfloat:   {"Bc6HUfloat", 4, 4, 16, 4},
	Bc7Unorm:     {"Bc7Unorm", 4, 4, 16, 4},
	Bc7Srgb:      {"Bc7Srgb", 4, 4, 16, 4},

	Etc2RgbUnorm:    {"Etc2RgbUnorm", 4, 4, 8, 3},
	Etc2RgbSrgb:     {"Etc2RgbSrgb", 4, 4, 8, 3},
	Etc2RgbPtaUnorm: {"Etc2RgbPtaUnorm", 4, 4, 8, 4},
	Etc2RgbPtaSrgb:  {"Etc2RgbPtaSrgb", 4, 4, 8, 4},
	Etc2RgbaUnorm:   {"Etc2RgbaUnorm", 4, 4, 16, 4},
	Etc2RgbaSrgb:    {"Etc2RgbaSrgb", 4, 4, 16, 4},

	Astc4x4Unorm:   {"Astc4x4Unorm", 4, 4, 16, 4},
	Astc5x4Unorm:   {"Astc5x4Unorm", 5, 4, 16, 4},
	Astc5x5Unorm:   {"Astc5x5Unorm", 5, 5, 16, 4},
	Astc6x5Unorm:   {"Astc6x5Unorm", 6, 5, 16, 4},
	Astc6x6Unorm:   {"Astc6x6Unorm", 6, 6, 16, 4},
	Astc8x5Unorm:   {"Astc8x5Unorm", 8, 5, 16, 4},
	Astc8x6Unorm:   {"Astc8x6Unorm", 8, 6, 16, 4},
	Astc8x8Unorm:   {"Astc8x8Unorm", 8, 8, 16, 4},
	Astc10x5Unorm:  {"Astc10x5Unorm", 10, 5, 16, 4},
	Astc10x6Unorm:  {"Astc10x6Unorm", 10, 6, 16, 4},
	Astc10x8Unorm:  {"Astc10x8Unorm", 10, 8, 16, 4},
	Astc10x10Unorm: {"Astc10x10Unorm", 10, 10, 16, 4},
	Astc12x10Unorm: {"Astc12x10Unorm", 12, 10, 16, 4},
	Astc12x12Unorm: {"Astc12x12Unorm", 12, 12, 16, 4},
	Astc4x4Srgb:    {"Astc4x4Srgb", 4, 4, 16, 4},
	Astc5x4Srgb:    {"Astc5x4Srgb", 5, 4, 16, 4},
	Astc5x5Srgb:    {"Astc5x5Srgb", 5, 5, 16, 4},
	Astc6x5Srgb:    {"Astc6x5Srgb", 6, 5, 16, 4},
	Astc6x6Srgb:    {"Astc6x6Srgb", 6, 6, 16, 4},
	Astc8x5Srgb:    {"Astc8x5Srgb", 8, 5, 16, 4},
	Astc8x6Srgb:    {"Astc8x6Srgb", 8, 6, 16, 4},
	Astc8x8Srgb:    {"Astc8x8Srgb", 8, 8, 16, 4},
	Astc10x5Srgb:   {"Astc10x5Srgb", 10, 5, 16, 4},
	Astc10x6Srgb:   {"Astc10x6Srgb", 10, 6, 16, 4},
	Astc10x8Srgb:   {"Astc10x8Srgb", 10, 8, 16, 4},
	Astc10x10Srgb:  {"Astc10x10Srgb", 10, 10, 16, 4},
	Astc12x10Srgb:  {"Astc12x10Srgb", 12, 10, 16, 4},
	Astc12x12Srgb:  {"Astc12x12Srgb", 12, 12, 16, 4},
}

// Info retrieves the storage properties of the format. Unknown values report the Invalid entry.
func (f Format) Info() Info {
	if f >= formatCount {
		return formatInfo[Invalid]
	}
	return formatInfo[f]
}

func (f Format) String() string {
	return f.Info().Name
}

// IsValid returns true if the format is a member of the closed format set
func (f Format) IsValid() bool {
	return f > Invalid && f < formatCount
}

func (f Format) BlockWidth() int { return f.Info().BlockWidth }
func (f Format) BlockHeight() int { return f.Info().BlockHeight }
func (f Format) BytesPerPixel() int { return f.Info().BytesPerPixel }

func (f Format) IsCompressed() bool {
	return f.IsBc() || f.IsEtc2() || f.IsAstc()
}

func (f Format) IsAstc() bool {
	return f >= Astc4x4Unorm && f <= Astc12x12Srgb
}

func (f Format) IsAstcUnorm() bool {
	return f >= Astc4x4Unorm && f <= Astc12x12Unorm
}

func (f Format) IsEtc2() bool {
	return f >= Etc2RgbUnorm && f <= Etc2RgbaSrgb
}

func (f Format) IsBc() bool {
	return f >= Bc1RgbaUnorm && f <= Bc7Srgb
}

func (f Format) IsBc123() bool {
	return f >= Bc1RgbaUnorm && f <= Bc3Srgb
}

func (f Format) IsBc45() bool {
	return f >= Bc4Unorm && f <= Bc5Snorm
}

func (f Format) IsBc67() bool {
	return f >= Bc6HSfloat && f <= Bc7Srgb
}

// IsPacked16 returns true for the 16-bit formats with 5-bit color components
func (f Format) IsPacked16() bool {
	return f == B5G6R5Unorm || f == B5G5R5A1Unorm || f == A1B5G5R5Unorm
}

func (f Format) IsDepthOrStencil() bool {
	return f >= D16Unorm && f <= S8Uint
}

func (f Format) IsSrgb() bool {
	switch f {
	case R8G8B8A8Srgb, Bc1RgbaSrgb, Bc2Srgb, Bc3Srgb, Bc7Srgb, Etc2RgbSrgb, Etc2RgbPtaSrgb, Etc2RgbaSrgb:
		return true
	}
	return f >= Astc4x4Srgb && f <= Astc12x12Srgb
}

// Class groups formats whose bits may be reinterpreted through a view without conversion
type Class uint8

const (
	ClassInvalid Class = iota
	ClassBits8
	ClassBits16
	ClassBits32
	ClassBits64
	ClassBits128
	ClassBc1
	ClassBc2
	ClassBc3
	ClassBc4
	ClassBc5
	ClassBc6
	ClassBc7
	ClassEtc2Rgb
	ClassEtc2Pta
	ClassEtc2Rgba
	ClassAstc
	ClassDepthStencil
)

// Class returns the view compatibility class of the format
func (f Format) Class() Class {
	switch {
	case !f.IsValid():
		return ClassInvalid
	case f.IsDepthOrStencil():
		return ClassDepthStencil
	case f == Bc1RgbaUnorm || f == Bc1RgbaSrgb:
		return ClassBc1
	case f == Bc2Unorm || f == Bc2Srgb:
		return ClassBc2
	case f == Bc3Unorm || f == Bc3Srgb:
		return ClassBc3
	case f == Bc4Unorm || f == Bc4Snorm:
		return ClassBc4
	case f == Bc5Unorm || f == Bc5Snorm:
		return ClassBc5
	case f == Bc6HSfloat || f == Bc6HUfloat:
		return ClassBc6
	case f == Bc7Unorm || f == Bc7Srgb:
		return ClassBc7
	case f == Etc2RgbUnorm || f == Etc2RgbSrgb:
		return ClassEtc2Rgb
	case f == Etc2RgbPtaUnorm || f == Etc2RgbPtaSrgb:
		return ClassEtc2Pta
	case f == Etc2RgbaUnorm || f == Etc2RgbaSrgb:
		return ClassEtc2Rgba
	case f.IsAstc():
		return ClassAstc
	}

	switch f.BytesPerPixel() {
	case 1:
		return ClassBits8
	case 2:
		return ClassBits16
	case 4:
		return ClassBits32
	case 8:
		return ClassBits64
	case 16:
		return ClassBits128
	}

	return ClassInvalid
}

// ToSrgb returns the sRGB variant of a decoded host format, or the format itself if it has none
func (f Format) ToSrgb() Format {
	switch f {
	case R8G8B8A8Unorm:
		return R8G8B8A8Srgb
	case Bc7Unorm:
		return Bc7Srgb
	}
	return f
}
