package texcache

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texutils/format"
)

func TestIsExactMatch(t *testing.T) {
	base := rgbaInfo(64, 64)

	multisample := base
	multisample.Width, multisample.Height = 32, 32
	multisample.SamplesInX, multisample.SamplesInY = 2, 2
	multisample.Target = backend.Texture2DMultisample

	testCases := map[string]struct {
		texture  TextureInfo
		lookup   func(info TextureInfo) TextureInfo
		flags    TextureSearchFlags
		expected TextureMatchQuality
	}{
		"Identical": {
			texture:  base,
			lookup:   func(info TextureInfo) TextureInfo { return info },
			expected: Perfect,
		},
		"Format": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.Format = format.R8G8B8A8Srgb
				return info
			},
			expected: NoMatch,
		},
		"Width": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.Width = 32
				return info
			},
			expected: NoMatch,
		},
		"GobBlocks": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.GobBlocksInY = 2
				return info
			},
			expected: NoMatch,
		},
		"Linear": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.IsLinear = true
				info.Stride = 256
				return info
			},
			expected: NoMatch,
		},
		"Swizzle": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.Swizzle = backend.Swizzle{R: backend.SwizzleBlue, G: backend.SwizzleGreen, B: backend.SwizzleRed, A: backend.SwizzleOne}
				return info
			},
			expected: FormatAlias,
		},
		"SwizzleForSampler": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.Swizzle = backend.Swizzle{R: backend.SwizzleBlue, G: backend.SwizzleGreen, B: backend.SwizzleRed, A: backend.SwizzleOne}
				return info
			},
			flags:    TextureSearchForSampler,
			expected: NoMatch,
		},
		"DepthStencilModeForSampler": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.DepthStencilMode = DepthStencilStencil
				return info
			},
			flags:    TextureSearchForSampler,
			expected: NoMatch,
		},
		"Levels": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.Levels = 2
				return info
			},
			expected: NoMatch,
		},
		"Target": {
			texture: base,
			lookup: func(info TextureInfo) TextureInfo {
				info.Target = backend.Texture2DArray
				return info
			},
			expected: NoMatch,
		},
		"MultisampleForCopy": {
			texture: multisample,
			lookup: func(info TextureInfo) TextureInfo {
				return base
			},
			flags:    TextureSearchForCopy,
			expected: Perfect,
		},
		"MultisampleWithoutCopy": {
			texture: multisample,
			lookup: func(info TextureInfo) TextureInfo {
				return base
			},
			expected: NoMatch,
		},
	}

	rig := readyRig(t, RigSetup{})

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			texture := NewTexture(rig.manager, testCase.texture, testCase.texture.CalculateSizeInfo(), guestmem.SingleRange(0, 0x4000), ScaleUndesired)
			lookup := testCase.lookup(testCase.texture)

			require.Equal(t, testCase.expected, texture.IsExactMatch(&lookup, testCase.flags))
		})
	}
}

func TestIsViewCompatible(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	parentInfo := rgbaArrayInfo(64, 64, 4, 3)
	parentSizeInfo := parentInfo.CalculateSizeInfo()
	parent := NewTexture(rig.manager, parentInfo, parentSizeInfo, guestmem.SingleRange(0x10000, uint64(parentSizeInfo.TotalSize)), ScaleUndesired)

	viewAt := func(info TextureInfo, layer, level int) guestmem.MultiRange {
		return guestmem.SingleRange(0x10000+uint64(parentSizeInfo.GetOffset(layer, level)), uint64(info.CalculateSizeInfo().TotalSize))
	}

	all := backend.AllCapabilities
	noMismatch := backend.AllCapabilities &^ backend.SupportsMismatchingViewFormat

	bgra := rgbaInfo(64, 64)
	bgra.Format = format.B8G8R8A8Unorm

	r8 := rgbaInfo(64, 64)
	r8.Format = format.R8Unorm

	mipped := rgbaInfo(32, 32)
	mipped.Levels = 3

	testCases := map[string]struct {
		info          TextureInfo
		layer, level  int
		exactSize     bool
		caps          backend.CapabilityFlags
		flags         TextureSearchFlags
		expected      TextureViewCompatibility
		expectedLayer int
		expectedLevel int
	}{
		"Whole level":           {info: rgbaInfo(64, 64), layer: 3, exactSize: true, caps: all, expected: Full, expectedLayer: 3},
		"Mip level":             {info: rgbaInfo(16, 16), layer: 1, level: 2, exactSize: true, caps: all, expected: Full, expectedLayer: 1, expectedLevel: 2},
		"Reinterpreted format":  {info: bgra, exactSize: true, caps: all, expected: Full},
		"No reinterpretation":   {info: bgra, exactSize: true, caps: noMismatch, expected: CopyOnly},
		"Strict rejects copies": {info: bgra, exactSize: true, caps: noMismatch, flags: TextureSearchStrict, expected: Incompatible},
		"Different class":       {info: r8, exactSize: true, caps: all, expected: Incompatible},
		"Smaller copy region":   {info: rgbaInfo(48, 48), caps: all, expected: CopyOnly},
		"Smaller exact size":    {info: rgbaInfo(48, 48), exactSize: true, caps: all, expected: LayoutIncompatible},
		"Too many levels":       {info: mipped, level: 1, exactSize: true, caps: all, expected: Incompatible},
		"Too many layers":       {info: rgbaArrayInfo(64, 64, 2, 3), layer: 3, exactSize: true, caps: all, expected: Incompatible},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			viewRange := viewAt(testCase.info, testCase.layer, testCase.level)
			layerSize := testCase.info.CalculateSizeInfo().LayerSize

			compatibility, layer, level := parent.IsViewCompatible(&testCase.info, viewRange, testCase.exactSize, layerSize, testCase.caps, testCase.flags)
			require.Equal(t, testCase.expected, compatibility)

			if compatibility != Incompatible {
				require.Equal(t, testCase.expectedLayer, layer)
				require.Equal(t, testCase.expectedLevel, level)
			}
		})
	}
}

func TestIsViewCompatibleOutsideRange(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	info := rgbaInfo(64, 64)
	sizeInfo := info.CalculateSizeInfo()
	texture := NewTexture(rig.manager, info, sizeInfo, guestmem.SingleRange(0x10000, uint64(sizeInfo.TotalSize)), ScaleUndesired)

	compatibility, _, _ := texture.IsViewCompatible(&info, guestmem.SingleRange(0x20000, uint64(sizeInfo.TotalSize)), true, sizeInfo.LayerSize, backend.AllCapabilities, 0)
	require.Equal(t, Incompatible, compatibility)

	// Offsets that do not start a sub-image cannot be viewed
	compatibility, _, _ = texture.IsViewCompatible(&info, guestmem.SingleRange(0x10040, 0x100), true, sizeInfo.LayerSize, backend.AllCapabilities, 0)
	require.Equal(t, Incompatible, compatibility)
}
