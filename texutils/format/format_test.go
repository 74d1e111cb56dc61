package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatTableComplete(t *testing.T) {
	for f := Invalid + 1; f < formatCount; f++ {
		info := f.Info()
		require.NotEmpty(t, info.Name, "format %d has no table entry", f)
		require.Greater(t, info.BytesPerPixel, 0, info.Name)
		require.Equal(t, info.Name, f.String())
	}
}

var formatClassCases = map[string]struct {
	Format     Format
	Compressed bool
	Class      Class
}{
	"Astc Block": {
		Format:     Astc10x8Srgb,
		Compressed: true,
		Class:      ClassAstc,
	},
	"Bc7 Block": {
		Format:     Bc7Unorm,
		Compressed: true,
		Class:      ClassBc7,
	},
	"Etc2 Alpha": {
		Format:     Etc2RgbaUnorm,
		Compressed: true,
		Class:      ClassEtc2Rgba,
	},
	"Packed 16": {
		Format: B5G6R5Unorm,
		Class:  ClassBits16,
	},
	"Depth": {
		Format: D32Float,
		Class:  ClassDepthStencil,
	},
	"Float RGBA": {
		Format: R32G32B32A32Float,
		Class:  ClassBits128,
	},
}

func TestFormatClasses(t *testing.T) {
	for name, testCase := range formatClassCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, testCase.Compressed, testCase.Format.IsCompressed())
			require.Equal(t, testCase.Class, testCase.Format.Class())
		})
	}
}

func TestFormatPredicates(t *testing.T) {
	require.True(t, Astc4x4Unorm.IsAstcUnorm())
	require.False(t, Astc4x4Srgb.IsAstcUnorm())
	require.True(t, Astc4x4Srgb.IsSrgb())
	require.True(t, Bc2Srgb.IsBc123())
	require.True(t, Bc5Snorm.IsBc45())
	require.True(t, Bc6HUfloat.IsBc67())
	require.True(t, A1B5G5R5Unorm.IsPacked16())
	require.False(t, R4G4B4A4Unorm.IsPacked16())
	require.False(t, Format(999).IsValid())
	require.Equal(t, "Invalid", Format(999).String())
	require.Equal(t, 12, Astc12x10Unorm.BlockWidth())
	require.Equal(t, 10, Astc12x10Unorm.BlockHeight())
}
