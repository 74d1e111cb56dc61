package texcache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texutils"
	"github.com/vkngwrapper/texcache/texutils/format"
)

func TestCreateTextureInvalidFormat(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	info := rgbaInfo(16, 16)
	info.Format = format.Format(999)

	texture, err := rig.manager.CreateTexture(info, guestmem.SingleRange(0, 0x400), ScaleUndesired, false)
	require.ErrorIs(t, err, texutils.InvalidFormatError)
	require.Nil(t, texture)
	require.Equal(t, 0, rig.manager.TextureCount())
	require.Equal(t, 0, rig.renderer.LiveCount())
}

func TestFindOrCreateTexture(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	info := rgbaInfo(32, 32)
	textureRange := guestmem.SingleRange(0x8000, uint64(info.CalculateSizeInfo().TotalSize))

	missing, err := rig.manager.FindOrCreateTexture(info, textureRange, TextureSearchNoCreate)
	require.NoError(t, err)
	require.Nil(t, missing)

	created, err := rig.manager.FindOrCreateTexture(info, textureRange, 0)
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, ScaleUndesired, created.ScaleMode())

	found, err := rig.manager.FindOrCreateTexture(info, textureRange, TextureSearchNoCreate)
	require.NoError(t, err)
	require.Same(t, created, found)

	found, err = rig.manager.FindOrCreateTexture(info, textureRange, 0)
	require.NoError(t, err)
	require.Same(t, created, found)

	require.Equal(t, 1, rig.manager.TextureCount())
	require.Equal(t, 1, rig.manager.Cache().Count())
}

func TestFindOrCreateTextureWithUpscale(t *testing.T) {
	rig := scaledRig(t)

	info := rgbaInfo(32, 32)
	textureRange := guestmem.SingleRange(0, uint64(info.CalculateSizeInfo().TotalSize))

	texture, err := rig.manager.FindOrCreateTexture(info, textureRange, TextureSearchWithUpscale)
	require.NoError(t, err)
	require.Equal(t, ScaleEligible, texture.ScaleMode())
}

func TestFindOverlaps(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	info := rgbaInfo(16, 16)
	size := uint64(info.CalculateSizeInfo().TotalSize)

	first := rig.createTexture(t, info, 0, ScaleUndesired, false)
	second := rig.createTexture(t, info, size, ScaleUndesired, false)
	rig.createTexture(t, info, 4*size, ScaleUndesired, false)

	overlaps := rig.manager.FindOverlaps(guestmem.SingleRange(size/2, size))
	require.Equal(t, []*Texture{first, second}, overlaps)

	require.Empty(t, rig.manager.FindOverlaps(guestmem.SingleRange(8*size, size)))
}

func TestTextureLookupByHandle(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)

	found, ok := rig.manager.Texture(texture.Handle())
	require.True(t, ok)
	require.Same(t, texture, found)

	_, err := rig.manager.Cache().Remove(texture, false)
	require.NoError(t, err)

	_, ok = rig.manager.Texture(texture.Handle())
	require.False(t, ok)
}

func TestCalculateStatistics(t *testing.T) {
	rig := scaledRig(t)

	small := rgbaInfo(16, 16)
	large := rgbaInfo(64, 64)

	rig.createTexture(t, small, 0, ScaleUndesired, false)
	scaled := rig.createTexture(t, large, 0x10000, ScaleEligible, true)
	require.NoError(t, scaled.ScaleForRenderTarget())

	var stats texutils.DetailedStatistics
	rig.manager.CalculateStatistics(&stats)

	require.Equal(t, 2, stats.TextureCount)
	require.Equal(t, small.CalculateSizeInfo().TotalSize+large.CalculateSizeInfo().TotalSize, stats.TextureBytes)
	require.Equal(t, 1, stats.ScaledCount)
	require.Equal(t, small.CalculateSizeInfo().TotalSize, stats.TextureSizeMin)
	require.Equal(t, large.CalculateSizeInfo().TotalSize, stats.TextureSizeMax)
	require.Equal(t, 0, stats.Evictions)
}

func TestBuildStatsString(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	empty := rig.manager.BuildStatsString(false)
	require.True(t, strings.HasPrefix(empty, `{"Total":{"TextureCount":0,`), empty)
	require.Contains(t, empty, `"TextureSizeMin":0`)
	require.NotContains(t, empty, `"Textures"`)

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)

	detailed := rig.manager.BuildStatsString(true)
	require.Contains(t, detailed, `"TextureCount":1`)
	require.Contains(t, detailed, `"LiveTextures":1`)
	require.Contains(t, detailed, `"Textures":[{"Handle":`)
	require.Contains(t, detailed, `"Range":"`+texture.Range().String()+`"`)
}

func TestManagerExternallySynchronized(t *testing.T) {
	rig := readyRig(t, RigSetup{
		Options: CreateOptions{Flags: ManagerCreateExternallySynchronized},
	})
	require.False(t, rig.manager.useMutex)

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)
	require.False(t, texture.poolOwnersMutex.UseMutex)

	rig.manager.Cache().RemoveDeferred(texture)
	rig.manager.Cache().ProcessShortCache()
	require.True(t, texture.IsDisposed())
}

func TestFlagStrings(t *testing.T) {
	require.Equal(t, "ManagerCreateExternallySynchronized", ManagerCreateExternallySynchronized.String())
	require.Equal(t, "TextureSearchNoCreate", TextureSearchNoCreate.String())
}

func TestFindOrCreateTextureKeepsEvictedCopySource(t *testing.T) {
	rig := readyRig(t, RigSetup{
		Capabilities: backend.AllCapabilities &^ backend.SupportsMismatchingViewFormat,
		Options: CreateOptions{
			Config: Config{Cache: CacheOptions{Budget: 1, MinCountForDeletion: 1}},
		},
	})

	unormInfo := rgbaInfo(16, 16)
	size := unormInfo.CalculateSizeInfo().TotalSize
	textureRange := guestmem.SingleRange(0x8000, uint64(size))

	unorm, err := rig.manager.FindOrCreateTexture(unormInfo, textureRange, 0)
	require.NoError(t, err)
	require.NoError(t, unorm.HostTexture().SetData(filledBytes(size, 0x5a)))
	unorm.SignalModified()

	srgbInfo := unormInfo
	srgbInfo.Format = format.R8G8B8A8Srgb

	// Adding the new texture evicts the copy source, which must stay alive until it is linked
	srgb, err := rig.manager.FindOrCreateTexture(srgbInfo, textureRange, 0)
	require.NoError(t, err)
	require.NotNil(t, srgb)

	require.True(t, unorm.IsDisposed())
	require.False(t, srgb.Group().HasCopyDependencies())
	require.Equal(t, []*Texture{srgb}, rig.manager.Cache().Textures())
	require.Equal(t, filledBytes(size, 0x5a), hostData(t, srgb))
	require.Equal(t, filledBytes(size, 0x5a), rig.readGuest(t, srgb))
}
