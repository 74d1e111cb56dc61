package texcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheEvictsOverBudget(t *testing.T) {
	rig := readyRig(t, RigSetup{
		MemorySize: 40 * mebibyteRange,
		Options: CreateOptions{
			Config: Config{Cache: CacheOptions{Budget: 32 * mebibyte}},
		},
	})
	cache := rig.manager.Cache()

	// 512x512 RGBA8 occupies exactly one mebibyte
	info := rgbaInfo(512, 512)
	require.Equal(t, mebibyte, info.CalculateSizeInfo().TotalSize)

	var textures []*Texture
	for i := 0; i < 40; i++ {
		textures = append(textures, rig.createTexture(t, info, uint64(i)*mebibyteRange, ScaleUndesired, false))
		require.LessOrEqual(t, cache.Count(), 32)
		require.NoError(t, cache.Validate())
	}

	require.Equal(t, 32, cache.Count())
	require.Equal(t, 32*mebibyte, cache.TotalSize())
	require.Equal(t, 32, rig.manager.TextureCount())
	require.Equal(t, 32, rig.memory.HandleCount())
	require.Equal(t, 32, rig.renderer.LiveCount())

	for i, texture := range textures {
		if i < 8 {
			require.True(t, texture.IsDisposed(), "texture %d", i)
			require.False(t, cache.Contains(texture))
		} else {
			require.False(t, texture.IsDisposed(), "texture %d", i)
			require.True(t, cache.Contains(texture))
			require.Equal(t, 1, texture.ReferenceCount())
		}
	}

	stats := rig.manager.BuildStatsString(false)
	require.Contains(t, stats, `"Evictions":8`)
	require.Contains(t, stats, `"TextureCount":32`)
}

func TestCacheBudgetNeedsMinimumCount(t *testing.T) {
	rig := readyRig(t, RigSetup{
		MemorySize: 8 * mebibyteRange,
		Options: CreateOptions{
			Config: Config{Cache: CacheOptions{Budget: mebibyte}},
		},
	})

	info := rgbaInfo(512, 512)
	for i := 0; i < 8; i++ {
		rig.createTexture(t, info, uint64(i)*mebibyteRange, ScaleUndesired, false)
	}

	// Far over budget, but below the default minimum count for deletion
	require.Equal(t, 8, rig.manager.Cache().Count())
	require.Equal(t, 8*mebibyte, rig.manager.Cache().TotalSize())
}

func TestCacheMaxCapacity(t *testing.T) {
	rig := readyRig(t, RigSetup{
		Options: CreateOptions{
			Config: Config{Cache: CacheOptions{MaxCapacity: 4, MinCountForDeletion: 2}},
		},
	})
	cache := rig.manager.Cache()

	info := rgbaInfo(16, 16)
	size := uint64(info.CalculateSizeInfo().TotalSize)

	var textures []*Texture
	for i := 0; i < 6; i++ {
		textures = append(textures, rig.createTexture(t, info, uint64(i)*size, ScaleUndesired, false))
	}

	require.Equal(t, 4, cache.Count())
	require.Equal(t, textures[2:], cache.Textures())
	require.True(t, textures[0].IsDisposed())
	require.True(t, textures[1].IsDisposed())
}

func TestCacheLiftOrder(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	cache := rig.manager.Cache()

	info := rgbaInfo(16, 16)
	size := uint64(info.CalculateSizeInfo().TotalSize)

	a := rig.createTexture(t, info, 0, ScaleUndesired, false)
	b := rig.createTexture(t, info, size, ScaleUndesired, false)
	c := rig.createTexture(t, info, 2*size, ScaleUndesired, false)

	cache.Lift(a)
	require.Equal(t, []*Texture{b, c, a}, cache.Textures())

	cache.Lift(a)
	require.Equal(t, []*Texture{b, c, a}, cache.Textures())
	require.Equal(t, 3, cache.Count())
	require.Equal(t, 1, a.ReferenceCount())
	require.NoError(t, cache.Validate())

	cache.RemoveLeastUsedTexture()
	require.Equal(t, []*Texture{c, a}, cache.Textures())
	require.True(t, b.IsDisposed())
	require.Equal(t, 2*int(size), cache.TotalSize())
}

func TestCacheLiftReaddsTexture(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	cache := rig.manager.Cache()

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)
	texture.IncrementReferenceCount()

	released, err := cache.Remove(texture, false)
	require.NoError(t, err)
	require.False(t, released)
	require.False(t, cache.Contains(texture))
	require.Zero(t, cache.Count())

	cache.Lift(texture)
	require.True(t, cache.Contains(texture))
	require.Equal(t, 2, texture.ReferenceCount())
	require.Equal(t, texture.Size(), cache.TotalSize())
}

func TestCacheRemoveReleasesLastReference(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	cache := rig.manager.Cache()

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)

	released, err := cache.Remove(texture, false)
	require.NoError(t, err)
	require.True(t, released)
	require.True(t, texture.IsDisposed())
	require.Zero(t, rig.manager.TextureCount())
	require.Zero(t, rig.renderer.LiveCount())

	released, err = cache.Remove(texture, false)
	require.NoError(t, err)
	require.False(t, released)
}

func TestCacheRemoveDeferred(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	cache := rig.manager.Cache()

	info := rgbaInfo(16, 16)
	size := uint64(info.CalculateSizeInfo().TotalSize)

	texture := rig.createTexture(t, info, 0, ScaleUndesired, false)

	done := make(chan struct{})
	go func() {
		cache.RemoveDeferred(texture)
		close(done)
	}()
	<-done

	require.True(t, cache.Contains(texture))

	rig.createTexture(t, info, size, ScaleUndesired, false)
	require.False(t, cache.Contains(texture))
	require.True(t, texture.IsDisposed())
	require.Equal(t, 1, cache.Count())
}

func TestCacheEvictionFlushesModifiedTexture(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	cache := rig.manager.Cache()

	texture := rig.createTexture(t, rgbaInfo(64, 64), 0, ScaleUndesired, true)
	require.NoError(t, texture.HostTexture().SetData(filledBytes(64*64*4, 0x5c)))
	texture.SignalModified()
	require.True(t, texture.IsModified())

	cache.RemoveLeastUsedTexture()

	require.True(t, texture.IsDisposed())
	require.Equal(t, filledBytes(64*64*4, 0x5c), rig.readGuest(t, texture))
}

func TestCacheRemoveWithFlush(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	cache := rig.manager.Cache()

	texture := rig.createTexture(t, rgbaInfo(64, 64), 0, ScaleUndesired, true)
	texture.IncrementReferenceCount()
	require.NoError(t, texture.HostTexture().SetData(filledBytes(64*64*4, 0x21)))
	texture.SignalModified()

	released, err := cache.Remove(texture, true)
	require.NoError(t, err)
	require.False(t, released)
	require.False(t, texture.IsModified())
	require.Equal(t, filledBytes(64*64*4, 0x21), rig.readGuest(t, texture))
}

func TestCacheKeepsSingleTextureOverBudget(t *testing.T) {
	rig := readyRig(t, RigSetup{
		Options: CreateOptions{
			Config: Config{Cache: CacheOptions{Budget: 1, MinCountForDeletion: 1}},
		},
	})
	cache := rig.manager.Cache()

	info := rgbaInfo(16, 16)
	size := uint64(info.CalculateSizeInfo().TotalSize)

	// The texture just added is never its own eviction victim
	first := rig.createTexture(t, info, 0, ScaleUndesired, false)
	require.Equal(t, 1, cache.Count())
	require.True(t, cache.Contains(first))
	require.False(t, first.IsDisposed())

	cache.Lift(first)
	require.Equal(t, []*Texture{first}, cache.Textures())
	require.False(t, first.IsDisposed())
	require.NoError(t, cache.Validate())

	second := rig.createTexture(t, info, size, ScaleUndesired, false)
	require.True(t, first.IsDisposed())
	require.False(t, second.IsDisposed())
	require.Equal(t, []*Texture{second}, cache.Textures())
	require.Equal(t, int(size), cache.TotalSize())
}
