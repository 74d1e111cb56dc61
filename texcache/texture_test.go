package texcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texutils/format"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestGuestRoundTrip(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	info := rgbaInfo(64, 64)
	guest := sequentialBytes(info.CalculateSizeInfo().TotalSize)
	require.NoError(t, rig.memory.Write(0, guest))

	texture := rig.createTexture(t, info, 0, ScaleUndesired, true)
	require.True(t, texture.HasData())

	output := make([]byte, len(guest))
	require.NoError(t, texture.GetTextureDataFromGpu(output, false))
	require.Equal(t, guest, output)
}

func TestSynchronizeMemoryAfterCPUWrite(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	texture := rig.createTexture(t, rgbaInfo(64, 64), 0, ScaleUndesired, true)
	require.Equal(t, filledBytes(64*64*4, 0), hostData(t, texture))

	require.NoError(t, rig.memory.Write(0, filledBytes(64*64*4, 0x42)))
	require.NoError(t, texture.SynchronizeMemory())
	require.Equal(t, filledBytes(64*64*4, 0x42), hostData(t, texture))

	// The CPU did not write again, so the host copy is left alone
	require.NoError(t, texture.HostTexture().SetData(filledBytes(64*64*4, 0x11)))
	require.NoError(t, texture.SynchronizeMemory())
	require.Equal(t, filledBytes(64*64*4, 0x11), hostData(t, texture))
}

func TestTrackedFlushIsNotACPUWrite(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	texture := rig.createTexture(t, rgbaInfo(64, 64), 0, ScaleUndesired, true)
	require.NoError(t, texture.HostTexture().SetData(filledBytes(64*64*4, 0x33)))

	flushed, err := texture.FlushModified(true)
	require.NoError(t, err)
	require.False(t, flushed)

	texture.SignalModified()
	flushed, err = texture.FlushModified(true)
	require.NoError(t, err)
	require.True(t, flushed)
	require.False(t, texture.IsModified())
	require.Equal(t, filledBytes(64*64*4, 0x33), rig.readGuest(t, texture))

	require.False(t, texture.Group().CheckDirty(texture, false))
}

func TestFlushSkipsHostDecodedFormats(t *testing.T) {
	rig := readyRig(t, RigSetup{
		Capabilities: backend.AllCapabilities &^ backend.SupportsBc123Compression,
	})

	info := rgbaInfo(8, 8)
	info.Format = format.Bc1RgbaUnorm
	texture := rig.createTexture(t, info, 0, ScaleUndesired, true)
	require.Equal(t, format.R8G8B8A8Unorm, texture.HostFormat())

	// All-zero BC1 blocks decode to opaque black
	expected := make([]byte, 8*8*4)
	for i := 3; i < len(expected); i += 4 {
		expected[i] = 0xff
	}
	require.Equal(t, expected, hostData(t, texture))

	require.NoError(t, texture.HostTexture().SetData(filledBytes(8*8*4, 0x80)))
	texture.SignalModified()

	flushed, err := texture.FlushModified(true)
	require.NoError(t, err)
	require.True(t, flushed)
	require.Equal(t, filledBytes(texture.Size(), 0), rig.readGuest(t, texture))
}

func TestSetDataBlacklistsScaling(t *testing.T) {
	rig := readyRig(t, RigSetup{
		Options: CreateOptions{Config: Config{ResolutionScale: 2, EnableScaling: true}},
	})

	texture := rig.createTexture(t, rgbaInfo(32, 32), 0, ScaleEligible, true)
	require.NoError(t, texture.ScaleForRenderTarget())
	require.Equal(t, float32(2), texture.ScaleFactor())

	data := filledBytes(32*32*4, 0x64)
	require.NoError(t, texture.SetData(data))

	require.Equal(t, ScaleBlacklisted, texture.ScaleMode())
	require.Equal(t, float32(1), texture.ScaleFactor())
	require.True(t, texture.AlwaysFlushOnOverlap())
	require.Equal(t, data, hostData(t, texture))
}

func TestViewOfLayerAndLevel(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	parentInfo := rgbaArrayInfo(64, 64, 4, 3)
	parentSize := parentInfo.CalculateSizeInfo()
	require.NoError(t, rig.memory.Write(0, sequentialBytes(parentSize.TotalSize)))

	parent, err := rig.manager.FindOrCreateTexture(parentInfo, guestmem.SingleRange(0, uint64(parentSize.TotalSize)), 0)
	require.NoError(t, err)

	viewInfo := rgbaInfo(32, 32)
	viewOffset := uint64(parentSize.GetOffset(2, 1))
	viewRange := guestmem.SingleRange(viewOffset, uint64(viewInfo.CalculateSizeInfo().TotalSize))

	compatibility, layer, level := parent.IsViewCompatible(&viewInfo, viewRange, true, viewInfo.CalculateSizeInfo().LayerSize, backend.AllCapabilities, 0)
	require.Equal(t, Full, compatibility)
	require.Equal(t, 2, layer)
	require.Equal(t, 1, level)

	view, err := rig.manager.FindOrCreateTexture(viewInfo, viewRange, 0)
	require.NoError(t, err)

	require.True(t, view.IsView())
	require.Same(t, parent, view.Storage())
	require.Equal(t, 2, view.FirstLayer())
	require.Equal(t, 1, view.FirstLevel())
	require.Same(t, parent.Group(), view.Group())
	require.Equal(t, []*Texture{view}, parent.Views())
	require.Equal(t, 2, parent.ReferenceCount())
	require.NoError(t, parent.Validate())
	require.NoError(t, view.Validate())
	require.Equal(t, 1, rig.renderer.CreatedCount())

	slice, err := parent.HostTexture().GetDataSlice(2, 1)
	require.NoError(t, err)
	require.Equal(t, slice, hostData(t, view))

	// A lookup with the same parameters finds the view instead of creating another one
	again, err := rig.manager.FindOrCreateTexture(viewInfo, viewRange, TextureSearchNoCreate)
	require.NoError(t, err)
	require.Same(t, view, again)

	// CPU writes to the view's memory reach the shared storage
	require.NoError(t, rig.memory.Write(viewOffset, filledBytes(32*32*4, 0x77)))
	require.NoError(t, view.SynchronizeMemory())
	require.Equal(t, filledBytes(32*32*4, 0x77), hostData(t, view))
}

func TestViewKeepsStorageAlive(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	cache := rig.manager.Cache()

	parentInfo := rgbaArrayInfo(64, 64, 4, 3)
	parent := rig.createTexture(t, parentInfo, 0, ScaleUndesired, true)

	viewInfo := rgbaInfo(32, 32)
	offset := uint64(parent.SizeInfo().GetOffset(1, 1))
	view, err := rig.manager.CreateView(parent, viewInfo, guestmem.SingleRange(offset, uint64(viewInfo.CalculateSizeInfo().TotalSize)), 1, 1)
	require.NoError(t, err)

	released, err := cache.Remove(parent, false)
	require.NoError(t, err)
	require.False(t, released)
	require.False(t, parent.IsDisposed())
	require.Equal(t, 1, parent.ReferenceCount())

	released, err = cache.Remove(view, false)
	require.NoError(t, err)
	require.True(t, released)
	require.True(t, view.IsDisposed())
	require.True(t, parent.IsDisposed())
	require.Empty(t, parent.Views())
	require.Zero(t, rig.manager.TextureCount())
	require.Zero(t, rig.renderer.LiveCount())
	require.Zero(t, rig.memory.HandleCount())
}

func TestRemovingViewReleasesStorageReference(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	parentInfo := rgbaArrayInfo(64, 64, 2, 1)
	parent := rig.createTexture(t, parentInfo, 0, ScaleUndesired, true)

	viewInfo := rgbaInfo(64, 64)
	offset := uint64(parent.SizeInfo().GetOffset(1, 0))
	view, err := rig.manager.CreateView(parent, viewInfo, guestmem.SingleRange(offset, uint64(viewInfo.CalculateSizeInfo().TotalSize)), 1, 0)
	require.NoError(t, err)
	require.Equal(t, 2, parent.ReferenceCount())

	_, err = rig.manager.Cache().Remove(view, false)
	require.NoError(t, err)

	require.Equal(t, 1, parent.ReferenceCount())
	require.Empty(t, parent.Views())
	require.False(t, parent.IsDisposed())
	require.NoError(t, parent.Validate())
	require.Equal(t, 1, rig.renderer.LiveCount())
}

func TestDecrementReferenceCountUnderflowPanics(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)
	require.True(t, texture.DecrementReferenceCount())
	require.True(t, texture.IsDisposed())

	require.Panics(t, func() {
		texture.DecrementReferenceCount()
	})
}

func TestPoolReferences(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	pool := &fakePool{}

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)
	require.False(t, texture.HadPoolOwner())

	texture.IncrementPoolReferenceCount(pool, 1, 0x1000)
	texture.IncrementPoolReferenceCount(pool, 2, 0x1000)
	require.Equal(t, 3, texture.ReferenceCount())
	require.True(t, texture.HadPoolOwner())

	require.False(t, texture.DecrementPoolReferenceCount(pool, 5))
	require.Equal(t, 3, texture.ReferenceCount())

	require.False(t, texture.DecrementPoolReferenceCount(pool, 1))
	require.Equal(t, 2, texture.ReferenceCount())

	texture.IncrementPoolReferenceCount(pool, 3, 0x1000)
	require.False(t, texture.DecrementPoolReferenceCount(pool, -1))
	require.Equal(t, 1, texture.ReferenceCount())
	require.True(t, texture.HadPoolOwner())
}

func TestRemoveFromPools(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	pool := &fakePool{}

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)
	texture.IncrementPoolReferenceCount(pool, 6, 0x2000)
	sequence := texture.InvalidatedSequence()

	texture.RemoveFromPools(false)

	require.Equal(t, []forceRemoveCall{{texture: texture, id: 6, deferred: false}}, pool.forceRemoved)
	require.Equal(t, sequence+1, texture.InvalidatedSequence())
	require.False(t, texture.DecrementPoolReferenceCount(pool, 6))
}

func TestUpdatePoolMappings(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	pool := &fakePool{}

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)
	texture.IncrementPoolReferenceCount(pool, 1, 0x1000)
	texture.IncrementPoolReferenceCount(pool, 2, 0x2000)
	texture.IncrementPoolReferenceCount(pool, 3, 0x1000)

	texture.UpdatePoolMappings()

	require.Equal(t, []updateMappingCall{{texture: texture, id: 1}, {texture: texture, id: 3}}, pool.updateMappings)
	require.Equal(t, []forceRemoveCall{{texture: texture, id: 2, deferred: true}}, pool.forceRemoved)
}

func TestUnmapped(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	pool := &fakePool{}

	info := rgbaInfo(16, 16)
	size := uint64(info.CalculateSizeInfo().TotalSize)
	texture := rig.createTexture(t, info, 0x4000, ScaleUndesired, true)
	texture.IncrementPoolReferenceCount(pool, 8, 0x9000)

	// Unmapping memory elsewhere changes nothing but the flag
	texture.Unmapped(guestmem.SingleRange(0, 0x100))
	require.True(t, texture.ChangedMapping())
	require.Empty(t, pool.forceRemoved)

	texture.Unmapped(guestmem.SingleRange(0x4000, size/2))
	require.Equal(t, []forceRemoveCall{{texture: texture, id: 8, deferred: true}}, pool.forceRemoved)
	require.Equal(t, size, texture.Range().Size())
	require.False(t, texture.Overlaps(0x4000, size/2))
	require.True(t, texture.Overlaps(0x4000+size/2, 1))
	require.True(t, texture.Group().CheckDirty(texture, false))
}

func TestUpdateRange(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	info := rgbaInfo(16, 16)
	size := uint64(info.CalculateSizeInfo().TotalSize)
	texture := rig.createTexture(t, info, 0, ScaleUndesired, true)

	require.NoError(t, rig.memory.Write(size, filledBytes(int(size), 0x3c)))
	texture.UpdateRange(guestmem.SingleRange(size, size))
	require.NoError(t, texture.SynchronizeMemory())
	require.Equal(t, filledBytes(int(size), 0x3c), hostData(t, texture))
}

func TestDiscardData(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, true)
	texture.SignalModified()
	require.NoError(t, rig.memory.Write(0, filledBytes(16, 0x99)))

	texture.DiscardData()
	require.False(t, texture.IsModified())
	require.False(t, texture.Group().CheckDirty(texture, false))
}

func TestSignalModifyingHoldsReference(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)

	texture.SignalModifying(true)
	require.Equal(t, 2, texture.ReferenceCount())
	require.True(t, texture.IsModified())

	texture.SignalModifying(false)
	require.Equal(t, 1, texture.ReferenceCount())
}

func TestCopyDependency(t *testing.T) {
	rig := readyRig(t, RigSetup{
		Capabilities: backend.AllCapabilities &^ backend.SupportsMismatchingViewFormat,
	})

	unormInfo := rgbaInfo(32, 32)
	size := uint64(unormInfo.CalculateSizeInfo().TotalSize)
	textureRange := guestmem.SingleRange(0, size)
	require.NoError(t, rig.memory.Write(0, filledBytes(int(size), 0x10)))

	unorm, err := rig.manager.FindOrCreateTexture(unormInfo, textureRange, 0)
	require.NoError(t, err)

	srgbInfo := unormInfo
	srgbInfo.Format = format.R8G8B8A8Srgb

	compatibility, _, _ := unorm.IsViewCompatible(&srgbInfo, textureRange, true, unorm.SizeInfo().LayerSize, rig.manager.Capabilities(), 0)
	require.Equal(t, CopyOnly, compatibility)

	compatibility, _, _ = unorm.IsViewCompatible(&srgbInfo, textureRange, true, unorm.SizeInfo().LayerSize, rig.manager.Capabilities(), TextureSearchStrict)
	require.Equal(t, Incompatible, compatibility)

	srgb, err := rig.manager.FindOrCreateTexture(srgbInfo, textureRange, 0)
	require.NoError(t, err)
	require.NotSame(t, unorm, srgb)
	require.False(t, srgb.IsView())
	require.True(t, unorm.Group().HasCopyDependencies())
	require.True(t, srgb.Group().HasCopyDependencies())

	// A GPU write to one side is copied to the other before it is next used
	require.NoError(t, srgb.HostTexture().SetData(filledBytes(int(size), 0xa0)))
	srgb.SignalModified()

	require.NoError(t, unorm.SynchronizeMemory())
	require.Equal(t, filledBytes(int(size), 0xa0), hostData(t, unorm))

	// Releasing one side unlinks the dependency from the other
	_, err = rig.manager.Cache().Remove(srgb, false)
	require.NoError(t, err)
	require.True(t, srgb.IsDisposed())
	require.False(t, unorm.Group().HasCopyDependencies())
}

func TestOverlaps(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	info := rgbaInfo(16, 16)
	size := uint64(info.CalculateSizeInfo().TotalSize)

	a := rig.createTexture(t, info, 0, ScaleUndesired, false)
	b := rig.createTexture(t, info, size/2, ScaleUndesired, false)
	c := rig.createTexture(t, info, 4*size, ScaleUndesired, false)

	require.True(t, a.DataOverlaps(b))
	require.False(t, a.DataOverlaps(c))
	require.True(t, a.Overlaps(size-1, 1))
	require.False(t, a.Overlaps(size, 1))
	require.True(t, a.FullyOverlaps(guestmem.SingleRange(0, 2*size)))
	require.False(t, b.FullyOverlaps(guestmem.SingleRange(0, size)))

	require.Equal(t, []*Texture{a, b}, rig.manager.FindOverlaps(guestmem.SingleRange(0, size)))
}

func TestDataOverlapsInterleavedSlices(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	info := rgbaInfo(16, 16)
	info.Target = backend.Texture3D
	info.DepthOrLayers = 4
	info.GobBlocksInZ = 2

	a := NewTexture(rig.manager, info, info.CalculateSizeInfo(), guestmem.SingleRange(0, 0x1000), ScaleUndesired)
	b := NewTexture(rig.manager, info, info.CalculateSizeInfo(), guestmem.SingleRange(0x800, 0x1000), ScaleUndesired)

	require.False(t, a.DataOverlaps(b))
	require.True(t, a.Overlaps(0x800, 1))

	// Only 3D textures interleave, whatever the Z blocking of a 2D array says
	arrayInfo := rgbaArrayInfo(16, 16, 4, 1)
	arrayInfo.GobBlocksInZ = 2

	c := NewTexture(rig.manager, arrayInfo, arrayInfo.CalculateSizeInfo(), guestmem.SingleRange(0x4000, 0x1000), ScaleUndesired)
	d := NewTexture(rig.manager, arrayInfo, arrayInfo.CalculateSizeInfo(), guestmem.SingleRange(0x4800, 0x1000), ScaleUndesired)

	require.True(t, c.DataOverlaps(d))
	require.True(t, d.DataOverlaps(c))
}

func TestSetDataSlice(t *testing.T) {
	rig := scaledRig(t)

	texture := rig.createTexture(t, rgbaArrayInfo(16, 16, 2, 2), 0, ScaleEligible, true)
	levelSize := texture.SizeInfo().GetLevelSize(1)

	require.NoError(t, texture.SetDataSlice(filledBytes(levelSize, 0x77), 1, 1))
	require.Equal(t, ScaleBlacklisted, texture.ScaleMode())

	slice, err := texture.HostTexture().GetDataSlice(1, 1)
	require.NoError(t, err)
	require.Equal(t, filledBytes(8*8*4, 0x77), slice)

	untouched, err := texture.HostTexture().GetDataSlice(0, 1)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 8*8*4), untouched)

	output := make([]byte, levelSize)
	require.NoError(t, texture.GetTextureDataSliceFromGpu(output, 1, 1, false))

	written := 0
	for _, value := range output {
		if value == 0x77 {
			written++
		}
	}
	require.Equal(t, 8*8*4, written)
}

func TestFlushTextureDataToGuest(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0x2000, ScaleUndesired, true)
	require.NoError(t, texture.HostTexture().SetData(filledBytes(16*16*4, 0x3c)))

	require.NoError(t, texture.FlushTextureDataToGuest(false))
	require.Equal(t, filledBytes(16*16*4, 0x3c), rig.readGuest(t, texture)[:16*16*4])
	require.False(t, texture.Group().CheckDirty(texture, false))
}

func TestHasOneReference(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	texture := rig.createTexture(t, rgbaInfo(16, 16), 0, ScaleUndesired, false)
	require.True(t, texture.HasOneReference())

	texture.IncrementReferenceCount()
	require.False(t, texture.HasOneReference())

	require.False(t, texture.DecrementReferenceCount())
	require.True(t, texture.HasOneReference())
}

func TestReplaceView(t *testing.T) {
	rig := readyRig(t, RigSetup{})

	parent := rig.createTexture(t, rgbaArrayInfo(32, 32, 2, 1), 0, ScaleUndesired, true)

	info := rgbaInfo(32, 32)
	offset := uint64(parent.SizeInfo().GetOffset(1, 0))
	standalone := rig.createTexture(t, info, offset, ScaleUndesired, true)
	require.Equal(t, 2, rig.renderer.LiveCount())

	host, err := parent.HostTexture().CreateView(info.hostInfo(format.R8G8B8A8Unorm), 1, 0)
	require.NoError(t, err)

	require.NoError(t, standalone.ReplaceView(parent, info, host, 1, 0))

	require.True(t, standalone.IsView())
	require.Same(t, parent, standalone.Storage())
	require.Equal(t, 1, standalone.FirstLayer())
	require.Equal(t, []*Texture{standalone}, parent.Views())
	require.Same(t, parent.Group(), standalone.Group())
	require.Same(t, host, standalone.HostTexture())
	require.Equal(t, 2, parent.ReferenceCount())
	require.Equal(t, 1, rig.renderer.LiveCount())
	require.NoError(t, parent.Validate())
}

func TestUnchangedAstcUploadsAreSkipped(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	rig := readyRig(t, RigSetup{
		Capabilities: backend.AllCapabilities &^ backend.SupportsAstcCompression,
		Options:      CreateOptions{MeterProvider: provider},
	})

	info := rgbaInfo(8, 8)
	info.Format = format.Astc4x4Unorm

	texture := rig.createTexture(t, info, 0, ScaleUndesired, true)
	require.Equal(t, format.R8G8B8A8Unorm, texture.HostFormat())

	uploads := func() (int64, int64) {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		return sumInt64(t, &rm, "texcache.uploads"), sumInt64(t, &rm, "texcache.uploads.skipped")
	}

	// The first uploads never compare, and the one after them takes the snapshot
	for i := 0; i < byteComparisonSwitchThreshold; i++ {
		require.NoError(t, texture.SynchronizeFull())
	}
	uploaded, skipped := uploads()
	require.Equal(t, int64(byteComparisonSwitchThreshold+1), uploaded)
	require.Equal(t, int64(0), skipped)

	require.NoError(t, texture.SynchronizeFull())
	require.NoError(t, texture.SynchronizeFull())
	uploaded, skipped = uploads()
	require.Equal(t, int64(byteComparisonSwitchThreshold+1), uploaded)
	require.Equal(t, int64(2), skipped)

	// New guest bytes are uploaded again
	require.NoError(t, rig.memory.Write(0, sequentialBytes(texture.Size())))
	require.NoError(t, texture.SynchronizeFull())
	require.NoError(t, texture.SynchronizeFull())
	uploaded, skipped = uploads()
	require.Equal(t, int64(byteComparisonSwitchThreshold+2), uploaded)
	require.Equal(t, int64(3), skipped)
}
