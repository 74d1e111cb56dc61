package texcache

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texcache/backend/soft"
	"github.com/vkngwrapper/texcache/texutils/format"
	"golang.org/x/exp/slog"
)

const mebibyteRange = uint64(mebibyte)

type testRig struct {
	memory   *guestmem.Memory
	renderer *soft.Renderer
	manager  *Manager
}

type RigSetup struct {
	MemorySize   uint64
	Capabilities backend.CapabilityFlags
	Options      CreateOptions
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard))
}

func readyRig(t *testing.T, setup RigSetup) *testRig {
	if setup.MemorySize == 0 {
		setup.MemorySize = mebibyteRange
	}
	if setup.Capabilities == 0 {
		setup.Capabilities = backend.AllCapabilities
	}

	memory := guestmem.New(setup.MemorySize)
	renderer := soft.NewRenderer(testLogger(), setup.Capabilities)

	manager, err := New(testLogger(), renderer, memory, setup.Options)
	require.NoError(t, err)

	return &testRig{
		memory:   memory,
		renderer: renderer,
		manager:  manager,
	}
}

func rgbaInfo(width, height int) TextureInfo {
	return TextureInfo{
		Format:           format.R8G8B8A8Unorm,
		Width:            width,
		Height:           height,
		DepthOrLayers:    1,
		Levels:           1,
		GobBlocksInY:     1,
		GobBlocksInZ:     1,
		GobBlocksInTileX: 1,
		Target:           backend.Texture2D,
		Swizzle:          backend.IdentitySwizzle,
	}
}

func rgbaArrayInfo(width, height, layers, levels int) TextureInfo {
	info := rgbaInfo(width, height)
	info.DepthOrLayers = layers
	info.Levels = levels
	info.Target = backend.Texture2DArray
	return info
}

func filledBytes(size int, value byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = value
	}
	return data
}

func sequentialBytes(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*13 + i/256)
	}
	return data
}

func (r *testRig) createTexture(t *testing.T, info TextureInfo, address uint64, scaleMode ScaleMode, withData bool) *Texture {
	sizeInfo := info.CalculateSizeInfo()
	texture, err := r.manager.CreateTexture(info, guestmem.SingleRange(address, uint64(sizeInfo.TotalSize)), scaleMode, withData)
	require.NoError(t, err)
	require.NoError(t, texture.Validate())
	return texture
}

func (r *testRig) readGuest(t *testing.T, texture *Texture) []byte {
	data, err := r.memory.GetSpan(texture.Range())
	require.NoError(t, err)
	return data
}

func hostData(t *testing.T, texture *Texture) []byte {
	data, err := texture.HostTexture().GetData()
	require.NoError(t, err)
	return data
}

type forceRemoveCall struct {
	texture  *Texture
	id       int
	deferred bool
}

type updateMappingCall struct {
	texture *Texture
	id      int
}

type fakePool struct {
	forceRemoved   []forceRemoveCall
	updateMappings []updateMappingCall
}

func (p *fakePool) ForceRemove(texture *Texture, id int, deferred bool) {
	p.forceRemoved = append(p.forceRemoved, forceRemoveCall{texture: texture, id: id, deferred: deferred})
}

func (p *fakePool) QueueUpdateMapping(texture *Texture, id int) {
	p.updateMappings = append(p.updateMappings, updateMappingCall{texture: texture, id: id})
}
