package soft_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texcache/backend/soft"
	"github.com/vkngwrapper/texcache/texutils/format"
	"golang.org/x/exp/slog"
)

func rgbaInfo(width, height, layers, levels int) backend.HostTextureInfo {
	target := backend.Texture2D
	if layers > 1 {
		target = backend.Texture2DArray
	}

	return backend.HostTextureInfo{
		Width:         width,
		Height:        height,
		Depth:         layers,
		Levels:        levels,
		Samples:       1,
		BlockWidth:    1,
		BlockHeight:   1,
		BytesPerPixel: 4,
		Format:        format.R8G8B8A8Unorm,
		Target:        target,
	}
}

func newRenderer() *soft.Renderer {
	return soft.NewRenderer(slog.New(slog.NewJSONHandler(io.Discard)), backend.AllCapabilities)
}

func sequentialBytes(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func TestSetDataGetData(t *testing.T) {
	renderer := newRenderer()

	texture, err := renderer.CreateTexture(rgbaInfo(8, 4, 2, 2), 1)
	require.NoError(t, err)

	// Level 0 is 8x4 per layer, level 1 is 4x2 per layer
	size := (8*4*2 + 4*2*2) * 4
	data := sequentialBytes(size)
	require.NoError(t, texture.SetData(data))

	out, err := texture.GetData()
	require.NoError(t, err)
	require.Equal(t, data, out)

	slice, err := texture.GetDataSlice(1, 1)
	require.NoError(t, err)
	require.Equal(t, data[8*4*2*4+4*2*4:], slice)
}

func TestSetDataTooShort(t *testing.T) {
	renderer := newRenderer()

	texture, err := renderer.CreateTexture(rgbaInfo(4, 4, 1, 1), 1)
	require.NoError(t, err)

	require.Error(t, texture.SetData(make([]byte, 10)))
}

func TestViewSharesStorage(t *testing.T) {
	renderer := newRenderer()

	texture, err := renderer.CreateTexture(rgbaInfo(4, 4, 4, 3), 1)
	require.NoError(t, err)

	view, err := texture.CreateView(rgbaInfo(2, 2, 1, 1), 2, 1)
	require.NoError(t, err)

	payload := sequentialBytes(2 * 2 * 4)
	require.NoError(t, view.SetData(payload))

	slice, err := texture.GetDataSlice(2, 1)
	require.NoError(t, err)
	require.Equal(t, payload, slice)

	require.Equal(t, 1, renderer.CreatedCount())
	require.Equal(t, 1, renderer.LiveCount())

	texture.Release()
	require.Equal(t, 1, renderer.LiveCount())

	view.Release()
	require.Equal(t, 0, renderer.LiveCount())
}

func TestViewOutOfBounds(t *testing.T) {
	renderer := newRenderer()

	texture, err := renderer.CreateTexture(rgbaInfo(4, 4, 2, 1), 1)
	require.NoError(t, err)

	_, err = texture.CreateView(rgbaInfo(4, 4, 1, 1), 2, 0)
	require.Error(t, err)

	_, err = texture.CreateView(rgbaInfo(2, 2, 1, 1), 0, 1)
	require.Error(t, err)
}

func TestScaledTextureSize(t *testing.T) {
	renderer := newRenderer()

	texture, err := renderer.CreateTexture(rgbaInfo(5, 3, 1, 1), 1.5)
	require.NoError(t, err)

	require.Equal(t, 8, texture.Width())
	require.Equal(t, 5, texture.Height())
	require.Equal(t, float32(1.5), texture.ScaleFactor())

	data, err := texture.GetData()
	require.NoError(t, err)
	require.Len(t, data, 8*5*4)
}

func TestCopyToScaledNearest(t *testing.T) {
	renderer := newRenderer()

	src, err := renderer.CreateTexture(rgbaInfo(2, 2, 1, 1), 1)
	require.NoError(t, err)
	dst, err := renderer.CreateTexture(rgbaInfo(2, 2, 1, 1), 2)
	require.NoError(t, err)

	pixels := []byte{
		1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4,
	}
	require.NoError(t, src.SetData(pixels))

	region := backend.Extents2D{X2: 2, Y2: 2}
	require.NoError(t, src.CopyToScaled(dst, region, region.Scale(2), false))

	out, err := dst.GetData()
	require.NoError(t, err)
	require.Len(t, out, 4*4*4)

	expectedRows := [][]byte{{1, 1, 2, 2}, {1, 1, 2, 2}, {3, 3, 4, 4}, {3, 3, 4, 4}}
	for y, row := range expectedRows {
		for x, value := range row {
			offset := (y*4 + x) * 4
			require.Equal(t, []byte{value, value, value, value}, out[offset:offset+4], "pixel %d,%d", x, y)
		}
	}
}

func TestCopyToScaledSameSizeIsExact(t *testing.T) {
	renderer := newRenderer()

	src, err := renderer.CreateTexture(rgbaInfo(4, 4, 1, 2), 2)
	require.NoError(t, err)
	dst, err := renderer.CreateTexture(rgbaInfo(4, 4, 1, 2), 2)
	require.NoError(t, err)

	data := sequentialBytes((8*8 + 4*4) * 4)
	require.NoError(t, src.SetData(data))

	region := backend.Extents2D{X2: 4, Y2: 4}.Scale(2)
	require.NoError(t, src.CopyToScaled(dst, region, region, true))

	out, err := dst.GetData()
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestCopyToScaledBilinearUniform(t *testing.T) {
	renderer := newRenderer()

	src, err := renderer.CreateTexture(rgbaInfo(4, 4, 1, 1), 2)
	require.NoError(t, err)
	dst, err := renderer.CreateTexture(rgbaInfo(4, 4, 1, 1), 1)
	require.NoError(t, err)

	data := make([]byte, 8*8*4)
	for i := 0; i < len(data); i += 4 {
		copy(data[i:], []byte{200, 100, 50, 255})
	}
	require.NoError(t, src.SetData(data))

	region := backend.Extents2D{X2: 4, Y2: 4}
	require.NoError(t, src.CopyToScaled(dst, region.Scale(2), region, true))

	out, err := dst.GetData()
	require.NoError(t, err)

	for i := 0; i < len(out); i += 4 {
		require.InDelta(t, 200, int(out[i]), 1)
		require.InDelta(t, 100, int(out[i+1]), 1)
		require.InDelta(t, 50, int(out[i+2]), 1)
		require.InDelta(t, 255, int(out[i+3]), 1)
	}
}

func TestCopyToSlice(t *testing.T) {
	renderer := newRenderer()

	src, err := renderer.CreateTexture(rgbaInfo(2, 2, 2, 1), 1)
	require.NoError(t, err)
	dst, err := renderer.CreateTexture(rgbaInfo(2, 2, 3, 1), 1)
	require.NoError(t, err)

	layer := sequentialBytes(2 * 2 * 4)
	require.NoError(t, src.SetDataSlice(layer, 1, 0))
	require.NoError(t, src.CopyToSlice(dst, 1, 2, 0, 0))

	out, err := dst.GetDataSlice(2, 0)
	require.NoError(t, err)
	require.Equal(t, layer, out)
}

func TestReleasedTexture(t *testing.T) {
	renderer := newRenderer()

	texture, err := renderer.CreateTexture(rgbaInfo(2, 2, 1, 1), 1)
	require.NoError(t, err)

	texture.Release()
	texture.Release()
	require.Equal(t, 0, renderer.LiveCount())

	_, err = texture.GetData()
	require.Error(t, err)
}
