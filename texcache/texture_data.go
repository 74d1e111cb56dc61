package texcache

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texutils"
	"github.com/vkngwrapper/texcache/texutils/decoders"
	"github.com/vkngwrapper/texcache/texutils/format"
	"github.com/vkngwrapper/texcache/texutils/layout"
	"golang.org/x/exp/slog"
)

// SynchronizeMemory uploads guest data to the host texture if the CPU wrote to the texture's guest
// memory since it was last synchronized
func (t *Texture) SynchronizeMemory() error {
	if t.info.Target == backend.TextureBuffer {
		return nil
	}

	if !t.dirty && !t.group.CheckDirty(t, false) {
		return t.group.SynchronizeDependents(t)
	}

	t.dirty = false

	if t.hasData {
		return t.group.SynchronizeMemory(t)
	}

	t.group.ConsumeDirty(t)
	if err := t.SynchronizeFull(); err != nil {
		return err
	}

	return t.group.SynchronizeDependents(t)
}

// SynchronizeFull reloads every level and layer of the texture from guest memory
func (t *Texture) SynchronizeFull() error {
	t.logger().Debug("Texture::SynchronizeFull")

	if t.hasData {
		t.group.CheckDirty(t, true)
	}

	return t.loadFromGuest()
}

func (t *Texture) loadFromGuest() error {
	data, err := t.manager.memory.GetSpan(t.textureRange)
	if err != nil {
		return errors.Wrapf(err, "failed to read guest data at %s", t.textureRange)
	}

	if t.skipUnchangedUpload(data) {
		t.manager.metrics.recordUpload(true)
		return nil
	}

	converted, err := t.ConvertToHostCompatibleFormat(data, 0, false)
	if err != nil {
		return err
	}

	if err := t.uploadToHost(converted); err != nil {
		return err
	}

	t.hasData = true
	t.manager.metrics.recordUpload(false)
	return nil
}

// skipUnchangedUpload reports whether data matches the last upload of a texture whose guest format
// is decoded on the CPU. Comparison only starts once the texture has been uploaded a few times, as
// most textures are uploaded once.
func (t *Texture) skipUnchangedUpload(data []byte) bool {
	if !t.info.Format.IsAstc() || t.hostFormat == t.info.Format {
		return false
	}

	if t.updateCount < byteComparisonSwitchThreshold {
		t.updateCount++
		return false
	}

	if t.currentData != nil && bytes.Equal(t.currentData, data) {
		return true
	}

	t.currentData = data
	return false
}

func (t *Texture) uploadToHost(data []byte) error {
	if t.scaleFactor != 1 {
		allowed, err := t.AllowScaledSetData()
		if err != nil {
			return err
		}

		if allowed {
			temp, err := t.temporaryHostTexture(&t.setHostTexture)
			if err != nil {
				return err
			}

			if err := temp.SetData(data); err != nil {
				return errors.Wrap(err, "failed to upload to temporary host texture")
			}

			return temp.CopyToScaled(t.hostTexture, t.extents(), t.extents().Scale(t.scaleFactor), true)
		}
	}

	if err := t.hostTexture.SetData(data); err != nil {
		return errors.Wrapf(err, "failed to upload %d bytes to host texture", len(data))
	}
	return nil
}

// SetData replaces the texture's contents with data, which is in guest layout. Scaling is
// disabled for the texture, as the data was not produced by the GPU.
func (t *Texture) SetData(data []byte) error {
	t.logger().Debug("Texture::SetData", slog.Int("Size", len(data)))

	if err := t.BlacklistScale(); err != nil {
		return err
	}

	t.group.CheckDirty(t, true)
	t.alwaysFlushOnOverlap = true

	converted, err := t.ConvertToHostCompatibleFormat(data, 0, false)
	if err != nil {
		return err
	}

	if err := t.hostTexture.SetData(converted); err != nil {
		return errors.Wrapf(err, "failed to upload %d bytes to host texture", len(converted))
	}

	t.hasData = true
	return nil
}

// SetDataSlice replaces a single layer and level of the texture with data, which is in guest layout
func (t *Texture) SetDataSlice(data []byte, layer, level int) error {
	t.logger().Debug("Texture::SetDataSlice", slog.Int("Layer", layer), slog.Int("Level", level))

	if err := t.BlacklistScale(); err != nil {
		return err
	}

	converted, err := t.ConvertToHostCompatibleFormat(data, level, true)
	if err != nil {
		return err
	}

	if err := t.hostTexture.SetDataSlice(converted, layer, level); err != nil {
		return errors.Wrapf(err, "failed to upload layer %d level %d", layer, level)
	}

	return nil
}

func (t *Texture) surface(level int, single bool) decoders.Surface {
	if single {
		return decoders.Surface{
			Width:  texutils.LevelSize(t.info.Width, level),
			Height: texutils.LevelSize(t.info.Height, level),
			Depth:  texutils.LevelSize(t.info.GetDepth(), level),
			Levels: 1,
			Layers: 1,
		}
	}

	return decoders.Surface{
		Width:  t.info.Width,
		Height: t.info.Height,
		Depth:  t.info.GetDepth(),
		Levels: t.info.LevelCount(),
		Layers: t.info.GetLayers(),
	}
}

// ConvertToHostCompatibleFormat detiles guest data into linear layout and decodes it if the host
// cannot store the guest format. When single is set, data holds only the given level of one layer;
// otherwise it holds the whole texture. The returned buffer never aliases data.
func (t *Texture) ConvertToHostCompatibleFormat(data []byte, level int, single bool) ([]byte, error) {
	params := t.info.LayoutParams()

	var linear []byte
	if t.info.IsLinear {
		linear = layout.ConvertLinearStridedToLinear(
			texutils.LevelSize(t.info.Width, level),
			texutils.LevelSize(t.info.Height, level),
			params.BlockWidth, params.BlockHeight,
			params.Stride, params.BytesPerPixel,
			data,
		)
	} else {
		firstLevel, levels, layers := 0, t.info.LevelCount(), t.info.GetLayers()
		if single {
			firstLevel, levels, layers = level, 1, 1
		}

		var err error
		linear, err = layout.ConvertBlockLinearToLinear(params, &t.sizeInfo, firstLevel, levels, layers, data)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to detile %s texture", t.info.Format)
		}
	}

	return t.decodeForHost(linear, t.surface(level, single)), nil
}

func (t *Texture) decodeForHost(linear []byte, s decoders.Surface) []byte {
	guest := t.info.Format
	if t.hostFormat == guest {
		return linear
	}

	var decoded []byte
	var err error

	switch guest {
	case format.R4G4Unorm:
		return decoders.ConvertR4G4ToR4G4B4A4(linear)
	case format.B5G6R5Unorm:
		return decoders.ConvertPacked16ToRgba8(linear, decoders.PackedB5G6R5)
	case format.B5G5R5A1Unorm:
		return decoders.ConvertPacked16ToRgba8(linear, decoders.PackedB5G5R5A1)
	case format.A1B5G5R5Unorm:
		return decoders.ConvertPacked16ToRgba8(linear, decoders.PackedA1B5G5R5)
	case format.Etc2RgbUnorm, format.Etc2RgbSrgb:
		decoded, err = decoders.DecodeEtc2Rgb(linear, s)
	case format.Etc2RgbPtaUnorm, format.Etc2RgbPtaSrgb:
		decoded, err = decoders.DecodeEtc2Pta(linear, s)
	case format.Etc2RgbaUnorm, format.Etc2RgbaSrgb:
		decoded, err = decoders.DecodeEtc2Rgba(linear, s)
	case format.Bc1RgbaUnorm, format.Bc1RgbaSrgb:
		decoded, err = decoders.DecodeBc1(linear, s)
	case format.Bc2Unorm, format.Bc2Srgb:
		decoded, err = decoders.DecodeBc2(linear, s)
	case format.Bc3Unorm, format.Bc3Srgb:
		decoded, err = decoders.DecodeBc3(linear, s)
	case format.Bc4Unorm, format.Bc4Snorm:
		decoded, err = decoders.DecodeBc4(linear, s, guest == format.Bc4Snorm)
	case format.Bc5Unorm, format.Bc5Snorm:
		decoded, err = decoders.DecodeBc5(linear, s, guest == format.Bc5Snorm)
	case format.Bc6HSfloat, format.Bc6HUfloat:
		decoded, err = decoders.DecodeBc6(linear, s, guest == format.Bc6HSfloat)
	case format.Bc7Unorm, format.Bc7Srgb:
		decoded, err = decoders.DecodeBc7(linear, s)
	default:
		if !guest.IsAstc() {
			return linear
		}
		decoded, err = decoders.DecodeAstc(linear, s, guest.BlockWidth(), guest.BlockHeight(), guest.IsSrgb())
	}

	if err != nil {
		t.reportDecodeError(err)
	}

	if t.hostFormat == format.Bc7Unorm || t.hostFormat == format.Bc7Srgb {
		decoded = decoders.EncodeBc7(decoded, s)
	}

	return decoded
}

func (t *Texture) reportDecodeError(err error) {
	count := 1
	var blockErr *decoders.BlockError
	if errors.As(err, &blockErr) {
		count = blockErr.Count
	}

	t.logger().Warn("Texture::decodeForHost: guest data contains invalid blocks",
		slog.String("Format", t.info.Format.String()),
		slog.Int("Width", t.info.Width),
		slog.Int("Height", t.info.Height),
		slog.Uint64("Address", t.textureRange.MinAddress()),
		slog.Int("InvalidBlocks", count),
		slog.Any("Error", err),
	)
	t.manager.metrics.recordDecodeFailures(&t.info, count)
}

// ConvertFromHostCompatibleFormat converts host linear data back into the guest format and tiling,
// writing it to output. When single is set, data and output hold only the given level of one layer.
func (t *Texture) ConvertFromHostCompatibleFormat(output []byte, data []byte, level int, single bool) error {
	switch {
	case t.hostFormat == t.info.Format:
	case t.info.Format == format.R4G4Unorm:
		data = decoders.ConvertR4G4B4A4ToR4G4(data)
	case t.info.Format == format.B5G6R5Unorm:
		data = decoders.ConvertRgba8ToPacked16(data, decoders.PackedB5G6R5)
	case t.info.Format == format.B5G5R5A1Unorm:
		data = decoders.ConvertRgba8ToPacked16(data, decoders.PackedB5G5R5A1)
	case t.info.Format == format.A1B5G5R5Unorm:
		data = decoders.ConvertRgba8ToPacked16(data, decoders.PackedA1B5G5R5)
	default:
		return errors.Wrapf(texutils.InvalidFormatError, "cannot convert %s host data back to %s", t.hostFormat, t.info.Format)
	}

	params := t.info.LayoutParams()

	if t.info.IsLinear {
		return layout.ConvertLinearToLinearStrided(
			output,
			texutils.LevelSize(t.info.Width, level),
			texutils.LevelSize(t.info.Height, level),
			params.BlockWidth, params.BlockHeight,
			params.Stride, params.BytesPerPixel,
			data,
		)
	}

	firstLevel, levels, layers := 0, t.info.LevelCount(), t.info.GetLayers()
	if single {
		firstLevel, levels, layers = level, 1, 1
	}

	return layout.ConvertLinearToBlockLinear(output, params, &t.sizeInfo, firstLevel, levels, layers, data)
}

// FlushModified writes the texture's view tree back to guest memory if the GPU modified it. It
// returns whether anything was flushed.
func (t *Texture) FlushModified(tracked bool) (bool, error) {
	if !t.IsModified() {
		return false, nil
	}

	return t.group.FlushModified(t, tracked)
}

// Flush writes the texture back to guest memory. Textures stored on the host in a decoded format
// cannot be flushed. A tracked flush marks the memory as written by the CPU, and an untracked flush
// of a scaled texture disables scaling for it.
func (t *Texture) Flush(tracked bool) error {
	t.group.ClearModified()

	if isDecodedOnHost(t.info.Format, t.manager.capabilities, t.manager.config.EnableTextureRecompression) {
		t.logger().Debug("Texture::Flush: skipping host-decoded format", slog.String("Format", t.info.Format.String()))
		return nil
	}

	t.manager.metrics.recordFlush(&t.info)
	return t.FlushTextureDataToGuest(tracked)
}

// FlushTextureDataToGuest reads the host texture back into the texture's guest memory
func (t *Texture) FlushTextureDataToGuest(tracked bool) error {
	t.logger().Debug("Texture::FlushTextureDataToGuest", slog.Bool("Tracked", tracked))

	region, err := t.manager.memory.GetWritableRegion(t.textureRange, tracked)
	if errors.Is(err, guestmem.OutOfRangeError) {
		// The memory was unmapped under us and there is nowhere to flush to
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "failed to map guest memory at %s", t.textureRange)
	}

	if err := t.GetTextureDataFromGpu(region.Memory, !tracked); err != nil {
		return err
	}

	return region.Close()
}

// GetTextureDataFromGpu reads every level and layer of the host texture into output in guest
// layout. When blacklist is set a scaled texture is returned to 1x permanently rather than read
// through a temporary texture.
func (t *Texture) GetTextureDataFromGpu(output []byte, blacklist bool) error {
	var data []byte
	err := t.readHostData(blacklist, func(host backend.HostTexture) error {
		var err error
		data, err = host.GetData()
		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to read host texture")
	}

	return t.ConvertFromHostCompatibleFormat(output, data, 0, false)
}

// GetTextureDataSliceFromGpu reads a single layer and level of the host texture into output in guest
// layout. Output must begin at that layer and level.
func (t *Texture) GetTextureDataSliceFromGpu(output []byte, layer, level int, blacklist bool) error {
	var data []byte
	err := t.readHostData(blacklist, func(host backend.HostTexture) error {
		var err error
		data, err = host.GetDataSlice(layer, level)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "failed to read layer %d level %d of host texture", layer, level)
	}

	return t.ConvertFromHostCompatibleFormat(output, data, level, true)
}

func (t *Texture) readHostData(blacklist bool, read func(host backend.HostTexture) error) error {
	if t.scaleFactor == 1 {
		return read(t.hostTexture)
	}

	if blacklist {
		if err := t.BlacklistScale(); err != nil {
			return err
		}
		return read(t.hostTexture)
	}

	// Guest memory must only ever see 1x data
	temp, err := t.temporaryHostTexture(&t.flushHostTexture)
	if err != nil {
		return err
	}

	if err := t.hostTexture.CopyToScaled(temp, t.extents().Scale(t.scaleFactor), t.extents(), true); err != nil {
		return errors.Wrap(err, "failed to downscale for readback")
	}

	return read(temp)
}
