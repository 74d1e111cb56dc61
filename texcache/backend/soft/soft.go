package soft

import (
	"image"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texutils"
	"golang.org/x/exp/slog"
	"golang.org/x/image/draw"
)

// Renderer is a backend.Renderer that keeps host textures in CPU memory. It stands in for a GPU
// backend wherever the texture cache runs without one.
type Renderer struct {
	logger       *slog.Logger
	capabilities backend.CapabilityFlags

	createdCount int
	liveCount    int
}

var _ backend.Renderer = &Renderer{}

// NewRenderer creates a renderer that reports the given capabilities
func NewRenderer(logger *slog.Logger, capabilities backend.CapabilityFlags) *Renderer {
	return &Renderer{
		logger:       logger,
		capabilities: capabilities,
	}
}

func (r *Renderer) Capabilities() backend.CapabilityFlags {
	return r.capabilities
}

// CreatedCount returns the number of textures the renderer has created, excluding views
func (r *Renderer) CreatedCount() int {
	return r.createdCount
}

// LiveCount returns the number of textures whose storage has not been released
func (r *Renderer) LiveCount() int {
	return r.liveCount
}

func (r *Renderer) CreateTexture(info backend.HostTextureInfo, scaleFactor float32) (backend.HostTexture, error) {
	r.logger.Debug("Renderer::CreateTexture", slog.String("Format", info.Format.String()), slog.Float64("Scale", float64(scaleFactor)))

	if info.Width <= 0 || info.Height <= 0 {
		return nil, errors.Newf("cannot create a %dx%d texture", info.Width, info.Height)
	}
	if scaleFactor <= 0 {
		return nil, errors.Newf("invalid scale factor %f", scaleFactor)
	}

	info.BlockWidth = max(info.BlockWidth, 1)
	info.BlockHeight = max(info.BlockHeight, 1)
	info.Levels = max(info.Levels, 1)
	info.Depth = max(info.Depth, 1)

	s := &storage{
		renderer: r,
		info:     info,
		scale:    scaleFactor,
		width:    backend.ScaledSize(info.Width, scaleFactor),
		height:   backend.ScaledSize(info.Height, scaleFactor),
		refs:     1,
	}

	s.slices = make([][][]byte, info.Levels)
	for level := range s.slices {
		s.slices[level] = make([][]byte, info.Layers())
		for layer := range s.slices[level] {
			s.slices[level][layer] = make([]byte, s.sliceSize(level))
		}
	}

	r.createdCount++
	r.liveCount++

	return &Texture{
		storage: s,
		info:    info,
	}, nil
}

type storage struct {
	renderer *Renderer
	info     backend.HostTextureInfo
	scale    float32

	width  int
	height int

	// slices holds one byte slice per level, then per layer
	slices [][][]byte
	refs   int
}

func (s *storage) levelExtents(level int) (width, height, depth int) {
	width = texutils.LevelSize(s.width, level)
	height = texutils.LevelSize(s.height, level)
	depth = 1
	if s.info.Target.Is3D() {
		depth = texutils.LevelSize(s.info.Depth, level)
	}
	return width, height, depth
}

func (s *storage) sliceSize(level int) int {
	width, height, depth := s.levelExtents(level)
	width = texutils.DivRoundUp(width, s.info.BlockWidth)
	height = texutils.DivRoundUp(height, s.info.BlockHeight)
	return width * height * depth * s.info.BytesPerPixel
}

func (s *storage) release() {
	s.refs--
	if s.refs == 0 {
		s.slices = nil
		s.renderer.liveCount--
	}
}

// Texture is a CPU memory host texture, or a view onto one
type Texture struct {
	storage *storage
	info    backend.HostTextureInfo

	firstLayer int
	firstLevel int
	released   bool
}

var _ backend.HostTexture = &Texture{}

func (t *Texture) Info() backend.HostTextureInfo {
	return t.info
}

func (t *Texture) Width() int {
	return texutils.LevelSize(t.storage.width, t.firstLevel)
}

func (t *Texture) Height() int {
	return texutils.LevelSize(t.storage.height, t.firstLevel)
}

func (t *Texture) ScaleFactor() float32 {
	return t.storage.scale
}

func (t *Texture) levels() int {
	return max(t.info.Levels, 1)
}

func (t *Texture) layers() int {
	return t.info.Layers()
}

func (t *Texture) slice(layer, level int) ([]byte, error) {
	if t.released {
		return nil, errors.New("texture was released")
	}

	if level < 0 || level >= t.levels() || layer < 0 || layer >= t.layers() {
		return nil, errors.Newf("layer %d level %d is outside of a texture with %d layers and %d levels", layer, level, t.layers(), t.levels())
	}

	storageLevel := t.firstLevel + level
	storageLayer := t.firstLayer + layer
	if storageLevel >= len(t.storage.slices) || storageLayer >= len(t.storage.slices[storageLevel]) {
		return nil, errors.Newf("view layer %d level %d is outside of its storage", layer, level)
	}

	return t.storage.slices[storageLevel][storageLayer], nil
}

func (t *Texture) CreateView(info backend.HostTextureInfo, firstLayer, firstLevel int) (backend.HostTexture, error) {
	if t.released {
		return nil, errors.New("cannot create a view of a released texture")
	}

	info.Levels = max(info.Levels, 1)
	info.Depth = max(info.Depth, 1)

	if t.firstLevel+firstLevel+info.Levels > len(t.storage.slices) {
		return nil, errors.Newf("view levels %d-%d exceed the storage's %d levels", firstLevel, firstLevel+info.Levels, len(t.storage.slices))
	}
	if t.firstLayer+firstLayer+info.Layers() > t.storage.info.Layers() {
		return nil, errors.Newf("view layers %d-%d exceed the storage's %d layers", firstLayer, firstLayer+info.Layers(), t.storage.info.Layers())
	}

	t.storage.refs++

	return &Texture{
		storage:    t.storage,
		info:       info,
		firstLayer: t.firstLayer + firstLayer,
		firstLevel: t.firstLevel + firstLevel,
	}, nil
}

func (t *Texture) CopyTo(destination backend.HostTexture, firstLayer, firstLevel int) error {
	for level := 0; level < t.levels(); level++ {
		for layer := 0; layer < t.layers(); layer++ {
			if err := t.CopyToSlice(destination, layer, firstLayer+layer, level, firstLevel+level); err != nil {
				return err
			}
		}
	}

	return nil
}

func (t *Texture) CopyToSlice(destination backend.HostTexture, srcLayer, dstLayer, srcLevel, dstLevel int) error {
	dst, ok := destination.(*Texture)
	if !ok {
		return errors.Newf("cannot copy to foreign texture type %T", destination)
	}

	src, err := t.slice(srcLayer, srcLevel)
	if err != nil {
		return err
	}

	out, err := dst.slice(dstLayer, dstLevel)
	if err != nil {
		return err
	}

	copy(out, src)
	return nil
}

func (t *Texture) CopyToScaled(destination backend.HostTexture, srcRegion, dstRegion backend.Extents2D, linearFilter bool) error {
	dst, ok := destination.(*Texture)
	if !ok {
		return errors.Newf("cannot copy to foreign texture type %T", destination)
	}

	levels := min(t.levels(), dst.levels())
	layers := min(t.layers(), dst.layers())

	for level := 0; level < levels; level++ {
		srcLevelRegion := t.blockRegion(levelRegion(srcRegion, level))
		dstLevelRegion := dst.blockRegion(levelRegion(dstRegion, level))

		for layer := 0; layer < layers; layer++ {
			src, err := t.slice(layer, level)
			if err != nil {
				return err
			}

			out, err := dst.slice(layer, level)
			if err != nil {
				return err
			}

			srcImage := t.sliceImage(src, level)
			dstImage := dst.sliceImage(out, level)
			blit(dstImage, dstLevelRegion, srcImage, srcLevelRegion, linearFilter)
		}
	}

	return nil
}

func levelRegion(region backend.Extents2D, level int) backend.Extents2D {
	return backend.Extents2D{
		X1: region.X1 >> level,
		Y1: region.Y1 >> level,
		X2: max(region.X2>>level, 1),
		Y2: max(region.Y2>>level, 1),
	}
}

// blockRegion converts a region in texels to one in blocks of the storage format
func (t *Texture) blockRegion(region backend.Extents2D) backend.Extents2D {
	blockWidth, blockHeight := t.storage.info.BlockWidth, t.storage.info.BlockHeight
	return backend.Extents2D{
		X1: region.X1 / blockWidth,
		Y1: region.Y1 / blockHeight,
		X2: texutils.DivRoundUp(region.X2, blockWidth),
		Y2: texutils.DivRoundUp(region.Y2, blockHeight),
	}
}

func (t *Texture) SetData(data []byte) error {
	offset := 0
	for level := 0; level < t.levels(); level++ {
		for layer := 0; layer < t.layers(); layer++ {
			out, err := t.slice(layer, level)
			if err != nil {
				return err
			}

			if offset+len(out) > len(data) {
				return errors.Wrapf(texutils.LayoutMismatchError, "host data is %d bytes, texture requires at least %d", len(data), offset+len(out))
			}

			copy(out, data[offset:offset+len(out)])
			offset += len(out)
		}
	}

	return nil
}

func (t *Texture) SetDataSlice(data []byte, layer, level int) error {
	out, err := t.slice(layer, level)
	if err != nil {
		return err
	}

	if len(data) < len(out) {
		return errors.Wrapf(texutils.LayoutMismatchError, "host data is %d bytes, slice requires %d", len(data), len(out))
	}

	copy(out, data)
	return nil
}

func (t *Texture) GetData() ([]byte, error) {
	var data []byte
	for level := 0; level < t.levels(); level++ {
		for layer := 0; layer < t.layers(); layer++ {
			src, err := t.slice(layer, level)
			if err != nil {
				return nil, err
			}
			data = append(data, src...)
		}
	}

	return data, nil
}

func (t *Texture) GetDataSlice(layer, level int) ([]byte, error) {
	src, err := t.slice(layer, level)
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(src))
	copy(data, src)
	return data, nil
}

func (t *Texture) Release() {
	if t.released {
		return
	}

	t.released = true
	t.storage.release()
}

// sliceView addresses one slice of a texture in units of texels, or blocks for compressed formats
type sliceView struct {
	data          []byte
	width         int
	height        int
	depth         int
	bytesPerPixel int
	// rgba is set for 4 byte uncompressed formats, which are blitted with filtering
	rgba *image.RGBA
}

func (t *Texture) sliceImage(data []byte, level int) sliceView {
	width, height, depth := t.storage.levelExtents(t.firstLevel + level)
	width = texutils.DivRoundUp(width, t.storage.info.BlockWidth)
	height = texutils.DivRoundUp(height, t.storage.info.BlockHeight)

	view := sliceView{
		data:          data,
		width:         width,
		height:        height,
		depth:         depth,
		bytesPerPixel: t.storage.info.BytesPerPixel,
	}

	if view.bytesPerPixel == 4 && t.storage.info.BlockWidth == 1 && t.storage.info.BlockHeight == 1 && depth == 1 {
		view.rgba = &image.RGBA{
			Pix:    data,
			Stride: width * 4,
			Rect:   image.Rect(0, 0, width, height),
		}
	}

	return view
}

func clipRegion(region backend.Extents2D, width, height int) image.Rectangle {
	return image.Rect(region.X1, region.Y1, region.X2, region.Y2).Intersect(image.Rect(0, 0, width, height))
}

func blit(dst sliceView, dstRegion backend.Extents2D, src sliceView, srcRegion backend.Extents2D, linearFilter bool) {
	dstRect := clipRegion(dstRegion, dst.width, dst.height)
	srcRect := clipRegion(srcRegion, src.width, src.height)
	if dstRect.Empty() || srcRect.Empty() {
		return
	}

	if dstRect.Size() == srcRect.Size() && dst.bytesPerPixel == src.bytesPerPixel {
		copyRect(dst, dstRect, src, srcRect)
		return
	}

	if dst.rgba != nil && src.rgba != nil {
		var scaler draw.Scaler = draw.NearestNeighbor
		if linearFilter {
			scaler = draw.BiLinear
		}
		scaler.Scale(dst.rgba, dstRect, src.rgba, srcRect, draw.Src, nil)
		return
	}

	nearestRect(dst, dstRect, src, srcRect)
}

func copyRect(dst sliceView, dstRect image.Rectangle, src sliceView, srcRect image.Rectangle) {
	bpp := dst.bytesPerPixel
	rowSize := dstRect.Dx() * bpp
	depth := min(dst.depth, src.depth)

	for z := 0; z < depth; z++ {
		for y := 0; y < dstRect.Dy(); y++ {
			srcOffset := ((z*src.height+srcRect.Min.Y+y)*src.width + srcRect.Min.X) * bpp
			dstOffset := ((z*dst.height+dstRect.Min.Y+y)*dst.width + dstRect.Min.X) * bpp
			copy(dst.data[dstOffset:dstOffset+rowSize], src.data[srcOffset:srcOffset+rowSize])
		}
	}
}

func nearestRect(dst sliceView, dstRect image.Rectangle, src sliceView, srcRect image.Rectangle) {
	bpp := min(dst.bytesPerPixel, src.bytesPerPixel)
	depth := min(dst.depth, src.depth)

	for z := 0; z < depth; z++ {
		for y := 0; y < dstRect.Dy(); y++ {
			srcY := srcRect.Min.Y + y*srcRect.Dy()/dstRect.Dy()

			for x := 0; x < dstRect.Dx(); x++ {
				srcX := srcRect.Min.X + x*srcRect.Dx()/dstRect.Dx()

				srcOffset := ((z*src.height+srcY)*src.width + srcX) * src.bytesPerPixel
				dstOffset := ((z*dst.height+dstRect.Min.Y+y)*dst.width + dstRect.Min.X + x) * dst.bytesPerPixel
				copy(dst.data[dstOffset:dstOffset+bpp], src.data[srcOffset:srcOffset+bpp])
			}
		}
	}
}
