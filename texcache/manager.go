package texcache

import (
	"math"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texutils"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating a Manager
type CreateOptions struct {
	// Flags indicates specific manager behaviors to activate or deactivate
	Flags CreateFlags
	// Config holds the texture cache settings. Zero fields select their defaults.
	Config Config
	// MeterProvider receives the cache's metrics. When it is nil, metrics are discarded.
	MeterProvider metric.MeterProvider
}

// Manager owns every texture created for one GPU context, along with the auto delete cache that
// keeps them alive. All methods must be called from the GPU command goroutine, except where noted
// on Texture.
type Manager struct {
	useMutex bool
	logger   *slog.Logger

	renderer     backend.Renderer
	memory       guestmem.PhysicalMemory
	capabilities backend.CapabilityFlags
	config       Config
	metrics      *Metrics

	cache *AutoDeleteCache

	textures   *swiss.Map[TextureHandle, *Texture]
	nextHandle TextureHandle
	sequence   int64
}

// New creates a new Manager
//
// renderer - The backend that host textures are created from
//
// memory - Guest physical memory. If it also implements guestmem.Tracker, CPU writes to texture
// memory are detected and reuploaded.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, renderer backend.Renderer, memory guestmem.PhysicalMemory, options CreateOptions) (*Manager, error) {
	config := options.Config
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(options.MeterProvider)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create texture cache metrics")
	}

	useMutex := options.Flags&ManagerCreateExternallySynchronized == 0

	manager := &Manager{
		useMutex: useMutex,
		logger:   logger,

		renderer:     renderer,
		memory:       memory,
		capabilities: renderer.Capabilities(),
		config:       config,
		metrics:      metrics,

		textures: swiss.NewMap[TextureHandle, *Texture](64),
	}
	manager.cache = NewAutoDeleteCache(logger, metrics, config.Cache, useMutex)

	return manager, nil
}

// Initialize sizes the auto delete cache's byte budget from the host's RAM and the GPU's reported
// memory, both in bytes
func (m *Manager) Initialize(cpuMemory, gpuMaxMemory uint64) {
	m.logger.Debug("Manager::Initialize")
	m.cache.Initialize(cpuMemory, gpuMaxMemory)
}

func (m *Manager) Cache() *AutoDeleteCache { return m.cache }
func (m *Manager) Config() Config { return m.config }
func (m *Manager) Capabilities() backend.CapabilityFlags { return m.capabilities }
func (m *Manager) Logger() *slog.Logger { return m.logger }
func (m *Manager) Metrics() *Metrics { return m.metrics }

// Texture returns the live texture with the given handle
func (m *Manager) Texture(handle TextureHandle) (*Texture, bool) {
	return m.textures.Get(handle)
}

// TextureCount returns the number of live textures, including those no longer in the cache that
// are still referenced elsewhere
func (m *Manager) TextureCount() int {
	return m.textures.Count()
}

func (m *Manager) register(texture *Texture) {
	m.nextHandle++
	texture.handle = m.nextHandle
	m.textures.Put(texture.handle, texture)
}

func (m *Manager) unregister(texture *Texture) {
	m.textures.Delete(texture.handle)
}

func (m *Manager) nextSequence() int64 {
	m.sequence++
	return m.sequence
}

// CreateTexture creates a texture for guest memory at textureRange and adds it to the cache. When
// withData is set the texture is loaded from guest memory; otherwise its contents are undefined
// until the GPU writes them.
func (m *Manager) CreateTexture(info TextureInfo, textureRange guestmem.MultiRange, scaleMode ScaleMode, withData bool) (*Texture, error) {
	m.logger.Debug("Manager::CreateTexture",
		slog.String("Format", info.Format.String()),
		slog.Int("Width", info.Width),
		slog.Int("Height", info.Height),
		slog.String("Range", textureRange.String()),
	)

	if !info.Format.IsValid() {
		return nil, errors.Wrapf(texutils.InvalidFormatError, "cannot create a texture of format %d", info.Format)
	}

	if !m.config.EnableScaling && scaleMode != ScaleBlacklisted {
		scaleMode = ScaleUndesired
	}

	texture := NewTexture(m, info, info.CalculateSizeInfo(), textureRange, scaleMode)
	texture.InitializeGroup(false, false)

	if err := texture.InitializeData(false, withData); err != nil {
		texture.dispose()
		m.unregister(texture)
		return nil, err
	}

	m.cache.Add(texture)
	return texture, nil
}

// CreateView creates a view of parent at firstLayer and firstLevel of parent and adds it to the cache
func (m *Manager) CreateView(parent *Texture, info TextureInfo, textureRange guestmem.MultiRange, firstLayer, firstLevel int) (*Texture, error) {
	view, err := parent.CreateView(info, info.CalculateSizeInfo(), textureRange, firstLayer, firstLevel)
	if err != nil {
		return nil, err
	}

	if err := view.InitializeData(true, false); err != nil {
		return nil, err
	}

	m.cache.Add(view)
	return view, nil
}

// FindOverlaps returns every live texture whose guest memory intersects textureRange, in creation
// order
func (m *Manager) FindOverlaps(textureRange guestmem.MultiRange) []*Texture {
	var overlaps []*Texture
	m.textures.Iter(func(handle TextureHandle, texture *Texture) bool {
		if !texture.disposed && texture.textureRange.OverlapsWith(textureRange) {
			overlaps = append(overlaps, texture)
		}
		return false
	})

	slices.SortFunc(overlaps, func(a, b *Texture) int {
		return int(a.handle) - int(b.handle)
	})
	return overlaps
}

// FindOrCreateTexture returns a texture for info at textureRange: an existing texture that matches
// exactly, a new view of an existing texture, or a new texture loaded from guest memory. Existing
// textures that share memory with a new texture but cannot view it are linked to it through copy
// dependencies. It returns nil without error if nothing matches and flags include
// TextureSearchNoCreate.
func (m *Manager) FindOrCreateTexture(info TextureInfo, textureRange guestmem.MultiRange, flags TextureSearchFlags) (*Texture, error) {
	overlaps := m.FindOverlaps(textureRange)

	for _, texture := range overlaps {
		if !texture.textureRange.Equals(textureRange) || texture.IsExactMatch(&info, flags) == NoMatch {
			continue
		}

		if err := texture.SynchronizeMemory(); err != nil {
			return nil, err
		}
		m.cache.Lift(texture)
		return texture, nil
	}

	if flags&TextureSearchNoCreate != 0 {
		return nil, nil
	}

	sizeInfo := info.CalculateSizeInfo()

	type copyCandidate struct {
		texture  *Texture
		layer    int
		level    int
		modified bool
	}
	var copyCandidates []copyCandidate

	// Candidates must outlive any eviction caused by adding the new texture
	defer func() {
		for _, candidate := range copyCandidates {
			candidate.texture.DecrementReferenceCount()
		}
	}()

	for _, texture := range overlaps {
		if texture.IsView() {
			continue
		}

		compatibility, layer, level := texture.IsViewCompatible(&info, textureRange, true, sizeInfo.LayerSize, m.capabilities, flags)
		switch compatibility {
		case Full:
			if err := texture.SynchronizeMemory(); err != nil {
				return nil, err
			}
			return m.CreateView(texture, info, textureRange, layer, level)
		case CopyOnly:
			texture.IncrementReferenceCount()
			copyCandidates = append(copyCandidates, copyCandidate{texture: texture, layer: layer, level: level, modified: texture.IsModified()})
		}
	}

	scaleMode := ScaleUndesired
	if flags&TextureSearchWithUpscale != 0 {
		scaleMode = ScaleEligible
	}

	created, err := m.CreateTexture(info, textureRange, scaleMode, true)
	if err != nil {
		return nil, err
	}

	for _, candidate := range copyCandidates {
		err := candidate.texture.CreateCopyDependency(created, candidate.layer, candidate.level, candidate.modified)
		if err != nil {
			if _, removeErr := m.cache.Remove(created, false); removeErr != nil {
				err = errors.CombineErrors(err, removeErr)
			}
			return nil, err
		}
	}

	return created, nil
}

// CalculateStatistics fills stats with the current contents of the cache
func (m *Manager) CalculateStatistics(stats *texutils.DetailedStatistics) {
	stats.Clear()
	m.cache.AddDetailedStatistics(stats)
}

// BuildStatsString returns a JSON summary of the cache. When detailed is set every cached texture
// is listed as well.
func (m *Manager) BuildStatsString(detailed bool) string {
	var stats texutils.DetailedStatistics
	m.CalculateStatistics(&stats)
	if stats.TextureSizeMin == math.MaxInt {
		stats.TextureSizeMin = 0
	}

	writer := jwriter.NewWriter()
	obj := writer.Object()

	total := obj.Name("Total").Object()
	total.Name("TextureCount").Int(stats.TextureCount)
	total.Name("TextureBytes").Int(stats.TextureBytes)
	total.Name("Evictions").Int(stats.Evictions)
	total.Name("EvictedBytes").Int(stats.EvictedBytes)
	total.Name("ShortCacheCount").Int(stats.ShortCacheCount)
	total.Name("ScaledCount").Int(stats.ScaledCount)
	total.Name("TextureSizeMin").Int(stats.TextureSizeMin)
	total.Name("TextureSizeMax").Int(stats.TextureSizeMax)
	total.End()

	obj.Name("Budget").Int(m.cache.Budget())
	obj.Name("LiveTextures").Int(m.textures.Count())

	if detailed {
		m.cache.BuildStatsString(obj.Name("Textures"))
	}

	obj.End()
	return string(writer.Bytes())
}
