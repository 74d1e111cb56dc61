package texcache

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"github.com/vkngwrapper/texcache/texcache/internal/utils"
	"github.com/vkngwrapper/texcache/texutils/format"
	"github.com/vkngwrapper/texcache/texutils/layout"
	"golang.org/x/exp/slog"
)

const (
	// byteComparisonSwitchThreshold is the number of uploads of a host-decoded ASTC texture after
	// which guest data is compared against the previous upload before decoding it again
	byteComparisonSwitchThreshold int = 4

	// scaledSetWeight is added to the scaled set score on every CPU upload to a scaled texture
	scaledSetWeight int = 10
	// scaledSetThreshold is the scaled set score at which the texture is blacklisted from scaling
	scaledSetThreshold int = 30
)

// Pool is a texture pool that holds references to textures on behalf of guest descriptors
type Pool interface {
	// ForceRemove drops the pool slot id that refers to texture. The pool must release its reference
	// with Texture.DecrementReferenceCount. When deferred is true the call may arrive from a goroutine
	// other than the GPU command goroutine, and the release must wait until the pool is next used there.
	ForceRemove(texture *Texture, id int, deferred bool)
	// QueueUpdateMapping asks the pool to look slot id up again the next time it is used
	QueueUpdateMapping(texture *Texture, id int)
}

type poolOwner struct {
	pool       Pool
	id         int
	gpuAddress uint64
}

// Texture is a cached guest texture backed by a host texture. Textures form view trees: a view
// shares the host storage of the root texture of its tree, along with its Group and scale.
type Texture struct {
	manager *Manager
	handle  TextureHandle

	info         TextureInfo
	sizeInfo     layout.SizeInfo
	textureRange guestmem.MultiRange
	hostFormat   format.Format

	firstLayer int
	firstLevel int

	scaleFactor    float32
	scaleMode      ScaleMode
	scaledSetScore int

	referenceCount int
	storage        *Texture
	views          []*Texture
	group          Group

	hostTexture      backend.HostTexture
	flushHostTexture backend.HostTexture
	setHostTexture   backend.HostTexture

	cacheNode       *cacheNode
	shortCacheEntry *ShortCacheEntry

	invalidatedSequence atomic.Int64

	poolOwnersMutex utils.OptionalMutex
	poolOwners      []poolOwner

	updateCount int
	currentData []byte

	dirty                bool
	hasData              bool
	modifiedStale        bool
	changedMapping       bool
	alwaysFlushOnOverlap bool
	hadPoolOwner         bool
	disposed             bool
}

// NewTexture creates a texture entity. No host texture exists until InitializeData is called, and
// the texture is not tracked until InitializeGroup is called.
func NewTexture(manager *Manager, info TextureInfo, sizeInfo layout.SizeInfo, textureRange guestmem.MultiRange, scaleMode ScaleMode) *Texture {
	return newTexture(manager, info, sizeInfo, textureRange, 0, 0, 1, scaleMode)
}

func newTexture(manager *Manager, info TextureInfo, sizeInfo layout.SizeInfo, textureRange guestmem.MultiRange, firstLayer, firstLevel int, scaleFactor float32, scaleMode ScaleMode) *Texture {
	t := &Texture{
		manager:      manager,
		info:         info,
		sizeInfo:     sizeInfo,
		textureRange: textureRange,
		hostFormat:   HostFormat(info.Format, manager.capabilities, manager.config.EnableTextureRecompression),
		firstLayer:   firstLayer,
		firstLevel:   firstLevel,
		scaleFactor:  scaleFactor,
		scaleMode:    scaleMode,

		poolOwnersMutex: utils.OptionalMutex{UseMutex: manager.useMutex},

		dirty:         true,
		modifiedStale: true,
	}
	t.storage = t

	manager.register(t)
	return t
}

func (t *Texture) logger() *slog.Logger {
	return t.manager.logger
}

func (t *Texture) Handle() TextureHandle { return t.handle }
func (t *Texture) Info() TextureInfo { return t.info }
func (t *Texture) SizeInfo() *layout.SizeInfo { return &t.sizeInfo }
func (t *Texture) Range() guestmem.MultiRange { return t.textureRange }
func (t *Texture) HostFormat() format.Format { return t.hostFormat }
func (t *Texture) HostTexture() backend.HostTexture { return t.hostTexture }
func (t *Texture) Group() Group { return t.group }
func (t *Texture) FirstLayer() int { return t.firstLayer }
func (t *Texture) FirstLevel() int { return t.firstLevel }
func (t *Texture) ScaleFactor() float32 { return t.scaleFactor }
func (t *Texture) ScaleMode() ScaleMode { return t.scaleMode }
func (t *Texture) ReferenceCount() int { return t.referenceCount }
func (t *Texture) HasData() bool { return t.hasData }
func (t *Texture) ChangedMapping() bool { return t.changedMapping }
func (t *Texture) AlwaysFlushOnOverlap() bool { return t.alwaysFlushOnOverlap }
func (t *Texture) IsDisposed() bool { return t.disposed }

// Size returns the number of guest bytes the texture occupies
func (t *Texture) Size() int {
	return t.sizeInfo.TotalSize
}

// Storage returns the root of the view tree this texture belongs to, which is the texture itself
// when it is not a view
func (t *Texture) Storage() *Texture {
	return t.storage
}

func (t *Texture) IsView() bool {
	return t.storage != t
}

// Views returns the views registered on this texture. Only view tree roots have views.
func (t *Texture) Views() []*Texture {
	return t.views
}

// InvalidatedSequence changes every time the texture's guest mapping is invalidated
func (t *Texture) InvalidatedSequence() int64 {
	return t.invalidatedSequence.Load()
}

// HadPoolOwner reports whether a texture pool has ever referenced the texture
func (t *Texture) HadPoolOwner() bool {
	t.poolOwnersMutex.Lock()
	defer t.poolOwnersMutex.Unlock()

	return t.hadPoolOwner
}

// IsModified reports whether the GPU wrote to the texture since it was last flushed
func (t *Texture) IsModified() bool {
	return t.group != nil && t.group.IsModified()
}

// InitializeGroup creates the memory tracking group for a texture that is not a view
func (t *Texture) InitializeGroup(hasLayerViews, hasMipViews bool) {
	t.logger().Debug("Texture::InitializeGroup")

	group := NewTextureGroup(t.manager, t)
	group.Initialize(&t.sizeInfo, hasLayerViews, hasMipViews)
	t.group = group
}

// InitializeData creates the host texture. When withData is set, guest data is loaded and the texture
// is then scaled if it is in ScaleScaled mode. Otherwise the texture is considered synchronized and,
// unless it is a view, its host texture is created directly at the target scale.
func (t *Texture) InitializeData(isView, withData bool) error {
	t.logger().Debug("Texture::InitializeData", slog.Bool("IsView", isView), slog.Bool("WithData", withData))

	if withData {
		if isView {
			return errors.AssertionFailedf("views cannot be initialized with data")
		}

		host, err := t.manager.renderer.CreateTexture(t.info.hostInfo(t.hostFormat), t.scaleFactor)
		if err != nil {
			return errors.Wrapf(err, "failed to create host texture for %s", t.info.Format)
		}
		t.hostTexture = host

		if err := t.SynchronizeMemory(); err != nil {
			return err
		}

		if t.scaleMode == ScaleScaled {
			return t.SetScale(t.manager.config.ResolutionScale)
		}

		return nil
	}

	t.hasData = true
	if isView {
		return nil
	}

	// Nothing to preserve, so skip the 1x upload and create the storage at the final scale
	t.group.CheckDirty(t, true)
	t.dirty = false
	if t.scaleMode == ScaleScaled {
		t.scaleFactor = t.manager.config.ResolutionScale
	}

	host, err := t.manager.renderer.CreateTexture(t.info.hostInfo(t.hostFormat), t.scaleFactor)
	if err != nil {
		return errors.Wrapf(err, "failed to create host texture for %s", t.info.Format)
	}
	t.hostTexture = host
	return nil
}

// CreateView creates a texture that views this texture's storage starting at firstLayer and
// firstLevel, which are relative to this texture
func (t *Texture) CreateView(info TextureInfo, sizeInfo layout.SizeInfo, textureRange guestmem.MultiRange, firstLayer, firstLevel int) (*Texture, error) {
	t.logger().Debug("Texture::CreateView", slog.Int("FirstLayer", firstLayer), slog.Int("FirstLevel", firstLevel))

	view := newTexture(t.manager, info, sizeInfo, textureRange, t.firstLayer+firstLayer, t.firstLevel+firstLevel, t.scaleFactor, t.scaleMode)

	host, err := t.hostTexture.CreateView(info.hostInfo(view.hostFormat), firstLayer, firstLevel)
	if err != nil {
		t.manager.unregister(view)
		return nil, errors.Wrapf(err, "failed to create host view at layer %d level %d", firstLayer, firstLevel)
	}
	view.hostTexture = host

	t.storage.addView(view)
	return view, nil
}

// ReplaceView turns this texture into a view of parent at firstLayer and firstLevel relative to
// parent. Any views of this texture move to parent's view tree, and this texture's group is merged
// into parent's.
func (t *Texture) ReplaceView(parent *Texture, info TextureInfo, hostTexture backend.HostTexture, firstLayer, firstLevel int) error {
	t.logger().Debug("Texture::ReplaceView", slog.Int("FirstLayer", firstLayer), slog.Int("FirstLevel", firstLevel))

	t.IncrementReferenceCount()
	defer t.DecrementReferenceCount()

	if err := parent.storage.SynchronizeMemory(); err != nil {
		return err
	}

	if len(t.views) > 0 {
		views := make([]*Texture, len(t.views))
		copy(views, t.views)

		for _, view := range views {
			layer := view.firstLayer - t.firstLayer + firstLayer
			level := view.firstLevel - t.firstLevel + firstLevel

			newView, err := parent.hostTexture.CreateView(view.info.hostInfo(view.hostFormat), layer, level)
			if err != nil {
				return errors.Wrapf(err, "failed to move view to new parent at layer %d level %d", layer, level)
			}

			if err := view.ReplaceView(parent, view.info, newView, layer, level); err != nil {
				return err
			}
		}
	}

	t.replaceStorage(hostTexture)

	if t.storage != t {
		t.storage.removeView(t)
	}

	t.firstLayer = parent.firstLayer + firstLayer
	t.firstLevel = parent.firstLevel + firstLevel
	t.scaleFactor = parent.scaleFactor
	t.scaleMode = parent.scaleMode
	parent.storage.addView(t)

	t.info = info
	t.sizeInfo = info.CalculateSizeInfo()
	t.hostFormat = HostFormat(info.Format, t.manager.capabilities, t.manager.config.EnableTextureRecompression)
	t.hasData = true

	return nil
}

func (t *Texture) addView(view *Texture) {
	t.IncrementReferenceCount()

	t.views = append(t.views, view)
	view.storage = t
	t.group.UpdateViews(t.views, view)

	if view.group != nil && view.group != t.group {
		if view.group.Storage() == view {
			// The view's own group is orphaned now that it shares ours
			t.group.Inherit(view.group)
			view.group.Dispose()
		}
	}

	view.group = t.group
}

func (t *Texture) removeView(view *Texture) {
	for i, v := range t.views {
		if v == view {
			t.views = append(t.views[:i], t.views[i+1:]...)
			break
		}
	}

	t.group.RemoveView(t.views, view)
	view.storage = view

	t.DecrementReferenceCount()
}

func (t *Texture) replaceStorage(hostTexture backend.HostTexture) {
	if t.hostTexture != nil {
		t.hostTexture.Release()
	}
	t.hostTexture = hostTexture
}

// HasOneReference reports whether the caller holds the only reference to the texture, in which case
// it may be modified in place
func (t *Texture) HasOneReference() bool {
	return t.referenceCount == 1
}

func (t *Texture) IncrementReferenceCount() {
	t.referenceCount++
}

// IncrementPoolReferenceCount adds a reference held by slot id of a texture pool. A texture that
// gains a pool owner no longer needs a short cache hold.
func (t *Texture) IncrementPoolReferenceCount(pool Pool, id int, gpuAddress uint64) {
	t.poolOwnersMutex.Lock()
	t.poolOwners = append(t.poolOwners, poolOwner{pool: pool, id: id, gpuAddress: gpuAddress})
	t.hadPoolOwner = true
	t.poolOwnersMutex.Unlock()

	t.referenceCount++

	if t.shortCacheEntry != nil {
		t.manager.cache.RemoveShortCache(t)
	}
}

// DecrementReferenceCount releases a reference. When the last reference is released the texture
// leaves its view tree and the manager, and its host texture is released once no views remain.
// It returns true if no references remain.
func (t *Texture) DecrementReferenceCount() bool {
	t.referenceCount--
	if t.referenceCount < 0 {
		panic(errors.AssertionFailedf("reference count of texture %d went negative", t.handle))
	}

	if t.referenceCount == 0 {
		if t.storage != t {
			t.storage.removeView(t)
		}
		t.manager.unregister(t)
	}

	t.deleteIfNotUsed()
	return t.referenceCount <= 0
}

// DecrementPoolReferenceCount releases the references held by slot id of pool, or by every slot of
// pool when id is -1. It returns false if the pool held no such reference.
func (t *Texture) DecrementPoolReferenceCount(pool Pool, id int) bool {
	removed := 0

	t.poolOwnersMutex.Lock()
	kept := t.poolOwners[:0]
	for _, owner := range t.poolOwners {
		if owner.pool == pool && (owner.id == id || id == -1) {
			removed++
			continue
		}
		kept = append(kept, owner)
	}
	t.poolOwners = kept
	t.poolOwnersMutex.Unlock()

	if removed == 0 {
		return false
	}

	released := false
	for i := 0; i < removed; i++ {
		released = t.DecrementReferenceCount()
	}
	return released
}

// RemoveFromPools detaches the texture from every pool that references it, as its guest memory
// was unmapped. This may run off the GPU command goroutine, in which case deferred must be set.
func (t *Texture) RemoveFromPools(deferred bool) {
	t.poolOwnersMutex.Lock()
	owners := t.poolOwners
	t.poolOwners = nil
	t.poolOwnersMutex.Unlock()

	for _, owner := range owners {
		owner.pool.ForceRemove(t, owner.id, deferred)
	}

	// Off the GPU goroutine the short cache notices the new sequence on its next lookup instead
	if !deferred && t.shortCacheEntry != nil && !t.shortCacheEntry.IsAutoDelete() {
		t.manager.cache.RemoveShortCache(t)
	}

	t.invalidatedSequence.Add(1)
}

// UpdatePoolMappings asks every pool that references the texture to look it up again, as its guest
// memory was remapped. Owners that reference it through a GPU address other than the first one are
// removed.
func (t *Texture) UpdatePoolMappings() {
	var update, remove []poolOwner

	t.poolOwnersMutex.Lock()
	var address uint64
	for _, owner := range t.poolOwners {
		if address == 0 || address == owner.gpuAddress {
			address = owner.gpuAddress
			update = append(update, owner)
		} else {
			remove = append(remove, owner)
		}
	}
	t.poolOwners = nil
	t.poolOwnersMutex.Unlock()

	for _, owner := range update {
		owner.pool.QueueUpdateMapping(t, owner.id)
	}
	for _, owner := range remove {
		owner.pool.ForceRemove(t, owner.id, true)
	}

	t.invalidatedSequence.Add(1)
}

// Unmapped is called when part of the texture's guest memory is unmapped
func (t *Texture) Unmapped(unmapRange guestmem.MultiRange) {
	t.logger().Debug("Texture::Unmapped", slog.String("Range", unmapRange.String()))

	t.changedMapping = true

	if t.info.Target != backend.TextureBuffer && t.textureRange.OverlapsWith(unmapRange) {
		t.textureRange = t.textureRange.Unmap(unmapRange)
		t.RemoveFromPools(true)
	}

	if t.group != nil {
		t.group.Unmapped()
	}
}

// UpdateRange moves the texture to a new guest range, as after a remap
func (t *Texture) UpdateRange(textureRange guestmem.MultiRange) {
	t.textureRange = textureRange
	t.dirty = true

	if t.group != nil && t.group.Storage() == t {
		t.group.RangeChanged()
	}
}

// DiscardData marks the texture's current guest and host contents as unneeded, because they are
// about to be fully overwritten
func (t *Texture) DiscardData() {
	t.group.DiscardData(t)
	t.dirty = false
}

// SignalModified records a GPU write to the texture and keeps it alive in the cache
func (t *Texture) SignalModified() {
	t.scaledSetScore = max(0, t.scaledSetScore-1)

	if t.modifiedStale || t.group.HasCopyDependencies() {
		t.modifiedStale = false
		t.group.SignalModified(t)
	}

	t.manager.cache.Lift(t)
}

// SignalModifying is called when the texture is bound as a render target (bound is true) and when
// it is unbound. The binding holds a reference.
func (t *Texture) SignalModifying(bound bool) {
	if bound {
		t.scaledSetScore = max(0, t.scaledSetScore-1)
	}

	if t.modifiedStale || t.group.HasCopyDependencies() {
		t.modifiedStale = false
		t.group.SignalModifying(t, bound)
	}

	t.manager.cache.Lift(t)

	if bound {
		t.IncrementReferenceCount()
	} else {
		t.DecrementReferenceCount()
	}
}

// CreateCopyDependency links this texture with contained, which occupies layer and level of this
// texture but could not be created as a real view. Writes to either are copied to the other before
// it is next used. When copyTo is set, this texture holds the current data and it is copied into
// contained immediately; otherwise the data flows the other way.
func (t *Texture) CreateCopyDependency(contained *Texture, layer, level int, copyTo bool) error {
	t.logger().Debug("Texture::CreateCopyDependency", slog.Int("Layer", layer), slog.Int("Level", level), slog.Bool("CopyTo", copyTo))

	if err := t.PropagateScale(contained); err != nil {
		return err
	}

	return t.group.CreateCopyDependency(t, contained, t.firstLayer+layer, t.firstLevel+level, copyTo)
}

func (t *Texture) deleteIfNotUsed() {
	if t.referenceCount == 0 && len(t.views) == 0 {
		t.dispose()
	}
}

func (t *Texture) dispose() {
	if t.disposed {
		return
	}

	t.logger().Debug("Texture::dispose")

	t.disposed = true
	t.invalidatedSequence.Add(1)
	t.currentData = nil

	if t.hostTexture != nil {
		t.hostTexture.Release()
		t.hostTexture = nil
	}
	if t.flushHostTexture != nil {
		t.flushHostTexture.Release()
		t.flushHostTexture = nil
	}
	if t.setHostTexture != nil {
		t.setHostTexture.Release()
		t.setHostTexture = nil
	}

	if t.group != nil && t.group.Storage() == t {
		t.group.Dispose()
	}
}

// Validate checks the view tree and reference bookkeeping of the texture
func (t *Texture) Validate() error {
	if t.referenceCount < 0 {
		return errors.Newf("texture %d has a negative reference count %d", t.handle, t.referenceCount)
	}

	if t.storage.storage != t.storage {
		return errors.Newf("texture %d has a storage texture %d that is itself a view", t.handle, t.storage.handle)
	}

	if t.IsView() && len(t.views) > 0 {
		return errors.Newf("view texture %d has %d views of its own", t.handle, len(t.views))
	}

	for _, view := range t.views {
		if view.storage != t {
			return errors.Newf("view %d of texture %d points at storage %d", view.handle, t.handle, view.storage.handle)
		}
		if view.group != t.group {
			return errors.Newf("view %d of texture %d does not share its group", view.handle, t.handle)
		}
		if view.scaleFactor != t.scaleFactor {
			return errors.Newf("view %d has scale %f but its storage %d has scale %f", view.handle, view.scaleFactor, t.handle, t.scaleFactor)
		}
	}

	if len(t.views) > 0 && t.referenceCount < len(t.views) {
		return errors.Newf("texture %d has %d views but only %d references", t.handle, len(t.views), t.referenceCount)
	}

	return nil
}

func (t *Texture) printParameters(json *jwriter.ObjectState) {
	json.Name("Handle").Int(int(t.handle))
	json.Name("Format").String(t.info.Format.String())
	json.Name("HostFormat").String(t.hostFormat.String())
	json.Name("Width").Int(t.info.Width)
	json.Name("Height").Int(t.info.Height)
	json.Name("DepthOrLayers").Int(t.info.DepthOrLayers)
	json.Name("Levels").Int(t.info.LevelCount())
	json.Name("Target").String(t.info.Target.String())
	json.Name("Size").Int(t.Size())
	json.Name("Range").String(t.textureRange.String())
	json.Name("ScaleFactor").Float64(float64(t.scaleFactor))
	json.Name("ScaleMode").String(t.scaleMode.String())
	json.Name("References").Int(t.referenceCount)

	if t.IsView() {
		json.Name("Storage").Int(int(t.storage.handle))
		json.Name("FirstLayer").Int(t.firstLayer)
		json.Name("FirstLevel").Int(t.firstLevel)
	}

	if len(t.views) > 0 {
		json.Name("Views").Int(len(t.views))
	}

	if t.IsModified() {
		json.Name("Modified").Bool(true)
	}
}
