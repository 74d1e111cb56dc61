package texcache

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/texcache/guestmem"
	"github.com/vkngwrapper/texcache/texutils/layout"
	"golang.org/x/exp/slog"
)

// Group tracks guest memory consistency for one view tree. Every texture of the tree shares the
// same Group, owned by the tree's storage texture.
type Group interface {
	// Storage returns the texture that owns the group
	Storage() *Texture
	Initialize(sizeInfo *layout.SizeInfo, hasLayerViews, hasMipViews bool)

	// CheckDirty reports whether guest memory behind texture was written by the CPU. When consume
	// is set the dirty state is cleared.
	CheckDirty(texture *Texture, consume bool) bool
	ConsumeDirty(texture *Texture)
	// SynchronizeMemory uploads dirty guest memory to the host and brings copy dependencies up
	// to date
	SynchronizeMemory(texture *Texture) error
	// SynchronizeDependents copies newer data from textures linked to texture's tree by a copy
	// dependency
	SynchronizeDependents(texture *Texture) error
	// FlushModified writes GPU-modified data back to guest memory, returning whether anything
	// was flushed
	FlushModified(texture *Texture, tracked bool) (bool, error)

	SignalModified(texture *Texture)
	SignalModifying(texture *Texture, bound bool)

	CreateCopyDependency(container, contained *Texture, firstLayer, firstLevel int, copyTo bool) error
	HasCopyDependencies() bool
	IsModified() bool

	UpdateViews(views []*Texture, texture *Texture)
	RemoveView(views []*Texture, view *Texture)
	// Inherit takes over the tracking state of a group whose storage became a view of this group
	Inherit(other Group)

	RangeChanged()
	Unmapped()
	ClearModified()
	DiscardData(texture *Texture)
	Dispose()
}

// copyDependency links a texture with a region of another tree's storage that could not be
// expressed as a view. The side that was modified most recently is copied to the other before use.
type copyDependency struct {
	container *Texture
	contained *Texture

	firstLayer int
	firstLevel int

	syncedSequence int64
}

func (d *copyDependency) copyContainerToContained() error {
	source := d.container.storage.hostTexture
	dest := d.contained.hostTexture

	for level := 0; level < d.contained.info.LevelCount(); level++ {
		for layer := 0; layer < d.contained.info.GetSlices(); layer++ {
			err := source.CopyToSlice(dest, d.firstLayer+layer, layer, d.firstLevel+level, level)
			if err != nil {
				return errors.Wrapf(err, "failed to copy layer %d level %d into dependency", layer, level)
			}
		}
	}

	return nil
}

func (d *copyDependency) copyContainedToContainer() error {
	source := d.contained.hostTexture
	dest := d.container.storage.hostTexture

	for level := 0; level < d.contained.info.LevelCount(); level++ {
		for layer := 0; layer < d.contained.info.GetSlices(); layer++ {
			err := source.CopyToSlice(dest, layer, d.firstLayer+layer, level, d.firstLevel+level)
			if err != nil {
				return errors.Wrapf(err, "failed to copy layer %d level %d out of dependency", layer, level)
			}
		}
	}

	return nil
}

// TextureGroup tracks a view tree at whole-storage granularity: a single tracking handle covers the
// storage range, and dirty and modified state apply to every texture of the tree at once.
type TextureGroup struct {
	manager *Manager
	storage *Texture
	logger  *slog.Logger

	handle guestmem.TrackingHandle

	hasLayerViews bool
	hasMipViews   bool
	views         int

	dirty            bool
	modified         bool
	modifiedSequence int64

	dependencies []*copyDependency
	disposed     bool
}

var _ Group = &TextureGroup{}

// NewTextureGroup creates the group owned by storage. Memory tracking begins in Initialize.
func NewTextureGroup(manager *Manager, storage *Texture) *TextureGroup {
	return &TextureGroup{
		manager: manager,
		storage: storage,
		logger:  manager.logger,
		dirty:   true,
	}
}

func (g *TextureGroup) Storage() *Texture {
	return g.storage
}

func (g *TextureGroup) Initialize(sizeInfo *layout.SizeInfo, hasLayerViews, hasMipViews bool) {
	g.hasLayerViews = hasLayerViews
	g.hasMipViews = hasMipViews
	g.beginTracking()
}

func (g *TextureGroup) beginTracking() {
	if g.handle != nil {
		g.handle.Dispose()
		g.handle = nil
	}

	tracker, ok := g.manager.memory.(guestmem.Tracker)
	if !ok {
		return
	}

	g.handle = tracker.BeginTracking(g.storage.textureRange)
}

func (g *TextureGroup) CheckDirty(texture *Texture, consume bool) bool {
	dirty := g.dirty
	if g.handle != nil && g.handle.Dirty() {
		dirty = true
	}

	if dirty && consume {
		g.ConsumeDirty(texture)
	}

	return dirty
}

func (g *TextureGroup) ConsumeDirty(texture *Texture) {
	g.dirty = false
	if g.handle != nil {
		g.handle.Reprotect()
	}
}

func (g *TextureGroup) SynchronizeMemory(texture *Texture) error {
	if g.CheckDirty(texture, true) {
		// A GPU write that was never flushed is lost here, as the CPU overwrote the same memory
		if err := g.storage.loadFromGuest(); err != nil {
			return err
		}
	}

	return g.SynchronizeDependents(texture)
}

func (g *TextureGroup) SynchronizeDependents(texture *Texture) error {
	for _, dep := range g.dependencies {
		otherGroup := dep.contained.group
		toContained := false
		if otherGroup == Group(g) {
			otherGroup = dep.container.group
			toContained = true
		}

		other, ok := otherGroup.(*TextureGroup)
		if !ok || other == g {
			continue
		}

		if other.modifiedSequence <= dep.syncedSequence || other.modifiedSequence <= g.modifiedSequence {
			continue
		}

		var err error
		if toContained {
			err = dep.copyContainerToContained()
		} else {
			err = dep.copyContainedToContainer()
		}
		if err != nil {
			return err
		}

		dep.syncedSequence = other.modifiedSequence
	}

	return nil
}

func (g *TextureGroup) FlushModified(texture *Texture, tracked bool) (bool, error) {
	if !g.modified {
		return false, nil
	}

	wasDirty := g.CheckDirty(texture, false)

	if err := g.storage.Flush(tracked); err != nil {
		return false, err
	}

	// The flush wrote guest memory through our own tracking, which is not a CPU modification
	if tracked && !wasDirty {
		g.ConsumeDirty(texture)
	}

	return true, nil
}

func (g *TextureGroup) SignalModified(texture *Texture) {
	g.modified = true
	g.modifiedSequence = g.manager.nextSequence()
}

func (g *TextureGroup) SignalModifying(texture *Texture, bound bool) {
	g.modified = true
	g.modifiedSequence = g.manager.nextSequence()
}

func (g *TextureGroup) CreateCopyDependency(container, contained *Texture, firstLayer, firstLevel int, copyTo bool) error {
	otherGroup, ok := contained.group.(*TextureGroup)
	if !ok {
		return errors.AssertionFailedf("copy dependency target has a foreign group type %T", contained.group)
	}

	dep := &copyDependency{
		container:  container,
		contained:  contained,
		firstLayer: firstLayer,
		firstLevel: firstLevel,
	}

	var err error
	if copyTo {
		err = dep.copyContainerToContained()
	} else {
		err = dep.copyContainedToContainer()
	}
	if err != nil {
		return err
	}

	dep.syncedSequence = g.manager.nextSequence()

	g.dependencies = append(g.dependencies, dep)
	otherGroup.dependencies = append(otherGroup.dependencies, dep)
	return nil
}

func (g *TextureGroup) HasCopyDependencies() bool {
	return len(g.dependencies) > 0
}

func (g *TextureGroup) IsModified() bool {
	return g.modified
}

func (g *TextureGroup) UpdateViews(views []*Texture, texture *Texture) {
	g.views = len(views)

	if texture.info.LevelCount() < g.storage.info.LevelCount() {
		g.hasMipViews = true
	}
	if texture.info.GetSlices() < g.storage.info.GetSlices() {
		g.hasLayerViews = true
	}

	// The view reads the storage's host texture, which is as current as the group
	texture.dirty = false
	texture.hasData = g.storage.hasData
}

func (g *TextureGroup) RemoveView(views []*Texture, view *Texture) {
	g.views = len(views)
	g.removeDependenciesOf(view)
}

func (g *TextureGroup) Inherit(other Group) {
	otherGroup, ok := other.(*TextureGroup)
	if !ok {
		return
	}

	g.modified = g.modified || otherGroup.modified
	g.modifiedSequence = max(g.modifiedSequence, otherGroup.modifiedSequence)
	g.dirty = g.dirty || otherGroup.dirty

	g.dependencies = append(g.dependencies, otherGroup.dependencies...)
	otherGroup.dependencies = nil
}

func (g *TextureGroup) RangeChanged() {
	g.dirty = true
	g.beginTracking()
}

func (g *TextureGroup) Unmapped() {
	g.dirty = true
}

func (g *TextureGroup) ClearModified() {
	g.modified = false

	g.storage.modifiedStale = true
	for _, view := range g.storage.views {
		view.modifiedStale = true
	}
}

func (g *TextureGroup) DiscardData(texture *Texture) {
	g.ConsumeDirty(texture)
	g.modified = false

	for _, dep := range g.dependencies {
		dep.syncedSequence = g.manager.nextSequence()
	}
}

func (g *TextureGroup) removeDependenciesOf(texture *Texture) {
	kept := g.dependencies[:0]
	for _, dep := range g.dependencies {
		if dep.container != texture && dep.contained != texture {
			kept = append(kept, dep)
			continue
		}

		g.unlinkFromOther(dep)
	}
	g.dependencies = kept
}

func (g *TextureGroup) unlinkFromOther(dep *copyDependency) {
	for _, side := range []*Texture{dep.container, dep.contained} {
		other, ok := side.group.(*TextureGroup)
		if !ok || other == g {
			continue
		}

		kept := other.dependencies[:0]
		for _, otherDep := range other.dependencies {
			if otherDep != dep {
				kept = append(kept, otherDep)
			}
		}
		other.dependencies = kept
	}
}

func (g *TextureGroup) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true

	for _, dep := range g.dependencies {
		g.unlinkFromOther(dep)
	}
	g.dependencies = nil

	if g.handle != nil {
		g.handle.Dispose()
		g.handle = nil
	}
}
