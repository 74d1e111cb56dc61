package texcache

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/texcache/texcache/internal/utils"
	"github.com/vkngwrapper/texcache/texutils"
	"golang.org/x/exp/slog"
)

type cacheNode struct {
	texture *Texture
	size    int

	prev *cacheNode
	next *cacheNode
}

// AutoDeleteCache keeps recently used textures alive. Textures are held in least recently used
// order and the oldest are evicted once the cache holds too many textures or too many bytes.
// Every texture in the cache holds one reference on behalf of the cache.
//
// The cache is not safe for concurrent use, apart from RemoveDeferred.
type AutoDeleteCache struct {
	logger  *slog.Logger
	metrics *Metrics

	maxCapacity         int
	minCountForDeletion int
	budget              int
	budgetOverride      bool

	head  *cacheNode
	tail  *cacheNode
	count int

	totalSize    int
	evictions    int
	evictedBytes int

	deferredMutex    utils.OptionalMutex
	deferredRemovals []*Texture

	shortCacheBuilder *swiss.Map[TextureHandle, *ShortCacheEntry]
	shortCache        *swiss.Map[TextureHandle, *ShortCacheEntry]
	shortCacheLookup  *swiss.Map[TextureDescriptor, *ShortCacheEntry]
}

// NewAutoDeleteCache creates an empty cache. Until Initialize is called the byte budget is the
// default budget, unless options name a budget explicitly.
func NewAutoDeleteCache(logger *slog.Logger, metrics *Metrics, options CacheOptions, useMutex bool) *AutoDeleteCache {
	c := &AutoDeleteCache{
		logger:  logger,
		metrics: metrics,

		maxCapacity:         options.MaxCapacity,
		minCountForDeletion: options.MinCountForDeletion,
		budget:              defaultBudget,

		deferredMutex: utils.OptionalMutex{UseMutex: useMutex},

		shortCacheBuilder: swiss.NewMap[TextureHandle, *ShortCacheEntry](16),
		shortCache:        swiss.NewMap[TextureHandle, *ShortCacheEntry](16),
		shortCacheLookup:  swiss.NewMap[TextureDescriptor, *ShortCacheEntry](16),
	}

	if c.maxCapacity <= 0 {
		c.maxCapacity = defaultMaxCapacity
	}
	if c.minCountForDeletion <= 0 {
		c.minCountForDeletion = defaultMinCountForDeletion
	}
	if options.Budget > 0 {
		c.budget = options.Budget
		c.budgetOverride = true
	}

	return c
}

func (c *AutoDeleteCache) Count() int {
	return c.count
}

// TotalSize returns the number of guest bytes of every texture in the cache
func (c *AutoDeleteCache) TotalSize() int {
	return c.totalSize
}

func (c *AutoDeleteCache) Budget() int {
	return c.budget
}

// Contains reports whether texture is currently held by the cache
func (c *AutoDeleteCache) Contains(texture *Texture) bool {
	return texture.cacheNode != nil
}

// Add inserts texture as the most recently used entry and evicts the least recently used entries
// if the cache is over capacity or over budget
func (c *AutoDeleteCache) Add(texture *Texture) {
	c.drainDeferredRemovals()

	texture.IncrementReferenceCount()
	node := &cacheNode{texture: texture, size: texture.Size()}
	texture.cacheNode = node
	c.pushNode(node)

	c.totalSize += node.size
	c.metrics.recordTrackedBytes(node.size)

	for c.head != node && (c.count > c.maxCapacity || c.overBudget()) {
		c.RemoveLeastUsedTexture()
	}

	texutils.DebugValidate(c)
}

// Lift marks texture as the most recently used entry, adding it if it is not in the cache
func (c *AutoDeleteCache) Lift(texture *Texture) {
	node := texture.cacheNode
	if node == nil {
		if !texture.disposed {
			c.Add(texture)
		}
		return
	}

	c.drainDeferredRemovals()

	if node != c.tail {
		c.unlinkNode(node)
		c.pushNode(node)
	}

	for c.head != node && c.overBudget() {
		c.RemoveLeastUsedTexture()
	}
}

func (c *AutoDeleteCache) overBudget() bool {
	return c.totalSize > c.budget && c.count >= c.minCountForDeletion
}

// RemoveLeastUsedTexture evicts the least recently used texture. GPU modifications are flushed to
// guest memory without triggering write tracking, since any overlapping texture still alive is
// expected to hold newer data.
func (c *AutoDeleteCache) RemoveLeastUsedTexture() {
	node := c.head
	if node == nil {
		return
	}

	texture := node.texture
	c.logger.Debug("AutoDeleteCache::RemoveLeastUsedTexture", slog.Int("Handle", int(texture.handle)), slog.Int("Size", node.size))

	if texture.IsModified() {
		err := texture.group.SynchronizeDependents(texture)
		if err == nil {
			_, err = texture.FlushModified(false)
		}
		if err != nil {
			c.logger.Warn("AutoDeleteCache::RemoveLeastUsedTexture: failed to flush evicted texture",
				slog.Int("Handle", int(texture.handle)),
				slog.Any("Error", err),
			)
		}
	}

	c.unlink(texture)
	c.evictions++
	c.evictedBytes += node.size
	c.metrics.recordEviction(node.size)

	texture.DecrementReferenceCount()
}

// Remove takes texture out of the cache, optionally flushing GPU modifications to guest memory
// first. It returns true if the cache held the last reference.
func (c *AutoDeleteCache) Remove(texture *Texture, flush bool) (bool, error) {
	if texture.cacheNode == nil {
		return false, nil
	}

	var err error
	if flush {
		_, err = texture.FlushModified(true)
		err = errors.Wrapf(err, "failed to flush texture %d before removal", texture.handle)
	}

	c.unlink(texture)
	return texture.DecrementReferenceCount(), err
}

// RemoveDeferred queues texture for removal the next time the cache is used. It may be called from
// any goroutine.
func (c *AutoDeleteCache) RemoveDeferred(texture *Texture) {
	c.deferredMutex.Lock()
	defer c.deferredMutex.Unlock()

	c.deferredRemovals = append(c.deferredRemovals, texture)
}

func (c *AutoDeleteCache) drainDeferredRemovals() {
	var removals []*Texture
	c.deferredMutex.Do(func() {
		removals = c.deferredRemovals
		c.deferredRemovals = nil
	})

	for _, texture := range removals {
		if _, err := c.Remove(texture, false); err != nil {
			c.logger.Warn("AutoDeleteCache::drainDeferredRemovals: failed to remove texture", slog.Any("Error", err))
		}
	}
}

func (c *AutoDeleteCache) unlink(texture *Texture) {
	node := texture.cacheNode
	c.unlinkNode(node)
	texture.cacheNode = nil

	c.totalSize -= node.size
	c.metrics.recordTrackedBytes(-node.size)
}

func (c *AutoDeleteCache) unlinkNode(node *cacheNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}

	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}

	node.prev = nil
	node.next = nil
	c.count--
}

func (c *AutoDeleteCache) pushNode(node *cacheNode) {
	if c.count == 0 {
		c.head = node
		c.tail = node
		c.count = 1
		return
	}

	node.prev = c.tail
	c.tail.next = node
	c.tail = node
	c.count++
}

// Textures returns the cached textures from least to most recently used
func (c *AutoDeleteCache) Textures() []*Texture {
	textures := make([]*Texture, 0, c.count)
	for node := c.head; node != nil; node = node.next {
		textures = append(textures, node.texture)
	}
	return textures
}

func (c *AutoDeleteCache) Validate() error {
	actualCount := 0
	actualSize := 0

	var prev *cacheNode
	for node := c.head; node != nil; node = node.next {
		if node.prev != prev {
			return errors.Newf("cache node for texture %d has a broken back link", node.texture.handle)
		}
		if node.texture.cacheNode != node {
			return errors.Newf("texture %d is linked in the cache but does not point at its node", node.texture.handle)
		}

		actualCount++
		actualSize += node.size
		prev = node
	}

	if prev != c.tail {
		return errors.New("the cache tail does not match the last linked node")
	}

	if actualCount != c.count {
		return errors.Newf("the listed number of cached textures (%d) does not match the actual number of textures (%d)", c.count, actualCount)
	}

	if actualSize != c.totalSize {
		return errors.Newf("the tracked cache size (%d) does not match the size of the cached textures (%d)", c.totalSize, actualSize)
	}

	return nil
}

// AddDetailedStatistics adds the cache's textures to stats
func (c *AutoDeleteCache) AddDetailedStatistics(stats *texutils.DetailedStatistics) {
	for node := c.head; node != nil; node = node.next {
		stats.AddTexture(node.size, node.texture.scaleFactor != 1)
	}

	stats.Evictions += c.evictions
	stats.EvictedBytes += c.evictedBytes
	stats.ShortCacheCount += c.shortCache.Count() + c.shortCacheBuilder.Count()
}

func (c *AutoDeleteCache) BuildStatsString(writer *jwriter.Writer) {
	s := writer.Array()
	defer s.End()

	for node := c.head; node != nil; node = node.next {
		o := s.Object()
		node.texture.printParameters(&o)
		o.End()
	}
}
