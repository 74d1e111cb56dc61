package texcache

import "golang.org/x/exp/slog"

// ShortCacheEntry holds a texture alive for one to two calls of ProcessShortCache. Entries added
// with a descriptor can also be found again by that descriptor.
type ShortCacheEntry struct {
	texture    *Texture
	descriptor TextureDescriptor
	autoDelete bool

	invalidatedSequence int64
}

func (e *ShortCacheEntry) Texture() *Texture {
	return e.texture
}

// IsAutoDelete reports whether the entry was added without a descriptor. Expiring such an entry
// also removes the texture from the auto delete cache.
func (e *ShortCacheEntry) IsAutoDelete() bool {
	return e.autoDelete
}

// AddShortCache holds texture until the next-but-one call of ProcessShortCache and makes it
// findable through descriptor
func (c *AutoDeleteCache) AddShortCache(texture *Texture, descriptor TextureDescriptor) {
	if entry := texture.shortCacheEntry; entry != nil {
		c.shortCache.Delete(texture.handle)
		c.deleteLookup(entry)

		entry.descriptor = descriptor
		entry.autoDelete = false
		entry.invalidatedSequence = texture.InvalidatedSequence()

		c.shortCacheBuilder.Put(texture.handle, entry)
		c.shortCacheLookup.Put(descriptor, entry)
		return
	}

	entry := &ShortCacheEntry{
		texture:             texture,
		descriptor:          descriptor,
		invalidatedSequence: texture.InvalidatedSequence(),
	}

	c.shortCacheBuilder.Put(texture.handle, entry)
	c.shortCacheLookup.Put(descriptor, entry)
	texture.shortCacheEntry = entry
	texture.IncrementReferenceCount()
}

// AddShortCacheAutoDelete holds texture until the next-but-one call of ProcessShortCache, at which
// point it is also removed from the auto delete cache. A texture that is already held has its
// expiry pushed back.
func (c *AutoDeleteCache) AddShortCacheAutoDelete(texture *Texture) {
	if entry := texture.shortCacheEntry; entry != nil {
		c.shortCache.Delete(texture.handle)
		c.shortCacheBuilder.Put(texture.handle, entry)
		return
	}

	entry := &ShortCacheEntry{
		texture:             texture,
		autoDelete:          true,
		invalidatedSequence: texture.InvalidatedSequence(),
	}

	c.shortCacheBuilder.Put(texture.handle, entry)
	texture.shortCacheEntry = entry
	texture.IncrementReferenceCount()
}

// FindShortCache returns the texture held for descriptor, or nil. Textures whose guest mapping
// changed since they were added are dropped rather than returned.
func (c *AutoDeleteCache) FindShortCache(descriptor TextureDescriptor) *Texture {
	if c.shortCacheLookup.Count() == 0 {
		return nil
	}

	entry, ok := c.shortCacheLookup.Get(descriptor)
	if !ok {
		return nil
	}

	if entry.invalidatedSequence == entry.texture.InvalidatedSequence() {
		return entry.texture
	}

	c.RemoveShortCache(entry.texture)
	return nil
}

// deleteLookup removes entry's descriptor mapping unless a newer entry has taken the descriptor over
func (c *AutoDeleteCache) deleteLookup(entry *ShortCacheEntry) {
	if entry.autoDelete {
		return
	}

	if current, ok := c.shortCacheLookup.Get(entry.descriptor); ok && current == entry {
		c.shortCacheLookup.Delete(entry.descriptor)
	}
}

// RemoveShortCache releases the short cache hold on texture, if there is one
func (c *AutoDeleteCache) RemoveShortCache(texture *Texture) {
	entry := texture.shortCacheEntry
	if entry == nil {
		return
	}

	c.shortCache.Delete(texture.handle)
	c.shortCacheBuilder.Delete(texture.handle)
	c.deleteLookup(entry)

	texture.shortCacheEntry = nil
	texture.DecrementReferenceCount()
}

// ProcessShortCache expires every entry that survived a full generation, then starts a new
// generation. It is called once per frame.
func (c *AutoDeleteCache) ProcessShortCache() {
	c.drainDeferredRemovals()

	expired := c.shortCache
	var entries []*ShortCacheEntry
	expired.Iter(func(handle TextureHandle, entry *ShortCacheEntry) bool {
		entries = append(entries, entry)
		return false
	})

	for _, entry := range entries {
		texture := entry.texture
		texture.shortCacheEntry = nil

		if entry.autoDelete {
			if _, err := c.Remove(texture, false); err != nil {
				c.logger.Warn("AutoDeleteCache::ProcessShortCache: failed to remove texture", slog.Any("Error", err))
			}
		} else {
			c.deleteLookup(entry)
		}

		c.metrics.recordShortCacheExpiration(entry.autoDelete)
		texture.DecrementReferenceCount()
	}

	expired.Clear()
	c.shortCache = c.shortCacheBuilder
	c.shortCacheBuilder = expired
}
