package texutils

import "math"

// Statistics contains running totals for a texture cache
type Statistics struct {
	TextureCount int
	TextureBytes int
	Evictions    int
	EvictedBytes int
}

func (s *Statistics) Clear() {
	s.TextureCount = 0
	s.TextureBytes = 0
	s.Evictions = 0
	s.EvictedBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.TextureCount += other.TextureCount
	s.TextureBytes += other.TextureBytes
	s.Evictions += other.Evictions
	s.EvictedBytes += other.EvictedBytes
}

type DetailedStatistics struct {
	Statistics
	ShortCacheCount int
	ScaledCount     int
	TextureSizeMin  int
	TextureSizeMax  int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.ShortCacheCount = 0
	s.ScaledCount = 0
	s.TextureSizeMin = math.MaxInt
	s.TextureSizeMax = 0
}

func (s *DetailedStatistics) AddTexture(size int, scaled bool) {
	s.TextureCount++
	s.TextureBytes += size

	if scaled {
		s.ScaledCount++
	}

	if size < s.TextureSizeMin {
		s.TextureSizeMin = size
	}

	if size > s.TextureSizeMax {
		s.TextureSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.ShortCacheCount += other.ShortCacheCount
	s.ScaledCount += other.ScaledCount

	if other.TextureSizeMin < s.TextureSizeMin {
		s.TextureSizeMin = other.TextureSizeMin
	}

	if other.TextureSizeMax > s.TextureSizeMax {
		s.TextureSizeMax = other.TextureSizeMax
	}
}
