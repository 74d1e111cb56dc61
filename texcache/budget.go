package texcache

import "golang.org/x/exp/slog"

const (
	kibibyte = 1024
	mebibyte = 1024 * kibibyte
	gibibyte = 1024 * mebibyte

	minBudget     = 512 * mebibyte
	defaultBudget = 1 * gibibyte

	// gpuMemoryBudgetFactor is the share of reported GPU memory the cache may fill
	gpuMemoryBudgetFactor = 0.75
)

// budgetCeiling returns the largest budget allowed on a host with cpuMemory bytes of RAM
func budgetCeiling(cpuMemory uint64) int {
	gib := cpuMemory / gibibyte

	switch {
	case gib < 4:
		return 1 * gibibyte
	case gib < 6:
		return 4 * gibibyte
	case gib < 8:
		return 6 * gibibyte
	case gib < 12:
		return 8 * gibibyte
	case gib < 16:
		return 12 * gibibyte
	}

	return 16 * gibibyte
}

// CalculateBudget derives the cache's byte budget from the host's RAM and the GPU's reported memory.
// A GPU that reports no memory gets the default budget.
func CalculateBudget(cpuMemory, gpuMaxMemory uint64) int {
	ceiling := budgetCeiling(cpuMemory)

	budget := defaultBudget
	if gpuMaxMemory != 0 {
		budget = int(float64(gpuMaxMemory) * gpuMemoryBudgetFactor)
	}

	return min(max(budget, minBudget), ceiling)
}

// Initialize sets the cache's byte budget from the host's memory. A budget set through
// CacheOptions takes precedence.
func (c *AutoDeleteCache) Initialize(cpuMemory, gpuMaxMemory uint64) {
	if c.budgetOverride {
		return
	}

	c.budget = CalculateBudget(cpuMemory, gpuMaxMemory)
	c.logger.Debug("AutoDeleteCache::Initialize", slog.Int("Budget", c.budget))
}
