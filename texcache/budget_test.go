package texcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateBudget(t *testing.T) {
	testCases := map[string]struct {
		cpuMemory    uint64
		gpuMaxMemory uint64
		expected     int
	}{
		"Unknown GPU memory":  {cpuMemory: 16 * gibibyte, gpuMaxMemory: 0, expected: defaultBudget},
		"Small host caps":     {cpuMemory: 3 * gibibyte, gpuMaxMemory: 8 * gibibyte, expected: 1 * gibibyte},
		"Four GiB tier":       {cpuMemory: 4 * gibibyte, gpuMaxMemory: 8 * gibibyte, expected: 4 * gibibyte},
		"Six GiB tier":        {cpuMemory: 6 * gibibyte, gpuMaxMemory: 16 * gibibyte, expected: 6 * gibibyte},
		"Eight GiB tier":      {cpuMemory: 8 * gibibyte, gpuMaxMemory: 16 * gibibyte, expected: 8 * gibibyte},
		"Twelve GiB tier":     {cpuMemory: 12 * gibibyte, gpuMaxMemory: 32 * gibibyte, expected: 12 * gibibyte},
		"Large host":          {cpuMemory: 64 * gibibyte, gpuMaxMemory: 32 * gibibyte, expected: 16 * gibibyte},
		"GPU share":           {cpuMemory: 16 * gibibyte, gpuMaxMemory: 4 * gibibyte, expected: 3 * gibibyte},
		"Minimum budget":      {cpuMemory: 16 * gibibyte, gpuMaxMemory: 256 * mebibyte, expected: minBudget},
		"Minimum under a cap": {cpuMemory: 2 * gibibyte, gpuMaxMemory: 512 * mebibyte, expected: minBudget},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, testCase.expected, CalculateBudget(testCase.cpuMemory, testCase.gpuMaxMemory))
		})
	}
}

func TestInitializeSetsBudget(t *testing.T) {
	rig := readyRig(t, RigSetup{})
	require.Equal(t, defaultBudget, rig.manager.Cache().Budget())

	rig.manager.Initialize(16*gibibyte, 4*gibibyte)
	require.Equal(t, 3*gibibyte, rig.manager.Cache().Budget())
}

func TestInitializeKeepsConfiguredBudget(t *testing.T) {
	rig := readyRig(t, RigSetup{
		Options: CreateOptions{
			Config: Config{Cache: CacheOptions{Budget: 64 * mebibyte}},
		},
	})

	rig.manager.Initialize(16*gibibyte, 4*gibibyte)
	require.Equal(t, 64*mebibyte, rig.manager.Cache().Budget())
}
