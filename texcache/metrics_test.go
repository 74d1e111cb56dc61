package texcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func sumInt64(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)

			var total int64
			for _, point := range sum.DataPoints {
				total += point.Value
			}
			return total
		}
	}

	return 0
}

func TestMetricsRecordCacheActivity(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	rig := readyRig(t, RigSetup{
		Options: CreateOptions{
			Config: Config{
				ResolutionScale: 2,
				EnableScaling:   true,
				Cache:           CacheOptions{MaxCapacity: 4, MinCountForDeletion: 2},
			},
			MeterProvider: provider,
		},
	})

	info := rgbaInfo(16, 16)
	size := info.CalculateSizeInfo().TotalSize

	for i := 0; i < 6; i++ {
		rig.createTexture(t, info, uint64(i*size), ScaleUndesired, true)
	}

	scaled := rig.createTexture(t, info, uint64(6*size), ScaleEligible, true)
	require.NoError(t, scaled.ScaleForRenderTarget())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	require.Equal(t, int64(3), sumInt64(t, &rm, "texcache.evictions"))
	require.Equal(t, int64(3*size), sumInt64(t, &rm, "texcache.evicted_bytes"))
	require.Equal(t, int64(4*size), sumInt64(t, &rm, "texcache.tracked_bytes"))
	require.Equal(t, int64(7), sumInt64(t, &rm, "texcache.uploads"))
	require.Equal(t, int64(1), sumInt64(t, &rm, "texcache.host_recreations"))
}

func TestNewMetricsWithoutProvider(t *testing.T) {
	metrics, err := NewMetrics(nil)
	require.NoError(t, err)

	metrics.recordEviction(64)
	metrics.recordUpload(true)
	metrics.recordHostRecreation(2)
}
