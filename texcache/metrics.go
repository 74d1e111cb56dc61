package texcache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/vkngwrapper/texcache"

// Metrics records texture cache activity through OpenTelemetry instruments
type Metrics struct {
	evictions             metric.Int64Counter
	evictedBytes          metric.Int64Counter
	trackedBytes          metric.Int64UpDownCounter
	shortCacheExpirations metric.Int64Counter
	uploads               metric.Int64Counter
	skippedUploads        metric.Int64Counter
	flushes               metric.Int64Counter
	decodeFailures        metric.Int64Counter
	hostRecreations       metric.Int64Counter
}

// NewMetrics creates the cache instruments from provider, or from the no-op provider if it is nil
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)

	m := &Metrics{}
	var err error

	m.evictions, err = meter.Int64Counter(
		"texcache.evictions",
		metric.WithDescription("Textures evicted from the auto delete cache"),
		metric.WithUnit("{texture}"),
	)
	if err != nil {
		return nil, err
	}

	m.evictedBytes, err = meter.Int64Counter(
		"texcache.evicted_bytes",
		metric.WithDescription("Guest bytes of textures evicted from the auto delete cache"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	m.trackedBytes, err = meter.Int64UpDownCounter(
		"texcache.tracked_bytes",
		metric.WithDescription("Guest bytes of textures held by the auto delete cache"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	m.shortCacheExpirations, err = meter.Int64Counter(
		"texcache.short_cache.expirations",
		metric.WithDescription("Short cache entries expired by ProcessShortCache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	m.uploads, err = meter.Int64Counter(
		"texcache.uploads",
		metric.WithDescription("Guest data uploads to host textures"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return nil, err
	}

	m.skippedUploads, err = meter.Int64Counter(
		"texcache.uploads.skipped",
		metric.WithDescription("Uploads skipped because guest data was unchanged"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return nil, err
	}

	m.flushes, err = meter.Int64Counter(
		"texcache.flushes",
		metric.WithDescription("Host texture data flushed back to guest memory"),
		metric.WithUnit("{flush}"),
	)
	if err != nil {
		return nil, err
	}

	m.decodeFailures, err = meter.Int64Counter(
		"texcache.decode_failures",
		metric.WithDescription("Compressed blocks that failed to decode"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, err
	}

	m.hostRecreations, err = meter.Int64Counter(
		"texcache.host_recreations",
		metric.WithDescription("Host textures recreated to change scale"),
		metric.WithUnit("{texture}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordEviction(size int) {
	ctx := context.Background()
	m.evictions.Add(ctx, 1)
	m.evictedBytes.Add(ctx, int64(size))
}

func (m *Metrics) recordTrackedBytes(delta int) {
	m.trackedBytes.Add(context.Background(), int64(delta))
}

func (m *Metrics) recordShortCacheExpiration(autoDelete bool) {
	m.shortCacheExpirations.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("auto_delete", autoDelete)))
}

func (m *Metrics) recordUpload(skipped bool) {
	if skipped {
		m.skippedUploads.Add(context.Background(), 1)
		return
	}
	m.uploads.Add(context.Background(), 1)
}

func (m *Metrics) recordFlush(info *TextureInfo) {
	m.flushes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("format", info.Format.String())))
}

func (m *Metrics) recordDecodeFailures(info *TextureInfo, count int) {
	m.decodeFailures.Add(context.Background(), int64(count), metric.WithAttributes(attribute.String("format", info.Format.String())))
}

func (m *Metrics) recordHostRecreation(scale float32) {
	m.hostRecreations.Add(context.Background(), 1, metric.WithAttributes(attribute.Float64("scale", float64(scale))))
}
