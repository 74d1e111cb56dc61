package texcache

import (
	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
)

const (
	// defaultMaxCapacity is the entry count above which the auto delete cache always evicts
	defaultMaxCapacity int = 2048
	// defaultMinCountForDeletion is the entry count below which the byte budget is not enforced
	defaultMinCountForDeletion int = 32
)

// CacheOptions tune the auto delete cache. Zero values select the defaults.
type CacheOptions struct {
	// MaxCapacity is the number of textures the cache holds before it evicts regardless of size
	MaxCapacity int
	// MinCountForDeletion is the number of textures the cache must hold before the byte budget
	// is enforced
	MinCountForDeletion int
	// Budget replaces the byte budget Initialize derives from host memory
	Budget int
}

// Config holds the user-facing texture cache settings
type Config struct {
	// ResolutionScale is the scale factor applied to textures in ScaleScaled mode
	ResolutionScale float32
	// EnableTextureRecompression re-encodes ASTC and ETC2 RGBA data to BC7 on hosts that cannot
	// sample the original format, rather than storing it uncompressed
	EnableTextureRecompression bool
	// EnableScaling allows textures to be created as ScaleEligible. When it is false every texture
	// is ScaleUndesired.
	EnableScaling bool

	Cache CacheOptions
}

// DefaultConfig returns the settings used when none are provided
func DefaultConfig() Config {
	return Config{
		ResolutionScale: 1,
		Cache: CacheOptions{
			MaxCapacity:         defaultMaxCapacity,
			MinCountForDeletion: defaultMinCountForDeletion,
		},
	}
}

func (c *Config) applyDefaults() {
	if c.ResolutionScale == 0 {
		c.ResolutionScale = 1
	}
	if c.Cache.MaxCapacity == 0 {
		c.Cache.MaxCapacity = defaultMaxCapacity
	}
	if c.Cache.MinCountForDeletion == 0 {
		c.Cache.MinCountForDeletion = defaultMinCountForDeletion
	}
}

func (c *Config) Validate() error {
	if math32.IsNaN(c.ResolutionScale) || math32.IsInf(c.ResolutionScale, 0) || c.ResolutionScale <= 0 {
		return errors.Newf("resolution scale must be a positive number, but was %f", c.ResolutionScale)
	}
	if c.Cache.MaxCapacity < 0 || c.Cache.MinCountForDeletion < 0 || c.Cache.Budget < 0 {
		return errors.Newf("cache options may not be negative: %+v", c.Cache)
	}
	if c.Cache.MinCountForDeletion > c.Cache.MaxCapacity && c.Cache.MaxCapacity > 0 {
		return errors.Newf("minimum count for deletion %d is above the maximum capacity %d", c.Cache.MinCountForDeletion, c.Cache.MaxCapacity)
	}
	return nil
}

// LoadConfig parses a JSON settings document. Fields that are absent keep their default values.
//
//	{
//	  "resolutionScale": 2,
//	  "enableTextureRecompression": true,
//	  "enableScaling": true,
//	  "cache": {"maxCapacity": 2048, "minCountForDeletion": 32, "budget": 1073741824}
//	}
func LoadConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	r := jreader.NewReader(data)

	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "resolutionScale":
			config.ResolutionScale = float32(r.Float64())
		case "enableTextureRecompression":
			config.EnableTextureRecompression = r.Bool()
		case "enableScaling":
			config.EnableScaling = r.Bool()
		case "cache":
			for cacheObj := r.Object(); cacheObj.Next(); {
				switch string(cacheObj.Name()) {
				case "maxCapacity":
					config.Cache.MaxCapacity = r.Int()
				case "minCountForDeletion":
					config.Cache.MinCountForDeletion = r.Int()
				case "budget":
					config.Cache.Budget = r.Int()
				default:
					r.SkipValue()
				}
			}
		default:
			r.SkipValue()
		}
	}

	if err := r.Error(); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse texture cache config")
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}
