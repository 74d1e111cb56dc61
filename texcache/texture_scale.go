package texcache

import (
	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/texcache/texcache/backend"
	"golang.org/x/exp/slog"
)

func (t *Texture) extents() backend.Extents2D {
	return backend.Extents2D{X2: t.info.Width, Y2: t.info.Height}
}

// SetScale changes the resolution scale of the texture's view tree. The storage texture is
// recreated at the new scale with its contents blitted across, and every view is recreated on top
// of the new storage. Blacklisted and undesired textures keep their mode; any other texture becomes
// ScaleScaled.
func (t *Texture) SetScale(scale float32) error {
	if t.storage != t {
		return t.storage.SetScale(scale)
	}

	if scale == t.scaleFactor {
		if t.scaleMode == ScaleBlacklisted || t.scaleMode == ScaleUndesired {
			for _, view := range t.views {
				view.scaleMode = t.scaleMode
			}
		}
		return nil
	}

	t.logger().Debug("Texture::SetScale", slog.Float64("From", float64(t.scaleFactor)), slog.Float64("To", float64(scale)))

	mode := t.scaleMode
	if mode != ScaleBlacklisted && mode != ScaleUndesired {
		mode = ScaleScaled
	}

	if t.hostTexture != nil {
		host, err := t.createScaledHostTexture(scale)
		if err != nil {
			return err
		}
		t.replaceStorage(host)
		t.manager.metrics.recordHostRecreation(scale)
	}

	t.scaleFactor = scale
	t.scaleMode = mode

	for _, view := range t.views {
		view.scaleFactor = scale
		view.scaleMode = mode

		if t.hostTexture == nil {
			continue
		}

		host, err := t.hostTexture.CreateView(view.info.hostInfo(view.hostFormat), view.firstLayer-t.firstLayer, view.firstLevel-t.firstLevel)
		if err != nil {
			return errors.Wrapf(err, "failed to recreate view at layer %d level %d", view.firstLayer, view.firstLevel)
		}
		view.replaceStorage(host)
	}

	return nil
}

func (t *Texture) createScaledHostTexture(scale float32) (backend.HostTexture, error) {
	host, err := t.manager.renderer.CreateTexture(t.info.hostInfo(t.hostFormat), scale)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create host texture at scale %f", scale)
	}

	if t.hasData {
		err = t.hostTexture.CopyToScaled(host, t.extents().Scale(t.scaleFactor), t.extents().Scale(scale), true)
		if err != nil {
			host.Release()
			return nil, errors.Wrap(err, "failed to blit into rescaled host texture")
		}
	}

	return host, nil
}

// temporaryHostTexture returns a 1x host texture for staging scaled uploads and readbacks, creating
// it in cache on first use
func (t *Texture) temporaryHostTexture(cache *backend.HostTexture) (backend.HostTexture, error) {
	if *cache != nil {
		return *cache, nil
	}

	host, err := t.manager.renderer.CreateTexture(t.info.hostInfo(t.hostFormat), 1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temporary host texture")
	}

	*cache = host
	return host, nil
}

// BlacklistScale returns the texture's view tree to 1x and prevents it from ever being scaled again
func (t *Texture) BlacklistScale() error {
	t.scaleMode = ScaleBlacklisted
	t.storage.scaleMode = ScaleBlacklisted

	return t.storage.SetScale(1)
}

// AllowScaledSetData decides whether a CPU upload to a scaled texture should be written at scale.
// Every CPU upload raises the texture's score and every GPU write lowers it. A texture whose score
// reaches the threshold is mostly written by the CPU and is blacklisted, in which case this returns
// false.
func (t *Texture) AllowScaledSetData() (bool, error) {
	if t.scaleMode == ScaleBlacklisted {
		return false, nil
	}

	t.scaledSetScore += scaledSetWeight

	if t.scaledSetScore >= scaledSetThreshold {
		return false, t.BlacklistScale()
	}

	return true, nil
}

// PropagateScale brings this texture and other to a common scale before data is shared between
// them. If either is blacklisted, both are.
func (t *Texture) PropagateScale(other *Texture) error {
	if t.scaleMode == ScaleBlacklisted || other.scaleMode == ScaleBlacklisted {
		return errors.CombineErrors(t.BlacklistScale(), other.BlacklistScale())
	}

	if t.scaleFactor == other.scaleFactor {
		return nil
	}

	target := t.manager.config.ResolutionScale
	scale := math32.Max(t.scaleFactor, other.scaleFactor)
	if t.scaleFactor == target || other.scaleFactor == target {
		scale = target
	}

	return errors.CombineErrors(t.SetScale(scale), other.SetScale(scale))
}

// ScaleForRenderTarget scales an eligible texture to the configured resolution scale. It is called
// when the texture is about to be bound as a render target.
func (t *Texture) ScaleForRenderTarget() error {
	if t.scaleMode != ScaleEligible || !t.manager.config.EnableScaling {
		return nil
	}

	return t.SetScale(t.manager.config.ResolutionScale)
}
