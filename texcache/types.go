package texcache

// TextureHandle is the stable identity of a texture within its Manager
type TextureHandle uint64

// NoTexture is the zero handle, never assigned to a texture
const NoTexture TextureHandle = 0

// ScaleMode controls whether a texture takes part in resolution scaling
type ScaleMode int32

const (
	// ScaleUndesired textures are never scaled
	ScaleUndesired ScaleMode = iota
	// ScaleEligible textures may be scaled once they are bound as a render target
	ScaleEligible
	// ScaleScaled textures are stored at the configured resolution scale
	ScaleScaled
	// ScaleBlacklisted textures were found to be unsuitable for scaling and stay at 1x permanently
	ScaleBlacklisted
)

var scaleModeMapping = map[ScaleMode]string{
	ScaleUndesired:   "Undesired",
	ScaleEligible:    "Eligible",
	ScaleScaled:      "Scaled",
	ScaleBlacklisted: "Blacklisted",
}

func (m ScaleMode) String() string {
	return scaleModeMapping[m]
}

// TextureMatchQuality ranks how well an existing texture satisfies a lookup
type TextureMatchQuality int32

const (
	NoMatch TextureMatchQuality = iota
	// FormatAlias matches everything a draw needs but differs in sampler parameters the lookup
	// did not ask about
	FormatAlias
	Perfect
)

var matchQualityMapping = map[TextureMatchQuality]string{
	NoMatch:     "NoMatch",
	FormatAlias: "FormatAlias",
	Perfect:     "Perfect",
}

func (q TextureMatchQuality) String() string {
	return matchQualityMapping[q]
}

// TextureViewCompatibility ranks whether a texture may be created as a view of another. The values
// are ordered so that combining two results keeps the lower one.
type TextureViewCompatibility int32

const (
	Incompatible TextureViewCompatibility = iota
	LayoutIncompatible
	CopyOnly
	Full
)

var viewCompatibilityMapping = map[TextureViewCompatibility]string{
	Incompatible:       "Incompatible",
	LayoutIncompatible: "LayoutIncompatible",
	CopyOnly:           "CopyOnly",
	Full:               "Full",
}

func (c TextureViewCompatibility) String() string {
	return viewCompatibilityMapping[c]
}

func propagateViewCompatibility(left, right TextureViewCompatibility) TextureViewCompatibility {
	return min(left, right)
}

// DepthStencilMode selects which aspect of a combined depth-stencil texture a sampler reads
type DepthStencilMode int32

const (
	DepthStencilDepth DepthStencilMode = iota
	DepthStencilStencil
)

// TextureDescriptor is the raw sampler pool descriptor a texture was looked up with. It is only used
// as a lookup key by the short cache.
type TextureDescriptor struct {
	Words [8]uint32
}
