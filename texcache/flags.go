package texcache

import "github.com/vkngwrapper/core/v2/common"

// CreateFlags indicate specific manager behaviors to activate or deactivate
type CreateFlags int32

var managerCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	managerCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return managerCreateFlagsMapping.FlagsToString(f)
}

const (
	// ManagerCreateExternallySynchronized ensures that this manager and the textures created from it
	// will not be synchronized internally. Guest memory unmap notifications normally arrive on another
	// goroutine and lock each texture's pool owners; with this flag the consumer guarantees they are
	// serialized against the GPU command goroutine by some other mechanism.
	ManagerCreateExternallySynchronized CreateFlags = 1 << iota
)

// TextureSearchFlags describe how a lookup intends to use the texture it finds
type TextureSearchFlags int32

var textureSearchFlagsMapping = common.NewFlagStringMapping[TextureSearchFlags]()

func (f TextureSearchFlags) Register(str string) {
	textureSearchFlagsMapping.Register(f, str)
}
func (f TextureSearchFlags) String() string {
	return textureSearchFlagsMapping.FlagsToString(f)
}

const (
	// TextureSearchForSampler compares sampler parameters (swizzle and depth-stencil mode)
	TextureSearchForSampler TextureSearchFlags = 1 << iota
	// TextureSearchForCopy allows a multisample texture to satisfy a single sample 2D copy
	TextureSearchForCopy
	// TextureSearchStrict rejects copy-only view matches
	TextureSearchStrict
	// TextureSearchWithUpscale marks the texture as eligible for resolution scaling
	TextureSearchWithUpscale
	// TextureSearchNoCreate only looks up existing textures
	TextureSearchNoCreate
)

func init() {
	ManagerCreateExternallySynchronized.Register("ManagerCreateExternallySynchronized")

	TextureSearchForSampler.Register("TextureSearchForSampler")
	TextureSearchForCopy.Register("TextureSearchForCopy")
	TextureSearchStrict.Register("TextureSearchStrict")
	TextureSearchWithUpscale.Register("TextureSearchWithUpscale")
	TextureSearchNoCreate.Register("TextureSearchNoCreate")
}
