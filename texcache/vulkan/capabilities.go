package vulkan

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
	"github.com/vkngwrapper/texcache/texcache/backend"
)

// PhysicalDevice is the part of core1_0.PhysicalDevice used to probe format support
type PhysicalDevice interface {
	FormatProperties(format core1_0.Format) *core1_0.FormatProperties
}

// Device is the part of core1_0.Device used to probe extension support
type Device interface {
	IsDeviceExtensionActive(extensionName string) bool
}

type capabilityProbe struct {
	flag    backend.CapabilityFlags
	formats []core1_0.Format
}

var capabilityProbes = []capabilityProbe{
	{flag: backend.SupportsAstcCompression, formats: []core1_0.Format{core1_0.FormatASTC4x4_UnsignedNormalized}},
	{flag: backend.SupportsBc123Compression, formats: []core1_0.Format{core1_0.FormatBC1_RGBAUnsignedNormalized, core1_0.FormatBC2_UnsignedNormalized, core1_0.FormatBC3_UnsignedNormalized}},
	{flag: backend.SupportsBc45Compression, formats: []core1_0.Format{core1_0.FormatBC4_UnsignedNormalized, core1_0.FormatBC5_UnsignedNormalized}},
	{flag: backend.SupportsBc67Compression, formats: []core1_0.Format{core1_0.FormatBC6_UnsignedFloat, core1_0.FormatBC7_UnsignedNormalized}},
	{flag: backend.SupportsEtc2Compression, formats: []core1_0.Format{core1_0.FormatETC2_R8G8B8UnsignedNormalized, core1_0.FormatETC2_R8G8B8A8UnsignedNormalized}},
	{flag: backend.SupportsR4G4Format, formats: []core1_0.Format{core1_0.FormatR4G4UnsignedNormalizedPacked}},
	{flag: backend.Supports5BitComponentFormat, formats: []core1_0.Format{core1_0.FormatB5G6R5UnsignedNormalizedPacked, core1_0.FormatA1R5G5B5UnsignedNormalizedPacked}},
}

func sampleable(physicalDevice PhysicalDevice, format core1_0.Format) bool {
	properties := physicalDevice.FormatProperties(format)
	return properties != nil && properties.OptimalTilingFeatures&core1_0.FormatFeatureSampledImage != 0
}

// ProbeCapabilities reports which guest texture formats a Vulkan device can sample directly, and
// whether image views may reinterpret their image's format
func ProbeCapabilities(physicalDevice PhysicalDevice, device Device) backend.CapabilityFlags {
	var capabilities backend.CapabilityFlags

	for _, probe := range capabilityProbes {
		supported := true
		for _, format := range probe.formats {
			if !sampleable(physicalDevice, format) {
				supported = false
				break
			}
		}

		if supported {
			capabilities |= probe.flag
		}
	}

	// Portability implementations may not allow format reinterpretation
	if !device.IsDeviceExtensionActive(khr_portability_subset.ExtensionName) {
		capabilities |= backend.SupportsMismatchingViewFormat
	}

	return capabilities
}
