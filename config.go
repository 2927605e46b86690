package vulkaninja

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

const (
	validationLayer = "VK_LAYER_KHRONOS_validation"
	monitorLayer    = "VK_LAYER_LUNARG_monitor"

	debugReportExtension = "VK_EXT_debug_report"
	swapchainExtension   = "VK_KHR_swapchain"
)

// Device extensions enabled by the ContextConfig feature switches.
var (
	RayTracingExtensions = []string{
		"VK_KHR_acceleration_structure",
		"VK_KHR_ray_tracing_pipeline",
		"VK_KHR_deferred_host_operations",
		"VK_KHR_buffer_device_address",
	}
	MeshShaderExtensions = []string{
		"VK_EXT_mesh_shader",
	}
	// ExtendedDynamicStateExtensions back the cull mode, front face and
	// topology states and the polygon mode state respectively.
	ExtendedDynamicStateExtensions = []string{
		"VK_EXT_extended_dynamic_state",
		"VK_EXT_extended_dynamic_state3",
	}
)

// ContextConfig describes how a Context is created. It can be built in code,
// starting from DefaultContextConfig, or read from a TOML file.
type ContextConfig struct {
	AppName    string  `toml:"app_name"`
	EngineName string  `toml:"engine_name"`
	Version    Version `toml:"version"`
	// APIVersion the minimum Vulkan API version, ray tracing needs 1.2
	APIVersion Version `toml:"api_version"`

	// Validation enables the Khronos validation layer and the debug report callback
	Validation bool `toml:"validation"`
	// FPSMonitor enables the LunarG monitor layer
	FPSMonitor bool `toml:"fps_monitor"`

	Layers             []string `toml:"layers"`
	InstanceExtensions []string `toml:"instance_extensions"`
	DeviceExtensions   []string `toml:"device_extensions"`

	RayTracing bool `toml:"ray_tracing"`
	MeshShader bool `toml:"mesh_shader"`
	// ExtendedDynamicState allows pipelines to leave cull mode, front face,
	// topology and polygon mode to the command buffer
	ExtendedDynamicState bool `toml:"extended_dynamic_state"`

	// DescriptorCount is the number of descriptors of each type in the shared pool
	DescriptorCount uint32 `toml:"descriptor_count"`
	// MaxDescriptorSets is the number of sets the shared pool can hand out
	MaxDescriptorSets uint32 `toml:"max_descriptor_sets"`

	Logger *slog.Logger `toml:"-"`
	// Procs defaults to the registered loader when a feature needs it
	Procs ExtensionProcs `toml:"-"`
}

// DefaultContextConfig returns the configuration used when a field is left empty.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		AppName:           "vulkaninja",
		EngineName:        "vulkaninja",
		Version:           Version{Major: 0, Minor: 1, Patch: 0},
		APIVersion:        Version{Major: 1, Minor: 2, Patch: 0},
		DescriptorCount:   100,
		MaxDescriptorSets: 100,
	}
}

// ParseContextConfig reads a TOML document on top of DefaultContextConfig.
func ParseContextConfig(data []byte) (ContextConfig, error) {
	cfg := DefaultContextConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse context config")
	}
	return cfg.withDefaults(), nil
}

// LoadContextConfig reads a TOML file on top of DefaultContextConfig.
func LoadContextConfig(path string) (ContextConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultContextConfig(), errors.Wrapf(err, "read context config %s", path)
	}
	return ParseContextConfig(data)
}

func (c ContextConfig) withDefaults() ContextConfig {
	d := DefaultContextConfig()
	if c.AppName == "" {
		c.AppName = d.AppName
	}
	if c.EngineName == "" {
		c.EngineName = d.EngineName
	}
	if c.APIVersion.Major == 0 {
		c.APIVersion = d.APIVersion
	}
	if c.DescriptorCount == 0 {
		c.DescriptorCount = d.DescriptorCount
	}
	if c.MaxDescriptorSets == 0 {
		c.MaxDescriptorSets = d.MaxDescriptorSets
	}
	if c.Logger == nil {
		c.Logger = Logger()
	}
	if c.Procs == nil && c.Features().Any() {
		c.Procs = registeredProcs()
	}
	return c
}

// Features returns the optional device features the config switches on
func (c ContextConfig) Features() DeviceFeatures {
	return DeviceFeatures{
		RayTracing:           c.RayTracing,
		MeshShader:           c.MeshShader,
		ExtendedDynamicState: c.ExtendedDynamicState,
	}
}

func (c ContextConfig) layers() []string {
	layers := appendUnique(nil, c.Layers...)
	if c.Validation {
		layers = appendUnique(layers, validationLayer)
	}
	if c.FPSMonitor {
		layers = appendUnique(layers, monitorLayer)
	}
	return layers
}

func (c ContextConfig) instanceExtensions() []string {
	exts := appendUnique(nil, c.InstanceExtensions...)
	if c.Validation {
		exts = appendUnique(exts, debugReportExtension)
	}
	return exts
}

func (c ContextConfig) deviceExtensions(presentation bool) []string {
	exts := appendUnique(nil, c.DeviceExtensions...)
	if presentation {
		exts = appendUnique(exts, swapchainExtension)
	}
	if c.RayTracing {
		exts = appendUnique(exts, RayTracingExtensions...)
	}
	if c.MeshShader {
		exts = appendUnique(exts, MeshShaderExtensions...)
	}
	if c.ExtendedDynamicState {
		exts = appendUnique(exts, ExtendedDynamicStateExtensions...)
	}
	return exts
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, l := range list {
			if l == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
