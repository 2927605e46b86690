package vulkaninja

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"
)

var loaderOnce sync.Once
var loaderErr error

// InitLoader loads the Vulkan loader from the system default location. It is
// only needed when no window library provides the loader entry point.
func InitLoader() error {
	loaderOnce.Do(func() {
		loaderErr = vk.SetDefaultGetInstanceProcAddr()
		if loaderErr == nil {
			loaderErr = vk.Init()
		}
	})
	return loaderErr
}

// InitLoaderFrom initializes Vulkan with the vkGetInstanceProcAddr pointer
// handed out by a window library such as GLFW.
func InitLoaderFrom(getInstanceProcAddr unsafe.Pointer) error {
	loaderOnce.Do(func() {
		vk.SetGetInstanceProcAddr(getInstanceProcAddr)
		loaderErr = vk.Init()
	})
	return loaderErr
}

// Version is used to specify versions of components
type Version struct {
	Major int `toml:"major"`
	Minor int `toml:"minor"`
	Patch int `toml:"patch"`
}

// VKVersion returns a Vulkan compatible version representation
func (v Version) VKVersion() uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// SupportedLayers returns a list of supported layers for use by Vulkan
func SupportedLayers() ([]string, error) {
	var instanceLayerLen uint32
	err := vk.Error(vk.EnumerateInstanceLayerProperties(&instanceLayerLen, nil))
	if err != nil {
		return nil, err
	}
	instanceLayer := make([]vk.LayerProperties, instanceLayerLen)
	err = vk.Error(vk.EnumerateInstanceLayerProperties(&instanceLayerLen, instanceLayer))
	if err != nil {
		return nil, err
	}
	layerNames := make([]string, 0, instanceLayerLen)
	for _, layer := range instanceLayer {
		layer.Deref()
		layerNames = append(layerNames, vk.ToString(layer.LayerName[:]))
	}
	return layerNames, nil
}

// SupportedExtensions returns a list of supported instance extensions
func SupportedExtensions() ([]string, error) {
	var instanceExtLen uint32
	err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, nil))
	if err != nil {
		return nil, err
	}
	instanceExt := make([]vk.ExtensionProperties, instanceExtLen)
	err = vk.Error(vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, instanceExt))
	if err != nil {
		return nil, err
	}
	extNames := make([]string, 0, instanceExtLen)
	for _, ext := range instanceExt {
		ext.Deref()
		extNames = append(extNames, vk.ToString(ext.ExtensionName[:]))
	}
	return extNames, nil
}

// Instance is an instance of the Vulkan subsystem
type Instance struct {
	// VKInstance is the native Vulkan instance object
	VKInstance vk.Instance

	debugCallback vk.DebugReportCallback
	log           *slog.Logger
}

// CreateInstance creates the Vulkan instance described by the config. Layers
// which are not available are skipped with a warning.
func CreateInstance(cfg ContextConfig) (*Instance, error) {
	cfg = cfg.withDefaults()

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         cfg.APIVersion.VKVersion(),
		ApplicationVersion: cfg.Version.VKVersion(),
		PApplicationName:   safeString(cfg.AppName),
		PEngineName:        safeString(cfg.EngineName),
	}

	available, err := SupportedLayers()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate layers")
	}
	layers := make([]string, 0)
	for _, layer := range cfg.layers() {
		if contains(available, layer) {
			layers = append(layers, layer)
		} else {
			cfg.Logger.Warn("instance layer not found", slog.String("layer", layer))
		}
	}

	extensions := safeStrings(cfg.instanceExtensions())
	layers = safeStrings(layers)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	instance := &Instance{log: cfg.Logger}

	err = vkErr(vk.CreateInstance(&createInfo, nil, &instance.VKInstance), "create instance")
	if err != nil {
		return nil, err
	}
	err = vk.InitInstance(instance.VKInstance)
	if err != nil {
		vk.DestroyInstance(instance.VKInstance, nil)
		return nil, errors.Wrap(err, "init instance")
	}

	if cfg.Validation {
		if err := instance.SetDebugCallback(instance.debugReport); err != nil {
			cfg.Logger.Warn("debug report callback unavailable", slog.Any("error", err))
		}
	}

	return instance, nil
}

// PhysicalDevices returns a list of physical devices known to Vulkan
func (i *Instance) PhysicalDevices() ([]*PhysicalDevice, error) {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, nil))
	if err != nil {
		return nil, err
	}

	if deviceCount == 0 {
		return nil, nil
	}

	devices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, devices))
	if err != nil {
		return nil, err
	}

	ret := make([]*PhysicalDevice, deviceCount)
	for j, device := range devices {
		ret[j] = &PhysicalDevice{VKPhysicalDevice: device}

		vk.GetPhysicalDeviceProperties(device, &ret[j].VKPhysicalDeviceProperties)
		ret[j].VKPhysicalDeviceProperties.Deref()
		ret[j].VKPhysicalDeviceProperties.Limits.Deref()
		ret[j].DeviceName = vk.ToString(ret[j].VKPhysicalDeviceProperties.DeviceName[:])
	}
	return ret, nil
}

// SetDebugCallback installs a debug report callback for errors and warnings
func (i *Instance) SetDebugCallback(callback vk.DebugReportCallbackFunc) error {
	return vkErr(vk.CreateDebugReportCallback(i.VKInstance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: callback,
	}, nil, &i.debugCallback), "create debug report callback")
}

func (i *Instance) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	attrs := []any{slog.String("layer", pLayerPrefix), slog.Int("code", int(messageCode))}
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		i.log.Error(pMessage, attrs...)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		i.log.Warn(pMessage, attrs...)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		i.log.Warn(pMessage, append(attrs, slog.Bool("performance", true))...)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		i.log.Debug(pMessage, attrs...)
	default:
		i.log.Info(pMessage, attrs...)
	}
	return vk.Bool32(vk.False)
}

// Destroy destroys the instance and its debug callback
func (i *Instance) Destroy() {
	if i.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.VKInstance, i.debugCallback, nil)
	}
	vk.DestroyInstance(i.VKInstance, nil)
}
