// Command vkninfo prints the Vulkan layers, instance extensions and physical
// devices of the machine, with the queue family picked for each queue class.
package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	gu "github.com/docker/go-units"
	flag "github.com/spf13/pflag"
	vk "github.com/vulkan-go/vulkan"

	"github.com/zzxzzk115/vulkaninja"
)

var (
	showFeatures   = flag.BoolP("features", "f", false, "list the core features of every device")
	showExtensions = flag.BoolP("extensions", "e", false, "list the extensions of every device")
	configPath     = flag.StringP("config", "c", "", "context config used to create the instance")
)

func main() {
	flag.Parse()
	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "vkninfo: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer) error {
	if err := vulkaninja.InitLoader(); err != nil {
		return err
	}

	cfg := vulkaninja.DefaultContextConfig()
	if *configPath != "" {
		var err error
		if cfg, err = vulkaninja.LoadContextConfig(*configPath); err != nil {
			return err
		}
	}
	cfg.AppName = "vkninfo"

	layers, err := vulkaninja.SupportedLayers()
	if err != nil {
		return err
	}
	list(w, "Layers", layers)

	extensions, err := vulkaninja.SupportedExtensions()
	if err != nil {
		return err
	}
	list(w, "Instance Extensions", extensions)

	instance, err := vulkaninja.CreateInstance(cfg)
	if err != nil {
		return err
	}
	defer instance.Destroy()

	devices, err := instance.PhysicalDevices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		if err := showPhysicalDevice(w, d); err != nil {
			return err
		}
	}
	return nil
}

func list(w io.Writer, title string, data []string) {
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "-----------------------------\n")
	for _, d := range data {
		fmt.Fprintf(w, "\t%s\n", d)
	}
	fmt.Fprintf(w, "\n")
}

func showPhysicalDevice(w io.Writer, pd *vulkaninja.PhysicalDevice) error {
	props := pd.VKPhysicalDeviceProperties
	fmt.Fprintf(w, "\n%s\n", pd.DeviceName)
	fmt.Fprintf(w, "-----------------------------\n")
	fmt.Fprintf(w, "\tType\t%s\n", deviceType(props.DeviceType))
	fmt.Fprintf(w, "\tAPI\t%s\n", apiVersion(props.ApiVersion))

	families, err := pd.QueueFamilies(vk.NullSurface)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n\tQueue Families\n")
	classes := familyClasses(families)
	for _, qf := range families {
		fmt.Fprintf(w, "\t\t%s %s\n", qf.String(), classes[qf.Index])
	}

	if *showFeatures {
		fmt.Fprintf(w, "\n\tFeatures\n")
		showDeviceFeatures(w, pd.VKPhysicalDeviceFeatures())
	}
	showDeviceMemory(w, pd)

	if *showExtensions {
		extensions, err := pd.SupportedExtensions()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n\tSupported Extensions\n")
		for _, ext := range extensions {
			fmt.Fprintf(w, "\t\t%s\n", ext)
		}
	}
	return nil
}

// familyClasses names the queue class each family would be picked for by a
// headless context.
func familyClasses(families vulkaninja.QueueFamilySlice) map[int]string {
	ret := make(map[int]string)
	sel, err := vulkaninja.SelectQueueFamilies(families, false)
	if err != nil {
		return ret
	}
	for _, class := range sel.Classes() {
		ret[sel[class].Index] = "-> " + class.String()
	}
	return ret
}

func deviceType(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	}
	return "other"
}

func apiVersion(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}

func showDeviceFeatures(w io.Writer, features vk.PhysicalDeviceFeatures) {
	tf := reflect.TypeOf(features)
	vf := reflect.ValueOf(features)
	for f := 0; f < tf.NumField(); f++ {
		sf := tf.Field(f)
		sv := vf.Field(f)
		if sf.IsExported() && sf.Type.Kind() == reflect.Uint32 {
			fmt.Fprintf(w, "\t\t%s %v\n", sf.Name, sv.Uint() == 1)
		}
	}
}

func flagNames[T ~uint32](f T, names []flagName[T]) string {
	var set []string
	for _, n := range names {
		if f&n.bit != 0 {
			set = append(set, n.name)
		}
	}
	return fmt.Sprintf("%s (%x)", strings.Join(set, "|"), uint32(f))
}

type flagName[T ~uint32] struct {
	bit  T
	name string
}

var heapFlags = []flagName[vk.MemoryHeapFlags]{
	{vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit), "DeviceLocal"},
	{vk.MemoryHeapFlags(vk.MemoryHeapMultiInstanceBit), "MultiInstance"},
}

var propertyFlags = []flagName[vk.MemoryPropertyFlags]{
	{vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), "DeviceLocal"},
	{vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit), "HostVisible"},
	{vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit), "HostCoherent"},
	{vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit), "HostCached"},
	{vk.MemoryPropertyFlags(vk.MemoryPropertyLazilyAllocatedBit), "LazilyAllocated"},
	{vk.MemoryPropertyFlags(vk.MemoryPropertyProtectedBit), "Protected"},
}

func showDeviceMemory(w io.Writer, pd *vulkaninja.PhysicalDevice) {
	fmt.Fprintf(w, "\n\tMemory Types\n")
	fmt.Fprintf(w, "\t\tHeapIdx\tFlags\n")
	for _, mt := range pd.MemoryTypes() {
		fmt.Fprintf(w, "\t\t%d\t%s\n", mt.HeapIndex, flagNames(mt.PropertyFlags, propertyFlags))
	}

	fmt.Fprintf(w, "\n\tMemory Heaps\n")
	for _, h := range pd.MemoryHeaps() {
		fmt.Fprintf(w, "\t\t%s\t%s\n", gu.BytesSize(float64(h.Size)), flagNames(h.Flags, heapFlags))
	}
}
