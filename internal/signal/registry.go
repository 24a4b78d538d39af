package signal

import (
	"fmt"
	"sort"
)

// Descriptor holds static metadata for one signal module. EntropyBits is an
// approximate log2 estimate of distinguishing power; StabilityPercent is the
// empirical likelihood of an identical reading across repeated runs on the
// same device.
type Descriptor struct {
	Name             string
	EntropyBits      float64
	StabilityPercent float64
	HardwareBased    bool
}

// Registry is an immutable table of signal module descriptors, populated once
// at startup and passed by reference.
type Registry struct {
	byName map[string]Descriptor
	order  []string
}

// NewRegistry builds a registry from the given descriptors. Duplicate names,
// negative entropy, and out-of-range stability are rejected.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	byName := make(map[string]Descriptor, len(descriptors))
	order := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("descriptor with empty name")
		}
		if _, ok := byName[d.Name]; ok {
			return nil, fmt.Errorf("duplicate signal module %q", d.Name)
		}
		if d.EntropyBits < 0 {
			return nil, fmt.Errorf("signal module %q: negative entropy", d.Name)
		}
		if d.StabilityPercent < 0 || d.StabilityPercent > 100 {
			return nil, fmt.Errorf("signal module %q: stability %v out of range", d.Name, d.StabilityPercent)
		}
		byName[d.Name] = d
		order = append(order, d.Name)
	}
	sort.Strings(order)
	return &Registry{byName: byName, order: order}, nil
}

// Lookup returns the descriptor for a module name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns all registered module names in lexicographic order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.byName)
}

// Well-known signal module names.
const (
	ModuleCanvas       = "canvas"
	ModuleWebGL        = "webgl"
	ModuleAudio        = "audio"
	ModuleFonts        = "fonts"
	ModuleMath         = "math"
	ModuleTimezone     = "timezone"
	ModuleLanguages    = "languages"
	ModuleScreen       = "screen"
	ModuleConcurrency  = "hardware-concurrency"
	ModuleDeviceMemory = "device-memory"
	ModulePlatform     = "platform"
	ModuleTouch        = "touch"
	ModuleColorDepth   = "color-depth"
	ModulePointer      = "pointer"
	ModuleWheel        = "wheel"
	ModuleBattery      = "battery"
	ModuleUserAgent    = "user-agent"
	ModuleStorage      = "storage"
)

// DefaultRegistry returns the registry for the known probe modules with their
// measured entropy and stability estimates.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry([]Descriptor{
		{Name: ModuleCanvas, EntropyBits: 8.5, StabilityPercent: 90, HardwareBased: true},
		{Name: ModuleWebGL, EntropyBits: 9.0, StabilityPercent: 88, HardwareBased: true},
		{Name: ModuleAudio, EntropyBits: 5.4, StabilityPercent: 92, HardwareBased: true},
		{Name: ModuleFonts, EntropyBits: 7.0, StabilityPercent: 85, HardwareBased: false},
		{Name: ModuleMath, EntropyBits: 3.2, StabilityPercent: 96, HardwareBased: false},
		{Name: ModuleTimezone, EntropyBits: 3.0, StabilityPercent: 99, HardwareBased: false},
		{Name: ModuleLanguages, EntropyBits: 2.2, StabilityPercent: 98, HardwareBased: false},
		{Name: ModuleScreen, EntropyBits: 4.8, StabilityPercent: 95, HardwareBased: true},
		{Name: ModuleConcurrency, EntropyBits: 2.5, StabilityPercent: 99, HardwareBased: true},
		{Name: ModuleDeviceMemory, EntropyBits: 2.0, StabilityPercent: 99, HardwareBased: true},
		{Name: ModulePlatform, EntropyBits: 2.3, StabilityPercent: 99, HardwareBased: false},
		{Name: ModuleTouch, EntropyBits: 1.5, StabilityPercent: 99, HardwareBased: true},
		{Name: ModuleColorDepth, EntropyBits: 1.0, StabilityPercent: 99, HardwareBased: true},
		{Name: ModulePointer, EntropyBits: 1.8, StabilityPercent: 90, HardwareBased: false},
		{Name: ModuleWheel, EntropyBits: 2.6, StabilityPercent: 80, HardwareBased: true},
		{Name: ModuleBattery, EntropyBits: 1.2, StabilityPercent: 40, HardwareBased: true},
		{Name: ModuleUserAgent, EntropyBits: 4.0, StabilityPercent: 70, HardwareBased: false},
		{Name: ModuleStorage, EntropyBits: 1.5, StabilityPercent: 60, HardwareBased: false},
	})
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return reg
}
