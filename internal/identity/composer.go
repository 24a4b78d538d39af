package identity

import (
	"beacon/internal/signal"
)

// Tier names, ordered from most cross-engine-stable to most engine-specific.
const (
	TierMinimal  = "minimal"
	TierExtended = "extended"
	TierFull     = "full"
)

// tierMembers lists the signal modules participating in each tier. Tiers may
// overlap; a module absent from a collection run is simply skipped.
var tierMembers = map[string][]string{
	TierMinimal: {
		signal.ModuleTimezone,
		signal.ModuleLanguages,
		signal.ModuleScreen,
		signal.ModulePlatform,
		signal.ModuleConcurrency,
		signal.ModuleDeviceMemory,
		signal.ModuleTouch,
		signal.ModuleColorDepth,
	},
	TierExtended: {
		signal.ModuleTimezone,
		signal.ModuleLanguages,
		signal.ModuleScreen,
		signal.ModulePlatform,
		signal.ModuleConcurrency,
		signal.ModuleDeviceMemory,
		signal.ModuleTouch,
		signal.ModuleColorDepth,
		signal.ModuleAudio,
		signal.ModuleFonts,
		signal.ModuleMath,
		signal.ModulePointer,
	},
	TierFull: {
		signal.ModuleTimezone,
		signal.ModuleLanguages,
		signal.ModuleScreen,
		signal.ModulePlatform,
		signal.ModuleConcurrency,
		signal.ModuleDeviceMemory,
		signal.ModuleTouch,
		signal.ModuleColorDepth,
		signal.ModuleAudio,
		signal.ModuleFonts,
		signal.ModuleMath,
		signal.ModulePointer,
		signal.ModuleCanvas,
		signal.ModuleWebGL,
		signal.ModuleUserAgent,
		signal.ModuleWheel,
		signal.ModuleBattery,
		signal.ModuleStorage,
	},
}

// TierIdentifier is one tier's composed identifier plus its quality estimates.
type TierIdentifier struct {
	Tier             string
	Identifier       string
	EntropyBits      float64
	StabilityPercent float64
	Modules          []string
}

// Composition holds the identifiers for all tiers of one collection run.
type Composition struct {
	Minimal  TierIdentifier
	Extended TierIdentifier
	Full     TierIdentifier
}

// Composer builds tier identifiers from collection-run output.
type Composer struct {
	registry *signal.Registry
	mode     HashMode
}

// NewComposer constructs a composer over the given registry.
func NewComposer(registry *signal.Registry, mode HashMode) *Composer {
	return &Composer{registry: registry, mode: mode}
}

// Compose derives every tier identifier from the name→data map produced by a
// collection run. A module missing from data never perturbs tiers it does not
// participate in, and identical data always yields identical identifiers.
func (c *Composer) Compose(data map[string]any) Composition {
	return Composition{
		Minimal:  c.composeTier(TierMinimal, data),
		Extended: c.composeTier(TierExtended, data),
		Full:     c.composeTier(TierFull, data),
	}
}

func (c *Composer) composeTier(tier string, data map[string]any) TierIdentifier {
	members := tierMembers[tier]
	present := make(map[string]any, len(members))
	var modules []string
	var entropy float64
	var stability float64

	for _, name := range members {
		value, ok := data[name]
		if !ok {
			continue
		}
		present[name] = value
		modules = append(modules, name)
		if desc, ok := c.registry.Lookup(name); ok {
			entropy += desc.EntropyBits
			stability += desc.StabilityPercent
		}
	}

	id := TierIdentifier{
		Tier:        tier,
		EntropyBits: entropy,
		Modules:     modules,
	}
	if len(modules) > 0 {
		id.StabilityPercent = stability / float64(len(modules))
		id.Identifier = digest(c.mode, canonicalize(present))
	}
	return id
}
