package cbc

// Origin says where a resolved mapping came from.
type Origin string

const (
	// OriginLocal is a manual mapping of one report.
	OriginLocal Origin = "local"
	// OriginGlobal is a mapping shared by every report.
	OriginGlobal Origin = "global"
	// OriginNone means no source supplies the property.
	OriginNone Origin = "none"
)

// Mapping links an extracted parameter label to a canonical property name.
type Mapping struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Resolution is the outcome of resolving one canonical property name.
type Resolution struct {
	Property string `json:"property"`
	Source   string `json:"source,omitempty"`
	Origin   Origin `json:"origin"`
	// Present is false for a local mapping whose source is not in the sample.
	Present bool `json:"present"`
}

// Found reports whether a source was resolved.
func (r Resolution) Found() bool {
	return r.Origin != OriginNone
}

// Resolve picks the extracted parameter that supplies property.
//
// A local mapping always wins, even when its source is absent from the
// sample. Global mappings only count when their source is available and is
// not the source of any local mapping. Ties go to the first matching entry
// in slice order.
func Resolve(property string, local, global []Mapping, available map[string]bool) Resolution {
	localSources := make(map[string]bool, len(local))
	for _, m := range local {
		if m.Target == property {
			return Resolution{
				Property: property,
				Source:   m.Source,
				Origin:   OriginLocal,
				Present:  available[m.Source],
			}
		}
		localSources[m.Source] = true
	}
	for _, m := range global {
		if m.Target == property && available[m.Source] && !localSources[m.Source] {
			return Resolution{
				Property: property,
				Source:   m.Source,
				Origin:   OriginGlobal,
				Present:  true,
			}
		}
	}
	return Resolution{Property: property, Origin: OriginNone}
}

// ResolveOverrides resolves every property and returns the rename map the
// engine applies (source -> property) together with each resolution in
// property order. Local resolutions claim their sources before global ones;
// a source already claimed is not reassigned.
func ResolveOverrides(properties []string, local, global []Mapping, available map[string]bool) (map[string]string, []Resolution) {
	overrides := make(map[string]string)
	resolutions := make([]Resolution, 0, len(properties))
	for _, p := range properties {
		resolutions = append(resolutions, Resolve(p, local, global, available))
	}
	for _, origin := range []Origin{OriginLocal, OriginGlobal} {
		for _, res := range resolutions {
			if res.Origin != origin || res.Source == res.Property {
				continue
			}
			if _, claimed := overrides[res.Source]; claimed {
				continue
			}
			overrides[res.Source] = res.Property
		}
	}
	return overrides, resolutions
}

// AvailableSet turns a list of source labels into the lookup Resolve wants.
func AvailableSet(labels []string) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	return set
}
