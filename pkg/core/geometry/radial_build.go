// Package geometry converts a radial build (ordered layer thicknesses around a
// base radius) into per-layer shell volumes for the three reactor layouts.
package geometry

import (
	"fmt"
	"math"
	"sort"

	"fusion_costing/pkg/models"
)

// Shape selects the shell volume formula.
type Shape string

const (
	Toroidal    Shape = "toroidal"
	Cylindrical Shape = "cylindrical"
	Spherical   Shape = "spherical"
)

// ShapeFor maps a reactor topology onto its geometry.
func ShapeFor(t models.Topology) (Shape, error) {
	switch t {
	case models.TopologyTokamak:
		return Toroidal, nil
	case models.TopologyMirror:
		return Cylindrical, nil
	case models.TopologyLaser:
		return Spherical, nil
	}
	return "", fmt.Errorf("topology %q: %w", t, models.ErrUnknownTechnology)
}

// Canonical layer names, innermost first.
const (
	LayerPlasmaGap = "plasma_gap"
	LayerFirstWall = "first_wall"
	LayerBlanket   = "blanket"
	LayerShield    = "shield"
	LayerGap       = "gap"
	LayerCoil      = "coil"
)

var canonicalOrder = map[string]int{
	LayerPlasmaGap: 0,
	LayerFirstWall: 1,
	LayerBlanket:   2,
	LayerShield:    3,
	LayerGap:       4,
	LayerCoil:      5,
}

// Layer is one shell of the build.
type Layer struct {
	Name      string  `json:"name" yaml:"name"`
	Thickness float64 `json:"thickness" yaml:"thickness"` // m
}

// RadialBuildSpec describes the build outward from BaseRadius.
// BaseRadius is the plasma minor radius (toroidal), plasma radius (cylindrical)
// or chamber radius (spherical).
type RadialBuildSpec struct {
	Shape       Shape   `json:"shape"`
	BaseRadius  float64 `json:"base_radius"`
	MajorRadius float64 `json:"major_radius,omitempty"` // toroidal only
	Elongation  float64 `json:"elongation,omitempty"`   // toroidal only, 1 when unset
	Length      float64 `json:"length,omitempty"`       // cylindrical only
	Layers      []Layer `json:"layers"`
}

// LayerVolume is the derived shell for one layer.
type LayerVolume struct {
	Name        string  `json:"name"`
	InnerRadius float64 `json:"inner_radius"`
	OuterRadius float64 `json:"outer_radius"`
	Volume      float64 `json:"volume"` // m³
}

// Volumes is the immutable result of Compute. Layers are in canonical order.
type Volumes struct {
	Shape  Shape         `json:"shape"`
	Layers []LayerVolume `json:"layers"`
}

// Get returns the shell for a layer name.
func (v Volumes) Get(name string) (LayerVolume, bool) {
	for _, l := range v.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return LayerVolume{}, false
}

// Volume returns the shell volume of a layer, 0 when the layer is absent.
func (v Volumes) Volume(name string) float64 {
	l, _ := v.Get(name)
	return l.Volume
}

// Total sums every shell volume.
func (v Volumes) Total() float64 {
	var total float64
	for _, l := range v.Layers {
		total += l.Volume
	}
	return total
}

// OuterRadius is the outer radius of the outermost layer.
func (v Volumes) OuterRadius() float64 {
	if len(v.Layers) == 0 {
		return 0
	}
	return v.Layers[len(v.Layers)-1].OuterRadius
}

// Compute stacks the layers and derives every shell volume.
// All validation happens before any volume is produced.
func Compute(spec RadialBuildSpec) (Volumes, error) {
	// 1. Validate the base dimensions
	if err := validateBase(spec); err != nil {
		return Volumes{}, err
	}

	// 2. Validate layers and sort into canonical order
	layers, err := orderLayers(spec.Layers)
	if err != nil {
		return Volumes{}, err
	}

	// 3. Stack radially
	out := Volumes{Shape: spec.Shape, Layers: make([]LayerVolume, 0, len(layers))}
	inner := spec.BaseRadius
	for _, l := range layers {
		outer := inner + l.Thickness
		out.Layers = append(out.Layers, LayerVolume{
			Name:        l.Name,
			InnerRadius: inner,
			OuterRadius: outer,
		})
		inner = outer
	}

	// 4. The torus must not self-intersect
	if spec.Shape == Toroidal && spec.MajorRadius <= out.OuterRadius() {
		return Volumes{}, fmt.Errorf("major radius %.3f m must exceed outer build radius %.3f m: %w",
			spec.MajorRadius, out.OuterRadius(), models.ErrInvalidGeometry)
	}

	// 5. Volumes
	for i := range out.Layers {
		l := &out.Layers[i]
		l.Volume = ShellVolume(spec, l.InnerRadius, l.OuterRadius)
		if l.Volume < 0 || math.IsNaN(l.Volume) {
			return Volumes{}, fmt.Errorf("layer %s volume %.4g: %w", l.Name, l.Volume, models.ErrInvalidGeometry)
		}
	}
	return out, nil
}

// ShellVolume evaluates the topology formula between two radii.
//
// FORMULA:
//   - toroidal:    V = κ · 2π² R (ro² − ri²)
//   - cylindrical: V = π L (ro² − ri²)
//   - spherical:   V = 4/3 π (ro³ − ri³)
func ShellVolume(spec RadialBuildSpec, ri, ro float64) float64 {
	switch spec.Shape {
	case Toroidal:
		return elongation(spec) * 2 * math.Pi * math.Pi * spec.MajorRadius * (ro*ro - ri*ri)
	case Cylindrical:
		return math.Pi * spec.Length * (ro*ro - ri*ri)
	case Spherical:
		return 4.0 / 3.0 * math.Pi * (ro*ro*ro - ri*ri*ri)
	}
	return math.NaN()
}

func elongation(spec RadialBuildSpec) float64 {
	if spec.Elongation == 0 {
		return 1
	}
	return spec.Elongation
}

func validateBase(spec RadialBuildSpec) error {
	if spec.BaseRadius <= 0 || math.IsNaN(spec.BaseRadius) {
		return fmt.Errorf("base radius %.4g m: %w", spec.BaseRadius, models.ErrInvalidGeometry)
	}
	switch spec.Shape {
	case Toroidal:
		if spec.MajorRadius <= 0 {
			return fmt.Errorf("major radius %.4g m: %w", spec.MajorRadius, models.ErrInvalidGeometry)
		}
		if spec.Elongation < 0 {
			return fmt.Errorf("elongation %.4g: %w", spec.Elongation, models.ErrInvalidGeometry)
		}
	case Cylindrical:
		if spec.Length <= 0 {
			return fmt.Errorf("chamber length %.4g m: %w", spec.Length, models.ErrInvalidGeometry)
		}
	case Spherical:
	default:
		return fmt.Errorf("shape %q: %w", spec.Shape, models.ErrInvalidGeometry)
	}
	return nil
}

func orderLayers(in []Layer) ([]Layer, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("radial build has no layers: %w", models.ErrInvalidGeometry)
	}
	seen := make(map[string]bool, len(in))
	out := make([]Layer, 0, len(in))
	for _, l := range in {
		if _, ok := canonicalOrder[l.Name]; !ok {
			return nil, fmt.Errorf("layer %q is not a radial build layer: %w", l.Name, models.ErrInvalidGeometry)
		}
		if seen[l.Name] {
			return nil, fmt.Errorf("layer %q given twice: %w", l.Name, models.ErrInvalidGeometry)
		}
		if l.Thickness < 0 || math.IsNaN(l.Thickness) {
			return nil, fmt.Errorf("layer %s thickness %.4g m: %w", l.Name, l.Thickness, models.ErrInvalidGeometry)
		}
		seen[l.Name] = true
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return canonicalOrder[out[i].Name] < canonicalOrder[out[j].Name]
	})
	return out, nil
}
