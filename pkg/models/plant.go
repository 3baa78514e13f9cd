package models

import (
	"fmt"
	"strings"
)

// Technology is the confinement family of a plant. It drives both the power
// balance strategy and the cost-account applicability table.
type Technology string

const (
	TechMFE Technology = "MFE" // magnetic confinement
	TechIFE Technology = "IFE" // inertial confinement
)

// Technologies lists every supported technology in display order.
var Technologies = []Technology{TechMFE, TechIFE}

// ParseTechnology resolves a reactor_type tag. Matching is case-insensitive.
func ParseTechnology(s string) (Technology, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MFE":
		return TechMFE, nil
	case "IFE":
		return TechIFE, nil
	}
	return "", fmt.Errorf("reactor_type %q: %w", s, ErrUnknownTechnology)
}

// Topology is the reactor layout; it selects the geometry formula.
type Topology string

const (
	TopologyTokamak Topology = "tokamak" // toroidal build
	TopologyMirror  Topology = "mirror"  // cylindrical build
	TopologyLaser   Topology = "laser"   // spherical chamber
)

// DefaultTopology returns the layout used when a config names only the technology.
func DefaultTopology(t Technology) Topology {
	if t == TechIFE {
		return TopologyLaser
	}
	return TopologyTokamak
}

// ParseTopology resolves a topology tag and checks it is legal for the technology.
func ParseTopology(s string, tech Technology) (Topology, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultTopology(tech), nil
	}
	topo := Topology(strings.ToLower(strings.TrimSpace(s)))
	switch topo {
	case TopologyTokamak, TopologyMirror:
		if tech != TechMFE {
			return "", fmt.Errorf("topology %q requires MFE, got %s: %w", s, tech, ErrConfiguration)
		}
	case TopologyLaser:
		if tech != TechIFE {
			return "", fmt.Errorf("topology %q requires IFE, got %s: %w", s, tech, ErrConfiguration)
		}
	default:
		return "", fmt.Errorf("topology %q: %w", s, ErrUnknownTechnology)
	}
	return topo, nil
}

// FuelType is the fusion fuel cycle.
type FuelType string

const (
	FuelDT   FuelType = "DT"
	FuelDD   FuelType = "DD"
	FuelDHe3 FuelType = "DHe3"
	FuelPB11 FuelType = "pB11"
)

// ParseFuelType accepts canonical codes and their upper-case dashboard spellings.
func ParseFuelType(s string) (FuelType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DT", "D-T":
		return FuelDT, nil
	case "DD", "D-D":
		return FuelDD, nil
	case "DHE3", "D-HE3":
		return FuelDHe3, nil
	case "PB11", "P-B11":
		return FuelPB11, nil
	}
	return "", fmt.Errorf("fuel_type %q: %w", s, ErrUnknownTechnology)
}

// MagnetTechnology is the conductor family of the confinement coils.
type MagnetTechnology string

const (
	MagnetHTS    MagnetTechnology = "HTS"
	MagnetLTS    MagnetTechnology = "LTS"
	MagnetCopper MagnetTechnology = "Copper"
)

// Superconducting reports whether the coils need a cryogenic plant.
func (m MagnetTechnology) Superconducting() bool {
	return m == MagnetHTS || m == MagnetLTS
}

// ParseMagnetTechnology resolves the magnet_technology tag including the
// descriptive dashboard labels ("HTS REBCO", "LTS Nb3Sn", "Copper (resistive)").
func ParseMagnetTechnology(s string) (MagnetTechnology, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(v, "HTS"):
		return MagnetHTS, nil
	case strings.HasPrefix(v, "LTS"):
		return MagnetLTS, nil
	case strings.HasPrefix(v, "COPPER"), v == "CU":
		return MagnetCopper, nil
	}
	return "", fmt.Errorf("magnet_technology %q: %w", s, ErrUnknownTechnology)
}
