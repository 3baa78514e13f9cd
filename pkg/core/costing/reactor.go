package costing

import (
	"fmt"
	"math"

	"fusion_costing/pkg/core/geometry"
	"fusion_costing/pkg/core/materials"
	"fusion_costing/pkg/models"
)

// =============================================================================
// 22.01 REACTOR CORE
// =============================================================================

// Volume fractions of each shell occupied by solid material.
const (
	fwArmorFraction          = 0.7
	fwStructureFraction      = 0.3
	blanketStructureFraction = 0.15
	shieldStructureFraction  = 0.6
)

// Divertor plates, priced by areal mass.
const (
	divertorAreaM2       = 50.0
	divertorArmorKgPerM2 = 10.0 // W
	divertorHeatKgPerM2  = 50.0 // Cu heat sink
)

type blanketMix struct {
	structure      string // overrides the configured structure material
	breeder        string
	breederFrac    float64
	multiplier     string
	multiplierFrac float64
}

// Self-breeding liquids carry no multiplier; ceramic breeders need beryllium.
var blanketMixes = map[string]blanketMix{
	"PbLi":    {breeder: "PbLi", breederFrac: 0.65},
	"FLiBe":   {structure: "SiC", breeder: "FLiBe", breederFrac: 0.65},
	"Li4SiO4": {breeder: "Li4SiO4", breederFrac: 0.45, multiplier: "Be", multiplierFrac: 0.15},
	"Li2TiO3": {breeder: "Li2TiO3", breederFrac: 0.45, multiplier: "Be", multiplierFrac: 0.15},
}

// BlanketTypes lists the supported blanket compositions.
func BlanketTypes() []string {
	return []string{"PbLi", "FLiBe", "Li4SiO4", "Li2TiO3"}
}

func resolveBlanket(name string) (blanketMix, error) {
	code, err := materials.Resolve(name)
	if err != nil {
		return blanketMix{}, fmt.Errorf("blanket_type: %w", err)
	}
	mix, ok := blanketMixes[code]
	if !ok {
		return blanketMix{}, fmt.Errorf("blanket_type %q is not a breeder: %w", name, models.ErrConfiguration)
	}
	return mix, nil
}

// reactorCore prices first wall, blanket, shield and (MFE) divertor.
func reactorCore(in Input) (map[string]float64, error) {
	out := map[string]float64{}
	v := in.Volumes

	// 1. First wall: armor over structure
	vfw := v.Volume(geometry.LayerFirstWall)
	armor, err := materials.Cost(in.Materials.FirstWallArmor, vfw*fwArmorFraction)
	if err != nil {
		return nil, fmt.Errorf("first wall armor: %w", err)
	}
	structure, err := materials.Cost(in.Materials.Structure, vfw*fwStructureFraction)
	if err != nil {
		return nil, fmt.Errorf("first wall structure: %w", err)
	}
	out[CodeFirstWall] = armor + structure

	// 2. Blanket
	mix, err := resolveBlanket(in.Materials.BlanketType)
	if err != nil {
		return nil, err
	}
	vbl := v.Volume(geometry.LayerBlanket)
	structCode := in.Materials.Structure
	if mix.structure != "" {
		structCode = mix.structure
	}
	var blanket float64
	parts := []struct {
		code string
		frac float64
	}{
		{structCode, blanketStructureFraction},
		{mix.breeder, mix.breederFrac},
		{mix.multiplier, mix.multiplierFrac},
	}
	for _, p := range parts {
		if p.code == "" {
			continue
		}
		c, err := materials.Cost(p.code, vbl*p.frac)
		if err != nil {
			return nil, fmt.Errorf("blanket: %w", err)
		}
		blanket += c
	}
	out[CodeBlanket] = blanket

	// 3. Shield
	shield, err := materials.Cost(in.Materials.ShieldMaterial, v.Volume(geometry.LayerShield)*shieldStructureFraction)
	if err != nil {
		return nil, fmt.Errorf("shield: %w", err)
	}
	out[CodeShield] = shield

	// 4. Divertor
	if Applies(CodeDivertor, in.Technology) {
		w, err := materials.CostByMass("W", divertorAreaM2*divertorArmorKgPerM2)
		if err != nil {
			return nil, err
		}
		cu, err := materials.CostByMass("Cu", divertorAreaM2*divertorHeatKgPerM2)
		if err != nil {
			return nil, err
		}
		out[CodeDivertor] = w + cu
	}
	return out, nil
}

// =============================================================================
// 22.02 MAGNETS
// =============================================================================

const (
	coilGapM          = 0.1  // clearance between build and winding pack
	coilHalfDepthM    = 0.25 // winding pack centre offset
	tfCoilCount       = 18
	solenoidCount     = 20 // mirror
	coilThicknessM    = 0.5
	coilWidthM        = 1.0
	conductorFraction = 0.4

	pfToTF          = 0.3
	csToTF          = 0.15
	structureToCoil = 0.5
	cryoplantPerMW  = 0.15 // M$ per MW thermal
	cryostatToPlant = 0.3
)

type conductorSpec struct {
	code    string
	premium float64 // fabrication premium over bulk material cost
}

var conductors = map[models.MagnetTechnology]conductorSpec{
	models.MagnetHTS:    {code: "YBCO", premium: 10},
	models.MagnetLTS:    {code: "Nb3Sn", premium: 2},
	models.MagnetCopper: {code: "Cu", premium: 1.5},
}

// ConductorVolume returns the conductor volume in m³ for the coil set that
// encloses the build, and the number of coils.
//
// FORMULA (tokamak): L = 2π·r_mean·(1+κ)/2, V = N·t·w·L·f
// FORMULA (mirror):  L = 2π·r_mean
func ConductorVolume(topology models.Topology, outerRadius, elongation float64) (float64, int) {
	rMean := outerRadius + coilGapM + coilHalfDepthM
	n := tfCoilCount
	length := 2 * math.Pi * rMean
	if topology == models.TopologyMirror {
		n = solenoidCount
	} else {
		if elongation <= 0 {
			elongation = 1
		}
		length *= (1 + elongation) / 2
	}
	return float64(n) * coilThicknessM * coilWidthM * length * conductorFraction, n
}

// magnets prices the coil set, structure and cryogenics.
func magnets(in Input) (map[string]float64, error) {
	spec, ok := conductors[in.Magnet]
	if !ok {
		return nil, fmt.Errorf("magnet %q: %w", in.Magnet, models.ErrUnknownTechnology)
	}

	// 1. Main coils from conductor volume
	vol, _ := ConductorVolume(in.Topology, in.Volumes.OuterRadius(), in.Elongation)
	bulk, err := materials.Cost(spec.code, vol)
	if err != nil {
		return nil, err
	}
	tf := bulk * spec.premium

	// 2. Shaping and solenoid coils scale with TF; mirrors have neither
	var pf, cs float64
	if in.Topology != models.TopologyMirror {
		pf = pfToTF * tf
		cs = csToTF * tf
	}

	// 3. Cryogenics only for superconductors
	var cryo float64
	if in.Magnet.Superconducting() {
		cryo = cryoplantPerMW * in.Power.PThermal
	}

	return map[string]float64{
		CodeTFCoils:   tf,
		CodePFCoils:   pf,
		CodeCSCoils:   cs,
		CodeStructure: structureToCoil * (tf + pf + cs),
		CodeCryoplant: cryo,
		CodeCryostat:  cryostatToPlant * cryo,
	}, nil
}

// =============================================================================
// 22.03 - 22.05 HEATING, DRIVER, TARGETS
// =============================================================================

// Heating is priced per MW injected; driver per MJ delivered at the reference
// repetition rate.
const (
	heatingPerMW        = 5.0
	driverPerMJ         = 450.0
	driverRepExponent   = 0.3
	targetFactoryBase   = 100.0
	targetFactoryRepExp = 0.7
	referenceRepRateHz  = 10.0
)

func heating(in Input) (map[string]float64, error) {
	return map[string]float64{CodeHeating: heatingPerMW * in.Power.PHeating}, nil
}

// driver prices the IFE driver.
//
// FORMULA: C = 450 × E_drv × (f/10)^0.3
func driver(in Input) (map[string]float64, error) {
	scale := math.Pow(in.RepRateHz/referenceRepRateHz, driverRepExponent)
	return map[string]float64{CodeDriver: driverPerMJ * in.Power.DriverEnergyMJ * scale}, nil
}

// targetFactory prices target production.
//
// FORMULA: C = 100 × (f/10)^0.7
func targetFactory(in Input) (map[string]float64, error) {
	scale := math.Pow(in.RepRateHz/referenceRepRateHz, targetFactoryRepExp)
	return map[string]float64{CodeTargetFactory: targetFactoryBase * scale}, nil
}
