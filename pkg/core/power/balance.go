// Package power computes plant power flows and engineering gain.
//
// Two strategies are kept side by side and chosen explicitly: a physics-derived
// recirculating-power account and the literature Q curve from qmodel. They can
// disagree by up to ~20 % for the same plant.
package power

import (
	"fmt"
	"math"

	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/models"
)

// Strategy selects how Q_eng is obtained.
type Strategy string

const (
	StrategyPhysics    Strategy = "physics"
	StrategyLiterature Strategy = "literature"
	StrategyManual     Strategy = "manual"
)

// ParseStrategy resolves the power_strategy option; empty means physics.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyPhysics:
		return StrategyPhysics, nil
	case StrategyLiterature, StrategyManual:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("power_strategy %q: %w", s, models.ErrConfiguration)
}

// FuelFractions splits fusion power between charged products and neutrons.
type FuelFractions struct {
	Charged float64 `json:"charged"`
	Neutron float64 `json:"neutron"`
}

var fuelFractions = map[models.FuelType]FuelFractions{
	models.FuelDT:   {Charged: 3.52 / 17.58, Neutron: 14.06 / 17.58},
	models.FuelDD:   {Charged: 0.5, Neutron: 0.5},
	models.FuelDHe3: {Charged: 0.8, Neutron: 0.2},
	models.FuelPB11: {Charged: 1.0, Neutron: 0.0},
}

// Fractions returns the energy split for a fuel.
func Fractions(f models.FuelType) (FuelFractions, error) {
	fr, ok := fuelFractions[f]
	if !ok {
		return FuelFractions{}, fmt.Errorf("fuel %q: %w", f, models.ErrUnknownTechnology)
	}
	return fr, nil
}

// Subsystem load fractions of thermal power.
var (
	magnetFraction = map[models.MagnetTechnology]float64{
		models.MagnetHTS:    0.002,
		models.MagnetLTS:    0.003,
		models.MagnetCopper: 0.08,
	}
	cryoFraction = map[models.MagnetTechnology]float64{
		models.MagnetHTS:    0.010,
		models.MagnetLTS:    0.015,
		models.MagnetCopper: 0,
	}
)

const (
	pumpFraction = 0.010
	auxFraction  = 0.025
)

// Inputs are the plant parameters the balance needs.
type Inputs struct {
	Technology            models.Technology       `json:"technology"`
	Fuel                  models.FuelType         `json:"fuel"`
	Magnet                models.MagnetTechnology `json:"magnet"`
	FusionPowerMW         float64                 `json:"fusion_power_mw"`
	QPlasma               float64                 `json:"q_plasma"`               // MFE
	NeutronMultiplication float64                 `json:"neutron_multiplication"` // blanket energy multiplication
	ThermalEfficiency     float64                 `json:"thermal_efficiency"`
	RepRateHz             float64                 `json:"rep_rate_hz"`       // IFE
	TargetGain            float64                 `json:"target_gain"`       // IFE
	DriverEfficiency      float64                 `json:"driver_efficiency"` // IFE wall-plug
	TargetNetMW           float64                 `json:"target_net_mw,omitempty"`
	ManualQEng            float64                 `json:"manual_q_eng,omitempty"`
}

// WithDefaults fills unset parameters.
func (in Inputs) WithDefaults() Inputs {
	if in.Fuel == "" {
		in.Fuel = models.FuelDT
	}
	if in.Magnet == "" {
		in.Magnet = models.MagnetHTS
	}
	if in.QPlasma == 0 {
		in.QPlasma = 20
	}
	if in.NeutronMultiplication == 0 {
		in.NeutronMultiplication = 1.15
	}
	if in.ThermalEfficiency == 0 {
		in.ThermalEfficiency = 0.40
	}
	if in.RepRateHz == 0 {
		in.RepRateHz = 10
	}
	if in.TargetGain == 0 {
		in.TargetGain = 100
	}
	if in.DriverEfficiency == 0 {
		in.DriverEfficiency = 0.20
	}
	return in
}

// Validate checks ranges; it assumes defaults were applied.
func (in Inputs) Validate() error {
	switch {
	case in.FusionPowerMW <= 0 || math.IsNaN(in.FusionPowerMW):
		return fmt.Errorf("fusion_power_mw %.4g must be positive: %w", in.FusionPowerMW, models.ErrConfiguration)
	case in.ThermalEfficiency <= 0 || in.ThermalEfficiency > 1:
		return fmt.Errorf("thermal_efficiency %.4g outside (0,1]: %w", in.ThermalEfficiency, models.ErrConfiguration)
	case in.NeutronMultiplication < 1:
		return fmt.Errorf("neutron_multiplication %.4g below 1: %w", in.NeutronMultiplication, models.ErrConfiguration)
	case in.TargetNetMW < 0:
		return fmt.Errorf("target_net_mw %.4g negative: %w", in.TargetNetMW, models.ErrConfiguration)
	}
	if in.Technology == models.TechIFE {
		switch {
		case in.RepRateHz <= 0:
			return fmt.Errorf("rep_rate_hz %.4g must be positive: %w", in.RepRateHz, models.ErrConfiguration)
		case in.TargetGain <= 0:
			return fmt.Errorf("target_gain %.4g must be positive: %w", in.TargetGain, models.ErrConfiguration)
		case in.DriverEfficiency <= 0 || in.DriverEfficiency > 1:
			return fmt.Errorf("driver_efficiency %.4g outside (0,1]: %w", in.DriverEfficiency, models.ErrConfiguration)
		}
	} else if in.QPlasma <= 0 {
		return fmt.Errorf("q_plasma %.4g must be positive: %w", in.QPlasma, models.ErrConfiguration)
	}
	if _, err := Fractions(in.Fuel); err != nil {
		return err
	}
	if in.Technology == models.TechMFE {
		if _, ok := magnetFraction[in.Magnet]; !ok {
			return fmt.Errorf("magnet %q: %w", in.Magnet, models.ErrUnknownTechnology)
		}
	}
	return nil
}

// Recirculating breaks down internal loads in MW.
type Recirculating struct {
	Magnets float64 `json:"magnets"`
	Cryo    float64 `json:"cryo"`
	Heating float64 `json:"heating"`
	Driver  float64 `json:"driver"`
	Pumps   float64 `json:"pumps"`
	Aux     float64 `json:"aux"`
}

// Total sums the subsystem loads.
func (r Recirculating) Total() float64 {
	return r.Magnets + r.Cryo + r.Heating + r.Driver + r.Pumps + r.Aux
}

// Result is the power balance of one plant. All powers in MW.
type Result struct {
	Strategy          Strategy          `json:"strategy"`
	Technology        models.Technology `json:"technology"`
	PFusion           float64           `json:"p_fusion"`
	PNeutron          float64           `json:"p_neutron"`
	PCharged          float64           `json:"p_charged"`
	PHeating          float64           `json:"p_heating"`
	PThermal          float64           `json:"p_thermal"`
	PElectricGross    float64           `json:"p_electric_gross"`
	PRecirculating    float64           `json:"p_recirculating"`
	PElectricNet      float64           `json:"p_electric_net"`
	QPlasma           float64           `json:"q_plasma"`
	QEng              float64           `json:"q_eng"`
	ThermalEfficiency float64           `json:"thermal_efficiency"`
	DriverEnergyMJ    float64           `json:"driver_energy_mj,omitempty"`
	Recirculating     Recirculating     `json:"recirculating"`
	Warnings          []string          `json:"warnings,omitempty"`
}

// =============================================================================
// THERMAL CHAIN
// =============================================================================

// thermal fills fusion, neutron, charged, heating, thermal and gross electric power.
func thermal(in Inputs) (Result, error) {
	fr, err := Fractions(in.Fuel)
	if err != nil {
		return Result{}, err
	}
	r := Result{
		Technology:        in.Technology,
		PFusion:           in.FusionPowerMW,
		PNeutron:          in.FusionPowerMW * fr.Neutron,
		PCharged:          in.FusionPowerMW * fr.Charged,
		ThermalEfficiency: in.ThermalEfficiency,
	}

	switch in.Technology {
	case models.TechMFE:
		// 1. External heating absorbed by the plasma shows up as heat
		r.QPlasma = in.QPlasma
		r.PHeating = in.FusionPowerMW / in.QPlasma
		r.PThermal = r.PNeutron*in.NeutronMultiplication + r.PCharged + r.PHeating
	case models.TechIFE:
		// 1. Driver energy per shot from target yield and gain
		yieldMJ := in.FusionPowerMW / in.RepRateHz
		r.DriverEnergyMJ = yieldMJ / in.TargetGain
		r.PHeating = r.DriverEnergyMJ * in.RepRateHz
		r.QPlasma = in.TargetGain
		r.PThermal = r.PNeutron*in.NeutronMultiplication + r.PCharged
	default:
		return Result{}, fmt.Errorf("technology %q: %w", in.Technology, models.ErrUnknownTechnology)
	}

	// 2. Gross electric
	r.PElectricGross = r.PThermal * in.ThermalEfficiency
	return r, nil
}

// Compute runs the selected strategy. est may be nil for physics and manual.
func Compute(in Inputs, strategy Strategy, est *qmodel.Estimator) (Result, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return Result{}, err
	}
	switch strategy {
	case StrategyPhysics:
		return Physics(in)
	case StrategyLiterature:
		return Literature(in, est)
	case StrategyManual:
		return Manual(in, in.ManualQEng)
	}
	return Result{}, fmt.Errorf("power_strategy %q: %w", strategy, models.ErrConfiguration)
}
