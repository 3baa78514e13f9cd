package power

import (
	"fmt"
	"math"

	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/models"
)

// Fixed-point controls for sizing the literature curve when no net target is given.
const (
	fixedPointTolMW   = 1e-6
	fixedPointMaxIter = 50
)

// WarnNotConverged is attached when the literature sizing loop hits its cap.
const WarnNotConverged = "q_fixed_point_not_converged"

// subsystemLoads applies the technology load fractions to a thermal balance.
func subsystemLoads(in Inputs, r Result) Recirculating {
	rc := Recirculating{
		Pumps: pumpFraction * r.PThermal,
		Aux:   auxFraction * r.PThermal,
	}
	if in.Technology == models.TechIFE {
		rc.Driver = r.PHeating / in.DriverEfficiency
		return rc
	}
	rc.Magnets = magnetFraction[in.Magnet] * r.PThermal
	rc.Cryo = cryoFraction[in.Magnet] * r.PThermal
	rc.Heating = r.PHeating
	return rc
}

// Physics derives Q_eng from an explicit recirculating-power account.
//
// FORMULA: Q_eng = (P_gross − P_recirc) / P_recirc
func Physics(in Inputs) (Result, error) {
	// 1. Thermal chain
	r, err := thermal(in)
	if err != nil {
		return Result{}, err
	}
	r.Strategy = StrategyPhysics

	// 2. Subsystem loads
	r.Recirculating = subsystemLoads(in, r)
	r.PRecirculating = r.Recirculating.Total()

	// 3. Net power must be positive for a power plant
	r.PElectricNet = r.PElectricGross - r.PRecirculating
	if r.PElectricNet <= 0 {
		return Result{}, fmt.Errorf("net electric power %.2f MW is not positive (gross %.2f, recirculating %.2f): %w",
			r.PElectricNet, r.PElectricGross, r.PRecirculating, models.ErrConfiguration)
	}

	// 4. Gain, clamped into the technology band
	q, clamped := qmodel.Clamp(r.PElectricNet/r.PRecirculating, in.Technology)
	r.QEng = q
	if clamped {
		r.Warnings = append(r.Warnings, qmodel.WarnClamped)
	}
	return r, nil
}

// Literature takes Q_eng from the anchor curve and back-computes net power.
//
// FORMULA: P_net = (1 − 1/Q_eng) × P_gross
//
// The curve is keyed by net electric size. With no TargetNetMW the size is the
// fixed point of s → (1 − 1/Q(s))·P_gross starting from P_gross.
func Literature(in Inputs, est *qmodel.Estimator) (Result, error) {
	r, err := thermal(in)
	if err != nil {
		return Result{}, err
	}
	r.Strategy = StrategyLiterature
	gross := r.PElectricGross

	var e qmodel.Estimate
	if in.TargetNetMW > 0 {
		if e, err = est.Estimate(in.TargetNetMW, in.Technology); err != nil {
			return Result{}, err
		}
	} else {
		size := gross
		converged := false
		for i := 0; i < fixedPointMaxIter; i++ {
			if e, err = est.Estimate(size, in.Technology); err != nil {
				return Result{}, err
			}
			next := (1 - 1/e.Q) * gross
			if math.Abs(next-size) < fixedPointTolMW {
				converged = true
				break
			}
			size = next
		}
		if !converged {
			r.Warnings = append(r.Warnings, WarnNotConverged)
		}
	}
	r.Warnings = append(r.Warnings, e.Warnings...)
	finishFromGain(in, &r, e.Q)
	return r, nil
}

// Manual applies an operator-supplied Q_eng, clamped into the technology band.
func Manual(in Inputs, q float64) (Result, error) {
	if q <= 0 || math.IsNaN(q) {
		return Result{}, fmt.Errorf("manual_q_eng %.4g must be positive: %w", q, models.ErrConfiguration)
	}
	r, err := thermal(in)
	if err != nil {
		return Result{}, err
	}
	r.Strategy = StrategyManual
	qc, clamped := qmodel.Clamp(q, in.Technology)
	if clamped {
		r.Warnings = append(r.Warnings, qmodel.WarnClamped)
	}
	finishFromGain(in, &r, qc)
	return r, nil
}

// finishFromGain sets net and recirculating power from a gain and splits the
// recirculating total across subsystems in physics proportions.
func finishFromGain(in Inputs, r *Result, q float64) {
	r.QEng = q
	r.PElectricNet = (1 - 1/q) * r.PElectricGross
	r.PRecirculating = r.PElectricGross - r.PElectricNet

	shares := subsystemLoads(in, *r)
	total := shares.Total()
	if total <= 0 {
		r.Recirculating = Recirculating{Aux: r.PRecirculating}
		return
	}
	k := r.PRecirculating / total
	r.Recirculating = Recirculating{
		Magnets: shares.Magnets * k,
		Cryo:    shares.Cryo * k,
		Heating: shares.Heating * k,
		Driver:  shares.Driver * k,
		Pumps:   shares.Pumps * k,
		Aux:     shares.Aux * k,
	}
}
