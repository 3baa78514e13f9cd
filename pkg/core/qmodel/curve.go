// Package qmodel estimates engineering gain (Q_eng) from plant size using
// literature anchor tables with a smooth saturation toward each technology's
// ceiling. The curve is pure; memoization lives in an injectable Cache.
package qmodel

import (
	"fmt"
	"math"

	"fusion_costing/pkg/models"
)

// =============================================================================
// BOUNDS & ANCHORS
// =============================================================================

// QMin is the floor for any reported engineering gain.
const QMin = 1.05

// MinIFEAdvantage is the minimum fractional gain of IFE over MFE at equal size,
// for sizes at or above the first anchor. Mid-range sizes carry 15-20 %.
const MinIFEAdvantage = 0.10

// Warning flags attached to estimates.
const (
	WarnUnknownTechnology = "unknown_technology_fallback"
	WarnClamped           = "q_eng_clamped"
)

// Anchor is a literature (net electric MW, Q_eng) reference point.
type Anchor struct {
	SizeMW float64 `json:"size_mw"`
	Q      float64 `json:"q"`
}

// Curve is the interpolation table plus saturation parameters for one technology.
type Curve struct {
	Technology models.Technology
	QMax       float64
	Midpoint   float64 // MW where saturation starts to act
	Steepness  float64 // 1/MW
	anchors    []Anchor
}

var curves = map[models.Technology]Curve{
	models.TechMFE: {
		Technology: models.TechMFE,
		QMax:       5.0,
		Midpoint:   600,
		Steepness:  0.002,
		anchors: []Anchor{
			{50, 1.2}, {100, 1.5}, {300, 3.0}, {500, 4.0}, {1000, 5.0}, {2000, 5.0},
		},
	},
	models.TechIFE: {
		Technology: models.TechIFE,
		QMax:       6.0,
		Midpoint:   700,
		Steepness:  0.002,
		anchors: []Anchor{
			{50, 1.4}, {100, 1.8}, {300, 3.6}, {500, 4.7}, {1000, 5.5}, {2000, 5.9},
		},
	},
}

// CurveFor returns the curve for a technology.
func CurveFor(t models.Technology) (Curve, bool) {
	c, ok := curves[t]
	return c, ok
}

// QMax returns the ceiling for a technology, falling back to MFE.
func QMax(t models.Technology) float64 {
	if c, ok := curves[t]; ok {
		return c.QMax
	}
	return curves[models.TechMFE].QMax
}

// Anchors returns a copy of the sorted anchor table.
func (c Curve) Anchors() []Anchor {
	return append([]Anchor(nil), c.anchors...)
}

// =============================================================================
// CURVE EVALUATION
// =============================================================================

// Base is the unsaturated anchor interpolation.
//
// Below the first anchor the first value is scaled by 0.5 + 0.5·s/s₀, between
// anchors it is linear, and beyond the last anchor it holds the last value.
func (c Curve) Base(size float64) float64 {
	a := c.anchors
	first, last := a[0], a[len(a)-1]
	if size <= first.SizeMW {
		return first.Q * (0.5 + 0.5*size/first.SizeMW)
	}
	if size >= last.SizeMW {
		return last.Q
	}
	for i := 0; i < len(a)-1; i++ {
		lo, hi := a[i], a[i+1]
		if size >= lo.SizeMW && size < hi.SizeMW {
			frac := (size - lo.SizeMW) / (hi.SizeMW - lo.SizeMW)
			return lo.Q + (hi.Q-lo.Q)*frac
		}
	}
	return last.Q
}

// Saturation is the blend weight toward QMax.
//
// FORMULA: w(s) = tanh²(k·(s − s_mid)/2) for s > s_mid, else 0
//
// w and dw/ds are both zero at s_mid, so the correction switches on without a
// kink, and w → 1 as s → ∞.
func (c Curve) Saturation(size float64) float64 {
	if size <= c.Midpoint {
		return 0
	}
	t := math.Tanh(c.Steepness * (size - c.Midpoint) / 2)
	return t * t
}

// Evaluate returns the clamped Q_eng for a net electric size in MW.
//
// FORMULA: Q = clamp(base + (QMax − base)·w, QMin, QMax)
func (c Curve) Evaluate(size float64) float64 {
	base := math.Min(c.Base(size), c.QMax)
	q := base + (c.QMax-base)*c.Saturation(size)
	return clamp(q, QMin, c.QMax)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Clamp bounds an externally computed gain to the technology band and reports
// whether the value moved.
func Clamp(q float64, t models.Technology) (float64, bool) {
	c := clamp(q, QMin, QMax(t))
	return c, c != q
}

// =============================================================================
// PURE ESTIMATE
// =============================================================================

// Estimate is the output of the literature model.
type Estimate struct {
	SizeMW     float64           `json:"size_mw"`
	Technology models.Technology `json:"technology"` // curve actually used
	Q          float64           `json:"q_eng"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// resolve picks the curve, falling back to MFE with a warning.
func resolve(t models.Technology) (Curve, []string) {
	if c, ok := curves[t]; ok {
		return c, nil
	}
	return curves[models.TechMFE], []string{WarnUnknownTechnology}
}

func checkSize(size float64) error {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return fmt.Errorf("plant size %.4g MW must be positive: %w", size, models.ErrConfiguration)
	}
	return nil
}

// EstimateQ evaluates the curve without memoization.
func EstimateQ(size float64, t models.Technology) (Estimate, error) {
	if err := checkSize(size); err != nil {
		return Estimate{}, err
	}
	c, warnings := resolve(t)
	return Estimate{SizeMW: size, Technology: c.Technology, Q: c.Evaluate(size), Warnings: warnings}, nil
}
