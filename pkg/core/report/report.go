// Package report renders a scenario result as a Markdown summary.
package report

import (
	"fmt"
	"sort"
	"strings"

	"fusion_costing/pkg/core/scenario"
	"fusion_costing/pkg/core/utils"
	"fusion_costing/pkg/models"

	"github.com/shopspring/decimal"
)

// Sections are the headings every summary carries, in order.
var Sections = []string{"Plant", "Power Balance", "Costs", "Financial", "Checks"}

// Round returns v rounded half away from zero to places, as a decimal.
func Round(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}

// Fixed formats v with exactly places decimals.
func Fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func optFixed(v *float64, places int32, suffix string) string {
	if v == nil {
		return "undefined"
	}
	return Fixed(*v, places) + suffix
}

func percent(v *float64) string {
	if v == nil {
		return "undefined"
	}
	return decimal.NewFromFloat(*v).Mul(decimal.NewFromInt(100)).StringFixed(2) + " %"
}

// Markdown renders the summary of res.
func Markdown(res *scenario.Result) string {
	var b strings.Builder
	cfg := res.Config

	name := res.Name
	if name == "" {
		name = "unnamed"
	}
	fmt.Fprintf(&b, "# Scenario %s\n\n", name)
	fmt.Fprintf(&b, "Run `%s`, %s\n\n", res.RunID, res.CreatedAt.Format("2006-01-02 15:04 MST"))

	// 1. Plant
	b.WriteString("## Plant\n\n")
	b.WriteString("| Parameter | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Reactor | %s / %s |\n", cfg.ReactorType, cfg.Topology)
	fmt.Fprintf(&b, "| Fuel | %s |\n", cfg.FuelType)
	fmt.Fprintf(&b, "| Magnets | %s |\n", cfg.MagnetTechnology)
	fmt.Fprintf(&b, "| Fusion power | %s MW |\n", Fixed(cfg.FusionPowerMW, 1))
	fmt.Fprintf(&b, "| Region | %s |\n", res.Region)
	for _, l := range res.Volumes.Layers {
		fmt.Fprintf(&b, "| %s volume | %s m³ |\n", l.Name, Fixed(l.Volume, 1))
	}
	b.WriteString("\n")

	// 2. Power balance
	pb := res.PowerBalance
	b.WriteString("## Power Balance\n\n")
	b.WriteString("| Quantity | MW |\n|---|---|\n")
	fmt.Fprintf(&b, "| Fusion | %s |\n", Fixed(pb.PFusion, 1))
	fmt.Fprintf(&b, "| Thermal | %s |\n", Fixed(pb.PThermal, 1))
	fmt.Fprintf(&b, "| Gross electric | %s |\n", Fixed(pb.PElectricGross, 1))
	fmt.Fprintf(&b, "| Recirculating | %s |\n", Fixed(pb.PRecirculating, 1))
	fmt.Fprintf(&b, "| Net electric | %s |\n", Fixed(pb.PElectricNet, 1))
	fmt.Fprintf(&b, "\nQ_eng %s (%s strategy)\n\n", Fixed(pb.QEng, 2), pb.Strategy)

	// 3. Costs
	b.WriteString("## Costs\n\n")
	b.WriteString("| Account | M$ |\n|---|---|\n")
	codes := make([]string, 0, len(res.Costs))
	for code := range res.Costs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(&b, "| %s | %s |\n", code, Fixed(res.Costs[code], 1))
	}
	fmt.Fprintf(&b, "| **Total EPC** | **%s** |\n", Fixed(res.TotalEPC, 1))
	fmt.Fprintf(&b, "| **Total capital** | **%s** |\n", Fixed(res.TotalCapital, 1))
	fmt.Fprintf(&b, "\nEPC %s $/kW, capital %s $/kW\n\n", Fixed(res.EPCPerKW, 0), Fixed(res.CostPerKW, 0))

	// 4. Financial
	m := res.Financial
	b.WriteString("## Financial\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Discount rate | %s |\n", percent(&m.DiscountRate))
	fmt.Fprintf(&b, "| NPV | %s M$ |\n", Fixed(m.NPV, 1))
	fmt.Fprintf(&b, "| IRR | %s |\n", percent(m.IRR))
	fmt.Fprintf(&b, "| LCOE | %s |\n", optFixed(m.LCOE, 2, " $/MWh"))
	if m.PaybackYears != nil {
		fmt.Fprintf(&b, "| Payback | %d years |\n", *m.PaybackYears)
	} else {
		b.WriteString("| Payback | never |\n")
	}
	fmt.Fprintf(&b, "| Min DSCR | %s |\n", optFixed(m.MinDSCR, 2, ""))
	b.WriteString("\n")

	// 5. Checks
	b.WriteString("## Checks\n\n")
	for _, c := range res.Linkage.Checks {
		mark := "pass"
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, mark)
	}
	if len(res.Warnings) > 0 {
		b.WriteString("\n### Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// Validate checks that md is well-formed Markdown carrying every section.
func Validate(md string) error {
	if !utils.ValidateMarkdown(md) {
		return fmt.Errorf("report is empty: %w", models.ErrConfiguration)
	}
	have := map[string]bool{}
	for _, h := range utils.MarkdownHeadings(md) {
		have[h] = true
	}
	var missing []string
	for _, s := range Sections {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("report missing sections %s: %w", strings.Join(missing, ", "), models.ErrConfiguration)
	}
	return nil
}
