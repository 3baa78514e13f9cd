package main

import (
	"fmt"
	"sort"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/materials"
	"fusion_costing/pkg/core/report"
	"fusion_costing/pkg/core/scenario"
	"fusion_costing/pkg/core/sweep"
	"fusion_costing/pkg/core/validate"
)

func printFindings(title string, fs []validate.Finding) {
	if len(fs) == 0 {
		return
	}
	fmt.Printf("%s (%d):\n", title, len(fs))
	for _, f := range fs {
		fmt.Printf("  [%s] %s\n", f.Level, f.Message)
		if f.Path != "" {
			fmt.Printf("    -> %s = %v\n", f.Path, f.Actual)
		}
		if f.Expected != "" {
			fmt.Printf("    expected: %s\n", f.Expected)
		}
	}
	fmt.Println()
}

func printValidationReport(r *validate.Report) {
	printFindings("ERRORS", r.Errors)
	printFindings("WARNINGS", r.Warnings)
	printFindings("INFO", r.Info)

	if r.Valid {
		fmt.Printf("Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Printf("Result: INVALID (%s)\n", r.Summary)
	}
}

func printResult(res *scenario.Result) {
	pb := res.PowerBalance
	fmt.Printf("Scenario %s (%s)\n", res.Name, res.RunID)
	fmt.Println("===================================")
	fmt.Println()

	fmt.Println("Power Balance")
	fmt.Println("-------------")
	fmt.Printf("  Fusion:                 %s MW\n", report.Fixed(pb.PFusion, 1))
	fmt.Printf("  Gross electric:         %s MW\n", report.Fixed(pb.PElectricGross, 1))
	fmt.Printf("  Recirculating:          %s MW\n", report.Fixed(pb.PRecirculating, 1))
	fmt.Printf("  Net electric:           %s MW\n", report.Fixed(pb.PElectricNet, 1))
	fmt.Printf("  Q_eng:                  %s\n", report.Fixed(pb.QEng, 2))
	fmt.Println()

	fmt.Printf("%-10s %14s\n", "Account", "M$")
	fmt.Printf("%-10s %14s\n", "----------", "--------------")
	codes := make([]string, 0, len(res.Costs))
	for c := range res.Costs {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		fmt.Printf("%-10s %14s\n", c, report.Fixed(res.Costs[c], 1))
	}
	fmt.Printf("%-10s %14s\n", "EPC", report.Fixed(res.TotalEPC, 1))
	fmt.Printf("%-10s %14s\n", "CAPITAL", report.Fixed(res.TotalCapital, 1))
	fmt.Println()

	m := res.Financial
	fmt.Println("Financial")
	fmt.Println("---------")
	fmt.Printf("  Cost per kW:            $%s\n", report.Fixed(res.CostPerKW, 0))
	fmt.Printf("  NPV:                    %s M$\n", report.Fixed(m.NPV, 1))
	fmt.Printf("  IRR:                    %s\n", optPercent(m.IRR))
	fmt.Printf("  LCOE:                   %s\n", optValue(m.LCOE, "$/MWh"))
	fmt.Printf("  Min DSCR:               %s\n", optValue(m.MinDSCR, ""))
	if m.PaybackYears != nil {
		fmt.Printf("  Payback:                %d years\n", *m.PaybackYears)
	} else {
		fmt.Println("  Payback:                never")
	}

	if len(res.Warnings) > 0 {
		fmt.Println()
		fmt.Printf("WARNINGS (%d):\n", len(res.Warnings))
		for _, w := range res.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
}

func printSweep(res *sweep.Result) {
	fmt.Printf("Sweep %s: %d cases, %d failed, %v\n\n", res.SweepID, len(res.Outcomes), res.Failed, res.Duration)
	if base, ok := res.Outcomes[sweep.BaseKey]; ok && base.Error == "" {
		fmt.Printf("Base NPV %s M$, EPC %s M$\n\n", report.Fixed(base.NPV, 1), report.Fixed(base.TotalEPC, 1))
	}

	fmt.Printf("%-20s %8s %14s %8s %14s %14s\n", "Driver", "Low", "NPV low", "High", "NPV high", "Swing")
	fmt.Printf("%-20s %8s %14s %8s %14s %14s\n",
		"--------------------", "--------", "--------------", "--------", "--------------", "--------------")
	for _, b := range res.Tornado() {
		fmt.Printf("%-20s %7.0f%% %14s %7.0f%% %14s %14s\n",
			b.Driver, b.LowBand*100, report.Fixed(b.LowNPV, 1),
			b.HighBand*100, report.Fixed(b.HighNPV, 1), report.Fixed(b.Swing, 1))
	}

	if res.Failed > 0 {
		keys := make([]string, 0, res.Failed)
		for k, o := range res.Outcomes {
			if o.Error != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		fmt.Printf("\nFAILED (%d):\n", len(keys))
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, res.Outcomes[k].Error)
		}
	}
}

func printMaterials() {
	fmt.Printf("%-10s %-24s %10s %12s %8s %10s\n", "Code", "Name", "kg/m³", "$/kg", "Mfg x", "Max K")
	for _, m := range materials.All() {
		fmt.Printf("%-10s %-24s %10.0f %12.2f %8.2f %10.0f\n",
			m.Code, m.Name, m.Density, m.RawCostPerKg, m.ManufacturingMultiplier, m.MaxOperatingTempK)
	}
	fmt.Printf("\nBlanket types: %v\n", costing.BlanketTypes())

	restricted := costing.Applicability()
	codes := make([]string, 0, len(restricted))
	for code := range restricted {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	fmt.Println("\nTechnology-specific accounts:")
	for _, code := range codes {
		fmt.Printf("  %-8s %v\n", code, restricted[code])
	}
}

func optPercent(v *float64) string {
	if v == nil {
		return "undefined"
	}
	return report.Fixed(*v*100, 2) + "%"
}

func optValue(v *float64, unit string) string {
	if v == nil {
		return "undefined"
	}
	if unit == "" {
		return report.Fixed(*v, 2)
	}
	return report.Fixed(*v, 2) + " " + unit
}
