// Package costing prices a fusion plant on the CAS account taxonomy.
//
// Leaf accounts are computed independently in 2019 dollars, escalated once by
// cost_index × regional_factor, and summed bottom-up into parents in a fixed
// child order. Which leaves exist is decided by the applicability table, never
// by the calculators themselves.
package costing

import (
	"fmt"

	"fusion_costing/pkg/models"
)

// Account codes.
const (
	CodeTCC = "TCC"
	CodeEPC = "EPC"

	CodePreConstruction = "10"
	CodeDirect          = "20"
	CodeBuildings       = "21"
	CodeReactorPlant    = "22"

	CodeReactorCore = "22.01"
	CodeFirstWall   = "22.01.01"
	CodeBlanket     = "22.01.02"
	CodeShield      = "22.01.03"
	CodeDivertor    = "22.01.04"

	CodeMagnets   = "22.02"
	CodeTFCoils   = "22.02.01"
	CodePFCoils   = "22.02.02"
	CodeCSCoils   = "22.02.03"
	CodeStructure = "22.02.04"
	CodeCryoplant = "22.02.05"
	CodeCryostat  = "22.02.06"

	CodeHeating           = "22.03"
	CodeDriver            = "22.04"
	CodeTargetFactory     = "22.05"
	CodeMainHeatTransfer  = "22.06"
	CodeRadwaste          = "22.07"
	CodeRemoteMaintenance = "22.08"
	CodeReactorIC         = "22.09"

	CodeTurbine       = "23"
	CodeElectrical    = "24"
	CodeMiscPlant     = "25"
	CodeHeatRejection = "26"
	CodeFuelHandling  = "27"
	CodePlantIC       = "28"

	CodeContingency = "29"
	CodeIndirect    = "30"
	CodeOwner       = "40"
	CodeOwnerLSA    = "40.01"

	// Annualized accounts, reported outside the capital tree.
	CodeAnnualOM      = "70"
	CodeAnnualFuel    = "80"
	CodeAnnualCapital = "90"
)

// AccountDef is one row of the account catalog.
type AccountDef struct {
	Code   string            `json:"code"`
	Name   string            `json:"name"`
	Parent string            `json:"parent,omitempty"`
	Only   models.Technology `json:"only,omitempty"` // empty: all technologies
}

var preConstructionNames = []string{
	"Land and land rights",
	"Site characterization",
	"Permits and licensing",
	"Environmental studies",
	"Conceptual design",
	"Preliminary design",
}

var buildingNames = []string{
	"Site improvements",
	"Fusion heat island building",
	"Turbine building",
	"Heat exchanger building",
	"Power supply and energy storage",
	"Reactor auxiliaries",
	"Hot cell",
	"Reactor services building",
	"Service water building",
	"Fuel storage",
	"Control room",
	"Onsite AC power",
	"Administration",
	"Site services",
	"Cryogenics",
	"Security",
	"Ventilation stack",
}

// catalog lists every capital account, parents before children. Sibling order
// here is the fixed summation order.
var catalog = buildCatalog()

func buildCatalog() []AccountDef {
	defs := []AccountDef{
		{Code: CodeTCC, Name: "Total capital cost"},
		{Code: CodeEPC, Name: "Total EPC cost", Parent: CodeTCC},
		{Code: CodePreConstruction, Name: "Pre-construction costs", Parent: CodeEPC},
	}
	for i, name := range preConstructionNames {
		defs = append(defs, AccountDef{Code: fmt.Sprintf("10.%02d", i+1), Name: name, Parent: CodePreConstruction})
	}
	defs = append(defs,
		AccountDef{Code: CodeDirect, Name: "Direct capital costs", Parent: CodeEPC},
		AccountDef{Code: CodeBuildings, Name: "Structures and site facilities", Parent: CodeDirect},
	)
	for i, name := range buildingNames {
		defs = append(defs, AccountDef{Code: fmt.Sprintf("21.%02d", i+1), Name: name, Parent: CodeBuildings})
	}
	defs = append(defs,
		AccountDef{Code: CodeReactorPlant, Name: "Reactor plant equipment", Parent: CodeDirect},
		AccountDef{Code: CodeReactorCore, Name: "Reactor core", Parent: CodeReactorPlant},
		AccountDef{Code: CodeFirstWall, Name: "First wall", Parent: CodeReactorCore},
		AccountDef{Code: CodeBlanket, Name: "Blanket", Parent: CodeReactorCore},
		AccountDef{Code: CodeShield, Name: "Shield", Parent: CodeReactorCore},
		AccountDef{Code: CodeDivertor, Name: "Divertor", Parent: CodeReactorCore, Only: models.TechMFE},
		AccountDef{Code: CodeMagnets, Name: "Magnets", Parent: CodeReactorPlant, Only: models.TechMFE},
		AccountDef{Code: CodeTFCoils, Name: "Toroidal field coils", Parent: CodeMagnets},
		AccountDef{Code: CodePFCoils, Name: "Poloidal field coils", Parent: CodeMagnets},
		AccountDef{Code: CodeCSCoils, Name: "Central solenoid", Parent: CodeMagnets},
		AccountDef{Code: CodeStructure, Name: "Magnet structure", Parent: CodeMagnets},
		AccountDef{Code: CodeCryoplant, Name: "Cryoplant", Parent: CodeMagnets},
		AccountDef{Code: CodeCryostat, Name: "Cryostat", Parent: CodeMagnets},
		AccountDef{Code: CodeHeating, Name: "Heating and current drive", Parent: CodeReactorPlant, Only: models.TechMFE},
		AccountDef{Code: CodeDriver, Name: "Driver", Parent: CodeReactorPlant, Only: models.TechIFE},
		AccountDef{Code: CodeTargetFactory, Name: "Target factory", Parent: CodeReactorPlant, Only: models.TechIFE},
		AccountDef{Code: CodeMainHeatTransfer, Name: "Main heat transfer", Parent: CodeReactorPlant},
		AccountDef{Code: CodeRadwaste, Name: "Radwaste and auxiliary cooling", Parent: CodeReactorPlant},
		AccountDef{Code: CodeRemoteMaintenance, Name: "Remote maintenance", Parent: CodeReactorPlant},
		AccountDef{Code: CodeReactorIC, Name: "Reactor instrumentation and control", Parent: CodeReactorPlant},
		AccountDef{Code: CodeTurbine, Name: "Turbine plant equipment", Parent: CodeDirect},
		AccountDef{Code: CodeElectrical, Name: "Electric plant equipment", Parent: CodeDirect},
		AccountDef{Code: CodeMiscPlant, Name: "Miscellaneous plant equipment", Parent: CodeDirect},
		AccountDef{Code: CodeHeatRejection, Name: "Heat rejection", Parent: CodeDirect},
		AccountDef{Code: CodeFuelHandling, Name: "Fuel handling and storage", Parent: CodeDirect},
		AccountDef{Code: CodePlantIC, Name: "Plant instrumentation and control", Parent: CodeDirect},
		AccountDef{Code: CodeContingency, Name: "Contingency", Parent: CodeEPC},
		AccountDef{Code: CodeIndirect, Name: "Indirect service costs", Parent: CodeEPC},
		AccountDef{Code: CodeOwner, Name: "Owner's costs", Parent: CodeTCC},
		AccountDef{Code: CodeOwnerLSA, Name: "Owner's costs (LSA scaled)", Parent: CodeOwner},
	)
	return defs
}

var (
	defsByCode = map[string]AccountDef{}
	childIndex = map[string][]string{}
)

func init() {
	for _, d := range catalog {
		defsByCode[d.Code] = d
		if d.Parent != "" {
			childIndex[d.Parent] = append(childIndex[d.Parent], d.Code)
		}
	}
}

// Catalog returns a copy of the account catalog in display order.
func Catalog() []AccountDef {
	return append([]AccountDef(nil), catalog...)
}

// Lookup returns the catalog row for a code.
func Lookup(code string) (AccountDef, bool) {
	d, ok := defsByCode[code]
	return d, ok
}

// Children returns the child codes of an account in summation order.
func Children(code string) []string {
	return append([]string(nil), childIndex[code]...)
}

// IsLeaf reports whether an account has no children in the catalog.
func IsLeaf(code string) bool {
	return len(childIndex[code]) == 0
}

// Applies reports whether an account exists for a technology. A restriction on
// any ancestor applies to its whole subtree.
func Applies(code string, t models.Technology) bool {
	for code != "" {
		d, ok := defsByCode[code]
		if !ok {
			return false
		}
		if d.Only != "" && d.Only != t {
			return false
		}
		code = d.Parent
	}
	return true
}

// Applicability returns, for every restricted account, the technologies it applies to.
func Applicability() map[string][]models.Technology {
	out := map[string][]models.Technology{}
	for _, d := range catalog {
		if d.Only != "" {
			out[d.Code] = []models.Technology{d.Only}
		}
	}
	return out
}
