package costing

import (
	"fmt"
	"math"

	"fusion_costing/pkg/core/geometry"
	"fusion_costing/pkg/core/power"
	"fusion_costing/pkg/models"
)

// MaterialChoice names the materials of the reactor core. Values go through
// the material alias table, so "tungsten" and "W" are equivalent.
type MaterialChoice struct {
	FirstWallArmor string `json:"first_wall_armor" yaml:"first_wall_armor"`
	Structure      string `json:"structure_material" yaml:"structure_material"`
	BlanketType    string `json:"blanket_type" yaml:"blanket_type"`
	ShieldMaterial string `json:"shield_material" yaml:"shield_material"`
}

// Input is everything the aggregator prices from. Power and Volumes are the
// outputs of the power balance and geometry engines.
type Input struct {
	Technology        models.Technology
	Topology          models.Topology
	Fuel              models.FuelType
	Magnet            models.MagnetTechnology
	Power             power.Result
	Volumes           geometry.Volumes
	Elongation        float64
	Materials         MaterialChoice
	RepRateHz         float64
	NOAK              bool
	LSALevel          int
	ConstructionYears float64
	CostIndex         float64 // 2019 → current dollars
	RegionalFactor    float64
	Annual            AnnualInputs
}

// DefaultCostIndex escalates the 2019 factor basis to current dollars.
const DefaultCostIndex = 1.5

// WithDefaults fills unset fields.
func (in Input) WithDefaults() Input {
	if in.Topology == "" {
		in.Topology = models.DefaultTopology(in.Technology)
	}
	if in.Fuel == "" {
		in.Fuel = models.FuelDT
	}
	if in.Magnet == "" {
		in.Magnet = models.MagnetHTS
	}
	if in.Materials.FirstWallArmor == "" {
		in.Materials.FirstWallArmor = "W"
	}
	if in.Materials.Structure == "" {
		in.Materials.Structure = "FS"
	}
	if in.Materials.BlanketType == "" {
		in.Materials.BlanketType = "PbLi"
	}
	if in.Materials.ShieldMaterial == "" {
		in.Materials.ShieldMaterial = "BFS"
	}
	if in.RepRateHz == 0 {
		in.RepRateHz = 10
	}
	if in.LSALevel == 0 {
		in.LSALevel = 2
	}
	if in.ConstructionYears == 0 {
		in.ConstructionYears = 6
	}
	if in.CostIndex == 0 {
		in.CostIndex = DefaultCostIndex
	}
	if in.RegionalFactor == 0 {
		in.RegionalFactor = 1
	}
	in.Annual = in.Annual.WithDefaults()
	return in
}

// Validate checks the input before any account is priced.
func (in Input) Validate() error {
	if in.Technology != models.TechMFE && in.Technology != models.TechIFE {
		return fmt.Errorf("technology %q: %w", in.Technology, models.ErrUnknownTechnology)
	}
	if len(in.Volumes.Layers) == 0 {
		return fmt.Errorf("no radial build volumes: %w", models.ErrInvalidGeometry)
	}
	switch {
	case in.Power.PThermal <= 0:
		return fmt.Errorf("thermal power %.4g MW must be positive: %w", in.Power.PThermal, models.ErrConfiguration)
	case in.Power.PElectricNet <= 0:
		return fmt.Errorf("net electric power %.4g MW must be positive: %w", in.Power.PElectricNet, models.ErrConfiguration)
	case in.CostIndex <= 0:
		return fmt.Errorf("cost_index %.4g must be positive: %w", in.CostIndex, models.ErrConfiguration)
	case in.RegionalFactor <= 0:
		return fmt.Errorf("regional_factor %.4g must be positive: %w", in.RegionalFactor, models.ErrConfiguration)
	case in.ConstructionYears < 0:
		return fmt.Errorf("construction_years %.4g negative: %w", in.ConstructionYears, models.ErrConfiguration)
	case in.RepRateHz <= 0:
		return fmt.Errorf("rep_rate_hz %.4g must be positive: %w", in.RepRateHz, models.ErrConfiguration)
	}
	if _, ok := lsaFactors[in.LSALevel]; !ok {
		return fmt.Errorf("lsa_level %d outside 1-4: %w", in.LSALevel, models.ErrConfiguration)
	}
	return in.Annual.Validate()
}

// =============================================================================
// DERIVED ACCOUNTS
// =============================================================================

var lsaFactors = map[int]float64{1: 0.07, 2: 0.10, 3: 0.14, 4: 0.18}

// ContingencyRate is 10 % for an nth-of-a-kind plant and 20 % for a first.
func ContingencyRate(noak bool) float64 {
	if noak {
		return 0.10
	}
	return 0.20
}

// IndirectCost is the construction services account in M$ before escalation.
//
// FORMULA: C_30 = (P_net/150)^−0.5 × P_net × 0.22 × years
func IndirectCost(netMW, constructionYears float64) float64 {
	return math.Pow(netMW/150, -0.5) * netMW * 0.22 * constructionYears
}

// =============================================================================
// TREE ASSEMBLY
// =============================================================================

// Node is one account in the priced tree. Values are M$.
type Node struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Children []*Node `json:"children,omitempty"`
}

// Find returns the node for code in this subtree.
func (n *Node) Find(code string) *Node {
	if n == nil {
		return nil
	}
	if n.Code == code {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(code); f != nil {
			return f
		}
	}
	return nil
}

// Walk visits the subtree depth-first, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Breakdown is the priced account tree plus headline metrics.
type Breakdown struct {
	Technology   models.Technology  `json:"technology"`
	Tree         *Node              `json:"cost_tree"`
	Costs        map[string]float64 `json:"costs"`
	TotalEPC     float64            `json:"total_epc_cost"`
	TotalCapital float64            `json:"total_capital_cost"`
	CostPerKW    float64            `json:"cost_per_kw"` // $/kW net
	EPCPerKW     float64            `json:"epc_per_kw"`  // $/kW net
	Escalation   float64            `json:"escalation"`  // cost_index × regional_factor
	Annual       AnnualCosts        `json:"annual_costs"`
}

// Get returns an account value, false when the account does not apply.
func (b Breakdown) Get(code string) (float64, bool) {
	v, ok := b.Costs[code]
	return v, ok
}

type calculator struct {
	account string
	fn      func(Input) (map[string]float64, error)
}

// calculators produce raw 2019 M$ leaf values. Each runs only when its
// account applies to the technology.
var calculators = []calculator{
	{CodePreConstruction, preConstruction},
	{CodeBuildings, buildings},
	{CodeReactorCore, reactorCore},
	{CodeMagnets, magnets},
	{CodeHeating, heating},
	{CodeDriver, driver},
	{CodeTargetFactory, targetFactory},
	{CodeDirect, balanceOfPlant},
}

func newNode(code string, value float64) *Node {
	d := defsByCode[code]
	return &Node{Code: code, Name: d.Name, Value: value}
}

// parentOf sums children in the order given.
func parentOf(code string, children ...*Node) *Node {
	n := newNode(code, 0)
	for _, c := range children {
		n.Value += c.Value
		n.Children = append(n.Children, c)
	}
	return n
}

// assemble builds the subtree under code from raw leaf values, skipping
// accounts that do not apply.
func assemble(code string, tech models.Technology, raw map[string]float64, scale float64) (*Node, error) {
	if IsLeaf(code) {
		v, ok := raw[code]
		if !ok {
			return nil, fmt.Errorf("account %s has no calculator: %w", code, models.ErrConfiguration)
		}
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("account %s = %.4g: %w", code, v, models.ErrNegativeCost)
		}
		return newNode(code, v*scale), nil
	}
	var kids []*Node
	for _, c := range childIndex[code] {
		if !Applies(c, tech) {
			continue
		}
		n, err := assemble(c, tech, raw, scale)
		if err != nil {
			return nil, err
		}
		kids = append(kids, n)
	}
	return parentOf(code, kids...), nil
}

// Compute prices the plant.
//
// FORMULA: TCC = EPC + 40, EPC = 10 + 20 + 29 + 30
func Compute(in Input) (Breakdown, error) {
	in = in.WithDefaults()
	if err := in.Validate(); err != nil {
		return Breakdown{}, err
	}

	// 1. Raw leaves, checked against the applicability table
	raw := map[string]float64{}
	for _, c := range calculators {
		if !Applies(c.account, in.Technology) {
			continue
		}
		vals, err := c.fn(in)
		if err != nil {
			return Breakdown{}, fmt.Errorf("account %s: %w", c.account, err)
		}
		for code, v := range vals {
			if !Applies(code, in.Technology) {
				return Breakdown{}, fmt.Errorf("account %s does not apply to %s: %w", code, in.Technology, models.ErrConfiguration)
			}
			raw[code] = v
		}
	}

	// 2. Escalated direct subtrees. Every EPC account carries the same scale.
	scale := in.CostIndex * in.RegionalFactor
	pre, err := assemble(CodePreConstruction, in.Technology, raw, scale)
	if err != nil {
		return Breakdown{}, err
	}
	direct, err := assemble(CodeDirect, in.Technology, raw, scale)
	if err != nil {
		return Breakdown{}, err
	}

	// 3. Derived accounts
	netMW := in.Power.PElectricNet
	contingency := newNode(CodeContingency, ContingencyRate(in.NOAK)*(pre.Value+direct.Value))
	indirect := newNode(CodeIndirect, IndirectCost(netMW, in.ConstructionYears)*scale)
	owner := parentOf(CodeOwner, newNode(CodeOwnerLSA, lsaFactors[in.LSALevel]*(direct.Value+contingency.Value)))

	// 4. Totals
	epc := parentOf(CodeEPC, pre, direct, contingency, indirect)
	tcc := parentOf(CodeTCC, epc, owner)

	b := Breakdown{
		Technology:   in.Technology,
		Tree:         tcc,
		Costs:        map[string]float64{},
		TotalEPC:     epc.Value,
		TotalCapital: tcc.Value,
		CostPerKW:    tcc.Value * 1000 / netMW,
		EPCPerKW:     epc.Value * 1000 / netMW,
		Escalation:   scale,
	}
	tcc.Walk(func(n *Node) { b.Costs[n.Code] = n.Value })

	b.Annual, err = Annualize(in.Annual, tcc.Value, netMW, in.Power.PFusion)
	if err != nil {
		return Breakdown{}, err
	}
	return b, nil
}
