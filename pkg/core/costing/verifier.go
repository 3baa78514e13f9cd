package costing

import (
	"fmt"
	"math"
)

// additivityTolerance is the M$ gap below which a parent counts as balanced.
const additivityTolerance = 1e-9

// VerificationResult holds the status of the additivity check.
type VerificationResult struct {
	IsBalanced bool               `json:"is_balanced"`
	BalanceGap float64            `json:"balance_gap"` // largest |parent − Σchildren|
	Gaps       map[string]float64 `json:"gaps,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// Verify re-sums every parent of the tree in child order and reports any gap.
func Verify(root *Node) VerificationResult {
	res := VerificationResult{IsBalanced: true}
	if root == nil {
		res.IsBalanced = false
		res.Warnings = append(res.Warnings, "cost tree is empty")
		return res
	}
	root.Walk(func(n *Node) {
		if n.Value < 0 {
			res.IsBalanced = false
			res.Warnings = append(res.Warnings, fmt.Sprintf("Account %s is negative (%.4f)", n.Code, n.Value))
		}
		if len(n.Children) == 0 {
			return
		}
		var sum float64
		for _, c := range n.Children {
			sum += c.Value
		}
		gap := n.Value - sum
		if math.Abs(gap) > math.Abs(res.BalanceGap) {
			res.BalanceGap = gap
		}
		if math.Abs(gap) > additivityTolerance {
			res.IsBalanced = false
			if res.Gaps == nil {
				res.Gaps = map[string]float64{}
			}
			res.Gaps[n.Code] = gap
			res.Warnings = append(res.Warnings, fmt.Sprintf("Account %s out of balance by %.6f", n.Code, gap))
		}
	})
	return res
}
