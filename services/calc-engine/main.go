package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"fusion_costing/pkg/core/scenario"
)

func main() {
	mode := flag.String("mode", "calculate", "Mode: check or calculate")
	dataStr := flag.String("data", "", "JSON data payload")
	file := flag.String("file", "", "Read the payload from a file instead of -data")
	flag.Parse()

	payload := []byte(*dataStr)
	if *file != "" {
		var err error
		if payload, err = os.ReadFile(*file); err != nil {
			fmt.Printf("Error reading %s: %v\n", *file, err)
			os.Exit(1)
		}
	}
	if len(payload) == 0 {
		fmt.Println("Error: No data provided")
		os.Exit(1)
	}

	var ok bool
	switch *mode {
	case "check":
		ok = runChecks(payload)
	case "calculate":
		ok = runCalculations(payload)
	default:
		fmt.Printf("Unknown mode: %s\n", *mode)
	}
	if !ok {
		os.Exit(1)
	}
}

// runChecks re-verifies the linkage of a stored result payload.
func runChecks(payload []byte) bool {
	var res scenario.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		fmt.Printf("Error unmarshaling result: %v\n", err)
		return false
	}
	report := res.Check()
	for _, c := range report.Checks {
		status := "ok"
		if !c.Passed {
			status = "FAILED"
		}
		fmt.Printf("%-24s %-6s expected %.6g actual %.6g\n", c.Name, status, c.Expected, c.Actual)
	}
	if report.AllPassed {
		fmt.Println("Success: all linkage checks passed")
		return true
	}
	fmt.Printf("Error: %d linkage checks failed\n", len(report.FailedChecks))
	return false
}

// runCalculations evaluates a scenario config payload and prints the result.
func runCalculations(payload []byte) bool {
	cfg, err := scenario.Parse(payload, scenario.FormatJSON)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	res, err := scenario.Evaluate(cfg, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return false
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling result: %v\n", err)
		return false
	}
	fmt.Println(string(out))
	return true
}
