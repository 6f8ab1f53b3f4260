package policy

import "fmt"

// Explain renders a one-line, human-readable account of d for scenario.
func Explain(d Decision, scenario string) string {
	switch d.Action {
	case ActionRefuse:
		return fmt.Sprintf("[%s] %s: dynamics exceed recoverable limits (%s). Halting instead of masking the failure.",
			d.Action, scenario, d.Reason)
	case ActionConstrain:
		return fmt.Sprintf("[%s] %s: high strain detected (%s). Tighten bounds and reduce the action space.",
			d.Action, scenario, d.Reason)
	case ActionStabilize:
		return fmt.Sprintf("[%s] %s: trajectory trending unsafe (%s). Apply stabilization and keep monitoring.",
			d.Action, scenario, d.Reason)
	case ActionPropose:
		return fmt.Sprintf("[%s] %s: stable but trending toward risk (%s). Suggest safer alternatives.",
			d.Action, scenario, d.Reason)
	}
	return fmt.Sprintf("[%s] %s: within safe, recoverable bounds.", ActionContinue, scenario)
}
