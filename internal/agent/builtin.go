package agent

import "github.com/mtzanidakis/workforce/internal/output"

// Builtin returns a fresh copy of the eight built-in agents in roster order.
func Builtin() []Agent {
	defs := []struct {
		id, name, role string
		icon           Icon
		affinity       output.Type
	}{
		{"1", "ARIA", "Strategic Planner", IconBrain, output.TypeChecklist},
		{"2", "CODA", "Code Architect", IconCode, output.TypeCode},
		{"3", "DOXA", "Content Writer", IconFileText, output.TypeDocument},
		{"4", "SEEK", "Research Analyst", IconSearch, output.TypeTable},
		{"5", "VEGA", "Marketing Strategist", IconMegaphone, output.TypeChart},
		{"6", "FLUX", "Data Analyst", IconBarChart, output.TypeChart},
		{"7", "PIXL", "Design Director", IconPalette, output.TypeImage},
		{"8", "WARD", "Security Auditor", IconShield, output.TypeChecklist},
	}

	agents := make([]Agent, 0, len(defs))
	for _, d := range defs {
		agents = append(agents, Agent{
			ID:       d.id,
			Name:     d.name,
			Role:     d.role,
			Icon:     d.icon,
			Affinity: d.affinity,
			Config:   DefaultConfig(),
			State:    State{}.Reset(),
		})
	}
	return agents
}

// AffinityFor returns the output type produced for agentID. Custom and
// unknown agents produce text.
func AffinityFor(agentID string) output.Type {
	for _, a := range Builtin() {
		if a.ID == agentID {
			return a.Affinity
		}
	}
	return output.TypeText
}

// IsBuiltin reports whether id names one of the built-in agents.
func IsBuiltin(id string) bool {
	_, ok := prompts[id]
	return ok
}
