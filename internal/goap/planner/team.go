package planner

import (
	"hexplan.ai/internal/goap/action"
	"hexplan.ai/internal/goap/facts"
)

// AgentPlan is one agent's outcome in a team planning pass.
type AgentPlan struct {
	// Plan indexes into Visible, the agent's filtered action list.
	Plan    Plan
	Visible []int
	// GoalIndex is the accepted goal's position in the agent's goal list, or -1.
	GoalIndex int
	Goal      action.Goal
	Cost      float64
	Expanded  int
}

func (p AgentPlan) Found() bool { return p.GoalIndex >= 0 }

// Global maps the plan back to indices in the flat instance list.
func (p AgentPlan) Global() []int {
	out := make([]int, 0, len(p.Plan))
	for _, i := range p.Plan {
		out = append(out, p.Visible[i])
	}
	return out
}

type TeamResult struct {
	Agents map[string]AgentPlan
	// Final is the shared state after every accepted plan was committed.
	Final *facts.State
}

// PlanTeam plans agents strictly in order against one running state. Each
// agent sees untagged instances plus its own; the first solvable goal in its
// list wins and its effects are committed before the next agent plans. An
// agent with no solvable goal (or no goal list) gets an empty plan and leaves
// the state unchanged.
func PlanTeam(start *facts.State, actions []action.Instance, goals map[string][]action.Goal, order []string, maxNodesPerAgent int) TeamResult {
	res := TeamResult{Agents: make(map[string]AgentPlan, len(order))}
	current := start.Clone()

	for _, agent := range order {
		visible := make([]int, 0, len(actions))
		agentActions := make([]action.Instance, 0, len(actions))
		for i, a := range actions {
			if a.VisibleTo(agent) {
				visible = append(visible, i)
				agentActions = append(agentActions, a)
			}
		}

		ap := AgentPlan{Plan: Plan{}, Visible: visible, GoalIndex: -1}
		for gi, g := range goals[agent] {
			r := Search(current, agentActions, g, maxNodesPerAgent)
			ap.Expanded += r.Expanded
			if !r.Found {
				continue
			}
			ap.Plan = r.Plan
			ap.GoalIndex = gi
			ap.Goal = g
			ap.Cost = r.Cost
			for _, i := range r.Plan {
				current.ApplyEffects(agentActions[i].Effects)
			}
			break
		}
		res.Agents[agent] = ap
	}
	res.Final = current
	return res
}

// PlanForTeam is PlanTeam reduced to agent -> plan, where plan indices refer
// to each agent's visible action list.
func PlanForTeam(start *facts.State, actions []action.Instance, goals map[string][]action.Goal, order []string, maxNodesPerAgent int) map[string]Plan {
	res := PlanTeam(start, actions, goals, order, maxNodesPerAgent)
	out := make(map[string]Plan, len(res.Agents))
	for agent, ap := range res.Agents {
		out[agent] = ap.Plan
	}
	return out
}
