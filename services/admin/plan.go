package admin

import (
	"fmt"
	"slices"

	"seatrail/services/marketplace"
)

// Edge is a foreign key followed while discovering rows to remove.
type Edge struct {
	Column string `json:"column"`
	Parent string `json:"parent"`
}

// Step names the rows of one table that depend on rows already discovered.
type Step struct {
	Table string `json:"table"`
	Edges []Edge `json:"edges"`
}

// Plan is the order in which a removal discovers and deletes rows reachable from Root.
type Plan struct {
	Root string `json:"root"`
	// Discover lists every dependent table after all of its parents.
	Discover []Step `json:"discover"`
	// Delete lists every table, root included, after all of its children.
	Delete []string `json:"delete"`
}

// BuildPlan computes a removal plan for root over refs. Tables not reachable from
// root are ignored. A cycle among reachable tables is an error.
func BuildPlan(root string, refs []marketplace.Reference) (Plan, error) {
	reach := map[string]bool{root: true}
	for changed := true; changed; {
		changed = false
		for _, ref := range refs {
			if reach[ref.Parent] && !reach[ref.Table] {
				reach[ref.Table] = true
				changed = true
			}
		}
	}

	edges := map[string][]Edge{}
	indegree := map[string]int{}
	children := map[string][]string{}
	for table := range reach {
		indegree[table] = 0
	}
	for _, ref := range refs {
		if !reach[ref.Table] || !reach[ref.Parent] {
			continue
		}
		edges[ref.Table] = append(edges[ref.Table], Edge{Column: ref.Column, Parent: ref.Parent})
		if !slices.Contains(children[ref.Parent], ref.Table) {
			children[ref.Parent] = append(children[ref.Parent], ref.Table)
			indegree[ref.Table]++
		}
	}

	var ready []string
	for table, n := range indegree {
		if n == 0 {
			ready = append(ready, table)
		}
	}

	var order []string
	for len(ready) > 0 {
		slices.Sort(ready)
		table := ready[0]
		ready = ready[1:]
		order = append(order, table)

		next := slices.Clone(children[table])
		slices.Sort(next)
		for _, child := range next {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(order) != len(reach) {
		var stuck []string
		for table, n := range indegree {
			if n > 0 {
				stuck = append(stuck, table)
			}
		}
		slices.Sort(stuck)
		return Plan{}, fmt.Errorf("reference graph has a cycle through %v", stuck)
	}

	plan := Plan{Root: root}
	for _, table := range order[1:] {
		plan.Discover = append(plan.Discover, Step{Table: table, Edges: edges[table]})
	}
	plan.Delete = slices.Clone(order)
	slices.Reverse(plan.Delete)
	return plan, nil
}
