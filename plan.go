package herald

import "fmt"

// BuildPlan turns ordered edges into one plan entry per edge, in the same
// order. The item URI is used verbatim as the page path. An edge without an
// item identifier is a programming error and panics.
func BuildPlan(edges []OrderedEdge, template string) Plan {
	plan := make(Plan, 0, len(edges))
	for i, e := range edges {
		if e.Item.ID == "" {
			panic(fmt.Sprintf("herald: edge %d (%q) has no item identifier", i, e.Item.URI))
		}
		pc := PageContext{ID: e.Item.ID}
		if e.Previous != nil {
			pc.PreviousPostID = e.Previous.ID
		}
		if e.Next != nil {
			pc.NextPostID = e.Next.ID
		}
		plan = append(plan, PlanEntry{
			Path:     e.Item.URI,
			Template: template,
			Context:  pc,
		})
	}
	return plan
}
