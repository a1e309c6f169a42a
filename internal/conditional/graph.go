package conditional

import (
	"fmt"
	"sort"

	"audite/internal/model"
)

// Graph is the parent/dependent structure of one form's questions.
// It is built once per question set and never shared between requests.
type Graph struct {
	nodes    map[string]*model.Question
	seq      map[string]int      // insertion position, breaks order ties
	children map[string][]string // parent ID -> direct dependent IDs
}

// NewGraph builds the dependency graph of a question set
func NewGraph(questions []model.Question) *Graph {
	g := &Graph{
		nodes:    make(map[string]*model.Question, len(questions)),
		seq:      make(map[string]int, len(questions)),
		children: make(map[string][]string),
	}
	for _, q := range questions {
		g.Put(q)
	}
	return g
}

// Put adds q or replaces the question with the same ID, keeping the adjacency current
func (g *Graph) Put(q model.Question) {
	if old, ok := g.nodes[q.ID]; ok {
		g.unlink(old.ParentID, q.ID)
	} else {
		g.seq[q.ID] = len(g.seq)
	}

	node := q
	g.nodes[q.ID] = &node
	if node.ParentID != "" {
		g.children[node.ParentID] = append(g.children[node.ParentID], node.ID)
	}
}

func (g *Graph) unlink(parentID, childID string) {
	if parentID == "" {
		return
	}
	kids := g.children[parentID]
	for i, id := range kids {
		if id == childID {
			g.children[parentID] = append(kids[:i:i], kids[i+1:]...)
			return
		}
	}
}

// Question returns the question with the given ID
func (g *Graph) Question(id string) (*model.Question, bool) {
	q, ok := g.nodes[id]
	return q, ok
}

// Len returns the number of questions in the graph
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Children returns the direct dependents of id in display order
func (g *Graph) Children(id string) []model.Question {
	ids := g.children[id]
	out := make([]model.Question, 0, len(ids))
	for _, childID := range ids {
		out = append(out, *g.nodes[childID])
	}
	g.sortQuestions(out)
	return out
}

// Dependents returns every question that depends on id directly or
// indirectly, in display order. Cycles are walked once.
func (g *Graph) Dependents(id string) []model.Question {
	seen := map[string]bool{id: true}
	var out []model.Question

	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, childID := range g.children[current] {
			if seen[childID] {
				continue
			}
			seen[childID] = true
			out = append(out, *g.nodes[childID])
			queue = append(queue, childID)
		}
	}

	g.sortQuestions(out)
	return out
}

// DependentRefs summarizes the dependents of id for API responses
func (g *Graph) DependentRefs(id string) []model.DependentRef {
	deps := g.Dependents(id)
	refs := make([]model.DependentRef, 0, len(deps))
	for i := range deps {
		refs = append(refs, model.DependentRef{
			ID:        deps[i].ID,
			Prompt:    truncate(deps[i].Prompt, 100),
			Condition: describeCondition(deps[i].Condition),
			Active:    deps[i].Active,
		})
	}
	return refs
}

// Questions returns all questions in display order
func (g *Graph) Questions() []model.Question {
	out := make([]model.Question, 0, len(g.nodes))
	for _, q := range g.nodes {
		out = append(out, *q)
	}
	g.sortQuestions(out)
	return out
}

// cyclic walks parent references from start with a visited set local to the call.
// A revisit before reaching a root (or an unresolved parent) is a cycle.
func (g *Graph) cyclic(start string) bool {
	visited := make(map[string]bool)
	current := start
	for {
		if visited[current] {
			return true
		}
		visited[current] = true

		node, ok := g.nodes[current]
		if !ok || node.ParentID == "" {
			return false
		}
		current = node.ParentID
	}
}

func (g *Graph) sortQuestions(qs []model.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Order != qs[j].Order {
			return qs[i].Order < qs[j].Order
		}
		return g.seq[qs[i].ID] < g.seq[qs[j].ID]
	})
}

func describeCondition(c *model.Condition) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%s %s", c.Operator, c.Value)
}
