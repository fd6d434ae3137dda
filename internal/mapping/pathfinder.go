package mapping

import (
	"fmt"
	"strings"

	"zorkagent/internal/store"
)

// FindPath runs BFS over the known map and returns the direction
// sequence from one location to another.
//
//   - from == to returns an empty, non-nil slice: "you are already
//     there" is a successful answer.
//   - An unknown or unreachable destination returns nil.
//   - Blocked edges never participate.
func FindPath(transitions []store.Transition, from, to string) []string {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return []string{}
	}

	adj := map[string][]store.Transition{}
	for _, t := range transitions {
		if t.To == store.BlockedMarker {
			continue
		}
		adj[t.From] = append(adj[t.From], t)
	}

	visited := map[string]bool{from: true}
	parent := map[string]parentStep{}
	queue := []string{from}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, t := range adj[current] {
			if visited[t.To] {
				continue
			}
			visited[t.To] = true
			parent[t.To] = parentStep{direction: t.Direction, prev: current}
			if t.To == to {
				return reconstruct(parent, from, to)
			}
			queue = append(queue, t.To)
		}
	}
	return nil
}

type parentStep struct {
	direction string
	prev      string
}

// reconstruct walks parent links backwards from to, then reverses.
func reconstruct(parent map[string]parentStep, from, to string) []string {
	var reversed []string
	node := to
	for node != from {
		s := parent[node]
		reversed = append(reversed, s.direction)
		node = s.prev
	}
	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// FormatPath renders a path in full words: "EAST, NORTH". A nil path
// renders the standard cannot-route message; an empty path renders "".
func FormatPath(path []string) string {
	if path == nil {
		return "cannot determine how to get there"
	}
	return strings.Join(path, ", ")
}

// AbbreviatePath renders a path in short form: "E, N".
func AbbreviatePath(path []string) string {
	if path == nil {
		return "cannot determine how to get there"
	}
	short := make([]string, len(path))
	for i, dir := range path {
		short[i] = Abbreviate(dir)
	}
	return strings.Join(short, ", ")
}

// PathSummary renders both forms for prompt context. Unlike the bare
// renderers it spells out the zero-length case, which reads better in
// a prompt than an empty string.
func PathSummary(path []string) string {
	if path == nil {
		return "cannot determine how to get there"
	}
	if len(path) == 0 {
		return "you are already there"
	}
	return fmt.Sprintf("%s (%s)", FormatPath(path), AbbreviatePath(path))
}
