// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package preamble

import (
	"strings"

	"blend65/internal/ast"
	"blend65/internal/diag"
)

// ModuleGraph records, per module, the set of other modules its units
// import from (spec §6 "Module resolution" / "Cycles among modules are
// detected by a topological walk before semantic analysis and are
// fatal").
type ModuleGraph struct {
	edges map[string]map[string]bool
}

// BuildModuleGraph walks prog's units and records one edge per import,
// from the importing unit's own module (looked up in unitModule, the
// same map symbols.Builder.UnitModule produces) to the module path the
// import names.
func BuildModuleGraph(prog *ast.Program, unitModule map[*ast.Unit]string) *ModuleGraph {
	g := &ModuleGraph{edges: map[string]map[string]bool{}}
	for _, u := range prog.Units {
		from := unitModule[u]
		if _, ok := g.edges[from]; !ok {
			g.edges[from] = map[string]bool{}
		}
		for _, imp := range u.Imports {
			to := strings.Join(imp.FromModule, ".")
			g.edges[from][to] = true
		}
	}
	return g
}

// CheckCycles performs the topological walk spec §6 requires: a DFS
// with an explicit recursion stack, reporting ImportCycle for the
// first edge that closes a cycle back to a module still on the stack.
// It reports at most one diagnostic per distinct cycle root and
// returns whether any cycle was found.
func (g *ModuleGraph) CheckCycles(bag *diag.Bag) bool {
	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}
	found := false

	var path []string
	var visit func(mod string)
	visit = func(mod string) {
		switch state[mod] {
		case visiting:
			found = true
			cycle := append(append([]string{}, path...), mod)
			bag.Errorf(diag.Span{}, diag.CodeImportCycle,
				"import cycle detected: %s", strings.Join(cycle, " -> "))
			return
		case done:
			return
		}
		state[mod] = visiting
		path = append(path, mod)
		for _, to := range sortedModuleNames(g.edges[mod]) {
			visit(to)
		}
		path = path[:len(path)-1]
		state[mod] = done
	}

	for _, mod := range sortedModuleNames(moduleSet(g.edges)) {
		if state[mod] == unvisited {
			visit(mod)
		}
	}
	return found
}

// moduleSet flattens edges' keys into a boolean set suitable for
// sortedModuleNames, so CheckCycles visits modules in a deterministic
// order (diagnostic order must be stable): modules are visited in
// sorted name order, not in insertion order.
func moduleSet(edges map[string]map[string]bool) map[string]bool {
	out := make(map[string]bool, len(edges))
	for k := range edges {
		out[k] = true
	}
	return out
}
