// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfa

import (
	"sort"

	"blend65/internal/callgraph"
)

// buildCoalesceGroups runs Phase D (spec §4.6 Phase D): a greedy
// first-fit bin-packing approximation. Functions are considered
// largest-first; a function joins the first existing group whose
// thread context is compatible and whose members are all outside its
// transitive-caller relationship (in either direction), otherwise it
// starts a new singleton group.
func buildCoalesceGroups(frames []*Frame, graph *callgraph.Graph) []*Group {
	sorted := append([]*Frame{}, frames...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RawSize != sorted[j].RawSize {
			return sorted[i].RawSize > sorted[j].RawSize
		}
		return sorted[i].FuncName < sorted[j].FuncName
	})

	var groups []*Group
	nextID := 0
	for _, fr := range sorted {
		node := graph.Nodes[fr.FuncSymbol]
		if node == nil || node.Recursive {
			// Guard only: the driver must never call SFA when the call
			// graph has any recursive node (spec §3). A recursive
			// function found here is simply never coalesced.
			g := &Group{ID: nextID, Members: []*Frame{fr}, Size: fr.RawSize}
			nextID++
			fr.Group = g
			groups = append(groups, g)
			continue
		}

		joined := false
		for _, g := range groups {
			if compatibleContext(g.Context, node.Context) && noTransitiveOverlap(g, fr, graph) {
				g.Members = append(g.Members, fr)
				if fr.RawSize > g.Size {
					g.Size = fr.RawSize
				}
				fr.Group = g
				joined = true
				break
			}
		}
		if !joined {
			g := &Group{ID: nextID, Members: []*Frame{fr}, Size: fr.RawSize, Context: node.Context}
			nextID++
			fr.Group = g
			groups = append(groups, g)
		}
	}
	return groups
}

// compatibleContext implements Phase D condition (i): both main-only,
// both isr-only, or never both (spec §4.6 Phase D "both cannot
// coalesce with anything").
func compatibleContext(a, b callgraph.Context) bool {
	if a == callgraph.Both || b == callgraph.Both {
		return false
	}
	return a == b
}

// noTransitiveOverlap implements Phase D condition (ii): f may join G
// only if, for every current member of G, neither is in the other's
// transitive-caller set (spec §4.6 Phase D).
func noTransitiveOverlap(g *Group, fr *Frame, graph *callgraph.Graph) bool {
	fNode := graph.Nodes[fr.FuncSymbol]
	for _, m := range g.Members {
		mNode := graph.Nodes[m.FuncSymbol]
		if mNode.TransitiveCallers[fr.FuncSymbol] || fNode.TransitiveCallers[m.FuncSymbol] {
			return false
		}
	}
	return true
}
