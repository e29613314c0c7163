// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callgraph

import (
	"golang.org/x/xerrors"
)

// CheckInvariants verifies the two-way adjacency bookkeeping Build
// maintains: every Callees edge has a matching Callers edge pointing
// back, and vice versa. A violation is always a bug in Build or one of
// the mutation passes that follow it (propagateContext,
// computeTransitiveCallers), never something a malformed source
// program could trigger, so it is reported the same way package sfa
// reports its own invariant violations: an xerrors-wrapped error a
// caller is expected to treat as unrecoverable.
func (g *Graph) CheckInvariants() error {
	for id, n := range g.Nodes {
		for callee := range n.Callees {
			target, ok := g.Nodes[callee]
			if !ok {
				return xerrors.Errorf("callgraph: %s calls unknown node %d", n.Name, callee)
			}
			if !target.Callers[id] {
				return xerrors.Errorf("callgraph: %s -> %s recorded as a callee edge with no matching caller edge", n.Name, target.Name)
			}
		}
		for caller := range n.Callers {
			source, ok := g.Nodes[caller]
			if !ok {
				return xerrors.Errorf("callgraph: %s has unknown caller %d", n.Name, caller)
			}
			if !source.Callees[id] {
				return xerrors.Errorf("callgraph: %s <- %s recorded as a caller edge with no matching callee edge", n.Name, source.Name)
			}
		}
	}
	return nil
}
