// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package il

import (
	"golang.org/x/xerrors"
)

// Validate checks an internal invariant the generator itself is
// responsible for maintaining: every label a JUMP or BRANCH_IF_ZERO
// names must have exactly one matching LABEL instruction within the
// same function (spec §4.7 "labels are locally unique per function").
// A violation here is always a generator bug, never a malformed input
// program — genIf/genWhile/etc. never emit a branch to a label
// they did not also emit — so the error is wrapped with xerrors the
// same way package sfa wraps its own invariant violations.
func (p *Program) Validate() error {
	for _, fn := range p.Functions {
		labels := map[string]int{}
		for _, i := range fn.Instrs {
			if i.Op == OpLabel {
				labels[i.Label]++
			}
		}
		for _, i := range fn.Instrs {
			switch i.Op {
			case OpJump, OpBranchIfZero:
				switch labels[i.Label] {
				case 0:
					return xerrors.Errorf("il: function %q: %s: no matching label", fn.Name, i)
				case 1:
				default:
					return xerrors.Errorf("il: function %q: label %q defined more than once", fn.Name, i.Label)
				}
			}
		}
	}
	return nil
}
