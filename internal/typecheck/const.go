// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typecheck

import (
	"blend65/internal/ast"
	"blend65/internal/symbols"
	"blend65/internal/types"
)

// constEval evaluates the small subset of expressions that must be
// compile-time constants: array lengths, enum member values, and the
// `sizeof` form (spec §4.3). A `len(...)` call is not evaluated here;
// it yields "not constant". It never reports diagnostics
// itself; callers decide how to react to a failed evaluation.
type constEval struct {
	r     *Resolver
	scope symbols.ScopeID
}

func (ev *constEval) eval(e ast.Expr) (uint64, bool) {
	switch e := e.(type) {
	case *ast.IntLit:
		return e.Value, true
	case *ast.BoolLit:
		if e.Value {
			return 1, true
		}
		return 0, true
	case *ast.UnaryExpr:
		v, ok := ev.eval(e.X)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case ast.OpNeg:
			return uint64(-int64(v)), true
		case ast.OpPos:
			return v, true
		case ast.OpBitNot:
			return ^v, true
		default:
			return 0, false
		}
	case *ast.BinaryExpr:
		l, ok := ev.eval(e.Left)
		if !ok {
			return 0, false
		}
		r, ok := ev.eval(e.Right)
		if !ok {
			return 0, false
		}
		switch e.Op {
		case ast.OpAdd:
			return l + r, true
		case ast.OpSub:
			return l - r, true
		case ast.OpMul:
			return l * r, true
		case ast.OpDiv:
			if r == 0 {
				return 0, false
			}
			return l / r, true
		case ast.OpMod:
			if r == 0 {
				return 0, false
			}
			return l % r, true
		case ast.OpShl:
			return l << r, true
		case ast.OpShr:
			return l >> r, true
		case ast.OpAnd:
			return l & r, true
		case ast.OpOr:
			return l | r, true
		case ast.OpXor:
			return l ^ r, true
		default:
			return 0, false
		}
	case *ast.Ident:
		id, ok := ev.r.table.Lookup(ev.scope, e.Name)
		if !ok {
			return 0, false
		}
		sym := ev.r.table.Symbol(id)
		if sym.Kind == symbols.KindEnumMember {
			return uint64(sym.EnumValue), true
		}
		return 0, false
	case *ast.SizeofExpr:
		t := ev.r.ResolveType(ev.scope, e.Type)
		return uint64(types.Size(t)), true
	default:
		return 0, false
	}
}
