// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package il

import (
	"blend65/internal/ast"
	"blend65/internal/sfa"
)

// isSimpleOperand mirrors sfa's rule for which binary-expression right
// operands need no temporary (spec §4.7 "if the right operand is an
// immediate or a direct variable read").
func isSimpleOperand(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IntLit, *ast.BoolLit, *ast.Ident:
		return true
	default:
		return false
	}
}

// assignTemps replays the exact traversal package sfa's Phase A used to
// size temporary slots (encounter order: left subtree, then right
// subtree, then this node's own temp if its right operand is complex)
// and hands each non-trivial BinaryExpr the same Slot sfa already
// reserved for it. Generation can then look a node's temp up directly
// instead of re-deriving the allocation order, and is free to emit
// instructions in whatever sequence correctness requires.
func assignTemps(block *ast.Block, temps []*sfa.Slot) map[*ast.BinaryExpr]*sfa.Slot {
	out := map[*ast.BinaryExpr]*sfa.Slot{}
	idx := 0

	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr)

	walkExpr = func(e ast.Expr) {
		switch e := e.(type) {
		case *ast.IntLit, *ast.StringLit, *ast.BoolLit, *ast.Ident, *ast.SizeofExpr:
		case *ast.ArrayLit:
			for _, el := range e.Elems {
				walkExpr(el)
			}
		case *ast.BinaryExpr:
			walkExpr(e.Left)
			walkExpr(e.Right)
			if !isSimpleOperand(e.Right) {
				out[e] = temps[idx]
				idx++
			}
		case *ast.UnaryExpr:
			walkExpr(e.X)
		case *ast.IndexExpr:
			walkExpr(e.X)
			walkExpr(e.Index)
		case *ast.AssignExpr:
			walkExpr(e.Target)
			walkExpr(e.Value)
		case *ast.CallExpr:
			for _, a := range e.Args {
				walkExpr(a)
			}
		default:
			panic("il: assignTemps: unhandled expr kind")
		}
	}

	walkStmt = func(s ast.Stmt) {
		switch s := s.(type) {
		case *ast.DeclStmt:
			if s.Decl.Init != nil {
				walkExpr(s.Decl.Init)
			}
		case *ast.Block:
			for _, inner := range s.Stmts {
				walkStmt(inner)
			}
		case *ast.IfStmt:
			walkExpr(s.Cond)
			for _, inner := range s.Then.Stmts {
				walkStmt(inner)
			}
			switch e := s.Else.(type) {
			case *ast.Block:
				for _, inner := range e.Stmts {
					walkStmt(inner)
				}
			case *ast.IfStmt:
				walkStmt(e)
			}
		case *ast.WhileStmt:
			walkExpr(s.Cond)
			for _, inner := range s.Body.Stmts {
				walkStmt(inner)
			}
		case *ast.DoWhileStmt:
			for _, inner := range s.Body.Stmts {
				walkStmt(inner)
			}
			walkExpr(s.Cond)
		case *ast.ForStmt:
			walkExpr(s.From)
			walkExpr(s.To)
			if s.Step != nil {
				walkExpr(s.Step)
			}
			for _, inner := range s.Body.Stmts {
				walkStmt(inner)
			}
		case *ast.MatchStmt:
			walkExpr(s.Subject)
			for _, m := range s.Cases {
				for _, v := range m.Values {
					walkExpr(v)
				}
				for _, inner := range m.Body.Stmts {
					walkStmt(inner)
				}
			}
		case *ast.ReturnStmt:
			if s.Value != nil {
				walkExpr(s.Value)
			}
		case *ast.BreakStmt, *ast.ContinueStmt:
		case *ast.ExprStmt:
			walkExpr(s.X)
		default:
			panic("il: assignTemps: unhandled stmt kind")
		}
	}

	for _, s := range block.Stmts {
		walkStmt(s)
	}
	return out
}
