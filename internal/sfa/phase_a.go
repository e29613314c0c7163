// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfa

import (
	"fmt"

	"blend65/internal/ast"
	"blend65/internal/cfg"
	"blend65/internal/diag"
	"blend65/internal/platform"
	"blend65/internal/symbols"
	"blend65/internal/typecheck"
	"blend65/internal/types"
)

func typeOrPoison(ts []*types.Type, i int) *types.Type {
	if i < len(ts) {
		return ts[i]
	}
	return types.TPoison
}

func sizeOf(t *types.Type) int {
	if t == nil {
		return 0
	}
	return types.Size(t)
}

func symSlotType(table *symbols.Table, id symbols.SymbolID) *types.Type {
	if id == symbols.InvalidSymbol {
		return types.TPoison
	}
	return table.Symbol(id).Type
}

func tempName(fnName string, n int) string {
	return fmt.Sprintf("%s.$t%d", fnName, n)
}

// sizeFrame runs Phase A for fn: parameters, then an optional return
// slot, then locals in source order, then one temporary slot per
// non-trivial binary expression (spec §4.6 Phase A). The one-temp-per-
// expression strategy is the conservative option the open question on
// temporary-slot allocation explicitly allows (see DESIGN.md). Reports
// FrameOverflow and returns nil if the raw size exceeds
// plat.DefaultMaxFrameBytes.
func sizeFrame(fn *ast.FuncDecl, table *symbols.Table, info *typecheck.Info, accesses map[symbols.SymbolID]*cfg.Access, plat platform.Config, bag *diag.Bag) *Frame {
	fnID := info.FuncSymbols[fn]
	fnSym := table.Symbol(fnID)

	fr := &Frame{FuncSymbol: fnID, FuncName: fn.Name}

	paramTypes := info.FuncParamTypes[fnID]
	for i, p := range fn.Params {
		t := typeOrPoison(paramTypes, i)
		symID, _ := table.LookupLocal(fnSym.Scope, p.Name)
		fr.Slots = append(fr.Slots, &Slot{
			Name:   p.Name,
			Kind:   SlotParam,
			Symbol: symID,
			Type:   t,
			Size:   sizeOf(t),
			access: accesses[symID],
		})
	}

	retType := info.FuncReturnTypes[fn]
	if retType != nil && sizeOf(retType) > 0 {
		fr.Slots = append(fr.Slots, &Slot{
			Name:   fn.Name + ".$return",
			Kind:   SlotReturn,
			Symbol: symbols.InvalidSymbol,
			Type:   retType,
			Size:   sizeOf(retType),
		})
	}

	collectLocalDecls(fn.Body, func(d *ast.VarDecl) {
		symID, _ := table.LookupLocal(fnSym.Scope, d.Name)
		t := symSlotType(table, symID)
		fr.Slots = append(fr.Slots, &Slot{
			Name:   d.Name,
			Kind:   SlotLocal,
			Symbol: symID,
			Type:   t,
			Size:   sizeOf(t),
			access: accesses[symID],
		})
	})

	n := 0
	collectTempSlotTypes(fn.Body, info, func(t *types.Type) {
		n++
		fr.Slots = append(fr.Slots, &Slot{
			Name:   tempName(fn.Name, n),
			Kind:   SlotTemp,
			Symbol: symbols.InvalidSymbol,
			Type:   t,
			Size:   sizeOf(t),
		})
	})

	raw := 0
	for _, s := range fr.Slots {
		raw += s.Size
	}
	fr.RawSize = raw

	if raw > plat.DefaultMaxFrameBytes {
		bag.Errorf(spanOf(fn), diag.CodeFrameOverflow,
			"function %q has a %d-byte frame, exceeding the %d-byte maximum", fn.Name, raw, plat.DefaultMaxFrameBytes)
		return nil
	}
	return fr
}

// collectLocalDecls visits every VarDecl in block, in source order,
// regardless of nesting depth: Blend65 functions are flat-scoped (spec
// §3), so a declaration nested inside an if/while still belongs to the
// same single frame.
func collectLocalDecls(block *ast.Block, emit func(*ast.VarDecl)) {
	var walkStmt func(ast.Stmt)
	walkStmt = func(s ast.Stmt) {
		switch s := s.(type) {
		case *ast.DeclStmt:
			emit(s.Decl)
		case *ast.Block:
			for _, inner := range s.Stmts {
				walkStmt(inner)
			}
		case *ast.IfStmt:
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
			for _, inner := range s.Body.Stmts {
				walkStmt(inner)
			}
		case *ast.DoWhileStmt:
			for _, inner := range s.Body.Stmts {
				walkStmt(inner)
			}
		case *ast.ForStmt:
			// The loop induction variable is itself a function-scoped
			// declaration (package symbols declares it alongside the
			// body's own locals), so it needs a frame slot too.
			emit(&ast.VarDecl{Name: s.Var})
			for _, inner := range s.Body.Stmts {
				walkStmt(inner)
			}
		case *ast.MatchStmt:
			for _, m := range s.Cases {
				for _, inner := range m.Body.Stmts {
					walkStmt(inner)
				}
			}
		case *ast.ReturnStmt, *ast.BreakStmt, *ast.ContinueStmt, *ast.ExprStmt:
			// no nested declarations possible
		default:
			panic("sfa: collectLocalDecls: unhandled stmt kind")
		}
	}
	for _, s := range block.Stmts {
		walkStmt(s)
	}
}

// isSimpleOperand reports whether e is an "immediate or direct variable
// read" (spec §4.6 Phase A / §4.7 "Binary op"): a literal or a bare
// identifier, neither of which needs a temporary to hold an
// intermediate value.
func isSimpleOperand(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IntLit, *ast.BoolLit, *ast.Ident:
		return true
	default:
		return false
	}
}

// collectTempSlotTypes walks every statement and expression in block
// and calls emit, in encounter order, with the type of the right
// operand of every binary expression whose right operand is not a
// simple operand (spec §4.7 "else evaluate the right operand into a
// compiler temporary slot").
func collectTempSlotTypes(block *ast.Block, info *typecheck.Info, emit func(*types.Type)) {
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
				emit(info.TypeOf(e.Right))
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
			panic("sfa: collectTempSlotTypes: unhandled expr kind")
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
			panic("sfa: collectTempSlotTypes: unhandled stmt kind")
		}
	}

	for _, s := range block.Stmts {
		walkStmt(s)
	}
}
