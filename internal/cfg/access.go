// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cfg

import (
	"blend65/internal/ast"
	"blend65/internal/symbols"
	"blend65/internal/typecheck"
)

// Access accumulates the read/write counts and loop-nesting depth the
// allocator's Phase C scoring consumes (spec §4.4, §4.6 Phase C
// "accessBonus"/"loopBonus").
type Access struct {
	Reads, Writes int
	MaxLoopDepth  int
}

// AnalyzeFunc walks fn's body once, recording an Access entry per
// referenced symbol. info must already hold the identifier bindings
// the type checker produced (IdentSymbols), so this pass never
// re-resolves a name itself.
func AnalyzeFunc(fn *ast.FuncDecl, info *typecheck.Info) map[symbols.SymbolID]*Access {
	a := &accessWalker{info: info, out: map[symbols.SymbolID]*Access{}}
	if fn.Body != nil {
		a.walkBlock(fn.Body)
	}
	return a.out
}

type accessWalker struct {
	info      *typecheck.Info
	out       map[symbols.SymbolID]*Access
	loopDepth int
}

func (a *accessWalker) entry(id symbols.SymbolID) *Access {
	e, ok := a.out[id]
	if !ok {
		e = &Access{}
		a.out[id] = e
	}
	if a.loopDepth > e.MaxLoopDepth {
		e.MaxLoopDepth = a.loopDepth
	}
	return e
}

func (a *accessWalker) recordRead(e ast.Expr) {
	if id, ok := a.identSymbol(e); ok {
		a.entry(id).Reads++
	}
}

func (a *accessWalker) recordWrite(e ast.Expr) {
	if id, ok := a.identSymbol(e); ok {
		a.entry(id).Writes++
	}
}

// identSymbol follows an IndexExpr chain down to its root identifier,
// matching typecheck.Checker.checkWritable's notion of "the variable
// an assignment target ultimately names".
func (a *accessWalker) identSymbol(e ast.Expr) (symbols.SymbolID, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		id, ok := a.info.IdentSymbols[e]
		return id, ok
	case *ast.IndexExpr:
		return a.identSymbol(e.X)
	default:
		return symbols.InvalidSymbol, false
	}
}

func (a *accessWalker) walkBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		a.walkStmt(s)
	}
}

func (a *accessWalker) walkStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.DeclStmt:
		if s.Decl.Init != nil {
			a.walkExpr(s.Decl.Init)
		}
	case *ast.Block:
		a.walkBlock(s)
	case *ast.IfStmt:
		a.walkExpr(s.Cond)
		a.walkBlock(s.Then)
		switch e := s.Else.(type) {
		case *ast.Block:
			a.walkBlock(e)
		case *ast.IfStmt:
			a.walkStmt(e)
		}
	case *ast.WhileStmt:
		a.walkExpr(s.Cond)
		a.loopDepth++
		a.walkBlock(s.Body)
		a.loopDepth--
	case *ast.DoWhileStmt:
		a.loopDepth++
		a.walkBlock(s.Body)
		a.loopDepth--
		a.walkExpr(s.Cond)
	case *ast.ForStmt:
		a.walkExpr(s.From)
		a.walkExpr(s.To)
		if s.Step != nil {
			a.walkExpr(s.Step)
		}
		a.loopDepth++
		a.walkBlock(s.Body)
		a.loopDepth--
	case *ast.MatchStmt:
		a.walkExpr(s.Subject)
		for _, m := range s.Cases {
			for _, v := range m.Values {
				a.walkExpr(v)
			}
			a.walkBlock(m.Body)
		}
	case *ast.ReturnStmt:
		if s.Value != nil {
			a.walkExpr(s.Value)
		}
	case *ast.BreakStmt, *ast.ContinueStmt:
		// no operands
	case *ast.ExprStmt:
		a.walkExpr(s.X)
	default:
		panic("cfg: walkStmt: unhandled stmt kind")
	}
}

func (a *accessWalker) walkExpr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.IntLit, *ast.StringLit, *ast.BoolLit:
		// literals
	case *ast.ArrayLit:
		for _, el := range e.Elems {
			a.walkExpr(el)
		}
	case *ast.Ident:
		a.recordRead(e)
	case *ast.BinaryExpr:
		a.walkExpr(e.Left)
		a.walkExpr(e.Right)
	case *ast.UnaryExpr:
		a.walkExpr(e.X)
	case *ast.CallExpr:
		// The callee names a function or intrinsic, never a variable;
		// only its arguments are variable accesses.
		for _, arg := range e.Args {
			a.walkExpr(arg)
		}
	case *ast.SizeofExpr:
		// type operand, not a value access
	case *ast.IndexExpr:
		a.walkExpr(e.X)
		a.walkExpr(e.Index)
	case *ast.AssignExpr:
		if e.Op != ast.AssignPlain {
			// compound assignment both reads and writes the target
			a.recordRead(e.Target)
		}
		a.recordWrite(e.Target)
		a.walkExpr(e.Value)
	default:
		panic("cfg: walkExpr: unhandled expr kind")
	}
}
