// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfa

import (
	"testing"

	"blend65/internal/ast"
	"blend65/internal/callgraph"
	"blend65/internal/cfg"
	"blend65/internal/diag"
	"blend65/internal/platform"
	"blend65/internal/symbols"
	"blend65/internal/typecheck"
)

func unit(name string, module []string, decls ...ast.Decl) *ast.Unit {
	u := &ast.Unit{Name: name, Decls: decls}
	if module != nil {
		u.Module = &ast.ModuleDecl{Path: module}
	}
	return u
}

func byteT() *ast.NamedTypeExpr    { return &ast.NamedTypeExpr{Name: "byte"} }
func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }
func intLit(v uint64) *ast.IntLit  { return &ast.IntLit{Value: v} }
func call(name string, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Callee: ident(name), Args: args}
}

func fourByteLocals(fnName string) *ast.FuncDecl {
	body := &ast.Block{}
	for _, n := range []string{"a", "b", "c", "d"} {
		body.Stmts = append(body.Stmts, &ast.DeclStmt{
			Decl: &ast.VarDecl{Name: n, Type: byteT(), Init: intLit(0)},
		})
	}
	return &ast.FuncDecl{Name: fnName, Body: body}
}

// allocate runs the full pipeline (symbols -> typecheck -> cfg -> callgraph
// -> sfa) over decls and returns the resulting FrameMap.
func allocate(t *testing.T, decls []ast.Decl) (*FrameMap, *diag.Bag) {
	t.Helper()
	prog := &ast.Program{Units: []*ast.Unit{unit("a.blend", []string{"Main"}, decls...)}}

	table := symbols.NewTable()
	bag := diag.NewBag()
	builder := symbols.NewBuilder(table, bag, platform.C64)
	scopes := builder.Build(prog)
	if bag.HasErrors() {
		t.Fatalf("unexpected symbol errors: %v", bag.Entries())
	}
	info := typecheck.NewInfo()
	resolver := typecheck.NewResolver(table, bag, info)
	resolver.ResolveAliasesAndEnums(prog, scopes, builder.UnitModule)
	typecheck.NewChecker(table, bag, info).CheckProgram(prog, scopes, builder.UnitModule)
	if bag.HasErrors() {
		t.Fatalf("unexpected type errors: %v", bag.Entries())
	}

	accesses := Accesses{}
	for _, d := range decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Body != nil {
			accesses[fn] = cfg.AnalyzeFunc(fn, info)
		}
	}

	graph := callgraph.Build(prog, table, info, bag, 16)
	if bag.HasErrors() {
		t.Fatalf("unexpected call-graph errors: %v", bag.Entries())
	}

	fm := Allocate(prog, table, info, accesses, graph, platform.C64, bag)
	return fm, bag
}

func TestFrameCoalescingSharesNonOverlappingFrames(t *testing.T) {
	// main() { draw(); update(); } draw/update each have 4 bytes of
	// locals and never call each other (spec §8 S4).
	draw := fourByteLocals("draw")
	update := fourByteLocals("update")
	main := &ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: call("draw")},
		&ast.ExprStmt{X: call("update")},
	}}}

	fm, bag := allocate(t, []ast.Decl{draw, update, main})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}
	if fm == nil {
		t.Fatal("expected a FrameMap")
	}

	drawFrame := fm.Frames[symFor(t, fm, "draw")]
	updateFrame := fm.Frames[symFor(t, fm, "update")]
	if drawFrame.Group != updateFrame.Group {
		t.Fatalf("expected draw and update to share a coalesce group, got groups %d and %d",
			drawFrame.Group.ID, updateFrame.Group.ID)
	}
	if drawFrame.Group.Size < 4 {
		t.Errorf("expected coalesced group size >= 4, got %d", drawFrame.Group.Size)
	}
	if problems := fm.Validate(); len(problems) != 0 {
		t.Errorf("FrameMap invariant violations: %v", problems)
	}
}

func TestISRContextBlocksCoalescing(t *testing.T) {
	// main calls helper; callback irq_handler also calls helper (spec
	// §8 S5). helper's context becomes "both" and must not coalesce
	// with anything.
	helper := fourByteLocals("helper")
	main := &ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: call("helper")},
	}}}
	irq := &ast.FuncDecl{Name: "irq_handler", Callback: true, Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: call("helper")},
	}}}

	fm, bag := allocate(t, []ast.Decl{helper, main, irq})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}

	helperFrame := fm.Frames[symFor(t, fm, "helper")]
	mainFrame := fm.Frames[symFor(t, fm, "main")]
	irqFrame := fm.Frames[symFor(t, fm, "irq_handler")]

	if len(helperFrame.Group.Members) != 1 {
		t.Errorf("expected helper in a singleton group, got %d members", len(helperFrame.Group.Members))
	}
	if helperFrame.Group == mainFrame.Group || helperFrame.Group == irqFrame.Group {
		t.Error("expected helper's group to be distinct from main's and irq_handler's")
	}
}

func TestHotLoopVariableGetsZeroPage(t *testing.T) {
	// function scan() { let i: byte = 0; while (i < 250) { poke($0400+i, 32); i = i + 1; } }
	// (spec §8 S6) — no @zp annotation, yet i's high access count and
	// loop depth should win it a zero-page address.
	iDecl := &ast.VarDecl{Name: "i", Type: byteT(), Init: intLit(0)}
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.DeclStmt{Decl: iDecl},
		&ast.WhileStmt{
			Cond: &ast.BinaryExpr{Op: ast.OpLt, Left: ident("i"), Right: intLit(250)},
			Body: &ast.Block{Stmts: []ast.Stmt{
				&ast.ExprStmt{X: call("poke",
					&ast.BinaryExpr{Op: ast.OpAdd, Left: intLit(0x0400), Right: ident("i")},
					intLit(32))},
				&ast.ExprStmt{X: &ast.AssignExpr{
					Target: ident("i"),
					Value:  &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("i"), Right: intLit(1)},
				}},
			}},
		},
	}}
	scan := &ast.FuncDecl{Name: "scan", Body: body}

	fm, bag := allocate(t, []ast.Decl{scan})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}

	scanFrame := fm.Frames[symFor(t, fm, "scan")]
	var iSlot *Slot
	for _, s := range scanFrame.Slots {
		if s.Name == "i" {
			iSlot = s
		}
	}
	if iSlot == nil {
		t.Fatal("expected a slot for i")
	}
	if iSlot.Location != LocZeroPage {
		t.Errorf("expected i in zero page, got %v (score %.1f)", iSlot.Location, iSlot.Score)
	}
	if !platform.C64.ZPRange.Contains(iSlot.Address) {
		t.Errorf("i's address $%04X is outside the C64 ZP range", iSlot.Address)
	}
}

func TestFrameOverflowRejectsOversizedFunction(t *testing.T) {
	body := &ast.Block{}
	for i := 0; i < 300; i++ {
		body.Stmts = append(body.Stmts, &ast.DeclStmt{
			Decl: &ast.VarDecl{Name: byteName(i), Type: byteT(), Init: intLit(0)},
		})
	}
	huge := &ast.FuncDecl{Name: "huge", Body: body}

	fm, bag := allocate(t, []ast.Decl{huge})
	if fm != nil {
		t.Error("expected nil FrameMap on overflow")
	}
	found := false
	for _, d := range bag.Entries() {
		if d.Code == diag.CodeFrameOverflow {
			found = true
		}
	}
	if !found {
		t.Errorf("expected FrameOverflow, got %v", bag.Entries())
	}
}

func byteName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i%26]) + string(letters[(i/26)%26]) + string(rune('0'+i%10))
}

func symFor(t *testing.T, fm *FrameMap, name string) symbols.SymbolID {
	t.Helper()
	for id, fr := range fm.Frames {
		if fr.FuncName == name {
			return id
		}
	}
	t.Fatalf("no frame found for %q", name)
	return symbols.InvalidSymbol
}
