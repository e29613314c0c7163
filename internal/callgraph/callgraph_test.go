// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callgraph

import (
	"testing"

	"blend65/internal/ast"
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

// build runs the full pipeline up through type checking (needed so
// CalleeSymbols/FuncSymbols are populated), then builds the call graph.
func build(t *testing.T, decls []ast.Decl, callDepthWarning int) (*Graph, *diag.Bag) {
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

	g := Build(prog, table, info, bag, callDepthWarning)
	return g, bag
}

func findNode(g *Graph, name string) *Node {
	for _, id := range g.order {
		if g.node(id).Name == name {
			return g.node(id)
		}
	}
	return nil
}

func TestSimpleCallEdgeAndContext(t *testing.T) {
	// function helper() { } / function main() { helper(); }
	helper := &ast.FuncDecl{Name: "helper", Body: &ast.Block{}}
	main := &ast.FuncDecl{
		Name: "main",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ExprStmt{X: call("helper")},
		}},
	}
	g, bag := build(t, []ast.Decl{helper, main}, 16)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}

	h := findNode(g, "helper")
	m := findNode(g, "main")
	if h == nil || m == nil {
		t.Fatalf("expected nodes for helper and main")
	}
	if !m.Callees[h.Symbol] {
		t.Error("expected main -> helper call edge")
	}
	if !h.Callers[m.Symbol] {
		t.Error("expected helper caller set to include main")
	}
	if m.Context != MainOnly {
		t.Errorf("main context = %v, want MainOnly", m.Context)
	}
	if h.Context != MainOnly {
		t.Errorf("helper context = %v, want MainOnly (reached only from main)", h.Context)
	}
	if h.Recursive || m.Recursive {
		t.Error("neither function should be flagged recursive")
	}
}

func TestDirectRecursionDetected(t *testing.T) {
	// function loop() { loop(); }
	loopFn := &ast.FuncDecl{Name: "loop", Body: &ast.Block{}}
	loopFn.Body.Stmts = []ast.Stmt{&ast.ExprStmt{X: call("loop")}}
	main := &ast.FuncDecl{Name: "main", Body: &ast.Block{}}

	g, bag := build(t, []ast.Decl{loopFn, main}, 16)

	found := false
	for _, d := range bag.Entries() {
		if d.Code == diag.CodeRecursionDetected {
			found = true
		}
	}
	if !found {
		t.Errorf("expected RecursionDetected, got %v", bag.Entries())
	}
	if !findNode(g, "loop").Recursive {
		t.Error("expected loop node marked recursive")
	}
}

func TestMutualRecursionDetected(t *testing.T) {
	// function a() { b(); } / function b() { a(); }
	aFn := &ast.FuncDecl{Name: "a", Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: call("b")},
	}}}
	bFn := &ast.FuncDecl{Name: "b", Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: call("a")},
	}}}
	main := &ast.FuncDecl{Name: "main", Body: &ast.Block{}}

	g, bag := build(t, []ast.Decl{aFn, bFn, main}, 16)

	found := false
	for _, d := range bag.Entries() {
		if d.Code == diag.CodeMutualRecursion {
			found = true
		}
	}
	if !found {
		t.Errorf("expected MutualRecursionDetected, got %v", bag.Entries())
	}
	if !findNode(g, "a").Recursive || !findNode(g, "b").Recursive {
		t.Error("expected both a and b marked recursive")
	}
}

func TestCallbackReachableFromBothGetsContextBoth(t *testing.T) {
	// function shared() { } ; function main() { shared(); } ; callback function irq() { shared(); }
	shared := &ast.FuncDecl{Name: "shared", Body: &ast.Block{}}
	main := &ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: call("shared")},
	}}}
	irq := &ast.FuncDecl{Name: "irq", Callback: true, Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.ExprStmt{X: call("shared")},
	}}}

	g, bag := build(t, []ast.Decl{shared, main, irq}, 16)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}

	sharedNode := findNode(g, "shared")
	if sharedNode.Context != Both {
		t.Errorf("shared context = %v, want Both", sharedNode.Context)
	}
	irqNode := findNode(g, "irq")
	if irqNode.Context != ISROnly {
		t.Errorf("irq context = %v, want ISROnly", irqNode.Context)
	}
}

func TestDeepCallStackWarns(t *testing.T) {
	// main -> f1 -> f2 -> f3, threshold 2: f3 at depth 3 should warn.
	f3 := &ast.FuncDecl{Name: "f3", Body: &ast.Block{}}
	f2 := &ast.FuncDecl{Name: "f2", Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: call("f3")}}}}
	f1 := &ast.FuncDecl{Name: "f1", Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: call("f2")}}}}
	main := &ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: call("f1")}}}}

	_, bag := build(t, []ast.Decl{f3, f2, f1, main}, 2)

	found := false
	for _, d := range bag.Entries() {
		if d.Code == diag.CodeDeepCallStack {
			found = true
		}
	}
	if !found {
		t.Errorf("expected DeepCallStack warning, got %v", bag.Entries())
	}
}

func TestTransitiveCallerClosure(t *testing.T) {
	// main -> mid -> leaf: leaf's transitive callers must include both mid and main.
	leaf := &ast.FuncDecl{Name: "leaf", Body: &ast.Block{}}
	mid := &ast.FuncDecl{Name: "mid", Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: call("leaf")}}}}
	main := &ast.FuncDecl{Name: "main", Body: &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: call("mid")}}}}

	g, bag := build(t, []ast.Decl{leaf, mid, main}, 16)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}

	leafNode := findNode(g, "leaf")
	midNode := findNode(g, "mid")
	mainNode := findNode(g, "main")
	if !leafNode.TransitiveCallers[midNode.Symbol] || !leafNode.TransitiveCallers[mainNode.Symbol] {
		t.Errorf("expected leaf's transitive callers to include mid and main, got %v", leafNode.TransitiveCallers)
	}
}
