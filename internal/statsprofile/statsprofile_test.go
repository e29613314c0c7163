// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package statsprofile

import (
	"testing"

	"blend65/internal/ast"
	"blend65/internal/callgraph"
	"blend65/internal/cfg"
	"blend65/internal/diag"
	"blend65/internal/platform"
	"blend65/internal/sfa"
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

func byteT() *ast.NamedTypeExpr { return &ast.NamedTypeExpr{Name: "byte"} }
func intLit(v uint64) *ast.IntLit { return &ast.IntLit{Value: v} }

func allocate(t *testing.T, decls []ast.Decl) (*sfa.FrameMap, *symbols.Table) {
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

	accesses := sfa.Accesses{}
	for _, d := range decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Body != nil {
			accesses[fn] = cfg.AnalyzeFunc(fn, info)
		}
	}

	graph := callgraph.Build(prog, table, info, bag, 16)
	if bag.HasErrors() {
		t.Fatalf("unexpected call-graph errors: %v", bag.Entries())
	}

	fm := sfa.Allocate(prog, table, info, accesses, graph, platform.C64, bag)
	if fm == nil {
		t.Fatalf("unexpected allocator failure: %v", bag.Entries())
	}
	return fm, table
}

func TestRenderProducesOneSamplePerSlot(t *testing.T) {
	fn := &ast.FuncDecl{
		Name: "tally",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.DeclStmt{Decl: &ast.VarDecl{Name: "x", Type: byteT(), Init: intLit(0)}},
			&ast.DeclStmt{Decl: &ast.VarDecl{Name: "y", Type: byteT(), Init: intLit(0)}},
		}},
	}
	fm, table := allocate(t, []ast.Decl{fn})

	var digest [32]byte
	p := Render(fm, table, digest)

	wantSlots := 0
	for _, fr := range fm.Frames {
		wantSlots += len(fr.Slots)
	}
	if len(p.Sample) != wantSlots {
		t.Errorf("expected %d samples (one per slot), got %d", wantSlots, len(p.Sample))
	}
	if len(p.SampleType) != 1 || p.SampleType[0].Type != "bytes" {
		t.Errorf("expected a single bytes sample type, got %+v", p.SampleType)
	}
	if len(p.Function) == 0 {
		t.Error("expected at least one Function entry")
	}
}

func TestRenderRecordsPreambleDigestComment(t *testing.T) {
	fn := &ast.FuncDecl{Name: "noop", Body: &ast.Block{}}
	fm, table := allocate(t, []ast.Decl{fn})

	digest := [32]byte{1, 2, 3}
	p := Render(fm, table, digest)

	found := false
	for _, c := range p.Comments {
		if c == "preamble-digest:0102030000000000000000000000000000000000000000000000000000000000" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a preamble-digest comment, got %v", p.Comments)
	}
}

func TestBytesSavedByCoalescingIsNonNegative(t *testing.T) {
	leaf1 := &ast.FuncDecl{Name: "leaf1", Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.DeclStmt{Decl: &ast.VarDecl{Name: "a", Type: byteT(), Init: intLit(0)}},
	}}}
	leaf2 := &ast.FuncDecl{Name: "leaf2", Body: &ast.Block{Stmts: []ast.Stmt{
		&ast.DeclStmt{Decl: &ast.VarDecl{Name: "b", Type: byteT(), Init: intLit(0)}},
	}}}
	fm, _ := allocate(t, []ast.Decl{leaf1, leaf2})

	for _, g := range fm.Groups {
		if bytesSavedByCoalescing(g) < 0 {
			t.Errorf("group %d: negative bytes saved", g.ID)
		}
	}
}
