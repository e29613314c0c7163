// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package il

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

func byteT() *ast.NamedTypeExpr    { return &ast.NamedTypeExpr{Name: "byte"} }
func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }
func intLit(v uint64) *ast.IntLit  { return &ast.IntLit{Value: v} }

// generate runs the full pipeline (symbols -> typecheck -> cfg ->
// callgraph -> sfa -> il) over decls and returns the generated program.
func generate(t *testing.T, decls []ast.Decl) (*Program, *diag.Bag) {
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

	return Generate(prog, table, info, fm, bag, platform.C64.ScratchZP.Start), bag
}

func funcNamed(p *Program, name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func TestSimpleAdditionLowersToLoadAddStore(t *testing.T) {
	// function add(a: byte, b: byte): byte { return a + b; } (spec §8 S1)
	add := &ast.FuncDecl{
		Name: "add",
		Params: []*ast.ParamDecl{
			{Name: "a", Type: byteT()},
			{Name: "b", Type: byteT()},
		},
		ReturnType: byteT(),
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("a"), Right: ident("b")}},
		}},
	}

	prog, bag := generate(t, []ast.Decl{add})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}

	fn := funcNamed(prog, "add")
	if fn == nil {
		t.Fatal("expected a generated function for add")
	}

	var ops []Opcode
	for _, i := range fn.Instrs {
		ops = append(ops, i.Op)
	}
	want := []Opcode{OpLoad, OpBinary, OpStore, OpReturn}
	if len(ops) != len(want) {
		t.Fatalf("expected %v, got %v", want, ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("instruction %d: expected %v, got %v", i, want[i], ops[i])
		}
	}
	if fn.Instrs[1].BinOp != ast.OpAdd || fn.Instrs[1].Mode != ModeAddr {
		t.Errorf("expected an ADD_ADDR, got %s", fn.Instrs[1])
	}
}

func TestCallLowersArgumentStoresAndReturnLoad(t *testing.T) {
	// function double(x: byte): byte { return x + x; }
	// function main() { let y: byte = double(5); }
	double := &ast.FuncDecl{
		Name:       "double",
		Params:     []*ast.ParamDecl{{Name: "x", Type: byteT()}},
		ReturnType: byteT(),
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("x"), Right: ident("x")}},
		}},
	}
	main := &ast.FuncDecl{
		Name: "main",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.DeclStmt{Decl: &ast.VarDecl{
				Name: "y",
				Type: byteT(),
				Init: &ast.CallExpr{Callee: ident("double"), Args: []ast.Expr{intLit(5)}},
			}},
		}},
	}

	prog, bag := generate(t, []ast.Decl{double, main})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}

	fn := funcNamed(prog, "main")
	if fn == nil {
		t.Fatal("expected a generated function for main")
	}

	foundCall, foundLoadAfterCall := false, false
	for i, instr := range fn.Instrs {
		if instr.Op == OpCall {
			if instr.Callee != "double" {
				t.Errorf("expected CALL double, got %s", instr)
			}
			foundCall = true
			if i+1 < len(fn.Instrs) && fn.Instrs[i+1].Op == OpLoad {
				foundLoadAfterCall = true
			}
		}
	}
	if !foundCall {
		t.Error("expected a CALL instruction")
	}
	if !foundLoadAfterCall {
		t.Error("expected a LOAD of double's return slot right after the call")
	}
}

func TestIfElseLowersToBranchAndLabels(t *testing.T) {
	fn := &ast.FuncDecl{
		Name:       "clamp",
		Params:     []*ast.ParamDecl{{Name: "x", Type: byteT()}},
		ReturnType: byteT(),
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.IfStmt{
				Cond: &ast.BinaryExpr{Op: ast.OpGt, Left: ident("x"), Right: intLit(100)},
				Then: &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: intLit(100)}}},
				Else: &ast.Block{Stmts: []ast.Stmt{&ast.ReturnStmt{Value: ident("x")}}},
			},
		}},
	}

	prog, bag := generate(t, []ast.Decl{fn})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}
	gen := funcNamed(prog, "clamp")
	if gen == nil {
		t.Fatal("expected a generated function for clamp")
	}

	var haveBranch, haveJump, haveLabels bool
	labelCount := 0
	for _, i := range gen.Instrs {
		switch i.Op {
		case OpBranchIfZero:
			haveBranch = true
		case OpJump:
			haveJump = true
		case OpLabel:
			labelCount++
			haveLabels = true
		}
	}
	if !haveBranch || !haveJump || !haveLabels || labelCount != 2 {
		t.Errorf("expected a branch, a jump, and 2 labels; got branch=%v jump=%v labels=%d", haveBranch, haveJump, labelCount)
	}
}

func TestWhileLoopWithHotVariableLowersCleanly(t *testing.T) {
	// spec §8 S6's scan(), reused here to confirm the generator lowers
	// a while loop over a byte counter and ends the function in RETURN.
	body := &ast.Block{Stmts: []ast.Stmt{
		&ast.DeclStmt{Decl: &ast.VarDecl{Name: "i", Type: byteT(), Init: intLit(0)}},
		&ast.WhileStmt{
			Cond: &ast.BinaryExpr{Op: ast.OpLt, Left: ident("i"), Right: intLit(250)},
			Body: &ast.Block{Stmts: []ast.Stmt{
				&ast.ExprStmt{X: &ast.AssignExpr{
					Target: ident("i"),
					Value:  &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("i"), Right: intLit(1)},
				}},
			}},
		},
	}}
	scan := &ast.FuncDecl{Name: "scan", Body: body}

	prog, bag := generate(t, []ast.Decl{scan})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}
	gen := funcNamed(prog, "scan")
	if gen == nil {
		t.Fatal("expected a generated function for scan")
	}
	if gen.Instrs[len(gen.Instrs)-1].Op != OpReturn {
		t.Error("expected a trailing RETURN for a void function with no explicit return")
	}
}

func TestForLoopLowersInitCompareAndIncrement(t *testing.T) {
	fn := &ast.FuncDecl{
		Name: "fill",
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ForStmt{
				Var:       "i",
				From:      intLit(0),
				To:        intLit(9),
				Inclusive: true,
				Body: &ast.Block{Stmts: []ast.Stmt{
					&ast.ExprStmt{X: &ast.CallExpr{Callee: ident("poke"), Args: []ast.Expr{
						&ast.BinaryExpr{Op: ast.OpAdd, Left: intLit(0x0400), Right: ident("i")},
						intLit(32),
					}}},
				}},
			},
		}},
	}

	prog, bag := generate(t, []ast.Decl{fn})
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Entries())
	}
	gen := funcNamed(prog, "fill")
	if gen == nil {
		t.Fatal("expected a generated function for fill")
	}
	var haveLoad, havePoke, haveCmp bool
	for _, i := range gen.Instrs {
		if i.Op == OpPoke {
			havePoke = true
		}
		if i.Op == OpLoad {
			haveLoad = true
		}
		if i.Op == OpBinary && i.BinOp == ast.OpLe {
			haveCmp = true
		}
	}
	if !haveLoad || !havePoke || !haveCmp {
		t.Errorf("expected LOAD, POKE, and an inclusive-bound compare; got load=%v poke=%v cmp=%v", haveLoad, havePoke, haveCmp)
	}
}
