// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command blend65c wires the middle-end pass order of spec §5 over an
// in-memory Program and reports whatever package diag collected. It
// does not read files, parse flags, or invoke an assembler (all
// explicit Non-goals, spec §1): lexing and parsing are external
// collaborators, and the Program below stands in for whatever a real
// frontend would hand the middle-end.
package main

import (
	"fmt"
	"os"

	"blend65/internal/ast"
	"blend65/internal/driver"
	"blend65/internal/platform"
)

// exampleProgram is spec §8 scenario S1: a two-parameter byte addition,
// called once from an exported main. It exists only so this binary has
// something to run end-to-end without a real frontend attached.
func exampleProgram() *ast.Program {
	add := &ast.FuncDecl{
		Name:       "add",
		Params:     []*ast.ParamDecl{{Name: "a", Type: &ast.NamedTypeExpr{Name: "byte"}}, {Name: "b", Type: &ast.NamedTypeExpr{Name: "byte"}}},
		ReturnType: &ast.NamedTypeExpr{Name: "byte"},
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.BinaryExpr{
				Op:    ast.OpAdd,
				Left:  &ast.Ident{Name: "a"},
				Right: &ast.Ident{Name: "b"},
			}},
		}},
	}
	main := &ast.FuncDecl{
		Name:   "main",
		Export: true,
		Body: &ast.Block{Stmts: []ast.Stmt{
			&ast.DeclStmt{Decl: &ast.VarDecl{
				Name: "x",
				Type: &ast.NamedTypeExpr{Name: "byte"},
				Init: &ast.CallExpr{Callee: &ast.Ident{Name: "add"}, Args: []ast.Expr{
					&ast.IntLit{Value: 5}, &ast.IntLit{Value: 10},
				}},
			}},
			&ast.ExprStmt{X: &ast.CallExpr{Callee: &ast.Ident{Name: "poke"}, Args: []ast.Expr{
				&ast.IntLit{Value: 0xD020}, &ast.Ident{Name: "x"},
			}}},
		}},
	}
	return &ast.Program{Units: []*ast.Unit{{
		Name:   "example.blend",
		Module: &ast.ModuleDecl{Path: []string{"Main"}},
		Decls:  []ast.Decl{add, main},
	}}}
}

func main() {
	res := driver.Compile(exampleProgram(), platform.C64)

	for _, d := range res.Bag.Entries() {
		fmt.Fprintln(os.Stderr, d)
	}
	if res.Bag.HasErrors() {
		os.Exit(1)
	}
	if res.Skipped {
		fmt.Println("recursive call graph: allocator and IL generator skipped")
		return
	}
	for _, fn := range res.IL.Functions {
		fmt.Printf("function %s:\n", fn.Name)
		for _, instr := range fn.Instrs {
			fmt.Printf("\t%s\n", instr)
		}
	}
}
