// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver orchestrates the middle-end's pass pipeline (spec
// §5): symbol table, type resolution and checking, CFG/access
// analysis, call graph, the Static Frame Allocator, and IL generation,
// in the fixed order spec §5 prescribes, sharing one diag.Bag and
// aborting the remaining passes as soon as a fatal diagnostic appears.
// Lexing, parsing, and final code generation are external collaborators
// (spec §1); Compile's input is already a parsed Program (typically one
// preamble.Prepend assembled from a resolved library Bundle plus the
// user's own parsed units) and its output is an IL Program, not bytes.
package driver

import (
	"blend65/internal/ast"
	"blend65/internal/callgraph"
	"blend65/internal/cfg"
	"blend65/internal/diag"
	"blend65/internal/il"
	"blend65/internal/platform"
	"blend65/internal/preamble"
	"blend65/internal/sfa"
	"blend65/internal/symbols"
	"blend65/internal/typecheck"
)

// Result collects every pass's output that a caller (statsprofile, a
// test, or eventually a real code generator) might need. Fields past
// the point where compilation stopped are nil; Bag always explains
// why.
type Result struct {
	Table   *symbols.Table
	Info    *typecheck.Info
	Graph   *callgraph.Graph
	Frames  *sfa.FrameMap
	IL      *il.Program
	Bag     *diag.Bag

	// Skipped records whether the allocator and IL generator were
	// skipped because the call graph has recursion (spec §3's
	// precondition on the allocator: it only ever runs over an
	// acyclic call graph).
	Skipped bool
}

// Compile runs the full pipeline over prog with plat as the target
// configuration. It does not run preamble resolution itself — prog is
// expected to already be the fully assembled Program (library units
// prepended, module paths validated) a caller built with package
// preamble; Compile only re-runs the cross-module import resolution
// and import-cycle check, since both need the symbol table this pass
// itself produces.
func Compile(prog *ast.Program, plat platform.Config) *Result {
	bag := diag.NewBag()
	res := &Result{Bag: bag}

	table := symbols.NewTable()
	builder := symbols.NewBuilder(table, bag, plat)
	moduleScopes := builder.Build(prog)
	res.Table = table
	if bag.HasErrors() {
		return res
	}

	moduleGraph := preamble.BuildModuleGraph(prog, builder.UnitModule)
	moduleGraph.CheckCycles(bag)
	if bag.HasErrors() {
		return res
	}

	preamble.ResolveImports(table, moduleScopes, bag)
	if bag.HasErrors() {
		return res
	}

	info := typecheck.NewInfo()
	resolver := typecheck.NewResolver(table, bag, info)
	resolver.ResolveAliasesAndEnums(prog, moduleScopes, builder.UnitModule)
	typecheck.NewChecker(table, bag, info).CheckProgram(prog, moduleScopes, builder.UnitModule)
	res.Info = info
	if bag.HasErrors() {
		return res
	}

	funcs := funcDecls(prog)
	accesses := sfa.Accesses{}
	for _, fn := range funcs {
		if fn.Body != nil {
			accesses[fn] = cfg.AnalyzeFunc(fn, info)
		}
	}

	graph := callgraph.Build(prog, table, info, bag, plat.DefaultCallDepthWarning)
	res.Graph = graph
	if err := graph.CheckInvariants(); err != nil {
		panic(err)
	}

	if graph.HasRecursion() {
		// spec §3: the allocator's whole design thesis depends on an
		// acyclic call graph; recursion is always already fatal in bag
		// by this point, but Skipped makes the reason explicit for
		// callers that only inspect Result.
		res.Skipped = true
		return res
	}
	if bag.HasErrors() {
		return res
	}

	fm := sfa.Allocate(prog, table, info, accesses, graph, plat, bag)
	res.Frames = fm
	if fm == nil || bag.HasErrors() {
		return res
	}
	if err := fm.CheckInvariants(); err != nil {
		panic(err)
	}

	res.IL = il.Generate(prog, table, info, fm, bag, plat.ScratchZP.Start)
	if res.IL != nil {
		if err := res.IL.Validate(); err != nil {
			panic(err)
		}
	}
	return res
}

func funcDecls(prog *ast.Program) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, u := range prog.Units {
		for _, d := range u.Decls {
			if fn, ok := d.(*ast.FuncDecl); ok {
				out = append(out, fn)
			}
		}
	}
	return out
}
