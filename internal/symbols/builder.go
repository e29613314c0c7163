// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbols

import (
	"strings"

	"blend65/internal/ast"
	"blend65/internal/diag"
	"blend65/internal/platform"
)

// DefaultModule is substituted for a Unit with no ModuleDecl (spec §6
// "A missing module declaration is equivalent to module Main;").
const DefaultModule = "Main"

// Builder runs the one pre-order pass described in spec §4.2: for each
// Unit, resolve (or default) its module scope; for each declaration,
// build a Symbol and attempt to insert it; for each function, open a
// child scope and declare parameters before descending into the body.
// It does not resolve types (spec §4.2 "Does not resolve types (a
// later pass)") — that is package typecheck's job.
type Builder struct {
	table *Table
	bag   *diag.Bag
	plat  platform.Config

	// moduleScopes maps a dotted module path to its scope, so that
	// multiple Units declaring the same module (spec §6 "library
	// loading (preamble mechanism)": prepended library sources plus
	// user sources) share one scope.
	moduleScopes map[string]ScopeID

	// UnitModule records, for diagnostics and later cross-module
	// resolution (package preamble), which module path each Unit
	// belongs to.
	UnitModule map[*ast.Unit]string
}

// NewBuilder returns a Builder writing into table and reporting into
// bag. plat supplies the address space a `@map` declaration's literal
// address is validated against.
func NewBuilder(table *Table, bag *diag.Bag, plat platform.Config) *Builder {
	return &Builder{table: table, bag: bag, plat: plat, moduleScopes: map[string]ScopeID{}, UnitModule: map[*ast.Unit]string{}}
}

// Build walks prog and returns the scope each Unit's declarations were
// placed in, keyed by module path.
func (b *Builder) Build(prog *ast.Program) map[string]ScopeID {
	for _, u := range prog.Units {
		b.buildUnit(u)
	}
	return b.moduleScopes
}

func (b *Builder) moduleSpan(u *ast.Unit) diag.Span {
	return diag.Span{Unit: u.Name}
}

func (b *Builder) buildUnit(u *ast.Unit) {
	path := DefaultModule
	if u.Module != nil && len(u.Module.Path) > 0 {
		path = strings.Join(u.Module.Path, ".")
	} else {
		b.bag.Warnf(b.moduleSpan(u), diag.CodeImplicitModule,
			"unit %q has no module declaration; assuming module %s", u.Name, DefaultModule)
	}
	b.UnitModule[u] = path

	scope, ok := b.moduleScopes[path]
	if !ok {
		scope = b.table.NewModuleScope()
		b.moduleScopes[path] = scope
	}

	for _, imp := range u.Imports {
		b.declareImport(u, scope, imp)
	}
	for _, d := range u.Decls {
		b.declareTop(u, scope, d)
	}
}

func (b *Builder) declareImport(u *ast.Unit, scope ScopeID, imp *ast.ImportDecl) {
	for _, n := range imp.Names {
		bound := n.Exported
		if n.Alias != "" {
			bound = n.Alias
		}
		sym := Symbol{
			Name:         bound,
			Kind:         KindImported,
			Pos:          imp.Pos(),
			DeclUnit:     u.Name,
			ImportedFrom: imp.FromModule,
			ImportedName: n.Exported,
		}
		if _, ok := b.table.Declare(scope, sym); !ok {
			b.bag.Errorf(b.moduleSpan(u), diag.CodeDuplicateDeclaration,
				"%q is already declared in this module", bound)
		}
	}
}

func (b *Builder) declareTop(u *ast.Unit, scope ScopeID, d ast.Decl) {
	switch d := d.(type) {
	case *ast.FuncDecl:
		b.declareFunc(u, scope, d)
	case *ast.VarDecl:
		b.declareVar(u, scope, d, KindVariable)
	case *ast.TypeAliasDecl:
		sym := Symbol{Name: d.Name, Kind: KindType, Pos: d.Pos(), DeclUnit: u.Name}
		if _, ok := b.table.Declare(scope, sym); !ok {
			b.dup(u, d.Name)
		}
	case *ast.EnumDecl:
		b.declareEnum(u, scope, d)
	case *ast.MapDecl:
		b.declareMap(u, scope, d)
	default:
		panic("symbols: declareTop: unhandled decl kind")
	}
}

func (b *Builder) dup(u *ast.Unit, name string) {
	b.bag.Errorf(b.moduleSpan(u), diag.CodeDuplicateDeclaration, "%q is already declared in this scope", name)
}

func (b *Builder) declareFunc(u *ast.Unit, moduleScope ScopeID, d *ast.FuncDecl) {
	funcSym := Symbol{
		Name:    d.Name,
		Kind:    KindFunction,
		Export:  d.Export || d.Name == "main",
		Pos:     d.Pos(),
		DeclUnit: u.Name,
	}
	id, ok := b.table.Declare(moduleScope, funcSym)
	if !ok {
		b.dup(u, d.Name)
		return
	}
	if d.Name == "main" && !d.Export {
		b.bag.Warnf(b.moduleSpan(u), diag.CodeImplicitMainExport, "bare main was auto-exported")
	}

	fnScope := b.table.NewFunctionScope(moduleScope, id)
	// A function symbol's Scope is its own body scope: the checker, the
	// allocator and the IL generator all look parameters and locals up
	// through it.
	b.table.Symbol(id).Scope = fnScope
	for _, p := range d.Params {
		psym := Symbol{Name: p.Name, Kind: KindParameter, Pos: p.Pos(), DeclUnit: u.Name}
		if _, ok := b.table.Declare(fnScope, psym); !ok {
			b.dup(u, p.Name)
		}
	}
	if d.Body != nil {
		b.declareBlock(u, fnScope, d.Body)
	}
}

// declareBlock walks statements looking only for VarDecls, since
// Blend65 is function-scoped (spec §3): if/while/for/match bodies
// declare directly into fnScope, never into a new block scope.
func (b *Builder) declareBlock(u *ast.Unit, fnScope ScopeID, block *ast.Block) {
	for _, s := range block.Stmts {
		b.declareStmt(u, fnScope, s)
	}
}

func (b *Builder) declareStmt(u *ast.Unit, fnScope ScopeID, s ast.Stmt) {
	switch s := s.(type) {
	case *ast.DeclStmt:
		b.declareVar(u, fnScope, s.Decl, KindVariable)
	case *ast.Block:
		b.declareBlock(u, fnScope, s)
	case *ast.IfStmt:
		b.declareBlock(u, fnScope, s.Then)
		switch e := s.Else.(type) {
		case *ast.Block:
			b.declareBlock(u, fnScope, e)
		case *ast.IfStmt:
			b.declareStmt(u, fnScope, e)
		}
	case *ast.WhileStmt:
		b.declareBlock(u, fnScope, s.Body)
	case *ast.DoWhileStmt:
		b.declareBlock(u, fnScope, s.Body)
	case *ast.ForStmt:
		// The loop induction variable is itself a function-scoped
		// declaration (spec §6 "for i from A to B [step S]").
		sym := Symbol{Name: s.Var, Kind: KindVariable, Pos: s.Pos(), DeclUnit: u.Name}
		if _, ok := b.table.Declare(fnScope, sym); !ok {
			b.dup(u, s.Var)
		}
		b.declareBlock(u, fnScope, s.Body)
	case *ast.MatchStmt:
		for _, c := range s.Cases {
			b.declareBlock(u, fnScope, c.Body)
		}
	case *ast.ReturnStmt, *ast.BreakStmt, *ast.ContinueStmt, *ast.ExprStmt:
		// no declarations
	default:
		panic("symbols: declareStmt: unhandled stmt kind")
	}
}

func (b *Builder) declareVar(u *ast.Unit, scope ScopeID, d *ast.VarDecl, kind Kind) {
	if d.Storage == ast.StorageMap && scope != 0 {
		if b.table.Scope(scope).Kind != ScopeModule {
			b.bag.Errorf(b.moduleSpan(u), diag.CodeInvalidStorageClass, "@map is only legal at module scope")
		}
	}
	sym := Symbol{
		Name:    d.Name,
		Kind:    kind,
		Const:   d.Const,
		Storage: convertStorage(d.Storage),
		Pos:     d.Pos(),
		DeclUnit: u.Name,
	}
	if _, ok := b.table.Declare(scope, sym); !ok {
		b.dup(u, d.Name)
	}
}

func (b *Builder) declareEnum(u *ast.Unit, scope ScopeID, d *ast.EnumDecl) {
	sym := Symbol{Name: d.Name, Kind: KindEnum, Pos: d.Pos(), DeclUnit: u.Name}
	enumID, ok := b.table.Declare(scope, sym)
	if !ok {
		b.dup(u, d.Name)
		return
	}
	for _, m := range d.Members {
		msym := Symbol{Name: d.Name + "." + m.Name, Kind: KindEnumMember, Pos: m.Pos(), DeclUnit: u.Name}
		if _, ok := b.table.Declare(scope, msym); !ok {
			b.dup(u, msym.Name)
		}
	}
	_ = enumID
}

// declareMap declares a `@map` module-scope variable (spec §3, §6)
// and resolves its address: either the single literal of
// `@map NAME at <addr>: T;` or the lo/hi pair of
// `@map NAME from <lo> to <hi>: T[N];`. Type resolution is a later
// pass's job (package symbols never resolves types), but the address
// is just a literal (spec §7 "AddressOutOfRange (@map literal outside
// memory)"), so it is settled here, against the platform's address
// space.
func (b *Builder) declareMap(u *ast.Unit, scope ScopeID, d *ast.MapDecl) {
	if b.table.Scope(scope).Kind != ScopeModule {
		b.bag.Errorf(b.moduleSpan(u), diag.CodeInvalidStorageClass, "@map is only legal at module scope")
	}
	sym := Symbol{Name: d.Name, Kind: KindMapVariable, Storage: StorageMap, Pos: d.Pos(), DeclUnit: u.Name}

	switch {
	case d.Addr != nil:
		addr, ok := mapLiteral(d.Addr)
		if !ok {
			b.bag.Errorf(b.moduleSpan(u), diag.CodeAddressOutOfRange, "@map %q address must be a literal", d.Name)
			break
		}
		if !b.plat.AddressSpace.Contains(addr) {
			b.bag.Errorf(b.moduleSpan(u), diag.CodeAddressOutOfRange,
				"@map %q address $%X falls outside the %s address space", d.Name, addr, b.plat.Name)
		}
		sym.MapAddress = addr
	case d.From != nil:
		lo, okLo := mapLiteral(d.From)
		hi, okHi := mapLiteral(d.To)
		if !okLo || !okHi {
			b.bag.Errorf(b.moduleSpan(u), diag.CodeAddressOutOfRange, "@map %q range bounds must be literals", d.Name)
			break
		}
		if !b.plat.AddressSpace.Contains(lo) || !b.plat.AddressSpace.Contains(hi) {
			b.bag.Errorf(b.moduleSpan(u), diag.CodeAddressOutOfRange,
				"@map %q range $%X..$%X falls outside the %s address space", d.Name, lo, hi, b.plat.Name)
		}
		sym.MapAddress = lo
		sym.MapAddressHi = hi
	}

	if _, ok := b.table.Declare(scope, sym); !ok {
		b.dup(u, d.Name)
	}
}

// mapLiteral extracts a `@map` address/bound, which the grammar only
// ever admits as a literal integer (spec §6), never a general constant
// expression.
func mapLiteral(e ast.Expr) (int, bool) {
	lit, ok := e.(*ast.IntLit)
	if !ok {
		return 0, false
	}
	return int(lit.Value), true
}

func convertStorage(s ast.StorageClass) StorageClass {
	switch s {
	case ast.StorageZP:
		return StorageZP
	case ast.StorageRAM:
		return StorageRAM
	case ast.StorageData:
		return StorageData
	case ast.StorageMap:
		return StorageMap
	default:
		return StorageNone
	}
}
