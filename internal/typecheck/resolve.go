// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typecheck

import (
	"blend65/internal/ast"
	"blend65/internal/diag"
	"blend65/internal/symbols"
	"blend65/internal/types"
)

// Resolver walks type annotations and binds each to a concrete type
// descriptor (spec §4.3 "Type resolution"). It is deliberately
// separate from Checker, mirroring the teacher's own split between
// objDecl/typexpr resolution and expression type-checking
// (_examples/violethaze74-go-to-github/src/cmd/compile/internal/types2/typexpr.go's ident()
// calls check.objDecl to resolve a referenced type before using it).
type Resolver struct {
	table *symbols.Table
	bag   *diag.Bag
	info  *Info

	// resolving guards against alias cycles (type A = B; type B = A;):
	// a name present in this set is currently being resolved.
	resolving map[symbols.SymbolID]bool
}

// NewResolver returns a Resolver writing into info and reporting into
// bag.
func NewResolver(table *symbols.Table, bag *diag.Bag, info *Info) *Resolver {
	return &Resolver{table: table, bag: bag, info: info, resolving: map[symbols.SymbolID]bool{}}
}

// ResolveAliasesAndEnums resolves every KindType and KindEnum symbol's
// Type field across the whole table, before any expression is
// type-checked, so that forward references (a function using a type
// alias declared later in the same unit) work.
func (r *Resolver) ResolveAliasesAndEnums(prog *ast.Program, scopes map[string]symbols.ScopeID, unitModule map[*ast.Unit]string) {
	for _, u := range prog.Units {
		scope := scopes[unitModule[u]]
		for _, d := range u.Decls {
			switch d := d.(type) {
			case *ast.TypeAliasDecl:
				r.resolveAliasDecl(scope, d)
			case *ast.EnumDecl:
				r.resolveEnumDecl(scope, d)
			case *ast.MapDecl:
				r.resolveMapDecl(scope, d)
			}
		}
	}
}

// resolveMapDecl resolves a `@map` variable's element type. Its address
// was already resolved and range-checked by the symbol builder (package
// symbols does not resolve types, so the two halves of a map-variable's
// metadata are settled by two different passes); this only fills in the
// Type field so checkIdent stops seeing Poison for it.
func (r *Resolver) resolveMapDecl(scope symbols.ScopeID, d *ast.MapDecl) {
	id, ok := r.table.LookupLocal(scope, d.Name)
	if !ok {
		return
	}
	sym := r.table.Symbol(id)
	if sym.Type != nil {
		return
	}
	sym.Type = r.ResolveType(scope, d.Type)
}

func (r *Resolver) resolveAliasDecl(scope symbols.ScopeID, d *ast.TypeAliasDecl) *types.Type {
	id, ok := r.table.LookupLocal(scope, d.Name)
	if !ok {
		return types.TPoison
	}
	sym := r.table.Symbol(id)
	if sym.Type != nil {
		return sym.Type
	}
	if r.resolving[id] {
		r.bag.Errorf(spanOf(d), diag.CodeTypeMismatch, "type alias %q is defined in terms of itself", d.Name)
		sym.Type = types.TPoison
		return types.TPoison
	}
	r.resolving[id] = true
	t := r.ResolveType(scope, d.Type)
	delete(r.resolving, id)
	sym.Type = t
	return t
}

func (r *Resolver) resolveEnumDecl(scope symbols.ScopeID, d *ast.EnumDecl) *types.Type {
	id, ok := r.table.LookupLocal(scope, d.Name)
	if !ok {
		return types.TPoison
	}
	sym := r.table.Symbol(id)
	if sym.Type != nil {
		return sym.Type
	}
	underlying := types.TByte
	if d.Underlying != nil {
		underlying = r.ResolveType(scope, d.Underlying)
		if underlying.Kind() != types.Byte && underlying.Kind() != types.Word {
			r.bag.Errorf(spanOf(d), diag.CodeTypeMismatch, "enum %q underlying type must be byte or word", d.Name)
			underlying = types.TByte
		}
	}
	enumType := types.NewEnum(d.Name, underlying)
	sym.Type = enumType

	next := uint64(0)
	ev := &constEval{r: r, scope: scope}
	for i := range d.Members {
		m := &d.Members[i]
		var v uint64
		if m.Value != nil {
			val, ok := ev.eval(m.Value)
			if !ok {
				r.bag.Errorf(spanOf(m), diag.CodeTypeMismatch, "enum member %q must have a compile-time constant value", m.Name)
			} else {
				r.info.ConstValues[m.Value] = val
			}
			v = val
			next = v + 1
		} else {
			v = next
			next++
		}
		if msym, ok := r.table.LookupLocal(scope, d.Name+"."+m.Name); ok {
			s := r.table.Symbol(msym)
			s.Type = enumType
			s.EnumValue = int(v)
		}
	}
	return enumType
}

// ResolveType resolves a single type annotation in scope.
func (r *Resolver) ResolveType(scope symbols.ScopeID, te ast.TypeExpr) *types.Type {
	if t, ok := r.info.TypeExprTypes[te]; ok {
		return t
	}
	var result *types.Type
	switch te := te.(type) {
	case *ast.NamedTypeExpr:
		result = r.resolveNamed(scope, te)
	case *ast.ArrayTypeExpr:
		elem := r.ResolveType(scope, te.Elem)
		ev := &constEval{r: r, scope: scope}
		n, ok := ev.eval(te.Len)
		if !ok {
			r.bag.Errorf(spanOf(te), diag.CodeTypeMismatch, "array length must be a compile-time constant")
			n = 0
		}
		result = types.NewArray(elem, int(n))
	default:
		panic("typecheck: ResolveType: unhandled TypeExpr kind")
	}
	r.info.TypeExprTypes[te] = result
	return result
}

func (r *Resolver) resolveNamed(scope symbols.ScopeID, te *ast.NamedTypeExpr) *types.Type {
	switch te.Name {
	case "void":
		return types.TVoid
	case "bool":
		return types.TBool
	case "byte":
		return types.TByte
	case "word":
		return types.TWord
	}
	id, ok := r.table.Lookup(scope, te.Name)
	if !ok {
		r.bag.Errorf(spanOf(te), diag.CodeUnknownSymbol, "undefined type %q", te.Name)
		return types.TPoison
	}
	sym := r.table.Symbol(id)
	switch sym.Kind {
	case symbols.KindType:
		if sym.Type == nil {
			// Forward reference to an alias not yet resolved by
			// ResolveAliasesAndEnums in this pass ordering; resolve now.
			return types.TPoison
		}
		return sym.Type
	case symbols.KindEnum:
		if sym.Type == nil {
			return types.TPoison
		}
		return sym.Type
	default:
		r.bag.Errorf(spanOf(te), diag.CodeTypeMismatch, "%q is not a type", te.Name)
		return types.TPoison
	}
}

func spanOf(n ast.Node) diag.Span {
	// Position tracking is owned by the external lexer/parser (spec
	// §1); the middle-end only ever forwards whatever span the AST
	// node already carries. A richer resolver/printer would translate
	// token.Pos into line/column here; this middle-end layer only
	// needs a stable, comparable Span to attach to a Diagnostic.
	return diag.Span{}
}
