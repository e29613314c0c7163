// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package typecheck implements the type resolver and type checker
// (spec §4.3). Both are walks over the AST keyed by the symbol table
// built by package symbols; resolved facts are written to an Info side
// table rather than back into the AST nodes themselves, so that the
// tree stays append-only (spec §9 "Metadata on AST nodes": "Implement
// with a per-node side table... rather than mutating node objects").
// The design is grounded on cmd/compile/internal/types2's identifier
// and expression checking (see _examples/violethaze74-go-to-github/src/cmd/compile/internal/types2/typexpr.go,
// subst.go), adapted from Go's open, generic type system down to
// Blend65's small closed one (package types).
package typecheck

import (
	"blend65/internal/ast"
	"blend65/internal/symbols"
	"blend65/internal/types"
)

// Info accumulates every fact the resolver and checker compute.
type Info struct {
	// ExprTypes maps every type-checked expression to its resolved
	// type (spec §4.3 "computing a type for every expression").
	ExprTypes map[ast.Expr]*types.Type

	// TypeExprTypes maps every resolved type annotation to its
	// concrete type descriptor (spec §4.3 "Type resolution").
	TypeExprTypes map[ast.TypeExpr]*types.Type

	// IdentSymbols maps an identifier reference to the symbol it
	// resolved to.
	IdentSymbols map[*ast.Ident]symbols.SymbolID

	// CalleeSymbols maps a CallExpr to the function symbol it calls,
	// when the callee is an ordinary function (not an intrinsic).
	CalleeSymbols map[*ast.CallExpr]symbols.SymbolID

	// Intrinsics maps a CallExpr to the intrinsic it invokes, for the
	// peek/poke/hi/lo/len family (spec §4.3, §4.7).
	Intrinsics map[*ast.CallExpr]Intrinsic

	// FuncReturnTypes maps a FuncDecl to its resolved return type
	// (types.TVoid when absent).
	FuncReturnTypes map[*ast.FuncDecl]*types.Type

	// FuncSymbols maps a FuncDecl to its symbol, for callers (e.g. the
	// call graph builder) that only have the declaration in hand.
	FuncSymbols map[*ast.FuncDecl]symbols.SymbolID

	// ConstValues holds the evaluated value of each explicit enum
	// member value expression. Array lengths and sizeof operands are
	// evaluated by the resolver but not recorded here.
	ConstValues map[ast.Expr]uint64

	// FuncParamTypes holds each function's parameter types in
	// declaration order, keyed by the function's own symbol. It is
	// populated by a signature pre-pass before any body is checked, so
	// that a call to a function declared later in the same unit (or
	// mutually recursive with the caller) still sees the right argument
	// types.
	FuncParamTypes map[symbols.SymbolID][]*types.Type
}

// NewInfo returns an empty Info with every map initialized.
func NewInfo() *Info {
	return &Info{
		ExprTypes:       map[ast.Expr]*types.Type{},
		TypeExprTypes:   map[ast.TypeExpr]*types.Type{},
		IdentSymbols:    map[*ast.Ident]symbols.SymbolID{},
		CalleeSymbols:   map[*ast.CallExpr]symbols.SymbolID{},
		Intrinsics:      map[*ast.CallExpr]Intrinsic{},
		FuncReturnTypes: map[*ast.FuncDecl]*types.Type{},
		FuncSymbols:     map[*ast.FuncDecl]symbols.SymbolID{},
		ConstValues:     map[ast.Expr]uint64{},
		FuncParamTypes:  map[symbols.SymbolID][]*types.Type{},
	}
}

// TypeOf returns the resolved type of e, or types.TPoison if e was
// never type-checked (defensive default; should not happen for a
// fully-walked tree).
func (info *Info) TypeOf(e ast.Expr) *types.Type {
	if t, ok := info.ExprTypes[e]; ok {
		return t
	}
	return types.TPoison
}

// Intrinsic is the closed set of compiler-recognized intrinsic forms
// (spec §4.3, GLOSSARY "Intrinsic").
type Intrinsic int

const (
	NotIntrinsic Intrinsic = iota
	IntrinsicPeek
	IntrinsicPeekW
	IntrinsicPoke
	IntrinsicPokeW
	IntrinsicHi
	IntrinsicLo
	IntrinsicLen
	IntrinsicSizeof
)

var intrinsicNames = map[string]Intrinsic{
	"peek":  IntrinsicPeek,
	"peekw": IntrinsicPeekW,
	"poke":  IntrinsicPoke,
	"pokew": IntrinsicPokeW,
	"hi":    IntrinsicHi,
	"lo":    IntrinsicLo,
	"len":   IntrinsicLen,
}
