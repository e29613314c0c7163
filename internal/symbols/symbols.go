// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symbols implements the symbol table and scope tree (spec
// §3 "Symbols"/"Scopes", §4.2). Symbols and scopes are arena-allocated
// and referenced by small integer handles (SymbolID, ScopeID), the
// same "global index, not pointer" discipline cmd/link/internal/loader
// uses for its Sym type and cmd/link/internal/sym.Symbols uses for its
// Lookup/Newsym table — see _examples/violethaze74-go-to-github/src/cmd/link/internal/loader/loader.go
// and _examples/violethaze74-go-to-github/src/cmd/link/internal/sym/symbols.go. Spec §9 asks for
// exactly this ("index-based references... arena that owns all
// nodes") instead of pointer cycles between symbols and scopes.
package symbols

import (
	"blend65/internal/token"
	"blend65/internal/types"
)

// Kind is the closed set of symbol kinds (spec §3).
type Kind int

const (
	KindVariable Kind = iota
	KindFunction
	KindParameter
	KindMapVariable
	KindImported
	KindType
	KindEnum
	KindEnumMember
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindFunction:
		return "function"
	case KindParameter:
		return "parameter"
	case KindMapVariable:
		return "map-variable"
	case KindImported:
		return "imported"
	case KindType:
		return "type"
	case KindEnum:
		return "enum"
	case KindEnumMember:
		return "enum-member"
	default:
		return "unknown"
	}
}

// StorageClass mirrors ast.StorageClass without importing package ast,
// keeping symbols a leaf package the AST-driven builder depends on,
// not the other way around.
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageZP
	StorageRAM
	StorageData
	StorageMap
)

// SymbolID is an arena index into a Table's symbol slice. The zero
// value is never a valid symbol (mirrors loader.Sym's "0 is invalid").
type SymbolID int

// ScopeID is an arena index into a Table's scope slice.
type ScopeID int

// InvalidSymbol (the zero SymbolID) and NoScope (-1, the parent of a
// module scope) are sentinel values.
const (
	InvalidSymbol SymbolID = 0
	NoScope       ScopeID  = -1
)

// Symbol is one declared name (spec §3 "Symbols").
type Symbol struct {
	ID       SymbolID
	Name     string
	Kind     Kind
	Type     *types.Type
	Storage  StorageClass
	Export   bool
	Const    bool
	Scope    ScopeID
	Pos      token.Pos
	DeclUnit string

	// MapAddress is set only for KindMapVariable; it is the resolved
	// literal hardware address (spec §3 "metadata (e.g., address for
	// map-variables)"), validated by the symbol builder against the
	// platform's address space.
	MapAddress   int
	MapAddressHi int // for "from lo to hi" ranges; MapAddress holds lo

	// EnumValue is set only for KindEnumMember; it is the member's
	// resolved ordinal (explicit or auto-incremented). Kept separate
	// from MapAddress, which means something else entirely for
	// KindMapVariable symbols.
	EnumValue int

	// ImportedFrom records the originating module path for a
	// KindImported symbol (spec §4.2 "the referenced module is recorded
	// for later cross-module resolution").
	ImportedFrom []string
	ImportedName string // the exported name in the source module
}

// ScopeKind distinguishes module scope from function scope. Blend65
// has no block scopes (spec §3): if/while/for/match never open one.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
)

// Scope is one node of the scope tree.
type Scope struct {
	ID       ScopeID
	Kind     ScopeKind
	Parent   ScopeID // NoScope for the module scope
	Children []ScopeID
	Names    map[string]SymbolID
	// FuncSymbol is set for function scopes: the symbol of the function
	// that owns this scope.
	FuncSymbol SymbolID
}

// Table is the arena owning every Symbol and Scope produced during a
// compilation (spec §3 "Lifecycle": symbols are created during the
// symbol-table builder pass and read-only after).
type Table struct {
	symbols []Symbol
	scopes  []Scope
}

// NewTable returns an empty arena with symbol index 0 reserved as the
// invalid sentinel, matching SymbolID's "0 is invalid" convention.
// Scopes are numbered from 0; no scope index is reserved.
func NewTable() *Table {
	t := &Table{}
	t.symbols = append(t.symbols, Symbol{}) // index 0: invalid sentinel
	return t
}

// NewModuleScope creates the root scope (spec §4.2 "Creates the module
// scope at the program root").
func (t *Table) NewModuleScope() ScopeID {
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, Scope{ID: id, Kind: ScopeModule, Parent: NoScope, Names: map[string]SymbolID{}})
	return id
}

// NewFunctionScope creates a child function scope of parent, owned by
// funcSym.
func (t *Table) NewFunctionScope(parent ScopeID, funcSym SymbolID) ScopeID {
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, Scope{ID: id, Kind: ScopeFunction, Parent: parent, Names: map[string]SymbolID{}, FuncSymbol: funcSym})
	t.scopes[parent].Children = append(t.scopes[parent].Children, id)
	return id
}

// Scope returns the scope for id.
func (t *Table) Scope(id ScopeID) *Scope { return &t.scopes[id] }

// Symbol returns the symbol for id.
func (t *Table) Symbol(id SymbolID) *Symbol { return &t.symbols[id] }

// AllSymbols returns every declared symbol in insertion (declaration)
// order, matching spec §5's "for each variable or function, enumeration
// order is insertion order."
func (t *Table) AllSymbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.symbols)-1)
	for i := range t.symbols {
		if SymbolID(i) == InvalidSymbol {
			continue
		}
		out = append(out, &t.symbols[i])
	}
	return out
}

// Declare inserts sym into scope, failing if a symbol with the same
// name already exists in that exact scope (spec §4.2
// "DuplicateDeclaration ... if a symbol with the same name already
// exists in the same scope"). Shadowing across scope boundaries is
// allowed (spec §3), so Declare never checks ancestor scopes.
func (t *Table) Declare(scope ScopeID, sym Symbol) (SymbolID, bool) {
	sc := &t.scopes[scope]
	if _, exists := sc.Names[sym.Name]; exists {
		return InvalidSymbol, false
	}
	id := SymbolID(len(t.symbols))
	sym.ID = id
	sym.Scope = scope
	t.symbols = append(t.symbols, sym)
	sc.Names[sym.Name] = id
	return id, true
}

// Lookup resolves name starting at scope and walking the parent chain
// (spec §4.3 "Identifiers: look up in enclosing scopes").
func (t *Table) Lookup(scope ScopeID, name string) (SymbolID, bool) {
	for s := scope; s != NoScope; s = t.scopes[s].Parent {
		if id, ok := t.scopes[s].Names[name]; ok {
			return id, true
		}
	}
	return InvalidSymbol, false
}

// LookupLocal resolves name only within scope itself, with no parent
// walk; used by the allocator and IL generator when they already know
// which function's scope a slot belongs to.
func (t *Table) LookupLocal(scope ScopeID, name string) (SymbolID, bool) {
	id, ok := t.scopes[scope].Names[name]
	return id, ok
}
