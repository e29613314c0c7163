// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ast defines Blend65's abstract syntax tree (spec §6 surface
// syntax) as a closed set of node kinds. Nodes are plain structs
// implementing the Node interface; there is no inheritance chain (spec
// §9 "Polymorphism": "Implement as a tagged union ... rather than open
// inheritance"). Per spec §9 "Cyclic structures," back-references
// (e.g. a call expression's resolved callee symbol) are attached via
// the per-node side tables of package typecheck (Info), not by mutating
// these structs, so the tree itself stays append-only.
package ast

import "blend65/internal/token"

// Node is implemented by every AST node. It intentionally exposes only
// position information; everything else is reached via a type switch
// (see walk.go), which is what keeps the node set closed.
type Node interface {
	Pos() token.Pos
	End() token.Pos
	astNode()
}

type base struct {
	StartPos, EndPos token.Pos
}

func (b base) Pos() token.Pos { return b.StartPos }
func (b base) End() token.Pos { return b.EndPos }
func (base) astNode()         {}

// StorageClass is the annotation recorded on a variable declaration
// (spec §3 "Storage classes").
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageZP
	StorageRAM
	StorageData
	StorageMap
)

func (s StorageClass) String() string {
	switch s {
	case StorageZP:
		return "@zp"
	case StorageRAM:
		return "@ram"
	case StorageData:
		return "@data"
	case StorageMap:
		return "@map"
	default:
		return ""
	}
}

// ---- Program & declarations -------------------------------------------------

// Program is the root node: one parsed and prepended source unit list
// (spec §6 "Library loading").
type Program struct {
	base
	Units []*Unit
}

// Unit is a single parsed source file (or prepended library source).
type Unit struct {
	base
	Name    string // for diagnostics only; not used for module resolution
	Module  *ModuleDecl
	Imports []*ImportDecl
	Decls   []Decl
}

// Decl is any top-level declaration: FuncDecl, VarDecl, TypeAliasDecl,
// EnumDecl, or MapDecl.
type Decl interface {
	Node
	declNode()
}

// ModuleDecl is `module Q.N.M;`. A Unit with no ModuleDecl is
// equivalent to `module Main;` (spec §6), which the symbol table
// builder synthesizes and flags with ImplicitModule.
type ModuleDecl struct {
	base
	Path []string // dotted path segments
}

// ImportDecl is `import {a, b as c} from M.N;`.
type ImportDecl struct {
	base
	FromModule []string
	Names      []ImportedName
}

type ImportedName struct {
	Exported string
	Alias    string // "" if no "as" clause; bound name is Exported then
}

// FuncDecl is a function declaration, with optional `export`/`callback`
// prefixes (spec §6).
type FuncDecl struct {
	base
	Name       string
	Export     bool
	Callback   bool
	Params     []*ParamDecl
	ReturnType TypeExpr // nil for void
	Body       *Block
}

func (*FuncDecl) declNode() {}

type ParamDecl struct {
	base
	Name string
	Type TypeExpr
}

// VarDecl is `let`/`const` with an optional storage-class annotation.
// It doubles as both a top-level (module-scope) and function-local
// declaration; Blend65 is function-scoped (spec §3 "Scopes"), so a
// VarDecl appearing inside any statement still declares into the
// enclosing function's scope, never a new block scope.
type VarDecl struct {
	base
	Name         string
	Const        bool
	Storage      StorageClass
	MapAddr      Expr     // for @map NAME at <addr>: T;  (nil otherwise)
	MapFrom, MapTo Expr   // for @map NAME from <lo> to <hi>: T[N]; (nil otherwise)
	Type         TypeExpr // may be nil if inferred from Init
	Init         Expr     // may be nil
}

func (*VarDecl) declNode() {}

// TypeAliasDecl is `type Name = T;`.
type TypeAliasDecl struct {
	base
	Name string
	Type TypeExpr
}

func (*TypeAliasDecl) declNode() {}

// EnumDecl is `enum Name { A, B, C }`, optionally `enum Name: word { ... }`.
type EnumDecl struct {
	base
	Name       string
	Underlying TypeExpr // nil => defaults to byte
	Members    []EnumMember
}

func (*EnumDecl) declNode() {}

type EnumMember struct {
	base
	Name  string
	Value Expr // explicit value, or nil for auto-increment
}

// MapDecl is `@map NAME at <addr>: T;` or `@map NAME from <lo> to <hi>: T[N];`,
// legal only at module scope (spec §3, §4.6 Phase B).
type MapDecl struct {
	base
	Name    string
	Addr    Expr // set when using "at <addr>"
	From    Expr // set when using "from <lo> to <hi>"
	To      Expr
	Type    TypeExpr
}

func (*MapDecl) declNode() {}

// ---- Type expressions -------------------------------------------------------

// TypeExpr is a parsed, not-yet-resolved type annotation.
type TypeExpr interface {
	Node
	typeExprNode()
}

// NamedTypeExpr is a bare identifier type reference: void, bool, byte,
// word, or a declared type alias/enum name.
type NamedTypeExpr struct {
	base
	Name string
}

func (*NamedTypeExpr) typeExprNode() {}

// ArrayTypeExpr is `T[N]`.
type ArrayTypeExpr struct {
	base
	Elem TypeExpr
	Len  Expr // must be a compile-time constant
}

func (*ArrayTypeExpr) typeExprNode() {}

// ---- Statements --------------------------------------------------------------

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Block is `{ ... }`. Per spec §3, a Block never opens a new scope;
// it is purely a sequencing container.
type Block struct {
	base
	Stmts []Stmt
}

func (*Block) stmtNode() {}

// DeclStmt wraps a VarDecl appearing as a statement inside a function
// body.
type DeclStmt struct {
	base
	Decl *VarDecl
}

func (*DeclStmt) stmtNode() {}

type IfStmt struct {
	base
	Cond Expr
	Then *Block
	Else Node // *Block or *IfStmt (else-if chaining), or nil
}

func (*IfStmt) stmtNode() {}

type WhileStmt struct {
	base
	Cond Expr
	Body *Block
}

func (*WhileStmt) stmtNode() {}

type DoWhileStmt struct {
	base
	Body *Block
	Cond Expr
}

func (*DoWhileStmt) stmtNode() {}

// ForStmt is `for i from A to B [step S] { ... }`.
type ForStmt struct {
	base
	Var       string
	From, To  Expr
	Step      Expr // nil => implicit 1
	Inclusive bool // `to` bound inclusive (spec default) vs exclusive
	Body      *Block
}

func (*ForStmt) stmtNode() {}

type MatchStmt struct {
	base
	Subject Expr
	Cases   []*MatchCase
}

func (*MatchStmt) stmtNode() {}

type MatchCase struct {
	base
	Values  []Expr // empty for the default arm, which sets Default
	Default bool
	Body    *Block
}

type ReturnStmt struct {
	base
	Value Expr // nil for void return
}

func (*ReturnStmt) stmtNode() {}

type BreakStmt struct{ base }

func (*BreakStmt) stmtNode() {}

type ContinueStmt struct{ base }

func (*ContinueStmt) stmtNode() {}

type ExprStmt struct {
	base
	X Expr
}

func (*ExprStmt) stmtNode() {}

// ---- Expressions --------------------------------------------------------------

// Expr is any expression node.
type Expr interface {
	Node
	exprNode()
}

type Ident struct {
	base
	Name string
}

func (*Ident) exprNode() {}

// IntLit covers decimal, $hex, 0xhex, and 0b binary literals; the
// parser normalizes all four surface forms to a single uint64 value
// (spec §6).
type IntLit struct {
	base
	Value uint64
}

func (*IntLit) exprNode() {}

type StringLit struct {
	base
	Value string
}

func (*StringLit) exprNode() {}

type BoolLit struct {
	base
	Value bool
}

func (*BoolLit) exprNode() {}

type ArrayLit struct {
	base
	Elems []Expr
}

func (*ArrayLit) exprNode() {}

// BinaryOp is the closed set of binary operators (spec §6 "full
// C-like precedence; shifts and bitwise included").
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogAnd
	OpLogOr
)

type BinaryExpr struct {
	base
	Op          BinaryOp
	Left, Right Expr
}

func (*BinaryExpr) exprNode() {}

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPos
	OpBitNot
	OpLogNot
)

type UnaryExpr struct {
	base
	Op UnaryOp
	X  Expr
}

func (*UnaryExpr) exprNode() {}

// CallExpr covers both ordinary function calls and the intrinsic
// forms peek/poke/peekw/pokew/hi/lo/len/sizeof; the type checker (spec
// §4.3) distinguishes them by looking up Callee's name against the
// fixed intrinsic set, not by a separate node kind, since syntactically
// they are indistinguishable from calls.
type CallExpr struct {
	base
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// SizeofExpr is the compile-time constant form distinguished
// syntactically because its operand is a type, not an expression,
// unlike every other intrinsic (len, for one, is an ordinary CallExpr).
type SizeofExpr struct {
	base
	Type TypeExpr
}

func (*SizeofExpr) exprNode() {}

type IndexExpr struct {
	base
	X     Expr
	Index Expr
}

func (*IndexExpr) exprNode() {}

// AssignExpr covers plain `=` and the compound forms `+= -= *= /=`.
type AssignOp int

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
)

type AssignExpr struct {
	base
	Op     AssignOp
	Target Expr
	Value  Expr
}

func (*AssignExpr) exprNode() {}
