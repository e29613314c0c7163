// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ast

import "testing"

// countingVisitor records every node kind it enters, in order, plus
// parent linkage for a sample of nodes.
type countingVisitor struct {
	BaseVisitor
	entries  []string
	w        *Walker
	parentOf map[string]string
}

func (v *countingVisitor) Enter(n Node) bool {
	v.entries = append(v.entries, kindName(n))
	if id, ok := n.(*Ident); ok {
		if p := v.w.Parent(); p != nil {
			if v.parentOf == nil {
				v.parentOf = map[string]string{}
			}
			// Keep the parent of each name's first occurrence only.
			if _, seen := v.parentOf[id.Name]; !seen {
				v.parentOf[id.Name] = kindName(p)
			}
		}
	}
	return false
}

func kindName(n Node) string {
	switch n.(type) {
	case *Block:
		return "Block"
	case *IfStmt:
		return "IfStmt"
	case *BinaryExpr:
		return "BinaryExpr"
	case *Ident:
		return "Ident"
	case *IntLit:
		return "IntLit"
	case *ReturnStmt:
		return "ReturnStmt"
	case *ExprStmt:
		return "ExprStmt"
	default:
		return "Other"
	}
}

func TestWalkPreOrderSourceOrder(t *testing.T) {
	// if (x < 10) { return x; }
	block := &Block{Stmts: []Stmt{
		&ReturnStmt{Value: &Ident{Name: "x"}},
	}}
	ifStmt := &IfStmt{
		Cond: &BinaryExpr{Op: OpLt, Left: &Ident{Name: "x"}, Right: &IntLit{Value: 10}},
		Then: block,
	}

	v := &countingVisitor{}
	w := NewWalker(v)
	v.w = w
	w.Walk(ifStmt)

	want := []string{"IfStmt", "BinaryExpr", "Ident", "IntLit", "Block", "ReturnStmt", "Ident"}
	if len(v.entries) != len(want) {
		t.Fatalf("got %v, want %v", v.entries, want)
	}
	for i := range want {
		if v.entries[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s (full: %v)", i, v.entries[i], want[i], v.entries)
		}
	}
	if v.parentOf["x"] != "BinaryExpr" {
		t.Errorf("first x's parent = %s, want BinaryExpr", v.parentOf["x"])
	}
}

// skipVisitor skips the subtree under any IfStmt it enters.
type skipVisitor struct {
	BaseVisitor
	entries []string
}

func (v *skipVisitor) Enter(n Node) bool {
	v.entries = append(v.entries, kindName(n))
	_, isIf := n.(*IfStmt)
	return isIf
}

func TestWalkSkipSuppressesChildrenOnly(t *testing.T) {
	inner := &Ident{Name: "inner"}
	ifStmt := &IfStmt{
		Cond: &Ident{Name: "cond"},
		Then: &Block{Stmts: []Stmt{&ExprStmt{X: inner}}},
	}
	outer := &Block{Stmts: []Stmt{ifStmt, &ExprStmt{X: &Ident{Name: "after"}}}}

	v := &skipVisitor{}
	w := NewWalker(v)
	w.Walk(outer)

	// IfStmt's children (cond, then-block, inner ident) must be
	// skipped, but traversal continues with the sibling ExprStmt.
	want := []string{"Block", "IfStmt", "ExprStmt", "Ident"}
	if len(v.entries) != len(want) {
		t.Fatalf("got %v, want %v", v.entries, want)
	}
	for i := range want {
		if v.entries[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s (full %v)", i, v.entries[i], want[i], v.entries)
		}
	}
}

// stopVisitor halts traversal entirely on the second Ident it sees.
type stopVisitor struct {
	BaseVisitor
	w        *Walker
	idents   int
	entries  []string
}

func (v *stopVisitor) Enter(n Node) bool {
	v.entries = append(v.entries, kindName(n))
	if _, ok := n.(*Ident); ok {
		v.idents++
		if v.idents == 2 {
			v.w.Stop()
		}
	}
	return false
}

func TestWalkStopAbortsEntireTraversal(t *testing.T) {
	block := &Block{Stmts: []Stmt{
		&ExprStmt{X: &Ident{Name: "a"}},
		&ExprStmt{X: &Ident{Name: "b"}},
		&ExprStmt{X: &Ident{Name: "c"}},
	}}
	v := &stopVisitor{}
	w := NewWalker(v)
	v.w = w
	w.Walk(block)

	if !w.Stopped() {
		t.Fatal("expected walker to be stopped")
	}
	// Must not have reached the third ExprStmt/Ident.
	for _, e := range v.entries {
		_ = e
	}
	if v.idents != 2 {
		t.Fatalf("expected traversal to stop right after the 2nd ident, saw %d", v.idents)
	}
}

func TestExitCalledPostOrder(t *testing.T) {
	var order []string
	enter := func(name string) { order = append(order, "enter:"+name) }
	exit := func(name string) { order = append(order, "exit:"+name) }

	v := &hookVisitor{onEnter: enter, onExit: exit}
	w := NewWalker(v)
	block := &Block{Stmts: []Stmt{&ExprStmt{X: &Ident{Name: "x"}}}}
	w.Walk(block)

	want := []string{"enter:Block", "enter:ExprStmt", "enter:Ident", "exit:Ident", "exit:ExprStmt", "exit:Block"}
	if len(order) != len(want) {
		t.Fatalf("got %v want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("at %d: got %s want %s (full %v)", i, order[i], want[i], order)
		}
	}
}

type hookVisitor struct {
	BaseVisitor
	onEnter, onExit func(string)
}

func (v *hookVisitor) Enter(n Node) bool {
	v.onEnter(kindName(n))
	return false
}
func (v *hookVisitor) Exit(n Node) {
	v.onExit(kindName(n))
}
