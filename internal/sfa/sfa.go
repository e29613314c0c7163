// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sfa implements the Static Frame Allocator (spec §4.6): the
// design thesis of the whole compiler. By prohibiting recursion and
// computing an inter-procedural call graph first (package callgraph),
// every function's local storage can be given a fixed address at
// compile time instead of a runtime stack, non-overlapping functions
// can share the same memory ("coalescing"), and hot variables can be
// promoted into the 6502's fast zero-page region.
//
// The six phases (A-F) run in sequence; each is a plain pass over the
// previous phase's output, the same "one platform.Config value threads
// through every phase instead of a global" discipline
// _examples/violethaze74-go-to-github/src/cmd/link/internal/ld/target.go's
// Target struct and its per-architecture predicate methods use for the
// linker's own target-specific branching.
package sfa

import (
	"blend65/internal/ast"
	"blend65/internal/callgraph"
	"blend65/internal/cfg"
	"blend65/internal/diag"
	"blend65/internal/platform"
	"blend65/internal/symbols"
	"blend65/internal/typecheck"
	"blend65/internal/types"
)

// Location is where a slot ultimately lives.
type Location int

const (
	LocNone Location = iota
	LocZeroPage
	LocFrameRegion
)

func (l Location) String() string {
	switch l {
	case LocZeroPage:
		return "zero-page"
	case LocFrameRegion:
		return "frame-region"
	default:
		return "none"
	}
}

// SlotKind distinguishes the four sources of a frame slot (spec §4.6
// Phase A).
type SlotKind int

const (
	SlotParam SlotKind = iota
	SlotReturn
	SlotLocal
	SlotTemp
)

// Directive is a slot's zero-page placement directive, derived from its
// declaring variable's storage class (spec §4.6 Phase B).
type Directive int

const (
	DirNone Directive = iota
	DirRequired
	DirForbidden
)

// Slot is one unit of a function's frame (spec §4.6 Phase A: "a slot
// for each parameter ... a return slot ... a slot for each local ...
// compiler-generated temporary slots").
type Slot struct {
	Name      string
	Kind      SlotKind
	Symbol    symbols.SymbolID // InvalidSymbol for SlotReturn and SlotTemp
	Type      *types.Type
	Size      int
	Directive Directive
	Score     float64

	Location Location
	Address  int
	// Offset is the slot's byte offset within its frame, used to derive
	// a frame-region slot's absolute address from its group's base
	// address (spec §4.6 Phase F "group.baseAddress + slot.offset").
	Offset int

	// access is this slot's read/write/loop-depth statistics (nil for
	// SlotReturn and SlotTemp, which package cfg never tracks), set
	// during Phase A and consumed by Phase C's scoring.
	access *cfg.Access
}

// Frame is one function's sized, directive-tagged slot list.
type Frame struct {
	FuncSymbol symbols.SymbolID
	FuncName   string
	Slots      []*Slot
	RawSize    int
	Group      *Group
}

// Group is a Phase D coalesce group: a set of frames whose live ranges
// (by call-graph overlap) never cross, so they may share one
// frame-region address.
type Group struct {
	ID          int
	Members     []*Frame
	Size        int
	BaseAddress int
	Context     callgraph.Context
}

// FrameMap is the allocator's final result (spec §4.6 "Result").
type FrameMap struct {
	Frames map[symbols.SymbolID]*Frame
	Groups []*Group
}

// Accesses is the per-function read/write/loop-depth statistics the
// driver computes with package cfg, keyed by FuncDecl so the allocator
// never has to re-derive them.
type Accesses map[*ast.FuncDecl]map[symbols.SymbolID]*cfg.Access

// Allocate runs Phases A-F over every function in prog and returns the
// resulting FrameMap, or nil if a fatal diagnostic was raised (spec
// §4.6 "Failure semantics": any Phase A/E overflow or Phase F
// required-failure aborts allocation and earlier phases' outputs are
// discarded).
//
// graph must already have recursion detection run (spec §3's
// precondition: SFA only runs when the call graph has zero recursive
// nodes); Allocate does not re-check this itself; the driver is
// responsible for skipping the call when graph.HasRecursion() is true.
func Allocate(prog *ast.Program, table *symbols.Table, info *typecheck.Info, accesses Accesses, graph *callgraph.Graph, plat platform.Config, bag *diag.Bag) *FrameMap {
	var funcs []*ast.FuncDecl
	for _, u := range prog.Units {
		for _, d := range u.Decls {
			if fn, ok := d.(*ast.FuncDecl); ok && fn.Body != nil {
				funcs = append(funcs, fn)
			}
		}
	}

	before := bag.Len()
	frames := make([]*Frame, 0, len(funcs))
	for _, fn := range funcs {
		fr := sizeFrame(fn, table, info, accesses[fn], plat, bag)
		if fr == nil {
			continue
		}
		extractDirectives(fr, table)
		scoreSlots(fr, plat)
		frames = append(frames, fr)
	}
	if bag.HasErrors() {
		return nil
	}

	groups := buildCoalesceGroups(frames, graph)
	assignFrameRegionAddresses(groups, plat, bag)
	if hasNewFatal(bag, before) {
		return nil
	}

	allocateZeroPage(frames, plat, bag)
	if hasNewFatal(bag, before) {
		return nil
	}

	fm := &FrameMap{Frames: map[symbols.SymbolID]*Frame{}, Groups: groups}
	for _, fr := range frames {
		fm.Frames[fr.FuncSymbol] = fr
	}
	return fm
}

func hasNewFatal(bag *diag.Bag, before int) bool {
	for _, d := range bag.Entries()[before:] {
		if diag.IsFatal(d.Code) {
			return true
		}
	}
	return false
}

func spanOf(ast.Node) diag.Span { return diag.Span{} }

// Validate checks the invariants spec §4.6 names for "Invariant check
// after Phase F": every slot has a non-none location (its address
// itself is not checked); every coalesce group is at least as large as its largest
// member; every required slot is in zero page; and no two frame-region
// slots from different coalesce groups share an address. It returns a
// description of every violation found, or nil if fm is sound — a
// belt-and-suspenders check over what Phases A-F should already
// guarantee, useful for driver-level tests.
func (fm *FrameMap) Validate() []string {
	var problems []string

	for _, g := range fm.Groups {
		maxMember := 0
		for _, m := range g.Members {
			if m.RawSize > maxMember {
				maxMember = m.RawSize
			}
		}
		if g.Size < maxMember {
			problems = append(problems, "group has size smaller than its largest member")
		}
	}

	frameOccupant := map[int]int{} // address -> group ID, for frame-region slots
	for _, fr := range fm.Frames {
		for _, s := range fr.Slots {
			if s.Location == LocNone {
				problems = append(problems, qualifiedName(fr, s)+": location is none")
				continue
			}
			if s.Directive == DirRequired && s.Location != LocZeroPage {
				problems = append(problems, qualifiedName(fr, s)+": @zp slot did not receive a zero-page address")
			}
			if s.Location == LocFrameRegion {
				for a := s.Address; a < s.Address+s.Size; a++ {
					if gid, ok := frameOccupant[a]; ok && fr.Group != nil && gid != fr.Group.ID {
						problems = append(problems, qualifiedName(fr, s)+": frame-region address collides with a different coalesce group")
					} else if fr.Group != nil {
						frameOccupant[a] = fr.Group.ID
					}
				}
			}
		}
	}
	return problems
}
