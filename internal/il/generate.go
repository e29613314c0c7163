// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package il

import (
	"fmt"

	"blend65/internal/ast"
	"blend65/internal/diag"
	"blend65/internal/sfa"
	"blend65/internal/symbols"
	"blend65/internal/typecheck"
	"blend65/internal/types"
)

// Generate lowers every function body in prog to IL, resolving every
// storage reference through fm (spec §4.7). fm must come from a
// sfa.Allocate call that did not return nil; a function absent from
// fm.Frames (which only happens when the allocator itself aborted) is
// silently skipped, since the driver would have already stopped the
// pipeline on the fatal diagnostic that caused it. scratchAddr is the
// zero-page cell the generator stashes a value in mid-expression (for
// loop bounds/steps and poke's value operand), when it needs to hold
// two live values at once on a machine with a single accumulator —
// the caller passes plat.ScratchZP.Start rather than this package
// keeping its own process-level copy of the target platform (spec §9
// "avoid process-level singletons").
func Generate(prog *ast.Program, table *symbols.Table, info *typecheck.Info, fm *sfa.FrameMap, bag *diag.Bag, scratchAddr int) *Program {
	out := &Program{}
	for _, u := range prog.Units {
		for _, d := range u.Decls {
			fn, ok := d.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				continue
			}
			fnID := info.FuncSymbols[fn]
			fr := fm.Frames[fnID]
			if fr == nil {
				continue
			}
			g := newGenerator(table, info, fm, bag, fr, fn.Body, scratchAddr)
			g.genBlock(fn.Body)
			if len(g.instrs) == 0 || g.instrs[len(g.instrs)-1].Op != OpReturn {
				g.emit(Instr{Op: OpReturn})
			}
			out.Functions = append(out.Functions, &Function{Name: fn.Name, Instrs: g.instrs})
		}
	}
	return out
}

type loopLabels struct{ top, end string }

// generator lowers a single function. One is created per function by
// Generate; none of its state survives across functions.
type generator struct {
	table *symbols.Table
	info  *typecheck.Info
	fm    *sfa.FrameMap
	bag   *diag.Bag

	frame       *sfa.Frame
	body        *ast.Block
	tempFor     map[*ast.BinaryExpr]*sfa.Slot
	instrs      []Instr
	labelN      int
	loops       []loopLabels
	scratchAddr int
}

func newGenerator(table *symbols.Table, info *typecheck.Info, fm *sfa.FrameMap, bag *diag.Bag, fr *sfa.Frame, body *ast.Block, scratchAddr int) *generator {
	return &generator{table: table, info: info, fm: fm, bag: bag, frame: fr, body: body, scratchAddr: scratchAddr}
}

func (g *generator) emit(i Instr) { g.instrs = append(g.instrs, i) }

func (g *generator) newLabel(prefix string) string {
	g.labelN++
	return fmt.Sprintf(".%s%d", prefix, g.labelN)
}

// slotOf resolves an identifier reference's slot via the symbol table
// binding the type checker recorded; slotByName resolves the few
// source names package symbols declares without ever attaching an
// *ast.Ident node (the for-loop induction variable).
func (g *generator) slotOf(symID symbols.SymbolID) *sfa.Slot {
	for _, s := range g.frame.Slots {
		if s.Symbol == symID {
			return s
		}
	}
	return nil
}

func (g *generator) slotByName(name string) *sfa.Slot {
	for _, s := range g.frame.Slots {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// identOperand resolves an identifier to the storage it actually
// names: a frame slot the allocator placed, or — for a `@map`
// variable, which never gets a frame slot since it lives at a fixed
// address outside any function's frame — its resolved literal address
// (spec §4.7's IL invariant: every storage operand is either a
// FrameMap address or "a literal from @map").
func (g *generator) identOperand(ident *ast.Ident) (addr, size int) {
	symID := g.info.IdentSymbols[ident]
	if slot := g.slotOf(symID); slot != nil {
		return slot.Address, slot.Size
	}
	sym := g.table.Symbol(symID)
	if sym.Kind == symbols.KindMapVariable {
		return sym.MapAddress, g.sizeOf(ident)
	}
	panic(fmt.Sprintf("il: identOperand: %q has no resolved storage", sym.Name))
}

func (g *generator) returnSlot() *sfa.Slot {
	for _, s := range g.frame.Slots {
		if s.Kind == sfa.SlotReturn {
			return s
		}
	}
	return nil
}

func (g *generator) tempSlots() []*sfa.Slot {
	var temps []*sfa.Slot
	for _, s := range g.frame.Slots {
		if s.Kind == sfa.SlotTemp {
			temps = append(temps, s)
		}
	}
	return temps
}

func (g *generator) tempSlotFor(e *ast.BinaryExpr) *sfa.Slot {
	if g.tempFor == nil {
		g.tempFor = assignTemps(g.body, g.tempSlots())
	}
	return g.tempFor[e]
}

// ---- Statements -------------------------------------------------------------

func (g *generator) genBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		g.genStmt(s)
	}
}

func (g *generator) genStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.DeclStmt:
		g.genDecl(s.Decl)
	case *ast.Block:
		g.genBlock(s)
	case *ast.IfStmt:
		g.genIf(s)
	case *ast.WhileStmt:
		g.genWhile(s)
	case *ast.DoWhileStmt:
		g.genDoWhile(s)
	case *ast.ForStmt:
		g.genFor(s)
	case *ast.MatchStmt:
		g.genMatch(s)
	case *ast.ReturnStmt:
		g.genReturn(s)
	case *ast.BreakStmt:
		if len(g.loops) == 0 {
			panic("il: genStmt: break outside loop")
		}
		g.emit(Instr{Op: OpJump, Label: g.loops[len(g.loops)-1].end})
	case *ast.ContinueStmt:
		if len(g.loops) == 0 {
			panic("il: genStmt: continue outside loop")
		}
		g.emit(Instr{Op: OpJump, Label: g.loops[len(g.loops)-1].top})
	case *ast.ExprStmt:
		g.genExprIntoAcc(s.X)
	default:
		panic("il: genStmt: unhandled stmt kind")
	}
}

// genDecl lowers a local's initializer. Array- and string-typed locals
// are laid out by the link step directly from their constant data, not
// value-copied at runtime, so they have no initializer instructions
// here; everything else is a plain store into the slot sfa allocated.
func (g *generator) genDecl(d *ast.VarDecl) {
	if d.Init == nil {
		return
	}
	if t := g.info.TypeOf(d.Init); t != nil && t.Kind() == types.Array {
		return
	}
	slot := g.slotByName(d.Name)
	if slot == nil {
		return
	}
	g.genExprIntoAcc(d.Init)
	g.emit(Instr{Op: OpStore, Size: slot.Size, Addr: slot.Address})
}

func (g *generator) genIf(s *ast.IfStmt) {
	elseLabel := g.newLabel("else")
	endLabel := g.newLabel("endif")
	g.genExprIntoAcc(s.Cond)
	g.emit(Instr{Op: OpBranchIfZero, Label: elseLabel})
	g.genBlock(s.Then)
	g.emit(Instr{Op: OpJump, Label: endLabel})
	g.emit(Instr{Op: OpLabel, Label: elseLabel})
	switch e := s.Else.(type) {
	case *ast.Block:
		g.genBlock(e)
	case *ast.IfStmt:
		g.genIf(e)
	}
	g.emit(Instr{Op: OpLabel, Label: endLabel})
}

func (g *generator) genWhile(s *ast.WhileStmt) {
	top := g.newLabel("loop")
	end := g.newLabel("end")
	g.emit(Instr{Op: OpLabel, Label: top})
	g.genExprIntoAcc(s.Cond)
	g.emit(Instr{Op: OpBranchIfZero, Label: end})
	g.loops = append(g.loops, loopLabels{top: top, end: end})
	g.genBlock(s.Body)
	g.loops = g.loops[:len(g.loops)-1]
	g.emit(Instr{Op: OpJump, Label: top})
	g.emit(Instr{Op: OpLabel, Label: end})
}

func (g *generator) genDoWhile(s *ast.DoWhileStmt) {
	top := g.newLabel("loop")
	end := g.newLabel("end")
	g.emit(Instr{Op: OpLabel, Label: top})
	g.loops = append(g.loops, loopLabels{top: top, end: end})
	g.genBlock(s.Body)
	g.loops = g.loops[:len(g.loops)-1]
	g.genExprIntoAcc(s.Cond)
	g.emit(Instr{Op: OpBranchIfZero, Label: end})
	g.emit(Instr{Op: OpJump, Label: top})
	g.emit(Instr{Op: OpLabel, Label: end})
}

// genFor lowers `for i from A to B [step S]` to init + while (spec
// §4.7), honoring the inclusive/exclusive bound. The loop always
// counts upward: the bound test is <= (< when exclusive) and the step
// is added; the sign of the step is not inspected, so a loop whose
// start is above its bound runs zero times. The bound and step are
// staged through the platform
// scratch cell rather than a frame temporary, the same trick genPoke
// uses, since the comparison and increment each need two live values
// at once on a single-accumulator machine and neither is a source
// expression sfa's temp pass ever sees as a BinaryExpr.
func (g *generator) genFor(s *ast.ForStmt) {
	slot := g.slotByName(s.Var)

	g.genExprIntoAcc(s.From)
	if slot != nil {
		g.emit(Instr{Op: OpStore, Size: slot.Size, Addr: slot.Address})
	}

	top := g.newLabel("loop")
	end := g.newLabel("end")
	g.emit(Instr{Op: OpLabel, Label: top})

	cmp := ast.OpLe
	if !s.Inclusive {
		cmp = ast.OpLt
	}
	g.genExprIntoAcc(s.To)
	g.emit(Instr{Op: OpStore, Size: 2, Addr: g.scratchAddr})
	if slot != nil {
		g.emit(Instr{Op: OpLoad, Size: slot.Size, Addr: slot.Address})
	}
	g.emit(Instr{Op: OpBinary, BinOp: cmp, Mode: ModeAddr, Size: 2, Addr: g.scratchAddr})
	g.emit(Instr{Op: OpBranchIfZero, Label: end})

	g.loops = append(g.loops, loopLabels{top: top, end: end})
	g.genBlock(s.Body)
	g.loops = g.loops[:len(g.loops)-1]

	if slot != nil {
		g.emit(Instr{Op: OpLoad, Size: slot.Size, Addr: slot.Address})
	}
	if s.Step != nil {
		g.emit(Instr{Op: OpStore, Size: 2, Addr: g.scratchAddr})
		g.genExprIntoAcc(s.Step)
		g.emit(Instr{Op: OpStore, Size: 2, Addr: g.scratchAddr + 1})
		g.emit(Instr{Op: OpLoad, Size: 2, Addr: g.scratchAddr})
		g.emit(Instr{Op: OpBinary, BinOp: ast.OpAdd, Mode: ModeAddr, Size: 2, Addr: g.scratchAddr + 1})
	} else {
		g.emit(Instr{Op: OpBinary, BinOp: ast.OpAdd, Mode: ModeImm, Imm: 1})
	}
	if slot != nil {
		g.emit(Instr{Op: OpStore, Size: slot.Size, Addr: slot.Address})
	}
	g.emit(Instr{Op: OpJump, Label: top})
	g.emit(Instr{Op: OpLabel, Label: end})
}

func (g *generator) genMatch(s *ast.MatchStmt) {
	end := g.newLabel("endmatch")
	var defaultCase *ast.MatchCase
	for _, c := range s.Cases {
		if c.Default {
			defaultCase = c
			continue
		}
		for _, v := range c.Values {
			next := g.newLabel("case")
			g.genExprIntoAcc(s.Subject)
			g.genCompareAgainst(v)
			g.emit(Instr{Op: OpBranchIfZero, Label: next})
			g.genBlock(c.Body)
			g.emit(Instr{Op: OpJump, Label: end})
			g.emit(Instr{Op: OpLabel, Label: next})
		}
	}
	if defaultCase != nil {
		g.genBlock(defaultCase.Body)
	}
	g.emit(Instr{Op: OpLabel, Label: end})
}

// genCompareAgainst leaves a zero/non-zero flag in the accumulator for
// `subject == v`, consuming the subject value already loaded by the
// caller. Match arm values are always immediates or idents per the
// source grammar (spec §3), so no temporary is ever needed.
func (g *generator) genCompareAgainst(v ast.Expr) {
	switch v := v.(type) {
	case *ast.IntLit:
		g.emit(Instr{Op: OpBinary, BinOp: ast.OpEq, Mode: ModeImm, Imm: v.Value})
	case *ast.Ident:
		addr, size := g.identOperand(v)
		g.emit(Instr{Op: OpBinary, BinOp: ast.OpEq, Mode: ModeAddr, Size: size, Addr: addr})
	default:
		panic("il: genCompareAgainst: unhandled match value kind")
	}
}

func (g *generator) genReturn(s *ast.ReturnStmt) {
	if s.Value != nil {
		g.genExprIntoAcc(s.Value)
		if rs := g.returnSlot(); rs != nil {
			g.emit(Instr{Op: OpStore, Size: rs.Size, Addr: rs.Address})
		}
	}
	g.emit(Instr{Op: OpReturn})
}

// ---- Expressions ------------------------------------------------------------

func (g *generator) genExprIntoAcc(e ast.Expr) {
	switch e := e.(type) {
	case *ast.Ident:
		addr, size := g.identOperand(e)
		g.emit(Instr{Op: OpLoad, Size: size, Addr: addr})
	case *ast.IntLit:
		g.emit(Instr{Op: OpLoadImm, Size: g.sizeOf(e), Imm: e.Value})
	case *ast.BoolLit:
		v := uint64(0)
		if e.Value {
			v = 1
		}
		g.emit(Instr{Op: OpLoadImm, Size: 1, Imm: v})
	case *ast.BinaryExpr:
		g.genBinary(e)
	case *ast.UnaryExpr:
		g.genExprIntoAcc(e.X)
		g.emit(Instr{Op: OpUnary, UnOp: e.Op, Size: g.sizeOf(e.X)})
	case *ast.CallExpr:
		g.genCall(e)
	case *ast.AssignExpr:
		g.genAssign(e)
	case *ast.SizeofExpr:
		t := g.info.TypeExprTypes[e.Type]
		g.emit(Instr{Op: OpLoadImm, Size: 2, Imm: uint64(types.Size(t))})
	case *ast.IndexExpr:
		g.genIndex(e)
	default:
		panic("il: genExprIntoAcc: unhandled expr kind")
	}
}

func (g *generator) sizeOf(e ast.Expr) int {
	t := g.info.TypeOf(e)
	if t == nil {
		return 1
	}
	return types.Size(t)
}

// genBinary implements spec §4.7's "Binary op" rule. When the right
// operand is complex it is evaluated first and spilled to its
// pre-allocated temporary (looked up via the same traversal sfa used
// to size it), so that evaluating the left operand afterward cannot
// clobber it; the ADDR form then combines the two in source order
// (left in the accumulator, right in the temp), which keeps
// non-commutative operators correct regardless of emission order.
func (g *generator) genBinary(e *ast.BinaryExpr) {
	if isSimpleOperand(e.Right) {
		g.genExprIntoAcc(e.Left)
		switch r := e.Right.(type) {
		case *ast.IntLit:
			g.emit(Instr{Op: OpBinary, BinOp: e.Op, Mode: ModeImm, Size: g.sizeOf(e.Left), Imm: r.Value})
		case *ast.BoolLit:
			v := uint64(0)
			if r.Value {
				v = 1
			}
			g.emit(Instr{Op: OpBinary, BinOp: e.Op, Mode: ModeImm, Size: 1, Imm: v})
		case *ast.Ident:
			addr, size := g.identOperand(r)
			g.emit(Instr{Op: OpBinary, BinOp: e.Op, Mode: ModeAddr, Size: size, Addr: addr})
		}
		return
	}

	temp := g.tempSlotFor(e)
	g.genExprIntoAcc(e.Right)
	g.emit(Instr{Op: OpStore, Size: temp.Size, Addr: temp.Address})
	g.genExprIntoAcc(e.Left)
	g.emit(Instr{Op: OpBinary, BinOp: e.Op, Mode: ModeAddr, Size: temp.Size, Addr: temp.Address})
}

func (g *generator) genCall(e *ast.CallExpr) {
	if intr, ok := g.info.Intrinsics[e]; ok && intr != typecheck.NotIntrinsic {
		g.genIntrinsic(e, intr)
		return
	}

	calleeID := g.info.CalleeSymbols[e]
	calleeFrame := g.fm.Frames[calleeID]
	if calleeFrame != nil {
		paramSlots := paramSlotsOf(calleeFrame)
		for i, arg := range e.Args {
			if i >= len(paramSlots) {
				break
			}
			g.genExprIntoAcc(arg)
			g.emit(Instr{Op: OpStore, Size: paramSlots[i].Size, Addr: paramSlots[i].Address})
		}
	}
	g.emit(Instr{Op: OpCall, Callee: g.table.Symbol(calleeID).Name})
	if calleeFrame != nil {
		if rs := returnSlotOf(calleeFrame); rs != nil {
			g.emit(Instr{Op: OpLoad, Size: rs.Size, Addr: rs.Address})
		}
	}
}

func paramSlotsOf(fr *sfa.Frame) []*sfa.Slot {
	var out []*sfa.Slot
	for _, s := range fr.Slots {
		if s.Kind == sfa.SlotParam {
			out = append(out, s)
		}
	}
	return out
}

func returnSlotOf(fr *sfa.Frame) *sfa.Slot {
	for _, s := range fr.Slots {
		if s.Kind == sfa.SlotReturn {
			return s
		}
	}
	return nil
}

func (g *generator) genIntrinsic(e *ast.CallExpr, intr typecheck.Intrinsic) {
	switch intr {
	case typecheck.IntrinsicPeek:
		g.genExprIntoAcc(e.Args[0])
		g.emit(Instr{Op: OpPeek, Size: 1})
	case typecheck.IntrinsicPeekW:
		g.genExprIntoAcc(e.Args[0])
		g.emit(Instr{Op: OpPeek, Size: 2})
	case typecheck.IntrinsicPoke:
		g.genPoke(e, 1)
	case typecheck.IntrinsicPokeW:
		g.genPoke(e, 2)
	case typecheck.IntrinsicHi:
		g.genExprIntoAcc(e.Args[0])
		g.emit(Instr{Op: OpHi})
	case typecheck.IntrinsicLo:
		g.genExprIntoAcc(e.Args[0])
		g.emit(Instr{Op: OpLo})
	case typecheck.IntrinsicLen:
		t := g.info.TypeOf(e.Args[0])
		g.emit(Instr{Op: OpLoadImm, Size: 2, Imm: uint64(t.Len())})
	default:
		panic("il: genIntrinsic: unhandled intrinsic")
	}
}

// genPoke implements `poke(addr, v)` / `pokew(addr, v)` (spec §4.7:
// "evaluate v, stash, evaluate addr, emit POKE"). v is stashed in the
// platform scratch cell rather than a frame slot, since it is never a
// source-level variable.
func (g *generator) genPoke(e *ast.CallExpr, size int) {
	g.genExprIntoAcc(e.Args[1])
	g.emit(Instr{Op: OpStore, Size: size, Addr: g.scratchAddr})
	g.genExprIntoAcc(e.Args[0])
	g.emit(Instr{Op: OpLoad, Size: size, Addr: g.scratchAddr})
	g.emit(Instr{Op: OpPoke, Size: size})
}

func (g *generator) genAssign(e *ast.AssignExpr) {
	target := e.Target.(*ast.Ident)
	addr, size := g.identOperand(target)
	if e.Op == ast.AssignPlain {
		g.genExprIntoAcc(e.Value)
	} else {
		g.genExprIntoAcc(&ast.BinaryExpr{Op: compoundOp(e.Op), Left: target, Right: e.Value})
	}
	g.emit(Instr{Op: OpStore, Size: size, Addr: addr})
}

func compoundOp(op ast.AssignOp) ast.BinaryOp {
	switch op {
	case ast.AssignAdd:
		return ast.OpAdd
	case ast.AssignSub:
		return ast.OpSub
	case ast.AssignMul:
		return ast.OpMul
	case ast.AssignDiv:
		return ast.OpDiv
	default:
		panic("il: compoundOp: unhandled assign operator")
	}
}

// genIndex lowers `arr[i]` to a peek at the array's base address plus
// index; general bounds-checked array codegen is out of scope (spec §3
// Non-goals).
func (g *generator) genIndex(e *ast.IndexExpr) {
	g.genExprIntoAcc(e.Index)
	g.emit(Instr{Op: OpStore, Size: 2, Addr: g.scratchAddr})
	g.genExprIntoAcc(e.X)
	g.emit(Instr{Op: OpBinary, BinOp: ast.OpAdd, Mode: ModeAddr, Size: 2, Addr: g.scratchAddr})
	g.emit(Instr{Op: OpPeek, Size: g.sizeOf(e)})
}
