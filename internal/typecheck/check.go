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

// Checker computes a type for every expression and validates the
// contracts of spec §4.3: assignment compatibility, call arity and
// argument typing, return-type validation, array indexing, and the
// intrinsic forms. It is a second walk after Resolver has bound every
// type annotation.
type Checker struct {
	table *symbols.Table
	bag   *diag.Bag
	info  *Info

	scope      symbols.ScopeID
	fn         *ast.FuncDecl
	returnType *types.Type
	loopDepth  int
}

// NewChecker returns a Checker writing into info and reporting into
// bag.
func NewChecker(table *symbols.Table, bag *diag.Bag, info *Info) *Checker {
	return &Checker{table: table, bag: bag, info: info}
}

// CheckProgram type-checks every function body in prog. Signatures are
// resolved in a pass separate from bodies so that a call to a function
// declared later in the same unit, or to a mutually recursive peer,
// sees the callee's real parameter and return types rather than a
// placeholder.
func (c *Checker) CheckProgram(prog *ast.Program, scopes map[string]symbols.ScopeID, unitModule map[*ast.Unit]string) {
	resolver := NewResolver(c.table, c.bag, c.info)
	for _, u := range prog.Units {
		moduleScope := scopes[unitModule[u]]
		for _, d := range u.Decls {
			if fn, ok := d.(*ast.FuncDecl); ok {
				c.resolveSignature(resolver, moduleScope, fn)
			}
		}
	}
	for _, u := range prog.Units {
		for _, d := range u.Decls {
			if fn, ok := d.(*ast.FuncDecl); ok {
				c.checkBody(resolver, fn)
			}
		}
	}
}

func (c *Checker) resolveSignature(r *Resolver, moduleScope symbols.ScopeID, fn *ast.FuncDecl) {
	id, ok := c.table.LookupLocal(moduleScope, fn.Name)
	if !ok {
		return
	}
	c.info.FuncSymbols[fn] = id
	fnSym := c.table.Symbol(id)

	retType := types.TVoid
	if fn.ReturnType != nil {
		retType = r.ResolveType(moduleScope, fn.ReturnType)
	}
	fnSym.Type = retType
	c.info.FuncReturnTypes[fn] = retType

	params := make([]*types.Type, len(fn.Params))
	for i, p := range fn.Params {
		pt := r.ResolveType(moduleScope, p.Type)
		params[i] = pt
		if sym, ok := c.table.LookupLocal(fnSym.Scope, p.Name); ok {
			c.table.Symbol(sym).Type = pt
		}
	}
	c.info.FuncParamTypes[id] = params
}

func (c *Checker) checkBody(r *Resolver, fn *ast.FuncDecl) {
	if fn.Body == nil {
		return
	}
	id := c.info.FuncSymbols[fn]
	fnSym := c.table.Symbol(id)
	retType := c.info.FuncReturnTypes[fn]

	prevScope, prevFn, prevRet := c.scope, c.fn, c.returnType
	c.scope, c.fn, c.returnType = fnSym.Scope, fn, retType
	c.checkBlock(r, fn.Body)
	if retType.Kind() != types.Void && !alwaysReturns(fn.Body) {
		c.bag.Errorf(spanOf(fn), diag.CodeReturnMissing, "function %q does not return a value on every path", fn.Name)
	}
	c.scope, c.fn, c.returnType = prevScope, prevFn, prevRet
}

// alwaysReturns reports whether every control-flow path through block
// ends in a return statement, suppressing the "missing return" error
// (spec §4.3 "Statements that cannot fall through... suppress the
// 'missing return' error").
func alwaysReturns(block *ast.Block) bool {
	for _, s := range block.Stmts {
		if stmtAlwaysReturns(s) {
			return true
		}
	}
	return false
}

func stmtAlwaysReturns(s ast.Stmt) bool {
	switch s := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.Block:
		return alwaysReturns(s)
	case *ast.IfStmt:
		if s.Else == nil {
			return false
		}
		thenReturns := alwaysReturns(s.Then)
		var elseReturns bool
		switch e := s.Else.(type) {
		case *ast.Block:
			elseReturns = alwaysReturns(e)
		case *ast.IfStmt:
			elseReturns = stmtAlwaysReturns(e)
		}
		return thenReturns && elseReturns
	case *ast.MatchStmt:
		hasDefault := false
		for _, m := range s.Cases {
			if !alwaysReturns(m.Body) {
				return false
			}
			if m.Default {
				hasDefault = true
			}
		}
		return hasDefault
	case *ast.DoWhileStmt:
		// A do-while body runs at least once.
		return alwaysReturns(s.Body)
	default:
		return false
	}
}

func (c *Checker) checkBlock(r *Resolver, b *ast.Block) {
	for _, s := range b.Stmts {
		c.checkStmt(r, s)
	}
}

func (c *Checker) checkStmt(r *Resolver, s ast.Stmt) {
	switch s := s.(type) {
	case *ast.DeclStmt:
		c.checkVarDecl(r, s.Decl)
	case *ast.Block:
		c.checkBlock(r, s)
	case *ast.IfStmt:
		c.checkCond(s.Cond)
		c.checkBlock(r, s.Then)
		switch e := s.Else.(type) {
		case *ast.Block:
			c.checkBlock(r, e)
		case *ast.IfStmt:
			c.checkStmt(r, e)
		}
	case *ast.WhileStmt:
		c.checkCond(s.Cond)
		c.loopDepth++
		c.checkBlock(r, s.Body)
		c.loopDepth--
	case *ast.DoWhileStmt:
		c.loopDepth++
		c.checkBlock(r, s.Body)
		c.loopDepth--
		c.checkCond(s.Cond)
	case *ast.ForStmt:
		c.checkExpr(s.From)
		c.checkExpr(s.To)
		if s.Step != nil {
			c.checkExpr(s.Step)
		}
		if sym, ok := c.table.LookupLocal(c.scope, s.Var); ok {
			sy := c.table.Symbol(sym)
			if sy.Type == nil {
				sy.Type = types.TWord
			}
		}
		c.loopDepth++
		c.checkBlock(r, s.Body)
		c.loopDepth--
	case *ast.MatchStmt:
		c.checkExpr(s.Subject)
		for _, m := range s.Cases {
			for _, v := range m.Values {
				c.checkExpr(v)
			}
			c.checkBlock(r, m.Body)
		}
	case *ast.ReturnStmt:
		c.checkReturn(s)
	case *ast.BreakStmt:
		if c.loopDepth == 0 {
			c.bag.Errorf(spanOf(s), diag.CodeBreakOutsideLoop, "break used outside a loop")
		}
	case *ast.ContinueStmt:
		if c.loopDepth == 0 {
			c.bag.Errorf(spanOf(s), diag.CodeContinueOutsideLoop, "continue used outside a loop")
		}
	case *ast.ExprStmt:
		c.checkExpr(s.X)
	default:
		panic("typecheck: checkStmt: unhandled stmt kind")
	}
}

func (c *Checker) checkCond(e ast.Expr) {
	t := c.checkExpr(e)
	if t.Kind() != types.Bool && t.Kind() != types.Poison {
		c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "condition must be bool, got %s", t)
	}
}

func (c *Checker) checkReturn(s *ast.ReturnStmt) {
	if s.Value == nil {
		if c.returnType != nil && c.returnType.Kind() != types.Void {
			c.bag.Errorf(spanOf(s), diag.CodeReturnTypeMismatch, "missing return value, function returns %s", c.returnType)
		}
		return
	}
	vt := c.checkExpr(s.Value)
	if c.returnType == nil || c.returnType.Kind() == types.Void {
		c.bag.Errorf(spanOf(s), diag.CodeReturnTypeMismatch, "function returns void but a value was returned")
		return
	}
	if !types.AssignCompatible(vt, c.returnType) {
		c.bag.Errorf(spanOf(s), diag.CodeReturnTypeMismatch, "cannot return %s as %s", vt, c.returnType)
	}
}

func (c *Checker) checkVarDecl(r *Resolver, d *ast.VarDecl) {
	var declared *types.Type
	if d.Type != nil {
		declared = r.ResolveType(c.scope, d.Type)
	}
	var initType *types.Type
	if d.Init != nil {
		initType = c.checkExprWithContext(d.Init, declared)
	}
	final := declared
	if final == nil {
		final = initType
	}
	if final == nil {
		final = types.TPoison
	}
	if declared != nil && initType != nil && !types.AssignCompatible(initType, declared) {
		c.bag.Errorf(spanOf(d), diag.CodeTypeMismatch, "cannot initialize %s with %s", declared, initType)
	}
	if sym, ok := c.table.LookupLocal(c.scope, d.Name); ok {
		c.table.Symbol(sym).Type = final
	}
}

// checkExpr type-checks e with no contextual type.
func (c *Checker) checkExpr(e ast.Expr) *types.Type {
	return c.checkExprWithContext(e, nil)
}

// checkExprWithContext type-checks e; ctx, if non-nil, is the type the
// surrounding construct expects (spec §4.3 "a literal at an annotated
// context widens to the annotation's type if the value fits").
func (c *Checker) checkExprWithContext(e ast.Expr, ctx *types.Type) *types.Type {
	var t *types.Type
	switch e := e.(type) {
	case *ast.IntLit:
		t = types.SmallestFittingInt(e.Value)
		if ctx != nil && types.Widens(t, ctx) {
			t = ctx
		}
	case *ast.BoolLit:
		t = types.TBool
	case *ast.StringLit:
		t = types.NewArray(types.TByte, len(e.Value))
	case *ast.ArrayLit:
		t = c.checkArrayLit(e, ctx)
	case *ast.Ident:
		t = c.checkIdent(e)
	case *ast.BinaryExpr:
		t = c.checkBinary(e)
	case *ast.UnaryExpr:
		t = c.checkUnary(e)
	case *ast.CallExpr:
		t = c.checkCall(e)
	case *ast.SizeofExpr:
		t = types.TWord
	case *ast.IndexExpr:
		t = c.checkIndex(e)
	case *ast.AssignExpr:
		t = c.checkAssign(e)
	default:
		panic("typecheck: checkExpr: unhandled expr kind")
	}
	c.info.ExprTypes[e] = t
	return t
}

func (c *Checker) checkArrayLit(e *ast.ArrayLit, ctx *types.Type) *types.Type {
	elemCtx := (*types.Type)(nil)
	if ctx != nil && ctx.Kind() == types.Array {
		elemCtx = ctx.Elem()
	}
	var elemType *types.Type
	for _, el := range e.Elems {
		t := c.checkExprWithContext(el, elemCtx)
		if elemType == nil {
			elemType = t
		}
	}
	if elemType == nil {
		elemType = types.TByte
	}
	return types.NewArray(elemType, len(e.Elems))
}

func (c *Checker) checkIdent(e *ast.Ident) *types.Type {
	id, ok := c.table.Lookup(c.scope, e.Name)
	if !ok {
		c.bag.Errorf(spanOf(e), diag.CodeUnknownSymbol, "undefined: %s", e.Name)
		return types.TPoison
	}
	c.info.IdentSymbols[e] = id
	sym := c.table.Symbol(id)
	if sym.Type == nil {
		return types.TPoison
	}
	return sym.Type
}

func (c *Checker) checkBinary(e *ast.BinaryExpr) *types.Type {
	lt := c.checkExpr(e.Left)
	rt := c.checkExpr(e.Right)
	switch e.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod,
		ast.OpAnd, ast.OpOr, ast.OpXor, ast.OpShl, ast.OpShr:
		if !lt.IsNumeric() || !rt.IsNumeric() {
			c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "arithmetic requires numeric operands, got %s and %s", lt, rt)
			return types.TPoison
		}
		return widerOf(lt, rt)
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return types.TBool
	case ast.OpLogAnd, ast.OpLogOr:
		if lt.Kind() != types.Bool && lt.Kind() != types.Poison {
			c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "logical operator requires bool, got %s", lt)
		}
		if rt.Kind() != types.Bool && rt.Kind() != types.Poison {
			c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "logical operator requires bool, got %s", rt)
		}
		return types.TBool
	default:
		panic("typecheck: checkBinary: unhandled operator")
	}
}

func widerOf(a, b *types.Type) *types.Type {
	if a.Kind() == types.Poison || b.Kind() == types.Poison {
		return types.TPoison
	}
	if types.Widens(a, b) {
		return b
	}
	return a
}

func (c *Checker) checkUnary(e *ast.UnaryExpr) *types.Type {
	t := c.checkExpr(e.X)
	switch e.Op {
	case ast.OpLogNot:
		if t.Kind() != types.Bool && t.Kind() != types.Poison {
			c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "! requires bool, got %s", t)
		}
		return types.TBool
	default:
		if !t.IsNumeric() {
			c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "unary operator requires a numeric operand, got %s", t)
			return types.TPoison
		}
		return t
	}
}

func (c *Checker) checkIndex(e *ast.IndexExpr) *types.Type {
	base := c.checkExpr(e.X)
	idx := c.checkExpr(e.Index)
	if idx.Kind() != types.Poison && !idx.IsNumeric() {
		c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "array index must be numeric, got %s", idx)
	}
	if base.Kind() == types.Poison {
		return types.TPoison
	}
	if base.Kind() != types.Array {
		c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "cannot index non-array type %s", base)
		return types.TPoison
	}
	return base.Elem()
}

func (c *Checker) checkAssign(e *ast.AssignExpr) *types.Type {
	targetType := c.checkExpr(e.Target)
	valueType := c.checkExpr(e.Value)
	c.checkWritable(e.Target)
	if e.Op != ast.AssignPlain {
		if !targetType.IsNumeric() {
			c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "compound assignment requires a numeric target, got %s", targetType)
		}
	}
	if targetType.Kind() != types.Poison && valueType.Kind() != types.Poison && !types.AssignCompatible(valueType, targetType) {
		c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "cannot assign %s to %s", valueType, targetType)
	}
	return types.TVoid
}

// checkWritable enforces "writing to a const is an error; writing to a
// data variable is an error" (spec §4.3).
func (c *Checker) checkWritable(target ast.Expr) {
	id, ok := c.identSymbol(target)
	if !ok {
		return
	}
	sym := c.table.Symbol(id)
	if sym.Const {
		c.bag.Errorf(spanOf(target), diag.CodeImmutableWrite, "cannot assign to const %q", sym.Name)
	}
	if sym.Storage == symbols.StorageData {
		c.bag.Errorf(spanOf(target), diag.CodeImmutableWrite, "cannot assign to data variable %q", sym.Name)
	}
}

func (c *Checker) identSymbol(e ast.Expr) (symbols.SymbolID, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		id, ok := c.info.IdentSymbols[e]
		return id, ok
	case *ast.IndexExpr:
		return c.identSymbol(e.X)
	default:
		return symbols.InvalidSymbol, false
	}
}

func (c *Checker) checkCall(e *ast.CallExpr) *types.Type {
	if ident, ok := e.Callee.(*ast.Ident); ok {
		if intr, ok := intrinsicNames[ident.Name]; ok {
			return c.checkIntrinsic(e, intr)
		}
	}
	callee, ok := e.Callee.(*ast.Ident)
	if !ok {
		c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "call target is not a function")
		for _, a := range e.Args {
			c.checkExpr(a)
		}
		return types.TPoison
	}
	id, ok := c.table.Lookup(c.scope, callee.Name)
	if !ok {
		c.bag.Errorf(spanOf(e), diag.CodeUnknownSymbol, "undefined: %s", callee.Name)
		for _, a := range e.Args {
			c.checkExpr(a)
		}
		return types.TPoison
	}
	c.info.IdentSymbols[callee] = id
	sym := c.table.Symbol(id)
	if sym.Kind != symbols.KindFunction {
		c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "%q is not a function", callee.Name)
		for _, a := range e.Args {
			c.checkExpr(a)
		}
		return types.TPoison
	}
	c.info.CalleeSymbols[e] = id

	params := c.funcParamTypes(id)
	if len(e.Args) != len(params) {
		c.bag.Errorf(spanOf(e), diag.CodeArityMismatch, "%q expects %d argument(s), got %d", callee.Name, len(params), len(e.Args))
	}
	for i, a := range e.Args {
		at := c.checkExpr(a)
		if i < len(params) && at.Kind() != types.Poison && !types.AssignCompatible(at, params[i]) {
			c.bag.Errorf(spanOf(a), diag.CodeTypeMismatch, "argument %d of %q: cannot use %s as %s", i+1, callee.Name, at, params[i])
		}
	}
	if sym.Type == nil {
		return types.TVoid
	}
	return sym.Type
}

// funcParamTypes returns fnID's parameter types in declaration order,
// as recorded by the signature pre-pass in CheckProgram. Scope.Names is
// a map and so has no reliable order; argument-position checking needs
// one, which is why the pre-pass exists.
func (c *Checker) funcParamTypes(fnID symbols.SymbolID) []*types.Type {
	return c.info.FuncParamTypes[fnID]
}

func (c *Checker) checkIntrinsic(e *ast.CallExpr, intr Intrinsic) *types.Type {
	c.info.Intrinsics[e] = intr
	switch intr {
	case IntrinsicPeek:
		c.expectArgs(e, 1, []*types.Type{types.TWord})
		return types.TByte
	case IntrinsicPeekW:
		c.expectArgs(e, 1, []*types.Type{types.TWord})
		return types.TWord
	case IntrinsicPoke:
		c.expectArgs(e, 2, []*types.Type{types.TWord, types.TByte})
		return types.TVoid
	case IntrinsicPokeW:
		c.expectArgs(e, 2, []*types.Type{types.TWord, types.TWord})
		return types.TVoid
	case IntrinsicHi, IntrinsicLo:
		c.expectArgs(e, 1, []*types.Type{types.TWord})
		return types.TByte
	case IntrinsicLen:
		if len(e.Args) != 1 {
			c.bag.Errorf(spanOf(e), diag.CodeArityMismatch, "len expects 1 argument, got %d", len(e.Args))
			return types.TWord
		}
		at := c.checkExpr(e.Args[0])
		if at.Kind() != types.Array && at.Kind() != types.Poison {
			c.bag.Errorf(spanOf(e), diag.CodeTypeMismatch, "len expects an array, got %s", at)
		}
		return types.TWord
	default:
		panic("typecheck: checkIntrinsic: unhandled intrinsic")
	}
}

func (c *Checker) expectArgs(e *ast.CallExpr, n int, want []*types.Type) {
	if len(e.Args) != n {
		c.bag.Errorf(spanOf(e), diag.CodeArityMismatch, "expected %d argument(s), got %d", n, len(e.Args))
	}
	for i, a := range e.Args {
		at := c.checkExpr(a)
		if i < len(want) && at.Kind() != types.Poison && !types.AssignCompatible(at, want[i]) {
			c.bag.Errorf(spanOf(a), diag.CodeTypeMismatch, "argument %d: cannot use %s as %s", i+1, at, want[i])
		}
	}
}
