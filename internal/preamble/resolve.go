// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package preamble

import (
	"strings"

	"blend65/internal/diag"
	"blend65/internal/symbols"
)

// Resolution maps each KindImported symbol to the real symbol it names
// in its originating module, completing the cross-module resolution
// spec §4.2 defers ("the referenced module is recorded for later
// cross-module resolution").
type Resolution map[symbols.SymbolID]symbols.SymbolID

// ResolveImports walks every symbol package symbols declared and, for
// each KindImported one, looks up its ImportedFrom module in
// moduleScopes (the map symbols.Builder.Build returned) and its
// ImportedName within that module's own scope. A module name with no
// matching scope, or a name not declared (or not exported) in that
// module's scope, is reported as UnresolvedImport; both are fatal,
// since an unresolved import is just as unusable downstream as an
// unknown identifier.
func ResolveImports(table *symbols.Table, moduleScopes map[string]symbols.ScopeID, bag *diag.Bag) Resolution {
	out := Resolution{}
	for _, sym := range table.AllSymbols() {
		if sym.Kind != symbols.KindImported {
			continue
		}
		fromPath := strings.Join(sym.ImportedFrom, ".")
		scope, ok := moduleScopes[fromPath]
		if !ok {
			bag.Errorf(diag.Span{Unit: sym.DeclUnit}, diag.CodeUnresolvedImport,
				"import of %q from module %q: no such module", sym.ImportedName, fromPath)
			continue
		}
		targetID, ok := table.LookupLocal(scope, sym.ImportedName)
		if !ok {
			bag.Errorf(diag.Span{Unit: sym.DeclUnit}, diag.CodeUnresolvedImport,
				"module %q has no member %q", fromPath, sym.ImportedName)
			continue
		}
		target := table.Symbol(targetID)
		if !target.Export {
			bag.Errorf(diag.Span{Unit: sym.DeclUnit}, diag.CodeUnresolvedImport,
				"%q is not exported from module %q", sym.ImportedName, fromPath)
			continue
		}
		out[sym.ID] = targetID
	}
	return out
}
