// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag is the diagnostic collector (spec §4.10, §7). It is the
// compiler's logging surface: every pass appends to a Bag instead of
// writing to a logger, the way cmd/compile's own base.Errorf/base.Warn
// accumulate compiler messages rather than printing directly.
package diag

import "fmt"

// Severity classifies a Diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// Code is a stable diagnostic code, e.g. "RecursionDetected".
type Code string

// Fatal taxonomy (spec §7).
const (
	CodeUnknownSymbol          Code = "UnknownSymbol"
	CodeDuplicateDeclaration   Code = "DuplicateDeclaration"
	CodeTypeMismatch           Code = "TypeMismatch"
	CodeArityMismatch          Code = "ArityMismatch"
	CodeInvalidStorageClass    Code = "InvalidStorageClass"
	CodeRecursionDetected      Code = "RecursionDetected"
	CodeMutualRecursion        Code = "MutualRecursionDetected"
	CodeFrameOverflow          Code = "FrameOverflow"
	CodeZpRequiredFailed       Code = "ZpRequiredFailed"
	CodeImportCycle            Code = "ImportCycle"
	CodeReturnTypeMismatch     Code = "ReturnTypeMismatch"
	CodeReturnMissing          Code = "ReturnMissing"
	CodeBreakOutsideLoop       Code = "BreakOutsideLoop"
	CodeContinueOutsideLoop   Code = "ContinueOutsideLoop"
	CodeImmutableWrite         Code = "ImmutableWrite"
	CodeAddressOutOfRange      Code = "AddressOutOfRange"
	CodeUnresolvedImport       Code = "UnresolvedImport"
)

// Non-fatal taxonomy (spec §7).
const (
	CodeImplicitModule      Code = "ImplicitModule"
	CodeUnreachableCode     Code = "UnreachableCode"
	CodeUnusedSymbol        Code = "UnusedSymbol"
	CodeDeepCallStack       Code = "DeepCallStack"
	CodeZpPreferredFallback Code = "ZpPreferredFallback"
	CodeLargeFrame          Code = "LargeFrame"
	CodeLargeArrayInZp      Code = "LargeArrayInZp"
	CodeImplicitMainExport  Code = "ImplicitMainExport"
)

// fatalCodes is used only to double check a Code is classified
// consistently; Severity is still carried explicitly on each Diagnostic
// so callers are never required to consult this table.
var fatalCodes = map[Code]bool{
	CodeUnknownSymbol: true, CodeDuplicateDeclaration: true, CodeTypeMismatch: true,
	CodeArityMismatch: true, CodeInvalidStorageClass: true, CodeRecursionDetected: true,
	CodeMutualRecursion: true, CodeFrameOverflow: true, CodeZpRequiredFailed: true,
	CodeImportCycle: true, CodeReturnTypeMismatch: true, CodeReturnMissing: true,
	CodeBreakOutsideLoop: true, CodeContinueOutsideLoop: true, CodeImmutableWrite: true,
	CodeAddressOutOfRange: true, CodeUnresolvedImport: true,
}

// IsFatal reports whether code belongs to the fatal taxonomy.
func IsFatal(c Code) bool { return fatalCodes[c] }

// Span is a minimal source-range description; it is declared here
// (rather than importing internal/token) as a narrow interface so that
// diag stays a leaf package that every pass, including token and ast,
// can depend on without a cycle.
type Span struct {
	Unit                       string
	StartLine, StartCol        int
	EndLine, EndCol            int
}

func (s Span) String() string {
	if s.Unit == "" && s.StartLine == 0 {
		return "-"
	}
	return fmt.Sprintf("%s:%d:%d", s.Unit, s.StartLine, s.StartCol)
}

// Diagnostic is one reported finding (spec §6 "Diagnostic format").
type Diagnostic struct {
	Severity   Severity
	Code       Code
	Message    string
	Span       Span
	SeeAlso    []Span
	Suggestion string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Span, d.Severity, d.Message, d.Code)
}

// Bag accumulates diagnostics across all passes. It is append-only
// (spec §3 Lifecycle, §5 "Shared resources"); no pass may remove or
// reorder another pass's entries.
type Bag struct {
	entries []Diagnostic
}

// NewBag returns an empty diagnostic bag.
func NewBag() *Bag { return &Bag{} }

func (b *Bag) add(d Diagnostic) {
	b.entries = append(b.entries, d)
}

// Errorf appends a fatal diagnostic.
func (b *Bag) Errorf(span Span, code Code, format string, args ...any) {
	b.add(Diagnostic{Severity: Error, Code: code, Message: fmt.Sprintf(format, args...), Span: span})
}

// Warnf appends a non-fatal diagnostic.
func (b *Bag) Warnf(span Span, code Code, format string, args ...any) {
	b.add(Diagnostic{Severity: Warning, Code: code, Message: fmt.Sprintf(format, args...), Span: span})
}

// Infof appends an informational diagnostic.
func (b *Bag) Infof(span Span, code Code, format string, args ...any) {
	b.add(Diagnostic{Severity: Info, Code: code, Message: fmt.Sprintf(format, args...), Span: span})
}

// Entries returns all diagnostics in append order (source order, since
// every pass itself walks the AST in source order per spec §5).
func (b *Bag) Entries() []Diagnostic { return b.entries }

// HasErrors reports whether any fatal diagnostic has been appended so
// far. The driver calls this after every pass to decide whether to
// proceed (spec §7 "Propagation policy").
func (b *Bag) HasErrors() bool {
	for _, e := range b.entries {
		if e.Severity == Error {
			return true
		}
	}
	return false
}

// Len reports the total number of diagnostics recorded so far, fatal
// and non-fatal, used by passes that only want to know whether they
// personally introduced new errors (e.g. sfa.Allocate checking
// whether its own phases raised a new fatal diagnostic).
func (b *Bag) Len() int { return len(b.entries) }

// Since returns the diagnostics appended after the given mark, where
// mark is a previously observed Len(), so a caller can tell which pass
// produced which diagnostics without needing per-pass bags.
func (b *Bag) Since(mark int) []Diagnostic {
	if mark >= len(b.entries) {
		return nil
	}
	return b.entries[mark:]
}
