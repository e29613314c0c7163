// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfa

import (
	"math"

	"blend65/internal/cfg"
	"blend65/internal/platform"
	"blend65/internal/symbols"
	"blend65/internal/types"
)

// extractDirectives runs Phase B: converts each slot's declaring
// variable's storage class into a ZP directive (spec §4.6 Phase B
// "@zp => required; @ram/@data => forbidden; no annotation => none").
// Slots with no declaring symbol (return slots, temporaries) always
// get DirNone: the compiler is free to place them wherever scoring
// says is best.
func extractDirectives(fr *Frame, table *symbols.Table) {
	for _, s := range fr.Slots {
		if s.Symbol == symbols.InvalidSymbol {
			s.Directive = DirNone
			continue
		}
		switch table.Symbol(s.Symbol).Storage {
		case symbols.StorageZP:
			s.Directive = DirRequired
		case symbols.StorageRAM, symbols.StorageData:
			s.Directive = DirForbidden
		default:
			s.Directive = DirNone
		}
	}
}

// Scoring tunables (spec §4.6 Phase C names these conceptually —
// typeWeight, accessBonus's per-access constant k1 and cap, loopBonus's
// base L — but leaves exact values to the implementation; see
// DESIGN.md's Open Question O3 for the values chosen here).
const (
	byteTypeWeight  = 10.0
	wordTypeWeight  = 6.0
	arrayTypeWeight = 1.0

	accessReadWeight  = 1.0
	accessWriteWeight = 1.5
	accessBonusCap    = 40.0
)

// typeWeight implements Phase C's "typeWeight is higher for pointer-
// like/indirectly addressed word values, medium for byte, lower
// per-byte for word, and near-zero for large arrays." Blend65 has no
// separate pointer kind (spec §3), so a word slot gets the lower,
// per-scalar weight; only byte/bool slots (the values actually held in
// a single 6502 register) get the higher one.
func typeWeight(t *types.Type) float64 {
	switch t.Kind() {
	case types.Byte, types.Bool:
		return byteTypeWeight
	case types.Word:
		return wordTypeWeight
	case types.Enum:
		return typeWeight(t.Underlying())
	case types.Array:
		return arrayTypeWeight
	default:
		return 0
	}
}

// accessBonus implements "min(accessCount * k1, cap)", with writes
// weighted slightly higher than reads (spec §4.6 Phase C).
func accessBonus(acc *cfg.Access) float64 {
	if acc == nil {
		return 0
	}
	raw := float64(acc.Reads)*accessReadWeight + float64(acc.Writes)*accessWriteWeight
	if raw > accessBonusCap {
		return accessBonusCap
	}
	return raw
}

// loopBonus scales base (typeWeight+accessBonus) by (L^depth - 1)
// (spec §4.6 Phase C).
func loopBonus(base float64, depth int, loopBase int) float64 {
	if depth <= 0 {
		return 0
	}
	return base * (math.Pow(float64(loopBase), float64(depth)) - 1)
}

// scoreSlots runs Phase C over every non-forbidden slot in fr (spec
// §4.6 Phase C). Forbidden slots get directiveBonus = -Inf so they
// always sort to the bottom of Phase F's request list even though they
// are excluded from it entirely; required slots get +Inf so they
// always sort to the top.
func scoreSlots(fr *Frame, plat platform.Config) {
	for _, s := range fr.Slots {
		if s.Directive == DirForbidden {
			s.Score = math.Inf(-1)
			continue
		}
		depth := 0
		if s.access != nil {
			depth = s.access.MaxLoopDepth
		}
		tw := typeWeight(s.Type)
		ab := accessBonus(s.access)
		lb := loopBonus(tw+ab, depth, plat.LoopBonusBase)
		score := tw + ab + lb
		if s.Directive == DirRequired {
			score = math.Inf(1)
		}
		s.Score = score
	}
}
