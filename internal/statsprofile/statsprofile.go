// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package statsprofile turns a Static Frame Allocator result (spec §4.6
// "Result", §3 FrameMap "allocation statistics") into a
// github.com/google/pprof/profile.Profile, so the stock pprof web UI
// (flame graph, top, list) can be pointed at a compilation's memory
// layout the same way it is pointed at a CPU or heap profile: one
// sample per frame slot, sized in bytes, labeled with its function,
// slot name, kind and location plus a numeric address label, located
// at the function that owns it.
package statsprofile

import (
	"fmt"

	"github.com/google/pprof/profile"

	"blend65/internal/sfa"
	"blend65/internal/symbols"
)

// Render builds a Profile describing every slot in fm. digest, if
// non-zero, is recorded as a profile comment ("preamble-digest:...")
// so the profile can be tied back to the exact preamble bundle (spec
// §1's incremental-recompilation compatibility point) that produced
// the compilation it describes.
func Render(fm *sfa.FrameMap, table *symbols.Table, digest [32]byte) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "bytes", Unit: "bytes"},
		},
		PeriodType: &profile.ValueType{Type: "space", Unit: "bytes"},
		Period:     1,
	}

	var zero [32]byte
	if digest != zero {
		p.Comments = append(p.Comments, fmt.Sprintf("preamble-digest:%x", digest))
	}

	funcs := map[string]*profile.Function{}
	var nextFuncID, nextLocID uint64

	funcFor := func(name string) *profile.Function {
		if f, ok := funcs[name]; ok {
			return f
		}
		nextFuncID++
		f := &profile.Function{ID: nextFuncID, Name: name, SystemName: name}
		funcs[name] = f
		p.Function = append(p.Function, f)
		return f
	}

	locFor := func(fnName string) *profile.Location {
		nextLocID++
		loc := &profile.Location{
			ID:   nextLocID,
			Line: []profile.Line{{Function: funcFor(fnName)}},
		}
		p.Location = append(p.Location, loc)
		return loc
	}

	// Frames map iteration order is otherwise unspecified; sort by
	// function symbol so a Profile's sample order is stable across
	// identical compilations (cosmetic, but makes golden-file
	// comparisons in tests possible).
	var ids []symbols.SymbolID
	for id := range fm.Frames {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}

	for _, id := range ids {
		fr := fm.Frames[id]
		loc := locFor(fr.FuncName)
		for _, s := range fr.Slots {
			sample := &profile.Sample{
				Location: []*profile.Location{loc},
				Value:    []int64{int64(s.Size)},
				Label: map[string][]string{
					"function": {fr.FuncName},
					"slot":     {s.Name},
					"kind":     {slotKindName(s.Kind)},
					"location": {s.Location.String()},
				},
				NumLabel: map[string][]int64{
					"address": {int64(s.Address)},
				},
				NumUnit: map[string][]string{
					"address": {"bytes"},
				},
			}
			p.Sample = append(p.Sample, sample)
		}
	}

	for _, g := range fm.Groups {
		saved := bytesSavedByCoalescing(g)
		if saved == 0 {
			continue
		}
		p.Comments = append(p.Comments, fmt.Sprintf("coalesce-group %d: %d bytes saved across %d frames", g.ID, saved, len(g.Members)))
	}

	return p
}

func slotKindName(k sfa.SlotKind) string {
	switch k {
	case sfa.SlotParam:
		return "param"
	case sfa.SlotReturn:
		return "return"
	case sfa.SlotLocal:
		return "local"
	case sfa.SlotTemp:
		return "temp"
	default:
		return "unknown"
	}
}

// bytesSavedByCoalescing reports how many bytes a coalesce group saved
// over giving every member frame its own, non-overlapping address:
// the sum of every member's raw size minus the group's actual shared
// size (spec §4.6 Phase D "coalescing").
func bytesSavedByCoalescing(g *sfa.Group) int {
	sum := 0
	for _, fr := range g.Members {
		sum += fr.RawSize
	}
	if sum <= g.Size {
		return 0
	}
	return sum - g.Size
}
