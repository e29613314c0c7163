// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfa

import (
	"sort"

	"blend65/internal/diag"
	"blend65/internal/platform"
)

// assignFrameRegionAddresses runs Phase E (spec §4.6 Phase E): groups
// are walked largest-first and packed into the platform's frame
// region in ascending address order. Emits FrameOverflow (fatal) if
// the region is exhausted.
func assignFrameRegionAddresses(groups []*Group, plat platform.Config, bag *diag.Bag) {
	sorted := append([]*Group{}, groups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Size != sorted[j].Size {
			return sorted[i].Size > sorted[j].Size
		}
		return sorted[i].ID < sorted[j].ID
	})

	cursor := plat.FrameRegion.Start
	for _, g := range sorted {
		if plat.WordAlignment && cursor%2 != 0 {
			cursor++
		}
		if cursor+g.Size > plat.FrameRegion.End {
			bag.Errorf(diag.Span{}, diag.CodeFrameOverflow,
				"frame region exhausted placing a %d-byte coalesce group (cursor $%04X, region ends $%04X)",
				g.Size, cursor, plat.FrameRegion.End)
			return
		}
		g.BaseAddress = cursor
		cursor += g.Size
	}
}

// zpRequest is one Phase F allocation attempt.
type zpRequest struct {
	slot *Slot
	fr   *Frame
}

// allocateZeroPage runs Phase F (spec §4.6 Phase F): required slots
// first, then the rest by descending score, first-fit into the
// platform's free zero-page pool. A slot that fails to get a ZP
// address keeps its frame-region assignment, computed afterward from
// each frame's own slot order.
func allocateZeroPage(frames []*Frame, plat platform.Config, bag *diag.Bag) {
	reserved := plat.ReservedSet()
	free := map[int]bool{}
	for a := plat.ZPRange.Start; a < plat.ZPRange.End; a++ {
		if !reserved[a] {
			free[a] = true
		}
	}

	var requests []zpRequest
	for _, fr := range frames {
		for _, s := range fr.Slots {
			if s.Directive == DirForbidden {
				continue
			}
			requests = append(requests, zpRequest{slot: s, fr: fr})
		}
	}
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if a.slot.Score != b.slot.Score {
			return a.slot.Score > b.slot.Score
		}
		if a.fr.FuncName != b.fr.FuncName {
			return a.fr.FuncName < b.fr.FuncName
		}
		return a.slot.Name < b.slot.Name
	})

	for _, req := range requests {
		s := req.slot
		if addr, ok := firstFit(free, plat.ZPRange, s.Size); ok {
			for a := addr; a < addr+s.Size; a++ {
				delete(free, a)
			}
			s.Location = LocZeroPage
			s.Address = addr
			continue
		}
		if s.Directive == DirRequired {
			bag.Errorf(diag.Span{}, diag.CodeZpRequiredFailed,
				"%q: zero-page allocation required by @zp but the zero page is exhausted", qualifiedName(req.fr, s))
			continue
		}
		bag.Warnf(diag.Span{}, diag.CodeZpPreferredFallback,
			"%q did not fit in zero page; falling back to frame-region storage", qualifiedName(req.fr, s))
	}

	for _, fr := range frames {
		offset := 0
		for _, s := range fr.Slots {
			if s.Location == LocZeroPage {
				continue
			}
			s.Location = LocFrameRegion
			s.Offset = offset
			if fr.Group != nil {
				s.Address = fr.Group.BaseAddress + offset
			}
			offset += s.Size
		}
	}
}

func qualifiedName(fr *Frame, s *Slot) string {
	return fr.FuncName + "." + s.Name
}

// firstFit scans zpRange in ascending address order for the first run
// of size consecutive free addresses.
func firstFit(free map[int]bool, zpRange platform.Range, size int) (int, bool) {
	if size == 0 {
		return 0, false
	}
	run := 0
	for a := zpRange.Start; a < zpRange.End; a++ {
		if free[a] {
			run++
			if run == size {
				return a - size + 1, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}
