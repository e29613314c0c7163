// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platform holds the target-machine configuration consumed by
// the static frame allocator (spec §6 "Platform configuration"). It is
// a plain, in-memory struct with named presets, the same shape
// cmd/go/internal/modload holds its parsed module file in memory
// rather than re-reading it per call — no file format is parsed here,
// since CLI/config loading is explicitly out of scope.
package platform

// Range is a half-open address interval [Start, End).
type Range struct {
	Start, End int
}

// Size returns the number of addresses in r.
func (r Range) Size() int { return r.End - r.Start }

// Contains reports whether addr lies in [Start, End).
func (r Range) Contains(addr int) bool { return addr >= r.Start && addr < r.End }

// Config is the platform configuration object of spec §6: the
// frame-region interval, the ZP range and its reservations, the
// hardware stack range (reserved, never allocated into), pointer size,
// and alignment.
type Config struct {
	Name string

	// AddressSpace is the full addressable range of the target machine
	// (spec §7 "AddressOutOfRange (@map literal outside memory)"); the
	// symbol builder rejects any `@map` literal that falls outside it.
	AddressSpace Range

	// FrameRegion is the RAM interval the allocator assigns coalesced
	// frame-region addresses within (spec §4.6 Phase E).
	FrameRegion Range

	// ZPRange is the full zero-page address interval.
	ZPRange Range
	// ReservedZP holds addresses within ZPRange that are never handed
	// out (e.g. the 6502's own $00/$01 I/O direction/data registers).
	ReservedZP []int
	// ScratchZP is a small sub-range set aside for the code generator's
	// own use (e.g. multiplication scratch); not available to the
	// allocator (spec §6 "not for allocation").
	ScratchZP Range

	// HardwareStack is reserved and never used by SFA; recorded only so
	// a FrameMap consumer can validate no frame address collides with
	// it.
	HardwareStack Range

	// PointerSize is always 2 on the 6502 (spec §6).
	PointerSize int
	// WordAlignment, if true, allocates 2-byte slots on even addresses
	// when possible (spec §6 "2-byte alignment is optional for words").
	WordAlignment bool

	// DefaultMaxFrameBytes bounds a single function's raw frame size
	// (spec §4.6 Phase A, default 256).
	DefaultMaxFrameBytes int
	// DefaultCallDepthWarning is the call-depth threshold the call graph
	// builder warns past (spec §4.5, default 16).
	DefaultCallDepthWarning int
	// LoopBonusBase is the configurable base `L` of the Phase C loop
	// bonus (spec §4.6, default 2).
	LoopBonusBase int
}

// ReservedSet returns the platform's reserved ZP addresses as a lookup
// set, including the scratch range, so the allocator's free-pool
// construction (Phase F) only has to consult one structure.
func (c Config) ReservedSet() map[int]bool {
	out := make(map[int]bool, len(c.ReservedZP)+c.ScratchZP.Size())
	for _, a := range c.ReservedZP {
		out[a] = true
	}
	for a := c.ScratchZP.Start; a < c.ScratchZP.End; a++ {
		out[a] = true
	}
	return out
}

// C64 is the recommended Commodore 64 configuration (spec §6):
// frame region $0200..$0400, ZP $02..$90, reserved $00..$01, scratch
// $FB..$FF.
var C64 = Config{
	Name:                    "c64",
	AddressSpace:            Range{Start: 0x0000, End: 0x10000},
	FrameRegion:             Range{Start: 0x0200, End: 0x0400},
	ZPRange:                 Range{Start: 0x02, End: 0x90},
	ReservedZP:              []int{0x00, 0x01},
	ScratchZP:               Range{Start: 0xFB, End: 0x100},
	HardwareStack:           Range{Start: 0x0100, End: 0x0200},
	PointerSize:             2,
	WordAlignment:           true,
	DefaultMaxFrameBytes:    256,
	DefaultCallDepthWarning: 16,
	LoopBonusBase:           2,
}

// X16 is the Commander X16 alternate-backend preset. Its zero page is
// more constrained than the C64's because the KERNAL and banking
// machinery reserve a larger low region; the frame region is widened
// to compensate since the X16 has far more general RAM available.
var X16 = Config{
	Name:                    "x16",
	AddressSpace:            Range{Start: 0x0000, End: 0x10000},
	FrameRegion:             Range{Start: 0x0400, End: 0x0800},
	ZPRange:                 Range{Start: 0x22, End: 0x80},
	ReservedZP:              []int{0x00, 0x01},
	ScratchZP:               Range{Start: 0x78, End: 0x80},
	HardwareStack:           Range{Start: 0x0100, End: 0x0200},
	PointerSize:             2,
	WordAlignment:           true,
	DefaultMaxFrameBytes:    256,
	DefaultCallDepthWarning: 16,
	LoopBonusBase:           2,
}
