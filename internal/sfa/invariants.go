// Copyright 2026 The Blend65 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sfa

import (
	"strings"

	"golang.org/x/xerrors"
)

// CheckInvariants wraps Validate's findings as a single Go error, for
// callers (the driver, tests) that want an idiomatic error return
// rather than a raw problem list. A non-nil result here is always an
// internal invariant violation — a real compilation input never
// reaches this point with one, since Phases A-F each already abort via
// diag on any user-triggerable condition — so callers are expected to
// treat it as unrecoverable (mirrors cmd/compile's own base.Fatalf
// call sites for "this should never happen" conditions).
func (fm *FrameMap) CheckInvariants() error {
	problems := fm.Validate()
	if len(problems) == 0 {
		return nil
	}
	return xerrors.Errorf("sfa: invariant violation: %s", strings.Join(problems, "; "))
}
