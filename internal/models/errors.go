// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package models

import "errors"

// ErrInvalid marks a request rejected by domain validation. Services wrap
// their validation failures with it so the API layer answers 400 instead
// of treating them as internal faults.
var ErrInvalid = errors.New("invalid input")
