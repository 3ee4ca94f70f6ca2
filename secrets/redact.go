// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"log/slog"
)

// RedactedToken is what a Redacted value renders as everywhere.
const RedactedToken = "[redacted]"

// Redacted wraps a sensitive string so that every incidental rendering
// path (fmt verbs, JSON encoding, slog attributes) produces a fixed
// token instead of the value. Code that genuinely needs the value calls
// Reveal, which is greppable.
type Redacted struct {
	value string
}

// Redact wraps value.
func Redact(value string) Redacted {
	return Redacted{value: value}
}

// Reveal returns the wrapped value. Call sites are the audit surface.
func (r Redacted) Reveal() string {
	return r.value
}

func (r Redacted) String() string {
	return RedactedToken
}

// GoString covers %#v, which bypasses String.
func (r Redacted) GoString() string {
	return RedactedToken
}

func (r Redacted) MarshalJSON() ([]byte, error) {
	return []byte(`"` + RedactedToken + `"`), nil
}

// LogValue implements slog.LogValuer.
func (r Redacted) LogValue() slog.Value {
	return slog.StringValue(RedactedToken)
}
