// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"log/slog"
)

func TestRedactedRendering(t *testing.T) {
	wrapped := Redact("super-sensitive")

	for label, rendered := range map[string]string{
		"%v":  fmt.Sprintf("%v", wrapped),
		"%s":  fmt.Sprintf("%s", wrapped),
		"%#v": fmt.Sprintf("%#v", wrapped),
	} {
		if strings.Contains(rendered, "super-sensitive") {
			t.Errorf("fmt %s leaked the value: %s", label, rendered)
		}
		if !strings.Contains(rendered, RedactedToken) {
			t.Errorf("fmt %s did not render the token: %s", label, rendered)
		}
	}

	encoded, err := json.Marshal(struct{ Token Redacted }{wrapped})
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if strings.Contains(string(encoded), "super-sensitive") {
		t.Errorf("JSON leaked the value: %s", encoded)
	}

	var logOutput bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logOutput, nil))
	logger.Info("saving", "token", wrapped)
	if strings.Contains(logOutput.String(), "super-sensitive") {
		t.Errorf("slog leaked the value: %s", logOutput.String())
	}

	if wrapped.Reveal() != "super-sensitive" {
		t.Error("Reveal did not return the value")
	}
}
