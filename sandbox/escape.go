// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"fmt"
	"time"
)

// ProbeResult is the outcome of one escape probe.
type ProbeResult struct {
	// Name identifies the probe.
	Name string

	// Passed is true when the sandbox behaved as required: blocked
	// probes failed, allowed probes succeeded.
	Passed bool

	// Detail explains a failure.
	Detail string
}

// probe is one escape attempt and the behavior the sandbox must show.
type probe struct {
	name string
	spec CommandSpec

	// wantSuccess is the acceptable outcome: true means the command
	// must succeed, false means isolation must make it fail.
	wantSuccess bool
}

// SelfTest runs a battery of escape probes through the controller and
// reports which held. It actually spawns the wrapped commands, so it is
// only called from the explicit `sandbox test` operation, never on the
// request path. Probes that must fail are destructive on an unconfined
// host only to the extent of creating one marker file, which the probe
// removes again if it ever succeeds.
func SelfTest(ctx context.Context, controller *Controller) []ProbeResult {
	marker := fmt.Sprintf("/usr/local/warden-escape-%d", time.Now().UnixNano())

	probes := []probe{
		{
			name: "write outside writable paths",
			spec: CommandSpec{
				Program: "sh",
				Args:    []string{"-c", fmt.Sprintf("touch %s && rm -f %s", marker, marker)},
			},
			wantSuccess: false,
		},
		{
			name: "write to /etc",
			spec: CommandSpec{
				Program: "sh",
				Args:    []string{"-c", "touch /etc/warden-escape-test && rm -f /etc/warden-escape-test"},
			},
			wantSuccess: false,
		},
		{
			name: "read allowed inside /tmp",
			spec: CommandSpec{
				Program: "sh",
				Args:    []string{"-c", "ls /tmp >/dev/null"},
			},
			wantSuccess: true,
		},
		{
			name: "master key absent from child environment",
			spec: CommandSpec{
				Program: "sh",
				Args:    []string{"-c", `test -z "$WARDEN_MASTER_KEY"`},
			},
			wantSuccess: true,
		},
		{
			name: "parent environment not inherited",
			spec: CommandSpec{
				Program: "sh",
				Args:    []string{"-c", `test -z "$AWS_SECRET_ACCESS_KEY" && test -z "$OPENAI_API_KEY"`},
			},
			wantSuccess: true,
		},
	}

	results := make([]ProbeResult, 0, len(probes))
	for _, p := range probes {
		results = append(results, runProbe(ctx, controller, p))
	}
	return results
}

func runProbe(ctx context.Context, controller *Controller, p probe) ProbeResult {
	wrapped, err := controller.Wrap(p.spec)
	if err != nil {
		return ProbeResult{
			Name:   p.name,
			Passed: false,
			Detail: fmt.Sprintf("wrap failed: %v", err),
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	runErr := wrapped.Command(probeCtx).Run()
	succeeded := runErr == nil

	if succeeded == p.wantSuccess {
		return ProbeResult{Name: p.name, Passed: true}
	}
	detail := "command succeeded but isolation should have blocked it"
	if !succeeded {
		detail = fmt.Sprintf("command failed but should have succeeded: %v", runErr)
	}
	return ProbeResult{Name: p.name, Passed: false, Detail: detail}
}
