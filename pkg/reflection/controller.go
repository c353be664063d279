// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reflection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/reflector/pkg/model"
)

// Controller drives the alternating generator/reflector loop and owns the
// stopping decision. One controller can serve many runs; each run owns its
// own transcript.
type Controller struct {
	generator *Invoker
	reflector *Invoker
	turnLimit int
}

// NewController creates a controller with the given invokers and turn limit.
// turnLimit is the transcript length (count of turns, seed included) past
// which the loop stops: the run ends after the first generator turn that
// pushes the transcript strictly above the limit. The stopping rule is a
// pure function of transcript length; no content-quality signal is computed.
func NewController(generator, reflector *Invoker, turnLimit int) (*Controller, error) {
	if generator == nil || generator.Role() != RoleGenerator {
		return nil, fmt.Errorf("generator invoker is required")
	}
	if reflector == nil || reflector.Role() != RoleReflector {
		return nil, fmt.Errorf("reflector invoker is required")
	}
	if turnLimit < 1 {
		return nil, fmt.Errorf("%w: turn limit must be a positive integer, got %d", ErrInvalidInput, turnLimit)
	}

	return &Controller{
		generator: generator,
		reflector: reflector,
		turnLimit: turnLimit,
	}, nil
}

// Result is what a completed run yields. The transcript itself is not
// retained: callers get the final artifact plus accounting.
type Result struct {
	// RunID uniquely identifies the run, matching its log lines.
	RunID string

	// Artifact is the text of the last generator turn.
	Artifact string

	// TranscriptLen is the final transcript length, seed included.
	TranscriptLen int

	// GeneratorCalls and ReflectorCalls count invocations per role.
	GeneratorCalls int
	ReflectorCalls int

	// Usage aggregates token usage across all invocations, when providers
	// report it.
	Usage model.Usage

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Run executes one refinement loop for the given topic and returns the final
// artifact. The loop is strictly sequential: each invocation blocks until
// the provider responds, and no two invocations are ever in flight at once.
// Any invocation failure aborts the run; the partial transcript is
// discarded and no artifact is returned.
func (c *Controller) Run(ctx context.Context, topic string) (*Result, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("%w: topic must not be empty", ErrInvalidInput)
	}

	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	log := slog.With("run_id", result.RunID)

	log.Info("Run started",
		"topic", topic,
		"turn_limit", c.turnLimit,
		"generator_model", c.generator.Model(),
		"reflector_model", c.reflector.Model())

	transcript := NewTranscript(topic)

	for {
		draft, err := c.generator.Invoke(ctx, transcript)
		if err != nil {
			log.Error("Run failed", "error", err)
			return nil, err
		}
		transcript.Append(OriginGenerator, draft.Text)
		result.GeneratorCalls++
		result.Usage.Add(draft.Usage)
		log.Debug("Generator turn complete",
			"turn", transcript.Len(), "chars", len(draft.Text))

		if transcript.Len() > c.turnLimit {
			result.Artifact = draft.Text
			result.TranscriptLen = transcript.Len()
			result.Duration = time.Since(start)
			log.Info("Run complete",
				"turns", result.TranscriptLen,
				"generator_calls", result.GeneratorCalls,
				"reflector_calls", result.ReflectorCalls,
				"total_tokens", result.Usage.TotalTokens,
				"duration", result.Duration)
			return result, nil
		}

		critique, err := c.reflector.Invoke(ctx, transcript)
		if err != nil {
			log.Error("Run failed", "error", err)
			return nil, err
		}
		transcript.Append(OriginReflector, critique.Text)
		result.ReflectorCalls++
		result.Usage.Add(critique.Usage)
		log.Debug("Reflector turn complete",
			"turn", transcript.Len(), "chars", len(critique.Text))
	}
}
