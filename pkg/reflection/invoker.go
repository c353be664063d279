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

	"github.com/kadirpekel/reflector/pkg/model"
)

// Role identifies which persona an invoker speaks as.
type Role string

const (
	RoleGenerator Role = "generator"
	RoleReflector Role = "reflector"
)

// Origin returns the transcript origin for turns produced by this role.
func (r Role) Origin() Origin {
	if r == RoleReflector {
		return OriginReflector
	}
	return OriginGenerator
}

// Invoker produces one role's next contribution by delegating to an LLM
// bound at construction time. The instruction preamble is immutable for the
// lifetime of the invoker and its content is never inspected here.
type Invoker struct {
	role        Role
	instruction string
	llm         model.LLM
	config      *model.GenerateConfig
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithGenerateConfig sets per-role generation overrides (temperature,
// max tokens) applied to every invocation.
func WithGenerateConfig(cfg *model.GenerateConfig) InvokerOption {
	return func(inv *Invoker) {
		inv.config = cfg
	}
}

// NewInvoker creates an invoker for the given role. The LLM handle is an
// explicit capability: there is no ambient, process-wide client.
func NewInvoker(role Role, instruction string, llm model.LLM, opts ...InvokerOption) (*Invoker, error) {
	if role != RoleGenerator && role != RoleReflector {
		return nil, fmt.Errorf("unknown role: %s", role)
	}
	if instruction == "" {
		return nil, fmt.Errorf("instruction is required for role %s", role)
	}
	if llm == nil {
		return nil, fmt.Errorf("LLM is required for role %s", role)
	}

	inv := &Invoker{
		role:        role,
		instruction: instruction,
		llm:         llm,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv, nil
}

// Role returns the invoker's role identity.
func (inv *Invoker) Role() Role {
	return inv.role
}

// Model returns the name of the bound model.
func (inv *Invoker) Model() string {
	return inv.llm.Name()
}

// Invoke sends the role preamble plus the full transcript (every turn, in
// order, projected through the presentation rule) to the LLM and returns its
// response verbatim. Content is never post-processed or truncated; the only
// check is that the service produced text at all.
func (inv *Invoker) Invoke(ctx context.Context, transcript *Transcript) (*model.Response, error) {
	req := &model.Request{
		SystemInstruction: inv.instruction,
		Messages:          transcript.Messages(),
		Config:            inv.config.Clone(),
	}

	resp, err := inv.llm.Generate(ctx, req)
	if err != nil {
		return nil, &GenerationError{Role: inv.role, Err: err}
	}
	if resp == nil || resp.Text == "" {
		return nil, &GenerationError{Role: inv.role, Err: fmt.Errorf("empty response from %s", inv.llm.Name())}
	}

	return resp, nil
}
