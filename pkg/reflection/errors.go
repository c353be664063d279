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
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a run is rejected before any LLM call:
// empty topic, or a non-positive turn limit.
var ErrInvalidInput = errors.New("invalid input")

// GenerationError wraps any failure raised by the text-generation service
// during an invocation. The loop performs no recovery: a GenerationError
// aborts the whole run and the accumulated transcript is discarded.
type GenerationError struct {
	Role Role
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Role, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
