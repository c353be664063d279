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

// Package reflection implements the bounded generator/reflector refinement
// loop: a generator role drafts a response to a topic, a reflector role
// critiques the latest draft, and the two alternate until the transcript
// grows past a fixed turn limit. The last generator draft is the result.
package reflection

import (
	"github.com/kadirpekel/reflector/pkg/model"
)

// Origin identifies which side of the loop produced a turn.
type Origin string

const (
	// OriginSeed is the user's topic that starts the run.
	OriginSeed Origin = "seed"

	// OriginGenerator marks a generator draft.
	OriginGenerator Origin = "generator"

	// OriginReflector marks a reflector critique.
	OriginReflector Origin = "reflector"
)

// ChatRole maps an origin to the conversational role presented to the LLM.
// Reflector output is deliberately presented as user input: the next
// generator call must treat critique exactly like externally supplied
// instructions, indistinguishable from the seed topic.
func (o Origin) ChatRole() model.ChatRole {
	if o == OriginGenerator {
		return model.ChatRoleAssistant
	}
	return model.ChatRoleUser
}

// Turn is one contribution appended to the transcript.
type Turn struct {
	Origin Origin
	Text   string
}

// Transcript is the ordered history of one run. It is append-only: turns are
// never reordered, mutated, or removed. A transcript belongs to exactly one
// run and is discarded when the run ends.
type Transcript struct {
	turns []Turn
}

// NewTranscript creates a transcript seeded with the user's topic.
func NewTranscript(topic string) *Transcript {
	return &Transcript{
		turns: []Turn{{Origin: OriginSeed, Text: topic}},
	}
}

// Append adds one turn at the end of the transcript.
func (t *Transcript) Append(origin Origin, text string) {
	t.turns = append(t.turns, Turn{Origin: origin, Text: text})
}

// Len returns the number of turns, seed included.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Last returns the most recent turn.
func (t *Transcript) Last() Turn {
	return t.turns[len(t.turns)-1]
}

// Turns returns a copy of the transcript entries.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Messages projects the full transcript, in order, through the origin
// presentation rule into conversational context for an LLM call.
func (t *Transcript) Messages() []model.Message {
	messages := make([]model.Message, len(t.turns))
	for i, turn := range t.turns {
		messages[i] = model.Message{
			Role: turn.Origin.ChatRole(),
			Text: turn.Text,
		}
	}
	return messages
}
