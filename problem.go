// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
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

package selector

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Problem is the input of one solve: the team layout, the agents and the
// rule trees compiled in order against the same model.
type Problem struct {
	Teams    int     `yaml:"teams" validate:"gt=0"`
	Capacity int     `yaml:"capacity" validate:"gt=0"`
	Agents   []Agent `yaml:"agents" validate:"required,dive"`
	Rules    []Rule  `yaml:"-" validate:"-"`
}

// problemValidate is shared; validator caches struct metadata per type.
var problemValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects structurally inconsistent problems with a *ConfigError:
// non-positive counts, teams*capacity different from the agent count, and
// agent ids that do not match their position.
func (p *Problem) Validate() error {
	if err := problemValidate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("value %v fails %q", fe.Value(), fieldRule(fe)),
			}
		}
		return &ConfigError{Message: err.Error()}
	}

	if p.Teams*p.Capacity != len(p.Agents) {
		return &ConfigError{
			Field: "Problem.Agents",
			Message: fmt.Sprintf("%d teams of %d need %d agents, got %d",
				p.Teams, p.Capacity, p.Teams*p.Capacity, len(p.Agents)),
		}
	}
	for i, agent := range p.Agents {
		if agent.ID != i {
			return &ConfigError{
				Field:   fmt.Sprintf("Problem.Agents[%d].ID", i),
				Message: fmt.Sprintf("id %d does not match position %d", agent.ID, i),
			}
		}
	}
	return nil
}

func fieldRule(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
