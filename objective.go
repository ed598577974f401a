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
	"fmt"
	"math"
)

// BuildObjective sets the model objective to the sum of two cost families
// and returns it:
//
//   - regret: -RegretWeight * rank(a, t) * x[a, t] for every pair
//   - pairwise: for every soft rule, team and unordered agent pair, a
//     conjunction variable both[a1, a2, t] weighted by
//     int(|v1 - v2| * weight * SoftScale), negated for attractive rules
//
// Pairs whose integer weight is zero get no conjunction variable. When no
// term remains the model has no objective and BuildObjective returns nil.
//
// The pairwise family grows with teams * agents^2 and dominates model size.
func (c *Compiler) BuildObjective(regret *RegretTable, soft []SoftRule) (*Objective, error) {
	mark := c.model.mark()
	obj := &Objective{}

	if w := c.options.RegretWeight; w != 0 && regret != nil {
		for a := range c.matrix.Agents() {
			for t := range c.matrix.Teams() {
				obj.Add(c.matrix.At(a, t), -w*float64(regret.Rank(a, t)))
			}
		}
	}

	scale := float64(c.options.SoftScale)
	for s, rule := range soft {
		values, err := c.attrs.column(rule.Key)
		if err != nil {
			c.model.rollback(mark)
			return nil, err
		}
		sign := 1.0
		if rule.Mode == ModeAttractive {
			sign = -1.0
		}
		pairs := 0
		for t := range c.matrix.Teams() {
			for a1 := range c.matrix.Agents() {
				for a2 := a1 + 1; a2 < c.matrix.Agents(); a2++ {
					diff := math.Abs(values[a1] - values[a2])
					coef := math.Trunc(diff * rule.Weight * scale)
					if coef == 0 {
						continue
					}
					both := c.model.NewBoolVar(fmt.Sprintf("both%d_%d_%d_t%d", s, a1, a2, t))
					c.model.AddProduct(both.Lit(), c.matrix.At(a1, t).Lit(), c.matrix.At(a2, t).Lit())
					obj.Add(both, sign*coef)
					pairs++
				}
			}
		}
		c.debug("soft rule compiled", "rule", rule.String(), "pairs", pairs)
	}

	c.model.Maximize(obj)
	if c.model.Objective() == nil {
		return nil, nil
	}
	return obj, nil
}
