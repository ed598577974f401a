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
	"regexp"

	"gopkg.in/yaml.v3"
)

// ParseRule decodes a rule payload into a typed rule tree. The payload is
// JSON or YAML:
//
//	{"kind": "hard", "rule": {"op": "includes", "key": "k", "value": true, "min": 1}}
//	{"kind": "soft", "key": "k", "mode": "attractive", "weight": 0.5}
//	{"kind": "logical", "rule": {"op": "or", "rules": [ ... ]}}
//	{"kind": "logical", "rule": {"op": "not", "rule": { ... }}}
//
// A hard node whose op is and, or or not is read as a logical node. Hard
// and logical nodes take an optional "team" pinning them to one team.
//
// Schema problems are reported as *SchemaError at the failing node.
func ParseRule(data []byte) (Rule, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaError{Path: "$", Message: err.Error()}
	}
	return DecodeRule(raw)
}

// DecodeRule builds a rule tree from a generic decoded value, as produced
// by encoding/json or yaml.v3 into an any.
func DecodeRule(raw any) (Rule, error) {
	return decodeRule(raw, "$")
}

func decodeRule(raw any, path string) (Rule, error) {
	node, err := asObject(raw, path)
	if err != nil {
		return nil, err
	}
	kind, err := requireString(node, "kind", path)
	if err != nil {
		return nil, err
	}
	team, err := optionalInt(node, "team", path)
	if err != nil {
		return nil, err
	}

	switch Kind(kind) {
	case KindHard:
		body, err := requireObject(node, "rule", path)
		if err != nil {
			return nil, err
		}
		op, err := requireString(body, "op", path+".rule")
		if err != nil {
			return nil, err
		}
		if isLogicalOp(op) {
			return decodeLogical(body, team, path+".rule")
		}
		pred, err := decodePredicate(HardOp(op), body, path+".rule")
		if err != nil {
			return nil, err
		}
		return &HardRule{Team: team, Predicate: pred}, nil

	case KindSoft:
		if team != nil {
			return nil, &SchemaError{Path: path, Message: "soft rules cannot be pinned to a team"}
		}
		return decodeSoft(node, path)

	case KindLogical:
		body, err := requireObject(node, "rule", path)
		if err != nil {
			return nil, err
		}
		return decodeLogical(body, team, path+".rule")

	default:
		return nil, &SchemaError{Path: path, Message: fmt.Sprintf("unknown kind %q", kind)}
	}
}

func decodeSoft(node map[string]any, path string) (*SoftRule, error) {
	key, err := requireString(node, "key", path)
	if err != nil {
		return nil, err
	}
	mode, err := requireString(node, "mode", path)
	if err != nil {
		return nil, err
	}
	if Mode(mode) != ModeAttractive && Mode(mode) != ModeRepulsive {
		return nil, &SchemaError{Path: path + ".mode", Message: fmt.Sprintf("unknown mode %q", mode)}
	}
	weight := DefaultSoftWeight
	if w, ok, err := optionalNumber(node, "weight", path); err != nil {
		return nil, err
	} else if ok {
		weight = w
	}
	return &SoftRule{Key: key, Mode: Mode(mode), Weight: weight}, nil
}

func decodeLogical(body map[string]any, team *int, path string) (*LogicalRule, error) {
	op, err := requireString(body, "op", path)
	if err != nil {
		return nil, err
	}
	rule := &LogicalRule{Op: LogicalOp(op), Team: team}

	switch rule.Op {
	case OpAnd, OpOr:
		children, err := requireList(body, "rules", path)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, &SchemaError{Path: path + ".rules", Message: fmt.Sprintf("%s needs at least one rule", op)}
		}
		for i, child := range children {
			r, err := decodeRule(child, fmt.Sprintf("%s.rules[%d]", path, i))
			if err != nil {
				return nil, err
			}
			rule.Rules = append(rule.Rules, r)
		}

	case OpNot:
		child, ok := body["rule"]
		childPath := path + ".rule"
		if !ok {
			list, err := requireList(body, "rules", path)
			if err != nil {
				return nil, &SchemaError{Path: path, Message: `missing required field "rule"`}
			}
			if len(list) != 1 {
				return nil, &SchemaError{Path: path + ".rules", Message: fmt.Sprintf("not takes exactly one rule, got %d", len(list))}
			}
			child, childPath = list[0], path+".rules[0]"
		}
		r, err := decodeRule(child, childPath)
		if err != nil {
			return nil, err
		}
		rule.Rules = []Rule{r}

	default:
		return nil, &SchemaError{Path: path + ".op", Message: fmt.Sprintf("unsupported logical operator %q", op)}
	}
	return rule, nil
}

func decodePredicate(op HardOp, body map[string]any, path string) (Predicate, error) {
	key, err := requireString(body, "key", path)
	if err != nil {
		return nil, err
	}

	switch op {
	case OpIncludes:
		value, ok := body["value"]
		if !ok {
			return nil, missing(path, "value")
		}
		lo, err := optionalInt(body, "min", path)
		if err != nil {
			return nil, err
		}
		hi, err := optionalInt(body, "max", path)
		if err != nil {
			return nil, err
		}
		return &Includes{Key: key, Value: value, Min: lo, Max: hi}, nil

	case OpRange:
		lo, err := requireNumber(body, "min", path)
		if err != nil {
			return nil, err
		}
		hi, err := requireNumber(body, "max", path)
		if err != nil {
			return nil, err
		}
		return &Range{Key: key, Min: lo, Max: hi}, nil

	case OpEquals:
		value, err := requireNumber(body, "value", path)
		if err != nil {
			return nil, err
		}
		return &Equals{Key: key, Value: value}, nil

	case OpRegex:
		pattern, err := requireString(body, "pattern", path)
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &SchemaError{Path: path + ".pattern", Message: err.Error()}
		}
		return &Regex{Key: key, Pattern: re}, nil

	default:
		return nil, &SchemaError{Path: path + ".op", Message: fmt.Sprintf("unsupported hard constraint op %q", op)}
	}
}

func isLogicalOp(op string) bool {
	switch LogicalOp(op) {
	case OpAnd, OpOr, OpNot:
		return true
	}
	return false
}

func missing(path, field string) *SchemaError {
	return &SchemaError{Path: path, Message: fmt.Sprintf("missing required field %q", field)}
}

func asObject(raw any, path string) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			s, ok := k.(string)
			if !ok {
				return nil, &SchemaError{Path: path, Message: fmt.Sprintf("non-string key %v", k)}
			}
			out[s] = val
		}
		return out, nil
	default:
		return nil, &SchemaError{Path: path, Message: fmt.Sprintf("expected an object, got %T", raw)}
	}
}

func requireObject(node map[string]any, field, path string) (map[string]any, error) {
	raw, ok := node[field]
	if !ok {
		return nil, missing(path, field)
	}
	return asObject(raw, path+"."+field)
}

func requireList(node map[string]any, field, path string) ([]any, error) {
	raw, ok := node[field]
	if !ok {
		return nil, missing(path, field)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &SchemaError{Path: path + "." + field, Message: fmt.Sprintf("expected a list, got %T", raw)}
	}
	return list, nil
}

func requireString(node map[string]any, field, path string) (string, error) {
	raw, ok := node[field]
	if !ok {
		return "", missing(path, field)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", &SchemaError{Path: path + "." + field, Message: fmt.Sprintf("expected a non-empty string, got %v", raw)}
	}
	return s, nil
}

// requireNumber reads a predicate operand. Booleans read as 1 and 0, the
// same as attribute values.
func requireNumber(node map[string]any, field, path string) (float64, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return 0, missing(path, field)
	}
	if _, isString := raw.(string); isString {
		return 0, &SchemaError{Path: path + "." + field, Message: fmt.Sprintf("expected a number, got %q", raw)}
	}
	f, ok := toFloat(raw)
	if !ok {
		return 0, &SchemaError{Path: path + "." + field, Message: fmt.Sprintf("expected a number, got %v", raw)}
	}
	return f, checkMagnitude(f, field, path)
}

func optionalNumber(node map[string]any, field, path string) (float64, bool, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch raw.(type) {
	case string, bool:
		return 0, false, &SchemaError{Path: path + "." + field, Message: fmt.Sprintf("expected a number, got %v", raw)}
	}
	f, ok := toFloat(raw)
	if !ok {
		return 0, false, &SchemaError{Path: path + "." + field, Message: fmt.Sprintf("expected a number, got %v", raw)}
	}
	return f, true, checkMagnitude(f, field, path)
}

func checkMagnitude(f float64, field, path string) error {
	if !finiteOperand(f) {
		return &SchemaError{Path: path + "." + field, Message: fmt.Sprintf("%v is out of range [-%g, %g]", f, maxOperand, maxOperand)}
	}
	return nil
}

func optionalInt(node map[string]any, field, path string) (*int, error) {
	f, ok, err := optionalNumber(node, field, path)
	if err != nil || !ok {
		return nil, err
	}
	if f != math.Trunc(f) {
		return nil, &SchemaError{Path: path + "." + field, Message: fmt.Sprintf("expected an integer, got %v", node[field])}
	}
	n := int(f)
	return &n, nil
}
