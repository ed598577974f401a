package selector

import "fmt"

// Var identifies a boolean decision variable inside a Model.
// Vars are dense and numbered from zero in declaration order, so a
// []bool indexed by Var is a complete assignment.
type Var int

// Lit is a variable together with a polarity.
// A positive literal holds when its variable is true; a negative literal
// holds when its variable is false.
//
// Literals are the unit of enforcement: a reified constraint is only
// enforced when all of its enforcement literals hold.
type Lit struct {
	Var      Var
	Positive bool
}

// NewLit creates a positive literal for v.
func NewLit(v Var) Lit {
	return Lit{Var: v, Positive: true}
}

// NewNegativeLit creates a negative literal for v.
func NewNegativeLit(v Var) Lit {
	return Lit{Var: v, Positive: false}
}

// Lit returns the positive literal of v.
func (v Var) Lit() Lit {
	return NewLit(v)
}

// Not returns the negative literal of v.
func (v Var) Not() Lit {
	return NewNegativeLit(v)
}

// String returns the variable in the x<index> form used by constraint descriptions.
func (v Var) String() string {
	return fmt.Sprintf("x%d", int(v))
}

// Negate returns the logical negation of the literal.
func (l Lit) Negate() Lit {
	return Lit{Var: l.Var, Positive: !l.Positive}
}

// IsPositive reports whether the literal asserts its variable is true.
func (l Lit) IsPositive() bool {
	return l.Positive
}

// String returns a human-readable representation of the literal.
func (l Lit) String() string {
	if l.Positive {
		return l.Var.String()
	}
	return "!" + l.Var.String()
}

// SatisfiedBy reports whether the literal holds under values.
// Variables outside of values are treated as false.
func (l Lit) SatisfiedBy(values []bool) bool {
	v := false
	if int(l.Var) >= 0 && int(l.Var) < len(values) {
		v = values[l.Var]
	}
	if l.Positive {
		return v
	}
	return !v
}
