package playbook

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eniac111/cephops/internal/facts"
)

// Condition is a typed predicate over a host's facts. Conditions are
// structured variants rather than expression strings so a playbook cannot
// smuggle in arbitrary evaluation.
type Condition interface {
	Eval(v facts.View) bool
	String() string
}

// Truthy holds when the named fact has a truthy value ("true", "yes", "on",
// "1"). Undefined facts are falsy.
type Truthy struct {
	Fact string
}

func (c Truthy) Eval(v facts.View) bool { return v.Bool(c.Fact) }
func (c Truthy) String() string         { return c.Fact }

// Equals holds when the named fact equals Value exactly.
type Equals struct {
	Fact  string
	Value string
}

func (c Equals) Eval(v facts.View) bool {
	val, ok := v.Lookup(c.Fact)
	return ok && val == c.Value
}

func (c Equals) String() string { return fmt.Sprintf("%s == %q", c.Fact, c.Value) }

// Defined holds when the named fact exists, regardless of value.
type Defined struct {
	Fact string
}

func (c Defined) Eval(v facts.View) bool {
	_, ok := v.Lookup(c.Fact)
	return ok
}

func (c Defined) String() string { return fmt.Sprintf("defined(%s)", c.Fact) }

// Not negates its operand.
type Not struct {
	Cond Condition
}

func (c Not) Eval(v facts.View) bool { return !c.Cond.Eval(v) }
func (c Not) String() string         { return "not (" + c.Cond.String() + ")" }

// All holds when every operand holds. An empty All holds.
type All struct {
	Conds []Condition
}

func (c All) Eval(v facts.View) bool {
	for _, sub := range c.Conds {
		if !sub.Eval(v) {
			return false
		}
	}
	return true
}

func (c All) String() string { return joinConds(c.Conds, " and ") }

// Any holds when at least one operand holds. An empty Any does not.
type Any struct {
	Conds []Condition
}

func (c Any) Eval(v facts.View) bool {
	for _, sub := range c.Conds {
		if sub.Eval(v) {
			return true
		}
	}
	return false
}

func (c Any) String() string { return joinConds(c.Conds, " or ") }

func joinConds(conds []Condition, sep string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = "(" + c.String() + ")"
	}
	return strings.Join(parts, sep)
}

// Clause wraps a Condition for YAML decoding. The YAML mirrors the variant
// structure:
//
//	when:
//	  all:
//	    - fact: containerized
//	      truthy: true
//	    - not: {fact: frontend_port, equals: "80"}
type Clause struct {
	Cond Condition
}

func (c Clause) Eval(v facts.View) bool {
	if c.Cond == nil {
		return true
	}
	return c.Cond.Eval(v)
}

type rawClause struct {
	Fact    string   `yaml:"fact"`
	Truthy  *bool    `yaml:"truthy"`
	Equals  *string  `yaml:"equals"`
	Defined *bool    `yaml:"defined"`
	Not     *Clause  `yaml:"not"`
	All     []Clause `yaml:"all"`
	Any     []Clause `yaml:"any"`
}

func (c *Clause) UnmarshalYAML(node *yaml.Node) error {
	var raw rawClause
	if err := node.Decode(&raw); err != nil {
		return err
	}

	forms := 0
	if raw.Truthy != nil || (raw.Fact != "" && raw.Equals == nil && raw.Defined == nil) {
		forms++
	}
	if raw.Equals != nil {
		forms++
	}
	if raw.Defined != nil {
		forms++
	}
	if raw.Not != nil {
		forms++
	}
	if raw.All != nil {
		forms++
	}
	if raw.Any != nil {
		forms++
	}
	if forms != 1 {
		return fmt.Errorf("condition must have exactly one form (truthy/equals/defined/not/all/any), got %d", forms)
	}

	switch {
	case raw.Equals != nil:
		if raw.Fact == "" {
			return fmt.Errorf("equals condition requires a fact name")
		}
		c.Cond = Equals{Fact: raw.Fact, Value: *raw.Equals}
	case raw.Defined != nil:
		if raw.Fact == "" {
			return fmt.Errorf("defined condition requires a fact name")
		}
		cond := Condition(Defined{Fact: raw.Fact})
		if !*raw.Defined {
			cond = Not{Cond: cond}
		}
		c.Cond = cond
	case raw.Not != nil:
		c.Cond = Not{Cond: raw.Not.Cond}
	case raw.All != nil:
		c.Cond = All{Conds: unwrap(raw.All)}
	case raw.Any != nil:
		c.Cond = Any{Conds: unwrap(raw.Any)}
	default:
		if raw.Fact == "" {
			return fmt.Errorf("truthy condition requires a fact name")
		}
		cond := Condition(Truthy{Fact: raw.Fact})
		if raw.Truthy != nil && !*raw.Truthy {
			cond = Not{Cond: cond}
		}
		c.Cond = cond
	}
	return nil
}

func unwrap(clauses []Clause) []Condition {
	conds := make([]Condition, len(clauses))
	for i, cl := range clauses {
		conds[i] = cl.Cond
	}
	return conds
}
