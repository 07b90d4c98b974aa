package world

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is anything an agent variable may hold: float64, bool, string, List,
// Nobody, *Turtle, *Patch, *Link or *AgentSet. Integers are never stored;
// callers convert before setting.
type Value = any

// Nobody is the absence of an agent.
type Nobody struct{}

var NobodyValue Value = Nobody{}

// List is an immutable-by-convention list value.
type List []Value

// VarType constrains what a variable slot accepts.
type VarType int

const (
	TypeAny VarType = iota
	TypeNumber
	TypeBool
	TypeString
	TypeAgent
	TypeList
	TypeColor
	TypeBreed
)

func (t VarType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBool:
		return "true/false"
	case TypeString:
		return "string"
	case TypeAgent:
		return "agent"
	case TypeList:
		return "list"
	case TypeColor:
		return "number or RGB list"
	case TypeBreed:
		return "breed"
	default:
		return "value"
	}
}

// Legal reports whether v is a storable value.
func Legal(v Value) bool {
	switch x := v.(type) {
	case float64, bool, string, Nobody, *Turtle, *Patch, *Link, *AgentSet:
		return true
	case List:
		for _, e := range x {
			if !Legal(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Accepts reports whether v may be stored in a slot of type t.
func (t VarType) Accepts(v Value) bool {
	if !Legal(v) {
		return false
	}
	switch t {
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeAgent:
		switch v.(type) {
		case *Turtle, *Patch, *Link, Nobody:
			return true
		}
		return false
	case TypeList:
		_, ok := v.(List)
		return ok
	case TypeColor:
		switch x := v.(type) {
		case float64:
			return true
		case List:
			if len(x) != 3 && len(x) != 4 {
				return false
			}
			for _, e := range x {
				if _, ok := e.(float64); !ok {
					return false
				}
			}
			return true
		}
		return false
	case TypeBreed:
		s, ok := v.(*AgentSet)
		return ok && s.breed != nil
	default:
		return true
	}
}

// TypeName names the dynamic type of v for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case float64:
		return "number"
	case bool:
		return "true/false"
	case string:
		return "string"
	case List:
		return "list"
	case Nobody:
		return "nobody"
	case *Turtle:
		return "turtle"
	case *Patch:
		return "patch"
	case *Link:
		return "link"
	case *AgentSet:
		return "agentset"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Describe renders v the way the language prints it.
func Describe(v Value) string {
	switch x := v.(type) {
	case nil:
		return "<nothing>"
	case float64:
		return FormatNumber(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return strconv.Quote(x)
	case Nobody:
		return "nobody"
	case List:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Describe(e)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Agent:
		return x.String()
	case *AgentSet:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// FormatNumber prints integral values without a fractional part.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', 17, 64)
}

// Equal is value equality: numbers by value, agents by identity, lists
// element-wise.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// resolve turns references to dead turtles and links into Nobody.
func resolve(v Value) Value {
	switch x := v.(type) {
	case *Turtle:
		if x.id < 0 {
			return NobodyValue
		}
	case *Link:
		if x.id < 0 {
			return NobodyValue
		}
	}
	return v
}

// wrapColor folds a numeric color into [0, 140).
func wrapColor(c float64) float64 {
	if c >= 0 && c < 140 {
		return c
	}
	c = c - 140*float64(int64(c/140))
	if c < 0 {
		c += 140
	}
	if c >= 140 {
		c = 0
	}
	return c
}

func normalizeColor(v Value) Value {
	if f, ok := v.(float64); ok {
		return wrapColor(f)
	}
	return v
}

// BaseColors are the fourteen base hues handed out to new turtles.
var BaseColors = []float64{5, 15, 25, 35, 45, 55, 65, 75, 85, 95, 105, 115, 125, 135}
