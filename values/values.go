/*
 * nodeengine
 *
 * Package values defines the tagged Value sum type carried by Parameter
 * nodes and the ValueConstraints that validate/clamp it.
 */
package values

import (
	"fmt"
	"math"
	"regexp"

	"github.com/krotik/nodeengine/ids"
)

/*
Kind discriminates a Value's variant.
*/
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindVec2
	KindVec3
	KindColor
	KindTrigger
	KindEnum
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindVec2:
		return "Vec2"
	case KindVec3:
		return "Vec3"
	case KindColor:
		return "Color"
	case KindTrigger:
		return "Trigger"
	case KindEnum:
		return "Enum"
	case KindReference:
		return "Reference"
	}
	return "Unknown"
}

/*
Vec2 is a 2-component float vector.
*/
type Vec2 struct{ X, Y float64 }

/*
Vec3 is a 3-component float vector.
*/
type Vec3 struct{ X, Y, Z float64 }

/*
Color is an RGBA color, each channel a float in [0, 1].
*/
type Color struct{ R, G, B, A float64 }

/*
EnumValue is a (enum-id, variant-id) pair.
*/
type EnumValue struct {
	EnumId  ids.EnumId
	Variant string
}

/*
Reference is a value pointing at another node by stable UUID, with an
optional cached NodeId for fast lookups. The cache may go stale (the
referenced node's store slot may have been reused); callers must re-resolve
through a store rather than trust CachedId blindly.
*/
type Reference struct {
	Uuid     ids.NodeUuid
	CachedId *ids.NodeId
}

/*
Value is a tagged sum over the value kinds a Parameter node can hold.
Exactly one of the typed fields is meaningful, selected by Kind.
*/
type Value struct {
	Kind      Kind
	Bool      bool
	Int       int64
	Float     float64
	Str       string
	Vec2      Vec2
	Vec3      Vec3
	Color     Color
	Enum      EnumValue
	Reference Reference
}

func Bool(v bool) Value      { return Value{Kind: KindBool, Bool: v} }
func Int(v int64) Value      { return Value{Kind: KindInt, Int: v} }
func Float(v float64) Value  { return Value{Kind: KindFloat, Float: v} }
func String(v string) Value  { return Value{Kind: KindString, Str: v} }
func MakeVec2(x, y float64) Value {
	return Value{Kind: KindVec2, Vec2: Vec2{x, y}}
}
func MakeVec3(x, y, z float64) Value {
	return Value{Kind: KindVec3, Vec3: Vec3{x, y, z}}
}
func MakeColor(r, g, b, a float64) Value {
	return Value{Kind: KindColor, Color: Color{r, g, b, a}}
}
func Trigger() Value { return Value{Kind: KindTrigger} }
func Enum(enumId ids.EnumId, variant string) Value {
	return Value{Kind: KindEnum, Enum: EnumValue{enumId, variant}}
}
func Ref(uuid ids.NodeUuid) Value {
	return Value{Kind: KindReference, Reference: Reference{Uuid: uuid}}
}
func RefCached(uuid ids.NodeUuid, cached ids.NodeId) Value {
	c := cached
	return Value{Kind: KindReference, Reference: Reference{Uuid: uuid, CachedId: &c}}
}

/*
Equal performs a deep equality check between two values, used by Parameter
change policy ValueChange to decide whether a ParamChanged should fire.
*/
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString:
		return a.Str == b.Str
	case KindVec2:
		return a.Vec2 == b.Vec2
	case KindVec3:
		return a.Vec3 == b.Vec3
	case KindColor:
		return a.Color == b.Color
	case KindTrigger:
		return true
	case KindEnum:
		return a.Enum == b.Enum
	case KindReference:
		return a.Reference.Uuid == b.Reference.Uuid
	}

	return false
}

// ConstraintKind discriminates a ValueConstraints variant.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintInt
	ConstraintFloat
	ConstraintString
	ConstraintEnum
	ConstraintReference
)

/*
ValueConstraints restricts the values a Parameter may hold. Which fields
apply is selected by Kind; a Kind mismatch against the value being checked
means the constraint does not discriminate that type and Check accepts the
value unchanged.
*/
type ValueConstraints struct {
	Kind ConstraintKind

	// Int / Float
	Min   *float64
	Max   *float64
	Step  *float64
	Clamp bool

	// String
	MaxLength *int
	Pattern   string
	compiled  *regexp.Regexp

	// Enum
	EnumId        ids.EnumId
	AllowedValues []string

	// Reference
	TargetType string
}

/*
CheckResult describes the outcome of validating a value against constraints.
*/
type CheckResult struct {
	Value    Value // possibly clamped value
	Accepted bool  // false means the edit must be dropped
}

/*
Check validates (and, if Clamp is set, adjusts) v against c. It implements
the Constraint violation policy from the error handling design: clamp if
possible, else reject.
*/
func (c ValueConstraints) Check(v Value) CheckResult {
	switch c.Kind {
	case ConstraintNone:
		return CheckResult{v, true}

	case ConstraintInt:
		if v.Kind != KindInt {
			return CheckResult{v, true}
		}
		return c.checkNumericInt(v)

	case ConstraintFloat:
		if v.Kind != KindFloat {
			return CheckResult{v, true}
		}
		return c.checkNumericFloat(v)

	case ConstraintString:
		if v.Kind != KindString {
			return CheckResult{v, true}
		}
		if c.MaxLength != nil && len(v.Str) > *c.MaxLength {
			if !c.Clamp {
				return CheckResult{v, false}
			}
			v.Str = v.Str[:*c.MaxLength]
		}
		if c.Pattern != "" {
			re := c.compiled
			if re == nil {
				re = regexp.MustCompile(c.Pattern)
			}
			if !re.MatchString(v.Str) {
				return CheckResult{v, false}
			}
		}
		return CheckResult{v, true}

	case ConstraintEnum:
		if v.Kind != KindEnum {
			return CheckResult{v, true}
		}
		if v.Enum.EnumId != c.EnumId {
			return CheckResult{v, false}
		}
		for _, a := range c.AllowedValues {
			if a == v.Enum.Variant {
				return CheckResult{v, true}
			}
		}
		return CheckResult{v, false}

	case ConstraintReference:
		return CheckResult{v, true}
	}

	return CheckResult{v, true}
}

func (c ValueConstraints) checkNumericInt(v Value) CheckResult {
	f := float64(v.Int)
	clamped, ok := clampOrReject(f, c.Min, c.Max, c.Clamp)
	if !ok {
		return CheckResult{v, false}
	}
	if c.Step != nil && *c.Step > 0 {
		steps := math.Round((clamped) / *c.Step)
		clamped = steps * *c.Step
	}
	v.Int = int64(clamped)
	return CheckResult{v, true}
}

func (c ValueConstraints) checkNumericFloat(v Value) CheckResult {
	clamped, ok := clampOrReject(v.Float, c.Min, c.Max, c.Clamp)
	if !ok {
		return CheckResult{v, false}
	}
	if c.Step != nil && *c.Step > 0 {
		steps := math.Round(clamped / *c.Step)
		clamped = steps * *c.Step
	}
	v.Float = clamped
	return CheckResult{v, true}
}

func clampOrReject(f float64, min, max *float64, clamp bool) (float64, bool) {
	if min != nil && f < *min {
		if !clamp {
			return f, false
		}
		f = *min
	}
	if max != nil && f > *max {
		if !clamp {
			return f, false
		}
		f = *max
	}
	return f, true
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindVec2:
		return fmt.Sprintf("(%g, %g)", v.Vec2.X, v.Vec2.Y)
	case KindVec3:
		return fmt.Sprintf("(%g, %g, %g)", v.Vec3.X, v.Vec3.Y, v.Vec3.Z)
	case KindColor:
		return fmt.Sprintf("rgba(%g, %g, %g, %g)", v.Color.R, v.Color.G, v.Color.B, v.Color.A)
	case KindTrigger:
		return "trigger"
	case KindEnum:
		return fmt.Sprintf("%s::%s", v.Enum.EnumId, v.Enum.Variant)
	case KindReference:
		return fmt.Sprintf("ref(%s)", v.Reference.Uuid)
	}
	return "?"
}
