package values

import (
	"encoding/json"
	"fmt"

	"github.com/krotik/nodeengine/ids"
)

/*
MarshalJSON encodes a Value as the single-key wire object §6 specifies,
e.g. {"Float": 0.5}, {"Trigger": null}, {"Enum": {"enum_id": "...",
"variant": "..."}}.
*/
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return wrap("Bool", v.Bool)
	case KindInt:
		return wrap("Int", v.Int)
	case KindFloat:
		return wrap("Float", v.Float)
	case KindString:
		return wrap("String", v.Str)
	case KindVec2:
		return wrap("Vec2", map[string]float64{"x": v.Vec2.X, "y": v.Vec2.Y})
	case KindVec3:
		return wrap("Vec3", map[string]float64{"x": v.Vec3.X, "y": v.Vec3.Y, "z": v.Vec3.Z})
	case KindColor:
		return wrap("Color", map[string]float64{"r": v.Color.R, "g": v.Color.G, "b": v.Color.B, "a": v.Color.A})
	case KindTrigger:
		return wrap("Trigger", nil)
	case KindEnum:
		return wrap("Enum", map[string]string{"enum_id": string(v.Enum.EnumId), "variant": v.Enum.Variant})
	case KindReference:
		ref := map[string]interface{}{"uuid": v.Reference.Uuid.String()}
		if v.Reference.CachedId != nil {
			ref["cached_id"] = v.Reference.CachedId.String()
		} else {
			ref["cached_id"] = nil
		}
		return wrap("Reference", ref)
	}
	return nil, fmt.Errorf("values: cannot marshal unknown value kind %v", v.Kind)
}

func wrap(key string, payload interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{key: payload})
}

/*
UnmarshalJSON decodes a single-key wire object back into a Value.
*/
func (v *Value) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("values: expected exactly one key in value object, got %d", len(m))
	}

	for key, raw := range m {
		switch key {
		case "Bool":
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return err
			}
			*v = Bool(b)
		case "Int":
			var i int64
			if err := json.Unmarshal(raw, &i); err != nil {
				return err
			}
			*v = Int(i)
		case "Float":
			var f float64
			if err := json.Unmarshal(raw, &f); err != nil {
				return err
			}
			*v = Float(f)
		case "String":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			*v = String(s)
		case "Vec2":
			var p struct{ X, Y float64 }
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*v = MakeVec2(p.X, p.Y)
		case "Vec3":
			var p struct{ X, Y, Z float64 }
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			*v = MakeVec3(p.X, p.Y, p.Z)
		case "Color":
			var c struct{ R, G, B, A float64 }
			if err := json.Unmarshal(raw, &c); err != nil {
				return err
			}
			*v = MakeColor(c.R, c.G, c.B, c.A)
		case "Trigger":
			*v = Trigger()
		case "Enum":
			var e struct {
				EnumId  string `json:"enum_id"`
				Variant string `json:"variant"`
			}
			if err := json.Unmarshal(raw, &e); err != nil {
				return err
			}
			*v = Enum(ids.EnumId(e.EnumId), e.Variant)
		case "Reference":
			var r struct {
				Uuid     string  `json:"uuid"`
				CachedId *string `json:"cached_id"`
			}
			if err := json.Unmarshal(raw, &r); err != nil {
				return err
			}
			uuid, err := ids.ParseNodeUuid(r.Uuid)
			if err != nil {
				return err
			}
			if r.CachedId == nil {
				*v = Ref(uuid)
			} else {
				cached, err := ids.ParseNodeId(*r.CachedId)
				if err != nil {
					return err
				}
				*v = RefCached(uuid, cached)
			}
		default:
			return fmt.Errorf("values: unknown value kind key %q", key)
		}
	}

	return nil
}
