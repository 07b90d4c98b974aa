package snapshot

import (
	"fmt"
	"math"

	"logosim.ai/internal/sim/world"
)

// encodeValue maps a portable value onto plain JSON. Numbers, booleans,
// strings and lists stay as they are; references become single-purpose
// objects:
//
//	{"nobody": true}
//	{"turtle": 3}
//	{"patch": [1, -2]}
//	{"link": 7}
//	{"breed": "WOLVES", "link": false}
//	{"set": "turtle", "members": [{"turtle": 1}, ...]}
func encodeValue(p any) (any, error) {
	switch x := p.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%v is not a storable number", x)
		}
		return x, nil
	case bool, string:
		return x, nil
	case world.Nobody:
		return map[string]any{"nobody": true}, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			v, err := encodeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case world.TurtleRef:
		return map[string]any{"turtle": x.Who}, nil
	case world.PatchRef:
		return map[string]any{"patch": []int{x.X, x.Y}}, nil
	case world.LinkRef:
		return map[string]any{"link": x.ID}, nil
	case world.BreedRef:
		return map[string]any{"breed": x.Name, "link": x.Link}, nil
	case world.SetRef:
		members, err := encodeValue(x.Members)
		if err != nil {
			return nil, err
		}
		return map[string]any{"set": x.Kind.String(), "members": members}, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", p)
	}
}

// decodeValue reverses encodeValue on a value produced by encoding/json.
func decodeValue(v any) (any, error) {
	switch x := v.(type) {
	case float64, bool, string:
		return x, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			d, err := decodeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case map[string]any:
		return decodeRef(x)
	default:
		return nil, fmt.Errorf("unsupported json value %T", v)
	}
}

func decodeRef(m map[string]any) (any, error) {
	if _, ok := m["nobody"]; ok {
		return world.Nobody{}, nil
	}
	if v, ok := m["turtle"]; ok {
		who, err := integer(v)
		return world.TurtleRef{Who: who}, err
	}
	if v, ok := m["link"].(float64); ok && len(m) == 1 {
		id, err := integer(v)
		return world.LinkRef{ID: id}, err
	}
	if v, ok := m["patch"].([]any); ok {
		if len(v) != 2 {
			return nil, fmt.Errorf("patch reference needs 2 coordinates, got %d", len(v))
		}
		x, err := integer(v[0])
		if err != nil {
			return nil, err
		}
		y, err := integer(v[1])
		if err != nil {
			return nil, err
		}
		return world.PatchRef{X: int(x), Y: int(y)}, nil
	}
	if name, ok := m["breed"].(string); ok {
		link, _ := m["link"].(bool)
		return world.BreedRef{Name: name, Link: link}, nil
	}
	if kind, ok := m["set"].(string); ok {
		k, err := parseKind(kind)
		if err != nil {
			return nil, err
		}
		raw, _ := m["members"].([]any)
		members, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		ms, _ := members.([]any)
		return world.SetRef{Kind: k, Members: ms}, nil
	}
	return nil, fmt.Errorf("unrecognized reference object %v", m)
}

func integer(v any) (int64, error) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected an integer, got %v", v)
	}
	return int64(f), nil
}

func parseKind(s string) (world.AgentKind, error) {
	for _, k := range []world.AgentKind{world.KindObserver, world.KindTurtle, world.KindPatch, world.KindLink} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown agent kind %q", s)
}

func encodeVars(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for name, v := range in {
		e, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = e
	}
	return out, nil
}

func decodeVars(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for name, v := range in {
		d, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = d
	}
	return out, nil
}
