package ctype

import (
	"fmt"
)

// Encode converts a CType into its JSON-ready representation: a
// map[string]any with at least a "tag" key, plus whichever structural keys
// the variant needs (elementType, keysType/valuesType, innerType, or
// structure).
func Encode(t CType) map[string]any {
	switch t.Tag() {
	case TagString, TagInt, TagFloat, TagBoolean:
		return map[string]any{"tag": string(t.Tag())}
	case TagList:
		return map[string]any{"tag": string(TagList), "elementType": Encode(ElementType(t))}
	case TagMap:
		return map[string]any{
			"tag":        string(TagMap),
			"keysType":   Encode(MapKeyType(t)),
			"valuesType": Encode(MapValueType(t)),
		}
	case TagProduct:
		structure := map[string]any{}
		for name, ft := range ProductStructure(t) {
			structure[name] = Encode(ft)
		}
		return map[string]any{"tag": string(TagProduct), "structure": structure}
	case TagUnion:
		variants := map[string]any{}
		for name, vt := range UnionVariants(t) {
			variants[name] = Encode(vt)
		}
		return map[string]any{"tag": string(TagUnion), "structure": variants}
	case TagOptional:
		return map[string]any{"tag": string(TagOptional), "innerType": Encode(OptionalInner(t))}
	default:
		panic(fmt.Sprintf("ctype: Encode: unhandled tag %q", t.Tag()))
	}
}

// Decode reconstructs a CType from its JSON-ready representation.
func Decode(m map[string]any) (CType, error) {
	rawTag, ok := m["tag"]
	if !ok {
		return nil, fmt.Errorf("ctype: decode: missing tag")
	}
	tag, ok := rawTag.(string)
	if !ok {
		return nil, fmt.Errorf("ctype: decode: tag is not a string")
	}

	switch Tag(tag) {
	case TagString:
		return String(), nil
	case TagInt:
		return Int(), nil
	case TagFloat:
		return Float(), nil
	case TagBoolean:
		return Boolean(), nil
	case TagList:
		sub, err := asObject(m, "elementType")
		if err != nil {
			return nil, err
		}
		elem, err := Decode(sub)
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	case TagMap:
		keySub, err := asObject(m, "keysType")
		if err != nil {
			return nil, err
		}
		valSub, err := asObject(m, "valuesType")
		if err != nil {
			return nil, err
		}
		key, err := Decode(keySub)
		if err != nil {
			return nil, err
		}
		val, err := Decode(valSub)
		if err != nil {
			return nil, err
		}
		return Map(key, val), nil
	case TagProduct:
		structure, err := asStringMap(m, "structure")
		if err != nil {
			return nil, err
		}
		fields := map[string]CType{}
		for name, raw := range structure {
			obj, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("ctype: decode: product field %q is not an object", name)
			}
			ft, err := Decode(obj)
			if err != nil {
				return nil, err
			}
			fields[name] = ft
		}
		return Product(fields), nil
	case TagUnion:
		structure, err := asStringMap(m, "structure")
		if err != nil {
			return nil, err
		}
		variants := map[string]CType{}
		for name, raw := range structure {
			obj, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("ctype: decode: union variant %q is not an object", name)
			}
			vt, err := Decode(obj)
			if err != nil {
				return nil, err
			}
			variants[name] = vt
		}
		return Union(variants), nil
	case TagOptional:
		sub, err := asObject(m, "innerType")
		if err != nil {
			return nil, err
		}
		inner, err := Decode(sub)
		if err != nil {
			return nil, err
		}
		return Optional(inner), nil
	default:
		return nil, fmt.Errorf("ctype: decode: unknown tag %q", tag)
	}
}

func asObject(m map[string]any, key string) (map[string]any, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("ctype: decode: missing field %q", key)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ctype: decode: field %q is not an object", key)
	}
	return obj, nil
}

func asStringMap(m map[string]any, key string) (map[string]any, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("ctype: decode: missing field %q", key)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ctype: decode: field %q is not an object", key)
	}
	return obj, nil
}
