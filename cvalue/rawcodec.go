package cvalue

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/constellation/ctype"
	apperr "github.com/kbukum/constellation/errors"
)

// DecodeRaw parses JSON directly into a RawValue conforming to declared,
// sharing validation logic with Decode but choosing the unboxed list
// variant whenever declared is CList of a primitive type — never RList for
// a homogenous primitive array.
func DecodeRaw(data []byte, declared ctype.CType) (RawValue, *apperr.AppError) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.CodecError("invalid JSON", err)
	}
	return decodeRawValue(raw, declared)
}

func decodeRawValue(raw any, t ctype.CType) (RawValue, *apperr.AppError) {
	switch t.Tag() {
	case ctype.TagString:
		s, ok := raw.(string)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("expected String, got %T", raw), nil)
		}
		return RString{V: s}, nil
	case ctype.TagInt:
		n, ok := asNumber(raw)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("expected Int, got %T", raw), nil)
		}
		return RInt{V: int64(n)}, nil
	case ctype.TagFloat:
		n, ok := asNumber(raw)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("expected Float, got %T", raw), nil)
		}
		return RFloat{V: n}, nil
	case ctype.TagBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("expected Boolean, got %T", raw), nil)
		}
		return RBool{V: b}, nil
	case ctype.TagList:
		arr, ok := raw.([]any)
		if !ok {
			return nil, apperr.CodecError("expected array for List", nil)
		}
		elem := ctype.ElementType(t)
		switch elem.Tag() {
		case ctype.TagInt:
			out := make([]int64, len(arr))
			for i, v := range arr {
				n, ok := asNumber(v)
				if !ok {
					return nil, apperr.CodecError("expected Int element", nil)
				}
				out[i] = int64(n)
			}
			return RIntList{V: out}, nil
		case ctype.TagFloat:
			out := make([]float64, len(arr))
			for i, v := range arr {
				n, ok := asNumber(v)
				if !ok {
					return nil, apperr.CodecError("expected Float element", nil)
				}
				out[i] = n
			}
			return RFloatList{V: out}, nil
		case ctype.TagString:
			out := make([]string, len(arr))
			for i, v := range arr {
				s, ok := v.(string)
				if !ok {
					return nil, apperr.CodecError("expected String element", nil)
				}
				out[i] = s
			}
			return RStringList{V: out}, nil
		case ctype.TagBoolean:
			out := make([]bool, len(arr))
			for i, v := range arr {
				b, ok := v.(bool)
				if !ok {
					return nil, apperr.CodecError("expected Boolean element", nil)
				}
				out[i] = b
			}
			return RBoolList{V: out}, nil
		default:
			out := make([]RawValue, len(arr))
			for i, v := range arr {
				rv, err := decodeRawValue(v, elem)
				if err != nil {
					return nil, err
				}
				out[i] = rv
			}
			return RList{V: out}, nil
		}
	case ctype.TagMap:
		keyType := ctype.MapKeyType(t)
		valType := ctype.MapValueType(t)
		var entries []RMapEntry
		if obj, isObj := raw.(map[string]any); isObj && keyType.Tag() == ctype.TagString {
			for k, v := range obj {
				val, err := decodeRawValue(v, valType)
				if err != nil {
					return nil, err
				}
				entries = append(entries, RMapEntry{Key: RString{V: k}, Value: val})
			}
		} else {
			arr, ok := raw.([]any)
			if !ok {
				return nil, apperr.CodecError("expected array of pairs for Map", nil)
			}
			for _, pairRaw := range arr {
				pair, ok := pairRaw.([]any)
				if !ok || len(pair) != 2 {
					return nil, apperr.CodecError("expected two-element array entry", nil)
				}
				k, err := decodeRawValue(pair[0], keyType)
				if err != nil {
					return nil, err
				}
				v, err := decodeRawValue(pair[1], valType)
				if err != nil {
					return nil, err
				}
				entries = append(entries, RMapEntry{Key: k, Value: v})
			}
		}
		return RMap{V: entries}, nil
	case ctype.TagProduct:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, apperr.CodecError("expected object for Product", nil)
		}
		structure := ctype.ProductStructure(t)
		fields := map[string]RawValue{}
		for name, ft := range structure {
			v, ok := obj[name]
			if !ok {
				return nil, apperr.CodecError(fmt.Sprintf("Product: missing field %q", name), nil)
			}
			rv, err := decodeRawValue(v, ft)
			if err != nil {
				return nil, err
			}
			fields[name] = rv
		}
		return NewRProduct(fields), nil
	case ctype.TagUnion:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, apperr.CodecError("expected object for Union", nil)
		}
		tag, ok := obj["tag"].(string)
		if !ok {
			return nil, apperr.CodecError("Union: missing tag", nil)
		}
		variants := ctype.UnionVariants(t)
		vt, ok := variants[tag]
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("Union: unknown tag %q", tag), nil)
		}
		inner, err := decodeRawValue(obj["value"], vt)
		if err != nil {
			return nil, err
		}
		return RUnion{Tag: tag, Inner: inner}, nil
	case ctype.TagOptional:
		if raw == nil {
			return RNone{}, nil
		}
		inner, err := decodeRawValue(raw, ctype.OptionalInner(t))
		if err != nil {
			return nil, err
		}
		return RSome{Inner: inner}, nil
	default:
		return nil, apperr.CodecError(fmt.Sprintf("unsupported type tag %q", t.Tag()), nil)
	}
}

// EncodeRaw converts a RawValue into a plain (untagged) JSON-ready value.
// It is the inverse of DecodeRaw given the same declared CType.
func EncodeRaw(r RawValue) any {
	switch v := r.(type) {
	case RString:
		return v.V
	case RInt:
		return v.V
	case RFloat:
		return v.V
	case RBool:
		return v.V
	case RIntList:
		out := make([]any, len(v.V))
		for i, n := range v.V {
			out[i] = n
		}
		return out
	case RFloatList:
		out := make([]any, len(v.V))
		for i, n := range v.V {
			out[i] = n
		}
		return out
	case RStringList:
		out := make([]any, len(v.V))
		for i, n := range v.V {
			out[i] = n
		}
		return out
	case RBoolList:
		out := make([]any, len(v.V))
		for i, n := range v.V {
			out[i] = n
		}
		return out
	case RList:
		out := make([]any, len(v.V))
		for i, it := range v.V {
			out[i] = EncodeRaw(it)
		}
		return out
	case RMap:
		out := make([]any, len(v.V))
		for i, e := range v.V {
			out[i] = []any{EncodeRaw(e.Key), EncodeRaw(e.Value)}
		}
		return out
	case RProduct:
		obj := map[string]any{}
		for i, name := range v.FieldNames {
			obj[name] = EncodeRaw(v.Values[i])
		}
		return obj
	case RUnion:
		return map[string]any{"tag": v.Tag, "value": EncodeRaw(v.Inner)}
	case RSome:
		return EncodeRaw(v.Inner)
	case RNone:
		return nil
	default:
		panic(fmt.Sprintf("cvalue: EncodeRaw: unhandled raw tag %q", r.RawTag()))
	}
}
