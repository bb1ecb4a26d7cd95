package cvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/kbukum/constellation/ctype"
	apperr "github.com/kbukum/constellation/errors"
)

// Encode converts a CValue into its JSON-ready representation. The result is
// always an object with at least a "tag" field; container tags additionally
// carry whichever of structure/keysType/valuesType/innerType/unionTag/subtype
// the decoder needs to reconstruct the value without external type context.
func Encode(v CValue) map[string]any {
	switch v.Tag() {
	case TagString:
		return map[string]any{"tag": string(TagString), "value": StringVal(v)}
	case TagInt:
		return map[string]any{"tag": string(TagInt), "value": IntVal(v)}
	case TagFloat:
		return map[string]any{"tag": string(TagFloat), "value": encodeFloat(FloatVal(v))}
	case TagBoolean:
		return map[string]any{"tag": string(TagBoolean), "value": BoolVal(v)}
	case TagList:
		elemType := ctype.ElementType(v.Type())
		items := ListItems(v)
		encoded := make([]any, len(items))
		for i, it := range items {
			encoded[i] = Encode(it)
		}
		return map[string]any{
			"tag":         string(TagList),
			"elementType": ctype.Encode(elemType),
			"value":       encoded,
		}
	case TagMap:
		keyType := ctype.MapKeyType(v.Type())
		valType := ctype.MapValueType(v.Type())
		entries := MapEntries(v)
		result := map[string]any{
			"tag":        string(TagMap),
			"keysType":   ctype.Encode(keyType),
			"valuesType": ctype.Encode(valType),
		}
		if keyType.Tag() == ctype.TagString {
			obj := map[string]any{}
			for _, e := range entries {
				obj[StringVal(e.Key)] = Encode(e.Value)
			}
			result["value"] = obj
		} else {
			pairs := make([]any, len(entries))
			for i, e := range entries {
				pairs[i] = []any{Encode(e.Key), Encode(e.Value)}
			}
			result["value"] = pairs
		}
		return result
	case TagProduct:
		fields := ProductFields(v)
		structure := map[string]any{}
		names := make([]string, 0, len(fields))
		for name, fv := range fields {
			structure[name] = ctype.Encode(fv.Type())
			names = append(names, name)
		}
		sort.Strings(names)
		value := map[string]any{}
		for _, name := range names {
			value[name] = Encode(fields[name])
		}
		return map[string]any{"tag": string(TagProduct), "structure": structure, "value": value}
	case TagUnion:
		variants := ctype.UnionVariants(v.Type())
		structure := map[string]any{}
		for name, vt := range variants {
			structure[name] = ctype.Encode(vt)
		}
		return map[string]any{
			"tag":       string(TagUnion),
			"unionTag":  UnionTag(v),
			"structure": structure,
			"value":     Encode(UnionInner(v)),
		}
	case TagSome:
		inner := OptionalInner(v)
		return map[string]any{
			"tag":       "Optional",
			"subtype":   "Some",
			"innerType": ctype.Encode(inner.Type()),
			"value":     Encode(inner),
		}
	case TagNone:
		return map[string]any{
			"tag":       "Optional",
			"subtype":   "None",
			"innerType": ctype.Encode(ctype.OptionalInner(v.Type())),
		}
	default:
		panic(fmt.Sprintf("cvalue: Encode: unhandled tag %q", v.Tag()))
	}
}

func encodeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}

// EncodeJSON marshals a CValue to JSON bytes via Encode.
func EncodeJSON(v CValue) ([]byte, error) {
	return json.Marshal(Encode(v))
}

// Decode reconstructs a CValue from its JSON-ready representation, which
// must conform to declared. Decoding fails with a structured *AppError
// rather than a panic for every malformed input, per the codec contract.
func Decode(raw any, declared ctype.CType) (CValue, *apperr.AppError) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, apperr.CodecError("expected a JSON object for CValue", nil)
	}

	rawTag, hasTag := obj["tag"]
	tagStr, _ := rawTag.(string)

	if !hasTag {
		if declared.Tag() == ctype.TagUnion && allVariantsProducts(declared) {
			return decodeAutoUnion(obj, declared)
		}
		return nil, apperr.CodecError("unknown tag: missing", nil)
	}

	switch tagStr {
	case string(TagString), string(TagInt), string(TagFloat), string(TagBoolean):
		return decodePrimitive(obj, tagStr, declared)
	case string(TagList):
		return decodeList(obj, declared)
	case string(TagMap):
		return decodeMap(obj, declared)
	case string(TagProduct):
		return decodeProduct(obj, declared)
	case string(TagUnion):
		return decodeUnion(obj, declared)
	case "Optional":
		return decodeOptional(obj, declared)
	default:
		return nil, apperr.CodecError(fmt.Sprintf("unknown tag %q", tagStr), nil)
	}
}

// DecodeJSON unmarshals JSON bytes into a CValue conforming to declared.
func DecodeJSON(data []byte, declared ctype.CType) (CValue, *apperr.AppError) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.CodecError("invalid JSON", err)
	}
	return Decode(raw, declared)
}

func decodePrimitive(obj map[string]any, tagStr string, declared ctype.CType) (CValue, *apperr.AppError) {
	value, hasValue := obj["value"]
	if !hasValue {
		return nil, apperr.CodecError(fmt.Sprintf("%s: missing value", tagStr), nil)
	}
	switch Tag(tagStr) {
	case TagString:
		s, ok := value.(string)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("expected String, got %T", value), nil)
		}
		return String(s), nil
	case TagInt:
		n, ok := asNumber(value)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("expected Int, got %T", value), nil)
		}
		return Int(int64(n)), nil
	case TagFloat:
		if s, ok := value.(string); ok {
			switch s {
			case "NaN":
				return Float(math.NaN()), nil
			case "Infinity":
				return Float(math.Inf(1)), nil
			case "-Infinity":
				return Float(math.Inf(-1)), nil
			default:
				return nil, apperr.CodecError(fmt.Sprintf("invalid Float string %q", s), nil)
			}
		}
		n, ok := asNumber(value)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("expected Float, got %T", value), nil)
		}
		return Float(n), nil
	case TagBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("expected Boolean, got %T", value), nil)
		}
		return Boolean(b), nil
	}
	return nil, apperr.CodecError("unreachable", nil)
}

func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func decodeList(obj map[string]any, declared ctype.CType) (CValue, *apperr.AppError) {
	elemTypeRaw, ok := obj["elementType"].(map[string]any)
	if !ok {
		return nil, apperr.CodecError("List: missing elementType", nil)
	}
	elemType, err := ctype.Decode(elemTypeRaw)
	if err != nil {
		return nil, apperr.CodecError("List: invalid elementType", err)
	}
	rawItems, ok := obj["value"].([]any)
	if !ok {
		return nil, apperr.CodecError("List: value is not an array", nil)
	}
	items := make([]CValue, len(rawItems))
	for i, it := range rawItems {
		cv, cerr := Decode(it, elemType)
		if cerr != nil {
			return nil, cerr
		}
		items[i] = cv
	}
	return List(elemType, items...), nil
}

func decodeMap(obj map[string]any, declared ctype.CType) (CValue, *apperr.AppError) {
	keyTypeRaw, ok := obj["keysType"].(map[string]any)
	if !ok {
		return nil, apperr.CodecError("Map: missing keysType", nil)
	}
	valTypeRaw, ok := obj["valuesType"].(map[string]any)
	if !ok {
		return nil, apperr.CodecError("Map: missing valuesType", nil)
	}
	keyType, err := ctype.Decode(keyTypeRaw)
	if err != nil {
		return nil, apperr.CodecError("Map: invalid keysType", err)
	}
	valType, err := ctype.Decode(valTypeRaw)
	if err != nil {
		return nil, apperr.CodecError("Map: invalid valuesType", err)
	}

	var entries []MapEntry
	if keyType.Tag() == ctype.TagString {
		obj2, ok := obj["value"].(map[string]any)
		if !ok {
			return nil, apperr.CodecError("Map: value is not an object for string-keyed map", nil)
		}
		keys := make([]string, 0, len(obj2))
		for k := range obj2 {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val, cerr := Decode(obj2[k], valType)
			if cerr != nil {
				return nil, cerr
			}
			entries = append(entries, MapEntry{Key: String(k), Value: val})
		}
	} else {
		arr, ok := obj["value"].([]any)
		if !ok {
			return nil, apperr.CodecError("Map: value is not an array of pairs", nil)
		}
		for _, pairRaw := range arr {
			pair, ok := pairRaw.([]any)
			if !ok || len(pair) != 2 {
				return nil, apperr.CodecError("Map: entry is not a two-element array", nil)
			}
			k, cerr := Decode(pair[0], keyType)
			if cerr != nil {
				return nil, cerr
			}
			val, cerr := Decode(pair[1], valType)
			if cerr != nil {
				return nil, cerr
			}
			entries = append(entries, MapEntry{Key: k, Value: val})
		}
	}
	return Map(keyType, valType, entries...), nil
}

func decodeProduct(obj map[string]any, declared ctype.CType) (CValue, *apperr.AppError) {
	structureRaw, ok := obj["structure"].(map[string]any)
	if !ok {
		return nil, apperr.CodecError("Product: missing structure", nil)
	}
	structure := map[string]ctype.CType{}
	for name, raw := range structureRaw {
		fieldObj, ok := raw.(map[string]any)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("Product: field %q type is not an object", name), nil)
		}
		ft, err := ctype.Decode(fieldObj)
		if err != nil {
			return nil, apperr.CodecError(fmt.Sprintf("Product: field %q: invalid type", name), err)
		}
		structure[name] = ft
	}
	valueObj, ok := obj["value"].(map[string]any)
	if !ok {
		return nil, apperr.CodecError("Product: value is not an object", nil)
	}
	fields := map[string]CValue{}
	for name, ft := range structure {
		raw, ok := valueObj[name]
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("Product: missing field %q", name), nil)
		}
		fv, cerr := Decode(raw, ft)
		if cerr != nil {
			return nil, cerr
		}
		fields[name] = fv
	}
	return Product(structure, fields), nil
}

func decodeUnion(obj map[string]any, declared ctype.CType) (CValue, *apperr.AppError) {
	structureRaw, ok := obj["structure"].(map[string]any)
	if !ok {
		return nil, apperr.CodecError("Union: missing structure", nil)
	}
	variants := map[string]ctype.CType{}
	for name, raw := range structureRaw {
		variantObj, ok := raw.(map[string]any)
		if !ok {
			return nil, apperr.CodecError(fmt.Sprintf("Union: variant %q type is not an object", name), nil)
		}
		vt, err := ctype.Decode(variantObj)
		if err != nil {
			return nil, apperr.CodecError(fmt.Sprintf("Union: variant %q: invalid type", name), err)
		}
		variants[name] = vt
	}
	unionTag, ok := obj["unionTag"].(string)
	if !ok {
		return nil, apperr.CodecError("Union: missing unionTag", nil)
	}
	vt, ok := variants[unionTag]
	if !ok {
		return nil, apperr.CodecError(fmt.Sprintf("Union: unionTag %q is not a declared variant", unionTag), nil)
	}
	innerRaw, ok := obj["value"]
	if !ok {
		return nil, apperr.CodecError("Union: missing value", nil)
	}
	inner, cerr := Decode(innerRaw, vt)
	if cerr != nil {
		return nil, cerr
	}
	result, err := Union(variants, unionTag, inner)
	if err != nil {
		return nil, apperr.CodecError(err.Error(), err)
	}
	return result, nil
}

func decodeOptional(obj map[string]any, declared ctype.CType) (CValue, *apperr.AppError) {
	innerTypeRaw, ok := obj["innerType"].(map[string]any)
	if !ok {
		return nil, apperr.CodecError("Optional: missing innerType", nil)
	}
	innerType, err := ctype.Decode(innerTypeRaw)
	if err != nil {
		return nil, apperr.CodecError("Optional: invalid innerType", err)
	}
	subtype, _ := obj["subtype"].(string)
	switch subtype {
	case "Some":
		innerRaw, ok := obj["value"]
		if !ok {
			return nil, apperr.CodecError("Optional: Some missing value", nil)
		}
		inner, cerr := Decode(innerRaw, innerType)
		if cerr != nil {
			return nil, cerr
		}
		return Some(innerType, inner), nil
	case "None":
		return None(innerType), nil
	default:
		return nil, apperr.CodecError(fmt.Sprintf("Optional: unknown subtype %q", subtype), nil)
	}
}

func allVariantsProducts(t ctype.CType) bool {
	for _, vt := range ctype.UnionVariants(t) {
		if !ctype.IsProduct(vt) {
			return false
		}
	}
	return true
}

// decodeAutoUnion implements the decoder-side convenience: JSON with no
// "tag" field supplied for a CUnion whose variants are all CProduct selects
// the variant whose required field names are a subset of the JSON keys.
func decodeAutoUnion(obj map[string]any, declared ctype.CType) (CValue, *apperr.AppError) {
	variants := ctype.UnionVariants(declared)
	jsonKeys := map[string]bool{}
	for k := range obj {
		jsonKeys[k] = true
	}

	var lastErr *apperr.AppError
	matched := 0
	var result CValue
	for tag, vt := range variants {
		names := ctype.ProductFieldNames(vt)
		subset := true
		for _, n := range names {
			if !jsonKeys[n] {
				subset = false
				break
			}
		}
		if !subset {
			continue
		}
		rv, err := decodeRawValue(obj, vt)
		if err != nil {
			lastErr = err
			continue
		}
		candidate, ferr := FromRaw(vt, rv)
		if ferr != nil {
			lastErr = apperr.CodecError(ferr.Error(), ferr)
			continue
		}
		wrapped, werr := Union(variants, tag, candidate)
		if werr != nil {
			lastErr = apperr.CodecError(werr.Error(), werr)
			continue
		}
		result = wrapped
		matched++
	}
	if matched != 1 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, apperr.CodecError("could not match fields to any union variant", nil)
	}
	return result, nil
}

func productTypeToStructureJSON(t ctype.CType) map[string]any {
	structure := map[string]any{}
	for name, ft := range ctype.ProductStructure(t) {
		structure[name] = ctype.Encode(ft)
	}
	return structure
}
