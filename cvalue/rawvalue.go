package cvalue

import (
	"fmt"
	"sort"

	"github.com/kbukum/constellation/ctype"
)

// RawTag discriminates the variant of a RawValue.
type RawTag string

const (
	RawTagInt        RawTag = "Int"
	RawTagString     RawTag = "String"
	RawTagBool       RawTag = "Bool"
	RawTagFloat      RawTag = "Float"
	RawTagIntList    RawTag = "IntList"
	RawTagFloatList  RawTag = "FloatList"
	RawTagStringList RawTag = "StringList"
	RawTagBoolList   RawTag = "BoolList"
	RawTagList       RawTag = "List"
	RawTagMap        RawTag = "Map"
	RawTagProduct    RawTag = "Product"
	RawTagUnion      RawTag = "Union"
	RawTagSome       RawTag = "Some"
	RawTagNone       RawTag = "None"
)

// RawValue is the specialization-optimized mirror of CValue used by the
// inline-transform evaluator. It exists purely for the evaluator's hot path;
// it is converted to/from CValue at the evaluator's boundary.
type RawValue interface {
	RawTag() RawTag
}

type RInt struct{ V int64 }
type RString struct{ V string }
type RBool struct{ V bool }
type RFloat struct{ V float64 }

func (RInt) RawTag() RawTag    { return RawTagInt }
func (RString) RawTag() RawTag { return RawTagString }
func (RBool) RawTag() RawTag   { return RawTagBool }
func (RFloat) RawTag() RawTag  { return RawTagFloat }

// RIntList is the unboxed specialization for CList(CInt).
type RIntList struct{ V []int64 }

// RFloatList is the unboxed specialization for CList(CFloat).
type RFloatList struct{ V []float64 }

// RStringList is the unboxed specialization for CList(CString).
type RStringList struct{ V []string }

// RBoolList is the unboxed specialization for CList(CBoolean).
type RBoolList struct{ V []bool }

func (RIntList) RawTag() RawTag    { return RawTagIntList }
func (RFloatList) RawTag() RawTag  { return RawTagFloatList }
func (RStringList) RawTag() RawTag { return RawTagStringList }
func (RBoolList) RawTag() RawTag   { return RawTagBoolList }

// RList is the generic (boxed) list fallback for non-primitive element types.
type RList struct{ V []RawValue }

func (RList) RawTag() RawTag { return RawTagList }

// RMapEntry is a (key, value) pair of an RMap.
type RMapEntry struct {
	Key   RawValue
	Value RawValue
}

// RMap is an ordered array of key/value pairs.
type RMap struct{ V []RMapEntry }

func (RMap) RawTag() RawTag { return RawTagMap }

// RProduct holds field values in sorted-field-name order. The array position
// at index i is the value for the i-th field name of the product's type
// structure after sorting field names ascending — this ordering is
// load-bearing and must never be derived any other way.
type RProduct struct {
	FieldNames []string // sorted ascending, parallel to Values
	Values     []RawValue
}

func (RProduct) RawTag() RawTag { return RawTagProduct }

// Field returns the value for a given field name, or nil if absent.
func (p RProduct) Field(name string) RawValue {
	for i, n := range p.FieldNames {
		if n == name {
			return p.Values[i]
		}
	}
	return nil
}

// NewRProduct builds an RProduct from an unordered field map, sorting field
// names ascending as required by the RProduct invariant.
func NewRProduct(fields map[string]RawValue) RProduct {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	values := make([]RawValue, len(names))
	for i, n := range names {
		values[i] = fields[n]
	}
	return RProduct{FieldNames: names, Values: values}
}

// RUnion carries a selected variant tag and its inner value.
type RUnion struct {
	Tag   string
	Inner RawValue
}

func (RUnion) RawTag() RawTag { return RawTagUnion }

// RSome wraps a present optional value.
type RSome struct{ Inner RawValue }

func (RSome) RawTag() RawTag { return RawTagSome }

// RNone represents an absent optional value.
type RNone struct{}

func (RNone) RawTag() RawTag { return RawTagNone }

// ToRaw converts a CValue into its RawValue mirror, choosing a specialized
// list variant when every element shares a primitive tag.
func ToRaw(v CValue) (RawValue, error) {
	switch v.Tag() {
	case TagString:
		return RString{V: StringVal(v)}, nil
	case TagInt:
		return RInt{V: IntVal(v)}, nil
	case TagFloat:
		return RFloat{V: FloatVal(v)}, nil
	case TagBoolean:
		return RBool{V: BoolVal(v)}, nil
	case TagList:
		return listToRaw(v)
	case TagMap:
		entries := MapEntries(v)
		out := make([]RMapEntry, len(entries))
		for i, e := range entries {
			k, err := ToRaw(e.Key)
			if err != nil {
				return nil, err
			}
			val, err := ToRaw(e.Value)
			if err != nil {
				return nil, err
			}
			out[i] = RMapEntry{Key: k, Value: val}
		}
		return RMap{V: out}, nil
	case TagProduct:
		fields := ProductFields(v)
		raw := make(map[string]RawValue, len(fields))
		for name, fv := range fields {
			rv, err := ToRaw(fv)
			if err != nil {
				return nil, err
			}
			raw[name] = rv
		}
		return NewRProduct(raw), nil
	case TagUnion:
		inner, err := ToRaw(UnionInner(v))
		if err != nil {
			return nil, err
		}
		return RUnion{Tag: UnionTag(v), Inner: inner}, nil
	case TagSome:
		inner, err := ToRaw(OptionalInner(v))
		if err != nil {
			return nil, err
		}
		return RSome{Inner: inner}, nil
	case TagNone:
		return RNone{}, nil
	default:
		return nil, fmt.Errorf("cvalue: ToRaw: unhandled tag %q", v.Tag())
	}
}

func listToRaw(v CValue) (RawValue, error) {
	items := ListItems(v)
	elemType := ctype.ElementType(v.Type())

	switch elemType.Tag() {
	case ctype.TagInt:
		out := make([]int64, len(items))
		for i, it := range items {
			out[i] = IntVal(it)
		}
		return RIntList{V: out}, nil
	case ctype.TagFloat:
		out := make([]float64, len(items))
		for i, it := range items {
			out[i] = FloatVal(it)
		}
		return RFloatList{V: out}, nil
	case ctype.TagString:
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = StringVal(it)
		}
		return RStringList{V: out}, nil
	case ctype.TagBoolean:
		out := make([]bool, len(items))
		for i, it := range items {
			out[i] = BoolVal(it)
		}
		return RBoolList{V: out}, nil
	default:
		out := make([]RawValue, len(items))
		for i, it := range items {
			rv, err := ToRaw(it)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return RList{V: out}, nil
	}
}

// FromRaw converts a RawValue back to a typed CValue given the declared
// CType it must conform to.
func FromRaw(t ctype.CType, r RawValue) (CValue, error) {
	switch rv := r.(type) {
	case RString:
		return String(rv.V), nil
	case RInt:
		return Int(rv.V), nil
	case RFloat:
		return Float(rv.V), nil
	case RBool:
		return Boolean(rv.V), nil
	case RIntList:
		elemType := ctype.ElementType(t)
		items := make([]CValue, len(rv.V))
		for i, v := range rv.V {
			items[i] = Int(v)
		}
		return List(elemType, items...), nil
	case RFloatList:
		elemType := ctype.ElementType(t)
		items := make([]CValue, len(rv.V))
		for i, v := range rv.V {
			items[i] = Float(v)
		}
		return List(elemType, items...), nil
	case RStringList:
		elemType := ctype.ElementType(t)
		items := make([]CValue, len(rv.V))
		for i, v := range rv.V {
			items[i] = String(v)
		}
		return List(elemType, items...), nil
	case RBoolList:
		elemType := ctype.ElementType(t)
		items := make([]CValue, len(rv.V))
		for i, v := range rv.V {
			items[i] = Boolean(v)
		}
		return List(elemType, items...), nil
	case RList:
		elemType := ctype.ElementType(t)
		items := make([]CValue, len(rv.V))
		for i, v := range rv.V {
			cv, err := FromRaw(elemType, v)
			if err != nil {
				return nil, err
			}
			items[i] = cv
		}
		return List(elemType, items...), nil
	case RMap:
		keyType := ctype.MapKeyType(t)
		valType := ctype.MapValueType(t)
		entries := make([]MapEntry, len(rv.V))
		for i, e := range rv.V {
			k, err := FromRaw(keyType, e.Key)
			if err != nil {
				return nil, err
			}
			val, err := FromRaw(valType, e.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = MapEntry{Key: k, Value: val}
		}
		return Map(keyType, valType, entries...), nil
	case RProduct:
		structure := ctype.ProductStructure(t)
		fields := make(map[string]CValue, len(rv.FieldNames))
		for i, name := range rv.FieldNames {
			ft, ok := structure[name]
			if !ok {
				return nil, fmt.Errorf("cvalue: FromRaw: product field %q not in declared structure", name)
			}
			cv, err := FromRaw(ft, rv.Values[i])
			if err != nil {
				return nil, err
			}
			fields[name] = cv
		}
		return Product(structure, fields), nil
	case RUnion:
		variants := ctype.UnionVariants(t)
		vt, ok := variants[rv.Tag]
		if !ok {
			return nil, fmt.Errorf("cvalue: FromRaw: union tag %q not declared", rv.Tag)
		}
		inner, err := FromRaw(vt, rv.Inner)
		if err != nil {
			return nil, err
		}
		return Union(variants, rv.Tag, inner)
	case RSome:
		inner := ctype.OptionalInner(t)
		cv, err := FromRaw(inner, rv.Inner)
		if err != nil {
			return nil, err
		}
		return Some(inner, cv), nil
	case RNone:
		return None(ctype.OptionalInner(t)), nil
	default:
		return nil, fmt.Errorf("cvalue: FromRaw: unhandled raw tag %q", r.RawTag())
	}
}
