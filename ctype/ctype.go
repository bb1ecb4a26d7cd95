package ctype

import (
	"fmt"
	"sort"
	"strings"
)

// Tag discriminates the variant of a CType.
type Tag string

const (
	TagString   Tag = "String"
	TagInt      Tag = "Int"
	TagFloat    Tag = "Float"
	TagBoolean  Tag = "Boolean"
	TagList     Tag = "List"
	TagMap      Tag = "Map"
	TagProduct  Tag = "Product"
	TagUnion    Tag = "Union"
	TagOptional Tag = "Optional"
)

// CType is the tagged sum of every shape a value can take in a DagSpec.
// Concrete variants are the unexported struct types below, constructed via
// the exported factory functions so that the zero value is never mistaken
// for a valid type.
type CType interface {
	Tag() Tag
	// Equal reports structural, transitive equality with another CType.
	Equal(other CType) bool
	String() string
}

// --- Primitives ---

type stringType struct{}
type intType struct{}
type floatType struct{}
type booleanType struct{}

func (stringType) Tag() Tag           { return TagString }
func (stringType) String() string     { return "String" }
func (stringType) Equal(o CType) bool { return o != nil && o.Tag() == TagString }

func (intType) Tag() Tag           { return TagInt }
func (intType) String() string     { return "Int" }
func (intType) Equal(o CType) bool { return o != nil && o.Tag() == TagInt }

func (floatType) Tag() Tag           { return TagFloat }
func (floatType) String() string     { return "Float" }
func (floatType) Equal(o CType) bool { return o != nil && o.Tag() == TagFloat }

func (booleanType) Tag() Tag           { return TagBoolean }
func (booleanType) String() string     { return "Boolean" }
func (booleanType) Equal(o CType) bool { return o != nil && o.Tag() == TagBoolean }

var (
	stringSingleton  CType = stringType{}
	intSingleton     CType = intType{}
	floatSingleton   CType = floatType{}
	booleanSingleton CType = booleanType{}
)

// String returns the CString type.
func String() CType { return stringSingleton }

// Int returns the CInt (64-bit signed) type.
func Int() CType { return intSingleton }

// Float returns the CFloat (IEEE 754 double) type.
func Float() CType { return floatSingleton }

// Boolean returns the CBoolean type.
func Boolean() CType { return booleanSingleton }

// --- List ---

type listType struct {
	Element CType
}

func (l listType) Tag() Tag { return TagList }

func (l listType) String() string { return fmt.Sprintf("List(%s)", l.Element.String()) }

func (l listType) Equal(o CType) bool {
	if o == nil || o.Tag() != TagList {
		return false
	}
	other, ok := o.(listType)
	if !ok {
		return false
	}
	return l.Element.Equal(other.Element)
}

// List constructs CList(elementType).
func List(element CType) CType { return listType{Element: element} }

// ElementType returns the element CType of a CList, panicking if t is not a list.
func ElementType(t CType) CType {
	l, ok := t.(listType)
	if !ok {
		panic(fmt.Sprintf("ctype: ElementType called on non-list %s", t.Tag()))
	}
	return l.Element
}

// --- Map ---

type mapType struct {
	Key   CType
	Value CType
}

func (m mapType) Tag() Tag { return TagMap }

func (m mapType) String() string {
	return fmt.Sprintf("Map(%s, %s)", m.Key.String(), m.Value.String())
}

func (m mapType) Equal(o CType) bool {
	if o == nil || o.Tag() != TagMap {
		return false
	}
	other, ok := o.(mapType)
	if !ok {
		return false
	}
	return m.Key.Equal(other.Key) && m.Value.Equal(other.Value)
}

// Map constructs CMap(keyType, valueType).
func Map(key, value CType) CType { return mapType{Key: key, Value: value} }

// MapKeyType returns the key CType of a CMap.
func MapKeyType(t CType) CType { return t.(mapType).Key }

// MapValueType returns the value CType of a CMap.
func MapValueType(t CType) CType { return t.(mapType).Value }

// --- Product ---

type productType struct {
	Structure map[string]CType
}

func (p productType) Tag() Tag { return TagProduct }

func (p productType) String() string {
	names := p.SortedFieldNames()
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", n, p.Structure[n].String()))
	}
	return fmt.Sprintf("Product{%s}", strings.Join(parts, ", "))
}

func (p productType) Equal(o CType) bool {
	if o == nil || o.Tag() != TagProduct {
		return false
	}
	other, ok := o.(productType)
	if !ok || len(p.Structure) != len(other.Structure) {
		return false
	}
	for name, ft := range p.Structure {
		oft, ok := other.Structure[name]
		if !ok || !ft.Equal(oft) {
			return false
		}
	}
	return true
}

// SortedFieldNames returns the product's field names sorted ascending. This
// ordering is load-bearing for RProduct's array-position invariant.
func (p productType) SortedFieldNames() []string {
	names := make([]string, 0, len(p.Structure))
	for n := range p.Structure {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Product constructs CProduct(structure). The field set is unordered; JSON
// encoding is stable because encoders always sort field names.
func Product(structure map[string]CType) CType {
	cp := make(map[string]CType, len(structure))
	for k, v := range structure {
		cp[k] = v
	}
	return productType{Structure: cp}
}

// ProductStructure returns the field map of a CProduct.
func ProductStructure(t CType) map[string]CType { return t.(productType).Structure }

// ProductFieldNames returns a CProduct's field names sorted ascending.
func ProductFieldNames(t CType) []string { return t.(productType).SortedFieldNames() }

// --- Union ---

type unionType struct {
	Variants map[string]CType
}

func (u unionType) Tag() Tag { return TagUnion }

func (u unionType) String() string {
	names := make([]string, 0, len(u.Variants))
	for n := range u.Variants {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", n, u.Variants[n].String()))
	}
	return fmt.Sprintf("Union{%s}", strings.Join(parts, ", "))
}

func (u unionType) Equal(o CType) bool {
	if o == nil || o.Tag() != TagUnion {
		return false
	}
	other, ok := o.(unionType)
	if !ok || len(u.Variants) != len(other.Variants) {
		return false
	}
	for tag, vt := range u.Variants {
		ovt, ok := other.Variants[tag]
		if !ok || !vt.Equal(ovt) {
			return false
		}
	}
	return true
}

// Union constructs CUnion(variants).
func Union(variants map[string]CType) CType {
	cv := make(map[string]CType, len(variants))
	for k, v := range variants {
		cv[k] = v
	}
	return unionType{Variants: cv}
}

// UnionVariants returns the tag->CType map of a CUnion.
func UnionVariants(t CType) map[string]CType { return t.(unionType).Variants }

// --- Optional ---

type optionalType struct {
	Inner CType
}

func (o optionalType) Tag() Tag { return TagOptional }

func (o optionalType) String() string { return fmt.Sprintf("Optional(%s)", o.Inner.String()) }

func (o optionalType) Equal(other CType) bool {
	if other == nil || other.Tag() != TagOptional {
		return false
	}
	oo, ok := other.(optionalType)
	if !ok {
		return false
	}
	return o.Inner.Equal(oo.Inner)
}

// Optional constructs COptional(inner).
func Optional(inner CType) CType { return optionalType{Inner: inner} }

// OptionalInner returns the inner CType of a COptional.
func OptionalInner(t CType) CType { return t.(optionalType).Inner }

// IsOptional reports whether t is a COptional.
func IsOptional(t CType) bool { return t != nil && t.Tag() == TagOptional }

// IsProduct reports whether t is a CProduct.
func IsProduct(t CType) bool { return t != nil && t.Tag() == TagProduct }
