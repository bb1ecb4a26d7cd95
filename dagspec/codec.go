package dagspec

import (
	"fmt"

	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/transform"
)

// Encode converts a DagSpec into its JSON-ready representation, nested
// inside suspension.SuspendedExecution's own encoding. Closures embedded in
// inline transforms are not round-tripped — see transform.Encode.
func Encode(d *DagSpec) map[string]any {
	modules := map[string]any{}
	for id, m := range d.Modules {
		modules[id] = encodeModule(m)
	}

	data := map[string]any{}
	for id, dn := range d.Data {
		data[id] = encodeDataNode(dn)
	}

	inEdges := make([]any, len(d.InEdges))
	for i, e := range d.InEdges {
		inEdges[i] = map[string]any{"dataId": e.DataID, "moduleId": e.ModuleID}
	}
	outEdges := make([]any, len(d.OutEdges))
	for i, e := range d.OutEdges {
		outEdges[i] = map[string]any{"moduleId": e.ModuleID, "dataId": e.DataID}
	}

	outputBindings := map[string]any{}
	for k, v := range d.OutputBindings {
		outputBindings[k] = v
	}

	return map[string]any{
		"metadata":        map[string]any{"name": d.Metadata.Name, "description": d.Metadata.Description},
		"modules":         modules,
		"data":            data,
		"inEdges":         inEdges,
		"outEdges":        outEdges,
		"declaredOutputs": stringsToAny(d.DeclaredOutputs),
		"outputBindings":  outputBindings,
	}
}

func encodeModule(m ModuleNodeSpec) map[string]any {
	return map[string]any{
		"id": m.ID,
		"metadata": map[string]any{
			"name":         m.Metadata.Name,
			"description":  m.Metadata.Description,
			"tags":         stringsToAny(m.Metadata.Tags),
			"majorVersion": m.Metadata.MajorVersion,
			"minorVersion": m.Metadata.MinorVersion,
		},
		"consumes": encodeTypeMap(m.Consumes),
		"produces": encodeTypeMap(m.Produces),
		"config": map[string]any{
			"inputsTimeoutMs": m.Config.InputsTimeoutMs,
			"moduleTimeoutMs": m.Config.ModuleTimeoutMs,
			"priority":        m.Config.Priority,
		},
	}
}

func encodeDataNode(dn DataNodeSpec) map[string]any {
	out := map[string]any{
		"id":        dn.ID,
		"name":      dn.Name,
		"nicknames": stringMapToAny(dn.Nicknames),
		"cType":     ctype.Encode(dn.CType),
	}
	if dn.InlineTransform != nil {
		out["inlineTransform"] = transform.Encode(dn.InlineTransform)
		out["transformInputs"] = stringMapToAny(dn.TransformInputs)
	}
	return out
}

func encodeTypeMap(m map[string]ctype.CType) map[string]any {
	out := map[string]any{}
	for k, t := range m {
		out[k] = ctype.Encode(t)
	}
	return out
}

func stringMapToAny(m map[string]string) map[string]any {
	out := map[string]any{}
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Decode reconstructs a DagSpec from its JSON-ready representation.
func Decode(m map[string]any) (*DagSpec, error) {
	metaObj, _ := m["metadata"].(map[string]any)
	meta := Metadata{}
	if metaObj != nil {
		meta.Name, _ = metaObj["name"].(string)
		meta.Description, _ = metaObj["description"].(string)
	}

	modulesObj, ok := m["modules"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("dagspec: decode: missing modules")
	}
	modules := map[string]ModuleNodeSpec{}
	for id, raw := range modulesObj {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dagspec: decode: module %q is not an object", id)
		}
		mod, err := decodeModule(id, obj)
		if err != nil {
			return nil, err
		}
		modules[id] = mod
	}

	dataObj, ok := m["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("dagspec: decode: missing data")
	}
	data := map[string]DataNodeSpec{}
	for id, raw := range dataObj {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dagspec: decode: data node %q is not an object", id)
		}
		dn, err := decodeDataNode(id, obj)
		if err != nil {
			return nil, err
		}
		data[id] = dn
	}

	inEdges, err := decodeInEdges(m["inEdges"])
	if err != nil {
		return nil, err
	}
	outEdges, err := decodeOutEdges(m["outEdges"])
	if err != nil {
		return nil, err
	}

	declaredOutputs, err := asStrings(m, "declaredOutputs")
	if err != nil {
		declaredOutputs = nil
	}

	outputBindingsObj, _ := m["outputBindings"].(map[string]any)
	outputBindings := map[string]string{}
	for k, v := range outputBindingsObj {
		s, _ := v.(string)
		outputBindings[k] = s
	}

	return &DagSpec{
		Metadata:        meta,
		Modules:         modules,
		Data:            data,
		InEdges:         inEdges,
		OutEdges:        outEdges,
		DeclaredOutputs: declaredOutputs,
		OutputBindings:  outputBindings,
	}, nil
}

func decodeModule(id string, obj map[string]any) (ModuleNodeSpec, error) {
	metaObj, _ := obj["metadata"].(map[string]any)
	meta := ModuleMetadata{}
	if metaObj != nil {
		meta.Name, _ = metaObj["name"].(string)
		meta.Description, _ = metaObj["description"].(string)
		if tagsRaw, ok := metaObj["tags"].([]any); ok {
			for _, t := range tagsRaw {
				if s, ok := t.(string); ok {
					meta.Tags = append(meta.Tags, s)
				}
			}
		}
		meta.MajorVersion = asIntLoose(metaObj["majorVersion"])
		meta.MinorVersion = asIntLoose(metaObj["minorVersion"])
	}

	consumes, err := decodeTypeMap(obj["consumes"])
	if err != nil {
		return ModuleNodeSpec{}, err
	}
	produces, err := decodeTypeMap(obj["produces"])
	if err != nil {
		return ModuleNodeSpec{}, err
	}

	cfg := ModuleConfig{}
	if cfgObj, ok := obj["config"].(map[string]any); ok {
		cfg.InputsTimeoutMs = int64(asIntLoose(cfgObj["inputsTimeoutMs"]))
		cfg.ModuleTimeoutMs = int64(asIntLoose(cfgObj["moduleTimeoutMs"]))
		cfg.Priority = asIntLoose(cfgObj["priority"])
	}

	return ModuleNodeSpec{
		ID:       id,
		Metadata: meta,
		Consumes: consumes,
		Produces: produces,
		Config:   cfg,
	}, nil
}

func decodeDataNode(id string, obj map[string]any) (DataNodeSpec, error) {
	name, _ := obj["name"].(string)
	nicknames := map[string]string{}
	if nickObj, ok := obj["nicknames"].(map[string]any); ok {
		for k, v := range nickObj {
			s, _ := v.(string)
			nicknames[k] = s
		}
	}

	cTypeObj, ok := obj["cType"].(map[string]any)
	if !ok {
		return DataNodeSpec{}, fmt.Errorf("dagspec: decode: data node %q missing cType", id)
	}
	ct, err := ctype.Decode(cTypeObj)
	if err != nil {
		return DataNodeSpec{}, err
	}

	dn := DataNodeSpec{ID: id, Name: name, Nicknames: nicknames, CType: ct}

	if tObj, ok := obj["inlineTransform"].(map[string]any); ok {
		tr, err := transform.Decode(tObj)
		if err != nil {
			return DataNodeSpec{}, err
		}
		dn.InlineTransform = tr
		inputs := map[string]string{}
		if inputsObj, ok := obj["transformInputs"].(map[string]any); ok {
			for k, v := range inputsObj {
				s, _ := v.(string)
				inputs[k] = s
			}
		}
		dn.TransformInputs = inputs
	}

	return dn, nil
}

func decodeTypeMap(raw any) (map[string]ctype.CType, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return map[string]ctype.CType{}, nil
	}
	out := map[string]ctype.CType{}
	for k, v := range obj {
		tObj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dagspec: decode: type entry %q is not an object", k)
		}
		t, err := ctype.Decode(tObj)
		if err != nil {
			return nil, err
		}
		out[k] = t
	}
	return out, nil
}

func decodeInEdges(raw any) ([]InEdge, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	out := make([]InEdge, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dagspec: decode: inEdge entry is not an object")
		}
		dataID, _ := obj["dataId"].(string)
		moduleID, _ := obj["moduleId"].(string)
		out = append(out, InEdge{DataID: dataID, ModuleID: moduleID})
	}
	return out, nil
}

func decodeOutEdges(raw any) ([]OutEdge, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	out := make([]OutEdge, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dagspec: decode: outEdge entry is not an object")
		}
		moduleID, _ := obj["moduleId"].(string)
		dataID, _ := obj["dataId"].(string)
		out = append(out, OutEdge{ModuleID: moduleID, DataID: dataID})
	}
	return out, nil
}

func asStrings(m map[string]any, key string) ([]string, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("dagspec: decode: missing field %q", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("dagspec: decode: field %q is not an array", key)
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, _ := it.(string)
		out[i] = s
	}
	return out, nil
}

func asIntLoose(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
