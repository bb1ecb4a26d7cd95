package dagspec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/kbukum/constellation/ctype"
)

// StructuralHash hashes the DagSpec's topology and node types: module ids,
// data node ids, their CTypes, and the edges between them. Two specs that
// differ only in metadata (names, descriptions, tags) or inline-transform
// bodies hash identically here — this is the check used to decide whether a
// suspended execution can resume against a freshly loaded pipeline.
func (d *DagSpec) StructuralHash() uint64 {
	var b strings.Builder

	moduleIDs := sortedModuleIDs(d.Modules)
	for _, id := range moduleIDs {
		m := d.Modules[id]
		fmt.Fprintf(&b, "module:%s\n", id)
		writeTypeMap(&b, m.Consumes)
		writeTypeMap(&b, m.Produces)
	}

	dataIDs := sortedDataIDs(d.Data)
	for _, id := range dataIDs {
		dn := d.Data[id]
		fmt.Fprintf(&b, "data:%s:%s\n", id, dn.CType.String())
	}

	edges := make([]string, 0, len(d.InEdges))
	for _, e := range d.InEdges {
		edges = append(edges, fmt.Sprintf("in:%s->%s", e.DataID, e.ModuleID))
	}
	sort.Strings(edges)
	for _, e := range edges {
		b.WriteString(e)
		b.WriteByte('\n')
	}

	outEdges := make([]string, 0, len(d.OutEdges))
	for _, e := range d.OutEdges {
		outEdges = append(outEdges, fmt.Sprintf("out:%s->%s", e.ModuleID, e.DataID))
	}
	sort.Strings(outEdges)
	for _, e := range outEdges {
		b.WriteString(e)
		b.WriteByte('\n')
	}

	outputs := append([]string(nil), d.DeclaredOutputs...)
	sort.Strings(outputs)
	for _, o := range outputs {
		fmt.Fprintf(&b, "output:%s\n", o)
	}

	return xxhash.Sum64String(b.String())
}

// SyntacticHash hashes everything StructuralHash does plus metadata and
// inline-transform presence (but not transform closures, which cannot be
// compared bytewise) and module configuration. Two specs with the same
// SyntacticHash are, for all practical resume purposes, identical.
func (d *DagSpec) SyntacticHash() uint64 {
	var b strings.Builder

	fmt.Fprintf(&b, "metadata:%s:%s\n", d.Metadata.Name, d.Metadata.Description)

	moduleIDs := sortedModuleIDs(d.Modules)
	for _, id := range moduleIDs {
		m := d.Modules[id]
		tags := append([]string(nil), m.Metadata.Tags...)
		sort.Strings(tags)
		fmt.Fprintf(&b, "module:%s:%s:tags=%s:v%d.%d:inputsTimeout=%d:moduleTimeout=%d:priority=%d\n",
			id, m.Metadata.Name, strings.Join(tags, ","),
			m.Metadata.MajorVersion, m.Metadata.MinorVersion,
			m.Config.InputsTimeoutMs, m.Config.ModuleTimeoutMs, m.Config.Priority)
		writeTypeMap(&b, m.Consumes)
		writeTypeMap(&b, m.Produces)
	}

	dataIDs := sortedDataIDs(d.Data)
	for _, id := range dataIDs {
		dn := d.Data[id]
		hasTransform := dn.InlineTransform != nil
		fmt.Fprintf(&b, "data:%s:%s:%s:transform=%t\n", id, dn.Name, dn.CType.String(), hasTransform)
		if hasTransform {
			fmt.Fprintf(&b, "  transformTag:%s\n", dn.InlineTransform.Tag())
			inputNames := sortedKeysOfStringMap(dn.TransformInputs)
			for _, n := range inputNames {
				fmt.Fprintf(&b, "  transformInput:%s=%s\n", n, dn.TransformInputs[n])
			}
		}
	}

	edges := make([]string, 0, len(d.InEdges))
	for _, e := range d.InEdges {
		edges = append(edges, fmt.Sprintf("in:%s->%s", e.DataID, e.ModuleID))
	}
	sort.Strings(edges)
	for _, e := range edges {
		b.WriteString(e)
		b.WriteByte('\n')
	}

	outEdges := make([]string, 0, len(d.OutEdges))
	for _, e := range d.OutEdges {
		outEdges = append(outEdges, fmt.Sprintf("out:%s->%s", e.ModuleID, e.DataID))
	}
	sort.Strings(outEdges)
	for _, e := range outEdges {
		b.WriteString(e)
		b.WriteByte('\n')
	}

	outputs := append([]string(nil), d.DeclaredOutputs...)
	sort.Strings(outputs)
	for _, o := range outputs {
		fmt.Fprintf(&b, "output:%s=%s\n", o, d.OutputBindings[o])
	}

	return xxhash.Sum64String(b.String())
}

// writeTypeMap writes a sorted paramName:CType listing so map iteration
// order never leaks into the hash.
func writeTypeMap(b *strings.Builder, m map[string]ctype.CType) {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(b, "  param:%s:%s\n", n, m[n].String())
	}
}

func sortedModuleIDs(m map[string]ModuleNodeSpec) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedDataIDs(m map[string]DataNodeSpec) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeysOfStringMap(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
