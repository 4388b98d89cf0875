package canonical

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestMarshal_SortsObjectKeys(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2, "c": 3}
	b := map[string]any{"c": 3, "a": 2, "b": 1}

	dataA, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal(a) failed: %v", err)
	}
	dataB, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal(b) failed: %v", err)
	}

	if string(dataA) != string(dataB) {
		t.Errorf("logically equal maps encoded differently:\n%s\n%s", dataA, dataB)
	}
	if string(dataA) != `{"a":2,"b":1,"c":3}` {
		t.Errorf("unexpected canonical form: %s", dataA)
	}
}

func TestMarshal_NestedKeysSortedRecursively(t *testing.T) {
	v := map[string]any{
		"outer": map[string]any{"z": 1, "a": 2},
	}
	data, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	want := `{"outer":{"a":2,"z":1}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMarshal_ArrayOrderPreserved(t *testing.T) {
	data, err := Marshal([]any{3, 1, 2})
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if string(data) != `[3,1,2]` {
		t.Errorf("array order not preserved: %s", data)
	}
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	data, err := Marshal("<a> & </a>")
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if string(data) != `"<a> & </a>"` {
		t.Errorf("HTML characters were escaped: %s", data)
	}
}

func TestMarshal_StructMatchesEquivalentMap(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	fromStruct, err := Marshal(payload{Name: "x", Count: 2})
	if err != nil {
		t.Fatalf("Marshal(struct) failed: %v", err)
	}
	fromMap, err := Marshal(map[string]any{"count": 2, "name": "x"})
	if err != nil {
		t.Fatalf("Marshal(map) failed: %v", err)
	}

	if string(fromStruct) != string(fromMap) {
		t.Errorf("struct and map encoded differently:\n%s\n%s", fromStruct, fromMap)
	}
}

func TestMarshal_CyclicMapFails(t *testing.T) {
	m := map[string]any{}
	m["self"] = m

	_, err := Marshal(m)
	if err == nil {
		t.Fatal("expected error for cyclic map, got nil")
	}
	if !IsCircular(err) {
		t.Errorf("expected CircularStructureError, got %T: %v", err, err)
	}
}

func TestMarshal_CyclicSliceFails(t *testing.T) {
	s := make([]any, 1)
	s[0] = s

	_, err := Marshal(s)
	if err == nil {
		t.Fatal("expected error for cyclic slice, got nil")
	}
	if !IsCircular(err) {
		t.Errorf("expected CircularStructureError, got %T: %v", err, err)
	}
}

func TestMarshal_IndirectCycleFails(t *testing.T) {
	a := map[string]any{}
	b := map[string]any{"back": a}
	a["fwd"] = b

	_, err := Marshal(a)
	if !IsCircular(err) {
		t.Errorf("expected CircularStructureError for indirect cycle, got %v", err)
	}
}

func TestMarshal_SharedReferenceIsNotACycle(t *testing.T) {
	shared := map[string]any{"k": 1}
	v := map[string]any{"a": shared, "b": shared}

	data, err := Marshal(v)
	if err != nil {
		t.Fatalf("DAG wrongly reported as cycle: %v", err)
	}
	if string(data) != `{"a":{"k":1},"b":{"k":1}}` {
		t.Errorf("unexpected encoding: %s", data)
	}
}

func TestHashValue_EqualForReorderedKeys(t *testing.T) {
	h1, err := HashValue(DomainObject, map[string]any{"x": 1, "y": "z"})
	if err != nil {
		t.Fatalf("HashValue() failed: %v", err)
	}
	h2, err := HashValue(DomainObject, map[string]any{"y": "z", "x": 1})
	if err != nil {
		t.Fatalf("HashValue() failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("equal values hashed differently: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestHashBytes_DomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	if HashBytes(DomainObject, data) == HashBytes(DomainCheckpoint, data) {
		t.Error("different domains produced identical hashes")
	}
}

func TestMarshal_Golden(t *testing.T) {
	v := map[string]any{
		"zeta":  []any{1, 2, map[string]any{"y": false, "x": true}},
		"alpha": "text with <tags> & ampersands",
		"nested": map[string]any{
			"null":   nil,
			"number": 42,
		},
	}

	data, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	g := goldie.New(t)
	g.Assert(t, "canonical", data)
}
