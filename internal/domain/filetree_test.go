package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFileTreePayload_AcceptsBothWireShapes(t *testing.T) {
	asList := []byte(`[{"path":"main.go","contents":"package main"},{"path":"go.mod","contents":"module x"}]`)
	asMap := []byte(`{"main.go":"package main","go.mod":"module x"}`)

	var fromList, fromMap FileTreePayload
	if err := json.Unmarshal(asList, &fromList); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if err := json.Unmarshal(asMap, &fromMap); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}

	treeFromList := make(FileTree)
	treeFromMap := make(FileTree)
	fromList.ApplyTo(treeFromList)
	fromMap.ApplyTo(treeFromMap)

	if !reflect.DeepEqual(treeFromList, treeFromMap) {
		t.Fatalf("shapes normalized differently: %v vs %v", treeFromList, treeFromMap)
	}
	if treeFromList["main.go"] != "package main" {
		t.Fatalf("unexpected contents: %v", treeFromList)
	}
}

func TestFileTreePayload_AcceptsNestedContentsShape(t *testing.T) {
	raw := []byte(`{"app.js":{"contents":"console.log(1)"}}`)

	var payload FileTreePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tree := make(FileTree)
	payload.ApplyTo(tree)
	if tree["app.js"] != "console.log(1)" {
		t.Fatalf("unexpected tree: %v", tree)
	}
}

func TestFileTreePayload_ApplyIsIdempotent(t *testing.T) {
	payload := NewFileTreePayload([]FileEntry{
		{Path: "a.txt", Contents: "uno"},
		{Path: "b.txt", Contents: "dos"},
	})

	once := make(FileTree)
	payload.ApplyTo(once)

	twice := make(FileTree)
	payload.ApplyTo(twice)
	payload.ApplyTo(twice)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected idempotent apply: %v vs %v", once, twice)
	}
}

func TestFileTreePayload_LastWriteWinsPerPath(t *testing.T) {
	tree := make(FileTree)
	NewFileTreePayload([]FileEntry{{Path: "a.txt", Contents: "v1"}}).ApplyTo(tree)
	NewFileTreePayload([]FileEntry{{Path: "a.txt", Contents: "v2"}, {Path: "b.txt", Contents: "x"}}).ApplyTo(tree)

	if tree["a.txt"] != "v2" || tree["b.txt"] != "x" {
		t.Fatalf("unexpected tree: %v", tree)
	}
}

func TestFileTreePayload_DiscardsEmptyPaths(t *testing.T) {
	tree := make(FileTree)
	NewFileTreePayload([]FileEntry{{Path: "", Contents: "lost"}}).ApplyTo(tree)
	if len(tree) != 0 {
		t.Fatalf("expected empty tree, got %v", tree)
	}
}

func TestFileTreePayload_InvalidShape(t *testing.T) {
	var payload FileTreePayload
	if err := json.Unmarshal([]byte(`42`), &payload); err == nil {
		t.Fatalf("expected error for scalar payload")
	}
}

func TestFileTreePayload_MarshalStableOrder(t *testing.T) {
	payload := FileTreePayloadFromMap(map[string]string{"b": "2", "a": "1"})
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"path":"a","contents":"1"},{"path":"b","contents":"2"}]`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}
