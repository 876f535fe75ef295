package domain

import (
	"encoding/json"
	"errors"
	"sort"
)

// FileTree es el estado compartido de archivos de un proyecto:
// path -> contenido. Última escritura gana por path.
type FileTree map[string]string

// FileEntry es la forma de lista del payload de archivos en el wire.
type FileEntry struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
}

var ErrInvalidFileTreePayload = errors.New("invalid file tree payload")

// FileTreePayload acepta las dos formas observadas en el wire: una lista de
// {path, contents} o un mapa anidado path -> contents. Se normaliza a
// entradas ordenadas en cuanto se recibe.
type FileTreePayload struct {
	Entries []FileEntry
}

func NewFileTreePayload(entries []FileEntry) *FileTreePayload {
	return &FileTreePayload{Entries: entries}
}

// FileTreePayloadFromMap construye un payload a partir de un mapa,
// con las entradas ordenadas por path para que la salida sea estable.
func FileTreePayloadFromMap(files map[string]string) *FileTreePayload {
	entries := make([]FileEntry, 0, len(files))
	for path, contents := range files {
		entries = append(entries, FileEntry{Path: path, Contents: contents})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return &FileTreePayload{Entries: entries}
}

func (p *FileTreePayload) IsEmpty() bool {
	return p == nil || len(p.Entries) == 0
}

// ApplyTo mezcla el payload sobre el árbol destino, path por path.
// Entradas con path vacío se descartan.
func (p *FileTreePayload) ApplyTo(tree FileTree) {
	if p == nil {
		return
	}
	for _, entry := range p.Entries {
		if entry.Path == "" {
			continue
		}
		tree[entry.Path] = entry.Contents
	}
}

func (p FileTreePayload) MarshalJSON() ([]byte, error) {
	entries := p.Entries
	if entries == nil {
		entries = []FileEntry{}
	}
	return json.Marshal(entries)
}

func (p *FileTreePayload) UnmarshalJSON(data []byte) error {
	var entries []FileEntry
	if err := json.Unmarshal(data, &entries); err == nil {
		p.Entries = entries
		return nil
	}

	var files map[string]string
	if err := json.Unmarshal(data, &files); err == nil {
		p.Entries = FileTreePayloadFromMap(files).Entries
		return nil
	}

	// Variante vieja del wire: mapa de objetos {file: {contents}}.
	var nested map[string]struct {
		Contents string `json:"contents"`
	}
	if err := json.Unmarshal(data, &nested); err == nil {
		files = make(map[string]string, len(nested))
		for path, file := range nested {
			files[path] = file.Contents
		}
		p.Entries = FileTreePayloadFromMap(files).Entries
		return nil
	}

	return ErrInvalidFileTreePayload
}
