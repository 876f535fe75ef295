package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Result es la salida normalizada de una generación: texto para el chat y,
// opcionalmente, archivos generados.
type Result struct {
	Text     string
	FileTree map[string]string
}

// ParseResult interpreta la respuesta cruda del modelo. Si contiene un JSON
// con "text"/"fileTree" lo usa; cualquier otra cosa pasa como texto plano.
func ParseResult(raw string) Result {
	cleaned := stripCodeFences(raw)

	for _, candidate := range []string{extractFirstJSONObject(cleaned), cleaned, strings.TrimSpace(raw)} {
		if candidate == "" {
			continue
		}
		var tmp struct {
			Text     string            `json:"text"`
			FileTree map[string]string `json:"fileTree"`
		}
		if err := json.Unmarshal([]byte(candidate), &tmp); err != nil {
			continue
		}
		if strings.TrimSpace(tmp.Text) == "" && len(tmp.FileTree) == 0 {
			continue
		}
		return Result{
			Text:     strings.TrimSpace(tmp.Text),
			FileTree: tmp.FileTree,
		}
	}

	return Result{Text: strings.TrimSpace(raw)}
}

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// stripCodeFences quita fences ```json ... ``` y BOM, dejando el contenido usable.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// extractFirstJSONObject devuelve el primer objeto JSON balanceado del input,
// respetando strings con escapes.
func extractFirstJSONObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start == -1 {
		return ""
	}

	inString := false
	escape := false
	depth := 0

	for i := start; i < len(input); i++ {
		ch := input[i]

		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
			if depth < 0 {
				return ""
			}
		}
	}

	return ""
}
