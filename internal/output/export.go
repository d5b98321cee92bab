package output

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Download is a rendered, file-shaped view of an AgentOutput.
type Download struct {
	Filename string
	MimeType string
	Body     []byte
	// URL is set instead of Body for images hosted elsewhere.
	URL string
}

var codeExtensions = map[string]string{
	"typescript": "ts",
	"javascript": "js",
	"python":     "py",
	"html":       "html",
	"css":        "css",
	"json":       "json",
}

// FileExtension returns the extension used when o is downloaded.
func FileExtension(o *AgentOutput) string {
	switch o.Type {
	case TypeCode:
		if ext, ok := codeExtensions[o.Language]; ok {
			return ext
		}
		return "txt"
	case TypeDocument, TypeChecklist:
		return "md"
	case TypeChart:
		return "json"
	case TypeTable:
		return "csv"
	case TypeImage:
		return "png"
	default:
		return "txt"
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds "<agent>-<type>-<stamp>.<ext>".
func Filename(agentName string, o *AgentOutput, stamp int64) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(agentName), "-"), "-")
	if slug == "" {
		slug = "agent"
	}
	return fmt.Sprintf("%s-%s-%d.%s", slug, o.Type, stamp, FileExtension(o))
}

// Export renders o for download under the given filename.
func Export(o *AgentOutput, filename string) Download {
	d := Render[Download](o, exporter{})
	d.Filename = filename
	return d
}

type exporter struct{}

func (exporter) Text(o *AgentOutput) Download {
	return Download{MimeType: "text/plain", Body: []byte(o.Content)}
}

func (exporter) Code(o *AgentOutput, _ string) Download {
	return Download{MimeType: "text/plain", Body: []byte(o.Content)}
}

func (exporter) Image(o *AgentOutput, src string) Download {
	if rest, ok := strings.CutPrefix(src, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if found && strings.HasSuffix(meta, ";base64") {
			if body, err := base64.StdEncoding.DecodeString(data); err == nil {
				return Download{MimeType: strings.TrimSuffix(meta, ";base64"), Body: body}
			}
		}
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return Download{MimeType: "image/png", URL: src}
	}
	return Download{MimeType: "text/plain", Body: []byte(o.Content)}
}

func (exporter) Chart(o *AgentOutput, points []ChartPoint) Download {
	body, err := json.MarshalIndent(struct {
		Title   string       `json:"title"`
		Data    []ChartPoint `json:"data"`
		Summary string       `json:"summary"`
	}{o.Title, points, o.Content}, "", "  ")
	if err != nil {
		return Download{MimeType: "text/plain", Body: []byte(o.Content)}
	}
	return Download{MimeType: "application/json", Body: body}
}

func (exporter) Document(o *AgentOutput) Download {
	return Download{MimeType: "text/markdown", Body: []byte(o.Content)}
}

func (exporter) Checklist(o *AgentOutput, items []ChecklistItem) Download {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- [%s] %s", strings.ToUpper(string(it.Priority)), it.Item))
	}
	return Download{MimeType: "text/markdown", Body: []byte(strings.Join(lines, "\n"))}
}

func (exporter) Table(o *AgentOutput, table TableData) Download {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(table.Headers)
	_ = w.WriteAll(table.Rows)
	if err := w.Error(); err != nil {
		return Download{MimeType: "text/plain", Body: []byte(o.Content)}
	}
	return Download{MimeType: "text/csv", Body: buf.Bytes()}
}
