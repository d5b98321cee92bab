package output

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseChecklistWithValidJSON(t *testing.T) {
	raw := `Sure! {"title":"Plan","checklistItems":[{"item":"Scope","priority":"high"},{"item":"Ship","priority":"urgent"},{"item":"Polish","priority":"whenever"}],"summary":"Three steps"} hope that helps`

	out := Parse(raw, TypeChecklist)
	if out.Type != TypeChecklist {
		t.Fatalf("expected checklist, got %s", out.Type)
	}
	if out.Title != "Plan" {
		t.Errorf("expected title 'Plan', got %q", out.Title)
	}
	if out.Content != "Three steps" {
		t.Errorf("expected summary as content, got %q", out.Content)
	}
	want := []Priority{PriorityHigh, PriorityHigh, PriorityMedium}
	if len(out.ChecklistItems) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(out.ChecklistItems))
	}
	for i, p := range want {
		if out.ChecklistItems[i].Priority != p {
			t.Errorf("item %d: expected priority %s, got %s", i, p, out.ChecklistItems[i].Priority)
		}
	}
	if err := out.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestParseChecklistFallback(t *testing.T) {
	raw := strings.Repeat("x", 150)

	out := Parse(raw, TypeChecklist)
	if out.Title != "Agent Report" {
		t.Errorf("expected default title, got %q", out.Title)
	}
	if len(out.ChecklistItems) != 1 {
		t.Fatalf("expected one fallback item, got %d", len(out.ChecklistItems))
	}
	if got := out.ChecklistItems[0]; len(got.Item) != 100 || got.Priority != PriorityMedium {
		t.Errorf("unexpected fallback item: %+v", got)
	}
}

func TestParseChecklistRecommendationsList(t *testing.T) {
	raw := `{"checklistItems":[{"item":"Rotate keys","priority":"high"}],"recommendations":["a","b"]}`

	out := Parse(raw, TypeChecklist)
	if out.Content != "a\nb" {
		t.Errorf("expected joined recommendations, got %q", out.Content)
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		language string
		content  string
	}{
		{
			name:     "with explanation",
			raw:      `{"title":"Svc","language":"go","code":"package main","explanation":"entry point"}`,
			language: "go",
			content:  "package main\n\n/* Explanation:\nentry point\n*/",
		},
		{
			name:     "no json",
			raw:      "console.log(1)",
			language: "typescript",
			content:  "console.log(1)",
		},
		{
			name:     "missing code uses raw",
			raw:      `{"language":"python"}`,
			language: "python",
			content:  `{"language":"python"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Parse(tt.raw, TypeCode)
			if out.Language != tt.language {
				t.Errorf("expected language %q, got %q", tt.language, out.Language)
			}
			if out.Content != tt.content {
				t.Errorf("expected content %q, got %q", tt.content, out.Content)
			}
			if err := out.Validate(); err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestParseChartDefaults(t *testing.T) {
	out := Parse("no structure here", TypeChart)
	if len(out.ChartData) != 3 {
		t.Fatalf("expected 3 default slices, got %d", len(out.ChartData))
	}
	if out.ChartData[1].Value != 45 || out.ChartData[1].Color != "#a855f7" {
		t.Errorf("unexpected default slice: %+v", out.ChartData[1])
	}
	if out.Content != "no structure here" {
		t.Errorf("expected raw content, got %q", out.Content)
	}
}

func TestParseChartFillsColours(t *testing.T) {
	raw := `{"chartData":[{"label":"Q1","value":10},{"value":20,"color":"#fff"}],"analysis":"up"}`

	out := Parse(raw, TypeChart)
	if out.Content != "up" {
		t.Errorf("expected analysis as content, got %q", out.Content)
	}
	if out.ChartData[0].Color != Palette[0] {
		t.Errorf("expected palette colour, got %q", out.ChartData[0].Color)
	}
	if out.ChartData[1].Label != "Item 2" || out.ChartData[1].Color != "#fff" {
		t.Errorf("unexpected second point: %+v", out.ChartData[1])
	}
}

func TestParseTable(t *testing.T) {
	raw := `{"tableData":{"headers":["A","B","C"],"rows":[["1","2","3","4"],["x"]]},"keyInsights":["one","two"]}`

	out := Parse(raw, TypeTable)
	if out.Content != "one\n\ntwo" {
		t.Errorf("expected joined insights, got %q", out.Content)
	}
	for i, row := range out.TableData.Rows {
		if len(row) != 3 {
			t.Errorf("row %d: expected 3 cells, got %d", i, len(row))
		}
	}
}

func TestParseTableFallback(t *testing.T) {
	raw := strings.Repeat("é", 250)

	out := Parse(raw, TypeTable)
	if got := out.TableData.Headers; len(got) != 2 || got[0] != "Finding" {
		t.Errorf("unexpected default headers: %v", got)
	}
	if cell := out.TableData.Rows[0][1]; len([]rune(cell)) != 200 {
		t.Errorf("expected 200-rune detail cell, got %d", len([]rune(cell)))
	}
}

func TestParseDocument(t *testing.T) {
	raw := `{"headline":"Launch","subheadline":"Now","bodyCopy":"Body","callToAction":"Buy","additionalAssets":["Tweet","Email"]}`

	out := Parse(raw, TypeDocument)
	want := "# Launch\n\n## Now\n\nBody\n\n**Buy**\n\n---\n### Additional Assets:\n1. Tweet\n2. Email\n"
	if out.Content != want {
		t.Errorf("unexpected document:\n%s", out.Content)
	}
}

func TestParseImageAffinityStartsAsText(t *testing.T) {
	out := Parse(`{"title":"Concept"}`, TypeImage)
	if out.Type != TypeText {
		t.Errorf("expected text base type, got %s", out.Type)
	}
	if out.Title != "Concept" {
		t.Errorf("expected title from payload, got %q", out.Title)
	}
}

func TestParseSkipsMistypedFields(t *testing.T) {
	raw := `{"title":"Audit","checklistItems":"not a list","summary":"ok"}`

	out := Parse(raw, TypeChecklist)
	if out.Title != "Audit" || out.Content != "ok" {
		t.Errorf("expected well-typed fields to survive, got %+v", out)
	}
	if len(out.ChecklistItems) != 1 {
		t.Errorf("expected fallback item, got %d", len(out.ChecklistItems))
	}
}

func TestValidateRejectsMismatchedPayload(t *testing.T) {
	o := &AgentOutput{Type: TypeText, ChartData: []ChartPoint{{Label: "a"}}}
	if err := o.Validate(); !errors.Is(err, ErrInvalidOutput) {
		t.Errorf("expected ErrInvalidOutput, got %v", err)
	}

	o = &AgentOutput{Type: TypeTable}
	if err := o.Validate(); !errors.Is(err, ErrInvalidOutput) {
		t.Errorf("expected missing payload error, got %v", err)
	}
}

func TestOutputJSONShape(t *testing.T) {
	o := Parse(`{"tableData":{"headers":["h"],"rows":[["v"]]},"conclusion":"c"}`, TypeTable)
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"tableData"`) || strings.Contains(s, `"chartData"`) {
		t.Errorf("unexpected JSON: %s", s)
	}
}

func TestFileExtension(t *testing.T) {
	tests := []struct {
		out  AgentOutput
		want string
	}{
		{AgentOutput{Type: TypeCode, Language: "python"}, "py"},
		{AgentOutput{Type: TypeCode, Language: "rust"}, "txt"},
		{AgentOutput{Type: TypeDocument}, "md"},
		{AgentOutput{Type: TypeChecklist}, "md"},
		{AgentOutput{Type: TypeChart}, "json"},
		{AgentOutput{Type: TypeTable}, "csv"},
		{AgentOutput{Type: TypeImage}, "png"},
		{AgentOutput{Type: TypeText}, "txt"},
	}
	for _, tt := range tests {
		if got := FileExtension(&tt.out); got != tt.want {
			t.Errorf("%s/%s: expected %q, got %q", tt.out.Type, tt.out.Language, tt.want, got)
		}
	}
}

func TestFilename(t *testing.T) {
	o := &AgentOutput{Type: TypeCode, Language: "typescript"}
	if got := Filename("Code Architect", o, 42); got != "code-architect-code-42.ts" {
		t.Errorf("unexpected filename %q", got)
	}
}

func TestExport(t *testing.T) {
	checklist := &AgentOutput{Type: TypeChecklist, ChecklistItems: []ChecklistItem{
		{Item: "Patch", Priority: PriorityHigh},
		{Item: "Document", Priority: PriorityLow},
	}}
	if got := string(Export(checklist, "c.md").Body); got != "- [HIGH] Patch\n- [LOW] Document" {
		t.Errorf("unexpected checklist export %q", got)
	}

	table := &AgentOutput{Type: TypeTable, TableData: &TableData{
		Headers: []string{"Name", "Note"},
		Rows:    [][]string{{"a", "x, y"}},
	}}
	d := Export(table, "t.csv")
	if d.MimeType != "text/csv" || string(d.Body) != "Name,Note\na,\"x, y\"\n" {
		t.Errorf("unexpected table export %q (%s)", d.Body, d.MimeType)
	}

	image := &AgentOutput{Type: TypeImage, Content: "data:image/png;base64,aGk="}
	d = Export(image, "i.png")
	if d.MimeType != "image/png" || string(d.Body) != "hi" {
		t.Errorf("unexpected image export %q (%s)", d.Body, d.MimeType)
	}

	remote := &AgentOutput{Type: TypeImage, Content: "https://cdn.example.com/x.png"}
	if d := Export(remote, "r.png"); d.URL != remote.Content || d.Body != nil {
		t.Errorf("expected URL passthrough, got %+v", d)
	}

	chart := &AgentOutput{Type: TypeChart, Title: "T", Content: "S", ChartData: []ChartPoint{{Label: "a", Value: 1}}}
	var decoded struct {
		Title   string       `json:"title"`
		Data    []ChartPoint `json:"data"`
		Summary string       `json:"summary"`
	}
	if err := json.Unmarshal(Export(chart, "c.json").Body, &decoded); err != nil {
		t.Fatalf("chart export is not JSON: %v", err)
	}
	if decoded.Title != "T" || decoded.Summary != "S" || len(decoded.Data) != 1 {
		t.Errorf("unexpected chart export %+v", decoded)
	}
}
