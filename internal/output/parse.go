package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	defaultTitle    = "Agent Report"
	defaultLanguage = "typescript"

	tableFallbackLen     = 200
	checklistFallbackLen = 100
)

// Palette is applied to chart points the model returned without a colour.
var Palette = []string{"#00d4ff", "#a855f7", "#22c55e", "#f59e0b", "#ef4444"}

// payload is the union of every field the built-in prompt schemas ask for.
type payload struct {
	Title string `json:"title"`

	Language    string `json:"language"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`

	ChartData []ChartPoint `json:"chartData"`
	Strategy  string       `json:"strategy"`
	Analysis  string       `json:"analysis"`

	TableData   *TableData `json:"tableData"`
	KeyInsights []string   `json:"keyInsights"`
	Conclusion  string     `json:"conclusion"`

	ChecklistItems  []rawChecklistItem `json:"checklistItems"`
	Summary         string             `json:"summary"`
	Recommendations json.RawMessage    `json:"recommendations"`

	Headline         string   `json:"headline"`
	Subheadline      string   `json:"subheadline"`
	BodyCopy         string   `json:"bodyCopy"`
	CallToAction     string   `json:"callToAction"`
	AdditionalAssets []string `json:"additionalAssets"`
}

type rawChecklistItem struct {
	Item     string `json:"item"`
	Priority string `json:"priority"`
}

// BaseType is the type the parser produces for an agent affinity. Image agents
// start from a text output that is upgraded once an image is generated.
func BaseType(affinity Type) Type {
	if affinity == TypeImage || !affinity.Valid() {
		return TypeText
	}
	return affinity
}

// Parse turns a raw model completion into an AgentOutput of the given type.
// It never fails: when no JSON object can be extracted the output is built
// from the raw text.
func Parse(raw string, t Type) *AgentOutput {
	p := extract(raw)

	out := &AgentOutput{
		Type:  BaseType(t),
		Title: defaultTitle,
	}
	if p != nil && strings.TrimSpace(p.Title) != "" {
		out.Title = p.Title
	}

	switch out.Type {
	case TypeCode:
		parseCode(out, p, raw)
	case TypeChart:
		parseChart(out, p, raw)
	case TypeTable:
		parseTable(out, p, raw)
	case TypeChecklist:
		parseChecklist(out, p, raw)
	case TypeDocument:
		parseDocument(out, p, raw)
	default:
		out.Content = raw
	}
	return out
}

// extract decodes the largest brace-delimited span of raw. Fields with the
// wrong JSON type are skipped rather than discarding the whole payload.
func extract(raw string) *payload {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil
	}

	var p payload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil
		}
	}
	return &p
}

func parseCode(out *AgentOutput, p *payload, raw string) {
	out.Language = defaultLanguage
	out.Content = raw
	if p == nil {
		return
	}
	if p.Language != "" {
		out.Language = p.Language
	}
	if p.Code != "" {
		out.Content = p.Code
	}
	if p.Explanation != "" {
		out.Content = fmt.Sprintf("%s\n\n/* Explanation:\n%s\n*/", out.Content, p.Explanation)
	}
}

func parseChart(out *AgentOutput, p *payload, raw string) {
	out.Content = raw
	if p != nil {
		out.ChartData = p.ChartData
		switch {
		case p.Strategy != "":
			out.Content = p.Strategy
		case p.Analysis != "":
			out.Content = p.Analysis
		}
	}

	if len(out.ChartData) == 0 {
		out.ChartData = []ChartPoint{
			{Label: "Category A", Value: 30, Color: Palette[0]},
			{Label: "Category B", Value: 45, Color: Palette[1]},
			{Label: "Category C", Value: 25, Color: Palette[2]},
		}
		return
	}
	for i := range out.ChartData {
		if out.ChartData[i].Label == "" {
			out.ChartData[i].Label = fmt.Sprintf("Item %d", i+1)
		}
		if out.ChartData[i].Color == "" {
			out.ChartData[i].Color = Palette[i%len(Palette)]
		}
	}
}

func parseTable(out *AgentOutput, p *payload, raw string) {
	if p != nil {
		switch {
		case p.Conclusion != "":
			out.Content = p.Conclusion
		case len(p.KeyInsights) > 0:
			out.Content = strings.Join(p.KeyInsights, "\n\n")
		}
	}

	if p == nil || p.TableData == nil || len(p.TableData.Headers) == 0 {
		out.TableData = &TableData{
			Headers: []string{"Finding", "Details"},
			Rows:    [][]string{{"Analysis", truncate(raw, tableFallbackLen)}},
		}
		return
	}

	table := &TableData{Headers: p.TableData.Headers}
	for _, row := range p.TableData.Rows {
		table.Rows = append(table.Rows, fitRow(row, len(table.Headers)))
	}
	if len(table.Rows) == 0 {
		table.Rows = [][]string{fitRow([]string{truncate(raw, tableFallbackLen)}, len(table.Headers))}
	}
	out.TableData = table
}

// fitRow pads or trims row to n cells.
func fitRow(row []string, n int) []string {
	fitted := make([]string, n)
	copy(fitted, row)
	return fitted
}

func parseChecklist(out *AgentOutput, p *payload, raw string) {
	if p != nil {
		for _, it := range p.ChecklistItems {
			if strings.TrimSpace(it.Item) == "" {
				continue
			}
			out.ChecklistItems = append(out.ChecklistItems, ChecklistItem{
				Item:     it.Item,
				Priority: ParsePriority(it.Priority),
			})
		}
		switch {
		case p.Summary != "":
			out.Content = p.Summary
		default:
			out.Content = stringOrList(p.Recommendations)
		}
	}

	if len(out.ChecklistItems) == 0 {
		item := truncate(raw, checklistFallbackLen)
		if strings.TrimSpace(item) == "" {
			item = "Review the mission manually"
		}
		out.ChecklistItems = []ChecklistItem{{Item: item, Priority: PriorityMedium}}
	}
}

func parseDocument(out *AgentOutput, p *payload, raw string) {
	if p == nil {
		out.Content = raw
		return
	}

	headline := p.Headline
	if headline == "" {
		headline = "Content"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", headline)
	if p.Subheadline != "" {
		fmt.Fprintf(&sb, "## %s\n\n", p.Subheadline)
	}
	if p.BodyCopy != "" {
		fmt.Fprintf(&sb, "%s\n\n", p.BodyCopy)
	}
	if p.CallToAction != "" {
		fmt.Fprintf(&sb, "**%s**\n\n", p.CallToAction)
	}
	if len(p.AdditionalAssets) > 0 {
		sb.WriteString("---\n### Additional Assets:\n")
		for i, asset := range p.AdditionalAssets {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, asset)
		}
	}
	out.Content = sb.String()
}

// stringOrList renders a JSON string or string array as text.
func stringOrList(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "\n")
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
