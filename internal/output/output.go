package output

import (
	"errors"
	"fmt"
)

// Type is the discriminator of an AgentOutput.
type Type string

const (
	TypeText      Type = "text"
	TypeCode      Type = "code"
	TypeImage     Type = "image"
	TypeChart     Type = "chart"
	TypeDocument  Type = "document"
	TypeChecklist Type = "checklist"
	TypeTable     Type = "table"
)

// Types lists every output variant.
var Types = []Type{TypeText, TypeCode, TypeImage, TypeChart, TypeDocument, TypeChecklist, TypeTable}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps free-form model output onto a priority, defaulting to medium.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s)
	}
	switch s {
	case "critical", "High", "HIGH", "urgent":
		return PriorityHigh
	case "Low", "LOW", "minor":
		return PriorityLow
	}
	return PriorityMedium
}

type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type ChecklistItem struct {
	Item     string   `json:"item"`
	Priority Priority `json:"priority"`
}

// AgentOutput is the structured result of one agent for one mission. Exactly
// one of the variant payloads is populated, matching Type.
type AgentOutput struct {
	Type           Type            `json:"type"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Language       string          `json:"language,omitempty"`
	ChartData      []ChartPoint    `json:"chartData,omitempty"`
	TableData      *TableData      `json:"tableData,omitempty"`
	ChecklistItems []ChecklistItem `json:"checklistItems,omitempty"`
}

var ErrInvalidOutput = errors.New("invalid agent output")

// Validate checks that the populated payload matches the discriminator.
func (o *AgentOutput) Validate() error {
	if !o.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOutput, o.Type)
	}

	has := map[Type]bool{
		TypeCode:      o.Language != "",
		TypeChart:     len(o.ChartData) > 0,
		TypeTable:     o.TableData != nil,
		TypeChecklist: len(o.ChecklistItems) > 0,
	}
	for t, populated := range has {
		if populated && t != o.Type {
			return fmt.Errorf("%w: %s output carries a %s payload", ErrInvalidOutput, o.Type, t)
		}
		if !populated && t == o.Type {
			return fmt.Errorf("%w: %s output is missing its payload", ErrInvalidOutput, o.Type)
		}
	}
	return nil
}

// Renderer handles every output variant. Adding a variant to AgentOutput means
// adding a method here, which breaks every renderer until it is handled.
type Renderer[T any] interface {
	Text(o *AgentOutput) T
	Code(o *AgentOutput, language string) T
	Image(o *AgentOutput, src string) T
	Chart(o *AgentOutput, points []ChartPoint) T
	Document(o *AgentOutput) T
	Checklist(o *AgentOutput, items []ChecklistItem) T
	Table(o *AgentOutput, table TableData) T
}

// Render dispatches o to the matching Renderer method. Unknown types render as text.
func Render[T any](o *AgentOutput, r Renderer[T]) T {
	switch o.Type {
	case TypeCode:
		return r.Code(o, o.Language)
	case TypeImage:
		return r.Image(o, o.Content)
	case TypeChart:
		return r.Chart(o, o.ChartData)
	case TypeDocument:
		return r.Document(o)
	case TypeChecklist:
		return r.Checklist(o, o.ChecklistItems)
	case TypeTable:
		var t TableData
		if o.TableData != nil {
			t = *o.TableData
		}
		return r.Table(o, t)
	default:
		return r.Text(o)
	}
}
