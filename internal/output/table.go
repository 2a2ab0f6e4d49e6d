package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rodaine/table"
	"gopkg.in/yaml.v3"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// Column is one table column over rows of type T.
type Column[T any] struct {
	Header string
	Value  func(T) any
}

// Col builds a Column.
func Col[T any](header string, value func(T) any) Column[T] {
	return Column[T]{Header: header, Value: value}
}

// List prints items as a table, or through Encode for structured formats.
func List[T any](p *Printer, items []T, cols ...Column[T]) error {
	if p.structured() {
		if items == nil {
			items = []T{}
		}
		return p.Encode(items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(p.Out, "No results.")
		return err
	}

	headers := make([]any, len(cols))
	for i, c := range cols {
		headers[i] = strings.ToUpper(c.Header)
	}
	tbl := table.New(headers...).
		WithWriter(p.Out).
		WithHeaderFormatter(func(format string, vals ...any) string {
			return headerStyle.Render(fmt.Sprintf(format, vals...))
		})

	for _, item := range items {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = cell(c.Value(item))
		}
		tbl.AddRow(row...)
	}
	tbl.Print()
	return nil
}

func cell(v any) any {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
	case []string:
		if len(t) == 0 {
			return "-"
		}
		return strings.Join(t, ", ")
	}
	return v
}

// Record prints a single value. In table format it prints one aligned
// "Key: value" line per field, in the API's field order, with nested
// fields joined by dots.
func Record(p *Printer, v any) error {
	if p.structured() {
		return p.Encode(v)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}

	var lines [][2]string
	flatten("", doc.Content[0], &lines)
	return writeLines(p.Out, lines)
}

func flatten(prefix string, n *yaml.Node, out *[][2]string) {
	switch n.Kind {
	case yaml.MappingNode:
		if len(n.Content) == 0 && prefix != "" {
			*out = append(*out, [2]string{prefix, "-"})
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			flatten(key, n.Content[i+1], out)
		}
	case yaml.SequenceNode:
		vals := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				*out = append(*out, [2]string{prefix, fmt.Sprintf("%d item(s)", len(n.Content))})
				return
			}
			vals = append(vals, c.Value)
		}
		*out = append(*out, [2]string{prefix, orDash(strings.Join(vals, ", "))})
	default:
		val := n.Value
		if n.Tag == "!!null" {
			val = ""
		}
		if strings.HasSuffix(prefix, "status") || strings.HasSuffix(prefix, "state") {
			val = Status(val)
		}
		*out = append(*out, [2]string{prefix, orDash(val)})
	}
}

func writeLines(w io.Writer, lines [][2]string) error {
	width := 0
	for _, l := range lines {
		width = max(width, len(l[0]))
	}
	for _, l := range lines {
		label := headerStyle.Render(fmt.Sprintf("%-*s", width+1, l[0]+":"))
		if _, err := fmt.Fprintf(w, "%s %s\n", label, l[1]); err != nil {
			return err
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
