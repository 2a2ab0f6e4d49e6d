// Package output renders API results as tables, JSON, YAML or templates.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"

	"github.com/jmespath/go-jmespath"
	"gopkg.in/yaml.v3"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// Format is an output format.
type Format string

const (
	// FormatTable prints aligned columns, or Key: value lines for one record.
	FormatTable Format = "table"
	// FormatJSON prints indented JSON.
	FormatJSON Format = "json"
	// FormatYAML prints YAML with the API's field names.
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", clierrors.Invalid("output", "format", "%q is not one of table, json, yaml", s)
}

// Printer writes values in the selected format.
type Printer struct {
	Format Format
	// Query is a JMESPath expression applied to the JSON form first.
	Query string
	// Template is a text/template executed against the JSON form. It wins
	// over Format.
	Template string
	Out      io.Writer
}

// structured reports whether the value must go through the generic encoders
// instead of a table layout.
func (p *Printer) structured() bool {
	return p.Format == FormatJSON || p.Format == FormatYAML || p.Query != "" || p.Template != ""
}

// Encode prints v in the printer's format after applying Query. In table
// format the result is printed as plain lines.
func (p *Printer) Encode(v any) error {
	data, err := p.generic(v)
	if err != nil {
		return err
	}

	if p.Template != "" {
		return p.execTemplate(data)
	}

	switch p.Format {
	case FormatYAML:
		return writeYAML(p.Out, data)
	case FormatJSON:
		return writeJSON(p.Out, data)
	}
	return writePlain(p.Out, data)
}

// generic converts v to its JSON form and runs the query.
func (p *Printer) generic(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	if p.Query == "" {
		return data, nil
	}
	out, err := jmespath.Search(p.Query, data)
	if err != nil {
		return nil, clierrors.Invalid("output", "query", "%v", err)
	}
	return out, nil
}

func (p *Printer) execTemplate(data any) error {
	tmpl, err := template.New("output").Funcs(template.FuncMap{
		"status": Status,
		"join":   strings.Join,
	}).Parse(p.Template)
	if err != nil {
		return clierrors.Invalid("output", "template", "%v", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, integers(data)); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		buf.WriteByte('\n')
	}
	_, err = p.Out.Write(buf.Bytes())
	return err
}

// integers turns whole float64 values back into int64 so templates print
// 1234567 rather than 1.234567e+06.
func integers(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = integers(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = integers(item)
		}
		return out
	}
	return v
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// writeYAML keeps the key order of the JSON form by decoding it into a
// yaml.Node, since JSON is valid YAML.
func writeYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	clearStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(&node)
}

// clearStyle drops the flow and quoting styles a JSON document parses with.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && needsQuotes(n.Value) {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// needsQuotes reports whether an unquoted string would read back as another
// type, like "true" or "12".
func needsQuotes(s string) bool {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return true
	}
	_, isString := v.(string)
	return !isString
}

func writePlain(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case []any:
		if allScalars(v) {
			for _, item := range v {
				if _, err := fmt.Fprintln(w, scalar(item)); err != nil {
					return err
				}
			}
			return nil
		}
	case map[string]any:
	default:
		_, err := fmt.Fprintln(w, scalar(v))
		return err
	}
	return writeJSON(w, data)
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
