package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Formatter defines the interface for output formatters.
// This enables consistent output formatting across all commands.
type Formatter interface {
	// Format writes the given data to the output writer
	Format(data interface{}) error
}

// Tabular is implemented by list results that render as a table
type Tabular interface {
	Headers() []string
	Rows() [][]string
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor disables colored output for text formatters
	NoColor bool
	// Compact enables compact output (no indentation for JSON/YAML)
	Compact bool
}

// NewFormatter creates a formatter based on the format string
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{Writer: os.Stdout}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case "json":
		return &JSONFormatter{opts: opts}, nil
	case "yaml":
		return &YAMLFormatter{opts: opts}, nil
	case "table", "":
		return &TableFormatter{opts: opts}, nil
	case "text":
		return &TextFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: table, text, json, yaml)", format)
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts *FormatterOptions
}

// Format writes data as JSON
func (f *JSONFormatter) Format(data interface{}) error {
	encoder := json.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as YAML
func (f *YAMLFormatter) Format(data interface{}) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent(2)
	}
	defer encoder.Close()
	return encoder.Encode(data)
}

// TextFormatter formats output as human-readable text
type TextFormatter struct {
	opts *FormatterOptions
}

// Format writes data as formatted text. Tabular data is written as
// tab-separated lines.
func (f *TextFormatter) Format(data interface{}) error {
	switch v := data.(type) {
	case string:
		_, err := fmt.Fprintln(f.opts.Writer, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(f.opts.Writer, v.String())
		return err
	case Tabular:
		for _, row := range v.Rows() {
			for i, cell := range row {
				if i > 0 {
					fmt.Fprint(f.opts.Writer, "\t")
				}
				fmt.Fprint(f.opts.Writer, cell)
			}
			if _, err := fmt.Fprintln(f.opts.Writer); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("text formatter requires data to implement String() method or be a primitive type")
	}
}

// TableFormatter renders Tabular data as a bordered table
type TableFormatter struct {
	opts *FormatterOptions
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Format writes data as a table. Non-tabular data falls back to text.
func (f *TableFormatter) Format(data interface{}) error {
	tab, ok := data.(Tabular)
	if !ok {
		return (&TextFormatter{opts: f.opts}).Format(data)
	}

	rows := tab.Rows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(f.opts.Writer, "No results.")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tab.Headers()...).
		Rows(rows...)

	if f.opts.NoColor {
		t = t.StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	} else {
		t = t.BorderStyle(borderStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
	}

	_, err := fmt.Fprintln(f.opts.Writer, t.Render())
	return err
}

// Compile-time verification that formatters implement Formatter
var _ Formatter = (*JSONFormatter)(nil)
var _ Formatter = (*YAMLFormatter)(nil)
var _ Formatter = (*TextFormatter)(nil)
var _ Formatter = (*TableFormatter)(nil)
