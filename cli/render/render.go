// Package render provides centralized output rendering for the xcoffee CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer writes command responses in one format.
type Renderer struct {
	format Format
	// noColor is carried for --no-color; the table report is uncolored.
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from CLI context, writing to the app's
// writer (stdout unless overridden).
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if c.App != nil && c.App.Writer != nil {
		out = c.App.Writer
	}

	// Apply default format based on TTY detection
	if format == "" {
		if f, ok := out.(*os.File); ok && isTTY(f) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     out,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(data)
	case FormatTable:
		return r.renderTable(data)
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// Format returns the resolved output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Writer returns the destination writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	return enc.Encode(data)
}

// renderTable prints a two-column field/value report. Nested structs and
// maps are flattened into dotted keys; empty omitempty fields are skipped.
// A slice prints one report per element, separated by a blank line.
func (r *Renderer) renderTable(data any) error {
	v := indirect(reflect.ValueOf(data))
	if !v.IsValid() {
		return nil
	}

	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return r.writeRows(collectRows("", v))
	}

	if v.Len() == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			fmt.Fprintln(r.out)
		}
		if err := r.writeRows(collectRows("", indirect(v.Index(i)))); err != nil {
			return err
		}
	}
	return nil
}

type row struct {
	key, value string
}

func (r *Renderer) writeRows(rows []row) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, rw := range rows {
		fmt.Fprintf(w, "%s:\t%s\n", rw.key, rw.value)
	}
	return w.Flush()
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// collectRows flattens v into rows keyed under prefix.
func collectRows(prefix string, v reflect.Value) []row {
	switch {
	case !v.IsValid():
		return []row{{prefix, "-"}}
	case v.Kind() == reflect.Struct && v.Type() != timeType:
		var rows []row
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, omitEmpty, skip := fieldName(f)
			if skip {
				continue
			}
			fv := indirect(v.Field(i))
			if omitEmpty && (!fv.IsValid() || fv.IsZero()) {
				continue
			}
			rows = append(rows, collectRows(join(prefix, name), fv)...)
		}
		return rows
	case v.Kind() == reflect.Map:
		if v.Len() == 0 {
			return []row{{prefix, "-"}}
		}
		var rows []row
		for _, key := range sortedKeys(v) {
			rows = append(rows, collectRows(join(prefix, fmt.Sprint(key.Interface())), indirect(v.MapIndex(key)))...)
		}
		return rows
	default:
		return []row{{prefix, scalar(v)}}
	}
}

// fieldName returns the json name of f and whether it is omitempty or
// hidden.
func fieldName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = strings.ToLower(f.Name)
	}
	return name, strings.Contains(opts, "omitempty"), false
}

func scalar(v reflect.Value) string {
	if !v.IsValid() {
		return "-"
	}
	switch {
	case v.Type() == durationType:
		return time.Duration(v.Int()).String()
	case v.Type() == timeType:
		return v.Interface().(time.Time).Format(time.RFC3339)
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		return fmt.Sprintf("<%d bytes>", v.Len())
	case v.Kind() == reflect.Slice || v.Kind() == reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		items := make([]string, v.Len())
		for i := range items {
			items[i] = scalar(indirect(v.Index(i)))
		}
		return strings.Join(items, ", ")
	case v.Kind() == reflect.Struct:
		return "{...}"
	default:
		return fmt.Sprint(v.Interface())
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// sortedKeys returns map keys ordered by their printed form so table output
// is stable across runs.
func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
