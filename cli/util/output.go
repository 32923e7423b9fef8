package util

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ghodss/yaml"
	"github.com/olekukonko/tablewriter"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// ValidateOutputFormat returns an error for formats other than table, json
// and yaml.
func ValidateOutputFormat(format string) error {
	switch format {
	case OutputTable, OutputJSON, OutputYAML:
		return nil
	}
	return fmt.Errorf("invalid output format %q, use one of %s, %s, %s", format, OutputTable, OutputJSON, OutputYAML)
}

// WriteStructured writes v as indented JSON or as YAML.
func WriteStructured(w io.Writer, format string, v interface{}) error {
	var (
		b   []byte
		err error
	)
	switch format {
	case OutputJSON:
		b, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			b = append(b, '\n')
		}
	case OutputYAML:
		b, err = yaml.Marshal(v)
	default:
		return ValidateOutputFormat(format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// NewTableWriter returns a borderless, left aligned table with the given
// header. Cells are never wrapped.
func NewTableWriter(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	return table
}
