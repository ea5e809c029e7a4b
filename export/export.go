/*
Package export renders report bundles as downloadable files.

FORMATS:
  xlsx  one sheet per report (summary, vehicles, sectors, containers)
  pdf   A4 portrait, one table per report

Both builders take a fuel.Bundle that has already been computed, so an
export never queries the store and inherits the reporter's failure
policy: a failed report renders as an empty table.
*/
package export

import (
	"fmt"
	"strings"

	"github.com/zoxknez/bidon/fuel"
)

// Format is an export file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat parses a format name. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns a download name for a bundle.
func (f Format) Filename(b fuel.Bundle) string {
	return fmt.Sprintf("bidon-report-%s.%s", rangeSlug(b.Range), f)
}

// Build renders b in format f.
func Build(f Format, b fuel.Bundle) ([]byte, error) {
	if f == FormatPDF {
		return BuildReportPDF(b)
	}
	return BuildReportXLSX(b)
}

func rangeLabel(r *fuel.DateRange) string {
	if r == nil {
		return "all time"
	}
	return r.Start.Format("2006-01-02") + " - " + r.End.Format("2006-01-02")
}

func rangeSlug(r *fuel.DateRange) string {
	if r == nil {
		return "all"
	}
	return r.Start.Format("20060102") + "-" + r.End.Format("20060102")
}

func sectorLabel(s fuel.SectorTotal) string {
	if s.SectorID == nil {
		return "(no sector)"
	}
	return s.SectorName
}
