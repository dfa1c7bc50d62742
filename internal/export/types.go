// Package export renders maintenance records as spreadsheets and printable
// reports.
package export

import "errors"

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

func (f Format) MimeType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

type Result struct {
	Data     []byte
	Filename string
	MimeType string
	// ArchiveURL is a presigned download link when the report was archived.
	ArchiveURL string
}

var (
	ErrUnsupportedFormat = errors.New("export: unsupported format")
	// ErrRendererMissing indicates headless Chrome is not available.
	ErrRendererMissing = errors.New("export: report renderer unavailable")
)
