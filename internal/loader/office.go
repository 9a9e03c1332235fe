package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/spreadsheet"
)

// extractDOCX flattens a Word document into a single text segment, one
// line per paragraph.
func extractDOCX(data []byte) ([]string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			b.WriteString(run.Text())
		}
		b.WriteString("\n")
	}

	return []string{b.String()}, nil
}

// extractXLSX returns one text segment per sheet. Each sheet is rendered
// as a sheet header line followed by tab-separated rows, which keeps cell
// adjacency visible to downstream chunking.
func extractXLSX(data []byte) ([]string, error) {
	ss, err := spreadsheet.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	defer ss.Close()

	var sheets []string
	for _, sheet := range ss.Sheets() {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name()))
		for _, row := range sheet.Rows() {
			var cells []string
			for _, cell := range row.Cells() {
				cells = append(cells, cell.GetString())
			}
			if len(cells) > 0 {
				b.WriteString(strings.Join(cells, "\t"))
				b.WriteString("\n")
			}
		}
		sheets = append(sheets, b.String())
	}

	return sheets, nil
}
