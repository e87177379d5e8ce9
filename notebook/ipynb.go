package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// multiline is a JSON value that nbformat stores either as a single string
// or as an array of line fragments.
type multiline string

func (m *multiline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multiline(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*m = multiline(strings.Join(lines, ""))
	return nil
}

type rawOutput struct {
	OutputType string               `json:"output_type"`
	Name       string               `json:"name"`
	Text       multiline            `json:"text"`
	Data       map[string]multiline `json:"data"`
	EName      string               `json:"ename"`
	EValue     string               `json:"evalue"`
	Traceback  []string             `json:"traceback"`
}

type rawCell struct {
	CellType string      `json:"cell_type"`
	ID       string      `json:"id"`
	Source   multiline   `json:"source"`
	Outputs  []rawOutput `json:"outputs"`
}

type rawNotebook struct {
	NBFormat int       `json:"nbformat"`
	Cells    []rawCell `json:"cells"`
}

// ReadFile decodes an nbformat 4 notebook file into a Document. The file
// path doubles as the document identity.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	return Decode(data, path)
}

// Decode decodes nbformat 4 JSON into a Document with the given identity.
func Decode(data []byte, id string) (*Document, error) {
	var raw rawNotebook
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}
	if raw.NBFormat != 0 && raw.NBFormat < 4 {
		return nil, fmt.Errorf("unsupported nbformat %d", raw.NBFormat)
	}

	doc := NewDocument(id, id)
	for i, rc := range raw.Cells {
		cellID := rc.ID
		if cellID == "" {
			cellID = fmt.Sprintf("%s#%d", id, i)
		}
		cell := NewCell(cellID, CellKind(rc.CellType), string(rc.Source))

		for _, ro := range rc.Outputs {
			cell.outputs = append(cell.outputs, convertOutput(ro))
		}
		doc.cells = append(doc.cells, cell)
	}
	return doc, nil
}

// convertOutput maps one raw nbformat output to the model. Error outputs
// carry their diagnostic under StderrKey so the scanner and prompt builder
// read a single well-known key regardless of where the document came from.
func convertOutput(ro rawOutput) Output {
	out := Output{Tag: OutputTag(ro.OutputType), Data: map[string]string{}}

	for k, v := range ro.Data {
		out.Data[k] = string(v)
	}

	switch out.Tag {
	case OutputError:
		out.Data[StderrKey] = formatDiagnostic(ro)
	case OutputStream:
		out.Data[PlainTextKey] = string(ro.Text)
	}
	return out
}

func formatDiagnostic(ro rawOutput) string {
	var b strings.Builder
	if ro.EName != "" || ro.EValue != "" {
		b.WriteString(ro.EName)
		if ro.EName != "" && ro.EValue != "" {
			b.WriteString(": ")
		}
		b.WriteString(ro.EValue)
	}
	if len(ro.Traceback) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(ro.Traceback, "\n"))
	}
	return b.String()
}
