// Package export renders a form's responses as CSV in the exact layout the
// dashboard download produces: a "Submitted At" column followed by one column
// per question, in question order.
package export

import (
	"strings"

	"qrfeedback/internal/types"
)

// timeLayout is the human-readable timestamp format used in the export.
const timeLayout = "2006-01-02 15:04:05"

// CSV builds the export document. Every field is double-quote wrapped with
// embedded quotes doubled, fields are comma-joined, and rows are
// newline-separated. Answers are matched to columns by question ID; a
// question the respondent never answered exports as an empty field.
func CSV(form *types.Form, responses []types.Response) string {
	var b strings.Builder

	header := make([]string, 0, len(form.Questions)+1)
	header = append(header, "Submitted At")
	for _, q := range form.Questions {
		header = append(header, q.Text)
	}
	writeRow(&b, header)

	for _, resp := range responses {
		row := make([]string, 0, len(form.Questions)+1)
		row = append(row, resp.SubmittedAt.Format(timeLayout))
		for _, q := range form.Questions {
			answer, ok := resp.Answers.ByQuestionID(q.ID)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, answer.Value.String())
		}
		writeRow(&b, row)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Filename returns the download filename for a form's export.
func Filename(title string) string {
	return title + "-responses.csv"
}

func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
