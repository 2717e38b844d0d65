package csvzip

import (
	"io"
	"strings"
)

// writeRecord writes one record with every value quoted.
func writeRecord(w io.StringWriter, values []string) error {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteRune(Delimiter)
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(v, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := w.WriteString(b.String())
	return err
}

// Format renders headers and rows as one CSV document in the package dialect.
// Missing values are written empty.
func Format(headers []string, rows []Row) string {
	var b strings.Builder
	_ = writeRecord(&b, headers)
	values := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			values[i] = row[h]
		}
		_ = writeRecord(&b, values)
	}
	return b.String()
}
