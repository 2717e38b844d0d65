// Package describe renders a message family as a Markdown document.
package describe

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/merits/pkg/edifact"
	"github.com/aretw0/merits/pkg/family"
	"github.com/aretw0/merits/pkg/mapping"
)

// Markdown describes fam: its control characters, every segment with its
// template and every CSV table with the segments that fill it.
func Markdown(fam *family.Family) (string, error) {
	a, err := fam.Automaton()
	if err != nil {
		return "", err
	}
	def := a.Definition()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (version %s)\n\n", fam.Name, fam.Version)
	if d := strings.TrimSpace(fam.Description); d != "" {
		sb.WriteString(d + "\n\n")
	}

	cfg := def.Config
	sb.WriteString("## Control characters\n\n")
	sb.WriteString("| Terminator | Separators | Escape |\n|---|---|---|\n")
	fmt.Fprintf(&sb, "| `%c` | `%s` | `%c` |\n\n", cfg.Terminator, cfg.Separators, cfg.Escape)

	sb.WriteString("## Structure\n\n")
	sb.WriteString("| Path | ID | Min | Max | Template |\n|---|---|---|---|---|\n")
	for _, s := range a.States() {
		if s.ID == a.Begin() || s.ID == a.End() {
			continue
		}
		template := ""
		if s.Segment != nil {
			template = "`" + escapeCell(s.Segment.Format) + "`"
		}
		fmt.Fprintf(&sb, "| %s%s | %s | %d | %d | %s |\n",
			strings.Repeat("&nbsp;&nbsp;", depth(s.Path)), s.Path, s.Node.ID, s.Node.Min, s.Node.Max, template)
	}

	p, err := fam.Plan()
	if err != nil {
		sb.WriteString("\nThis family declares no CSV tables.\n")
		return sb.String(), nil
	}

	sb.WriteString("\n## Tables\n")
	for _, t := range p.Tables() {
		writeTable(&sb, t)
	}
	return sb.String(), nil
}

func writeTable(sb *strings.Builder, t *mapping.Table) {
	fmt.Fprintf(sb, "\n### %s\n\n", t.File)

	kind := "meta"
	switch {
	case t.Branch != "":
		kind = "one row per group `" + t.Branch + "`"
	case t.Leaf != "":
		kind = "one row per segment `" + t.Leaf + "`"
	}
	fmt.Fprintf(sb, "- Rows: %s\n- ID column: `%s`\n", kind, t.ID)
	if t.Parent != "" {
		fmt.Fprintf(sb, "- Parent: %s\n", t.Parent)
	}
	for _, col := range slices.Sorted(maps.Keys(t.Inherit)) {
		fmt.Fprintf(sb, "- `%s` copies the parent's `%s`\n", col, t.Inherit[col])
	}
	fmt.Fprintf(sb, "- Fields: %s\n\n", code(t.Fields))

	sb.WriteString("| Segment | Position | When | Columns |\n|---|---|---|---|\n")
	for _, m := range t.Segments {
		position := m.Position
		if position == "" {
			position = mapping.PositionHeader
		}
		var cols []string
		for _, col := range slices.Sorted(maps.Keys(m.Columns)) {
			cols = append(cols, fmt.Sprintf("`%s` ← %s", col, m.Columns[col]))
		}
		for _, part := range m.Parts {
			cols = append(cols, fmt.Sprintf("%s ← %s split by `%s`", code(part.Columns), part.Field, part.Sep))
		}
		var when []string
		for _, f := range slices.Sorted(maps.Keys(m.When)) {
			when = append(when, f+"="+m.When[f])
		}
		fmt.Fprintf(sb, "| %s | %s | %s | %s |\n",
			m.Path, position, escapeCell(strings.Join(when, ", ")), escapeCell(strings.Join(cols, "<br/>")))
	}
}

func code(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	return strings.Join(quoted, ", ")
}

func depth(path string) int {
	return strings.Count(path, edifact.PathSeparator)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
