package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format renders p to its canonical on-disk text form: pragmas in a
// fixed order, a blank line, then entries in file order using the
// compact (no `change`/`tag` keyword) form spec §4.C/§6 requires.
func Format(p *Plan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%%syntax-version=%s\n", valueOr(p.SyntaxVersion, defaultSyntaxVersion))
	fmt.Fprintf(&b, "%%project=%s\n", p.Project)
	if p.URI != "" {
		fmt.Fprintf(&b, "%%uri=%s\n", p.URI)
	}
	if p.DefaultEngine != "" {
		fmt.Fprintf(&b, "%%default_engine=%s\n", p.DefaultEngine)
	}
	b.WriteByte('\n')

	for _, e := range p.Entries {
		if e.Change != nil {
			b.WriteString(formatChangeLine(e.Change))
		} else {
			b.WriteString(formatTagLine(e.Tag))
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func formatDeps(c *Change) string {
	if len(c.Dependencies) == 0 && len(c.Conflicts) == 0 {
		return ""
	}
	toks := make([]string, 0, len(c.Dependencies)+len(c.Conflicts))
	for _, d := range c.Dependencies {
		toks = append(toks, d.Name)
	}
	for _, d := range c.Conflicts {
		toks = append(toks, "!"+d.Name)
	}
	return "[" + strings.Join(toks, " ") + "]"
}

func formatChangeLine(c *Change) string {
	var b strings.Builder
	b.WriteString(c.Name)
	if deps := formatDeps(c); deps != "" {
		b.WriteByte(' ')
		b.WriteString(deps)
	}
	b.WriteByte(' ')
	b.WriteString(formatTime(c.PlannedAt))
	b.WriteByte(' ')
	b.WriteString(c.Planner)
	if c.Note != "" {
		b.WriteString(" # ")
		b.WriteString(c.Note)
	}
	return b.String()
}

func formatTagLine(t *Tag) string {
	var b strings.Builder
	b.WriteByte('@')
	b.WriteString(t.Name)
	b.WriteByte(' ')
	b.WriteString(formatTime(t.TaggedAt))
	b.WriteByte(' ')
	b.WriteString(t.Planner)
	if t.Note != "" {
		b.WriteString(" # ")
		b.WriteString(t.Note)
	}
	return b.String()
}

// WritePlan renders entries into a Plan with the given project
// metadata and writes it atomically to path: write temp, fsync,
// rename (spec §9 "Atomic file replacement"), matching the teacher's
// config-writer discipline in internal/config.
func WritePlan(path, project, defaultEngine, uri, syntaxVersion string, entries []Entry) error {
	p := &Plan{
		SyntaxVersion: valueOr(syntaxVersion, defaultSyntaxVersion),
		Project:       project,
		URI:           uri,
		DefaultEngine: defaultEngine,
		Entries:       entries,
	}
	return writeAtomic(path, Format(p))
}

func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".plan-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
