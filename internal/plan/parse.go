package plan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/sqlitch/sqlitch/internal/coreerr"
)

const defaultSyntaxVersion = "1.0.0"

var (
	pragmaRe = regexp.MustCompile(`^%([-\w]+)=(.*)$`)
	// name, optional "[deps] ", timestamp, planner (rest of line).
	changeLineRe = regexp.MustCompile(`^(\S+)\s+(?:\[([^\]]*)\]\s+)?(\S+)\s+(.+)$`)
	tagLineRe    = regexp.MustCompile(`^@(\S+)\s+(\S+)\s+(.+)$`)
)

// Options controls parser behavior.
type Options struct {
	// DefaultEngine is used only if the plan omits %default_engine.
	DefaultEngine string
	// Strict rejects plans whose planned_at/tagged_at values decrease
	// across file order (spec §3 invariant 5 is a soft invariant by
	// default).
	Strict bool
}

// ParseFile reads and parses the plan file at path.
func ParseFile(path string, opts Options) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := Parse(f, opts)
	if err != nil {
		return nil, err
	}
	p.Path = path
	return p, nil
}

// Parse parses a plan from r. The file name reported in errors is
// "<plan>"; callers needing a real path should use ParseFile.
func Parse(r io.Reader, opts Options) (*Plan, error) {
	return parseNamed(r, "<plan>", opts)
}

func parseNamed(r io.Reader, file string, opts Options) (*Plan, error) {
	p := &Plan{SyntaxVersion: defaultSyntaxVersion, DefaultEngine: opts.DefaultEngine}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	seenEntry := false
	// names seen since the most recent tag boundary, to enforce
	// invariant 3 (no duplicate change names between tags).
	sinceTag := map[string]bool{}
	var lastInstant string

	for scanner.Scan() {
		line++
		raw := scanner.Text()
		text := strings.TrimRight(raw, " \t")

		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			// Standalone comment lines are discarded on purpose; see
			// SPEC_FULL.md §4 (the reference format discards them and
			// the round-trip contract is defined against that).
			continue
		}
		if strings.HasPrefix(text, "%") {
			if seenEntry {
				return nil, coreerr.Plan(file, line, "pragma %q after first entry", text)
			}
			m := pragmaRe.FindStringSubmatch(text)
			if m == nil {
				return nil, coreerr.Plan(file, line, "malformed pragma: %s", text)
			}
			if err := applyPragma(p, m[1], m[2]); err != nil {
				return nil, coreerr.Plan(file, line, "%s", err)
			}
			continue
		}

		seenEntry = true

		if strings.HasPrefix(text, "@") {
			tag, err := parseTagLine(text)
			if err != nil {
				return nil, coreerr.Plan(file, line, "%s", err)
			}
			anchorChange := lastChangeEntry(p.Entries)
			if anchorChange == nil {
				return nil, coreerr.Plan(file, line, "tag %q cannot precede the change it anchors", tag.Name)
			}
			if !validTagName(tag.Name) {
				return nil, coreerr.Plan(file, line, "invalid tag name %q", tag.Name)
			}
			tag.ChangeRef = anchorChange.Name

			if opts.Strict {
				inst := formatTime(tag.TaggedAt)
				if lastInstant != "" && inst < lastInstant {
					return nil, coreerr.Plan(file, line, "tagged_at %s is earlier than preceding entry", inst)
				}
				lastInstant = inst
			}
			anchorChange.TagsApplied = append(anchorChange.TagsApplied, tag.Name)
			p.Entries = append(p.Entries, Entry{Tag: tag})
			sinceTag = map[string]bool{}
			continue
		}

		change, err := parseChangeLine(text)
		if err != nil {
			return nil, coreerr.Plan(file, line, "%s", err)
		}
		if !validChangeName(change.Name) {
			return nil, coreerr.Plan(file, line, "invalid change name %q", change.Name)
		}
		if sinceTag[change.Name] {
			return nil, coreerr.Plan(file, line, "change %q repeated before any intervening tag", change.Name)
		}
		sinceTag[change.Name] = true

		if opts.Strict {
			inst := formatTime(change.PlannedAt)
			if lastInstant != "" && inst < lastInstant {
				return nil, coreerr.Plan(file, line, "planned_at %s is earlier than preceding entry", inst)
			}
			lastInstant = inst
		}

		p.Entries = append(p.Entries, Entry{Change: change})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	if p.Project == "" {
		return nil, coreerr.Plan(file, 0, "plan is missing required %%project pragma")
	}
	if !validProjectName(p.Project) {
		return nil, coreerr.Plan(file, 0, "invalid project name %q", p.Project)
	}

	p.computeIDs()
	return p, nil
}

func applyPragma(p *Plan, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "syntax-version":
		p.SyntaxVersion = value
	case "project":
		p.Project = value
	case "uri":
		p.URI = value
	case "default_engine", "default-engine":
		p.DefaultEngine = value
	default:
		// Unknown pragmas are ignored rather than rejected, so newer
		// plan files remain parseable by older readers.
	}
	return nil
}

// lastChangeEntry returns the most recent Change in entries, or nil
// if none exists yet (interleaved tags on the same change are legal:
// "@v1\n@v1-fix" both anchor the one change preceding the first tag).
func lastChangeEntry(entries []Entry) *Change {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Change != nil {
			return entries[i].Change
		}
	}
	return nil
}

func parseDeps(raw string) (requires, conflicts []Dependency) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, tok := range strings.Fields(raw) {
		if strings.HasPrefix(tok, "!") {
			conflicts = append(conflicts, Dependency{Name: strings.TrimPrefix(tok, "!")})
		} else {
			requires = append(requires, Dependency{Name: tok})
		}
	}
	return requires, conflicts
}

// splitNote separates a trailing " # note" from the rest of the
// entry line. Notes are single-line; only the first " # " is treated
// as the separator.
func splitNote(text string) (rest, note string) {
	idx := strings.Index(text, " # ")
	if idx < 0 {
		return text, ""
	}
	return text[:idx], text[idx+3:]
}

func parseChangeLine(text string) (*Change, error) {
	rest, note := splitNote(text)
	m := changeLineRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, fmt.Errorf("malformed change line: %s", text)
	}
	name, depsRaw, tsRaw, plannerRaw := m[1], m[2], m[3], m[4]

	planner, email, err := splitPlanner(plannerRaw)
	if err != nil {
		return nil, err
	}
	ts, err := parsedTime(tsRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", tsRaw, err)
	}
	requires, conflicts := parseDeps(depsRaw)
	return &Change{
		Name:         name,
		Planner:      planner + " <" + email + ">",
		PlannedAt:    ts,
		Note:         note,
		Dependencies: requires,
		Conflicts:    conflicts,
	}, nil
}

func parseTagLine(text string) (*Tag, error) {
	rest, note := splitNote(text)
	m := tagLineRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, fmt.Errorf("malformed tag line: %s", text)
	}
	name, tsRaw, plannerRaw := m[1], m[2], m[3]
	planner, email, err := splitPlanner(plannerRaw)
	if err != nil {
		return nil, err
	}
	ts, err := parsedTime(tsRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", tsRaw, err)
	}
	return &Tag{
		Name:      name,
		ChangeRef: "", // resolved by caller via most-recent change name convention below
		Planner:   planner + " <" + email + ">",
		TaggedAt:  ts,
		Note:      note,
	}, nil
}

var plannerRe = regexp.MustCompile(`^(.*)\s<([^>]+)>$`)

func splitPlanner(raw string) (name, email string, err error) {
	raw = strings.TrimSpace(raw)
	m := plannerRe.FindStringSubmatch(raw)
	if m == nil {
		return "", "", fmt.Errorf("malformed planner %q, want \"Name <email>\"", raw)
	}
	return m[1], m[2], nil
}
