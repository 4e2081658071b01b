// Package plan implements the SQLitch plan model, parser, and
// formatter: an ordered sequence of changes and tags backed by a
// line-oriented text file whose round-trip must be byte-exact.
package plan

import (
	"regexp"
	"time"
)

var (
	projectNameRe = regexp.MustCompile(`^[a-zA-Z][-\w]*$`)
	tagNameRe     = regexp.MustCompile(`^[^\s@]+$`)
)

// Dependency is a single entry in a change's requires or conflicts
// tuple. Name may be a bare change name, a `project:change` reference,
// or a `change@tag` / `project:change@tag` reference.
type Dependency struct {
	Name string
}

// Change is a named unit of schema change. Reworked changes share a
// Name but carry distinct ChangeIDs and plan positions.
type Change struct {
	Name        string
	Planner     string
	PlannedAt   time.Time
	Note        string
	Dependencies []Dependency // requires
	Conflicts    []Dependency // conflicts (! prefixed on disk)
	TagsApplied  []string     // names of tags anchored on this change

	// ChangeID is SHA1 over a canonical serialization of project,
	// name, planner, planned_at, dependencies, and ParentID. It is
	// computed by (*Plan).computeIDs, never set directly by the
	// parser.
	ChangeID string
	// ParentID is the ChangeID of the nearest preceding change in
	// file order, or empty for the first change in the plan.
	ParentID string
}

// Tag is a labeled plan anchor. It is rendered with a leading `@` in
// file form but stored here without it.
type Tag struct {
	Name      string
	ChangeRef string // name of the change it anchors
	Planner   string
	TaggedAt  time.Time
	Note      string

	// ChangeID is the ChangeID of the anchored change, resolved
	// during parse/append.
	ChangeID string
}

// Entry is either a *Change or a *Tag: exactly one of the two fields
// is set. A struct of two pointers (rather than an interface with
// marker methods) keeps the plan's file-order list
// a single slice without forcing every caller through a type switch
// for the common case of "append in order, iterate in order".
type Entry struct {
	Change *Change
	Tag    *Tag
}

func (e Entry) IsTag() bool { return e.Tag != nil }

func (e Entry) Name() string {
	if e.Tag != nil {
		return e.Tag.Name
	}
	return e.Change.Name
}

// Plan is the in-memory, parsed representation of a plan file.
type Plan struct {
	SyntaxVersion string
	Project       string
	URI           string
	DefaultEngine string

	Entries []Entry

	// Path is the filesystem path the plan was parsed from, or the
	// path it will be written to; empty for an in-memory-only plan.
	Path string
}

func validProjectName(name string) bool { return projectNameRe.MatchString(name) }

func validTagName(name string) bool {
	if name == "" || name[0] == '@' {
		return false
	}
	return tagNameRe.MatchString(name)
}

func validChangeName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r == '@' || r == ' ' || r == '\t' || r == '\n' {
			return false
		}
	}
	return true
}

// Changes returns every Change entry in file order, including every
// reworked occurrence.
func (p *Plan) Changes() []*Change {
	out := make([]*Change, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.Change != nil {
			out = append(out, e.Change)
		}
	}
	return out
}

// Tags returns every Tag entry in file order.
func (p *Plan) Tags() []*Tag {
	out := make([]*Tag, 0)
	for _, e := range p.Entries {
		if e.Tag != nil {
			out = append(out, e.Tag)
		}
	}
	return out
}

// ChangeByID returns the change whose ChangeID matches id, or nil.
// Added per SPEC_FULL.md §4 to give a future `show` driver a
// concrete lookup path.
func (p *Plan) ChangeByID(id string) *Change {
	for _, c := range p.Changes() {
		if c.ChangeID == id {
			return c
		}
	}
	return nil
}

// LastChangeNamed returns the most recent (highest plan-order) change
// with the given name, which for a reworked change is the latest
// instance — the one @HEAD and bare-name references resolve to.
func (p *Plan) LastChangeNamed(name string) *Change {
	var found *Change
	for _, c := range p.Changes() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

// TagByName returns the tag with the given name, or nil.
func (p *Plan) TagByName(name string) *Tag {
	for _, t := range p.Tags() {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// IndexOfChange returns the position of change c within p.Entries by
// pointer identity, or -1. Used by symbolic-reference resolution (^N / ~N).
func (p *Plan) IndexOfChange(c *Change) int {
	for i, e := range p.Entries {
		if e.Change == c {
			return i
		}
	}
	return -1
}
