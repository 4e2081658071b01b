package plan

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

const changeIDTimeFormat = "2006-01-02T15:04:05Z"

// canonicalChangeBlob builds the exact byte sequence change_id is a
// SHA1 digest of: project, name, planner, planned_at (UTC, second
// precision, Z-suffixed), each dependency in file order, and the
// parent change_id chain. Two plans with identical content in these
// fields must hash identically (spec §3 invariant 6), so every field
// is newline-separated with an explicit, stable label — never a
// format that could make two distinct field sequences collide.
func canonicalChangeBlob(project string, c *Change) []byte {
	var b strings.Builder
	b.WriteString("project ")
	b.WriteString(project)
	b.WriteByte('\n')
	b.WriteString("change ")
	b.WriteString(c.Name)
	b.WriteByte('\n')
	b.WriteString("planner ")
	b.WriteString(c.Planner)
	b.WriteByte('\n')
	b.WriteString("date ")
	b.WriteString(c.PlannedAt.UTC().Format(changeIDTimeFormat))
	b.WriteByte('\n')
	for _, d := range c.Dependencies {
		b.WriteString("require ")
		b.WriteString(d.Name)
		b.WriteByte('\n')
	}
	for _, d := range c.Conflicts {
		b.WriteString("conflict ")
		b.WriteString(d.Name)
		b.WriteByte('\n')
	}
	b.WriteString("parent ")
	b.WriteString(c.ParentID)
	b.WriteByte('\n')
	return []byte(b.String())
}

// computeChangeID returns the change_id for c given its resolved
// parent and the owning project name.
func computeChangeID(project string, c *Change) string {
	sum := sha1.Sum(canonicalChangeBlob(project, c))
	return hex.EncodeToString(sum[:])
}

// computeIDs walks the plan in file order, resolving each change's
// ParentID to the ChangeID of the preceding change (or "" for the
// first) and computing ChangeID. It also resolves each Tag's
// ChangeID to the ChangeID of the change it anchors. Called by the
// parser after a full pass so dependency/tag references can be
// validated against final names first.
func (p *Plan) computeIDs() {
	var parent string
	for _, e := range p.Entries {
		if e.Change == nil {
			continue
		}
		e.Change.ParentID = parent
		e.Change.ChangeID = computeChangeID(p.Project, e.Change)
		parent = e.Change.ChangeID
	}
	for _, e := range p.Entries {
		if e.Tag == nil {
			continue
		}
		if c := p.changeForTag(e.Tag); c != nil {
			e.Tag.ChangeID = c.ChangeID
		}
	}
}

// changeForTag resolves a tag's anchor to the nearest preceding
// change in file order with the tag's ChangeRef name.
func (p *Plan) changeForTag(t *Tag) *Change {
	var found *Change
	for _, e := range p.Entries {
		if e.Tag == t {
			break
		}
		if e.Change != nil && e.Change.Name == t.ChangeRef {
			found = e.Change
		}
	}
	return found
}

// parsedTime parses a canonical ISO-8601 timestamp with an explicit
// offset, returning it normalized to UTC.
func parsedTime(s string) (time.Time, error) {
	t, err := time.Parse(changeIDTimeFormat, s)
	if err == nil {
		return t.UTC(), nil
	}
	// Accept any RFC3339 offset, not only literal Z, then normalize.
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(changeIDTimeFormat)
}
