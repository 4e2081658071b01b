package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// offsetRe matches a trailing ^N or ~N suffix (N defaults to 1).
var offsetRe = regexp.MustCompile(`^(.*?)([\^~])(\d*)$`)

// Resolve resolves a symbolic reference against p and returns the
// plan index of the change it names. Supported forms: "@HEAD",
// "@ROOT", "@<tag>", "<ref>^N", "<ref>~N" (N optional, default 1),
// and a bare change name (the latest occurrence by file order, for
// reworked changes). A leading "<project>:" qualifier is stripped
// and ignored — only the local project is consulted by the core
// (spec §4.G "Symbolic references").
func Resolve(p *Plan, ref string) (int, error) {
	ref = stripProjectQualifier(ref)

	if m := offsetRe.FindStringSubmatch(ref); m != nil {
		base, sign, nStr := m[1], m[2], m[3]
		n := 1
		if nStr != "" {
			v, err := strconv.Atoi(nStr)
			if err != nil {
				return -1, fmt.Errorf("invalid offset in %q", ref)
			}
			n = v
		}
		_ = sign // both ^N and ~N mean "N positions before ref"
		baseIdx, err := resolveBase(p, base)
		if err != nil {
			return -1, err
		}
		// Step back over change entries only; tags are not positions.
		idx := baseIdx
		for steps := 0; steps < n; {
			idx--
			if idx < 0 {
				return -1, fmt.Errorf("plan does not contain %s", ref)
			}
			if p.Entries[idx].Change != nil {
				steps++
			}
		}
		return idx, nil
	}

	return resolveBase(p, ref)
}

func stripProjectQualifier(ref string) string {
	if idx := strings.Index(ref, ":"); idx >= 0 && !strings.HasPrefix(ref, "@") {
		return ref[idx+1:]
	}
	if strings.HasPrefix(ref, "@") {
		if idx := strings.Index(ref, ":"); idx >= 0 {
			return "@" + ref[idx+1:]
		}
	}
	return ref
}

func resolveBase(p *Plan, ref string) (int, error) {
	switch {
	case ref == "@HEAD" || ref == "HEAD":
		idx := lastChangeIndex(p)
		if idx < 0 {
			return -1, fmt.Errorf("plan does not contain %s", ref)
		}
		return idx, nil
	case ref == "@ROOT" || ref == "ROOT":
		idx := firstChangeIndex(p)
		if idx < 0 {
			return -1, fmt.Errorf("plan does not contain %s", ref)
		}
		return idx, nil
	case strings.HasPrefix(ref, "@"):
		tagName := strings.TrimPrefix(ref, "@")
		tag := p.TagByName(tagName)
		if tag == nil {
			return -1, fmt.Errorf("plan does not contain %s", ref)
		}
		return indexOfTag(p, tag), nil
	default:
		c := p.LastChangeNamed(ref)
		if c == nil {
			return -1, fmt.Errorf("plan does not contain %s", ref)
		}
		return p.IndexOfChange(c), nil
	}
}

func lastChangeIndex(p *Plan) int {
	for i := len(p.Entries) - 1; i >= 0; i-- {
		if p.Entries[i].Change != nil {
			return i
		}
	}
	return -1
}

func firstChangeIndex(p *Plan) int {
	for i, e := range p.Entries {
		if e.Change != nil {
			return i
		}
	}
	return -1
}

func indexOfTag(p *Plan, t *Tag) int {
	for i, e := range p.Entries {
		if e.Tag == t {
			// A tag resolves to the change it anchors, i.e. the
			// nearest preceding change, not the tag's own position.
			anchor := lastChangeEntry(p.Entries[:i+1])
			if anchor == nil {
				return -1
			}
			return p.IndexOfChange(anchor)
		}
	}
	return -1
}
