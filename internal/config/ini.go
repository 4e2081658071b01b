package config

import (
	"regexp"

	"github.com/sqlitch/sqlitch/internal/coreerr"
	"gopkg.in/ini.v1"
)

// subsectionRe splits a git-style section header body into a
// top-level section name and an optional quoted subsection, e.g.
// `target "origin"` -> ("target", "origin"). gopkg.in/ini.v1 treats
// the whole header body as one opaque section name, so the
// composite/subsection convention is layered on top here rather than
// relying on library-native subsection support.
var subsectionRe = regexp.MustCompile(`^([^\s"]+)\s+"([^"]*)"$`)

// SplitSection splits a raw ini.v1 section name into (name,
// subsection, hasSubsection).
func SplitSection(raw string) (name, subsection string, hasSub bool) {
	if m := subsectionRe.FindStringSubmatch(raw); m != nil {
		return m[1], m[2], true
	}
	return raw, "", false
}

// JoinSection is the inverse of SplitSection.
func JoinSection(name, subsection string) string {
	if subsection == "" {
		return name
	}
	return name + ` "` + subsection + `"`
}

// loadFile parses one INI-style config file into an *ini.File,
// preserving section iteration order for round-trip writes.
// Returns a nil file (not an error) if path is empty.
func loadFile(path string) (*ini.File, error) {
	if path == "" {
		return nil, nil
	}
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
		IgnoreInlineComment:      false,
	}, path)
	if err != nil {
		return nil, coreerr.Config(path, 0, "%s", err)
	}
	return f, nil
}
