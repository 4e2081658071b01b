package config

import (
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// Profile is the merged, three-scope configuration view (spec §3
// "ConfigProfile"). Each scope's raw *ini.File is kept so Set can
// rewrite the correct underlying file, while Settings holds the
// already-merged section->key->value view most callers want.
type Profile struct {
	Root     string       // project root, used to write the local scope
	Files    [3]*ini.File // indexed by Scope
	Paths    [3]string    // resolved path per scope, "" if absent
	Settings map[string]map[string]string

	env Env // retained for credential env-var precedence lookups
}

// Load resolves and parses all three scopes and merges them into a
// single Profile. Higher-precedence scopes (user over system, local
// over user) overwrite individual (section, key) pairs — arrays are
// not supported, matching spec §4.B.
func Load(env Env, projectRoot string) (*Profile, error) {
	scopeFiles, err := ScopeFiles(env, projectRoot)
	if err != nil {
		return nil, err
	}

	p := &Profile{Root: projectRoot, Settings: map[string]map[string]string{}, env: env}
	for _, sf := range scopeFiles {
		f, err := loadFile(sf.Path)
		if err != nil {
			return nil, err
		}
		p.Files[sf.Scope] = f
		p.Paths[sf.Scope] = sf.Path
		mergeInto(p.Settings, f)
	}
	return p, nil
}

func mergeInto(dst map[string]map[string]string, f *ini.File) {
	if f == nil {
		return
	}
	for _, sec := range f.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection && len(sec.Keys()) == 0 {
			continue
		}
		if _, ok := dst[name]; !ok {
			dst[name] = map[string]string{}
		}
		for _, key := range sec.Keys() {
			dst[name][key.Name()] = key.Value()
		}
	}
}

// Get returns the merged value for (section, key) and whether it was
// set in any scope.
func (p *Profile) Get(section, key string) (string, bool) {
	sec, ok := p.Settings[section]
	if !ok {
		return "", false
	}
	v, ok := sec[key]
	return v, ok
}

// GetSubsection is a convenience for `[section "sub"]` keys, e.g.
// GetSubsection("target", "origin", "uri").
func (p *Profile) GetSubsection(section, subsection, key string) (string, bool) {
	return p.Get(JoinSection(section, subsection), key)
}

// ActiveEngine derives core.engine from the merged settings.
func (p *Profile) ActiveEngine() string {
	v, _ := p.Get("core", "engine")
	return v
}

// Set writes (section, key, value) into the given scope's file and
// re-merges Settings. The file is created if the scope previously had
// none. Writes go through write-to-temp + rename (spec §9 "Atomic
// file replacement"), matching the plan formatter's discipline.
func (p *Profile) Set(scope Scope, section, key, value string) error {
	f := p.Files[scope]
	if f == nil {
		f = ini.Empty()
		p.Files[scope] = f
	}
	sec, err := f.GetSection(section)
	if err != nil {
		sec, err = f.NewSection(section)
		if err != nil {
			return err
		}
	}
	sec.Key(key).SetValue(value)

	path := p.Paths[scope]
	if path == "" {
		path = p.defaultPathFor(scope)
		p.Paths[scope] = path
	}
	if err := writeIniAtomic(f, path); err != nil {
		return err
	}

	if _, ok := p.Settings[section]; !ok {
		p.Settings[section] = map[string]string{}
	}
	p.Settings[section][key] = value
	return nil
}

// Unset removes (section, key) from the given scope's file, leaving
// lower-precedence scopes (and thus the merged fallthrough value) in
// place.
func (p *Profile) Unset(scope Scope, section, key string) error {
	f := p.Files[scope]
	if f == nil {
		return nil
	}
	sec, err := f.GetSection(section)
	if err != nil {
		return nil
	}
	sec.DeleteKey(key)

	path := p.Paths[scope]
	if path == "" {
		return nil
	}
	if err := writeIniAtomic(f, path); err != nil {
		return err
	}

	// Recompute the merged view for this key from the remaining
	// scopes so callers immediately see the fallthrough value.
	delete(p.Settings[section], key)
	for s := ScopeSystem; s <= ScopeLocal; s++ {
		if int(s) == int(scope) {
			continue
		}
		other := p.Files[s]
		if other == nil {
			continue
		}
		if osec, err := other.GetSection(section); err == nil {
			if k, err := osec.GetKey(key); err == nil {
				if _, ok := p.Settings[section]; !ok {
					p.Settings[section] = map[string]string{}
				}
				p.Settings[section][key] = k.Value()
			}
		}
	}
	return nil
}

func (p *Profile) defaultPathFor(scope Scope) string {
	switch scope {
	case ScopeSystem:
		return filepath.Join(defaultSystemDir(), PreferredConfigName)
	case ScopeUser:
		return filepath.Join(defaultUserDir(Env{}), PreferredConfigName)
	default:
		return filepath.Join(p.Root, PreferredConfigName)
	}
}

func writeIniAtomic(f *ini.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := f.WriteTo(tmp); err != nil {
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
