package resolver

import (
	"path/filepath"
	"strings"
)

// ParsedPath is a path split into directory, name and module extension.
type ParsedPath struct {
	Dir  string
	Name string
	Ext  string
}

// ParsePath splits path like filepath does, except that a suffix which is not
// a recognized module extension (".config", ".service") stays part of Name
// and Ext is left empty.
func (r *Resolver) ParsePath(path string) ParsedPath {
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		trimmed = path
	}
	dir := filepath.Dir(trimmed)
	base := filepath.Base(trimmed)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	if ext != "" && !r.IsModuleExtension(ext) {
		name += ext
		ext = ""
	}

	return ParsedPath{Dir: dir, Name: name, Ext: ext}
}

// FindExtension probes <name><ext> next to absPath for every recognized
// extension and returns the first one that exists, or "" when none does.
// A trailing dot on the name ("./foo.") is dropped before probing.
func (r *Resolver) FindExtension(absPath string) (string, error) {
	info := r.ParsePath(absPath)
	name := strings.TrimSuffix(info.Name, ".")
	if name == "" {
		return "", nil
	}

	for _, ext := range r.extensions {
		ok, err := r.prober.Exists(filepath.Join(info.Dir, name+ext))
		if err != nil {
			return "", err
		}
		if ok {
			return ext, nil
		}
	}
	return "", nil
}
