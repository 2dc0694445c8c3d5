package resolver

import (
	"path/filepath"
	"strings"
)

// Target is the classification of an absolute import path.
type Target struct {
	// Path is the absolute path of the file or directory.
	Path string
	// IsFile is false for directories.
	IsFile bool
	// Extension is the module extension of a file target, empty for directories.
	Extension string
}

// Classify decides whether absPath addresses a file or a directory.
//
//   - a recognized extension is taken at face value, without probing;
//   - an existing entry is a directory (extensionless files land here too and
//     are left for the loader);
//   - otherwise a sibling <name><ext> is searched for.
//
// A nil Target with a nil error means the path could not be classified and
// the specifier must be left alone.
func (r *Resolver) Classify(absPath string) (*Target, error) {
	info := r.ParsePath(absPath)
	if info.Ext != "" {
		return &Target{Path: absPath, IsFile: true, Extension: info.Ext}, nil
	}

	exists, err := r.prober.Exists(absPath)
	if err != nil {
		return nil, err
	}
	if exists {
		dir := strings.TrimRight(absPath, "/")
		if dir == "" {
			dir = absPath
		}
		return &Target{Path: dir}, nil
	}

	ext, err := r.FindExtension(absPath)
	if err != nil {
		return nil, err
	}
	if ext == "" {
		return nil, nil
	}

	name := strings.TrimSuffix(info.Name, ".")
	return &Target{
		Path:      filepath.Join(info.Dir, name+ext),
		IsFile:    true,
		Extension: ext,
	}, nil
}
