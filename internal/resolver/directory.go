package resolver

import (
	"path/filepath"

	"github.com/harrison/esmify/internal/probe"
)

// EntryKind says how a directory import resolves.
type EntryKind int

const (
	// EntryNone means neither a manifest nor an index file was found.
	EntryNone EntryKind = iota
	// EntryManifest means the directory has a package manifest; the loader
	// resolves it.
	EntryManifest
	// EntryIndex means an index file must be appended to the specifier.
	EntryIndex
)

// String returns the kind name used in logs.
func (k EntryKind) String() string {
	switch k {
	case EntryManifest:
		return "manifest"
	case EntryIndex:
		return "index"
	default:
		return "none"
	}
}

// Entry is the result of DirectoryEntry.
type Entry struct {
	Kind EntryKind
	// File is the index file name (e.g. "index.mjs") when Kind is EntryIndex.
	File string
}

// DirectoryEntry resolves how dir is entered. A manifest wins over index
// files even when both exist.
func (r *Resolver) DirectoryEntry(dir string) (Entry, error) {
	ok, err := r.prober.Exists(filepath.Join(dir, r.manifest))
	if err != nil {
		return Entry{}, err
	}
	if ok {
		return Entry{Kind: EntryManifest}, nil
	}

	index, err := probe.FindFirst(r.prober, r.indexFiles, dir)
	if err != nil {
		return Entry{}, err
	}
	if index == "" {
		return Entry{Kind: EntryNone}, nil
	}
	return Entry{Kind: EntryIndex, File: filepath.Base(index)}, nil
}
