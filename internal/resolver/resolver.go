// Package resolver decides what an import specifier points at on disk.
//
// Classification answers one question for an absolute path: is it a file
// (and with which module extension) or a directory? Directory entry
// resolution then decides whether a directory import needs an explicit index
// file or can be left to the package manifest. All decisions are made with
// existence probes through a probe.Prober, in a fixed preference order.
package resolver

import (
	"strings"

	"github.com/harrison/esmify/internal/probe"
)

// Defaults used by the CLI. Order matters: the first listed candidate wins
// when more than one exists.
var (
	DefaultExtensions = []string{".mjs", ".js"}
)

const (
	DefaultManifest  = "package.json"
	DefaultIndexName = "index"
)

// Options configures a Resolver.
type Options struct {
	// Extensions lists recognized module extensions in preference order.
	Extensions []string
	// Manifest is the package manifest file name looked up in directories.
	Manifest string
	// IndexName is the base name of directory index files.
	IndexName string
}

// Resolver classifies paths using a Prober.
type Resolver struct {
	prober     probe.Prober
	extensions []string
	manifest   string
	indexFiles []string
}

// New creates a Resolver. Zero-valued options fall back to the defaults.
func New(p probe.Prober, opts Options) *Resolver {
	if p == nil {
		p = probe.OS{}
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Manifest == "" {
		opts.Manifest = DefaultManifest
	}
	if opts.IndexName == "" {
		opts.IndexName = DefaultIndexName
	}

	exts := make([]string, 0, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, strings.ToLower(ext))
	}

	index := make([]string, 0, len(exts))
	for _, ext := range exts {
		index = append(index, opts.IndexName+ext)
	}

	return &Resolver{
		prober:     p,
		extensions: exts,
		manifest:   opts.Manifest,
		indexFiles: index,
	}
}

// Prober returns the prober the resolver uses.
func (r *Resolver) Prober() probe.Prober {
	return r.prober
}

// IndexFiles returns the index file candidates in preference order.
func (r *Resolver) IndexFiles() []string {
	out := make([]string, len(r.indexFiles))
	copy(out, r.indexFiles)
	return out
}

// IsModuleExtension reports whether ext (with its dot) is a recognized module
// extension. The comparison ignores case.
func (r *Resolver) IsModuleExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range r.extensions {
		if e == ext {
			return true
		}
	}
	return false
}
