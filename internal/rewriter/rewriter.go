// Package rewriter turns the module specifiers of one file into fully
// resolved, extension-correct specifiers.
//
// For every import or re-export it:
//
//  1. skips specifiers that are neither relative nor bare package names
//     ("~/x", "@/x", "#x", "node:fs");
//  2. unless an ignore pattern matches, classifies the target on disk and
//     completes the specifier: "./util" -> "./util.mjs", "./lib" ->
//     "./lib/index.mjs", while directories with a package.json stay as they
//     are and anything that cannot be resolved is left untouched;
//  3. applies the first matching redirect rule to the result.
//
// The rewrite is synchronous; the only I/O is existence probing.
package rewriter

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/harrison/esmify/internal/models"
	"github.com/harrison/esmify/internal/parser"
	"github.com/harrison/esmify/internal/redirect"
	"github.com/harrison/esmify/internal/resolver"
)

var (
	wordStart = regexp.MustCompile(`^\w`)
	urlScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

// Tree is the part of a parsed file the rewriter needs: the specifiers in
// document order and a way to substitute one. Implementations must leave
// everything but the substituted literal intact, leading comments included.
type Tree interface {
	Imports() []*parser.Import
	Replace(imp *parser.Import, specifier string) error
	Source() []byte
}

// Rewrite rewrites the specifiers of tree, which was parsed from file, and
// returns the new source. The report lists what changed and which specifiers
// could not be resolved. An error means a probe failed; the file must then be
// treated as failed as a whole.
func Rewrite(file string, tree Tree, opts *Options) ([]byte, *models.FileReport, error) {
	report := &models.FileReport{}

	for _, imp := range tree.Imports() {
		res, err := opts.Resolve(file, imp.Specifier)
		if err != nil {
			return nil, nil, fmt.Errorf("%s:%d: %w", file, imp.Line, err)
		}
		if res.Unresolved {
			report.Unresolved = append(report.Unresolved, models.Specifier{Line: imp.Line, Value: imp.Specifier})
		}
		if !res.Changed() {
			continue
		}
		if err := tree.Replace(imp, res.To); err != nil {
			return nil, nil, fmt.Errorf("%s:%d: failed to replace %q: %w", file, imp.Line, imp.Specifier, err)
		}
		report.Rewrites = append(report.Rewrites, models.Rewrite{
			Line:   imp.Line,
			From:   imp.Specifier,
			To:     res.To,
			Reason: res.Reason,
		})
	}

	return tree.Source(), report, nil
}

// Resolution is what happens to a single specifier.
type Resolution struct {
	From       string // Specifier as written
	To         string // Rewritten specifier, equal to From when nothing applies
	Reason     string // models.ReasonExtension, models.ReasonRedirect or ""
	Skipped    bool   // Not eligible: alias, URL scheme or absolute path
	Ignored    bool   // Excluded from completion by an ignore pattern
	Unresolved bool   // Eligible, not redirected, and the target could not be classified
}

// Changed reports whether the specifier is rewritten.
func (r Resolution) Changed() bool {
	return r.To != r.From
}

// Resolve computes the rewritten form of the specifier raw as written in
// file. An error means a probe failed.
func (o *Options) Resolve(file, raw string) (Resolution, error) {
	res := Resolution{From: raw, To: raw}
	if !Eligible(raw) {
		res.Skipped = true
		return res, nil
	}

	spec := raw
	if o.ignored(raw) {
		res.Ignored = true
	} else {
		completed, resolved, err := o.complete(filepath.Dir(file), raw)
		if err != nil {
			return res, fmt.Errorf("failed to resolve %q: %w", raw, err)
		}
		res.Unresolved = !resolved
		if completed != raw {
			res.Reason = models.ReasonExtension
		}
		spec = completed
	}

	// A redirected specifier names its target explicitly
	if redirected, ok := o.Redirects.Apply(spec); ok {
		spec = redirected
		res.Reason = models.ReasonRedirect
		res.Unresolved = false
	}
	res.To = spec
	if !res.Changed() {
		res.Reason = ""
	}
	return res, nil
}

// RewriteSource parses source and rewrites it.
func RewriteSource(ctx context.Context, file string, source []byte, opts *Options) ([]byte, *models.FileReport, error) {
	tree, err := parser.Parse(ctx, source)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", file, err)
	}
	return Rewrite(file, tree, opts)
}

// Eligible reports whether a specifier is one esmify rewrites: relative
// ("./x", "../x") or a bare package name starting with a word character.
// Aliases and URL-style specifiers are never touched.
func Eligible(spec string) bool {
	if strings.HasPrefix(spec, ".") {
		return true
	}
	return wordStart.MatchString(spec) && !urlScheme.MatchString(spec)
}

// IsRelative reports whether spec resolves against the importing file.
func IsRelative(spec string) bool {
	return strings.HasPrefix(spec, ".")
}

// complete computes the extension-complete form of raw. resolved is false
// when the target could not be classified; raw is then returned unchanged.
func (o *Options) complete(base, raw string) (string, bool, error) {
	abs := o.absPath(base, raw)

	target, err := o.Resolver.Classify(abs)
	if err != nil {
		return "", false, err
	}
	if target == nil {
		return raw, false, nil
	}

	var out string
	if target.IsFile {
		trimmed := strings.TrimRight(raw, "/")
		out = path.Join(path.Dir(trimmed), filepath.Base(target.Path))
	} else {
		entry, err := o.Resolver.DirectoryEntry(target.Path)
		if err != nil {
			return "", false, err
		}
		switch entry.Kind {
		case resolver.EntryManifest:
			out = trimTrailingSlash(raw)
		case resolver.EntryIndex:
			out = strings.TrimSuffix(raw, "/") + "/" + entry.File
		default:
			return raw, true, nil
		}
	}

	if strings.HasPrefix(raw, "./") && !strings.HasPrefix(out, "./") {
		out = "./" + out
	}
	return out, true, nil
}

func (o *Options) absPath(base, raw string) string {
	if IsRelative(raw) {
		return filepath.Join(base, filepath.FromSlash(raw))
	}
	return filepath.Join(o.ModulesDir, filepath.FromSlash(raw))
}

// trimTrailingSlash drops one trailing slash, unless that would leave a bare
// "." or "..".
func trimTrailingSlash(spec string) string {
	out := strings.TrimSuffix(spec, "/")
	switch out {
	case "", ".", "..":
		return spec
	}
	return out
}

// Options is the read-only configuration snapshot of a rewrite. It is built
// once per run and shared by all concurrent rewrites.
type Options struct {
	// Resolver classifies targets.
	Resolver *resolver.Resolver
	// ModulesDir is the dependency root bare specifiers resolve against.
	ModulesDir string
	// Ignore excludes specifiers from extension completion.
	Ignore []*regexp.Regexp
	// Redirects is applied after completion. May be nil.
	Redirects *redirect.Table
}

// NewOptions compiles ignore patterns and redirect rules.
func NewOptions(r *resolver.Resolver, modulesDir string, ignore []string, rules []redirect.Rule) (*Options, error) {
	opts := &Options{
		Resolver:   r,
		ModulesDir: modulesDir,
	}
	for _, pattern := range ignore {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid extension.ignore pattern %q: %w", pattern, err)
		}
		opts.Ignore = append(opts.Ignore, re)
	}
	table, err := redirect.Compile(rules)
	if err != nil {
		return nil, err
	}
	opts.Redirects = table
	return opts, nil
}

func (o *Options) ignored(spec string) bool {
	for _, re := range o.Ignore {
		if re.MatchString(spec) {
			return true
		}
	}
	return false
}
