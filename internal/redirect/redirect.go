// Package redirect applies per-package specifier substitutions, e.g. routing
// "wootils/shared/x" to "wootils/esm/shared/x" for packages that ship a
// separate ES module build.
package redirect

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRule is returned by Compile for a rule that cannot be used.
var ErrInvalidRule = errors.New("invalid module rule")

// Rule is a single declared redirect.
type Rule struct {
	// Name is the prefix a specifier must start with for the rule to apply.
	Name string
	// Find optionally replaces the default "^Name" match with a custom
	// regular expression.
	Find string
	// Path replaces the matched portion of the specifier.
	Path string
}

type compiledRule struct {
	name    string
	pattern *regexp.Regexp
	path    string
}

// Table is an ordered, compiled list of rules. It is read-only once built
// and safe for concurrent use.
type Table struct {
	rules []compiledRule
}

// Compile validates and compiles rules, keeping their order.
func Compile(rules []Rule) (*Table, error) {
	t := &Table{rules: make([]compiledRule, 0, len(rules))}
	for i, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("%w: modules[%d]: name is required", ErrInvalidRule, i)
		}
		expr := "^" + regexp.QuoteMeta(rule.Name)
		if rule.Find != "" {
			expr = rule.Find
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: modules[%d] (%s): find %q: %v", ErrInvalidRule, i, rule.Name, rule.Find, err)
		}
		t.rules = append(t.rules, compiledRule{name: rule.Name, pattern: re, path: rule.Path})
	}
	return t, nil
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Apply rewrites spec with the first rule whose name prefixes it. Only the
// first match of the rule's pattern is replaced, literally; the rest of the
// specifier is kept as is. The bool reports whether spec changed.
func (t *Table) Apply(spec string) (string, bool) {
	if t == nil {
		return spec, false
	}
	for _, rule := range t.rules {
		if !strings.HasPrefix(spec, rule.name) {
			continue
		}
		loc := rule.pattern.FindStringIndex(spec)
		if loc == nil {
			return spec, false
		}
		out := spec[:loc[0]] + rule.path + spec[loc[1]:]
		return out, out != spec
	}
	return spec, false
}
