package command

import (
	"fmt"
	"regexp"
	"strings"
)

// Properties maps placeholder names to values. A placeholder can expand to
// several arguments, which is how a built option list reaches the command line.
type Properties map[string][]string

// Template is an argument vector with ${name} placeholders, selected when its
// pattern matches the active key (usually "<sourceMimetype> <targetMimetype>").
type Template struct {
	Pattern *regexp.Regexp
	Args    []string
}

// NewTemplate compiles pattern and pairs it with args.
func NewTemplate(pattern string, args ...string) (Template, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Template{}, fmt.Errorf("compile template pattern %q: %w", pattern, err)
	}
	if len(args) == 0 {
		return Template{}, fmt.Errorf("template %q has no arguments", pattern)
	}
	return Template{Pattern: re, Args: args}, nil
}

// MustTemplate is NewTemplate that panics on error, for static templates.
func MustTemplate(pattern string, args ...string) Template {
	t, err := NewTemplate(pattern, args...)
	if err != nil {
		panic(err)
	}
	return t
}

const splitPrefix = "SPLIT:"

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z0-9_.-]+)\}`)

// Expand resolves the template into a concrete argument vector. props take
// precedence over defaults. A placeholder with no value in either removes the
// whole argument. "SPLIT:${name}" expands to one argument per value; a bare
// "${name}" joins multiple values with a space into a single argument.
func (t Template) Expand(props, defaults Properties) []string {
	out := make([]string, 0, len(t.Args))
	for _, arg := range t.Args {
		split := strings.HasPrefix(arg, splitPrefix)
		if split {
			arg = strings.TrimPrefix(arg, splitPrefix)
		}

		if m := placeholderRe.FindStringSubmatch(arg); m != nil && m[0] == arg {
			values, ok := lookup(m[1], props, defaults)
			if !ok {
				continue
			}
			if split {
				out = append(out, values...)
			} else if len(values) > 0 {
				out = append(out, strings.Join(values, " "))
			}
			continue
		}

		missing := false
		expanded := placeholderRe.ReplaceAllStringFunc(arg, func(ph string) string {
			name := placeholderRe.FindStringSubmatch(ph)[1]
			values, ok := lookup(name, props, defaults)
			if !ok {
				missing = true
				return ""
			}
			return strings.Join(values, " ")
		})
		if missing {
			continue
		}
		out = append(out, expanded)
	}
	return out
}

func lookup(name string, props, defaults Properties) ([]string, bool) {
	if v, ok := props[name]; ok && v != nil {
		return v, true
	}
	if v, ok := defaults[name]; ok && v != nil {
		return v, true
	}
	return nil, false
}
