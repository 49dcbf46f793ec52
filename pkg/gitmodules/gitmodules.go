// Package gitmodules reads the submodule manifest stored as .gitmodules at the
// root of a tree.
package gitmodules

import (
	"bufio"
	"fmt"
	"sort"
	"strings"
)

// Filename is the name of the manifest at the root of a tree.
const Filename = ".gitmodules"

const sectionPrefix = "[submodule "

// Parse maps each submodule path declared in raw to its location.
//
// Lines are handled one at a time. A "[submodule ...]" header starts a new
// section; every other line must be a "key = value" pair or it is skipped.
// The first time a section has both a path and a url, the pair is recorded
// and the section is locked, later lines in it cannot record it again. A
// header with a broken prefix is skipped like any other unsplittable line, so
// its keys keep merging into the previous section.
func Parse(raw string) map[string]string {
	result := map[string]string{}

	var s section
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, sectionPrefix) {
			s = section{}
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		s.set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		if path, url, ok := s.commit(); ok {
			result[path] = url
		}
	}
	return result
}

// Format renders one well-formed section per entry, ordered by path. The
// section name is the path itself.
func Format(modules map[string]string) string {
	paths := make([]string, 0, len(modules))
	for path := range modules {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&b, "%s%q]\n", sectionPrefix, path)
		fmt.Fprintf(&b, "\tpath = %s\n", path)
		fmt.Fprintf(&b, "\turl = %s\n", modules[path])
	}
	return b.String()
}

type section struct {
	path, url *string
	committed bool
}

func (s *section) set(key, value string) {
	switch key {
	case "path":
		s.path = &value
	case "url":
		s.url = &value
	}
}

// commit returns the pair once, when both halves are first known.
func (s *section) commit() (string, string, bool) {
	if s.committed || s.path == nil || s.url == nil {
		return "", "", false
	}
	s.committed = true
	return *s.path, *s.url, true
}
