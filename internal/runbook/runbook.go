// Package runbook loads the remediation documents handed to the Planner as
// context.
package runbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions accepted when loading a directory.
var Extensions = []string{".md", ".markdown", ".txt", ".yaml", ".yml"}

// ErrNoRunbooks is returned when a directory holds no accepted files.
var ErrNoRunbooks = errors.New("no runbooks found")

// Runbook is one loaded document.
type Runbook struct {
	Path     string
	Title    string
	Headings []string
	Content  string
}

// Set is every runbook found under Root, sorted by path.
type Set struct {
	Root     string
	Runbooks []Runbook
}

// Load reads a single file or every accepted file below a directory.
func Load(path string) (*Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat runbooks %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		files, err = collect(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoRunbooks, path)
		}
	} else {
		files = []string{path}
	}

	set := &Set{Root: path, Runbooks: make([]Runbook, 0, len(files))}
	for _, f := range files {
		rb, err := loadFile(f)
		if err != nil {
			return nil, err
		}
		set.Runbooks = append(set.Runbooks, rb)
	}
	return set, nil
}

func collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if accepted(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk runbooks %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func accepted(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func loadFile(path string) (Runbook, error) {
	// #nosec G304 -- runbook paths come from the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return Runbook{}, fmt.Errorf("failed to read runbook %s: %w", path, err)
	}

	rb := Runbook{Path: path, Content: string(data)}
	if isMarkdown(path) {
		rb.Title, rb.Headings = outline(data)
	}
	if rb.Title == "" {
		rb.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return rb, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// Contents concatenates every runbook under a header line naming it.
func (s *Set) Contents() string {
	var b strings.Builder
	for i, rb := range s.Runbooks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## Runbook: %s (%s)\n\n", rb.Title, rb.Path)
		b.WriteString(strings.TrimSpace(rb.Content))
	}
	return b.String()
}

// Titles lists the runbook titles in load order.
func (s *Set) Titles() []string {
	titles := make([]string, len(s.Runbooks))
	for i, rb := range s.Runbooks {
		titles[i] = rb.Title
	}
	return titles
}

// Size is the combined content length in bytes.
func (s *Set) Size() int {
	n := 0
	for _, rb := range s.Runbooks {
		n += len(rb.Content)
	}
	return n
}
