// Package classify partitions the files of a dataset folder into usable and
// unused ones.
package classify

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

type Reason string

const (
	ReasonBadExtension Reason = "bad extension"
	ReasonTooLarge     Reason = "too large"
	ReasonNotRegular   Reason = "not a regular file"
)

// Entry is the file metadata classification depends on.
type Entry struct {
	Name    string
	Size    int64
	Regular bool
}

type Unused struct {
	Name   string
	Reason Reason
}

type Result struct {
	Usable []string
	Unused []Unused
}

// UnusedNames returns the names of the unused files in order.
func (r Result) UnusedNames() []string {
	names := make([]string, 0, len(r.Unused))
	for _, u := range r.Unused {
		names = append(names, u.Name)
	}
	return names
}

// Classify splits entries into usable and unused files. A file is usable
// when its extension is one of extensions and, if sizeLimit is positive, its
// size does not exceed sizeLimit. Input order is preserved in both outputs.
func Classify(entries []Entry, sizeLimit int64, extensions []string) Result {
	res := Result{
		Usable: []string{},
		Unused: []Unused{},
	}

	for _, e := range entries {
		switch {
		case !e.Regular:
			res.Unused = append(res.Unused, Unused{Name: e.Name, Reason: ReasonNotRegular})
		case !slices.Contains(extensions, Extension(e.Name)):
			res.Unused = append(res.Unused, Unused{Name: e.Name, Reason: ReasonBadExtension})
		case sizeLimit > 0 && e.Size > sizeLimit:
			res.Unused = append(res.Unused, Unused{Name: e.Name, Reason: ReasonTooLarge})
		default:
			res.Usable = append(res.Usable, e.Name)
		}
	}

	return res
}

// Extension returns the part of name after its last dot, or "" if there is
// none. Matching is case-sensitive.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}

// List reads the entries of dir sorted by name, leaving out the names in
// exclude.
func List(dir string, exclude ...string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if slices.Contains(exclude, de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", de.Name(), err)
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Size:    info.Size(),
			Regular: info.Mode().IsRegular(),
		})
	}

	return entries, nil
}
