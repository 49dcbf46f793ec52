package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidName is returned by DirLocator for names that would leave its root.
var ErrInvalidName = errors.New("invalid repository name")

// Locator maps the name of a stored item to the filesystem path holding its
// repository.
type Locator interface {
	Locate(name string) (string, error)
}

// LocatorFunc adapts a plain function to Locator.
type LocatorFunc func(name string) (string, error)

func (f LocatorFunc) Locate(name string) (string, error) { return f(name) }

// IdentityLocator uses names as paths.
var IdentityLocator = LocatorFunc(func(name string) (string, error) { return name, nil })

// DirLocator keeps every repository in a directory under Root, named after
// the item. Fs is used to create and inspect those directories.
type DirLocator struct {
	Fs   afero.Fs
	Root string
}

// NewDirLocator returns a DirLocator on the OS filesystem.
func NewDirLocator(root string) *DirLocator {
	return &DirLocator{Fs: afero.NewOsFs(), Root: root}
}

func (l *DirLocator) Locate(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(l.Root, clean), nil
}

// Ensure creates the directory for name.
func (l *DirLocator) Ensure(name string) (string, error) {
	path, err := l.Locate(name)
	if err != nil {
		return "", err
	}
	return path, l.Fs.MkdirAll(path, 0755)
}

// Exists reports whether name has a repository directory with a .git entry.
func (l *DirLocator) Exists(name string) (bool, error) {
	path, err := l.Locate(name)
	if err != nil {
		return false, err
	}
	return afero.DirExists(l.Fs, filepath.Join(path, ".git"))
}

// List returns the names of the items under Root that hold a repository.
func (l *DirLocator) List() ([]string, error) {
	infos, err := afero.ReadDir(l.Fs, l.Root)
	if errors.Is(err, afero.ErrFileNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var names []string
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		if ok, err := l.Exists(info.Name()); err != nil {
			return nil, err
		} else if ok {
			names = append(names, info.Name())
		}
	}
	return names, nil
}
