package storage

import (
	"strings"

	"github.com/weaveworks/gitstorage/pkg/revtree"
)

// PathType is the kind reported by Pathinfo.
type PathType string

const (
	PathTypeFile    PathType = "file"
	PathTypeFolder  PathType = "folder"
	PathTypeSubrepo PathType = "subrepo"
)

// PathInfo describes a path in the current commit.
type PathInfo struct {
	// Basename is the last path segment, "" for the root.
	Basename string   `json:"basename"`
	Type     PathType `json:"type"`
	// Size is the file length, 0 for anything else.
	Size int64 `json:"size"`
	// Date is the committer date of the current commit for files, "" otherwise.
	Date string `json:"date"`
	// Subrepo is only set for PathTypeSubrepo.
	Subrepo *SubrepoInfo `json:"obj,omitempty"`
}

// SubrepoInfo locates a path inside a sub-repository.
type SubrepoInfo struct {
	Location string `json:"location"`
	Path     string `json:"path"`
	Rev      string `json:"rev"`
}

// Pathinfo describes what path is in the current commit.
func (s *Storage) Pathinfo(path string) (*PathInfo, error) {
	n, err := s.resolver.Resolve(s.commit, path, revtree.KindAny)
	if err != nil {
		return nil, err
	}
	info := &PathInfo{
		Basename: basename(path),
		Type:     PathTypeFolder,
	}
	switch node := n.(type) {
	case *revtree.File:
		info.Type = PathTypeFile
		info.Size = node.Size()
		info.Date = s.opts.DateFormat.Format(s.commit.Committer.When)
	case *revtree.SubrepoRef:
		info.Type = PathTypeSubrepo
		info.Subrepo = &SubrepoInfo{
			Location: node.Location,
			Path:     node.Path,
			Rev:      node.Rev.String(),
		}
	case *revtree.Directory, revtree.EmptyRoot:
	}
	return info, nil
}

func basename(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
