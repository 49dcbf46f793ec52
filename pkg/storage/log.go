package storage

import (
	"errors"
	"io"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/weaveworks/gitstorage/pkg/storage/core"
)

// LogEntry is one commit in the history returned by Log.
type LogEntry struct {
	Author string `json:"author"`
	Email  string `json:"email"`
	Date   string `json:"date"`
	Node   string `json:"node"`
	Rev    string `json:"rev"`
	Desc   string `json:"desc"`
}

// Log walks the history from start, newest committer time first, and returns at
// most count entries. An empty start means HEAD, and a HEAD that does not
// resolve yields no entries. An explicit start that does not resolve fails with
// core.ErrRevisionNotFound.
func (s *Storage) Log(start string, count int) ([]LogEntry, error) {
	entries := []LogEntry{}
	if start == "" {
		start = headRev
		if _, err := s.resolveCommit(start); errors.Is(err, core.ErrRevisionNotFound) {
			return entries, nil
		}
	}
	c, err := s.resolveCommit(start)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return entries, nil
	}

	iter, err := s.repo.Log(&git.LogOptions{
		From:  c.Hash,
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		entries = append(entries, LogEntry{
			Author: c.Author.Name,
			Email:  c.Committer.Email,
			Date:   s.opts.DateFormat.Format(c.Committer.When),
			Node:   c.Hash.String(),
			Rev:    c.Hash.String(),
			Desc:   c.Message,
		})
		if len(entries) == count {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return entries, nil
}
