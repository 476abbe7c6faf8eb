// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"fmt"

	"github.com/google/btree"
)

// storeDegree is the B-tree degree of the path index.
const storeDegree = 16

// Store is the path-indexed entity table.
//
// Entities are ordered by [ComparePaths], so the descendants of any path
// occupy one contiguous run directly after the path's own entry. Subtree
// removal and rename are range extractions over that run.
//
// Store is not safe for concurrent use. Inside a [Reconciler] it is only
// touched by event handlers on the consumer goroutine.
type Store struct {
	tree *btree.BTreeG[*Entity]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{tree: btree.NewG(storeDegree, lessEntity)}
}

func lessEntity(a, b *Entity) bool {
	return ComparePaths(a.path, b.path) < 0
}

// probe returns a key-only entity for B-tree lookups.
func probe(p Path) *Entity { return &Entity{path: p} }

// Len returns the number of entities in the Store.
func (s *Store) Len() int { return s.tree.Len() }

// Find returns the entity at p.
func (s *Store) Find(p Path) (*Entity, bool) {
	return s.tree.Get(probe(p))
}

// Insert attaches e below its parent. The root may be inserted without a parent.
// Insert fails with [ErrInvalidPath] on a malformed path, with [ErrExists]
// if the path is taken, with [ErrNoParent] if the parent is absent and with
// [ErrWrongKind] if the parent cannot hold e.
func (s *Store) Insert(e *Entity) error {
	if !e.path.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPath, e.path)
	}
	if _, ok := s.Find(e.path); ok {
		return fmt.Errorf("%w: %s", ErrExists, e.path)
	}
	if !e.path.IsRoot() {
		parent, ok := s.Find(e.path.Parent())
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoParent, e.path)
		}
		if !parent.canParent(e.kind) {
			return fmt.Errorf("%w: %s %s cannot contain %s %s", ErrWrongKind, parent.kind, parent.path, e.kind, e.path)
		}
		parent.addChild(e.path.Name())
	}
	s.tree.ReplaceOrInsert(e)
	return nil
}

// Subtree returns p and all of its descendants in path order.
func (s *Store) Subtree(p Path) []*Entity {
	var run []*Entity
	s.tree.AscendGreaterOrEqual(probe(p), func(e *Entity) bool {
		if !e.path.Within(p) {
			return false
		}
		run = append(run, e)
		return true
	})
	return run
}

// extract removes the contiguous run rooted at p from the index and
// returns it in path order. Parent links are left untouched.
func (s *Store) extract(p Path) []*Entity {
	run := s.Subtree(p)
	for _, e := range run {
		s.tree.Delete(e)
	}
	return run
}

// RemoveSubtree removes p and every descendant of p and returns them in
// path order, parents first. Removing an absent path returns [ErrNotFound]
// and changes nothing.
func (s *Store) RemoveSubtree(p Path) ([]*Entity, error) {
	run := s.extract(p)
	if len(run) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if !p.IsRoot() {
		if parent, ok := s.Find(p.Parent()); ok {
			parent.removeChild(p.Name())
		}
	}
	return run, nil
}

// RemoveDescendants removes every descendant of p but keeps p itself.
func (s *Store) RemoveDescendants(p Path) ([]*Entity, error) {
	top, ok := s.Find(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	run := s.extract(p)
	s.tree.ReplaceOrInsert(top)
	top.children = nil
	return run[1:], nil
}

// Rename moves the subtree rooted at from to to.
//
// The whole run is extracted, every path is rewritten by prefix
// substitution, and the run is re-inserted; no lookup can observe a mix
// of old and new paths. The entities keep their identity.
func (s *Store) Rename(from, to Path) ([]*Entity, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, to)
	}
	if from.IsRoot() || to.IsRoot() || to.Within(from) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidRename, from, to)
	}
	top, ok := s.Find(from)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	if _, ok := s.Find(to); ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, to)
	}
	newParent, ok := s.Find(to.Parent())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoParent, to)
	}
	if !newParent.canParent(top.kind) {
		return nil, fmt.Errorf("%w: %s cannot contain %s", ErrWrongKind, newParent.path, top.kind)
	}

	run := s.extract(from)
	if oldParent, ok := s.Find(from.Parent()); ok {
		oldParent.removeChild(from.Name())
	}
	for _, e := range run {
		e.path = e.path.Rebase(from, to)
		s.tree.ReplaceOrInsert(e)
	}
	newParent.addChild(to.Name())
	return run, nil
}

// Children returns the children of p in insertion order.
func (s *Store) Children(p Path) []*Entity {
	e, ok := s.Find(p)
	if !ok {
		return nil
	}
	out := make([]*Entity, 0, len(e.children))
	for _, name := range e.children {
		if c, ok := s.Find(p.Child(name)); ok {
			out = append(out, c)
		}
	}
	return out
}

// Walk calls fn for every entity in path order until fn returns false.
func (s *Store) Walk(fn func(*Entity) bool) {
	s.tree.Ascend(fn)
}

// Clear removes every entity.
func (s *Store) Clear() {
	s.tree.Clear(false)
}
