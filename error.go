// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import "errors"

// Sentinel errors returned by the Store, the Queue and the configuration layer.
// Event handlers never return these to the producer of an event; they are
// logged, and processing continues with the next event.
var (
	// ErrInvalidPath is returned when a string is not a well-formed Path.
	ErrInvalidPath = errors.New("mirror: invalid path")

	// ErrNotFound is returned when an operation targets a path that is
	// not present in the Store.
	ErrNotFound = errors.New("mirror: entity not found")

	// ErrExists is returned when an insertion or rename would overwrite
	// an entity that is already present.
	ErrExists = errors.New("mirror: entity already exists")

	// ErrNoParent is returned when an entity is inserted below a path
	// that is not present in the Store.
	ErrNoParent = errors.New("mirror: parent not found")

	// ErrWrongKind is returned when an entity cannot hold a child of the
	// given kind (a port has no children, a node holds only ports) or when
	// an event addresses an entity of an unexpected kind.
	ErrWrongKind = errors.New("mirror: wrong entity kind")

	// ErrInvalidRename is returned when a rename would move a subtree
	// below itself or rename the root.
	ErrInvalidRename = errors.New("mirror: invalid rename")

	// ErrClosed is returned by Queue.Push after Queue.Close.
	ErrClosed = errors.New("mirror: queue closed")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("mirror: invalid config")
)
