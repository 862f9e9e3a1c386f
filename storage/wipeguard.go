package storage

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// TrackedList names a top-level array in a document that must never go from
// non-empty to empty silently. Lists with Wipeable=false cannot be emptied at
// all, authorization or not.
type TrackedList struct {
	Key      string
	Wipeable bool
}

// WipeGuardError reports a blocked write. SideFile points at the quarantined
// rejected payload, when quarantining succeeded.
type WipeGuardError struct {
	Path     string
	List     string
	SideFile string
}

func (e *WipeGuardError) Error() string {
	return fmt.Sprintf("wipe_blocked: %s would empty %q", e.Path, e.List)
}

// WipeGuard is the interlock between a mutation and the document store: a
// replacement document whose tracked list goes from non-empty to empty is
// refused unless the caller authorized the wipe of that exact list for this
// one write. Authorization is never persisted; every write needs a fresh one.
type WipeGuard struct {
	tracked []TrackedList
	store   *DocumentStore
	logger  *logrus.Logger
}

func NewWipeGuard(tracked []TrackedList, store *DocumentStore, logger *logrus.Logger) *WipeGuard {
	return &WipeGuard{tracked: tracked, store: store, logger: logger}
}

// Check compares the currently-persisted document against its candidate
// replacement. current may be nil (no document yet), in which case nothing
// can be wiped. On block, the rejected candidate is quarantined and a
// *WipeGuardError returned.
func (g *WipeGuard) Check(path string, current, next any, authorized map[string]bool) error {
	if current == nil {
		return nil
	}
	curLens, err := trackedLengths(current, g.tracked)
	if err != nil {
		return err
	}
	nextLens, err := trackedLengths(next, g.tracked)
	if err != nil {
		return err
	}
	for _, tl := range g.tracked {
		if curLens[tl.Key] > 0 && nextLens[tl.Key] == 0 {
			if tl.Wipeable && authorized[tl.Key] {
				g.logger.WithFields(logrus.Fields{
					"module": "storage",
					"path":   path,
					"list":   tl.Key,
				}).Warn("authorized wipe of tracked list")
				continue
			}
			side, qErr := g.store.Quarantine(path, next)
			if qErr != nil {
				g.logger.WithFields(logrus.Fields{
					"module": "storage",
					"path":   path,
					"list":   tl.Key,
				}).WithError(qErr).Error("failed to quarantine rejected payload")
			}
			return &WipeGuardError{Path: path, List: tl.Key, SideFile: side}
		}
	}
	return nil
}

func trackedLengths(doc any, tracked []TrackedList) (map[string]int, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(tracked))
	for _, tl := range tracked {
		entry, ok := top[tl.Key]
		if !ok {
			out[tl.Key] = 0
			continue
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(entry, &arr); err != nil {
			// Not an array; treat as empty rather than failing the write.
			out[tl.Key] = 0
			continue
		}
		out[tl.Key] = len(arr)
	}
	return out, nil
}
