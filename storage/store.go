package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	readRetryCount = 5
	readRetryDelay = 40 * time.Millisecond
)

// CorruptDocumentError reports malformed JSON on both the canonical file and
// its backup. It must never be treated as "no document": resetting to a
// default document here would look exactly like data loss.
type CorruptDocumentError struct {
	Path  string
	Cause error
}

func (e *CorruptDocumentError) Error() string {
	return fmt.Sprintf("corrupt_document: %s: %v", e.Path, e.Cause)
}

func (e *CorruptDocumentError) Unwrap() error { return e.Cause }

// ReadResult is the outcome of DocumentStore.Read. Absent is only true on
// confirmed absence of both the canonical file and its backup; corruption is
// returned as an error so a caller cannot mistake it for absence.
type ReadResult struct {
	Absent bool
	Raw    []byte
}

// DocumentStore reads and writes one JSON document per file, atomically and
// with a best-effort sibling .bak copy refreshed before each publish.
type DocumentStore struct {
	locker *PathLocker
	logger *logrus.Logger
}

func NewDocumentStore(locker *PathLocker, logger *logrus.Logger) *DocumentStore {
	return &DocumentStore{locker: locker, logger: logger}
}

func (s *DocumentStore) Locker() *PathLocker { return s.locker }

func backupPath(path string) string { return path + ".bak" }

// Read returns the parsed-able bytes of the document at path.
//
// An empty or unparsable canonical file is treated as transient first (a
// writer may be mid-publish) and retried a bounded number of times. After the
// retries the .bak sibling is consulted. Only when both are genuinely absent
// does Read report absence; if either exists but neither parses, the read is
// fatal.
func (s *DocumentStore) Read(path string) (ReadResult, error) {
	var lastErr error
	for attempt := 0; attempt <= readRetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(readRetryDelay)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			lastErr = err
			continue
		}
		if validJSONDocument(raw) {
			return ReadResult{Raw: raw}, nil
		}
		lastErr = fmt.Errorf("unparsable content (%d bytes)", len(raw))
	}

	bak, bakErr := os.ReadFile(backupPath(path))
	if bakErr == nil && validJSONDocument(bak) {
		s.logger.WithFields(logrus.Fields{
			"module": "storage",
			"path":   path,
		}).Warn("canonical file unreadable, recovered from backup")
		return ReadResult{Raw: bak}, nil
	}

	canonicalMissing := fileMissing(path)
	backupMissing := fileMissing(backupPath(path))
	if canonicalMissing && backupMissing {
		return ReadResult{Absent: true}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("backup unreadable")
	}
	return ReadResult{}, &CorruptDocumentError{Path: path, Cause: lastErr}
}

// ReadJSON decodes the document at path into out. Absence is reported via the
// returned flag with out untouched.
func (s *DocumentStore) ReadJSON(path string, out any) (bool, error) {
	res, err := s.Read(path)
	if err != nil {
		return false, err
	}
	if res.Absent {
		return false, nil
	}
	if err := json.Unmarshal(res.Raw, out); err != nil {
		return false, &CorruptDocumentError{Path: path, Cause: err}
	}
	return true, nil
}

// Write publishes doc at path under the path lock. The canonical file is
// never absent mid-write: content lands in a uniquely named temp sibling, the
// previous canonical content is copied to .bak best-effort, then the temp is
// renamed over the canonical path (copy+delete if rename fails).
func (s *DocumentStore) Write(path string, doc any) error {
	return s.locker.WithLock(path, func() error {
		return s.writeLocked(path, doc)
	})
}

// WriteLocked is Write for callers already holding the path lock via
// Locker().WithLock (read-modify-write sequences).
func (s *DocumentStore) WriteLocked(path string, doc any) error {
	return s.writeLocked(path, doc)
}

func (s *DocumentStore) writeLocked(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.%d.%d.%04d.tmp", path, os.Getpid(), time.Now().UnixNano(), rand.Intn(10000))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	// Refresh the backup from the current canonical content before the
	// publish. Failure here is non-fatal.
	if err := copyFile(path, backupPath(path)); err != nil && !os.IsNotExist(err) {
		s.logger.WithFields(logrus.Fields{
			"module": "storage",
			"path":   path,
		}).WithError(err).Warn("backup refresh failed")
	}

	if err := os.Rename(tmp, path); err != nil {
		// Cross-device fallback.
		if cpErr := copyFile(tmp, path); cpErr != nil {
			os.Remove(tmp)
			return err
		}
		os.Remove(tmp)
	}
	return nil
}

// Quarantine persists a rejected payload to a timestamped side file next to
// path, for forensic recovery after a blocked write.
func (s *DocumentStore) Quarantine(path string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	side := fmt.Sprintf("%s.rejected-%d.json", path, time.Now().UnixNano())
	if err := os.WriteFile(side, data, 0o644); err != nil {
		return "", err
	}
	return side, nil
}

func validJSONDocument(raw []byte) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return false
	}
	return json.Valid(raw)
}

func fileMissing(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
