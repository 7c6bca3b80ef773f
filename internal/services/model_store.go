package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var (
	modelBucket   = []byte("models")
	modelStateKey = []byte("state")
)

// ModelState bundles every scorer's persisted internals plus the corpus
// fingerprint they were fitted against.
type ModelState struct {
	Content       ContentState       `json:"content"`
	Collaborative CollaborativeState `json:"collaborative"`
	CorpusDigest  string             `json:"corpus_digest"`
	SavedAt       time.Time          `json:"saved_at"`
}

// CorpusDigest fingerprints an ordered course-id list. Any change in
// membership or order produces a different digest.
func CorpusDigest(courseIDs []string) string {
	h := sha256.Sum256([]byte(strings.Join(courseIDs, "\x00")))
	return hex.EncodeToString(h[:])
}

// ModelStore persists fitted model state in a bbolt file so process restarts
// skip refitting. Every operation is best-effort; the cache is an
// optimization, never a correctness requirement.
type ModelStore struct {
	path   string
	logger *logrus.Logger
}

// NewModelStore returns a store writing to path. An empty path disables
// persistence entirely.
func NewModelStore(path string, logger *logrus.Logger) *ModelStore {
	return &ModelStore{path: path, logger: logger}
}

// Enabled reports whether a store path was configured.
func (ms *ModelStore) Enabled() bool {
	return ms.path != ""
}

// Save writes the state, swallowing failures with a warning.
func (ms *ModelStore) Save(state *ModelState) {
	if !ms.Enabled() {
		return
	}
	if err := ms.save(state); err != nil {
		ms.logger.WithError(err).Warn("Failed to persist model state")
	}
}

func (ms *ModelStore) save(state *ModelState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal model state: %w", err)
	}

	db, err := bolt.Open(ms.path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open model store: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(modelBucket)
		if err != nil {
			return err
		}
		return bucket.Put(modelStateKey, data)
	})
}

// Load restores the persisted state. Returns (nil, false) when the store is
// disabled, the file is absent, or the stored state is unreadable.
func (ms *ModelStore) Load() (*ModelState, bool) {
	if !ms.Enabled() {
		return nil, false
	}
	state, err := ms.load()
	if err != nil {
		ms.logger.WithError(err).Debug("No usable persisted model state")
		return nil, false
	}
	return state, state != nil
}

func (ms *ModelStore) load() (*ModelState, error) {
	db, err := bolt.Open(ms.path, 0600, &bolt.Options{Timeout: time.Second, ReadOnly: false})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var data []byte
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(modelBucket)
		if bucket == nil {
			return nil
		}
		if raw := bucket.Get(modelStateKey); raw != nil {
			data = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}

	var state ModelState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("corrupt model state: %w", err)
	}
	return &state, nil
}
