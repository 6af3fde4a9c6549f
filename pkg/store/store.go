package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const intentsFile = "intents.json"

// IntentRecord stores the intents issued for one flow key of one mapping
type IntentRecord struct {
	Owner   string      `json:"owner"`
	Key     string      `json:"key"`
	Intents []uuid.UUID `json:"intents"`
	Updated time.Time   `json:"updated"`
}

// Withdrawer removes intents from the intent service
type Withdrawer interface {
	Withdraw(ctx context.Context, id uuid.UUID) error
}

// Store journals the intents installed by the mappings of this process
type Store struct {
	dataDir string
	mu      sync.RWMutex
	records map[string]*IntentRecord
	logger  *logrus.Logger
}

// NewStore creates a new persistent store
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "/data"
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.GetLevel())

	s := &Store{
		dataDir: dataDir,
		records: make(map[string]*IntentRecord),
		logger:  logger,
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return s, nil
}

func recordID(owner, key string) string {
	return owner + "|" + key
}

// Record replaces the intents journaled for (owner, key). An empty list
// drops the record.
func (s *Store) Record(owner, key string, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		delete(s.records, recordID(owner, key))
		return s.persist()
	}

	s.records[recordID(owner, key)] = &IntentRecord{
		Owner:   owner,
		Key:     key,
		Intents: append([]uuid.UUID(nil), ids...),
		Updated: time.Now().UTC(),
	}
	return s.persist()
}

// Forget drops the record of (owner, key)
func (s *Store) Forget(owner, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[recordID(owner, key)]; !ok {
		return nil
	}
	delete(s.records, recordID(owner, key))
	return s.persist()
}

// GetRecord retrieves the record of (owner, key)
func (s *Store) GetRecord(owner, key string) (*IntentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[recordID(owner, key)]
	if !ok {
		return nil, fmt.Errorf("record %s not found", recordID(owner, key))
	}
	return record, nil
}

// ListRecords returns all records ordered by owner and key
func (s *Store) ListRecords() []*IntentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*IntentRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return recordID(records[i].Owner, records[i].Key) < recordID(records[j].Owner, records[j].Key)
	})
	return records
}

// Recover withdraws every journaled intent. Intents left by a previous run
// are not referenced by any mapping anymore. Records whose intents could not
// all be withdrawn are kept, trimmed to the failed ids, for the next attempt.
func (s *Store) Recover(ctx context.Context, svc Withdrawer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Recovering journaled intents: %d records", len(s.records))

	var result *multierror.Error
	withdrawn := 0
	for id, record := range s.records {
		var failed []uuid.UUID
		for _, intentID := range record.Intents {
			if err := svc.Withdraw(ctx, intentID); err != nil {
				s.logger.WithError(err).Warnf("Failed to withdraw orphaned intent %s (%s %q)", intentID, record.Owner, record.Key)
				result = multierror.Append(result, err)
				failed = append(failed, intentID)
				continue
			}
			withdrawn++
		}

		if len(failed) == 0 {
			delete(s.records, id)
		} else {
			record.Intents = failed
		}
	}

	if err := s.persist(); err != nil {
		result = multierror.Append(result, err)
	}
	return withdrawn, result.ErrorOrNil()
}

// persist saves state to disk
func (s *Store) persist() error {
	file := filepath.Join(s.dataDir, intentsFile)
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal intent records: %w", err)
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("failed to write intents file: %w", err)
	}
	return nil
}

// load reads state from disk
func (s *Store) load() error {
	file := filepath.Join(s.dataDir, intentsFile)
	if data, err := os.ReadFile(file); err == nil {
		if err := json.Unmarshal(data, &s.records); err != nil {
			return fmt.Errorf("failed to unmarshal intent records: %w", err)
		}
	}
	return nil
}
