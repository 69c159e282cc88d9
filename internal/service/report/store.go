package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	reportmodel "github.com/crowdshield/dashboard/backend/internal/model/report"
)

var ErrReportNotFound = errors.New("report not found")

// Store persists incident reports. List returns newest first.
type Store interface {
	Save(ctx context.Context, r reportmodel.Report) error
	Get(ctx context.Context, id string) (reportmodel.Report, error)
	List(ctx context.Context, state string, limit int) ([]reportmodel.Report, error)
	Close() error
}

// MemoryStore keeps reports in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]reportmodel.Report
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]reportmodel.Report)}
}

func (m *MemoryStore) Save(_ context.Context, r reportmodel.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.reports[r.ID] = r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (reportmodel.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return reportmodel.Report{}, ErrReportNotFound
	}
	return r, nil
}

func (m *MemoryStore) List(_ context.Context, state string, limit int) ([]reportmodel.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]reportmodel.Report, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.reports[m.order[i]]
		if !matchesState(r, state) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

const (
	reportPrefix = "report:"
	idPrefix     = "report-id:"
)

// BadgerStore writes each report under "report:{unixnano padded}:{id}" so a
// reverse prefix scan yields newest first. "report-id:{id}" points back at
// the primary key.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a store at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already opened database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func reportKey(r reportmodel.Report) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", reportPrefix, r.CreatedAt.UnixNano(), r.ID))
}

func (b *BadgerStore) Save(_ context.Context, r reportmodel.Report) error {
	value, err := json.Marshal(r)
	if err != nil {
		return err
	}
	key := reportKey(r)
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set([]byte(idPrefix+r.ID), key)
	})
}

func (b *BadgerStore) Get(_ context.Context, id string) (reportmodel.Report, error) {
	var r reportmodel.Report
	err := b.db.View(func(txn *badger.Txn) error {
		ref, err := txn.Get([]byte(idPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReportNotFound
		}
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReportNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &r)
		})
	})
	return r, err
}

func (b *BadgerStore) List(ctx context.Context, state string, limit int) ([]reportmodel.Report, error) {
	var out []reportmodel.Report
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(reportPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append([]byte(reportPrefix), []byte("9999999999999999999")...)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(out) == limit {
				break
			}
			var r reportmodel.Report
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &r)
			})
			if err != nil {
				return err
			}
			if matchesState(r, state) {
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func matchesState(r reportmodel.Report, state string) bool {
	return state == "" || strings.EqualFold(r.State, state)
}
