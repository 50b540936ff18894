package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/transaction"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/keylock"
)

// Store is the shared in-process state behind every memory repository.
// Writes apply immediately; inside WithinTransaction each write also records
// an undo step that is replayed in reverse when the transaction fails.
type Store struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee
	sessions  map[string]attendance.Session
	tokens    map[string]attendance.Token
	settings  *setting.Configuration

	employeeLocks *keylock.KeyLock
}

func NewStore() *Store {
	return &Store{
		employees:     make(map[string]employee.Employee),
		sessions:      make(map[string]attendance.Session),
		tokens:        make(map[string]attendance.Token),
		employeeLocks: keylock.New(),
	}
}

type journalKey struct{}

type journal struct {
	mu       sync.Mutex
	undo     []func()
	releases []func()
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

// record registers an undo step. Callers hold s.mu.
func (s *Store) record(ctx context.Context, undo func()) {
	j := journalFrom(ctx)
	if j == nil {
		return
	}
	j.mu.Lock()
	j.undo = append(j.undo, undo)
	j.mu.Unlock()
}

func (s *Store) lockEmployee(ctx context.Context, employeeID string) error {
	j := journalFrom(ctx)
	if j == nil {
		return fmt.Errorf("lock employee %s: no transaction in context", employeeID)
	}
	unlock := s.employeeLocks.Lock(employeeID)
	j.mu.Lock()
	j.releases = append(j.releases, unlock)
	j.mu.Unlock()
	return nil
}

type transactor struct {
	store *Store
}

func NewTransactor(store *Store) transaction.Transactor {
	return &transactor{store: store}
}

// WithinTransaction implements transaction.Transactor. A call made while a
// transaction is already in ctx joins it.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	j := &journal{}
	txCtx := context.WithValue(ctx, journalKey{}, j)

	defer func() {
		p := recover()
		if err != nil || p != nil {
			t.store.mu.Lock()
			for i := len(j.undo) - 1; i >= 0; i-- {
				j.undo[i]()
			}
			t.store.mu.Unlock()
		}
		for i := len(j.releases) - 1; i >= 0; i-- {
			j.releases[i]()
		}
		if p != nil {
			panic(p)
		}
	}()

	return fn(txCtx)
}
