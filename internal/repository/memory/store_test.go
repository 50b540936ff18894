package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenValue = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

var day = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func seedEmployee(t *testing.T, store *Store, id, name string) {
	t.Helper()
	_, err := NewEmployeeRepository(store).Create(context.Background(), employee.Employee{
		ID: id, Name: name, Position: "Engineer", Department: "IT", DOB: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func TestEmployeeRepository(t *testing.T) {
	store := NewStore()
	repo := NewEmployeeRepository(store)
	ctx := context.Background()

	seedEmployee(t, store, "emp2", "Budi")
	seedEmployee(t, store, "emp1", "Ana")

	_, err := repo.Create(ctx, employee.Employee{ID: "emp1"})
	assert.ErrorIs(t, err, employee.ErrEmployeeIDExists)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)

	_, err = repo.Update(ctx, employee.Employee{ID: "missing"})
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSessionRepository_LatestOpenAndQuery(t *testing.T) {
	store := NewStore()
	seedEmployee(t, store, "E1", "Ana")
	repo := NewSessionRepository(store)
	ctx := context.Background()

	out := day.Add(12 * time.Hour)
	first, err := repo.Create(ctx, attendance.Session{EmployeeID: "E1", Date: day, CheckIn: day.Add(9 * time.Hour)})
	require.NoError(t, err)
	first.CheckOut = &out
	_, err = repo.Update(ctx, first)
	require.NoError(t, err)

	open, err := repo.FindOpenSession(ctx, "E1", day)
	require.NoError(t, err)
	assert.Nil(t, open)

	second, err := repo.Create(ctx, attendance.Session{EmployeeID: "E1", Date: day, CheckIn: day.Add(13 * time.Hour)})
	require.NoError(t, err)

	open, err = repo.FindOpenSession(ctx, "E1", day)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, second.ID, open.ID)
	require.NotNil(t, open.EmployeeName)
	assert.Equal(t, "Ana", *open.EmployeeName)

	all, err := repo.Query(ctx, attendance.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	openOnly, err := repo.Query(ctx, attendance.SessionFilter{OpenOnly: true})
	require.NoError(t, err)
	assert.Len(t, openOnly, 1)

	next := day.AddDate(0, 0, 1)
	none, err := repo.Query(ctx, attendance.SessionFilter{StartDate: &next})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.Update(ctx, attendance.Session{ID: "missing"})
	assert.ErrorIs(t, err, attendance.ErrSessionNotFound)
}

func TestSessionRepository_ReturnsCopies(t *testing.T) {
	store := NewStore()
	seedEmployee(t, store, "E1", "Ana")
	repo := NewSessionRepository(store)
	ctx := context.Background()

	out := day.Add(17 * time.Hour)
	created, err := repo.Create(ctx, attendance.Session{EmployeeID: "E1", Date: day, CheckIn: day.Add(9 * time.Hour), CheckOut: &out})
	require.NoError(t, err)

	*created.CheckOut = day
	got, err := repo.FindLatestForDay(ctx, "E1", day)
	require.NoError(t, err)
	assert.Equal(t, out, *got.CheckOut)
}

func TestSessionRepository_CreateRequiresEmployee(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := NewSessionRepository(store).Create(ctx, attendance.Session{EmployeeID: "ghost", Date: day, CheckIn: day.Add(9 * time.Hour)})
	assert.ErrorIs(t, err, attendance.ErrUnknownEmployee)
	assert.Empty(t, store.sessions)
}

func TestEmployeeDelete_Cascades(t *testing.T) {
	store := NewStore()
	seedEmployee(t, store, "E1", "Ana")
	ctx := context.Background()

	_, err := NewSessionRepository(store).Create(ctx, attendance.Session{EmployeeID: "E1", Date: day, CheckIn: day.Add(9 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, NewTokenRepository(store).Save(ctx, attendance.Token{Value: tokenValue, EmployeeID: "E1", ExpiresAt: day.Add(time.Hour)}))

	require.NoError(t, NewEmployeeRepository(store).Delete(ctx, "E1"))

	assert.Empty(t, store.sessions)
	assert.Empty(t, store.tokens)
	assert.ErrorIs(t, NewEmployeeRepository(store).Delete(ctx, "E1"), employee.ErrEmployeeNotFound)
}

func TestTokenRepository_SingleUseAndExpiry(t *testing.T) {
	store := NewStore()
	repo := NewTokenRepository(store)
	ctx := context.Background()
	now := day.Add(9 * time.Hour)

	require.NoError(t, repo.Save(ctx, attendance.Token{Value: tokenValue, EmployeeID: "E1", ExpiresAt: now.Add(time.Minute)}))

	tok, err := repo.Consume(ctx, tokenValue, now)
	require.NoError(t, err)
	assert.Equal(t, "E1", tok.EmployeeID)

	_, err = repo.Consume(ctx, tokenValue, now)
	assert.ErrorIs(t, err, attendance.ErrExpiredOrUnknownToken)

	require.NoError(t, repo.Save(ctx, attendance.Token{Value: tokenValue, EmployeeID: "E1", ExpiresAt: now}))
	_, err = repo.Consume(ctx, tokenValue, now)
	assert.ErrorIs(t, err, attendance.ErrExpiredOrUnknownToken)

	purged, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestTransactor_RollbackUndoesEveryWrite(t *testing.T) {
	store := NewStore()
	seedEmployee(t, store, "E1", "Ana")
	ctx := context.Background()
	tx := NewTransactor(store)
	tokens := NewTokenRepository(store)
	sessions := NewSessionRepository(store)
	settings := NewSettingRepository(store)
	now := day.Add(9 * time.Hour)

	require.NoError(t, tokens.Save(ctx, attendance.Token{Value: tokenValue, EmployeeID: "E1", ExpiresAt: now.Add(time.Minute)}))

	boom := errors.New("boom")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := tokens.Consume(ctx, tokenValue, now); err != nil {
			return err
		}
		if _, err := sessions.Create(ctx, attendance.Session{EmployeeID: "E1", Date: day, CheckIn: now}); err != nil {
			return err
		}
		if _, err := settings.Set(ctx, setting.Default()); err != nil {
			return err
		}
		if err := NewEmployeeRepository(store).Delete(ctx, "E1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Len(t, store.tokens, 1)
	assert.Empty(t, store.sessions)
	assert.Nil(t, store.settings)
	assert.Contains(t, store.employees, "E1")
	assert.Equal(t, 0, store.employeeLocks.Len())
}

func TestTransactor_CommitKeepsWritesAndJoinsNested(t *testing.T) {
	store := NewStore()
	seedEmployee(t, store, "E1", "Ana")
	tx := NewTransactor(store)
	sessions := NewSessionRepository(store)

	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, sessions.LockEmployee(ctx, "E1"))
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			_, err := sessions.Create(ctx, attendance.Session{EmployeeID: "E1", Date: day, CheckIn: day.Add(9 * time.Hour)})
			return err
		})
	})
	require.NoError(t, err)
	assert.Len(t, store.sessions, 1)
	assert.Equal(t, 0, store.employeeLocks.Len())
}

func TestLockEmployee_RequiresTransaction(t *testing.T) {
	assert.Error(t, NewSessionRepository(NewStore()).LockEmployee(context.Background(), "E1"))
}
