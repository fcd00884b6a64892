package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
	"github.com/tbourn/go-wellbeing-backend/internal/repo"
	"github.com/tbourn/go-wellbeing-backend/internal/survey"
)

// ----- DB + repo shim -----

// newDB opens a migrated WAL database under t.TempDir; concurrency tests
// need real file locking rather than a shared in-memory cache.
func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// store forwards to the repo package functions.
type store struct{}

func (store) CreateUser(ctx context.Context, db *gorm.DB, pid, token, name string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, pid, token, name)
}
func (store) GetUserByPlatformID(ctx context.Context, db *gorm.DB, pid string) (*domain.User, error) {
	return repo.GetUserByPlatformID(ctx, db, pid)
}
func (store) GetUserByToken(ctx context.Context, db *gorm.DB, token string) (*domain.User, error) {
	return repo.GetUserByToken(ctx, db, token)
}
func (store) UpdateDisplayName(ctx context.Context, db *gorm.DB, id, name string) error {
	return repo.UpdateDisplayName(ctx, db, id, name)
}
func (store) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}
func (store) ClaimDailyDispatch(ctx context.Context, db *gorm.DB, userID, date string, now time.Time) (*domain.DailyDispatchRecord, error) {
	return repo.ClaimDailyDispatch(ctx, db, userID, date, now)
}
func (store) ListResolvedResponses(ctx context.Context, db *gorm.DB) ([]domain.SurveyResponse, error) {
	return repo.ListResolvedResponses(ctx, db)
}
func (store) ListResponsesByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.SurveyResponse, error) {
	return repo.ListResponsesByUser(ctx, db, userID)
}
func (store) UsersStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.UsersStats(ctx, db)
}
func (store) ResponsesStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.ResponsesStats(ctx, db, userID)
}

// ----- Fakes -----

type statusErr int

func (e statusErr) Error() string   { return "status " + strconv.Itoa(int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

type sentMsg struct {
	Kind string // push|reply
	To   string
	Text string
}

// fakeMessenger records calls and returns queued errors in order.
type fakeMessenger struct {
	mu    sync.Mutex
	calls []sentMsg
	errs  []error
	delay time.Duration
}

func (m *fakeMessenger) next(kind, to, text string) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sentMsg{Kind: kind, To: to, Text: text})
	if len(m.errs) == 0 {
		return nil
	}
	err := m.errs[0]
	m.errs = m.errs[1:]
	return err
}

func (m *fakeMessenger) PushText(_ context.Context, to, text string) error {
	return m.next("push", to, text)
}

func (m *fakeMessenger) ReplyText(_ context.Context, token, text string) error {
	return m.next("reply", token, text)
}

func (m *fakeMessenger) Calls() []sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMsg(nil), m.calls...)
}

type fakeProfiles struct {
	name string
	err  error
}

func (p fakeProfiles) DisplayName(context.Context, string) (string, error) { return p.name, p.err }

// ----- Fixtures -----

func mustCatalog(t *testing.T) *survey.Catalog {
	t.Helper()
	c, err := survey.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

// formPayload renders a submission answering every catalog question with
// the choice at ordinals[i%len(ordinals)] (0-based).
func formPayload(t *testing.T, c *survey.Catalog, token, submittedAt string, ordinals ...int) []byte {
	t.Helper()
	if len(ordinals) == 0 {
		ordinals = []int{0}
	}
	resp := map[string][]string{}
	if token != "" {
		resp[c.TokenLabel] = []string{token}
	}
	for i, q := range c.Questions {
		resp[q.Label] = []string{q.Choices[ordinals[i%len(ordinals)]]}
	}
	b, err := json.Marshal(map[string]any{"submitted_at": submittedAt, "responses": resp})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
