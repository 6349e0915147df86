package whitelist

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	mysql "github.com/go-sql-driver/mysql"
)

var ErrDuplicate = errors.New("email already authorized")

// Entry: authorized_emails の1行。Email は小文字で保存する
type Entry struct {
	ULID    string    `json:"id"`
	Email   string    `json:"email"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

type Store interface {
	List(ctx context.Context) ([]Entry, error)
	Exists(ctx context.Context, email string) (bool, error)
	// Insert returns ErrDuplicate when the email is already present.
	Insert(ctx context.Context, e Entry) error
	Delete(ctx context.Context, email string) (int64, error)
}

// MySQLStore
//
//	CREATE TABLE authorized_emails (
//	  entry_ulid CHAR(26)     NOT NULL PRIMARY KEY,
//	  email      VARCHAR(254) NOT NULL,
//	  added_by   VARCHAR(254) NOT NULL,
//	  added_at   DATETIME(6)  NOT NULL,
//	  UNIQUE KEY uq_authorized_emails_email (email)
//	);
type MySQLStore struct{ db *sql.DB }

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT entry_ulid, email, added_by, added_at
	FROM authorized_emails
	ORDER BY email ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ULID, &e.Email, &e.AddedBy, &e.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *MySQLStore) Exists(ctx context.Context, email string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
	SELECT 1 FROM authorized_emails WHERE email = ? LIMIT 1`, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MySQLStore) Insert(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO authorized_emails (entry_ulid, email, added_by, added_at)
	VALUES (?, ?, ?, ?)`, e.ULID, e.Email, e.AddedBy, e.AddedAt.UTC())
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MySQLStore) Delete(ctx context.Context, email string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM authorized_emails WHERE email = ?`, email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}

// MemoryStore: dev モードとテスト用
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]Entry
	listErr   error
	listCalls int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *MemoryStore) Exists(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[email]
	return ok, nil
}

func (s *MemoryStore) Insert(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.Email]; ok {
		return ErrDuplicate
	}
	s.entries[e.Email] = e
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[email]; !ok {
		return 0, nil
	}
	delete(s.entries, email)
	return 1, nil
}

// FailList makes List return err until called again with nil.
func (s *MemoryStore) FailList(err error) {
	s.mu.Lock()
	s.listErr = err
	s.mu.Unlock()
}

func (s *MemoryStore) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}
