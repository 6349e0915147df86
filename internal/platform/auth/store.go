package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	mysql "github.com/go-sql-driver/mysql"
)

// Account: ログイン用アカウント。出欠表へのアクセス可否はホワイトリスト側で判定する
type Account struct {
	Email        string
	PasswordHash string
	IsDisabled   bool
	CreatedAt    time.Time
}

type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	UpdatePassword(ctx context.Context, email, hash string) (int64, error)
}

// MySQLStore
//
//	CREATE TABLE auth_accounts (
//	  email         VARCHAR(254) NOT NULL PRIMARY KEY,
//	  password_hash VARCHAR(100) NOT NULL,
//	  is_disabled   TINYINT(1) NOT NULL DEFAULT 0,
//	  created_at    DATETIME(6) NOT NULL
//	);
type MySQLStore struct{ db *sql.DB }

func NewMySQLStore(db *sql.DB) AccountStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	const q = `
SELECT email, password_hash, is_disabled, created_at
FROM auth_accounts
WHERE email = ?
LIMIT 1
`
	var a Account
	var isDisabledInt int
	err := s.db.QueryRowContext(ctx, q, email).Scan(
		&a.Email,
		&a.PasswordHash,
		&isDisabledInt,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.IsDisabled = isDisabledInt != 0
	return &a, nil
}

func (s *MySQLStore) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO auth_accounts (email, password_hash, is_disabled, created_at)
VALUES (?, ?, 0, UTC_TIMESTAMP(6))
`
	_, err := s.db.ExecContext(ctx, q, a.Email, a.PasswordHash)
	if isDuplicateKey(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *MySQLStore) UpdatePassword(ctx context.Context, email, hash string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE auth_accounts SET password_hash = ? WHERE email = ?`, hash, email)
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

// MemoryStore: DBなしで動かす dev モード用
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryStore) Create(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Email]; ok {
		return ErrAlreadyExists
	}
	acct := *a
	acct.CreatedAt = time.Now().UTC()
	s.accounts[a.Email] = acct
	return nil
}

func (s *MemoryStore) UpdatePassword(ctx context.Context, email, hash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		return 0, nil
	}
	a.PasswordHash = hash
	s.accounts[email] = a
	return 1, nil
}
