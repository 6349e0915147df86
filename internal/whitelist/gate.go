package whitelist

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type IDGen interface {
	New() (string, error)
}

// ulidGen: 同じミリ秒内でも単調増加するよう entropy を使い回す
type ulidGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newULIDGen() *ulidGen {
	return &ulidGen{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ulidGen) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Gate: メールアドレスのホワイトリスト。プロセスで1つ作って参照で渡す
type Gate struct {
	store Store
	cache *Cache
	clock Clock
	id    IDGen
}

type Option func(*Gate)

func WithClock(c Clock) Option { return func(g *Gate) { g.clock = c } }
func WithIDGen(id IDGen) Option { return func(g *Gate) { g.id = id } }

func NewGate(store Store, ttl time.Duration, opts ...Option) *Gate {
	g := &Gate{store: store, clock: realClock{}, id: newULIDGen()}
	for _, o := range opts {
		o(g)
	}
	g.cache = NewCache(g.loadSet, ttl, g.clock)
	return g
}

// Normalize lowercases and trims an email so every comparison is case-insensitive.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (g *Gate) loadSet(ctx context.Context) (map[string]struct{}, error) {
	entries, err := g.store.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[Normalize(e.Email)] = struct{}{}
	}
	return set, nil
}

// IsAuthorized: 空のメールは常に不許可
func (g *Gate) IsAuthorized(ctx context.Context, email string) (bool, error) {
	email = Normalize(email)
	if email == "" {
		return false, nil
	}
	set, err := g.cache.Get(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[email]
	return ok, nil
}

// ListAuthorized returns the authorized emails in sorted order.
func (g *Gate) ListAuthorized(ctx context.Context) ([]string, error) {
	set, err := g.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Strings(out)
	return out, nil
}

// Entries reads the full records (who added whom, when) straight from the store.
func (g *Gate) Entries(ctx context.Context) ([]Entry, error) {
	entries, err := g.store.List(ctx)
	if err != nil {
		return nil, ErrAuthCheckFailed(err)
	}
	return entries, nil
}

// AddAuthorized returns false when the email is already on the list.
func (g *Gate) AddAuthorized(ctx context.Context, email, addedBy string) (bool, error) {
	email = Normalize(email)
	if err := validateEmail(email); err != nil {
		return false, err
	}

	exists, err := g.store.Exists(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	id, err := g.id.New()
	if err != nil {
		return false, err
	}
	err = g.store.Insert(ctx, Entry{
		ULID:    id,
		Email:   email,
		AddedBy: Normalize(addedBy),
		AddedAt: g.clock.Now().UTC(),
	})
	if errors.Is(err, ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	g.cache.Apply(email, true)
	log.Printf("[INFO] whitelist: %s added by %s", email, Normalize(addedBy))
	return true, nil
}

// RemoveAuthorized returns false for self-removal or an unknown email.
func (g *Gate) RemoveAuthorized(ctx context.Context, email, actingEmail string) (bool, error) {
	email = Normalize(email)
	if email == "" || email == Normalize(actingEmail) {
		return false, nil
	}
	n, err := g.store.Delete(ctx, email)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	g.cache.Apply(email, false)
	log.Printf("[INFO] whitelist: %s removed by %s", email, Normalize(actingEmail))
	return true, nil
}

// Bootstrap adds the configured seed emails; ones already present are left alone.
func (g *Gate) Bootstrap(ctx context.Context, emails []string) error {
	for _, e := range emails {
		if strings.TrimSpace(e) == "" {
			continue
		}
		if _, err := g.AddAuthorized(ctx, e, "system"); err != nil {
			return err
		}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return ErrValidation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrValidation("email is not a valid address")
	}
	return nil
}
