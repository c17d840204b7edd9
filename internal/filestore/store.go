// Package filestore keeps shared code snippets in redis until their chosen
// expiry elapses.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ngocnhiem/online-ide/internal/models"
	iredis "github.com/ngocnhiem/online-ide/internal/redis"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidExpiry        = errors.New("invalid expiry time")
	ErrInvalidLanguage      = errors.New("invalid language tag")
	ErrInvalidLocator       = errors.New("invalid share id")
	ErrConfirmationMismatch = errors.New("share id confirmation mismatch")
	ErrNotFound             = errors.New("file not found")
	ErrExpired              = errors.New("file has expired")
	ErrForbidden            = errors.New("file belongs to another user")
	ErrUnavailable          = iredis.ErrUnavailable
)

// ExpiryLayout formats the absolute expiry shown to users.
const ExpiryLayout = "2006-01-02 15:04:05 UTC"

// DefaultGrace is how long the expiry marker outlives the record.
const DefaultGrace = 24 * time.Hour

// ValidExpiries lists the accepted lifetimes in minutes.
func ValidExpiries() []int {
	return []int{10, 30, 60, 1440, 10080}
}

// ValidExpiry reports whether minutes is one of ValidExpiries.
func ValidExpiry(minutes int) bool {
	for _, v := range ValidExpiries() {
		if v == minutes {
			return true
		}
	}
	return false
}

// Upload is a snippet to be shared.
type Upload struct {
	Title         string
	Code          string
	Language      string
	ExpiryMinutes int
	Owner         string
}

// Store persists shared files. Every call checks out its own connection.
type Store struct {
	client  *iredis.Client
	baseURL string
	grace   time.Duration
	now     func() time.Time
}

// New returns a store that builds share links under baseURL.
func New(client *iredis.Client, baseURL string) *Store {
	return &Store{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		grace:   DefaultGrace,
		now:     time.Now,
	}
}

// WithClock replaces the clock used to compute expiry timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func dataKey(locator string) string   { return "file:" + locator + ":data" }
func markerKey(locator string) string { return "file:" + locator + ":expiry" }

func validLanguage(lang string) bool {
	if lang == "" {
		return false
	}
	for _, r := range lang {
		if r == '-' || r == ':' || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func splitLocator(locator string) (string, string, error) {
	lang, id, ok := strings.Cut(locator, "-")
	if !ok || lang == "" || id == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return lang, id, nil
}

// Put stores up and returns where it can be fetched.
func (s *Store) Put(ctx context.Context, up Upload) (*models.ShareReceipt, error) {
	if !ValidExpiry(up.ExpiryMinutes) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidExpiry, up.ExpiryMinutes)
	}
	if !validLanguage(up.Language) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, up.Language)
	}

	ttl := time.Duration(up.ExpiryMinutes) * time.Minute
	expiresAt := s.now().UTC().Add(ttl)
	record := models.SharedFile{
		Title:      up.Title,
		Code:       up.Code,
		Language:   up.Language,
		ExpiryTime: expiresAt.Format(ExpiryLayout),
		Owner:      up.Owner,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode file: %w", err)
	}
	locator := up.Language + "-" + uuid.NewString()

	conn, release, err := s.client.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	_, err = conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, dataKey(locator), data, ttl)
		pipe.Set(ctx, markerKey(locator), expiresAt.Unix(), ttl+s.grace)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	return &models.ShareReceipt{
		Locator:    locator,
		FileURL:    s.baseURL + "/file/" + locator,
		ExpiryTime: record.ExpiryTime,
	}, nil
}

// Get returns the record behind locator. confirmation must repeat the
// locator. The owner is never included in the result.
func (s *Store) Get(ctx context.Context, locator, confirmation string) (*models.SharedFile, error) {
	if confirmation == "" || confirmation != locator {
		return nil, ErrConfirmationMismatch
	}
	if _, _, err := splitLocator(locator); err != nil {
		return nil, err
	}

	conn, release, err := s.client.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		getCmd    *redis.StringCmd
		ttlCmd    *redis.DurationCmd
		markerCmd *redis.IntCmd
	)
	_, err = conn.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, dataKey(locator))
		ttlCmd = pipe.TTL(ctx, dataKey(locator))
		markerCmd = pipe.Exists(ctx, markerKey(locator))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load file: %w", err)
	}

	gone := func() error {
		if markerCmd.Val() > 0 {
			return ErrExpired
		}
		return ErrNotFound
	}

	switch ttl := ttlCmd.Val(); {
	case ttl == -2:
		return nil, gone()
	case ttl == -1 || ttl == 0:
		return nil, ErrExpired
	}

	raw, err := getCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gone()
	}
	if err != nil {
		return nil, fmt.Errorf("load file: %w", err)
	}
	var record models.SharedFile
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode file: %w", err)
	}
	return record.Public(), nil
}

// Delete removes the record and its expiry marker. A record uploaded by a
// known subject can only be deleted by that subject.
func (s *Store) Delete(ctx context.Context, locator, subject string) error {
	if _, _, err := splitLocator(locator); err != nil {
		return err
	}

	conn, release, err := s.client.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	raw, err := conn.Get(ctx, dataKey(locator)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}
	var record models.SharedFile
	if err := json.Unmarshal(raw, &record); err != nil {
		return fmt.Errorf("decode file: %w", err)
	}
	if record.Owner != "" && record.Owner != subject {
		return ErrForbidden
	}

	_, err = conn.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, dataKey(locator), markerKey(locator))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
