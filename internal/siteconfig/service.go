package siteconfig

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
)

const defaultCacheTTL = 30 * time.Second

// Entry is one key as shown to administrators. Secret values are masked.
type Entry struct {
	Key       string `json:"key"`
	Kind      Kind   `json:"kind"`
	Value     string `json:"value"`
	IsDefault bool   `json:"is_default"`
}

// Service reads the typed settings through a short-lived cache and validates writes.
type Service struct {
	repo Repository
	ttl  time.Duration
	logg *logger.Logger
	now  func() time.Time

	mu       sync.RWMutex
	cached   *Settings
	loadedAt time.Time
}

func NewService(repo Repository, ttl time.Duration, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("site config repository required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{repo: repo, ttl: ttl, logg: logg, now: time.Now}, nil
}

// Load returns the current settings, hitting the database at most once per TTL.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	s.mu.RLock()
	if s.cached != nil && s.now().Sub(s.loadedAt) < s.ttl {
		out := *s.cached
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	rows, err := s.repo.All(ctx)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load site config")
	}
	raw := make(map[string]string, len(rows))
	for _, row := range rows {
		raw[row.Key] = row.Value
	}
	settings, invalid := build(raw)
	if len(invalid) > 0 && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "keys", strings.Join(invalid, ",")), "siteconfig.invalid_values_ignored")
	}

	s.mu.Lock()
	s.cached = &settings
	s.loadedAt = s.now()
	s.mu.Unlock()
	return settings, nil
}

// Set validates and stores one key, then drops the cache.
func (s *Service) Set(ctx context.Context, key, value string) (Entry, error) {
	field, ok := Lookup(key)
	if !ok {
		return Entry{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown setting %q", key)
	}
	normalized, err := field.Normalize(value)
	if err != nil {
		return Entry{}, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if err := s.repo.Upsert(ctx, key, normalized); err != nil {
		return Entry{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save site config")
	}
	s.Invalidate()
	return Entry{Key: key, Kind: field.Kind, Value: mask(field, normalized)}, nil
}

// Entries lists every schema key with its stored or default value.
func (s *Service) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load site config")
	}
	stored := make(map[string]string, len(rows))
	for _, row := range rows {
		stored[row.Key] = row.Value
	}
	out := make([]Entry, 0, len(Schema))
	for _, f := range Schema {
		value, ok := stored[f.Key]
		if !ok {
			value = f.Default
		}
		out = append(out, Entry{Key: f.Key, Kind: f.Kind, Value: mask(f, value), IsDefault: !ok})
	}
	return out, nil
}

func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// PushinPayToken is a pushinpay.TokenSource. Lookup failures return "" so the
// client falls back to its static token.
func (s *Service) PushinPayToken(ctx context.Context) string {
	settings, err := s.Load(ctx)
	if err != nil {
		return ""
	}
	return settings.PushinPayBearerToken
}

func mask(f Field, value string) string {
	if f.Kind != KindSecret || value == "" {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
