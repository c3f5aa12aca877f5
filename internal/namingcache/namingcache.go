package namingcache

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"flightstrip/internal/config"
	"flightstrip/internal/naming"
	"flightstrip/internal/services"
)

// Entry is one cached scheme.
type Entry struct {
	Key    string
	Scheme naming.Scheme
	// CachedAt is zero for backends whose format carries no timestamps.
	CachedAt time.Time
}

// Backend is a naming scheme store.
type Backend interface {
	naming.Cache
	Remove(key string) error
	List() ([]Entry, error)
	Clear() error
	Count() (int, error)
	Path() string
	Kind() string
	Close() error
}

// Open returns the backend selected by cfg.NamingCache.
func Open(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.NamingCache.Backend)) {
	case "", "json":
		return NewFileStore(cfg.NamingCache.Path, logger), nil
	case "sqlite":
		return OpenSQLite(cfg.NamingCache.Path, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "naming_cache", "open",
			fmt.Sprintf("unknown backend %q", cfg.NamingCache.Backend), nil)
	}
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "naming_cache", "", "block key cannot be empty", nil)
	}
	return key, nil
}

func notFound(key string) error {
	return services.Wrap(services.ErrNotFound, "naming_cache", "remove",
		fmt.Sprintf("block %q not found in naming cache", key), nil)
}

func cloneScheme(s naming.Scheme) naming.Scheme {
	kept := make(map[int]int, len(s.Kept))
	for p, c := range s.Kept {
		kept[p] = c
	}
	return naming.Scheme{Kept: kept, Separator: s.Separator}
}
