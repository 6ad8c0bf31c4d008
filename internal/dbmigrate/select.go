package dbmigrate

import (
	"fmt"

	"github.com/fdg312/fitclub/internal/config"
)

// Selection is the database URL chosen for DDL and where it came from.
type Selection struct {
	URL     string
	Source  string
	Warning string
}

// SelectDatabaseURL picks the URL for migrations: DIRECT > DATABASE_URL > POOLED (with warning).
// With requireDirect only DATABASE_URL_DIRECT is accepted.
func SelectDatabaseURL(cfg *config.Config, requireDirect bool) (Selection, error) {
	candidates := []Selection{
		{URL: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"},
		{URL: cfg.DatabaseURLRaw, Source: "DATABASE_URL"},
		{URL: cfg.DatabaseURLPooled, Source: "DATABASE_URL_POOLED", Warning: "using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT"},
	}
	if requireDirect {
		candidates = candidates[:1]
	}

	for _, c := range candidates {
		if c.URL != "" {
			return c, nil
		}
	}

	if requireDirect {
		return Selection{}, fmt.Errorf("DATABASE_URL_DIRECT is required for DDL/migrations")
	}
	return Selection{}, fmt.Errorf("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")
}
