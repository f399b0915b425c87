package cli

import (
	"fmt"
	"strings"

	"github.com/streamingfast/uniswap-v2-indexer/store"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openStore maps a store URL to a backend. The returned closer is never nil.
func openStore(url string) (store.Store, func() error, error) {
	noop := func() error { return nil }

	scheme, rest, _ := strings.Cut(url, "://")
	switch scheme {
	case "", "memory":
		return store.NewMemory(), noop, nil

	case "leveldb":
		if rest == "" {
			return nil, nil, fmt.Errorf("leveldb store needs a path, e.g. leveldb://./data")
		}
		db, err := store.NewLevelDB(rest)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil

	case "postgres", "postgresql":
		return openGorm(postgres.Open(url))

	case "mysql":
		// gorm's mysql driver takes a bare go-sql-driver DSN
		return openGorm(mysql.Open(rest))

	case "sqlite":
		return openGorm(sqlite.Open(rest))
	}

	return nil, nil, fmt.Errorf("unsupported store %q, expected memory, leveldb://, postgres://, mysql:// or sqlite://", url)
}

func openGorm(dialector gorm.Dialector) (store.Store, func() error, error) {
	s, err := store.NewGorm(dialector)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
