package persistence

import (
	"fmt"

	"github.com/wfunc/fruitbox/config"
)

// Open builds the store selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Store, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "gorm", "":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sqlite":
		return NewSQLite(cfg.SQLite.Path)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
