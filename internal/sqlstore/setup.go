package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"messenger/internal/config"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Dialect holds the few statements that differ between sqlite and mysql.
type Dialect struct {
	Driver string
	// column definition of the message sequence, keeps insertion order
	sequenceColumn string
	// names compare case sensitively in both
	nameType      string
	upsertCounter string
}

var (
	SQLite = Dialect{
		Driver:         "sqlite",
		sequenceColumn: "seq INTEGER PRIMARY KEY AUTOINCREMENT",
		nameType:       "TEXT",
		upsertCounter:  "INSERT INTO counters (name, last_id) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET last_id = excluded.last_id",
	}
	MySQL = Dialect{
		Driver:         "mysql",
		sequenceColumn: "seq BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT",
		nameType:       "VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin",
		upsertCounter:  "INSERT INTO counters (name, last_id) VALUES (?, ?) ON DUPLICATE KEY UPDATE last_id = VALUES(last_id)",
	}
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func readPragmaValues(db *sql.DB, sugar *zap.SugaredLogger) error {
	var foreignKeysValue bool
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeysValue)
	if err != nil {
		return err
	}
	sugar.Debugf("sqlite PRAGMA foreign_keys: %t", foreignKeysValue)

	var journalModeValue string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&journalModeValue)
	if err != nil {
		return err
	}
	sugar.Debugf("sqlite PRAGMA journal_mode: %s", journalModeValue)

	var synchronousValue int
	err = db.QueryRow("PRAGMA synchronous").Scan(&synchronousValue)
	if err != nil {
		return err
	}

	var synchronousValueStr string
	switch synchronousValue {
	case 0:
		synchronousValueStr = "off"
	case 1:
		synchronousValueStr = "normal"
	case 2:
		synchronousValueStr = "full"
	case 3:
		synchronousValueStr = "extra"
	default:
		return fmt.Errorf("synchronous value is unsupported")
	}

	sugar.Debugf("sqlite PRAGMA synchronous: %s", synchronousValueStr)

	return nil
}

// OpenSQLite opens the database file at path.
func OpenSQLite(path string, sugar *zap.SugaredLogger) (*sql.DB, error) {
	sugar.Infof("Connecting to database sqlite at [%s]...", path)

	db, err := sql.Open(SQLite.Driver, path)
	if err != nil {
		return nil, err
	}

	// there can be sqlite busy errors if this is not set to 1
	db.SetMaxOpenConns(1)

	if err := setPragmaValues(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := readPragmaValues(db, sugar); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func OpenMySQL(cfg *config.Config, sugar *zap.SugaredLogger) (*sql.DB, error) {
	sugar.Infof("Connecting to database mysql/mariadb at [%s:%s]...", cfg.DbAddress, cfg.DbPort)

	db, err := sql.Open(MySQL.Driver, fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Setup opens the database the config selects and returns a store on it.
func Setup(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*Store, error) {
	var db *sql.DB
	var dialect Dialect
	var err error

	switch cfg.Backend {
	case config.BackendSQLite:
		db, err = OpenSQLite(cfg.SqlitePath, sugar)
		dialect = SQLite
	case config.BackendMySQL:
		db, err = OpenMySQL(cfg, sugar)
		dialect = MySQL
	default:
		return nil, fmt.Errorf("backend [%s] is not a sql backend", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	s, err := New(ctx, db, dialect, sugar)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func setupTables(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var err error

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS users (
				id BIGINT PRIMARY KEY,
				name %s NOT NULL UNIQUE,
				position BIGINT NOT NULL
			);
		`, dialect.nameType))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS channels (
				id BIGINT PRIMARY KEY,
				name %s NOT NULL UNIQUE
			);
		`, dialect.nameType))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS channel_members (
				channel_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				position BIGINT NOT NULL,
				PRIMARY KEY (channel_id, user_id),
				FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	// sender_id has no foreign key, messages outlive banned users
	_, err = db.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS messages (
				%s,
				sender_id BIGINT NOT NULL,
				channel_id BIGINT NOT NULL,
				content TEXT NOT NULL,
				FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE
			);
		`, dialect.sequenceColumn))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS counters (
				name VARCHAR(32) PRIMARY KEY,
				last_id BIGINT NOT NULL
			);
		`)
	if err != nil {
		return err
	}

	return nil
}
