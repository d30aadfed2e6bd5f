package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andrebq/rolegate/identity"
	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"
)

func openUsersDatabase(ctx context.Context, file string, readwrite bool) (*sql.DB, error) {
	var connstr string
	if readwrite {
		err := os.MkdirAll(filepath.Dir(file), 0755)
		if err != nil {
			return nil, fmt.Errorf("unable to create directory to store %v, cause %w", file, err)
		}
		connstr = fmt.Sprintf("file:%v?_writable_schema=false&mode=rwc", file)
	} else {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("unable to open users database %v, cause %w", file, err)
		}
		connstr = fmt.Sprintf("file:%v?_writable_schema=false&mode=ro", file)
	}
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %w", file, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping users database %v, cause %w", file, err)
	}
	return conn, nil
}

func initUsersDatabase(ctx context.Context, db *sql.DB) error {
	for _, cmd := range []string{
		`create table if not exists users(
			username text not null primary key,
			username_hash64 integer not null,
			password_hash text not null,
			roles text not null
		)`,
		`create index if not exists idx_users_username_hash64
			on users(username_hash64)`,
	} {
		_, err := db.ExecContext(ctx, cmd)
		if err != nil {
			return fmt.Errorf("unable to initialize users database, cause %w", err)
		}
	}
	return nil
}

// LoadDatabase reads every user of the SQLite database at file.
// The database is opened read-only and closed before returning.
func LoadDatabase(ctx context.Context, file string) ([]Record, error) {
	db, err := openUsersDatabase(ctx, file, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `select username, password_hash, roles from users order by username asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list users from %v, cause %w", file, err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var roles string
		err = rows.Scan(&rec.Username, &rec.PasswordHash, &roles)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user from %v, cause %w", file, err)
		}
		rec.Roles = identity.ParseRoles(roles)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to list users from %v, cause %w", file, err)
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Str("users.db", file).Int("users", len(out)).Msg("Users loaded")
	return out, nil
}

// AddToDatabase stores rec in the database at file, creating the
// database if needed. Adding an existing username is a ConfigurationError.
func AddToDatabase(ctx context.Context, file string, rec Record) error {
	if rec.Username == "" {
		return ConfigurationError{Reason: "empty username"}
	} else if rec.PasswordHash == "" {
		return ConfigurationError{Username: rec.Username, Reason: "missing password hash"}
	}
	db, err := openUsersDatabase(ctx, file, true)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := initUsersDatabase(ctx, db); err != nil {
		return err
	}
	hash := usernameHash(rec.Username)
	var existing int
	err = db.QueryRowContext(ctx, `select count(*) from users where username_hash64 = ? and username = ?`, hash, rec.Username).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("unable to check for user %v, cause %w", rec.Username, err)
	} else if existing > 0 {
		return ConfigurationError{Username: rec.Username, Reason: "duplicated username"}
	}
	_, err = db.ExecContext(ctx, `insert into users(username, username_hash64, password_hash, roles) values (?, ?, ?, ?)`,
		rec.Username, hash, rec.PasswordHash, identity.JoinRoles(rec.Roles))
	if err != nil {
		return fmt.Errorf("unable to store user %v, cause %w", rec.Username, err)
	}
	return nil
}

func usernameHash(username string) int64 {
	return int64(xxhash.Sum64String(username))
}
