// Package storage persists the configured server list and per-server access
// tokens between runs. Data lives in a SQLite file under the user config
// directory; tokens are sealed with a key derived from a machine-local
// secret, so the database alone is not enough to reuse a session.
package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/ita-prog/worryless/internal/cryptox"
	"github.com/ita-prog/worryless/internal/dbx"
	"github.com/ita-prog/worryless/internal/filex"
	"github.com/ita-prog/worryless/internal/models"
	"github.com/ita-prog/worryless/internal/storage/migrations"
)

const (
	secretFileName = ".sec"
	vaultFileName  = "vault.db"
	saltMetaKey    = "salt"
)

// Vault is the on-disk store. All methods are safe for sequential use from
// the backend; the backend serializes access itself.
type Vault struct {
	db  *sql.DB
	key []byte
}

// Open prepares the vault under dir, creating the directory, the local
// secret, and the schema on first use.
func Open(ctx context.Context, dir string) (*Vault, error) {
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	secret, err := loadOrCreateSecret(filepath.Join(dir, secretFileName))
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, vaultFileName))
	if err != nil {
		return nil, fmt.Errorf("open vault db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	salt, err := loadOrCreateSalt(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Vault{db: db, key: cryptox.DeriveKey(secret, salt)}, nil
}

// OpenWithDB wires the vault onto an existing database handle. Used by tests
// with an in-memory SQLite.
func OpenWithDB(ctx context.Context, db *sql.DB, secret []byte) (*Vault, error) {
	if err := runMigrations(ctx, db); err != nil {
		return nil, err
	}
	salt, err := loadOrCreateSalt(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Vault{db: db, key: cryptox.DeriveKey(secret, salt)}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply vault migrations: %w", err)
	}
	return nil
}

func loadOrCreateSecret(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return data, nil
	}
	secret := []byte(hex.EncodeToString(cryptox.RandBytes(25)))
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("save vault secret: %w", err)
	}
	return secret, nil
}

func loadOrCreateSalt(ctx context.Context, db *sql.DB) ([]byte, error) {
	var salt []byte
	err := db.QueryRowContext(ctx,
		`SELECT value FROM vault_meta WHERE key = ?`, saltMetaKey).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("read vault salt: %w", err)
	}

	salt = cryptox.RandBytes(16)
	if _, err := db.ExecContext(ctx,
		`INSERT INTO vault_meta (key, value) VALUES (?, ?)`, saltMetaKey, salt); err != nil {
		return nil, fmt.Errorf("save vault salt: %w", err)
	}
	return salt, nil
}

// Close releases the underlying database.
func (v *Vault) Close() error {
	return v.db.Close()
}

// Servers loads the configured server list and the name of the current one.
func (v *Vault) Servers(ctx context.Context) ([]models.Server, string, error) {
	rows, err := v.db.QueryContext(ctx,
		`SELECT name, url, is_current FROM servers ORDER BY rowid`)
	if err != nil {
		return nil, "", fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var (
		servers []models.Server
		current string
	)
	for rows.Next() {
		var (
			s         models.Server
			isCurrent int
		)
		if err := rows.Scan(&s.Name, &s.URL, &isCurrent); err != nil {
			return nil, "", fmt.Errorf("scan server row: %w", err)
		}
		if isCurrent != 0 {
			current = s.Name
		}
		servers = append(servers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate server rows: %w", err)
	}
	return servers, current, nil
}

// SaveServers replaces the stored list and marks current as selected.
func (v *Vault) SaveServers(ctx context.Context, servers []models.Server, current string) error {
	return dbx.WithTx(ctx, v.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM servers`); err != nil {
			return fmt.Errorf("clear servers: %w", err)
		}
		for _, s := range servers {
			isCurrent := 0
			if s.Name == current {
				isCurrent = 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO servers (name, url, is_current) VALUES (?, ?, ?)`,
				s.Name, s.URL, isCurrent); err != nil {
				return fmt.Errorf("insert server %s: %w", s.Name, err)
			}
		}
		return nil
	})
}

// Credentials loads all persisted tokens, unsealing each.
func (v *Vault) Credentials(ctx context.Context) ([]models.ServerCredentials, error) {
	rows, err := v.db.QueryContext(ctx, `SELECT url, token FROM credentials`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []models.ServerCredentials
	for rows.Next() {
		var (
			url    string
			sealed []byte
		)
		if err := rows.Scan(&url, &sealed); err != nil {
			return nil, fmt.Errorf("scan credential row: %w", err)
		}
		token, err := cryptox.Open(sealed, v.key)
		if err != nil {
			return nil, fmt.Errorf("unseal token for %s: %w", url, err)
		}
		creds = append(creds, models.ServerCredentials{URL: url, AccessToken: string(token)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential rows: %w", err)
	}
	return creds, nil
}

// StoreCredential seals and upserts one server token. An empty token
// removes the stored credential instead.
func (v *Vault) StoreCredential(ctx context.Context, cred models.ServerCredentials) error {
	if cred.AccessToken == "" {
		_, err := v.db.ExecContext(ctx, `DELETE FROM credentials WHERE url = ?`, cred.URL)
		if err != nil {
			return fmt.Errorf("delete credential for %s: %w", cred.URL, err)
		}
		return nil
	}

	sealed, err := cryptox.Seal([]byte(cred.AccessToken), v.key)
	if err != nil {
		return fmt.Errorf("seal token for %s: %w", cred.URL, err)
	}
	_, err = v.db.ExecContext(ctx, `
		INSERT INTO credentials (url, token) VALUES (?, ?)
		ON CONFLICT(url) DO UPDATE SET token = excluded.token
	`, cred.URL, sealed)
	if err != nil {
		return fmt.Errorf("store credential for %s: %w", cred.URL, err)
	}
	return nil
}
