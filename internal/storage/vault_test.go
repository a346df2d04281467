package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/ita-prog/worryless/internal/models"
)

func setupVault(t *testing.T) *Vault {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	v, err := OpenWithDB(context.Background(), db, []byte("test-secret"))
	require.NoError(t, err)
	return v
}

func TestVault_ServersRoundTrip(t *testing.T) {
	ctx := context.Background()
	v := setupVault(t)

	servers, current, err := v.Servers(ctx)
	require.NoError(t, err)
	require.Empty(t, servers)
	require.Empty(t, current)

	list := []models.Server{
		{Name: "localhost", URL: "http://localhost:8065"},
		{Name: "work", URL: "https://mm.example.com"},
	}
	require.NoError(t, v.SaveServers(ctx, list, "work"))

	servers, current, err = v.Servers(ctx)
	require.NoError(t, err)
	require.Equal(t, list, servers)
	require.Equal(t, "work", current)

	// Re-saving replaces, never accumulates.
	require.NoError(t, v.SaveServers(ctx, list[:1], "localhost"))
	servers, current, err = v.Servers(ctx)
	require.NoError(t, err)
	require.Equal(t, list[:1], servers)
	require.Equal(t, "localhost", current)
}

func TestVault_CredentialsSealedAtRest(t *testing.T) {
	ctx := context.Background()
	v := setupVault(t)

	cred := models.ServerCredentials{URL: "https://mm.example.com", AccessToken: "token-123"}
	require.NoError(t, v.StoreCredential(ctx, cred))

	var sealed []byte
	err := v.db.QueryRowContext(ctx,
		`SELECT token FROM credentials WHERE url = ?`, cred.URL).Scan(&sealed)
	require.NoError(t, err)
	require.NotContains(t, string(sealed), cred.AccessToken)

	creds, err := v.Credentials(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.ServerCredentials{cred}, creds)
}

func TestVault_EmptyTokenRemovesCredential(t *testing.T) {
	ctx := context.Background()
	v := setupVault(t)

	cred := models.ServerCredentials{URL: "https://mm.example.com", AccessToken: "token-123"}
	require.NoError(t, v.StoreCredential(ctx, cred))
	require.NoError(t, v.StoreCredential(ctx, models.ServerCredentials{URL: cred.URL}))

	creds, err := v.Credentials(ctx)
	require.NoError(t, err)
	require.Empty(t, creds)
}

func TestVault_OpenCreatesFilesAndSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "worryless")

	v, err := Open(ctx, dir)
	require.NoError(t, err)

	list := []models.Server{{Name: "localhost", URL: "http://localhost:8065"}}
	require.NoError(t, v.SaveServers(ctx, list, "localhost"))
	cred := models.ServerCredentials{URL: list[0].URL, AccessToken: "tok"}
	require.NoError(t, v.StoreCredential(ctx, cred))
	require.NoError(t, v.Close())

	v, err = Open(ctx, dir)
	require.NoError(t, err)
	defer v.Close()

	servers, current, err := v.Servers(ctx)
	require.NoError(t, err)
	require.Equal(t, list, servers)
	require.Equal(t, "localhost", current)

	creds, err := v.Credentials(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.ServerCredentials{cred}, creds)
}
