package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, "Presentations", cfg.Graph.DefaultFolder)
	require.Equal(t, 10, cfg.Presenter.DefaultTotalSlides)
	require.Equal(t, time.Second, cfg.Presenter.PollInterval)
	require.Equal(t, "https://view.officeapps.live.com/op/embed.aspx", cfg.Viewer.EmbedEndpoint)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "lectern.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
presenter:
  poll_interval: 250ms
graph:
  default_folder: Talks
`), 0o644))

	t.Setenv("LECTERN_CONFIG_PATH", path)
	t.Setenv("LECTERN_SERVER_PORT", "9100")
	t.Setenv("LECTERN_PUBLIC_ORIGIN", "https://conf.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "https://conf.example.com", cfg.Server.PublicOrigin)
	require.Equal(t, 250*time.Millisecond, cfg.Presenter.PollInterval)
	require.Equal(t, "Talks", cfg.Graph.DefaultFolder)
}

func TestLoad_FileOriginTrimmed(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "lectern.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  public_origin: http://stage.local:8080/
graph:
  base_url: https://graph.example.com/v1.0/
`), 0o644))
	t.Setenv("LECTERN_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://stage.local:8080", cfg.Server.PublicOrigin)
	require.Equal(t, "https://graph.example.com/v1.0", cfg.Graph.BaseURL)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LECTERN_DB_PATH=from-dotenv.db\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LECTERN_DB_PATH") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-dotenv.db", cfg.DB.Path)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("LECTERN_POLL_INTERVAL", "soon")
	_, err := Load()
	require.ErrorContains(t, err, "LECTERN_POLL_INTERVAL")

	t.Setenv("LECTERN_POLL_INTERVAL", "")
	t.Setenv("LECTERN_TRANSPORT", "carrier-pigeon")
	_, err = Load()
	require.ErrorContains(t, err, "LECTERN_TRANSPORT")
}
