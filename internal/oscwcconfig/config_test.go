package oscwcconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/oscwc/internal/oscwcconfig"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, sources, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{WorkDir: dir})
	require.NoError(t, err)
	require.Equal(t, ".osc", cfg.StoreDir)
	require.Empty(t, sources.Global)
	require.Empty(t, sources.Project)
}

func TestLoadConfigFromProjectFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, oscwcconfig.ConfigFileName), `{
		// trailing comma and comments are fine, this is JSONC
		"store_dir": ".mystore",
		"default_api_url": "https://api.example.com",
	}`)

	cfg, sources, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{WorkDir: dir})
	require.NoError(t, err)
	require.Equal(t, ".mystore", cfg.StoreDir)
	require.Equal(t, "https://api.example.com", cfg.DefaultAPIURL)
	require.Equal(t, filepath.Join(dir, oscwcconfig.ConfigFileName), sources.Project)
}

func TestLoadConfigExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "custom.json")
	writeFile(t, explicit, `{"store_dir": ".custom"}`)

	cfg, sources, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{WorkDir: dir, ConfigPath: explicit})
	require.NoError(t, err)
	require.Equal(t, ".custom", cfg.StoreDir)
	require.Equal(t, explicit, sources.Project)
}

func TestLoadConfigExplicitConfigFileMustExist(t *testing.T) {
	dir := t.TempDir()

	_, _, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{WorkDir: dir, ConfigPath: "missing.json"})
	require.ErrorIs(t, err, oscwcconfig.ErrConfigFileNotFound)
}

func TestLoadConfigCLIOverrideWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, oscwcconfig.ConfigFileName), `{"store_dir": ".fromfile"}`)

	cfg, _, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{
		WorkDir: dir, StoreDirOverride: ".fromcli", HasStoreDirFlag: true,
	})
	require.NoError(t, err)
	require.Equal(t, ".fromcli", cfg.StoreDir)
}

func TestLoadConfigGlobalThenProjectPrecedence(t *testing.T) {
	home := t.TempDir()
	globalDir := filepath.Join(home, "oscwc")
	require.NoError(t, os.MkdirAll(globalDir, 0o755))
	writeFile(t, filepath.Join(globalDir, "config.json"),
		`{"store_dir": ".fromglobal", "default_api_url": "https://global.example.com"}`)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, oscwcconfig.ConfigFileName), `{"store_dir": ".fromproject"}`)

	cfg, sources, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{
		WorkDir: dir, Env: []string{"XDG_CONFIG_HOME=" + home},
	})
	require.NoError(t, err)
	require.Equal(t, ".fromproject", cfg.StoreDir, "project config overrides global")
	require.Equal(t, "https://global.example.com", cfg.DefaultAPIURL, "global value survives when project doesn't set it")
	require.NotEmpty(t, sources.Global)
	require.NotEmpty(t, sources.Project)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, oscwcconfig.ConfigFileName), `not json {{{`)

	_, _, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{WorkDir: dir})
	require.ErrorIs(t, err, oscwcconfig.ErrConfigInvalid)
}

func TestLoadConfigEmptyStoreDirIsRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, oscwcconfig.ConfigFileName), `{"store_dir": ""}`)

	_, _, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{WorkDir: dir})
	require.ErrorIs(t, err, oscwcconfig.ErrConfigInvalid)
}

func TestFormatConfig(t *testing.T) {
	out, err := oscwcconfig.Format(oscwcconfig.DefaultConfig())
	require.NoError(t, err)
	require.Contains(t, out, `"store_dir": ".osc"`)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
