package oscwccli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/oscwc/internal/oscwccli"
)

func TestInitAddStatusCommitRoundtrip(t *testing.T) {
	t.Parallel()

	cli := oscwccli.NewCLI(t)

	cli.MustRun("init", "--project", "openSUSE:Tools", "--api-url", "https://api.example.com")

	pkgDir := filepath.Join(cli.Dir, "foo")
	require.NoError(t, os.MkdirAll(pkgDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "foo.spec"), []byte("Name: foo\n"), 0o600))

	cli.MustRun("add", "foo")

	status := cli.MustRun("status")
	require.Contains(t, status, "A foo")

	cli.MustRun("commit")

	// MustRun trims stdout, so the ' ' status column of "  foo" is stripped.
	status = cli.MustRun("status", "foo")
	require.Equal(t, "foo", status)

	cli.MustRun("rm", "foo")

	status = cli.MustRun("status", "foo")
	require.Contains(t, status, "D foo")
}

func TestInitRequiresProjectFlag(t *testing.T) {
	t.Parallel()

	cli := oscwccli.NewCLI(t)

	stderr := cli.MustFail("init")
	require.Contains(t, stderr, "--project is required")
}

func TestAddRequiresExactlyOnePackageArg(t *testing.T) {
	t.Parallel()

	cli := oscwccli.NewCLI(t)
	cli.MustRun("init", "--project", "P")

	stderr := cli.MustFail("add")
	require.Contains(t, stderr, "exactly one package name is required")
}

func TestUnknownCommandFails(t *testing.T) {
	t.Parallel()

	cli := oscwccli.NewCLI(t)
	cli.MustRun("init", "--project", "P")

	stderr := cli.MustFail("frobnicate")
	require.Contains(t, stderr, "unknown command")
}
