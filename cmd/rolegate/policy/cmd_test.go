package policy

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	app := &cli.App{
		Name:     "rolegate",
		Writer:   &out,
		Commands: []*cli.Command{Cmd()},
	}
	err := app.RunContext(context.Background(), append([]string{"rolegate", "policy"}, args...))
	return out.String(), err
}

func TestCheckDefaultPolicy(t *testing.T) {
	for _, tc := range []struct {
		args   []string
		expect string
	}{
		{[]string{"check", "--path", "/"}, "allow\tanonymous\tno rule matched\n"},
		{[]string{"check", "--path", "/admin"}, "require-auth\tanonymous\t/admin -> role ADMIN\n"},
		{[]string{"check", "--path", "/admin/", "--user", "bob", "--role", "user"}, "deny\tbob\t/admin -> role ADMIN\n"},
		{[]string{"check", "--path", "/user", "--role", "USER"}, "allow\tcli\t/user -> role USER\n"},
	} {
		out, err := run(t, tc.args...)
		require.NoError(t, err)
		assert.Equal(t, tc.expect, out, "args: %v", tc.args)
	}
}

func TestShowPolicyFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
rules:
  - path: /reports
    authenticated: true
  - path: /reports/public
  - path: /admin
    role: admin
`), 0600))

	out, err := run(t, "--policy-file", file, "show")
	require.NoError(t, err)
	assert.Equal(t, "0\t/reports -> authenticated\n1\t/reports/public -> permit\n2\t/admin -> role ADMIN\n", out)

	out, err = run(t, "--policy-file", file, "check", "--path", "/reports", "--user", "alice")
	require.NoError(t, err)
	assert.Equal(t, "allow\talice\t/reports -> authenticated\n", out)
}

func TestCheckRejectsBrokenFile(t *testing.T) {
	_, err := run(t, "--policy-file", filepath.Join(t.TempDir(), "missing.yaml"), "show")
	assert.Error(t, err)
}
