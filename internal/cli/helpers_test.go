package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	holderAddr       = "0x00000000000000000000000000000000000000a1"
	counterPartyAddr = "0x00000000000000000000000000000000000000c2"
	strangerAddr     = "0x00000000000000000000000000000000000000d4"
)

// cliEnv runs commands through the root command against one database.
type cliEnv struct {
	t    *testing.T
	args []string // global flags prepended to every call
}

func newCLIEnv(t *testing.T, backend string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	return &cliEnv{t: t, args: []string{
		"--db", filepath.Join(dir, "smartfin.db"),
		"--backend", backend,
		"--badger-dir", filepath.Join(dir, "badger"),
	}}
}

// run executes one command and returns its stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append(append([]string{}, e.args...), args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRun executes one command that must succeed.
func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "smartfin %v: %s", args, out)
	return out
}

// deployForward deploys "truncate 10 scale 5 one" as c1 at time 0 and
// runs a short lifecycle: the counter-party stakes 100, a stranger's
// acquire is refused, the holder acquires at 1 and withdraws 5.
func (e *cliEnv) deployForward() {
	e.t.Helper()
	e.mustRun("deploy", "truncate 10 scale 5 one", "--id", "c1",
		"--holder", holderAddr, "--caller", counterPartyAddr, "--at", "0")
	e.mustRun("stake", "c1", "--caller", counterPartyAddr, "--value", "100", "--at", "0")
	_, err := e.run("acquire", "c1", "--caller", strangerAddr, "--at", "1")
	require.Error(e.t, err)
	e.mustRun("acquire", "c1", "--caller", holderAddr, "--at", "1")
	e.mustRun("withdraw", "c1", "5", "--caller", holderAddr, "--at", "2")
}
