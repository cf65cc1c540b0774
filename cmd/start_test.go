package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/residue/internal/pidfile"
	"github.com/fakeyudi/residue/internal/session"
	"github.com/fakeyudi/residue/internal/tracker"
	"github.com/fakeyudi/residue/internal/watcher"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	return executeWithInput(root, "", args...)
}

func executeWithInput(root *cobra.Command, input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)
	_, err := root.ExecuteC()
	return buf.String(), err
}

// idleWatcher starts without watching anything.
type idleWatcher struct{}

func (idleWatcher) Start(func(string, watcher.EventKind)) error { return nil }
func (idleWatcher) Stop()                                       {}

// testEnv points every residue directory at a fresh temp dir and resets the
// command state left behind by earlier runs.
type testEnv struct {
	home    string
	dataDir string
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	for _, k := range []string{"RESIDUE_DATA_DIR", "RESIDUE_UNINSTALL_MODE", "RESIDUE_LOG_LEVEL", "RESIDUE_LOG_FORMAT", "RESIDUE_FLUSH_INTERVAL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
	cfg.DataDir = ""

	watcherFactory = func() tracker.Watcher { return idleWatcher{} }
	t.Cleanup(func() { watcherFactory = nil })

	return &testEnv{home: tmp, dataDir: filepath.Join(tmp, "data", "residue")}
}

// seed stores sessions directly, bypassing the CLI.
func (e *testEnv) seed(t testing.TB, sessions ...session.Session) {
	t.Helper()
	store, err := session.NewStoreAt(afero.NewOsFs(), e.dataDir)
	require.NoError(t, err)
	require.NoError(t, store.Save(sessions))
}

func (e *testEnv) load(t testing.TB) []session.Session {
	t.Helper()
	store, err := session.NewStoreAt(afero.NewOsFs(), e.dataDir)
	require.NoError(t, err)
	sessions, err := store.Load()
	require.NoError(t, err)
	return sessions
}

// holdMonitor takes the pid file lock as a running monitor would.
func (e *testEnv) holdMonitor(t testing.TB) {
	t.Helper()
	lock, err := pidfile.Acquire(pidfile.Path(e.dataDir))
	require.NoError(t, err)
	t.Cleanup(func() { lock.Release() })
}

func stoppedSession(name string, files ...session.MonitoredFile) session.Session {
	now := time.Now()
	s := session.NewSession(name, now.Add(-time.Minute))
	s.Active = false
	s.EndTime = &now
	s.Files = append(s.Files, files...)
	return s
}

func TestStartRunsForDuration(t *testing.T) {
	e := newTestEnv(t)

	out, err := executeCommand(rootCmd, "start", "demo", "--for", "20ms")
	require.NoError(t, err)
	require.Contains(t, out, `Monitoring "demo"`)
	require.Contains(t, out, "Recorded 0 files")

	sessions := e.load(t)
	require.Len(t, sessions, 1)
	require.Equal(t, "demo", sessions[0].Name)
	require.False(t, sessions[0].Active)
	require.NotNil(t, sessions[0].EndTime)

	_, running := pidfile.Running(pidfile.Path(e.dataDir))
	require.False(t, running, "pid file released on exit")
}

func TestStartRecoversInterruptedSession(t *testing.T) {
	e := newTestEnv(t)
	stale := session.NewSession("crashed", time.Now().Add(-time.Hour))
	e.seed(t, stale)

	out, err := executeCommand(rootCmd, "start", "next", "--for", "10ms")
	require.NoError(t, err)
	require.Contains(t, out, "Recovered 1 interrupted session(s).")

	for _, s := range e.load(t) {
		require.False(t, s.Active, s.Name)
	}
}

func TestDoubleStartError(t *testing.T) {
	e := newTestEnv(t)
	e.holdMonitor(t)

	out, err := executeCommand(rootCmd, "start", "demo", "--for", "10ms")
	require.Error(t, err)
	require.Contains(t, out+err.Error(), "already running")
	require.Empty(t, e.load(t))
}

func TestStartRefusedWhileSessionsChange(t *testing.T) {
	e := newTestEnv(t)
	hold, err := pidfile.Hold(pidfile.Path(e.dataDir))
	require.NoError(t, err)
	defer hold.Release()

	_, err = executeCommand(rootCmd, "start", "demo", "--for", "10ms")
	require.ErrorIs(t, err, pidfile.ErrBusy)
	require.Empty(t, e.load(t))
}

func TestStartRequiresName(t *testing.T) {
	newTestEnv(t)
	_, err := executeCommand(rootCmd, "start")
	require.Error(t, err)
}
