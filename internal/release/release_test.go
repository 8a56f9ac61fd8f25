package release

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyship/pyship/internal/config"
	"github.com/pyship/pyship/internal/db"
	"github.com/pyship/pyship/internal/executor"
	"github.com/pyship/pyship/internal/history"
	"github.com/pyship/pyship/internal/pypi"
)

// fakeRunner records commands instead of spawning processes. failOn keys are
// the argv head or the full joined argv (Run), or the whole line (RunShell).
type fakeRunner struct {
	mu     sync.Mutex
	cmds   []executor.Command
	lines  []string
	seq    []string
	failOn map[string]error
	onRun  func(executor.Command)
}

func (f *fakeRunner) Run(_ context.Context, cmd executor.Command, _, _ io.Writer) error {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	f.seq = append(f.seq, "run:"+cmd.Argv[0])
	onRun := f.onRun
	err := f.failOn[strings.Join(cmd.Argv, " ")]
	if err == nil {
		err = f.failOn[cmd.Argv[0]]
	}
	f.mu.Unlock()
	if onRun != nil {
		onRun(cmd)
	}
	return err
}

func (f *fakeRunner) RunShell(_ context.Context, line, _ string, _, _ io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	f.seq = append(f.seq, "shell:"+line)
	return f.failOn[line]
}

func (f *fakeRunner) heads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.cmds))
	for i, c := range f.cmds {
		out[i] = c.Argv[0]
	}
	return out
}

// setupProject creates a flat-layout project tree and isolates the pyship
// home so no real credentials or history leak in.
func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "widget", "__init__.py"), "")
	mustWrite(t, filepath.Join(root, "tests", "test_widget.py"), "def test_ok():\n    pass\n")

	t.Setenv(config.EnvHome, t.TempDir())
	t.Setenv(pypi.PyPI.TokenEnv, "")
	t.Setenv(pypi.TestPyPI.TokenEnv, "")
	return root
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fakeTools puts executable stubs for every workflow tool on PATH so argv
// resolution picks the plain binary names. Returns the stub directory so
// tests can remove individual tools.
func fakeTools(t *testing.T) string {
	t.Helper()
	bin := t.TempDir()
	for _, name := range []string{"python3", "pytest", "black", "flake8", "mypy", "pyproject-build", "twine"} {
		if runtime.GOOS == "windows" {
			mustWrite(t, filepath.Join(bin, name+".bat"), "@echo off\r\n")
			continue
		}
		path := filepath.Join(bin, name)
		mustWrite(t, path, "#!/bin/sh\nexit 0\n")
		require.NoError(t, os.Chmod(path, 0o755))
	}
	t.Setenv("PATH", bin)
	return bin
}

// removeTool deletes one stub so resolution exercises its fallback path.
func removeTool(t *testing.T, bin, name string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		name += ".bat"
	}
	require.NoError(t, os.Remove(filepath.Join(bin, name)))
}

type testEnv struct {
	root   string
	bin    string
	runner *fakeRunner
	out    *bytes.Buffer
	errOut *bytes.Buffer
	cfg    Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := setupProject(t)
	env := &testEnv{
		root:   root,
		bin:    fakeTools(t),
		runner: &fakeRunner{failOn: map[string]error{}},
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	project, err := config.LoadProject(root)
	require.NoError(t, err)
	env.cfg = Config{
		Root:    root,
		Project: project,
		Runner:  env.runner,
		Out:     env.out,
		Err:     env.errOut,
		In:      strings.NewReader(""),
		CheckRelease: func(context.Context, pypi.Index, string, string) (bool, error) {
			return false, nil
		},
	}
	return env
}

func (e *testEnv) run(t *testing.T, command string) error {
	t.Helper()
	return New(e.cfg).Run(context.Background(), command)
}

func TestPlanFor(t *testing.T) {
	cases := map[string][]string{
		"clean":     {StepClean},
		"lint":      {StepLint},
		"test":      {StepTest},
		"build":     {StepClean, StepBuild},
		"test-pypi": {StepClean, StepBuild, StepPublish},
		"pypi":      {StepClean, StepBuild, StepPublish},
		"all":       {StepClean, StepLint, StepTest, StepBuild},
		"release":   {StepClean, StepLint, StepTest, StepBuild, StepPublish},
	}
	for command, want := range cases {
		p, ok := PlanFor(command)
		require.True(t, ok, command)
		assert.Equal(t, want, p.Steps, command)
	}

	if _, ok := PlanFor("deploy"); ok {
		t.Fatal("unknown command must not resolve")
	}

	p, _ := PlanFor("test-pypi")
	assert.Equal(t, "testpypi", p.Index.Name)
	assert.False(t, p.Confirm)
	p, _ = PlanFor("pypi")
	assert.Equal(t, "pypi", p.Index.Name)
	assert.False(t, p.Confirm)
	p, _ = PlanFor("release")
	assert.Equal(t, "pypi", p.Index.Name)
	assert.True(t, p.Confirm)
}

func TestCommandsSorted(t *testing.T) {
	assert.Equal(t, []string{"all", "build", "clean", "lint", "pypi", "release", "test", "test-pypi"}, Commands())
}

func TestCleanRemovesArtifactsWithoutSpawning(t *testing.T) {
	env := newTestEnv(t)
	mustWrite(t, filepath.Join(env.root, "build", "lib", "x.py"), "")
	mustWrite(t, filepath.Join(env.root, "dist", "widget-0.1.0.tar.gz"), "")

	require.NoError(t, env.run(t, "clean"))

	assert.Empty(t, env.runner.cmds, "clean must not spawn anything")
	_, err := os.Stat(filepath.Join(env.root, "build"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(env.root, "dist"))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, env.out.String(), "removed build")
}

func TestAllRunsEveryStepInOrder(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run(t, "all"))

	heads := env.runner.heads()
	require.Len(t, heads, 5)
	// Checkers run concurrently, so only the set is stable.
	assert.ElementsMatch(t, []string{"black", "flake8", "mypy"}, heads[:3])
	assert.Equal(t, "pytest", heads[3])
	assert.Equal(t, "pyproject-build", heads[4])
	assert.Contains(t, env.out.String(), "all ok")
}

func TestPytestInvocationUsesProjectSettings(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Project.PytestArgs = []string{"-v", "--maxfail=1"}
	env.cfg.Project.Tests = "tests"

	require.NoError(t, env.run(t, "test"))

	require.Len(t, env.runner.cmds, 1)
	assert.Equal(t, []string{"pytest", "-v", "--maxfail=1", "tests"}, env.runner.cmds[0].Argv)
	assert.Equal(t, env.root, env.runner.cmds[0].Dir)
}

func TestMypyTargetsPackageDir(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run(t, "lint"))

	var mypyArgv []string
	for _, c := range env.runner.cmds {
		if c.Argv[0] == "mypy" {
			mypyArgv = c.Argv
		}
	}
	require.NotNil(t, mypyArgv)
	assert.Equal(t, []string{"mypy", "widget"}, mypyArgv)
}

func TestLintHonorsDisabledCheckers(t *testing.T) {
	env := newTestEnv(t)
	off := false
	env.cfg.Project.Lint.Black = &off
	env.cfg.Project.Lint.Mypy = &off

	require.NoError(t, env.run(t, "lint"))
	assert.Equal(t, []string{"flake8"}, env.runner.heads())
}

func TestLintAllCheckersDisabled(t *testing.T) {
	env := newTestEnv(t)
	off := false
	env.cfg.Project.Lint = config.Lint{Black: &off, Flake8: &off, Mypy: &off}

	require.NoError(t, env.run(t, "lint"))
	assert.Empty(t, env.runner.cmds)
	assert.Contains(t, env.out.String(), "all checkers disabled")
}

func TestFailFastStopsFollowingSteps(t *testing.T) {
	env := newTestEnv(t)
	env.runner.failOn["pytest"] = errors.New("exit status 1")

	err := env.run(t, "all")
	require.Error(t, err)

	heads := env.runner.heads()
	assert.NotContains(t, heads, "pyproject-build", "build must not run after test failure")
	assert.ElementsMatch(t, []string{"black", "flake8", "mypy"}, heads[:3])
	assert.Contains(t, env.out.String(), "all failed")
	assert.Contains(t, env.out.String(), "skipped")
}

func TestLintFailureStillRunsAllCheckers(t *testing.T) {
	env := newTestEnv(t)
	env.runner.failOn["black"] = errors.New("would reformat widget/__init__.py")

	err := env.run(t, "lint")
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"black", "flake8", "mypy"}, env.runner.heads())
}

func TestBuildFallsBackToSetupPy(t *testing.T) {
	env := newTestEnv(t)
	removeTool(t, env.bin, "pyproject-build")
	mustWrite(t, filepath.Join(env.root, "setup.py"), "from setuptools import setup\nsetup()\n")
	env.runner.failOn["python3 -m build"] = errors.New(
		`python3 -m build: exit status 1 (output="/usr/bin/python3: No module named build")`)

	require.NoError(t, env.run(t, "build"))

	require.Len(t, env.runner.cmds, 2)
	assert.Equal(t, []string{"python3", "-m", "build"}, env.runner.cmds[0].Argv)
	assert.Equal(t, []string{"python3", "setup.py", "sdist", "bdist_wheel"}, env.runner.cmds[1].Argv)
	assert.Contains(t, env.errOut.String(), "falling back to setup.py")
}

func TestBuildRealFailureDoesNotFallBack(t *testing.T) {
	env := newTestEnv(t)
	removeTool(t, env.bin, "pyproject-build")
	mustWrite(t, filepath.Join(env.root, "setup.py"), "from setuptools import setup\nsetup()\n")
	env.runner.failOn["python3 -m build"] = errors.New("error: invalid pyproject.toml")

	err := env.run(t, "build")
	require.Error(t, err)
	require.Len(t, env.runner.cmds, 1, "a real build failure must not run twice")
}

func TestBuildMissingModuleWithoutSetupPyFails(t *testing.T) {
	env := newTestEnv(t)
	removeTool(t, env.bin, "pyproject-build")
	env.runner.failOn["python3 -m build"] = errors.New(
		`python3 -m build: exit status 1 (output="/usr/bin/python3: No module named build")`)

	err := env.run(t, "build")
	require.Error(t, err)
	require.Len(t, env.runner.cmds, 1)
	assert.Contains(t, err.Error(), "No module named build")
}

func TestPublishRefusesWithoutToken(t *testing.T) {
	env := newTestEnv(t)

	err := env.run(t, "test-pypi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_PYPI_TOKEN")
	assert.Empty(t, env.runner.cmds, "nothing may run before the token gate")
	assert.Empty(t, env.runner.lines)

	msg := env.errOut.String()
	assert.Contains(t, msg, "export TEST_PYPI_TOKEN=")
	assert.Contains(t, msg, "https://test.pypi.org/manage/account/token/")
	assert.Contains(t, msg, "pyship token set testpypi")
}

// buildProducesWheel makes the fake build invocation drop a wheel in dist/,
// the way a real build would.
func buildProducesWheel(t *testing.T, env *testEnv) {
	t.Helper()
	env.runner.onRun = func(cmd executor.Command) {
		if cmd.Argv[0] == "pyproject-build" {
			mustWrite(t, filepath.Join(env.root, "dist", "widget-0.1.0-py3-none-any.whl"), "wheel")
		}
	}
}

func TestPublishUploadsWithTokenInEnvOnly(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.TestPyPI.TokenEnv, "pypi-sekrit-token")
	buildProducesWheel(t, env)

	require.NoError(t, env.run(t, "test-pypi"))

	heads := env.runner.heads()
	require.Equal(t, []string{"pyproject-build", "twine"}, heads)

	up := env.runner.cmds[1]
	assert.Equal(t, "upload", up.Argv[1])
	assert.Contains(t, up.Argv, "--non-interactive")
	assert.Contains(t, up.Argv, "--repository-url")
	assert.Contains(t, up.Argv, "https://test.pypi.org/legacy/")
	assert.Contains(t, up.Argv, filepath.Join(env.root, "dist", "widget-0.1.0-py3-none-any.whl"))

	assert.Contains(t, up.Env, "TWINE_USERNAME=__token__")
	assert.Contains(t, up.Env, "TWINE_PASSWORD=pypi-sekrit-token")
	for _, a := range up.Argv {
		assert.NotContains(t, a, "pypi-sekrit-token", "token must never reach argv")
	}
	assert.NotContains(t, env.out.String(), "pypi-sekrit-token")
	assert.Contains(t, env.out.String(), "uploading to TestPyPI")
	assert.Contains(t, env.out.String(), "env:TEST_PYPI_TOKEN")
}

func TestPublishAbortsWhenReleaseExists(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.TestPyPI.TokenEnv, "pypi-x")
	buildProducesWheel(t, env)
	env.cfg.CheckRelease = func(context.Context, pypi.Index, string, string) (bool, error) {
		return true, nil
	}

	err := env.run(t, "test-pypi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already on TestPyPI")
	assert.Contains(t, err.Error(), "--skip-existing")
	assert.NotContains(t, env.runner.heads(), "twine")
}

func TestPublishSkipExistingProceeds(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.TestPyPI.TokenEnv, "pypi-x")
	buildProducesWheel(t, env)
	env.cfg.SkipExisting = true
	env.cfg.CheckRelease = func(context.Context, pypi.Index, string, string) (bool, error) {
		return true, nil
	}

	require.NoError(t, env.run(t, "test-pypi"))
	up := env.runner.cmds[len(env.runner.cmds)-1]
	assert.Equal(t, "twine", up.Argv[0])
	assert.Contains(t, up.Argv, "--skip-existing")
}

func TestPublishProceedsWhenIndexUnreachable(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.TestPyPI.TokenEnv, "pypi-x")
	buildProducesWheel(t, env)
	env.cfg.CheckRelease = func(context.Context, pypi.Index, string, string) (bool, error) {
		return false, errors.New("dial tcp: connection refused")
	}

	require.NoError(t, env.run(t, "test-pypi"))
	assert.Contains(t, env.runner.heads(), "twine")
	assert.Contains(t, env.errOut.String(), "could not check TestPyPI")
}

func TestPublishEmptyDistFails(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.TestPyPI.TokenEnv, "pypi-x")
	// build runs but produces nothing

	err := env.run(t, "test-pypi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dist/ is empty")
	assert.Contains(t, err.Error(), "pyship build")
	assert.NotContains(t, env.runner.heads(), "twine")
}

func TestReleaseConfirmDeclinedIsNotAnError(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.PyPI.TokenEnv, "pypi-x")
	env.cfg.In = strings.NewReader("n\n")

	require.NoError(t, env.run(t, "release"))
	assert.Empty(t, env.runner.cmds, "declining must run nothing")
	assert.Contains(t, env.out.String(), "release aborted")
}

func TestReleaseConfirmAccepted(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.PyPI.TokenEnv, "pypi-x")
	buildProducesWheel(t, env)
	env.cfg.In = strings.NewReader("y\n")

	require.NoError(t, env.run(t, "release"))
	assert.Contains(t, env.out.String(), "Release widget to PyPI?")
	assert.Equal(t, "twine", env.runner.heads()[len(env.runner.heads())-1])
}

func TestReleaseAssumeYesSkipsPrompt(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.PyPI.TokenEnv, "pypi-x")
	buildProducesWheel(t, env)
	env.cfg.AssumeYes = true

	require.NoError(t, env.run(t, "release"))
	assert.NotContains(t, env.out.String(), "[y/N]")
}

func TestDryRunExecutesNothing(t *testing.T) {
	env := newTestEnv(t)
	mustWrite(t, filepath.Join(env.root, "dist", "stale.whl"), "x")
	env.cfg.DryRun = true
	env.cfg.Runner = executor.New(true, false)

	require.NoError(t, env.run(t, "all"))

	out := env.out.String()
	assert.Contains(t, out, "dry-run: would remove dist")
	assert.Contains(t, out, "dry-run: black --check .")
	assert.Contains(t, out, "dry-run: flake8 .")
	assert.Contains(t, out, "dry-run: mypy widget")
	assert.Contains(t, out, "dry-run: pytest -v tests")
	assert.Contains(t, out, "dry-run: pyproject-build")
	assert.Contains(t, out, "dry-run complete")

	// Nothing actually ran: the stale artifact survived.
	_, err := os.Stat(filepath.Join(env.root, "dist", "stale.whl"))
	assert.NoError(t, err)
}

func TestDryRunPublishNeverPrintsToken(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(pypi.TestPyPI.TokenEnv, "pypi-sekrit-token")
	env.cfg.DryRun = true
	env.cfg.Runner = executor.New(true, false)

	require.NoError(t, env.run(t, "test-pypi"))

	out := env.out.String()
	assert.Contains(t, out, "twine upload")
	assert.Contains(t, out, "dist/*")
	assert.NotContains(t, out, "pypi-sekrit-token")
	assert.NotContains(t, env.errOut.String(), "pypi-sekrit-token")
}

func TestHooksRunAroundStep(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Project.Hooks = map[string]config.Hook{
		"build": {Before: []string{"echo pre"}, After: []string{"echo post"}},
	}

	require.NoError(t, env.run(t, "build"))

	seq := env.runner.seq
	pre := indexOf(seq, "shell:echo pre")
	main := indexOf(seq, "run:pyproject-build")
	post := indexOf(seq, "shell:echo post")
	require.GreaterOrEqual(t, pre, 0)
	require.GreaterOrEqual(t, main, 0)
	require.GreaterOrEqual(t, post, 0)
	assert.Less(t, pre, main)
	assert.Less(t, main, post)
}

func indexOf(list []string, want string) int {
	for i, s := range list {
		if s == want {
			return i
		}
	}
	return -1
}

func TestHookGuardBlocksDestructiveLines(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Project.Hooks = map[string]config.Hook{
		"clean": {Before: []string{"rm -rf /"}},
	}

	err := env.run(t, "clean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing")
	assert.Empty(t, env.runner.lines, "blocked hook must not reach the shell")
}

func TestHookGuardForceOverride(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.ForceHooks = true
	env.cfg.Project.Hooks = map[string]config.Hook{
		"clean": {Before: []string{"rm -rf /"}},
	}

	require.NoError(t, env.run(t, "clean"))
	assert.Equal(t, []string{"rm -rf /"}, env.runner.lines)
}

func TestFailedAfterHookFailsStep(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Project.Hooks = map[string]config.Hook{
		"build": {After: []string{"false-hook"}},
	}
	env.runner.failOn["false-hook"] = errors.New("exit status 1")

	err := env.run(t, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after hook 1")
}

func TestHistoryRecordsRun(t *testing.T) {
	env := newTestEnv(t)
	conn, err := db.InitDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	env.cfg.History = history.NewRepository(conn)

	require.NoError(t, env.run(t, "build"))

	runs, err := env.cfg.History.Recent(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "build", runs[0].Command)
	assert.Equal(t, "widget", runs[0].Project)
	assert.Equal(t, history.StatusOK, runs[0].Status)
	assert.Equal(t, history.SourceCLI, runs[0].Source)
	require.Len(t, runs[0].Steps, 2)
	assert.Equal(t, "clean", runs[0].Steps[0].Name)
	assert.Equal(t, "build", runs[0].Steps[1].Name)
}

func TestHistoryRecordsFailure(t *testing.T) {
	env := newTestEnv(t)
	conn, err := db.InitDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	env.cfg.History = history.NewRepository(conn)
	env.runner.failOn["pyproject-build"] = errors.New("exit status 1")

	require.Error(t, env.run(t, "build"))

	runs, err := env.cfg.History.Recent(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	require.True(t, runs[0].Error.Valid)
	assert.Contains(t, runs[0].Error.String, "exit status 1")
	require.Len(t, runs[0].Steps, 2)
	assert.Equal(t, history.StepFailed, runs[0].Steps[1].Status)
}

func TestDryRunNotRecorded(t *testing.T) {
	env := newTestEnv(t)
	conn, err := db.InitDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	env.cfg.History = history.NewRepository(conn)
	env.cfg.DryRun = true
	env.cfg.Runner = executor.New(true, false)

	require.NoError(t, env.run(t, "build"))

	runs, err := env.cfg.History.Recent(5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t)
	err := env.run(t, "deploy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "deploy"`)
}
