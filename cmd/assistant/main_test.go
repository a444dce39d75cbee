package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points config, storage and the working directory at temp dirs.
func isolate(t *testing.T) (baseDir string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		"ASSISTANT_CONFIG_PATH", "ASSISTANT_PROVIDER", "ASSISTANT_BASE_URL", "ASSISTANT_MODEL",
		"ASSISTANT_API_KEY", "OPENAI_API_KEY", "ASSISTANT_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	baseDir = t.TempDir()
	t.Setenv("ASSISTANT_BASE_DIR", baseDir)
	t.Setenv("ASSISTANT_STORAGE", "file")
	t.Setenv("ASSISTANT_MOCK_DELAY_MS", "0")

	work := t.TempDir()
	oldwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	return baseDir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "assistant dev")
	require.Contains(t, out, "commit: none")
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := run(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "assistant 1.0.0 (commit: abc123, built: 2026-01-01)")
}

func TestRootCmdHelp(t *testing.T) {
	out, err := run(t, "", "--help")
	require.NoError(t, err)
	for _, sub := range []string{"chat", "ask", "onboard", "sessions", "briefing", "import", "config", "version"} {
		require.Contains(t, out, sub)
	}
}

func TestAskThenSessions(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "ask", "휴가", "일정", "알려줘")
	require.NoError(t, err)
	require.Contains(t, out, "휴가")

	out, err = run(t, "사내 소식 알려줘\n", "ask")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))

	out, err = run(t, "", "sessions")
	require.NoError(t, err)
	require.Contains(t, out, "휴가 일정 알려줘")
	require.Contains(t, out, "사내 소식 알려줘")
	require.Contains(t, out, "2 messages")

	out, err = run(t, "", "sessions", "--archived")
	require.NoError(t, err)
	require.Contains(t, out, "no sessions")
}

func TestAskKeepsActiveSession(t *testing.T) {
	isolate(t)

	res, err := build("")
	require.NoError(t, err)
	id, err := res.Sessions.Send(context.Background(), "이어서 할 대화")
	require.NoError(t, err)
	res.Sessions.Wait()
	require.NoError(t, res.Close())

	_, err = run(t, "", "ask", "사내 소식 알려줘")
	require.NoError(t, err)

	res, err = build("")
	require.NoError(t, err)
	defer res.Close()
	require.Equal(t, id, res.Sessions.ActiveID())
	require.Len(t, res.Sessions.List(), 2)
}

func TestAskEmptyStdin(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "ask")
	require.Error(t, err)
}

func TestBriefingCmd(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "briefing")
	require.NoError(t, err)
	require.Contains(t, out, "데일리 브리핑입니다")
}

func TestImportCmd(t *testing.T) {
	baseDir := isolate(t)
	dump := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, os.WriteFile(dump, []byte(`{
  "userSettings": "{\"userName\":\"민지\",\"assistantName\":\"비서\",\"toneStyle\":\"casual\",\"answerLength\":\"short\",\"allowWebSearch\":false,\"allowFollowUpQuestions\":true}",
  "workItemFavorites": ["2", "5"]
}`), 0o644))

	out, err := run(t, "", "import", dump)
	require.NoError(t, err)
	require.Contains(t, out, "imported userSettings")
	require.Contains(t, out, "2 keys imported")

	out, err = run(t, "", "import", dump)
	require.NoError(t, err)
	require.Contains(t, out, "0 keys imported")

	out, err = run(t, "", "import", "--overwrite", dump)
	require.NoError(t, err)
	require.Contains(t, out, "2 keys imported")

	_, err = os.Stat(filepath.Join(baseDir, "kv"))
	require.NoError(t, err)
}

func TestImportMissingFile(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "import", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, "created")
	require.FileExists(t, filepath.Join(".assistant", "config.json"))

	out, err = run(t, "", "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, "already exists")
}
