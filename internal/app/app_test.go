package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/parley/internal/audio"
	"github.com/rbright/parley/internal/fsm"
	"github.com/rbright/parley/internal/ipc"
	"github.com/rbright/parley/internal/results"
	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/transcript"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "parley")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestExecuteInvalidConfigFails(t *testing.T) {
	paths := setupRunnerEnv(t, "log:\n  level: [\n")

	var stderr bytes.Buffer
	exitCode := Execute(context.Background(), []string{"--config", paths.configPath, "status"}, &bytes.Buffer{}, &stderr)
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "parse config")
}

func TestRunnerStatusIdleWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerStopReturnsNoActiveSession(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no active parley interview")
}

func TestRunnerForwardsCommandsToActiveSession(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	commands := make(chan string, 8)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "parley.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		commands <- req.Command
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "connected", SessionID: "s-1", InterviewType: "product-sense", Turns: 3}
		case ipc.CommandStop:
			return ipc.Response{OK: true, Message: "stop requested"}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	stdout := &bytes.Buffer{}
	runner := Runner{Stdout: stdout, Stderr: &bytes.Buffer{}}
	require.Equal(t, 0, runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"}))
	require.Equal(t, "connected session=s-1 type=product-sense turns=3\n", stdout.String())

	stdout.Reset()
	require.Equal(t, 0, runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"}))
	require.Equal(t, "stop requested\n", stdout.String())

	got := []string{<-commands, <-commands}
	require.Equal(t, []string{ipc.CommandStatus, ipc.CommandStop}, got)
}

func TestRunnerStopReportsRejectedStop(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "parley.sock"), func(context.Context, ipc.Request) ipc.Response {
		return ipc.Response{OK: false, State: "disconnected", Error: "cannot stop from state disconnected"}
	})
	defer shutdown()

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}
	require.Equal(t, 1, runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"}))
	require.Contains(t, stderr.String(), "cannot stop from state disconnected")
}

func TestFormatStatus(t *testing.T) {
	require.Equal(t, "idle", formatStatus(ipc.Response{OK: true}))
	require.Equal(t, "connecting", formatStatus(ipc.Response{OK: true, State: "connecting"}))
	require.Equal(t,
		"connected session=abc turns=2 elapsed=1m5s interviewer speaking",
		formatStatus(ipc.Response{OK: true, State: "connected", SessionID: "abc", Turns: 2, ElapsedMS: 65_200, Speaking: true}),
	)
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "parley.sock")

	shutdown := startIPCServerForRunnerTest(t, socketPath, func(_ context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "connected"}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "connected", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, "cancel")
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "parley.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "parley.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.CommandStatus)
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forward command \"status\":")

	<-done
	require.NoError(t, listener.Close())
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "[FAIL] scoring: OPENAI_API_KEY is not set")
}

func TestRunnerDevicesCommandDispatches(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error:")
}

func TestWriteDevicesAlignsColumns(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeDevices(&out, []audio.Device{
		{ID: "alsa_input.usb", Description: "USB Mic", State: "running", Available: true, Default: true},
		{ID: "alsa_input.pci", Description: "Built-in", State: "suspended", Muted: true},
	}))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, []string{"ID", "DESCRIPTION", "STATE", "AVAILABLE", "MUTED"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"*", "alsa_input.usb", "USB", "Mic", "running", "yes", "no"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"alsa_input.pci", "Built-in", "suspended", "no", "yes"}, strings.Fields(lines[2]))
	require.Equal(t, strings.Index(lines[1], "alsa_input.usb"), strings.Index(lines[2], "alsa_input.pci"))
}

func TestRunnerResultsErrorMode(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "results", "--error", "missing_data"})
	require.Equal(t, 1, exitCode)
	require.Equal(t, results.MessageMissingData+"\n", stdout.String())
}

func TestRunnerResultsUnknownID(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "results", "--id", "missing"})
	require.Equal(t, 1, exitCode)
	require.Equal(t, results.MessageNotFound+"\n", stdout.String())
}

func TestRunnerAskFailsWithoutScoringCredentials(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	t.Setenv("OPENAI_API_KEY", "")

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "ask", "--id", "abc", "why?"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "OPENAI_API_KEY not set")
}

func TestRunnerInterviewScoresAndRendersResults(t *testing.T) {
	openAI := fakeOpenAI(t)
	paths := setupRunnerEnv(t, interviewConfig(openAI.URL))
	t.Setenv("OPENAI_API_KEY", "sk-test")

	provider := newScriptedProvider(
		session.ConnectEvent{},
		session.MessageEvent{Turn: transcript.Turn{Speaker: transcript.SpeakerAI, Text: "Design a product for commuters."}},
		session.MessageEvent{Turn: transcript.Turn{Speaker: transcript.SpeakerCandidate, Text: "I would start with the user."}},
		session.DisconnectEvent{Reason: "ended by agent"},
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, provider: provider, microphone: readyMicrophone()}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "interview"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "Ykg1OlN7H58nquphXgmt", provider.agentID)
	require.Contains(t, stdout.String(), "Interview Results (product-sense)")
	require.Contains(t, stdout.String(), "Design a product for commuters.\nI would start with the user.\n")
	require.Contains(t, stdout.String(), "results: http://127.0.0.1:8787/results?id=")

	_, statErr := os.Stat(filepath.Join(paths.runtimeDir, "parley.sock"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestRunnerInterviewWithoutPromptIsMissingData(t *testing.T) {
	openAI := fakeOpenAI(t)
	paths := setupRunnerEnv(t, interviewConfig(openAI.URL))
	t.Setenv("OPENAI_API_KEY", "sk-test")

	provider := newScriptedProvider(
		session.ConnectEvent{},
		session.MessageEvent{Turn: transcript.Turn{Speaker: transcript.SpeakerCandidate, Text: "hello?"}},
		session.DisconnectEvent{},
	)

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}, provider: provider, microphone: readyMicrophone()}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "interview"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), results.MessageMissingData)
	require.Contains(t, stdout.String(), "results?error=missing_data")
}

func TestRunnerInterviewCapabilityFailure(t *testing.T) {
	openAI := fakeOpenAI(t)
	paths := setupRunnerEnv(t, interviewConfig(openAI.URL))
	t.Setenv("OPENAI_API_KEY", "sk-test")

	provider := newScriptedProvider()
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:     &bytes.Buffer{},
		Stderr:     &stderr,
		provider:   provider,
		microphone: session.CapabilityFunc(func(context.Context) error { return errors.New("microphone muted") }),
	}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "interview"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "microphone muted")
	require.Empty(t, provider.agentID)
}

func TestRunnerInterviewUnknownAgent(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "interview", "--agent", "nope"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "unknown agent")
}

func TestRunnerInterviewRejectsSecondInterview(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "parley.sock"), func(context.Context, ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: "connected"}
	})
	defer shutdown()

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "interview"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "already running")
}

func TestLogOutcomeWritesFailureAndSuccess(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	started := time.Now()
	finished := started.Add(1500 * time.Millisecond)

	logOutcome(logger, session.Outcome{
		Session:    session.Snapshot{ID: "s-1", State: fsm.StateDisconnected, Transcript: "hello", Turns: 1},
		Target:     results.IDTarget("abc"),
		StartedAt:  started,
		FinishedAt: finished,
	})
	require.Contains(t, logBuf.String(), "session complete")
	require.Contains(t, logBuf.String(), "\"transcript_length\":5")
	require.Contains(t, logBuf.String(), "\"target\":\"id=abc\"")

	logBuf.Reset()
	logOutcome(logger, session.Outcome{
		Session:    session.Snapshot{State: fsm.StateDisconnected},
		StartedAt:  started,
		FinishedAt: finished,
		Err:        errors.New("boom"),
	})
	require.Contains(t, logBuf.String(), "session failed")
	require.Contains(t, logBuf.String(), "boom")
}

// scriptedProvider replays its events once the session starts.
type scriptedProvider struct {
	script  []session.Event
	agentID string
}

func newScriptedProvider(events ...session.Event) *scriptedProvider {
	return &scriptedProvider{script: events}
}

func (p *scriptedProvider) StartSession(_ context.Context, agentID string) (<-chan session.Event, error) {
	p.agentID = agentID
	events := make(chan session.Event, len(p.script))
	for _, ev := range p.script {
		events <- ev
	}
	return events, nil
}

func (p *scriptedProvider) EndSession(context.Context) error { return nil }

func readyMicrophone() session.Capability {
	return session.CapabilityFunc(func(context.Context) error { return nil })
}

func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()

	content, err := json.Marshal(map[string]any{
		"scores": []int{3, 2, 4, 3},
		"justifications": []string{
			"clear user focus",
			"thin prioritization",
			"strong solutions",
			"reasonable metrics",
		},
		"overall_feedback": "Solid structure.",
	})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": string(content)}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func interviewConfig(openAIURL string) string {
	return "scoring:\n  base_url: " + openAIURL + "\n" +
		"indicator:\n  enable: false\n" +
		"clipboard:\n  enable: false\n"
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T, configBody string) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Chdir(t.TempDir())

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configBody+"\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
