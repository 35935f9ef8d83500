package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const haltedSession = `{"id": 1, "intent": "Create an exposure hierarchy for agoraphobia", "status": "halted_for_human",
	"latest_draft": "1. Stand by the door", "safety_score": 0.8, "iteration": 2,
	"created_at": "2025-03-01T10:00:00", "updated_at": "2025-03-01T10:05:00",
	"drafts": [
		{"id": 11, "version_index": 1, "content": "draft one", "created_at": "2025-03-01T10:01:00"},
		{"id": 12, "version_index": 2, "content": "1. Stand by the door", "created_at": "2025-03-01T10:04:00"}
	]}`

// newBackend serves a single halted session.
func newBackend(t *testing.T, approved chan<- string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/protocols", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"id": 1, "intent": "Create an exposure hierarchy for agoraphobia", "status": "halted_for_human",
			"created_at": "2025-03-01T10:00:00", "updated_at": "2025-03-01T10:05:00"}]`)
	})
	mux.HandleFunc("POST /api/protocols", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": 2, "intent": "new", "status": "created", "drafts": []}`)
	})
	mux.HandleFunc("GET /api/protocols/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, haltedSession)
	})
	mux.HandleFunc("GET /api/protocols/1/blackboard", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": {"current_draft": "1. Stand by the door", "iteration": 2}, "created_at": "2025-03-01T10:05:00"}`)
	})
	mux.HandleFunc("POST /api/protocols/1/approve", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			EditedDraft string `json:"edited_draft"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("expected JSON body, got %v", err)
		}
		if approved != nil {
			approved <- body.EditedDraft
		}
		fmt.Fprint(w, strings.Replace(haltedSession, "halted_for_human", "running", 1))
	})
	mux.HandleFunc("GET /api/protocols/1/stream/{mode}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"type\": \"agent_event\", \"payload\": {\"agent\": \"Drafter\", \"event\": \"%s segment\"}}\n\n", r.PathValue("mode"))
		fmt.Fprint(w, "data: {\"type\": \"state\", \"payload\": {\"current_draft\": \"2. Walk to the corner\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\": \"halt\", \"payload\": {\"interrupts\": [{\"value\": \"review\"}]}}\n\n")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// executeCommand runs the root command with args and returns captured output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(func() {
		resetFlags(rootCmd)
		viper.Reset()
		closeLogFile()
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		_ = flag.Value.Set(flag.DefValue)
		flag.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "foundry" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "foundry")
	}

	expected := []string{"sessions", "create", "show", "kickoff", "approve", "watch", "console", "schema"}
	commands := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		commands[cmd.Name()] = true
	}
	for _, name := range expected {
		if !commands[name] {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestSessionsCommand(t *testing.T) {
	server := newBackend(t, nil)

	out, err := executeCommand(t, "sessions", "--api-url", server.URL+"/api")
	if err != nil {
		t.Fatalf("sessions error = %v, output:\n%s", err, out)
	}
	if !strings.Contains(out, "halted_for_human") || !strings.Contains(out, "agoraphobia") {
		t.Errorf("expected session listing, got:\n%s", out)
	}
}

func TestCreateCommand(t *testing.T) {
	server := newBackend(t, nil)

	out, err := executeCommand(t, "create", "--api-url", server.URL+"/api", "new")
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	if !strings.Contains(out, "Created session 2") {
		t.Errorf("expected created session, got:\n%s", out)
	}
}

func TestShowCommand(t *testing.T) {
	server := newBackend(t, nil)

	out, err := executeCommand(t, "show", "--api-url", server.URL+"/api", "1")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	for _, want := range []string{"Session 1", "Safety:    0.80", "Empathy:   -", "Latest draft:", "Blackboard"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSchemaCommand(t *testing.T) {
	out, err := executeCommand(t, "schema")
	if err != nil {
		t.Fatalf("schema error = %v", err)
	}
	if !strings.Contains(out, "StreamFrame") {
		t.Errorf("expected envelope schema, got:\n%s", out)
	}

	if _, err := executeCommand(t, "schema", "--kind", "bogus"); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}

func TestWatchStopsAtHalt(t *testing.T) {
	server := newBackend(t, nil)

	out, err := executeCommand(t, "watch", "--api-url", server.URL+"/api", "1")
	if err != nil {
		t.Fatalf("watch error = %v, output:\n%s", err, out)
	}
	for _, want := range []string{"start segment", "Run halted for human review", "2. Walk to the corner"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestApproveCommand(t *testing.T) {
	approved := make(chan string, 1)
	server := newBackend(t, approved)
	draftFile := filepath.Join(t.TempDir(), "draft.txt")
	if err := os.WriteFile(draftFile, []byte("reviewed draft"), 0o600); err != nil {
		t.Fatalf("failed to write draft: %v", err)
	}

	out, err := executeCommand(t, "approve", "--api-url", server.URL+"/api", "--draft-file", draftFile, "1")
	if err != nil {
		t.Fatalf("approve error = %v, output:\n%s", err, out)
	}
	if got := <-approved; got != "reviewed draft" {
		t.Errorf("approved draft = %q, want %q", got, "reviewed draft")
	}
	if !strings.Contains(out, "Approved draft for session 1 (running)") {
		t.Errorf("expected approval confirmation, got:\n%s", out)
	}
}

func TestApproveAndWatchResumes(t *testing.T) {
	approved := make(chan string, 1)
	server := newBackend(t, approved)

	rootCmd.SetIn(strings.NewReader("reviewed from stdin"))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	out, err := executeCommand(t, "approve", "--api-url", server.URL+"/api", "--draft-file", "-", "--watch", "1")
	if err != nil {
		t.Fatalf("approve --watch error = %v, output:\n%s", err, out)
	}
	if got := <-approved; got != "reviewed from stdin" {
		t.Errorf("approved draft = %q, want %q", got, "reviewed from stdin")
	}
	if !strings.Contains(out, "resume segment") {
		t.Errorf("expected resumed activity, got:\n%s", out)
	}
}

func TestInvalidTransportFlag(t *testing.T) {
	if _, err := executeCommand(t, "sessions", "--transport", "carrier-pigeon"); err == nil {
		t.Error("expected an error for an invalid transport")
	}
}

func newFailingStreamBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/protocols/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, haltedSession)
	})
	mux.HandleFunc("GET /api/protocols/1/blackboard", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": {}}`)
	})
	mux.HandleFunc("GET /api/protocols/1/stream/{mode}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agents unavailable", http.StatusServiceUnavailable)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestLogsFollowConfiguredLevelAndFile(t *testing.T) {
	testCases := map[string]struct {
		level    string
		expected bool
	}{
		"warn level keeps warnings":  {level: "warn", expected: true},
		"error level hides warnings": {level: "error", expected: false},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			server := newFailingStreamBackend(t)
			logPath := filepath.Join(t.TempDir(), "foundry.log")

			_, err := executeCommand(t, "watch", "--api-url", server.URL+"/api",
				"--log-level", tc.level, "--log-file", logPath, "1")
			if err == nil {
				t.Fatalf("expected watch to fail when the stream cannot open")
			}

			logs, err := os.ReadFile(logPath)
			if err != nil {
				t.Fatalf("expected log file to exist, got %v", err)
			}
			if got := strings.Contains(string(logs), "failed to open stream"); got != tc.expected {
				t.Fatalf("expected stream failure logged = %v, got logs:\n%s", tc.expected, logs)
			}
		})
	}
}
