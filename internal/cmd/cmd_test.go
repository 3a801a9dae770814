package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hoppxi/adjust-brightness/internal/dialog"
	"github.com/hoppxi/adjust-brightness/internal/manager"
	"github.com/hoppxi/adjust-brightness/pkg/displayinfo"
	"github.com/hoppxi/adjust-brightness/pkg/operation"
	"github.com/hoppxi/adjust-brightness/pkg/operation/operationtest"
)

type recordingNotifier struct {
	calls  []string
	closed int
}

func (n *recordingNotifier) Close() error {
	n.closed++
	return nil
}

func (n *recordingNotifier) Brightness(display string, level int) error {
	n.calls = append(n.calls, display+"="+displayinfo.FractionString(level))
	return nil
}

type cancelPrompter struct {
	shown int
}

func (p *cancelPrompter) ChooseDisplay([]string, string) (string, error) {
	p.shown++
	return "", dialog.ErrCanceled
}

func (p *cancelPrompter) ChooseLevel(string, []int, int) (int, error) {
	return 0, dialog.ErrCanceled
}

func (p *cancelPrompter) Error(error) {}

type harness struct {
	fake     *operationtest.Backend
	notifier *recordingNotifier
	prompter *cancelPrompter
	config   string
}

func newHarness(t *testing.T, configDoc string) *harness {
	t.Helper()
	config := filepath.Join(t.TempDir(), "config.yaml")
	if configDoc != "" {
		if err := os.WriteFile(config, []byte(configDoc), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return &harness{
		fake: &operationtest.Backend{Outputs: []operationtest.Output{
			{Name: "eDP-1", Connected: true, Fraction: 0.4},
			{Name: "DP-1", Connected: false},
			{Name: "HDMI-1", Connected: true, Fraction: 1.0},
		}},
		notifier: &recordingNotifier{},
		prompter: &cancelPrompter{},
		config:   config,
	}
}

func (h *harness) run(ctx context.Context, stdin string, args ...string) (string, error) {
	a := &app{backend: h.fake, notifier: h.notifier, prompter: h.prompter}
	root := newRootCmd(a)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", h.config}, args...))

	err := a.execute(ctx, root)
	return out.String(), err
}

func (h *harness) exec(args ...string) (string, error) {
	return h.run(context.Background(), "", args...)
}

func TestList(t *testing.T) {
	h := newHarness(t, "")
	out, err := h.exec("list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out != "eDP-1\nHDMI-1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestListJSON(t *testing.T) {
	h := newHarness(t, "")
	out, err := h.exec("list", "--json")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(out), &names); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(names) != 2 || names[0] != "eDP-1" || names[1] != "HDMI-1" {
		t.Errorf("names = %q", names)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"named", []string{"get", "HDMI-1"}, "10\n"},
		{"first connected", []string{"get"}, "4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			out, err := h.exec(tt.args...)
			if err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestGetJSON(t *testing.T) {
	h := newHarness(t, "")
	out, err := h.exec("get", "eDP-1", "--json")
	if err != nil {
		t.Fatalf("get --json: %v", err)
	}
	var info displayinfo.DisplayInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if info != (displayinfo.DisplayInfo{Name: "eDP-1", Fraction: 0.4, Level: 4}) {
		t.Errorf("info = %+v", info)
	}
}

func TestGetUnknownDisplay(t *testing.T) {
	h := newHarness(t, "")
	if _, err := h.exec("get", "VGA-1"); !errors.Is(err, displayinfo.ErrDisplayNotFound) {
		t.Fatalf("get VGA-1 error = %v, want ErrDisplayNotFound", err)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		name   string
		config string
		args   []string
		want   string
		out    string
	}{
		{"absolute", "", []string{"set", "HDMI-1", "7"}, "0.7", "HDMI-1: 7\n"},
		{"relative", "", []string{"set", "eDP-1", "+2"}, "0.6", "eDP-1: 6\n"},
		{"relative after --", "", []string{"set", "eDP-1", "--", "-1"}, "0.3", "eDP-1: 3\n"},
		{"named expression", "", []string{"set", "eDP-1", "level*2"}, "0.8", "eDP-1: 8\n"},
		{"clamped to min level", "min_level: 2\n", []string{"set", "HDMI-1", "0"}, "0.2", "HDMI-1: 2\n"},
		{"zero when allowed", "min_level: 0\n", []string{"set", "HDMI-1", "0"}, "0.0", "HDMI-1: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.config)
			out, err := h.exec(tt.args...)
			if err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
			if out != tt.out {
				t.Errorf("output = %q, want %q", out, tt.out)
			}
			got, ok := h.fake.LastApplied()
			if !ok || got.Fraction != tt.want {
				t.Errorf("applied %+v, want fraction %q", got, tt.want)
			}
			if len(h.notifier.calls) != 1 {
				t.Errorf("notifications = %q, want one", h.notifier.calls)
			}
			if h.notifier.closed != 1 {
				t.Errorf("notifier closed %d times, want once", h.notifier.closed)
			}
		})
	}
}

func TestSetWithoutNotifications(t *testing.T) {
	h := newHarness(t, "notify: false\n")
	if _, err := h.exec("set", "HDMI-1", "5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(h.notifier.calls) != 0 {
		t.Errorf("notifications = %q, want none", h.notifier.calls)
	}
}

func TestSetBadExpression(t *testing.T) {
	for _, expr := range []string{"level+", "level/0", "0/0"} {
		t.Run(expr, func(t *testing.T) {
			h := newHarness(t, "")
			if _, err := h.exec("set", "HDMI-1", expr); err == nil {
				t.Fatal("expected an error")
			}
			if len(h.fake.Applied) != 0 {
				t.Errorf("applied %+v", h.fake.Applied)
			}
		})
	}
}

func TestSetToolError(t *testing.T) {
	h := newHarness(t, "")
	h.fake.ApplyErr = &operation.ToolError{Args: []string{"xrandr"}, Err: errors.New("exit status 1")}
	_, err := h.exec("set", "HDMI-1", "5")
	var toolErr *operation.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("set error = %v, want *ToolError", err)
	}
	if len(h.notifier.calls) != 0 {
		t.Errorf("notified after failure: %q", h.notifier.calls)
	}
}

func TestMissingToolStopsBeforeDialog(t *testing.T) {
	h := newHarness(t, "")
	h.fake.Missing = true

	for _, args := range [][]string{nil, {"list"}, {"get", "eDP-1"}} {
		_, err := h.exec(args...)
		if !errors.Is(err, operation.ErrToolMissing) {
			t.Fatalf("%v error = %v, want ErrToolMissing", args, err)
		}
		if !strings.Contains(err.Error(), "x11-xserver-utils") {
			t.Errorf("error lacks install hint: %v", err)
		}
	}
	if h.prompter.shown != 0 {
		t.Error("dialog shown although xrandr is missing")
	}
}

func TestRootOpensDialog(t *testing.T) {
	h := newHarness(t, "")
	if _, err := h.exec(); err != nil {
		t.Fatalf("root: %v", err)
	}
	if h.prompter.shown != 1 {
		t.Errorf("dialog shown %d times, want 1", h.prompter.shown)
	}
}

func TestInvalidConfig(t *testing.T) {
	h := newHarness(t, "min_level: 20\n")
	if _, err := h.exec("list"); err == nil || !strings.Contains(err.Error(), "min_level") {
		t.Fatalf("list error = %v, want config error", err)
	}
}

func TestApply(t *testing.T) {
	h := newHarness(t, `min_level: 1
displays:
  - name: eDP-1
    level: 0
  - name: DP-1
    level: 5
  - name: HDMI-1
    level: 8
`)
	out, err := h.exec("apply")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out != "eDP-1: 1\nHDMI-1: 8\n" {
		t.Errorf("output = %q", out)
	}
	want := []operationtest.Applied{{Display: "eDP-1", Fraction: "0.1"}, {Display: "HDMI-1", Fraction: "0.8"}}
	if len(h.fake.Applied) != len(want) {
		t.Fatalf("applied %+v, want %+v", h.fake.Applied, want)
	}
	for i := range want {
		if h.fake.Applied[i] != want[i] {
			t.Errorf("applied[%d] = %+v, want %+v", i, h.fake.Applied[i], want[i])
		}
	}
}

func TestApplyNothingConfigured(t *testing.T) {
	h := newHarness(t, "")
	out, err := h.exec("apply")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, "No display levels configured") {
		t.Errorf("output = %q", out)
	}
}

func TestApplyWatchAppliesOnStart(t *testing.T) {
	h := newHarness(t, "displays:\n  - name: HDMI-1\n    level: 6\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := h.run(ctx, "", "apply", "--watch")
		done <- err
	}()

	deadline := time.After(5 * time.Second)
	for {
		if got, ok := h.fake.LastApplied(); ok {
			if got != (operationtest.Applied{Display: "HDMI-1", Fraction: "0.6"}) {
				t.Fatalf("applied %+v", got)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("nothing applied while watching")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("apply --watch: %v", err)
		}
	case <-deadline:
		t.Fatal("apply --watch did not stop")
	}
}

func waitForApplied(t *testing.T, h *harness, want operationtest.Applied) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if got, ok := h.fake.LastApplied(); ok && got == want {
			return
		}
		select {
		case <-deadline:
			got, _ := h.fake.LastApplied()
			t.Fatalf("last applied %+v, want %+v", got, want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestApplyWatchReappliesOnChange(t *testing.T) {
	h := newHarness(t, "displays:\n  - name: HDMI-1\n    level: 6\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := h.run(ctx, "", "apply", "--watch")
		done <- err
	}()
	waitForApplied(t, h, operationtest.Applied{Display: "HDMI-1", Fraction: "0.6"})

	if err := os.WriteFile(h.config, []byte("displays:\n  - name: HDMI-1\n    level: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForApplied(t, h, operationtest.Applied{Display: "HDMI-1", Fraction: "0.3"})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("apply --watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("apply --watch did not stop")
	}
}

func TestSetup(t *testing.T) {
	h := newHarness(t, "")
	// tool, min level, timeout, notify, record levels
	stdin := "\n2\n\nn\ny\n"
	if _, err := h.run(context.Background(), stdin, "setup"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	s, err := manager.NewConfigManager(h.config).Settings()
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	if s.Tool != "xrandr" || s.MinLevel != 2 || s.Timeout != 0 || s.Notify {
		t.Errorf("settings = %+v", s)
	}
	want := []manager.DisplayLevel{{Name: "eDP-1", Level: 4}, {Name: "HDMI-1", Level: 10}}
	if len(s.Displays) != 2 || s.Displays[0] != want[0] || s.Displays[1] != want[1] {
		t.Errorf("displays = %+v, want %+v", s.Displays, want)
	}
}

func TestSetupKeepsExistingConfigWhenDeclined(t *testing.T) {
	doc := "min_level: 3\n"
	h := newHarness(t, doc)
	if _, err := h.run(context.Background(), "n\n", "setup"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	data, err := os.ReadFile(h.config)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != doc {
		t.Errorf("config overwritten: %q", data)
	}
}

func TestSetupReplacesInvalidConfig(t *testing.T) {
	h := newHarness(t, "min_level: 42\n")
	h.fake.Missing = true
	// overwrite, then accept every default
	stdin := "y\n\n\n\n\n\n"
	if _, err := h.run(context.Background(), stdin, "setup"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s, err := manager.NewConfigManager(h.config).Settings()
	if err != nil {
		t.Fatalf("config still invalid: %v", err)
	}
	if s.MinLevel != 1 {
		t.Errorf("min_level = %d, want default 1", s.MinLevel)
	}
}
