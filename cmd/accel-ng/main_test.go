package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "replay", "summary"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("subcommand %q not found: %v", name, err)
		}
	}
	for _, flag := range []string{"config", "debug"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("missing persistent flag --%s", flag)
		}
	}
}

func TestRunCmd_RequiresEnabledIMU(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"run"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "imu.enable is false") {
		t.Fatalf("err=%v want imu.enable error", err)
	}
}

func TestRunCmd_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("imu:\n  range_g: 5\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	root := newRootCmd()
	root.SetArgs([]string{"run", "--config", path})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil || err.Error() != "imu.range_g must be one of 2, 4, 8, 16" {
		t.Fatalf("err=%v", err)
	}
}

func TestReplayCmd_RequiresPath(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"replay"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "no log path") {
		t.Fatalf("err=%v want missing path error", err)
	}
}

func TestReplayCmd_RecordsReintegratedLog(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.log")
	out := filepath.Join(dir, "out.log")
	contents := "START\n" +
		`0,sensor_accel_fifo,{"timestamp_sample":1000000,"dt":1000000,"scale":0.01,"samples":2,"x":[100,200],"y":[0,0],"z":[0,0]}` + "\n"
	if err := os.WriteFile(in, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	cfgPath := filepath.Join(dir, "cfg.yaml")
	cfg := "sinks:\n  record:\n    enable: true\n    path: " + out + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	root := newRootCmd()
	root.SetArgs([]string{"replay", in, "--config", cfgPath, "--speed", "10"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	var summary bytes.Buffer
	if err := printLogSummary(&summary, out); err != nil {
		t.Fatalf("printLogSummary() error: %v", err)
	}
	got := summary.String()
	for _, want := range []string{"  sensor_accel: 1\n", "  sensor_accel_fifo: 1\n", "  sensor_accel_status: 1\n"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestSummaryCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accel.log")
	if err := os.WriteFile(path, []byte("START\n5,sensor_accel,{\"x\":1}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"summary", path})
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(out.String(), "records: 1\n") {
		t.Fatalf("output=%s", out.String())
	}
}
