package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunDoctorCommand_TextOutput(t *testing.T) {
	home := withHome(t)
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("default_page_size: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	code := runDoctorCommand(context.Background(), nil, &out)
	if code != 0 {
		t.Fatalf("exit %d, output:\n%s", code, out.String())
	}
	for _, want := range []string{"tasklist doctor report", "Config", "Database", "Task Data"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunDoctorCommand_JSONOutput(t *testing.T) {
	withHome(t)
	for _, flag := range []string{"-json", "--json"} {
		var out bytes.Buffer
		if code := runDoctorCommand(context.Background(), []string{flag}, &out); code != 0 {
			t.Fatalf("%s exit %d", flag, code)
		}
		var diag struct {
			Results []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"results"`
		}
		if err := json.Unmarshal(out.Bytes(), &diag); err != nil {
			t.Fatalf("%s: invalid json: %v", flag, err)
		}
		if len(diag.Results) == 0 {
			t.Fatalf("%s: no results", flag)
		}
	}
}

func TestRunDoctorCommand_NeedsInit(t *testing.T) {
	withHome(t)
	var out bytes.Buffer
	// No config.yaml: the config check warns but nothing fails.
	if code := runDoctorCommand(context.Background(), nil, &out); code != 0 {
		t.Fatalf("exit %d, output:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "tasklist init") {
		t.Fatalf("expected init hint:\n%s", out.String())
	}
}
