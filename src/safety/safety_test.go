package safety_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"stackops/src/safety"
)

func TestConfirm_AutoYes(t *testing.T) {
	in := strings.NewReader("")
	var out bytes.Buffer
	ok, err := safety.Confirm(safety.Options{Yes: true}, in, &out, "proceed?")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected auto-yes to confirm")
	}
}

func TestConfirm_DryRun(t *testing.T) {
	in := strings.NewReader("y\n")
	var out bytes.Buffer
	ok, err := safety.Confirm(safety.Options{DryRun: true}, in, &out, "proceed?")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected dry-run to decline")
	}
}

func TestConfirm_UserInput(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"No\n", false},
		{"\n", false},
		{"", false},
	}
	for _, c := range cases {
		in := strings.NewReader(c.in)
		var out bytes.Buffer
		got, err := safety.Confirm(safety.Options{}, in, &out, "overwrite live data?")
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Fatalf("input %q: got %v want %v", c.in, got, c.want)
		}
		if !strings.Contains(out.String(), "overwrite live data?") {
			t.Fatalf("prompt missing question; got %q", out.String())
		}
	}
}

func TestRequireRoot(t *testing.T) {
	err := safety.RequireRoot(safety.Options{})
	if os.Geteuid() == 0 {
		if err != nil {
			t.Fatalf("unexpected error as root: %v", err)
		}
	} else if !errors.Is(err, safety.ErrNotRoot) {
		t.Fatalf("err = %v, want ErrNotRoot", err)
	}

	if err := safety.RequireRoot(safety.Options{Force: true}); err != nil {
		t.Fatalf("force should bypass the check: %v", err)
	}
}
