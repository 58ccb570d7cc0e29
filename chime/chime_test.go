package chime_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tickdown/tickdown/chime"
	"github.com/tickdown/tickdown/internal/errorutil"
)

func TestTerminalBell(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	bell := &chime.TerminalBell{Out: &buf}

	if err := bell.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if got := buf.String(); got != "\a" {
		t.Fatalf("Play() wrote %q, want %q", got, "\a")
	}
}

func TestPlayerFunc(t *testing.T) {
	t.Parallel()

	want := errorutil.Error("no audio device")
	p := chime.PlayerFunc(func() error { return want })

	got := p.Play()
	if diff := cmp.Diff(got, want, cmpopts.EquateErrors()); diff != "" {
		t.Fatalf("Play() error = %v, want %v\ndiff (-got +want):\n%v", got, want, diff)
	}
}

func TestNop(t *testing.T) {
	t.Parallel()

	if err := chime.Nop.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
}
