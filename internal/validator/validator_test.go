package validator

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type server struct {
	Addr  string `yaml:"addr" validate:"required"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dirs  []dir  `yaml:"dirs" validate:"dive"`
}

type dir struct {
	Path string `yaml:"path" validate:"required"`
}

func TestProblems(t *testing.T) {
	// 1. Valid
	if p := Problems(server{Addr: ":8080", Level: "info"}); len(p) != 0 {
		t.Errorf("expected no problems, got %v", p)
	}

	// 2. Invalid: names come from yaml tags
	p := Problems(server{Level: "loud", Dirs: []dir{{}}})
	want := []string{
		"addr: failed on 'required'",
		"level: failed on 'oneof=debug info warn error'",
		"dirs[0].path: failed on 'required'",
	}
	if len(p) != len(want) {
		t.Fatalf("expected %d problems, got %v", len(want), p)
	}
	for i := range want {
		if p[i] != want[i] {
			t.Errorf("problem %d: expected %q, got %q", i, want[i], p[i])
		}
	}
}

func TestStruct(t *testing.T) {
	err := Struct(server{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.HasPrefix(err.Error(), "found 1 errors:\n- addr") {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if Join(nil) != nil {
		t.Error("Join(nil) should be nil")
	}
}

func TestFlatten(t *testing.T) {
	err := errors.Join(errors.New("a"), fmt.Errorf("wrapped: %w", errors.Join(errors.New("b"))), errors.Join(errors.New("c"), errors.New("d")))
	got := Flatten(err)
	want := []string{"a", "wrapped: b", "c", "d"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}
