package spawn

import (
	"errors"
	"slices"
	"testing"
)

func TestCommandArgv(t *testing.T) {
	s := Command("ls", "-l", "/tmp")
	if want := []string{"ls", "-l", "/tmp"}; !slices.Equal(s.argv(), want) {
		t.Errorf("argv = %q, want %q", s.argv(), want)
	}

	bare := &Spec{Program: "/bin/true"}
	if want := []string{"/bin/true"}; !slices.Equal(bare.argv(), want) {
		t.Errorf("argv = %q, want %q", bare.argv(), want)
	}
}

func TestValidate(t *testing.T) {
	badEnvName := EmptyEnv()
	badEnvName.Set("A=B", "x")
	badEnvValue := EmptyEnv()
	badEnvValue.Set("A", "x\x00y")

	tests := []struct {
		name string
		spec *Spec
	}{
		{"empty program", &Spec{}},
		{"nul in program", Command("ls\x00")},
		{"nul in argument", Command("ls", "a\x00b")},
		{"nul in dir", Command("ls").SetDir("/tmp\x00")},
		{"bad env name", &Spec{Program: "ls", Env: badEnvName}},
		{"nul in env value", &Spec{Program: "ls", Env: badEnvValue}},
		{"negative fd", &Spec{Program: "ls", Stdout: Fd(-3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.validate("spawn")
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("validate = %v, want ErrInvalidInput", err)
			}
		})
	}

	if err := Command("ls", "-l").SetEnv("X", "1").validate("spawn"); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
}

func TestSpawnRejectsNulBeforeSpawning(t *testing.T) {
	child, err := New().Spawn(Command("/bin/sh", "-c", "exit 0\x00"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Spawn = %v, want ErrInvalidInput", err)
	}
	if child != nil {
		t.Fatal("no child expected")
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{StrategyAuto, StrategyFast, StrategyFork} {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStrategy("vfork"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
