package spawn

import (
	"os"
	"slices"
	"syscall"
	"testing"
)

func TestCandidates(t *testing.T) {
	t.Setenv("PATH", "/parent/bin:/parent/sbin")

	override := EmptyEnv()
	override.Set("PATH", "/a:/b:/c")

	noPath := EmptyEnv()
	noPath.Set("HOME", "/root")

	tests := []struct {
		name    string
		program string
		env     *Env
		want    []string
		ok      bool
	}{
		{"parent PATH", "ls", nil, []string{"/parent/bin/ls", "/parent/sbin/ls"}, true},
		{"override PATH", "ls", override, []string{"/a/ls", "/b/ls", "/c/ls"}, true},
		{"override without PATH", "ls", noPath, nil, false},
		{"absolute", "/bin/ls", nil, nil, false},
		{"relative with slash", "./ls", override, nil, false},
		{"nested name", "sub/ls", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Candidates(tt.program, tt.env)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("candidates = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCandidatesParentPathUnset(t *testing.T) {
	t.Setenv("PATH", "")
	os.Unsetenv("PATH")

	if got, ok := Candidates("ls", nil); ok {
		t.Fatalf("expected no search without PATH, got %q", got)
	}
}

func TestCandidatesEmptySegment(t *testing.T) {
	env := EmptyEnv()
	env.Set("PATH", "/x::/y:")

	got, _ := Candidates("prog", env)
	want := []string{"/x/prog", "/prog", "/y/prog", "/prog"}
	if !slices.Equal(got, want) {
		t.Errorf("candidates = %q, want %q", got, want)
	}
}

func TestSearchOrder(t *testing.T) {
	p := &prepared{program: "prog", searched: true, candidates: []string{"/a/prog", "/b/prog", "/c/prog"}}

	tests := []struct {
		name    string
		results map[string]syscall.Errno
		want    syscall.Errno
		tried   []string
	}{
		{
			name:    "first success wins",
			results: map[string]syscall.Errno{"/a/prog": 0},
			want:    0,
			tried:   []string{"/a/prog"},
		},
		{
			name:    "denied then found",
			results: map[string]syscall.Errno{"/a/prog": syscall.EACCES, "/b/prog": 0},
			want:    0,
			tried:   []string{"/a/prog", "/b/prog"},
		},
		{
			name:    "first denial is reported",
			results: map[string]syscall.Errno{"/a/prog": syscall.ENOENT, "/b/prog": syscall.EACCES, "/c/prog": syscall.EPERM},
			want:    syscall.EACCES,
			tried:   []string{"/a/prog", "/b/prog", "/c/prog"},
		},
		{
			name:    "exhausted",
			results: map[string]syscall.Errno{"/a/prog": syscall.ENOENT, "/b/prog": syscall.ETIMEDOUT, "/c/prog": syscall.ENOENT},
			want:    syscall.ENOENT,
			tried:   []string{"/a/prog", "/b/prog", "/c/prog"},
		},
		{
			name:    "other errors stop the search",
			results: map[string]syscall.Errno{"/a/prog": syscall.EACCES, "/b/prog": syscall.ENOEXEC},
			want:    syscall.ENOEXEC,
			tried:   []string{"/a/prog", "/b/prog"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tried []string
			got := search(p, func(path string) syscall.Errno {
				tried = append(tried, path)
				if errno, ok := tt.results[path]; ok {
					return errno
				}
				return syscall.ENOENT
			})
			if got != tt.want {
				t.Errorf("search = %v, want %v", got, tt.want)
			}
			if !slices.Equal(tried, tt.tried) {
				t.Errorf("tried %q, want %q", tried, tt.tried)
			}
		})
	}
}

func TestSearchLiteral(t *testing.T) {
	p := &prepared{program: "/bin/prog"}
	var tried []string
	got := search(p, func(path string) syscall.Errno {
		tried = append(tried, path)
		return syscall.EACCES
	})
	if got != syscall.EACCES {
		t.Errorf("search = %v, want EACCES", got)
	}
	if !slices.Equal(tried, []string{"/bin/prog"}) {
		t.Errorf("tried %q", tried)
	}
}
