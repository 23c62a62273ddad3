package spawn

import (
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// Spawn launches spec with a default Spawner.
func Spawn(spec *Spec) (*Child, error) {
	return New().Spawn(spec)
}

// Run spawns spec and waits for it.
func (s *Spawner) Run(spec *Spec) (ExitStatus, error) {
	child, err := s.Spawn(spec)
	if err != nil {
		return ExitStatus{}, err
	}
	defer closeFiles(child)
	return child.Wait()
}

// Output is the collected result of Spawner.Output.
type Output struct {
	Status ExitStatus
	Stdout []byte
	Stderr []byte
}

// Output spawns spec with stdout and stderr piped, reads both to end of file
// and waits. An inherited stdin is replaced by Null.
func (s *Spawner) Output(spec *Spec) (*Output, error) {
	cp := *spec
	cp.Stdout, cp.Stderr = Pipe, Pipe
	if cp.Stdin == Inherit {
		cp.Stdin = Null
	}

	child, err := s.Spawn(&cp)
	if err != nil {
		return nil, err
	}
	defer closeFiles(child)
	if child.Stdin != nil {
		child.Stdin.Close()
		child.Stdin = nil
	}

	var out Output
	var g errgroup.Group
	g.Go(func() error {
		var err error
		out.Stdout, err = io.ReadAll(child.Stdout)
		return err
	})
	g.Go(func() error {
		var err error
		out.Stderr, err = io.ReadAll(child.Stderr)
		return err
	})
	readErr := g.Wait()

	out.Status, err = child.Wait()
	if err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading output of %s: %w", spec.Program, readErr)
	}
	return &out, nil
}

func closeFiles(c *Child) {
	if c.Stdin != nil {
		c.Stdin.Close()
	}
	if c.Stdout != nil {
		c.Stdout.Close()
	}
	if c.Stderr != nil {
		c.Stderr.Close()
	}
}
