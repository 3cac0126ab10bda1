package instance

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// ErrLaunch is returned when the platform shell cannot be started.
var ErrLaunch = errors.New("failed to launch game")

// SessionResult describes a finished play session. Err holds the game's
// own failure (for example a non-zero exit) and is informational only.
type SessionResult struct {
	Started  time.Time
	Duration time.Duration
	ExitCode int
	Err      error
}

// Session is a running game process started by Launch.
type Session struct {
	inst    *Instance
	cmd     *exec.Cmd
	started time.Time
	done    chan struct{}
	result  SessionResult
	once    sync.Once
}

// LaunchOptions redirect the game's output. Nil writers discard it.
type LaunchOptions struct {
	Stdout io.Writer
	Stderr io.Writer
}

func shellCommand(command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.Command("cmd", "/C", command)
	}
	return exec.Command("sh", "-c", command)
}

// Launch starts command through the platform shell and returns without
// waiting. Play history is updated only when Wait is called.
func (i *Instance) Launch(command string, opts LaunchOptions) (*Session, error) {
	cmd := shellCommand(command)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w '%s': %w", ErrLaunch, i.Metadata.Name, err)
	}

	s := &Session{
		inst:    i,
		cmd:     cmd,
		started: started,
		done:    make(chan struct{}),
	}
	go s.wait()
	return s, nil
}

func (s *Session) wait() {
	err := s.cmd.Wait()
	s.result = SessionResult{
		Started:  s.started,
		Duration: time.Since(s.started),
		Err:      err,
	}
	if s.cmd.ProcessState != nil {
		s.result.ExitCode = s.cmd.ProcessState.ExitCode()
	}
	close(s.done)
}

// Done is closed once the game process has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Started is when the process was launched.
func (s *Session) Started() time.Time {
	return s.started
}

// Wait blocks until the game exits, then folds the session into the
// instance's play history. Repeated calls return the same result and
// record the session once.
func (s *Session) Wait() SessionResult {
	<-s.done
	s.once.Do(func() {
		s.inst.Metadata.RecordSession(s.result.Started, s.result.Duration)
	})
	return s.result
}

// Run launches command and waits for it.
func (i *Instance) Run(command string, opts LaunchOptions) (SessionResult, error) {
	s, err := i.Launch(command, opts)
	if err != nil {
		return SessionResult{}, err
	}
	return s.Wait(), nil
}
