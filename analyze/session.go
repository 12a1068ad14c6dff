package analyze

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	handshakeTimeout = 10 * time.Second

	// responseGrace is how long past the movetime budget the engine may
	// take to answer before the session is considered hung.
	responseGrace = 2 * time.Second
)

// session is one live handle to the engine subprocess: stdin for
// requests, a line channel for responses.
type session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	output chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newSession(ctx context.Context, binary string) (*session, error) {
	sctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(sctx, binary)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start engine %s: %w", binary, err)
	}

	s := &session{
		cmd:    cmd,
		stdin:  stdin,
		output: make(chan string, 512),
		cancel: cancel,
	}

	s.wg.Add(2)

	go func() {
		defer s.wg.Done()
		defer close(s.output)
		r := bufio.NewScanner(stdout)
		for r.Scan() {
			select {
			case s.output <- r.Text():
			case <-sctx.Done():
				return
			}
		}
	}()

	go func() {
		defer s.wg.Done()
		r := bufio.NewScanner(stderr)
		for r.Scan() {
			log.Debug().Str("line", r.Text()).Msg("engine stderr")
		}
	}()

	if err := s.handshake(); err != nil {
		s.close()
		return nil, fmt.Errorf("engine handshake: %w", err)
	}

	return s, nil
}

func (s *session) handshake() error {
	if err := s.send("uci"); err != nil {
		return err
	}
	if err := s.waitFor("uciok", handshakeTimeout); err != nil {
		return err
	}
	if err := s.send("isready"); err != nil {
		return err
	}
	if err := s.waitFor("readyok", handshakeTimeout); err != nil {
		return err
	}
	if err := s.send("ucinewgame"); err != nil {
		return err
	}
	if err := s.send("isready"); err != nil {
		return err
	}
	return s.waitFor("readyok", handshakeTimeout)
}

func (s *session) send(line string) error {
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		return fmt.Errorf("engine write: %w", err)
	}
	return nil
}

func (s *session) waitFor(token string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case line, ok := <-s.output:
			if !ok {
				return errors.New("engine closed the pipe")
			}
			if line == token {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("no %q within %v", token, timeout)
		}
	}
}

// evaluate runs a single bounded evaluation and returns the last
// complete score the engine reported before its bestmove.
func (s *session) evaluate(ctx context.Context, fenPos string, budget time.Duration) (Eval, error) {
	if err := s.send("position fen " + fenPos); err != nil {
		return Eval{}, err
	}
	if err := s.send(fmt.Sprintf("go movetime %d", budget.Milliseconds())); err != nil {
		return Eval{}, err
	}

	timer := time.NewTimer(budget + responseGrace)
	defer timer.Stop()

	var (
		last     Eval
		haveEval bool
	)

	for {
		select {
		case <-ctx.Done():
			return Eval{}, ctx.Err()

		case line, ok := <-s.output:
			if !ok {
				return Eval{}, errors.New("engine exited mid-evaluation")
			}

			if strings.HasPrefix(line, "bestmove") {
				if !haveEval {
					return Eval{}, fmt.Errorf("bestmove without a score for %q", fenPos)
				}
				return last, nil
			}

			if strings.HasPrefix(line, "info ") && strings.Contains(line, " score ") {
				eval, err := parseInfo(line)
				if err != nil {
					return Eval{}, err
				}
				last, haveEval = eval, true
			}

		case <-timer.C:
			return Eval{}, fmt.Errorf("engine unresponsive for %v", budget+responseGrace)
		}
	}
}

func (s *session) close() {
	_ = s.send("quit")
	s.cancel()
	_ = s.stdin.Close()
	s.wg.Wait()
	_ = s.cmd.Wait()
}
