package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/rustinsight/pairing-agent/pkg/logger"
)

// ProcessEngine runs the pairing engine as a helper subprocess and speaks
// newline-delimited JSON over its stdio: commands down stdin, tagged events
// and command results up stdout. Killing the process is always enough to
// guarantee no pairing listener outlives the agent.
type ProcessEngine struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	writeMu sync.Mutex

	events  chan Event
	results chan cmdResult
	done    chan struct{} // closed when the read loop exits

	destroyOnce sync.Once
}

type wireMessage struct {
	Type        string `json:"type"`
	Op          string `json:"op,omitempty"`
	OK          bool   `json:"ok,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
	Name        string `json:"name,omitempty"`
	IP          string `json:"ip,omitempty"`
	Port        int    `json:"port,omitempty"`
	PlayerID    string `json:"playerId,omitempty"`
	PlayerToken string `json:"playerToken,omitempty"`
	EntityID    int64  `json:"entityId,omitempty"`
	EntityType  string `json:"entityType,omitempty"`
	EntityName  string `json:"entityName,omitempty"`
}

type wireCommand struct {
	Op    string `json:"op"`
	Token string `json:"token,omitempty"`
}

type cmdResult struct {
	op  string
	ok  bool
	err string
}

// StartProcess launches the engine helper. The context only bounds startup;
// the process itself lives until Destroy.
func StartProcess(ctx context.Context, command string, args ...string) (*ProcessEngine, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start pairing engine %q: %w", command, err)
	}

	e := &ProcessEngine{
		cmd:     cmd,
		stdin:   stdin,
		events:  make(chan Event, 64),
		results: make(chan cmdResult, 4),
		done:    make(chan struct{}),
	}
	go e.readLoop(stdout)
	go e.drainStderr(stderr)
	return e, nil
}

// ProcessFactory returns a Factory spawning the configured helper command.
func ProcessFactory(command string, args ...string) Factory {
	return func(ctx context.Context) (Engine, error) {
		if command == "" {
			return nil, errors.New("pairing engine command not configured")
		}
		return StartProcess(ctx, command, args...)
	}
}

func (e *ProcessEngine) readLoop(stdout io.Reader) {
	defer func() {
		close(e.events)
		close(e.done)
		_ = e.cmd.Wait()
	}()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg wireMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			logger.Warnf("engine: discarding unparseable line: %v", err)
			continue
		}
		switch msg.Type {
		case "result":
			select {
			case e.results <- cmdResult{op: msg.Op, ok: msg.OK, err: msg.Error}:
			default:
			}
		case "status":
			e.events <- Status{Message: msg.Message}
		case "server":
			e.events <- ServerPaired{
				Name:        msg.Name,
				IP:          msg.IP,
				Port:        msg.Port,
				PlayerID:    msg.PlayerID,
				PlayerToken: msg.PlayerToken,
			}
		case "entity":
			e.events <- EntityPaired{
				EntityID:   msg.EntityID,
				EntityType: msg.EntityType,
				EntityName: msg.EntityName,
				IP:         msg.IP,
				Port:       msg.Port,
				ServerName: msg.Name,
			}
		case "error":
			e.events <- Failure{Message: msg.Message}
		default:
			logger.Debugf("engine: ignoring message type %q", msg.Type)
		}
	}
}

func (e *ProcessEngine) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		logger.Debugf("engine: %s", scanner.Text())
	}
}

func (e *ProcessEngine) Events() <-chan Event { return e.events }

func (e *ProcessEngine) Register(ctx context.Context, token string) error {
	return e.call(ctx, wireCommand{Op: "register", Token: token})
}

func (e *ProcessEngine) Listen(ctx context.Context) error {
	return e.call(ctx, wireCommand{Op: "listen"})
}

// call writes one command and waits for its result message.
func (e *ProcessEngine) call(ctx context.Context, cmd wireCommand) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	e.writeMu.Lock()
	_, err = e.stdin.Write(append(b, '\n'))
	e.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write to pairing engine: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return errors.New("pairing engine exited")
		case r := <-e.results:
			if r.op != cmd.Op {
				continue
			}
			if !r.ok {
				return fmt.Errorf("pairing engine %s failed: %s", cmd.Op, r.err)
			}
			return nil
		}
	}
}

// Destroy closes the engine's stdin to request shutdown, then kills the
// process if it does not exit promptly. Safe to call more than once.
func (e *ProcessEngine) Destroy() error {
	e.destroyOnce.Do(func() {
		_ = e.stdin.Close()
		select {
		case <-e.done:
		case <-time.After(3 * time.Second):
			logger.Warnf("engine: did not exit after stdin close, killing")
			_ = e.cmd.Process.Kill()
			<-e.done
		}
	})
	return nil
}
