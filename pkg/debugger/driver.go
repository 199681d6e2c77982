// Package debugger drives one debugger subprocess (lldb or cdb) over a
// line-oriented stdio protocol with sentinel-delimited responses.
//
// One driver belongs to one session. Callers are serialised through the
// executor mutex, so commands run in arrival order; the reader goroutine
// is the only consumer of the subprocess's stdout.
package debugger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coredock/coredock/internal/logger"
)

// Driver owns one debugger subprocess and its request queue.
type Driver struct {
	cfg Config

	// execMu serialises Open/Execute/ReloadSymbols. Only its holder may
	// write to the subprocess.
	execMu sync.Mutex

	mu    sync.Mutex // guards state and proc
	state State
	proc  *process

	seq atomic.Uint64
}

// New creates an idle driver. No process is spawned until Open.
func New(cfg Config) *Driver {
	if cfg.Kind == "" {
		cfg.Kind = KindLLDB
	}
	if cfg.Path == "" {
		cfg.Path = binaryName(cfg.Kind)
	}
	if cfg.SpawnTimeout <= 0 {
		cfg.SpawnTimeout = defaultSpawnTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultExecuteTimeout
	}
	return &Driver{cfg: cfg, state: StateIdle}
}

// Kind returns the configured backend.
func (d *Driver) Kind() Kind { return d.cfg.Kind }

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// PID returns the subprocess PID, zero when no process is alive.
func (d *Driver) PID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc == nil {
		return 0
	}
	return d.proc.pid()
}

// Open spawns a fresh debugger process and loads the dump. Any existing
// process is discarded first, which is also how a Failed driver recovers.
//
// Returned warnings are advisory (symbol path or SOS problems); the dump
// is open and usable whenever err is nil.
func (d *Driver) Open(ctx context.Context, opts OpenOptions) (warnings []string, err error) {
	d.execMu.Lock()
	defer d.execMu.Unlock()

	d.discardProcess()
	d.setState(StateLoading)

	p, err := startProcess(d.cfg.Path, spawnArgs(d.cfg.Kind, opts))
	if err != nil {
		d.setState(StateIdle)
		return nil, err
	}

	fail := func(ferr error) ([]string, error) {
		p.kill()
		d.setState(StateIdle)
		return nil, ferr
	}

	// Drain the startup banner behind a bare sentinel
	if _, err := d.exchange(ctx, p, "", d.cfg.SpawnTimeout); err != nil {
		return fail(fmt.Errorf("debugger did not come up: %w", err))
	}

	for _, cmd := range loadCommands(d.cfg.Kind, opts) {
		lines, err := d.exchange(ctx, p, cmd, d.cfg.SpawnTimeout)
		if err != nil {
			return fail(fmt.Errorf("loading dump: %w", err))
		}
		out := strings.Join(lines, "\n")
		if looksLoadError(out) {
			return fail(fmt.Errorf("%w: %s", ErrLoadFailed, firstLine(out)))
		}
	}

	for _, cmd := range symbolCommands(d.cfg.Kind, opts.SymbolDirs, opts.SymbolServers) {
		if lines, err := d.exchange(ctx, p, cmd, d.cfg.SpawnTimeout); err != nil {
			return fail(fmt.Errorf("applying symbol path: %w", err))
		} else if out := strings.Join(lines, "\n"); looksLoadError(out) {
			warnings = append(warnings, "symbol path: "+firstLine(out))
		}
	}

	if opts.LoadSOS {
		cmd := sosLoadCommand(d.cfg.Kind, d.cfg.SOSPluginPath)
		lines, err := d.exchange(ctx, p, cmd, d.cfg.SpawnTimeout)
		if err != nil {
			return fail(fmt.Errorf("loading SOS plugin: %w", err))
		}
		// Session continues native-only when the plugin will not load
		if out := strings.Join(lines, "\n"); looksLoadError(out) {
			warnings = append(warnings, "SOS plugin not loaded: "+firstLine(out))
			logger.WarnCtx(ctx, "sos plugin load failed",
				logger.Debugger(string(d.cfg.Kind)), logger.Err(errors.New(firstLine(out))))
		}
	}

	d.mu.Lock()
	d.proc = p
	d.state = StateReady
	d.mu.Unlock()

	logger.InfoCtx(ctx, "dump opened",
		logger.Debugger(string(d.cfg.Kind)),
		logger.PID(p.pid()),
		logger.Path(opts.DumpPath))
	return warnings, nil
}

// Execute runs one free-text command and returns its output with prompt
// echo stripped. A zero timeout uses the configured default.
//
// A canceled caller context never interrupts the debugger: the command
// runs to completion (or to its timeout) and the result is discarded if
// the caller has gone away by then.
//
// On timeout the debugger is interrupted and the driver goes Suspect; a
// timeout while already Suspect kills the process and the driver answers
// ErrDebuggerDied until the next Open.
func (d *Driver) Execute(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = d.cfg.DefaultTimeout
	}

	d.execMu.Lock()
	defer d.execMu.Unlock()

	d.mu.Lock()
	state := d.state
	p := d.proc
	d.mu.Unlock()

	switch state {
	case StateFailed:
		return "", ErrDebuggerDied
	case StateIdle, StateLoading:
		return "", ErrNotReady
	}

	// Only the exchange's own timer may abort the exchange. The caller's
	// cancellation is checked after the debugger has answered.
	var token string
	lines, err := d.exchangeToken(context.WithoutCancel(ctx), p, cmd, timeout, &token)
	switch {
	case err == nil:
		d.setState(StateReady)
		if cerr := ctx.Err(); cerr != nil {
			logger.Debug("command completed after caller disconnect, result discarded",
				logger.Debugger(string(d.cfg.Kind)),
				logger.Command(cmd))
			return "", cerr
		}
		return cleanOutput(d.cfg.Kind, cmd, sentinelCommand(d.cfg.Kind, token), lines), nil

	case errors.Is(err, ErrDebuggerDied):
		d.kill(p)
		return "", ErrDebuggerDied

	default:
		// Timeout. A Suspect driver gets no second chance.
		if state == StateSuspect {
			d.kill(p)
			return "", ErrDebuggerDied
		}
		if ierr := p.interrupt(); ierr != nil {
			d.kill(p)
			return "", ErrDebuggerDied
		}
		d.setState(StateSuspect)
		logger.Warn("debugger command interrupted",
			logger.Debugger(string(d.cfg.Kind)),
			logger.Command(cmd),
			logger.Err(err))
		if errors.Is(err, ErrTimeout) {
			return "", fmt.Errorf("%w (%s)", ErrTimeout, timeout)
		}
		return "", err
	}
}

// ReloadSymbols reapplies the symbol search path on the live process.
func (d *Driver) ReloadSymbols(ctx context.Context, dirs, servers []string) error {
	d.execMu.Lock()
	defer d.execMu.Unlock()

	d.mu.Lock()
	state := d.state
	p := d.proc
	d.mu.Unlock()

	switch state {
	case StateFailed:
		return ErrDebuggerDied
	case StateIdle, StateLoading:
		return ErrNotReady
	}

	for _, cmd := range symbolCommands(d.cfg.Kind, dirs, servers) {
		if _, err := d.exchange(ctx, p, cmd, d.cfg.SpawnTimeout); err != nil {
			return err
		}
	}
	return nil
}

// Close terminates the subprocess, if any, and returns the driver to
// Idle.
func (d *Driver) Close() error {
	d.execMu.Lock()
	defer d.execMu.Unlock()

	d.discardProcess()
	d.setState(StateIdle)
	return nil
}

// exchange runs one sentinel-delimited exchange on p. The caller must
// hold execMu.
func (d *Driver) exchange(ctx context.Context, p *process, cmd string, timeout time.Duration) ([]string, error) {
	return d.exchangeToken(ctx, p, cmd, timeout, nil)
}

func (d *Driver) exchangeToken(ctx context.Context, p *process, cmd string, timeout time.Duration, tokenOut *string) ([]string, error) {
	token := sentinelToken(d.seq.Add(1))
	if tokenOut != nil {
		*tokenOut = token
	}

	// Stale output from an interrupted command must not bleed into this
	// response
	drain(p.lines)

	payload := sentinelCommand(d.cfg.Kind, token) + "\n"
	if cmd != "" {
		payload = cmd + "\n" + payload
	}
	if err := p.write(payload); err != nil {
		return nil, ErrDebuggerDied
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var out []string
	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return out, ErrDebuggerDied
			}
			if strings.TrimSpace(line) == token {
				return out, nil
			}
			out = append(out, line)

		case <-timer.C:
			return out, ErrTimeout

		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// kill moves the driver to Failed and reaps the process.
func (d *Driver) kill(p *process) {
	p.kill()
	d.mu.Lock()
	d.state = StateFailed
	d.proc = nil
	d.mu.Unlock()
	logger.Warn("debugger process killed", logger.Debugger(string(d.cfg.Kind)))
}

// discardProcess silently drops any live process. Caller holds execMu.
func (d *Driver) discardProcess() {
	d.mu.Lock()
	p := d.proc
	d.proc = nil
	d.mu.Unlock()
	if p != nil {
		p.kill()
	}
}

func drain(lines <-chan string) {
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
