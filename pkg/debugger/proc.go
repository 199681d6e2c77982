package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// lineBuffer bounds the stdout channel. When it fills, the reader blocks
// and backpressure lands on the pipe, same as any console automation.
const lineBuffer = 4096

// process wraps one debugger subprocess: piped stdin, a reader goroutine
// publishing combined stdout/stderr lines, and single-owner writes.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// lines carries trimmed output lines; closed when the process exits.
	lines chan string

	waitOnce sync.Once
	waitErr  error
}

// startProcess spawns the debugger with stdout and stderr merged into one
// line stream.
func startProcess(path string, args []string) (*process, error) {
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening debugger stdin: %w", err)
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("opening debugger output pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = outW

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("spawning debugger: %w", err)
	}
	// The child holds the write end now
	outW.Close()

	p := &process{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string, lineBuffer),
	}
	go p.readLoop(outR)
	return p, nil
}

// readLoop is the only stdout reader. It owns the read end of the pipe
// and closes the lines channel when the process goes away.
func (p *process) readLoop(r io.ReadCloser) {
	defer close(p.lines)
	defer r.Close()

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			p.lines <- strings.TrimRight(line, "\r\n")
		}
		if err != nil {
			return
		}
	}
}

// write sends text to the debugger's stdin. Only the executor calls it.
func (p *process) write(text string) error {
	if _, err := io.WriteString(p.stdin, text); err != nil {
		return fmt.Errorf("writing to debugger stdin: %w", err)
	}
	return nil
}

// interrupt asks the debugger to abandon the current command.
func (p *process) interrupt() error {
	return p.cmd.Process.Signal(os.Interrupt)
}

// kill terminates the process and reaps it.
func (p *process) kill() {
	p.cmd.Process.Kill()
	p.stdin.Close()
	p.wait()
}

func (p *process) wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}

func (p *process) pid() int {
	return p.cmd.Process.Pid
}
