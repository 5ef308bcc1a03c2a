// Package framework provides test infrastructure for videoroom process tests.
package framework

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// ServerProcess manages the lifecycle of the videoroom binary for testing.
type ServerProcess struct {
	packagePath string
	addr        string
	env         []string
	args        []string
	logFile     string
	binDir      string

	cmd           *exec.Cmd
	started       bool
	mu            sync.Mutex
	stdout        *logWriter
	stderr        *logWriter
	logFileHandle *os.File
	done          chan struct{}
	ctx           context.Context
	cancelFunc    context.CancelFunc
}

// ServerProcessConfig holds configuration for a server process.
type ServerProcessConfig struct {
	// PackagePath is the path to the main package (e.g., "../../cmd/videoroom").
	PackagePath string

	// Addr is the listen address (default: a free loopback port).
	Addr string

	// Env holds VIDEOROOM_* variables added to the process environment.
	Env map[string]string

	// LogFile is an optional path to write logs to (in addition to test output)
	LogFile string

	// ExtraArgs are additional command-line arguments
	ExtraArgs []string
}

// NewServerProcess creates a new server process manager.
func NewServerProcess(config ServerProcessConfig) (*ServerProcess, error) {
	if config.Addr == "" {
		addr, err := freeAddr()
		if err != nil {
			return nil, err
		}
		config.Addr = addr
	}

	env := make([]string, 0, len(config.Env))
	for k, v := range config.Env {
		env = append(env, k+"="+v)
	}

	args := append([]string{"-listen", config.Addr}, config.ExtraArgs...)

	ctx, cancel := context.WithCancel(context.Background())

	return &ServerProcess{
		packagePath: config.PackagePath,
		addr:        config.Addr,
		env:         env,
		args:        args,
		logFile:     config.LogFile,
		done:        make(chan struct{}),
		ctx:         ctx,
		cancelFunc:  cancel,
	}, nil
}

// freeAddr reserves a loopback port and releases it for the process.
func freeAddr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("reserve port: %w", err)
	}
	defer ln.Close()
	return ln.Addr().String(), nil
}

// Start builds and starts the server, then waits until it answers health
// checks or timeout passes.
func (p *ServerProcess) Start(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("server process already started")
	}

	absPath, err := filepath.Abs(p.packagePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	name := filepath.Base(p.packagePath)

	binDir, err := os.MkdirTemp("", name)
	if err != nil {
		return fmt.Errorf("failed to create build dir: %w", err)
	}
	p.binDir = binDir
	binary := filepath.Join(binDir, name)

	// Signals must reach the server itself, so build instead of `go run`.
	build := exec.CommandContext(p.ctx, "go", "build", "-o", binary, ".")
	build.Dir = absPath
	if out, err := build.CombinedOutput(); err != nil {
		os.RemoveAll(binDir)
		p.binDir = ""
		return fmt.Errorf("failed to build server: %w\n%s", err, out)
	}

	p.cmd = exec.CommandContext(p.ctx, binary, p.args...)
	p.cmd.Env = append(os.Environ(), p.env...)

	if p.logFile != "" {
		logFile, err := os.OpenFile(p.logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		p.logFileHandle = logFile
	}

	p.stdout = newLogWriter(fmt.Sprintf("[%s stdout]", name), p.logFileHandle)
	p.stderr = newLogWriter(fmt.Sprintf("[%s stderr]", name), p.logFileHandle)
	p.cmd.Stdout = p.stdout
	p.cmd.Stderr = p.stderr

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	p.started = true

	go func() {
		defer close(p.done)
		p.cmd.Wait()
	}()

	return p.waitHealthy(timeout)
}

// waitHealthy polls /healthz.
func (p *ServerProcess) waitHealthy(timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-p.done:
			return fmt.Errorf("server exited before becoming healthy")
		default:
		}
		resp, err := client.Get(p.URL() + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not healthy after %v", timeout)
}

// Stop gracefully stops the server process.
func (p *ServerProcess) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	// SIGTERM first so the server leaves its calls.
	if p.cmd != nil && p.cmd.Process != nil {
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			p.cmd.Process.Kill()
		}
	}

	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		p.cancelFunc()
		<-p.done
	}
	p.cancelFunc()

	if p.logFileHandle != nil {
		p.logFileHandle.Close()
		p.logFileHandle = nil
	}

	if p.binDir != "" {
		os.RemoveAll(p.binDir)
		p.binDir = ""
	}

	p.started = false
	return nil
}

// URL returns the base URL of the server.
func (p *ServerProcess) URL() string {
	return "http://" + p.addr
}

// IsRunning returns true if the server process is currently running.
func (p *ServerProcess) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// logWriter is a simple io.Writer that prefixes each line with a label.
// It writes to stdout and optionally to a file.
type logWriter struct {
	prefix  string
	logFile *os.File
	mu      sync.Mutex
}

func newLogWriter(prefix string, logFile *os.File) *logWriter {
	return &logWriter{
		prefix:  prefix,
		logFile: logFile,
	}
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Printf("%s %s", w.prefix, string(p))
	if w.logFile != nil {
		fmt.Fprintf(w.logFile, "%s %s", w.prefix, string(p))
	}
	return len(p), nil
}
