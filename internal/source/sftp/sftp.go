// Package sftp provides sources reading and writing files over sftp, using
// an ssh subprocess for the connection.
package sftp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/limiter"
	"github.com/qinghai5060/sealio/internal/source"
)

// Client is a connection to an sftp server over an ssh subprocess.
type Client struct {
	c   *sftp.Client
	cmd *exec.Cmd

	result <-chan error
}

var closeTimeout = 2 * time.Second

// startClient connects to a remote host and requests the sftp subsystem
// via the 'ssh' command. This assumes that passwordless login is correctly
// configured.
func startClient(program string, args ...string) (*Client, error) {
	debug.Log("start client %v %v", program, args)
	cmd := exec.Command(program, args...)

	// prefix the errors with the program name
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "cmd.StderrPipe")
	}

	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			fmt.Fprintf(os.Stderr, "subprocess %v: %v\n", program, sc.Text())
		}
	}()

	// get stdin and stdout
	wr, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "cmd.StdinPipe")
	}
	rd, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "cmd.StdoutPipe")
	}

	// start the process
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "cmd.Start")
	}

	// wait in a different goroutine
	ch := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		debug.Log("ssh command exited, err %v", err)
		ch <- errors.Wrap(err, "cmd.Wait")
	}()

	// open the SFTP session
	client, err := sftp.NewClientPipe(rd, wr)
	if err != nil {
		return nil, errors.Errorf("unable to start the sftp session, error: %v", err)
	}

	return &Client{c: client, cmd: cmd, result: ch}, nil
}

// clientError returns an error if the ssh subprocess has exited. Otherwise,
// nil is returned immediately.
func (c *Client) clientError() error {
	select {
	case err := <-c.result:
		debug.Log("client has exited with err %v", err)
		return err
	default:
	}

	return nil
}

// Close ends the sftp session and the ssh subprocess.
func (c *Client) Close() error {
	debug.Log("Close")
	if c == nil {
		return nil
	}

	err := c.c.Close()
	debug.Log("Close returned error %v", err)

	// wait for closeTimeout before killing the process
	select {
	case err := <-c.result:
		return err
	case <-time.After(closeTimeout):
	}

	if err := c.cmd.Process.Kill(); err != nil {
		return err
	}

	// get the error, but ignore it
	<-c.result
	return nil
}

func buildSSHCommand(cfg Config) (cmd string, args []string, err error) {
	if cfg.Command != "" {
		if cfg.Args != "" {
			return "", nil, errors.New("cannot specify both sftp.command and sftp.args options")
		}

		return source.SplitShellArgs(cfg.Command)
	}

	cmd = "ssh"

	args = []string{cfg.Host}
	if cfg.Port != "" {
		args = append(args, "-p", cfg.Port)
	}
	if cfg.User != "" {
		args = append(args, "-l", cfg.User)
	}

	if cfg.Args != "" {
		first, rest, err := source.SplitShellArgs(cfg.Args)
		if err != nil {
			return "", nil, err
		}

		args = append(args, first)
		args = append(args, rest...)
	}

	args = append(args, "-s", "sftp")
	return cmd, args, nil
}

// Pool caches running connections keyed by the ssh command line used to
// start them, several files on the same host share one ssh process.
type Pool = source.Pool[string, *Client]

// NewPool returns a connection pool for up to size hosts.
func NewPool(size int) *Pool {
	return source.NewPool[string, *Client](size)
}

// NewFactory returns a factory for sftp sources which take their
// connections from pool.
func NewFactory(pool *Pool) source.Factory {
	open := func(_ context.Context, cfg Config, lim limiter.Limiter) (*Source, error) {
		cmd, args, err := buildSSHCommand(cfg)
		if err != nil {
			return nil, err
		}

		key := strings.Join(append([]string{cmd}, args...), " ")
		dial := func() (*Client, error) {
			return startClient(cmd, args...)
		}

		client, err := pool.Get(key, dial)
		if err != nil {
			return nil, err
		}

		// the pooled connection may have died in the meantime
		if cerr := client.clientError(); cerr != nil {
			debug.Log("pooled connection for %v is dead: %v", cfg.Host, cerr)
			pool.Remove(key)
			client, err = pool.Get(key, dial)
			if err != nil {
				return nil, err
			}
		}

		return &Source{client: client, cfg: cfg, lim: lim}, nil
	}

	return source.NewLimitedSourceFactory("sftp", ParseConfig, nil, open)
}

// Source is a single file on an sftp server.
type Source struct {
	client *Client
	cfg    Config
	lim    limiter.Limiter
}

// ensure statically that *Source implements source.Source.
var _ source.Source = &Source{}

// Location returns this source's location.
func (s *Source) Location() string {
	return fmt.Sprintf("%v:%v", s.cfg.Host, s.cfg.Path)
}

// Open opens the remote file for reading.
func (s *Source) Open(_ context.Context) (io.ReadCloser, error) {
	debug.Log("Open %v", s.cfg.Path)
	if err := s.client.clientError(); err != nil {
		return nil, err
	}

	f, err := s.client.c.Open(s.cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "Open")
	}

	return limiter.LimitReadCloser(f, s.lim), nil
}

// Stat returns information about the remote file.
func (s *Source) Stat(_ context.Context) (source.FileInfo, error) {
	debug.Log("Stat %v", s.cfg.Path)
	if err := s.client.clientError(); err != nil {
		return source.FileInfo{}, err
	}

	fi, err := s.client.c.Lstat(s.cfg.Path)
	if err != nil {
		return source.FileInfo{}, errors.Wrap(err, "Lstat")
	}

	return source.FileInfo{Size: fi.Size(), Name: fi.Name()}, nil
}

// Create opens the remote file for writing, creating missing parent
// directories.
func (s *Source) Create(_ context.Context) (io.WriteCloser, error) {
	debug.Log("Create %v", s.cfg.Path)
	if err := s.client.clientError(); err != nil {
		return nil, err
	}

	if dir := path.Dir(s.cfg.Path); dir != "." {
		if err := s.client.c.MkdirAll(dir); err != nil {
			return nil, errors.Wrap(err, "MkdirAll")
		}
	}

	f, err := s.client.c.Create(s.cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "Create")
	}

	return limiter.LimitWriteCloser(f, s.lim), nil
}

// Close releases the source. The connection is owned by the pool and stays
// open.
func (s *Source) Close() error {
	return nil
}
