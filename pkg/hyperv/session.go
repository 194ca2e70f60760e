package hyperv

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

// Runner executes a PowerShell script on the target host and returns its
// stdout. Implementations must be safe for sequential reuse; the migration
// engine never issues concurrent calls.
type Runner interface {
	Run(ctx context.Context, script string) ([]byte, error)
}

// SSHSession runs PowerShell over the host's OpenSSH server. Each Run opens
// a fresh SSH session (stateless per call); the underlying TCP connection
// is reused for the life of the session.
type SSHSession struct {
	client *ssh.Client
	host   string
}

// SSHConfig holds connection parameters for a Hyper-V host.
type SSHConfig struct {
	Host     string // host[:port], port 22 assumed when absent
	User     string
	Password string
	Timeout  time.Duration
}

// Dial connects to the host's SSH server.
func Dial(cfg SSHConfig) (*SSHSession, error) {
	addr := dialAddr(cfg.Host)
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	config := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
		},
		// Host identity is established out of band by the operator
		// pointing poshv at the host; key verification is a TODO once
		// a known_hosts location is agreed for Windows targets.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}
	return &SSHSession{client: client, host: cfg.Host}, nil
}

// Host returns the host this session is connected to.
func (s *SSHSession) Host() string {
	return s.host
}

// Run executes script under powershell.exe on the remote host. The script is
// wrapped so PowerShell errors become a non-zero exit status rather than
// text on stdout.
func (s *SSHSession) Run(ctx context.Context, script string) ([]byte, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		cmd := "powershell.exe -NoProfile -NonInteractive -OutputFormat Text -Command " +
			quotePS("$ErrorActionPreference='Stop'; "+script)
		out, err := session.Output(cmd)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		// Best effort: tear the session down so the remote side notices.
		session.Close()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return r.out, fmt.Errorf("remote powershell: %w", r.err)
		}
		return r.out, nil
	}
}

// Close closes the SSH connection.
func (s *SSHSession) Close() error {
	return s.client.Close()
}

// quotePS wraps a script in double quotes for the Windows command line,
// escaping embedded double quotes.
func quotePS(script string) string {
	quoted := make([]byte, 0, len(script)+2)
	quoted = append(quoted, '"')
	for i := 0; i < len(script); i++ {
		if script[i] == '"' {
			quoted = append(quoted, '\\')
		}
		quoted = append(quoted, script[i])
	}
	return string(append(quoted, '"'))
}

// dialAddr normalizes host[:port] for dialing, defaulting to the OpenSSH
// port and bracketing bare IPv6 hosts.
func dialAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, "22")
	}
	return host
}
