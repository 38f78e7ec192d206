package abook

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-milter"
)

// Server owns the milter listener and everything sessions share: the query
// gateway, the log queue and the hook list. One Session is created per MTA
// connection; sessions never see each other.
type Server struct {
	SocketPath string
	Timeout    time.Duration
	PIDFile    string
	Debug      bool
	Hooks      []Hook
	Gateway    Gateway
	Logger     *Logger

	ms   *milter.Server
	ln   net.Listener
	once sync.Once
}

func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

func (s *Server) Listen() error {
	plugins, err := loadPlugins()
	if err != nil {
		return err
	}
	s.Hooks = append(s.Hooks, plugins...)
	for _, hook := range s.Hooks {
		hook.AfterInit()
	}

	if err := s.writePIDFile(); err != nil {
		return err
	}

	network, address, err := splitSocketPath(s.SocketPath)
	if err != nil {
		s.RemovePIDFile()
		return err
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		s.RemovePIDFile()
		return err
	}
	if s.Timeout > 0 {
		ln = &deadlineListener{Listener: ln, timeout: s.Timeout}
	}
	s.ln = ln

	// This filter only adds headers.
	s.ms = &milter.Server{
		NewMilter: func() milter.Milter {
			return NewMilter(NewSession(s.Gateway, s.Logger, s.Debug), s.afterMatch)
		},
		Actions:  milter.OptAddHeader,
		Protocol: 0,
	}

	s.Logger.Log("milter-abook listens to %s (pid=%d, debug=%t)", s.SocketPath, os.Getpid(), s.Debug)
	return nil
}

func (s *Server) Serve() error {
	defer s.RemovePIDFile()

	err := s.ms.Serve(s.ln)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting connections and removes the pid file. Safe to
// call from a signal handler goroutine and more than once.
func (s *Server) Shutdown() {
	s.once.Do(func() {
		if s.ln != nil {
			s.ln.Close()
		}
		s.RemovePIDFile()
		s.Logger.Log("stopped milter-abook (pid=%d)", os.Getpid())
	})
}

func (s *Server) afterMatch(d *AfterMatchData) {
	for _, hook := range s.Hooks {
		hook.AfterMatch(d)
	}
}

// writePIDFile is the single-instance guard: an existing file means another
// instance runs (or died without cleanup) and startup must fail before any
// socket is bound.
func (s *Server) writePIDFile() error {
	if s.PIDFile == "" {
		return nil
	}
	if _, err := os.Stat(s.PIDFile); err == nil {
		return fmt.Errorf("pid file %s already exists", s.PIDFile)
	}
	return os.WriteFile(s.PIDFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

func (s *Server) RemovePIDFile() {
	if s.PIDFile == "" {
		return
	}
	if err := os.Remove(s.PIDFile); err != nil && !os.IsNotExist(err) {
		s.Logger.Log("pid file remove error: %s", err)
	}
}

// splitSocketPath accepts unix:///path, tcp://host:port and a bare
// filesystem path, which postfix milter configs commonly use.
func splitSocketPath(sock string) (string, string, error) {
	switch {
	case strings.HasPrefix(sock, "unix://"):
		return "unix", strings.TrimPrefix(sock, "unix://"), nil
	case strings.HasPrefix(sock, "tcp://"):
		return "tcp", strings.TrimPrefix(sock, "tcp://"), nil
	case strings.HasPrefix(sock, "/"):
		return "unix", sock, nil
	case sock == "":
		return "", "", fmt.Errorf("missing socket path")
	default:
		return "tcp", sock, nil
	}
}

// deadlineListener bounds how long one transaction may be held, per the
// timeout config option. The core itself has no timeout concept; an expired
// deadline surfaces to it as a connection close.
type deadlineListener struct {
	net.Listener
	timeout time.Duration
}

func (l *deadlineListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Now().Add(l.timeout)); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
