package abook

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

const resultHeader string = "X-AddressBook"

// Recipient is one envelope destination with its opaque ESMTP parameters.
// Duplicates are allowed and simply queried twice.
type Recipient struct {
	Addr   string
	Params []string
}

// Session accumulates one mail transaction. Events arrive strictly in
// protocol order on a single goroutine, so no locking is needed; nothing is
// shared between sessions except the logger and the gateway pool.
type Session struct {
	id       string
	peerHost string
	peerAddr string
	mailFrom string
	authUser string
	rcpts    []Recipient
	buf      bytes.Buffer
	debug    bool
	gateway  Gateway
	logger   *Logger

	timeAtConnected time.Time
}

func NewSession(gw Gateway, logger *Logger, debug bool) *Session {
	return &Session{
		id:      GenID().String(),
		gateway: gw,
		logger:  logger,
		debug:   debug,
	}
}

func (s *Session) ID() string {
	return s.id
}

// NormalizeAddr strips the angle brackets milter events carry and lowercases
// the address. Anything malformed is kept as-is: rejecting mail is never
// this filter's job.
func NormalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(addr, "<")
	addr = strings.TrimSuffix(addr, ">")
	return strings.ToLower(addr)
}

func (s *Session) OnConnect(host, addr string) {
	s.peerHost = host
	s.peerAddr = addr
	s.timeAtConnected = time.Now()
	s.logger.Debug("%s connect from %s at %s", s.id, host, addr)
}

// OnEnvelopeFrom starts a fresh transaction: MAIL FROM after a completed or
// aborted message reuses the connection, so recipients and the buffer reset
// here.
func (s *Session) OnEnvelopeFrom(from string, params []string) {
	s.mailFrom = NormalizeAddr(from)
	s.rcpts = nil
	s.buf.Reset()
	s.logger.Debug("%s mail from %s", s.id, s.mailFrom)
}

// SetAuthUser records the authenticated submission user when the MTA
// provides one. Observational only.
func (s *Session) SetAuthUser(user string) {
	s.authUser = user
}

func (s *Session) OnEnvelopeTo(to string, params []string) {
	s.rcpts = append(s.rcpts, Recipient{Addr: to, Params: params})
}

func (s *Session) OnHeader(name, value string) {
	fmt.Fprintf(&s.buf, "%s: %s\n", name, value)
}

func (s *Session) OnEndOfHeaders() {
	s.buf.WriteString("\n")
}

func (s *Session) OnBody(chunk []byte) {
	s.buf.Write(chunk)
}

// OnEndOfMessage is the session's one decision point: ask the matcher for
// the sender's address-book sources and append the result header through
// add when any were found. Every failure is consumed here; the caller
// always accepts the message.
func (s *Session) OnEndOfMessage(add func(name, value string) error) []string {
	labels := Match(s.mailFrom, s.rcpts, s.gateway, s.logger)
	if len(labels) == 0 {
		return nil
	}

	if err := add(resultHeader, strings.Join(labels, ",")); err != nil {
		s.logger.Log("%s add header error: %s", s.id, err)
		return nil
	}
	s.logger.Debug("%s searched address %s: %d result(s)", s.id, s.mailFrom, len(labels))
	return labels
}

func (s *Session) OnAbort() {
	s.rcpts = nil
	s.buf.Reset()
	s.logger.Debug("%s transaction aborted", s.id)
}

// OnClose is idempotent; the session holds no resources beyond its buffer.
func (s *Session) OnClose() {
	s.buf.Reset()
	s.logger.Debug("%s connection closed", s.id)
}

func (s *Session) result(labels []string) *AfterMatchData {
	rcpts := make([]string, len(s.rcpts))
	for i, r := range s.rcpts {
		rcpts[i] = NormalizeAddr(r.Addr)
	}
	return &AfterMatchData{
		ConnID:     s.id,
		OccurredAt: time.Now(),
		MailFrom:   s.mailFrom,
		MailTo:     rcpts,
		Labels:     labels,
		Elapse:     s.elapse(),
	}
}

func (s *Session) elapse() Elapse {
	if s.timeAtConnected.IsZero() {
		return 0
	}
	return Elapse(time.Since(s.timeAtConnected).Milliseconds())
}
