package abook

import (
	"fmt"
	"net"
	"net/textproto"

	"github.com/emersion/go-milter"
)

// Milter adapts go-milter callbacks to Session events. It is immutable
// after construction; all transaction state lives in the Session. Verdict
// policy per the original filter: continue everywhere, accept at
// end-of-message, never reject.
type Milter struct {
	session    *Session
	afterMatch func(*AfterMatchData)
}

func NewMilter(session *Session, afterMatch func(*AfterMatchData)) *Milter {
	return &Milter{session: session, afterMatch: afterMatch}
}

func (f *Milter) Connect(host string, family string, port uint16, addr net.IP, m *milter.Modifier) (milter.Response, error) {
	peer := ""
	if addr != nil {
		peer = fmt.Sprintf("%s:%d", addr, port)
	}
	f.session.OnConnect(host, peer)
	return milter.RespContinue, nil
}

func (f *Milter) Helo(name string, m *milter.Modifier) (milter.Response, error) {
	return milter.RespContinue, nil
}

func (f *Milter) MailFrom(from string, m *milter.Modifier) (milter.Response, error) {
	f.session.OnEnvelopeFrom(from, nil)
	if user := authUserMacro(m); user != "" {
		f.session.SetAuthUser(user)
	}
	return milter.RespContinue, nil
}

func (f *Milter) RcptTo(rcptTo string, m *milter.Modifier) (milter.Response, error) {
	f.session.OnEnvelopeTo(rcptTo, nil)
	return milter.RespContinue, nil
}

func (f *Milter) Header(name string, value string, m *milter.Modifier) (milter.Response, error) {
	f.session.OnHeader(name, value)
	return milter.RespContinue, nil
}

func (f *Milter) Headers(h textproto.MIMEHeader, m *milter.Modifier) (milter.Response, error) {
	f.session.OnEndOfHeaders()
	return milter.RespContinue, nil
}

func (f *Milter) BodyChunk(chunk []byte, m *milter.Modifier) (milter.Response, error) {
	f.session.OnBody(chunk)
	return milter.RespContinue, nil
}

// Body is the end-of-message callback: run the matcher, append the result
// header, notify hooks, accept.
func (f *Milter) Body(m *milter.Modifier) (milter.Response, error) {
	labels := f.session.OnEndOfMessage(m.AddHeader)
	if f.afterMatch != nil {
		f.afterMatch(f.session.result(labels))
	}
	f.session.OnClose()
	return milter.RespAccept, nil
}

func (f *Milter) Abort(m *milter.Modifier) error {
	f.session.OnAbort()
	return nil
}

// Sendmail reports the authenticated user as {auth_authen}, some MTAs strip
// the braces.
func authUserMacro(m *milter.Modifier) string {
	if m == nil {
		return ""
	}
	if user, ok := m.Macros["auth_authen"]; ok {
		return user
	}
	return m.Macros["{auth_authen}"]
}
