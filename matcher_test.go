package abook

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

type fakeGateway struct {
	books map[string][]string
	fails map[string]bool
	calls []string
}

func (g *fakeGateway) FindBooks(owner, sample string) ([]string, error) {
	g.calls = append(g.calls, owner)
	if g.fails[owner] {
		return nil, fmt.Errorf("query error for %s", owner)
	}
	return g.books[owner], nil
}

func testLogger() *Logger {
	return NewLogger(io.Discard, 10, PolicyDrop, false)
}

func TestMatchLabelFormat(t *testing.T) {
	var tests = []struct {
		books  []string
		expect string
	}{
		{books: []string{"Family"}, expect: "Roundcube:Family"},
		{books: []string{""}, expect: "Roundcube:default"},
	}

	for _, v := range tests {
		gw := &fakeGateway{books: map[string][]string{"bob@example.com": v.books}}
		logger := testLogger()
		got := Match("alice@ex.com", []Recipient{{Addr: "<Bob@Example.com>"}}, gw, logger)
		logger.Close()

		if len(got) != 1 || got[0] != v.expect {
			t.Errorf("expected [%s], got %v", v.expect, got)
		}
	}
}

func TestMatchNoDuplicateLabels(t *testing.T) {
	gw := &fakeGateway{books: map[string][]string{
		"bob@example.com":   {"Work", "Work", ""},
		"carol@example.com": {"Work", "Family"},
	}}
	logger := testLogger()
	got := Match("alice@ex.com", []Recipient{
		{Addr: "bob@example.com"},
		{Addr: "carol@example.com"},
	}, gw, logger)
	logger.Close()

	expect := "Roundcube:Work,Roundcube:default,Roundcube:Family"
	if strings.Join(got, ",") != expect {
		t.Errorf("expected %s, got %s", expect, strings.Join(got, ","))
	}
}

func TestMatchNilGateway(t *testing.T) {
	logger := testLogger()
	got := Match("alice@ex.com", []Recipient{{Addr: "bob@example.com"}}, nil, logger)
	logger.Close()

	if got != nil {
		t.Errorf("expected no labels, got %v", got)
	}
}

func TestMatchFailedRecipientIsolation(t *testing.T) {
	gw := &fakeGateway{
		books: map[string][]string{"carol@example.com": {"Friends"}},
		fails: map[string]bool{"bob@example.com": true},
	}
	logger := testLogger()
	got := Match("alice@ex.com", []Recipient{
		{Addr: "bob@example.com"},
		{Addr: "carol@example.com"},
	}, gw, logger)
	logger.Close()

	expect := "Roundcube:Friends"
	if strings.Join(got, ",") != expect {
		t.Errorf("expected %s, got %s", expect, strings.Join(got, ","))
	}
	if len(gw.calls) != 2 {
		t.Errorf("expected 2 queries, got %d", len(gw.calls))
	}
}

func TestMatchQueriesEveryRecipientInOrder(t *testing.T) {
	gw := &fakeGateway{}
	logger := testLogger()
	Match("alice@ex.com", []Recipient{
		{Addr: "bob@example.com"},
		{Addr: "bob@example.com"},
		{Addr: "<Carol@Example.COM>"},
	}, gw, logger)
	logger.Close()

	expect := "bob@example.com,bob@example.com,carol@example.com"
	got := strings.Join(gw.calls, ",")
	if got != expect {
		t.Errorf("expected %s, got %s", expect, got)
	}
}
