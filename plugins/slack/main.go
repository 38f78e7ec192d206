package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lestrrat-go/slack"

	abook "github.com/homebox/milter-abook"
)

type Slack struct{}

func (s *Slack) Name() string {
	return "slack"
}

func (s *Slack) Notify(msg string) error {
	username := "milter-abook"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := os.Getenv("SLACK_TOKEN")
	if len(token) == 0 {
		return fmt.Errorf("missing SLACK_TOKEN, please set `SLACK_TOKEN`")
	}

	channel := os.Getenv("SLACK_CHANNEL")
	if len(channel) == 0 {
		return fmt.Errorf("missing SLACK_CHANNEL, please set `SLACK_CHANNEL`")
	}

	cl := slack.New(token)
	_, err := cl.Chat().PostMessage(channel).Username(username).Text(msg).Do(ctx)
	return err
}

func (s *Slack) AfterInit() {
}

func (s *Slack) AfterMatch(d *abook.AfterMatchData) {
	if len(d.Labels) == 0 {
		return
	}
	err := s.Notify(fmt.Sprintf("`%s` found in %s (%s)", d.MailFrom, strings.Join(d.Labels, ","), d.Elapse))
	if err != nil {
		fmt.Printf("[slack-plugin] %s\n", err)
	}
}

var Hook Slack //nolint

// main is never run; this package is built with -buildmode=plugin and
// loaded via the Hook symbol. It exists so default `go build` succeeds.
func main() {}
