package abook

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"plugin"
	"time"
)

const (
	pluginDirName string = "plugin"
	pluginVarName string = "Hook"
	TimeFormat    string = "2006-01-02T15:04:05.999999"
)

// Elapse is the time from connection-accepted to end-of-message in
// milliseconds.
type Elapse int64

func (e Elapse) String() string {
	return fmt.Sprintf("%dmsec", int64(e))
}

// Hook receives the outcome of every completed transaction. Hook failures
// are the hook's own problem; they never reach the mail flow.
type Hook interface {
	Name() string
	AfterInit()
	AfterMatch(*AfterMatchData)
}

type AfterMatchData struct {
	ConnID     string
	OccurredAt time.Time
	MailFrom   string
	MailTo     []string
	Labels     []string
	Elapse
}

func pluginDirExists() bool {
	_, err := os.Stat(pluginDirName)
	return err == nil
}

func loadPlugin(name string) (Hook, error) {
	p := path.Join(pluginDirName, name)
	plug, err := plugin.Open(p)
	if err != nil {
		return nil, err
	}

	symbol, err := plug.Lookup(pluginVarName)
	if err != nil {
		return nil, err
	}

	log.Printf("plugin loaded: %s", p)
	return symbol.(Hook), nil
}

func loadPlugins() ([]Hook, error) {
	var plugins []Hook

	if !pluginDirExists() {
		return plugins, nil
	}

	files, err := os.ReadDir(pluginDirName)
	if err != nil {
		return plugins, err
	}

	for _, f := range files {
		info, err := f.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		n := f.Name()
		if filepath.Ext(n) != ".so" {
			continue
		}

		plug, err := loadPlugin(n)
		if err != nil {
			fmt.Printf("plugin load error(%s): %#v\n", n, err)
			continue
		}

		plugins = append(plugins, plug)
	}

	return plugins, nil
}
