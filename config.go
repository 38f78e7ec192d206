package abook

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigPath string = "/etc/roundcube/milters.conf"
	defaultSocketPath string = "unix:///var/spool/postfix/private/milter-rc-abook.socket"
	defaultPIDFile    string = "/var/run/milter-rc-abook/main.pid"
	defaultTimeout    int    = 600
	defaultMysqlHost  string = "127.0.0.1"
)

// Config mirrors /etc/roundcube/milters.conf. Credentials belong to the
// Roundcube database the matcher reads; the sqlite section selects the
// sqlite driver instead when a path is set.
type Config struct {
	Debug      bool     `toml:"debug"`
	SocketPath string   `toml:"socket_path"`
	Timeout    int      `toml:"timeout"`
	PIDFile    string   `toml:"pid_file"`
	Hooks      []string `toml:"hooks"`

	Log struct {
		QueueSize int    `toml:"queue_size"`
		Policy    string `toml:"policy"`
	} `toml:"log"`

	Mysql struct {
		Host     string `toml:"host"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		DBName   string `toml:"db_name"`
	} `toml:"mysql"`

	Sqlite struct {
		Path string `toml:"path"`
	} `toml:"sqlite"`
}

func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config read error: %s", err)
	}

	c := &Config{}
	if err := toml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("config parse error: %s", err)
	}

	if c.SocketPath == "" {
		c.SocketPath = defaultSocketPath
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PIDFile == "" {
		c.PIDFile = defaultPIDFile
	}

	return c, nil
}

// DriverAndDSN picks the Roundcube datastore: sqlite when a path is
// configured, mysql otherwise.
func (c *Config) DriverAndDSN() (string, string) {
	if c.Sqlite.Path != "" {
		return "sqlite", c.Sqlite.Path
	}

	host := c.Mysql.Host
	if host == "" {
		host = defaultMysqlHost
	}
	return "mysql", fmt.Sprintf("%s:%s@tcp(%s)/%s", c.Mysql.User, c.Mysql.Password, host, c.Mysql.DBName)
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
