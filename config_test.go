package abook

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	c, err := LoadConfig("testdata/milters.conf")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if !c.Debug {
		t.Error("expected debug true")
	}
	if c.SocketPath != "tcp://127.0.0.1:7799" {
		t.Errorf("expected tcp://127.0.0.1:7799, got %s", c.SocketPath)
	}
	if c.Timeout != 300 {
		t.Errorf("expected 300, got %d", c.Timeout)
	}
	if c.Log.QueueSize != 50 {
		t.Errorf("expected 50, got %d", c.Log.QueueSize)
	}
	if c.Log.Policy != PolicyBlock {
		t.Errorf("expected block, got %s", c.Log.Policy)
	}
	if len(c.Hooks) != 1 || c.Hooks[0] != "file" {
		t.Errorf("expected [file], got %v", c.Hooks)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "milters.conf")
	if err := os.WriteFile(path, []byte("debug = false\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if c.SocketPath != defaultSocketPath {
		t.Errorf("expected %s, got %s", defaultSocketPath, c.SocketPath)
	}
	if c.Timeout != defaultTimeout {
		t.Errorf("expected %d, got %d", defaultTimeout, c.Timeout)
	}
	if c.PIDFile != defaultPIDFile {
		t.Errorf("expected %s, got %s", defaultPIDFile, c.PIDFile)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.conf"))
	if err == nil {
		t.Error("expected an error, got nil")
	}
}

func TestDriverAndDSN(t *testing.T) {
	var tests = []struct {
		sqlitePath string
		host       string
		expDriver  string
		expDSN     string
	}{
		{
			sqlitePath: "",
			host:       "",
			expDriver:  "mysql",
			expDSN:     "roundcube:secret@tcp(127.0.0.1)/roundcube",
		},
		{
			sqlitePath: "",
			host:       "db.example.com:3307",
			expDriver:  "mysql",
			expDSN:     "roundcube:secret@tcp(db.example.com:3307)/roundcube",
		},
		{
			sqlitePath: "/var/lib/roundcube/roundcube.db",
			expDriver:  "sqlite",
			expDSN:     "/var/lib/roundcube/roundcube.db",
		},
	}

	for _, v := range tests {
		c := &Config{}
		c.Mysql.User = "roundcube"
		c.Mysql.Password = "secret"
		c.Mysql.DBName = "roundcube"
		c.Mysql.Host = v.host
		c.Sqlite.Path = v.sqlitePath

		driver, dsn := c.DriverAndDSN()
		if driver != v.expDriver {
			t.Errorf("expected %s, got %s", v.expDriver, driver)
		}
		if dsn != v.expDSN {
			t.Errorf("expected %s, got %s", v.expDSN, dsn)
		}
	}
}
