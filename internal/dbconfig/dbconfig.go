// Package dbconfig resolves per-database connection parameters from the INI
// files under HALFORM_CONF_DIR, one file per database name.
package dbconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

const (
	defaultConfDir = "/etc/half_orm"
	envConfDir     = "HALFORM_CONF_DIR"
)

// Config is one database's connection parameters, as read from its
// HALFORM_CONF_DIR/<name> file.
type Config struct {
	Name       string
	User       string
	Password   string
	Host       string
	Port       string
	Production bool
}

// ConfDir returns HALFORM_CONF_DIR, falling back to /etc/half_orm.
func ConfDir() string {
	if dir := os.Getenv(envConfDir); dir != "" {
		return dir
	}
	return defaultConfDir
}

// Path returns the connection file path for database name.
func Path(name string) string {
	return filepath.Join(ConfDir(), name)
}

// Exists reports whether a connection file for name is present.
func Exists(name string) bool {
	_, err := os.Stat(Path(name))
	return err == nil
}

// Load reads and parses the connection file for database name. A missing
// file is reported as DatabaseNotConfigured, pointing the caller at
// init-database.
func Load(name string) (Config, error) {
	path := Path(name)
	if _, err := os.Stat(path); err != nil {
		return Config{}, hoperr.New(hoperr.KindDatabaseNotConfigured,
			fmt.Sprintf("no connection file for database %q at %s; run init-database first", name, path),
			"database", name)
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return Config{}, hoperr.Wrap(hoperr.KindDatabaseNotConfigured, err,
			fmt.Sprintf("failed to parse connection file %s", path), "database", name)
	}

	section := cfg.Section("database")
	c := Config{
		Name:       section.Key("name").MustString(name),
		User:       section.Key("user").String(),
		Password:   section.Key("password").String(),
		Host:       section.Key("host").String(),
		Port:       section.Key("port").String(),
		Production: section.Key("production").MustBool(false),
	}
	return c, nil
}

// Write serializes cfg to the connection file for its Name, creating
// HALFORM_CONF_DIR's entry if needed. Used by init-database.
func Write(cfg Config) error {
	file := ini.Empty()
	section, err := file.NewSection("database")
	if err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to build connection file section")
	}
	_, _ = section.NewKey("name", cfg.Name)
	_, _ = section.NewKey("user", cfg.User)
	_, _ = section.NewKey("password", cfg.Password)
	_, _ = section.NewKey("host", cfg.Host)
	_, _ = section.NewKey("port", cfg.Port)
	_, _ = section.NewKey("production", fmt.Sprintf("%t", cfg.Production))

	path := Path(cfg.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create "+filepath.Dir(path))
	}
	if err := file.SaveTo(path); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to write connection file "+path)
	}
	return nil
}

// ConnString renders cfg as a libpq key=value connection string. An empty
// Host means a Unix-socket ident login, which libpq expresses by omitting
// host/port entirely.
func (c Config) ConnString() string {
	parts := []string{"dbname=" + quote(c.Name)}
	if c.User != "" {
		parts = append(parts, "user="+quote(c.User))
	}
	if c.Password != "" {
		parts = append(parts, "password="+quote(c.Password))
	}
	if c.Host != "" {
		parts = append(parts, "host="+quote(c.Host))
	}
	if c.Port != "" {
		parts = append(parts, "port="+quote(c.Port))
	}
	parts = append(parts, "sslmode=disable")

	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// quote wraps v in single quotes for libpq keyword/value connection
// strings, escaping any embedded quote or backslash.
func quote(v string) string {
	escaped := make([]byte, 0, len(v)+2)
	escaped = append(escaped, '\'')
	for i := 0; i < len(v); i++ {
		if v[i] == '\'' || v[i] == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, v[i])
	}
	escaped = append(escaped, '\'')
	return string(escaped)
}
