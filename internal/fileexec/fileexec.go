// Package fileexec executes individual patch/bootstrap files — SQL against
// a live database connection, Python as a subprocess, or SQL via psql when
// the file needs transaction-control statements the driver would reject.
package fileexec

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

// pythonTimeout bounds how long an individual bootstrap/patch Python script
// may run before it is considered hung.
const pythonTimeout = 300 * time.Second

var dataMarkerRe = regexp.MustCompile(`(?i)^(--|#)\s*@hop:(data|bootstrap)\b`)

// IsDataFile opens path and inspects its first line for a @HOP:data or
// @HOP:bootstrap marker (after stripping a leading "--" or "#" comment
// marker), case-insensitively. It never returns an error: unreadable files
// are simply not data files.
func IsDataFile(path string) bool {
	f, err := os.Open(path) // #nosec G304 - path comes from patch directory enumeration
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 4096)
	n, _ := f.Read(buf)
	firstLine := strings.SplitN(string(buf[:n]), "\n", 2)[0]
	return dataMarkerRe.MatchString(strings.TrimSpace(firstLine))
}

// ExecuteSQL reads path as UTF-8 text and submits it as a single query
// against db. An empty (after whitespace-stripping) file is a no-op.
func ExecuteSQL(ctx context.Context, path string, db *sql.DB) error {
	content, err := os.ReadFile(path) // #nosec G304 - path comes from patch directory enumeration
	if err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err,
			fmt.Sprintf("failed to read %s", filepath.Base(path)), "filename", path)
	}

	if strings.TrimSpace(string(content)) == "" {
		return nil
	}

	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err,
			fmt.Sprintf("SQL execution failed in %s", filepath.Base(path)), "filename", path)
	}
	return nil
}

// ExecuteSQLViaPsql shells out to the psql binary rather than the driver,
// for files that contain transaction-control statements (BEGIN/COMMIT,
// \set, etc.) the driver would reject mid-query.
func ExecuteSQLViaPsql(ctx context.Context, path string, dbName string) error {
	cmd := exec.CommandContext(ctx, "psql", "-d", dbName, "-f", path) // #nosec G204 - dbName/path are operator-controlled
	cmd.Env = os.Environ()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err,
			fmt.Sprintf("psql execution failed for %s: %s", filepath.Base(path), strings.TrimSpace(string(output))),
			"filename", path)
	}
	return nil
}

// ExecutePython runs path with the system "python3" interpreter as a
// subprocess, with PYTHONPATH extended by projectRoot and the process
// environment inherited. It enforces a 300-second hard timeout and returns
// stdout with surrounding whitespace trimmed; stderr is not returned and
// only appears in the error message. A non-zero exit is a FileExecution
// error.
func ExecutePython(ctx context.Context, path string, cwd string, projectRoot string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pythonTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "python3", path) // #nosec G204 - path comes from patch directory enumeration
	if cwd != "" {
		cmd.Dir = cwd
	}

	env := os.Environ()
	if projectRoot != "" {
		pythonPath := projectRoot
		if existing := os.Getenv("PYTHONPATH"); existing != "" {
			pythonPath = projectRoot + string(os.PathListSeparator) + existing
		}
		env = append(env, "PYTHONPATH="+pythonPath)
	}
	cmd.Env = env

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("python execution failed in %s", filepath.Base(path))
		if stderr.Len() > 0 {
			msg += ": " + strings.TrimSpace(stderr.String())
		}
		return "", hoperr.Wrap(hoperr.KindFileExecution, err, msg, "filename", path)
	}

	return strings.TrimSpace(stdout.String()), nil
}
