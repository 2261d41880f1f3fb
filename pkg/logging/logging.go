package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

/*
Init configures the package-level logger. With an empty path logs go to
stderr, which leaves stdout to the stdio transport; otherwise they are
appended to the file, in logfmt so they stay greppable. The returned closer
releases the file.
*/
func Init(path, level string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)

	if err != nil {
		return nil, err
	}

	log.SetLevel(lvl)
	log.SetReportTimestamp(true)

	if path == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)

	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	log.SetOutput(file)
	log.SetFormatter(log.LogfmtFormatter)
	log.SetReportCaller(true)

	log.Debug("logging initialized", "file", path)

	return file, nil
}
