package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/inference-sizer/sizing"
)

const timestampLayout = "20060102_150405"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Writer saves reports into Dir. Now is injectable for tests; nil means time.Now.
type Writer struct {
	Dir string
	Now func() time.Time
}

// FileName returns sizing_<model>_<server>_<YYYYMMDD_HHMMSS>.<ext>.
func FileName(plan *sizing.Plan, format string, at time.Time) string {
	ext := "txt"
	if format == FormatJSON {
		ext = "json"
	}
	return fmt.Sprintf("sizing_%s_%s_%s.%s",
		unsafeNameChars.ReplaceAllString(plan.Model.Name, "-"),
		unsafeNameChars.ReplaceAllString(plan.Server.Name, "-"),
		at.Format(timestampLayout), ext)
}

// Save writes plan in format and returns the created path.
func (w Writer) Save(plan *sizing.Plan, format string) (string, error) {
	if !ValidFormats[format] {
		return "", fmt.Errorf("unknown report format %q; valid: json, text", format)
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("create report dir %q: %w", w.Dir, err)
	}
	path := filepath.Join(w.Dir, FileName(plan, format, now()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report %q: %w", path, err)
	}
	if err := Write(f, plan, format); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write report %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report %q: %w", path, err)
	}
	logrus.Infof("report written to %s", path)
	return path, nil
}
