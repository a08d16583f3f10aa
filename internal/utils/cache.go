package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"vehicletracker.org/internal/report"
)

// GetLastCachedFile returns the most recently modified regular file in cacheDir
// whose name starts with prefix.
func GetLastCachedFile(cacheDir, prefix string) (string, error) {
	files, err := os.ReadDir(cacheDir)
	if err != nil {
		return "", err
	}

	var lastModTime time.Time
	var lastModFile string

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), prefix) {
			continue
		}
		fileInfo, err := file.Info()
		if err != nil {
			return "", err
		}
		if fileInfo.ModTime().After(lastModTime) {
			lastModTime = fileInfo.ModTime()
			lastModFile = file.Name()
		}
	}

	if lastModFile == "" {
		return "", fmt.Errorf("no cached files with prefix %q in %s", prefix, cacheDir)
	}

	return filepath.Join(cacheDir, lastModFile), nil
}

// CreateCacheDirectory ensures the cache directory exists, creating it if necessary.
func CreateCacheDirectory(cacheDir string) error {
	stat, err := os.Stat(cacheDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Level:        sentry.LevelError,
				ExtraContext: map[string]interface{}{"cache_dir": cacheDir},
			})
			return err
		}
		return nil
	}
	if !stat.IsDir() {
		err := fmt.Errorf("%s is not a directory", cacheDir)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Level:        sentry.LevelError,
			ExtraContext: map[string]interface{}{"cache_dir": cacheDir},
		})
		return err
	}
	return nil
}
