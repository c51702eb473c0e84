// Package fileutil writes command output and note files to disk.
package fileutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// GetMarkdownFilePath returns the expected markdown file path for a given name
func GetMarkdownFilePath(name string, directory string) string {
	// Clean the filename first
	filename := SanitizeFilename(name)
	return filepath.Join(directory, filename+".md")
}

// SanitizeFilename cleans a filename by replacing problematic characters
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, ":", " -")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.Join(strings.Fields(name), " ")
	const maxLen = 120
	if r := []rune(name); len(r) > maxLen {
		name = strings.TrimSpace(string(r[:maxLen]))
	}
	return name
}

// FileExists checks if a file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteFileWithOverwrite writes data to a file, respecting the overwrite flag
// Returns true if the file was written, false if it was skipped
func WriteFileWithOverwrite(filePath string, data []byte, perm os.FileMode, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		return false, nil
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, err
	}

	if err := os.WriteFile(filePath, data, perm); err != nil {
		return false, err
	}

	return true, nil
}

// WriteMarkdownFile writes a note, leaving an existing file alone unless
// overwrite is set.
func WriteMarkdownFile(filePath string, content string, overwrite bool) error {
	written, err := WriteFileWithOverwrite(filePath, []byte(content), 0644, overwrite)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	if !written {
		slog.Info("Note already exists, skipping", "filename", filePath)
	}
	return nil
}

// ExistsError reports an output file that would have been overwritten.
type ExistsError struct {
	Path string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("%s already exists (use --overwrite to replace it)", e.Path)
}

// WriteOutput writes serialized results to filePath. Unlike notes, an
// existing output file is an error unless overwrite is set.
func WriteOutput(filePath string, data []byte, overwrite bool) error {
	if FileExists(filePath) && !overwrite {
		return &ExistsError{Path: filePath}
	}
	if _, err := WriteFileWithOverwrite(filePath, data, 0644, true); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	slog.Info("Wrote output", "filename", filePath, "bytes", len(data))
	return nil
}
