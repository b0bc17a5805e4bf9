package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"token-risk-monitor/internal/ranking"
)

// Output file names.
const (
	RankingCSVFile       = "ranking.csv"
	RankingMarkdownFile  = "ranking.md"
	LaunchCandidatesFile = "launch_candidates.txt"
)

// FileWriter writes the ranking report files of each refresh pass to a directory.
type FileWriter struct {
	dir       string
	generator *Generator
}

// NewFileWriter creates a writer for dir. The directory is created on first write.
func NewFileWriter(dir string, generator *Generator) *FileWriter {
	if generator == nil {
		generator = NewGenerator()
	}
	return &FileWriter{dir: dir, generator: generator}
}

// WriteReport renders the pass and replaces the report files.
func (w *FileWriter) WriteReport(_ context.Context, pass *ranking.Pass) error {
	report := w.generator.Generate(pass.Scheme, pass.Tokens)
	return w.Write(report)
}

// Write replaces the report files with the rendered report.
func (w *FileWriter) Write(report *Report) error {
	// Ensure output directory exists
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	files := map[string]string{
		RankingCSVFile:       RenderCSV(report.Tokens),
		RankingMarkdownFile:  RenderMarkdown(report),
		LaunchCandidatesFile: renderLaunchCandidates(report.LaunchCandidates),
	}
	for name, content := range files {
		if err := writeFileAtomic(filepath.Join(w.dir, name), content); err != nil {
			return err
		}
	}
	return nil
}

func renderLaunchCandidates(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.Join(names, "\n") + "\n"
}

// writeFileAtomic replaces path so readers never observe a partial file.
func writeFileAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
