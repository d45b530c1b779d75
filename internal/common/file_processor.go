package common

import (
	"fmt"
	"os"

	"resumeseo/internal/docreader"
	"resumeseo/internal/errors"
	"resumeseo/internal/utils"
)

// FileProcessor handles resume input files and report output files
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a new file processor; maxFileSize of zero disables the limit
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadResume extracts plain text from a .txt, .md, .pdf or .docx resume
func (fp *FileProcessor) ReadResume(filename string) (string, error) {
	text, err := docreader.ReadFile(filename, fp.maxFileSize)
	if err != nil {
		return "", err
	}

	if fp.logger != nil {
		fp.logger.Debug("Resume file read",
			"filename", filename,
			"characters", len(text),
			"words", utils.CountWords(text))
	}
	return text, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := fp.ValidateOutputFile(filename); err != nil {
		return err
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if err := utils.EnsureOutputDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
