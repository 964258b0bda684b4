package common

import (
	"fmt"
	"os"
	"path/filepath"

	"interviewer/internal/errors"
	"interviewer/internal/ingest"
	"interviewer/internal/utils"
)

// FileProcessor handles local file operations for commands
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// OpenDocuments validates and opens the job description (.txt) and resume
// (.pdf). The returned func closes both files.
func (fp *FileProcessor) OpenDocuments(jobPath, resumePath string) (ingest.Upload, ingest.Upload, func(), error) {
	noop := func() {}

	if !utils.IsTextFile(jobPath) {
		return ingest.Upload{}, ingest.Upload{}, noop, errors.NewValidationError(errors.ErrCodeInvalidDocumentType,
			fmt.Sprintf("Job description must be a .txt file: %s", jobPath), nil)
	}
	if !utils.IsPDFFile(resumePath) {
		return ingest.Upload{}, ingest.Upload{}, noop, errors.NewValidationError(errors.ErrCodeInvalidDocumentType,
			fmt.Sprintf("Resume must be a .pdf file: %s", resumePath), nil)
	}

	jd, err := fp.open(jobPath)
	if err != nil {
		return ingest.Upload{}, ingest.Upload{}, noop, err
	}
	resume, err := fp.open(resumePath)
	if err != nil {
		fp.close(jd)
		return ingest.Upload{}, ingest.Upload{}, noop, err
	}

	return ingest.Upload{Name: filepath.Base(jobPath), Reader: jd},
		ingest.Upload{Name: filepath.Base(resumePath), Reader: resume},
		func() {
			fp.close(jd)
			fp.close(resume)
		}, nil
}

func (fp *FileProcessor) open(filename string) (*os.File, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return nil, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return file, nil
}

func (fp *FileProcessor) close(file *os.File) {
	if err := file.Close(); err != nil && fp.logger != nil {
		fp.logger.Warn("Failed to close file", "filename", file.Name(), "error", err)
	}
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
