// Package ingest stores the uploaded job description and resume of a session
// in session-scoped transient storage.
package ingest

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"interviewer/internal/errors"
	"interviewer/internal/types"
	"interviewer/internal/utils"

	"github.com/google/uuid"
)

const dirPrefix = "interview"

// Upload is one document as received from the client
type Upload struct {
	Name   string
	Reader io.Reader
}

// Handle references one stored document
type Handle struct {
	Path     string `json:"-"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Read loads the stored document
func (h Handle) Read() ([]byte, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("cannot read stored document %s", h.Name), err)
	}
	return data, nil
}

// Document loads the stored document for an AI provider
func (h Handle) Document() (types.Document, error) {
	data, err := h.Read()
	if err != nil {
		return types.Document{}, err
	}
	return types.Document{Name: h.Name, MIMEType: h.MIMEType, Data: data}, nil
}

// Pair is the job description and resume of one session
type Pair struct {
	JobDescription Handle `json:"jobDescription"`
	Resume         Handle `json:"resume"`

	dir    string
	once   sync.Once
	logger *errors.Logger
}

// Documents loads both stored documents
func (p *Pair) Documents() (types.Documents, error) {
	jd, err := p.JobDescription.Document()
	if err != nil {
		return types.Documents{}, err
	}
	resume, err := p.Resume.Document()
	if err != nil {
		return types.Documents{}, err
	}
	return types.Documents{JobDescription: jd, Resume: resume}, nil
}

// Cleanup removes the stored documents and their directory. Only the first
// call does any work; files that are already gone are ignored.
func (p *Pair) Cleanup() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		for _, path := range []string{p.JobDescription.Path, p.Resume.Path, p.dir} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
				if p.logger != nil {
					p.logger.Debug("Transient document cleanup failed", "path", path, "error", err)
				}
			}
		}
	})
}

// Ingestor writes uploads into per-session directories
type Ingestor struct {
	baseDir string
	maxSize int64
	logger  *errors.Logger
}

// NewIngestor creates an ingestor rooted at baseDir (the OS temp dir when
// empty). maxSize limits each document, zero disables the limit.
func NewIngestor(baseDir string, maxSize int64, logger *errors.Logger) *Ingestor {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Ingestor{baseDir: baseDir, maxSize: maxSize, logger: logger}
}

// Ingest validates and stores the document pair of a session. Nothing is
// left on disk when it fails.
func (i *Ingestor) Ingest(sessionID string, jobDescription, resume Upload) (*Pair, error) {
	if jobDescription.Reader == nil || resume.Reader == nil {
		return nil, errors.NewValidationError(errors.ErrCodeDocumentsMissing,
			"both a job description and a resume are required", nil)
	}
	if !utils.IsTextFile(jobDescription.Name) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDocumentType,
			fmt.Sprintf("job description must be a .txt file, got %q", jobDescription.Name), nil)
	}
	if !utils.IsPDFFile(resume.Name) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidDocumentType,
			fmt.Sprintf("resume must be a .pdf file, got %q", resume.Name), nil)
	}

	if err := os.MkdirAll(i.baseDir, 0750); err != nil {
		return nil, errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("cannot create ingest directory %s", i.baseDir), err)
	}
	dir := filepath.Join(i.baseDir, fmt.Sprintf("%s-%s-%s", dirPrefix, sessionID, uuid.NewString()))
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("cannot create session directory %s", dir), err)
	}

	pair := &Pair{dir: dir, logger: i.logger}
	var err error
	pair.JobDescription, err = i.store(dir, "job_description.txt", jobDescription)
	if err != nil {
		pair.Cleanup()
		return nil, err
	}
	pair.Resume, err = i.store(dir, "resume.pdf", resume)
	if err != nil {
		pair.Cleanup()
		return nil, err
	}

	i.logger.Debug("Documents ingested",
		"session_id", sessionID,
		"job_description", pair.JobDescription.Name,
		"job_description_size", utils.FormatFileSize(pair.JobDescription.Size),
		"resume", pair.Resume.Name,
		"resume_size", utils.FormatFileSize(pair.Resume.Size))
	return pair, nil
}

func (i *Ingestor) store(dir, filename string, upload Upload) (Handle, error) {
	path := filepath.Join(dir, filename)
	handle := Handle{Path: path, Name: filepath.Base(upload.Name), MIMEType: utils.MIMEType(upload.Name)}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return handle, errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("cannot store %s", handle.Name), err)
	}

	reader := upload.Reader
	if i.maxSize > 0 {
		reader = io.LimitReader(reader, i.maxSize+1)
	}
	n, copyErr := io.Copy(file, reader)
	closeErr := file.Close()
	if copyErr != nil {
		return handle, errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("cannot store %s", handle.Name), copyErr)
	}
	if closeErr != nil {
		return handle, errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("cannot store %s", handle.Name), closeErr)
	}
	if i.maxSize > 0 && n > i.maxSize {
		_ = os.Remove(path)
		return handle, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("%s exceeds the maximum size of %s", handle.Name, utils.FormatFileSize(i.maxSize)), nil)
	}

	handle.Size = n
	return handle, nil
}
