package server

import (
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"interviewer/internal/history"
	"interviewer/internal/ingest"
	"interviewer/internal/session"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

const (
	formJobDescription = "jobDescription"
	formResume         = "resume"

	multipartMemory = 8 << 20
)

// session resolves the {id} route parameter, writing 404 when it is unknown
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Create()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.End(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadDocumentsHandler accepts the multipart job description and resume
func (s *Server) uploadDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.Observability.Tracer("interviewer.api").Start(r.Context(), "api.documents")
	defer span.End()

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		span.RecordError(err)
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			writeErrorResponse(w, "Request too large",
				fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		writeErrorResponse(w, "Invalid multipart form", err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.Logger.Debug("Failed to remove multipart temp files", "error", err)
		}
	}()

	jd, closeJD := formUpload(r, formJobDescription)
	defer closeJD()
	resume, closeResume := formUpload(r, formResume)
	defer closeResume()

	if err := sess.IngestDocuments(s.Ingestor, jd, resume); err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("interview.session_id", sess.ID()),
		attribute.String("document.job_description", jd.Name),
		attribute.String("document.resume", resume.Name),
	)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// formUpload opens a multipart file field; a missing field yields an empty Upload
func formUpload(r *http.Request, field string) (ingest.Upload, func()) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return ingest.Upload{}, func() {}
	}
	return ingest.Upload{Name: header.Filename, Reader: file}, closeFile(file)
}

func closeFile(f multipart.File) func() {
	return func() { _ = f.Close() }
}

func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("interviewer.api").Start(r.Context(), "api.start")
	defer span.End()

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	questions, err := sess.Start(ctx)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Int("interview.questions", questions.Len()))
	writeJSON(w, http.StatusOK, StartResponse{
		SessionID: sess.ID(),
		State:     sess.State(),
		Questions: questions.Questions,
	})
}

func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("interviewer.api").Start(r.Context(), "api.message")
	defer span.End()

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req MessageRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	result, err := sess.Send(ctx, req.Message)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Bool("interview.analysis_unlocked", result.AnalysisUnlocked))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]history.Turn{"history": sess.History()})
}

func (s *Server) analysisHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("interviewer.api").Start(r.Context(), "api.analysis")
	defer span.End()

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	report, err := sess.GenerateAnalysis(ctx)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Int("analysis.fit_score", report.FitScore))
	writeJSON(w, http.StatusOK, report)
}
