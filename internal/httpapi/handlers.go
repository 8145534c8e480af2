package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/Anant-tripathi/WABulkMessenger/internal/campaign"
	"github.com/Anant-tripathi/WABulkMessenger/internal/dispatch"
	"github.com/Anant-tripathi/WABulkMessenger/internal/staging"
	"github.com/Anant-tripathi/WABulkMessenger/internal/store"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

// Request body cap: 5 attachments at the 16 MiB limit plus form overhead.
const maxRequestBody = int64(campaign.MaxAttachments)*campaign.MaxAttachmentSize + 1<<20

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := "unknown"
	if s.deps.Session != nil {
		state = s.deps.Session.State().String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"session": state,
	})
}

// handleSubmitRun accepts one batch: recipients either inline (repeated
// contact/name fields), as an uploaded CSV, or from a saved list; plus the
// message, optional location, and up to 5 attachments. Returns the run ID;
// outcomes are polled via /api/runs/{id}.
func (s *Service) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeErr(w, http.StatusTooManyRequests, "run submission rate exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	recipients, err := s.resolveRecipients(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl := campaign.Template{
		Body:         r.FormValue("message"),
		LocationText: strings.TrimSpace(r.FormValue("location")),
	}

	// Optionally persist the imported recipients for reuse.
	if name := strings.TrimSpace(r.FormValue("save_as")); name != "" && s.deps.Store != nil {
		if err := s.deps.Store.SaveList(r.Context(), name, recipients); err != nil {
			s.log.Warn("saving recipient list failed", logx.String("list", name), logx.Err(err))
		}
	}

	runKey := uuid.NewString()
	atts, err := s.stageUploads(r, runKey)
	if err != nil {
		s.deps.Staging.Release(runKey)
		status := http.StatusInternalServerError
		if errors.Is(err, staging.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeErr(w, status, err.Error())
		return
	}

	cleanup := func() { s.deps.Staging.Release(runKey) }
	id, err := s.deps.Dispatcher.Submit(recipients, tmpl, atts, cleanup)
	if err != nil {
		switch {
		case errors.Is(err, campaign.ErrValidation):
			writeErr(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, dispatch.ErrQueueFull):
			writeErr(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeErr(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": id})
}

func (s *Service) resolveRecipients(r *http.Request) ([]campaign.Recipient, error) {
	pattern := s.deps.ContactPattern
	if pattern == nil {
		pattern = regexp.MustCompile(campaign.DefaultContactPattern)
	}

	// 1) Uploaded CSV wins.
	if f, _, err := r.FormFile("csv"); err == nil {
		defer f.Close()
		recipients, err := campaign.ParseRecipients(f, pattern)
		if err != nil {
			return nil, err
		}
		return recipients, nil
	}

	// 2) Saved list by name.
	if name := strings.TrimSpace(r.FormValue("list")); name != "" {
		if s.deps.Store == nil {
			return nil, errors.New("recipient lists are not enabled")
		}
		return s.deps.Store.LoadList(r.Context(), name)
	}

	// 3) Inline contact/name pairs (the original per-request shape).
	contacts := r.MultipartForm.Value["contact"]
	names := r.MultipartForm.Value["name"]
	if len(contacts) == 0 {
		return nil, errors.New("no recipients: provide contact fields, a csv file, or a list name")
	}
	recipients := make([]campaign.Recipient, 0, len(contacts))
	for i, c := range contacts {
		c = strings.TrimSpace(c)
		name := ""
		if i < len(names) {
			name = strings.TrimSpace(names[i])
		}
		recipients = append(recipients, campaign.Recipient{
			ID:          i + 1,
			DisplayName: name,
			ContactID:   c,
			Valid:       pattern.MatchString(c),
		})
	}
	return recipients, nil
}

func (s *Service) stageUploads(r *http.Request, runKey string) ([]campaign.Attachment, error) {
	files := r.MultipartForm.File["attachment"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > campaign.MaxAttachments {
		return nil, errors.New("too many attachments")
	}

	atts := make([]campaign.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		att, err := s.deps.Staging.Stage(runKey, fh.Filename, f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		atts = append(atts, att)
	}
	return atts, nil
}

func (s *Service) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": s.deps.Dispatcher.Runs()})
}

func (s *Service) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.deps.Dispatcher.Status(r.PathValue("id"))
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown run")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Service) handleRunProgress(w http.ResponseWriter, r *http.Request) {
	st, ok := s.deps.Dispatcher.Status(r.PathValue("id"))
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"percent": st.Percent(),
		"done":    st.Done,
		"total":   st.Total,
		"running": st.Running,
	})
}

func (s *Service) handleLists(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeErr(w, http.StatusNotFound, "recipient lists are not enabled")
		return
	}
	lists, err := s.deps.Store.Lists(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": lists})
}

func (s *Service) handleGetList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeErr(w, http.StatusNotFound, "recipient lists are not enabled")
		return
	}
	recipients, err := s.deps.Store.LoadList(r.Context(), r.PathValue("name"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeErr(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipients": recipients})
}

func (s *Service) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeErr(w, http.StatusNotFound, "recipient lists are not enabled")
		return
	}
	if err := s.deps.Store.DeleteList(r.Context(), r.PathValue("name")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeErr(w, status, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
