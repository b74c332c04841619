package app

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pressly/internal/util"
)

const maxUploadBytes = 5 << 20

// handleAPI dispatches authenticated routes. parts holds the path
// segments after the /api prefix.
func (s *HTTPServer) handleAPI(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	switch {
	case len(parts) == 2 && parts[0] == "user" && parts[1] == "me":
		s.handleMe(w, r, session)
	case len(parts) == 1 && parts[0] == "users" && r.Method == http.MethodGet:
		s.handleListUsers(w, r, session)
	case len(parts) == 1 && parts[0] == "apps":
		s.handleApps(w, r, session)
	case len(parts) == 2 && parts[0] == "apps":
		s.handleApp(w, r, session, parts[1])
	case len(parts) == 3 && parts[0] == "apps" && parts[2] == "invite" && r.Method == http.MethodPost:
		s.handleAppInvite(w, r, session, parts[1])
	case len(parts) == 3 && parts[0] == "apps" && parts[2] == "removeUsers" && r.Method == http.MethodDelete:
		s.handleAppRemoveUsers(w, r, session, parts[1])
	case len(parts) == 2 && parts[0] == "documents" && parts[1] == "invited" && r.Method == http.MethodGet:
		s.handleInvitedDocuments(w, r, session)
	case len(parts) == 2 && parts[0] == "documents":
		s.handleAppDocuments(w, r, session, parts[1])
	case len(parts) == 3 && parts[0] == "documents":
		s.handleDocument(w, r, session, parts[1], parts[2])
	case len(parts) == 4 && parts[0] == "documents" && parts[3] == "content" && r.Method == http.MethodPut:
		s.handleDocumentContent(w, r, session, parts[1], parts[2])
	case len(parts) == 4 && parts[0] == "documents" && parts[3] == "invite" && r.Method == http.MethodPost:
		s.handleDocumentInvite(w, r, session, parts[1], parts[2])
	case len(parts) == 4 && parts[0] == "documents" && parts[3] == "export" && r.Method == http.MethodPost:
		s.handleDocumentExport(w, r, session, parts[1], parts[2])
	case len(parts) == 1 && parts[0] == "templates":
		s.handleTemplates(w, r, session)
	case len(parts) == 2 && parts[0] == "templates":
		s.handleTemplate(w, r, session, parts[1])
	case len(parts) == 1 && parts[0] == "tags":
		s.handleTags(w, r, session)
	case len(parts) == 2 && parts[0] == "tags":
		s.handleTag(w, r, session, parts[1])
	case len(parts) == 1 && parts[0] == "search" && r.Method == http.MethodGet:
		s.handleSearch(w, r, session)
	case len(parts) == 1 && parts[0] == "uploads" && r.Method == http.MethodPost:
		s.handleUpload(w, r)
	case len(parts) == 1 && parts[0] == "logout" && r.Method == http.MethodPost:
		s.handleLogout(w, r, session)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) respondOK(w http.ResponseWriter, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.Me(r.Context(), session)
		s.respond(w, payload, err)
	case http.MethodPut:
		var body struct {
			Nickname *string `json:"nickname"`
			Avatar   *string `json:"avatar"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateMe(r.Context(), session, body.Nickname, body.Avatar)
		s.respond(w, payload, err)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request, session Session) {
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	payload, err := s.service.ListUsers(r.Context(), session, limit, offset)
	s.respond(w, payload, err)
}

func (s *HTTPServer) handleApps(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		participated := r.URL.Query().Get("participated") == "true"
		limit, ok := queryInt(w, r, "limit", 20)
		if !ok {
			return
		}
		offset, ok := queryInt(w, r, "offset", 0)
		if !ok {
			return
		}
		payload, err := s.service.ListApps(r.Context(), session, participated, limit, offset)
		s.respond(w, payload, err)
	case http.MethodPost:
		var input CreateAppInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateApp(r.Context(), session, input)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleApp(w http.ResponseWriter, r *http.Request, session Session, appID string) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetApp(r.Context(), session, appID)
		s.respond(w, payload, err)
	case http.MethodPut:
		var input UpdateAppInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateApp(r.Context(), session, appID, input)
		s.respond(w, payload, err)
	case http.MethodDelete:
		s.respondOK(w, s.service.DeleteApp(r.Context(), session, appID))
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleAppInvite(w http.ResponseWriter, r *http.Request, session Session, appID string) {
	var body struct {
		UserIDs []string `json:"userIds"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	s.respondOK(w, s.service.InviteToApp(r.Context(), session, appID, body.UserIDs))
}

func (s *HTTPServer) handleAppRemoveUsers(w http.ResponseWriter, r *http.Request, session Session, appID string) {
	var body struct {
		UserIDs []string `json:"userIds"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	s.respondOK(w, s.service.RemoveAppUsers(r.Context(), session, appID, body.UserIDs))
}

func (s *HTTPServer) handleInvitedDocuments(w http.ResponseWriter, r *http.Request, session Session) {
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	payload, err := s.service.ListInvitedDocuments(r.Context(), session, limit, offset)
	s.respond(w, payload, err)
}

func (s *HTTPServer) handleAppDocuments(w http.ResponseWriter, r *http.Request, session Session, appID string) {
	switch r.Method {
	case http.MethodGet:
		limit, ok := queryInt(w, r, "limit", 20)
		if !ok {
			return
		}
		offset, ok := queryInt(w, r, "offset", 0)
		if !ok {
			return
		}
		payload, err := s.service.ListDocuments(r.Context(), session, appID, limit, offset)
		s.respond(w, payload, err)
	case http.MethodPost:
		var input CreateDocumentInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateDocument(r.Context(), session, appID, input)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleDocument(w http.ResponseWriter, r *http.Request, session Session, appID, documentID string) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetDocumentDetail(r.Context(), session, appID, documentID)
		s.respond(w, payload, err)
	case http.MethodPut:
		var input UpdateDocumentInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateDocumentSettings(r.Context(), session, appID, documentID, input)
		s.respond(w, payload, err)
	case http.MethodDelete:
		s.respondOK(w, s.service.DeleteDocument(r.Context(), session, appID, documentID))
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleDocumentContent(w http.ResponseWriter, r *http.Request, session Session, appID, documentID string) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	payload, err := s.service.UpdateDocumentContent(r.Context(), session, appID, documentID, body.Content)
	s.respond(w, payload, err)
}

func (s *HTTPServer) handleDocumentInvite(w http.ResponseWriter, r *http.Request, session Session, appID, documentID string) {
	var body struct {
		UserIDs []string `json:"userIds"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	s.respondOK(w, s.service.InviteToDocument(r.Context(), session, appID, documentID, body.UserIDs))
}

func (s *HTTPServer) handleDocumentExport(w http.ResponseWriter, r *http.Request, session Session, appID, documentID string) {
	result, err := s.service.ExportDocument(r.Context(), session, appID, documentID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleTemplates(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		limit, ok := queryInt(w, r, "limit", 20)
		if !ok {
			return
		}
		offset, ok := queryInt(w, r, "offset", 0)
		if !ok {
			return
		}
		payload, err := s.service.ListTemplates(r.Context(), limit, offset)
		s.respond(w, payload, err)
	case http.MethodPost:
		var input TemplateInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateTemplate(r.Context(), session, input)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTemplate(w http.ResponseWriter, r *http.Request, session Session, templateID string) {
	switch r.Method {
	case http.MethodPut:
		var input TemplateInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateTemplate(r.Context(), session, templateID, input)
		s.respond(w, payload, err)
	case http.MethodDelete:
		s.respondOK(w, s.service.DeleteTemplate(r.Context(), session, templateID))
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTags(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		limit, ok := queryInt(w, r, "limit", 20)
		if !ok {
			return
		}
		offset, ok := queryInt(w, r, "offset", 0)
		if !ok {
			return
		}
		payload, err := s.service.ListTags(r.Context(), limit, offset)
		s.respond(w, payload, err)
	case http.MethodPost:
		var input TagInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.CreateTag(r.Context(), session, input)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleTag(w http.ResponseWriter, r *http.Request, session Session, tagID string) {
	switch r.Method {
	case http.MethodPut:
		var input TagInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateTag(r.Context(), session, tagID, input)
		s.respond(w, payload, err)
	case http.MethodDelete:
		s.respondOK(w, s.service.DeleteTag(r.Context(), session, tagID))
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	text := strings.TrimSpace(query.Get("q"))
	if text == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "q is required", nil)
		return
	}
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	payload, err := s.service.Search(r.Context(), session, text, query.Get("appId"), limit, offset)
	s.respond(w, payload, err)
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "missing file field", nil)
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the 5 MiB limit", nil)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "only image uploads are allowed", nil)
		return
	}

	key := util.NewID() + strings.ToLower(filepath.Ext(header.Filename))
	url, err := s.service.Upload(r.Context(), key, contentType, header.Size, file)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"url": url, "key": key})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request, session Session) {
	s.respondOK(w, s.service.Logout(r.Context(), session))
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", name+" must be a non-negative integer", nil)
		return 0, false
	}
	return value, true
}
