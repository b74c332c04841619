package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pressly/internal/export"
	"pressly/internal/search"
	"pressly/internal/store"
	"pressly/internal/util"
)

var allowedViewPermissions = map[string]struct{}{
	"public":   {},
	"editable": {},
	"logged":   {},
}

type CreateDocumentInput struct {
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	Slug           string  `json:"slug"`
	TemplateID     *string `json:"templateId"`
	ViewPermission string  `json:"viewPermission"`
	Publish        bool    `json:"publish"`
}

type UpdateDocumentInput struct {
	Title          *string `json:"title"`
	Slug           *string `json:"slug"`
	TemplateID     *string `json:"templateId"`
	ViewPermission *string `json:"viewPermission"`
	Publish        *bool   `json:"publish"`
}

func (s *Service) ListDocuments(ctx context.Context, session Session, appID string, limit, offset int) (map[string]any, error) {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAppAccess(ctx, session, app); err != nil {
		return nil, err
	}

	docs, total, err := s.store.ListDocumentsByApp(ctx, app.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		list = append(list, documentSummaryPayload(doc))
	}
	return map[string]any{"list": list, "total": total}, nil
}

func (s *Service) ListInvitedDocuments(ctx context.Context, session Session, limit, offset int) (map[string]any, error) {
	docs, total, err := s.store.ListDocumentsByInvitee(ctx, session.UserID, limit, offset)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		list = append(list, documentSummaryPayload(doc))
	}
	return map[string]any{"list": list, "total": total}, nil
}

func (s *Service) CreateDocument(ctx context.Context, session Session, appID string, input CreateDocumentInput) (map[string]any, error) {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAppAccess(ctx, session, app); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errValidation("title is required")
	}
	viewPermission := input.ViewPermission
	if viewPermission == "" {
		viewPermission = "public"
	}
	if _, ok := allowedViewPermissions[viewPermission]; !ok {
		return nil, errValidation("viewPermission must be public, editable, or logged")
	}
	if input.TemplateID != nil && *input.TemplateID != "" {
		if _, err := s.store.GetTemplate(ctx, *input.TemplateID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, errValidation("unknown template")
			}
			return nil, err
		}
	}

	taken, err := s.store.DocumentTitleExists(ctx, app.ID, title, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errConflict("Document title already in use in this app")
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = util.NewSlug()
	}
	slugTaken, err := s.store.SlugExists(ctx, slug, "")
	if err != nil {
		return nil, err
	}
	if slugTaken {
		return nil, errConflict("Slug already in use")
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	created, err := s.store.CountDocumentsByCreator(ctx, app.ID, session.UserID)
	if err != nil {
		return nil, err
	}
	if created >= user.DocumentsCount {
		return nil, errQuotaExceeded("Document quota reached for this app")
	}

	now := time.Now()
	doc := store.Document{
		ID:             util.NewID(),
		Title:          title,
		Content:        input.Content,
		Slug:           slug,
		ViewPermission: viewPermission,
		TemplateID:     normalizeTemplateID(input.TemplateID),
		AppID:          app.ID,
		CreatorID:      session.UserID,
		LastEditorID:   &session.UserID,
		LastEditTime:   now,
	}
	if input.Publish {
		doc.PublishTime = &now
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.indexDocument(doc, app.Name)
	return documentPayload(doc), nil
}

func (s *Service) GetDocumentDetail(ctx context.Context, session Session, appID, documentID string) (map[string]any, error) {
	doc, err := s.getDocumentInApp(ctx, appID, documentID)
	if err != nil {
		return nil, err
	}
	collaborator, err := s.isCollaborator(ctx, session, doc)
	if err != nil {
		return nil, err
	}
	if !collaborator {
		return nil, errForbidden("Not a collaborator on this document")
	}

	editors, err := s.store.ListDocumentEditors(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	editorList := make([]map[string]any, 0, len(editors))
	for _, editor := range editors {
		editorList = append(editorList, userPayload(editor))
	}

	payload := documentPayload(doc)
	payload["editors"] = editorList
	return payload, nil
}

// UpdateDocumentSettings changes title, slug, template, view permission,
// and publish state. Content has its own endpoint.
func (s *Service) UpdateDocumentSettings(ctx context.Context, session Session, appID, documentID string, input UpdateDocumentInput) (map[string]any, error) {
	doc, err := s.getDocumentInApp(ctx, appID, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDocumentOwner(session, doc); err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errValidation("title cannot be empty")
		}
		if title != doc.Title {
			taken, err := s.store.DocumentTitleExists(ctx, doc.AppID, title, doc.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, errConflict("Document title already in use in this app")
			}
			doc.Title = title
		}
	}
	if input.Slug != nil {
		slug := strings.TrimSpace(*input.Slug)
		if slug == "" {
			return nil, errValidation("slug cannot be empty")
		}
		if slug != doc.Slug {
			taken, err := s.store.SlugExists(ctx, slug, doc.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, errConflict("Slug already in use")
			}
			doc.Slug = slug
		}
	}
	if input.ViewPermission != nil {
		if _, ok := allowedViewPermissions[*input.ViewPermission]; !ok {
			return nil, errValidation("viewPermission must be public, editable, or logged")
		}
		doc.ViewPermission = *input.ViewPermission
	}
	if input.TemplateID != nil {
		if *input.TemplateID != "" {
			if _, err := s.store.GetTemplate(ctx, *input.TemplateID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, errValidation("unknown template")
				}
				return nil, err
			}
		}
		doc.TemplateID = normalizeTemplateID(input.TemplateID)
	}
	if input.Publish != nil {
		if *input.Publish {
			if doc.PublishTime == nil {
				now := time.Now()
				doc.PublishTime = &now
			}
		} else {
			doc.PublishTime = nil
		}
	}

	if err := s.store.UpdateDocumentSettings(ctx, doc); err != nil {
		return nil, err
	}

	app, err := s.store.GetApp(ctx, doc.AppID)
	if err == nil {
		s.indexDocument(doc, app.Name)
	}
	return documentPayload(doc), nil
}

// UpdateDocumentContent writes new content, stamps the editor, and
// records the caller in the editor set exactly once.
func (s *Service) UpdateDocumentContent(ctx context.Context, session Session, appID, documentID, content string) (map[string]any, error) {
	doc, err := s.getDocumentInApp(ctx, appID, documentID)
	if err != nil {
		return nil, err
	}
	collaborator, err := s.isCollaborator(ctx, session, doc)
	if err != nil {
		return nil, err
	}
	if !collaborator {
		return nil, errForbidden("Not a collaborator on this document")
	}

	now := time.Now()
	if err := s.store.UpdateDocumentContent(ctx, doc.ID, content, session.UserID, now); err != nil {
		return nil, err
	}
	if err := s.store.AddDocumentEditor(ctx, doc.ID, session.UserID); err != nil {
		return nil, err
	}

	doc.Content = content
	doc.LastEditorID = &session.UserID
	doc.LastEditTime = now

	app, err := s.store.GetApp(ctx, doc.AppID)
	if err == nil {
		s.indexDocument(doc, app.Name)
	}
	return documentPayload(doc), nil
}

func (s *Service) DeleteDocument(ctx context.Context, session Session, appID, documentID string) error {
	doc, err := s.getDocumentInApp(ctx, appID, documentID)
	if err != nil {
		return err
	}
	if err := s.requireDocumentOwner(session, doc); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteDocument(doc.ID)
	}
	return nil
}

// InviteToDocument grants per-document edit rights. Duplicates are skipped.
func (s *Service) InviteToDocument(ctx context.Context, session Session, appID, documentID string, userIDs []string) error {
	doc, err := s.getDocumentInApp(ctx, appID, documentID)
	if err != nil {
		return err
	}
	if err := s.requireDocumentOwner(session, doc); err != nil {
		return err
	}

	for _, userID := range userIDs {
		if userID == doc.CreatorID {
			continue
		}
		if _, err := s.store.GetUserByID(ctx, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errValidation("unknown user: " + userID)
			}
			return err
		}
		if err := s.store.AddDocumentInvitee(ctx, doc.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

// ExportDocument renders the document through the public renderer and
// prints it to PDF.
func (s *Service) ExportDocument(ctx context.Context, session Session, appID, documentID string) (*export.Result, error) {
	doc, err := s.getDocumentInApp(ctx, appID, documentID)
	if err != nil {
		return nil, err
	}
	collaborator, err := s.isCollaborator(ctx, session, doc)
	if err != nil {
		return nil, err
	}
	if !collaborator {
		return nil, errForbidden("Not a collaborator on this document")
	}

	app, err := s.store.GetApp(ctx, doc.AppID)
	if err != nil {
		return nil, err
	}
	html, err := s.renderDocument(ctx, app, doc)
	if err != nil {
		return nil, err
	}
	return export.PDF(html, doc.Title)
}

func (s *Service) Search(ctx context.Context, session Session, text, appID string, limit, offset int) (search.Response, error) {
	appIDs, err := s.store.ListAccessibleAppIDs(ctx, session.UserID)
	if err != nil {
		return search.Response{}, err
	}
	if appID != "" {
		filtered := appIDs[:0]
		for _, id := range appIDs {
			if id == appID {
				filtered = append(filtered, id)
			}
		}
		appIDs = filtered
	}

	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{
		Text:   text,
		AppIDs: appIDs,
		Limit:  limit,
		Offset: offset,
	}), nil
}

// getDocumentInApp loads a document and verifies it belongs to the app
// named in the URL. A mismatch reads as missing.
func (s *Service) getDocumentInApp(ctx context.Context, appID, documentID string) (store.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if doc.AppID != appID {
		return store.Document{}, sql.ErrNoRows
	}
	return doc, nil
}

func (s *Service) requireDocumentOwner(session Session, doc store.Document) error {
	if session.isAdmin() || doc.CreatorID == session.UserID {
		return nil
	}
	return errForbidden("Only the document owner may do this")
}

// isCollaborator reports whether the session may edit the document:
// the creator, an app participant, a document invitee, or an admin.
func (s *Service) isCollaborator(ctx context.Context, session Session, doc store.Document) (bool, error) {
	if session.isAdmin() || doc.CreatorID == session.UserID {
		return true, nil
	}
	participant, err := s.store.IsAppParticipant(ctx, doc.AppID, session.UserID)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	if participant {
		return true, nil
	}
	invited, err := s.store.IsDocumentInvitee(ctx, doc.ID, session.UserID)
	if err != nil {
		return false, fmt.Errorf("check invitee: %w", err)
	}
	return invited, nil
}

func (s *Service) indexDocument(doc store.Document, appName string) {
	if s.search == nil {
		return
	}
	s.search.IndexDocument(search.DocumentRecord{
		ID:      doc.ID,
		Title:   doc.Title,
		Content: doc.Content,
		Slug:    doc.Slug,
		AppID:   doc.AppID,
		AppName: appName,
	})
}

func normalizeTemplateID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}
