package app

import (
	"context"
	"strings"

	"pressly/internal/store"
)

const defaultFavicon = "/_static/default.favicon.png"

// RenderView serves GET /view/{appName}/{slug}. The viewer session is
// nil for anonymous requests.
func (s *Service) RenderView(ctx context.Context, appName, slug string, viewer *Session) (string, error) {
	app, err := s.store.GetAppByName(ctx, appName)
	if err != nil {
		return "", err
	}
	doc, err := s.store.GetDocumentBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	if doc.AppID != app.ID {
		return "", errNotFound("Document not found")
	}

	switch doc.ViewPermission {
	case "public":
		// anyone
	case "logged":
		if viewer == nil {
			return "", errUnauthorized("Sign in to view this document")
		}
	case "editable":
		if viewer == nil {
			return "", errUnauthorized("Sign in to view this document")
		}
		collaborator, err := s.isCollaborator(ctx, *viewer, doc)
		if err != nil {
			return "", err
		}
		if !collaborator {
			return "", errForbidden("Not a collaborator on this document")
		}
	}

	return s.renderDocument(ctx, app, doc)
}

// renderDocument produces the final HTML. Content is trusted rich HTML;
// template substitution is plain string replacement, no escaping.
func (s *Service) renderDocument(ctx context.Context, app store.App, doc store.Document) (string, error) {
	if doc.TemplateID == nil {
		return doc.Content, nil
	}

	tpl, err := s.store.GetTemplate(ctx, *doc.TemplateID)
	if err != nil {
		return "", err
	}

	favicon := app.Logo
	if favicon == "" {
		favicon = defaultFavicon
	}

	html := tpl.HTMLContent
	html = strings.ReplaceAll(html, "{{appName}}", app.Name)
	html = strings.ReplaceAll(html, "{{title}}", doc.Title)
	html = strings.ReplaceAll(html, "{{content}}", doc.Content)
	html = strings.ReplaceAll(html, "{{favicon}}", favicon)
	return html, nil
}
