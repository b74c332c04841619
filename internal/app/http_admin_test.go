package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"pressly/internal/store"
)

func adminStore() *fakeStore {
	return &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, Username: "root", Role: "admin"}, nil
		},
	}
}

func TestCreateTemplateIsAdminOnly(t *testing.T) {
	svc := newTestService(&fakeStore{})
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "user-1", Role: "user"})

	req := authedRequest(t, http.MethodPost, "/api/templates",
		`{"name":"classic","htmlContent":"<html>{{content}}</html>"}`, session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateTemplateAsAdmin(t *testing.T) {
	svc := newTestService(adminStore())
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "admin-1", Role: "admin"})

	req := authedRequest(t, http.MethodPost, "/api/templates",
		`{"name":"classic","htmlContent":"<html>{{content}}</html>"}`, session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if decodeResponse(t, rr)["name"] != "classic" {
		t.Fatalf("expected template name in payload")
	}
}

func TestDeleteTemplateBlockedWhileReferenced(t *testing.T) {
	fs := adminStore()
	fs.getTemplateFn = func(_ context.Context, templateID string) (store.Template, error) {
		return store.Template{ID: templateID, Name: "classic"}, nil
	}
	fs.templateDocumentCountFn = func(context.Context, string) (int, error) { return 2, nil }
	fs.deleteTemplateFn = func(context.Context, string) error {
		t.Fatalf("unexpected DeleteTemplate call")
		return nil
	}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "admin-1", Role: "admin"})

	req := authedRequest(t, http.MethodDelete, "/api/templates/tpl-1", "", session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListTemplatesOpenToAllUsers(t *testing.T) {
	fs := &fakeStore{
		listTemplatesFn: func(context.Context, int, int) ([]store.Template, int, error) {
			return []store.Template{{ID: "tpl-1", Name: "classic"}}, 1, nil
		},
	}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "user-1", Role: "user"})

	req := authedRequest(t, http.MethodGet, "/api/templates", "", session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if decodeResponse(t, rr)["total"] != float64(1) {
		t.Fatalf("expected 1 template")
	}
}

func TestCreateTagDefaultsAndDuplicate(t *testing.T) {
	var inserted store.Tag
	fs := adminStore()
	fs.insertTagFn = func(_ context.Context, tag store.Tag) error {
		inserted = tag
		return nil
	}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "admin-1", Role: "admin"})

	req := authedRequest(t, http.MethodPost, "/api/tags", `{"name":"faq"}`, session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if inserted.Color != "#000000" || inserted.Category != "document" {
		t.Fatalf("expected tag defaults, got color=%q category=%q", inserted.Color, inserted.Category)
	}

	fs.tagNameExistsFn = func(context.Context, string, string) (bool, error) { return true, nil }
	req = authedRequest(t, http.MethodPost, "/api/tags", `{"name":"faq"}`, session)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for duplicate tag, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListUsersEndpointIsAdminOnly(t *testing.T) {
	svc := newTestService(&fakeStore{})
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "user-1", Role: "user"})

	req := authedRequest(t, http.MethodGet, "/api/users", "", session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestListUsersReturnsPage(t *testing.T) {
	fs := adminStore()
	fs.listUsersFn = func(_ context.Context, limit, offset int) ([]store.User, int, error) {
		if limit != 5 || offset != 10 {
			t.Fatalf("expected limit=5 offset=10, got %d/%d", limit, offset)
		}
		return []store.User{{ID: "user-1", Username: "avery"}}, 42, nil
	}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "admin-1", Role: "admin"})

	req := authedRequest(t, http.MethodGet, "/api/users?limit=5&offset=10", "", session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if decodeResponse(t, rr)["total"] != float64(42) {
		t.Fatalf("expected total 42")
	}
}

func TestListTemplatesForwardsPagination(t *testing.T) {
	var gotLimit, gotOffset int
	fs := &fakeStore{
		listTemplatesFn: func(_ context.Context, limit, offset int) ([]store.Template, int, error) {
			gotLimit, gotOffset = limit, offset
			return []store.Template{{ID: "tpl-2", Name: "minimal"}}, 7, nil
		},
	}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "user-1", Role: "user"})

	req := authedRequest(t, http.MethodGet, "/api/templates?limit=1&offset=3", "", session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if gotLimit != 1 || gotOffset != 3 {
		t.Fatalf("expected limit=1 offset=3, got limit=%d offset=%d", gotLimit, gotOffset)
	}
	if total := decodeResponse(t, rr)["total"]; total != float64(7) {
		t.Fatalf("expected total 7, got %v", total)
	}
}

func TestListTagsForwardsPagination(t *testing.T) {
	var gotLimit, gotOffset int
	fs := &fakeStore{
		listTagsFn: func(_ context.Context, limit, offset int) ([]store.Tag, int, error) {
			gotLimit, gotOffset = limit, offset
			return []store.Tag{{ID: "tag-2", Name: "faq"}}, 9, nil
		},
	}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")
	session := testSession(t, svc, store.User{ID: "user-1", Role: "user"})

	req := authedRequest(t, http.MethodGet, "/api/tags?limit=1&offset=8", "", session)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if gotLimit != 1 || gotOffset != 8 {
		t.Fatalf("expected limit=1 offset=8, got limit=%d offset=%d", gotLimit, gotOffset)
	}
	payload := decodeResponse(t, rr)
	if payload["total"] != float64(9) {
		t.Fatalf("expected total 9, got %v", payload["total"])
	}
	if list := payload["list"].([]any); len(list) != 1 {
		t.Fatalf("expected 1 tag on the page, got %d", len(list))
	}
}
