package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"pressly/internal/authpw"
	"pressly/internal/config"
	"pressly/internal/store"
)

type fakeStore struct {
	createUserFn              func(context.Context, store.User) error
	getUserByIDFn             func(context.Context, string) (store.User, error)
	getUserByUsernameFn       func(context.Context, string) (store.User, error)
	listUsersFn               func(context.Context, int, int) ([]store.User, int, error)
	countUsersFn              func(context.Context) (int, error)
	revokeAccessTokenFn       func(context.Context, string, time.Time) error
	isAccessTokenRevokedFn    func(context.Context, string) (bool, error)
	insertAppFn               func(context.Context, store.App) error
	getAppFn                  func(context.Context, string) (store.App, error)
	getAppByNameFn            func(context.Context, string) (store.App, error)
	listAppsByCreatorFn       func(context.Context, string, int, int) ([]store.App, int, error)
	listAppsByParticipantFn   func(context.Context, string, int, int) ([]store.App, int, error)
	countAppsByCreatorFn      func(context.Context, string) (int, error)
	deleteAppFn               func(context.Context, string) error
	addAppParticipantFn       func(context.Context, string, string) error
	removeAppParticipantFn    func(context.Context, string, string) error
	isAppParticipantFn        func(context.Context, string, string) (bool, error)
	listAccessibleAppIDsFn    func(context.Context, string) ([]string, error)
	appDocumentCountFn        func(context.Context, string) (int, error)
	insertDocumentFn          func(context.Context, store.Document) error
	getDocumentFn             func(context.Context, string) (store.Document, error)
	getDocumentBySlugFn       func(context.Context, string) (store.Document, error)
	listDocumentsByAppFn      func(context.Context, string, int, int) ([]store.Document, int, error)
	listDocumentsByInviteeFn  func(context.Context, string, int, int) ([]store.Document, int, error)
	countDocumentsByCreatorFn func(context.Context, string, string) (int, error)
	documentTitleExistsFn     func(context.Context, string, string, string) (bool, error)
	slugExistsFn              func(context.Context, string, string) (bool, error)
	updateDocumentSettingsFn  func(context.Context, store.Document) error
	updateDocumentContentFn   func(context.Context, string, string, string, time.Time) error
	deleteDocumentFn          func(context.Context, string) error
	addDocumentInviteeFn      func(context.Context, string, string) error
	isDocumentInviteeFn       func(context.Context, string, string) (bool, error)
	addDocumentEditorFn       func(context.Context, string, string) error
	getTemplateFn             func(context.Context, string) (store.Template, error)
	listTemplatesFn           func(context.Context, int, int) ([]store.Template, int, error)
	templateNameExistsFn      func(context.Context, string, string) (bool, error)
	templateDocumentCountFn   func(context.Context, string) (int, error)
	deleteTemplateFn          func(context.Context, string) error
	insertTagFn               func(context.Context, store.Tag) error
	getTagFn                  func(context.Context, string) (store.Tag, error)
	listTagsFn                func(context.Context, int, int) ([]store.Tag, int, error)
	tagNameExistsFn           func(context.Context, string, string) (bool, error)
	deleteTagFn               func(context.Context, string) error
	countTagsFn               func(context.Context) (int, error)
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return nil
}

// GetUserByID defaults to a plain user so authenticated requests work
// without per-test wiring.
func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{ID: userID, Username: "user-" + userID, Role: "user", AppsCount: 10, DocumentsCount: 20}, nil
}
func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (store.User, error) {
	if f.getUserByUsernameFn != nil {
		return f.getUserByUsernameFn(ctx, username)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) ListUsers(ctx context.Context, limit, offset int) ([]store.User, int, error) {
	if f.listUsersFn != nil {
		return f.listUsersFn(ctx, limit, offset)
	}
	return nil, 0, nil
}
func (f *fakeStore) UpdateUserProfile(context.Context, string, string, string) error { return nil }
func (f *fakeStore) CountUsers(ctx context.Context) (int, error) {
	if f.countUsersFn != nil {
		return f.countUsersFn(ctx)
	}
	return 0, nil
}

func (f *fakeStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	if f.revokeAccessTokenFn != nil {
		return f.revokeAccessTokenFn(ctx, jti, exp)
	}
	return nil
}
func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.isAccessTokenRevokedFn != nil {
		return f.isAccessTokenRevokedFn(ctx, jti)
	}
	return false, nil
}

func (f *fakeStore) InsertApp(ctx context.Context, app store.App) error {
	if f.insertAppFn != nil {
		return f.insertAppFn(ctx, app)
	}
	return nil
}
func (f *fakeStore) GetApp(ctx context.Context, appID string) (store.App, error) {
	if f.getAppFn != nil {
		return f.getAppFn(ctx, appID)
	}
	return store.App{}, sql.ErrNoRows
}
func (f *fakeStore) GetAppByName(ctx context.Context, name string) (store.App, error) {
	if f.getAppByNameFn != nil {
		return f.getAppByNameFn(ctx, name)
	}
	return store.App{}, sql.ErrNoRows
}
func (f *fakeStore) ListAppsByCreator(ctx context.Context, userID string, limit, offset int) ([]store.App, int, error) {
	if f.listAppsByCreatorFn != nil {
		return f.listAppsByCreatorFn(ctx, userID, limit, offset)
	}
	return nil, 0, nil
}
func (f *fakeStore) ListAppsByParticipant(ctx context.Context, userID string, limit, offset int) ([]store.App, int, error) {
	if f.listAppsByParticipantFn != nil {
		return f.listAppsByParticipantFn(ctx, userID, limit, offset)
	}
	return nil, 0, nil
}
func (f *fakeStore) CountAppsByCreator(ctx context.Context, userID string) (int, error) {
	if f.countAppsByCreatorFn != nil {
		return f.countAppsByCreatorFn(ctx, userID)
	}
	return 0, nil
}
func (f *fakeStore) UpdateApp(context.Context, store.App) error { return nil }
func (f *fakeStore) DeleteApp(ctx context.Context, appID string) error {
	if f.deleteAppFn != nil {
		return f.deleteAppFn(ctx, appID)
	}
	return nil
}
func (f *fakeStore) AddAppParticipant(ctx context.Context, appID, userID string) error {
	if f.addAppParticipantFn != nil {
		return f.addAppParticipantFn(ctx, appID, userID)
	}
	return nil
}
func (f *fakeStore) RemoveAppParticipant(ctx context.Context, appID, userID string) error {
	if f.removeAppParticipantFn != nil {
		return f.removeAppParticipantFn(ctx, appID, userID)
	}
	return nil
}
func (f *fakeStore) IsAppParticipant(ctx context.Context, appID, userID string) (bool, error) {
	if f.isAppParticipantFn != nil {
		return f.isAppParticipantFn(ctx, appID, userID)
	}
	return false, nil
}
func (f *fakeStore) ListAppParticipants(context.Context, string) ([]store.User, error) {
	return nil, nil
}
func (f *fakeStore) ListAccessibleAppIDs(ctx context.Context, userID string) ([]string, error) {
	if f.listAccessibleAppIDsFn != nil {
		return f.listAccessibleAppIDsFn(ctx, userID)
	}
	return nil, nil
}
func (f *fakeStore) AppDocumentCount(ctx context.Context, appID string) (int, error) {
	if f.appDocumentCountFn != nil {
		return f.appDocumentCountFn(ctx, appID)
	}
	return 0, nil
}

func (f *fakeStore) InsertDocument(ctx context.Context, doc store.Document) error {
	if f.insertDocumentFn != nil {
		return f.insertDocumentFn(ctx, doc)
	}
	return nil
}
func (f *fakeStore) GetDocument(ctx context.Context, documentID string) (store.Document, error) {
	if f.getDocumentFn != nil {
		return f.getDocumentFn(ctx, documentID)
	}
	return store.Document{}, sql.ErrNoRows
}
func (f *fakeStore) GetDocumentBySlug(ctx context.Context, slug string) (store.Document, error) {
	if f.getDocumentBySlugFn != nil {
		return f.getDocumentBySlugFn(ctx, slug)
	}
	return store.Document{}, sql.ErrNoRows
}
func (f *fakeStore) ListDocumentsByApp(ctx context.Context, appID string, limit, offset int) ([]store.Document, int, error) {
	if f.listDocumentsByAppFn != nil {
		return f.listDocumentsByAppFn(ctx, appID, limit, offset)
	}
	return nil, 0, nil
}
func (f *fakeStore) ListDocumentsByInvitee(ctx context.Context, userID string, limit, offset int) ([]store.Document, int, error) {
	if f.listDocumentsByInviteeFn != nil {
		return f.listDocumentsByInviteeFn(ctx, userID, limit, offset)
	}
	return nil, 0, nil
}
func (f *fakeStore) CountDocumentsByCreator(ctx context.Context, appID, userID string) (int, error) {
	if f.countDocumentsByCreatorFn != nil {
		return f.countDocumentsByCreatorFn(ctx, appID, userID)
	}
	return 0, nil
}
func (f *fakeStore) DocumentTitleExists(ctx context.Context, appID, title, excludeID string) (bool, error) {
	if f.documentTitleExistsFn != nil {
		return f.documentTitleExistsFn(ctx, appID, title, excludeID)
	}
	return false, nil
}
func (f *fakeStore) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	if f.slugExistsFn != nil {
		return f.slugExistsFn(ctx, slug, excludeID)
	}
	return false, nil
}
func (f *fakeStore) UpdateDocumentSettings(ctx context.Context, doc store.Document) error {
	if f.updateDocumentSettingsFn != nil {
		return f.updateDocumentSettingsFn(ctx, doc)
	}
	return nil
}
func (f *fakeStore) UpdateDocumentContent(ctx context.Context, documentID, content, editorID string, editedAt time.Time) error {
	if f.updateDocumentContentFn != nil {
		return f.updateDocumentContentFn(ctx, documentID, content, editorID, editedAt)
	}
	return nil
}
func (f *fakeStore) DeleteDocument(ctx context.Context, documentID string) error {
	if f.deleteDocumentFn != nil {
		return f.deleteDocumentFn(ctx, documentID)
	}
	return nil
}
func (f *fakeStore) AddDocumentInvitee(ctx context.Context, documentID, userID string) error {
	if f.addDocumentInviteeFn != nil {
		return f.addDocumentInviteeFn(ctx, documentID, userID)
	}
	return nil
}
func (f *fakeStore) IsDocumentInvitee(ctx context.Context, documentID, userID string) (bool, error) {
	if f.isDocumentInviteeFn != nil {
		return f.isDocumentInviteeFn(ctx, documentID, userID)
	}
	return false, nil
}
func (f *fakeStore) AddDocumentEditor(ctx context.Context, documentID, userID string) error {
	if f.addDocumentEditorFn != nil {
		return f.addDocumentEditorFn(ctx, documentID, userID)
	}
	return nil
}
func (f *fakeStore) ListDocumentEditors(context.Context, string) ([]store.User, error) {
	return nil, nil
}

func (f *fakeStore) InsertTemplate(context.Context, store.Template) error { return nil }
func (f *fakeStore) GetTemplate(ctx context.Context, templateID string) (store.Template, error) {
	if f.getTemplateFn != nil {
		return f.getTemplateFn(ctx, templateID)
	}
	return store.Template{}, sql.ErrNoRows
}
func (f *fakeStore) ListTemplates(ctx context.Context, limit, offset int) ([]store.Template, int, error) {
	if f.listTemplatesFn != nil {
		return f.listTemplatesFn(ctx, limit, offset)
	}
	return nil, 0, nil
}
func (f *fakeStore) TemplateNameExists(ctx context.Context, name, excludeID string) (bool, error) {
	if f.templateNameExistsFn != nil {
		return f.templateNameExistsFn(ctx, name, excludeID)
	}
	return false, nil
}
func (f *fakeStore) TemplateDocumentCount(ctx context.Context, templateID string) (int, error) {
	if f.templateDocumentCountFn != nil {
		return f.templateDocumentCountFn(ctx, templateID)
	}
	return 0, nil
}
func (f *fakeStore) UpdateTemplate(context.Context, store.Template) error { return nil }
func (f *fakeStore) DeleteTemplate(ctx context.Context, templateID string) error {
	if f.deleteTemplateFn != nil {
		return f.deleteTemplateFn(ctx, templateID)
	}
	return nil
}

func (f *fakeStore) InsertTag(ctx context.Context, tag store.Tag) error {
	if f.insertTagFn != nil {
		return f.insertTagFn(ctx, tag)
	}
	return nil
}
func (f *fakeStore) GetTag(ctx context.Context, tagID string) (store.Tag, error) {
	if f.getTagFn != nil {
		return f.getTagFn(ctx, tagID)
	}
	return store.Tag{}, sql.ErrNoRows
}
func (f *fakeStore) ListTags(ctx context.Context, limit, offset int) ([]store.Tag, int, error) {
	if f.listTagsFn != nil {
		return f.listTagsFn(ctx, limit, offset)
	}
	return nil, 0, nil
}
func (f *fakeStore) TagNameExists(ctx context.Context, name, excludeID string) (bool, error) {
	if f.tagNameExistsFn != nil {
		return f.tagNameExistsFn(ctx, name, excludeID)
	}
	return false, nil
}
func (f *fakeStore) UpdateTag(context.Context, store.Tag) error { return nil }
func (f *fakeStore) DeleteTag(ctx context.Context, tagID string) error {
	if f.deleteTagFn != nil {
		return f.deleteTagFn(ctx, tagID)
	}
	return nil
}
func (f *fakeStore) CountTags(ctx context.Context) (int, error) {
	if f.countTagsFn != nil {
		return f.countTagsFn(ctx)
	}
	return 0, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func newTestService(fs *fakeStore) *Service {
	cfg := config.Config{JWTSecret: "test-secret", AccessTTL: time.Hour}
	return &Service{
		cfg:         cfg,
		store:       fs,
		revocations: fs,
		accounts:    authpw.NewService(fs, false),
	}
}

func testSession(t *testing.T, svc *Service, user store.User) Session {
	t.Helper()
	session, err := svc.issueSession(user)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return session
}

func TestBootstrapSeedsAdminAndTags(t *testing.T) {
	var createdUsers []store.User
	var createdTags []store.Tag
	fs := &fakeStore{
		countUsersFn: func(context.Context) (int, error) { return 0, nil },
		countTagsFn:  func(context.Context) (int, error) { return 0, nil },
		createUserFn: func(_ context.Context, user store.User) error {
			createdUsers = append(createdUsers, user)
			return nil
		},
		insertTagFn: func(_ context.Context, tag store.Tag) error {
			createdTags = append(createdTags, tag)
			return nil
		},
	}
	svc := newTestService(fs)

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(createdUsers) != 1 {
		t.Fatalf("expected 1 seeded user, got %d", len(createdUsers))
	}
	admin := createdUsers[0]
	if admin.Username != "admin" || admin.Role != "admin" {
		t.Fatalf("unexpected seeded admin: %+v", admin)
	}
	if admin.HashedPassword == "" || admin.HashedPassword == "admin123456" {
		t.Fatalf("expected hashed admin password")
	}
	if len(createdTags) != 3 {
		t.Fatalf("expected 3 seeded tags, got %d", len(createdTags))
	}
}

func TestBootstrapSkipsSeedingOnPopulatedDatabase(t *testing.T) {
	fs := &fakeStore{
		countUsersFn: func(context.Context) (int, error) { return 5, nil },
		countTagsFn:  func(context.Context) (int, error) { return 2, nil },
		createUserFn: func(context.Context, store.User) error {
			t.Fatalf("unexpected CreateUser call")
			return nil
		},
		insertTagFn: func(context.Context, store.Tag) error {
			t.Fatalf("unexpected InsertTag call")
			return nil
		},
	}
	if err := newTestService(fs).Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
}

func TestSessionFromTokenRejectsRevokedJTI(t *testing.T) {
	fs := &fakeStore{
		isAccessTokenRevokedFn: func(context.Context, string) (bool, error) { return true, nil },
	}
	svc := newTestService(fs)
	session := testSession(t, svc, store.User{ID: "user-1", Username: "avery", Role: "user"})

	if _, err := svc.SessionFromToken(context.Background(), session.Token); err == nil {
		t.Fatalf("expected revoked token to be rejected")
	}
}

func TestSessionFromTokenRefreshesRole(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, Username: "avery", Role: "admin"}, nil
		},
	}
	svc := newTestService(fs)
	session := testSession(t, svc, store.User{ID: "user-1", Username: "avery", Role: "user"})

	refreshed, err := svc.SessionFromToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if refreshed.Role != "admin" {
		t.Fatalf("expected role admin after refresh, got %q", refreshed.Role)
	}
}

func TestLogoutRevokesJTI(t *testing.T) {
	var revokedJTI string
	fs := &fakeStore{
		revokeAccessTokenFn: func(_ context.Context, jti string, _ time.Time) error {
			revokedJTI = jti
			return nil
		},
	}
	svc := newTestService(fs)
	session := testSession(t, svc, store.User{ID: "user-1", Username: "avery", Role: "user"})

	if err := svc.Logout(context.Background(), session); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if revokedJTI != session.JTI {
		t.Fatalf("expected JTI %q revoked, got %q", session.JTI, revokedJTI)
	}
}

func TestListUsersIsAdminOnly(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.ListUsers(context.Background(), Session{UserID: "user-1", Role: "user"}, 20, 0)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestSearchScopesToAccessibleApps(t *testing.T) {
	var requested string
	fs := &fakeStore{
		listAccessibleAppIDsFn: func(_ context.Context, userID string) ([]string, error) {
			requested = userID
			return []string{"app-1", "app-2"}, nil
		},
	}
	svc := newTestService(fs)

	response, err := svc.Search(context.Background(), Session{UserID: "user-1", Role: "user"}, "quarterly", "app-2", 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if requested != "user-1" {
		t.Fatalf("expected scope lookup for user-1, got %q", requested)
	}
	if len(response.Results) != 0 {
		t.Fatalf("expected empty results without a search backend")
	}
}
