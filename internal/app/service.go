package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"pressly/internal/assets"
	"pressly/internal/auth"
	"pressly/internal/authpw"
	"pressly/internal/config"
	"pressly/internal/search"
	"pressly/internal/store"
	"pressly/internal/util"
)

type Session struct {
	Token     string
	UserID    string
	Username  string
	Nickname  string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

func (s Session) isAdmin() bool {
	return s.Role == "admin"
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByID(context.Context, string) (store.User, error)
	GetUserByUsername(context.Context, string) (store.User, error)
	ListUsers(context.Context, int, int) ([]store.User, int, error)
	UpdateUserProfile(context.Context, string, string, string) error
	CountUsers(context.Context) (int, error)

	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	InsertApp(context.Context, store.App) error
	GetApp(context.Context, string) (store.App, error)
	GetAppByName(context.Context, string) (store.App, error)
	ListAppsByCreator(context.Context, string, int, int) ([]store.App, int, error)
	ListAppsByParticipant(context.Context, string, int, int) ([]store.App, int, error)
	CountAppsByCreator(context.Context, string) (int, error)
	UpdateApp(context.Context, store.App) error
	DeleteApp(context.Context, string) error
	AddAppParticipant(context.Context, string, string) error
	RemoveAppParticipant(context.Context, string, string) error
	IsAppParticipant(context.Context, string, string) (bool, error)
	ListAppParticipants(context.Context, string) ([]store.User, error)
	ListAccessibleAppIDs(context.Context, string) ([]string, error)
	AppDocumentCount(context.Context, string) (int, error)

	InsertDocument(context.Context, store.Document) error
	GetDocument(context.Context, string) (store.Document, error)
	GetDocumentBySlug(context.Context, string) (store.Document, error)
	ListDocumentsByApp(context.Context, string, int, int) ([]store.Document, int, error)
	ListDocumentsByInvitee(context.Context, string, int, int) ([]store.Document, int, error)
	CountDocumentsByCreator(context.Context, string, string) (int, error)
	DocumentTitleExists(context.Context, string, string, string) (bool, error)
	SlugExists(context.Context, string, string) (bool, error)
	UpdateDocumentSettings(context.Context, store.Document) error
	UpdateDocumentContent(context.Context, string, string, string, time.Time) error
	DeleteDocument(context.Context, string) error
	AddDocumentInvitee(context.Context, string, string) error
	IsDocumentInvitee(context.Context, string, string) (bool, error)
	AddDocumentEditor(context.Context, string, string) error
	ListDocumentEditors(context.Context, string) ([]store.User, error)

	InsertTemplate(context.Context, store.Template) error
	GetTemplate(context.Context, string) (store.Template, error)
	ListTemplates(context.Context, int, int) ([]store.Template, int, error)
	TemplateNameExists(context.Context, string, string) (bool, error)
	TemplateDocumentCount(context.Context, string) (int, error)
	UpdateTemplate(context.Context, store.Template) error
	DeleteTemplate(context.Context, string) error

	InsertTag(context.Context, store.Tag) error
	GetTag(context.Context, string) (store.Tag, error)
	ListTags(context.Context, int, int) ([]store.Tag, int, error)
	TagNameExists(context.Context, string, string) (bool, error)
	UpdateTag(context.Context, store.Tag) error
	DeleteTag(context.Context, string) error
	CountTags(context.Context) (int, error)

	Ping(ctx context.Context) error
}

// revocationStore is the logout revocation list. Redis when configured,
// the revoked_tokens table otherwise.
type revocationStore interface {
	RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	cfg         config.Config
	store       dataStore
	revocations revocationStore
	accounts    *authpw.Service
	search      *search.Service
	uploads     *assets.Uploader
}

func New(cfg config.Config, dataStore *store.PostgresStore, searchService *search.Service, uploader *assets.Uploader) *Service {
	return &Service{
		cfg:         cfg,
		store:       dataStore,
		revocations: dataStore,
		accounts:    authpw.NewService(dataStore, cfg.DisableRegistration),
		search:      searchService,
		uploads:     uploader,
	}
}

func NewWithRevocationStore(cfg config.Config, dataStore *store.PostgresStore, revocations revocationStore, searchService *search.Service, uploader *assets.Uploader) *Service {
	service := New(cfg, dataStore, searchService, uploader)
	service.revocations = revocations
	return service
}

var defaultTagSeeds = []store.Tag{
	{Name: "announcement", Color: "#f50", Category: "document"},
	{Name: "guide", Color: "#2db7f5", Category: "document"},
	{Name: "changelog", Color: "#87d068", Category: "document"},
}

// Bootstrap seeds the first admin account and the default tag set on an
// empty database, then warms the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	userCount, err := s.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	if userCount == 0 {
		hash, err := authpw.HashPassword("admin123456")
		if err != nil {
			return err
		}
		admin := store.User{
			ID:             util.NewID(),
			Username:       "admin",
			Nickname:       "Administrator",
			HashedPassword: hash,
			Role:           "admin",
			AppsCount:      100,
			DocumentsCount: 1000,
		}
		if err := s.store.CreateUser(ctx, admin); err != nil {
			return err
		}
		log.Printf("bootstrap: seeded admin user (change the default password)")
	}

	tagCount, err := s.store.CountTags(ctx)
	if err != nil {
		return err
	}
	if tagCount == 0 {
		for _, seed := range defaultTagSeeds {
			seed.ID = util.NewID()
			seed.Remark = "seeded"
			if err := s.store.InsertTag(ctx, seed); err != nil {
				return err
			}
		}
	}

	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Info() map[string]any {
	return map[string]any{
		"publicUrl":           s.cfg.PublicURL,
		"disableRegistration": s.cfg.DisableRegistration,
	}
}

func (s *Service) Register(ctx context.Context, req authpw.RegisterRequest) (Session, error) {
	user, err := s.accounts.Register(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

func (s *Service) Login(ctx context.Context, req authpw.LoginRequest) (Session, error) {
	user, err := s.accounts.Login(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user store.User) (Session, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	jti := util.NewID()

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		JTI:       jti,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		Role:      user.Role,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// SessionFromToken validates a bearer token, checks the revocation list,
// and re-fetches the user row so role and quota changes apply immediately.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.revocations.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, fmt.Errorf("load session user: %w", err)
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session) error {
	if session.JTI == "" {
		return nil
	}
	return s.revocations.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
}

func (s *Service) Me(ctx context.Context, session Session) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return userPayload(user), nil
}

func (s *Service) UpdateMe(ctx context.Context, session Session, nickname, avatar *string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if nickname != nil {
		user.Nickname = *nickname
	}
	if avatar != nil {
		user.Avatar = *avatar
	}
	if err := s.store.UpdateUserProfile(ctx, user.ID, user.Nickname, user.Avatar); err != nil {
		return nil, err
	}
	return userPayload(user), nil
}

func (s *Service) ListUsers(ctx context.Context, session Session, limit, offset int) (map[string]any, error) {
	if !session.isAdmin() {
		return nil, errForbidden("Admin only")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	users, total, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]any, 0, len(users))
	for _, user := range users {
		list = append(list, userPayload(user))
	}
	return map[string]any{"list": list, "total": total}, nil
}

func userPayload(u store.User) map[string]any {
	return map[string]any{
		"id":             u.ID,
		"username":       u.Username,
		"nickname":       u.Nickname,
		"email":          u.Email,
		"avatar":         u.Avatar,
		"role":           u.Role,
		"appsCount":      u.AppsCount,
		"documentsCount": u.DocumentsCount,
		"createdAt":      u.CreatedAt,
	}
}

func appPayload(a store.App) map[string]any {
	return map[string]any{
		"id":          a.ID,
		"name":        a.Name,
		"title":       a.Title,
		"description": a.Description,
		"logo":        a.Logo,
		"creatorId":   a.CreatorID,
		"createdAt":   a.CreatedAt,
		"updatedAt":   a.UpdatedAt,
	}
}

func documentPayload(d store.Document) map[string]any {
	return map[string]any{
		"id":             d.ID,
		"title":          d.Title,
		"content":        d.Content,
		"slug":           d.Slug,
		"viewPermission": d.ViewPermission,
		"templateId":     d.TemplateID,
		"appId":          d.AppID,
		"creatorId":      d.CreatorID,
		"lastEditorId":   d.LastEditorID,
		"publishTime":    d.PublishTime,
		"lastEditTime":   d.LastEditTime,
		"createdAt":      d.CreatedAt,
	}
}

// documentSummaryPayload omits content for list endpoints.
func documentSummaryPayload(d store.Document) map[string]any {
	payload := documentPayload(d)
	delete(payload, "content")
	return payload
}

func templatePayload(t store.Template) map[string]any {
	return map[string]any{
		"id":           t.ID,
		"name":         t.Name,
		"previewImage": t.PreviewImage,
		"htmlContent":  t.HTMLContent,
		"createdAt":    t.CreatedAt,
		"updatedAt":    t.UpdatedAt,
	}
}

func tagPayload(t store.Tag) map[string]any {
	return map[string]any{
		"id":        t.ID,
		"name":      t.Name,
		"color":     t.Color,
		"category":  t.Category,
		"remark":    t.Remark,
		"createdAt": t.CreatedAt,
	}
}
