package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pressly/internal/store"
	"pressly/internal/util"
)

type CreateAppInput struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
}

type UpdateAppInput struct {
	Name        *string `json:"name"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Logo        *string `json:"logo"`
}

func (s *Service) ListApps(ctx context.Context, session Session, participated bool, limit, offset int) (map[string]any, error) {
	var (
		apps  []store.App
		total int
		err   error
	)
	if participated {
		apps, total, err = s.store.ListAppsByParticipant(ctx, session.UserID, limit, offset)
	} else {
		apps, total, err = s.store.ListAppsByCreator(ctx, session.UserID, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	list := make([]map[string]any, 0, len(apps))
	for _, app := range apps {
		list = append(list, appPayload(app))
	}
	return map[string]any{"list": list, "total": total}, nil
}

func (s *Service) CreateApp(ctx context.Context, session Session, input CreateAppInput) (map[string]any, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errValidation("name is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errValidation("title is required")
	}

	if _, err := s.store.GetAppByName(ctx, name); err == nil {
		return nil, errConflict("App name already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check app name: %w", err)
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	owned, err := s.store.CountAppsByCreator(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if owned >= user.AppsCount {
		return nil, errQuotaExceeded("App quota reached")
	}

	app := store.App{
		ID:          util.NewID(),
		Name:        name,
		Title:       title,
		Description: input.Description,
		Logo:        input.Logo,
		CreatorID:   session.UserID,
	}
	if err := s.store.InsertApp(ctx, app); err != nil {
		return nil, err
	}
	return appPayload(app), nil
}

func (s *Service) GetApp(ctx context.Context, session Session, appID string) (map[string]any, error) {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAppAccess(ctx, session, app); err != nil {
		return nil, err
	}

	participants, err := s.store.ListAppParticipants(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	users := make([]map[string]any, 0, len(participants))
	for _, user := range participants {
		users = append(users, userPayload(user))
	}

	payload := appPayload(app)
	payload["participants"] = users
	return payload, nil
}

func (s *Service) UpdateApp(ctx context.Context, session Session, appID string, input UpdateAppInput) (map[string]any, error) {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAppOwner(session, app); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errValidation("name cannot be empty")
		}
		if name != app.Name {
			if existing, err := s.store.GetAppByName(ctx, name); err == nil && existing.ID != app.ID {
				return nil, errConflict("App name already in use")
			} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("check app name: %w", err)
			}
			app.Name = name
		}
	}
	if input.Title != nil {
		app.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		app.Description = *input.Description
	}
	if input.Logo != nil {
		app.Logo = *input.Logo
	}

	if err := s.store.UpdateApp(ctx, app); err != nil {
		return nil, err
	}
	return appPayload(app), nil
}

func (s *Service) DeleteApp(ctx context.Context, session Session, appID string) error {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return err
	}
	if err := s.requireAppOwner(session, app); err != nil {
		return err
	}

	count, err := s.store.AppDocumentCount(ctx, app.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return errConflict("App still contains documents")
	}
	return s.store.DeleteApp(ctx, app.ID)
}

// InviteToApp adds users as app participants. Already-present users and
// the owner are skipped rather than rejected.
func (s *Service) InviteToApp(ctx context.Context, session Session, appID string, userIDs []string) error {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return err
	}
	if err := s.requireAppOwner(session, app); err != nil {
		return err
	}

	for _, userID := range userIDs {
		if userID == app.CreatorID {
			continue
		}
		if _, err := s.store.GetUserByID(ctx, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errValidation("unknown user: " + userID)
			}
			return err
		}
		if err := s.store.AddAppParticipant(ctx, app.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) RemoveAppUsers(ctx context.Context, session Session, appID string, userIDs []string) error {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return err
	}
	if err := s.requireAppOwner(session, app); err != nil {
		return err
	}

	for _, userID := range userIDs {
		if err := s.store.RemoveAppParticipant(ctx, app.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) requireAppOwner(session Session, app store.App) error {
	if session.isAdmin() || app.CreatorID == session.UserID {
		return nil
	}
	return errForbidden("Only the app owner may do this")
}

// requireAppAccess allows the owner, participants, and admins.
func (s *Service) requireAppAccess(ctx context.Context, session Session, app store.App) error {
	if session.isAdmin() || app.CreatorID == session.UserID {
		return nil
	}
	participant, err := s.store.IsAppParticipant(ctx, app.ID, session.UserID)
	if err != nil {
		return err
	}
	if !participant {
		return errForbidden("Not a member of this app")
	}
	return nil
}
