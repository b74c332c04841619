package store

import (
	"context"
	"fmt"
)

const appColumns = `id, name, title, description, logo, creator_id, created_at, updated_at`

func scanApp(row interface{ Scan(...any) error }) (App, error) {
	var a App
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Title,
		&a.Description,
		&a.Logo,
		&a.CreatorID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func (s *PostgresStore) InsertApp(ctx context.Context, app App) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apps (id, name, title, description, logo, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, app.ID, app.Name, app.Title, app.Description, app.Logo, app.CreatorID)
	if err != nil {
		return fmt.Errorf("insert app: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetApp(ctx context.Context, appID string) (App, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+appColumns+` FROM apps WHERE id=$1`, appID)
	return scanApp(row)
}

func (s *PostgresStore) GetAppByName(ctx context.Context, name string) (App, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+appColumns+` FROM apps WHERE name=$1`, name)
	return scanApp(row)
}

func (s *PostgresStore) ListAppsByCreator(ctx context.Context, userID string, limit, offset int) ([]App, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM apps WHERE creator_id=$1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count apps: %w", err)
	}

	apps, err := s.listApps(ctx, `
		SELECT `+appColumns+` FROM apps WHERE creator_id=$1 ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return apps, total, err
}

func (s *PostgresStore) ListAppsByParticipant(ctx context.Context, userID string, limit, offset int) ([]App, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM app_participants WHERE user_id=$1
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count participated apps: %w", err)
	}

	apps, err := s.listApps(ctx, `
		SELECT a.id, a.name, a.title, a.description, a.logo, a.creator_id, a.created_at, a.updated_at
		FROM apps a
		JOIN app_participants ap ON ap.app_id = a.id
		WHERE ap.user_id=$1
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return apps, total, err
}

func (s *PostgresStore) listApps(ctx context.Context, query string, args ...any) ([]App, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	apps := make([]App, 0)
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan app: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate apps: %w", err)
	}
	return apps, nil
}

func (s *PostgresStore) CountAppsByCreator(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM apps WHERE creator_id=$1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count apps: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateApp(ctx context.Context, app App) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE apps
		SET name=$2, title=$3, description=$4, logo=$5, updated_at=NOW()
		WHERE id=$1
	`, app.ID, app.Name, app.Title, app.Description, app.Logo)
	if err != nil {
		return fmt.Errorf("update app: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteApp(ctx context.Context, appID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_participants WHERE app_id=$1`, appID); err != nil {
		return fmt.Errorf("delete app participants: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE id=$1`, appID); err != nil {
		return fmt.Errorf("delete app: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddAppParticipant(ctx context.Context, appID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_participants (app_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (app_id, user_id) DO NOTHING
	`, appID, userID)
	if err != nil {
		return fmt.Errorf("add app participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveAppParticipant(ctx context.Context, appID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM app_participants WHERE app_id=$1 AND user_id=$2
	`, appID, userID)
	if err != nil {
		return fmt.Errorf("remove app participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAppParticipant(ctx context.Context, appID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM app_participants WHERE app_id=$1 AND user_id=$2)
	`, appID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check app participant: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListAppParticipants(ctx context.Context, appID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.nickname, u.email, u.hashed_password, u.avatar, u.role,
			u.apps_count, u.documents_count, u.created_at, u.updated_at
		FROM users u
		JOIN app_participants ap ON ap.user_id = u.id
		WHERE ap.app_id=$1
		ORDER BY ap.created_at
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("list app participants: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return users, nil
}

// ListAccessibleAppIDs returns the IDs of every app the user created,
// participates in, or holds a document invitation inside. Used to scope
// search results.
func (s *PostgresStore) ListAccessibleAppIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM apps WHERE creator_id=$1
		UNION
		SELECT app_id FROM app_participants WHERE user_id=$1
		UNION
		SELECT d.app_id
		FROM documents d
		JOIN document_invitees di ON di.document_id = d.id
		WHERE di.user_id=$1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accessible apps: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan app id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate app ids: %w", err)
	}
	return ids, nil
}
