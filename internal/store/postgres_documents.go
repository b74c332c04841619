package store

import (
	"context"
	"fmt"
	"time"
)

const documentColumns = `id, title, content, slug, view_permission, template_id, app_id, creator_id, last_editor_id, publish_time, last_edit_time, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var d Document
	err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Content,
		&d.Slug,
		&d.ViewPermission,
		&d.TemplateID,
		&d.AppID,
		&d.CreatorID,
		&d.LastEditorID,
		&d.PublishTime,
		&d.LastEditTime,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

func (s *PostgresStore) InsertDocument(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, slug, view_permission, template_id, app_id, creator_id, last_editor_id, publish_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, doc.ID, doc.Title, doc.Content, doc.Slug, doc.ViewPermission, doc.TemplateID, doc.AppID, doc.CreatorID, doc.LastEditorID, doc.PublishTime)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, documentID)
	return scanDocument(row)
}

func (s *PostgresStore) GetDocumentBySlug(ctx context.Context, slug string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE slug=$1`, slug)
	return scanDocument(row)
}

func (s *PostgresStore) ListDocumentsByApp(ctx context.Context, appID string, limit, offset int) ([]Document, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE app_id=$1`, appID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	docs, err := s.listDocuments(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE app_id=$1 ORDER BY last_edit_time DESC
		LIMIT $2 OFFSET $3
	`, appID, limit, offset)
	return docs, total, err
}

func (s *PostgresStore) ListDocumentsByInvitee(ctx context.Context, userID string, limit, offset int) ([]Document, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM document_invitees WHERE user_id=$1
	`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count invited documents: %w", err)
	}

	docs, err := s.listDocuments(ctx, `
		SELECT d.id, d.title, d.content, d.slug, d.view_permission, d.template_id, d.app_id,
			d.creator_id, d.last_editor_id, d.publish_time, d.last_edit_time, d.created_at, d.updated_at
		FROM documents d
		JOIN document_invitees di ON di.document_id = d.id
		WHERE di.user_id=$1
		ORDER BY d.last_edit_time DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return docs, total, err
}

func (s *PostgresStore) listDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *PostgresStore) CountDocumentsByCreator(ctx context.Context, appID, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM documents WHERE app_id=$1 AND creator_id=$2
	`, appID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AppDocumentCount(ctx context.Context, appID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE app_id=$1`, appID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count app documents: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DocumentTitleExists(ctx context.Context, appID, title, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM documents WHERE app_id=$1 AND title=$2 AND id <> $3)
	`, appID, title, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document title: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM documents WHERE slug=$1 AND id <> $2)
	`, slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateDocumentSettings(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET title=$2, slug=$3, view_permission=$4, template_id=$5, publish_time=$6, updated_at=NOW()
		WHERE id=$1
	`, doc.ID, doc.Title, doc.Slug, doc.ViewPermission, doc.TemplateID, doc.PublishTime)
	if err != nil {
		return fmt.Errorf("update document settings: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateDocumentContent(ctx context.Context, documentID, content, editorID string, editedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET content=$2, last_editor_id=$3, last_edit_time=$4, updated_at=NOW()
		WHERE id=$1
	`, documentID, content, editorID, editedAt)
	if err != nil {
		return fmt.Errorf("update document content: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_invitees WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("delete document invitees: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_editors WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("delete document editors: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("delete document tags: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddDocumentInvitee(ctx context.Context, documentID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_invitees (document_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (document_id, user_id) DO NOTHING
	`, documentID, userID)
	if err != nil {
		return fmt.Errorf("add document invitee: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsDocumentInvitee(ctx context.Context, documentID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM document_invitees WHERE document_id=$1 AND user_id=$2)
	`, documentID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document invitee: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) AddDocumentEditor(ctx context.Context, documentID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_editors (document_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (document_id, user_id) DO UPDATE SET updated_at=NOW()
	`, documentID, userID)
	if err != nil {
		return fmt.Errorf("add document editor: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDocumentEditors(ctx context.Context, documentID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.nickname, u.email, u.hashed_password, u.avatar, u.role,
			u.apps_count, u.documents_count, u.created_at, u.updated_at
		FROM users u
		JOIN document_editors de ON de.user_id = u.id
		WHERE de.document_id=$1
		ORDER BY de.updated_at DESC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document editors: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan editor: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate editors: %w", err)
	}
	return users, nil
}
