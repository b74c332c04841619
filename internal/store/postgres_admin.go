package store

import (
	"context"
	"fmt"
)

const templateColumns = `id, name, preview_image, html_content, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.PreviewImage, &t.HTMLContent, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *PostgresStore) InsertTemplate(ctx context.Context, tpl Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, preview_image, html_content)
		VALUES ($1, $2, $3, $4)
	`, tpl.ID, tpl.Name, tpl.PreviewImage, tpl.HTMLContent)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTemplate(ctx context.Context, templateID string) (Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id=$1`, templateID)
	return scanTemplate(row)
}

func (s *PostgresStore) ListTemplates(ctx context.Context, limit, offset int) ([]Template, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM templates`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+` FROM templates ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]Template, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, total, nil
}

func (s *PostgresStore) TemplateNameExists(ctx context.Context, name, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM templates WHERE name=$1 AND id <> $2)
	`, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check template name: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) TemplateDocumentCount(ctx context.Context, templateID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE template_id=$1`, templateID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count template documents: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateTemplate(ctx context.Context, tpl Template) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE templates
		SET name=$2, preview_image=$3, html_content=$4, updated_at=NOW()
		WHERE id=$1
	`, tpl.ID, tpl.Name, tpl.PreviewImage, tpl.HTMLContent)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTemplate(ctx context.Context, templateID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id=$1`, templateID); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

const tagColumns = `id, name, color, category, remark, created_at, updated_at`

func scanTag(row interface{ Scan(...any) error }) (Tag, error) {
	var t Tag
	err := row.Scan(&t.ID, &t.Name, &t.Color, &t.Category, &t.Remark, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *PostgresStore) InsertTag(ctx context.Context, tag Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, color, category, remark)
		VALUES ($1, $2, $3, $4, $5)
	`, tag.ID, tag.Name, tag.Color, tag.Category, tag.Remark)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTag(ctx context.Context, tagID string) (Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagColumns+` FROM tags WHERE id=$1`, tagID)
	return scanTag(row)
}

func (s *PostgresStore) ListTags(ctx context.Context, limit, offset int) ([]Tag, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM tags`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tags: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, total, nil
}

func (s *PostgresStore) TagNameExists(ctx context.Context, name, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM tags WHERE name=$1 AND id <> $2)
	`, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tag name: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateTag(ctx context.Context, tag Tag) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tags
		SET name=$2, color=$3, category=$4, remark=$5, updated_at=NOW()
		WHERE id=$1
	`, tag.ID, tag.Name, tag.Color, tag.Category, tag.Remark)
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTag(ctx context.Context, tagID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_tags WHERE tag_id=$1`, tagID); err != nil {
		return fmt.Errorf("delete tag links: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, tagID); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountTags(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM tags`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return count, nil
}
