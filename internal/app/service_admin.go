package app

import (
	"context"
	"strings"

	"pressly/internal/store"
	"pressly/internal/util"
)

type TemplateInput struct {
	Name         *string `json:"name"`
	PreviewImage *string `json:"previewImage"`
	HTMLContent  *string `json:"htmlContent"`
}

type TagInput struct {
	Name     *string `json:"name"`
	Color    *string `json:"color"`
	Category *string `json:"category"`
	Remark   *string `json:"remark"`
}

func (s *Service) ListTemplates(ctx context.Context, limit, offset int) (map[string]any, error) {
	templates, total, err := s.store.ListTemplates(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]any, 0, len(templates))
	for _, tpl := range templates {
		list = append(list, templatePayload(tpl))
	}
	return map[string]any{"list": list, "total": total}, nil
}

func (s *Service) CreateTemplate(ctx context.Context, session Session, input TemplateInput) (map[string]any, error) {
	if !session.isAdmin() {
		return nil, errForbidden("Admin only")
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, errValidation("name is required")
	}
	if input.HTMLContent == nil || *input.HTMLContent == "" {
		return nil, errValidation("htmlContent is required")
	}
	name := strings.TrimSpace(*input.Name)

	taken, err := s.store.TemplateNameExists(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errConflict("Template name already in use")
	}

	tpl := store.Template{
		ID:          util.NewID(),
		Name:        name,
		HTMLContent: *input.HTMLContent,
	}
	if input.PreviewImage != nil {
		tpl.PreviewImage = *input.PreviewImage
	}
	if err := s.store.InsertTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return templatePayload(tpl), nil
}

func (s *Service) UpdateTemplate(ctx context.Context, session Session, templateID string, input TemplateInput) (map[string]any, error) {
	if !session.isAdmin() {
		return nil, errForbidden("Admin only")
	}
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errValidation("name cannot be empty")
		}
		if name != tpl.Name {
			taken, err := s.store.TemplateNameExists(ctx, name, tpl.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, errConflict("Template name already in use")
			}
			tpl.Name = name
		}
	}
	if input.PreviewImage != nil {
		tpl.PreviewImage = *input.PreviewImage
	}
	if input.HTMLContent != nil {
		if *input.HTMLContent == "" {
			return nil, errValidation("htmlContent cannot be empty")
		}
		tpl.HTMLContent = *input.HTMLContent
	}

	if err := s.store.UpdateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return templatePayload(tpl), nil
}

func (s *Service) DeleteTemplate(ctx context.Context, session Session, templateID string) error {
	if !session.isAdmin() {
		return errForbidden("Admin only")
	}
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	count, err := s.store.TemplateDocumentCount(ctx, tpl.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return errConflict("Template is still referenced by documents")
	}
	return s.store.DeleteTemplate(ctx, tpl.ID)
}

func (s *Service) ListTags(ctx context.Context, limit, offset int) (map[string]any, error) {
	tags, total, err := s.store.ListTags(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]any, 0, len(tags))
	for _, tag := range tags {
		list = append(list, tagPayload(tag))
	}
	return map[string]any{"list": list, "total": total}, nil
}

func (s *Service) CreateTag(ctx context.Context, session Session, input TagInput) (map[string]any, error) {
	if !session.isAdmin() {
		return nil, errForbidden("Admin only")
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, errValidation("name is required")
	}
	name := strings.TrimSpace(*input.Name)

	taken, err := s.store.TagNameExists(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errConflict("Tag name already in use")
	}

	tag := store.Tag{
		ID:       util.NewID(),
		Name:     name,
		Color:    "#000000",
		Category: "document",
	}
	if input.Color != nil && *input.Color != "" {
		tag.Color = *input.Color
	}
	if input.Category != nil && *input.Category != "" {
		if *input.Category != "document" {
			return nil, errValidation("category must be document")
		}
		tag.Category = *input.Category
	}
	if input.Remark != nil {
		tag.Remark = *input.Remark
	}
	if err := s.store.InsertTag(ctx, tag); err != nil {
		return nil, err
	}
	return tagPayload(tag), nil
}

func (s *Service) UpdateTag(ctx context.Context, session Session, tagID string, input TagInput) (map[string]any, error) {
	if !session.isAdmin() {
		return nil, errForbidden("Admin only")
	}
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, errValidation("name cannot be empty")
		}
		if name != tag.Name {
			taken, err := s.store.TagNameExists(ctx, name, tag.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, errConflict("Tag name already in use")
			}
			tag.Name = name
		}
	}
	if input.Color != nil && *input.Color != "" {
		tag.Color = *input.Color
	}
	if input.Category != nil && *input.Category != "" {
		if *input.Category != "document" {
			return nil, errValidation("category must be document")
		}
		tag.Category = *input.Category
	}
	if input.Remark != nil {
		tag.Remark = *input.Remark
	}

	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return nil, err
	}
	return tagPayload(tag), nil
}

func (s *Service) DeleteTag(ctx context.Context, session Session, tagID string) error {
	if !session.isAdmin() {
		return errForbidden("Admin only")
	}
	if _, err := s.store.GetTag(ctx, tagID); err != nil {
		return err
	}
	return s.store.DeleteTag(ctx, tagID)
}
