package store

import "time"

type User struct {
	ID             string
	Username       string
	Nickname       string
	Email          string
	HashedPassword string
	Avatar         string
	Role           string
	AppsCount      int
	DocumentsCount int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type App struct {
	ID          string
	Name        string
	Title       string
	Description string
	Logo        string
	CreatorID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Document struct {
	ID             string
	Title          string
	Content        string
	Slug           string
	ViewPermission string
	TemplateID     *string
	AppID          string
	CreatorID      string
	LastEditorID   *string
	PublishTime    *time.Time
	LastEditTime   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Template struct {
	ID           string
	Name         string
	PreviewImage string
	HTMLContent  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Tag struct {
	ID        string
	Name      string
	Color     string
	Category  string
	Remark    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
