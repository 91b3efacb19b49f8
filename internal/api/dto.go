package api

import "github.com/whitfield/tome/internal/vaultservice"

// CreatePageRequest is the request body for creating a page.
type CreatePageRequest struct {
	ParentDir    string `json:"parent_dir" example:"lore"`
	Name         string `json:"name" example:"Dragons" validate:"required"`
	TemplatePath string `json:"template_path,omitempty" example:"_templates/person.md"`
}

// CreateDirectoryRequest is the request body for creating a directory.
type CreateDirectoryRequest struct {
	ParentDir string `json:"parent_dir" example:"lore"`
	Name      string `json:"name" example:"bestiary" validate:"required"`
}

// SavePageRequest is the request body for saving page content.
type SavePageRequest struct {
	Content string `json:"content" example:"# Dragons\nText." validate:"required"`
}

// RenameRequest is the request body for renaming an asset in place.
type RenameRequest struct {
	Path    string `json:"path" example:"lore/Dragons.md" validate:"required"`
	NewName string `json:"new_name" example:"Wyrms" validate:"required"`
}

// MoveRequest is the request body for moving an asset.
type MoveRequest struct {
	Path      string `json:"path" example:"lore/Dragons.md" validate:"required"`
	NewParent string `json:"new_parent" example:"archive"`
}

// DuplicateRequest is the request body for duplicating a page.
type DuplicateRequest struct {
	Path string `json:"path" example:"lore/Dragons.md" validate:"required"`
}

// RenderRequest is the request body for the render endpoints.
type RenderRequest struct {
	Content string `json:"content" example:"Visit [[Town]]" validate:"required"`
}

// PathResponse returns the vault-relative path an operation produced.
type PathResponse struct {
	Path string `json:"path" example:"lore/Dragons.md" validate:"required"`
}

// PageView is the full page response type (aliased from the domain layer).
type PageView = vaultservice.PageView
