// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultFolders are created in every new project workspace, in this order.
var DefaultFolders = []string{"Literature Review", "Proposal", "Experiment", "Manuscript"}

// Project is a named research workspace on disk.
type Project struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	WorkspacePath string    `json:"workspace_path" yaml:"workspace_path"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// Folder is a directory inside a project workspace. ParentID is empty for
// top-level folders. Path is absolute.
type Folder struct {
	ID        string    `json:"id" yaml:"id"`
	ProjectID string    `json:"project_id" yaml:"project_id"`
	ParentID  string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Name      string    `json:"name" yaml:"name"`
	Path      string    `json:"path" yaml:"path"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
