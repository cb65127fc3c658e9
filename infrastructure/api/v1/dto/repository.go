// Package dto holds the request and response bodies of the v1 API.
package dto

// RepositoryCreateRequest is the body of POST /repositories.
type RepositoryCreateRequest struct {
	URL      string `json:"url" yaml:"url"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// CompressRequest is the optional body of POST /repositories/{name}/compress.
type CompressRequest struct {
	Subdirectory string `json:"subdirectory,omitempty" yaml:"subdirectory,omitempty"`
}

// RepositoryResponse describes one repository. The URL never carries a password.
type RepositoryResponse struct {
	ProjectName string `json:"project_name" yaml:"project_name"`
	URL         string `json:"url" yaml:"url"`
	URLType     string `json:"url_type" yaml:"url_type"`
	Location    string `json:"location" yaml:"location"`
	Cloned      bool   `json:"cloned" yaml:"cloned"`
	Tracked     bool   `json:"tracked" yaml:"tracked"`
	ConfigPath  string `json:"config_path" yaml:"config_path"`
	ArchivePath string `json:"archive_path" yaml:"archive_path"`
}

// RepositoryListResponse lists repositories.
type RepositoryListResponse struct {
	Data []RepositoryResponse `json:"data" yaml:"data"`
}

// DirectoryListResponse lists the directories under a path.
type DirectoryListResponse struct {
	Path        string   `json:"path" yaml:"path"`
	Directories []string `json:"directories" yaml:"directories"`
}

// AcceptedResponse is returned when a lifecycle operation has started.
type AcceptedResponse struct {
	ProjectName   string `json:"project_name" yaml:"project_name"`
	OperationID   string `json:"operation_id" yaml:"operation_id"`
	OperationCode int64  `json:"operation_code" yaml:"operation_code"`
}
