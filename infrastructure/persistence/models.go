// Package persistence stores repository configs and operation logs as TOML
// files, and repository passwords in the OS keyring.
package persistence

// ConfigModel is the TOML layout of a repository config file.
type ConfigModel struct {
	URL         string `toml:"url"`
	OriginalURL string `toml:"originalURL"`
	Username    string `toml:"username,omitempty"`
	Password    string `toml:"password,omitempty"`
	Cloned      bool   `toml:"cloned"`
	ProjectName string `toml:"projectName"`
	URLType     string `toml:"urlType"`
}

// LogModel is the TOML layout of a finished operation log.
type LogModel struct {
	ID                 string      `toml:"id,omitempty"`
	OperationCode      int64       `toml:"operationCode"`
	Operation          string      `toml:"operation"`
	Message            string      `toml:"message"`
	Running            bool        `toml:"running"`
	StartTime          string      `toml:"startTime"`
	StopTime           string      `toml:"stopTime"`
	NotFinishOperation *int        `toml:"notFinishOperation"`
	FinishOperation    *int        `toml:"finishOperation"`
	TotalOperation     *int        `toml:"totalOperation"`
	Log                []StepModel `toml:"log"`
}

// StepModel is the TOML layout of one step.
type StepModel struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Status      string `toml:"status"`
	StartTime   string `toml:"startTime"`
	StopTime    string `toml:"stopTime"`
	Finish      bool   `toml:"finish"`
}
