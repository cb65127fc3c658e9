package dto

// StepResponse is one step of an operation.
type StepResponse struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Status      string `json:"status" yaml:"status"`
	StartTime   string `json:"start_time" yaml:"start_time"`
	StopTime    string `json:"stop_time,omitempty" yaml:"stop_time,omitempty"`
	Finished    bool   `json:"finished" yaml:"finished"`
}

// OperationResponse describes one operation log.
type OperationResponse struct {
	ID          string         `json:"id,omitempty" yaml:"id,omitempty"`
	Code        int64          `json:"code" yaml:"code"`
	Operation   string         `json:"operation" yaml:"operation"`
	Message     string         `json:"message" yaml:"message"`
	Running     bool           `json:"running" yaml:"running"`
	StartTime   string         `json:"start_time" yaml:"start_time"`
	StopTime    string         `json:"stop_time,omitempty" yaml:"stop_time,omitempty"`
	Total       int            `json:"total" yaml:"total"`
	Finished    int            `json:"finished" yaml:"finished"`
	NotFinished int            `json:"not_finished" yaml:"not_finished"`
	Steps       []StepResponse `json:"steps" yaml:"steps"`
}

// OperationListResponse lists operations.
type OperationListResponse struct {
	Data []OperationResponse `json:"data" yaml:"data"`
}

// OperationEvent is the data of one server-sent event.
type OperationEvent struct {
	Index     int                `json:"index" yaml:"index"`
	Operation *OperationResponse `json:"operation,omitempty" yaml:"operation,omitempty"`
}
