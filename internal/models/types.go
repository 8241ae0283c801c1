// Package models defines the API data types and database models.
package models

import "time"

// Message roles accepted on the chat completion surface.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat conversation.
type Message struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the inbound OpenAI-style request body.
type ChatCompletionRequest struct {
	Model       string    `json:"model" binding:"required"`
	Messages    []Message `json:"messages" binding:"required,min=1,dive"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// BackendRequest is the request body sent to the upstream service.
// EnableThinking is a backend-specific extension toggled by server
// configuration, never by the caller.
type BackendRequest struct {
	Model          string    `json:"model"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	MaxTokens      int       `json:"max_tokens"`
	Stream         bool      `json:"stream"`
	EnableThinking *bool     `json:"enable_thinking,omitempty"`
}

// ModelInfo is one entry of the caller-facing model list.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the caller-facing /v1/models response.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// RequestLog corresponds to the request_logs table.
type RequestLog struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp    time.Time `gorm:"not null;index:idx_request_logs_timestamp" json:"timestamp"`
	Model        string    `gorm:"type:varchar(255);index" json:"model"`
	MappedModel  string    `gorm:"type:varchar(255)" json:"mapped_model"`
	IsSuccess    bool      `gorm:"not null" json:"is_success"`
	StatusCode   int       `gorm:"not null" json:"status_code"`
	Duration     int64     `gorm:"not null" json:"duration_ms"`
	IsStream     bool      `gorm:"not null" json:"is_stream"`
	LoreEntries  int       `gorm:"not null;default:0" json:"lore_entries"`
	SourceIP     string    `gorm:"type:varchar(64)" json:"source_ip"`
	UserAgent    string    `gorm:"type:varchar(512)" json:"user_agent"`
	ErrorMessage string    `gorm:"type:text" json:"error_message"`
}

// TableName sets the table name for RequestLog.
func (RequestLog) TableName() string {
	return "request_logs"
}
