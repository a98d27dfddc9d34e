package models

import "time"

type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role      ChatRole  `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type ChatSession struct {
	ID        string        `bson:"_id" json:"id"`
	StudentID string        `bson:"studentId" json:"studentId"`
	Subject   string        `bson:"subject,omitempty" json:"subject,omitempty"`
	Messages  []ChatMessage `bson:"messages" json:"messages"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Subject   string `json:"subject" validate:"max=100"`
	Message   string `json:"message" validate:"required,max=4000"`
}

type ChatReply struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
	Fallback  bool   `json:"fallback"`
}

type PracticeRequest struct {
	Subject string `json:"subject" validate:"required,max=100"`
	Topic   string `json:"topic" validate:"max=200"`
	Count   int    `json:"count" validate:"min=0,max=10"`
}

type PracticeQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

type PracticeSet struct {
	Subject   string             `json:"subject"`
	Topic     string             `json:"topic,omitempty"`
	Questions []PracticeQuestion `json:"questions"`
	Fallback  bool               `json:"fallback"`
}
