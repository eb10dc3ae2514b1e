// ABOUTME: Store interface and data types for glotdesk persistence
// ABOUTME: Defines User, Client, Chatbot, ChatSession, ChatMessage and the Store interface

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// newID returns a fresh UUID string for entity IDs.
func newID() string {
	return uuid.New().String()
}

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user or client with an email
// that is already registered
var ErrDuplicateEmail = errors.New("email already in use")

// ErrDuplicateUsername is returned when creating a user with a username that
// is already taken
var ErrDuplicateUsername = errors.New("username already in use")

// User roles
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleAgent      = "agent"
)

// User statuses. The "Not Active" spelling matches the stored value.
const (
	StatusActive    = "Active"
	StatusNotActive = "Not Active"
	StatusBusy      = "Busy"
)

// ValidStatus reports whether s is one of the known user statuses.
func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusNotActive || s == StatusBusy
}

// Sender identifies which side of a conversation wrote a message.
type Sender string

const (
	SenderClient Sender = "client"
	SenderAgent  Sender = "agent"
)

// User represents a staff member: superadmin, admin, or agent.
// Agents carry CreatedBy (the owning admin) and ClientsHandled, a
// denormalized counter incremented on assignment. The counter is a cache of
// the true assigned-client count and can drift; it is never reconciled
// automatically.
type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	Username       string
	PasswordHash   string
	Role           string
	Verified       bool
	Status         string
	Language       string
	ClientsHandled int
	CreatedBy      string // owning admin ID for agents, superadmin ID for admins
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Client represents an end user who signed up through a chatbot widget.
// AssignedAgent is set exactly once under normal flow and repointed only
// when the agent is deleted.
type Client struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	PasswordHash  string
	Phone         string
	Language      string
	ChatbotID     string
	AssignedAgent string // empty until assignment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chatbot is the signup channel owned by exactly one admin. At assignment
// time its CreatedBy resolves which admin's agent pool the client draws from.
type Chatbot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedBy   string    `json:"created_by"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatSession is the message thread between one client and one agent.
// Created lazily on first message, never deleted.
type ChatSession struct {
	ID        string
	ClientID  string
	AgentID   string
	CreatedAt time.Time
}

// ChatMessage is a single entry in a session. Messages are immutable once
// appended. Timestamp is caller-supplied and trusted; monotonicity is not
// guaranteed.
type ChatMessage struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Sender         Sender    `json:"sender"`
	ClientID       string    `json:"client_id"`
	AgentID        string    `json:"agent_id"`
	Text           string    `json:"text"`
	TranslatedText string    `json:"translated_text"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	Timestamp      time.Time `json:"timestamp"`
	IsVoiceMessage bool      `json:"is_voice_message"`
	Transcript     string    `json:"transcript,omitempty"`
	AudioURL       string    `json:"audio_url,omitempty"`
}

// Store defines the persistence interface consumed by the core.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
	// ListAgentsByOwner returns users with role=agent and created_by=ownerID,
	// ordered ascending by clients_handled. A limit <= 0 returns all.
	ListAgentsByOwner(ctx context.Context, ownerID string, limit int) ([]*User, error)

	// Clients
	CreateClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, id string) (*Client, error)
	GetClientByEmail(ctx context.Context, email string) (*Client, error)
	UpdateClient(ctx context.Context, client *Client) error
	ListClientsByAgent(ctx context.Context, agentID string) ([]*Client, error)
	CountClientsByAgent(ctx context.Context, agentID string) (int, error)
	// BulkReassignClients moves every client assigned to oldAgentID onto
	// newAgentID in one update and returns the number moved.
	BulkReassignClients(ctx context.Context, oldAgentID, newAgentID string) (int, error)

	// Chatbots
	CreateChatbot(ctx context.Context, bot *Chatbot) error
	GetChatbot(ctx context.Context, id string) (*Chatbot, error)
	GetChatbotByOwner(ctx context.Context, ownerID string) (*Chatbot, error)

	// Sessions and messages
	FindOrCreateSession(ctx context.Context, clientID, agentID string) (*ChatSession, error)
	AppendMessage(ctx context.Context, msg *ChatMessage) error
	ListSessionMessages(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error)
	// BulkRepointSessions rewrites the agent reference on all of
	// oldAgentID's sessions, returning the number repointed.
	BulkRepointSessions(ctx context.Context, oldAgentID, newAgentID string) (int, error)

	// Close releases any resources held by the store
	Close() error
}
