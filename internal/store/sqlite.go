// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/client/session persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			first_name      TEXT NOT NULL,
			last_name       TEXT NOT NULL,
			email           TEXT NOT NULL UNIQUE,
			username        TEXT NOT NULL UNIQUE,
			password_hash   TEXT NOT NULL,
			role            TEXT NOT NULL,
			verified        INTEGER NOT NULL DEFAULT 0,
			status          TEXT NOT NULL DEFAULT 'Not Active',
			language        TEXT NOT NULL DEFAULT 'en',
			clients_handled INTEGER NOT NULL DEFAULT 0,
			created_by      TEXT,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL,

			CHECK (role IN ('superadmin', 'admin', 'agent')),
			CHECK (status IN ('Active', 'Not Active', 'Busy')),
			CHECK (clients_handled >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_users_role_owner
			ON users(role, created_by, clients_handled);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS clients (
			id             TEXT PRIMARY KEY,
			first_name     TEXT NOT NULL,
			last_name      TEXT NOT NULL,
			email          TEXT NOT NULL UNIQUE,
			password_hash  TEXT NOT NULL,
			phone          TEXT NOT NULL,
			language       TEXT NOT NULL DEFAULT 'en',
			chatbot_id     TEXT NOT NULL,
			assigned_agent TEXT,
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_clients_assigned_agent
			ON clients(assigned_agent);
		CREATE INDEX IF NOT EXISTS idx_clients_email ON clients(email);

		CREATE TABLE IF NOT EXISTS chatbots (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			created_by  TEXT NOT NULL,
			description TEXT,
			active      INTEGER NOT NULL DEFAULT 1,
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chatbots_owner ON chatbots(created_by);

		CREATE TABLE IF NOT EXISTS chat_sessions (
			id         TEXT PRIMARY KEY,
			client_id  TEXT NOT NULL,
			agent_id   TEXT NOT NULL,
			created_at TEXT NOT NULL,

			UNIQUE(client_id, agent_id)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_agent ON chat_sessions(agent_id);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id               TEXT PRIMARY KEY,
			session_id       TEXT NOT NULL,
			sender           TEXT NOT NULL,
			client_id        TEXT NOT NULL,
			agent_id         TEXT NOT NULL,
			text             TEXT NOT NULL,
			translated_text  TEXT NOT NULL,
			source_language  TEXT NOT NULL,
			target_language  TEXT NOT NULL,
			timestamp        TEXT NOT NULL,
			is_voice_message INTEGER NOT NULL DEFAULT 0,
			transcript       TEXT,
			audio_url        TEXT,

			CHECK (sender IN ('client', 'agent')),
			FOREIGN KEY (session_id) REFERENCES chat_sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_session
			ON chat_messages(session_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullString converts an empty string to a NULL-able sql value
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// CreateUser inserts a new user. Returns ErrDuplicateEmail or
// ErrDuplicateUsername on unique-constraint collisions.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, first_name, last_name, email, username, password_hash,
			role, verified, status, language, clients_handled, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.Verified,
		user.Status,
		user.Language,
		user.ClientsHandled,
		nullString(user.CreatedBy),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			if strings.Contains(err.Error(), "users.username") {
				return ErrDuplicateUsername
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "role", user.Role)
	return nil
}

const userColumns = `id, first_name, last_name, email, username, password_hash,
	role, verified, status, language, clients_handled, created_by, created_at, updated_at`

func (s *SQLiteStore) scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var user User
	var createdBy sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.Verified,
		&user.Status,
		&user.Language,
		&user.ClientsHandled,
		&createdBy,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	user.CreatedBy = createdBy.String

	user.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	user.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &user, nil
}

// GetUser retrieves a user by ID. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// UpdateUser updates an existing user. Returns ErrNotFound if the user
// doesn't exist.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET first_name = ?, last_name = ?, email = ?, username = ?, password_hash = ?,
			role = ?, verified = ?, status = ?, language = ?, clients_handled = ?,
			created_by = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.Verified,
		user.Status,
		user.Language,
		user.ClientsHandled,
		nullString(user.CreatedBy),
		formatTime(time.Now()),
		user.ID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			if strings.Contains(err.Error(), "users.username") {
				return ErrDuplicateUsername
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("updating user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteUser removes a user by ID. Returns ErrNotFound if absent.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted user", "id", id)
	return nil
}

// ListAgentsByOwner returns agents created by ownerID ordered ascending by
// clients_handled. A limit <= 0 returns all agents in the pool.
func (s *SQLiteStore) ListAgentsByOwner(ctx context.Context, ownerID string, limit int) ([]*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = 'agent' AND created_by = ?
		ORDER BY clients_handled ASC
	`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()

	var agents []*User
	for rows.Next() {
		agent, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agent rows: %w", err)
	}

	return agents, nil
}

// CreateClient inserts a new client. Returns ErrDuplicateEmail if the email
// is already registered.
func (s *SQLiteStore) CreateClient(ctx context.Context, client *Client) error {
	query := `
		INSERT INTO clients (id, first_name, last_name, email, password_hash, phone,
			language, chatbot_id, assigned_agent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		client.ID,
		client.FirstName,
		client.LastName,
		client.Email,
		client.PasswordHash,
		client.Phone,
		client.Language,
		client.ChatbotID,
		nullString(client.AssignedAgent),
		formatTime(client.CreatedAt),
		formatTime(client.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting client: %w", err)
	}

	s.logger.Debug("created client", "id", client.ID, "chatbot", client.ChatbotID)
	return nil
}

const clientColumns = `id, first_name, last_name, email, password_hash, phone,
	language, chatbot_id, assigned_agent, created_at, updated_at`

func (s *SQLiteStore) scanClient(row interface{ Scan(...any) error }) (*Client, error) {
	var client Client
	var assignedAgent sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&client.ID,
		&client.FirstName,
		&client.LastName,
		&client.Email,
		&client.PasswordHash,
		&client.Phone,
		&client.Language,
		&client.ChatbotID,
		&assignedAgent,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning client: %w", err)
	}

	client.AssignedAgent = assignedAgent.String

	client.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	client.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &client, nil
}

// GetClient retrieves a client by ID. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ?`
	return s.scanClient(s.db.QueryRowContext(ctx, query, id))
}

// GetClientByEmail retrieves a client by email. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetClientByEmail(ctx context.Context, email string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE email = ?`
	return s.scanClient(s.db.QueryRowContext(ctx, query, email))
}

// UpdateClient updates an existing client. Returns ErrNotFound if the
// client doesn't exist.
func (s *SQLiteStore) UpdateClient(ctx context.Context, client *Client) error {
	query := `
		UPDATE clients
		SET first_name = ?, last_name = ?, email = ?, password_hash = ?, phone = ?,
			language = ?, chatbot_id = ?, assigned_agent = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		client.FirstName,
		client.LastName,
		client.Email,
		client.PasswordHash,
		client.Phone,
		client.Language,
		client.ChatbotID,
		nullString(client.AssignedAgent),
		formatTime(time.Now()),
		client.ID,
	)
	if err != nil {
		return fmt.Errorf("updating client: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListClientsByAgent returns all clients currently assigned to agentID.
func (s *SQLiteStore) ListClientsByAgent(ctx context.Context, agentID string) ([]*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE assigned_agent = ? ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		client, err := s.scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating client rows: %w", err)
	}

	return clients, nil
}

// CountClientsByAgent returns the true number of clients assigned to agentID.
// This is the source of truth the clients_handled counter caches.
func (s *SQLiteStore) CountClientsByAgent(ctx context.Context, agentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE assigned_agent = ?`, agentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting clients: %w", err)
	}
	return count, nil
}

// BulkReassignClients moves every client assigned to oldAgentID onto
// newAgentID in a single update and returns the number moved.
func (s *SQLiteStore) BulkReassignClients(ctx context.Context, oldAgentID, newAgentID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE clients SET assigned_agent = ?, updated_at = ? WHERE assigned_agent = ?`,
		newAgentID, formatTime(time.Now()), oldAgentID)
	if err != nil {
		return 0, fmt.Errorf("reassigning clients: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	s.logger.Debug("bulk reassigned clients",
		"old_agent", oldAgentID, "new_agent", newAgentID, "count", rowsAffected)
	return int(rowsAffected), nil
}

// CreateChatbot inserts a new chatbot.
func (s *SQLiteStore) CreateChatbot(ctx context.Context, bot *Chatbot) error {
	query := `
		INSERT INTO chatbots (id, name, created_by, description, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		bot.ID,
		bot.Name,
		bot.CreatedBy,
		nullString(bot.Description),
		bot.Active,
		formatTime(bot.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting chatbot: %w", err)
	}

	s.logger.Debug("created chatbot", "id", bot.ID, "owner", bot.CreatedBy)
	return nil
}

func (s *SQLiteStore) scanChatbot(row interface{ Scan(...any) error }) (*Chatbot, error) {
	var bot Chatbot
	var description sql.NullString
	var createdAtStr string

	err := row.Scan(
		&bot.ID,
		&bot.Name,
		&bot.CreatedBy,
		&description,
		&bot.Active,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning chatbot: %w", err)
	}

	bot.Description = description.String

	bot.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &bot, nil
}

// GetChatbot retrieves a chatbot by ID. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetChatbot(ctx context.Context, id string) (*Chatbot, error) {
	query := `SELECT id, name, created_by, description, active, created_at FROM chatbots WHERE id = ?`
	return s.scanChatbot(s.db.QueryRowContext(ctx, query, id))
}

// GetChatbotByOwner retrieves the chatbot owned by ownerID.
// Returns ErrNotFound if the admin has no chatbot.
func (s *SQLiteStore) GetChatbotByOwner(ctx context.Context, ownerID string) (*Chatbot, error) {
	query := `SELECT id, name, created_by, description, active, created_at FROM chatbots WHERE created_by = ?`
	return s.scanChatbot(s.db.QueryRowContext(ctx, query, ownerID))
}

// FindOrCreateSession returns the session for (clientID, agentID), creating
// it lazily on first use. Concurrent creation races resolve through the
// UNIQUE(client_id, agent_id) constraint.
func (s *SQLiteStore) FindOrCreateSession(ctx context.Context, clientID, agentID string) (*ChatSession, error) {
	session, err := s.getSession(ctx, clientID, agentID)
	if err == nil {
		return session, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	session = &ChatSession{
		ID:        newID(),
		ClientID:  clientID,
		AgentID:   agentID,
		CreatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, client_id, agent_id, created_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.ClientID, session.AgentID, formatTime(session.CreatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			// Lost the creation race; the winner's row is authoritative
			return s.getSession(ctx, clientID, agentID)
		}
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "id", session.ID, "client", clientID, "agent", agentID)
	return session, nil
}

func (s *SQLiteStore) getSession(ctx context.Context, clientID, agentID string) (*ChatSession, error) {
	var session ChatSession
	var createdAtStr string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, agent_id, created_at FROM chat_sessions WHERE client_id = ? AND agent_id = ?`,
		clientID, agentID).Scan(&session.ID, &session.ClientID, &session.AgentID, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &session, nil
}

// AppendMessage appends an immutable message to its session.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, session_id, sender, client_id, agent_id, text,
			translated_text, source_language, target_language, timestamp,
			is_voice_message, transcript, audio_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.SessionID,
		string(msg.Sender),
		msg.ClientID,
		msg.AgentID,
		msg.Text,
		msg.TranslatedText,
		msg.SourceLanguage,
		msg.TargetLanguage,
		formatTime(msg.Timestamp),
		msg.IsVoiceMessage,
		nullString(msg.Transcript),
		nullString(msg.AudioURL),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// ListSessionMessages returns messages for a session ordered by timestamp.
// If limit is 0 or negative, a default limit of 200 is used.
func (s *SQLiteStore) ListSessionMessages(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `
		SELECT id, session_id, sender, client_id, agent_id, text, translated_text,
			source_language, target_language, timestamp, is_voice_message, transcript, audio_url
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY timestamp ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		var msg ChatMessage
		var transcript, audioURL sql.NullString
		var sender, timestampStr string

		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&sender,
			&msg.ClientID,
			&msg.AgentID,
			&msg.Text,
			&msg.TranslatedText,
			&msg.SourceLanguage,
			&msg.TargetLanguage,
			&timestampStr,
			&msg.IsVoiceMessage,
			&transcript,
			&audioURL,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.Sender = Sender(sender)
		msg.Transcript = transcript.String
		msg.AudioURL = audioURL.String

		msg.Timestamp, err = parseTime(timestampStr)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}

		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// BulkRepointSessions rewrites the agent reference on all of oldAgentID's
// sessions and their messages, returning the number of sessions repointed.
func (s *SQLiteStore) BulkRepointSessions(ctx context.Context, oldAgentID, newAgentID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET agent_id = ? WHERE agent_id = ?`, newAgentID, oldAgentID)
	if err != nil {
		return 0, fmt.Errorf("repointing sessions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE chat_messages SET agent_id = ? WHERE agent_id = ?`, newAgentID, oldAgentID); err != nil {
		return int(rowsAffected), fmt.Errorf("repointing messages: %w", err)
	}

	s.logger.Debug("bulk repointed sessions",
		"old_agent", oldAgentID, "new_agent", newAgentID, "count", rowsAffected)
	return int(rowsAffected), nil
}
