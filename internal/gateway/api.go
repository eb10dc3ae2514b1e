// ABOUTME: HTTP API handlers for accounts, agent management, and messaging
// ABOUTME: Maps engine and relay errors onto JSON responses and status codes

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/glotdesk/glotdesk/internal/assign"
	"github.com/glotdesk/glotdesk/internal/auth"
	"github.com/glotdesk/glotdesk/internal/languages"
	"github.com/glotdesk/glotdesk/internal/relay"
	"github.com/glotdesk/glotdesk/internal/store"
)

// maxVoiceUploadBytes caps voice recordings at 10 MB.
const maxVoiceUploadBytes = 10 << 20

// ClientSignupRequest is the JSON request body for POST /api/clients/signup.
type ClientSignupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
	Language  string `json:"language,omitempty"`
	ChatbotID string `json:"chatbot_id"`
}

// LoginRequest is the JSON request body for client and staff login.
// Clients may send a language to switch to on login; staff ignore it.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language,omitempty"`
}

// ClientResponse is the JSON shape for a client account.
type ClientResponse struct {
	ID            string `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Language      string `json:"language"`
	ChatbotID     string `json:"chatbot_id"`
	AssignedAgent string `json:"assigned_agent,omitempty"`
}

// ClientAuthResponse is the JSON response for client signup and login.
type ClientAuthResponse struct {
	Token  string         `json:"token"`
	Client ClientResponse `json:"client"`
}

// StaffAuthResponse is the JSON response for staff login.
type StaffAuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the JSON shape for a staff account.
type UserResponse struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	Language       string `json:"language"`
	ClientsHandled int    `json:"clients_handled"`
	Online         bool   `json:"online"`
}

// CreateAgentRequest is the JSON request body for POST /api/agents.
type CreateAgentRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Language  string `json:"language,omitempty"`
}

// CreateAdminRequest is the JSON request body for POST /api/admins.
// Each admin gets a chatbot that clients sign up through.
type CreateAdminRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ChatbotName string `json:"chatbot_name"`
}

// SendMessageRequest is the JSON request body for POST /api/messages.
// Clients omit client_id (it is taken from the token); agents must name
// the client they are replying to. The optional timestamp is the sender's
// clock and is stored as given; omitted means stamped on receipt.
type SendMessageRequest struct {
	Text      string    `json:"text"`
	ClientID  string    `json:"client_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// UpdateStatusRequest is the JSON request body for PATCH /api/me/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateLanguageRequest is the JSON request body for PATCH /api/me/language.
type UpdateLanguageRequest struct {
	Language string `json:"language"`
}

// ReconcileResponse is the JSON response for POST /api/agents/reconcile.
type ReconcileResponse struct {
	Corrected int `json:"corrected"`
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given status code.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func clientResponse(c *store.Client) ClientResponse {
	return ClientResponse{
		ID:            c.ID,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Email:         c.Email,
		Language:      c.Language,
		ChatbotID:     c.ChatbotID,
		AssignedAgent: c.AssignedAgent,
	}
}

func (g *Gateway) userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Username:       u.Username,
		Role:           u.Role,
		Status:         u.Status,
		Language:       u.Language,
		ClientsHandled: u.ClientsHandled,
		Online:         g.presence.Online(u.ID),
	}
}

// assignClient routes an unassigned client to the least-busy agent of the
// chatbot's owner. Engine errors, including assign.ErrNoAvailableAgent,
// come back to the caller to map onto a response.
func (g *Gateway) assignClient(ctx context.Context, client *store.Client) error {
	chatbot, err := g.store.GetChatbot(ctx, client.ChatbotID)
	if err != nil {
		return fmt.Errorf("resolving chatbot %s: %w", client.ChatbotID, err)
	}

	if _, err := g.engine.Assign(ctx, client, chatbot.CreatedBy); err != nil {
		return err
	}
	return nil
}

// handleClientSignup handles POST /api/clients/signup.
// Creates the client account, assigns an agent when one is available, and
// returns a token.
func (g *Gateway) handleClientSignup(w http.ResponseWriter, r *http.Request) {
	var req ClientSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" || req.ChatbotID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "email, password, and chatbot_id are required")
		return
	}
	if req.Language != "" && !languages.Supported(req.Language) {
		g.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("unsupported language %q", req.Language))
		return
	}

	if _, err := g.store.GetChatbot(r.Context(), req.ChatbotID); err != nil {
		g.sendJSONError(w, http.StatusNotFound, "chatbot not found")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		g.logger.Error("hashing password", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now().UTC()
	client := &store.Client{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Language:     languages.Resolve(req.Language),
		ChatbotID:    req.ChatbotID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := g.store.CreateClient(r.Context(), client); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			g.sendJSONError(w, http.StatusConflict, "email already registered")
			return
		}
		g.logger.Error("creating client", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Signup succeeds even when the pool is empty: the account exists and
	// login retries assignment, refusing access until an agent is there.
	if err := g.assignClient(r.Context(), client); err != nil {
		if errors.Is(err, assign.ErrNoAvailableAgent) {
			g.logger.Info("no agent available at signup, client left unassigned", "client_id", client.ID)
		} else {
			g.logger.Error("assignment failed", "client_id", client.ID, "error", err)
		}
	}

	token, err := g.verifier.Generate(client.ID, auth.RoleClient, g.config.Auth.TokenTTL)
	if err != nil {
		g.logger.Error("generating token", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusCreated, ClientAuthResponse{Token: token, Client: clientResponse(client)})
}

// handleClientLogin handles POST /api/clients/login.
// A client that signed up before any agent existed gets another assignment
// attempt here.
func (g *Gateway) handleClientLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	client, err := g.store.GetClientByEmail(r.Context(), req.Email)
	if err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.CheckPassword(client.PasswordHash, req.Password); err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if req.Language != "" && languages.Supported(req.Language) && req.Language != client.Language {
		client.Language = req.Language
		if err := g.store.UpdateClient(r.Context(), client); err != nil {
			g.logger.Error("updating language on login", "client_id", client.ID, "error", err)
		}
	}

	if client.AssignedAgent == "" {
		if err := g.assignClient(r.Context(), client); err != nil {
			if errors.Is(err, assign.ErrNoAvailableAgent) {
				g.sendJSONError(w, http.StatusConflict, "no available agents")
				return
			}
			g.logger.Error("assignment failed", "client_id", client.ID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	token, err := g.verifier.Generate(client.ID, auth.RoleClient, g.config.Auth.TokenTTL)
	if err != nil {
		g.logger.Error("generating token", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, ClientAuthResponse{Token: token, Client: clientResponse(client)})
}

// handleStaffLogin handles POST /api/staff/login.
// A successful login flips the account status to Active.
func (g *Gateway) handleStaffLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := g.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user.Status = store.StatusActive
	if err := g.store.UpdateUser(r.Context(), user); err != nil {
		g.logger.Error("updating status on login", "user_id", user.ID, "error", err)
	}

	token, err := g.verifier.Generate(user.ID, user.Role, g.config.Auth.TokenTTL)
	if err != nil {
		g.logger.Error("generating token", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, StaffAuthResponse{Token: token, User: g.userResponse(user)})
}

// handleStaffLogout handles POST /api/staff/logout.
// Flips the account status to Not Active; the token simply expires.
func (g *Gateway) handleStaffLogout(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	user, err := g.store.GetUser(r.Context(), principal.ID)
	if err != nil {
		g.sendJSONError(w, http.StatusNotFound, "user not found")
		return
	}

	user.Status = store.StatusNotActive
	if err := g.store.UpdateUser(r.Context(), user); err != nil {
		g.logger.Error("updating status on logout", "user_id", user.ID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateStatus handles PATCH /api/me/status for staff.
func (g *Gateway) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !store.ValidStatus(req.Status) {
		g.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", req.Status))
		return
	}

	user, err := g.store.GetUser(r.Context(), principal.ID)
	if err != nil {
		g.sendJSONError(w, http.StatusNotFound, "user not found")
		return
	}

	user.Status = req.Status
	if err := g.store.UpdateUser(r.Context(), user); err != nil {
		g.logger.Error("updating status", "user_id", user.ID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, g.userResponse(user))
}

// handleUpdateLanguage handles PATCH /api/me/language for both staff
// accounts and clients. Later messages translate into the new language;
// history keeps the languages it was written with.
func (g *Gateway) handleUpdateLanguage(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	var req UpdateLanguageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !languages.Supported(req.Language) {
		g.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("unsupported language %q", req.Language))
		return
	}

	if principal.Role == auth.RoleClient {
		client, err := g.store.GetClient(r.Context(), principal.ID)
		if err != nil {
			g.sendJSONError(w, http.StatusNotFound, "client not found")
			return
		}
		client.Language = req.Language
		if err := g.store.UpdateClient(r.Context(), client); err != nil {
			g.logger.Error("updating client language", "client_id", client.ID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.writeJSON(w, http.StatusOK, clientResponse(client))
		return
	}

	user, err := g.store.GetUser(r.Context(), principal.ID)
	if err != nil {
		g.sendJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	user.Language = req.Language
	if err := g.store.UpdateUser(r.Context(), user); err != nil {
		g.logger.Error("updating user language", "user_id", user.ID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	g.writeJSON(w, http.StatusOK, g.userResponse(user))
}

// handleListLanguages handles GET /api/languages.
func (g *Gateway) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, languages.All())
}

// messagePair resolves which client/agent pair a message refers to based on
// who is asking. Clients always talk to their assigned agent; staff must
// name the client. Shared between the HTTP handlers and the websocket
// channel.
func (g *Gateway) messagePair(ctx context.Context, principal *auth.Principal, clientID string) (client *store.Client, agentID string, sender store.Sender, err error) {
	if principal.Role == auth.RoleClient {
		client, err = g.store.GetClient(ctx, principal.ID)
		if err != nil {
			return nil, "", "", err
		}
		if client.AssignedAgent == "" {
			return nil, "", "", errNoAssignedAgent
		}
		return client, client.AssignedAgent, store.SenderClient, nil
	}

	if clientID == "" {
		return nil, "", "", errClientIDRequired
	}
	client, err = g.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, "", "", err
	}
	if client.AssignedAgent != principal.ID {
		return nil, "", "", errNotYourClient
	}
	return client, principal.ID, store.SenderAgent, nil
}

var (
	errNoAssignedAgent  = errors.New("no agent assigned yet")
	errClientIDRequired = errors.New("client_id is required")
	errNotYourClient    = errors.New("client is not assigned to you")
)

// sendMessagePairError maps messagePair errors onto HTTP responses.
func (g *Gateway) sendMessagePairError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNoAssignedAgent):
		g.sendJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errClientIDRequired):
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errNotYourClient):
		g.sendJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound):
		g.sendJSONError(w, http.StatusNotFound, "client not found")
	default:
		g.logger.Error("resolving message pair", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handleSendMessage handles POST /api/messages.
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		g.sendJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	client, agentID, sender, err := g.messagePair(r.Context(), auth.MustFromContext(r.Context()), req.ClientID)
	if err != nil {
		g.sendMessagePairError(w, err)
		return
	}

	record, err := g.relay.SendText(r.Context(), &relay.TextMessage{
		Sender:    sender,
		ClientID:  client.ID,
		AgentID:   agentID,
		Text:      req.Text,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		g.logger.Error("sending message", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusCreated, record)
}

// handleSendVoiceMessage handles POST /api/messages/voice.
// Multipart form with an "audio" file and, for staff, a "client_id" field.
// The recording is stored under the uploads dir and referenced by URL.
func (g *Gateway) handleSendVoiceMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxVoiceUploadBytes); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxVoiceUploadBytes))
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "reading audio file")
		return
	}

	client, agentID, sender, err := g.messagePair(r.Context(), auth.MustFromContext(r.Context()), r.FormValue("client_id"))
	if err != nil {
		g.sendMessagePairError(w, err)
		return
	}

	var timestamp time.Time
	if raw := r.FormValue("timestamp"); raw != "" {
		timestamp, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid timestamp, want RFC 3339")
			return
		}
	}

	ext := filepath.Ext(header.Filename)
	storedName := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(g.config.Uploads.Dir, storedName), audio, 0o640); err != nil {
		g.logger.Error("storing voice recording", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	record, err := g.relay.SendVoice(r.Context(), &relay.VoiceMessage{
		Sender:    sender,
		ClientID:  client.ID,
		AgentID:   agentID,
		Audio:     audio,
		Filename:  header.Filename,
		AudioURL:  "/uploads/" + storedName,
		Timestamp: timestamp,
	})
	if err != nil {
		g.logger.Error("sending voice message", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusCreated, record)
}

// handleHistory handles GET /api/messages.
// Clients read their own thread; staff pass ?client_id=.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			g.sendJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	client, agentID, _, err := g.messagePair(r.Context(), auth.MustFromContext(r.Context()), r.URL.Query().Get("client_id"))
	if err != nil {
		g.sendMessagePairError(w, err)
		return
	}

	messages, err := g.relay.History(r.Context(), client.ID, agentID, limit)
	if err != nil {
		g.logger.Error("loading history", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, messages)
}

// handleListClients handles GET /api/clients for staff.
// Agents see their own clients; admins pass ?agent_id=.
func (g *Gateway) handleListClients(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	agentID := principal.ID
	if principal.Role != auth.RoleAgent {
		agentID = r.URL.Query().Get("agent_id")
		if agentID == "" {
			g.sendJSONError(w, http.StatusBadRequest, "agent_id is required")
			return
		}
	}

	clients, err := g.store.ListClientsByAgent(r.Context(), agentID)
	if err != nil {
		g.logger.Error("listing clients", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		response = append(response, clientResponse(c))
	}
	g.writeJSON(w, http.StatusOK, response)
}

// handleListAgents handles GET /api/agents.
// Admins see their own pool, least-busy first, with live presence flags.
// The superadmin owns no agents and names an admin with ?owner_id=.
func (g *Gateway) handleListAgents(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	ownerID := principal.ID
	if principal.Role == auth.RoleSuperadmin {
		ownerID = r.URL.Query().Get("owner_id")
		if ownerID == "" {
			g.sendJSONError(w, http.StatusBadRequest, "owner_id is required")
			return
		}
	}

	agents, err := g.store.ListAgentsByOwner(r.Context(), ownerID, 0)
	if err != nil {
		g.logger.Error("listing agents", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]UserResponse, 0, len(agents))
	for _, a := range agents {
		response = append(response, g.userResponse(a))
	}
	g.writeJSON(w, http.StatusOK, response)
}

// handleCreateAgent handles POST /api/agents for admins.
func (g *Gateway) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		g.sendJSONError(w, http.StatusBadRequest, "email, username, and password are required")
		return
	}
	if req.Language != "" && !languages.Supported(req.Language) {
		g.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("unsupported language %q", req.Language))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		g.logger.Error("hashing password", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now().UTC()
	agent := &store.User{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         store.RoleAgent,
		Verified:     true,
		Status:       store.StatusNotActive,
		Language:     languages.Resolve(req.Language),
		CreatedBy:    principal.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := g.store.CreateUser(r.Context(), agent); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			g.sendJSONError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, store.ErrDuplicateUsername):
			g.sendJSONError(w, http.StatusConflict, "username already taken")
		default:
			g.logger.Error("creating agent", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	g.writeJSON(w, http.StatusCreated, g.userResponse(agent))
}

// handleDeleteAgent handles DELETE /api/agents/{id} for admins.
// The agent's clients move to a replacement first; with no replacement
// available the deletion is refused.
func (g *Gateway) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())
	agentID := r.PathValue("id")

	agent, err := g.store.GetUser(r.Context(), agentID)
	if err != nil {
		g.sendJSONError(w, http.StatusNotFound, "agent not found")
		return
	}
	if agent.CreatedBy != principal.ID && principal.Role != auth.RoleSuperadmin {
		g.sendJSONError(w, http.StatusForbidden, "agent belongs to another admin")
		return
	}

	if err := g.engine.RemoveAgent(r.Context(), agentID); err != nil {
		switch {
		case errors.Is(err, assign.ErrCannotReassign):
			g.sendJSONError(w, http.StatusConflict, "no replacement agent available for this agent's clients")
		case errors.Is(err, store.ErrNotFound):
			g.sendJSONError(w, http.StatusNotFound, "agent not found")
		default:
			g.logger.Error("removing agent", "agent_id", agentID, "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleReconcile handles POST /api/agents/reconcile for admins.
func (g *Gateway) handleReconcile(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	corrected, err := g.engine.Reconcile(r.Context(), principal.ID)
	if err != nil {
		g.logger.Error("reconciling counters", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusOK, ReconcileResponse{Corrected: corrected})
}

// handleCreateAdmin handles POST /api/admins for the superadmin.
// Creates the admin account together with its chatbot.
func (g *Gateway) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	principal := auth.MustFromContext(r.Context())

	var req CreateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" || req.ChatbotName == "" {
		g.sendJSONError(w, http.StatusBadRequest, "email, username, password, and chatbot_name are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		g.logger.Error("hashing password", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	now := time.Now().UTC()
	admin := &store.User{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         store.RoleAdmin,
		Verified:     true,
		Status:       store.StatusNotActive,
		Language:     "en",
		CreatedBy:    principal.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := g.store.CreateUser(r.Context(), admin); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			g.sendJSONError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, store.ErrDuplicateUsername):
			g.sendJSONError(w, http.StatusConflict, "username already taken")
		default:
			g.logger.Error("creating admin", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	chatbot := &store.Chatbot{
		ID:        uuid.New().String(),
		Name:      req.ChatbotName,
		CreatedBy: admin.ID,
		Active:    true,
		CreatedAt: now,
	}
	if err := g.store.CreateChatbot(r.Context(), chatbot); err != nil {
		g.logger.Error("creating chatbot", "admin_id", admin.ID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.writeJSON(w, http.StatusCreated, map[string]any{
		"user":    g.userResponse(admin),
		"chatbot": chatbot,
	})
}
