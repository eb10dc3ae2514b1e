// ABOUTME: Message relay between clients and agents with per-pair translation
// ABOUTME: Persists chat history and fans live events out to both participants

package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glotdesk/glotdesk/internal/languages"
	"github.com/glotdesk/glotdesk/internal/presence"
	"github.com/glotdesk/glotdesk/internal/store"
	"github.com/glotdesk/glotdesk/internal/translator"
	"github.com/google/uuid"
)

// Service routes chat messages between a client and their assigned agent.
// Each message is translated from the sender's language into the
// recipient's, persisted, and pushed to every live connection of both
// participants. Translation never gates delivery: when the translation
// service fails, the recipient gets the original text.
type Service struct {
	store      store.Store
	translator translator.Translator
	presence   *presence.Registry
	logger     *slog.Logger
}

// NewService creates a relay service.
func NewService(s store.Store, t translator.Translator, p *presence.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      s,
		translator: t,
		presence:   p,
		logger:     logger.With("component", "relay"),
	}
}

// TextMessage is a text message submitted by either participant.
// A zero Timestamp means the message is stamped on receipt; a non-zero
// one is the sender's clock and is stored as given.
type TextMessage struct {
	Sender    store.Sender
	ClientID  string
	AgentID   string
	Text      string
	Timestamp time.Time
}

// VoiceMessage is a voice recording submitted by either participant.
// AudioURL is where the recording was stored; the raw bytes are only
// needed for transcription.
type VoiceMessage struct {
	Sender    store.Sender
	ClientID  string
	AgentID   string
	Audio     []byte
	Filename  string
	AudioURL  string
	Timestamp time.Time
}

// messageTime trusts a caller-supplied timestamp when present and stamps
// the message itself otherwise. No monotonicity is enforced; history is
// ordered by whatever the messages carry.
func messageTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts.UTC()
}

// languagePair resolves the source and target languages for a message.
// The sender's language is the source, the recipient's the target; a
// participant with no recorded language falls back to the default.
func (s *Service) languagePair(ctx context.Context, sender store.Sender, clientID, agentID string) (source, target string, err error) {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return "", "", fmt.Errorf("loading client: %w", err)
	}
	agent, err := s.store.GetUser(ctx, agentID)
	if err != nil {
		return "", "", fmt.Errorf("loading agent: %w", err)
	}

	clientLang := languages.Resolve(client.Language)
	agentLang := languages.Resolve(agent.Language)

	if sender == store.SenderClient {
		return clientLang, agentLang, nil
	}
	return agentLang, clientLang, nil
}

// translate renders text into the target language, passing it through
// unchanged when source and target match. A translation failure is logged
// and the original text returned, so delivery is never blocked.
func (s *Service) translate(ctx context.Context, text, source, target string) string {
	if text == "" || source == target {
		return text
	}

	translated, err := s.translator.Translate(ctx, text, source, target)
	if err != nil {
		s.logger.Warn("translation failed, delivering original text",
			"source", source,
			"target", target,
			"error", err)
		return text
	}
	return translated
}

// SendText translates, persists, and delivers a text message.
func (s *Service) SendText(ctx context.Context, msg *TextMessage) (*store.ChatMessage, error) {
	source, target, err := s.languagePair(ctx, msg.Sender, msg.ClientID, msg.AgentID)
	if err != nil {
		return nil, err
	}

	translated := s.translate(ctx, msg.Text, source, target)

	session, err := s.store.FindOrCreateSession(ctx, msg.ClientID, msg.AgentID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	record := &store.ChatMessage{
		ID:             uuid.New().String(),
		SessionID:      session.ID,
		Sender:         msg.Sender,
		ClientID:       msg.ClientID,
		AgentID:        msg.AgentID,
		Text:           msg.Text,
		TranslatedText: translated,
		SourceLanguage: source,
		TargetLanguage: target,
		Timestamp:      messageTime(msg.Timestamp),
	}

	if err := s.store.AppendMessage(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	s.deliver(record)
	return record, nil
}

// SendVoice transcribes, translates, persists, and delivers a voice
// message. Transcription failures leave the transcript empty; the audio
// reference is delivered regardless so the recipient can listen.
func (s *Service) SendVoice(ctx context.Context, msg *VoiceMessage) (*store.ChatMessage, error) {
	source, target, err := s.languagePair(ctx, msg.Sender, msg.ClientID, msg.AgentID)
	if err != nil {
		return nil, err
	}

	transcript, err := s.translator.Transcribe(ctx, msg.Audio, msg.Filename, source)
	if err != nil {
		s.logger.Warn("transcription failed, delivering audio without transcript",
			"source", source,
			"error", err)
		transcript = ""
	}

	translated := s.translate(ctx, transcript, source, target)

	session, err := s.store.FindOrCreateSession(ctx, msg.ClientID, msg.AgentID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	record := &store.ChatMessage{
		ID:             uuid.New().String(),
		SessionID:      session.ID,
		Sender:         msg.Sender,
		ClientID:       msg.ClientID,
		AgentID:        msg.AgentID,
		Text:           transcript,
		TranslatedText: translated,
		SourceLanguage: source,
		TargetLanguage: target,
		Timestamp:      messageTime(msg.Timestamp),
		IsVoiceMessage: true,
		Transcript:     transcript,
		AudioURL:       msg.AudioURL,
	}

	if err := s.store.AppendMessage(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	s.deliver(record)
	return record, nil
}

// deliver pushes the persisted message to both participants' live
// connections. Best-effort: an offline participant reads it from history
// on their next login.
func (s *Service) deliver(record *store.ChatMessage) {
	event := &presence.Event{Name: "newMessage", Data: record}

	clientOnline := s.presence.EmitToUser(record.ClientID, event)
	agentOnline := s.presence.EmitToUser(record.AgentID, event)

	s.logger.Debug("message delivered",
		"message_id", record.ID,
		"session_id", record.SessionID,
		"client_online", clientOnline,
		"agent_online", agentOnline)
}

// History returns the persisted messages between a client and agent in
// chronological order. limit <= 0 returns everything.
func (s *Service) History(ctx context.Context, clientID, agentID string, limit int) ([]*store.ChatMessage, error) {
	session, err := s.store.FindOrCreateSession(ctx, clientID, agentID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}
	return s.store.ListSessionMessages(ctx, session.ID, limit)
}

// typingPayload is the ephemeral typing indicator payload.
type typingPayload struct {
	From   string `json:"from"`
	Typing bool   `json:"typing"`
}

// NotifyTyping pushes an ephemeral typing indicator to the recipient.
// Nothing is persisted and delivery is best-effort.
func (s *Service) NotifyTyping(from, to string, typing bool) {
	s.presence.EmitToUser(to, &presence.Event{
		Name: "typing",
		Data: typingPayload{From: from, Typing: typing},
	})
}
