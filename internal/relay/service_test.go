// ABOUTME: Tests for the message relay service
// ABOUTME: Covers translation fallbacks, identity pass-through, voice messages, and live delivery

package relay

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glotdesk/glotdesk/internal/presence"
	"github.com/glotdesk/glotdesk/internal/store"
)

// fakeTranslator returns canned translations or fails on demand.
type fakeTranslator struct {
	failTranslate  bool
	failTranscribe bool
	transcript     string
	calls          int
}

func (f *fakeTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.calls++
	if f.failTranslate {
		return "", errors.New("translation service down")
	}
	return "[" + targetLang + "] " + text, nil
}

func (f *fakeTranslator) Transcribe(ctx context.Context, audio []byte, filename, lang string) (string, error) {
	if f.failTranscribe {
		return "", errors.New("transcription service down")
	}
	return f.transcript, nil
}

type testEnv struct {
	service    *Service
	store      *store.SQLiteStore
	presence   *presence.Registry
	translator *fakeTranslator
	client     *store.Client
	agent      *store.User
}

func createTestEnv(t *testing.T, clientLang, agentLang string) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg := presence.NewRegistry(slog.New(slog.DiscardHandler))
	t.Cleanup(reg.Close)

	fake := &fakeTranslator{transcript: "spoken words"}
	svc := NewService(s, fake, reg, slog.New(slog.DiscardHandler))

	now := time.Now()
	agent := &store.User{
		ID:           uuid.New().String(),
		FirstName:    "Ana",
		LastName:     "Agent",
		Email:        uuid.New().String() + "@example.com",
		Username:     uuid.New().String(),
		PasswordHash: "hashed",
		Role:         store.RoleAgent,
		Status:       store.StatusActive,
		Language:     agentLang,
		CreatedBy:    "admin-1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateUser(context.Background(), agent))

	client := &store.Client{
		ID:            uuid.New().String(),
		FirstName:     "Carlos",
		LastName:      "Client",
		Email:         uuid.New().String() + "@example.com",
		PasswordHash:  "hashed",
		Language:      clientLang,
		ChatbotID:     "bot-1",
		AssignedAgent: agent.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, s.CreateClient(context.Background(), client))

	return &testEnv{service: svc, store: s, presence: reg, translator: fake, client: client, agent: agent}
}

func TestSendText_TranslatesIntoRecipientLanguage(t *testing.T) {
	env := createTestEnv(t, "es", "en")
	ctx := context.Background()

	msg, err := env.service.SendText(ctx, &TextMessage{
		Sender:   store.SenderClient,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Text:     "Hola",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hola", msg.Text)
	assert.Equal(t, "[en] Hola", msg.TranslatedText)
	assert.Equal(t, "es", msg.SourceLanguage)
	assert.Equal(t, "en", msg.TargetLanguage)
	assert.False(t, msg.IsVoiceMessage)
}

func TestSendText_AgentToClientReversesDirection(t *testing.T) {
	env := createTestEnv(t, "es", "en")
	ctx := context.Background()

	msg, err := env.service.SendText(ctx, &TextMessage{
		Sender:   store.SenderAgent,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Text:     "Hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "en", msg.SourceLanguage)
	assert.Equal(t, "es", msg.TargetLanguage)
	assert.Equal(t, "[es] Hello", msg.TranslatedText)
}

func TestSendText_CallerTimestampTrusted(t *testing.T) {
	env := createTestEnv(t, "en", "en")
	ctx := context.Background()

	sent := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	record, err := env.service.SendText(ctx, &TextMessage{
		Sender:    store.SenderClient,
		ClientID:  env.client.ID,
		AgentID:   env.agent.ID,
		Text:      "sent from a flaky connection",
		Timestamp: sent,
	})
	require.NoError(t, err)
	assert.Equal(t, sent, record.Timestamp)

	// The stored copy carries the sender's clock too.
	history, err := env.service.History(ctx, env.client.ID, env.agent.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sent, history[0].Timestamp.UTC())
}

func TestSendText_StampsWhenTimestampAbsent(t *testing.T) {
	env := createTestEnv(t, "en", "en")

	before := time.Now().UTC().Add(-time.Second)
	record, err := env.service.SendText(context.Background(), &TextMessage{
		Sender:   store.SenderClient,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Text:     "no clock supplied",
	})
	require.NoError(t, err)
	assert.True(t, record.Timestamp.After(before))
	assert.True(t, record.Timestamp.Before(time.Now().UTC().Add(time.Second)))
}

func TestSendText_SameLanguageSkipsTranslation(t *testing.T) {
	env := createTestEnv(t, "en", "en")
	ctx := context.Background()

	msg, err := env.service.SendText(ctx, &TextMessage{
		Sender:   store.SenderClient,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Text:     "Hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", msg.TranslatedText)
	assert.Equal(t, 0, env.translator.calls, "identity pairs must not hit the translator")
}

func TestSendText_UnknownLanguageFallsBackToDefault(t *testing.T) {
	// Client with no recorded language resolves to the default ("en"),
	// same as the agent, so the message passes through untranslated.
	env := createTestEnv(t, "", "en")
	ctx := context.Background()

	msg, err := env.service.SendText(ctx, &TextMessage{
		Sender:   store.SenderClient,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Text:     "Hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "en", msg.SourceLanguage)
	assert.Equal(t, "Hello", msg.TranslatedText)
}

func TestSendText_TranslationFailureDeliversOriginal(t *testing.T) {
	env := createTestEnv(t, "es", "en")
	env.translator.failTranslate = true
	ctx := context.Background()

	msg, err := env.service.SendText(ctx, &TextMessage{
		Sender:   store.SenderClient,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Text:     "Hola",
	})
	require.NoError(t, err, "translation failure must not block delivery")

	assert.Equal(t, "Hola", msg.Text)
	assert.Equal(t, "Hola", msg.TranslatedText)

	// And it was persisted
	history, err := env.service.History(ctx, env.client.ID, env.agent.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hola", history[0].TranslatedText)
}

func TestSendText_DeliversToBothParticipants(t *testing.T) {
	env := createTestEnv(t, "es", "en")
	ctx := context.Background()

	clientCh, _ := env.presence.Join(t.Context(), env.client.ID)
	agentCh, _ := env.presence.Join(t.Context(), env.agent.ID)

	_, err := env.service.SendText(ctx, &TextMessage{
		Sender:   store.SenderClient,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Text:     "Hola",
	})
	require.NoError(t, err)

	for name, ch := range map[string]<-chan *presence.Event{"client": clientCh, "agent": agentCh} {
		select {
		case event := <-ch:
			assert.Equal(t, "newMessage", event.Name, "%s event", name)
			record, ok := event.Data.(*store.ChatMessage)
			require.True(t, ok)
			assert.Equal(t, "[en] Hola", record.TranslatedText)
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive the message", name)
		}
	}
}

func TestSendText_OfflineParticipantStillPersisted(t *testing.T) {
	env := createTestEnv(t, "es", "en")
	ctx := context.Background()

	// Nobody connected
	_, err := env.service.SendText(ctx, &TextMessage{
		Sender:   store.SenderAgent,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Text:     "Hello",
	})
	require.NoError(t, err)

	history, err := env.service.History(ctx, env.client.ID, env.agent.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSendText_UnknownClient(t *testing.T) {
	env := createTestEnv(t, "es", "en")

	_, err := env.service.SendText(context.Background(), &TextMessage{
		Sender:   store.SenderClient,
		ClientID: "missing",
		AgentID:  env.agent.ID,
		Text:     "Hola",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSendVoice_TranscribesAndTranslates(t *testing.T) {
	env := createTestEnv(t, "es", "en")
	env.translator.transcript = "hola amigo"
	ctx := context.Background()

	msg, err := env.service.SendVoice(ctx, &VoiceMessage{
		Sender:   store.SenderClient,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Audio:    []byte("fake-audio"),
		Filename: "note.webm",
		AudioURL: "/uploads/note.webm",
	})
	require.NoError(t, err)

	assert.True(t, msg.IsVoiceMessage)
	assert.Equal(t, "hola amigo", msg.Transcript)
	assert.Equal(t, "[en] hola amigo", msg.TranslatedText)
	assert.Equal(t, "/uploads/note.webm", msg.AudioURL)
}

func TestSendVoice_TranscriptionFailureStillDeliversAudio(t *testing.T) {
	env := createTestEnv(t, "es", "en")
	env.translator.failTranscribe = true
	ctx := context.Background()

	agentCh, _ := env.presence.Join(t.Context(), env.agent.ID)

	msg, err := env.service.SendVoice(ctx, &VoiceMessage{
		Sender:   store.SenderClient,
		ClientID: env.client.ID,
		AgentID:  env.agent.ID,
		Audio:    []byte("fake-audio"),
		Filename: "note.webm",
		AudioURL: "/uploads/note.webm",
	})
	require.NoError(t, err, "transcription failure must not block delivery")

	assert.Equal(t, "", msg.Transcript)
	assert.Equal(t, "", msg.TranslatedText)
	assert.Equal(t, "/uploads/note.webm", msg.AudioURL)

	select {
	case event := <-agentCh:
		record := event.Data.(*store.ChatMessage)
		assert.True(t, record.IsVoiceMessage)
		assert.Equal(t, "/uploads/note.webm", record.AudioURL)
	case <-time.After(time.Second):
		t.Fatal("agent did not receive the voice message")
	}
}

func TestHistory_ChronologicalAndShared(t *testing.T) {
	env := createTestEnv(t, "es", "en")
	ctx := context.Background()

	for _, text := range []string{"uno", "dos", "tres"} {
		_, err := env.service.SendText(ctx, &TextMessage{
			Sender:   store.SenderClient,
			ClientID: env.client.ID,
			AgentID:  env.agent.ID,
			Text:     text,
		})
		require.NoError(t, err)
	}

	history, err := env.service.History(ctx, env.client.ID, env.agent.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "uno", history[0].Text)
	assert.Equal(t, "tres", history[2].Text)
}

func TestNotifyTyping_EphemeralDelivery(t *testing.T) {
	env := createTestEnv(t, "es", "en")

	agentCh, _ := env.presence.Join(t.Context(), env.agent.ID)

	env.service.NotifyTyping(env.client.ID, env.agent.ID, true)

	select {
	case event := <-agentCh:
		assert.Equal(t, "typing", event.Name)
		payload := event.Data.(typingPayload)
		assert.Equal(t, env.client.ID, payload.From)
		assert.True(t, payload.Typing)
	case <-time.After(time.Second):
		t.Fatal("agent did not receive typing indicator")
	}

	// Nothing persisted
	history, err := env.service.History(context.Background(), env.client.ID, env.agent.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}
