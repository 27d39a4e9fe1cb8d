package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

func detailWith(id int64, me, other uuid.UUID, otherName string) models.ConversationDetail {
	return models.ConversationDetail{
		Conversation: models.Conversation{
			ID:             id,
			Participant1ID: me,
			Participant2ID: other,
			Status:         models.ConversationActive,
			UpdatedAt:      time.Now().UTC(),
		},
		Participant1: models.Profile{ID: me, FullName: "Me Myself"},
		Participant2: models.Profile{ID: other, FullName: otherName},
	}
}

func TestBuildDirectoryHidesConversationsTheViewerDisconnected(t *testing.T) {
	me := uuid.New()
	other := uuid.New()

	detail := detailWith(1, me, other, "Asha Patel")
	detail.Status = models.ConversationDisconnected
	detail.DisconnectedBy = &me

	entries := BuildDirectory([]models.ConversationDetail{detail}, nil, me, time.Now())
	if len(entries) != 0 {
		t.Fatalf("expected empty directory, got %d entries", len(entries))
	}
}

func TestBuildDirectoryFlagsConversationsTheOtherPartyDisconnected(t *testing.T) {
	me := uuid.New()
	other := uuid.New()

	detail := detailWith(1, me, other, "Asha Patel")
	detail.Status = models.ConversationDisconnected
	detail.DisconnectedBy = &other
	online := models.PresenceOnline
	detail.Participant2.Status = online
	detail.LastMessage = &models.Message{Content: "bye", Type: models.MessageText}

	entries := BuildDirectory([]models.ConversationDetail{detail}, nil, me, time.Now())
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	if !entry.IsDisconnected {
		t.Fatal("expected entry to be flagged disconnected")
	}
	if entry.LastMessage != "You have been disconnected" {
		t.Fatalf("unexpected preview: %q", entry.LastMessage)
	}
	if entry.Status != models.PresenceOffline {
		t.Fatalf("expected forced offline status, got %q", entry.Status)
	}
}

func TestBuildDirectoryDeduplicatesByConversation(t *testing.T) {
	me := uuid.New()
	other := uuid.New()

	first := detailWith(1, me, other, "Asha Patel")
	duplicate := detailWith(1, me, other, "Asha Patel")

	entries := BuildDirectory([]models.ConversationDetail{first, duplicate}, nil, me, time.Now())
	if len(entries) != 1 {
		t.Fatalf("expected one entry after dedupe, got %d", len(entries))
	}
}

func TestBuildDirectoryPicksOtherParticipant(t *testing.T) {
	me := uuid.New()
	other := uuid.New()

	// Viewer stored as participant2.
	detail := models.ConversationDetail{
		Conversation: models.Conversation{
			ID:             4,
			Participant1ID: other,
			Participant2ID: me,
			Status:         models.ConversationActive,
			UpdatedAt:      time.Now().UTC(),
		},
		Participant1: models.Profile{ID: other, FullName: "Ravi Kumar"},
		Participant2: models.Profile{ID: me, FullName: "Me Myself"},
	}

	entries := BuildDirectory([]models.ConversationDetail{detail}, nil, me, time.Now())
	if len(entries) != 1 || entries[0].Name != "Ravi Kumar" {
		t.Fatalf("expected entry for Ravi Kumar, got %+v", entries)
	}
	if entries[0].StudentID != other {
		t.Fatalf("expected student id %s, got %s", other, entries[0].StudentID)
	}
}

func TestBuildDirectorySortsPinnedFirstKeepingOrder(t *testing.T) {
	me := uuid.New()

	a := detailWith(1, me, uuid.New(), "First")
	b := detailWith(2, me, uuid.New(), "Second")
	b.PinnedBy = []uuid.UUID{me}
	c := detailWith(3, me, uuid.New(), "Third")
	d := detailWith(4, me, uuid.New(), "Fourth")
	d.PinnedBy = []uuid.UUID{me}

	entries := BuildDirectory([]models.ConversationDetail{a, b, c, d}, nil, me, time.Now())
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.Name)
	}
	want := []string{"Second", "Fourth", "First", "Third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v", got)
		}
	}
}

func TestBuildDirectoryUnreadCounts(t *testing.T) {
	me := uuid.New()
	detail := detailWith(7, me, uuid.New(), "Asha Patel")

	entries := BuildDirectory([]models.ConversationDetail{detail}, map[int64]int{7: 4}, me, time.Now())
	if entries[0].UnreadCount != 4 {
		t.Fatalf("expected unread 4, got %d", entries[0].UnreadCount)
	}
}

func TestPreviewText(t *testing.T) {
	cases := []struct {
		name string
		last *models.Message
		want string
	}{
		{"no message", nil, "Tap to start chatting"},
		{"image", &models.Message{Type: models.MessageImage}, "Sent an image"},
		{"file", &models.Message{Type: models.MessageFile}, "Sent a file"},
		{"short text", &models.Message{Type: models.MessageText, Content: "hello"}, "hello"},
		{
			"long text",
			&models.Message{Type: models.MessageText, Content: "this message is far too long to show in the list"},
			"this message is far too long t...",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := previewText(tc.last, false); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFormatMessageTime(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	recent := time.Date(2026, 3, 2, 9, 4, 0, 0, time.UTC)
	if got := FormatMessageTime(recent, now); got != "9:04 AM" {
		t.Fatalf("expected clock time, got %q", got)
	}

	old := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	if got := FormatMessageTime(old, now); got != "2/20/2026" {
		t.Fatalf("expected date, got %q", got)
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"Asha Patel":       "AP",
		"ravi":             "R",
		"Mira Devi Sharma": "MD",
		"":                 "??",
		"  ":               "??",
	}
	for name, want := range cases {
		if got := Initials(name); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestBuildThreadTagsSenders(t *testing.T) {
	me := uuid.New()
	other := uuid.New()

	thread := BuildThread([]models.Message{
		{ID: 1, SenderID: me},
		{ID: 2, SenderID: other},
	}, me)

	if thread[0].Sender != models.SenderUser {
		t.Fatalf("expected own message tagged user, got %q", thread[0].Sender)
	}
	if thread[1].Sender != models.SenderOther {
		t.Fatalf("expected other message tagged other, got %q", thread[1].Sender)
	}
}
