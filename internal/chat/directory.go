package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sujal-surani/NeuroNxt/internal/models"
)

const (
	previewDisconnected = "You have been disconnected"
	previewEmpty        = "Tap to start chatting"
	previewImage        = "Sent an image"
	previewFile         = "Sent a file"

	previewMaxRunes = 30
)

// BuildDirectory projects the directory query rows into contact entries for
// the given viewer. Conversations the viewer disconnected are dropped; ones
// the other party disconnected stay, flagged, with a forced preview. Entries
// are deduplicated by conversation id keeping the first occurrence, and
// pinned entries sort before unpinned ones without disturbing the query's
// updated_at order among equals.
func BuildDirectory(
	details []models.ConversationDetail,
	unread map[int64]int,
	userID uuid.UUID,
	now time.Time,
) []models.ContactEntry {
	entries := make([]models.ContactEntry, 0, len(details))
	seen := make(map[int64]struct{}, len(details))

	for i := range details {
		detail := &details[i]

		disconnected := detail.Status == models.ConversationDisconnected
		if disconnected && detail.DisconnectedBy != nil && *detail.DisconnectedBy == userID {
			continue
		}

		if _, dup := seen[detail.ID]; dup {
			continue
		}
		seen[detail.ID] = struct{}{}

		other := &detail.Participant2
		if detail.Participant2ID == userID {
			other = &detail.Participant1
		}

		status := models.PresenceOffline
		if !disconnected {
			status = other.Presence()
		}

		entries = append(entries, models.ContactEntry{
			ConversationID:  detail.ID,
			StudentID:       other.ID,
			Name:            other.FullName,
			Avatar:          avatarFor(other),
			Status:          status,
			LastMessage:     previewText(detail.LastMessage, disconnected),
			LastMessageTime: FormatMessageTime(detail.UpdatedAt, now),
			UnreadCount:     unread[detail.ID],
			IsPinned:        detail.PinnedFor(userID),
			IsDisconnected:  disconnected,
			Branch:          other.Branch,
			Semester:        other.Semester,
		})
	}

	SortPinnedFirst(entries)
	return entries
}

// SortPinnedFirst is the only comparator the directory applies: pinned before
// unpinned, stable otherwise.
func SortPinnedFirst(entries []models.ContactEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].IsPinned && !entries[j].IsPinned
	})
}

// BuildThread tags each message with the side that sent it, relative to the
// viewer.
func BuildThread(messages []models.Message, userID uuid.UUID) []models.ThreadMessage {
	thread := make([]models.ThreadMessage, 0, len(messages))
	for _, message := range messages {
		thread = append(thread, models.ThreadMessage{
			Message: message,
			Sender:  SenderTag(message.SenderID, userID),
		})
	}
	return thread
}

func SenderTag(senderID, userID uuid.UUID) string {
	if senderID == userID {
		return models.SenderUser
	}
	return models.SenderOther
}

func previewText(last *models.Message, disconnected bool) string {
	if disconnected {
		return previewDisconnected
	}
	if last == nil {
		return previewEmpty
	}
	switch last.Type {
	case models.MessageImage:
		return previewImage
	case models.MessageFile:
		return previewFile
	default:
		runes := []rune(last.Content)
		if len(runes) > previewMaxRunes {
			return string(runes[:previewMaxRunes]) + "..."
		}
		return last.Content
	}
}

// FormatMessageTime keeps the clock time for anything under a day old and
// falls back to the date beyond that.
func FormatMessageTime(ts time.Time, now time.Time) string {
	if now.Sub(ts) < 24*time.Hour {
		return ts.Format("3:04 PM")
	}
	return ts.Format("1/2/2006")
}

// Initials derives the avatar fallback from the display name: first letters
// of the leading words, at most two, upper-cased.
func Initials(name string) string {
	var initials []rune
	for _, field := range strings.Fields(name) {
		initials = append(initials, []rune(field)[0])
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		return "??"
	}
	return strings.ToUpper(string(initials))
}

func avatarFor(profile *models.Profile) string {
	if profile.AvatarURL != nil && *profile.AvatarURL != "" {
		return *profile.AvatarURL
	}
	return Initials(profile.FullName)
}
