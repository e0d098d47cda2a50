package webhooks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fjmerc/filesender-client/internal/utils"
)

// TransformPayload transforms a webhook event into the specified format
func TransformPayload(event *Event, format WebhookFormat) (string, error) {
	switch format {
	case FormatGotify:
		return transformToGotify(event)
	case FormatNtfy:
		return transformToNtfy(event)
	case FormatDiscord:
		return transformToDiscord(event)
	case FormatJSON, "":
		return event.ToJSON()
	default:
		return "", fmt.Errorf("unsupported webhook format: %s", format)
	}
}

// transformToGotify transforms an event to Gotify message format
func transformToGotify(event *Event) (string, error) {
	payload := map[string]interface{}{
		"title":    "FileSender: " + eventTitle(event),
		"message":  formatMarkdownMessage(event),
		"priority": getGotifyPriority(event),
		"extras": map[string]interface{}{
			"client::display": map[string]string{
				"contentType": "text/markdown",
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Gotify payload: %w", err)
	}

	return string(data), nil
}

// eventTitle returns a short human title for the event
func eventTitle(event *Event) string {
	switch event.Type {
	case EventTransferCompleted:
		return "Transfer Completed"
	case EventTransferFailed:
		return "Transfer Failed"
	case EventTransferStopped:
		return "Transfer Stopped"
	default:
		return "Transfer Event"
	}
}

// formatMarkdownMessage creates a markdown body shared by Gotify and Discord
func formatMarkdownMessage(event *Event) string {
	tr := event.Transfer
	var b strings.Builder

	fmt.Fprintf(&b, "**Transfer %s**: %d file(s), %s\n\n", tr.ID, len(tr.Files), utils.FormatBytes(tr.Size))
	switch event.Type {
	case EventTransferCompleted:
		fmt.Fprintf(&b, "**Recipients:** %s\n**Expires:** %s\n**Took:** %s",
			strings.Join(tr.Recipients, ", "),
			tr.Expires.Format("2006-01-02"),
			formatElapsed(tr.Elapsed))
	case EventTransferFailed:
		reason := "Unknown error"
		if tr.Error != nil {
			reason = *tr.Error
		}
		fmt.Fprintf(&b, "**Uploaded:** %s of %s\n**Error:** `%s`",
			utils.FormatBytes(tr.Uploaded),
			utils.FormatBytes(tr.Size),
			reason)
	case EventTransferStopped:
		fmt.Fprintf(&b, "**Uploaded:** %s of %s before stopping",
			utils.FormatBytes(tr.Uploaded),
			utils.FormatBytes(tr.Size))
	}
	return b.String()
}

// getGotifyPriority returns priority level for Gotify (0-10)
func getGotifyPriority(event *Event) int {
	switch event.Type {
	case EventTransferFailed:
		return 8
	case EventTransferStopped:
		return 3
	default:
		return 5
	}
}

// transformToNtfy transforms an event to ntfy.sh format
func transformToNtfy(event *Event) (string, error) {
	tr := event.Transfer
	message := fmt.Sprintf("Transfer %s: %d file(s), %s", tr.ID, len(tr.Files), utils.FormatBytes(tr.Size))
	if event.Type == EventTransferFailed && tr.Error != nil {
		message += "\nError: " + *tr.Error
	}

	payload := map[string]interface{}{
		"topic":    "filesender", // Users should configure the URL with their topic
		"title":    eventTitle(event),
		"message":  message,
		"tags":     getNtfyTags(event),
		"priority": getNtfyPriority(event),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ntfy payload: %w", err)
	}

	return string(data), nil
}

// getNtfyTags returns emoji tags for ntfy notifications
func getNtfyTags(event *Event) []string {
	switch event.Type {
	case EventTransferCompleted:
		return []string{"white_check_mark"}
	case EventTransferFailed:
		return []string{"x"}
	case EventTransferStopped:
		return []string{"stop_sign"}
	default:
		return []string{"file_folder"}
	}
}

// getNtfyPriority returns priority level for ntfy (1-5)
func getNtfyPriority(event *Event) int {
	switch event.Type {
	case EventTransferFailed:
		return 4
	case EventTransferStopped:
		return 2
	default:
		return 3
	}
}

// transformToDiscord transforms an event to Discord webhook format
func transformToDiscord(event *Event) (string, error) {
	embed := map[string]interface{}{
		"title":       eventTitle(event),
		"description": formatMarkdownMessage(event),
		"color":       getDiscordColor(event),
		"timestamp":   event.Timestamp.Format(time.RFC3339),
		"footer": map[string]string{
			"text": "FileSender",
		},
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{embed},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	return string(data), nil
}

// getDiscordColor returns color code for Discord embeds (decimal)
func getDiscordColor(event *Event) int {
	switch event.Type {
	case EventTransferCompleted:
		return 3066993 // Green
	case EventTransferFailed:
		return 15158332 // Red
	case EventTransferStopped:
		return 15844367 // Gold
	default:
		return 9807270 // Gray
	}
}

func formatElapsed(seconds float64) string {
	return (time.Duration(seconds * float64(time.Second))).Round(time.Millisecond).String()
}
