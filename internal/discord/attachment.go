package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/turnabout/internal/exchange"
)

// voiceMessageFlag marks a message recorded with Discord's voice message
// button.
const voiceMessageFlag discordgo.MessageFlags = 1 << 13

// maxUploadSize caps media re-uploaded on release. Larger files are sent as
// links.
const maxUploadSize = 25 << 20

var errTooLarge = errors.New("discord: attachment exceeds upload limit")

// ClassifyAttachment maps an attachment to a fragment kind. Audio on a voice
// message is a voice fragment, other audio is an audio fragment and video is
// a video note. Anything else is unsupported.
func ClassifyAttachment(a *discordgo.MessageAttachment, voice bool) (exchange.FragmentKind, bool) {
	if a == nil || a.URL == "" {
		return "", false
	}
	ct := strings.ToLower(a.ContentType)
	if ct == "" {
		ct = contentTypeOf(a.Filename)
	}
	switch {
	case strings.HasPrefix(ct, "audio/") && voice:
		return exchange.FragmentVoice, true
	case strings.HasPrefix(ct, "audio/"):
		return exchange.FragmentAudio, true
	case strings.HasPrefix(ct, "video/"):
		return exchange.FragmentVideoNote, true
	}
	return "", false
}

// mediaTypes covers the extensions Discord clients commonly upload without a
// content type. The system MIME table is consulted for the rest.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

func contentTypeOf(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	return strings.ToLower(mime.TypeByExtension(ext))
}

// attachmentScheme prefixes a persisted [AttachmentRef].
const attachmentScheme = "discord-attachment:"

// AttachmentRef locates an uploaded file by the message carrying it. Discord
// CDN links are signed and expire after about a day, while an open exchange
// may wait much longer, so fragments store this reference and the link is
// looked up again on release.
type AttachmentRef struct {
	ChannelID    string
	MessageID    string
	AttachmentID string
}

// String encodes the reference as a fragment file reference.
func (r AttachmentRef) String() string {
	return attachmentScheme + r.ChannelID + "/" + r.MessageID + "/" + r.AttachmentID
}

// ParseAttachmentRef decodes a file reference written by
// [AttachmentRef.String]. Plain URLs report false.
func ParseAttachmentRef(s string) (AttachmentRef, bool) {
	rest, ok := strings.CutPrefix(s, attachmentScheme)
	if !ok {
		return AttachmentRef{}, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return AttachmentRef{}, false
	}
	return AttachmentRef{ChannelID: parts[0], MessageID: parts[1], AttachmentID: parts[2]}, true
}

// fileRef returns the reference stored for attachment a of message m. The
// raw URL is used only when the message cannot be addressed.
func fileRef(m *discordgo.Message, a *discordgo.MessageAttachment) string {
	if m.ChannelID == "" || m.ID == "" || a.ID == "" {
		return a.URL
	}
	return AttachmentRef{ChannelID: m.ChannelID, MessageID: m.ID, AttachmentID: a.ID}.String()
}

// FragmentsFromMessage converts a direct message into answer fragments in
// display order. The message text becomes the caption of the first voice or
// audio attachment; if there is none it becomes a leading text fragment.
// Unsupported attachments are skipped. An empty result means nothing in the
// message can be used as an answer.
func FragmentsFromMessage(m *discordgo.Message) []exchange.Fragment {
	if m == nil {
		return nil
	}
	content := strings.TrimSpace(m.Content)
	voice := m.Flags&voiceMessageFlag != 0

	var media []exchange.Fragment
	for _, a := range m.Attachments {
		kind, ok := ClassifyAttachment(a, voice)
		if !ok {
			continue
		}
		ref := fileRef(m, a)
		switch kind {
		case exchange.FragmentVoice:
			media = append(media, exchange.VoiceFragment(ref, ""))
		case exchange.FragmentAudio:
			media = append(media, exchange.AudioFragment(ref, ""))
		case exchange.FragmentVideoNote:
			media = append(media, exchange.VideoNoteFragment(ref))
		}
	}

	if content != "" {
		for i := range media {
			if media[i].Kind == exchange.FragmentVoice || media[i].Kind == exchange.FragmentAudio {
				media[i].Caption = content
				content = ""
				break
			}
		}
	}
	if content == "" {
		return media
	}
	return append([]exchange.Fragment{exchange.TextFragment(content)}, media...)
}

// fetchAttachment downloads media from link for re-upload as name.
func fetchAttachment(ctx context.Context, client *http.Client, link, name string) (*discordgo.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("discord: create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord: download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord: download attachment: status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxUploadSize {
		return nil, errTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("discord: read attachment: %w", err)
	}
	if len(data) > maxUploadSize {
		return nil, errTooLarge
	}
	return &discordgo.File{
		Name:        name,
		ContentType: resp.Header.Get("Content-Type"),
		Reader:      bytes.NewReader(data),
	}, nil
}

// attachmentName derives an upload filename from a download link, falling
// back to a name matching the fragment kind.
func attachmentName(link string, kind exchange.FragmentKind) string {
	if u, err := url.Parse(link); err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}
	switch kind {
	case exchange.FragmentVoice:
		return "voice-message.ogg"
	case exchange.FragmentVideoNote:
		return "video-note.mp4"
	default:
		return "audio"
	}
}
