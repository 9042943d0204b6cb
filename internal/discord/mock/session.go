// Package mock provides test doubles for Discord interaction testing.
package mock

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// InteractionResponder records interaction responses for test assertions.
type InteractionResponder struct {
	mu sync.Mutex

	// Responses records all InteractionRespond calls.
	Responses []*discordgo.InteractionResponse

	// Edits records all InteractionResponseEdit calls.
	Edits []*discordgo.WebhookEdit

	// Followups records all FollowupMessageCreate calls.
	Followups []*discordgo.WebhookParams

	// Err is returned by every method when non-nil.
	Err error

	seen *discordgo.InteractionResponse
}

// InteractionRespond records the response and returns the configured error.
func (m *InteractionResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, resp)
	m.seen = resp
	return m.Err
}

// InteractionResponseEdit records the edit. A deferred button press becomes
// an updated message, anything else a channel message.
func (m *InteractionResponder) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, edit)

	typ := discordgo.InteractionResponseChannelMessageWithSource
	if m.seen != nil && (m.seen.Type == discordgo.InteractionResponseDeferredMessageUpdate || m.seen.Type == discordgo.InteractionResponseUpdateMessage) {
		typ = discordgo.InteractionResponseUpdateMessage
	}
	data := &discordgo.InteractionResponseData{}
	if edit.Content != nil {
		data.Content = *edit.Content
	}
	if edit.Components != nil {
		data.Components = *edit.Components
	}
	m.seen = &discordgo.InteractionResponse{Type: typ, Data: data}
	return &discordgo.Message{Content: data.Content}, m.Err
}

// FollowupMessageCreate records the follow-up message.
func (m *InteractionResponder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, params *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Followups = append(m.Followups, params)
	m.seen = &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    params.Content,
			Components: params.Components,
			Flags:      params.Flags,
		},
	}
	return &discordgo.Message{Content: params.Content}, m.Err
}

// LastResponse returns the most recent InteractionRespond call, or nil.
func (m *InteractionResponder) LastResponse() *discordgo.InteractionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 {
		return nil
	}
	return m.Responses[len(m.Responses)-1]
}

// Shown returns what the user sees last: the latest response, or the edit
// or follow-up that completed a deferred one. Nil before any call.
func (m *InteractionResponder) Shown() *discordgo.InteractionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen
}

// LastContent returns the content of the most recent response, or "".
func (m *InteractionResponder) LastContent() string {
	resp := m.LastResponse()
	if resp == nil || resp.Data == nil {
		return ""
	}
	return resp.Data.Content
}

// Reset clears all recorded interactions and errors.
func (m *InteractionResponder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = nil
	m.Edits = nil
	m.Followups = nil
	m.Err = nil
	m.seen = nil
}

// Sent is one message recorded by [Messenger].
type Sent struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

// Messenger records direct messages. DM channel IDs are "dm-<userID>".
type Messenger struct {
	mu sync.Mutex

	// Messages records every successful send in call order.
	Messages []Sent

	// ChannelCreates counts UserChannelCreate calls.
	ChannelCreates int

	// ChannelErr is returned by UserChannelCreate when non-nil.
	ChannelErr error

	// SendErr maps a channel ID to the error returned for sends to it.
	SendErr map[string]error

	// Lookups counts ChannelMessage calls.
	Lookups int

	history map[string]*discordgo.Message
}

// Post makes msg visible to ChannelMessage, as if a user had sent it.
func (m *Messenger) Post(msg *discordgo.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.history == nil {
		m.history = make(map[string]*discordgo.Message)
	}
	m.history[msg.ChannelID+"/"+msg.ID] = msg
}

// ChannelMessage returns a message previously stored with Post.
func (m *Messenger) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups++
	msg, ok := m.history[channelID+"/"+messageID]
	if !ok {
		return nil, fmt.Errorf("unknown message %s in %s", messageID, channelID)
	}
	return msg, nil
}

// UserChannelCreate returns the DM channel for recipientID.
func (m *Messenger) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChannelCreates++
	if m.ChannelErr != nil {
		return nil, m.ChannelErr
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

// ChannelMessageSendComplex records data unless an error is configured for
// the channel.
func (m *Messenger) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.SendErr[channelID]; err != nil {
		return nil, err
	}
	m.Messages = append(m.Messages, Sent{ChannelID: channelID, Message: data})
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", len(m.Messages)), ChannelID: channelID, Content: data.Content}, nil
}

// To returns the messages sent to channelID, in order.
func (m *Messenger) To(channelID string) []*discordgo.MessageSend {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*discordgo.MessageSend
	for _, s := range m.Messages {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

// Contents returns the content of every message sent to channelID.
func (m *Messenger) Contents(channelID string) []string {
	msgs := m.To(channelID)
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Content
	}
	return out
}
