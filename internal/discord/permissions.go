package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/turnabout/internal/exchange"
)

// PermissionChecker guards destructive commands behind an admin role.
type PermissionChecker struct {
	adminRoleID string
}

// NewPermissionChecker creates a PermissionChecker with the given admin role ID.
func NewPermissionChecker(adminRoleID string) *PermissionChecker {
	return &PermissionChecker{adminRoleID: adminRoleID}
}

// CanReset reports whether the interaction author may clear the completion
// ledger. With no admin role configured everyone may. Otherwise the author
// must be a guild member holding the role, so direct-message interactions
// are refused.
func (p *PermissionChecker) CanReset(i *discordgo.InteractionCreate) bool {
	if p.adminRoleID == "" {
		return true
	}
	if i.Member == nil {
		return false
	}
	return slices.Contains(i.Member.Roles, p.adminRoleID)
}

// Participant returns the exchange identity of the interaction author:
// the member's user in guilds, the user in direct messages.
func Participant(i *discordgo.InteractionCreate) exchange.ParticipantID {
	if i.Member != nil && i.Member.User != nil {
		return exchange.ParticipantID(i.Member.User.ID)
	}
	if i.User != nil {
		return exchange.ParticipantID(i.User.ID)
	}
	return ""
}
