package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// VerifyService proves Lodestone profile ownership: the member places a
// one-time token in their character bio and we read it back.
type VerifyService struct {
	members MemberStore
	bios    ProfileBioReader
}

func NewVerifyService(members MemberStore, bios ProfileBioReader) *VerifyService {
	return &VerifyService{members: members, bios: bios}
}

// Begin issues a fresh verification token for the member and stages it.
// Calling again replaces any earlier token.
func (s *VerifyService) Begin(ctx context.Context, discordID string) (string, error) {
	token := uuid.NewString()
	if err := s.members.SetVerificationToken(ctx, discordID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Complete checks the claimed profile's bio for the staged token. On a match
// the profile is linked and the token consumed; on a miss nothing changes and
// the member can edit their bio and try again.
func (s *VerifyService) Complete(ctx context.Context, discordID, lodestoneID string) (bool, error) {
	token, err := s.members.VerificationToken(ctx, discordID)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	bio, err := s.bios.CharacterBio(ctx, lodestoneID)
	if err != nil {
		return false, err
	}
	if !strings.Contains(strings.ToLower(bio), strings.ToLower(token)) {
		return false, nil
	}

	if err := s.members.SetLodestoneID(ctx, discordID, lodestoneID); err != nil {
		return false, err
	}
	return true, nil
}
