package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pairplan-service/internal/models"
	"pairplan-service/internal/realtime"
	"pairplan-service/internal/repositories/postgres"
)

var (
	ErrAlreadyPartnered   = errors.New("user already has a partner")
	ErrCannotInviteSelf   = errors.New("cannot invite yourself")
	ErrInviteNotFound     = errors.New("invitation not found")
	ErrNotInviteRecipient = errors.New("only the invited user can respond")
	ErrNoPartner          = errors.New("no partner connected")
)

type PartnerService struct {
	partnerships *postgres.PartnershipRepository
	users        *postgres.UserRepository
	dispatcher   *realtime.Dispatcher
}

func NewPartnerService(partnerships *postgres.PartnershipRepository, users *postgres.UserRepository, dispatcher *realtime.Dispatcher) *PartnerService {
	return &PartnerService{
		partnerships: partnerships,
		users:        users,
		dispatcher:   dispatcher,
	}
}

// PartnerID returns the accepted partner of userID, or ErrNoPartner
func (s *PartnerService) PartnerID(userID uint) (uint, error) {
	p, err := s.partnerships.FindActiveByUser(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up partnership: %w", err)
	}
	if p == nil {
		return 0, ErrNoPartner
	}
	return p.OtherUser(userID), nil
}

// GetPartner returns the connected partner's profile, or the pending invite
// state when no partnership has been accepted yet
func (s *PartnerService) GetPartner(userID uint) (*models.PartnerResponse, error) {
	p, err := s.partnerships.FindActiveByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up partnership: %w", err)
	}
	if p == nil {
		return nil, ErrNoPartner
	}

	partner, err := s.users.FindByID(p.OtherUser(userID))
	if err != nil {
		return nil, ErrUserNotFound
	}

	return &models.PartnerResponse{
		ID:              partner.ID,
		DisplayName:     partner.DisplayName,
		ColorPreference: partner.ColorPreference,
		Timezone:        partner.Timezone,
		InviteStatus:    p.Status,
		ConnectedAt:     p.AcceptedAt,
	}, nil
}

// PendingInvites returns invites awaiting the user's response
func (s *PartnerService) PendingInvites(userID uint) ([]models.Partnership, error) {
	return s.partnerships.FindPendingForUser(userID)
}

// Invite creates a pending partnership toward the user registered with email
func (s *PartnerService) Invite(inviterID uint, email string) (*models.Partnership, error) {
	invitee, err := s.users.FindByEmail(email)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if invitee.ID == inviterID {
		return nil, ErrCannotInviteSelf
	}

	for _, id := range []uint{inviterID, invitee.ID} {
		active, err := s.partnerships.FindActiveByUser(id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up partnership: %w", err)
		}
		if active != nil {
			return nil, ErrAlreadyPartnered
		}
	}

	existing, err := s.partnerships.FindAnyBetween(inviterID, invitee.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up partnership: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyPartnered
	}

	p := &models.Partnership{
		User1ID:   inviterID,
		User2ID:   invitee.ID,
		Status:    models.PartnershipPending,
		InvitedBy: inviterID,
	}
	if err := s.partnerships.Create(p); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	slog.Info("partner invitation sent", "inviterId", inviterID, "inviteeId", invitee.ID)
	return p, nil
}

// Accept marks the invitation accepted and notifies both presence channels
func (s *PartnerService) Accept(userID, partnershipID uint) (*models.PartnerResponse, error) {
	p, err := s.partnerships.FindByID(partnershipID)
	if err != nil {
		return nil, ErrInviteNotFound
	}
	if p.Status != models.PartnershipPending {
		return nil, ErrInviteNotFound
	}
	if p.InvitedBy == userID || (p.User1ID != userID && p.User2ID != userID) {
		return nil, ErrNotInviteRecipient
	}

	now := time.Now()
	p.Status = models.PartnershipAccepted
	p.AcceptedAt = &now
	if err := s.partnerships.Update(p); err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	// Both sides learn about their new partner
	accepter, err := s.users.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	inviter, err := s.users.FindByID(p.OtherUser(userID))
	if err != nil {
		return nil, ErrUserNotFound
	}

	s.dispatcher.PartnerConnected(inviter.ID, accepter.ToResponse())
	s.dispatcher.PartnerConnected(accepter.ID, inviter.ToResponse())

	slog.Info("partnership accepted", "partnershipId", p.ID, "accepterId", userID)

	return &models.PartnerResponse{
		ID:              inviter.ID,
		DisplayName:     inviter.DisplayName,
		ColorPreference: inviter.ColorPreference,
		Timezone:        inviter.Timezone,
		InviteStatus:    p.Status,
		ConnectedAt:     p.AcceptedAt,
	}, nil
}

// Decline rejects a pending invitation
func (s *PartnerService) Decline(userID, partnershipID uint) error {
	p, err := s.partnerships.FindByID(partnershipID)
	if err != nil {
		return ErrInviteNotFound
	}
	if p.Status != models.PartnershipPending {
		return ErrInviteNotFound
	}
	if p.InvitedBy == userID || (p.User1ID != userID && p.User2ID != userID) {
		return ErrNotInviteRecipient
	}

	p.Status = models.PartnershipDeclined
	if err := s.partnerships.Update(p); err != nil {
		return fmt.Errorf("failed to decline invitation: %w", err)
	}
	return nil
}

// Disconnect dissolves the accepted partnership and notifies the other side
func (s *PartnerService) Disconnect(userID uint) error {
	p, err := s.partnerships.FindActiveByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to look up partnership: %w", err)
	}
	if p == nil {
		return ErrNoPartner
	}

	otherID := p.OtherUser(userID)
	if err := s.partnerships.Delete(p.ID); err != nil {
		return fmt.Errorf("failed to disconnect partnership: %w", err)
	}

	s.dispatcher.PartnerDisconnected(otherID, map[string]uint{"userId": userID})
	slog.Info("partnership disconnected", "partnershipId", p.ID, "byUserId", userID)
	return nil
}
