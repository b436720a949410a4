package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pairplan-service/internal/models"
	"pairplan-service/internal/realtime"
	"pairplan-service/internal/repositories/postgres"
)

var (
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrProposalForbidden    = errors.New("no access to this proposal")
	ErrNotProposalRecipient = errors.New("only the recipient can respond to a proposal")
	ErrProposalNotPending   = errors.New("proposal has already been answered")
	ErrSlotNotFound         = errors.New("time slot does not belong to this proposal")
	ErrNotPartner           = errors.New("proposals can only be sent to your partner")
)

// ProposalService handles meeting-time proposals between partners. Accepting a
// proposal picks one of its time slots and turns it into a shared event.
type ProposalService struct {
	proposals  *postgres.ProposalRepository
	events     *EventService
	partners   *PartnerService
	dispatcher *realtime.Dispatcher
}

func NewProposalService(proposals *postgres.ProposalRepository, events *EventService, partners *PartnerService, dispatcher *realtime.Dispatcher) *ProposalService {
	return &ProposalService{
		proposals:  proposals,
		events:     events,
		partners:   partners,
		dispatcher: dispatcher,
	}
}

func (s *ProposalService) List(userID uint) ([]models.Proposal, error) {
	proposals, err := s.proposals.GetForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, nil
}

func (s *ProposalService) Get(userID, proposalID uint) (*models.Proposal, error) {
	p, err := s.proposals.GetByID(proposalID)
	if err != nil {
		return nil, ErrProposalNotFound
	}
	if p.ProposedBy != userID && p.ProposedTo != userID {
		return nil, ErrProposalForbidden
	}
	return p, nil
}

func (s *ProposalService) Create(userID uint, req *models.CreateProposalRequest) (*models.Proposal, error) {
	partnerID, err := s.partners.PartnerID(userID)
	if err != nil {
		return nil, ErrNotPartner
	}
	if req.ProposedTo != partnerID {
		return nil, ErrNotPartner
	}

	slots := make([]models.TimeSlot, 0, len(req.ProposedTimes))
	for _, t := range req.ProposedTimes {
		if !t.EndTime.After(t.StartTime) {
			return nil, ErrInvalidTimeRange
		}
		slots = append(slots, models.TimeSlot{StartTime: t.StartTime, EndTime: t.EndTime})
	}

	p := &models.Proposal{
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		ProposedBy:    userID,
		ProposedTo:    req.ProposedTo,
		Status:        models.ProposalPending,
		ProposedTimes: slots,
	}
	if err := s.proposals.Create(p); err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}

	s.dispatcher.ProposalCreated(p.ProposedTo, p)
	slog.Info("proposal created", "proposalId", p.ID, "proposedBy", userID, "proposedTo", p.ProposedTo)
	return p, nil
}

// Accept picks one of the proposed slots, creates the shared event, and
// notifies the proposer
func (s *ProposalService) Accept(ctx context.Context, userID, proposalID, slotID uint) (*models.Proposal, *models.EventResponse, error) {
	p, err := s.proposals.GetByID(proposalID)
	if err != nil {
		return nil, nil, ErrProposalNotFound
	}
	if p.ProposedTo != userID {
		return nil, nil, ErrNotProposalRecipient
	}
	if p.Status != models.ProposalPending {
		return nil, nil, ErrProposalNotPending
	}

	var slot *models.TimeSlot
	for i := range p.ProposedTimes {
		if p.ProposedTimes[i].ID == slotID {
			slot = &p.ProposedTimes[i]
			break
		}
	}
	if slot == nil {
		return nil, nil, ErrSlotNotFound
	}

	p.Status = models.ProposalAccepted
	p.AcceptedSlotID = &slotID
	if err := s.proposals.Update(p); err != nil {
		return nil, nil, fmt.Errorf("failed to accept proposal: %w", err)
	}

	event, err := s.events.Create(ctx, userID, &models.CreateEventRequest{
		Title:       p.Title,
		Description: p.Description,
		Location:    p.Location,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Visibility:  models.VisibilityShared,
		Attendees:   []uint{p.ProposedBy, p.ProposedTo},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create event from proposal: %w", err)
	}

	s.dispatcher.ProposalUpdated(p.ProposedBy, p)
	slog.Info("proposal accepted", "proposalId", p.ID, "slotId", slotID, "eventId", event.ID)
	return p, event, nil
}

func (s *ProposalService) Decline(userID, proposalID uint) (*models.Proposal, error) {
	p, err := s.proposals.GetByID(proposalID)
	if err != nil {
		return nil, ErrProposalNotFound
	}
	if p.ProposedTo != userID {
		return nil, ErrNotProposalRecipient
	}
	if p.Status != models.ProposalPending {
		return nil, ErrProposalNotPending
	}

	p.Status = models.ProposalDeclined
	if err := s.proposals.Update(p); err != nil {
		return nil, fmt.Errorf("failed to decline proposal: %w", err)
	}

	s.dispatcher.ProposalUpdated(p.ProposedBy, p)
	return p, nil
}
