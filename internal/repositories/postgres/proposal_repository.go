package postgres

import (
	"pairplan-service/internal/models"

	"gorm.io/gorm"
)

type ProposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) *ProposalRepository {
	return &ProposalRepository{db}
}

func (r *ProposalRepository) Create(p *models.Proposal) error {
	return r.db.Create(p).Error
}

func (r *ProposalRepository) Update(p *models.Proposal) error {
	return r.db.Save(p).Error
}

func (r *ProposalRepository) GetByID(proposalID uint) (*models.Proposal, error) {
	var p models.Proposal
	err := r.db.Preload("ProposedTimes").First(&p, proposalID).Error
	return &p, err
}

// GetForUser returns proposals sent or received by the user, newest first
func (r *ProposalRepository) GetForUser(userID uint) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.
		Preload("ProposedTimes").
		Where("proposed_by = ? OR proposed_to = ?", userID, userID).
		Order("created_at DESC").
		Find(&proposals).Error
	return proposals, err
}

func (r *ProposalRepository) Delete(proposalID uint) error {
	result := r.db.Delete(&models.Proposal{}, proposalID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
