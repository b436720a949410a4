package postgres

import (
	"errors"

	"pairplan-service/internal/models"

	"gorm.io/gorm"
)

type PartnershipRepository struct {
	db *gorm.DB
}

func NewPartnershipRepository(db *gorm.DB) *PartnershipRepository {
	return &PartnershipRepository{db: db}
}

func (r *PartnershipRepository) Create(p *models.Partnership) error {
	return r.db.Create(p).Error
}

func (r *PartnershipRepository) Update(p *models.Partnership) error {
	return r.db.Save(p).Error
}

// FindActiveByUser returns the accepted partnership a user belongs to, if any
func (r *PartnershipRepository) FindActiveByUser(userID uint) (*models.Partnership, error) {
	var p models.Partnership
	err := r.db.
		Where("(user1_id = ? OR user2_id = ?) AND status = ?", userID, userID, models.PartnershipAccepted).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindPendingForUser returns invites awaiting the user's response
func (r *PartnershipRepository) FindPendingForUser(userID uint) ([]models.Partnership, error) {
	var invites []models.Partnership
	err := r.db.
		Where("(user1_id = ? OR user2_id = ?) AND status = ? AND invited_by != ?",
			userID, userID, models.PartnershipPending, userID).
		Find(&invites).Error
	return invites, err
}

// FindAnyBetween returns any non-declined partnership record between two users
func (r *PartnershipRepository) FindAnyBetween(userA, userB uint) (*models.Partnership, error) {
	var p models.Partnership
	err := r.db.
		Where("((user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)) AND status != ?",
			userA, userB, userB, userA, models.PartnershipDeclined).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PartnershipRepository) FindByID(id uint) (*models.Partnership, error) {
	var p models.Partnership
	err := r.db.First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PartnershipRepository) Delete(id uint) error {
	result := r.db.Delete(&models.Partnership{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
