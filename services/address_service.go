package services

import (
	"context"
	"errors"

	"commerce-api/apperr"
	"commerce-api/models"

	"gorm.io/gorm"
)

type AddressRequest struct {
	Type          string `json:"type" binding:"omitempty,oneof=home work billing shipping"`
	RecipientName string `json:"recipient_name" binding:"required,max=100"`
	Phone         string `json:"phone" binding:"omitempty,max=20"`
	Street        string `json:"street" binding:"required,max=255"`
	City          string `json:"city" binding:"required,max=100"`
	State         string `json:"state" binding:"required,max=100"`
	ZipCode       string `json:"zip_code" binding:"required,max=20"`
	Country       string `json:"country" binding:"required,max=100"`
	Landmark      string `json:"landmark" binding:"omitempty,max=255"`
	IsDefault     bool   `json:"is_default"`
}

// AddressService manages a user's address book. At most one address is the
// default at a time; setting a new default clears the old one in the same
// transaction.
type AddressService struct {
	db *gorm.DB
}

func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

func (s *AddressService) List(ctx context.Context, userID uint) ([]models.Address, error) {
	var addresses []models.Address
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternalServer, err)
	}
	return addresses, nil
}

func (s *AddressService) Create(ctx context.Context, userID uint, req AddressRequest) (*models.Address, error) {
	address := models.Address{
		UserID:        userID,
		Type:          req.Type,
		RecipientName: req.RecipientName,
		Phone:         req.Phone,
		Street:        req.Street,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		Country:       req.Country,
		Landmark:      req.Landmark,
		IsDefault:     req.IsDefault,
		IsActive:      true,
	}
	if address.Type == "" {
		address.Type = "home"
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Address{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Count(&count).Error; err != nil {
			return err
		}
		// First address becomes the default regardless of the request.
		if count == 0 {
			address.IsDefault = true
		} else if address.IsDefault {
			if err := s.clearDefault(tx, userID); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &address, nil
}

func (s *AddressService) Update(ctx context.Context, userID, addressID uint, req AddressRequest) (*models.Address, error) {
	var address models.Address

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ? AND is_active = ?", addressID, userID, true).
			First(&address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.WithMessage(apperr.ErrNotFound, "Address not found")
			}
			return err
		}

		if req.IsDefault && !address.IsDefault {
			if err := s.clearDefault(tx, userID); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"recipient_name": req.RecipientName,
			"phone":          req.Phone,
			"street":         req.Street,
			"city":           req.City,
			"state":          req.State,
			"zip_code":       req.ZipCode,
			"country":        req.Country,
			"landmark":       req.Landmark,
			"is_default":     req.IsDefault || address.IsDefault,
		}
		if req.Type != "" {
			updates["type"] = req.Type
		}
		if err := tx.Model(&address).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&address, addressID).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &address, nil
}

// Delete soft-deactivates the address. Orders keep their own flattened copy,
// so history is unaffected.
func (s *AddressService) Delete(ctx context.Context, userID, addressID uint) error {
	res := s.db.WithContext(ctx).Model(&models.Address{}).
		Where("id = ? AND user_id = ? AND is_active = ?", addressID, userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return apperr.Wrap(apperr.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.WithMessage(apperr.ErrNotFound, "Address not found")
	}
	return nil
}

func (s *AddressService) clearDefault(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
