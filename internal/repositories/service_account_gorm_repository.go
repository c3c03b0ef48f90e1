package repositories

import (
	"errors"
	"fmt"

	"ordersvc/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMServiceAccountRepository is a GORM implementation of
// ServiceAccountRepository.
type GORMServiceAccountRepository struct {
	db *gorm.DB
}

// NewGORMServiceAccountRepository creates a new instance of
// GORMServiceAccountRepository.
func NewGORMServiceAccountRepository(db *gorm.DB) *GORMServiceAccountRepository {
	return &GORMServiceAccountRepository{
		db: db,
	}
}

// Create registers a new service account.
func (r *GORMServiceAccountRepository) Create(account *models.ServiceAccount) error {
	if account.ClientID == "" {
		account.ClientID = uuid.New().String()
	}
	if err := r.db.Create(account).Error; err != nil {
		return fmt.Errorf("failed to create service account: %w", err)
	}
	return nil
}

// GetByClientID retrieves a service account by its client id.
func (r *GORMServiceAccountRepository) GetByClientID(clientID string) (*models.ServiceAccount, error) {
	var account models.ServiceAccount
	if err := r.db.First(&account, "client_id = ?", clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("service account %s: %w", clientID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get service account %s: %w", clientID, err)
	}
	return &account, nil
}

// GetByName retrieves a service account by its registered name.
func (r *GORMServiceAccountRepository) GetByName(name string) (*models.ServiceAccount, error) {
	var account models.ServiceAccount
	if err := r.db.First(&account, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("service account named %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get service account named %s: %w", name, err)
	}
	return &account, nil
}
