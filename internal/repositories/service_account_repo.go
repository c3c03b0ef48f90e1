package repositories

import "ordersvc/internal/models"

// ServiceAccountRepository defines the interface for caller-service
// credential data access.
type ServiceAccountRepository interface {
	Create(account *models.ServiceAccount) error
	GetByClientID(clientID string) (*models.ServiceAccount, error)
	GetByName(name string) (*models.ServiceAccount, error)
}
