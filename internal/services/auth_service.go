package services

import (
	"fmt"
	"log"
	"time"

	"ordersvc/internal/models"
	"ordersvc/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues and validates tokens for caller services. Every
// service allowed to use the HTTP surface holds a credential record and
// exchanges it for a short-lived JWT.
type AuthService struct {
	accountRepo repositories.ServiceAccountRepository
	jwtSecret   []byte
	tokenTTL    time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(accountRepo repositories.ServiceAccountRepository, jwtSecret string) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    24 * time.Hour,
	}
}

// RegisterService registers a caller service, hashing its secret before it
// is stored. The plaintext secret never leaves this function.
func (s *AuthService) RegisterService(account *models.ServiceAccount, secret string) error {
	if existing, err := s.accountRepo.GetByName(account.Name); err == nil && existing != nil {
		return fmt.Errorf("service name '%s' already registered", account.Name)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash secret: %w", err)
	}
	account.SecretHash = string(hash)

	if err := s.accountRepo.Create(account); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	return nil
}

// IssueToken authenticates a caller service by client id and secret and
// returns a signed JWT.
func (s *AuthService) IssueToken(clientID, secret string) (string, error) {
	account, err := s.accountRepo.GetByClientID(clientID)
	if err != nil {
		// Do not reveal whether the client id exists.
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.SecretHash), []byte(secret)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client_id": account.ClientID,
		"service":   account.Name,
		"exp":       time.Now().Add(s.tokenTTL).Unix(),
		"iat":       time.Now().Unix(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
