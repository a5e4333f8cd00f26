package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"notaflow/internal/domain"
	"notaflow/internal/port"
)

// CreateTenantInput is the DTO for creating a tenant.
type CreateTenantInput struct {
	Name                  string   `json:"name" binding:"required"`
	Slug                  string   `json:"slug" binding:"required"`
	MinConfidence         *float64 `json:"min_confidence"`
	RequiredFields        []string `json:"required_fields"`
	MaxExtractionAttempts *int     `json:"max_extraction_attempts"`
}

// UpdateTenantInput is the DTO for updating a tenant.
type UpdateTenantInput struct {
	Name                  *string  `json:"name"`
	IsActive              *bool    `json:"is_active"`
	MinConfidence         *float64 `json:"min_confidence"`
	RequiredFields        []string `json:"required_fields"`
	MaxExtractionAttempts *int     `json:"max_extraction_attempts"`
}

// CreatedTenant pairs a new tenant with its plaintext API key. The key is
// shown once at creation; only its bcrypt hash is stored.
type CreatedTenant struct {
	Tenant *domain.Tenant `json:"tenant"`
	APIKey string         `json:"api_key"`
}

// TenantService defines the tenant management contract.
type TenantService interface {
	Create(ctx context.Context, input CreateTenantInput) (*CreatedTenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	List(ctx context.Context, offset, limit int) ([]domain.Tenant, int, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTenantInput) (*domain.Tenant, error)
}

type tenantService struct {
	repo port.TenantRepository
}

// NewTenantService creates a new TenantService implementation.
func NewTenantService(repo port.TenantRepository) TenantService {
	return &tenantService{repo: repo}
}

func (s *tenantService) Create(ctx context.Context, input CreateTenantInput) (*CreatedTenant, error) {
	apiKey, err := newAPIKey()
	if err != nil {
		return nil, fmt.Errorf("tenantService.Create: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("tenantService.Create: hashing api key: %w", err)
	}

	tenant := &domain.Tenant{
		Name:                  input.Name,
		Slug:                  input.Slug,
		APIKeyHash:            string(hash),
		IsActive:              true,
		MinConfidence:         input.MinConfidence,
		MaxExtractionAttempts: input.MaxExtractionAttempts,
	}
	if input.RequiredFields != nil {
		raw, err := json.Marshal(input.RequiredFields)
		if err != nil {
			return nil, fmt.Errorf("tenantService.Create: %w", err)
		}
		tenant.RequiredFieldsRaw = raw
	}

	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return &CreatedTenant{Tenant: tenant, APIKey: apiKey}, nil
}

func (s *tenantService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *tenantService) List(ctx context.Context, offset, limit int) ([]domain.Tenant, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *tenantService) Update(ctx context.Context, id uuid.UUID, input UpdateTenantInput) (*domain.Tenant, error) {
	tenant, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		tenant.Name = *input.Name
	}
	if input.IsActive != nil {
		tenant.IsActive = *input.IsActive
	}
	if input.MinConfidence != nil {
		tenant.MinConfidence = input.MinConfidence
	}
	if input.MaxExtractionAttempts != nil {
		tenant.MaxExtractionAttempts = input.MaxExtractionAttempts
	}
	if input.RequiredFields != nil {
		raw, err := json.Marshal(input.RequiredFields)
		if err != nil {
			return nil, fmt.Errorf("tenantService.Update: %w", err)
		}
		tenant.RequiredFieldsRaw = raw
	}

	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func newAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "nfk_" + hex.EncodeToString(buf), nil
}
