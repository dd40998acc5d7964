package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"content-studio/internal/domain"
)

// GenerationConfig holds an owner's saved brand and style defaults.
// Requests that reference it inherit any field they leave empty.
type GenerationConfig struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Name      string          `json:"name"`
	Defaults  GenerationInput `json:"defaults"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func NewGenerationConfig(ownerID, name string, defaults GenerationInput) (*GenerationConfig, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &GenerationConfig{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Defaults:  defaults,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AccessibleBy reports whether ownerID may use this config.
func (c *GenerationConfig) AccessibleBy(ownerID string) bool {
	return c != nil && ownerID != "" && c.OwnerID == ownerID
}
