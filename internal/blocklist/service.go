// Package blocklist keeps the IP addresses refused by the checkout form.
package blocklist

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BlockInput describes a new block. TransactionID is informational only.
type BlockInput struct {
	IPAddress     string     `json:"ip_address" validate:"required"`
	TransactionID *uuid.UUID `json:"transaction_id"`
	RedirectURL   string     `json:"redirect_url" validate:"omitempty,url"`
}

type Service struct {
	repo Repository
	tx   txRunner
}

func NewService(repo Repository, tx txRunner) (*Service, error) {
	if repo == nil {
		return nil, errors.New("blocklist repository required")
	}
	if tx == nil {
		return nil, errors.New("tx runner required")
	}
	return &Service{repo: repo, tx: tx}, nil
}

// Check returns the authoritative block for ip, or nil when the address may proceed.
func (s *Service) Check(ctx context.Context, ip string) (*models.BlockedIP, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, nil
	}
	row, err := s.repo.ActiveFor(ctx, ip)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check blocked ip")
	}
	return row, nil
}

// Block inserts a block unless the address already has an active one.
func (s *Service) Block(ctx context.Context, input BlockInput) (*models.BlockedIP, error) {
	ip := strings.TrimSpace(input.IPAddress)
	if net.ParseIP(ip) == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ip address")
	}
	row := &models.BlockedIP{
		IPAddress:     ip,
		TransactionID: input.TransactionID,
		RedirectURL:   strings.TrimSpace(input.RedirectURL),
		Active:        true,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.ActiveFor(ctx, ip)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check blocked ip")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "ip address already blocked").
				WithDetails(map[string]any{"block_id": existing.ID})
		}
		if err := repo.Insert(ctx, row); err != nil {
			// A concurrent Block for the same address lost the race on the partial unique index.
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "ip address already blocked")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert blocked ip")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Unblock flips the block inactive, keeping the row for history.
func (s *Service) Unblock(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unblock ip")
	}
	if n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "active block not found")
	}
	return nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]models.BlockedIP, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list blocked ips")
	}
	return rows, nil
}
