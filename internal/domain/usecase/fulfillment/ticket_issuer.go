package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
	"github.com/google/uuid"
)

// TicketIssuer issues QR tickets for paid registrations, one live code per registration
type TicketIssuer struct {
	uow          persistence.UnitOfWork
	clock        coreport.TimeProvider
	imageBaseURL string
}

// NewTicketIssuer creates a ticket issuer; imageBaseURL prefixes the QR image reference
func NewTicketIssuer(uow persistence.UnitOfWork, clock coreport.TimeProvider, imageBaseURL string) *TicketIssuer {
	return &TicketIssuer{uow: uow, clock: clock, imageBaseURL: strings.TrimRight(imageBaseURL, "/")}
}

// Issue returns the registration's existing ticket or creates it
func (i *TicketIssuer) Issue(ctx context.Context, registrationID, transactionID string) (*entity.Ticket, error) {
	repo := i.uow.GetTicketRepository(ctx)

	existing, err := repo.GetByRegistration(ctx, registrationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up ticket: %w", err)
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	ticket := &entity.Ticket{
		ID:             uuid.NewString(),
		RegistrationID: registrationID,
		TransactionID:  transactionID,
		Code:           code,
		ImageRef:       i.imageBaseURL + "/" + code + ".png",
		IssuedAt:       i.clock.Now(),
	}
	created, err := repo.CreateIfAbsent(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to store ticket: %w", err)
	}
	if !created {
		// A concurrent issuance won; return its code
		return repo.GetByRegistration(ctx, registrationID)
	}
	return ticket, nil
}
