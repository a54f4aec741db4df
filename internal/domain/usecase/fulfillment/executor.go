package fulfillment

import (
	"context"
	"fmt"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/collaborator"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/persistence"
)

// Templates names the notification template per reference type
type Templates struct {
	Registration string
	Donation     string
}

// Executor routes a side effect task to its collaborator
type Executor struct {
	uow       persistence.UnitOfWork
	tickets   collaborator.TicketIssuer
	invoices  collaborator.InvoiceGenerator
	notifier  collaborator.Notifier
	templates Templates
}

// NewExecutor creates the side effect executor
func NewExecutor(
	uow persistence.UnitOfWork,
	tickets collaborator.TicketIssuer,
	invoices collaborator.InvoiceGenerator,
	notifier collaborator.Notifier,
	templates Templates,
) *Executor {
	if templates.Registration == "" {
		templates.Registration = "registration_confirmed"
	}
	if templates.Donation == "" {
		templates.Donation = "donation_received"
	}
	return &Executor{uow: uow, tickets: tickets, invoices: invoices, notifier: notifier, templates: templates}
}

// Execute performs the task's effect
func (e *Executor) Execute(ctx context.Context, task *entity.SideEffectTask) error {
	txn, err := e.uow.GetTransactionRepository(ctx).GetByID(ctx, task.TransactionID)
	if err != nil {
		return err
	}

	switch task.EffectType {
	case entity.EffectTicketIssuance:
		if txn.ReferenceType != entity.ReferenceRegistration {
			return nil
		}
		_, err = e.tickets.Issue(ctx, txn.ReferenceID, txn.ID)
		return err

	case entity.EffectInvoiceGeneration:
		_, err = e.invoices.Generate(ctx, txn.ID)
		return err

	case entity.EffectConfirmationNotification:
		return e.notify(ctx, txn)
	}
	return fmt.Errorf("unsupported effect type %q", task.EffectType)
}

func (e *Executor) notify(ctx context.Context, txn *entity.PaymentTransaction) error {
	ref, err := e.uow.GetReferenceRepository(ctx).Get(ctx, txn.ReferenceType, txn.ReferenceID)
	if err != nil {
		return err
	}
	recipient := ref.PayerEmail
	if recipient == "" {
		recipient = txn.PayerEmail
	}

	template := e.templates.Donation
	if txn.ReferenceType == entity.ReferenceRegistration {
		template = e.templates.Registration
	}

	return e.notifier.Send(ctx, collaborator.Notification{
		TransactionID: txn.ID,
		Template:      template,
		Recipient:     recipient,
		Data: map[string]string{
			"transaction_number": txn.TransactionNumber,
			"amount":             txn.Amount(),
			"currency":           txn.Currency,
			"reference_id":       txn.ReferenceID,
			"description":        ref.Description,
		},
	})
}
