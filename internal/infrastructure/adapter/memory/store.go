package memory

import (
	"context"
	"sync"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/core"
)

// Store is an in-process implementation of every persistence port.
// Conditional updates keep the same compare-and-set semantics as the SQL repositories,
// so use cases behave identically against either backend.
type Store struct {
	mu    sync.Mutex
	clock coreport.TimeProvider

	transactions map[string]*entity.PaymentTransaction
	idemKeys     map[string]string // idempotency key -> transaction id
	orderRefs    map[string]string // gateway order ref -> transaction id

	events    map[string]*entity.WebhookEvent
	eventKeys map[string]string // provider|providerEventId -> event id

	tasks    map[string]*entity.SideEffectTask
	taskKeys map[string]string // transactionId|effectType -> task id

	references map[string]*entity.PaymentReference
	audit      []*entity.AuditRecord
	tickets    map[string]*entity.Ticket  // by registration id
	invoices   map[string]*entity.Invoice // by transaction id
	leases     map[string]lease
}

// NewStore creates an empty store
func NewStore(clock coreport.TimeProvider) *Store {
	return &Store{
		clock:        clock,
		transactions: make(map[string]*entity.PaymentTransaction),
		idemKeys:     make(map[string]string),
		orderRefs:    make(map[string]string),
		events:       make(map[string]*entity.WebhookEvent),
		eventKeys:    make(map[string]string),
		tasks:        make(map[string]*entity.SideEffectTask),
		taskKeys:     make(map[string]string),
		references:   make(map[string]*entity.PaymentReference),
		tickets:      make(map[string]*entity.Ticket),
		invoices:     make(map[string]*entity.Invoice),
		leases:       make(map[string]lease),
	}
}

// SeedReference registers a registration or donation, standing in for the system that owns them
func (s *Store) SeedReference(ref entity.PaymentReference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := ref
	s.references[referenceKey(ref.Type, ref.ID)] = &cp
}

type txKeyType struct{}

var txKey = txKeyType{}

// memTx is a unit of work holding the store lock. Mutations register undo closures
// that Rollback replays in reverse order.
type memTx struct {
	store  *Store
	active bool
	undo   []func()
}

func (t *memTx) record(undo func()) {
	if t != nil && t.active {
		t.undo = append(t.undo, undo)
	}
}

// txFromContext returns the active unit of work of this store carried by ctx, if any
func (s *Store) txFromContext(ctx context.Context) *memTx {
	tx, ok := ctx.Value(txKey).(*memTx)
	if !ok || tx == nil || tx.store != s || !tx.active {
		return nil
	}
	return tx
}

// run executes fn under the store lock unless ctx already holds it through a unit of work
func (s *Store) run(ctx context.Context, fn func(tx *memTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := s.txFromContext(ctx); tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(nil)
}

func referenceKey(referenceType entity.ReferenceType, id string) string {
	return string(referenceType) + "|" + id
}
