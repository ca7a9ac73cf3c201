package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// ScopeState is the lifecycle of one transaction scope.
type ScopeState int

const (
	ScopePending ScopeState = iota
	ScopeLocking
	ScopeExecuting
	ScopeCommitted
	ScopeRolledBack
)

func (s ScopeState) String() string {
	switch s {
	case ScopePending:
		return "PENDING"
	case ScopeLocking:
		return "LOCKING"
	case ScopeExecuting:
		return "EXECUTING"
	case ScopeCommitted:
		return "COMMITTED"
	case ScopeRolledBack:
		return "ROLLED_BACK"
	default:
		return fmt.Sprintf("ScopeState(%d)", int(s))
	}
}

// ScopeObserver is told about every state change of every scope.
type ScopeObserver func(scopeID uint64, from, to ScopeState)

// Mutation is one balance change inside an operation.
type Mutation struct {
	AccountID int64
	Direction domain.Direction
	Amount    decimal.Decimal
}

// Operation is a validated balance-mutating request.
type Operation struct {
	Name           string
	Kind           OperationKind
	Mutations      []Mutation
	IdempotencyKey string
	Fingerprint    string
}

// Participants returns the accounts the operation touches in lock order.
func (op Operation) Participants() []int64 {
	ids := make([]int64, 0, len(op.Mutations))
	for _, m := range op.Mutations {
		ids = append(ids, m.AccountID)
	}
	return LockOrder(ids...)
}

// Result is the committed outcome of an operation.
type Result struct {
	OperationID string
	// Accounts holds the state after commit, in ascending id order.
	Accounts []*domain.Account
	Entries  []*domain.Entry
	// Replayed is set when the idempotency key matched an earlier commit
	// and nothing was mutated.
	Replayed bool
}

// Account returns the participant with id, or nil.
func (r *Result) Account(id int64) *domain.Account {
	for _, a := range r.Accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// ControllerConfig wires a Controller. Outbox, Tracker, Metrics and Observer
// are optional.
type ControllerConfig struct {
	TxManager   TransactionManager
	Accounts    AccountRepository
	Entries     EntryRepository
	Idempotency IdempotencyRepository
	Outbox      OutboxRepository
	IDGen       IDGenerator
	Tracker     ContentionTracker
	Selector    IsolationSelector
	Timeouts    Timeouts
	Metrics     MetricsRecorder
	Logger      zerolog.Logger
	Observer    ScopeObserver
	Now         func() time.Time
}

// Controller is the only component that opens scopes and writes account
// rows. Each call runs exactly one scope.
type Controller struct {
	txManager   TransactionManager
	accounts    AccountRepository
	entries     EntryRepository
	idempotency IdempotencyRepository
	outbox      OutboxRepository
	idGen       IDGenerator
	tracker     ContentionTracker
	selector    IsolationSelector
	timeouts    Timeouts
	metrics     MetricsRecorder
	logger      zerolog.Logger
	observer    ScopeObserver
	now         func() time.Time

	scopeSeq atomic.Uint64
}

// NewController creates a new Controller.
func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		txManager:   cfg.TxManager,
		accounts:    cfg.Accounts,
		entries:     cfg.Entries,
		idempotency: cfg.Idempotency,
		outbox:      cfg.Outbox,
		idGen:       cfg.IDGen,
		tracker:     cfg.Tracker,
		selector:    cfg.Selector,
		timeouts:    cfg.Timeouts,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		observer:    cfg.Observer,
		now:         cfg.Now,
	}
	if c.tracker == nil {
		c.tracker = noopTracker{}
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.timeouts == (Timeouts{}) {
		c.timeouts = DefaultTimeouts()
	}
	return c
}

type scope struct {
	id     uint64
	kind   OperationKind
	state  ScopeState
	tx     Transaction
	logger zerolog.Logger
	c      *Controller
}

func (s *scope) transition(to ScopeState) {
	from := s.state
	s.state = to
	s.logger.Trace().Stringer("from", from).Stringer("to", to).Msg("scope transition")
	if s.c.observer != nil {
		s.c.observer(s.id, from, to)
	}
}

// open begins a scope for kind. The returned context carries the scope
// timeout; cancel must always be called.
func (c *Controller) open(ctx context.Context, kind OperationKind) (context.Context, *scope, context.CancelFunc, error) {
	sc := &scope{
		id:    c.scopeSeq.Add(1),
		kind:  kind,
		state: ScopePending,
		c:     c,
	}
	sc.logger = c.loggerFor(ctx).With().Uint64("scope", sc.id).Stringer("kind", kind).Logger()

	opts := c.selector.Select(kind)
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.For(kind))

	tx, err := c.txManager.Begin(ctx, opts)
	if err != nil {
		cancel()
		sc.transition(ScopeRolledBack)
		return nil, nil, nil, domain.NewSystemError("begin scope", err)
	}
	sc.tx = tx

	sc.logger.Debug().
		Stringer("isolation", opts.Isolation).
		Bool("read_only", opts.ReadOnly).
		Msg("scope opened")

	return ctx, sc, cancel, nil
}

// close commits the scope when err is nil and rolls it back otherwise. The
// returned error is always classified.
func (c *Controller) close(ctx context.Context, sc *scope, err error) error {
	if err == nil {
		if err = sc.tx.Commit(ctx); err == nil {
			sc.transition(ScopeCommitted)
			sc.logger.Debug().Msg("scope committed")
			return nil
		}
		if domain.Classify(err) != domain.OutcomeConflict {
			err = domain.NewSystemError("commit scope", err)
		}
	} else {
		if rbErr := sc.tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			sc.logger.Error().Err(rbErr).Msg("rollback failed")
		}
	}

	sc.transition(ScopeRolledBack)
	err = normalize(ctx, err)

	switch domain.Classify(err) {
	case domain.OutcomeConflict:
		sc.logger.Warn().Err(err).Msg("scope rolled back on conflict")
	case domain.OutcomeRuleViolation, domain.OutcomeNotFound:
		sc.logger.Info().Err(err).Msg("scope rolled back")
	default:
		sc.logger.Error().Err(err).Msg("scope rolled back on system failure")
	}
	return err
}

// normalize turns errors that carry no classification into system failures.
func normalize(ctx context.Context, err error) error {
	switch domain.Classify(err) {
	case domain.OutcomeRuleViolation, domain.OutcomeNotFound, domain.OutcomeConflict:
		return err
	}

	var se *domain.SystemError
	if errors.As(err, &se) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", err, ctxErr)
	}
	return domain.NewSystemError("scope", err)
}

// WithinScope runs fn inside one scope of kind: read-only kinds see a
// read-only transaction, writes are committed only if fn returns nil.
func (c *Controller) WithinScope(ctx context.Context, kind OperationKind, fn func(ctx context.Context, tx Transaction) error) error {
	ctx, sc, cancel, err := c.open(ctx, kind)
	if err != nil {
		return err
	}
	defer cancel()

	sc.transition(ScopeLocking)
	sc.transition(ScopeExecuting)
	return c.close(ctx, sc, fn(ctx, sc.tx))
}

// UpdateAccount applies mutate to one account under the conditional write.
// It is used for lifecycle changes that do not move money. An event returned
// by mutate is written to the outbox in the same scope.
func (c *Controller) UpdateAccount(ctx context.Context, accountID int64, mutate func(*domain.Account) (*domain.OutboxEvent, error)) (*domain.Account, error) {
	var updated *domain.Account
	err := c.WithinScope(ctx, OpAccountWrite, func(ctx context.Context, tx Transaction) error {
		account, err := c.accounts.GetByID(ctx, tx, accountID)
		if err != nil {
			return notFound(err, accountID)
		}

		expected := account.Version
		next := account.Clone()
		event, err := mutate(next)
		if err != nil {
			return err
		}
		next.UpdatedAt = c.now()

		if err := c.accounts.CompareAndSwap(ctx, tx, next, expected); err != nil {
			return err
		}

		if event != nil && c.outbox != nil {
			event.ID = c.idGen.Generate()
			event.CreatedAt = next.UpdatedAt
			if err := c.outbox.Create(ctx, tx, event); err != nil {
				return fmt.Errorf("write outbox event: %w", err)
			}
		}

		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			c.recordConflict(ctx, "update_account", accountID)
		}
		return nil, err
	}
	return updated, nil
}

// Execute runs one pass of op in a single scope. It does not retry.
func (c *Controller) Execute(ctx context.Context, op Operation) (*Result, error) {
	participants := op.Participants()

	ctx, sc, cancel, err := c.open(ctx, op.Kind)
	if err != nil {
		return nil, err
	}
	defer cancel()

	sc.logger = sc.logger.With().Str("operation", op.Name).Ints64("accounts", participants).Logger()

	result, err := c.execute(ctx, sc, op, participants)
	if err = c.close(ctx, sc, err); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			c.recordConflict(ctx, op.Name, conflictAccounts(err, participants)...)
		}
		return nil, err
	}
	return result, nil
}

func (c *Controller) execute(ctx context.Context, sc *scope, op Operation, participants []int64) (*Result, error) {
	if op.IdempotencyKey != "" {
		record, err := c.idempotency.Get(ctx, sc.tx, op.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if record != nil {
			if !record.Matches(op.Name, op.Fingerprint) {
				return nil, domain.NewRuleViolation(domain.ErrIdempotencyKeyReuse, op.IdempotencyKey)
			}
			return c.replay(ctx, sc, record, participants)
		}
	}

	sc.transition(ScopeLocking)
	accounts, err := c.acquire(ctx, sc, participants)
	if err != nil {
		return nil, err
	}

	sc.transition(ScopeExecuting)
	now := c.now()
	result := &Result{OperationID: c.idGen.Generate()}

	for _, id := range participants {
		account := accounts[id]
		expected := account.Version

		var entries []*domain.Entry
		for _, m := range op.Mutations {
			if m.AccountID != id {
				continue
			}
			entry, err := c.apply(account, m)
			if err != nil {
				return nil, err
			}
			entry.ID = c.idGen.Generate()
			entry.OperationID = result.OperationID
			entry.AccountVersion = expected + 1
			entry.CreatedAt = now
			entries = append(entries, entry)
		}

		account.UpdatedAt = now
		if err := c.accounts.CompareAndSwap(ctx, sc.tx, account, expected); err != nil {
			return nil, err
		}

		for _, entry := range entries {
			if err := c.entries.Create(ctx, sc.tx, entry); err != nil {
				return nil, fmt.Errorf("create entry: %w", err)
			}
		}

		result.Accounts = append(result.Accounts, account)
		result.Entries = append(result.Entries, entries...)
	}

	if err := c.publish(ctx, sc.tx, op, result, now); err != nil {
		return nil, err
	}

	if op.IdempotencyKey != "" {
		record := &domain.IdempotencyRecord{
			Key:         op.IdempotencyKey,
			Operation:   op.Name,
			Fingerprint: op.Fingerprint,
			OperationID: result.OperationID,
			CreatedAt:   now,
		}
		if err := c.idempotency.Create(ctx, sc.tx, record); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// acquire reads every participant in order. If any of them is hot, all of
// them are read under a row lock instead, still in order.
func (c *Controller) acquire(ctx context.Context, sc *scope, participants []int64) (map[int64]*domain.Account, error) {
	accounts := make(map[int64]*domain.Account, len(participants))

	hot := false
	for _, id := range participants {
		isHot, err := c.tracker.IsHot(ctx, id)
		if err != nil {
			sc.logger.Warn().Err(err).Int64("account_id", id).Msg("contention tracker unavailable")
			continue
		}
		if isHot {
			hot = true
			break
		}
	}

	if !hot {
		for _, id := range participants {
			account, err := c.accounts.GetByID(ctx, sc.tx, id)
			if err != nil {
				return nil, notFound(err, id)
			}
			if account.HighContention {
				hot = true
				break
			}
			accounts[id] = account
		}
	}

	if hot {
		sc.logger.Debug().Msg("taking row locks")
		for _, id := range participants {
			account, err := c.accounts.GetByIDForUpdate(ctx, sc.tx, id)
			if err != nil {
				return nil, notFound(err, id)
			}
			c.metrics.IncPessimisticLock()
			accounts[id] = account
		}
	}

	return accounts, nil
}

func (c *Controller) apply(account *domain.Account, m Mutation) (*domain.Entry, error) {
	entry := &domain.Entry{
		AccountID:     account.ID,
		Direction:     m.Direction,
		Amount:        m.Amount,
		BalanceBefore: account.Balance,
	}

	switch m.Direction {
	case domain.DirectionDebit:
		if err := account.ValidateDebit(m.Amount); err != nil {
			return nil, err
		}
		account.Balance = account.ApplyDebit(m.Amount)
	case domain.DirectionCredit:
		if err := account.ValidateCredit(m.Amount); err != nil {
			return nil, err
		}
		account.Balance = account.ApplyCredit(m.Amount)
	default:
		return nil, fmt.Errorf("unknown direction %q", m.Direction)
	}

	entry.BalanceAfter = account.Balance
	return entry, nil
}

// replay rebuilds the result of an operation that already committed.
func (c *Controller) replay(ctx context.Context, sc *scope, record *domain.IdempotencyRecord, participants []int64) (*Result, error) {
	sc.transition(ScopeLocking)
	sc.transition(ScopeExecuting)

	entries, err := c.entries.ListByOperation(ctx, sc.tx, record.OperationID)
	if err != nil {
		return nil, fmt.Errorf("load replayed entries: %w", err)
	}

	result := &Result{OperationID: record.OperationID, Entries: entries, Replayed: true}
	for _, id := range participants {
		account, err := c.accounts.GetByID(ctx, sc.tx, id)
		if err != nil {
			return nil, notFound(err, id)
		}
		result.Accounts = append(result.Accounts, account)
	}

	sc.logger.Info().Str("idempotency_key", record.Key).Msg("replaying committed operation")
	return result, nil
}

func (c *Controller) publish(ctx context.Context, tx Transaction, op Operation, result *Result, now time.Time) error {
	if c.outbox == nil {
		return nil
	}

	event := &domain.OutboxEvent{
		ID:            c.idGen.Generate(),
		AggregateID:   result.OperationID,
		AggregateType: domain.AggregateTypeOperation,
		CreatedAt:     now,
	}

	switch op.Name {
	case OperationTransfer:
		event.EventType = domain.EventTypeTransferred
		var from, to int64
		for _, m := range op.Mutations {
			if m.Direction == domain.DirectionDebit {
				from = m.AccountID
			} else {
				to = m.AccountID
			}
		}
		event.Payload = domain.TransferredEvent{
			OperationID:   result.OperationID,
			FromAccountID: from,
			ToAccountID:   to,
			Amount:        op.Mutations[0].Amount.StringFixed(2),
		}.Payload()
	default:
		event.EventType = domain.EventTypeCredited
		if op.Mutations[0].Direction == domain.DirectionDebit {
			event.EventType = domain.EventTypeDebited
		}
		account := result.Accounts[0]
		event.Payload = domain.BalanceChangedEvent{
			OperationID: result.OperationID,
			AccountID:   account.ID,
			Amount:      op.Mutations[0].Amount.StringFixed(2),
			Balance:     account.Balance.StringFixed(2),
			Version:     account.Version,
		}.Payload()
	}

	if err := c.outbox.Create(ctx, tx, event); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}

func (c *Controller) recordConflict(ctx context.Context, operation string, accountIDs ...int64) {
	c.metrics.IncConflict(operation)
	for _, id := range accountIDs {
		if err := c.tracker.RecordConflict(ctx, id); err != nil {
			logger := c.loggerFor(ctx)
			logger.Warn().Err(err).Int64("account_id", id).Msg("record conflict")
		}
	}
}

func (c *Controller) loggerFor(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return c.logger
}

// conflictAccounts returns the account a conflict was detected on, or every
// participant when the store could not tell.
func conflictAccounts(err error, participants []int64) []int64 {
	var ce *domain.ConflictError
	if errors.As(err, &ce) && ce.AccountID != 0 {
		return []int64{ce.AccountID}
	}
	return participants
}

func notFound(err error, id int64) error {
	if errors.Is(err, domain.ErrAccountNotFound) {
		return &domain.NotFoundError{AccountID: id}
	}
	return err
}
