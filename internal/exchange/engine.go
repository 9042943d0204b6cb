// Package exchange implements the turn-taking state machine of a two-party
// question/answer exchange: role assignment, the single in-flight session,
// multi-fragment answer collection, the completion ledger and repeat-free
// question selection.
//
// All transitions go through [Engine], which serialises them behind one lock,
// persists the resulting [State] through a [Store] and only then hands the
// emitted [Effect] values to a [Deliverer]. A failed write leaves the
// previous state in place and emits nothing; a failed delivery never rolls a
// committed transition back.
//
// Sessions never expire. An open exchange stays open until its receiver
// releases it.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/turnabout/internal/observe"
)

// Store loads and saves the [State] aggregate. Save must be durable before it
// returns nil. Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
}

// QuestionBank resolves 1-indexed question numbers to their text.
type QuestionBank interface {
	Len() int
	Text(n int) (string, error)
}

// Config holds the dependencies of an [Engine].
type Config struct {
	// Store persists the state. Required.
	Store Store

	// Bank supplies question texts; its length is N. Required.
	Bank QuestionBank

	// Deliverer executes emitted effects. When nil, effects are only
	// returned on the [Receipt].
	Deliverer Deliverer

	// Metrics records exchange metrics. Defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// IntN overrides the random source used by random selection.
	IntN func(n int) int

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Engine owns the shared exchange state. All exported methods are safe for
// concurrent use; mutating methods execute as one critical section each.
type Engine struct {
	mu    sync.RWMutex
	state *State

	store    Store
	bank     QuestionBank
	selector *Selector
	deliver  Deliverer
	metrics  *observe.Metrics
	now      func() time.Time
}

// errUnchanged lets a mutation report success without a write.
var errUnchanged = errors.New("exchange: unchanged")

// New loads the persisted state and returns a ready Engine.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("exchange: store is required")
	}
	if cfg.Bank == nil || cfg.Bank.Len() < 1 {
		return nil, fmt.Errorf("exchange: a non-empty question bank is required")
	}
	st, err := cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange: load state: %w", err)
	}
	if st == nil {
		st = NewState()
	}
	st.Normalize()

	e := &Engine{
		state:    st,
		store:    cfg.Store,
		bank:     cfg.Bank,
		selector: NewSelector(cfg.Bank.Len(), WithIntN(cfg.IntN)),
		deliver:  cfg.Deliverer,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if st.Pending != nil {
		e.metrics.ActiveExchanges.Add(ctx, 1)
		slog.Info("exchange: resumed open session",
			"question", st.Pending.Question,
			"asker", st.Pending.Asker,
			"receiver", st.Pending.Receiver,
			"fragments", len(st.Pending.Fragments),
		)
	}
	return e, nil
}

// SetDeliverer replaces the effect deliverer. It exists for transports that
// can only be constructed after the engine.
func (e *Engine) SetDeliverer(d Deliverer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deliver = d
}

// Total returns the question bank size N.
func (e *Engine) Total() int { return e.selector.Total() }

// commit runs mutate on a copy of the state inside the critical section and
// swaps it in only after the store accepted it.
func (e *Engine) commit(ctx context.Context, op string, mutate func(st *State, rc *Receipt) error) (Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rc Receipt
	next := e.state.Clone()
	if err := mutate(next, &rc); err != nil {
		if errors.Is(err, errUnchanged) {
			return rc, nil
		}
		if reason, ok := ReasonOf(err); ok {
			e.metrics.RecordRejection(ctx, op, string(reason))
		}
		return Receipt{}, err
	}
	if err := e.store.Save(ctx, next); err != nil {
		e.metrics.RecordPersistenceFailure(ctx, op)
		slog.Error("exchange: persist state failed", "op", op, "err", err)
		return Receipt{}, &PersistenceError{Op: op, Err: err}
	}
	e.state = next
	return rc, nil
}

// dispatch delivers effects after the critical section. Effects addressed to
// the same participant are delivered in order; different participants are
// served concurrently.
func (e *Engine) dispatch(ctx context.Context, rc *Receipt) {
	e.mu.RLock()
	d := e.deliver
	e.mu.RUnlock()
	if d == nil || len(rc.Effects) == 0 {
		return
	}

	var order []ParticipantID
	byRecipient := make(map[ParticipantID][]Effect)
	for _, eff := range rc.Effects {
		if _, ok := byRecipient[eff.To]; !ok {
			order = append(order, eff.To)
		}
		byRecipient[eff.To] = append(byRecipient[eff.To], eff)
	}

	var (
		mu     sync.Mutex
		failed []DeliveryFailure
		g      errgroup.Group
	)
	for _, to := range order {
		effects := byRecipient[to]
		g.Go(func() error {
			for _, eff := range effects {
				if err := d.Deliver(ctx, eff); err != nil {
					observe.Logger(ctx).Warn("exchange: delivery failed",
						"effect", string(eff.Kind),
						"to", string(eff.To),
						"question", eff.Question,
						"err", err,
					)
					e.metrics.RecordDeliveryFailure(ctx, string(eff.Kind))
					mu.Lock()
					failed = append(failed, DeliveryFailure{Effect: eff, Err: err})
					mu.Unlock()
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	rc.Undelivered = failed
}

func (e *Engine) span(ctx context.Context, op string, p ParticipantID) (context.Context, trace.Span) {
	return observe.StartSpan(ctx, "exchange."+op,
		trace.WithAttributes(attribute.String("participant", string(p))),
	)
}

// ClaimRole registers p as a participant and assigns the first free slot.
// The receipt's Role is [RoleNone] when p already holds a slot or both slots
// are taken.
func (e *Engine) ClaimRole(ctx context.Context, p ParticipantID) (rc Receipt, err error) {
	ctx, span := e.span(ctx, "ClaimRole", p)
	defer func() { observe.EndSpan(span, err) }()

	return e.commit(ctx, "claim_role", func(st *State, rc *Receipt) error {
		if p == "" {
			return reject(ReasonUnknownParticipant, 0)
		}
		added := st.addParticipant(p)
		rc.Role = st.Roles.Claim(p)
		if !added && rc.Role == RoleNone {
			return errUnchanged
		}
		slog.Info("exchange: role claimed", "participant", p, "role", rc.Role.String())
		return nil
	})
}

// EnsureB assigns slot B to p when A is taken, B is free and p is not A. It is
// the fallback for participants who interact before claiming explicitly.
func (e *Engine) EnsureB(ctx context.Context, p ParticipantID) (Receipt, error) {
	return e.commit(ctx, "ensure_b", func(st *State, rc *Receipt) error {
		if !st.Roles.EnsureB(p) {
			return errUnchanged
		}
		st.addParticipant(p)
		rc.Role = RoleB
		slog.Info("exchange: role B assigned on first interaction", "participant", p)
		return nil
	})
}

// RequestQuestion opens a session for a specific question number.
func (e *Engine) RequestQuestion(ctx context.Context, asker ParticipantID, q int) (rc Receipt, err error) {
	ctx, span := e.span(ctx, "RequestQuestion", asker)
	defer func() { observe.EndSpan(span, err) }()
	return e.open(ctx, asker, q, false)
}

// RequestRandom opens a session for a uniformly chosen eligible question.
func (e *Engine) RequestRandom(ctx context.Context, asker ParticipantID) (rc Receipt, err error) {
	ctx, span := e.span(ctx, "RequestRandom", asker)
	defer func() { observe.EndSpan(span, err) }()
	return e.open(ctx, asker, 0, true)
}

func (e *Engine) open(ctx context.Context, asker ParticipantID, q int, random bool) (Receipt, error) {
	op := "request_question"
	if random {
		op = "request_random"
	}
	rc, err := e.commit(ctx, op, func(st *State, rc *Receipt) error {
		if err := askable(st, asker); err != nil {
			return err
		}

		if random {
			picked, err := e.selector.PickRandom(asker, st.Ledger, st.Roles, st.Pending)
			if err != nil {
				return err
			}
			q = picked
		} else if err := e.selector.Validate(q, asker, st.Ledger, st.Roles); err != nil {
			return err
		}

		text, err := e.bank.Text(q)
		if err != nil {
			return fmt.Errorf("exchange: question %d: %w", q, err)
		}

		st.Pending = &Session{
			Question:  q,
			Asker:     asker,
			Receiver:  st.Roles.B,
			Random:    random,
			OpenedAt:  e.now().UTC(),
			Fragments: []Fragment{},
		}
		rc.Question = q
		rc.Effects = []Effect{
			{Kind: EffectQuestionSent, To: asker, Question: q, Text: text, Random: random},
			{Kind: EffectQuestionReceived, To: st.Roles.B, Question: q, Text: text, Random: random},
		}
		return nil
	})
	if err != nil {
		return rc, err
	}

	mode := "specific"
	if random {
		mode = "random"
	}
	e.metrics.RecordExchangeOpened(ctx, mode)
	slog.Info("exchange: question opened", "question", rc.Question, "asker", asker, "mode", mode)
	e.dispatch(ctx, &rc)
	return rc, nil
}

// askable checks the role and phase preconditions for opening a session.
func askable(st *State, asker ParticipantID) error {
	if !st.Roles.IsA(asker) {
		return reject(ReasonNotAsker, 0)
	}
	if !st.Roles.BothAssigned() {
		return reject(ReasonAwaitingPartner, 0)
	}
	if st.Pending != nil {
		return reject(ReasonExchangeActive, st.Pending.Question)
	}
	return nil
}

// SubmitFragment appends f to the open session. Only the session's receiver
// may submit; anyone else gets [ReasonNoPending].
func (e *Engine) SubmitFragment(ctx context.Context, sender ParticipantID, f Fragment) (rc Receipt, err error) {
	ctx, span := e.span(ctx, "SubmitFragment", sender)
	defer func() { observe.EndSpan(span, err) }()

	rc, err = e.commit(ctx, "submit_fragment", func(st *State, rc *Receipt) error {
		if st.Pending == nil || st.Pending.Receiver != sender {
			return reject(ReasonNoPending, 0)
		}
		if err := f.Validate(); err != nil {
			return &RejectedError{Reason: ReasonInvalidFragment, Question: st.Pending.Question, Err: err}
		}
		st.Pending.append(f)
		rc.Question = st.Pending.Question
		rc.Fragments = len(st.Pending.Fragments)
		return nil
	})
	if err != nil {
		return rc, err
	}
	e.metrics.RecordFragment(ctx, string(f.Kind))
	return rc, nil
}

// ReleaseBatch finalises the open session: the collected fragments go to the
// asker in submission order, the asker's ledger gains the question, the
// session is cleared and the roles swap. Release requires at least one
// fragment.
func (e *Engine) ReleaseBatch(ctx context.Context, sender ParticipantID) (rc Receipt, err error) {
	ctx, span := e.span(ctx, "ReleaseBatch", sender)
	defer func() { observe.EndSpan(span, err) }()

	var openedAt time.Time
	rc, err = e.commit(ctx, "release_batch", func(st *State, rc *Receipt) error {
		sess := st.Pending
		if sess == nil || sess.Receiver != sender {
			return reject(ReasonNoPending, 0)
		}
		if len(sess.Fragments) == 0 {
			return reject(ReasonNoFragments, sess.Question)
		}

		text, err := e.bank.Text(sess.Question)
		if err != nil {
			return fmt.Errorf("exchange: question %d: %w", sess.Question, err)
		}
		st.Ledger.MarkReceived(sess.Asker, sess.Question)
		st.Pending = nil
		if err := st.Roles.Swap(); err != nil {
			return err
		}

		openedAt = sess.OpenedAt
		rc.Question = sess.Question
		rc.Fragments = len(sess.Fragments)
		rc.Effects = []Effect{
			{Kind: EffectAnswers, To: sess.Asker, Question: sess.Question, Text: text, Fragments: sess.Fragments},
			{Kind: EffectRoleChange, To: st.Roles.A, Role: RoleA},
			{Kind: EffectRoleChange, To: st.Roles.B, Role: RoleB},
		}
		return nil
	})
	if err != nil {
		return rc, err
	}

	var elapsed time.Duration
	if !openedAt.IsZero() {
		elapsed = e.now().Sub(openedAt)
	}
	e.metrics.RecordExchangeReleased(ctx, elapsed)
	slog.Info("exchange: answers released",
		"question", rc.Question,
		"receiver", sender,
		"fragments", rc.Fragments,
	)
	e.dispatch(ctx, &rc)
	return rc, nil
}

// ResetLedger clears every participant's completion set. It cannot be
// undone.
func (e *Engine) ResetLedger(ctx context.Context) (rc Receipt, err error) {
	ctx, span := e.span(ctx, "ResetLedger", "")
	defer func() { observe.EndSpan(span, err) }()

	rc, err = e.commit(ctx, "reset_ledger", func(st *State, _ *Receipt) error {
		st.Ledger.Reset()
		return nil
	})
	if err == nil {
		e.metrics.RecordLedgerReset(ctx)
		slog.Warn("exchange: completion ledger reset")
	}
	return rc, err
}

// Snapshot returns a deep copy of the committed state.
func (e *Engine) Snapshot() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// RoleOf returns the slot p currently holds.
func (e *Engine) RoleOf(p ParticipantID) Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Roles.RoleOf(p)
}

// CanAsk reports whether p could open a session now, ignoring which number
// would be chosen. It returns the rejection a request would get.
func (e *Engine) CanAsk(p ParticipantID) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return askable(e.state, p)
}

// Eligible returns the question numbers p could request right now.
func (e *Engine) Eligible(p ParticipantID) []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selector.Eligible(p, e.state.Ledger, e.state.Roles, e.state.Pending)
}
