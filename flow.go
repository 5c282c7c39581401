package apartments

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FlowState is the step a [Flow] is waiting for.
type FlowState uint8

const (
	FlowIdle FlowState = iota
	FlowAwaitingOTP
	FlowAwaitingNewPassword
	FlowResolved
	FlowClosed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowAwaitingOTP:
		return "awaiting_otp"
	case FlowAwaitingNewPassword:
		return "awaiting_new_password"
	case FlowResolved:
		return "resolved"
	case FlowClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Flow is one run of a login, registration or password reset form. It holds
// at most one live pending code: starting again discards the previous one.
// Steps called out of order return ErrFlowState. Calls on one Flow are
// serialized.
type Flow struct {
	engine *Engine

	mu      sync.Mutex
	state   FlowState
	pending Pending
	// stop is closed when pending is replaced, resolved or discarded.
	stop chan struct{}
}

// NewFlow starts an idle flow.
func (e *Engine) NewFlow() *Flow {
	return &Flow{engine: e}
}

func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Pending returns the live handle, or the zero value.
func (f *Flow) Pending() Pending {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Login signs in directly. Any pending code is discarded first.
func (f *Flow) Login(ctx context.Context, email, password string) (SessionUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == FlowResolved || f.state == FlowClosed {
		return SessionUser{}, ErrFlowState
	}

	user, err := f.engine.Login(ctx, email, password)
	if err != nil {
		return SessionUser{}, err
	}
	if err := f.discardLocked(ctx); err != nil {
		f.engine.warn(ctx, "discard pending code failed", "error", err)
	}
	f.state = FlowResolved
	return user, nil
}

func (f *Flow) BeginRegistration(ctx context.Context, req RegistrationRequest) (Pending, error) {
	return f.begin(ctx, func() (Pending, error) {
		return f.engine.BeginRegistration(ctx, req)
	})
}

func (f *Flow) BeginPasswordReset(ctx context.Context, email string) (Pending, error) {
	return f.begin(ctx, func() (Pending, error) {
		return f.engine.BeginPasswordReset(ctx, email)
	})
}

func (f *Flow) begin(ctx context.Context, issue func() (Pending, error)) (Pending, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == FlowResolved || f.state == FlowClosed {
		return Pending{}, ErrFlowState
	}

	p, err := issue()
	if err != nil {
		return Pending{}, err
	}

	if err := f.discardLocked(ctx); err != nil {
		f.engine.warn(ctx, "discard pending code failed", "error", err)
	}
	f.pending = p
	f.stop = make(chan struct{})
	f.state = FlowAwaitingOTP
	return p, nil
}

// CompleteRegistration submits the registration code. Expired and
// mismatched codes keep the flow waiting for a code.
func (f *Flow) CompleteRegistration(ctx context.Context, code string) (SessionUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FlowAwaitingOTP || f.pending.Purpose != PurposeRegistration {
		return SessionUser{}, ErrFlowState
	}

	user, err := f.engine.CompleteRegistration(ctx, f.pending, code)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// The code was spent; only a new registration can continue.
			f.releaseLocked()
			f.state = FlowIdle
		}
		return SessionUser{}, err
	}

	f.releaseLocked()
	f.state = FlowResolved
	return user, nil
}

// ConfirmResetCode checks the reset code and, when valid, moves the flow to
// waiting for the new password.
func (f *Flow) ConfirmResetCode(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FlowAwaitingOTP || f.pending.Purpose != PurposePasswordReset {
		return ErrFlowState
	}

	if err := f.engine.ConfirmResetCode(ctx, f.pending, code); err != nil {
		return err
	}
	f.state = FlowAwaitingNewPassword
	return nil
}

// FinalizeReset sets the new password. The code is verified again.
func (f *Flow) FinalizeReset(ctx context.Context, code, newPassword string) (SessionUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != FlowAwaitingNewPassword {
		return SessionUser{}, ErrFlowState
	}

	user, err := f.engine.FinalizeReset(ctx, f.pending, code, newPassword)
	if err != nil {
		return SessionUser{}, err
	}

	f.releaseLocked()
	f.state = FlowResolved
	return user, nil
}

// Countdown reports the time left on the live code every CountdownTick. It
// is for display only and never decides expiry. The channel closes after
// reporting zero, when ctx ends, or when the code is replaced or released.
func (f *Flow) Countdown(ctx context.Context) <-chan time.Duration {
	f.mu.Lock()
	p, stop := f.pending, f.stop
	f.mu.Unlock()

	out := make(chan time.Duration, 1)
	if p.IsZero() || stop == nil {
		close(out)
		return out
	}

	issuer := f.engine.issuer
	tick := f.engine.config.OTP.CountdownTick

	go func() {
		defer close(out)

		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			left := issuer.Remaining(p.ExpiresAt).Truncate(time.Second)
			select {
			case out <- left:
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
			if left <= 0 {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return out
}

// Close ends the flow and discards an unused code.
func (f *Flow) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == FlowClosed {
		return nil
	}
	err := f.discardLocked(ctx)
	f.state = FlowClosed
	return err
}

// discardLocked deletes the live record and stops its countdown.
func (f *Flow) discardLocked(ctx context.Context) error {
	if f.pending.IsZero() {
		return nil
	}
	err := f.engine.DiscardPending(ctx, f.pending)
	f.releaseLocked()
	return err
}

// releaseLocked forgets the live handle without touching storage.
func (f *Flow) releaseLocked() {
	if f.stop != nil {
		close(f.stop)
		f.stop = nil
	}
	f.pending = Pending{}
}
