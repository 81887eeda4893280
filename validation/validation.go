// Package validation classifies inbound user input before step processing:
// duplicate suppression, rate limiting, state consistency and content checks.
package validation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/AltairaLabs/DialogKit/cache"
	"github.com/AltairaLabs/DialogKit/config"
	"github.com/AltairaLabs/DialogKit/logger"
	"github.com/AltairaLabs/DialogKit/processor"
	"github.com/AltairaLabs/DialogKit/scenario"
	"github.com/AltairaLabs/DialogKit/statestore"
	"github.com/AltairaLabs/DialogKit/types"
)

// RejectKind classifies why an input was rejected.
type RejectKind string

const (
	RejectDuplicate      RejectKind = "duplicate"
	RejectRateLimited    RejectKind = "rate_limited"
	RejectStateMismatch  RejectKind = "state_mismatch"
	RejectWrongInputType RejectKind = "wrong_input_type"
	RejectInvalidButton  RejectKind = "invalid_button"
)

// Default correction messages. Duplicate rejections deliberately carry none:
// the orchestrator must send nothing for them.
const (
	msgRateLimited = "You are sending messages too quickly. Please wait a moment."
	msgStale       = "Let's pick up where we left off."
)

// Request carries everything the validator needs about one inbound event.
type Request struct {
	Key    statestore.SessionKey
	UserID string
	State  *statestore.DialogState // nil when no session exists
	Step   *scenario.Step          // nil when current_step is unresolvable
	Input  types.UserInput
}

// Result is the outcome of validating one inbound event. When Valid is
// false, Kind says why and CorrectionMessage (possibly empty) is what the
// orchestrator should send back. Value holds the normalized input on
// success, ready to store under the step's variable.
type Result struct {
	Valid             bool
	Kind              RejectKind
	CorrectionMessage string
	SuggestedButtons  []types.Button
	Command           bool
	Value             any
}

// RateLimiter bounds per-user request throughput. Allow reports whether one
// more request from key is permitted right now.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Validator runs the inbound validation pipeline. It is safe for concurrent
// use.
type Validator struct {
	cache   cache.Cache
	limiter RateLimiter
	proc    *processor.Processor
	cfg     *config.Config
}

// New builds a Validator backed by the given cache for duplicate records.
// A nil limiter disables rate limiting.
func New(c cache.Cache, limiter RateLimiter, cfg *config.Config) *Validator {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Validator{
		cache:   c,
		limiter: limiter,
		proc:    processor.New(),
		cfg:     cfg,
	}
}

// Validate runs the rejection pipeline, short-circuiting on the first
// failure: duplicate check, rate limit, state consistency, then content
// validation against the step's expected input. Commands skip the last two
// stages; the orchestrator routes them separately. The input fingerprint is
// recorded only when the event passes, so a rejected input does not shadow
// a corrected retry.
func (v *Validator) Validate(ctx context.Context, req Request) (*Result, error) {
	stepID := currentStepID(req.State)
	command := v.isCommand(req.Input)
	if command {
		// Commands mean the same thing at every step; a double-tapped
		// /start is a duplicate regardless of where the session sits.
		stepID = ""
	}
	fp := Fingerprint(req.Input, stepID)
	dupKey := duplicateKey(req.Key.BotID, req.UserID, fp)

	// Fast path; the atomic claim in accept() is what makes duplicate
	// suppression hold under concurrent delivery.
	if v.cfg.DuplicateWindow() > 0 {
		_, seen, err := v.cache.Get(ctx, dupKey)
		if err != nil {
			return nil, fmt.Errorf("duplicate check: %w", err)
		}
		if seen {
			logger.InputRejected(ctx, string(RejectDuplicate), "fingerprint", fp)
			return &Result{Kind: RejectDuplicate}, nil
		}
	}

	if v.limiter != nil {
		allowed, err := v.limiter.Allow(ctx, req.Key.BotID+":"+req.UserID)
		if err != nil {
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			logger.InputRejected(ctx, string(RejectRateLimited), "user_id", req.UserID)
			return &Result{Kind: RejectRateLimited, CorrectionMessage: msgRateLimited}, nil
		}
	}

	if command {
		return v.accept(ctx, dupKey, &Result{Valid: true, Command: true, Value: req.Input.Value})
	}

	if req.State == nil || req.Step == nil {
		logger.InputRejected(ctx, string(RejectStateMismatch))
		return &Result{Kind: RejectStateMismatch, CorrectionMessage: msgStale}, nil
	}

	if req.Step.ExpectedInput == nil {
		// Nothing to validate against; the orchestrator resends the step.
		return v.accept(ctx, dupKey, &Result{Valid: true})
	}

	value, err := v.proc.ValidateInput(req.Step, req.Input)
	if err != nil {
		var inErr *processor.InputError
		if !errors.As(err, &inErr) {
			return nil, fmt.Errorf("content check: %w", err)
		}
		if inErr.Reason == processor.ReasonInvalidButton && !v.cfg.StrictButtons() {
			// Lenient mode accepts out-of-set button values as-is.
			return v.accept(ctx, dupKey, &Result{Valid: true, Value: req.Input.Value})
		}
		res := &Result{
			Kind:              rejectKindFor(inErr.Reason),
			CorrectionMessage: inErr.Message,
		}
		if len(req.Step.Buttons) > 0 {
			res.SuggestedButtons = req.Step.Buttons
		}
		logger.InputRejected(ctx, string(res.Kind), "reason", inErr.Reason)
		return res, nil
	}

	return v.accept(ctx, dupKey, &Result{Valid: true, Value: value})
}

// accept records the input fingerprint and returns res. The atomic SetNX is
// the authoritative duplicate check: when an identical event raced past the
// earlier Get, exactly one of them claims the fingerprint here and the loser
// is rejected as a duplicate.
func (v *Validator) accept(ctx context.Context, dupKey string, res *Result) (*Result, error) {
	if v.cfg.DuplicateWindow() > 0 {
		ok, err := v.cache.SetNX(ctx, dupKey, "1", v.cfg.DuplicateWindow())
		if err != nil {
			return nil, fmt.Errorf("record fingerprint: %w", err)
		}
		if !ok {
			logger.InputRejected(ctx, string(RejectDuplicate), "fingerprint_race", true)
			return &Result{Kind: RejectDuplicate}, nil
		}
	}
	return res, nil
}

func (v *Validator) isCommand(in types.UserInput) bool {
	return in.Kind == types.InputText && strings.HasPrefix(in.Value, v.cfg.CommandPrefix) &&
		len(in.Value) > len(v.cfg.CommandPrefix)
}

func rejectKindFor(reason string) RejectKind {
	if reason == processor.ReasonInvalidButton {
		return RejectInvalidButton
	}
	return RejectWrongInputType
}

// Fingerprint derives the duplicate-detection hash for an input at a step.
// Identical content at the same step within the window is a duplicate;
// crossing a step boundary resets that.
func Fingerprint(in types.UserInput, stepID string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", in.Kind, contentOf(in), stepID)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func contentOf(in types.UserInput) string {
	switch in.Kind {
	case types.InputFile:
		if in.File != nil {
			return in.File.FileID
		}
	case types.InputLocation:
		if in.Location != nil {
			return fmt.Sprintf("%f,%f", in.Location.Latitude, in.Location.Longitude)
		}
	}
	return in.Value
}

func duplicateKey(botID, userID, fp string) string {
	return fmt.Sprintf("dedupe:%s:%s:%s", botID, userID, fp)
}

func currentStepID(st *statestore.DialogState) string {
	if st == nil {
		return ""
	}
	return st.CurrentStep
}
