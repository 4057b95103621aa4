package challenge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/vkaudio/internal/domain"
	"github.com/mmcdole/vkaudio/internal/vk"
)

// State is the position of a request in the captcha cycle
type State int

const (
	StateIdle           State = iota // no captcha seen yet
	StateAwaitingAnswer              // image shown, waiting on the solver
	StateResolved                    // answer attached, request resent
	StateAbandoned                   // empty answer, operation dropped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateResolved:
		return "resolved"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Prompt is what a Solver presents to the human
type Prompt struct {
	Challenge domain.ChallengeContext
	Image     []byte // raw image bytes, usually JPEG
	Attempt   int    // 1 for the first captcha of an operation
}

// Solver obtains a human answer for a captcha.
// An empty answer abandons the operation.
type Solver interface {
	Solve(ctx context.Context, p Prompt) (string, error)
}

// SolverFunc adapts a function to Solver
type SolverFunc func(ctx context.Context, p Prompt) (string, error)

func (f SolverFunc) Solve(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}

// ImageFetcher downloads captcha images
type ImageFetcher interface {
	FetchChallengeImage(ctx context.Context, imageURL string) ([]byte, error)
}

// SendFunc performs one catalog request with an optional captcha answer
type SendFunc func(ctx context.Context, answer *domain.ChallengeAnswer) (vk.Response, error)

// Result is the final outcome of a resolved request
type Result struct {
	Response vk.Response
	State    State
	Attempts int // captchas presented
}

// Resolver replays a request until the API stops asking for a captcha
type Resolver struct {
	images      ImageFetcher
	solver      Solver
	maxAttempts int // 0 = unbounded
	logger      *slog.Logger
}

// NewResolver creates a resolver. A nil solver makes every captcha a
// plain ErrChallengeRequired error.
func NewResolver(images ImageFetcher, solver Solver, maxAttempts int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		images:      images,
		solver:      solver,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Do runs send, and for as long as the response is a captcha error, asks the
// solver and resends with the answer attached. The answer is used for exactly
// one send.
func (r *Resolver) Do(ctx context.Context, send SendFunc) (Result, error) {
	result := Result{State: StateIdle}
	var answer *domain.ChallengeAnswer

	for {
		resp, err := send(ctx, answer)
		answer = nil
		if err != nil {
			return result, err
		}

		if resp.Kind != vk.KindError || resp.Challenge == nil {
			result.Response = resp
			return result, nil
		}

		if r.solver == nil {
			return result, resp.Err
		}

		if r.maxAttempts > 0 && result.Attempts >= r.maxAttempts {
			r.logger.Warn("captcha attempts exhausted", "attempts", result.Attempts)
			return result, fmt.Errorf("%w: gave up after %d", domain.ErrChallengeLimit, result.Attempts)
		}

		result.Attempts++
		result.State = StateAwaitingAnswer
		challenge := *resp.Challenge

		key, err := r.solve(ctx, challenge, result.Attempts)
		if err != nil {
			return result, err
		}

		if key == "" {
			r.logger.Info("captcha abandoned", "sid", challenge.ID, "attempt", result.Attempts)
			result.State = StateAbandoned
			return result, nil
		}

		r.logger.Debug("captcha answered, resending", "sid", challenge.ID, "attempt", result.Attempts)
		result.State = StateResolved
		answer = &domain.ChallengeAnswer{ID: challenge.ID, Key: key}
	}
}

func (r *Resolver) solve(ctx context.Context, challenge domain.ChallengeContext, attempt int) (string, error) {
	var image []byte
	if r.images != nil {
		img, err := r.images.FetchChallengeImage(ctx, challenge.ImageURL)
		if err != nil {
			return "", fmt.Errorf("failed to fetch captcha image: %w", err)
		}
		image = img
	}

	return r.solver.Solve(ctx, Prompt{
		Challenge: challenge,
		Image:     image,
		Attempt:   attempt,
	})
}
