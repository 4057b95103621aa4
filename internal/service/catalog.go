package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmcdole/vkaudio/internal/challenge"
	"github.com/mmcdole/vkaudio/internal/domain"
	"github.com/mmcdole/vkaudio/internal/importer"
	"github.com/mmcdole/vkaudio/internal/vk"
)

// CatalogClient issues raw catalog requests (implemented by vk.Client)
type CatalogClient interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]byte, error)
	ListUserAudios(ctx context.Context, req domain.SearchRequest) ([]byte, error)
	CheckToken(ctx context.Context, req domain.SearchRequest) ([]byte, error)
	FetchChallengeImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Outcome describes a finished search or listing
type Outcome struct {
	State    challenge.State // captcha state the operation ended in
	Attempts int             // captchas shown
	Notice   string          // set when the catalog reported no results
	Results  []domain.RemoteResult
	Report   importer.Report
}

// Abandoned reports whether the user dropped the operation at a captcha
func (o Outcome) Abandoned() bool {
	return o.State == challenge.StateAbandoned
}

// CatalogService runs catalog operations end to end:
// request, captcha replay, parse, import.
type CatalogService struct {
	client   CatalogClient
	resolver *challenge.Resolver
	writer   *importer.Writer
	library  domain.LibraryStore
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(client CatalogClient, solver challenge.Solver, maxAttempts int, library domain.LibraryStore, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		client:   client,
		resolver: challenge.NewResolver(client, solver, maxAttempts, logger),
		writer:   importer.NewWriter(library, logger),
		library:  library,
		logger:   logger,
	}
}

// Search queries the catalog and imports the results
func (s *CatalogService) Search(ctx context.Context, req domain.SearchRequest) (Outcome, error) {
	if req.Query == "" {
		return Outcome{}, domain.ErrEmptyQuery
	}
	s.logger.Info("searching catalog", "query", req.Query, "fuzzy", req.Fuzzy, "count", req.Count)
	return s.importFrom(ctx, req, s.client.Search)
}

// ListUserAudios imports the token owner's own audio list
func (s *CatalogService) ListUserAudios(ctx context.Context, req domain.SearchRequest) (Outcome, error) {
	s.logger.Info("listing user audios", "count", req.Count)
	return s.importFrom(ctx, req, s.client.ListUserAudios)
}

// CheckToken verifies the token is usable. A rejected token is (false, nil);
// other failures are returned.
func (s *CatalogService) CheckToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, domain.ErrNoToken
	}

	req := domain.SearchRequest{Token: token}
	res, err := s.resolve(ctx, req, s.client.CheckToken)
	if err != nil {
		return false, err
	}

	if res.State == challenge.StateAbandoned {
		return false, nil
	}

	switch res.Response.Kind {
	case vk.KindAck:
		return res.Response.Ack, nil
	case vk.KindError:
		if res.Response.Err.Is(domain.ErrAuthFailed) {
			s.logger.Warn("access token rejected", "error", res.Response.Err)
			return false, nil
		}
		return false, res.Response.Err
	default:
		return false, fmt.Errorf("%w: unexpected %s response to token check", domain.ErrMalformedResponse, res.Response.Kind)
	}
}

// Records returns the imported library
func (s *CatalogService) Records() ([]*domain.Record, error) {
	return s.library.All()
}

// Clear removes every imported record and returns how many were removed
func (s *CatalogService) Clear() (int, error) {
	removed, err := s.library.DeleteByType(domain.EntryType)
	if err != nil {
		return 0, fmt.Errorf("failed to clear library: %w", err)
	}
	if err := s.library.Commit(); err != nil {
		return removed, fmt.Errorf("failed to commit library: %w", err)
	}
	s.logger.Info("library cleared", "removed", removed)
	return removed, nil
}

type callFunc func(ctx context.Context, req domain.SearchRequest) ([]byte, error)

func (s *CatalogService) importFrom(ctx context.Context, req domain.SearchRequest, call callFunc) (Outcome, error) {
	res, err := s.resolve(ctx, req.Normalize(), call)
	out := Outcome{State: res.State, Attempts: res.Attempts}
	if err != nil {
		return out, err
	}

	if out.Abandoned() {
		return out, nil
	}

	resp := res.Response
	switch resp.Kind {
	case vk.KindError:
		s.logger.Error("catalog returned an error", "code", resp.Err.Code, "message", resp.Err.Message)
		return out, resp.Err
	case vk.KindEmpty:
		out.Notice = resp.Notice
		return out, nil
	case vk.KindAck:
		return out, fmt.Errorf("%w: unexpected scalar response", domain.ErrMalformedResponse)
	}

	out.Results = resp.Results
	out.Report = s.writer.ImportAll(resp.Results)
	out.Report.Malformed += resp.Malformed
	return out, nil
}

// resolve sends req through the captcha resolver, parsing each reply
func (s *CatalogService) resolve(ctx context.Context, req domain.SearchRequest, call callFunc) (challenge.Result, error) {
	return s.resolver.Do(ctx, func(ctx context.Context, answer *domain.ChallengeAnswer) (vk.Response, error) {
		body, err := call(ctx, req.WithChallenge(answer))
		if err != nil {
			return vk.Response{}, err
		}
		return vk.Parse(body)
	})
}
