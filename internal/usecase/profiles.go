package usecase

import (
	"context"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/talentfinder/internal/adapter/observability"
	"github.com/fairyhunter13/talentfinder/internal/domain"
)

// ProfileFetcher turns ranked stubs into full profiles. Individual fetch
// failures are logged and left out; they never fail the batch.
type ProfileFetcher struct {
	api   domain.ProfileAPI
	limit int
}

// NewProfileFetcher builds a fetcher. limit caps concurrent fetches; 0 runs
// one fetch per stub at once.
func NewProfileFetcher(api domain.ProfileAPI, limit int) *ProfileFetcher {
	return &ProfileFetcher{api: api, limit: limit}
}

// Hydrate fetches every stub concurrently and returns the profiles that
// succeeded, in stub order. Repeated document ids are fetched once.
func (f *ProfileFetcher) Hydrate(ctx context.Context, stubs []domain.ResultStub) []domain.Profile {
	ctx, span := otel.Tracer("usecase.profiles").Start(ctx, "ProfileFetcher.Hydrate")
	defer span.End()

	unique := dedupeStubs(stubs)
	span.SetAttributes(attribute.Int("profiles.requested", len(unique)))
	if len(unique) == 0 {
		return []domain.Profile{}
	}

	lg := observability.LoggerFromContext(ctx)
	results := make([]*domain.Profile, len(unique))
	var g errgroup.Group
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}
	for i, stub := range unique {
		g.Go(func() error {
			p, err := f.api.GetProfile(ctx, stub.DocumentID)
			if err != nil {
				lg.Warn("profile fetch failed; dropping from results",
					slog.String("document_id", stub.DocumentID),
					slog.Any("error", err))
				return nil
			}
			p.DocumentID = stub.DocumentID
			p.Score = RoundScore(stub.Score)
			results[i] = &p
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Profile, 0, len(unique))
	for _, p := range results {
		if p != nil {
			out = append(out, *p)
		}
	}
	dropped := len(unique) - len(out)
	observability.RecordDroppedProfiles(dropped)
	span.SetAttributes(attribute.Int("profiles.dropped", dropped))
	return out
}

func dedupeStubs(stubs []domain.ResultStub) []domain.ResultStub {
	seen := make(map[string]struct{}, len(stubs))
	out := make([]domain.ResultStub, 0, len(stubs))
	for _, s := range stubs {
		if _, ok := seen[s.DocumentID]; ok {
			continue
		}
		seen[s.DocumentID] = struct{}{}
		out = append(out, s)
	}
	return out
}

// RoundScore rounds to the nearest integer with halves going toward
// positive infinity, so 2.5 becomes 3 and -2.5 becomes -2. x+0.5 is not
// used because it rounds up values just below one half.
func RoundScore(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 {
		return f + 1
	}
	return f
}
