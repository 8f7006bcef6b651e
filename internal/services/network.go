// Package services wires the connectivity libraries to segment storage and
// the roads API, exposing the operations callers actually run: endpoint
// reports, stretch assembly, continuity checks, distance cuts, and crossing
// detection.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dpup/roadnet/internal/config"
	"github.com/dpup/roadnet/internal/errdefs"
	"github.com/dpup/roadnet/internal/lib/connectivity"
	"github.com/dpup/roadnet/internal/lib/continuity"
	"github.com/dpup/roadnet/internal/lib/crossing"
	"github.com/dpup/roadnet/internal/lib/geo"
	"github.com/dpup/roadnet/internal/lib/segmenter"
	"github.com/dpup/roadnet/internal/lib/spatial"
	"github.com/dpup/roadnet/internal/lib/stretch"
)

// NetworkService answers connectivity questions about stored road segments
type NetworkService struct {
	index     *spatial.Index
	matcher   *connectivity.Matcher
	traverser *stretch.Traverser
	validator *continuity.Validator
	segmenter *segmenter.Segmenter
	detector  *crossing.Detector
	tolerance connectivity.Tolerance
	batchSize int
	logger    *logrus.Logger
}

// NewNetworkService creates a NetworkService. fetcher may be nil when
// crossing detection is not needed; the crossing operations then fail with
// an invalid-argument error.
func NewNetworkService(source spatial.SegmentSource, fetcher crossing.Fetcher, cfg *config.Config, logger *logrus.Logger) (*NetworkService, error) {
	tol, err := connectivity.ToleranceFromMeters(cfg.Connectivity.ToleranceMeters)
	if err != nil {
		return nil, err
	}

	matcher := connectivity.NewMatcher()

	var detector *crossing.Detector
	if fetcher != nil {
		detector = crossing.NewDetector(fetcher, crossing.Options{
			ProximityToleranceMeters: cfg.Crossing.ProximityMeters,
			ExclusionToleranceMeters: cfg.Crossing.ExclusionMeters,
			SearchBufferMeters:       cfg.Crossing.SearchBufferMeters,
			MaxCandidates:            cfg.Crossing.MaxCandidates,
			MaxPages:                 cfg.Crossing.MaxPages,
		})
	}

	return &NetworkService{
		index:     spatial.NewIndex(source),
		matcher:   matcher,
		traverser: stretch.NewTraverser(matcher, cfg.Stretch.MaxHops),
		validator: continuity.NewValidator(matcher),
		segmenter: segmenter.NewSegmenter(),
		detector:  detector,
		tolerance: tol,
		batchSize: cfg.Workers.BatchConcurrency,
		logger:    logger,
	}, nil
}

// ConnectionsResult pairs an endpoint report with the candidates that could
// not take part in matching.
type ConnectionsResult struct {
	Report  connectivity.Report
	Skipped []spatial.Skipped
}

// Connections classifies both endpoints of a stored segment against its
// neighborhood.
func (s *NetworkService) Connections(ctx context.Context, segmentID string) (*ConnectionsResult, error) {
	seed, candidates, skipped, err := s.neighborhood(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	report := s.matcher.Connections(seed, candidates, s.tolerance)
	s.logger.Infof("Connections for %s: start=%s end=%s intersection=%v",
		segmentID, report.StartKind, report.EndKind, report.IsIntersection)

	return &ConnectionsResult{Report: report, Skipped: skipped}, nil
}

// StretchResult pairs an assembled stretch with its merged geometry and the
// candidates skipped while loading the neighborhood.
type StretchResult struct {
	Stretch *stretch.Stretch
	Merged  stretch.MergedGeometry
	Skipped []spatial.Skipped
}

// Stretch traverses outward from the seed segment in both directions and
// merges the chain into one geometry.
func (s *NetworkService) Stretch(ctx context.Context, seedID string) (*StretchResult, error) {
	_, candidates, skipped, err := s.neighborhood(ctx, seedID)
	if err != nil {
		return nil, err
	}

	result, err := s.traverser.Traverse(ctx, seedID, candidates, s.tolerance)
	if err != nil {
		return nil, err
	}

	if result.Truncated {
		s.logger.Warnf("Stretch from %s truncated after %d segments", seedID, len(result.Segments))
	}
	s.logger.Infof("Stretch from %s: %d segments, %.3f km", seedID, len(result.Segments), result.TotalLengthKm)

	return &StretchResult{
		Stretch: result,
		Merged:  stretch.Merge(result),
		Skipped: skipped,
	}, nil
}

// Stretches resolves a stretch for each seed concurrently. Results keep the
// order of seedIDs; failed seeds leave a nil entry and their errors are
// combined.
func (s *NetworkService) Stretches(ctx context.Context, seedIDs []string) ([]*StretchResult, error) {
	results := make([]*StretchResult, len(seedIDs))

	var mu sync.Mutex
	var errs error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchSize)
	for i, id := range seedIDs {
		i, id := i, id
		g.Go(func() error {
			result, err := s.Stretch(gctx, id)
			if err != nil {
				s.logger.Errorf("Stretch for %s failed: %v", id, err)
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("seed %s: %w", id, err))
				mu.Unlock()
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, errs
}

// Continuity checks whether the named segments form a single connected
// chain among themselves.
func (s *NetworkService) Continuity(ctx context.Context, segmentIDs []string) (*continuity.Report, error) {
	scope, skipped, err := s.index.Load(ctx, segmentIDs)
	if err != nil {
		return nil, err
	}
	for _, sk := range skipped {
		return nil, fmt.Errorf("%w: segment %s (%s)", errdefs.ErrNotFound, sk.ID, sk.Reason)
	}

	report, err := s.validator.Validate(segmentIDs, scope, s.tolerance)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Continuity over %d segments: continuous=%v connected=%d",
		len(segmentIDs), report.IsContinuous, report.ConnectedCount)
	return report, nil
}

// Cuts splits a stored segment into pieces of roughly targetKm length.
func (s *NetworkService) Cuts(ctx context.Context, segmentID string, targetKm float64) ([]segmenter.Cut, error) {
	seed, err := s.load(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	cuts, err := s.segmenter.Cuts(seed.ID, seed.Points, targetKm)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Cut %s (%.3f km) into %d pieces at %.3f km", segmentID, seed.LengthKm, len(cuts), targetKm)
	return cuts, nil
}

// StretchCuts assembles the stretch around the seed and splits the merged
// geometry into pieces of roughly targetKm length.
func (s *NetworkService) StretchCuts(ctx context.Context, seedID string, targetKm float64) ([]segmenter.Cut, error) {
	result, err := s.Stretch(ctx, seedID)
	if err != nil {
		return nil, err
	}
	return s.segmenter.Cuts(result.Merged.ID, result.Merged.Coordinates, targetKm)
}

// Crossings finds points where other stored roads touch the segment's
// geometry.
func (s *NetworkService) Crossings(ctx context.Context, segmentID string) ([]geo.Point, error) {
	if s.detector == nil {
		return nil, fmt.Errorf("%w: no road fetcher configured", errdefs.ErrInvalidArgument)
	}

	seed, err := s.load(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	points, err := s.detector.Find(ctx, seed.Points)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Found %d crossings on %s", len(points), segmentID)
	return points, nil
}

// load fetches and decodes a single segment by id.
func (s *NetworkService) load(ctx context.Context, segmentID string) (*connectivity.Segment, error) {
	segments, skipped, err := s.index.Load(ctx, []string{segmentID})
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		reason := "not found in storage"
		if len(skipped) > 0 {
			reason = skipped[0].Reason
		}
		return nil, fmt.Errorf("%w: segment %s (%s)", errdefs.ErrNotFound, segmentID, reason)
	}
	return segments[0], nil
}

// neighborhood loads the seed segment and every decodable candidate near it.
func (s *NetworkService) neighborhood(ctx context.Context, segmentID string) (*connectivity.Segment, []*connectivity.Segment, []spatial.Skipped, error) {
	seed, err := s.load(ctx, segmentID)
	if err != nil {
		return nil, nil, nil, err
	}

	candidates, skipped, err := s.index.CandidatesNear(ctx, seed, s.tolerance)
	if err != nil {
		return nil, nil, nil, err
	}
	return seed, candidates, skipped, nil
}
