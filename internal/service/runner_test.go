package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/yumiaura/RedditSync/internal/domain"
	"github.com/yumiaura/RedditSync/internal/service/mocks"
)

type RunnerTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	subs     *mocks.MockSubscriptionStore
	ingester *mocks.MockIngester
	media    *mocks.MockMediaFetcher

	runner *Runner
}

func (s *RunnerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.subs = mocks.NewMockSubscriptionStore(s.ctrl)
	s.ingester = mocks.NewMockIngester(s.ctrl)
	s.media = mocks.NewMockMediaFetcher(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.runner = NewRunner(s.subs, s.ingester, s.media, logger)
}

func (s *RunnerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestRunnerTestSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (s *RunnerTestSuite) TestRunOnce_IngestsThenFetches() {
	ctx := context.Background()
	subs := []domain.Subscription{{SourceID: "unixporn"}, {SourceID: "golang"}}

	s.subs.EXPECT().List(ctx).Return(subs, nil)
	gomock.InOrder(
		s.ingester.EXPECT().IngestSource(ctx, subs[0]).
			Return(&domain.IngestStats{SourceID: "unixporn", Inserted: 3}, nil),
		s.ingester.EXPECT().IngestSource(ctx, subs[1]).
			Return(&domain.IngestStats{SourceID: "golang", Inserted: 1}, nil),
		s.media.EXPECT().FetchPending(ctx).
			Return(&domain.FetchStats{Downloaded: 2}, nil),
	)

	stats, err := s.runner.RunOnce(ctx)

	s.NoError(err)
	s.Len(stats.Sources, 2)
	s.Equal(4, stats.TotalInserted())
	s.Equal(2, stats.Fetch.Downloaded)
}

func (s *RunnerTestSuite) TestRunOnce_SourceFailureIsIsolated() {
	ctx := context.Background()
	subs := []domain.Subscription{{SourceID: "broken"}, {SourceID: "golang"}}

	s.subs.EXPECT().List(ctx).Return(subs, nil)
	s.ingester.EXPECT().IngestSource(ctx, subs[0]).Return(nil, errors.New("auth expired"))
	s.ingester.EXPECT().IngestSource(ctx, subs[1]).
		Return(&domain.IngestStats{SourceID: "golang", Inserted: 2}, nil)
	s.media.EXPECT().FetchPending(ctx).Return(&domain.FetchStats{}, nil)

	stats, err := s.runner.RunOnce(ctx)

	// The run still produces a summary with both sources accounted for.
	s.NoError(err)
	s.Len(stats.Sources, 2)
	s.Equal(1, stats.Sources[0].Errors)
	s.Equal(2, stats.Sources[1].Inserted)
}

func (s *RunnerTestSuite) TestRunOnce_MediaFailureStillReturnsSummary() {
	ctx := context.Background()

	s.subs.EXPECT().List(ctx).Return([]domain.Subscription{{SourceID: "unixporn"}}, nil)
	s.ingester.EXPECT().IngestSource(ctx, gomock.Any()).
		Return(&domain.IngestStats{SourceID: "unixporn", Inserted: 1}, nil)
	s.media.EXPECT().FetchPending(ctx).Return(nil, errors.New("media dir gone"))

	stats, err := s.runner.RunOnce(ctx)

	s.NoError(err)
	s.Equal(1, stats.TotalInserted())
	s.Equal(0, stats.Fetch.Downloaded)
}

func (s *RunnerTestSuite) TestRunOnce_SubscriptionListFailureIsFatal() {
	ctx := context.Background()

	s.subs.EXPECT().List(ctx).Return(nil, errors.New("cannot open database"))

	stats, err := s.runner.RunOnce(ctx)

	s.Error(err)
	s.Nil(stats)
}

func (s *RunnerTestSuite) TestRunOnce_OverlappingRunIsDropped() {
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	s.subs.EXPECT().List(ctx).Return([]domain.Subscription{{SourceID: "unixporn"}}, nil)
	s.ingester.EXPECT().IngestSource(ctx, gomock.Any()).DoAndReturn(
		func(context.Context, domain.Subscription) (*domain.IngestStats, error) {
			close(started)
			<-release
			return &domain.IngestStats{SourceID: "unixporn"}, nil
		},
	)
	s.media.EXPECT().FetchPending(ctx).Return(&domain.FetchStats{}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.runner.RunOnce(ctx)
		s.NoError(err)
	}()

	<-started

	// Second trigger while the first run is mid-ingest: dropped, no
	// additional work scheduled.
	stats, err := s.runner.RunOnce(ctx)
	s.ErrorIs(err, ErrRunInProgress)
	s.Nil(stats)

	close(release)
	wg.Wait()

	// With the first run finished the gate is open again.
	s.subs.EXPECT().List(ctx).Return(nil, nil)
	s.media.EXPECT().FetchPending(ctx).Return(&domain.FetchStats{}, nil)
	_, err = s.runner.RunOnce(ctx)
	s.NoError(err)
}
