package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/yumiaura/RedditSync/internal/domain"
	"github.com/yumiaura/RedditSync/internal/service/mocks"
)

type IngestServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source    *mocks.MockSource
	items     *mocks.MockItemStore
	publisher *mocks.MockPublisher

	service *IngestService
	logger  *slog.Logger
	sub     domain.Subscription
}

func (s *IngestServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.items = mocks.NewMockItemStore(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.sub = domain.Subscription{SourceID: "unixporn"}

	s.service = NewIngestService(s.source, s.items, s.publisher, s.logger, 100)
}

func (s *IngestServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestIngestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IngestServiceTestSuite))
}

func candidates(ids ...string) []domain.Item {
	items := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, domain.Item{
			ExternalID: id,
			SourceID:   "unixporn",
			CreatedUTC: 1700000000,
			Score:      5,
		})
	}
	return items
}

func (s *IngestServiceTestSuite) TestIngestSource_AllNew() {
	ctx := context.Background()
	batch := candidates("t3_a", "t3_b", "t3_c")

	s.source.EXPECT().FetchRecent(ctx, "unixporn", 100).Return(batch, nil)
	s.items.EXPECT().InsertIfAbsent(ctx, gomock.Any()).Return(true, nil).Times(3)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(3)

	stats, err := s.service.IngestSource(ctx, s.sub)

	s.NoError(err)
	s.Equal(3, stats.Fetched)
	s.Equal(3, stats.Inserted)
	s.Equal(0, stats.Skipped)
	s.Equal(0, stats.Errors)
}

func (s *IngestServiceTestSuite) TestIngestSource_SecondPassIsIdempotent() {
	ctx := context.Background()
	batch := candidates("t3_a", "t3_b", "t3_c")

	// Everything already known: nothing inserted, metrics refreshed.
	s.source.EXPECT().FetchRecent(ctx, "unixporn", 100).Return(batch, nil)
	s.items.EXPECT().InsertIfAbsent(ctx, gomock.Any()).Return(false, nil).Times(3)
	s.items.EXPECT().UpdateMetrics(ctx, gomock.Any(), 5, 0).Return(nil).Times(3)

	stats, err := s.service.IngestSource(ctx, s.sub)

	s.NoError(err)
	s.Equal(0, stats.Inserted)
	s.Equal(3, stats.Skipped)
}

func (s *IngestServiceTestSuite) TestIngestSource_MixedNewAndKnown() {
	ctx := context.Background()
	batch := candidates("t3_new", "t3_a", "t3_b", "t3_c")

	s.source.EXPECT().FetchRecent(ctx, "unixporn", 100).Return(batch, nil)
	s.items.EXPECT().InsertIfAbsent(ctx, &batch[0]).Return(true, nil)
	s.publisher.EXPECT().Publish(ctx, &batch[0]).Return(nil)
	for i := 1; i < 4; i++ {
		s.items.EXPECT().InsertIfAbsent(ctx, &batch[i]).Return(false, nil)
		s.items.EXPECT().UpdateMetrics(ctx, batch[i].ExternalID, 5, 0).Return(nil)
	}

	stats, err := s.service.IngestSource(ctx, s.sub)

	s.NoError(err)
	s.Equal(1, stats.Inserted)
	s.Equal(3, stats.Skipped)
}

func (s *IngestServiceTestSuite) TestIngestSource_SourceError() {
	ctx := context.Background()

	s.source.EXPECT().FetchRecent(ctx, "unixporn", 100).Return(nil, errors.New("api down"))

	stats, err := s.service.IngestSource(ctx, s.sub)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "fetch recent")
}

func (s *IngestServiceTestSuite) TestIngestSource_StoreFailureAbortsBatch() {
	ctx := context.Background()
	batch := candidates("t3_a", "t3_b", "t3_c")

	s.source.EXPECT().FetchRecent(ctx, "unixporn", 100).Return(batch, nil)
	s.items.EXPECT().InsertIfAbsent(ctx, &batch[0]).Return(true, nil)
	s.publisher.EXPECT().Publish(ctx, &batch[0]).Return(nil)
	s.items.EXPECT().InsertIfAbsent(ctx, &batch[1]).Return(false, errors.New("disk full"))

	stats, err := s.service.IngestSource(ctx, s.sub)

	// Partial progress stays visible in the stats.
	s.Error(err)
	s.Equal(1, stats.Inserted)
	s.Equal(1, stats.Errors)
}

func (s *IngestServiceTestSuite) TestIngestSource_SkipsEmptyExternalID() {
	ctx := context.Background()
	batch := candidates("t3_a")
	batch = append(batch, domain.Item{SourceID: "unixporn"}) // no external id

	s.source.EXPECT().FetchRecent(ctx, "unixporn", 100).Return(batch, nil)
	s.items.EXPECT().InsertIfAbsent(ctx, &batch[0]).Return(true, nil)
	s.publisher.EXPECT().Publish(ctx, &batch[0]).Return(nil)

	stats, err := s.service.IngestSource(ctx, s.sub)

	s.NoError(err)
	s.Equal(1, stats.Inserted)
	s.Equal(1, stats.Errors)
}

func (s *IngestServiceTestSuite) TestIngestSource_NilPublisher() {
	ctx := context.Background()
	service := NewIngestService(s.source, s.items, nil, s.logger, 100)
	batch := candidates("t3_a")

	s.source.EXPECT().FetchRecent(ctx, "unixporn", 100).Return(batch, nil)
	s.items.EXPECT().InsertIfAbsent(ctx, gomock.Any()).Return(true, nil)

	stats, err := service.IngestSource(ctx, s.sub)

	s.NoError(err)
	s.Equal(1, stats.Inserted)
}

func (s *IngestServiceTestSuite) TestIngestSource_PublishErrorDoesNotAbort() {
	ctx := context.Background()
	batch := candidates("t3_a", "t3_b")

	s.source.EXPECT().FetchRecent(ctx, "unixporn", 100).Return(batch, nil)
	s.items.EXPECT().InsertIfAbsent(ctx, gomock.Any()).Return(true, nil).Times(2)
	s.publisher.EXPECT().Publish(ctx, &batch[0]).Return(errors.New("broker gone"))
	s.publisher.EXPECT().Publish(ctx, &batch[1]).Return(nil)

	stats, err := s.service.IngestSource(ctx, s.sub)

	s.NoError(err)
	s.Equal(2, stats.Inserted)
	s.Equal(1, stats.Errors)
}
