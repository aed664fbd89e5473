package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows      []TimelineRow
	err       error
	lastQuery WindowQuery
}

func (s *stubTimelineRepo) Window(ctx context.Context, q WindowQuery) ([]TimelineRow, error) {
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	if q.Offset >= len(s.rows) {
		return nil, nil
	}
	end := q.Offset + q.Limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[q.Offset:end], nil
}

func sampleRows(n int) []TimelineRow {
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{
			ID:       int64(n - i),
			At:       base.Add(-time.Duration(i) * time.Hour),
			ActorID:  1,
			Action:   "account.blocked",
			Entity:   "account",
			EntityID: "4",
		}
	}
	return rows
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: sampleRows(3)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)
	require.Equal(t, 3, repo.lastQuery.Limit)
	require.Equal(t, 0, repo.lastQuery.Offset)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, 2, repo.lastQuery.Offset)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500, Action: "  role.updated "})
	require.NoError(t, err)
	require.Equal(t, maxPageSize+1, repo.lastQuery.Limit)
	require.Equal(t, "role.updated", repo.lastQuery.Action)
	require.Equal(t, 1, result.Paging.Page)
	require.NotNil(t, result.Rows)

	_, err = svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Equal(t, defaultPageSize+1, repo.lastQuery.Limit)
}

func TestServiceTimelineErrors(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = NewService(&stubTimelineRepo{err: boom}).Timeline(context.Background(), TimelineFilters{})
	require.ErrorIs(t, err, boom)
}
