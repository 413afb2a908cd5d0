package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

var epoch = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// steppingClock returns epoch, epoch+step, epoch+2*step, ...
func steppingClock(step time.Duration) func() time.Time {
	var (
		mu   sync.Mutex
		next = epoch
	)

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		t := next
		next = next.Add(step)

		return t
	}
}

func seed(t *testing.T, s *Store, n int) []*domain.Quote {
	t.Helper()

	quotes := make([]*domain.Quote, 0, n)

	for i := range n {
		q, err := s.Insert(context.Background(), fmt.Sprintf("author-%d", i), fmt.Sprintf("quote %d", i))
		require.NoError(t, err)

		quotes = append(quotes, q)
	}

	return quotes
}

func TestInsert(t *testing.T) {
	s := New(WithClock(steppingClock(time.Millisecond)))

	q, err := s.Insert(context.Background(), "Tolkien", "Not all those who wander are lost")

	require.NoError(t, err)
	assert.True(t, domain.IsQuoteID(q.ID))
	assert.Equal(t, "Tolkien", q.Author)
	assert.Equal(t, "Not all those who wander are lost", q.Text)
	assert.Equal(t, 1, q.Version)
	assert.True(t, epoch.Equal(q.CreatedAt))

	got, err := s.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestInsert_TruncatesToMillisecond(t *testing.T) {
	s := New(WithClock(func() time.Time { return epoch.Add(1500 * time.Microsecond) }))

	q, err := s.Insert(context.Background(), "a", "b")

	require.NoError(t, err)
	assert.True(t, epoch.Add(time.Millisecond).Equal(q.CreatedAt))
}

func TestGet_NotFound(t *testing.T) {
	s := New()

	_, err := s.Get(context.Background(), domain.NewQuoteID())

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := New()
	q := seed(t, s, 1)[0]

	got, err := s.Get(context.Background(), q.ID)
	require.NoError(t, err)

	got.Author = "mutated"

	again, err := s.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, "author-0", again.Author)
}

func TestListFrom(t *testing.T) {
	s := New(WithClock(steppingClock(time.Millisecond)))
	quotes := seed(t, s, 5)

	tests := []struct {
		name      string
		watermark time.Time
		limit     int
		expected  []*domain.Quote
	}{
		{name: "no lower bound", limit: 4, expected: quotes[:4]},
		{name: "limit larger than store", limit: 10, expected: quotes},
		{name: "inclusive watermark", watermark: quotes[2].CreatedAt, limit: 4, expected: quotes[2:]},
		{name: "watermark between quotes", watermark: quotes[1].CreatedAt.Add(time.Microsecond), limit: 4, expected: quotes[2:]},
		{name: "watermark after last", watermark: quotes[4].CreatedAt.Add(time.Second), limit: 4, expected: []*domain.Quote{}},
		{name: "zero limit", limit: 0, expected: []*domain.Quote{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListFrom(context.Background(), tt.watermark, tt.limit)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestListFrom_TiesKeepInsertionOrder(t *testing.T) {
	s := New(WithClock(func() time.Time { return epoch }))
	quotes := seed(t, s, 3)

	got, err := s.ListFrom(context.Background(), time.Time{}, 10)

	require.NoError(t, err)
	assert.Equal(t, quotes, got)
}

func TestUpdate(t *testing.T) {
	s := New(WithClock(steppingClock(time.Millisecond)))
	q := seed(t, s, 1)[0]

	v2, err := s.Update(context.Background(), q.ID, "Bilbo", "There and back again")
	require.NoError(t, err)

	assert.Equal(t, q.ID, v2.ID)
	assert.Equal(t, "Bilbo", v2.Author)
	assert.Equal(t, "There and back again", v2.Text)
	assert.Equal(t, 2, v2.Version)
	assert.True(t, q.CreatedAt.Equal(v2.CreatedAt))

	v3, err := s.Update(context.Background(), q.ID, "Bilbo", "There and back again")
	require.NoError(t, err)
	assert.Equal(t, 3, v3.Version)
}

func TestUpdate_NotFound(t *testing.T) {
	s := New()

	_, err := s.Update(context.Background(), domain.NewQuoteID(), "a", "b")

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := New(WithClock(steppingClock(time.Millisecond)))
	quotes := seed(t, s, 3)

	deleted, err := s.Delete(context.Background(), quotes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, quotes[1], deleted)

	_, err = s.Get(context.Background(), quotes[1].ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	remaining, err := s.ListFrom(context.Background(), time.Time{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []*domain.Quote{quotes[0], quotes[2]}, remaining)

	_, err = s.Delete(context.Background(), quotes[1].ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_WithTimestampTies(t *testing.T) {
	s := New(WithClock(func() time.Time { return epoch }))
	quotes := seed(t, s, 3)

	_, err := s.Delete(context.Background(), quotes[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestClear(t *testing.T) {
	s := New()
	seed(t, s, 4)

	require.NoError(t, s.Clear(context.Background()))

	assert.Zero(t, s.Len())

	got, err := s.ListFrom(context.Background(), time.Time{}, 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			q, err := s.Insert(context.Background(), "author", fmt.Sprint(i))
			assert.NoError(t, err)

			_, err = s.Update(context.Background(), q.ID, "author", "updated")
			assert.NoError(t, err)

			_, err = s.ListFrom(context.Background(), time.Time{}, 4)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 20, s.Len())
}

func TestHealthCheck(t *testing.T) {
	s := New()

	assert.Equal(t, "quote-store", s.Name())
	require.NoError(t, s.Check(context.Background()))
}
