package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFeed struct {
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakeFeed) FetchPricePerGram(context.Context) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.price, nil
}

func TestPricePerGramServesFeedQuote(t *testing.T) {
	feed := &fakeFeed{price: decimal.NewFromInt(65)}
	svc := NewService(feed, nil, zap.NewNop())

	price, err := svc.PricePerGram(context.Background())
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(65)))
	assert.Equal(t, 1, feed.calls)
}

func TestPricePerGramWithoutCacheHitsFeedEveryTime(t *testing.T) {
	feed := &fakeFeed{price: decimal.NewFromInt(65)}
	svc := NewService(feed, nil, zap.NewNop())

	_, err := svc.PricePerGram(context.Background())
	require.NoError(t, err)
	_, err = svc.PricePerGram(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, feed.calls, "with no cache every quote goes upstream")
}

func TestPricePerGramFeedDownNoFallback(t *testing.T) {
	feed := &fakeFeed{err: errors.New("connection refused")}
	svc := NewService(feed, nil, zap.NewNop())

	_, err := svc.PricePerGram(context.Background())
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}
