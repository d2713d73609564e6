package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_DefaultPrice(t *testing.T) {
	p := &Product{Price: []Price{
		{Value: 4100, Symbol: "UAH"},
		{Value: 100, Symbol: "USD", IsDefault: true},
	}}

	price := p.DefaultPrice()
	require.NotNil(t, price)
	assert.Equal(t, "USD", price.Symbol)
}

func TestProduct_DefaultPriceFallsBackToFirst(t *testing.T) {
	p := &Product{Price: []Price{
		{Value: 4100, Symbol: "UAH"},
		{Value: 100, Symbol: "USD"},
	}}

	price := p.DefaultPrice()
	require.NotNil(t, price)
	assert.Equal(t, "UAH", price.Symbol)
}

func TestProduct_DefaultPriceEmptyList(t *testing.T) {
	p := &Product{}
	assert.Nil(t, p.DefaultPrice())
}

func TestValidatePrices(t *testing.T) {
	tests := []struct {
		name   string
		prices []Price
		want   error
	}{
		{
			name: "valid single default",
			prices: []Price{
				{Value: 100, Symbol: "USD", IsDefault: true},
				{Value: 4100, Symbol: "UAH"},
			},
		},
		{
			name:   "valid without default",
			prices: []Price{{Value: 100, Symbol: "USD"}},
		},
		{
			name: "empty list",
			want: ErrNoPrices,
		},
		{
			name:   "zero value",
			prices: []Price{{Value: 0, Symbol: "USD"}},
			want:   ErrInvalidPriceValue,
		},
		{
			name:   "negative value",
			prices: []Price{{Value: -10, Symbol: "USD", IsDefault: true}},
			want:   ErrInvalidPriceValue,
		},
		{
			name: "two defaults",
			prices: []Price{
				{Value: 100, Symbol: "USD", IsDefault: true},
				{Value: 4100, Symbol: "UAH", IsDefault: true},
			},
			want: ErrMultipleDefaults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrices(tt.prices)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
