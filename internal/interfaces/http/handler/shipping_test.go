package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippingHandler_Quote(t *testing.T) {
	tests := []struct {
		name string
		body string
		want shipping.Quote
	}{
		{
			name: "lagos light cart",
			body: `{"state":"Lagos","items":[{"quantity":2,"weightKg":0.5}]}`,
			want: shipping.Quote{DeliveryMethod: shipping.DeliveryMethodShipping, State: "Lagos", TotalWeightKg: 1, RateMinor: 2500},
		},
		{
			name: "other state heavy cart",
			body: `{"state":"Kano","items":[{"quantity":1,"weightKg":12}]}`,
			want: shipping.Quote{DeliveryMethod: shipping.DeliveryMethodShipping, State: "Kano", TotalWeightKg: 12, RateMinor: 9000},
		},
		{
			name: "pickup is free",
			body: `{"deliveryMethod":"pickup","state":"Lagos","items":[{"quantity":1,"weightKg":3}]}`,
			want: shipping.Quote{DeliveryMethod: shipping.DeliveryMethodPickup, State: "Lagos", RateMinor: 0},
		},
		{
			name: "no weight falls back",
			body: `{"state":"Abuja","items":[{"quantity":1}]}`,
			want: shipping.Quote{DeliveryMethod: shipping.DeliveryMethodShipping, State: "Abuja", RateMinor: shipping.FallbackRateOther},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)

			w := api.do(http.MethodPost, "/api/v1/shipping/quote", tt.body)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var quote shipping.Quote
			require.NoError(t, json.Unmarshal(decode(t, w).Data, &quote))
			assert.Equal(t, tt.want.DeliveryMethod, quote.DeliveryMethod)
			assert.Equal(t, tt.want.State, quote.State)
			assert.InDelta(t, tt.want.TotalWeightKg, quote.TotalWeightKg, 1e-9)
			assert.Equal(t, tt.want.RateMinor, quote.RateMinor)
			assert.Empty(t, api.backend.Calls())
		})
	}
}

func TestShippingHandler_Quote_RejectsNegativeQuantity(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/shipping/quote", `{"state":"Lagos","items":[{"quantity":-1}]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
