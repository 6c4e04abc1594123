package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartHandler_Claim_Skips(t *testing.T) {
	tests := []struct {
		name       string
		opts       []requestOption
		wantReason string
	}{
		{"no cart token", []requestOption{withHeader("Authorization", "Bearer access")}, "no_cart_token"},
		{"no access token", []requestOption{withCart("cart_1", "tok_1")}, "not_authenticated"},
		{"blank bearer", []requestOption{withCart("cart_1", "tok_1"), withHeader("Authorization", "Bearer   ")}, "not_authenticated"},
		{"basic scheme", []requestOption{withCart("cart_1", "tok_1"), withHeader("Authorization", "Basic dXNlcjpwdw==")}, "not_authenticated"},
		{"token without scheme", []requestOption{withCart("cart_1", "tok_1"), withHeader("Authorization", "access-123")}, "not_authenticated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)

			w := api.do(http.MethodPost, "/api/v1/cart/claim", "", tt.opts...)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.JSONEq(t, `{"claimed":false,"reason":"`+tt.wantReason+`"}`, string(decode(t, w).Data))
			assert.Empty(t, api.backend.Calls())
			assert.Empty(t, responseCookies(w))
		})
	}
}

func TestCartHandler_Claim(t *testing.T) {
	api := newTestAPI(t)
	api.backend.on(http.MethodPost, "/cart/claim", http.StatusOK,
		`{"data":{"claimed":true,"cartId":"cart_9","cartToken":"tok_9","cartRefreshToken":"ref_9"}}`)

	w := api.do(http.MethodPost, "/api/v1/cart/claim", "",
		withCart("cart_1", "tok_1"), withHeader("Authorization", "Bearer access-123"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"claimed":true}`, string(decode(t, w).Data))

	calls := api.backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer access-123", calls[0].Auth)
	assert.Equal(t, "tok_1", calls[0].CartToken)
	assert.Equal(t, "cart_1", calls[0].Body["cartId"])

	cookies := responseCookies(w)
	require.Contains(t, cookies, "cart_token")
	assert.Equal(t, "tok_9", cookies["cart_token"].Value)
	assert.Equal(t, "cart_9", cookies["cart_id"].Value)
	assert.Equal(t, "ref_9", cookies["cart_refresh_token"].Value)
	assert.True(t, cookies["cart_token"].HttpOnly)
}

func TestCartHandler_Claim_LowerCaseScheme(t *testing.T) {
	api := newTestAPI(t)
	api.backend.on(http.MethodPost, "/cart/claim", http.StatusOK, `{"data":{"claimed":true}}`)

	w := api.do(http.MethodPost, "/api/v1/cart/claim", "",
		withCart("cart_1", "tok_1"), withHeader("Authorization", "bearer access-123"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	calls := api.backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer access-123", calls[0].Auth)
}

func TestCartHandler_Claim_UpstreamError(t *testing.T) {
	api := newTestAPI(t)
	api.backend.on(http.MethodPost, "/cart/claim", http.StatusForbidden, `{"message":"Cart belongs to another customer"}`)

	w := api.do(http.MethodPost, "/api/v1/cart/claim", "",
		withCart("cart_1", "tok_1"), withHeader("Authorization", "Bearer access-123"))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Cart belongs to another customer", decode(t, w).Error.Message)
}
