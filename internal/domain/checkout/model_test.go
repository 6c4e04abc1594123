package checkout

import (
	"encoding/json"
	"testing"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartSession(t *testing.T) {
	assert.False(t, CartSession{}.HasToken())
	assert.False(t, CartSession{CartToken: "tok"}.IsComplete())
	assert.False(t, CartSession{CartID: "cart_1", CartToken: "  "}.IsComplete())
	assert.True(t, CartSession{CartID: "cart_1", CartToken: "tok"}.IsComplete())
}

func TestCheckout_PayloadPassthrough(t *testing.T) {
	body := `{"checkoutId":"chk_1","cartId":"cart_1","status":"locked","totals":{"grandTotal":12500}}`

	var c Checkout
	require.NoError(t, json.Unmarshal([]byte(body), &c))
	assert.Equal(t, "chk_1", c.ID)
	assert.Equal(t, "cart_1", c.CartID)
	assert.Equal(t, StatusLocked, c.Status)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(out))
}

func TestCheckout_MarshalWithoutPayload(t *testing.T) {
	out, err := json.Marshal(Checkout{ID: "chk_1", Status: StatusCreated})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"chk_1","status":"CREATED"}`, string(out))
}

func TestOrder_AcceptsOrderID(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"orderId":"ord_1","checkoutId":"chk_2","status":"pending"}`), &o))
	assert.Equal(t, "ord_1", o.ID)
	assert.Equal(t, "chk_2", o.CheckoutID)
	assert.Equal(t, "pending", o.Status)
}

func TestPaymentEvidence_MarkFinalized(t *testing.T) {
	evidence := NewPaymentEvidence("pay_1", "proof.png", "image/png", PresignResult{UploadURL: "https://u", Key: "k1"})
	assert.False(t, evidence.Finalized)

	err := evidence.MarkFinalized("other")
	assert.True(t, shared.IsValidation(err))
	assert.False(t, evidence.Finalized)

	assert.Equal(t, "Missing key", evidence.MarkFinalized("").Error())

	require.NoError(t, evidence.MarkFinalized("k1"))
	assert.True(t, evidence.Finalized)
}
