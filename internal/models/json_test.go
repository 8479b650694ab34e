package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_ScanAcceptsBytesAndString(t *testing.T) {
	var fromBytes JSON
	require.NoError(t, fromBytes.Scan([]byte(`{"client_secret":"pi_secret"}`)))
	assert.Equal(t, "pi_secret", fromBytes.String("client_secret"))

	var fromString JSON
	require.NoError(t, fromString.Scan(`{"receiver_wallet_id":"abc"}`))
	assert.Equal(t, "abc", fromString.String("receiver_wallet_id"))

	var fromNil JSON = JSON{"stale": true}
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	assert.Error(t, fromNil.Scan(42))
}

func TestJSON_ValueOfNilIsNull(t *testing.T) {
	v, err := JSON(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = NewJSON(map[string]interface{}{"a": 1}).Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, v.(string))
}

func TestTransactionStatus_IsTerminal(t *testing.T) {
	assert.False(t, TransactionStatusPending.IsTerminal())
	assert.False(t, TransactionStatusProcessing.IsTerminal())
	assert.True(t, TransactionStatusCompleted.IsTerminal())
	assert.True(t, TransactionStatusFailed.IsTerminal())
	assert.True(t, TransactionStatusCancelled.IsTerminal())
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, PaymentMethodStripe.Valid())
	assert.False(t, PaymentMethod("cash").Valid())
}
