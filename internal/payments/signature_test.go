package payments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() map[string]string {
	return map[string]string{
		"order":          "ORD-01J8ZX3V9K",
		"amount":         "2000.00",
		"payment_status": "success",
		"phone":          "+77010000000",
	}
}

func TestCanonicalStringIsSortedAndExcludesSign(t *testing.T) {
	t.Parallel()

	params := map[string]string{
		"b":       "2",
		"a":       "1",
		"c":       "3",
		SignField: "deadbeef",
	}
	assert.Equal(t, "a:1;b:2;c:3", CanonicalString(params))
	assert.Equal(t, "", CanonicalString(nil))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec("topsecret")
	require.NoError(t, err)

	params := samplePayload()
	params[SignField] = codec.Sign(params)

	assert.True(t, codec.Verify(params))
	assert.Regexp(t, `^[0-9a-f]{64}$`, params[SignField], "signature is lowercase hex sha256")

	// Uppercase hex from a sloppy sender still verifies.
	params[SignField] = strings.ToUpper(params[SignField])
	assert.True(t, codec.Verify(params))
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec("topsecret")
	require.NoError(t, err)

	params := samplePayload()
	params[SignField] = codec.Sign(params)

	t.Run("flipped signature byte", func(t *testing.T) {
		t.Parallel()
		tampered := samplePayload()
		sig := []byte(params[SignField])
		if sig[0] == 'a' {
			sig[0] = 'b'
		} else {
			sig[0] = 'a'
		}
		tampered[SignField] = string(sig)
		assert.False(t, codec.Verify(tampered))
	})

	t.Run("mutated payload field", func(t *testing.T) {
		t.Parallel()
		tampered := samplePayload()
		tampered["amount"] = "0.01"
		tampered[SignField] = params[SignField]
		assert.False(t, codec.Verify(tampered))
	})

	t.Run("missing signature", func(t *testing.T) {
		t.Parallel()
		assert.False(t, codec.Verify(samplePayload()))
	})

	t.Run("empty signature", func(t *testing.T) {
		t.Parallel()
		tampered := samplePayload()
		tampered[SignField] = ""
		assert.False(t, codec.Verify(tampered))
	})

	t.Run("truncated signature", func(t *testing.T) {
		t.Parallel()
		tampered := samplePayload()
		tampered[SignField] = params[SignField][:32]
		assert.False(t, codec.Verify(tampered))
	})

	t.Run("different secret", func(t *testing.T) {
		t.Parallel()
		other, err := NewCodec("othersecret")
		require.NoError(t, err)
		withSign := samplePayload()
		withSign[SignField] = params[SignField]
		assert.False(t, other.Verify(withSign))
	})
}

func TestNewCodecRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewCodec("")
	require.Error(t, err)

	var nilCodec *Codec
	assert.False(t, nilCodec.Verify(samplePayload()), "nil codec fails closed")
}

func TestIsSuccessful(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		status      string
		description string
		want        bool
	}{
		{"status success", "success", "", true},
		{"status uppercase", "SUCCESS", "", true},
		{"description paid", "", "Payment paid in full", true},
		{"description completed", "2", "transaction completed", true},
		{"localized success", "", "Платеж успешно завершен", true},
		{"localized paid", "", "Заказ оплачен", true},
		{"failure", "failed", "payment declined", false},
		{"pending", "pending", "awaiting payment", false},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsSuccessful(tc.status, tc.description))
		})
	}
}
