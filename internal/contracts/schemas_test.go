package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFromPath(t *testing.T) {
	assert.Equal(t, "GatewayCallback/1.0.0", keyFromPath("schemas/gateway/callback-v1.json"))
	assert.Equal(t, "EventsEnvelope/1.0.0", keyFromPath("schemas/events/envelope-v1.json"))
}

func TestLoad_RegistersSchemas(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)
	assert.True(t, reg.Has(GatewayCallback))
	assert.True(t, reg.Has(EventEnvelope))
}

func TestValidate_GatewayCallback(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	cases := []struct {
		name string
		body string
		ok   bool
	}{
		{"пустой объект", `{}`, true},
		{"корректный id", `{"merchantOrderId":"TRU_1700000000000_000042_a1b2","state":"COMPLETED"}`, true},
		{"чужой id", `{"merchantOrderId":"ORDER-1"}`, false},
		{"неизвестный state", `{"merchantOrderId":"TRU_1_000001_x","state":"DONE"}`, false},
		{"не объект", `[1,2]`, false},
		{"битый json", `{`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := reg.Validate(GatewayCallback, []byte(tc.body))
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EventEnvelope(t *testing.T) {
	reg, err := Load()
	require.NoError(t, err)

	good := `{"type":"payment.succeeded","version":"1.0.0","occurred_at":"2025-01-01T10:00:00Z","payload":{"payment_id":1}}`
	assert.NoError(t, reg.Validate(EventEnvelope, []byte(good)))

	bad := `{"type":"payment.unknown","version":"1.0.0","occurred_at":"2025-01-01T10:00:00Z","payload":{}}`
	assert.Error(t, reg.Validate(EventEnvelope, []byte(bad)))

	assert.Error(t, reg.Validate("Missing/1.0.0", []byte(`{}`)))
}
