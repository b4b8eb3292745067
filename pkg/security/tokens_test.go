package security_test

import (
	"regexp"
	"testing"

	"github.com/angelmondragon/maillot-backend/pkg/security"
	"github.com/stretchr/testify/require"
)

func TestNewPaymentCodeFormat(t *testing.T) {
	code, err := security.NewPaymentCode("WAVE_")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^WAVE_[0-9A-F]{8}$`), code)
}

func TestNewSessionTokenIsUnique(t *testing.T) {
	first, err := security.NewSessionToken()
	require.NoError(t, err)
	second, err := security.NewSessionToken()
	require.NoError(t, err)
	require.Len(t, first, 48)
	require.NotEqual(t, first, second)
}

func TestSignatureVerification(t *testing.T) {
	body := []byte(`{"token":"abc","status":"completed"}`)
	sig := security.SignPayload("secret", body)

	require.True(t, security.VerifySignature("secret", body, sig))
	require.False(t, security.VerifySignature("other", body, sig))
	require.False(t, security.VerifySignature("secret", []byte(`{}`), sig))
	require.False(t, security.VerifySignature("secret", body, "zz"))
	require.False(t, security.VerifySignature("", body, sig))
}
