package crypto

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known test vector key, never used outside tests.
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSignAndRecoverRoundTrip(t *testing.T) {
	s, err := NewSigner(testKeyHex)
	require.NoError(t, err)

	ts := time.Now().Unix()
	sig, err := s.SignRequest(ts, "POST", "/api/fund/rebalance", "")
	require.NoError(t, err)

	addr, err := RecoverRequestSigner(ts, "POST", "/api/fund/rebalance", "", sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), addr)
}

func TestVerifyRequestRejectsTamperedBody(t *testing.T) {
	s, err := NewSigner(testKeyHex)
	require.NoError(t, err)

	ts := time.Now().Unix()
	sig, err := s.SignRequest(ts, "POST", "/api/fund/pause", "")
	require.NoError(t, err)

	err = s.verifyAgainstSelf(ts, "POST", "/api/fund/pause", "", sig)
	assert.NoError(t, err)

	err = s.verifyAgainstSelf(ts, "POST", "/api/fund/unpause", "", sig)
	assert.Error(t, err)
}

func (s *Signer) verifyAgainstSelf(ts int64, method, path, body, sig string) error {
	return VerifyRequest(s.Address(), ts, method, path, body, sig, time.Minute)
}

func TestVerifyRequestRejectsStaleTimestamp(t *testing.T) {
	s, err := NewSigner(testKeyHex)
	require.NoError(t, err)

	ts := time.Now().Add(-time.Hour).Unix()
	sig, err := s.SignRequest(ts, "GET", "/api/fund", "")
	require.NoError(t, err)

	err = VerifyRequest(s.Address(), ts, "GET", "/api/fund", "", sig, time.Minute)
	assert.Error(t, err)
}

func TestVerifyRequestRejectsWrongSigner(t *testing.T) {
	s, err := NewSigner(testKeyHex)
	require.NoError(t, err)

	ts := time.Now().Unix()
	sig, err := s.SignRequest(ts, "GET", "/api/fund", "")
	require.NoError(t, err)

	other := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	err = VerifyRequest(other, ts, "GET", "/api/fund", "", sig, time.Minute)
	assert.Error(t, err)
}

func TestEncryptDecryptKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}
