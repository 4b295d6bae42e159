package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/crypto"
)

// maxBodySize caps how much of a signed request body is read for
// verification.
const maxBodySize = 1 << 20 // 1 MiB

// callerKey is the context key under which the verified signer address is
// stored.
type callerKey struct{}

// CallerFrom returns the operator address recovered from the request
// signature, if the request passed through OperatorAuth.
func CallerFrom(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(common.Address)
	return addr, ok
}

// OperatorAuth returns middleware that authenticates privileged requests
// with an Ethereum personal-sign signature over timestamp+method+path+body.
// The client supplies X-Timestamp (unix seconds) and X-Signature (0x-hex)
// headers; the recovered signer must match the configured operator address
// and the timestamp must be within maxSkew of server time.
func OperatorAuth(operator common.Address, maxSkew time.Duration) func(http.Handler) http.Handler {
	if maxSkew <= 0 {
		maxSkew = 5 * time.Minute
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sigHex := r.Header.Get("X-Signature")
			if sigHex == "" {
				writeUnauthorized(w, "missing request signature")
				return
			}

			timestamp, err := strconv.ParseInt(r.Header.Get("X-Timestamp"), 10, 64)
			if err != nil {
				writeUnauthorized(w, "missing or invalid timestamp")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
			if err != nil {
				writeUnauthorized(w, "unreadable request body")
				return
			}
			r.Body.Close()
			// Restore the body for the downstream handler.
			r.Body = io.NopCloser(bytes.NewReader(body))

			if err := crypto.VerifyRequest(operator, timestamp, r.Method, r.URL.Path, string(body), sigHex, maxSkew); err != nil {
				writeUnauthorized(w, "invalid request signature")
				return
			}

			ctx := context.WithValue(r.Context(), callerKey{}, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
