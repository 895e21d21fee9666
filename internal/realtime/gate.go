package realtime

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-notify-realtime/internal/domain"
	"github.com/go-notify-realtime/internal/metrics"
)

// TokenVerifier turns a bearer token into a verified identity.
type TokenVerifier interface {
	VerifyIdentity(token string) (domain.Identity, error)
}

// Credentials are the places a connection attempt may carry its token.
type Credentials struct {
	// AuthToken is the connection-level auth field (raw token).
	AuthToken string
	// Authorization is a header-style field holding "Bearer <token>".
	Authorization string
}

// CredentialsFromRequest reads the "token" query parameter and the
// Authorization header of an upgrade or stream request.
func CredentialsFromRequest(r *http.Request) Credentials {
	return Credentials{
		AuthToken:     r.URL.Query().Get("token"),
		Authorization: r.Header.Get("Authorization"),
	}
}

// Token picks the credential to verify. The auth field wins over the header.
func (c Credentials) Token() (string, bool) {
	if t := strings.TrimSpace(c.AuthToken); t != "" {
		return t, true
	}
	if t, ok := strings.CutPrefix(c.Authorization, "Bearer "); ok {
		if t = strings.TrimSpace(t); t != "" {
			return t, true
		}
	}
	return "", false
}

// Gate admits connection attempts. It never touches the registry; callers
// register the connection only after Authenticate succeeds.
type Gate struct {
	verifier TokenVerifier
	metrics  *metrics.Realtime
	logger   *slog.Logger
}

func NewGate(verifier TokenVerifier, m *metrics.Realtime, logger *slog.Logger) *Gate {
	return &Gate{verifier: verifier, metrics: m, logger: logger.With("component", "handshake_gate")}
}

// Authenticate returns the identity behind cred, or ErrMissingCredential /
// ErrInvalidCredential.
func (g *Gate) Authenticate(cred Credentials) (domain.Identity, error) {
	token, ok := cred.Token()
	if !ok {
		g.metrics.HandshakeRejected.WithLabelValues("missing_credential").Inc()
		return domain.Identity{}, ErrMissingCredential
	}
	id, err := g.verifier.VerifyIdentity(token)
	if err != nil {
		g.metrics.HandshakeRejected.WithLabelValues("invalid_credential").Inc()
		g.logger.Warn("handshake rejected", "error", err)
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if id.UserID == "" {
		g.metrics.HandshakeRejected.WithLabelValues("invalid_credential").Inc()
		return domain.Identity{}, fmt.Errorf("%w: empty user id", ErrInvalidCredential)
	}
	return id, nil
}
