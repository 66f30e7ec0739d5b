package app

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/clock"
	"github.com/videocast/scheduler/internal/platformcore"
)

// StateTTL bounds how long a minted OAuth state token remains valid,
// per §6's "short-lived, signed token minted by start_platform_oauth".
const StateTTL = 10 * time.Minute

// StateSigner mints and validates the OAuth callback state token.
// Unlike user-session JWTs (explicitly out of scope per §1 — JWT
// issuance and validation are external collaborators), this token
// only needs to prove "this callback belongs to a state this process
// minted," so it is a plain HMAC-SHA256 MAC over a JSON payload
// rather than a full JWT: the core's out-of-scope boundary covers
// user authentication, not this narrower anti-CSRF mechanism.
type StateSigner struct {
	key []byte
	clk clock.Clock
}

// NewStateSigner constructs a signer from a process-wide secret.
func NewStateSigner(secret string, clk clock.Clock) *StateSigner {
	return &StateSigner{key: []byte(secret), clk: clk}
}

type statePayload struct {
	OwnerUserID uuid.UUID            `json:"owner_user_id"`
	Platform    platformcore.Platform `json:"platform"`
	Nonce       string               `json:"nonce"`
	IssuedAt    int64                `json:"issued_at"`
}

// Mint produces a signed, opaque state string binding ownerUserID and
// platform, to be round-tripped through the platform's OAuth redirect.
func (s *StateSigner) Mint(ownerUserID uuid.UUID, platform platformcore.Platform) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	payload := statePayload{
		OwnerUserID: ownerUserID,
		Platform:    platform,
		Nonce:       base64.RawURLEncoding.EncodeToString(nonce),
		IssuedAt:    s.clk.Now().Unix(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	mac := s.sign(body)
	encoded := base64.RawURLEncoding.EncodeToString(body) + "." + base64.RawURLEncoding.EncodeToString(mac)
	return encoded, nil
}

// Verify checks a state string's signature and TTL, returning the
// bound owner and platform on success or AUTH_STATE_INVALID on any
// tamper, expiry, or malformed input.
func (s *StateSigner) Verify(state string) (uuid.UUID, platformcore.Platform, error) {
	bodyB64, macB64, ok := splitOnce(state, '.')
	if !ok {
		return uuid.Nil, "", invalidState()
	}
	body, err := base64.RawURLEncoding.DecodeString(bodyB64)
	if err != nil {
		return uuid.Nil, "", invalidState()
	}
	mac, err := base64.RawURLEncoding.DecodeString(macB64)
	if err != nil {
		return uuid.Nil, "", invalidState()
	}
	expected := s.sign(body)
	if subtle.ConstantTimeCompare(mac, expected) != 1 {
		return uuid.Nil, "", invalidState()
	}

	var payload statePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return uuid.Nil, "", invalidState()
	}
	issuedAt := time.Unix(payload.IssuedAt, 0)
	if s.clk.Now().After(issuedAt.Add(StateTTL)) {
		return uuid.Nil, "", invalidState()
	}
	return payload.OwnerUserID, payload.Platform, nil
}

func (s *StateSigner) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(body)
	return mac.Sum(nil)
}

func splitOnce(s string, sep byte) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func invalidState() error {
	return platformcore.New(platformcore.KindAuthStateInvalid, "oauth state invalid or expired")
}
