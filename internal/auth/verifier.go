// Package auth verifies session tokens and mints anonymous ones.
package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Verifier validates session tokens and extracts the member principal.
// Modes: dev (token is "memberId:name[:role]"), hmac (HS256 tokens minted
// by this service), jwks (RS256 tokens from a platform IdP, keys fetched
// from a JWKS URL).
type Verifier struct {
	Mode       string
	HMACSecret []byte
	JWKSURL    string
	NameClaim  string
	RoleClaim  string
	SubClaim   string
	http       *http.Client
	mu         sync.RWMutex
	jwks       jwks
	lastFetch  time.Time
	cacheTTL   time.Duration
}

type jwks struct {
	Keys []jwk `json:"keys"`
}
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
	Alg string `json:"alg"`
}

// Principal is the authenticated caller.
type Principal struct {
	MemberID string
	Name     string
	Role     string
}

func NewVerifierFromEnv() *Verifier {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if mode == "" {
		mode = "dev"
	}
	v := &Verifier{
		Mode:       mode,
		HMACSecret: []byte(os.Getenv("AUTH_HMAC_SECRET")),
		JWKSURL:    os.Getenv("AUTH_JWKS_URL"),
		NameClaim:  envOr("AUTH_NAME_CLAIM", "name"),
		RoleClaim:  envOr("AUTH_ROLE_CLAIM", "role"),
		SubClaim:   envOr("AUTH_SUB_CLAIM", "sub"),
		http:       &http.Client{Timeout: 5 * time.Second},
		cacheTTL:   10 * time.Minute,
	}
	return v
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// Mint issues an anonymous session token for a fresh member id. In hmac
// mode the token is a signed HS256 JWT; in dev mode it is the plain dev
// format. jwks mode cannot mint (tokens come from the IdP).
func (v *Verifier) Mint(name string) (token, memberID string, err error) {
	memberID = uuid.New().String()
	if name == "" {
		name = "anonymous"
	}
	switch v.Mode {
	case "dev":
		return memberID + ":" + name, memberID, nil
	case "hmac":
		if len(v.HMACSecret) == 0 {
			return "", "", errors.New("AUTH_HMAC_SECRET not set")
		}
		header := b64urlEncode([]byte(`{"alg":"HS256","typ":"JWT"}`))
		claims, err := json.Marshal(map[string]any{
			v.SubClaim:  memberID,
			v.NameClaim: name,
			v.RoleClaim: "member",
			"iat":       time.Now().Unix(),
		})
		if err != nil {
			return "", "", err
		}
		payload := b64urlEncode(claims)
		signingInput := header + "." + payload
		mac := hmac.New(sha256.New, v.HMACSecret)
		mac.Write([]byte(signingInput))
		return signingInput + "." + b64urlEncode(mac.Sum(nil)), memberID, nil
	default:
		return "", "", errors.New("anonymous sessions unavailable in mode " + v.Mode)
	}
}

func (v *Verifier) Verify(token string) (Principal, error) {
	if v.Mode == "dev" {
		// token format: memberId:name[:role]
		parts := strings.Split(token, ":")
		if len(parts) < 2 || parts[0] == "" {
			return Principal{}, errors.New("invalid dev token; expected memberId:name")
		}
		p := Principal{MemberID: parts[0], Name: parts[1], Role: "member"}
		if len(parts) >= 3 && parts[2] != "" {
			p.Role = strings.ToLower(parts[2])
		}
		return p, nil
	}
	segs := strings.Split(token, ".")
	if len(segs) != 3 {
		return Principal{}, errors.New("invalid JWT")
	}
	headerJSON, err := b64urlDecode(segs[0])
	if err != nil {
		return Principal{}, err
	}
	payloadJSON, err := b64urlDecode(segs[1])
	if err != nil {
		return Principal{}, err
	}
	sig, err := b64urlDecode(segs[2])
	if err != nil {
		return Principal{}, err
	}
	var hdr map[string]any
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return Principal{}, err
	}
	var claims map[string]any
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Principal{}, err
	}
	alg, _ := hdr["alg"].(string)
	kid, _ := hdr["kid"].(string)
	signingInput := []byte(segs[0] + "." + segs[1])
	switch v.Mode {
	case "hmac":
		if alg != "HS256" {
			return Principal{}, errors.New("unsupported alg for hmac")
		}
		mac := hmac.New(sha256.New, v.HMACSecret)
		mac.Write(signingInput)
		if !hmac.Equal(mac.Sum(nil), sig) {
			return Principal{}, errors.New("bad signature")
		}
	case "jwks":
		if alg != "RS256" {
			return Principal{}, errors.New("unsupported alg for jwks")
		}
		pub, err := v.getRSAPublicKey(kid)
		if err != nil {
			return Principal{}, err
		}
		h := sha256.Sum256(signingInput)
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sig); err != nil {
			return Principal{}, errors.New("bad signature")
		}
	default:
		return Principal{}, errors.New("unsupported auth mode")
	}
	sub, _ := claims[v.SubClaim].(string)
	name, _ := claims[v.NameClaim].(string)
	role, _ := claims[v.RoleClaim].(string)
	if sub == "" {
		return Principal{}, errors.New("missing subject claim")
	}
	if role == "" {
		role = "member"
	}
	return Principal{MemberID: sub, Name: name, Role: strings.ToLower(role)}, nil
}

func b64urlDecode(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }
func b64urlEncode(b []byte) string          { return base64.RawURLEncoding.EncodeToString(b) }

// getRSAPublicKey resolves kid against the cached JWKS, refetching when the
// cache is cold or stale.
func (v *Verifier) getRSAPublicKey(kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	cached := v.jwks
	stale := time.Since(v.lastFetch) > v.cacheTTL
	v.mu.RUnlock()
	if len(cached.Keys) == 0 || stale {
		if err := v.fetchJWKS(); err != nil {
			return nil, err
		}
		v.mu.RLock()
		cached = v.jwks
		v.mu.RUnlock()
	}
	for _, k := range cached.Keys {
		if k.Kid == kid && strings.EqualFold(k.Kty, "RSA") {
			nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
			if err != nil {
				return nil, err
			}
			eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
			if err != nil {
				return nil, err
			}
			e := big.NewInt(0)
			// exponent may be 3 or 65537; bytes are big-endian
			e.SetInt64(int64(bytesToInt(eBytes)))
			n := new(big.Int).SetBytes(nBytes)
			return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
		}
	}
	return nil, errors.New("kid not found in JWKS")
}

func bytesToInt(b []byte) int {
	var x int
	for _, v := range b {
		x = (x << 8) | int(v)
	}
	return x
}

func (v *Verifier) fetchJWKS() error {
	if v.JWKSURL == "" {
		return errors.New("AUTH_JWKS_URL not set")
	}
	req, _ := http.NewRequest(http.MethodGet, v.JWKSURL, nil)
	resp, err := v.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	var j jwks
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return err
	}
	v.mu.Lock()
	v.jwks = j
	v.lastFetch = time.Now()
	v.mu.Unlock()
	return nil
}
