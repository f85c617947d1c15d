package auth

import (
	"strings"
	"testing"
)

func TestDevModeTokens(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	p, err := v.Verify("m-1:ana")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.MemberID != "m-1" || p.Name != "ana" || p.Role != "member" {
		t.Fatalf("principal = %+v", p)
	}
	p, err = v.Verify("m-2:bo:Admin")
	if err != nil {
		t.Fatalf("Verify with role: %v", err)
	}
	if p.Role != "admin" {
		t.Fatalf("role = %q, want admin", p.Role)
	}
	if _, err := v.Verify("garbage"); err == nil {
		t.Fatal("malformed dev token accepted")
	}
}

func TestHMACMintAndVerifyRoundTrip(t *testing.T) {
	v := &Verifier{
		Mode:       "hmac",
		HMACSecret: []byte("test-secret"),
		SubClaim:   "sub",
		NameClaim:  "name",
		RoleClaim:  "role",
	}
	token, memberID, err := v.Mint("scout")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if memberID == "" || strings.Count(token, ".") != 2 {
		t.Fatalf("token %q memberID %q", token, memberID)
	}
	p, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.MemberID != memberID || p.Name != "scout" || p.Role != "member" {
		t.Fatalf("principal = %+v", p)
	}
}

func TestHMACRejectsTampering(t *testing.T) {
	v := &Verifier{
		Mode:       "hmac",
		HMACSecret: []byte("test-secret"),
		SubClaim:   "sub",
		NameClaim:  "name",
		RoleClaim:  "role",
	}
	token, _, err := v.Mint("scout")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	other := &Verifier{Mode: "hmac", HMACSecret: []byte("other-secret"), SubClaim: "sub", NameClaim: "name", RoleClaim: "role"}
	if _, err := other.Verify(token); err == nil {
		t.Fatal("token verified under the wrong secret")
	}

	segs := strings.Split(token, ".")
	forged := segs[0] + "." + b64urlEncode([]byte(`{"sub":"evil","name":"x","role":"admin"}`)) + "." + segs[2]
	if _, err := v.Verify(forged); err == nil {
		t.Fatal("forged payload accepted")
	}
}

func TestMintRequiresSecretInHMACMode(t *testing.T) {
	v := &Verifier{Mode: "hmac", SubClaim: "sub", NameClaim: "name", RoleClaim: "role"}
	if _, _, err := v.Mint("x"); err == nil {
		t.Fatal("mint without secret succeeded")
	}
	jv := &Verifier{Mode: "jwks"}
	if _, _, err := jv.Mint("x"); err == nil {
		t.Fatal("jwks mode minted a token")
	}
}

func TestMintDefaultsName(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	token, memberID, err := v.Mint("")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	p, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.MemberID != memberID || p.Name != "anonymous" {
		t.Fatalf("principal = %+v", p)
	}
}
