package trust

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func testPublicKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func gatewayStub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != configPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefreshWithoutGatewayURLIsNoOp(t *testing.T) {
	s := NewStore("")
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Snapshot().Loaded() {
		t.Error("snapshot should stay unset without a gateway URL")
	}
}

func TestRefreshPopulatesSnapshot(t *testing.T) {
	pemStr := testPublicKeyPEM(t)
	body := fmt.Sprintf(`{"data":{"issuer":"https://gw.example.com","kid":"k1","public_key_pem":%q,"allowed_origins":["Shop.example.com","*.pay.dev"]}}`, pemStr)
	srv := gatewayStub(t, http.StatusOK, body)

	s := NewStore(srv.URL + "///")
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := s.Snapshot()
	if !snap.Loaded() {
		t.Fatal("snapshot not loaded")
	}
	if snap.Issuer != "https://gw.example.com" || snap.KeyID != "k1" {
		t.Errorf("issuer/kid = %q/%q", snap.Issuer, snap.KeyID)
	}
	want := []string{"shop.example.com", "*.pay.dev"}
	if !reflect.DeepEqual(snap.AllowedOrigins, want) {
		t.Errorf("origins = %v, want %v", snap.AllowedOrigins, want)
	}
	if snap.LastRefreshAt.IsZero() {
		t.Error("LastRefreshAt not set")
	}
}

func TestRefreshAcceptsCommaSeparatedOrigins(t *testing.T) {
	body := `{"data":{"allowed_origins":"a.example.com, b.example.com"}}`
	srv := gatewayStub(t, http.StatusOK, body)

	s := NewStore(srv.URL)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap := s.Snapshot()
	want := []string{"a.example.com", "b.example.com"}
	if !reflect.DeepEqual(snap.AllowedOrigins, want) {
		t.Errorf("origins = %v, want %v", snap.AllowedOrigins, want)
	}
	// Issuer defaults to the gateway URL when the response omits it.
	if snap.Issuer != srv.URL {
		t.Errorf("issuer = %q, want gateway URL %q", snap.Issuer, srv.URL)
	}
}

func TestFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	pemStr := testPublicKeyPEM(t)
	good := fmt.Sprintf(`{"data":{"issuer":"iss","kid":"k1","public_key_pem":%q,"allowed_origins":["a.example.com"]}}`, pemStr)
	srv := gatewayStub(t, http.StatusOK, good)

	s := NewStore(srv.URL)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}
	before := s.Snapshot()

	srv.Close() // simulate network failure
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	after := s.Snapshot()
	if after != before {
		t.Error("failed refresh must keep the previous snapshot")
	}
	if after.Issuer != "iss" || after.KeyID != "k1" || after.PublicKeyPEM != pemStr {
		t.Error("snapshot fields changed after failed refresh")
	}
}

func TestRefreshNonSuccessStatusKeepsSnapshot(t *testing.T) {
	srv := gatewayStub(t, http.StatusInternalServerError, `{"error":"boom"}`)
	s := NewStore(srv.URL)
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected error on 500")
	}
	if s.Snapshot().Loaded() {
		t.Error("snapshot must stay unset after failed refresh")
	}
}

func TestRefreshMergesMissingFields(t *testing.T) {
	pemStr := testPublicKeyPEM(t)
	full := fmt.Sprintf(`{"data":{"issuer":"iss","kid":"k1","public_key_pem":%q,"allowed_origins":["a.example.com"]}}`, pemStr)
	srv := gatewayStub(t, http.StatusOK, full)
	s := NewStore(srv.URL)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}
	srv.Close()

	// Second response carries only a new kid; everything else is retained.
	srv2 := gatewayStub(t, http.StatusOK, `{"data":{"kid":"k2"}}`)
	s.gatewayURL = trimTrailingSlashes(srv2.URL)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	snap := s.Snapshot()
	if snap.KeyID != "k2" {
		t.Errorf("kid = %q, want k2", snap.KeyID)
	}
	if snap.Issuer != "iss" || snap.PublicKeyPEM != pemStr || snap.Key == nil {
		t.Error("retained fields were dropped by partial response")
	}
	if len(snap.AllowedOrigins) != 1 {
		t.Errorf("origins = %v, want retained single rule", snap.AllowedOrigins)
	}
}

func TestRefreshRejectsBadPublicKey(t *testing.T) {
	srv := gatewayStub(t, http.StatusOK, `{"data":{"public_key_pem":"not a pem"}}`)
	s := NewStore(srv.URL)
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected error for unparsable key")
	}
	if s.Snapshot().Loaded() {
		t.Error("bad key must not be published")
	}
}
