package infra

import (
	"context"
	"errors"
	"testing"
)

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier("s3cret", "dev")
	tok, err := v.VerifyIDToken(context.Background(), "s3cret")
	if err != nil || tok.UID != "dev" || tok.Claims["role"] != "operator" {
		t.Fatalf("VerifyIDToken = %+v, %v", tok, err)
	}
	if _, err := v.VerifyIDToken(context.Background(), "nope"); !errors.Is(err, ErrTokenRejected) {
		t.Fatalf("expected ErrTokenRejected, got %v", err)
	}
	if _, err := NewStaticVerifier("", "dev").VerifyIDToken(context.Background(), ""); err == nil {
		t.Fatal("empty secret must reject everything")
	}
}

func TestFirebaseAppRequiresProject(t *testing.T) {
	if _, err := NewFirebaseApp(context.Background(), "", ""); err == nil {
		t.Fatal("expected error without project id")
	}
}
