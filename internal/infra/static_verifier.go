// README: Shared-secret verifier for running the operator API without a Firebase project.
package infra

import (
	"context"
	"crypto/subtle"
	"errors"
)

var ErrTokenRejected = errors.New("token rejected")

type staticVerifier struct {
	token []byte
	uid   string
}

// NewStaticVerifier accepts exactly token and reports uid with the operator role.
func NewStaticVerifier(token, uid string) TokenVerifier {
	return &staticVerifier{token: []byte(token), uid: uid}
}

func (v *staticVerifier) VerifyIDToken(_ context.Context, idToken string) (*FirebaseToken, error) {
	if len(v.token) == 0 || subtle.ConstantTimeCompare(v.token, []byte(idToken)) != 1 {
		return nil, ErrTokenRejected
	}
	return &FirebaseToken{UID: v.uid, Claims: map[string]interface{}{"role": "operator"}}, nil
}
