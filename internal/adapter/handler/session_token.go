package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/maspithik/angkringan/internal/adapter/auth"
	"github.com/maspithik/angkringan/internal/core/service"
	"github.com/maspithik/angkringan/internal/port"
)

// authorizeTab checks that a tab whose device is signed in is driven by the
// holder of that session's token. Guest tabs need no token.
func authorizeTab(verifier port.SessionVerifier, tab *service.Tab, token string) error {
	id := tab.Session.Identity()
	if !id.Authenticated() {
		return nil
	}
	if token == "" || verifier == nil {
		return fmt.Errorf("%w: bearer token required", auth.ErrInvalidToken)
	}
	session, err := verifier.Verify(token)
	if err != nil {
		return err
	}
	if session.UserID != id.UserID {
		return fmt.Errorf("%w: token belongs to another user", auth.ErrInvalidToken)
	}
	return nil
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
