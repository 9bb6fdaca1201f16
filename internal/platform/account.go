// README: Connection check against the platform account endpoint with a drivers-list fallback.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

type Account struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	// Scope is "fleet" when the token resolved through the account endpoint and "admin"
	// when only the drivers listing answered.
	Scope string `json:"scope"`
}

var ErrUnexpectedResponse = errors.New("unexpected response shape")

type accountResponse struct {
	StatusCode int `json:"status_code"`
	User       *struct {
		Name      string `json:"name"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"user"`
}

// VerifyConnection confirms the token works. Auth failures are returned as-is so the caller
// can tell the operator to refresh the token.
func (c *Client) VerifyConnection(ctx context.Context) (Account, error) {
	var acc accountResponse
	err := c.Get(ctx, "/fleet/account", nil, &acc)
	if err == nil && acc.User != nil && (acc.StatusCode == 0 || acc.StatusCode == 200) {
		name := strings.TrimSpace(acc.User.Name)
		if name == "" {
			name = strings.TrimSpace(acc.User.FirstName + " " + acc.User.LastName)
		}
		if name == "" {
			name = acc.User.Email
		}
		if name == "" {
			name = "Unknown"
		}
		return Account{Name: name, Email: acc.User.Email, Scope: "fleet"}, nil
	}
	if err != nil && (IsAuth(err) || IsRetryable(err)) {
		return Account{}, err
	}

	var drivers map[string]json.RawMessage
	params := url.Values{"page": {"1"}, "per_page": {"1"}}
	if err := c.Get(ctx, "/drivers", params, &drivers); err != nil {
		return Account{}, err
	}
	if _, ok := drivers["drivers"]; !ok {
		return Account{}, ErrUnexpectedResponse
	}
	return Account{Name: "Unknown", Scope: "admin"}, nil
}
