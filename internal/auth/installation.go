package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fivetwenty-io/octokit/internal/constants"
	ghhttp "github.com/fivetwenty-io/octokit/internal/http"
	"github.com/fivetwenty-io/octokit/pkg/octokit"
)

type installation struct {
	ID    int64       `json:"id"`
	AppID json.Number `json:"app_id"`
}

type accessToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExchangeInstallationToken trades an app assertion for an installation
// access token. The installation is the last one listed for appID.
func ExchangeInstallationToken(ctx context.Context, transport *ghhttp.Client, appID, assertion string) (*Token, int64, error) {
	headers := http.Header{}
	headers.Set(constants.HeaderAuthorization, constants.TokenTypeBearer+" "+assertion)
	headers.Set(constants.HeaderAccept, constants.MediaTypeMachineManPreview)

	resp, err := transport.Do(ctx, &ghhttp.Request{
		Method:  http.MethodGet,
		Path:    "/app/installations",
		Headers: headers,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing installations: %w", err)
	}

	var installations []installation

	err = json.Unmarshal(resp.Body, &installations)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing installations response: %w", err)
	}

	var (
		installationID int64
		found          bool
	)

	for _, inst := range installations {
		if inst.AppID.String() == appID {
			installationID = inst.ID
			found = true
		}
	}

	if !found {
		return nil, 0, fmt.Errorf("%w: %s", octokit.ErrNoMatchingInstallation, appID)
	}

	resp, err = transport.Do(ctx, &ghhttp.Request{
		Method:  http.MethodPost,
		Path:    "/app/installations/" + strconv.FormatInt(installationID, 10) + "/access_tokens",
		Headers: headers,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("creating installation token: %w", err)
	}

	var created accessToken

	err = json.Unmarshal(resp.Body, &created)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing installation token response: %w", err)
	}

	return &Token{
		AccessToken: created.Token,
		TokenType:   constants.TokenTypeToken,
		ExpiresAt:   created.ExpiresAt,
	}, installationID, nil
}
