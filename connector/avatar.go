package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/zimbra-connector/internal/errors"
)

// Avatar is either image bytes or, when the remote has no image, the user
// info the caller derives a placeholder from.
type Avatar struct {
	Content     []byte
	ContentType string
	UserInfo    json.RawMessage
}

// GetUserAvatar tries the personal image, then the default image, then falls
// back to the user's info. The first image response wins. Only a remote
// refusal moves on to the next tier; any other error ends the lookup.
func (s *Service) GetUserAvatar(ctx context.Context, userID, remoteUserID string) (*Avatar, error) {
	for _, endpoint := range []string{
		"users/" + remoteUserID + "/image",
		"users/" + remoteUserID + "/image/default",
	} {
		resp, err := s.dispatcher.Rest(ctx, userID, endpoint, nil, http.MethodGet, false)
		if err != nil {
			if !errors.Is(err, apperrors.ErrBadCredentials) {
				return nil, errors.Wrap(err, "[Service.GetUserAvatar]")
			}
			log.Debug().Err(err).Str("endpoint", endpoint).Msg("no avatar image")
			continue
		}
		contentType := resp.Header.Get("Content-Type")
		if len(resp.Body) == 0 || strings.HasPrefix(contentType, "application/json") {
			continue
		}
		return &Avatar{Content: resp.Body, ContentType: contentType}, nil
	}

	var info json.RawMessage
	if err := s.dispatcher.RestJSON(ctx, userID, "users/"+remoteUserID, nil, http.MethodGet, &info); err != nil {
		return nil, errors.Wrap(err, "[Service.GetUserAvatar]")
	}
	return &Avatar{UserInfo: info}, nil
}
