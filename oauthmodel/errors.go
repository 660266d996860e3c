package oauthmodel

import "errors"

var (
	ErrMissingClient        = errors.New("client id and secret are not configured")
	ErrInvalidRedirectUri   = errors.New("invalid or no redirect uri")
	ErrInvalidResponseType  = errors.New("unsupported response type")
	ErrMissingState         = errors.New("state is required")
	ErrMissingCode          = errors.New("authorization code is required")
	ErrMissingRefreshToken  = errors.New("refresh token is required")
	ErrUnsupportedGrantType = errors.New("unsupported grant type")
)
