package errors_test

import (
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/zimbra-connector/internal/errors"
)

func TestMessage(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		require.Equal(t, "", errors.Message(nil))
	})

	t.Run("wrapped sentinel keeps its text", func(t *testing.T) {
		err := pkgerrors.Wrap(errors.ErrSessionExpired, "[Dispatcher.Rest] ensure session")
		require.Equal(t, "session expired, please re-authenticate", errors.Message(err))
	})

	t.Run("bad credentials", func(t *testing.T) {
		err := pkgerrors.Wrapf(errors.ErrBadCredentials, "GET %s", "home/bob/inbox")
		require.Equal(t, "Bad credentials", errors.Message(err))
		require.True(t, errors.Is(err, errors.ErrBadCredentials))
	})

	t.Run("unknown errors are not surfaced verbatim", func(t *testing.T) {
		err := fmt.Errorf("dial tcp 10.0.0.1:443: connection refused")
		require.Equal(t, "Unexpected error", errors.Message(err))
	})
}
