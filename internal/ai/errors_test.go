package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require.NoError(t, Classify(nil))
	require.ErrorIs(t, Classify(&net.DNSError{Err: "no such host", Name: "example.invalid"}), ErrUnavailable)
	require.ErrorIs(t, Classify(fmt.Errorf("dial: %w", &net.OpError{Op: "dial", Err: errors.New("refused")})), ErrUnavailable)
	require.ErrorIs(t, Classify(context.DeadlineExceeded), ErrUnavailable)
	require.ErrorIs(t, Classify(&StatusError{StatusCode: 403}), ErrInvalidCredential)
	require.ErrorIs(t, Classify(&StatusError{StatusCode: 429}), ErrUnavailable)
	require.ErrorIs(t, Classify(errors.New("Error 400, Message: API key not valid. Please pass a valid API key., Status: INVALID_ARGUMENT")), ErrInvalidCredential)
	require.ErrorIs(t, Classify(errors.New("Error 503, Message: overloaded, Status: UNAVAILABLE")), ErrUnavailable)
	require.ErrorIs(t, Classify(errors.New("dial tcp: lookup generativelanguage.googleapis.com: no such host")), ErrUnavailable)

	var genErr *GenerationError
	require.True(t, errors.As(Classify(errors.New("Error 400, Message: bad prompt")), &genErr))
	require.True(t, errors.As(Classify(errors.New("safety block")), &genErr))
	require.Equal(t, "generation error: safety block", genErr.Error())

	// already classified errors pass through untouched
	wrapped := fmt.Errorf("%w: x", ErrMissingCredential)
	require.Equal(t, wrapped, Classify(wrapped))
	require.ErrorIs(t, Classify(context.Canceled), context.Canceled)
}

func TestNewProviderMissingCredential(t *testing.T) {
	_, err := NewProvider("gemini", map[string]interface{}{})
	require.ErrorIs(t, err, ErrMissingCredential)
	_, err = NewProvider("openai", nil)
	require.ErrorIs(t, err, ErrMissingCredential)
	_, err = NewProvider("unknown", map[string]interface{}{"api_key": "x"})
	require.Error(t, err)
}
