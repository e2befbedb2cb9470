package service

import (
	"errors"

	"github.com/xxxsen/membot/internal/ai"
)

const (
	OfflineNotice     = "[Offline mode: the AI service could not be reached. Check your connection and try again.]"
	CredentialMessage = "[Error: the API key was rejected. Check GEMINI_API_KEY (or the provider api_key) in your .env or config.]"
)

// ReplyForError turns a model failure into the text shown to the user and
// stored as the assistant side of the turn.
func ReplyForError(err error) string {
	err = ai.Classify(err)
	var genErr *ai.GenerationError
	switch {
	case errors.Is(err, ai.ErrUnavailable):
		return OfflineNotice
	case errors.Is(err, ai.ErrInvalidCredential), errors.Is(err, ai.ErrMissingCredential):
		return CredentialMessage
	case errors.As(err, &genErr):
		return "[" + genErr.Error() + "]"
	}
	return "[generation error: " + err.Error() + "]"
}
