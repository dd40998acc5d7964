package ai

import (
	"errors"
	"strings"

	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"

	"content-studio/internal/domain/ports/adapter"
)

// toProviderError normalizes SDK errors. Context errors pass through untouched.
func toProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *adapter.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return &adapter.ProviderError{
			Provider:   provider,
			StatusCode: gerr.Code,
			Code:       strings.ToUpper(gerr.Status),
			Message:    gerr.Message,
			Err:        err,
		}
	}
	var gptr *genai.APIError
	if errors.As(err, &gptr) && gptr != nil {
		return &adapter.ProviderError{Provider: provider, StatusCode: gptr.Code, Code: strings.ToUpper(gptr.Status), Message: gptr.Message, Err: err}
	}

	var oerr *openai.Error
	if errors.As(err, &oerr) {
		return &adapter.ProviderError{
			Provider:   provider,
			StatusCode: oerr.StatusCode,
			Code:       strings.ToUpper(firstNonEmpty(oerr.Code, oerr.Type)),
			Message:    oerr.Message,
			Err:        err,
		}
	}
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
