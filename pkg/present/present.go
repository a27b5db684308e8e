// Package present turns run errors into the one message a user sees.
package present

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zen-systems/crewforge/pkg/adapter"
	"github.com/zen-systems/crewforge/pkg/config"
	"github.com/zen-systems/crewforge/pkg/pipeline"
	"github.com/zen-systems/crewforge/pkg/prompt"
	"github.com/zen-systems/crewforge/pkg/variants"
)

// Message converts err into a single user-facing sentence. The wrapped
// detail is appended where it helps the user fix the problem.
func Message(err error) string {
	if err == nil {
		return ""
	}

	where := ""
	if id, ok := pipeline.IsTaskError(err); ok {
		where = fmt.Sprintf(" (step %q)", id)
	}

	var inputErr *variants.InputError
	var missing *prompt.MissingParameterError
	var adapterErr *adapter.Error

	switch {
	case errors.Is(err, config.ErrMissingCredentials):
		return "Credentials are missing: " + detail(err, config.ErrMissingCredentials) + ". Set it in the environment or a .env file."
	case errors.As(err, &inputErr):
		if inputErr.Field == "" {
			return "Please check your input: " + inputErr.Message + "."
		}
		return fmt.Sprintf("Please fill in %q: %s.", inputErr.Field, inputErr.Message)
	case errors.As(err, &missing):
		return fmt.Sprintf("The input %q is required%s.", missing.Name, where)
	case errors.Is(err, variants.ErrUnknownVariant):
		return "Unknown variant. Run `crewforge variants` to list them."
	case errors.Is(err, pipeline.ErrInvalidPipeline):
		return "The pipeline definition is invalid: " + detail(err, pipeline.ErrInvalidPipeline) + "."
	case errors.Is(err, pipeline.ErrOutputMissing):
		return "The result file was not found" + where + "."
	case errors.Is(err, context.Canceled):
		return "The run was cancelled" + where + "."
	case errors.As(err, &adapterErr):
		return adapterMessage(adapterErr) + where + "."
	default:
		return "The run failed" + where + ": " + err.Error()
	}
}

func adapterMessage(err *adapter.Error) string {
	provider := err.Provider
	if provider == "" {
		provider = "the model service"
	}
	switch err.Kind {
	case adapter.KindAuth:
		return fmt.Sprintf("The API key for %s was rejected", provider)
	case adapter.KindQuota:
		return fmt.Sprintf("%s reports that the quota or rate limit is exhausted; try again later", provider)
	case adapter.KindTransient:
		return fmt.Sprintf("%s is temporarily unavailable; try again later", provider)
	case adapter.KindInvalidInput:
		return fmt.Sprintf("%s rejected the request", provider)
	case adapter.KindMalformed:
		return fmt.Sprintf("%s returned an empty or unusable answer", provider)
	default:
		return fmt.Sprintf("The call to %s failed", provider)
	}
}

// Status maps err to an HTTP status for the web form.
func Status(err error) int {
	var inputErr *variants.InputError
	var missing *prompt.MissingParameterError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &inputErr), errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.Is(err, variants.ErrUnknownVariant):
		return http.StatusNotFound
	case errors.Is(err, config.ErrMissingCredentials):
		return http.StatusServiceUnavailable
	}
	switch adapter.KindOf(err) {
	case adapter.KindQuota:
		return http.StatusTooManyRequests
	case adapter.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// detail strips the sentinel's own text from err's message.
func detail(err, sentinel error) string {
	msg := err.Error()
	if idx := strings.Index(msg, sentinel.Error()+": "); idx >= 0 {
		return msg[idx+len(sentinel.Error())+2:]
	}
	return msg
}
