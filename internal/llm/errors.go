package llm

import (
	"errors"

	"github.com/dealscope/dealscope/internal/llm/providererr"
)

var (
	// ErrProviderUnavailable and ErrRateLimited alias the shared provider
	// sentinels so callers only import this package.
	ErrProviderUnavailable = providererr.ErrUnavailable
	ErrRateLimited         = providererr.ErrRateLimited

	ErrUnknownProvider = errors.New("unknown model provider")
)
