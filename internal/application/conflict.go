package application

import (
	"errors"
	"strings"

	"github.com/wms-platform/inbound-service/internal/domain"
)

// Remote wordings that mean the choice is already in place. Only consulted
// when a confirm call fails despite the listing showing nothing accepted.
var alreadyConfirmedPhrases = []string{
	"already confirmed",
	"already been confirmed",
	"already accepted",
	"cannot be processed",
}

// IsAlreadyConfirmed classifies a confirm failure as "the remote side already
// holds a confirmed choice" so the caller can re-list and adopt it.
func IsAlreadyConfirmed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrAlreadyConfirmed) {
		return true
	}

	var rejection *domain.RemoteRejectionError
	if errors.As(err, &rejection) {
		for _, p := range rejection.Problems {
			if matchesAlreadyConfirmed(p.Code) || matchesAlreadyConfirmed(p.Message) {
				return true
			}
		}
		return false
	}

	var remote *domain.RemoteCallError
	if errors.As(err, &remote) {
		for _, p := range remote.Problems {
			if matchesAlreadyConfirmed(p.Message) {
				return true
			}
		}
		return false
	}
	return false
}

func matchesAlreadyConfirmed(text string) bool {
	text = strings.ToLower(text)
	for _, phrase := range alreadyConfirmedPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
