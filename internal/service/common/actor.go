//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/cryptonewsbr/newsbot-deploy/internal/domain/deploy"
)

// DetectActor gathers local host and user information so deployment
// records show who ran each deploy.
func DetectActor() (*deploy.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &deploy.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
