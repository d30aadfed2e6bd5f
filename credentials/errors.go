package credentials

import "fmt"

type (
	UserNotFound struct {
		Username string
	}

	// ConfigurationError means the user list cannot back a running server
	ConfigurationError struct {
		Username string
		Reason   string
	}
)

func (u UserNotFound) Error() string {
	return fmt.Sprintf("user %v not found", u.Username)
}

func (c ConfigurationError) Error() string {
	if c.Username == "" {
		return fmt.Sprintf("invalid credential configuration: %v", c.Reason)
	}
	return fmt.Sprintf("invalid credential configuration for user %q: %v", c.Username, c.Reason)
}
