package policy

import "fmt"

type (
	// ConfigurationError is fatal, the server must not start with it
	ConfigurationError struct {
		File   string
		Rule   int
		Reason string
	}
)

func (c ConfigurationError) Error() string {
	switch {
	case c.File != "" && c.Rule >= 0:
		return fmt.Sprintf("invalid access policy %v (rule #%d): %v", c.File, c.Rule+1, c.Reason)
	case c.File != "":
		return fmt.Sprintf("invalid access policy %v: %v", c.File, c.Reason)
	case c.Rule < 0:
		return fmt.Sprintf("invalid access policy: %v", c.Reason)
	}
	return fmt.Sprintf("invalid access policy (rule #%d): %v", c.Rule+1, c.Reason)
}
