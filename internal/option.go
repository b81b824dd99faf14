package internal

import (
	"io"

	"github.com/starford/notely/internal/models"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	user      *models.User
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sends logs to w instead of the default stream.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithUser sets the identity the MCP server acts as. Without it the
// configured local user is used.
func WithUser(u models.User) Option {
	return func(a *application) {
		a.user = &u
	}
}
