/*
Package server implements the application's network transport layer.
It builds the HTTP server, configures timeouts, and mounts the coaching
endpoints on an Echo router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	user "nutricoach/internal/User"
	"nutricoach/internal/auth"
	"nutricoach/internal/config"
	"nutricoach/internal/database"
	"nutricoach/internal/utility"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides access to the database service for health reporting.
	db database.Service

	auth        *auth.Authenticator
	users       *user.Service
	chatLimiter *utility.RateLimiter
}

// Deps are the services the router dispatches to.
type Deps struct {
	DB          database.Service
	Auth        *auth.Authenticator
	Users       *user.Service
	ChatLimiter *utility.RateLimiter // optional
}

// NewServer returns a configured *http.Server for cfg.
func NewServer(cfg config.Config, d Deps) *http.Server {
	newApp := &Server{
		port:        cfg.Port,
		db:          d.DB,
		auth:        d.Auth,
		users:       d.Users,
		chatLimiter: d.ChatLimiter,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		// A chat turn waits up to a minute on the model.
		WriteTimeout: 90 * time.Second,
	}
}
