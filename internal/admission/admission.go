// Package admission decides whether a connecting client belongs to a known
// platform, based on the signals available during the WebSocket handshake.
package admission

import (
	"fmt"
	"strings"

	"github.com/scoremilk/chat-gateway/internal/store"
	"github.com/scoremilk/chat-gateway/internal/urlx"
	"github.com/scoremilk/chat-gateway/pkg/logger"
)

// Request carries the connection metadata inspected by the admission check.
type Request struct {
	// PlatformName is the explicit platform query parameter, if any.
	PlatformName string
	// Origin and Host are the raw header values from the handshake request.
	Origin string
	Host   string
}

// Result is the admission decision. Platform is nil when the connection is
// admitted without a recognized platform.
type Result struct {
	Platform *store.Platform
	IsValid  bool
	Error    string
}

// Checker runs the admission decision against the known platform list.
type Checker struct {
	log logger.Logger
}

// NewChecker creates a Checker.
func NewChecker(log logger.Logger) *Checker {
	return &Checker{log: log}
}

// Check evaluates the signals in strict precedence order:
//
//  1. Explicit platform-name query parameter. A match admits; a mismatch is
//     the only path that rejects, with an error listing the valid names.
//  2. Origin header, matched by normalized URL.
//  3. Host header, matched by normalized URL.
//  4. Localhost fallback: a localhost Host admits with the first known
//     platform (the list is sorted by name, so "first" is deterministic).
//  5. No matching signal and no explicit name: admitted with a nil platform,
//     a deliberate latitude for direct and non-browser connections.
func (c *Checker) Check(platforms []store.Platform, req Request) Result {
	if req.PlatformName != "" {
		return c.checkName(platforms, req.PlatformName)
	}

	if req.Origin != "" {
		if p, ok := c.matchURL(platforms, req.Origin); ok {
			c.log.Info("platform detected from Origin header",
				logger.StringField("platform", p.Name),
				logger.StringField("origin", req.Origin))
			return Result{Platform: p, IsValid: true}
		}
	}

	if req.Host != "" {
		if p, ok := c.matchURL(platforms, req.Host); ok {
			c.log.Info("platform detected from Host header",
				logger.StringField("platform", p.Name),
				logger.StringField("host", req.Host))
			return Result{Platform: p, IsValid: true}
		}

		if strings.Contains(req.Host, "localhost") && len(platforms) > 0 {
			first := platforms[0]
			c.log.Info("localhost detected, using first available platform",
				logger.StringField("platform", first.Name))
			return Result{Platform: &first, IsValid: true}
		}
	}

	c.log.Debug("no platform detected from query parameter, Origin, or Host")
	return Result{Platform: nil, IsValid: true}
}

func (c *Checker) checkName(platforms []store.Platform, name string) Result {
	for i := range platforms {
		if platforms[i].Name == name {
			c.log.Info("platform validated from query parameter",
				logger.StringField("platform", name))
			return Result{Platform: &platforms[i], IsValid: true}
		}
	}

	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = p.Name
	}
	errMsg := fmt.Sprintf("Invalid platform: %s. Available platforms: %s", name, strings.Join(names, ", "))

	c.log.Warn("invalid platform specified in query parameter",
		logger.StringField("platform", name))

	return Result{Platform: nil, IsValid: false, Error: errMsg}
}

func (c *Checker) matchURL(platforms []store.Platform, raw string) (*store.Platform, bool) {
	domain, ok := urlx.Normalize(raw)
	if !ok {
		c.log.Warn("failed to normalize URL from handshake headers",
			logger.StringField("url", raw))
		return nil, false
	}
	for i := range platforms {
		platformDomain, ok := urlx.Normalize(platforms[i].URL)
		if ok && platformDomain == domain {
			return &platforms[i], true
		}
	}
	return nil, false
}
