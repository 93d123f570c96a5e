package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/gosearch/internal/database"
	"github.com/jonesrussell/gosearch/internal/logger"
)

// RegistrationStore admits URLs to the crawl frontier.
type RegistrationStore interface {
	Register(ctx context.Context, params database.RegisterParams) (bool, error)
}

// RobotsPolicy answers robots.txt checks.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) (bool, error)
}

// TrapPolicy flags spider-trap URLs.
type TrapPolicy interface {
	IsAnomalous(rawURL string) bool
}

// Registrar applies admission policy before URLs enter the frontier.
// Seeds are admitted as given; discovered links pass depth, trap, and
// robots checks first, with disallowed links skipped quietly.
type Registrar struct {
	store    RegistrationStore
	robots   RobotsPolicy
	traps    TrapPolicy
	log      logger.Logger
	maxDepth int
}

// NewRegistrar creates a Registrar enforcing the given depth bound.
func NewRegistrar(
	store RegistrationStore,
	robots RobotsPolicy,
	traps TrapPolicy,
	log logger.Logger,
	maxDepth int,
) *Registrar {
	return &Registrar{
		store:    store,
		robots:   robots,
		traps:    traps,
		log:      log,
		maxDepth: maxDepth,
	}
}

// RegisterSeed admits an externally provided URL at depth 0. Returns
// whether a new frontier row was created.
func (r *Registrar) RegisterSeed(ctx context.Context, rawURL string) (bool, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return false, err
	}

	created, regErr := r.store.Register(ctx, database.RegisterParams{
		URL:    rawURL,
		Domain: host,
		Depth:  0,
	})
	if regErr != nil {
		return false, fmt.Errorf("register seed: %w", regErr)
	}

	return created, nil
}

// RegisterDiscovered admits links found at parentDepth. Links past the
// depth bound, trap-like links, and robots-disallowed links are skipped.
// Returns the number of newly created frontier rows.
func (r *Registrar) RegisterDiscovered(ctx context.Context, links []string, parentDepth int) int {
	depth := parentDepth + 1
	if depth > r.maxDepth {
		return 0
	}

	registered := 0

	for _, link := range links {
		if r.traps.IsAnomalous(link) {
			continue
		}

		allowed, robotsErr := r.robots.Allowed(ctx, link)
		if robotsErr != nil || !allowed {
			continue
		}

		host, hostErr := hostOf(link)
		if hostErr != nil {
			continue
		}

		created, regErr := r.store.Register(ctx, database.RegisterParams{
			URL:    link,
			Domain: host,
			Depth:  depth,
		})
		if regErr != nil {
			r.log.Error("failed to register discovered url",
				logger.String("url", link),
				logger.Error(regErr),
			)

			continue
		}

		if created {
			registered++
		}
	}

	return registered
}

// hostOf returns the lowercased host of a URL, rejecting URLs without one.
func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	return host, nil
}
