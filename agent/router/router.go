// Package router selects exactly one destination per turn. Classification is
// delegated (possibly to a model); the selection policy over the returned
// labels is a pure function, so identical inputs always route identically.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/orbita/agent/contract"
)

// DefaultPrecedence is the tie-break order when a message plausibly matches
// several domains: first applicable wins.
var DefaultPrecedence = []contractx.RouteDecision{
	contractx.RouteEmail,
	contractx.RouteCalendar,
	contractx.RouteBudget,
	contractx.RouteManager,
}

const defaultMinConfidence = 0.5

type Option func(*Router)

// WithPrecedence replaces the tie-break order. The list must cover every
// decision exactly once.
func WithPrecedence(precedence []contractx.RouteDecision) Option {
	return func(r *Router) {
		r.precedence = precedence
	}
}

// WithMinConfidence sets the threshold below which a label does not count as a
// domain match.
func WithMinConfidence(min float64) Option {
	return func(r *Router) {
		r.minConfidence = min
	}
}

type Router struct {
	classifier    contractx.Classifier
	precedence    []contractx.RouteDecision
	minConfidence float64
}

func New(classifier contractx.Classifier, opts ...Option) (*Router, error) {
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}

	r := &Router{
		classifier:    classifier,
		precedence:    DefaultPrecedence,
		minConfidence: defaultMinConfidence,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if err := validatePrecedence(r.precedence); err != nil {
		return nil, err
	}
	return r, nil
}

// Route classifies the message and applies the selection policy. A classifier
// failure or an inconclusive classification resolves to RouteManager so the
// manager can answer conversationally; the turn never fails here.
func (r *Router) Route(
	ctx context.Context,
	userMessage string,
	history []contractx.Turn,
	memoryContext string,
) contractx.RouteDecision {
	labels, err := r.classifier.Classify(ctx, userMessage, history, memoryContext)
	if err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %v", contractx.ErrRoutingAmbiguous, err)).
			Str("step", "route").
			Msg("classification failed, falling back to manager")
		return contractx.RouteManager
	}
	return Select(labels, r.precedence, r.minConfidence)
}

// Select is the deterministic selection policy: among labels at or above the
// confidence threshold, the first domain in precedence order wins; no match
// means RouteManager.
func Select(
	labels []contractx.Label,
	precedence []contractx.RouteDecision,
	minConfidence float64,
) contractx.RouteDecision {
	matched := make(map[contractx.RouteDecision]bool, len(labels))
	for _, l := range labels {
		if !l.Domain.Valid() || l.Confidence < minConfidence {
			continue
		}
		matched[l.Domain] = true
	}

	for _, d := range precedence {
		if matched[d] {
			return d
		}
	}
	return contractx.RouteManager
}

func validatePrecedence(precedence []contractx.RouteDecision) error {
	if len(precedence) == 0 {
		return fmt.Errorf("%w: precedence is empty", contractx.ErrValidation)
	}
	seen := make(map[contractx.RouteDecision]bool, len(precedence))
	for _, d := range precedence {
		if !d.Valid() {
			return fmt.Errorf("%w: invalid route %q in precedence", contractx.ErrValidation, d)
		}
		if seen[d] {
			return fmt.Errorf("%w: duplicate route %q in precedence", contractx.ErrValidation, d)
		}
		seen[d] = true
	}
	return nil
}
