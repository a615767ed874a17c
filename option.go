package heka402

import (
	"io"

	"github.com/vitwit/heka402/allocation"
	"github.com/vitwit/heka402/logger"
	"github.com/vitwit/heka402/metrics"
	"github.com/vitwit/heka402/prover"
	"github.com/vitwit/heka402/settlement"
)

type Option func(*Heka402)

func WithLogger(l logger.Logger) Option {
	return func(h *Heka402) {
		h.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(h *Heka402) {
		h.metrics = r
	}
}

func WithProver(p prover.Prover) Option {
	return func(h *Heka402) {
		h.prover = p
	}
}

func WithResolver(r Resolver) Option {
	return func(h *Heka402) {
		h.resolver = r
	}
}

// WithDispatcher overrides the dispatch mode from the config.
func WithDispatcher(d settlement.Dispatcher) Option {
	return func(h *Heka402) {
		h.dispatcher = d
	}
}

// WithSettlement supplies a prepared settlement service instead of dialing
// every configured chain.
func WithSettlement(s *settlement.SettlementService) Option {
	return func(h *Heka402) {
		h.settlementService = s
	}
}

func WithIssueClock(c *allocation.IssueClock) Option {
	return func(h *Heka402) {
		h.clock = c
	}
}

// WithSecretSource sets the entropy used for generated secrets.
func WithSecretSource(r io.Reader) Option {
	return func(h *Heka402) {
		h.secrets = r
	}
}
