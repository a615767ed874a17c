package metrics

import "time"

// Event and operation names.
const (
	PaymentStarted  = "payment_started"
	PaymentRejected = "payment_rejected"
	LegSucceeded    = "leg_succeeded"
	LegFailed       = "leg_failed"
	ProofFailed     = "proof_failed"

	OpProve        = "prove"
	OpSimulate     = "simulate"
	OpSubmit       = "submit"
	OpAwaitReceipt = "await_receipt"
	OpPayment      = "payment"

	LabelChain  = "chain"
	LabelReason = "reason"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Timer observes the time elapsed since start under name when stopped.
func Timer(r Recorder, name string, labels map[string]string) func() {
	start := time.Now()
	return func() {
		r.ObserveLatency(name, time.Since(start), labels)
	}
}
