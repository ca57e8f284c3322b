package jobx

import "time"

const (
	DefaultLeaseDuration = 5 * time.Minute
	MinLeaseDuration     = time.Millisecond
)

// LeaseSource identifies how a lease duration was resolved.
type LeaseSource string

const (
	LeaseSourceExplicit LeaseSource = "explicit"
	LeaseSourceDefault  LeaseSource = "default"
	LeaseSourceClamped  LeaseSource = "clamped"
)

// LeasePolicy normalises requested lease durations.
type LeasePolicy struct {
	defaultLease time.Duration
}

// NewLeasePolicy returns a policy using defaultLease for unset requests.
// A non-positive default falls back to DefaultLeaseDuration.
func NewLeasePolicy(defaultLease time.Duration) *LeasePolicy {
	if defaultLease <= 0 {
		defaultLease = DefaultLeaseDuration
	}
	if defaultLease < MinLeaseDuration {
		defaultLease = MinLeaseDuration
	}
	return &LeasePolicy{defaultLease: defaultLease}
}

func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return DefaultLeaseDuration
	}
	return p.defaultLease
}

// LeaseDecision captures the outcome of resolving a lease request.
type LeaseDecision struct {
	Duration  time.Duration
	Source    LeaseSource
	Requested time.Duration
}

// Resolve maps zero to the default and anything shorter than
// MinLeaseDuration, negatives included, up to the minimum.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	decision := LeaseDecision{Requested: request}
	switch {
	case request == 0:
		decision.Duration = p.Default()
		decision.Source = LeaseSourceDefault
	case request < MinLeaseDuration:
		decision.Duration = MinLeaseDuration
		decision.Source = LeaseSourceClamped
	default:
		decision.Duration = request
		decision.Source = LeaseSourceExplicit
	}
	return decision
}

// ResolveLease is the policy backends apply to the leaseFor argument.
func ResolveLease(request time.Duration) time.Duration {
	return defaultPolicy.Resolve(request).Duration
}

var defaultPolicy = NewLeasePolicy(DefaultLeaseDuration)
