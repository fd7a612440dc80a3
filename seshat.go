// Package seshat holds the version stamp and the handful of constants every
// other package agrees on.
package seshat

import "errors"

// Version is the release tag of this build. Overridden at link time for real
// releases; "devel" means someone ran it straight from a checkout.
var Version = "devel"

const (
	// DefaultBind is where the public HTTP listener lands when nothing else
	// is configured. Port 5001 is a compatibility contract with existing
	// deployments and their smoke checks.
	DefaultBind = ":5001"

	// DefaultMetricsBind is where prometheus and the health endpoint live.
	DefaultMetricsBind = ":9090"

	// DefaultCounterKey is the store key the visit counter lives under.
	DefaultCounterKey = "visits"

	// DefaultStoreURL points at the store the stock docker-compose file
	// provides: host "redis", port 6379, logical database 0.
	DefaultStoreURL = "redis://redis:6379/0"

	// WelcomeText is the exact body served on the root path. Deployed
	// monitoring scrapes this string verbatim, so treat it as frozen.
	WelcomeText = "Welcome to my Flask app"

	// CountBodyFormat is the exact body served after a counted visit. The
	// grammar quirk at N=1 is part of the frozen contract too.
	CountBodyFormat = "This page has been visited %d times."

	// CounterUnavailableText is the stable error body clients get when the
	// store cannot be reached. Status code 503 accompanies it.
	CounterUnavailableText = "counter temporarily unavailable"
)

var (
	// ErrMisconfiguration means an operator-supplied setting cannot work as
	// given. The wrapped detail says which one.
	ErrMisconfiguration = errors.New("seshat: administrator misconfiguration")
)
