package order

import "fmt"

type DriverStatus string

const (
	DriverPending   DriverStatus = "pending"
	DriverAccepted  DriverStatus = "accepted"
	DriverReady     DriverStatus = "ready"
	DriverOnTheWay  DriverStatus = "on the way"
	DriverDelivered DriverStatus = "delivered"
	DriverCancelled DriverStatus = "cancelled"
)

type ProviderStatus string

const (
	ProviderPending   ProviderStatus = "pending"
	ProviderReceived  ProviderStatus = "received"
	ProviderPreparing ProviderStatus = "preparing"
	ProviderReady     ProviderStatus = "ready"
)

// driverTransitions lists the states reachable in one step.
var driverTransitions = map[DriverStatus][]DriverStatus{
	DriverPending:   {DriverAccepted, DriverCancelled},
	DriverAccepted:  {DriverReady, DriverCancelled},
	DriverReady:     {DriverOnTheWay, DriverCancelled},
	DriverOnTheWay:  {DriverDelivered, DriverCancelled},
	DriverDelivered: {}, // terminal state
	DriverCancelled: {}, // terminal state
}

var providerTransitions = map[ProviderStatus][]ProviderStatus{
	ProviderPending:   {ProviderReceived},
	ProviderReceived:  {ProviderPreparing},
	ProviderPreparing: {ProviderReady},
	ProviderReady:     {}, // terminal state
}

func (s DriverStatus) Valid() bool {
	_, ok := driverTransitions[s]
	return ok
}

func (s ProviderStatus) Valid() bool {
	_, ok := providerTransitions[s]
	return ok
}

// CanTransitionTo checks if the driver track can move to target
func (s DriverStatus) CanTransitionTo(target DriverStatus) bool {
	for _, next := range driverTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// CanTransitionTo checks if the provider track can move to target
func (s ProviderStatus) CanTransitionTo(target ProviderStatus) bool {
	for _, next := range providerTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func transitionError(track string, from, to string) error {
	return fmt.Errorf("%w: %s status cannot go from %q to %q", ErrInvalidStatusTransition, track, from, to)
}
