package ws

import (
	"context"

	"dispatch/internal/service"
)

// Notifier adapts the hub to the dispatch push interface. Every method is
// fire-and-forget per the hub's delivery contract.
type Notifier struct {
	hub *Hub
}

// NewNotifier creates a Notifier backed by the given hub.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

var _ service.Notifier = (*Notifier)(nil)

// PushOfferToDriver sends a ride offer to one driver.
func (n *Notifier) PushOfferToDriver(_ context.Context, driverID string, offer service.RideOffer) {
	n.hub.SendToUser(driverID, "ride_offer", offer)
}

// PushRideUpdate sends a ride status change to a user.
func (n *Notifier) PushRideUpdate(_ context.Context, userID string, update service.RideUpdate) {
	n.hub.SendToUser(userID, "ride_update", update)
}

// PushEmergency broadcasts an SOS to every connected client.
func (n *Notifier) PushEmergency(_ context.Context, alert service.EmergencyAlert) {
	n.hub.Broadcast("emergency_alert", alert)
}
