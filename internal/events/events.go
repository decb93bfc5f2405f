// Package events names the in-process topics shared over the event bus.
package events

import "time"

const (
	// TopicCatalogChanged fires after any write to the product collection.
	TopicCatalogChanged = "catalog:changed"
	// TopicAuthState fires when a session is opened or closed.
	TopicAuthState = "auth:state"
)

// Catalog change kinds.
const (
	ProductCreated = "created"
	ProductUpdated = "updated"
	ProductDeleted = "deleted"
	CatalogTouched = "touched"
)

// CatalogChanged describes a write to the product collection.
type CatalogChanged struct {
	Kind      string    `json:"kind"`
	ProductID string    `json:"product_id,omitempty"`
	Origin    string    `json:"origin"`
	At        time.Time `json:"at"`
}

// AuthState is published with the user that signed in, or with SignedIn=false on sign-out.
type AuthState struct {
	SignedIn  bool   `json:"signed_in"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}
