package messages

import "github.com/google/uuid"

// Per-aggregate namespaces for deterministic stream-id derivation.
// Redelivered spawn messages converge on the same stream because the id
// is a pure function of the correlation key. Changing a namespace (or the
// hash) breaks existing correlation and is a breaking contract change;
// introduce a new namespace constant instead.
var (
	NamespaceCheckout    = uuid.MustParse("7f1d3f58-9c1e-4b85-a7d4-3f0b2a6c9e01")
	NamespaceOrder       = uuid.MustParse("9a6b4c2d-1e8f-4a03-b5c7-d2e9f0a1b302")
	NamespacePayment     = uuid.MustParse("c4e8a1b2-6d3f-4e97-8a05-1b2c3d4e5f03")
	NamespaceShipment    = uuid.MustParse("e2d1c0b9-a8f7-4e65-9d43-2c1b0a9f8e04")
	NamespaceReservation = uuid.MustParse("5b4a3c2d-1e0f-4987-a654-3d2c1b0a9f05")
)

// DeriveStreamID maps a business correlation key to a stream id (UUIDv5).
func DeriveStreamID(namespace uuid.UUID, key string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(key))
}
