package orders

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

const orderNumberPrefix = "ORD-"

// NewOrderNumber mints the external order reference. ULIDs are sortable by
// creation time, collision-safe across replicas and safe to hand to the
// payment gateway; the unique index on order_number backstops reuse.
func NewOrderNumber() string {
	return orderNumberPrefix + ulid.MustNew(ulid.Now(), rand.Reader).String()
}
