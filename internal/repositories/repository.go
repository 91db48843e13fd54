// Package repositories maps the domain models onto document store collections.
package repositories

import (
	"time"

	"github.com/google/uuid"
)

// now is the clock used for document timestamps.
var now = func() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }
