package integration

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// sourceNamespace seeds deterministic reference IDs so a replayed event maps
// to the same source link every time.
var sourceNamespace = uuid.MustParse("9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")

// sourceRef derives a stable UUID for a domain document.
func sourceRef(kind string, companyID int64, key string) uuid.UUID {
	return uuid.NewSHA1(sourceNamespace, []byte(fmt.Sprintf("%s:%d:%s", kind, companyID, key)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
