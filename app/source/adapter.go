package source

import (
	"context"

	"github.com/lysyi3m/cfp-comb/app/record"
)

// Adapter fetches one external source and extracts its announcements.
// Run performs the whole fetch-and-extract cycle; every failure is returned
// as an error and an empty result is not one. Adapters only issue HTTP
// GETs and never touch the store.
type Adapter interface {
	Name() string
	Run(ctx context.Context) ([]record.Record, error)
}
