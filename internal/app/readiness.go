package app

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/talentfinder/internal/adapter/httpserver"
)

// Pinger is anything that can report whether it is reachable.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks probes the talent API and the token store.
func BuildReadinessChecks(api, store Pinger) []httpserver.ReadyCheck {
	probe := func(name string, p Pinger) func(context.Context) error {
		return func(ctx context.Context) error {
			if p == nil {
				return fmt.Errorf("%s not configured", name)
			}
			return p.Ping(ctx)
		}
	}
	return []httpserver.ReadyCheck{
		{Name: "talent_api", Probe: probe("talent api", api)},
		{Name: "token_store", Probe: probe("token store", store)},
	}
}
