package dashboard

import (
	"cistat/src/aggregate"
	"cistat/src/config"
	"cistat/src/provider"
)

// OptionsFromConfig maps the resolved configuration onto orchestrator options.
func OptionsFromConfig(cfg *config.Config, branchFilter func(string) bool) Options {
	return Options{
		Projects: cfg.Projects,
		Limit:    cfg.Limit,
		Aggregate: aggregate.Options{
			Key:   cfg.GroupBy,
			Depth: cfg.Depth,
			Order: cfg.Order,
		},
		Watch:        cfg.Watch,
		Interval:     cfg.Interval,
		Concurrency:  cfg.Concurrency,
		StaleLimit:   cfg.StaleLimit,
		BranchFilter: branchFilter,
	}
}

// NewProviders builds one provider per kind in use. Adapter packages must be
// imported for their kinds to be registered.
func NewProviders(cfg *config.Config) (map[provider.Kind]provider.Provider, error) {
	providers := make(map[provider.Kind]provider.Provider)
	for _, kind := range cfg.Kinds() {
		p, err := provider.New(kind, cfg.Settings(kind))
		if err != nil {
			return nil, err
		}
		providers[kind] = p
	}
	return providers, nil
}
