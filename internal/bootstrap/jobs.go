package bootstrap

import (
	"fincal/internal/adapters/config"
	"fincal/internal/adapters/providers"
	"fincal/internal/adapters/providers/eodhd"
	"fincal/internal/adapters/providers/finnhub"
	"fincal/internal/adapters/providers/fred"
	"fincal/internal/adapters/providers/ratelimit"
	"fincal/internal/adapters/providers/retry"
	"fincal/internal/adapters/providers/tradingeconomics"
	"fincal/internal/domain/calendar"
	calendarsvc "fincal/internal/services/calendar"
	"fincal/pkg/logger"
)

// Scheduled job names
const (
	JobIndicatorsRecent  = "indicators_recent"
	JobIndicatorsOutlook = "indicators_outlook"
	JobEarningsWeek      = "earnings_week"
	JobEarningsQuarter   = "earnings_quarter"
)

// BuildJobs turns the job schedule into runnable jobs over the provider chains
func BuildJobs(cfg config.JobsConfig, catalogs calendarsvc.Catalogs, chains map[calendar.Kind][]calendar.Provider) []calendarsvc.Job {
	specs := []struct {
		name     string
		kind     calendar.Kind
		schedule config.JobSchedule
	}{
		{JobIndicatorsRecent, calendar.KindIndicatorRelease, cfg.IndicatorsRecent},
		{JobIndicatorsOutlook, calendar.KindIndicatorRelease, cfg.IndicatorsOutlook},
		{JobEarningsWeek, calendar.KindEarningsReport, cfg.EarningsWeek},
		{JobEarningsQuarter, calendar.KindEarningsReport, cfg.EarningsQuarter},
	}

	jobs := make([]calendarsvc.Job, 0, len(specs))
	for _, s := range specs {
		jobs = append(jobs, calendarsvc.Job{
			Name: s.name,
			Kind: s.kind,
			Window: calendar.WindowPolicy{
				BackDays:      s.schedule.BackDays,
				ForwardDays:   s.schedule.ForwardDays,
				ForwardMonths: s.schedule.ForwardMonths,
			},
			Catalog:   catalogs.For(s.kind),
			Providers: chains[s.kind],
			Interval:  s.schedule.Interval,
			Enabled:   s.schedule.Enabled,
		})
	}
	return jobs
}

// provideProviders builds the fallback chains, primary first.
// Clients of the same provider share one rate limiter.
func provideProviders(cfg *config.Config, limiters *ratelimit.Registry, log *logger.Logger) map[calendar.Kind][]calendar.Provider {
	p := cfg.Providers
	build := func(name string, pc config.ProviderConfig) providers.Config {
		if pc.APIKey == "" {
			log.Warnw("Provider API key not configured, provider will be skipped as unauthorized", "provider", name)
		}
		return providerConfig(cfg, pc)
	}

	fredCfg := build(fred.Name, p.FRED)
	teCfg := build(tradingeconomics.Name, p.TradingEconomics)
	eodCfg := build(eodhd.Name, p.EODHD)
	fhCfg := build(finnhub.Name, p.Finnhub)

	chains := map[calendar.Kind][]calendar.Provider{
		calendar.KindIndicatorRelease: {
			fred.New(fredCfg, limiters.For(fred.Name, fredCfg.RequestsPerMinute)),
			tradingeconomics.New(teCfg, limiters.For(tradingeconomics.Name, teCfg.RequestsPerMinute)),
		},
		calendar.KindEarningsReport: {
			eodhd.New(eodCfg, limiters.For(eodhd.Name, eodCfg.RequestsPerMinute)),
			finnhub.New(fhCfg, limiters.For(finnhub.Name, fhCfg.RequestsPerMinute)),
		},
	}

	log.Infow("✓ Providers initialized",
		"indicators", []string{fred.Name, tradingeconomics.Name},
		"earnings", []string{eodhd.Name, finnhub.Name},
	)
	return chains
}

func providerConfig(cfg *config.Config, pc config.ProviderConfig) providers.Config {
	backoff := retry.DefaultConfig()
	backoff.MaxRetries = cfg.Providers.RetryMax
	if cfg.Providers.RetryInitialDelay > 0 {
		backoff.InitialDelay = cfg.Providers.RetryInitialDelay
	}
	if cfg.Providers.RetryMaxDelay > 0 {
		backoff.MaxDelay = cfg.Providers.RetryMaxDelay
	}

	return providers.Config{
		BaseURL:           pc.BaseURL,
		APIKey:            pc.APIKey,
		Timeout:           pc.Timeout,
		RequestsPerMinute: pc.RequestsPerMinute,
		MaxBatch:          pc.MaxBatch,
		Retry:             backoff,
		UserAgent:         cfg.App.Name + "/" + cfg.App.Version,
	}
}
