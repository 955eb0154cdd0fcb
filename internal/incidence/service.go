package incidence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/incidence-forecast/internal/forecast"
	"github.com/i474232898/incidence-forecast/internal/lookup"
	"github.com/i474232898/incidence-forecast/internal/series"
)

// WarningNoUsableHistory is appended when live and local data were missing,
// empty or flat and the history itself is the synthetic baseline.
const WarningNoUsableHistory = "No usable history (empty or flat data); using synthetic baseline."

var (
	// ErrNotEnoughData is returned when training finds too short a history.
	ErrNotEnoughData = errors.New("not enough data")
	// ErrUnknownDisease is returned when training gets a disease outside the vocabulary.
	ErrUnknownDisease = errors.New("unknown disease")
)

// ServiceConfig wires a Service. Live, Local, Cache, Recorder and Registry
// are optional.
type ServiceConfig struct {
	Live       LiveSource
	Local      LocalSource
	Synthetic  SyntheticSource
	Cache      ResultCache
	Recorder   Recorder
	Registry   *forecast.Registry
	Strategies []forecast.Strategy
	Logger     zerolog.Logger
}

// Service resolves histories, forecasts them and manages persisted models.
type Service struct {
	resolver   *Resolver
	selector   *forecast.Selector
	local      LocalSource
	cache      ResultCache
	rec        Recorder
	registry *forecast.Registry
	log      zerolog.Logger
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) *Service {
	rec := cfg.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Service{
		resolver: NewResolver(cfg.Live, cfg.Local, cfg.Synthetic, rec, cfg.Logger),
		selector: forecast.NewSelector(cfg.Logger, cfg.Strategies),
		local:    cfg.Local,
		cache:    cfg.Cache,
		rec:      rec,
		registry: cfg.Registry,
		log:      cfg.Logger.With().Str("component", "incidence.service").Logger(),
	}
}

// ResolveMonthlyHistory runs the acquisition cascade alone.
func (s *Service) ResolveMonthlyHistory(ctx context.Context, q Query) (series.Monthly, Provenance, Warnings, error) {
	res, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, nil, nil, err
	}
	return res.History, res.Provenance, res.Warnings, nil
}

// ForecastMonthly resolves a history for q and forecasts horizon months past
// its end. Lack of data never fails the call: it degrades the method toward
// synthetic and adds warnings. Errors are limited to ErrConfiguration and
// cancellation before the history is resolved. Horizon limits belong to the
// caller.
//
// Only results modelled from live or local data are cached, so a degraded
// answer never outlives the failure that caused it.
func (s *Service) ForecastMonthly(ctx context.Context, q Query, horizon int) (Result, error) {
	if horizon < 0 {
		horizon = 0
	}

	key := fmt.Sprintf("%s|%d", q.Key(), horizon)
	if s.cache != nil {
		if r, ok := s.cache.Get(key); ok {
			return r.clone(), nil
		}
	}

	start := time.Now()
	res, err := s.resolver.Resolve(ctx, q)
	if err != nil {
		return Result{}, err
	}

	in := forecast.Input{History: res.History, Anchor: anchor(q), Horizon: horizon}
	var sel forecast.Selection
	if res.Source != StageLive && res.Source != StageLocal {
		res.Warnings = append(res.Warnings, WarningNoUsableHistory)
		sel = s.selector.Fallback(ctx, in, forecast.Selection{})
	} else {
		sel = s.selector.Select(ctx, in)
	}

	out, err := Assemble(q, res, sel, horizon)
	if err != nil {
		return Result{}, err
	}
	s.rec.ObserveForecast(string(out.Method), time.Since(start))
	s.log.Info().
		Str("id", out.ID).
		Str("disease", q.Disease).
		Str("region", q.Region).
		Str("source", string(res.Source)).
		Str("method", string(out.Method)).
		Int("history", len(out.History)).
		Int("horizon", horizon).
		Int("warnings", len(out.Warnings)).
		Dur("took", time.Since(start)).
		Msg("forecast produced")

	if s.cache != nil && out.Method != forecast.MethodSynthetic {
		s.cache.Add(key, out.clone())
	}
	return out, nil
}

// ModelKey is the registry key for a disease/region pair. Known diseases and
// regions use their canonical forms so spelling variants share a model.
func ModelKey(disease, region string) string {
	if c, ok := lookup.DiseaseCategory(disease); ok {
		disease = string(c)
	}
	if iso := lookup.ISO3(region); iso != "" {
		region = iso
	}
	return forecast.ModelKey(disease, region)
}

// TrainModel fits and persists a model on the full local history for the
// disease/region pair.
func (s *Service) TrainModel(ctx context.Context, disease, region string) (TrainSummary, error) {
	if s.registry == nil || s.local == nil {
		return TrainSummary{}, fmt.Errorf("%w: training needs a local dataset and a models directory", ErrConfiguration)
	}
	cat, ok := lookup.DiseaseCategory(disease)
	if !ok {
		return TrainSummary{}, fmt.Errorf("%w: %q", ErrUnknownDisease, disease)
	}

	var (
		hist    series.Monthly
		usedKey string
	)
	for _, key := range lookup.RegionCandidates(region) {
		obs, err := s.local.FetchLocal(ctx, cat, key, time.Time{}, time.Time{})
		if err != nil {
			return TrainSummary{}, err
		}
		if m := series.Normalize(obs); m.Len() > hist.Len() {
			hist, usedKey = m, key
		}
	}
	if hist.Len() < forecast.TrainingMinPoints {
		return TrainSummary{}, fmt.Errorf("%w: %d months for %s/%s, need %d",
			ErrNotEnoughData, hist.Len(), disease, region, forecast.TrainingMinPoints)
	}

	model, err := forecast.Train(ctx, hist)
	if err != nil {
		return TrainSummary{}, fmt.Errorf("train %s/%s: %w", disease, region, err)
	}
	key := ModelKey(disease, region)
	if err := s.registry.Save(key, model); err != nil {
		return TrainSummary{}, err
	}

	s.log.Info().Str("key", key).Int("months", hist.Len()).Str("order", model.Order.String()).Msg("model trained")
	return TrainSummary{
		Key:        key,
		Order:      model.Order.String(),
		Months:     hist.Len(),
		LastMonth:  model.LastMonth().Format(series.DateLayout),
		Provenance: fmt.Sprintf(provenanceLocal, usedKey),
		FittedAt:   model.FittedAt,
	}, nil
}

// PredictMonth answers a single month from a persisted model.
func (s *Service) PredictMonth(_ context.Context, disease, region string, month time.Time) (Prediction, error) {
	if s.registry == nil {
		return Prediction{}, fmt.Errorf("%w: no models directory", ErrConfiguration)
	}
	model, err := s.registry.Load(ModelKey(disease, region))
	if err != nil {
		return Prediction{}, err
	}
	target := series.MonthStart(month)
	v, status := model.PredictMonth(target)
	return Prediction{
		Disease: disease,
		Region:  region,
		Month:   target.Format("2006-01"),
		Value:   v,
		Status:  status,
	}, nil
}

// anchor is the month an empty-history forecast continues from.
func anchor(q Query) time.Time {
	switch {
	case !q.To.IsZero():
		return q.To
	case !q.From.IsZero():
		return q.From
	default:
		return time.Now().UTC()
	}
}

func (r Result) clone() Result {
	r.History = cloneSlice(r.History)
	r.Forecast = cloneSlice(r.Forecast)
	r.Provenance = cloneSlice(r.Provenance)
	r.Warnings = cloneSlice(r.Warnings)
	r.Attempts = cloneSlice(r.Attempts)
	return r
}

func cloneSlice[S ~[]E, E any](s S) S {
	if s == nil {
		return nil
	}
	return append(make(S, 0, len(s)), s...)
}
