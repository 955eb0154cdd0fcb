package incidence

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/i474232898/incidence-forecast/internal/lookup"
	"github.com/i474232898/incidence-forecast/internal/series"
)

// Stage names one step of the acquisition cascade.
type Stage string

const (
	StageLive      Stage = "live"
	StageLocal     Stage = "local"
	StageSynthetic Stage = "synthetic"
)

// Stage outcomes reported to the Recorder.
const (
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
	OutcomeEmpty    = "empty"
	OutcomeUnusable = "unusable"
	OutcomeUsed     = "used"
)

// Provenance and warning texts.
const (
	provenanceLocal     = "local: monthly dataset (region key='%s')"
	ProvenanceSynthetic = "synthetic: seasonal baseline (no/flat data)"

	WarningNoData       = "No usable live or local data in the requested window."
	warningLiveUnusable = "Live data from %s was empty, flat or too short; falling back."
)

// Synthetic baseline parameters used by the last stage.
const (
	syntheticPoints = 12
	syntheticStart  = 100.0
)

// request is a query plus its normalized disease category.
type request struct {
	Query
	category lookup.Category
	known    bool
}

// stage is one step of the cascade. attempt returns the normalized series it
// found, the provenance line that goes with it, and the outcome label.
// Returned errors abort the whole resolution, so stages only return
// configuration errors and cancellation.
type stage interface {
	name() Stage
	attempt(ctx context.Context, req request, res *Resolution) (series.Monthly, string, string, error)
}

// Resolver runs the live → local → synthetic cascade.
type Resolver struct {
	stages []stage
	rec    Recorder
	log    zerolog.Logger
}

// NewResolver wires the cascade. live and local may be nil to skip those
// stages; synthetic is required.
func NewResolver(live LiveSource, local LocalSource, synthetic SyntheticSource, rec Recorder, log zerolog.Logger) *Resolver {
	if rec == nil {
		rec = nopRecorder{}
	}
	log = log.With().Str("component", "incidence.resolver").Logger()
	return &Resolver{
		stages: []stage{
			liveStage{src: live, log: log},
			localStage{src: local, log: log},
			syntheticStage{src: synthetic},
		},
		rec: rec,
		log: log,
	}
}

// Resolve produces a monthly history for q. The usability predicate is
// checked on the normalized series after every stage; the first usable
// series wins. Only ErrConfiguration and context cancellation are returned.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Resolution, error) {
	cat, known := lookup.DiseaseCategory(q.Disease)
	req := request{Query: q, category: cat, known: known}

	res := Resolution{Provenance: Provenance{}, Warnings: Warnings{}}
	for _, st := range r.stages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		m, prov, outcome, err := st.attempt(ctx, req, &res)
		if err != nil {
			r.rec.ObserveStage(st.name(), OutcomeError)
			return res, err
		}

		if outcome == OutcomeUsed || (st.name() == StageSynthetic && m.Len() > 0) {
			r.rec.ObserveStage(st.name(), OutcomeUsed)
			res.History, res.Source = m, st.name()
			res.Provenance = append(res.Provenance, prov)
			r.log.Debug().
				Str("disease", q.Disease).
				Str("region", q.Region).
				Str("stage", string(st.name())).
				Int("months", m.Len()).
				Msg("history resolved")
			return res, nil
		}
		r.rec.ObserveStage(st.name(), outcome)
	}

	res.History = series.Monthly{}
	return res, nil
}

// classify maps a fetched series to a stage outcome.
func classify(m series.Monthly) string {
	switch {
	case m.Len() == 0:
		return OutcomeEmpty
	case !m.Usable():
		return OutcomeUnusable
	default:
		return OutcomeUsed
	}
}

// fatal reports whether err must abort the resolution.
func fatal(ctx context.Context, err error) error {
	if errors.Is(err, ErrConfiguration) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// guard converts a panicking adapter call into an error.
func guard(fn func() ([]series.Observation, error)) (out []series.Observation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()
	return fn()
}

type liveStage struct {
	src LiveSource
	log zerolog.Logger
}

func (liveStage) name() Stage { return StageLive }

func (s liveStage) attempt(ctx context.Context, req request, res *Resolution) (series.Monthly, string, string, error) {
	if s.src == nil || !req.known || !lookup.LiveTrackable(req.category) {
		return nil, "", OutcomeSkipped, nil
	}

	obs, err := guard(func() ([]series.Observation, error) {
		return s.src.FetchLive(ctx, req.Region, req.From, req.To)
	})
	if err != nil {
		if ferr := fatal(ctx, err); ferr != nil {
			return nil, "", OutcomeError, ferr
		}
		s.log.Warn().Err(err).Str("source", s.src.Name()).Str("region", req.Region).Msg("live fetch failed")
		return nil, "", OutcomeError, nil
	}

	m := series.Normalize(obs)
	outcome := classify(m)
	if outcome != OutcomeUsed {
		res.Warnings = append(res.Warnings, fmt.Sprintf(warningLiveUnusable, s.src.Name()))
	}
	return m, "live: " + s.src.Name(), outcome, nil
}

type localStage struct {
	src LocalSource
	log zerolog.Logger
}

func (localStage) name() Stage { return StageLocal }

// attempt tries each region candidate key until one yields a usable series.
func (s localStage) attempt(ctx context.Context, req request, res *Resolution) (series.Monthly, string, string, error) {
	outcome := OutcomeSkipped
	if s.src != nil && req.known {
		outcome = OutcomeEmpty
		for _, key := range lookup.RegionCandidates(req.Region) {
			if err := ctx.Err(); err != nil {
				return nil, "", OutcomeError, err
			}

			obs, err := guard(func() ([]series.Observation, error) {
				return s.src.FetchLocal(ctx, req.category, key, req.From, req.To)
			})
			if err != nil {
				if ferr := fatal(ctx, err); ferr != nil {
					return nil, "", OutcomeError, ferr
				}
				s.log.Warn().Err(err).Str("region_key", key).Msg("local fetch failed")
				outcome = OutcomeError
				continue
			}

			m := series.Normalize(obs)
			switch classify(m) {
			case OutcomeUsed:
				return m, fmt.Sprintf(provenanceLocal, key), OutcomeUsed, nil
			case OutcomeUnusable:
				outcome = OutcomeUnusable
			}
		}
	}

	res.Warnings = append(res.Warnings, WarningNoData)
	return nil, "", outcome, nil
}

type syntheticStage struct {
	src SyntheticSource
}

func (syntheticStage) name() Stage { return StageSynthetic }

func (s syntheticStage) attempt(_ context.Context, req request, _ *Resolution) (series.Monthly, string, string, error) {
	if s.src == nil {
		return nil, "", OutcomeSkipped, fmt.Errorf("%w: no synthetic source", ErrConfiguration)
	}
	m := series.Normalize(s.src.Generate(req.From, req.To, syntheticPoints, syntheticStart))
	return m, ProvenanceSynthetic, classify(m), nil
}
