// Package qualify reads the raw sheet back, geocodes each business and
// appends the ones near a landmark to the qualified sheet.
package qualify

import (
	"context"
	"time"

	"leadscout/internal/domain"
	"leadscout/internal/events"
	"leadscout/internal/geo"
	"leadscout/internal/store"

	"go.uber.org/zap"
)

// Sink is the qualified sheet. *store.BatchPersister implements it.
type Sink interface {
	EnsureHeader(ctx context.Context) error
	Append(ctx context.Context, rows [][]string) error
}

type Stats struct {
	Rows         int
	Skipped      int // no location
	NotFound     int
	NotQualified int
	Qualified    int
	Elapsed      time.Duration
}

type Pass struct {
	sourceName string
	source     store.Sheet
	sink       Sink
	geocoder   geo.Geocoder
	qualifier  *geo.Qualifier
	hub        *events.Hub
	log        *zap.Logger
}

func New(sourceName string, source store.Sheet, sink Sink, g geo.Geocoder, q *geo.Qualifier, hub *events.Hub, log *zap.Logger) *Pass {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pass{
		sourceName: sourceName,
		source:     source,
		sink:       sink,
		geocoder:   g,
		qualifier:  q,
		hub:        hub,
		log:        log.With(zap.String("component", "qualify")),
	}
}

// Run processes every stored record once. Businesses that are missing a
// location, cannot be geocoded or are out of range are skipped; sink errors
// stop the pass.
func (p *Pass) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var st Stats

	values, err := p.source.ReadAll(ctx)
	if err != nil {
		return st, &store.PersistenceError{Sheet: p.sourceName, Op: "read", Err: err}
	}
	recs := store.DecodeBusinessRows(values)
	st.Rows = len(recs)
	p.log.Info("qualify: records loaded", zap.Int("rows", len(recs)))

	if err := p.sink.EnsureHeader(ctx); err != nil {
		return st, err
	}

	for _, sr := range recs {
		if err := ctx.Err(); err != nil {
			return p.finish(st, start), err
		}
		if err := p.one(ctx, sr, &st); err != nil {
			return p.finish(st, start), err
		}
	}
	return p.finish(st, start), nil
}

func (p *Pass) one(ctx context.Context, sr store.StoredRecord, st *Stats) error {
	rec := sr.Record
	log := p.log.With(zap.Int("row", sr.Row), zap.String("company", rec.CompanyName))

	if rec.Location == "" {
		st.Skipped++
		log.Info("qualify: location missing, skipping")
		return nil
	}

	town := geo.PreprocessAddress(rec.Location)
	res, ok := p.geocoder.Geocode(ctx, town)
	if !ok {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		st.NotFound++
		log.Info("qualify: no coordinates", zap.String("town", town))
		return nil
	}
	log.Debug("qualify: coordinates",
		zap.String("location", rec.Location),
		zap.Float64("lat", res.Point.Lat),
		zap.Float64("lon", res.Point.Lon),
	)

	state := sr.State
	if state == "" {
		state = geo.InferState(rec.Location)
	}
	if state == "" {
		state = res.State
	}

	label, qualified := p.qualifier.Qualify(res.Point, state)
	if !qualified {
		st.NotQualified++
		log.Debug("qualify: not qualified")
		return nil
	}

	q := domain.QualifiedRecord{BusinessRecord: rec, State: state, ProximityQualification: label}
	if err := p.sink.Append(ctx, [][]string{store.QualifiedRow(q)}); err != nil {
		return err
	}
	st.Qualified++
	log.Info("qualify: lead added", zap.String("state", state), zap.String("qualification", label))
	p.hub.Emit(events.QualifyLead, events.Lead{
		CompanyName:   rec.CompanyName,
		Location:      rec.Location,
		Qualification: label,
	})
	return nil
}

func (p *Pass) finish(st Stats, start time.Time) Stats {
	st.Elapsed = time.Since(start)
	p.hub.Emit(events.QualifyFinished, events.Summary{
		Records:   st.Rows,
		Written:   st.Qualified,
		Failed:    st.NotFound,
		Skipped:   st.Skipped + st.NotQualified,
		ElapsedMS: int(st.Elapsed.Milliseconds()),
	})
	p.log.Info("qualify: pass finished",
		zap.Int("rows", st.Rows),
		zap.Int("qualified", st.Qualified),
		zap.Int("not_found", st.NotFound),
		zap.Int("not_qualified", st.NotQualified),
		zap.Int("skipped", st.Skipped),
	)
	return st
}
