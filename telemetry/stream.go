package telemetry

import (
	"context"
	"time"
	"videogen/customer"
	"videogen/gen"
	"videogen/sink"
	"videogen/title"
)

var liveEventTable = []gen.Choice[string]{
	{Value: EventStart, Weight: 0.30},
	{Value: EventPause, Weight: 0.15},
	{Value: EventResume, Weight: 0.15},
	{Value: EventStop, Weight: 0.25},
	{Value: EventComplete, Weight: 0.15},
}

// streamGen emits live playback events stamped with the wall clock.
type streamGen struct {
	source     *Generator
	eventTypes *gen.Categorical[string]
	now        func() time.Time
}

func NewStreamGen(cfg gen.GeneratorConfig, customers []customer.Customer, titles []title.Title) (gen.LoadGenerator, error) {
	rng := gen.NewRng(cfg.Seed)
	g, err := NewGenerator(rng, customers, titles, time.Now(),
		WithBufferingDist(gen.NewRandDist(cfg.HeavyTail, rng.Rand)))
	if err != nil {
		return nil, err
	}
	return &streamGen{
		source:     g,
		eventTypes: gen.NewCategorical(liveEventTable, rng.Rand),
		now:        time.Now,
	}, nil
}

func (s *streamGen) KafkaTopics() []string {
	return []string{Topic}
}

func (s *streamGen) next() *Event {
	ts := s.now().UTC().Truncate(time.Second)
	e, _ := s.source.event(ts, s.eventTypes.Draw())
	return &e
}

func (s *streamGen) Load(ctx context.Context, outCh chan<- sink.SinkRecord) {
	for {
		record := s.next()
		select {
		case <-ctx.Done():
			return
		case outCh <- record:
		}
	}
}
