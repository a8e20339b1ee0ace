// Package reference builds the in-memory customer, title and campaign set
// that live telemetry is drawn from, and can replay it into a sink.
package reference

import (
	"context"
	"fmt"
	"time"
	"videogen/campaign"
	"videogen/customer"
	"videogen/gen"
	"videogen/sink"
	"videogen/title"
)

var Topics = []string{"customers", "titles", "campaigns"}

type Set struct {
	Customers []customer.Customer
	Titles    []title.Title
	Campaigns []campaign.Campaign
}

func (s *Set) Len() int {
	return len(s.Customers) + len(s.Titles) + len(s.Campaigns)
}

// Build generates a reference set. Each table has its own random stream
// seeded with cfg.Seed, so the set matches a batch run with the same seed
// and reference time.
func Build(cfg gen.GeneratorConfig, now time.Time) (*Set, error) {
	customers, err := customer.NewGenerator(gen.NewRng(cfg.Seed), now).Generate(cfg.NumCustomers)
	if err != nil {
		return nil, fmt.Errorf("generate customers: %w", err)
	}
	titles, err := title.NewGenerator(gen.NewRng(cfg.Seed), now).Generate(cfg.NumTitles)
	if err != nil {
		return nil, fmt.Errorf("generate titles: %w", err)
	}
	campaigns, err := campaign.NewGenerator(gen.NewRng(cfg.Seed), now).Generate(cfg.NumCampaigns)
	if err != nil {
		return nil, fmt.Errorf("generate campaigns: %w", err)
	}
	return &Set{Customers: customers, Titles: titles, Campaigns: campaigns}, nil
}

type referenceGen struct {
	set *Set
}

// NewReferenceGen emits every record of set once and then closes the
// output channel.
func NewReferenceGen(set *Set) gen.LoadGenerator {
	return &referenceGen{set: set}
}

func (g *referenceGen) KafkaTopics() []string {
	return Topics
}

func (g *referenceGen) Load(ctx context.Context, outCh chan<- sink.SinkRecord) {
	defer close(outCh)
	records := make([]sink.SinkRecord, 0, g.set.Len())
	for i := range g.set.Customers {
		records = append(records, &g.set.Customers[i])
	}
	for i := range g.set.Titles {
		records = append(records, &g.set.Titles[i])
	}
	for i := range g.set.Campaigns {
		records = append(records, &g.set.Campaigns[i])
	}
	for _, r := range records {
		select {
		case <-ctx.Done():
			return
		case outCh <- r:
		}
	}
}
