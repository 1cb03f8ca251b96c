package source

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/epiforecast/epi-pipeline/internal/config"
	"github.com/epiforecast/epi-pipeline/internal/domain"
	"github.com/epiforecast/epi-pipeline/internal/tabular"
)

// simulatedDays is the span of generated history.
const simulatedDays = 730

// simulatedLocations are the synthetic regions the generator serves, unless
// the catalog narrows them.
var simulatedLocations = []string{"Global", "Northland", "Southland"}

// Simulated is a file-less source that synthesizes plausible surveillance
// data: an annual seasonal cycle, a weekday reporting dip, and noise. Output
// is deterministic for a given seed, location, target, and clock, so fixtures
// and demos reproduce exactly.
type Simulated struct {
	spec config.SourceSpec
	seed int64
}

// NewSimulated builds the generator with the registry-wide seed.
func NewSimulated(spec config.SourceSpec, seed int64) *Simulated {
	return &Simulated{spec: spec, seed: seed}
}

func (s *Simulated) Name() string { return s.spec.Name }

func (s *Simulated) Targets() []domain.TargetKind {
	return []domain.TargetKind{domain.TargetCases, domain.TargetDeaths}
}

func (s *Simulated) Locations() []string {
	if len(s.spec.Locations) > 0 {
		return s.spec.Locations
	}
	return simulatedLocations
}

func (s *Simulated) Extract(location string, target domain.TargetKind) (*tabular.Table, error) {
	if err := checkTarget(s, target); err != nil {
		return nil, err
	}
	if !allowed(s.Locations(), location) {
		return nil, &domain.NotFoundError{
			Source: s.Name(), Location: location,
			Available: locationSample(s.Locations()),
		}
	}

	rng := rand.New(rand.NewSource(s.streamSeed(location, target)))

	// Scale differs per target: deaths run two orders of magnitude below cases.
	base, amplitude := 200.0, 150.0
	if target == domain.TargetDeaths {
		base, amplitude = 4.0, 3.0
	}

	end := domain.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -simulatedDays)

	out, err := tabular.New("date", string(target))
	if err != nil {
		return nil, err
	}
	for d := 0; d < simulatedDays; d++ {
		date := start.AddDate(0, 0, d)

		seasonal := amplitude * math.Sin(2*math.Pi*float64(date.YearDay())/365.0)
		weekday := 1.0
		if wd := domain.MondayIndexedWeekday(date); wd >= 5 {
			weekday = 0.8 // weekend reporting dip
		}
		noise := rng.NormFloat64() * amplitude * 0.1

		value := int64(math.Max(0, math.Round((base+seasonal)*weekday+noise)))
		if err := out.Append([]string{
			date.Format("2006-01-02"),
			strconv.FormatInt(value, 10),
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// streamSeed mixes the registry seed with the location and target so each
// stream gets independent but reproducible noise.
func (s *Simulated) streamSeed(location string, target domain.TargetKind) int64 {
	h := fnv.New64a()
	h.Write([]byte(location))
	h.Write([]byte{'|'})
	h.Write([]byte(target))
	return s.seed ^ int64(h.Sum64())
}
