package normalizer

import (
	"bulliondeals/internal/logger"
	"bulliondeals/internal/models"
	"bulliondeals/pkg/utils"
)

// maxLoggedName caps candidate names in log records; a broken page can yield a whole block as a name.
const maxLoggedName = 80

// Observer receives normalization events. *metrics.Recorder implements it.
type Observer interface {
	ObserveReject(dealer, reason string)
	ObserveDefault(dealer, kind string)
}

// Stats summarizes one Process call.
type Stats struct {
	Accepted      int
	Rejected      int
	MetalDefaults int
	TypeDefaults  int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Accepted += other.Accepted
	s.Rejected += other.Rejected
	s.MetalDefaults += other.MetalDefaults
	s.TypeDefaults += other.TypeDefaults
}

// Defaults returns the total number of classification fallbacks.
func (s Stats) Defaults() int {
	return s.MetalDefaults + s.TypeDefaults
}

// Processor handles candidate transformation and validation.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	observer    Observer
	logger      *logger.Logger
	strings     *utils.StringHelper
}

// NewProcessor creates a new processor instance. observer and log may be nil.
func NewProcessor(rules Rules, observer Observer, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}

	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(rules),
		observer:    observer,
		logger:      log,
		strings:     utils.NewStringHelper(),
	}
}

// Process normalizes the candidates of one dealer in order. Rejected
// candidates are dropped and counted; it never fails as a whole.
func (p *Processor) Process(dealer models.DealerInfo, candidates []models.Candidate) ([]models.Product, Stats) {
	var (
		stats    Stats
		products = make([]models.Product, 0, len(candidates))
	)

	dealerID := string(dealer.ID)

	for _, c := range candidates {
		out, err := p.transformer.Transform(dealer, c)
		if err == nil {
			err = p.validator.Validate(&out.Product)
		}

		if err != nil {
			stats.Rejected++
			p.reject(dealerID, c.Name, err)

			continue
		}

		if out.MetalDefaulted {
			stats.MetalDefaults++
			p.defaulted(dealerID, "metal", c.Name, string(out.Product.Metal))
		}

		if out.TypeDefaulted {
			stats.TypeDefaults++
			p.defaulted(dealerID, "type", c.Name, string(out.Product.Type))
		}

		stats.Accepted++

		products = append(products, out.Product)
	}

	return products, stats
}

func (p *Processor) reject(dealer, name string, err error) {
	reason := RejectReason(err)

	p.logger.Debug("candidate rejected",
		"dealer", dealer, "name", p.strings.TruncateString(name, maxLoggedName), "reason", reason, logger.Err(err))

	if p.observer != nil {
		p.observer.ObserveReject(dealer, reason)
	}
}

func (p *Processor) defaulted(dealer, kind, name, value string) {
	p.logger.Debug("classification defaulted",
		"dealer", dealer, "kind", kind, "name", p.strings.TruncateString(name, maxLoggedName), "value", value)

	if p.observer != nil {
		p.observer.ObserveDefault(dealer, kind)
	}
}
