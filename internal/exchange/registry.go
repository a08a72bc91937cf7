package exchange

import (
	"github.com/alanyoungcy/fundybot/internal/domain"
)

// DefaultBaseURLs holds the public REST root of each exchange.
var DefaultBaseURLs = map[domain.SourceID]string{
	domain.SourceBybit:  "https://api.bybit.com",
	domain.SourceMEXC:   "https://contract.mexc.com",
	domain.SourceKuCoin: "https://api-futures.kucoin.com",
	domain.SourceBitget: "https://api.bitget.com",
	domain.SourceHTX:    "https://api.hbdm.com",
	domain.SourceOKX:    "https://www.okx.com",
	domain.SourceGateIO: "https://api.gateio.ws",
	domain.SourceCoinEx: "https://api.coinex.com",
	domain.SourceBingX:  "https://open-api.bingx.com",
}

type constructor func(SourceConfig, Deps) domain.SourceAdapter

var constructors = map[domain.SourceID]constructor{
	domain.SourceBybit:  func(c SourceConfig, d Deps) domain.SourceAdapter { return NewBybit(c, d) },
	domain.SourceMEXC:   func(c SourceConfig, d Deps) domain.SourceAdapter { return NewMEXC(c, d) },
	domain.SourceKuCoin: func(c SourceConfig, d Deps) domain.SourceAdapter { return NewKuCoin(c, d) },
	domain.SourceBitget: func(c SourceConfig, d Deps) domain.SourceAdapter { return NewBitget(c, d) },
	domain.SourceHTX:    func(c SourceConfig, d Deps) domain.SourceAdapter { return NewHTX(c, d) },
	domain.SourceOKX:    func(c SourceConfig, d Deps) domain.SourceAdapter { return NewOKX(c, d) },
	domain.SourceGateIO: func(c SourceConfig, d Deps) domain.SourceAdapter { return NewGateIO(c, d) },
	domain.SourceCoinEx: func(c SourceConfig, d Deps) domain.SourceAdapter { return NewCoinEx(c, d) },
	domain.SourceBingX:  func(c SourceConfig, d Deps) domain.SourceAdapter { return NewBingX(c, d) },
}

// Registry owns one adapter per exchange.
type Registry struct {
	adapters map[domain.SourceID]domain.SourceAdapter
	order    []domain.SourceID
}

// NewRegistry builds every supported adapter. Sources missing from cfgs are
// created disabled.
func NewRegistry(cfgs map[domain.SourceID]SourceConfig, deps Deps) *Registry {
	deps = deps.withDefaults()
	adapters := make([]domain.SourceAdapter, 0, len(domain.AllSources))
	for _, id := range domain.AllSources {
		adapters = append(adapters, constructors[id](cfgs[id], deps))
	}
	return NewRegistryFrom(adapters...)
}

// NewRegistryFrom wraps already built adapters.
func NewRegistryFrom(adapters ...domain.SourceAdapter) *Registry {
	r := &Registry{adapters: make(map[domain.SourceID]domain.SourceAdapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.adapters[a.SourceID()]; dup {
			continue
		}
		r.adapters[a.SourceID()] = a
		r.order = append(r.order, a.SourceID())
	}
	return r
}

// Lookup returns the adapter for id regardless of whether it is enabled.
func (r *Registry) Lookup(id domain.SourceID) (domain.SourceAdapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// Get returns an enabled adapter or a ConfigurationError.
func (r *Registry) Get(id domain.SourceID) (domain.SourceAdapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		return nil, &domain.ConfigurationError{Source: string(id), Err: domain.ErrUnknownSource}
	}
	if !a.Enabled() {
		return nil, &domain.ConfigurationError{Source: string(id), Err: domain.ErrSourceDisabled}
	}
	return a, nil
}

// Sources returns every adapter in registration order.
func (r *Registry) Sources() []domain.SourceAdapter {
	out := make([]domain.SourceAdapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id])
	}
	return out
}

// Enabled returns the ids of enabled adapters in registration order.
func (r *Registry) Enabled() []domain.SourceID {
	out := make([]domain.SourceID, 0, len(r.order))
	for _, id := range r.order {
		if r.adapters[id].Enabled() {
			out = append(out, id)
		}
	}
	return out
}
