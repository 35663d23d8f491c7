package provider

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/geo"
	"github.com/sells-group/intake-cli/internal/model"
)

// DefaultLimit is the number of providers returned when none is requested.
const DefaultLimit = 3

// Matcher finds the providers nearest to a point.
type Matcher struct {
	open  StoreOpener
	limit int
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithDefaultLimit sets the limit used when Match is called with limit <= 0.
func WithDefaultLimit(n int) MatcherOption {
	return func(m *Matcher) {
		if n > 0 {
			m.limit = n
		}
	}
}

// NewMatcher returns a Matcher that opens a store per call.
func NewMatcher(open StoreOpener, opts ...MatcherOption) *Matcher {
	m := &Matcher{open: open, limit: DefaultLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match ranks every located provider by distance from (lat, lon) and returns
// the nearest limit. When procCode is non-empty, providers with a clean TIN
// carry their negotiated rate (nil when the rate table has no match). Rows
// with unparseable coordinates are skipped. Store failures are returned.
func (m *Matcher) Match(ctx context.Context, lat, lon float64, procCode string, limit int) ([]model.RankedProvider, error) {
	if limit <= 0 {
		limit = m.limit
	}
	code := strings.ToUpper(strings.TrimSpace(procCode))

	st, err := m.open(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "provider: open store")
	}
	defer st.Close() //nolint:errcheck

	rows, err := st.ListProviders(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "provider: load providers")
	}
	zap.L().Info("provider: loaded located providers", zap.Int("count", len(rows)))

	ranked := make([]model.RankedProvider, 0, len(rows))
	for _, r := range rows {
		plat, err := strconv.ParseFloat(strings.TrimSpace(r.Lat), 64)
		if err != nil {
			continue
		}
		plon, err := strconv.ParseFloat(strings.TrimSpace(r.Lon), 64)
		if err != nil {
			continue
		}

		rp := model.RankedProvider{
			ProviderRecord: model.ProviderRecord{
				PrimaryKey:   r.PrimaryKey,
				DisplayName:  r.DisplayName,
				TIN:          r.TIN,
				CleanTIN:     CleanTIN(r.TIN),
				State:        r.State,
				Status:       r.Status,
				ProviderType: r.ProviderType,
				Network:      r.Network,
				City:         r.City,
				Latitude:     plat,
				Longitude:    plon,
				Email:        r.Email,
				Fax:          r.Fax,
				Phone:        r.Phone,
				Website:      r.Website,
			},
			DistanceMiles: geo.HaversineMiles(lat, lon, plat, plon),
		}

		if code != "" && rp.CleanTIN != nil {
			rate, err := st.LookupRate(ctx, *rp.CleanTIN, code)
			if err != nil {
				zap.L().Warn("provider: rate lookup failed",
					zap.String("tin", *rp.CleanTIN),
					zap.String("proc_code", code),
					zap.Error(err),
				)
			}
			rp.Rate = rate
		}
		ranked = append(ranked, rp)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMiles < ranked[j].DistanceMiles
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].DistanceMiles = geo.RoundMiles(ranked[i].DistanceMiles)
	}

	zap.L().Info("provider: returning nearest providers", zap.Int("count", len(ranked)))
	return ranked, nil
}
