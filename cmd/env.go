package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/intake-cli/internal/cache"
	"github.com/sells-group/intake-cli/internal/db"
	"github.com/sells-group/intake-cli/internal/intake"
	"github.com/sells-group/intake-cli/internal/ocr"
	"github.com/sells-group/intake-cli/internal/provider"
	"github.com/sells-group/intake-cli/internal/resolve"
	anthropicpkg "github.com/sells-group/intake-cli/pkg/anthropic"
	"github.com/sells-group/intake-cli/pkg/geocode"
	"github.com/sells-group/intake-cli/pkg/staticmap"
)

// resolveEnv holds the clients the resolve/process/geocode/serve commands
// share. Callers should defer env.Close().
type resolveEnv struct {
	Geocoder geocode.Client
	Renderer *staticmap.Renderer // nil when maps are disabled
	Opener   provider.StoreOpener
	Matcher  *provider.Matcher
	Resolver *resolve.Resolver

	pools   map[string]db.Pool
	closers []func()
}

// Close releases pools and database handles.
func (e *resolveEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// pool returns a Postgres pool for url, reusing one already opened for the
// same URL.
func (e *resolveEnv) pool(ctx context.Context, url string) (db.Pool, error) {
	if p, ok := e.pools[url]; ok {
		return p, nil
	}
	p, err := db.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	if e.pools == nil {
		e.pools = map[string]db.Pool{}
	}
	e.pools[url] = p
	e.closers = append(e.closers, p.Close)
	return p, nil
}

// initResolveEnv validates config for mode and builds the resolution stack.
func initResolveEnv(ctx context.Context, mode string) (*resolveEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &resolveEnv{}
	if err := env.init(ctx); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

func (e *resolveEnv) init(ctx context.Context) error {
	kv, err := e.initCache(ctx)
	if err != nil {
		return err
	}

	// Nominatim, Zippopotam and the tile server share one pacing budget.
	limiter := geocode.NewLimiter(cfg.Geocode.MinInterval())

	e.Geocoder, err = initGeocoder(kv, limiter)
	if err != nil {
		return err
	}

	if cfg.StaticMap.Enabled {
		e.Renderer, err = initRenderer(limiter)
		if err != nil {
			return err
		}
	}

	e.Opener, err = e.initStoreOpener(ctx)
	if err != nil {
		return err
	}
	e.Matcher = provider.NewMatcher(e.Opener, provider.WithDefaultLimit(cfg.Providers.Limit))

	opts := []resolve.Option{
		resolve.WithGeocodingEnabled(cfg.Geocode.Enabled),
		resolve.WithProviderLimit(cfg.Providers.Limit),
	}
	if e.Renderer != nil {
		opts = append(opts, resolve.WithMapRenderer(e.Renderer))
	}
	e.Resolver = resolve.New(e.Geocoder, e.Matcher, opts...)

	zap.L().Debug("resolution stack ready",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Bool("geocoding_enabled", cfg.Geocode.Enabled),
		zap.Bool("maps_enabled", e.Renderer != nil),
	)
	return nil
}

func (e *resolveEnv) initCache(ctx context.Context) (cache.Cache, error) {
	ttl := cfg.Cache.TTL()
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemory(ttl), nil
	case "sqlite":
		c, err := cache.NewSQLite(ctx, cfg.CacheDatabaseURL(), ttl)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, func() { _ = c.Close() })
		return c, nil
	case "postgres":
		pool, err := e.pool(ctx, cfg.CacheDatabaseURL())
		if err != nil {
			return nil, eris.Wrap(err, "connect cache database")
		}
		c := cache.NewPostgres(pool, cache.WithTable(cfg.Cache.Table), cache.WithTTLDays(cfg.Cache.TTLDays))
		if err := c.Migrate(ctx); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return cache.NewFile(cfg.Cache.Dir, ".json", cache.WithFileTTL(ttl))
	}
}

func initGeocoder(kv cache.Cache, limiter *rate.Limiter) (geocode.Client, error) {
	opts := []geocode.Option{
		geocode.WithCache(kv),
		geocode.WithLimiter(limiter),
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithZipURL(cfg.Geocode.ZipURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithAPIKey(cfg.Geocode.APIKey),
	}
	if cfg.Geocode.CorrectionsFile != "" {
		corrections, err := geocode.LoadCorrections(cfg.Geocode.CorrectionsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, geocode.WithCorrections(corrections))
	}
	return geocode.NewClient(opts...), nil
}

func initRenderer(limiter *rate.Limiter) (*staticmap.Renderer, error) {
	files, err := cache.NewFile(cfg.StaticMap.Dir, ".png")
	if err != nil {
		return nil, err
	}
	return staticmap.New(files,
		staticmap.WithLimiter(limiter),
		staticmap.WithBaseURL(cfg.StaticMap.BaseURL),
		staticmap.WithAPIKey(cfg.StaticMap.APIKey),
		staticmap.WithDefaults(cfg.StaticMap.Zoom, cfg.StaticMap.Width, cfg.StaticMap.Height),
	), nil
}

func (e *resolveEnv) initStoreOpener(ctx context.Context) (provider.StoreOpener, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := e.pool(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "connect provider database")
		}
		return provider.PostgresOpener(pool, provider.WithSchema(cfg.Store.Schema)), nil
	default:
		return provider.SQLiteOpener(cfg.Store.DatabaseURL), nil
	}
}

// initPipeline adds the OCR and language-model collaborators on top of env.
func initPipeline(env *resolveEnv) (*intake.Pipeline, error) {
	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, err
	}
	completer := anthropicpkg.NewCompleter(
		anthropicpkg.NewClient(cfg.Anthropic.Key),
		anthropicpkg.WithModel(cfg.Anthropic.Model),
		anthropicpkg.WithMaxTokens(cfg.Anthropic.MaxTokens),
	)
	return intake.New(extractor, completer, env.Resolver,
		intake.WithMaxFileBytes(cfg.Intake.MaxFileBytes),
		intake.WithConcurrency(cfg.Intake.Concurrency),
	), nil
}
