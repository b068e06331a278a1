package usecase

import "context"

// ListingCache caché versionada de listados (Redis en producción; nil-safe).
type ListingCache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context) error
}

// cachedFetch lee vía caché; si Redis falla (no el loader) registra el error y carga directo.
func cachedFetch(ctx context.Context, c ListingCache, dest any, load func(context.Context) (any, error), onCacheErr func(error), parts ...string) error {
	if c == nil {
		return fill(ctx, dest, load)
	}
	key, err := c.BuildKey(ctx, parts...)
	if err != nil {
		onCacheErr(err)
		return fill(ctx, dest, load)
	}
	var loaderErr error
	err = c.FetchJSON(ctx, key, dest, func(ctx context.Context) (any, error) {
		v, err := load(ctx)
		loaderErr = err
		return v, err
	})
	if err == nil || loaderErr != nil {
		return err
	}
	onCacheErr(err)
	return fill(ctx, dest, load)
}
