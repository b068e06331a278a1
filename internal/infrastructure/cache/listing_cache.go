// Package cache guarda en Redis las lecturas de listados (productos, secciones, estantes)
// bajo claves versionadas: cada commit del ledger incrementa la versión y deja las claves
// anteriores huérfanas hasta que expiran por TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const versionKey = "ledger:listing:version"

// ListingCache caché versionada. Un *ListingCache nil o sin cliente llama siempre al loader.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListingCache construye la caché sobre un cliente Redis.
func NewListingCache(client *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{client: client, ttl: ttl}
}

// Version devuelve la versión vigente, inicializándola si falta.
func (c *ListingCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX: dos lectores concurrentes no pisan un Bump intermedio.
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, fmt.Errorf("cache version: %w", err)
		}
		return c.client.Get(ctx, versionKey).Int64()
	}
	if err != nil {
		return 0, fmt.Errorf("cache version: %w", err)
	}
	return ver, nil
}

// BuildKey compone la clave con la versión vigente.
func (c *ListingCache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON carga dest desde la clave o lo puebla con loader. Con la caché desactivada
// el valor del loader pasa igualmente por JSON para que el llamador vea la misma forma.
func (c *ListingCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader requerido")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader, nil)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(payload, dest); err == nil {
			return nil
		}
		// Formato viejo o corrupto: recalcular.
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("cache get: %w", err)
	}
	return loadInto(ctx, dest, loader, func(raw []byte) error {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return fmt.Errorf("cache set: %w", err)
		}
		return nil
	})
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error), store func([]byte) error) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if store != nil {
		if err := store(raw); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalida todos los listados incrementando la versión global.
func (c *ListingCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("cache bump: %w", err)
	}
	return nil
}
