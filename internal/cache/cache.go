// Package cache provee un cache clave/valor chico con TTL.
//
// Lo usan los providers OAuth 1.0a para retener el request-token secret
// entre el redirect y el callback, y el firmado de state para replay
// protection. Backends: memoria (go-cache) y Redis.
package cache

import "time"

type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
