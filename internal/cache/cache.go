// Package cache provee un KV de bytes con TTL y soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// La capa de sesión se construye encima de esta abstracción.
package cache

import "time"

// Cache define las operaciones mínimas que necesita la capa de sesión.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
