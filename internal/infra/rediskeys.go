package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "cintia"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanDatasetReload: инстанс, перечитавший данные, публикует сюда новую версию.
	RedisChanDatasetReload = RedisNamespace + ":dataset:reload-signal"
)

// ViewCacheKey Ключ закэшированного представления для версии данных и выборки
func ViewCacheKey(datasetVersion, selectionKey string) string {
	return fmt.Sprintf("%s:view:%s:%s", RedisNamespace, datasetVersion, selectionKey)
}

// GetWarmupLockKey Генератор ключей для блокировок прогрева (по версии данных)
func GetWarmupLockKey(resource string) string {
	return fmt.Sprintf("%s:lock:warmup:%s", RedisNamespace, resource)
}
