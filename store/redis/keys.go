package redis

import "fmt"

// Redis key naming conventions for autowebsites data.
// All keys are prefixed with "autowebsites:" to avoid collisions.

const keyPrefix = "autowebsites:"

// ── Run keys ──

// runKey returns the key for a run entity: autowebsites:run:{id}
func runKey(id string) string { return keyPrefix + "run:" + id }

// runsByTimeKey is the Sorted Set indexing run IDs by creation time.
const runsByTimeKey = keyPrefix + "runs_by_time"

// ── Quota keys ──

// quotaKey returns the counter key for a kind and day: autowebsites:quota:{kind}:{day}
func quotaKey(kind, day string) string {
	return fmt.Sprintf("%squota:%s:%s", keyPrefix, kind, day)
}

// ── Lock keys ──

// lockKey returns the key for a named lock: autowebsites:lock:{name}
func lockKey(name string) string { return keyPrefix + "lock:" + name }

// ── Cluster keys ──

// instanceKey returns the key for an instance entity: autowebsites:instance:{id}
func instanceKey(id string) string { return keyPrefix + "instance:" + id }

// instanceIDsKey is the Set tracking all instance IDs for enumeration.
const instanceIDsKey = keyPrefix + "instance_ids"
