// Package lock provides named mutual-exclusion locks used to serialise period closes.
// RedisLocker coordinates every instance sharing a Redis; LocalLocker only the current process.
package lock
