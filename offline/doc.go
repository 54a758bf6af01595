// Package offline keeps a client usable while its services are unreachable.
//
// A Store persists one versioned Record per key, either as JSON files on an
// afero filesystem or as values in Redis. Cache remembers the last good
// payload per service and serves it as a fallback. Queue holds writes that
// could not be delivered and replays them later, guarded by a FileLock that
// companion processes sharing the sync directory also honour.
package offline
