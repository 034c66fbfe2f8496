/*
Package store keeps market snapshots in a local Pebble database.

# Record

Each record is stored under `snap/<seq>` where seq is a zero padded,
monotonically increasing sequence so that key order equals save order.

	| version (1) | created unix ms (8) | blake3 of raw payload (32) | zstd payload |

# Retention

Save prunes the oldest records when more than Options.Retention are kept.
A zero retention keeps everything.
*/
package store
