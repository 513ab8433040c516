// Package kvstore defines the key/value contract the flag caches are built on
// and ships an in-memory implementation.
//
// The Store interface exposes plain keys, sets, hashes and lists, plus three
// operations that must be atomic across every process sharing the store:
//
//   - ExecUnless applies a Mutation only when a guard key is absent. Caches
//     use it to honour their disable gates without a read-then-write race.
//   - DrainList and DrainHash rename a buffer to a temporary key, snapshot it
//     and delete it, so producers appending concurrently never lose writes.
//
// # Usage
//
//	store := kvstore.NewMemoryStore()
//	applied, err := store.ExecUnless(ctx, "impressions.__disabled__",
//	    kvstore.ListPush("impressions", payload))
//
// The redis package provides the production implementation backed by Lua
// scripts; MemoryStore serializes everything behind one mutex and suits tests
// and single-process deployments.
package kvstore
