// Package typedkv is a typed transactional key-value database with key watches.
//
// Records are Go values described by a [model.Model]. They are stored through a
// [driver.Driver] (in memory, etcd or Tarantool) and changed inside read-write
// transactions:
//
//	db, _ := typedkv.New(memory.New())
//	_ = typedkv.Define(db, users)
//
//	tx := db.RW(ctx)
//	_ = tx.Insert(User{ID: 1, Name: "test"})
//	_ = tx.Commit()
//
// Every committed transaction is fed to the watch engine. A watch registered with
// [WatchPrimary] or [WatchSecondary] receives one event per matching record change,
// in commit order:
//
//	recv, id, _ := typedkv.WatchSecondary[User](db, "name", "test")
//	for ev := range recv.C {
//		_, user, _ := typedkv.DecodeEvent[User](db, ev)
//		...
//	}
//	_ = db.Unwatch(id)
//
// See the [github.com/tarantool/go-typedkv/watch] package for the delivery rules.
package typedkv
