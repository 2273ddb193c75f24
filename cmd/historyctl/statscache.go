package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// statsCache is a small materialized cache over a project's aggregate
// counters (total record count, current GSN), backed by a bbolt file
// alongside the project's history directory. It exists purely as a
// fast path for --index stats lookups; the live facade counters are
// always the source of truth and the cache is rewritten on every
// refresh rather than incrementally maintained.
const statsCacheFile = "stats.bbolt"
const statsBucket = "stats"

var (
	keyTotalCount = []byte("total_count")
	keyCurrentGSN = []byte("current_gsn")
	keyRefreshed  = []byte("refreshed_at")
)

func statsCachePath(dir string) string {
	return filepath.Join(dir, statsCacheFile)
}

func refreshStatsCache(dir string, total int, currentGSN uint64) error {
	db, err := bolt.Open(statsCachePath(dir), 0o644, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(statsBucket))
		if err != nil {
			return err
		}
		var totalBuf, gsnBuf [8]byte
		binary.LittleEndian.PutUint64(totalBuf[:], uint64(total))
		binary.LittleEndian.PutUint64(gsnBuf[:], currentGSN)
		if err := b.Put(keyTotalCount, totalBuf[:]); err != nil {
			return err
		}
		if err := b.Put(keyCurrentGSN, gsnBuf[:]); err != nil {
			return err
		}
		return b.Put(keyRefreshed, []byte(time.Now().Format(time.RFC3339)))
	})
}

func readStatsCache(dir string) (total int, currentGSN uint64, refreshedAt string, ok bool, err error) {
	if _, statErr := os.Stat(statsCachePath(dir)); os.IsNotExist(statErr) {
		return 0, 0, "", false, nil
	}
	db, err := bolt.Open(statsCachePath(dir), 0o644, &bolt.Options{Timeout: 2 * time.Second, ReadOnly: true})
	if err != nil {
		return 0, 0, "", false, err
	}
	defer db.Close()

	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(statsBucket))
		if b == nil {
			return nil
		}
		tc := b.Get(keyTotalCount)
		cg := b.Get(keyCurrentGSN)
		if len(tc) != 8 || len(cg) != 8 {
			return nil
		}
		total = int(binary.LittleEndian.Uint64(tc))
		currentGSN = binary.LittleEndian.Uint64(cg)
		refreshedAt = string(b.Get(keyRefreshed))
		ok = true
		return nil
	})
	return total, currentGSN, refreshedAt, ok, err
}
