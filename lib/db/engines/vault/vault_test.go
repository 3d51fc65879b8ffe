package vault

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/vaultkv/lib/db"
	dbtesting "github.com/ValentinKolb/vaultkv/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "VaultDB", func() db.KVDB {
		return NewVaultDB(&Options{
			Path:      filepath.Join(t.TempDir(), "vault.bin"),
			SizeBytes: 64 * 1024 * 1024,
		})
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "VaultDB", func() db.KVDB {
		return NewVaultDB(&Options{
			Path:      filepath.Join(b.TempDir(), "vault.bin"),
			SizeBytes: 512 * 1024 * 1024,
		})
	})
}
