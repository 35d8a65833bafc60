package migrate_test

import (
	"testing"
	"testing/fstest"

	"github.com/msomdec/client-registry/internal/repository/migrate"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		want    []int
		wantErr bool
	}{
		{
			name: "ordered by version",
			fsys: fstest.MapFS{
				"010_later.sql": {Data: []byte("SELECT 1;")},
				"002_early.sql": {Data: []byte("SELECT 1;")},
			},
			want: []int{2, 10},
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"001_a.sql":  {Data: []byte("SELECT 1;")},
				"0001_b.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: true,
		},
		{
			name:    "missing version prefix",
			fsys:    fstest.MapFS{"users.sql": {Data: []byte("SELECT 1;")}},
			wantErr: true,
		},
		{
			name:    "empty file",
			fsys:    fstest.MapFS{"001_empty.sql": {Data: []byte("  \n")}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := migrate.Load(tt.fsys)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d migrations, got %d", len(tt.want), len(got))
			}
			for i, v := range tt.want {
				if got[i].Version != v {
					t.Fatalf("migration %d: expected version %d, got %d", i, v, got[i].Version)
				}
			}
		})
	}
}

func TestPending(t *testing.T) {
	all := []migrate.Migration{{Version: 1}, {Version: 2}, {Version: 3}}

	got := migrate.Pending(all, map[int]bool{1: true, 3: true})
	if len(got) != 1 || got[0].Version != 2 {
		t.Fatalf("expected only version 2 pending, got %+v", got)
	}
	if got := migrate.Pending(all, nil); len(got) != 3 {
		t.Fatalf("expected all pending on a fresh database, got %d", len(got))
	}
}
