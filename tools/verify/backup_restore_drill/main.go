// backup_restore_drill fills a scratch store, backs it up with VACUUM INTO,
// restores the copy and checks that every task survived.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/basket/tasklist/internal/persistence"
	"github.com/basket/tasklist/internal/tasks"
)

const taskCount = 40

func main() {
	ctx := context.Background()
	baseDir, err := os.MkdirTemp("", "tasklist-backup-drill-*")
	if err != nil {
		fmt.Printf("mktemp_error=%v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(baseDir)

	dbPath := filepath.Join(baseDir, "tasklist.db")
	backupPath := filepath.Join(baseDir, "backup.db")
	restorePath := filepath.Join(baseDir, "restore.db")

	db, err := persistence.Open(dbPath, nil)
	if err != nil {
		fmt.Printf("open_store_error=%v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := tasks.Open(ctx, tasks.Options{Storage: db})
	if err != nil {
		fmt.Printf("open_tasks_error=%v\n", err)
		os.Exit(1)
	}
	for i := 0; i < taskCount; i++ {
		t, err := store.Add(ctx, fmt.Sprintf("backup-%d", i))
		if err != nil {
			fmt.Printf("add_task_error=%v\n", err)
			os.Exit(1)
		}
		if i%4 == 0 {
			if _, err := store.Delete(ctx, t.ID); err != nil {
				fmt.Printf("delete_task_error=%v\n", err)
				os.Exit(1)
			}
		}
	}
	want := store.Counts()

	backupStart := time.Now().UTC()
	if err := db.Backup(ctx, backupPath); err != nil {
		fmt.Printf("backup_error=%v\n", err)
		os.Exit(1)
	}
	backupEnd := time.Now().UTC()

	backupBytes, err := os.ReadFile(backupPath)
	if err != nil {
		fmt.Printf("read_backup_error=%v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(restorePath, backupBytes, 0o644); err != nil {
		fmt.Printf("write_restore_error=%v\n", err)
		os.Exit(1)
	}
	restoreStart := time.Now().UTC()
	restoreDB, err := persistence.Open(restorePath, nil)
	if err != nil {
		fmt.Printf("open_restore_error=%v\n", err)
		os.Exit(1)
	}
	defer restoreDB.Close()
	restored, err := tasks.Open(ctx, tasks.Options{Storage: restoreDB})
	if err != nil {
		fmt.Printf("open_restored_tasks_error=%v\n", err)
		os.Exit(1)
	}
	restoreEnd := time.Now().UTC()
	got := restored.Counts()

	fmt.Printf("backup_started=%s\n", backupStart.Format(time.RFC3339Nano))
	fmt.Printf("backup_completed=%s\n", backupEnd.Format(time.RFC3339Nano))
	fmt.Printf("restore_started=%s\n", restoreStart.Format(time.RFC3339Nano))
	fmt.Printf("restore_completed=%s\n", restoreEnd.Format(time.RFC3339Nano))
	fmt.Printf("rpo_duration=%s\n", backupEnd.Sub(backupStart))
	fmt.Printf("rto_duration=%s\n", restoreEnd.Sub(restoreStart))
	fmt.Printf("restored_tasks=%d\n", got.Total)
	fmt.Printf("restored_active_tasks=%d\n", got.Active)

	if got != want || got.Total != taskCount {
		fmt.Println("VERDICT FAIL")
		os.Exit(1)
	}
	fmt.Println("VERDICT PASS")
}
