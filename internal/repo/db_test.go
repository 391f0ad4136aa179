package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/avolkov/tg-mirror/internal/domain"
)

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "does-not-exist", "mirror.db"))
	if err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestOpenSQLite_AndMigrate(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// All four tables must exist afterwards.
	ctx := context.Background()
	if _, err := CreateChat(ctx, db, -1, nil, nil, domain.ChatTypeGroup, nil, true, false); err != nil {
		t.Fatalf("chats table: %v", err)
	}
	if _, err := CreateChat(ctx, db, -2, nil, nil, domain.ChatTypeGroup, nil, false, true); err != nil {
		t.Fatalf("chats table: %v", err)
	}
	if _, err := CreateUser(ctx, db, 1, nil, nil, nil, false, false); err != nil {
		t.Fatalf("users table: %v", err)
	}
	if _, err := CreateMessage(ctx, db, CreateMessageParams{TelegramID: 1, ChatID: -1}); err != nil {
		t.Fatalf("messages table: %v", err)
	}
	if _, err := CreateMirror(ctx, db, CreateMirrorParams{SourceChatID: -1, TargetChatID: -2}); err != nil {
		t.Fatalf("mirrors table: %v", err)
	}
}

func TestOpenSQLite_RelativePathInCwd(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	db, err := OpenSQLite("mirror.db")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
