package daemon

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/matheus3301/dchat/internal/backend/local"
	"github.com/matheus3301/dchat/internal/config"
	"github.com/matheus3301/dchat/internal/lock"
	"github.com/matheus3301/dchat/internal/profile"
	"github.com/matheus3301/dchat/internal/rpc"
	"go.uber.org/fx"
)

// testHome points DCHAT_HOME at a short temp dir with the keyring disabled.
func testHome(t *testing.T) {
	t.Helper()
	// Use a short path to avoid macOS 104-char Unix socket limit.
	dir, err := os.MkdirTemp("/tmp", "dchat-d-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv(profile.HomeEnv, dir)

	cfg := config.Default()
	cfg.Backend.UseKeyring = false
	cfg.Backend.OutboxInterval = "50ms"
	if err := config.Save(profile.ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
}

func startApp(t *testing.T, opts ...fx.Option) *fx.App {
	t.Helper()
	app := fx.New(append(opts, fx.NopLogger)...)
	if err := app.Err(); err != nil {
		t.Fatalf("fx.New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return app
}

func stopApp(t *testing.T, app *fx.App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	testHome(t)
	app := startApp(t, Module(Params{Profile: "test"}))

	client, err := rpc.Dial(profile.SocketPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = client.Close() }()
	ctx := context.Background()

	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Profile != "test" || st.Accounts != 0 {
		t.Errorf("status = %+v", st)
	}

	id, err := client.AddAccount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Login(ctx, id, "alice@example.org", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	list, err := client.ChatList(ctx, id, nil)
	if err != nil {
		t.Fatal(err)
	}
	if list.Len != 2 {
		t.Errorf("chat list len = %d, want self and device chats", list.Len)
	}

	info, err := lock.Read(profile.Dir("test"))
	if err != nil || info.PID != os.Getpid() || info.Owner != "dchatd" {
		t.Errorf("lock info = %+v, %v", info, err)
	}

	stopApp(t, app)

	if _, err := os.Stat(profile.SocketPath("test")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("socket left behind: %v", err)
	}
	lk, err := lock.Acquire(profile.Dir("test"), "test")
	if err != nil {
		t.Fatalf("lock not released: %v", err)
	}
	_ = lk.Release()
}

func TestDataSurvivesRestart(t *testing.T) {
	testHome(t)
	ctx := context.Background()

	app := startApp(t, Module(Params{Profile: "test"}))
	client, _ := rpc.Dial(profile.SocketPath("test"))
	id, _ := client.AddAccount(ctx)
	if err := client.Login(ctx, id, "alice@example.org", "secret"); err != nil {
		t.Fatal(err)
	}
	_ = client.Close()
	stopApp(t, app)

	app = startApp(t, Module(Params{Profile: "test"}))
	defer stopApp(t, app)
	client, _ = rpc.Dial(profile.SocketPath("test"))
	defer func() { _ = client.Close() }()

	info, err := client.AccountInfo(ctx, id)
	if err != nil || !info.Configured || info.Email != "alice@example.org" {
		t.Errorf("account after restart = %+v, %v", info, err)
	}
}

func TestSecondInstanceFailsOnLock(t *testing.T) {
	testHome(t)
	app := startApp(t, Module(Params{Profile: "test"}))
	defer stopApp(t, app)

	second := fx.New(Core(Params{Profile: "test", Component: "dchat"}), fx.NopLogger)
	var held *lock.HeldError
	if !errors.As(second.Err(), &held) {
		t.Fatalf("second instance error = %v, want HeldError", second.Err())
	}
	if held.PID != os.Getpid() || held.Owner != "dchatd" {
		t.Errorf("held = %+v", held)
	}
}

func TestCoreWithoutServer(t *testing.T) {
	testHome(t)
	var be *local.Backend
	app := startApp(t, Core(Params{Profile: "embedded", Component: "dchat"}), fx.Populate(&be))
	defer stopApp(t, app)

	ids, err := be.Accounts(context.Background())
	if err != nil || len(ids) != 0 {
		t.Errorf("Accounts = %v, %v", ids, err)
	}
	if _, err := os.Stat(profile.SocketPath("embedded")); !errors.Is(err, os.ErrNotExist) {
		t.Error("core alone opened a socket")
	}
}
