package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	connected bool

	calls []string
	args  []string
}

func (f *fakeExec) isConnected() bool { return f.connected }
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.connected = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.connected = false
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error {
	f.calls = append(f.calls, "status")
	return nil
}
func (f *fakeExec) Sync(ctx context.Context) error { f.calls = append(f.calls, "sync"); return nil }
func (f *fakeExec) Retry(ctx context.Context) error {
	f.calls = append(f.calls, "retry")
	return nil
}
func (f *fakeExec) Add(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "add")
	f.args = args
	return nil
}
func (f *fakeExec) List(ctx context.Context) error { f.calls = append(f.calls, "list"); return nil }
func (f *fakeExec) Owners(ctx context.Context) error {
	f.calls = append(f.calls, "owners")
	return nil
}
func (f *fakeExec) AddOwner(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "addowner")
	f.args = args
	return nil
}
func (f *fakeExec) RemoveOwner(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "rmowner")
	f.args = args
	return nil
}
func (f *fakeExec) Export(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "export")
	return nil
}
func (f *fakeExec) Import(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "import")
	return nil
}

func TestRunREPL_CommandsAndExit(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"add 1 5.00 credit pocket money",
		"list",
		"sync",
		"status",
		"owners",
		"addowner dad@example.com",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{connected: false}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	wantOrder := []string{"login", "add", "list", "sync", "status", "owners", "addowner"}
	if len(exec.calls) < len(wantOrder) {
		t.Fatalf("few calls: %+v", exec.calls)
	}
	idx := 0
	for _, c := range exec.calls {
		if idx < len(wantOrder) && c == wantOrder[idx] {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Fatalf("commands order mismatch: got %v, want subseq %v", exec.calls, wantOrder)
	}

	if len(exec.args) != 1 || exec.args[0] != "dad@example.com" {
		t.Fatalf("addowner args mismatch: %v", exec.args)
	}
}

func TestRunREPL_EmptyLinesAndQuit(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("\n   \nquit\n")
	exec := &fakeExec{connected: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
