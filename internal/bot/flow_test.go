package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/history"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/session"
)

type fakeReplier struct {
	texts   []string
	prompts []string
	photos  []string
	textErr error
}

func (r *fakeReplier) Text(msg string) error {
	r.texts = append(r.texts, msg)
	return r.textErr
}

func (r *fakeReplier) PromptCancel(msg string) error {
	r.prompts = append(r.prompts, msg)
	return nil
}

func (r *fakeReplier) Photo(path string) error {
	r.photos = append(r.photos, path)
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	cycles []history.Cycle
}

func (r *fakeRecorder) Record(_ context.Context, c history.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, c)
	return nil
}

func (r *fakeRecorder) recorded() []history.Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.Cycle(nil), r.cycles...)
}

type fakeDownloader struct {
	content string
	err     error
	fetched []string
}

func (d *fakeDownloader) Fetch(_ context.Context, url, dest string) error {
	d.fetched = append(d.fetched, url)
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(dest, []byte(d.content), 0o644)
}

type fakeRunner struct {
	err   error
	calls int
}

func (r *fakeRunner) TryOn(_ context.Context, personPath, garmentPath, destDir string) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	out := filepath.Join(destDir, "result.png")
	if err := os.WriteFile(out, []byte("result"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func newTestFlow(t *testing.T, dl *fakeDownloader, runner *fakeRunner) (*Flow, session.Store) {
	t.Helper()
	store := session.NewMemoryStore()
	return NewFlow(store, dl, runner, nil, t.TempDir()), store
}

func TestHandlePhotoStartsCycle(t *testing.T) {
	dl := &fakeDownloader{content: "person-bytes"}
	flow, store := newTestFlow(t, dl, &fakeRunner{})
	r := &fakeReplier{}

	if err := flow.HandlePhoto(context.Background(), 42, 100, "https://tg/photo1", r); err != nil {
		t.Fatalf("handle photo: %v", err)
	}

	if len(r.prompts) != 1 || r.prompts[0] != MsgGarmentPrompt {
		t.Fatalf("expected garment prompt, got %+v", r)
	}

	sess, ok := store.Get(42)
	if !ok {
		t.Fatal("expected session after first photo")
	}
	if sess.Phase != session.PhaseAwaitingGarment {
		t.Fatalf("unexpected phase: %s", sess.Phase)
	}
	if _, err := os.Stat(sess.PersonPath); err != nil {
		t.Fatalf("person photo not stored: %v", err)
	}
}

func TestHandlePhotoCompletesCycle(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	runner := &fakeRunner{}
	flow, store := newTestFlow(t, dl, runner)

	r1 := &fakeReplier{}
	if err := flow.HandlePhoto(context.Background(), 1, 10, "https://tg/p1", r1); err != nil {
		t.Fatalf("first photo: %v", err)
	}
	sess, _ := store.Get(1)

	r2 := &fakeReplier{}
	if err := flow.HandlePhoto(context.Background(), 1, 10, "https://tg/p2", r2); err != nil {
		t.Fatalf("second photo: %v", err)
	}

	if runner.calls != 1 {
		t.Fatalf("expected exactly one inference call, got %d", runner.calls)
	}
	// Processing ack, then the result photo, then the confirmation text.
	if len(r2.texts) != 2 || r2.texts[0] != MsgProcessing || r2.texts[1] != MsgResult {
		t.Fatalf("unexpected text sequence: %+v", r2.texts)
	}
	if len(r2.photos) != 1 {
		t.Fatalf("expected result photo, got %+v", r2.photos)
	}

	// Session and working directory must be gone.
	if _, ok := store.Get(1); ok {
		t.Fatal("session should be removed after cycle end")
	}
	if _, err := os.Stat(sess.Dir); !os.IsNotExist(err) {
		t.Fatal("cycle directory should be removed")
	}
}

func TestHandlePhotoInferenceFailureCleansUp(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	runner := &fakeRunner{err: errors.New("model crashed")}
	flow, store := newTestFlow(t, dl, runner)

	_ = flow.HandlePhoto(context.Background(), 2, 20, "https://tg/p1", &fakeReplier{})
	sess, _ := store.Get(2)

	r := &fakeReplier{}
	if err := flow.HandlePhoto(context.Background(), 2, 20, "https://tg/p2", r); err != nil {
		t.Fatalf("second photo: %v", err)
	}

	if len(r.texts) != 2 || r.texts[1] != MsgError {
		t.Fatalf("expected processing ack then error message, got %+v", r.texts)
	}
	if _, ok := store.Get(2); ok {
		t.Fatal("session should be removed after failed cycle")
	}
	if _, err := os.Stat(sess.Dir); !os.IsNotExist(err) {
		t.Fatal("cycle directory should be removed after failure")
	}
}

func TestHandlePhotoGarmentDownloadFailureCleansUp(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	flow, store := newTestFlow(t, dl, &fakeRunner{})

	_ = flow.HandlePhoto(context.Background(), 3, 30, "https://tg/p1", &fakeReplier{})
	sess, _ := store.Get(3)

	dl.err = errors.New("cdn timeout")
	r := &fakeReplier{}
	if err := flow.HandlePhoto(context.Background(), 3, 30, "https://tg/p2", r); err != nil {
		t.Fatalf("second photo: %v", err)
	}

	if len(r.texts) != 1 || r.texts[0] != MsgError {
		t.Fatalf("expected error message, got %+v", r.texts)
	}
	if _, ok := store.Get(3); ok {
		t.Fatal("session should be removed")
	}
	if _, err := os.Stat(sess.Dir); !os.IsNotExist(err) {
		t.Fatal("cycle directory should be removed")
	}
}

func TestHandlePhotoPersonDownloadFailureLeavesIdle(t *testing.T) {
	dl := &fakeDownloader{err: errors.New("cdn down")}
	flow, store := newTestFlow(t, dl, &fakeRunner{})

	r := &fakeReplier{}
	if err := flow.HandlePhoto(context.Background(), 4, 40, "https://tg/p1", r); err != nil {
		t.Fatalf("handle photo: %v", err)
	}

	if len(r.texts) != 1 || r.texts[0] != MsgError {
		t.Fatalf("expected error message, got %+v", r.texts)
	}
	if store.Phase(4) != session.PhaseIdle {
		t.Fatal("user should stay idle after failed start")
	}
}

func TestHandlePhotoBusyUser(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	flow, store := newTestFlow(t, dl, &fakeRunner{})

	if !store.TryAcquire(5) {
		t.Fatal("setup acquire failed")
	}
	defer store.Release(5)

	r := &fakeReplier{}
	if err := flow.HandlePhoto(context.Background(), 5, 50, "https://tg/p1", r); err != nil {
		t.Fatalf("handle photo: %v", err)
	}
	if len(r.texts) != 1 || r.texts[0] != MsgProcessing {
		t.Fatalf("expected busy reply, got %+v", r.texts)
	}
	if len(dl.fetched) != 0 {
		t.Fatal("busy update must not trigger downloads")
	}
	if _, ok := store.Get(5); ok {
		t.Fatal("busy update must not create a session")
	}
}

func TestHandleTextRedirects(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	flow, store := newTestFlow(t, dl, &fakeRunner{})

	r := &fakeReplier{}
	if err := flow.HandleText(context.Background(), 6, r); err != nil {
		t.Fatalf("idle text: %v", err)
	}
	if len(r.texts) != 1 || r.texts[0] != MsgRedirectIdle {
		t.Fatalf("expected idle redirect, got %+v", r.texts)
	}

	store.Put(session.Session{UserID: 6, Phase: session.PhaseAwaitingGarment})
	r = &fakeReplier{}
	if err := flow.HandleText(context.Background(), 6, r); err != nil {
		t.Fatalf("awaiting text: %v", err)
	}
	if len(r.prompts) != 1 || r.prompts[0] != MsgGarmentPrompt {
		t.Fatalf("expected garment reminder, got %+v", r)
	}

	store.Put(session.Session{UserID: 6, Phase: session.PhaseProcessing})
	r = &fakeReplier{}
	if err := flow.HandleText(context.Background(), 6, r); err != nil {
		t.Fatalf("processing text: %v", err)
	}
	if len(r.texts) != 1 || r.texts[0] != MsgProcessing {
		t.Fatalf("expected processing reply, got %+v", r.texts)
	}
}

func TestStartResetsActiveSession(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	flow, store := newTestFlow(t, dl, &fakeRunner{})

	_ = flow.HandlePhoto(context.Background(), 7, 70, "https://tg/p1", &fakeReplier{})
	sess, _ := store.Get(7)

	r := &fakeReplier{}
	if err := flow.Start(context.Background(), 7, 70, r); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(r.texts) != 1 || r.texts[0] != MsgWelcome {
		t.Fatalf("expected welcome, got %+v", r.texts)
	}
	if _, ok := store.Get(7); ok {
		t.Fatal("start should drop the active session")
	}
	if _, err := os.Stat(sess.Dir); !os.IsNotExist(err) {
		t.Fatal("start should remove the cycle directory")
	}
}

func TestCancel(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	flow, store := newTestFlow(t, dl, &fakeRunner{})

	r := &fakeReplier{}
	if err := flow.Cancel(context.Background(), 8, 80, r); err != nil {
		t.Fatalf("cancel without session: %v", err)
	}
	if len(r.texts) != 1 || r.texts[0] != MsgNothingToCancel {
		t.Fatalf("expected nothing-to-cancel, got %+v", r.texts)
	}

	_ = flow.HandlePhoto(context.Background(), 8, 80, "https://tg/p1", &fakeReplier{})

	r = &fakeReplier{}
	if err := flow.Cancel(context.Background(), 8, 80, r); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(r.texts) != 1 || r.texts[0] != MsgCanceled {
		t.Fatalf("expected cancel confirmation, got %+v", r.texts)
	}
	if _, ok := store.Get(8); ok {
		t.Fatal("cancel should drop the session")
	}
}

type blockingRunner struct {
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRunner) TryOn(_ context.Context, _, _, destDir string) (string, error) {
	close(r.entered)
	<-r.release
	out := filepath.Join(destDir, "result.png")
	if err := os.WriteFile(out, []byte("result"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func TestCancelDuringInferenceDoesNotTearDownTwice(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	runner := &blockingRunner{entered: make(chan struct{}), release: make(chan struct{})}
	rec := &fakeRecorder{}
	store := session.NewMemoryStore()
	flow := NewFlow(store, dl, runner, rec, t.TempDir())

	if err := flow.HandlePhoto(context.Background(), 9, 90, "https://tg/p1", &fakeReplier{}); err != nil {
		t.Fatalf("first photo: %v", err)
	}

	done := make(chan error, 1)
	r2 := &fakeReplier{}
	go func() {
		done <- flow.HandlePhoto(context.Background(), 9, 90, "https://tg/p2", r2)
	}()
	<-runner.entered

	rc := &fakeReplier{}
	if err := flow.Cancel(context.Background(), 9, 90, rc); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(rc.texts) != 1 || rc.texts[0] != MsgProcessing {
		t.Fatalf("cancel mid-inference should get the processing reply, got %+v", rc.texts)
	}

	close(runner.release)
	if err := <-done; err != nil {
		t.Fatalf("second photo: %v", err)
	}

	cycles := rec.recorded()
	if len(cycles) != 1 {
		t.Fatalf("expected exactly one recorded cycle, got %d", len(cycles))
	}
	if cycles[0].Outcome != history.OutcomeOK {
		t.Errorf("outcome = %q, want %q", cycles[0].Outcome, history.OutcomeOK)
	}
	if _, ok := store.Get(9); ok {
		t.Fatal("session should be removed once")
	}
}

func TestPhotoAfterCompletedCycleStartsFresh(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	flow, store := newTestFlow(t, dl, &fakeRunner{})

	_ = flow.HandlePhoto(context.Background(), 11, 110, "https://tg/p1", &fakeReplier{})
	first, _ := store.Get(11)
	_ = flow.HandlePhoto(context.Background(), 11, 110, "https://tg/p2", &fakeReplier{})

	r := &fakeReplier{}
	if err := flow.HandlePhoto(context.Background(), 11, 110, "https://tg/p3", r); err != nil {
		t.Fatalf("third photo: %v", err)
	}
	if len(r.prompts) != 1 || r.prompts[0] != MsgGarmentPrompt {
		t.Fatalf("expected a fresh garment prompt, got %+v", r)
	}

	next, ok := store.Get(11)
	if !ok {
		t.Fatal("expected a new session")
	}
	if next.CycleID == first.CycleID || next.Dir == first.Dir {
		t.Fatal("new cycle must not reuse the previous cycle id or directory")
	}
	if next.GarmentPath != "" || next.Phase != session.PhaseAwaitingGarment {
		t.Fatalf("stale state leaked into the new session: %+v", next)
	}
}

func TestCyclesAreIndependentPerUser(t *testing.T) {
	dl := &fakeDownloader{content: "bytes"}
	flow, store := newTestFlow(t, dl, &fakeRunner{})

	_ = flow.HandlePhoto(context.Background(), 100, 1, "https://tg/a", &fakeReplier{})
	_ = flow.HandlePhoto(context.Background(), 101, 2, "https://tg/b", &fakeReplier{})

	a, _ := store.Get(100)
	b, _ := store.Get(101)
	if a.CycleID == b.CycleID {
		t.Fatal("cycles for different users must have distinct ids")
	}
	if a.Dir == b.Dir {
		t.Fatal("cycles for different users must have distinct directories")
	}
}
