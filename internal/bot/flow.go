package bot

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/logger"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/history"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/session"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/pkg/metrics"
	"log/slog"
)

const (
	personFileName  = "person.jpg"
	garmentFileName = "garment.jpg"
)

// Replier abstracts outbound messages so the flow stays independent of the
// transport. The telegram adapter implements it on top of tele.Context.
type Replier interface {
	// Text sends a plain text message.
	Text(msg string) error
	// PromptCancel sends text with a cancel control attached.
	PromptCancel(msg string) error
	// Photo sends a local image file.
	Photo(path string) error
}

// Downloader fetches a remote image into a local file.
type Downloader interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Runner performs one try-on inference for a collected photo pair.
type Runner interface {
	TryOn(ctx context.Context, personPath, garmentPath, destDir string) (string, error)
}

// Flow drives the two-photo try-on conversation. All state transitions for
// one user happen under that user's busy mark, so a photo update never races
// a concurrent update for the same user.
type Flow struct {
	store    session.Store
	dl       Downloader
	runner   Runner
	recorder history.Recorder
	workDir  string
}

// NewFlow wires the conversation engine.
func NewFlow(store session.Store, dl Downloader, runner Runner, recorder history.Recorder, workDir string) *Flow {
	if recorder == nil {
		recorder = history.NopRecorder{}
	}
	return &Flow{
		store:    store,
		dl:       dl,
		runner:   runner,
		recorder: recorder,
		workDir:  workDir,
	}
}

// HandlePhoto processes one incoming photo. photoURL must be a fetchable
// URL of the largest photo size. Delivery errors of replies are returned;
// flow errors are reported to the user and swallowed so the router does not
// double-report them.
func (f *Flow) HandlePhoto(ctx context.Context, userID, chatID int64, photoURL string, r Replier) error {
	if !f.store.TryAcquire(userID) {
		// Another update for this user is in flight; nothing is mutated.
		logger.Info(ctx, "service.flow", "photo.busy",
			slog.String("status", "busy"),
			slog.Int64("user_id", userID),
		)
		return r.Text(MsgProcessing)
	}
	defer f.store.Release(userID)

	phase := f.store.Phase(userID)
	metrics.PhotosReceived.WithLabelValues(string(phase)).Inc()

	switch phase {
	case session.PhaseIdle:
		return f.startCycle(ctx, userID, chatID, photoURL, r)
	case session.PhaseAwaitingGarment:
		return f.finishCycle(ctx, userID, chatID, photoURL, r)
	default:
		// PhaseProcessing is normally shielded by the busy mark; this is
		// the fallback for a session left in that phase.
		return r.Text(MsgProcessing)
	}
}

// startCycle stores the person photo and opens a new session.
func (f *Flow) startCycle(ctx context.Context, userID, chatID int64, photoURL string, r Replier) error {
	cycleID := uuid.NewString()
	ctx = logger.WithCycleID(ctx, cycleID)

	dir := filepath.Join(f.workDir, cycleID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error(ctx, "service.flow", "cycle.workdir.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return r.Text(MsgError)
	}

	personPath := filepath.Join(dir, personFileName)
	if err := f.dl.Fetch(ctx, photoURL, personPath); err != nil {
		_ = os.RemoveAll(dir)
		logger.Error(ctx, "service.flow", "cycle.person.fail",
			slog.String("status", "fail"),
			slog.String("stage", "download_person"),
			slog.String("err", err.Error()),
		)
		metrics.InferenceFailures.WithLabelValues("download_person").Inc()
		return r.Text(MsgError)
	}

	f.store.Put(session.Session{
		UserID:     userID,
		CycleID:    cycleID,
		Dir:        dir,
		PersonPath: personPath,
		Phase:      session.PhaseAwaitingGarment,
		StartedAt:  time.Now(),
	})
	metrics.ActiveSessions.Inc()

	logger.Info(ctx, "service.flow", "cycle.started",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Int64("chat_id", chatID),
	)
	return r.PromptCancel(MsgGarmentPrompt)
}

// finishCycle stores the garment photo, runs inference, delivers the result,
// and unconditionally tears the session down.
func (f *Flow) finishCycle(ctx context.Context, userID, chatID int64, photoURL string, r Replier) error {
	sess, ok := f.store.Get(userID)
	if !ok {
		// Session vanished between Phase and Get; restart from scratch.
		return r.Text(MsgRedirectIdle)
	}
	ctx = logger.WithCycleID(ctx, sess.CycleID)

	outcome := history.OutcomeFail
	failReason := ""
	start := time.Now()
	defer func() {
		f.teardown(ctx, sess, chatID, outcome, failReason, time.Since(start))
	}()

	garmentPath := filepath.Join(sess.Dir, garmentFileName)
	if err := f.dl.Fetch(ctx, photoURL, garmentPath); err != nil {
		failReason = "download_garment"
		metrics.InferenceFailures.WithLabelValues(failReason).Inc()
		logger.Error(ctx, "service.flow", "cycle.garment.fail",
			slog.String("status", "fail"),
			slog.String("stage", failReason),
			slog.String("err", err.Error()),
		)
		return r.Text(MsgError)
	}

	sess.GarmentPath = garmentPath
	sess.Phase = session.PhaseProcessing
	f.store.Put(sess)

	if err := r.Text(MsgProcessing); err != nil {
		logger.Warn(ctx, "service.flow", "cycle.ack.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}

	resultPath, err := f.runner.TryOn(ctx, sess.PersonPath, garmentPath, sess.Dir)
	if err != nil {
		failReason = "inference"
		metrics.InferenceFailures.WithLabelValues(failReason).Inc()
		logger.Error(ctx, "service.flow", "cycle.inference.fail",
			slog.String("status", "fail"),
			slog.String("stage", failReason),
			slog.String("err", err.Error()),
		)
		return r.Text(MsgError)
	}

	if err := r.Photo(resultPath); err != nil {
		failReason = "deliver_result"
		logger.Error(ctx, "service.flow", "cycle.deliver.fail",
			slog.String("status", "fail"),
			slog.String("stage", failReason),
			slog.String("err", err.Error()),
		)
		return err
	}

	outcome = history.OutcomeOK
	return r.Text(MsgResult)
}

// HandleText responds to non-command text with a phase-appropriate redirect.
func (f *Flow) HandleText(ctx context.Context, userID int64, r Replier) error {
	switch f.store.Phase(userID) {
	case session.PhaseAwaitingGarment:
		return r.PromptCancel(MsgGarmentPrompt)
	case session.PhaseProcessing:
		return r.Text(MsgProcessing)
	default:
		return r.Text(MsgRedirectIdle)
	}
}

// Start resets any active session and greets the user. It takes the same
// busy mark as photo handling, so a /start during inference cannot tear the
// session down underneath the running cycle.
func (f *Flow) Start(ctx context.Context, userID, chatID int64, r Replier) error {
	if !f.store.TryAcquire(userID) {
		return r.Text(MsgProcessing)
	}
	defer f.store.Release(userID)

	if sess, ok := f.store.Get(userID); ok {
		f.teardown(logger.WithCycleID(ctx, sess.CycleID), sess, chatID, history.OutcomeCancelled, "restart", time.Since(sess.StartedAt))
	}
	logger.Info(ctx, "service.flow", "cycle.welcome",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
	)
	return r.Text(MsgWelcome)
}

// Cancel aborts the active session, if any. Like Start it runs under the
// busy mark; a cancel arriving mid-inference gets the processing reply and
// the running cycle finishes on its own terms.
func (f *Flow) Cancel(ctx context.Context, userID, chatID int64, r Replier) error {
	if !f.store.TryAcquire(userID) {
		return r.Text(MsgProcessing)
	}
	defer f.store.Release(userID)

	sess, ok := f.store.Get(userID)
	if !ok {
		return r.Text(MsgNothingToCancel)
	}
	f.teardown(logger.WithCycleID(ctx, sess.CycleID), sess, chatID, history.OutcomeCancelled, "user_cancel", time.Since(sess.StartedAt))
	return r.Text(MsgCanceled)
}

// teardown removes the session, deletes the cycle directory with all
// images, records history, and updates metrics. It runs for every cycle
// ending, successful or not.
func (f *Flow) teardown(ctx context.Context, sess session.Session, chatID int64, outcome, failReason string, took time.Duration) {
	f.store.Delete(sess.UserID)
	metrics.ActiveSessions.Dec()

	if sess.Dir != "" {
		if err := os.RemoveAll(sess.Dir); err != nil {
			logger.Warn(ctx, "service.flow", "cycle.cleanup.fail",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}

	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDuration.WithLabelValues(outcome).Observe(took.Seconds())

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = f.recorder.Record(recCtx, history.Cycle{
		CycleID:    sess.CycleID,
		UserID:     sess.UserID,
		ChatID:     chatID,
		Outcome:    outcome,
		FailReason: failReason,
		DurationMS: took.Milliseconds(),
		StartedAt:  sess.StartedAt.UTC(),
		FinishedAt: time.Now().UTC(),
	})

	logger.Info(ctx, "service.flow", "cycle.finished",
		slog.String("status", statusForOutcome(outcome)),
		slog.String("outcome", outcome),
		slog.Int64("user_id", sess.UserID),
		slog.Int64("duration_ms", took.Milliseconds()),
	)
}

func statusForOutcome(outcome string) string {
	switch outcome {
	case history.OutcomeOK:
		return "ok"
	case history.OutcomeCancelled:
		return "cancelled"
	default:
		return "fail"
	}
}
