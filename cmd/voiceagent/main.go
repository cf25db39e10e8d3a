// Command voiceagent runs the voice-memo workflow behind an HTTP API.
//
// Configuration is taken from the environment (a .env file is loaded when
// present): OPENAI_API_KEY and RESEND_API_KEY for the collaborating
// services, VOICEAGENT_ADDR for the listen address, and VOICEAGENT_DB for
// an optional SQLite path that makes scheduled jobs survive restarts.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "modernc.org/sqlite"

	"github.com/voicegraph/voicegraph/agent"
	"github.com/voicegraph/voicegraph/internal/httpapi"
	"github.com/voicegraph/voicegraph/observability"
	"github.com/voicegraph/voicegraph/observability/slogobs"
	"github.com/voicegraph/voicegraph/scheduler"
	"github.com/voicegraph/voicegraph/services/email"
	"github.com/voicegraph/voicegraph/services/summarization"
	"github.com/voicegraph/voicegraph/services/transcription"
)

const shutdownTimeout = 10 * time.Second

func main() {
	observer := slogobs.New()
	if err := run(observer); err != nil {
		observer.Error(context.Background(), "voiceagent exited", observability.Error(err))
		os.Exit(1)
	}
}

func run(observer observability.Provider) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender := email.NewClient()

	store, closeStore, err := newJobStore(observer)
	if err != nil {
		return err
	}
	defer closeStore()

	sched, err := scheduler.New(sender,
		scheduler.WithStore(store),
		scheduler.WithObserver(observer),
	)
	if err != nil {
		return err
	}
	defer sched.Stop()

	voiceAgent, err := agent.New(agent.Config{
		Transcriber: transcription.NewClient(),
		Summarizer:  summarization.NewClient(),
		Sender:      sender,
		Scheduler:   sched,
		Observer:    observer,
	})
	if err != nil {
		return err
	}

	addr := os.Getenv("VOICEAGENT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:    addr,
		Handler: httpapi.NewHandler(voiceAgent, sched, httpapi.WithObserver(observer)),
	}

	errCh := make(chan error, 1)
	go func() {
		observer.Info(ctx, "voiceagent listening", observability.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	observer.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newJobStore picks the job store backend: SQLite when VOICEAGENT_DB is
// set, otherwise in-memory.
func newJobStore(observer observability.Provider) (scheduler.JobStore, func(), error) {
	path := os.Getenv("VOICEAGENT_DB")
	if path == "" {
		return scheduler.NewMemoryJobStore(), func() {}, nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, err
	}
	store, err := scheduler.NewSQLiteJobStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	observer.Info(context.Background(), "using durable job store", observability.String("db.path", path))
	return store, func() { _ = db.Close() }, nil
}
