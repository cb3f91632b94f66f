package internal

import (
	"chat-relay/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

type SessionLister func() []domain.SessionInfo

// DebugServer exposes the active sessions over plain HTTP.
type DebugServer struct {
	log      *slog.Logger
	address  string
	sessions SessionLister
}

func NewDebugServer(log *slog.Logger, address string, sessions SessionLister) *DebugServer {
	return &DebugServer{log: log, address: address, sessions: sessions}
}

func (d *DebugServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		RenderSessions(w, d.sessions())
	})
	return mux
}

// Start serves until ctx is cancelled.
func (d *DebugServer) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              d.address,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	d.log.Info("Debug server available", "url", fmt.Sprintf("http://%s/sessions", d.address))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("debug server error: %w", err)
	}
	return nil
}

func RenderSessions(w io.Writer, sessions []domain.SessionInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Session", "Identity", "State", "Buffered", "Started"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, s := range sessions {
		table.Append([]string{
			string(s.ID),
			string(s.Identity),
			s.State.String(),
			strconv.Itoa(s.Buffered) + "/" + strconv.Itoa(s.Capacity),
			s.StartedAt.Format(time.TimeOnly),
		})
	}
	table.Render()
	fmt.Fprintf(w, "\n%d active session(s)\n", len(sessions))
}
