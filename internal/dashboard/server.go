// Package dashboard serves charts over the collected output directories.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/misinfo-collector/internal/session"
)

// DefaultTop is the number of domains and entities charted.
const DefaultTop = 15

// Server renders the dashboard. Data is re-read on every request.
type Server struct {
	RedditDir string
	TweetsDir string
	MetaDir   string
	Top       int
	Logger    *slog.Logger
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.logger().Info("starting dashboard", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	top := s.Top
	if top <= 0 {
		top = DefaultTop
	}
	stats, err := LoadStats(s.RedditDir, s.TweetsDir, s.MetaDir, top)
	if err != nil {
		s.logger().Error("loading dashboard data", "err", err)
		http.Error(w, "failed to load data", http.StatusInternalServerError)
		return
	}

	page := components.NewPage()
	page.PageTitle = "Collection dashboard"
	page.AddCharts(
		pieChart("Records per target", stats.Targets),
		barChart("Keyword hits", "Records", stats.Keywords),
		barChart("Top domains", "Tweets", stats.Domains),
		barChart("Top entities", "Tweets", stats.Entities),
	)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		s.logger().Error("rendering dashboard", "err", err)
	}
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func pieChart(title string, counts []session.Count) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)
	items := make([]opts.PieData, 0, len(counts))
	for _, c := range counts {
		items = append(items, opts.PieData{Name: c.Name, Value: c.Count})
	}
	pie.AddSeries("Records", items)
	return pie
}

func barChart(title, series string, counts []session.Count) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)
	x := make([]string, 0, len(counts))
	y := make([]opts.BarData, 0, len(counts))
	for _, c := range counts {
		x = append(x, c.Name)
		y = append(y, opts.BarData{Value: c.Count})
	}
	bar.SetXAxis(x).AddSeries(series, y)
	return bar
}
