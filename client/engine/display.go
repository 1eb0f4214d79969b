package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/croessner/nbench/definitions"
	errs "github.com/croessner/nbench/errors"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

// Reporter renders round results, either as the human readable report or as
// one JSON object per round.
type Reporter struct {
	out    io.Writer
	format string

	bold  *color.Color
	blue  *color.Color
	red   *color.Color
	faint *color.Color
}

// NewReporter writes to stdout with the format and colour mode of cfg.
func NewReporter(cfg *Config) *Reporter {
	return NewReporterTo(os.Stdout, cfg.Format, UseColor(cfg.ColorMode))
}

func NewReporterTo(w io.Writer, format string, useColor bool) *Reporter {
	r := &Reporter{
		out:    w,
		format: format,
		bold:   color.New(color.Bold),
		blue:   color.New(color.Bold, color.FgBlue),
		red:    color.New(color.FgRed),
		faint:  color.New(color.Faint),
	}

	for _, c := range []*color.Color{r.bold, r.blue, r.red, r.faint} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return r
}

func IsTTY() bool {
	fd := os.Stdout.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// UseColor resolves the --color switch. NO_COLOR always wins in auto mode.
func UseColor(mode string) bool {
	switch strings.ToLower(mode) {
	case definitions.ColorAlways:
		return true
	case definitions.ColorNever:
		return false
	default:
		return os.Getenv("NO_COLOR") == "" && IsTTY()
	}
}

// RoundStart announces a round before its workers are started.
func (r *Reporter) RoundStart(round int, cfg *Config) {
	if r.format == definitions.FormatJSON {
		return
	}

	fmt.Fprintf(r.out, "Round %s: Benchmarking %s for %s connection(s) and %s\n\n",
		r.blue.Sprint(round),
		r.bold.Sprint(cfg.Target),
		r.bold.Sprint(cfg.Connections),
		r.bold.Sprint(cfg.Duration),
	)
}

// Round renders the merged result of one round.
func (r *Reporter) Round(cfg *Config, report RoundReport) error {
	stats, err := report.Result.Stats()
	if err != nil && !errors.Is(err, errs.ErrNoRequestsCompleted) {
		return err
	}

	if r.format == definitions.FormatJSON {
		return r.writeJSON(cfg, report, stats, err == nil)
	}

	if err != nil {
		fmt.Fprintln(r.out, "No requests completed successfully")
	} else {
		r.writeLatencies(stats)
		r.writeRequests(stats)
		r.writeTransfer(stats)
		r.writeStatusCodes(stats)
	}

	r.writeErrors(stats)

	if report.CPUKnown {
		fmt.Fprintf(r.out, "\n%s %.1f%%\n", r.faint.Sprint("Client CPU:"), report.ClientCPU)
	}

	fmt.Fprintln(r.out)

	return nil
}

func (r *Reporter) writeLatencies(s Stats) {
	const col = 9

	cells := func(c *color.Color, values ...string) string {
		var sb strings.Builder

		for _, v := range values {
			cell := runewidth.FillRight(v, col)
			if c != nil {
				cell = c.Sprint(cell)
			}

			sb.WriteString(cell)
		}

		return sb.String()
	}

	fmt.Fprintf(r.out, "%s %s\n",
		runewidth.FillRight("Thread Stats", 13),
		cells(r.bold, "Avg", "Stdev", "Min", "Max"),
	)
	fmt.Fprintf(r.out, "%s %s\n",
		runewidth.FillRight("Latency", 13),
		cells(nil, formatMs(s.Avg), formatMs(s.StdDev), formatMs(s.Min), formatMs(s.Max)),
	)
	fmt.Fprintf(r.out, "%s p50=%s p90=%s p99=%s\n\n",
		r.faint.Sprint(runewidth.FillRight("Percentiles", 13)),
		formatMs(s.P50), formatMs(s.P90), formatMs(s.P99),
	)
}

func (r *Reporter) writeRequests(s Stats) {
	fmt.Fprintf(r.out, "Requests: %s Total: %s\n",
		r.blue.Sprint(runewidth.FillRight(fmt.Sprintf("%.2f Req/s", s.RequestsPerSec), 15)),
		fmt.Sprintf("%d Reqs", s.TotalRequests),
	)
}

func (r *Reporter) writeTransfer(s Stats) {
	fmt.Fprintf(r.out, "Transfer: %s Total: %s\n",
		r.blue.Sprint(runewidth.FillRight(humanize.Bytes(uint64(s.TransferPerSec))+"/s", 15)),
		humanize.Bytes(uint64(s.TotalTransfer)),
	)
}

func (r *Reporter) writeStatusCodes(s Stats) {
	if len(s.StatusCodes) == 0 {
		return
	}

	parts := make([]string, 0, len(s.StatusCodes))

	for _, sc := range s.StatusCodes {
		text := fmt.Sprintf("%d=%d", sc.Code, sc.Count)
		if sc.Code >= 400 {
			text = r.red.Sprint(text)
		}

		parts = append(parts, text)
	}

	fmt.Fprintf(r.out, "Status:   %s\n", strings.Join(parts, " "))
}

func (r *Reporter) writeErrors(s Stats) {
	if len(s.Errors) == 0 {
		return
	}

	fmt.Fprintln(r.out)

	for _, e := range s.Errors {
		fmt.Fprintf(r.out, "%s Errors: %s\n", r.red.Sprint(e.Count), e.Message)
	}
}

type jsonLatency struct {
	AvgMs    float64 `json:"avg_ms"`
	StdDevMs float64 `json:"stdev_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P90Ms    float64 `json:"p90_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

type jsonRound struct {
	Round          int           `json:"round"`
	Target         string        `json:"target"`
	Connections    int           `json:"connections"`
	DurationMs     float64       `json:"duration_ms"`
	Completed      bool          `json:"completed"`
	Requests       int           `json:"requests"`
	TransferBytes  int64         `json:"transfer_bytes"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	TransferPerSec float64       `json:"transfer_per_sec"`
	Latency        *jsonLatency  `json:"latency,omitempty"`
	StatusCodes    []StatusCount `json:"status_codes"`
	Errors         []ErrorCount  `json:"errors"`
	ClientCPU      *float64      `json:"client_cpu_percent,omitempty"`
}

func (r *Reporter) writeJSON(cfg *Config, report RoundReport, s Stats, completed bool) error {
	out := jsonRound{
		Round:          report.Number,
		Target:         cfg.Target,
		Connections:    cfg.Connections,
		DurationMs:     ms(cfg.Duration),
		Completed:      completed,
		Requests:       s.TotalRequests,
		TransferBytes:  s.TotalTransfer,
		RequestsPerSec: s.RequestsPerSec,
		TransferPerSec: s.TransferPerSec,
		StatusCodes:    s.StatusCodes,
		Errors:         s.Errors,
	}

	if report.CPUKnown {
		out.ClientCPU = &report.ClientCPU
	}

	if completed {
		out.Latency = &jsonLatency{
			AvgMs:    ms(s.Avg),
			StdDevMs: ms(s.StdDev),
			MinMs:    ms(s.Min),
			MaxMs:    ms(s.Max),
			P50Ms:    ms(s.P50),
			P90Ms:    ms(s.P90),
			P99Ms:    ms(s.P99),
		}
	}

	return jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(r.out).Encode(out)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func formatMs(d time.Duration) string {
	return fmt.Sprintf("%.2fms", ms(d))
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}

	if x > 1 {
		return 1
	}

	return x
}
