// Command liveroom is a terminal client for a live room: it follows the
// event feed, shows the open round and lets the player vote, answer group
// lines and ask the play assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/chzyer/readline"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/HackGT12/app-view-sub000/internal/assistant"
	"github.com/HackGT12/app-view-sub000/internal/config"
	"github.com/HackGT12/app-view-sub000/internal/logger"
	"github.com/HackGT12/app-view-sub000/internal/models"
	"github.com/HackGT12/app-view-sub000/internal/round"
	"github.com/HackGT12/app-view-sub000/internal/session"
)

type roomConfig struct {
	APIURL        string        `env:"API_URL" envDefault:"http://localhost:8080"`
	FeedURL       string        `env:"FEED_URL" envDefault:"ws://localhost:8080/ws/feed"`
	Token         string        `env:"TOKEN"`
	TeamID        string        `env:"TEAM_ID"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	AskTimeout    time.Duration `env:"ASK_TIMEOUT" envDefault:"30s"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"warn"`
	HistoryFile   string        `env:"HISTORY_FILE"`
}

const help = `commands:
  vote <option id or number>        vote on the open round
  respond <line id> <over|under> <value>
  board                             refresh the team leaderboard
  stats                             show your win rate, charity and streak
  ask <question>                    ask the assistant about recent plays
  status                            show score, clock and round state
  quit`

func main() {
	_ = godotenv.Load()

	var cfg roomConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "LIVEROOM_"}); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logger.New(config.LogConfig{Level: cfg.LogLevel, Encoding: "console"}, "liveroom")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		log.Fatal("readline init failed", zap.Error(err))
	}
	closeRL := sync.OnceFunc(func() { _ = rl.Close() })
	defer closeRL()
	out := rl.Stdout()

	client := session.NewClient(cfg.APIURL, cfg.Token, cfg.HTTPTimeout)
	ask := &assistant.Assistant{Timeout: cfg.AskTimeout, Logger: log}
	if cfg.OpenAIKey != "" {
		ask.Completer = assistant.NewOpenAICompleter(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}

	view := &roundView{out: out}
	room := session.NewRoom(client, session.Options{
		FeedURL:   cfg.FeedURL,
		TeamID:    cfg.TeamID,
		Countdown: round.DefaultCountdownPolicy(),
		Logger:    log,
		OnChange:  view.update,
		OnLeaderboard: func(board []models.Member) {
			printBoard(out, board)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	go func() {
		err := room.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "feed closed:", err)
		} else {
			fmt.Fprintln(out, "feed closed")
		}
		closeRL()
	}()
	defer room.Close()

	fmt.Fprintln(out, help)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return
			}
			continue
		}
		if errors.Is(err, io.EOF) || err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if quit := runCommand(ctx, out, room, client, ask, cfg.TeamID, fields); quit {
			return
		}
	}
}

func runCommand(ctx context.Context, out io.Writer, room *session.Room, client *session.Client, ask *assistant.Assistant, teamID string, fields []string) bool {
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(out, help)
	case "status":
		printStatus(out, room.Snapshot())
	case "vote":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: vote <option>")
			return false
		}
		optionID := resolveOption(room.Snapshot().Round.Round, fields[1])
		if err := room.Vote(ctx, optionID); err != nil {
			fmt.Fprintln(out, "vote failed:", err)
			return false
		}
		fmt.Fprintln(out, "vote counted")
	case "respond":
		if len(fields) != 4 || teamID == "" {
			fmt.Fprintln(out, "usage: respond <line id> <over|under> <value> (needs LIVEROOM_TEAM_ID)")
			return false
		}
		v, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			fmt.Fprintln(out, "value must be a number")
			return false
		}
		dir := models.Direction(strings.ToLower(fields[2]))
		if err := client.SubmitResponse(ctx, teamID, fields[1], dir, v); err != nil {
			fmt.Fprintln(out, "response failed:", err)
			return false
		}
		fmt.Fprintln(out, "response recorded")
	case "board":
		board, err := room.RefreshLeaderboard(ctx)
		if err != nil {
			fmt.Fprintln(out, "leaderboard failed:", err)
			return false
		}
		if board == nil {
			fmt.Fprintln(out, "no team set")
		}
	case "stats":
		st, err := client.Stats(ctx)
		if err != nil {
			fmt.Fprintln(out, "stats failed:", err)
			return false
		}
		fmt.Fprintf(out, "win rate %d%% (%d/%d)  charity $%s  streak %d day(s)\n",
			st.WinRate, st.Wins, st.Considered, st.CharityRaised.StringFixed(2), st.DailyStreak)
	case "ask":
		q := strings.TrimSpace(strings.Join(fields[1:], " "))
		if q == "" {
			fmt.Fprintln(out, "usage: ask <question>")
			return false
		}
		answer, err := ask.Ask(ctx, q, room.Plays())
		if err != nil {
			fmt.Fprintln(out, "assistant:", err)
			return false
		}
		fmt.Fprintln(out, answer)
	default:
		fmt.Fprintf(out, "unknown command %q, try help\n", fields[0])
	}
	return false
}

// resolveOption accepts an option id or its 1-based position.
func resolveOption(r *models.Round, arg string) string {
	if r == nil {
		return arg
	}
	if r.HasOption(arg) {
		return arg
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(r.Options) {
		return r.Options[n-1].ID
	}
	return arg
}

// roundView prints a round once when it becomes selectable and once when
// it closes.
type roundView struct {
	out io.Writer

	mu     sync.Mutex
	shown  string
	closed string
	status string
}

func (v *roundView) update(s session.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if st := string(s.Status); st != v.status {
		v.status = st
		fmt.Fprintln(v.out, "feed:", st)
	}
	r := s.Round.Round
	if r == nil {
		return
	}
	if s.Round.Phase == round.AwaitingSelection && r.ID != v.shown {
		v.shown = r.ID
		printRound(v.out, r)
	}
	if s.Round.Closed && r.ID != v.closed {
		v.closed = r.ID
		fmt.Fprintln(v.out, "round closed")
	}
}

func printRound(out io.Writer, r *models.Round) {
	fmt.Fprintf(out, "\n%s  (sponsored by %s, $%s to charity)\n", r.Question, r.Sponsor, r.DisplayDonation().StringFixed(2))
	if r.ActionDescription != "" {
		fmt.Fprintln(out, r.ActionDescription)
	}
	for i, o := range r.Options {
		fmt.Fprintf(out, "  %d) %s [%s]\n", i+1, o.Text, o.ID)
	}
}

func printStatus(out io.Writer, s session.Snapshot) {
	fmt.Fprintf(out, "feed %s  score %g-%g  clock %s\n", s.Status, s.HomeScore, s.AwayScore, s.Clock)
	if s.Description != "" {
		fmt.Fprintln(out, s.Description)
	}
	st := s.Round
	fmt.Fprintf(out, "round phase %s", st.Phase)
	if st.Round != nil {
		fmt.Fprintf(out, "  %q", st.Round.Question)
		if st.Voted {
			fmt.Fprintf(out, "  voted %s", st.VotedOption)
		}
	}
	fmt.Fprintf(out, "  plays %d\n", s.Plays)
}

func printBoard(out io.Writer, board []models.Member) {
	for i, m := range board {
		owner := ""
		if m.IsOwner {
			owner = " (owner)"
		}
		fmt.Fprintf(out, "%2d. %-20s %6.1f%s\n", i+1, m.Name, m.Score, owner)
	}
}
