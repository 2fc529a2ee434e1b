package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/core/leaderboard"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) } // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	duelSvc   *duel.Service
	questions questionStore
	out       io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Mentora duels administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.AddCommand(cli.migrateCmd(), cli.seedCmd(), cli.sweepCmd(), cli.statsCmd(), cli.leaderboardCmd())
	return root
}

func (cli *commandLine) run(args []string) error {
	return cli.runContext(context.Background(), args)
}

func (cli *commandLine) runContext(ctx context.Context, args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.ExecuteContext(ctx)
}

func (cli *commandLine) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired duel requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.duelSvc.SweepExpiredRequests(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "deleted %d expired request(s)\n", n)
			return nil
		},
	}
}

func (cli *commandLine) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats STUDENT_ID",
		Short: "Print a student's duel stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cli.duelSvc.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "student\t%s\n", st.StudentID)
			fmt.Fprintf(w, "duels\t%d\n", st.TotalDuels)
			fmt.Fprintf(w, "wins/losses/draws\t%d/%d/%d\n", st.Wins, st.Losses, st.Draws)
			fmt.Fprintf(w, "win streak (max)\t%d (%d)\n", st.WinStreak, st.MaxWinStreak)
			fmt.Fprintf(w, "points\t%d\n", st.TotalPointsEarned)
			return w.Flush()
		},
	}
}

func (cli *commandLine) leaderboardCmd() *cobra.Command {
	var (
		limit    int
		watch    bool
		interval time.Duration
		rounds   int
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the top students by wins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			top, err := cli.duelSvc.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printLeaderboard(cli.out, top)
			if !watch {
				return nil
			}

			var tracker leaderboard.Tracker
			tracker.Update(leaderboard.NewSnapshot(top))
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for i := 0; rounds == 0 || i < rounds; i++ {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}
				top, err = cli.duelSvc.Leaderboard(cmd.Context(), limit)
				if err != nil {
					return err
				}
				changes := tracker.Update(leaderboard.NewSnapshot(top))
				if len(changes) == 0 {
					continue
				}
				if isTerminalFunc() {
					fmt.Fprint(cli.out, "\033[H\033[2J") // clear screen
					printLeaderboard(cli.out, top)
				}
				printChanges(cli.out, changes)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of students to show")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling and print what changed")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "polling interval with --watch")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "stop after this many polls (0: until interrupted)")
	return cmd
}

func printLeaderboard(out io.Writer, top []duel.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tstudent\twins\tduels\tpoints")
	for i, st := range top {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", i+1, st.StudentID, st.Wins, st.TotalDuels, st.TotalPointsEarned)
	}
	_ = w.Flush()
}

func printChanges(out io.Writer, changes []leaderboard.Change) {
	for _, c := range changes {
		switch c.Kind {
		case leaderboard.ChangeEntered:
			fmt.Fprintf(out, "+ %s entered at #%d\n", c.StudentID, c.NewRank)
		case leaderboard.ChangeLeft:
			fmt.Fprintf(out, "- %s left (was #%d)\n", c.StudentID, c.OldRank)
		case leaderboard.ChangeMoved:
			fmt.Fprintf(out, "~ %s #%d -> #%d (%s wins)\n", c.StudentID, c.OldRank, c.NewRank, signed(c.WinsDelta))
		case leaderboard.ChangeScored:
			fmt.Fprintf(out, "~ %s #%d (%s points)\n", c.StudentID, c.NewRank, signed(c.PointDelta))
		}
	}
}

func signed(n int) string {
	if n >= 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
