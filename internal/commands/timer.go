package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bit2swaz/foodstagram/internal/cooktimer"
)

func newTimerCommand() *cobra.Command {
	var tick time.Duration
	cmd := &cobra.Command{
		Use:   "timer <cooking time>",
		Short: `Count down a cooking time such as "1 hr 15 mins"`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimer(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), tick)
		},
	}
	cmd.Flags().DurationVar(&tick, "tick", time.Second, "update interval")
	_ = cmd.Flags().MarkHidden("tick")
	return cmd
}

func runTimer(ctx context.Context, out io.Writer, raw string, tick time.Duration) error {
	total := cooktimer.ParseDuration(raw)
	if total <= 0 {
		return fmt.Errorf("could not read a cooking time from %q", raw)
	}

	timer := cooktimer.New(total)
	fmt.Fprintf(out, "%s %s\n", prefix(), infoStyle.Sprintf("Timer set for %s. Ctrl+C to stop.", cooktimer.Format(total)))
	fmt.Fprintf(out, "\r%s", headStyle.Sprint(cooktimer.Format(total)))

	err := timer.Run(ctx, tick, func(left time.Duration) {
		fmt.Fprintf(out, "\r%s ", headStyle.Sprint(cooktimer.Format(left)))
	})
	fmt.Fprintln(out)

	if errors.Is(err, context.Canceled) {
		logInfo(out, fmt.Sprintf("Timer stopped with %s left.", cooktimer.Format(timer.Remaining())))
		return nil
	}
	if err != nil {
		return err
	}
	logSuccess(out, "Time's up!")
	return nil
}
